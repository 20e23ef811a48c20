package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"

	"github.com/trialdata/trialdata/internal/platform/tier"
)

// Claims are the token claims the platform cares about. The subject maps to a
// principal row in the identity store.
type Claims struct {
	jwt.RegisteredClaims
}

// JWTConfig configures bearer-token verification.
type JWTConfig struct {
	Issuer     string
	Audience   string
	SigningKey []byte
}

// PrincipalResolver looks up the platform principal for a token subject.
// Implemented by the identity store's principal repository.
type PrincipalResolver interface {
	ResolveSubject(ctx context.Context, subject string) (*tier.Principal, error)
}

// JWTMiddleware verifies the bearer token and resolves the subject to a
// Principal on the request context. Token and subject failures are 401;
// everything downstream assumes a resolved principal.
func JWTMiddleware(cfg JWTConfig, resolver PrincipalResolver) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			authHeader := c.Request().Header.Get("Authorization")
			if authHeader == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "missing authorization header")
			}

			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid authorization format")
			}

			claims := &Claims{}
			opts := []jwt.ParserOption{jwt.WithValidMethods([]string{"HS256", "HS384", "HS512"})}
			if cfg.Issuer != "" {
				opts = append(opts, jwt.WithIssuer(cfg.Issuer))
			}
			if cfg.Audience != "" {
				opts = append(opts, jwt.WithAudience(cfg.Audience))
			}
			token, err := jwt.ParseWithClaims(parts[1], claims, func(t *jwt.Token) (interface{}, error) {
				return cfg.SigningKey, nil
			}, opts...)
			if err != nil || !token.Valid {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid token")
			}
			if claims.Subject == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "token has no subject")
			}

			principal, err := resolver.ResolveSubject(c.Request().Context(), claims.Subject)
			if err != nil || principal == nil {
				return echo.NewHTTPError(http.StatusUnauthorized, "unknown principal")
			}

			ctx := WithPrincipal(c.Request().Context(), principal)
			c.SetRequest(c.Request().WithContext(ctx))
			return next(c)
		}
	}
}

// DevAuthMiddleware attaches an administrator principal to every request.
// Development mode only.
func DevAuthMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			p := &tier.Principal{
				Subject:     "dev-admin",
				DisplayName: "Development Administrator",
				IsAdmin:     true,
			}
			ctx := WithPrincipal(c.Request().Context(), p)
			c.SetRequest(c.Request().WithContext(ctx))
			return next(c)
		}
	}
}
