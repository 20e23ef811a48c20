package auth

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/trialdata/trialdata/internal/platform/tier"
)

type contextKey string

const principalKey contextKey = "principal"

// WithPrincipal attaches a resolved principal to the context.
func WithPrincipal(ctx context.Context, p *tier.Principal) context.Context {
	return context.WithValue(ctx, principalKey, p)
}

// PrincipalFromContext retrieves the resolved principal, or nil when the
// request is unauthenticated.
func PrincipalFromContext(ctx context.Context) *tier.Principal {
	p, _ := ctx.Value(principalKey).(*tier.Principal)
	return p
}

// MustPrincipal returns the request's principal or an unauthenticated error.
// Handlers run behind the auth middleware, so a missing principal means the
// middleware chain is misconfigured.
func MustPrincipal(c echo.Context) (*tier.Principal, error) {
	p := PrincipalFromContext(c.Request().Context())
	if p == nil {
		return nil, echo.NewHTTPError(http.StatusUnauthorized, "no principal resolved")
	}
	return p, nil
}

// RequireAdmin returns middleware that rejects non-administrator principals.
func RequireAdmin() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			p := PrincipalFromContext(c.Request().Context())
			if p == nil {
				return echo.NewHTTPError(http.StatusUnauthorized, "no principal resolved")
			}
			if !p.IsAdmin {
				return echo.NewHTTPError(http.StatusForbidden, "administrator access required")
			}
			return next(c)
		}
	}
}
