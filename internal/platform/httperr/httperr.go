// Package httperr maps the platform's error taxonomy onto HTTP responses.
// Visibility failures are absorbed into 404, never leaked as 403, so a caller
// cannot distinguish "absent" from "tier-filtered out".
package httperr

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/trialdata/trialdata/internal/platform/query"
)

var (
	// ErrNotFound marks a resource that is absent or hidden by tier scoping;
	// the two are deliberately indistinguishable to the caller.
	ErrNotFound = errors.New("not found")

	// ErrForbidden marks a principal that is resolved but not authorized for
	// a specific owned resource (e.g. another user's cohort).
	ErrForbidden = errors.New("forbidden")
)

// Echo converts a service error into an echo HTTP error. Filter compilation
// errors surface with field-level detail; store failures are logged and
// replaced with a generic 500.
func Echo(logger zerolog.Logger, err error) error {
	var ife *query.InvalidFilterError
	switch {
	case errors.As(err, &ife):
		return echo.NewHTTPError(http.StatusBadRequest, ife.Error())
	case errors.Is(err, ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, "not found")
	case errors.Is(err, ErrForbidden):
		return echo.NewHTTPError(http.StatusForbidden, "forbidden")
	default:
		logger.Error().Err(err).Msg("store failure")
		return echo.NewHTTPError(http.StatusInternalServerError, "internal server error")
	}
}
