package options

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/trialdata/trialdata/internal/platform/auth"
	"github.com/trialdata/trialdata/internal/platform/httperr"
)

type Handler struct {
	svc *Service
	log zerolog.Logger
}

func NewHandler(svc *Service, log zerolog.Logger) *Handler {
	return &Handler{svc: svc, log: log}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.GET("/filter-options", h.GetOptions)
}

// GetOptions serves the cached filter-options document. Responses may be up
// to the cache TTL stale relative to the stores.
func (h *Handler) GetOptions(c echo.Context) error {
	p, err := auth.MustPrincipal(c)
	if err != nil {
		return err
	}
	opts, err := h.svc.Options(c.Request().Context(), p)
	if err != nil {
		return httperr.Echo(h.log, err)
	}
	return c.JSON(http.StatusOK, opts)
}
