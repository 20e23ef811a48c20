package identity

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
	api.GET("/me", h.Me)
	api.GET("/tiers", h.ListTiers)
}

// Me returns the resolved principal for the current request.
func (h *Handler) Me(c echo.Context) error {
	p, err := auth.MustPrincipal(c)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, p)
}

// ListTiers returns the tiers visible to the current principal.
func (h *Handler) ListTiers(c echo.Context) error {
	p, err := auth.MustPrincipal(c)
	if err != nil {
		return err
	}
	tiers, err := h.svc.VisibleTiers(c.Request().Context(), p)
	if err != nil {
		return httperr.Echo(h.log, err)
	}
	return c.JSON(http.StatusOK, tiers)
}
