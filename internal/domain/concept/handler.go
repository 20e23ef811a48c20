package concept

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/trialdata/trialdata/internal/platform/httperr"
	"github.com/trialdata/trialdata/pkg/pagination"
)

type Handler struct {
	svc *Service
	log zerolog.Logger
}

func NewHandler(svc *Service, log zerolog.Logger) *Handler {
	return &Handler{svc: svc, log: log}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.GET("/concepts", h.ListConcepts)
	api.GET("/concepts/:id", h.GetConcept)
}

func (h *Handler) ListConcepts(c echo.Context) error {
	pg := pagination.FromContext(c)
	concepts, total, err := h.svc.List(c.Request().Context(),
		c.QueryParam("vocabulary"), c.QueryParam("domain"), pg.Limit, pg.Offset)
	if err != nil {
		return httperr.Echo(h.log, err)
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(concepts, total, pg, "/api/v1/concepts"))
}

func (h *Handler) GetConcept(c echo.Context) error {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	concept, err := h.svc.GetByID(c.Request().Context(), id)
	if err != nil {
		return httperr.Echo(h.log, err)
	}
	return c.JSON(http.StatusOK, concept)
}
