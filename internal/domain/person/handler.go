package person

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/trialdata/trialdata/internal/platform/auth"
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
	api.GET("/persons", h.ListPersons)
	api.GET("/persons/:id", h.GetPerson)
}

func (h *Handler) ListPersons(c echo.Context) error {
	p, err := auth.MustPrincipal(c)
	if err != nil {
		return err
	}
	pg := pagination.FromContext(c)
	persons, total, err := h.svc.List(c.Request().Context(), p, pg.Limit, pg.Offset)
	if err != nil {
		return httperr.Echo(h.log, err)
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(persons, total, pg, "/api/v1/persons"))
}

func (h *Handler) GetPerson(c echo.Context) error {
	p, err := auth.MustPrincipal(c)
	if err != nil {
		return err
	}
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	per, err := h.svc.GetByID(c.Request().Context(), p, id)
	if err != nil {
		return httperr.Echo(h.log, err)
	}
	return c.JSON(http.StatusOK, per)
}
