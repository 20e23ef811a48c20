package cohort

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/trialdata/trialdata/internal/platform/auth"
	"github.com/trialdata/trialdata/internal/platform/httperr"
	"github.com/trialdata/trialdata/internal/platform/tier"
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
	api.GET("/cohorts", h.ListCohorts)
	api.POST("/cohorts", h.CreateCohort)
	api.GET("/cohorts/:id", h.GetCohort)
	api.PUT("/cohorts/:id", h.UpdateCohort)
	api.DELETE("/cohorts/:id", h.DeleteCohort)
	api.GET("/cohorts/:id/data", h.GetCohortData)
}

type cohortRequest struct {
	Name        string          `json:"name"`
	Description *string         `json:"description,omitempty"`
	Filters     json.RawMessage `json:"filters"`
}

func (h *Handler) CreateCohort(c echo.Context) error {
	p, err := auth.MustPrincipal(c)
	if err != nil {
		return err
	}
	var req cohortRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if req.Name == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "name is required")
	}
	co, err := h.svc.Create(c.Request().Context(), p, req.Name, req.Description, req.Filters)
	if err != nil {
		return httperr.Echo(h.log, err)
	}
	return c.JSON(http.StatusCreated, co)
}

func (h *Handler) ListCohorts(c echo.Context) error {
	p, err := auth.MustPrincipal(c)
	if err != nil {
		return err
	}
	pg := pagination.FromContext(c)
	cohorts, total, err := h.svc.List(c.Request().Context(), p, pg.Limit, pg.Offset)
	if err != nil {
		return httperr.Echo(h.log, err)
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(cohorts, total, pg, "/api/v1/cohorts"))
}

func (h *Handler) GetCohort(c echo.Context) error {
	p, id, err := h.principalAndID(c)
	if err != nil {
		return err
	}
	co, err := h.svc.Get(c.Request().Context(), p, id)
	if err != nil {
		return httperr.Echo(h.log, err)
	}
	return c.JSON(http.StatusOK, co)
}

func (h *Handler) UpdateCohort(c echo.Context) error {
	p, id, err := h.principalAndID(c)
	if err != nil {
		return err
	}
	var req cohortRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	co, err := h.svc.Update(c.Request().Context(), p, id, req.Name, req.Description, req.Filters)
	if err != nil {
		return httperr.Echo(h.log, err)
	}
	return c.JSON(http.StatusOK, co)
}

func (h *Handler) DeleteCohort(c echo.Context) error {
	p, id, err := h.principalAndID(c)
	if err != nil {
		return err
	}
	if err := h.svc.Delete(c.Request().Context(), p, id); err != nil {
		return httperr.Echo(h.log, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) GetCohortData(c echo.Context) error {
	p, id, err := h.principalAndID(c)
	if err != nil {
		return err
	}
	data, err := h.svc.ResolveData(c.Request().Context(), p, id)
	if err != nil {
		return httperr.Echo(h.log, err)
	}
	return c.JSON(http.StatusOK, data)
}

func (h *Handler) principalAndID(c echo.Context) (p *tier.Principal, id uuid.UUID, err error) {
	p, err = auth.MustPrincipal(c)
	if err != nil {
		return nil, uuid.Nil, err
	}
	id, err = uuid.Parse(c.Param("id"))
	if err != nil {
		return nil, uuid.Nil, echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	return p, id, nil
}
