package visit

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/trialdata/trialdata/internal/platform/auth"
	"github.com/trialdata/trialdata/internal/platform/httperr"
	"github.com/trialdata/trialdata/internal/platform/query"
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
	api.GET("/visits", h.ListVisits)
	api.GET("/visits/:id", h.GetVisit)
	api.POST("/visits-search", h.SearchVisits)
}

// SearchRequest is the POST /visits-search body. Filters is the raw filter
// document; parsing happens server-side so malformed documents surface as
// field-level 400s.
type SearchRequest struct {
	Filters map[string]interface{} `json:"filters"`
	Sort    *SortSpec              `json:"sort,omitempty"`
	Page    pagination.Params      `json:"page"`
}

type filterSummary struct {
	ActiveFilters int `json:"active_filters"`
}

type searchResponse struct {
	pagination.Response
	FilterSummary filterSummary `json:"filter_summary"`
}

func (h *Handler) SearchVisits(c echo.Context) error {
	p, err := auth.MustPrincipal(c)
	if err != nil {
		return err
	}
	var req SearchRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	spec, err := query.Parse(req.Filters)
	if err != nil {
		return httperr.Echo(h.log, err)
	}
	pg := req.Page.Normalize()

	result, err := h.svc.Search(c.Request().Context(), p, spec, req.Sort, pg.Limit, pg.Offset)
	if err != nil {
		return httperr.Echo(h.log, err)
	}
	return c.JSON(http.StatusOK, searchResponse{
		Response:      *pagination.NewResponse(result.Visits, result.Total, pg, "/api/v1/visits-search"),
		FilterSummary: filterSummary{ActiveFilters: result.ActiveFilters},
	})
}

func (h *Handler) ListVisits(c echo.Context) error {
	p, err := auth.MustPrincipal(c)
	if err != nil {
		return err
	}
	pg := pagination.FromContext(c)
	visits, total, err := h.svc.List(c.Request().Context(), p, pg.Limit, pg.Offset)
	if err != nil {
		return httperr.Echo(h.log, err)
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(visits, total, pg, "/api/v1/visits"))
}

func (h *Handler) GetVisit(c echo.Context) error {
	p, err := auth.MustPrincipal(c)
	if err != nil {
		return err
	}
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	v, err := h.svc.GetByID(c.Request().Context(), p, id)
	if err != nil {
		return httperr.Echo(h.log, err)
	}
	return c.JSON(http.StatusOK, v)
}
