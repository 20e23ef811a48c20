package visit

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/trialdata/trialdata/internal/platform/httperr"
	"github.com/trialdata/trialdata/internal/platform/query"
	"github.com/trialdata/trialdata/internal/platform/tier"
)

// DefaultOrderBy is the stable default sort: newest visits first, id as the
// tie-break so pagination never straddles equal dates nondeterministically.
const DefaultOrderBy = "visit_start_date DESC, id ASC"

// sortable whitelists the fields an explicit sort request may name.
var sortable = map[string]bool{
	"id":                 true,
	"visit_start_date":   true,
	"tier_level":         true,
	"person_id":          true,
	"visit_source_value": true,
}

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// OrderBy renders a sort request against the whitelist, falling back to the
// default for nil. An off-whitelist field or direction is an invalid filter.
func OrderBy(sort *SortSpec) (string, error) {
	if sort == nil || sort.Field == "" {
		return DefaultOrderBy, nil
	}
	if !sortable[sort.Field] {
		return "", &query.InvalidFilterError{Namespace: "sort", Field: sort.Field, Reason: "not a sortable field"}
	}
	dir := strings.ToUpper(sort.Direction)
	switch dir {
	case "":
		dir = "ASC"
	case "ASC", "DESC":
	default:
		return "", &query.InvalidFilterError{Namespace: "sort", Field: "direction", Reason: "must be asc or desc"}
	}
	if sort.Field == "id" {
		return "id " + dir, nil
	}
	return sort.Field + " " + dir + ", id ASC", nil
}

// Search runs a filtered visit query under the principal's tier scope.
// A principal with no tier gets an empty result, not an error.
func (s *Service) Search(ctx context.Context, p *tier.Principal, spec *query.Spec, sort *SortSpec, limit, offset int) (*SearchResult, error) {
	orderBy, err := OrderBy(sort)
	if err != nil {
		return nil, err
	}
	compiled := query.Compile(spec)
	visits, total, err := s.repo.Search(ctx, tier.ScopeFor(p), compiled, orderBy, limit, offset)
	if err != nil {
		return nil, err
	}
	return &SearchResult{Visits: visits, Total: total, ActiveFilters: compiled.ActiveNamespaces}, nil
}

// SearchAll returns every matching visit without pagination. Used by cohort
// replay, where the bundle must be complete.
func (s *Service) SearchAll(ctx context.Context, p *tier.Principal, spec *query.Spec) ([]*VisitOccurrence, error) {
	return s.repo.SearchAll(ctx, tier.ScopeFor(p), query.Compile(spec), DefaultOrderBy)
}

// Count returns the number of visits matching the filter under the
// principal's scope.
func (s *Service) Count(ctx context.Context, p *tier.Principal, spec *query.Spec) (int, error) {
	return s.repo.Count(ctx, tier.ScopeFor(p), query.Compile(spec))
}

// ResolveRelated expands a visit set into its closed entity bundle. The
// visits must come from a scoped query; no further visibility check is done
// on the linked rows, which inherit the parent visit's visibility.
func (s *Service) ResolveRelated(ctx context.Context, visits []*VisitOccurrence) (*EntityBundle, error) {
	return s.repo.Related(ctx, visits)
}

func (s *Service) List(ctx context.Context, p *tier.Principal, limit, offset int) ([]*VisitOccurrence, int, error) {
	return s.repo.List(ctx, tier.ScopeFor(p), limit, offset)
}

// GetByID returns NotFound both for absent visits and for visits hidden by
// tier scope.
func (s *Service) GetByID(ctx context.Context, p *tier.Principal, id int64) (*VisitOccurrence, error) {
	v, err := s.repo.GetByID(ctx, tier.ScopeFor(p), id)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, httperr.ErrNotFound
	}
	return v, err
}
