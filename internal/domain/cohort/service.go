package cohort

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/trialdata/trialdata/internal/domain/visit"
	"github.com/trialdata/trialdata/internal/platform/httperr"
	"github.com/trialdata/trialdata/internal/platform/query"
	"github.com/trialdata/trialdata/internal/platform/tier"
)

// VisitEngine is the slice of the visit service cohort replay needs.
type VisitEngine interface {
	SearchAll(ctx context.Context, p *tier.Principal, spec *query.Spec) ([]*visit.VisitOccurrence, error)
	Count(ctx context.Context, p *tier.Principal, spec *query.Spec) (int, error)
	ResolveRelated(ctx context.Context, visits []*visit.VisitOccurrence) (*visit.EntityBundle, error)
}

type Service struct {
	repo   Repository
	visits VisitEngine
}

func NewService(repo Repository, visits VisitEngine) *Service {
	return &Service{repo: repo, visits: visits}
}

// Create validates the filter document, refreshes the visit count under the
// owner's current scope, and stores the document verbatim.
func (s *Service) Create(ctx context.Context, p *tier.Principal, name string, description *string, filters json.RawMessage) (*Cohort, error) {
	if name == "" {
		return nil, fmt.Errorf("name is required")
	}
	if len(filters) == 0 {
		filters = json.RawMessage(`{}`)
	}
	spec, err := query.ParseJSON(filters)
	if err != nil {
		return nil, err
	}
	count, err := s.visits.Count(ctx, p, spec)
	if err != nil {
		return nil, err
	}

	c := &Cohort{
		OwnerPrincipal:   p.ID,
		Name:             name,
		Description:      description,
		Filters:          filters,
		CachedVisitCount: count,
	}
	if err := s.repo.Create(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

// Get enforces ownership: absent is NotFound, another owner's cohort is
// Forbidden.
func (s *Service) Get(ctx context.Context, p *tier.Principal, id uuid.UUID) (*Cohort, error) {
	c, err := s.repo.GetByID(ctx, id)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, httperr.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if c.OwnerPrincipal != p.ID {
		return nil, httperr.ErrForbidden
	}
	return c, nil
}

func (s *Service) List(ctx context.Context, p *tier.Principal, limit, offset int) ([]*Cohort, int, error) {
	return s.repo.ListByOwner(ctx, p.ID, limit, offset)
}

// Update replaces the name, description and filter document, revalidating
// the filters and refreshing the cached count.
func (s *Service) Update(ctx context.Context, p *tier.Principal, id uuid.UUID, name string, description *string, filters json.RawMessage) (*Cohort, error) {
	c, err := s.Get(ctx, p, id)
	if err != nil {
		return nil, err
	}
	if name != "" {
		c.Name = name
	}
	if description != nil {
		c.Description = description
	}
	if len(filters) > 0 {
		spec, err := query.ParseJSON(filters)
		if err != nil {
			return nil, err
		}
		count, err := s.visits.Count(ctx, p, spec)
		if err != nil {
			return nil, err
		}
		c.Filters = filters
		c.CachedVisitCount = count
	}
	if err := s.repo.Update(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

func (s *Service) Delete(ctx context.Context, p *tier.Principal, id uuid.UUID) error {
	if _, err := s.Get(ctx, p, id); err != nil {
		return err
	}
	return s.repo.Delete(ctx, id)
}

// ResolveData replays the stored filter document under the owner's current
// tier scope and expands the result into the full entity bundle. A principal
// whose tier dropped since saving silently gets fewer (or zero) rows.
func (s *Service) ResolveData(ctx context.Context, p *tier.Principal, id uuid.UUID) (*DataResult, error) {
	c, err := s.Get(ctx, p, id)
	if err != nil {
		return nil, err
	}
	spec, err := query.ParseJSON(c.Filters)
	if err != nil {
		return nil, err
	}

	visits, err := s.visits.SearchAll(ctx, p, spec)
	if err != nil {
		return nil, err
	}
	bundle, err := s.visits.ResolveRelated(ctx, visits)
	if err != nil {
		return nil, err
	}

	desc := c.Name
	if c.Description != nil && *c.Description != "" {
		desc = *c.Description
	}
	return &DataResult{
		EntityBundle: bundle,
		Metadata: Metadata{
			Description: desc,
			Source:      "cohort_filter",
			Count: CountSummary{
				Visits:    len(bundle.Visits),
				Persons:   len(bundle.Persons),
				Providers: len(bundle.Providers),
			},
		},
	}, nil
}
