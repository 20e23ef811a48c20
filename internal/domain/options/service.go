package options

import (
	"context"
	"time"

	"github.com/trialdata/trialdata/internal/domain/identity"
	"github.com/trialdata/trialdata/internal/platform/query"
	"github.com/trialdata/trialdata/internal/platform/tier"
)

// TierSource supplies the tier list visible to a principal. Implemented by
// the identity service; the tier table lives in the identity store, so it is
// read through that domain rather than joined in SQL.
type TierSource interface {
	VisibleTiers(ctx context.Context, p *tier.Principal) ([]*identity.Tier, error)
}

type Service struct {
	repo  Repository
	tiers TierSource
	cache *Cache
	ttl   time.Duration
}

func NewService(repo Repository, tiers TierSource, ttl time.Duration) *Service {
	return &Service{repo: repo, tiers: tiers, cache: NewCache(), ttl: ttl}
}

// Options returns the filter-options document for the principal's scope,
// computing and caching it on miss. Two principals at the same tier share a
// cache entry.
func (s *Service) Options(ctx context.Context, p *tier.Principal) (*Options, error) {
	scope := tier.ScopeFor(p)
	key := scope.Key()
	if cached, ok := s.cache.Get(key); ok {
		return cached, nil
	}

	opts, err := s.compute(ctx, p, scope)
	if err != nil {
		return nil, err
	}
	s.cache.Set(key, opts, s.ttl)
	return opts, nil
}

func (s *Service) compute(ctx context.Context, p *tier.Principal, scope tier.Scope) (*Options, error) {
	opts := &Options{ClinicalOptions: map[string]ClinicalOptions{}}

	var err error
	if opts.Demographics.Genders, err = s.demographic(ctx, scope, "gender"); err != nil {
		return nil, err
	}
	if opts.Demographics.Races, err = s.demographic(ctx, scope, "race"); err != nil {
		return nil, err
	}
	if opts.Demographics.Ethnicities, err = s.demographic(ctx, scope, "ethnicity"); err != nil {
		return nil, err
	}
	min, max, err := s.repo.YearOfBirthRange(ctx, scope)
	if err != nil {
		return nil, err
	}
	opts.Demographics.YearOfBirthRange = Range{Min: min, Max: max}

	if opts.VisitOptions.Tiers, err = s.tiers.VisibleTiers(ctx, p); err != nil {
		return nil, err
	}
	if opts.VisitOptions.VisitSources, err = s.repo.VisitSources(ctx, scope); err != nil {
		return nil, err
	}
	from, to, err := s.repo.VisitDateRange(ctx, scope)
	if err != nil {
		return nil, err
	}
	opts.VisitOptions.DateRange = DateRange{Min: formatDate(from), Max: formatDate(to)}

	for _, table := range query.ClinicalTableNames() {
		values, err := s.repo.ClinicalSourceValues(ctx, scope, table)
		if err != nil {
			return nil, err
		}
		opts.ClinicalOptions[table] = ClinicalOptions{SourceValues: values}
	}

	if opts.TotalAccessibleVisits, err = s.repo.TotalVisits(ctx, scope); err != nil {
		return nil, err
	}
	return opts, nil
}

// demographic appends the NULL marker after the sorted non-null values when
// any contributing row holds NULL.
func (s *Service) demographic(ctx context.Context, scope tier.Scope, column string) ([]string, error) {
	values, hasNull, err := s.repo.DemographicValues(ctx, scope, column)
	if err != nil {
		return nil, err
	}
	if hasNull {
		values = append(values, query.NullMarker)
	}
	return values, nil
}

func formatDate(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.Format(query.DateLayout)
	return &s
}
