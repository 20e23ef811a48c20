package options

import (
	"context"
	"time"

	"github.com/trialdata/trialdata/internal/platform/tier"
)

// Repository aggregates distinct filterable values from the research store
// under a tier scope. Person and provider rows are scoped through visit
// membership, never read unscoped.
type Repository interface {
	// DemographicValues returns the distinct non-empty values of a
	// demographic column unioned across person and provider, plus whether
	// any contributing row holds NULL.
	DemographicValues(ctx context.Context, scope tier.Scope, column string) ([]string, bool, error)
	YearOfBirthRange(ctx context.Context, scope tier.Scope) (*int, *int, error)
	VisitSources(ctx context.Context, scope tier.Scope) ([]string, error)
	VisitDateRange(ctx context.Context, scope tier.Scope) (*time.Time, *time.Time, error)
	ClinicalSourceValues(ctx context.Context, scope tier.Scope, table string) ([]string, error)
	TotalVisits(ctx context.Context, scope tier.Scope) (int, error)
}
