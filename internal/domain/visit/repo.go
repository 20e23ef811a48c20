package visit

import (
	"context"

	"github.com/trialdata/trialdata/internal/platform/query"
	"github.com/trialdata/trialdata/internal/platform/tier"
)

// Repository is the tier-scoped read surface over visit_occurrence and its
// clinical-fact tables. Demographic and clinical predicates are pushed down
// into SQL; no related table is ever materialized client-side for filtering.
type Repository interface {
	List(ctx context.Context, scope tier.Scope, limit, offset int) ([]*VisitOccurrence, int, error)
	GetByID(ctx context.Context, scope tier.Scope, id int64) (*VisitOccurrence, error)

	// Search applies scope plus a compiled predicate tree. orderBy is a
	// rendered ORDER BY expression from the service's whitelist.
	Search(ctx context.Context, scope tier.Scope, c *query.Compiled, orderBy string, limit, offset int) ([]*VisitOccurrence, int, error)

	// SearchAll is the unpaginated variant used for cohort replay.
	SearchAll(ctx context.Context, scope tier.Scope, c *query.Compiled, orderBy string) ([]*VisitOccurrence, error)

	// Count is the count-only variant used to refresh cached cohort sizes.
	Count(ctx context.Context, scope tier.Scope, c *query.Compiled) (int, error)

	// Related loads the full entity bundle for the given visits. IDs must
	// already be visibility-checked by the caller.
	Related(ctx context.Context, visits []*VisitOccurrence) (*EntityBundle, error)
}
