package person

import (
	"context"

	"github.com/trialdata/trialdata/internal/platform/tier"
)

// Repository scopes every read by tier visibility: a person is visible iff it
// is referenced by at least one visible visit.
type Repository interface {
	List(ctx context.Context, scope tier.Scope, limit, offset int) ([]*Person, int, error)
	GetByID(ctx context.Context, scope tier.Scope, id int64) (*Person, error)
}
