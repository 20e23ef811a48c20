package provider

import (
	"context"

	"github.com/trialdata/trialdata/internal/platform/tier"
)

// Repository scopes every read by tier visibility: a provider is visible iff
// at least one visible visit references it.
type Repository interface {
	List(ctx context.Context, scope tier.Scope, limit, offset int) ([]*Provider, int, error)
	GetByID(ctx context.Context, scope tier.Scope, id int64) (*Provider, error)
}
