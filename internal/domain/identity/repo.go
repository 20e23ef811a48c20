package identity

import (
	"context"

	"github.com/google/uuid"
)

type Repository interface {
	ListTiers(ctx context.Context) ([]*Tier, error)
	GetPrincipalBySubject(ctx context.Context, subject string) (*PrincipalRow, error)
	GetPrincipal(ctx context.Context, id uuid.UUID) (*PrincipalRow, error)
	// TierLevel resolves a tier id to its level.
	TierLevel(ctx context.Context, tierID int64) (int, error)
}
