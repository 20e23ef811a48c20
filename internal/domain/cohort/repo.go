package cohort

import (
	"context"

	"github.com/google/uuid"
)

type Repository interface {
	Create(ctx context.Context, c *Cohort) error
	GetByID(ctx context.Context, id uuid.UUID) (*Cohort, error)
	ListByOwner(ctx context.Context, owner uuid.UUID, limit, offset int) ([]*Cohort, int, error)
	Update(ctx context.Context, c *Cohort) error
	Delete(ctx context.Context, id uuid.UUID) error
}
