package concept

import "context"

type Repository interface {
	List(ctx context.Context, vocabulary, domain string, limit, offset int) ([]*Concept, int, error)
	GetByID(ctx context.Context, conceptID int64) (*Concept, error)
	GetByCode(ctx context.Context, vocabulary, code string) (*Concept, error)
}
