package concept

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/trialdata/trialdata/internal/platform/httperr"
)

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) List(ctx context.Context, vocabulary, domain string, limit, offset int) ([]*Concept, int, error) {
	return s.repo.List(ctx, vocabulary, domain, limit, offset)
}

func (s *Service) GetByID(ctx context.Context, conceptID int64) (*Concept, error) {
	c, err := s.repo.GetByID(ctx, conceptID)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, httperr.ErrNotFound
	}
	return c, err
}

func (s *Service) GetByCode(ctx context.Context, vocabulary, code string) (*Concept, error) {
	c, err := s.repo.GetByCode(ctx, vocabulary, code)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, httperr.ErrNotFound
	}
	return c, err
}
