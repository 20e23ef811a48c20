package provider

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/trialdata/trialdata/internal/platform/httperr"
	"github.com/trialdata/trialdata/internal/platform/tier"
)

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) List(ctx context.Context, p *tier.Principal, limit, offset int) ([]*Provider, int, error) {
	return s.repo.List(ctx, tier.ScopeFor(p), limit, offset)
}

func (s *Service) GetByID(ctx context.Context, p *tier.Principal, id int64) (*Provider, error) {
	prov, err := s.repo.GetByID(ctx, tier.ScopeFor(p), id)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, httperr.ErrNotFound
	}
	return prov, err
}
