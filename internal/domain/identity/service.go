package identity

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/trialdata/trialdata/internal/platform/tier"
)

// Service resolves token subjects to principals and exposes the tier list.
// It implements auth.PrincipalResolver.
type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// ResolveSubject loads the principal row for a token subject and flattens its
// tier reference to a level. An unknown subject resolves to nil, which the
// auth middleware turns into a 401.
func (s *Service) ResolveSubject(ctx context.Context, subject string) (*tier.Principal, error) {
	row, err := s.repo.GetPrincipalBySubject(ctx, subject)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	p := &tier.Principal{
		ID:          row.ID,
		Subject:     row.Subject,
		DisplayName: row.DisplayName,
		IsAdmin:     row.IsAdministrator,
	}
	if row.TierID != nil {
		level, err := s.repo.TierLevel(ctx, *row.TierID)
		if err != nil {
			return nil, err
		}
		p.TierLevel = &level
	}
	return p, nil
}

// ListTiers returns all configured tiers ordered by level.
func (s *Service) ListTiers(ctx context.Context) ([]*Tier, error) {
	return s.repo.ListTiers(ctx)
}

// VisibleTiers returns the tiers the principal may see research rows at.
func (s *Service) VisibleTiers(ctx context.Context, p *tier.Principal) ([]*Tier, error) {
	all, err := s.repo.ListTiers(ctx)
	if err != nil {
		return nil, err
	}
	scope := tier.ScopeFor(p)
	visible := []*Tier{}
	for _, t := range all {
		if scope.All || (!scope.None && t.Level <= scope.MaxLevel) {
			visible = append(visible, t)
		}
	}
	return visible, nil
}
