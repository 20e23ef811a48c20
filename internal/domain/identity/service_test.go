package identity

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/trialdata/trialdata/internal/platform/tier"
)

type mockRepo struct {
	tiers      []*Tier
	principals map[string]*PrincipalRow
}

func (m *mockRepo) ListTiers(_ context.Context) ([]*Tier, error) { return m.tiers, nil }

func (m *mockRepo) GetPrincipalBySubject(_ context.Context, subject string) (*PrincipalRow, error) {
	p, ok := m.principals[subject]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return p, nil
}

func (m *mockRepo) GetPrincipal(_ context.Context, id uuid.UUID) (*PrincipalRow, error) {
	for _, p := range m.principals {
		if p.ID == id {
			return p, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (m *mockRepo) TierLevel(_ context.Context, tierID int64) (int, error) {
	for _, t := range m.tiers {
		if t.ID == tierID {
			return t.Level, nil
		}
	}
	return 0, pgx.ErrNoRows
}

func int64Ptr(i int64) *int64 { return &i }
func intPtr(i int) *int { return &i }

func newMock() *mockRepo {
	return &mockRepo{
		tiers: []*Tier{
			{ID: 1, Name: "public", Level: 1},
			{ID: 2, Name: "registered", Level: 2, CanManageCohorts: true},
			{ID: 3, Name: "full", Level: 3, CanExport: true, CanManageCohorts: true},
		},
		principals: map[string]*PrincipalRow{
			"alice": {ID: uuid.New(), Subject: "alice", TierID: int64Ptr(2)},
			"bob":   {ID: uuid.New(), Subject: "bob"},
			"root":  {ID: uuid.New(), Subject: "root", IsAdministrator: true},
		},
	}
}

func TestResolveSubject(t *testing.T) {
	svc := NewService(newMock())
	ctx := context.Background()

	p, err := svc.ResolveSubject(ctx, "alice")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if p.TierLevel == nil || *p.TierLevel != 2 {
		t.Errorf("alice should resolve to tier level 2, got %v", p.TierLevel)
	}

	p, err = svc.ResolveSubject(ctx, "bob")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if p.TierLevel != nil {
		t.Error("tier-less principal must resolve with nil TierLevel")
	}

	p, err = svc.ResolveSubject(ctx, "nobody")
	if err != nil || p != nil {
		t.Errorf("unknown subject should resolve to nil, nil; got %v, %v", p, err)
	}
}

func TestVisibleTiers(t *testing.T) {
	svc := NewService(newMock())
	ctx := context.Background()

	tiers, err := svc.VisibleTiers(ctx, &tier.Principal{TierLevel: intPtr(2)})
	if err != nil {
		t.Fatalf("visible tiers: %v", err)
	}
	if len(tiers) != 2 {
		t.Fatalf("level-2 principal should see 2 tiers, got %d", len(tiers))
	}

	tiers, err = svc.VisibleTiers(ctx, &tier.Principal{IsAdmin: true})
	if err != nil || len(tiers) != 3 {
		t.Errorf("administrator should see all tiers, got %d, %v", len(tiers), err)
	}

	tiers, err = svc.VisibleTiers(ctx, &tier.Principal{})
	if err != nil || len(tiers) != 0 {
		t.Errorf("tier-less principal should see no tiers, got %d, %v", len(tiers), err)
	}
}
