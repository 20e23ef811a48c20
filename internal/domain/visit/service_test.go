package visit

import (
	"context"
	"errors"
	"sort"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/trialdata/trialdata/internal/domain/person"
	"github.com/trialdata/trialdata/internal/domain/provider"
	"github.com/trialdata/trialdata/internal/platform/httperr"
	"github.com/trialdata/trialdata/internal/platform/query"
	"github.com/trialdata/trialdata/internal/platform/tier"
)

// -- Mock Repository --

// mockRepo evaluates compiled predicate trees in memory against a small fixed
// dataset, mirroring what the SQL rendering does against the store.
type mockRepo struct {
	visits    []*VisitOccurrence
	persons   map[int64]*person.Person
	providers map[int64]*provider.Provider
	// facts per table, per visit: column name -> nullable value
	facts map[string]map[int64][]map[string]*string
}

func inScope(s tier.Scope, level int) bool {
	switch {
	case s.None:
		return false
	case s.All:
		return true
	default:
		return level <= s.MaxLevel
	}
}

func matchIn(p query.Predicate, val *string) bool {
	if val == nil {
		return p.IncludeNull
	}
	for _, v := range p.Values {
		if *val == v {
			return true
		}
	}
	return false
}

func (m *mockRepo) matchDemographics(preds []query.Predicate, yob *int, gender, race, ethnicity *string) bool {
	for _, p := range preds {
		switch p.Column {
		case "gender":
			if !matchIn(p, gender) {
				return false
			}
		case "race":
			if !matchIn(p, race) {
				return false
			}
		case "ethnicity":
			if !matchIn(p, ethnicity) {
				return false
			}
		case "year_of_birth":
			if yob == nil {
				return false
			}
			bound := p.Value.(int)
			if p.Op == query.OpGte && *yob < bound {
				return false
			}
			if p.Op == query.OpLte && *yob > bound {
				return false
			}
		}
	}
	return true
}

func (m *mockRepo) matches(scope tier.Scope, c *query.Compiled, v *VisitOccurrence) bool {
	if !inScope(scope, v.TierLevel) {
		return false
	}
	if c == nil {
		return true
	}
	if c.TierLevels != nil {
		found := false
		for _, lvl := range c.TierLevels {
			if v.TierLevel == lvl {
				found = true
			}
		}
		if !found {
			return false
		}
	}
	for _, p := range c.Visit {
		switch p.Column {
		case "visit_source_value":
			if !matchIn(p, v.VisitSourceValue) {
				return false
			}
		case "visit_start_date":
			bound := p.Value.(time.Time)
			if p.Op == query.OpGte && v.VisitStartDate.Before(bound) {
				return false
			}
			if p.Op == query.OpLte && v.VisitStartDate.After(bound) {
				return false
			}
		}
	}
	if c.HasPersonFilter() {
		per := m.persons[v.PersonID]
		if per == nil || !m.matchDemographics(c.Person, per.YearOfBirth, per.Gender, per.Race, per.Ethnicity) {
			return false
		}
	}
	if c.HasProviderFilter() {
		if v.ProviderID == nil {
			return false
		}
		prov := m.providers[*v.ProviderID]
		if prov == nil || !m.matchDemographics(c.Provider, prov.YearOfBirth, prov.Gender, prov.Race, prov.Ethnicity) {
			return false
		}
	}
	for table, preds := range c.Clinical {
		def := query.ClinicalTables[table]
		exists := false
		for _, row := range m.facts[table][v.ID] {
			ok := true
			for _, p := range preds {
				if p.Column == def.SourceColumn && !matchIn(p, row[def.SourceColumn]) {
					ok = false
				}
			}
			if ok {
				exists = true
				break
			}
		}
		if !exists {
			return false
		}
	}
	return true
}

func (m *mockRepo) search(scope tier.Scope, c *query.Compiled) []*VisitOccurrence {
	result := []*VisitOccurrence{}
	for _, v := range m.visits {
		if m.matches(scope, c, v) {
			result = append(result, v)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if !result[i].VisitStartDate.Equal(result[j].VisitStartDate) {
			return result[i].VisitStartDate.After(result[j].VisitStartDate)
		}
		return result[i].ID < result[j].ID
	})
	return result
}

func (m *mockRepo) List(_ context.Context, scope tier.Scope, limit, offset int) ([]*VisitOccurrence, int, error) {
	all := m.search(scope, nil)
	return page(all, limit, offset), len(all), nil
}

func (m *mockRepo) GetByID(_ context.Context, scope tier.Scope, id int64) (*VisitOccurrence, error) {
	for _, v := range m.visits {
		if v.ID == id && inScope(scope, v.TierLevel) {
			return v, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (m *mockRepo) Search(_ context.Context, scope tier.Scope, c *query.Compiled, _ string, limit, offset int) ([]*VisitOccurrence, int, error) {
	all := m.search(scope, c)
	return page(all, limit, offset), len(all), nil
}

func (m *mockRepo) SearchAll(_ context.Context, scope tier.Scope, c *query.Compiled, _ string) ([]*VisitOccurrence, error) {
	return m.search(scope, c), nil
}

func (m *mockRepo) Count(_ context.Context, scope tier.Scope, c *query.Compiled) (int, error) {
	return len(m.search(scope, c)), nil
}

func (m *mockRepo) Related(_ context.Context, visits []*VisitOccurrence) (*EntityBundle, error) {
	bundle := &EntityBundle{Visits: visits}
	inSet := map[int64]bool{}
	for _, v := range visits {
		inSet[v.ID] = true
		if p := m.persons[v.PersonID]; p != nil {
			bundle.Persons = append(bundle.Persons, p)
		}
		if v.ProviderID != nil {
			if p := m.providers[*v.ProviderID]; p != nil {
				bundle.Providers = append(bundle.Providers, p)
			}
		}
	}
	for visitID, rows := range m.facts["condition_occurrence"] {
		if !inSet[visitID] {
			continue
		}
		for _, row := range rows {
			bundle.ConditionOccurrences = append(bundle.ConditionOccurrences, &ConditionOccurrence{
				VisitOccurrenceID:    visitID,
				ConditionSourceValue: row["condition_source_value"],
			})
		}
	}
	return bundle, nil
}

func page(all []*VisitOccurrence, limit, offset int) []*VisitOccurrence {
	if offset >= len(all) {
		return []*VisitOccurrence{}
	}
	end := offset + limit
	if end > len(all) {
		end = len(all)
	}
	return all[offset:end]
}

// -- Fixtures --

func strPtr(s string) *string { return &s }
func intPtr(i int) *int { return &i }
func int64Ptr(i int64) *int64 { return &i }
func date(s string) time.Time { t, _ := time.Parse("2006-01-02", s); return t }

func newFixtureRepo() *mockRepo {
	return &mockRepo{
		visits: []*VisitOccurrence{
			{ID: 1, PersonID: 100, ProviderID: int64Ptr(500), TierLevel: 1, VisitStartDate: date("2024-01-10"), VisitSourceValue: strPtr("clinic-a")},
			{ID: 2, PersonID: 100, TierLevel: 2, VisitStartDate: date("2024-02-15"), VisitSourceValue: strPtr("clinic-b")},
			{ID: 3, PersonID: 101, ProviderID: int64Ptr(501), TierLevel: 3, VisitStartDate: date("2024-03-20")},
			{ID: 4, PersonID: 102, TierLevel: 1, VisitStartDate: date("2024-01-10"), VisitSourceValue: strPtr("clinic-a")},
		},
		persons: map[int64]*person.Person{
			100: {ID: 100, Gender: strPtr("female"), YearOfBirth: intPtr(1980)},
			101: {ID: 101, Gender: strPtr("male"), YearOfBirth: intPtr(1955)},
			102: {ID: 102, YearOfBirth: intPtr(1990)}, // gender NULL
		},
		providers: map[int64]*provider.Provider{
			500: {ID: 500, Gender: strPtr("male")},
			501: {ID: 501},
		},
		facts: map[string]map[int64][]map[string]*string{
			"condition_occurrence": {
				1: {{"condition_source_value": strPtr("diabetes")}},
				3: {{"condition_source_value": strPtr("hypertension")}},
			},
		},
	}
}

func parse(t *testing.T, doc map[string]interface{}) *query.Spec {
	t.Helper()
	spec, err := query.Parse(doc)
	if err != nil {
		t.Fatalf("parse filter: %v", err)
	}
	return spec
}

// -- Tests --

func TestSearch_TierMonotonicity(t *testing.T) {
	svc := NewService(newFixtureRepo())
	ctx := context.Background()

	var prev map[int64]bool
	for level := 1; level <= 3; level++ {
		p := &tier.Principal{TierLevel: intPtr(level)}
		result, err := svc.Search(ctx, p, nil, nil, 100, 0)
		if err != nil {
			t.Fatalf("level %d: %v", level, err)
		}
		got := map[int64]bool{}
		for _, v := range result.Visits {
			got[v.ID] = true
			if v.TierLevel > level {
				t.Errorf("level %d sees visit %d at tier %d", level, v.ID, v.TierLevel)
			}
		}
		for id := range prev {
			if !got[id] {
				t.Errorf("visit %d visible at level %d but not at %d", id, level-1, level)
			}
		}
		prev = got
	}
}

func TestSearch_NoTierEmptyNotError(t *testing.T) {
	svc := NewService(newFixtureRepo())

	result, err := svc.Search(context.Background(), &tier.Principal{}, nil, nil, 100, 0)
	if err != nil {
		t.Fatalf("tier-less search must not error: %v", err)
	}
	if result.Total != 0 || len(result.Visits) != 0 {
		t.Fatalf("tier-less principal should see no visits, got %d", result.Total)
	}
}

// A level-2 principal filtering on tier level 1 sees only level-1 visits;
// the same filter never returns level-3 rows regardless of how it is phrased.
func TestSearch_TierFilterIntersectsScope(t *testing.T) {
	svc := NewService(newFixtureRepo())
	ctx := context.Background()
	p := &tier.Principal{TierLevel: intPtr(2)}

	// Legacy documents use "tier_id"; it reads as levels.
	spec := parse(t, map[string]interface{}{
		"visit": map[string]interface{}{"tier_id": []interface{}{float64(1)}},
	})
	result, err := svc.Search(ctx, p, spec, nil, 100, 0)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if result.Total != 2 {
		t.Fatalf("expected visits 1 and 4, got %d rows", result.Total)
	}
	for _, v := range result.Visits {
		if v.TierLevel != 1 {
			t.Errorf("tier filter leaked level-%d visit %d", v.TierLevel, v.ID)
		}
	}

	// Filtering on a level above scope yields nothing.
	spec = parse(t, map[string]interface{}{
		"visit": map[string]interface{}{"tier_levels": []interface{}{float64(3)}},
	})
	result, err = svc.Search(ctx, p, spec, nil, 100, 0)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if result.Total != 0 {
		t.Errorf("out-of-scope tier filter must return nothing, got %d", result.Total)
	}
}

func TestSearch_NullMarkerGender(t *testing.T) {
	svc := NewService(newFixtureRepo())
	admin := &tier.Principal{IsAdmin: true}

	// Marker alone: only visits of persons with NULL gender.
	spec := parse(t, map[string]interface{}{
		"person_demographics": map[string]interface{}{"gender": []interface{}{query.NullMarker}},
	})
	result, err := svc.Search(context.Background(), admin, spec, nil, 100, 0)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if result.Total != 1 || result.Visits[0].ID != 4 {
		t.Fatalf("NULL-gender filter should match only visit 4, got %d rows", result.Total)
	}

	// Marker combined with a value: union, and still no empty-string match.
	spec = parse(t, map[string]interface{}{
		"person_demographics": map[string]interface{}{"gender": []interface{}{"female", query.NullMarker, ""}},
	})
	result, err = svc.Search(context.Background(), admin, spec, nil, 100, 0)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	got := map[int64]bool{}
	for _, v := range result.Visits {
		got[v.ID] = true
	}
	for _, want := range []int64{1, 2, 4} {
		if !got[want] {
			t.Errorf("combined marker filter missing visit %d", want)
		}
	}
	if got[3] {
		t.Error("male-person visit 3 matched a female-or-NULL filter")
	}
}

func TestSearch_ClinicalExists(t *testing.T) {
	svc := NewService(newFixtureRepo())
	admin := &tier.Principal{IsAdmin: true}

	spec := parse(t, map[string]interface{}{
		"clinical": map[string]interface{}{
			"condition_occurrence": map[string]interface{}{
				"source_values": []interface{}{"diabetes"},
			},
		},
	})
	result, err := svc.Search(context.Background(), admin, spec, nil, 100, 0)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if result.Total != 1 || result.Visits[0].ID != 1 {
		t.Fatalf("condition filter should match only visit 1, got %d rows", result.Total)
	}
	if result.ActiveFilters != 1 {
		t.Errorf("expected 1 active filter namespace, got %d", result.ActiveFilters)
	}
}

func TestResolveRelated_Closure(t *testing.T) {
	repo := newFixtureRepo()
	svc := NewService(repo)
	ctx := context.Background()
	p := &tier.Principal{TierLevel: intPtr(1)}

	visits, err := svc.SearchAll(ctx, p, nil)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	bundle, err := svc.ResolveRelated(ctx, visits)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}

	inSet := map[int64]bool{}
	for _, v := range bundle.Visits {
		inSet[v.ID] = true
	}
	for _, f := range bundle.ConditionOccurrences {
		if !inSet[f.VisitOccurrenceID] {
			t.Errorf("bundle contains fact for visit %d outside the set", f.VisitOccurrenceID)
		}
	}
	// Visit 3's condition row must not leak in: its parent is out of scope.
	for _, f := range bundle.ConditionOccurrences {
		if f.ConditionSourceValue != nil && *f.ConditionSourceValue == "hypertension" {
			t.Error("hidden visit's condition leaked into the bundle")
		}
	}
}

func TestGetByID_HiddenIs404(t *testing.T) {
	svc := NewService(newFixtureRepo())
	p := &tier.Principal{TierLevel: intPtr(1)}

	if _, err := svc.GetByID(context.Background(), p, 1); err != nil {
		t.Fatalf("visible visit: %v", err)
	}
	_, err := svc.GetByID(context.Background(), p, 3)
	if !errors.Is(err, httperr.ErrNotFound) {
		t.Fatalf("hidden visit must be NotFound, got %v", err)
	}
}

func TestOrderBy_Whitelist(t *testing.T) {
	if got, err := OrderBy(nil); err != nil || got != DefaultOrderBy {
		t.Errorf("nil sort: got %q, %v", got, err)
	}
	if got, err := OrderBy(&SortSpec{Field: "tier_level", Direction: "desc"}); err != nil || got != "tier_level DESC, id ASC" {
		t.Errorf("explicit sort: got %q, %v", got, err)
	}
	if _, err := OrderBy(&SortSpec{Field: "person_id; DROP TABLE visit_occurrence"}); err == nil {
		t.Error("off-whitelist field must be rejected")
	}
	if _, err := OrderBy(&SortSpec{Field: "id", Direction: "sideways"}); err == nil {
		t.Error("bad direction must be rejected")
	}
}
