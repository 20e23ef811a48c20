package query

import (
	"testing"
)

func mustParse(t *testing.T, doc string) *Spec {
	t.Helper()
	spec, err := ParseJSON([]byte(doc))
	if err != nil {
		t.Fatalf("ParseJSON error: %v", err)
	}
	return spec
}

func TestCompile_NullMarkerSplit(t *testing.T) {
	spec := mustParse(t, `{"person_demographics": {"gender": ["F", "__NULL__", ""]}}`)
	c := Compile(spec)

	if len(c.Person) != 1 {
		t.Fatalf("expected 1 person predicate, got %d", len(c.Person))
	}
	p := c.Person[0]
	if p.Column != "gender" || p.Op != OpIn {
		t.Errorf("unexpected predicate %+v", p)
	}
	if !p.IncludeNull {
		t.Error("marker must set IncludeNull")
	}
	if len(p.Values) != 1 || p.Values[0] != "F" {
		t.Errorf("empty string must be excluded from non-null branch, got %v", p.Values)
	}
}

func TestCompile_MarkerOnly(t *testing.T) {
	spec := mustParse(t, `{"person_demographics": {"gender": ["__NULL__"]}}`)
	c := Compile(spec)

	p := c.Person[0]
	if !p.IncludeNull || len(p.Values) != 0 {
		t.Errorf("marker-only list should be IS NULL only, got %+v", p)
	}
	if p.Never() {
		t.Error("IS NULL predicate can match rows")
	}
}

func TestCompile_EmptyStringOnlyMatchesNothing(t *testing.T) {
	spec := mustParse(t, `{"person_demographics": {"gender": [""]}}`)
	c := Compile(spec)

	p := c.Person[0]
	if !p.Never() {
		t.Errorf("list reduced to nothing must never match, got %+v", p)
	}
}

func TestCompile_VisitNamespace(t *testing.T) {
	spec := mustParse(t, `{"visit": {
		"tier_levels": [1, 2],
		"date_from": "2020-01-01",
		"date_to": "2021-01-01",
		"source_values": ["inpatient"]
	}}`)
	c := Compile(spec)

	if len(c.TierLevels) != 2 {
		t.Errorf("tier levels = %v", c.TierLevels)
	}
	if len(c.Visit) != 3 {
		t.Fatalf("expected 3 visit predicates, got %d", len(c.Visit))
	}
	if c.Visit[0].Op != OpGte || c.Visit[1].Op != OpLte {
		t.Errorf("date range should compile to inclusive bounds: %+v", c.Visit)
	}
	if c.Visit[2].Column != "visit_source_value" {
		t.Errorf("source predicate column = %q", c.Visit[2].Column)
	}
}

func TestCompile_ClinicalColumns(t *testing.T) {
	spec := mustParse(t, `{"clinical": {
		"condition_occurrence": {"source_values": ["E11.9"], "date_from": "2019-01-01"},
		"drug_exposure": {"source_values": ["metformin"]}
	}}`)
	c := Compile(spec)

	cond := c.Clinical["condition_occurrence"]
	if len(cond) != 2 {
		t.Fatalf("expected 2 condition predicates, got %d", len(cond))
	}
	if cond[0].Column != "condition_source_value" {
		t.Errorf("condition source column = %q", cond[0].Column)
	}
	if cond[1].Column != "condition_start_date" {
		t.Errorf("condition date column = %q", cond[1].Column)
	}
	if c.Clinical["drug_exposure"][0].Column != "drug_source_value" {
		t.Errorf("drug source column = %q", c.Clinical["drug_exposure"][0].Column)
	}
}

func TestCompile_NoConstraints(t *testing.T) {
	c := Compile(mustParse(t, `{}`))
	if c.TierLevels != nil || len(c.Visit) != 0 || c.HasPersonFilter() || c.HasProviderFilter() || c.Clinical != nil {
		t.Errorf("empty spec should compile to no predicates: %+v", c)
	}
	if c.ActiveNamespaces != 0 {
		t.Errorf("active namespaces = %d", c.ActiveNamespaces)
	}
}

func TestClinicalTableNames_Sorted(t *testing.T) {
	names := ClinicalTableNames()
	if len(names) != len(ClinicalTables) {
		t.Fatalf("expected %d names, got %d", len(ClinicalTables), len(names))
	}
	for i := 1; i < len(names); i++ {
		if names[i-1] >= names[i] {
			t.Errorf("names not sorted: %v", names)
		}
	}
}
