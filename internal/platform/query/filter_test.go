package query

import (
	"errors"
	"testing"
	"time"
)

func TestParseJSON_Empty(t *testing.T) {
	spec, err := ParseJSON(nil)
	if err != nil {
		t.Fatalf("ParseJSON(nil) error: %v", err)
	}
	if spec.ActiveNamespaces() != 0 {
		t.Errorf("empty document should have 0 active namespaces, got %d", spec.ActiveNamespaces())
	}
}

func TestParseJSON_FullDocument(t *testing.T) {
	raw := []byte(`{
		"visit": {
			"tier_levels": [1, 2],
			"date_from": "2020-01-01",
			"date_to": "2020-12-31",
			"source_values": ["inpatient", "__NULL__"]
		},
		"person_demographics": {
			"gender": ["F", "__NULL__"],
			"year_of_birth_min": 1950,
			"year_of_birth_max": 1990
		},
		"provider_demographics": {
			"race": ["asian"]
		},
		"clinical": {
			"condition_occurrence": {"source_values": ["E11.9"]},
			"measurement": {"date_from": "2020-06-01"}
		}
	}`)

	spec, err := ParseJSON(raw)
	if err != nil {
		t.Fatalf("ParseJSON error: %v", err)
	}

	if got := spec.ActiveNamespaces(); got != 4 {
		t.Errorf("active namespaces = %d, want 4", got)
	}
	if len(spec.Visit.TierLevels) != 2 {
		t.Errorf("tier levels = %v", spec.Visit.TierLevels)
	}
	want := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	if !spec.Visit.DateFrom.Equal(want) {
		t.Errorf("date_from = %v, want %v", spec.Visit.DateFrom, want)
	}
	if len(spec.Person.Gender) != 2 {
		t.Errorf("person gender = %v", spec.Person.Gender)
	}
	if *spec.Person.YearOfBirthMin != 1950 {
		t.Errorf("year_of_birth_min = %d", *spec.Person.YearOfBirthMin)
	}
	if len(spec.Clinical) != 2 {
		t.Errorf("clinical tables = %v", spec.Clinical)
	}
}

func TestParse_LegacyTierIDKeyReadAsLevels(t *testing.T) {
	spec, err := ParseJSON([]byte(`{"visit": {"tier_id": [1]}}`))
	if err != nil {
		t.Fatalf("ParseJSON error: %v", err)
	}
	if len(spec.Visit.TierLevels) != 1 || spec.Visit.TierLevels[0] != 1 {
		t.Errorf("tier_id values should parse as levels, got %v", spec.Visit.TierLevels)
	}
}

func TestParse_UnknownKeysIgnored(t *testing.T) {
	spec, err := ParseJSON([]byte(`{
		"visit": {"tier_levels": [1], "bogus": true},
		"not_a_namespace": {"x": 1},
		"clinical": {"unregistered_table": {"source_values": ["x"]}}
	}`))
	if err != nil {
		t.Fatalf("unknown keys must be ignored, got error: %v", err)
	}
	if spec.Clinical != nil {
		t.Errorf("unregistered clinical table should be ignored, got %v", spec.Clinical)
	}
}

func TestParse_MalformedValues(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		ns   string
	}{
		{"non-list gender", `{"person_demographics": {"gender": "F"}}`, "person_demographics"},
		{"non-string in list", `{"person_demographics": {"race": [1]}}`, "person_demographics"},
		{"non-integer tier level", `{"visit": {"tier_levels": ["one"]}}`, "visit"},
		{"bad date", `{"visit": {"date_from": "01/02/2020"}}`, "visit"},
		{"non-object namespace", `{"visit": 7}`, "visit"},
		{"fractional year", `{"person_demographics": {"year_of_birth_min": 1950.5}}`, "person_demographics"},
		{"date on dateless table", `{"clinical": {"patient_survey": {"date_from": "2020-01-01"}}}`, "clinical"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseJSON([]byte(tt.doc))
			if err == nil {
				t.Fatal("expected InvalidFilterError")
			}
			var ife *InvalidFilterError
			if !errors.As(err, &ife) {
				t.Fatalf("expected InvalidFilterError, got %T: %v", err, err)
			}
			if ife.Namespace != tt.ns {
				t.Errorf("error namespace = %q, want %q", ife.Namespace, tt.ns)
			}
		})
	}
}

func TestActiveNamespaces_EmptyNamespacesDoNotCount(t *testing.T) {
	spec, err := ParseJSON([]byte(`{"visit": {}, "person_demographics": {}}`))
	if err != nil {
		t.Fatalf("ParseJSON error: %v", err)
	}
	if got := spec.ActiveNamespaces(); got != 0 {
		t.Errorf("empty namespaces counted as active: %d", got)
	}
}
