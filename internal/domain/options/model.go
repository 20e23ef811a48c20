package options

import "github.com/trialdata/trialdata/internal/domain/identity"

// Range is an inclusive integer range. Min and Max are null when no visible
// row contributes a value.
type Range struct {
	Min *int `json:"min"`
	Max *int `json:"max"`
}

// DateRange carries wire-format dates (2006-01-02), null when empty.
type DateRange struct {
	Min *string `json:"min"`
	Max *string `json:"max"`
}

type DemographicOptions struct {
	Genders          []string `json:"genders"`
	Races            []string `json:"races"`
	Ethnicities      []string `json:"ethnicities"`
	YearOfBirthRange Range    `json:"year_of_birth_range"`
}

type VisitOptions struct {
	Tiers        []*identity.Tier `json:"tiers"`
	VisitSources []string         `json:"visit_sources"`
	DateRange    DateRange        `json:"date_range"`
}

type ClinicalOptions struct {
	SourceValues []string `json:"source_values"`
}

// Options is the filter-options document: every value a client may use to
// build a filter, restricted to what the principal's tier can see.
type Options struct {
	Demographics          DemographicOptions         `json:"demographics"`
	VisitOptions          VisitOptions               `json:"visit_options"`
	ClinicalOptions       map[string]ClinicalOptions `json:"clinical_options"`
	TotalAccessibleVisits int                        `json:"total_accessible_visits"`
}
