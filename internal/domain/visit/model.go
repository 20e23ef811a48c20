package visit

import (
	"time"

	"github.com/trialdata/trialdata/internal/domain/person"
	"github.com/trialdata/trialdata/internal/domain/provider"
)

// VisitOccurrence is the central clinical fact. TierLevel is set at creation
// and never changes; it is the sole visibility gate for the visit and every
// clinical row hanging off it.
type VisitOccurrence struct {
	ID               int64     `db:"id" json:"id"`
	PersonID         int64     `db:"person_id" json:"person_id"`
	ProviderID       *int64    `db:"provider_id" json:"provider_id,omitempty"`
	TierLevel        int       `db:"tier_level" json:"tier_level"`
	VisitStartDate   time.Time `db:"visit_start_date" json:"visit_start_date"`
	VisitSourceValue *string   `db:"visit_source_value" json:"visit_source_value,omitempty"`
	VisitSourceID    *string   `db:"visit_source_id" json:"visit_source_id,omitempty"`
}

// Clinical fact rows. Each links to its parent visit and carries no tier
// column; visibility is inherited from the visit.

type ConditionOccurrence struct {
	ID                   int64      `db:"id" json:"id"`
	VisitOccurrenceID    int64      `db:"visit_occurrence_id" json:"visit_occurrence_id"`
	ConditionSourceValue *string    `db:"condition_source_value" json:"condition_source_value,omitempty"`
	ConditionStartDate   *time.Time `db:"condition_start_date" json:"condition_start_date,omitempty"`
}

type DrugExposure struct {
	ID                    int64      `db:"id" json:"id"`
	VisitOccurrenceID     int64      `db:"visit_occurrence_id" json:"visit_occurrence_id"`
	DrugSourceValue       *string    `db:"drug_source_value" json:"drug_source_value,omitempty"`
	DrugExposureStartDate *time.Time `db:"drug_exposure_start_date" json:"drug_exposure_start_date,omitempty"`
}

type ProcedureOccurrence struct {
	ID                   int64      `db:"id" json:"id"`
	VisitOccurrenceID    int64      `db:"visit_occurrence_id" json:"visit_occurrence_id"`
	ProcedureSourceValue *string    `db:"procedure_source_value" json:"procedure_source_value,omitempty"`
	ProcedureDate        *time.Time `db:"procedure_date" json:"procedure_date,omitempty"`
}

type Measurement struct {
	ID                     int64      `db:"id" json:"id"`
	VisitOccurrenceID      int64      `db:"visit_occurrence_id" json:"visit_occurrence_id"`
	MeasurementSourceValue *string    `db:"measurement_source_value" json:"measurement_source_value,omitempty"`
	ValueAsNumber          *float64   `db:"value_as_number" json:"value_as_number,omitempty"`
	MeasurementDate        *time.Time `db:"measurement_date" json:"measurement_date,omitempty"`
}

type Observation struct {
	ID                     int64      `db:"id" json:"id"`
	VisitOccurrenceID      int64      `db:"visit_occurrence_id" json:"visit_occurrence_id"`
	ObservationSourceValue *string    `db:"observation_source_value" json:"observation_source_value,omitempty"`
	ValueAsString          *string    `db:"value_as_string" json:"value_as_string,omitempty"`
	ObservationDate        *time.Time `db:"observation_date" json:"observation_date,omitempty"`
}

type Note struct {
	ID                int64      `db:"id" json:"id"`
	VisitOccurrenceID int64      `db:"visit_occurrence_id" json:"visit_occurrence_id"`
	NoteTitle         *string    `db:"note_title" json:"note_title,omitempty"`
	NoteText          *string    `db:"note_text" json:"note_text,omitempty"`
	NoteDate          *time.Time `db:"note_date" json:"note_date,omitempty"`
}

type PatientSurvey struct {
	ID                int64   `db:"id" json:"id"`
	VisitOccurrenceID int64   `db:"visit_occurrence_id" json:"visit_occurrence_id"`
	SurveyName        *string `db:"survey_name" json:"survey_name,omitempty"`
	SurveyResponse    *string `db:"survey_response" json:"survey_response,omitempty"`
}

type ProviderSurvey struct {
	ID                int64   `db:"id" json:"id"`
	VisitOccurrenceID int64   `db:"visit_occurrence_id" json:"visit_occurrence_id"`
	SurveyName        *string `db:"survey_name" json:"survey_name,omitempty"`
	SurveyResponse    *string `db:"survey_response" json:"survey_response,omitempty"`
}

type AuditLog struct {
	ID                int64      `db:"id" json:"id"`
	VisitOccurrenceID int64      `db:"visit_occurrence_id" json:"visit_occurrence_id"`
	Action            *string    `db:"action" json:"action,omitempty"`
	Detail            *string    `db:"detail" json:"detail,omitempty"`
	LoggedAt          *time.Time `db:"logged_at" json:"logged_at,omitempty"`
}

// EntityBundle is the closed related-entity expansion of a visit set: every
// clinical row whose parent visit is in the set, plus the persons and
// providers of those visits, and nothing else.
type EntityBundle struct {
	Visits               []*VisitOccurrence     `json:"visit_occurrence"`
	Persons              []*person.Person       `json:"person"`
	Providers            []*provider.Provider   `json:"provider"`
	ConditionOccurrences []*ConditionOccurrence `json:"condition_occurrence"`
	DrugExposures        []*DrugExposure        `json:"drug_exposure"`
	ProcedureOccurrences []*ProcedureOccurrence `json:"procedure_occurrence"`
	Measurements         []*Measurement         `json:"measurement"`
	Observations         []*Observation         `json:"observation"`
	Notes                []*Note                `json:"note"`
	PatientSurveys       []*PatientSurvey       `json:"patient_survey"`
	ProviderSurveys      []*ProviderSurvey      `json:"provider_survey"`
	AuditLogs            []*AuditLog            `json:"audit_log"`
}

// SortSpec is an explicit sort request. Field must be on the whitelist.
type SortSpec struct {
	Field     string `json:"field"`
	Direction string `json:"direction"`
}

// SearchResult is a page of visits plus the total match count and the number
// of filter namespaces that constrained the query.
type SearchResult struct {
	Visits        []*VisitOccurrence
	Total         int
	ActiveFilters int
}
