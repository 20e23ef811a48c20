package cohort

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/trialdata/trialdata/internal/domain/visit"
)

// Cohort is a saved filter document owned by one principal. Filters is stored
// opaque and replayed verbatim at resolve time; visibility is whatever the
// owner's tier allows then, not when the cohort was saved.
type Cohort struct {
	ID               uuid.UUID       `db:"id" json:"id"`
	OwnerPrincipal   uuid.UUID       `db:"owner_principal" json:"owner_principal"`
	Name             string          `db:"name" json:"name"`
	Description      *string         `db:"description" json:"description,omitempty"`
	Filters          json.RawMessage `db:"filters" json:"filters"`
	CachedVisitCount int             `db:"cached_visit_count" json:"cached_visit_count"`
	CreatedAt        time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time       `db:"updated_at" json:"updated_at"`
}

// CountSummary sizes a resolved cohort bundle.
type CountSummary struct {
	Visits    int `json:"visits"`
	Persons   int `json:"persons"`
	Providers int `json:"providers"`
}

// Metadata annotates a resolved cohort data bundle.
type Metadata struct {
	Description string       `json:"description"`
	Source      string       `json:"source"`
	Count       CountSummary `json:"count"`
}

// DataResult is the resolved cohort: the full entity bundle keyed by table
// name, plus the metadata block.
type DataResult struct {
	*visit.EntityBundle
	Metadata Metadata `json:"_metadata"`
}
