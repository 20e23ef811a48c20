package identity

import "github.com/google/uuid"

// Tier is one access level. Level orders tiers; a principal at level N sees
// research rows at level N and below.
type Tier struct {
	ID               int64  `db:"id" json:"id"`
	Name             string `db:"name" json:"name"`
	Level            int    `db:"level" json:"level"`
	CanExport        bool   `db:"can_export" json:"can_export"`
	CanManageCohorts bool   `db:"can_manage_cohorts" json:"can_manage_cohorts"`
}

// PrincipalRow maps to the principal table. TierID is nullable; a principal
// without a tier resolves to a sees-nothing scope.
type PrincipalRow struct {
	ID              uuid.UUID `db:"id" json:"id"`
	Subject         string    `db:"subject" json:"subject"`
	DisplayName     string    `db:"display_name" json:"display_name"`
	TierID          *int64    `db:"tier_id" json:"tier_id,omitempty"`
	IsAdministrator bool      `db:"is_administrator" json:"is_administrator"`
}
