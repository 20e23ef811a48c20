package person

// Person maps to the person table. Demographic columns are nullable; absence
// is meaningful and filterable through the NULL marker.
type Person struct {
	ID          int64   `db:"id" json:"id"`
	YearOfBirth *int    `db:"year_of_birth" json:"year_of_birth,omitempty"`
	Gender      *string `db:"gender" json:"gender,omitempty"`
	Race        *string `db:"race" json:"race,omitempty"`
	Ethnicity   *string `db:"ethnicity" json:"ethnicity,omitempty"`
}
