package provider

// Provider maps to the provider table. Same demographic shape as person.
type Provider struct {
	ID          int64   `db:"id" json:"id"`
	YearOfBirth *int    `db:"year_of_birth" json:"year_of_birth,omitempty"`
	Gender      *string `db:"gender" json:"gender,omitempty"`
	Race        *string `db:"race" json:"race,omitempty"`
	Ethnicity   *string `db:"ethnicity" json:"ethnicity,omitempty"`
}
