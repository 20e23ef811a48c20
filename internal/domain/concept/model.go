package concept

// Concept is a vocabulary reference row. Not tier-scoped: concepts describe
// codes, not patients.
type Concept struct {
	ConceptID      int64  `db:"concept_id" json:"concept_id"`
	ConceptCode    string `db:"concept_code" json:"concept_code"`
	VocabularyName string `db:"vocabulary_name" json:"vocabulary_name"`
	ConceptName    string `db:"concept_name" json:"concept_name"`
	DomainName     string `db:"domain_name" json:"domain_name"`
}
