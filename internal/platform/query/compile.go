package query

import (
	"sort"
)

// Op is a predicate operator.
type Op int

const (
	// OpIn matches a value list, optionally unioned with IS NULL.
	OpIn Op = iota
	// OpGte and OpLte are inclusive range bounds.
	OpGte
	OpLte
)

// Predicate is one compiled constraint on a single column. For OpIn, Values
// holds the non-null branch (empty strings already excluded) and IncludeNull
// adds an OR'd "column IS NULL" branch. For range ops, Value holds the bound.
type Predicate struct {
	Column      string
	Op          Op
	Values      []string
	IncludeNull bool
	Value       interface{}
}

// Never reports whether the predicate can match no row at all: a value list
// that is empty after sentinel and empty-string exclusion.
func (p Predicate) Never() bool {
	return p.Op == OpIn && len(p.Values) == 0 && !p.IncludeNull
}

// ClinicalTableDef describes the filterable columns of one clinical-fact table.
type ClinicalTableDef struct {
	SourceColumn string
	DateColumn   string
}

// ClinicalTables registers every clinical-fact table linked to a visit, with
// its filterable columns. All of them participate in related-entity expansion.
var ClinicalTables = map[string]ClinicalTableDef{
	"condition_occurrence": {SourceColumn: "condition_source_value", DateColumn: "condition_start_date"},
	"drug_exposure":        {SourceColumn: "drug_source_value", DateColumn: "drug_exposure_start_date"},
	"procedure_occurrence": {SourceColumn: "procedure_source_value", DateColumn: "procedure_date"},
	"measurement":          {SourceColumn: "measurement_source_value", DateColumn: "measurement_date"},
	"observation":          {SourceColumn: "observation_source_value", DateColumn: "observation_date"},
	"note":                 {SourceColumn: "note_title", DateColumn: "note_date"},
	"patient_survey":       {SourceColumn: "survey_name"},
	"provider_survey":      {SourceColumn: "survey_name"},
	"audit_log":            {SourceColumn: "action", DateColumn: "logged_at"},
}

// ClinicalTableNames returns the registered table names, sorted.
func ClinicalTableNames() []string {
	names := make([]string, 0, len(ClinicalTables))
	for name := range ClinicalTables {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Compiled is the predicate tree produced from a Spec, grouped by the entity
// each predicate applies to.
type Compiled struct {
	// TierLevels restricts visits to the requested tier levels. Nil means
	// "no tier filter"; visibility scoping is applied separately and always.
	TierLevels []int
	Visit      []Predicate
	Person     []Predicate
	Provider   []Predicate
	Clinical   map[string][]Predicate

	ActiveNamespaces int
}

// HasPersonFilter reports whether person-demographic predicates exist.
func (c *Compiled) HasPersonFilter() bool { return len(c.Person) > 0 }

// HasProviderFilter reports whether provider-demographic predicates exist.
func (c *Compiled) HasProviderFilter() bool { return len(c.Provider) > 0 }

// Compile turns a validated Spec into a predicate tree. A nil Spec compiles
// to the unconstrained tree.
func Compile(spec *Spec) *Compiled {
	if spec == nil {
		spec = &Spec{}
	}
	c := &Compiled{ActiveNamespaces: spec.ActiveNamespaces()}

	if v := spec.Visit; v != nil {
		if len(v.TierLevels) > 0 {
			c.TierLevels = v.TierLevels
		}
		if v.DateFrom != nil {
			c.Visit = append(c.Visit, Predicate{Column: "visit_start_date", Op: OpGte, Value: *v.DateFrom})
		}
		if v.DateTo != nil {
			c.Visit = append(c.Visit, Predicate{Column: "visit_start_date", Op: OpLte, Value: *v.DateTo})
		}
		if len(v.SourceValues) > 0 {
			c.Visit = append(c.Visit, valueListPredicate("visit_source_value", v.SourceValues))
		}
	}

	c.Person = demographicPredicates(spec.Person)
	c.Provider = demographicPredicates(spec.Provider)

	for table, cf := range spec.Clinical {
		def := ClinicalTables[table]
		var preds []Predicate
		if len(cf.SourceValues) > 0 {
			preds = append(preds, valueListPredicate(def.SourceColumn, cf.SourceValues))
		}
		if cf.DateFrom != nil {
			preds = append(preds, Predicate{Column: def.DateColumn, Op: OpGte, Value: *cf.DateFrom})
		}
		if cf.DateTo != nil {
			preds = append(preds, Predicate{Column: def.DateColumn, Op: OpLte, Value: *cf.DateTo})
		}
		if len(preds) > 0 {
			if c.Clinical == nil {
				c.Clinical = make(map[string][]Predicate)
			}
			c.Clinical[table] = preds
		}
	}

	return c
}

func demographicPredicates(df *DemographicFilter) []Predicate {
	if df.empty() {
		return nil
	}
	var preds []Predicate
	for _, f := range []struct {
		col    string
		values []string
	}{
		{"gender", df.Gender},
		{"race", df.Race},
		{"ethnicity", df.Ethnicity},
	} {
		if len(f.values) > 0 {
			preds = append(preds, valueListPredicate(f.col, f.values))
		}
	}
	if df.YearOfBirthMin != nil {
		preds = append(preds, Predicate{Column: "year_of_birth", Op: OpGte, Value: *df.YearOfBirthMin})
	}
	if df.YearOfBirthMax != nil {
		preds = append(preds, Predicate{Column: "year_of_birth", Op: OpLte, Value: *df.YearOfBirthMax})
	}
	return preds
}

// valueListPredicate splits a value list around the NULL marker: the marker
// becomes an IS NULL branch and the remaining non-null values form the IN
// branch. Empty strings never match and are dropped from the non-null branch.
func valueListPredicate(column string, values []string) Predicate {
	p := Predicate{Column: column, Op: OpIn}
	for _, v := range values {
		switch v {
		case NullMarker:
			p.IncludeNull = true
		case "":
			// excluded: the marker means NULL, never empty string
		default:
			p.Values = append(p.Values, v)
		}
	}
	return p
}
