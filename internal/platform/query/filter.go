// Package query parses declarative filter documents and compiles them into
// predicates groupable by the entity they apply to. The SQL rendering step is
// separate so multiple backing stores can apply the same predicate tree.
package query

import (
	"encoding/json"
	"fmt"
	"time"
)

// NullMarker is the reserved sentinel value in a demographic value list that
// means "match rows where this column is database-NULL". It never matches the
// empty string.
const NullMarker = "__NULL__"

// DateLayout is the wire format for filter dates (inclusive bounds).
const DateLayout = "2006-01-02"

// InvalidFilterError reports a malformed filter document, naming the offending
// namespace and field so the caller can fix the request.
type InvalidFilterError struct {
	Namespace string
	Field     string
	Reason    string
}

func (e *InvalidFilterError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("invalid filter: %s: %s", e.Namespace, e.Reason)
	}
	return fmt.Sprintf("invalid filter: %s.%s: %s", e.Namespace, e.Field, e.Reason)
}

func invalid(ns, field, reason string) error {
	return &InvalidFilterError{Namespace: ns, Field: field, Reason: reason}
}

// VisitFilter holds visit-level constraints.
type VisitFilter struct {
	TierLevels   []int
	DateFrom     *time.Time
	DateTo       *time.Time
	SourceValues []string
}

func (f *VisitFilter) empty() bool {
	return f == nil || (len(f.TierLevels) == 0 && f.DateFrom == nil && f.DateTo == nil &&
		len(f.SourceValues) == 0)
}

// DemographicFilter holds person or provider demographic constraints. Value
// lists may contain the NullMarker sentinel.
type DemographicFilter struct {
	Gender         []string
	Race           []string
	Ethnicity      []string
	YearOfBirthMin *int
	YearOfBirthMax *int
}

func (f *DemographicFilter) empty() bool {
	return f == nil || (len(f.Gender) == 0 && len(f.Race) == 0 && len(f.Ethnicity) == 0 &&
		f.YearOfBirthMin == nil && f.YearOfBirthMax == nil)
}

// ClinicalFilter holds per-clinical-table constraints.
type ClinicalFilter struct {
	SourceValues []string
	DateFrom     *time.Time
	DateTo       *time.Time
}

// Spec is a validated, normalized filter document. A nil sub-filter means
// "no constraint" for that namespace.
type Spec struct {
	Visit    *VisitFilter
	Person   *DemographicFilter
	Provider *DemographicFilter
	Clinical map[string]*ClinicalFilter
}

// ActiveNamespaces counts the top-level namespaces carrying at least one
// constraint, echoed back to callers for UI feedback.
func (s *Spec) ActiveNamespaces() int {
	n := 0
	if !s.Visit.empty() {
		n++
	}
	if !s.Person.empty() {
		n++
	}
	if !s.Provider.empty() {
		n++
	}
	if len(s.Clinical) > 0 {
		n++
	}
	return n
}

// ParseJSON decodes and validates a raw filter document. An empty or "null"
// document compiles to the unconstrained Spec.
func ParseJSON(raw []byte) (*Spec, error) {
	if len(raw) == 0 {
		return &Spec{}, nil
	}
	var doc map[string]interface{}
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, invalid("filters", "", "document must be a JSON object")
	}
	return Parse(doc)
}

// Parse validates and normalizes a decoded filter document. Unknown keys are
// ignored, not rejected; absent namespaces mean "no constraint".
func Parse(doc map[string]interface{}) (*Spec, error) {
	spec := &Spec{}
	if doc == nil {
		return spec, nil
	}

	if raw, ok := doc["visit"]; ok {
		vf, err := parseVisit(raw)
		if err != nil {
			return nil, err
		}
		spec.Visit = vf
	}
	if raw, ok := doc["person_demographics"]; ok {
		df, err := parseDemographics("person_demographics", raw)
		if err != nil {
			return nil, err
		}
		spec.Person = df
	}
	if raw, ok := doc["provider_demographics"]; ok {
		df, err := parseDemographics("provider_demographics", raw)
		if err != nil {
			return nil, err
		}
		spec.Provider = df
	}
	if raw, ok := doc["clinical"]; ok {
		cf, err := parseClinical(raw)
		if err != nil {
			return nil, err
		}
		spec.Clinical = cf
	}
	return spec, nil
}

func parseVisit(raw interface{}) (*VisitFilter, error) {
	const ns = "visit"
	obj, ok := raw.(map[string]interface{})
	if !ok {
		return nil, invalid(ns, "", "namespace must be an object")
	}

	vf := &VisitFilter{}

	// Canonical key is tier_levels; tier_id is the legacy name and its values
	// are read as levels as well.
	tierKey := "tier_levels"
	tierRaw, ok := obj[tierKey]
	if !ok {
		tierKey = "tier_id"
		tierRaw, ok = obj[tierKey]
	}
	if ok {
		levels, err := intList(ns, tierKey, tierRaw)
		if err != nil {
			return nil, err
		}
		vf.TierLevels = levels
	}

	if raw, ok := obj["date_from"]; ok {
		t, err := dateValue(ns, "date_from", raw)
		if err != nil {
			return nil, err
		}
		vf.DateFrom = t
	}
	if raw, ok := obj["date_to"]; ok {
		t, err := dateValue(ns, "date_to", raw)
		if err != nil {
			return nil, err
		}
		vf.DateTo = t
	}
	if raw, ok := obj["source_values"]; ok {
		vals, err := stringList(ns, "source_values", raw)
		if err != nil {
			return nil, err
		}
		vf.SourceValues = vals
	}
	return vf, nil
}

func parseDemographics(ns string, raw interface{}) (*DemographicFilter, error) {
	obj, ok := raw.(map[string]interface{})
	if !ok {
		return nil, invalid(ns, "", "namespace must be an object")
	}

	df := &DemographicFilter{}
	for field, dst := range map[string]*[]string{
		"gender":    &df.Gender,
		"race":      &df.Race,
		"ethnicity": &df.Ethnicity,
	} {
		if v, ok := obj[field]; ok {
			vals, err := stringList(ns, field, v)
			if err != nil {
				return nil, err
			}
			*dst = vals
		}
	}

	if v, ok := obj["year_of_birth_min"]; ok {
		n, err := intValue(ns, "year_of_birth_min", v)
		if err != nil {
			return nil, err
		}
		df.YearOfBirthMin = n
	}
	if v, ok := obj["year_of_birth_max"]; ok {
		n, err := intValue(ns, "year_of_birth_max", v)
		if err != nil {
			return nil, err
		}
		df.YearOfBirthMax = n
	}
	return df, nil
}

func parseClinical(raw interface{}) (map[string]*ClinicalFilter, error) {
	const ns = "clinical"
	obj, ok := raw.(map[string]interface{})
	if !ok {
		return nil, invalid(ns, "", "namespace must be an object")
	}

	out := make(map[string]*ClinicalFilter)
	for table, tRaw := range obj {
		def, known := ClinicalTables[table]
		if !known {
			// Unknown tables are ignored, matching the unknown-key rule.
			continue
		}
		tObj, ok := tRaw.(map[string]interface{})
		if !ok {
			return nil, invalid(ns, table, "table filter must be an object")
		}

		cf := &ClinicalFilter{}
		if v, ok := tObj["source_values"]; ok {
			vals, err := stringList(ns, table+".source_values", v)
			if err != nil {
				return nil, err
			}
			cf.SourceValues = vals
		}
		if v, ok := tObj["date_from"]; ok {
			if def.DateColumn == "" {
				return nil, invalid(ns, table+".date_from", "table has no date column")
			}
			t, err := dateValue(ns, table+".date_from", v)
			if err != nil {
				return nil, err
			}
			cf.DateFrom = t
		}
		if v, ok := tObj["date_to"]; ok {
			if def.DateColumn == "" {
				return nil, invalid(ns, table+".date_to", "table has no date column")
			}
			t, err := dateValue(ns, table+".date_to", v)
			if err != nil {
				return nil, err
			}
			cf.DateTo = t
		}
		if len(cf.SourceValues) > 0 || cf.DateFrom != nil || cf.DateTo != nil {
			out[table] = cf
		}
	}
	if len(out) == 0 {
		return nil, nil
	}
	return out, nil
}

func stringList(ns, field string, raw interface{}) ([]string, error) {
	arr, ok := raw.([]interface{})
	if !ok {
		return nil, invalid(ns, field, "value must be a list")
	}
	out := make([]string, 0, len(arr))
	for _, v := range arr {
		s, ok := v.(string)
		if !ok {
			return nil, invalid(ns, field, "list values must be strings")
		}
		out = append(out, s)
	}
	return out, nil
}

func intList(ns, field string, raw interface{}) ([]int, error) {
	arr, ok := raw.([]interface{})
	if !ok {
		return nil, invalid(ns, field, "value must be a list")
	}
	out := make([]int, 0, len(arr))
	for _, v := range arr {
		n, ok := asInt(v)
		if !ok {
			return nil, invalid(ns, field, "list values must be integers")
		}
		out = append(out, n)
	}
	return out, nil
}

func intValue(ns, field string, raw interface{}) (*int, error) {
	if raw == nil {
		return nil, nil
	}
	n, ok := asInt(raw)
	if !ok {
		return nil, invalid(ns, field, "value must be an integer")
	}
	return &n, nil
}

func dateValue(ns, field string, raw interface{}) (*time.Time, error) {
	if raw == nil {
		return nil, nil
	}
	s, ok := raw.(string)
	if !ok {
		return nil, invalid(ns, field, "value must be a YYYY-MM-DD string")
	}
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return nil, invalid(ns, field, fmt.Sprintf("cannot parse %q as YYYY-MM-DD", s))
	}
	return &t, nil
}

func asInt(v interface{}) (int, bool) {
	switch n := v.(type) {
	case float64:
		if n != float64(int(n)) {
			return 0, false
		}
		return int(n), true
	case int:
		return n, true
	case json.Number:
		i, err := n.Int64()
		if err != nil {
			return 0, false
		}
		return int(i), true
	default:
		return 0, false
	}
}
