package query

import (
	"fmt"

	"github.com/trialdata/trialdata/internal/platform/tier"
)

// Builder assembles parameterized SQL WHERE clauses from compiled predicates.
// It encapsulates the query pattern shared by every tier-scoped repository.
type Builder struct {
	table   string
	cols    string
	where   string
	args    []interface{}
	idx     int
	orderBy string
}

// NewBuilder creates a Builder for the given table and select columns.
func NewBuilder(table, cols string) *Builder {
	return &Builder{table: table, cols: cols, idx: 1}
}

// Add appends a raw WHERE clause fragment (without leading "AND"). Use %d-style
// placeholders via NextIdx when hand-writing fragments.
func (b *Builder) Add(clause string, args ...interface{}) {
	b.where += " AND " + clause
	b.args = append(b.args, args...)
	b.idx += len(args)
}

// NextIdx returns the next available parameter index.
func (b *Builder) NextIdx() int { return b.idx }

// AddScope applies a tier visibility scope to the given column. An "all"
// scope adds no clause; a "none" scope makes the query match nothing.
func (b *Builder) AddScope(s tier.Scope, column string) {
	switch {
	case s.All:
	case s.None:
		b.where += " AND FALSE"
	default:
		b.Add(fmt.Sprintf("%s <= $%d", column, b.idx), s.MaxLevel)
	}
}

// AddTierLevels restricts the tier column to the given explicit levels.
// An empty set matches nothing.
func (b *Builder) AddTierLevels(column string, levels []int) {
	if len(levels) == 0 {
		b.where += " AND FALSE"
		return
	}
	b.Add(fmt.Sprintf("%s = ANY($%d)", column, b.idx), levels)
}

// AddPredicate renders one compiled predicate. qualifier, when non-empty,
// prefixes the column (e.g. "v" -> "v.gender").
func (b *Builder) AddPredicate(p Predicate, qualifier string) {
	col := p.Column
	if qualifier != "" {
		col = qualifier + "." + col
	}
	switch p.Op {
	case OpIn:
		switch {
		case p.IncludeNull && len(p.Values) > 0:
			b.Add(fmt.Sprintf("(%s IS NULL OR %s = ANY($%d))", col, col, b.idx), p.Values)
		case p.IncludeNull:
			b.where += fmt.Sprintf(" AND %s IS NULL", col)
		case len(p.Values) > 0:
			b.Add(fmt.Sprintf("%s = ANY($%d)", col, b.idx), p.Values)
		default:
			// Value list empty after exclusions: matches nothing.
			b.where += " AND FALSE"
		}
	case OpGte:
		b.Add(fmt.Sprintf("%s >= $%d", col, b.idx), p.Value)
	case OpLte:
		b.Add(fmt.Sprintf("%s <= $%d", col, b.idx), p.Value)
	}
}

// AddPredicates renders a predicate group.
func (b *Builder) AddPredicates(preds []Predicate, qualifier string) {
	for _, p := range preds {
		b.AddPredicate(p, qualifier)
	}
}

// AddMembership pushes predicates on a related entity down as a set-membership
// test: column IN (SELECT id FROM relTable WHERE <preds>). The related table is
// never materialized client-side.
func (b *Builder) AddMembership(column, relTable string, preds []Predicate) {
	sub := NewBuilder(relTable, "id")
	sub.idx = b.idx
	sub.AddPredicates(preds, "")
	b.where += fmt.Sprintf(" AND %s IN (SELECT id FROM %s WHERE 1=1%s)", column, relTable, sub.where)
	b.args = append(b.args, sub.args...)
	b.idx = sub.idx
}

// AddExists adds an EXISTS subquery against a clinical-fact table joined on
// the parent visit id.
func (b *Builder) AddExists(factTable, visitIDColumn string, preds []Predicate) {
	sub := NewBuilder(factTable, "1")
	sub.idx = b.idx
	sub.AddPredicates(preds, "f")
	b.where += fmt.Sprintf(
		" AND EXISTS (SELECT 1 FROM %s f WHERE f.%s = %s.id%s)",
		factTable, visitIDColumn, b.table, sub.where,
	)
	b.args = append(b.args, sub.args...)
	b.idx = sub.idx
}

// OrderBy sets the ORDER BY clause (without the "ORDER BY" keyword).
func (b *Builder) OrderBy(orderBy string) {
	b.orderBy = orderBy
}

// CountSQL returns the count query SQL.
func (b *Builder) CountSQL() string {
	return fmt.Sprintf("SELECT COUNT(*) FROM %s WHERE 1=1%s", b.table, b.where)
}

// CountArgs returns the arguments for the count query.
func (b *Builder) CountArgs() []interface{} {
	return b.args
}

// SQL returns the data query without pagination.
func (b *Builder) SQL() string {
	sql := fmt.Sprintf("SELECT %s FROM %s WHERE 1=1%s", b.cols, b.table, b.where)
	if b.orderBy != "" {
		sql += " ORDER BY " + b.orderBy
	}
	return sql
}

// Args returns the arguments for the unpaginated data query.
func (b *Builder) Args() []interface{} {
	return b.args
}

// DataSQL returns the data query SQL with ORDER BY and LIMIT/OFFSET.
func (b *Builder) DataSQL() string {
	return b.SQL() + fmt.Sprintf(" LIMIT $%d OFFSET $%d", b.idx, b.idx+1)
}

// DataArgs returns the arguments for the paginated data query.
func (b *Builder) DataArgs(limit, offset int) []interface{} {
	result := make([]interface{}, len(b.args)+2)
	copy(result, b.args)
	result[len(b.args)] = limit
	result[len(b.args)+1] = offset
	return result
}
