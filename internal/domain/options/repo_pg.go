package options

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/trialdata/trialdata/internal/platform/db"
	"github.com/trialdata/trialdata/internal/platform/query"
	"github.com/trialdata/trialdata/internal/platform/tier"
)

type repoPG struct {
	pool *pgxpool.Pool
}

func NewRepo(pool *pgxpool.Pool) Repository {
	return &repoPG{pool: pool}
}

type querier interface {
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
}

func (r *repoPG) conn(ctx context.Context) querier {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	if c := db.ConnFromContext(ctx); c != nil {
		return c
	}
	return r.pool
}

// scopeWhere renders the tier clause for visit_occurrence rows. Caller has
// handled the None scope already.
func scopeWhere(s tier.Scope, argIdx int) (string, []interface{}) {
	if s.All {
		return "TRUE", nil
	}
	return fmt.Sprintf("tier_level <= $%d", argIdx), []interface{}{s.MaxLevel}
}

func (r *repoPG) DemographicValues(ctx context.Context, scope tier.Scope, column string) ([]string, bool, error) {
	if scope.None {
		return []string{}, false, nil
	}
	where, args := scopeWhere(scope, 1)
	// The union keeps person and provider values in one pass; NULL presence
	// is detected from the result rather than a second query.
	sql := fmt.Sprintf(`
		SELECT DISTINCT %[1]s FROM person
			WHERE id IN (SELECT person_id FROM visit_occurrence WHERE %[2]s)
		UNION
		SELECT DISTINCT %[1]s FROM provider
			WHERE id IN (SELECT provider_id FROM visit_occurrence WHERE provider_id IS NOT NULL AND %[2]s)`,
		column, where)
	rows, err := r.conn(ctx).Query(ctx, sql, args...)
	if err != nil {
		return nil, false, err
	}
	defer rows.Close()

	values := []string{}
	hasNull := false
	for rows.Next() {
		var v *string
		if err := rows.Scan(&v); err != nil {
			return nil, false, err
		}
		switch {
		case v == nil:
			hasNull = true
		case *v == "":
			// empty string is not an offerable filter value
		default:
			values = append(values, *v)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, false, err
	}
	sort.Strings(values)
	return values, hasNull, nil
}

func (r *repoPG) YearOfBirthRange(ctx context.Context, scope tier.Scope) (*int, *int, error) {
	if scope.None {
		return nil, nil, nil
	}
	where, args := scopeWhere(scope, 1)
	var min, max *int
	err := r.conn(ctx).QueryRow(ctx, fmt.Sprintf(`
		SELECT MIN(x.year_of_birth), MAX(x.year_of_birth) FROM (
			SELECT year_of_birth FROM person
				WHERE id IN (SELECT person_id FROM visit_occurrence WHERE %[1]s)
			UNION ALL
			SELECT year_of_birth FROM provider
				WHERE id IN (SELECT provider_id FROM visit_occurrence WHERE provider_id IS NOT NULL AND %[1]s)
		) x`, where), args...).Scan(&min, &max)
	return min, max, err
}

func (r *repoPG) VisitSources(ctx context.Context, scope tier.Scope) ([]string, error) {
	if scope.None {
		return []string{}, nil
	}
	where, args := scopeWhere(scope, 1)
	rows, err := r.conn(ctx).Query(ctx, fmt.Sprintf(`
		SELECT DISTINCT visit_source_value FROM visit_occurrence
		WHERE visit_source_value IS NOT NULL AND visit_source_value <> '' AND %s
		ORDER BY visit_source_value ASC`, where), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	sources := []string{}
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		sources = append(sources, v)
	}
	return sources, rows.Err()
}

func (r *repoPG) VisitDateRange(ctx context.Context, scope tier.Scope) (*time.Time, *time.Time, error) {
	if scope.None {
		return nil, nil, nil
	}
	where, args := scopeWhere(scope, 1)
	var min, max *time.Time
	err := r.conn(ctx).QueryRow(ctx,
		`SELECT MIN(visit_start_date), MAX(visit_start_date) FROM visit_occurrence WHERE `+where,
		args...).Scan(&min, &max)
	return min, max, err
}

func (r *repoPG) ClinicalSourceValues(ctx context.Context, scope tier.Scope, table string) ([]string, error) {
	if scope.None {
		return []string{}, nil
	}
	def, ok := query.ClinicalTables[table]
	if !ok {
		return nil, fmt.Errorf("unknown clinical table %q", table)
	}
	where, args := scopeWhere(scope, 1)
	rows, err := r.conn(ctx).Query(ctx, fmt.Sprintf(`
		SELECT DISTINCT f.%[1]s FROM %[2]s f
		JOIN visit_occurrence v ON v.id = f.visit_occurrence_id
		WHERE f.%[1]s IS NOT NULL AND f.%[1]s <> '' AND %[3]s
		ORDER BY f.%[1]s ASC`, def.SourceColumn, table, qualifyScope(where)), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	values := []string{}
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		values = append(values, v)
	}
	return values, rows.Err()
}

// qualifyScope rewrites the scope clause to apply to the joined visit alias.
func qualifyScope(where string) string {
	if where == "TRUE" {
		return where
	}
	return "v." + where
}

func (r *repoPG) TotalVisits(ctx context.Context, scope tier.Scope) (int, error) {
	if scope.None {
		return 0, nil
	}
	where, args := scopeWhere(scope, 1)
	var total int
	err := r.conn(ctx).QueryRow(ctx,
		`SELECT COUNT(*) FROM visit_occurrence WHERE `+where, args...).Scan(&total)
	return total, err
}
