package person

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/trialdata/trialdata/internal/platform/db"
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

const personCols = `id, year_of_birth, gender, race, ethnicity`

// visibleWhere renders the visibility clause: referenced by at least one
// visit within scope. Caller has already handled the None scope.
func visibleWhere(s tier.Scope, argIdx int) (string, []interface{}) {
	if s.All {
		return `EXISTS (SELECT 1 FROM visit_occurrence v WHERE v.person_id = person.id)`, nil
	}
	return fmt.Sprintf(`EXISTS (SELECT 1 FROM visit_occurrence v
		WHERE v.person_id = person.id AND v.tier_level <= $%d)`, argIdx),
		[]interface{}{s.MaxLevel}
}

func (r *repoPG) List(ctx context.Context, scope tier.Scope, limit, offset int) ([]*Person, int, error) {
	if scope.None {
		return []*Person{}, 0, nil
	}
	where, args := visibleWhere(scope, 1)

	var total int
	err := r.conn(ctx).QueryRow(ctx,
		`SELECT COUNT(*) FROM person WHERE `+where, args...).Scan(&total)
	if err != nil {
		return nil, 0, err
	}

	n := len(args)
	dataArgs := append(args, limit, offset)
	rows, err := r.conn(ctx).Query(ctx, fmt.Sprintf(
		`SELECT %s FROM person WHERE %s ORDER BY id ASC LIMIT $%d OFFSET $%d`,
		personCols, where, n+1, n+2), dataArgs...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	persons, err := scanPersons(rows)
	if err != nil {
		return nil, 0, err
	}
	return persons, total, nil
}

func (r *repoPG) GetByID(ctx context.Context, scope tier.Scope, id int64) (*Person, error) {
	if scope.None {
		return nil, pgx.ErrNoRows
	}
	where, args := visibleWhere(scope, 2)
	args = append([]interface{}{id}, args...)
	return scanPerson(r.conn(ctx).QueryRow(ctx,
		`SELECT `+personCols+` FROM person WHERE id = $1 AND `+where, args...))
}

func scanPerson(row pgx.Row) (*Person, error) {
	var p Person
	if err := row.Scan(&p.ID, &p.YearOfBirth, &p.Gender, &p.Race, &p.Ethnicity); err != nil {
		return nil, err
	}
	return &p, nil
}

func scanPersons(rows pgx.Rows) ([]*Person, error) {
	persons := []*Person{}
	for rows.Next() {
		var p Person
		if err := rows.Scan(&p.ID, &p.YearOfBirth, &p.Gender, &p.Race, &p.Ethnicity); err != nil {
			return nil, err
		}
		persons = append(persons, &p)
	}
	return persons, rows.Err()
}
