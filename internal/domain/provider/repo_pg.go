package provider

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

const providerCols = `id, year_of_birth, gender, race, ethnicity`

func visibleWhere(s tier.Scope, argIdx int) (string, []interface{}) {
	if s.All {
		return `EXISTS (SELECT 1 FROM visit_occurrence v WHERE v.provider_id = provider.id)`, nil
	}
	return fmt.Sprintf(`EXISTS (SELECT 1 FROM visit_occurrence v
		WHERE v.provider_id = provider.id AND v.tier_level <= $%d)`, argIdx),
		[]interface{}{s.MaxLevel}
}

func (r *repoPG) List(ctx context.Context, scope tier.Scope, limit, offset int) ([]*Provider, int, error) {
	if scope.None {
		return []*Provider{}, 0, nil
	}
	where, args := visibleWhere(scope, 1)

	var total int
	err := r.conn(ctx).QueryRow(ctx,
		`SELECT COUNT(*) FROM provider WHERE `+where, args...).Scan(&total)
	if err != nil {
		return nil, 0, err
	}

	n := len(args)
	dataArgs := append(args, limit, offset)
	rows, err := r.conn(ctx).Query(ctx, fmt.Sprintf(
		`SELECT %s FROM provider WHERE %s ORDER BY id ASC LIMIT $%d OFFSET $%d`,
		providerCols, where, n+1, n+2), dataArgs...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	providers := []*Provider{}
	for rows.Next() {
		var p Provider
		if err := rows.Scan(&p.ID, &p.YearOfBirth, &p.Gender, &p.Race, &p.Ethnicity); err != nil {
			return nil, 0, err
		}
		providers = append(providers, &p)
	}
	return providers, total, rows.Err()
}

func (r *repoPG) GetByID(ctx context.Context, scope tier.Scope, id int64) (*Provider, error) {
	if scope.None {
		return nil, pgx.ErrNoRows
	}
	where, args := visibleWhere(scope, 2)
	args = append([]interface{}{id}, args...)

	var p Provider
	err := r.conn(ctx).QueryRow(ctx,
		`SELECT `+providerCols+` FROM provider WHERE id = $1 AND `+where, args...).
		Scan(&p.ID, &p.YearOfBirth, &p.Gender, &p.Race, &p.Ethnicity)
	if err != nil {
		return nil, err
	}
	return &p, nil
}
