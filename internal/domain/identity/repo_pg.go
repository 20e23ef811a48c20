package identity

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/trialdata/trialdata/internal/platform/db"
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

func (r *repoPG) ListTiers(ctx context.Context) ([]*Tier, error) {
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT id, name, level, can_export, can_manage_cohorts FROM tier ORDER BY level ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	tiers := []*Tier{}
	for rows.Next() {
		var t Tier
		if err := rows.Scan(&t.ID, &t.Name, &t.Level, &t.CanExport, &t.CanManageCohorts); err != nil {
			return nil, err
		}
		tiers = append(tiers, &t)
	}
	return tiers, rows.Err()
}

const principalCols = `id, subject, display_name, tier_id, is_administrator`

func (r *repoPG) GetPrincipalBySubject(ctx context.Context, subject string) (*PrincipalRow, error) {
	return scanPrincipal(r.conn(ctx).QueryRow(ctx,
		`SELECT `+principalCols+` FROM principal WHERE subject = $1`, subject))
}

func (r *repoPG) GetPrincipal(ctx context.Context, id uuid.UUID) (*PrincipalRow, error) {
	return scanPrincipal(r.conn(ctx).QueryRow(ctx,
		`SELECT `+principalCols+` FROM principal WHERE id = $1`, id))
}

func (r *repoPG) TierLevel(ctx context.Context, tierID int64) (int, error) {
	var level int
	err := r.conn(ctx).QueryRow(ctx, `SELECT level FROM tier WHERE id = $1`, tierID).Scan(&level)
	return level, err
}

func scanPrincipal(row pgx.Row) (*PrincipalRow, error) {
	var p PrincipalRow
	err := row.Scan(&p.ID, &p.Subject, &p.DisplayName, &p.TierID, &p.IsAdministrator)
	if err != nil {
		return nil, err
	}
	return &p, nil
}
