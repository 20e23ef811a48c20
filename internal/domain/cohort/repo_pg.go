package cohort

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

const cohortCols = `id, owner_principal, name, description, filters, cached_visit_count,
	created_at, updated_at`

func (r *repoPG) Create(ctx context.Context, c *Cohort) error {
	c.ID = uuid.New()
	return r.conn(ctx).QueryRow(ctx, `
		INSERT INTO cohort (id, owner_principal, name, description, filters, cached_visit_count)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at, updated_at`,
		c.ID, c.OwnerPrincipal, c.Name, c.Description, c.Filters, c.CachedVisitCount,
	).Scan(&c.CreatedAt, &c.UpdatedAt)
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Cohort, error) {
	return scanCohort(r.conn(ctx).QueryRow(ctx,
		`SELECT `+cohortCols+` FROM cohort WHERE id = $1`, id))
}

func (r *repoPG) ListByOwner(ctx context.Context, owner uuid.UUID, limit, offset int) ([]*Cohort, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx,
		`SELECT COUNT(*) FROM cohort WHERE owner_principal = $1`, owner).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.conn(ctx).Query(ctx, `
		SELECT `+cohortCols+` FROM cohort WHERE owner_principal = $1
		ORDER BY created_at DESC, id ASC LIMIT $2 OFFSET $3`, owner, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	cohorts := []*Cohort{}
	for rows.Next() {
		c, err := scanCohort(rows)
		if err != nil {
			return nil, 0, err
		}
		cohorts = append(cohorts, c)
	}
	return cohorts, total, rows.Err()
}

func (r *repoPG) Update(ctx context.Context, c *Cohort) error {
	return r.conn(ctx).QueryRow(ctx, `
		UPDATE cohort SET name=$2, description=$3, filters=$4, cached_visit_count=$5,
			updated_at=NOW()
		WHERE id = $1
		RETURNING updated_at`,
		c.ID, c.Name, c.Description, c.Filters, c.CachedVisitCount,
	).Scan(&c.UpdatedAt)
}

func (r *repoPG) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := r.conn(ctx).Exec(ctx, `DELETE FROM cohort WHERE id = $1`, id)
	return err
}

func scanCohort(row pgx.Row) (*Cohort, error) {
	var c Cohort
	err := row.Scan(&c.ID, &c.OwnerPrincipal, &c.Name, &c.Description, &c.Filters,
		&c.CachedVisitCount, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &c, nil
}
