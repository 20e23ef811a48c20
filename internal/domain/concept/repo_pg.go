package concept

import (
	"context"
	"fmt"

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

const conceptCols = `concept_id, concept_code, vocabulary_name, concept_name, domain_name`

func (r *repoPG) List(ctx context.Context, vocabulary, domain string, limit, offset int) ([]*Concept, int, error) {
	where := ""
	args := []interface{}{}
	if vocabulary != "" {
		args = append(args, vocabulary)
		where += fmt.Sprintf(" AND vocabulary_name = $%d", len(args))
	}
	if domain != "" {
		args = append(args, domain)
		where += fmt.Sprintf(" AND domain_name = $%d", len(args))
	}

	var total int
	err := r.conn(ctx).QueryRow(ctx,
		`SELECT COUNT(*) FROM concept WHERE 1=1`+where, args...).Scan(&total)
	if err != nil {
		return nil, 0, err
	}

	n := len(args)
	args = append(args, limit, offset)
	rows, err := r.conn(ctx).Query(ctx, fmt.Sprintf(
		`SELECT %s FROM concept WHERE 1=1%s ORDER BY concept_id ASC LIMIT $%d OFFSET $%d`,
		conceptCols, where, n+1, n+2), args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	concepts := []*Concept{}
	for rows.Next() {
		var c Concept
		if err := rows.Scan(&c.ConceptID, &c.ConceptCode, &c.VocabularyName, &c.ConceptName, &c.DomainName); err != nil {
			return nil, 0, err
		}
		concepts = append(concepts, &c)
	}
	return concepts, total, rows.Err()
}

func (r *repoPG) GetByID(ctx context.Context, conceptID int64) (*Concept, error) {
	return scanConcept(r.conn(ctx).QueryRow(ctx,
		`SELECT `+conceptCols+` FROM concept WHERE concept_id = $1`, conceptID))
}

func (r *repoPG) GetByCode(ctx context.Context, vocabulary, code string) (*Concept, error) {
	return scanConcept(r.conn(ctx).QueryRow(ctx,
		`SELECT `+conceptCols+` FROM concept WHERE vocabulary_name = $1 AND concept_code = $2`,
		vocabulary, code))
}

func scanConcept(row pgx.Row) (*Concept, error) {
	var c Concept
	err := row.Scan(&c.ConceptID, &c.ConceptCode, &c.VocabularyName, &c.ConceptName, &c.DomainName)
	if err != nil {
		return nil, err
	}
	return &c, nil
}
