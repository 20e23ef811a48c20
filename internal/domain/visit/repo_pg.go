package visit

import (
	"context"
	"fmt"
	"sort"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/trialdata/trialdata/internal/domain/person"
	"github.com/trialdata/trialdata/internal/domain/provider"
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

const visitCols = `id, person_id, provider_id, tier_level, visit_start_date,
	visit_source_value, visit_source_id`

// buildSearch assembles the scoped, filtered query. Demographic predicates
// become IN subqueries on person/provider, clinical predicates become EXISTS
// subqueries on the fact tables. Tier scope is always applied first.
func buildSearch(scope tier.Scope, c *query.Compiled) *query.Builder {
	b := query.NewBuilder("visit_occurrence", visitCols)
	b.AddScope(scope, "tier_level")
	if c == nil {
		return b
	}
	if c.TierLevels != nil {
		b.AddTierLevels("tier_level", c.TierLevels)
	}
	b.AddPredicates(c.Visit, "")
	if c.HasPersonFilter() {
		b.AddMembership("person_id", "person", c.Person)
	}
	if c.HasProviderFilter() {
		b.AddMembership("provider_id", "provider", c.Provider)
	}
	// Deterministic clause order across identical filter documents.
	tables := make([]string, 0, len(c.Clinical))
	for t := range c.Clinical {
		tables = append(tables, t)
	}
	sort.Strings(tables)
	for _, t := range tables {
		b.AddExists(t, "visit_occurrence_id", c.Clinical[t])
	}
	return b
}

func (r *repoPG) List(ctx context.Context, scope tier.Scope, limit, offset int) ([]*VisitOccurrence, int, error) {
	return r.Search(ctx, scope, nil, "visit_start_date DESC, id ASC", limit, offset)
}

func (r *repoPG) GetByID(ctx context.Context, scope tier.Scope, id int64) (*VisitOccurrence, error) {
	b := buildSearch(scope, nil)
	b.Add(fmt.Sprintf("id = $%d", b.NextIdx()), id)
	return scanVisit(r.conn(ctx).QueryRow(ctx, b.SQL(), b.Args()...))
}

func (r *repoPG) Search(ctx context.Context, scope tier.Scope, c *query.Compiled, orderBy string, limit, offset int) ([]*VisitOccurrence, int, error) {
	var (
		visits []*VisitOccurrence
		total  int
	)
	// Count and page read the same snapshot.
	err := db.ReadOnly(ctx, r.pool, func(ctx context.Context) error {
		b := buildSearch(scope, c)
		b.OrderBy(orderBy)

		if err := r.conn(ctx).QueryRow(ctx, b.CountSQL(), b.CountArgs()...).Scan(&total); err != nil {
			return err
		}
		rows, err := r.conn(ctx).Query(ctx, b.DataSQL(), b.DataArgs(limit, offset)...)
		if err != nil {
			return err
		}
		defer rows.Close()

		visits, err = scanVisits(rows)
		return err
	})
	if err != nil {
		return nil, 0, err
	}
	return visits, total, nil
}

func (r *repoPG) SearchAll(ctx context.Context, scope tier.Scope, c *query.Compiled, orderBy string) ([]*VisitOccurrence, error) {
	b := buildSearch(scope, c)
	b.OrderBy(orderBy)
	rows, err := r.conn(ctx).Query(ctx, b.SQL(), b.Args()...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanVisits(rows)
}

func (r *repoPG) Count(ctx context.Context, scope tier.Scope, c *query.Compiled) (int, error) {
	b := buildSearch(scope, c)
	var total int
	err := r.conn(ctx).QueryRow(ctx, b.CountSQL(), b.CountArgs()...).Scan(&total)
	return total, err
}

func (r *repoPG) Related(ctx context.Context, visits []*VisitOccurrence) (*EntityBundle, error) {
	bundle := &EntityBundle{
		Visits:               visits,
		Persons:              []*person.Person{},
		Providers:            []*provider.Provider{},
		ConditionOccurrences: []*ConditionOccurrence{},
		DrugExposures:        []*DrugExposure{},
		ProcedureOccurrences: []*ProcedureOccurrence{},
		Measurements:         []*Measurement{},
		Observations:         []*Observation{},
		Notes:                []*Note{},
		PatientSurveys:       []*PatientSurvey{},
		ProviderSurveys:      []*ProviderSurvey{},
		AuditLogs:            []*AuditLog{},
	}
	if len(visits) == 0 {
		return bundle, nil
	}

	visitIDs := make([]int64, len(visits))
	personIDs := make([]int64, 0, len(visits))
	providerIDs := make([]int64, 0, len(visits))
	seenPerson := map[int64]bool{}
	seenProvider := map[int64]bool{}
	for i, v := range visits {
		visitIDs[i] = v.ID
		if !seenPerson[v.PersonID] {
			seenPerson[v.PersonID] = true
			personIDs = append(personIDs, v.PersonID)
		}
		if v.ProviderID != nil && !seenProvider[*v.ProviderID] {
			seenProvider[*v.ProviderID] = true
			providerIDs = append(providerIDs, *v.ProviderID)
		}
	}

	if err := r.loadPersons(ctx, personIDs, bundle); err != nil {
		return nil, err
	}
	if err := r.loadProviders(ctx, providerIDs, bundle); err != nil {
		return nil, err
	}
	if err := r.loadFacts(ctx, visitIDs, bundle); err != nil {
		return nil, err
	}
	return bundle, nil
}

func (r *repoPG) loadPersons(ctx context.Context, ids []int64, bundle *EntityBundle) error {
	if len(ids) == 0 {
		return nil
	}
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT id, year_of_birth, gender, race, ethnicity FROM person WHERE id = ANY($1) ORDER BY id`, ids)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var p person.Person
		if err := rows.Scan(&p.ID, &p.YearOfBirth, &p.Gender, &p.Race, &p.Ethnicity); err != nil {
			return err
		}
		bundle.Persons = append(bundle.Persons, &p)
	}
	return rows.Err()
}

func (r *repoPG) loadProviders(ctx context.Context, ids []int64, bundle *EntityBundle) error {
	if len(ids) == 0 {
		return nil
	}
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT id, year_of_birth, gender, race, ethnicity FROM provider WHERE id = ANY($1) ORDER BY id`, ids)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var p provider.Provider
		if err := rows.Scan(&p.ID, &p.YearOfBirth, &p.Gender, &p.Race, &p.Ethnicity); err != nil {
			return err
		}
		bundle.Providers = append(bundle.Providers, &p)
	}
	return rows.Err()
}

// loadFacts pulls, per fact table, exactly the rows whose parent visit is in
// the id set.
func (r *repoPG) loadFacts(ctx context.Context, visitIDs []int64, bundle *EntityBundle) error {
	q := func(cols, table string) (pgx.Rows, error) {
		return r.conn(ctx).Query(ctx,
			`SELECT `+cols+` FROM `+table+` WHERE visit_occurrence_id = ANY($1) ORDER BY id`, visitIDs)
	}

	rows, err := q(`id, visit_occurrence_id, condition_source_value, condition_start_date`, "condition_occurrence")
	if err != nil {
		return err
	}
	for rows.Next() {
		var f ConditionOccurrence
		if err := rows.Scan(&f.ID, &f.VisitOccurrenceID, &f.ConditionSourceValue, &f.ConditionStartDate); err != nil {
			rows.Close()
			return err
		}
		bundle.ConditionOccurrences = append(bundle.ConditionOccurrences, &f)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}

	rows, err = q(`id, visit_occurrence_id, drug_source_value, drug_exposure_start_date`, "drug_exposure")
	if err != nil {
		return err
	}
	for rows.Next() {
		var f DrugExposure
		if err := rows.Scan(&f.ID, &f.VisitOccurrenceID, &f.DrugSourceValue, &f.DrugExposureStartDate); err != nil {
			rows.Close()
			return err
		}
		bundle.DrugExposures = append(bundle.DrugExposures, &f)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}

	rows, err = q(`id, visit_occurrence_id, procedure_source_value, procedure_date`, "procedure_occurrence")
	if err != nil {
		return err
	}
	for rows.Next() {
		var f ProcedureOccurrence
		if err := rows.Scan(&f.ID, &f.VisitOccurrenceID, &f.ProcedureSourceValue, &f.ProcedureDate); err != nil {
			rows.Close()
			return err
		}
		bundle.ProcedureOccurrences = append(bundle.ProcedureOccurrences, &f)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}

	rows, err = q(`id, visit_occurrence_id, measurement_source_value, value_as_number, measurement_date`, "measurement")
	if err != nil {
		return err
	}
	for rows.Next() {
		var f Measurement
		if err := rows.Scan(&f.ID, &f.VisitOccurrenceID, &f.MeasurementSourceValue, &f.ValueAsNumber, &f.MeasurementDate); err != nil {
			rows.Close()
			return err
		}
		bundle.Measurements = append(bundle.Measurements, &f)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}

	rows, err = q(`id, visit_occurrence_id, observation_source_value, value_as_string, observation_date`, "observation")
	if err != nil {
		return err
	}
	for rows.Next() {
		var f Observation
		if err := rows.Scan(&f.ID, &f.VisitOccurrenceID, &f.ObservationSourceValue, &f.ValueAsString, &f.ObservationDate); err != nil {
			rows.Close()
			return err
		}
		bundle.Observations = append(bundle.Observations, &f)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}

	rows, err = q(`id, visit_occurrence_id, note_title, note_text, note_date`, "note")
	if err != nil {
		return err
	}
	for rows.Next() {
		var f Note
		if err := rows.Scan(&f.ID, &f.VisitOccurrenceID, &f.NoteTitle, &f.NoteText, &f.NoteDate); err != nil {
			rows.Close()
			return err
		}
		bundle.Notes = append(bundle.Notes, &f)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}

	rows, err = q(`id, visit_occurrence_id, survey_name, survey_response`, "patient_survey")
	if err != nil {
		return err
	}
	for rows.Next() {
		var f PatientSurvey
		if err := rows.Scan(&f.ID, &f.VisitOccurrenceID, &f.SurveyName, &f.SurveyResponse); err != nil {
			rows.Close()
			return err
		}
		bundle.PatientSurveys = append(bundle.PatientSurveys, &f)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}

	rows, err = q(`id, visit_occurrence_id, survey_name, survey_response`, "provider_survey")
	if err != nil {
		return err
	}
	for rows.Next() {
		var f ProviderSurvey
		if err := rows.Scan(&f.ID, &f.VisitOccurrenceID, &f.SurveyName, &f.SurveyResponse); err != nil {
			rows.Close()
			return err
		}
		bundle.ProviderSurveys = append(bundle.ProviderSurveys, &f)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}

	rows, err = q(`id, visit_occurrence_id, action, detail, logged_at`, "audit_log")
	if err != nil {
		return err
	}
	for rows.Next() {
		var f AuditLog
		if err := rows.Scan(&f.ID, &f.VisitOccurrenceID, &f.Action, &f.Detail, &f.LoggedAt); err != nil {
			rows.Close()
			return err
		}
		bundle.AuditLogs = append(bundle.AuditLogs, &f)
	}
	rows.Close()
	return rows.Err()
}

func scanVisit(row pgx.Row) (*VisitOccurrence, error) {
	var v VisitOccurrence
	err := row.Scan(&v.ID, &v.PersonID, &v.ProviderID, &v.TierLevel, &v.VisitStartDate,
		&v.VisitSourceValue, &v.VisitSourceID)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func scanVisits(rows pgx.Rows) ([]*VisitOccurrence, error) {
	visits := []*VisitOccurrence{}
	for rows.Next() {
		v, err := scanVisit(rows)
		if err != nil {
			return nil, err
		}
		visits = append(visits, v)
	}
	return visits, rows.Err()
}
