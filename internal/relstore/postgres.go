package relstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/nick-gallo-ethico/caseindex/internal/domain"
)

// Compile-time check: Postgres implements Store.
var _ Store = (*Postgres)(nil)

// Postgres reads the authoritative relational data via pgx. All statements
// are tenant-scoped; the pool is shared with the owning platform services.
type Postgres struct {
	pool *pgxpool.Pool
}

// NewPostgres creates a Postgres-backed relational store client.
func NewPostgres(pool *pgxpool.Pool) *Postgres {
	return &Postgres{pool: pool}
}

// Connect opens a pgx pool and verifies connectivity.
func Connect(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return pool, nil
}

func (p *Postgres) GetCase(ctx context.Context, tenantID, caseID string) (domain.Case, error) {
	const q = `
		SELECT id, tenant_id, reference_number, status, category, case_type,
		       severity, summary, details, occurred_at, created_at, updated_at
		FROM cases
		WHERE tenant_id = $1 AND id = $2`

	var c domain.Case
	err := p.pool.QueryRow(ctx, q, tenantID, caseID).Scan(
		&c.ID, &c.TenantID, &c.ReferenceNumber, &c.Status, &c.Category,
		&c.CaseType, &c.Severity, &c.Summary, &c.Details,
		&c.OccurredAt, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Case{}, domain.ErrAggregateNotFound
		}
		return domain.Case{}, fmt.Errorf("get case %s: %w", caseID, err)
	}
	return c, nil
}

func (p *Postgres) ListPersonAssociations(ctx context.Context, tenantID, caseID string) ([]domain.PersonAssociation, error) {
	const q = `
		SELECT id, tenant_id, case_id, person_id, label, status,
		       started_at, ended_at, created_at
		FROM person_case_associations
		WHERE tenant_id = $1 AND case_id = $2
		ORDER BY created_at, id`

	rows, err := p.pool.Query(ctx, q, tenantID, caseID)
	if err != nil {
		return nil, fmt.Errorf("list person associations for case %s: %w", caseID, err)
	}
	defer rows.Close()

	var out []domain.PersonAssociation
	for rows.Next() {
		var a domain.PersonAssociation
		if err := rows.Scan(
			&a.ID, &a.TenantID, &a.CaseID, &a.PersonID, &a.Label, &a.Status,
			&a.StartedAt, &a.EndedAt, &a.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan person association: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (p *Postgres) ListRecordAssociations(ctx context.Context, tenantID, caseID string) ([]domain.RecordAssociation, error) {
	const q = `
		SELECT id, tenant_id, case_id, record_id, label, status, created_at
		FROM record_case_associations
		WHERE tenant_id = $1 AND case_id = $2
		ORDER BY created_at, id`

	rows, err := p.pool.Query(ctx, q, tenantID, caseID)
	if err != nil {
		return nil, fmt.Errorf("list record associations for case %s: %w", caseID, err)
	}
	defer rows.Close()

	var out []domain.RecordAssociation
	for rows.Next() {
		var a domain.RecordAssociation
		if err := rows.Scan(
			&a.ID, &a.TenantID, &a.CaseID, &a.RecordID, &a.Label, &a.Status, &a.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan record association: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (p *Postgres) ListCaseLinks(ctx context.Context, tenantID, caseID string) ([]domain.CaseLink, error) {
	const q = `
		SELECT id, tenant_id, source_case_id, target_case_id, label, status, created_at
		FROM case_case_links
		WHERE tenant_id = $1 AND (source_case_id = $2 OR target_case_id = $2)
		ORDER BY created_at, id`

	rows, err := p.pool.Query(ctx, q, tenantID, caseID)
	if err != nil {
		return nil, fmt.Errorf("list case links for case %s: %w", caseID, err)
	}
	defer rows.Close()

	var out []domain.CaseLink
	for rows.Next() {
		var l domain.CaseLink
		if err := rows.Scan(
			&l.ID, &l.TenantID, &l.SourceID, &l.TargetID, &l.Label, &l.Status, &l.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan case link: %w", err)
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

func (p *Postgres) GetPersonRef(ctx context.Context, tenantID, personID string) (domain.PersonRef, error) {
	const q = `SELECT display_name FROM persons WHERE tenant_id = $1 AND id = $2`

	var name string
	err := p.pool.QueryRow(ctx, q, tenantID, personID).Scan(&name)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.PersonRef{ID: personID}, nil
		}
		return domain.PersonRef{}, fmt.Errorf("get person ref %s: %w", personID, err)
	}
	return domain.PersonRef{ID: personID, DisplayName: name, Found: true}, nil
}

func (p *Postgres) GetRecordRef(ctx context.Context, tenantID, recordID string) (domain.RecordRef, error) {
	const q = `SELECT reference_number FROM intake_records WHERE tenant_id = $1 AND id = $2`

	var ref string
	err := p.pool.QueryRow(ctx, q, tenantID, recordID).Scan(&ref)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.RecordRef{ID: recordID}, nil
		}
		return domain.RecordRef{}, fmt.Errorf("get record ref %s: %w", recordID, err)
	}
	return domain.RecordRef{ID: recordID, ReferenceNumber: ref, Found: true}, nil
}

func (p *Postgres) GetCaseRef(ctx context.Context, tenantID, caseID string) (domain.CaseRef, error) {
	const q = `SELECT reference_number FROM cases WHERE tenant_id = $1 AND id = $2`

	var ref string
	err := p.pool.QueryRow(ctx, q, tenantID, caseID).Scan(&ref)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.CaseRef{ID: caseID}, nil
		}
		return domain.CaseRef{}, fmt.Errorf("get case ref %s: %w", caseID, err)
	}
	return domain.CaseRef{ID: caseID, ReferenceNumber: ref, Found: true}, nil
}

func (p *Postgres) ListCaseIDs(ctx context.Context, tenantID string) ([]string, error) {
	const q = `SELECT id FROM cases WHERE tenant_id = $1 ORDER BY id`

	rows, err := p.pool.Query(ctx, q, tenantID)
	if err != nil {
		return nil, fmt.Errorf("list case ids for tenant %s: %w", tenantID, err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan case id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (p *Postgres) CountCasesForPerson(ctx context.Context, tenantID, personID string) (int, error) {
	const q = `
		SELECT COUNT(DISTINCT case_id)
		FROM person_case_associations
		WHERE tenant_id = $1 AND person_id = $2`

	var n int
	if err := p.pool.QueryRow(ctx, q, tenantID, personID).Scan(&n); err != nil {
		return 0, fmt.Errorf("count cases for person %s: %w", personID, err)
	}
	return n, nil
}
