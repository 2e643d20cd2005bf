package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"

	"stagelink/internal/common"
	"stagelink/internal/store"
)

// ResourceStore keeps every lifecycle-managed record in one table. The
// envelope columns (state, owner, company, employment) are indexed and
// queryable; kind-specific fields live in a jsonb attrs column.
type ResourceStore struct {
	db *sql.DB
}

func NewResourceStore(db *sql.DB) *ResourceStore {
	return &ResourceStore{db: db}
}

const resourceColumns = `id, kind, state, owner_id, company_id, employment_id, attrs, created_at, updated_at`

func (r *ResourceStore) FindByID(ctx context.Context, kind store.Kind, id common.UUID) (*store.Record, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+resourceColumns+` FROM resources WHERE kind = $1 AND id = $2`, kind, id)
	rec, err := scanResource(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.NewError(common.CodeNotFound, "resource not found", err)
		}
		return nil, common.NewError(common.CodeInternal, "failed to load resource", err)
	}
	return rec, nil
}

func (r *ResourceStore) Find(ctx context.Context, kind store.Kind, q store.Query) ([]store.Record, error) {
	var (
		where = []string{"kind = $1"}
		args  = []any{kind}
	)
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}
	if q.State != nil {
		where = append(where, "state = "+arg(*q.State))
	}
	if !q.OwnerID.IsZero() {
		where = append(where, "owner_id = "+arg(q.OwnerID))
	}
	if !q.CompanyID.IsZero() {
		where = append(where, "company_id = "+arg(q.CompanyID))
	}
	if len(q.EmploymentIDs) > 0 {
		ids := make([]string, len(q.EmploymentIDs))
		for i, id := range q.EmploymentIDs {
			ids[i] = id.String()
		}
		where = append(where, "employment_id = ANY("+arg(pq.Array(ids))+"::uuid[])")
	}
	for field, t := range q.AttrBefore {
		where = append(where, "(attrs->>"+arg(field)+")::timestamptz < "+arg(t))
	}
	for field, t := range q.AttrAfter {
		where = append(where, "(attrs->>"+arg(field)+")::timestamptz > "+arg(t))
	}

	query := `SELECT ` + resourceColumns + ` FROM resources WHERE ` + strings.Join(where, " AND ") + ` ORDER BY created_at DESC`
	if q.Limit > 0 {
		query += " LIMIT " + arg(q.Limit)
	}
	if q.Offset > 0 {
		query += " OFFSET " + arg(q.Offset)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, common.NewError(common.CodeInternal, "failed to list resources", err)
	}
	defer rows.Close()

	var items []store.Record
	for rows.Next() {
		rec, err := scanResource(rows)
		if err != nil {
			return nil, common.NewError(common.CodeInternal, "failed to scan resource", err)
		}
		items = append(items, *rec)
	}
	return items, nil
}

func (r *ResourceStore) Insert(ctx context.Context, rec store.Record) (*store.Record, error) {
	if rec.ID.IsZero() {
		rec.ID = common.NewUUID()
	}
	now := time.Now().UTC()
	rec.CreatedAt = now
	rec.UpdatedAt = now
	if rec.Attrs == nil {
		rec.Attrs = map[string]any{}
	}
	attrs, err := json.Marshal(rec.Attrs)
	if err != nil {
		return nil, common.NewError(common.CodeInternal, "failed to encode attrs", err)
	}
	_, err = r.db.ExecContext(ctx, `INSERT INTO resources (id, kind, state, owner_id, company_id, employment_id, attrs, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		rec.ID, rec.Kind, rec.State, nullUUID(rec.OwnerID), nullUUID(rec.CompanyID), nullUUID(rec.EmploymentID), attrs, rec.CreatedAt, rec.UpdatedAt)
	if err != nil {
		return nil, common.NewError(common.CodeInternal, "failed to create resource", err)
	}
	return &rec, nil
}

// UpdateFields merges the attr patch and moves state in one statement,
// guarded by the expected current state. Zero rows affected means either
// the record vanished or another writer moved it first; a reload tells
// the two apart.
func (r *ResourceStore) UpdateFields(ctx context.Context, kind store.Kind, id common.UUID, expectState int, fields store.FieldSet) (*store.Record, error) {
	attrs := fields.Attrs
	if attrs == nil {
		attrs = map[string]any{}
	}
	patch, err := json.Marshal(attrs)
	if err != nil {
		return nil, common.NewError(common.CodeInternal, "failed to encode attrs", err)
	}

	var newState any
	if fields.State != nil {
		newState = *fields.State
	}
	row := r.db.QueryRowContext(ctx, `UPDATE resources
		SET state = COALESCE($1, state), attrs = attrs || $2, updated_at = $3
		WHERE kind = $4 AND id = $5 AND state = $6
		RETURNING `+resourceColumns,
		newState, patch, time.Now().UTC(), kind, id, expectState)
	rec, err := scanResource(row)
	if err == nil {
		return rec, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, common.NewError(common.CodeInternal, "failed to update resource", err)
	}

	if _, loadErr := r.FindByID(ctx, kind, id); loadErr != nil {
		return nil, loadErr
	}
	return nil, common.NewError(common.CodeConflict, "resource changed concurrently", nil)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanResource(row rowScanner) (*store.Record, error) {
	var (
		rec          store.Record
		ownerID      sql.NullString
		companyID    sql.NullString
		employmentID sql.NullString
		attrs        []byte
	)
	if err := row.Scan(&rec.ID, &rec.Kind, &rec.State, &ownerID, &companyID, &employmentID, &attrs, &rec.CreatedAt, &rec.UpdatedAt); err != nil {
		return nil, err
	}
	rec.OwnerID = common.UUID(ownerID.String)
	rec.CompanyID = common.UUID(companyID.String)
	rec.EmploymentID = common.UUID(employmentID.String)
	if err := json.Unmarshal(attrs, &rec.Attrs); err != nil {
		return nil, err
	}
	return &rec, nil
}

func nullUUID(id common.UUID) any {
	if id.IsZero() {
		return nil
	}
	return id
}
