package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"stagelink/internal/common"
	"stagelink/internal/domain/share"
)

type ShareRepository struct {
	db *sql.DB
}

func NewShareRepository(db *sql.DB) *ShareRepository {
	return &ShareRepository{db: db}
}

const shareColumns = `id, share_type, target_id, token, created_by, note, payload, expires_at, disabled_at, clicks, created_at, updated_at`

func (r *ShareRepository) Create(ctx context.Context, s share.Share) (*share.Share, error) {
	s.ID = common.NewUUID()
	now := time.Now().UTC()
	s.CreatedAt = now
	s.UpdatedAt = now
	if s.Payload == nil {
		s.Payload = map[string]any{}
	}
	payload, err := json.Marshal(s.Payload)
	if err != nil {
		return nil, common.NewError(common.CodeInternal, "failed to encode share payload", err)
	}
	_, err = r.db.ExecContext(ctx, `INSERT INTO shares (id, share_type, target_id, token, created_by, note, payload, expires_at, clicks, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, 0, $9, $10)`,
		s.ID, s.Type, s.TargetID, s.Token, s.CreatedBy, s.Note, payload, s.ExpiresAt, s.CreatedAt, s.UpdatedAt)
	if err != nil {
		return nil, common.NewError(common.CodeInternal, "failed to create share", err)
	}
	return &s, nil
}

func (r *ShareRepository) GetByID(ctx context.Context, id common.UUID) (*share.Share, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+shareColumns+` FROM shares WHERE id = $1`, id)
	return scanShare(row)
}

func (r *ShareRepository) GetByToken(ctx context.Context, token string) (*share.Share, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+shareColumns+` FROM shares WHERE token = $1`, token)
	return scanShare(row)
}

func (r *ShareRepository) TokenExists(ctx context.Context, token string) (bool, error) {
	var exists bool
	if err := r.db.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM shares WHERE token = $1)`, token).Scan(&exists); err != nil {
		return false, common.NewError(common.CodeInternal, "failed to check share token", err)
	}
	return exists, nil
}

func (r *ShareRepository) IncrementClicks(ctx context.Context, id common.UUID) (int, error) {
	var clicks int
	err := r.db.QueryRowContext(ctx, `UPDATE shares SET clicks = clicks + 1, updated_at = $1 WHERE id = $2 RETURNING clicks`,
		time.Now().UTC(), id).Scan(&clicks)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, common.NewError(common.CodeNotFound, "share not found", err)
		}
		return 0, common.NewError(common.CodeInternal, "failed to count share open", err)
	}
	return clicks - 1, nil
}

func (r *ShareRepository) Disable(ctx context.Context, id common.UUID, at time.Time) (*share.Share, error) {
	row := r.db.QueryRowContext(ctx, `UPDATE shares SET disabled_at = COALESCE(disabled_at, $1), updated_at = $2 WHERE id = $3 RETURNING `+shareColumns,
		at, time.Now().UTC(), id)
	return scanShare(row)
}

func (r *ShareRepository) ListByCreator(ctx context.Context, createdBy common.UUID) ([]share.Share, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+shareColumns+` FROM shares WHERE created_by = $1 ORDER BY created_at DESC`, createdBy)
	if err != nil {
		return nil, common.NewError(common.CodeInternal, "failed to list shares", err)
	}
	defer rows.Close()
	var items []share.Share
	for rows.Next() {
		s, err := scanShare(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, *s)
	}
	return items, nil
}

func scanShare(row rowScanner) (*share.Share, error) {
	var (
		s       share.Share
		payload []byte
	)
	if err := row.Scan(&s.ID, &s.Type, &s.TargetID, &s.Token, &s.CreatedBy, &s.Note, &payload, &s.ExpiresAt, &s.DisabledAt, &s.Clicks, &s.CreatedAt, &s.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.NewError(common.CodeNotFound, "share not found", err)
		}
		return nil, common.NewError(common.CodeInternal, "failed to load share", err)
	}
	if err := json.Unmarshal(payload, &s.Payload); err != nil {
		return nil, common.NewError(common.CodeInternal, "failed to decode share payload", err)
	}
	return &s, nil
}
