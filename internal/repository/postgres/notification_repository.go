package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"stagelink/internal/common"
	"stagelink/internal/domain/notification"
)

type NotificationRepository struct {
	db *sql.DB
}

func NewNotificationRepository(db *sql.DB) *NotificationRepository {
	return &NotificationRepository{db: db}
}

func (r *NotificationRepository) Create(ctx context.Context, n notification.Notification) (*notification.Notification, error) {
	n.ID = common.NewUUID()
	n.CreatedAt = time.Now().UTC()
	if n.Data == nil {
		n.Data = map[string]any{}
	}
	data, err := json.Marshal(n.Data)
	if err != nil {
		return nil, common.NewError(common.CodeInternal, "failed to encode notification data", err)
	}
	_, err = r.db.ExecContext(ctx, `INSERT INTO notifications (id, recipient_user_id, recipient_role, type, title, body, data, read, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		n.ID, n.RecipientID, n.RecipientRole, n.Type, n.Title, n.Body, data, n.Read, n.CreatedAt)
	if err != nil {
		return nil, common.NewError(common.CodeInternal, "failed to create notification", err)
	}
	return &n, nil
}

func (r *NotificationRepository) ListByRecipient(ctx context.Context, recipientID common.UUID, limit, offset int) ([]notification.Notification, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, recipient_user_id, recipient_role, type, title, body, data, read, created_at
		FROM notifications WHERE recipient_user_id = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3`, recipientID, limit, offset)
	if err != nil {
		return nil, common.NewError(common.CodeInternal, "failed to list notifications", err)
	}
	defer rows.Close()
	var items []notification.Notification
	for rows.Next() {
		var (
			n    notification.Notification
			data []byte
		)
		if err := rows.Scan(&n.ID, &n.RecipientID, &n.RecipientRole, &n.Type, &n.Title, &n.Body, &data, &n.Read, &n.CreatedAt); err != nil {
			return nil, common.NewError(common.CodeInternal, "failed to scan notification", err)
		}
		if err := json.Unmarshal(data, &n.Data); err != nil {
			return nil, common.NewError(common.CodeInternal, "failed to decode notification data", err)
		}
		items = append(items, n)
	}
	return items, nil
}

// MarkRead is scoped to the recipient so one user cannot ack another's
// notifications.
func (r *NotificationRepository) MarkRead(ctx context.Context, recipientID, id common.UUID) error {
	result, err := r.db.ExecContext(ctx, `UPDATE notifications SET read = TRUE WHERE id = $1 AND recipient_user_id = $2`, id, recipientID)
	if err != nil {
		return common.NewError(common.CodeInternal, "failed to mark notification read", err)
	}
	rows, err := result.RowsAffected()
	if err == nil && rows == 0 {
		return common.NewError(common.CodeNotFound, "notification not found", sql.ErrNoRows)
	}
	return nil
}
