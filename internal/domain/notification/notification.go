package notification

import (
	"context"
	"time"

	"stagelink/internal/common"
	"stagelink/internal/domain/principal"
)

type Notification struct {
	ID            common.UUID    `json:"id"`
	RecipientID   common.UUID    `json:"recipient_user_id"`
	RecipientRole principal.Role `json:"recipient_role"`
	Type          string         `json:"type"`
	Title         string         `json:"title"`
	Body          string         `json:"body,omitempty"`
	Data          map[string]any `json:"data,omitempty"`
	Read          bool           `json:"read"`
	CreatedAt     time.Time      `json:"created_at"`
}

type Repository interface {
	Create(ctx context.Context, n Notification) (*Notification, error)
	ListByRecipient(ctx context.Context, recipientID common.UUID, limit, offset int) ([]Notification, error)
	MarkRead(ctx context.Context, recipientID, id common.UUID) error
}
