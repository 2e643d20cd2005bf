package notify

import (
	"context"

	"go.uber.org/zap"

	"stagelink/internal/common"
	"stagelink/internal/domain/notification"
	"stagelink/internal/domain/principal"
)

// Notifier delivers one notification to one recipient. Callers treat it as
// fire-and-forget; the dispatcher swallows every error.
type Notifier interface {
	Notify(ctx context.Context, recipientID common.UUID, role principal.Role, eventType, title, body string, data map[string]any) error
}

// InboxNotifier persists notifications to the recipient's inbox. Email or
// push fan-out would hang off the same interface.
type InboxNotifier struct {
	repo notification.Repository
	log  *zap.SugaredLogger
}

func NewInboxNotifier(repo notification.Repository, log *zap.SugaredLogger) *InboxNotifier {
	return &InboxNotifier{repo: repo, log: log}
}

func (n *InboxNotifier) Notify(ctx context.Context, recipientID common.UUID, role principal.Role, eventType, title, body string, data map[string]any) error {
	_, err := n.repo.Create(ctx, notification.Notification{
		RecipientID:   recipientID,
		RecipientRole: role,
		Type:          eventType,
		Title:         title,
		Body:          body,
		Data:          data,
	})
	if err != nil {
		return err
	}
	n.log.Debugw("notification stored", "recipient", recipientID.String(), "type", eventType)
	return nil
}
