package app

import (
	"context"

	"stagelink/internal/common"
	"stagelink/internal/domain/notification"
	"stagelink/internal/domain/principal"
)

type NotificationService struct {
	repo notification.Repository
}

func NewNotificationService(repo notification.Repository) *NotificationService {
	return &NotificationService{repo: repo}
}

func (s *NotificationService) List(ctx context.Context, p principal.Principal, limit, offset int) ([]notification.Notification, error) {
	if p.IsAnonymous() {
		return nil, common.NewError(common.CodeUnauthorized, "authentication required", nil)
	}
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	return s.repo.ListByRecipient(ctx, p.UserID, limit, offset)
}

func (s *NotificationService) MarkRead(ctx context.Context, p principal.Principal, id common.UUID) error {
	if p.IsAnonymous() {
		return common.NewError(common.CodeUnauthorized, "authentication required", nil)
	}
	return s.repo.MarkRead(ctx, p.UserID, id)
}
