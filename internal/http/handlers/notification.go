package handlers

import (
	"net/http"

	"stagelink/internal/app"
	"stagelink/internal/domain/notification"
	"stagelink/internal/http/middleware"
	"stagelink/internal/http/response"
)

type NotificationHandler struct {
	notifications *app.NotificationService
}

func NewNotificationHandler(notifications *app.NotificationService) *NotificationHandler {
	return &NotificationHandler{notifications: notifications}
}

func (h *NotificationHandler) List(w http.ResponseWriter, r *http.Request) {
	limit, offset := parsePagination(r)
	items, err := h.notifications.List(r.Context(), middleware.PrincipalFromContext(r.Context()), limit, offset)
	if err != nil {
		response.Error(w, err)
		return
	}
	if items == nil {
		items = []notification.Notification{}
	}
	response.JSON(w, http.StatusOK, items)
}

func (h *NotificationHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	id, err := idFromPath(r, 1)
	if err != nil {
		response.Error(w, err)
		return
	}
	if err := h.notifications.MarkRead(r.Context(), middleware.PrincipalFromContext(r.Context()), id); err != nil {
		response.Error(w, err)
		return
	}
	response.JSON(w, http.StatusOK, map[string]bool{"read": true})
}
