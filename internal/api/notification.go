package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/lalith-99/huddle/internal/middleware"
	"github.com/lalith-99/huddle/internal/service"
	"go.uber.org/zap"
)

type NotificationHandler struct {
	svc    *service.Service
	logger *zap.Logger
}

func NewNotificationHandler(svc *service.Service, logger *zap.Logger) *NotificationHandler {
	return &NotificationHandler{svc: svc, logger: logger}
}

// List handles GET /v1/notifications?limit=
func (h *NotificationHandler) List(c *gin.Context) {
	rows, err := h.svc.ListNotifications(c.Request.Context(), middleware.GetUserID(c), queryInt(c, "limit"))
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, rows)
}

// MarkRead handles POST /v1/notifications/:id/read
func (h *NotificationHandler) MarkRead(c *gin.Context) {
	id, valid := pathID(c, "id")
	if !valid {
		return
	}
	if err := h.svc.MarkNotificationRead(c.Request.Context(), middleware.GetUserID(c), id); err != nil {
		fail(c, err)
		return
	}
	okMessage(c, "Notification marked as read")
}

// MarkAllRead handles POST /v1/notifications/read-all
func (h *NotificationHandler) MarkAllRead(c *gin.Context) {
	if err := h.svc.MarkAllNotificationsRead(c.Request.Context(), middleware.GetUserID(c)); err != nil {
		fail(c, err)
		return
	}
	okMessage(c, "All notifications marked as read")
}

// Delete handles DELETE /v1/notifications/:id
func (h *NotificationHandler) Delete(c *gin.Context) {
	id, valid := pathID(c, "id")
	if !valid {
		return
	}
	if err := h.svc.DeleteNotification(c.Request.Context(), middleware.GetUserID(c), id); err != nil {
		fail(c, err)
		return
	}
	okMessage(c, "Notification deleted")
}

// Clear handles DELETE /v1/notifications
func (h *NotificationHandler) Clear(c *gin.Context) {
	if err := h.svc.ClearNotifications(c.Request.Context(), middleware.GetUserID(c)); err != nil {
		fail(c, err)
		return
	}
	okMessage(c, "Notifications cleared")
}
