package handlers

import (
	"log/slog"

	"github.com/gin-gonic/gin"

	"skillswap-server/internal/services"
	"skillswap-server/internal/utils"
)

// NotificationHandler serves the current user's notification inbox.
type NotificationHandler struct {
	notifications *services.NotificationService
	logger        *slog.Logger
}

// NewNotificationHandler creates a new NotificationHandler.
func NewNotificationHandler(notifications *services.NotificationService, logger *slog.Logger) *NotificationHandler {
	return &NotificationHandler{notifications: notifications, logger: logger}
}

// ListNotificationsQuery represents the query string of the inbox listing.
type ListNotificationsQuery struct {
	services.Page
	Unread bool `form:"unread"`
}

// List handles fetching the inbox, newest first.
func (h *NotificationHandler) List(c *gin.Context) {
	var query ListNotificationsQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		utils.BadRequest(c, "Invalid query: "+err.Error())
		return
	}
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	items, total, err := h.notifications.List(c.Request.Context(), userID, query.Unread, query.Page)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	utils.Success(c, "Notifications fetched successfully", gin.H{
		"notifications": items,
		"total":         total,
	})
}

// UnreadCount handles fetching the number of unread notifications.
func (h *NotificationHandler) UnreadCount(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	count, err := h.notifications.UnreadCount(c.Request.Context(), userID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	utils.Success(c, "Unread count fetched successfully", gin.H{"count": count})
}

// MarkRead handles marking one notification as read.
func (h *NotificationHandler) MarkRead(c *gin.Context) {
	id, ok := utils.ParamID(c, "id")
	if !ok {
		return
	}
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	n, err := h.notifications.MarkRead(c.Request.Context(), id, userID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	utils.Success(c, "Notification marked as read", n)
}

// MarkAllRead handles marking every notification as read.
func (h *NotificationHandler) MarkAllRead(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	changed, err := h.notifications.MarkAllRead(c.Request.Context(), userID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	utils.Success(c, "All notifications marked as read", gin.H{"updated": changed})
}

// Delete handles removing one notification.
func (h *NotificationHandler) Delete(c *gin.Context) {
	id, ok := utils.ParamID(c, "id")
	if !ok {
		return
	}
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	if err := h.notifications.Delete(c.Request.Context(), id, userID); err != nil {
		respondError(c, h.logger, err)
		return
	}
	utils.Success(c, "Notification deleted successfully", nil)
}
