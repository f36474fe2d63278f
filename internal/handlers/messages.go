package handlers

import (
	"log/slog"

	"github.com/gin-gonic/gin"

	"skillswap-server/internal/services"
	"skillswap-server/internal/utils"
)

// MessageHandler handles conversations and the messages exchanged in them.
type MessageHandler struct {
	conversations *services.ConversationService
	messages      *services.MessageService
	logger        *slog.Logger
}

// NewMessageHandler creates a new MessageHandler.
func NewMessageHandler(conversations *services.ConversationService, messages *services.MessageService, logger *slog.Logger) *MessageHandler {
	return &MessageHandler{conversations: conversations, messages: messages, logger: logger}
}

// SendMessageRequest represents the request body for sending a message.
type SendMessageRequest struct {
	Content string `json:"content" binding:"required"`
}

// GetConversations handles fetching the current user's conversations.
func (h *MessageHandler) GetConversations(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	summaries, err := h.conversations.ListForUser(c.Request.Context(), userID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	unread, err := h.messages.UnreadCount(c.Request.Context(), userID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	utils.Success(c, "Conversations fetched successfully", gin.H{
		"conversations": summaries,
		"unreadCount":   unread,
	})
}

// GetMessages handles fetching a page of a conversation. Messages addressed to
// the caller are marked as read.
func (h *MessageHandler) GetMessages(c *gin.Context) {
	id, ok := utils.ParamID(c, "id")
	if !ok {
		return
	}
	var page services.Page
	if err := c.ShouldBindQuery(&page); err != nil {
		utils.BadRequest(c, "Invalid pagination: "+err.Error())
		return
	}
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	messages, err := h.messages.Fetch(c.Request.Context(), id, userID, page)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	utils.Success(c, "Messages fetched successfully", messages)
}

// SendMessage handles posting a message to a conversation.
func (h *MessageHandler) SendMessage(c *gin.Context) {
	id, ok := utils.ParamID(c, "id")
	if !ok {
		return
	}
	var req SendMessageRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	msg, err := h.messages.Send(c.Request.Context(), id, userID, req.Content)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	utils.Created(c, "Message sent successfully", msg)
}
