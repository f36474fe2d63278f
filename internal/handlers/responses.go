package handlers

import (
	"context"
	"log/slog"

	"github.com/gin-gonic/gin"

	"skillswap-server/internal/models"
	"skillswap-server/internal/services"
	"skillswap-server/internal/utils"
)

// ResponseHandler handles the lifecycle of a response once it exists.
type ResponseHandler struct {
	responses     *services.ResponseService
	conversations *services.ConversationService
	logger        *slog.Logger
}

// NewResponseHandler creates a new ResponseHandler.
func NewResponseHandler(responses *services.ResponseService, conversations *services.ConversationService, logger *slog.Logger) *ResponseHandler {
	return &ResponseHandler{responses: responses, conversations: conversations, logger: logger}
}

// UpdateStatusRequest represents the request body for accepting or rejecting a response.
type UpdateStatusRequest struct {
	Status string `json:"status" binding:"required,oneof=accepted rejected"`
}

// responseAction is a ledger operation keyed by response and actor.
type responseAction func(ctx context.Context, responseID, actorID string) (*models.Response, error)

// run executes action for the current user on the :id response.
func (h *ResponseHandler) run(c *gin.Context, action responseAction, message string) {
	id, ok := utils.ParamID(c, "id")
	if !ok {
		return
	}
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	resp, err := action(c.Request.Context(), id, userID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	utils.Success(c, message, resp)
}

// GetMine handles fetching the responses the current user has made.
func (h *ResponseHandler) GetMine(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	responses, err := h.responses.ListForApplicant(c.Request.Context(), userID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	utils.Success(c, "Responses fetched successfully", responses)
}

// GetByID handles fetching one response by either of its parties.
func (h *ResponseHandler) GetByID(c *gin.Context) {
	h.run(c, h.responses.Get, "Response fetched successfully")
}

// UpdateStatus handles the listing owner accepting or rejecting a response.
func (h *ResponseHandler) UpdateStatus(c *gin.Context) {
	var req UpdateStatusRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}
	status := models.ResponseStatus(req.Status)
	h.run(c, func(ctx context.Context, responseID, actorID string) (*models.Response, error) {
		return h.responses.SetStatus(ctx, responseID, actorID, status)
	}, "Response "+req.Status+" successfully")
}

// Withdraw handles the applicant retracting a pending response.
func (h *ResponseHandler) Withdraw(c *gin.Context) {
	h.run(c, h.responses.Withdraw, "Response withdrawn successfully")
}

// Complete handles marking an accepted response as completed.
func (h *ResponseHandler) Complete(c *gin.Context) {
	h.run(c, h.responses.Complete, "Response marked as completed")
}

// UndoComplete handles reverting a completion.
func (h *ResponseHandler) UndoComplete(c *gin.Context) {
	h.run(c, h.responses.UndoComplete, "Completion undone successfully")
}

// MarkEmailExchanged handles flagging that both parties exchanged emails.
func (h *ResponseHandler) MarkEmailExchanged(c *gin.Context) {
	h.run(c, h.responses.MarkEmailExchanged, "Email exchange recorded")
}

// StartConversation handles opening, or reopening, the conversation of a response.
func (h *ResponseHandler) StartConversation(c *gin.Context) {
	id, ok := utils.ParamID(c, "id")
	if !ok {
		return
	}
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	conv, err := h.conversations.GetOrCreate(c.Request.Context(), id, userID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	utils.Success(c, "Conversation ready", conv)
}
