package handlers

import (
	"context"
	"log/slog"

	"github.com/gin-gonic/gin"

	"skillswap-server/internal/models"
	"skillswap-server/internal/services"
	"skillswap-server/internal/utils"
)

// ListingHandler serves offers and requests and the responses made to them.
// Each route is bound to one listing kind.
type ListingHandler struct {
	listings  services.ListingStore
	notifier  services.Notifier
	responses *services.ResponseService
	logger    *slog.Logger
}

// NewListingHandler creates a new ListingHandler.
func NewListingHandler(listings services.ListingStore, notifier services.Notifier, responses *services.ResponseService, logger *slog.Logger) *ListingHandler {
	return &ListingHandler{listings: listings, notifier: notifier, responses: responses, logger: logger}
}

// CreateListingRequest represents the request body for creating an offer or a request.
type CreateListingRequest struct {
	Title       string `json:"title" binding:"required,max=200"`
	Description string `json:"description"`
	Category    string `json:"category" binding:"max=100"`
}

// ApplyRequest represents the request body for responding to a listing.
type ApplyRequest struct {
	Message          string `json:"message" binding:"required"`
	Availability     string `json:"availability" binding:"required"`
	ProposedTimeline string `json:"proposedTimeline"`
	ContactInfo      struct {
		Email            string `json:"email" binding:"omitempty,email"`
		Phone            string `json:"phone"`
		PreferredChannel string `json:"preferredChannel" binding:"omitempty,oneof=email phone platform"`
	} `json:"contactInfo"`
}

// Create handles publishing a new listing. Every other user is notified once
// the listing is stored; a failed fan-out never fails the request.
func (h *ListingHandler) Create(kind models.ListingKind) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req CreateListingRequest
		if !utils.BindAndValidate(c, &req) {
			return
		}
		userID, ok := currentUser(c)
		if !ok {
			return
		}

		listing := &models.Listing{
			Kind:        kind,
			UserID:      userID,
			Title:       req.Title,
			Description: req.Description,
			Category:    req.Category,
		}
		if err := h.listings.CreateListing(c.Request.Context(), listing); err != nil {
			respondError(c, h.logger, err)
			return
		}

		h.fanOut(context.WithoutCancel(c.Request.Context()), listing, userID)

		utils.Created(c, titleCase(kind)+" created successfully", listing)
	}
}

func (h *ListingHandler) fanOut(ctx context.Context, listing *models.Listing, creatorID string) {
	report := h.notifier.OnListingCreated(ctx, listing, creatorID)
	h.logger.Info("listing fan-out finished",
		"listing", listing.Ref().String(),
		"recipients", report.Recipients,
		"created", report.Created,
		"failed", report.Failed,
	)
}

// Delete handles removing a listing together with its responses.
func (h *ListingHandler) Delete(kind models.ListingKind) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := utils.ParamID(c, "id")
		if !ok {
			return
		}
		userID, ok := currentUser(c)
		if !ok {
			return
		}

		ref := models.ListingRef{Kind: kind, ID: id}
		if err := h.listings.DeleteListing(c.Request.Context(), ref, userID); err != nil {
			respondError(c, h.logger, err)
			return
		}
		utils.Success(c, titleCase(kind)+" deleted successfully", nil)
	}
}

// Apply handles a user responding to a listing.
func (h *ListingHandler) Apply(kind models.ListingKind) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := utils.ParamID(c, "id")
		if !ok {
			return
		}
		var req ApplyRequest
		if !utils.BindAndValidate(c, &req) {
			return
		}
		userID, ok := currentUser(c)
		if !ok {
			return
		}

		resp, err := h.responses.Apply(c.Request.Context(), userID, models.ListingRef{Kind: kind, ID: id}, services.ApplyInput{
			Message:          req.Message,
			Availability:     req.Availability,
			ProposedTimeline: req.ProposedTimeline,
			ContactInfo: models.ContactInfo{
				Email:            req.ContactInfo.Email,
				Phone:            req.ContactInfo.Phone,
				PreferredChannel: models.ContactChannel(req.ContactInfo.PreferredChannel),
			},
		})
		if err != nil {
			respondError(c, h.logger, err)
			return
		}
		utils.Created(c, "Response submitted successfully", resp)
	}
}

// ListResponses handles the owner's view of the responses to a listing.
func (h *ListingHandler) ListResponses(kind models.ListingKind) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := utils.ParamID(c, "id")
		if !ok {
			return
		}
		userID, ok := currentUser(c)
		if !ok {
			return
		}

		view, err := h.responses.ListForListing(c.Request.Context(), models.ListingRef{Kind: kind, ID: id}, userID)
		if err != nil {
			respondError(c, h.logger, err)
			return
		}
		utils.Success(c, "Responses fetched successfully", view)
	}
}

func titleCase(kind models.ListingKind) string {
	if kind == models.ListingRequest {
		return "Request"
	}
	return "Offer"
}
