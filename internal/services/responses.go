package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"gorm.io/gorm"

	"skillswap-server/internal/config"
	"skillswap-server/internal/models"
)

// Bootstrapper opens the conversation tied to a response.
type Bootstrapper interface {
	GetOrCreate(ctx context.Context, responseID, requesterID string) (*models.Conversation, error)
}

// ApplyInput is the applicant-supplied part of a response.
type ApplyInput struct {
	Message          string
	Availability     string
	ProposedTimeline string
	ContactInfo      models.ContactInfo
}

// ListingResponses is the owner's view of the responses to one listing.
type ListingResponses struct {
	Listing   *models.Listing                 `json:"listing"`
	Responses []models.Response               `json:"responses"`
	Counts    map[models.ResponseStatus]int64 `json:"counts"`
}

// ResponseService is the ledger of responses and their state machine.
// Every precondition is checked against a freshly read record and the write
// itself is conditional, so concurrent callers cannot both win.
type ResponseService struct {
	db           *gorm.DB
	listings     ListingStore
	users        UserDirectory
	notifier     Notifier
	bootstrapper Bootstrapper
	cfg          config.Config
	logger       *slog.Logger
	now          func() time.Time
}

// NewResponseService creates a ResponseService. bootstrapper may be nil.
func NewResponseService(db *gorm.DB, listings ListingStore, users UserDirectory, notifier Notifier, bootstrapper Bootstrapper, cfg config.Config, logger *slog.Logger) *ResponseService {
	return &ResponseService{
		db:           db,
		listings:     listings,
		users:        users,
		notifier:     notifier,
		bootstrapper: bootstrapper,
		cfg:          cfg,
		logger:       logger,
		now:          func() time.Time { return time.Now().UTC() },
	}
}

// Apply records applicantID's response to the listing at ref.
func (s *ResponseService) Apply(ctx context.Context, applicantID string, ref models.ListingRef, in ApplyInput) (*models.Response, error) {
	if !ref.Kind.Valid() {
		return nil, invalid("responseType", "must be offer or request")
	}
	message := strings.TrimSpace(in.Message)
	if message == "" {
		return nil, invalid("message", "is required")
	}
	availability := strings.TrimSpace(in.Availability)
	if availability == "" {
		return nil, invalid("availability", "is required")
	}

	exists, err := s.users.UserExists(ctx, applicantID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, notFound("user", applicantID)
	}

	listing, err := s.listings.GetListing(ctx, ref)
	if err != nil {
		return nil, err
	}
	if listing.UserID == applicantID {
		return nil, invalid("listing", "you cannot respond to your own "+string(ref.Kind))
	}
	if listing.Status != models.ListingActive {
		return nil, invalid("listing", "is no longer accepting responses")
	}

	var existing int64
	err = s.db.WithContext(ctx).Model(&models.Response{}).
		Where("applicant_id = ? AND response_type = ? AND listing_id = ?", applicantID, ref.Kind, ref.ID).
		Count(&existing).Error
	if err != nil {
		return nil, fmt.Errorf("failed to check existing responses: %w", err)
	}
	if existing > 0 {
		return nil, fmt.Errorf("%s: %w", ref, ErrDuplicateApplication)
	}

	resp := models.NewResponse(applicantID, ref)
	resp.Message = message
	resp.Availability = availability
	resp.ProposedTimeline = strings.TrimSpace(in.ProposedTimeline)
	resp.ContactInfo.Email = strings.TrimSpace(in.ContactInfo.Email)
	resp.ContactInfo.Phone = strings.TrimSpace(in.ContactInfo.Phone)
	if in.ContactInfo.PreferredChannel != "" {
		resp.ContactInfo.PreferredChannel = in.ContactInfo.PreferredChannel
	}

	if err := s.db.WithContext(ctx).Create(resp).Error; err != nil {
		// The unique index is the authority when two applies race past the pre-check.
		if models.IsDuplicateKeyError(err) {
			return nil, fmt.Errorf("%s: %w", ref, ErrDuplicateApplication)
		}
		return nil, fmt.Errorf("failed to create response: %w", err)
	}

	s.logNotifyErr("response created", resp.ID,
		s.notifier.OnResponseCreated(ctx, ResponseEvent{Response: resp, Listing: listing, ActorID: applicantID}))
	return resp, nil
}

// SetStatus lets the listing owner accept or reject a pending response.
func (s *ResponseService) SetStatus(ctx context.Context, responseID, actorID string, newStatus models.ResponseStatus) (*models.Response, error) {
	if newStatus != models.ResponseAccepted && newStatus != models.ResponseRejected {
		return nil, fmt.Errorf("cannot set status %q: %w", newStatus, ErrInvalidTransition)
	}

	resp, listing, err := s.load(ctx, responseID)
	if err != nil {
		return nil, err
	}
	ownerID, err := s.listings.GetListingOwner(ctx, resp.Target())
	if err != nil {
		return nil, err
	}
	if ownerID != actorID {
		return nil, fmt.Errorf("only the listing owner can change a response status: %w", ErrUnauthorized)
	}
	if resp.Status != models.ResponsePending {
		return nil, fmt.Errorf("%s -> %s: %w", resp.Status, newStatus, ErrInvalidTransition)
	}

	res := s.db.WithContext(ctx).Model(&models.Response{}).
		Where("id = ? AND status = ?", resp.ID, models.ResponsePending).
		Update("status", newStatus)
	if res.Error != nil {
		return nil, fmt.Errorf("failed to update response %s: %w", resp.ID, res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, fmt.Errorf("response %s is no longer pending: %w", resp.ID, ErrInvalidTransition)
	}
	resp.Status = newStatus

	s.logNotifyErr("status changed", resp.ID,
		s.notifier.OnStatusChanged(ctx, ResponseEvent{Response: resp, Listing: listing, ActorID: actorID}))

	if newStatus == models.ResponseAccepted && s.cfg.Conversations.BootstrapOnAccept && s.bootstrapper != nil {
		if _, err := s.bootstrapper.GetOrCreate(ctx, resp.ID, actorID); err != nil {
			s.logger.Warn("conversation bootstrap on accept failed", "response", resp.ID, "error", err)
		}
	}
	return resp, nil
}

// Withdraw lets the applicant retract a pending response.
func (s *ResponseService) Withdraw(ctx context.Context, responseID, actorID string) (*models.Response, error) {
	resp, listing, err := s.load(ctx, responseID)
	if err != nil {
		return nil, err
	}
	if resp.ApplicantID != actorID {
		return nil, fmt.Errorf("only the applicant can withdraw a response: %w", ErrUnauthorized)
	}
	if resp.Status != models.ResponsePending {
		return nil, fmt.Errorf("%s -> %s: %w", resp.Status, models.ResponseWithdrawn, ErrInvalidTransition)
	}

	res := s.db.WithContext(ctx).Model(&models.Response{}).
		Where("id = ? AND status = ?", resp.ID, models.ResponsePending).
		Update("status", models.ResponseWithdrawn)
	if res.Error != nil {
		return nil, fmt.Errorf("failed to withdraw response %s: %w", resp.ID, res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, fmt.Errorf("response %s is no longer pending: %w", resp.ID, ErrInvalidTransition)
	}
	resp.Status = models.ResponseWithdrawn

	s.logNotifyErr("response withdrawn", resp.ID,
		s.notifier.OnStatusChanged(ctx, ResponseEvent{Response: resp, Listing: listing, ActorID: actorID}))
	return resp, nil
}

// Complete closes an accepted response. On an offer the applicant completes
// (the offer stays open for others); on a request the owner completes and the
// request itself becomes completed.
func (s *ResponseService) Complete(ctx context.Context, responseID, actorID string) (*models.Response, error) {
	resp, listing, err := s.load(ctx, responseID)
	if err != nil {
		return nil, err
	}
	if !isParty(resp, listing, actorID) {
		return nil, fmt.Errorf("complete response %s: %w", resp.ID, ErrUnauthorized)
	}
	if resp.IsCompleted {
		return nil, fmt.Errorf("response %s: %w", resp.ID, ErrAlreadyCompleted)
	}
	if resp.Status != models.ResponseAccepted {
		return nil, fmt.Errorf("response %s is %s: %w", resp.ID, resp.Status, ErrNotAcceptedYet)
	}
	if completerOf(resp, listing) != actorID {
		return nil, fmt.Errorf("only the %s can complete this %s: %w",
			completerRole(resp), resp.ResponseType, ErrUnauthorized)
	}

	now := s.now()
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.Response{}).
			Where("id = ? AND status = ? AND is_completed = ?", resp.ID, models.ResponseAccepted, false).
			Updates(map[string]any{
				"is_completed": true,
				"completed_at": now,
				"completed_by": actorID,
			})
		if res.Error != nil {
			return fmt.Errorf("failed to complete response %s: %w", resp.ID, res.Error)
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("response %s: %w", resp.ID, ErrAlreadyCompleted)
		}
		if resp.ResponseType == models.ListingRequest {
			return s.listings.WithTx(tx).SetListingStatus(ctx, resp.Target(), models.ListingCompleted)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	resp.IsCompleted, resp.CompletedAt, resp.CompletedBy = true, &now, actorID
	if resp.ResponseType == models.ListingRequest {
		listing.Status = models.ListingCompleted
	}

	s.logNotifyErr("application completed", resp.ID,
		s.notifier.OnConnectionEvent(ctx, ConnectionEvent{
			ResponseEvent: ResponseEvent{Response: resp, Listing: listing, ActorID: actorID},
			Type:          models.NotificationApplicationCompleted,
		}))
	return resp, nil
}

// UndoComplete reverses Complete for the same actor, within the configured undo window.
func (s *ResponseService) UndoComplete(ctx context.Context, responseID, actorID string) (*models.Response, error) {
	resp, listing, err := s.load(ctx, responseID)
	if err != nil {
		return nil, err
	}
	if !isParty(resp, listing, actorID) || completerOf(resp, listing) != actorID {
		return nil, fmt.Errorf("only the %s can undo completion of this %s: %w",
			completerRole(resp), resp.ResponseType, ErrUnauthorized)
	}
	if !resp.IsCompleted {
		return nil, fmt.Errorf("response %s is not completed: %w", resp.ID, ErrInvalidTransition)
	}
	if window := s.cfg.Responses.UndoWindow; window > 0 && resp.CompletedAt != nil && s.now().Sub(*resp.CompletedAt) > window {
		return nil, fmt.Errorf("response %s: %w", resp.ID, ErrUndoWindowElapsed)
	}

	reopened := false
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.Response{}).
			Where("id = ? AND is_completed = ?", resp.ID, true).
			Updates(map[string]any{
				"is_completed": false,
				"completed_at": nil,
				"completed_by": "",
			})
		if res.Error != nil {
			return fmt.Errorf("failed to undo completion of response %s: %w", resp.ID, res.Error)
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("response %s is not completed: %w", resp.ID, ErrInvalidTransition)
		}
		if resp.ResponseType != models.ListingRequest {
			return nil
		}
		// The request stays completed while any other swap on it still stands.
		var stillCompleted int64
		err := tx.Model(&models.Response{}).
			Where("response_type = ? AND listing_id = ? AND id <> ? AND is_completed = ?",
				resp.ResponseType, resp.ListingID, resp.ID, true).
			Count(&stillCompleted).Error
		if err != nil {
			return fmt.Errorf("failed to count completed responses of %s: %w", resp.Target(), err)
		}
		if stillCompleted > 0 {
			return nil
		}
		reopened = true
		return s.listings.WithTx(tx).SetListingStatus(ctx, resp.Target(), models.ListingActive)
	})
	if err != nil {
		return nil, err
	}
	resp.IsCompleted, resp.CompletedAt, resp.CompletedBy = false, nil, ""
	if reopened {
		listing.Status = models.ListingActive
	}

	s.logNotifyErr("completion undone", resp.ID,
		s.notifier.OnConnectionEvent(ctx, ConnectionEvent{
			ResponseEvent: ResponseEvent{Response: resp, Listing: listing, ActorID: actorID},
			Type:          models.NotificationCompletionUndone,
		}))
	return resp, nil
}

// MarkEmailExchanged records that the two parties swapped emails. Setting it again is a no-op.
func (s *ResponseService) MarkEmailExchanged(ctx context.Context, responseID, actorID string) (*models.Response, error) {
	resp, listing, err := s.load(ctx, responseID)
	if err != nil {
		return nil, err
	}
	if !isParty(resp, listing, actorID) {
		return nil, fmt.Errorf("mark email exchanged on response %s: %w", resp.ID, ErrUnauthorized)
	}
	if resp.EmailExchanged {
		return resp, nil
	}

	res := s.db.WithContext(ctx).Model(&models.Response{}).
		Where("id = ? AND email_exchanged = ?", resp.ID, false).
		Update("email_exchanged", true)
	if res.Error != nil {
		return nil, fmt.Errorf("failed to update response %s: %w", resp.ID, res.Error)
	}
	resp.EmailExchanged = true

	// Only the caller that flipped the flag notifies.
	if res.RowsAffected == 1 {
		s.logNotifyErr("email exchanged", resp.ID,
			s.notifier.OnConnectionEvent(ctx, ConnectionEvent{
				ResponseEvent: ResponseEvent{Response: resp, Listing: listing, ActorID: actorID},
				Type:          models.NotificationEmailExchanged,
			}))
	}
	return resp, nil
}

// Get returns a response to one of its two parties.
func (s *ResponseService) Get(ctx context.Context, responseID, actorID string) (*models.Response, error) {
	resp, listing, err := s.load(ctx, responseID)
	if err != nil {
		return nil, err
	}
	if !isParty(resp, listing, actorID) {
		return nil, fmt.Errorf("view response %s: %w", resp.ID, ErrUnauthorized)
	}
	return resp, nil
}

// ListForListing returns every response to a listing, newest first, to its owner.
func (s *ResponseService) ListForListing(ctx context.Context, ref models.ListingRef, actorID string) (*ListingResponses, error) {
	listing, err := s.listings.GetListing(ctx, ref)
	if err != nil {
		return nil, err
	}
	if listing.UserID != actorID {
		return nil, fmt.Errorf("only the listing owner can list its responses: %w", ErrUnauthorized)
	}

	var responses []models.Response
	err = s.db.WithContext(ctx).
		Where("response_type = ? AND listing_id = ?", ref.Kind, ref.ID).
		Order("created_at desc").
		Find(&responses).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list responses of %s: %w", ref, err)
	}

	counts, err := s.listings.CountResponses(ctx, ref)
	if err != nil {
		return nil, err
	}
	return &ListingResponses{Listing: listing, Responses: responses, Counts: counts}, nil
}

// ListForApplicant returns the responses applicantID has made, newest first.
func (s *ResponseService) ListForApplicant(ctx context.Context, applicantID string) ([]models.Response, error) {
	var responses []models.Response
	err := s.db.WithContext(ctx).
		Where("applicant_id = ?", applicantID).
		Order("created_at desc").
		Find(&responses).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list responses of applicant %s: %w", applicantID, err)
	}
	return responses, nil
}

// load reads a response together with the listing it targets.
func (s *ResponseService) load(ctx context.Context, responseID string) (*models.Response, *models.Listing, error) {
	var resp models.Response
	if err := s.db.WithContext(ctx).First(&resp, "id = ?", responseID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, notFound("response", responseID)
		}
		return nil, nil, fmt.Errorf("failed to load response %s: %w", responseID, err)
	}
	listing, err := s.listings.GetListing(ctx, resp.Target())
	if err != nil {
		return nil, nil, err
	}
	return &resp, listing, nil
}

func (s *ResponseService) logNotifyErr(event, responseID string, err error) {
	if err != nil {
		s.logger.Warn("notification failed", "event", event, "response", responseID, "error", err)
	}
}

func isParty(resp *models.Response, listing *models.Listing, userID string) bool {
	return userID != "" && (resp.ApplicantID == userID || listing.UserID == userID)
}

// completerOf returns the only user allowed to complete resp.
func completerOf(resp *models.Response, listing *models.Listing) string {
	if resp.ResponseType == models.ListingOffer {
		return resp.ApplicantID
	}
	return listing.UserID
}

func completerRole(resp *models.Response) string {
	if resp.ResponseType == models.ListingOffer {
		return "applicant"
	}
	return "requester"
}
