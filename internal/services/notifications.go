package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/samber/lo"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"skillswap-server/internal/config"
	"skillswap-server/internal/models"
)

// Notifier derives notifications from domain events. It never deduplicates:
// each call persists new records, so callers invoke it once per successful
// mutation.
type Notifier interface {
	OnListingCreated(ctx context.Context, listing *models.Listing, excludeUserID string) FanoutReport
	OnResponseCreated(ctx context.Context, ev ResponseEvent) error
	OnStatusChanged(ctx context.Context, ev ResponseEvent) error
	OnConnectionEvent(ctx context.Context, ev ConnectionEvent) error
}

// ResponseEvent describes a response mutation performed by ActorID.
type ResponseEvent struct {
	Response *models.Response
	Listing  *models.Listing
	ActorID  string
}

// ConnectionEvent is a response event that brings the two parties closer:
// a completion, an email exchange or a new conversation.
type ConnectionEvent struct {
	ResponseEvent
	Type           models.NotificationType
	ConversationID string
}

// FanoutReport summarises a best-effort broadcast.
type FanoutReport struct {
	Recipients int   `json:"recipients"`
	Created    int   `json:"created"`
	Failed     int   `json:"failed"`
	Err        error `json:"-"`
}

// NotificationService persists notifications and serves a recipient's inbox.
type NotificationService struct {
	db     *gorm.DB
	users  UserDirectory
	cfg    config.NotificationsConfig
	logger *slog.Logger
}

// NewNotificationService creates a NotificationService.
func NewNotificationService(db *gorm.DB, users UserDirectory, cfg config.NotificationsConfig, logger *slog.Logger) *NotificationService {
	if cfg.FanoutBatchSize <= 0 {
		cfg.FanoutBatchSize = 200
	}
	return &NotificationService{db: db, users: users, cfg: cfg, logger: logger}
}

// OnListingCreated notifies every user except the creator about a new listing.
// Users are streamed from the directory and inserted batch by batch; a failed
// batch is logged and counted, the remaining batches still run.
func (s *NotificationService) OnListingCreated(ctx context.Context, listing *models.Listing, excludeUserID string) FanoutReport {
	typ, title, verb := models.NotificationNewOffer, "New skill offer", "is offering"
	if listing.Kind == models.ListingRequest {
		typ, title, verb = models.NotificationNewRequest, "New skill request", "is looking for"
	}
	text := fmt.Sprintf("%s %s: %s", s.displayName(ctx, excludeUserID), verb, listing.Title)
	ref := listing.Ref()

	var report FanoutReport
	err := s.users.EachUserBatch(ctx, excludeUserID, s.cfg.FanoutBatchSize, func(ids []string) error {
		batch := lo.Map(ids, func(id string, _ int) *models.Notification {
			return &models.Notification{
				RecipientID: id,
				SenderID:    lo.ToPtr(excludeUserID),
				Type:        typ,
				Title:       title,
				Message:     text,
				ListingKind: listing.Kind,
				ListingID:   lo.ToPtr(listing.ID),
				ActionURL:   ref.Path(),
			}
		})
		report.Recipients += len(batch)
		if err := s.db.WithContext(ctx).CreateInBatches(batch, len(batch)).Error; err != nil {
			report.Failed += len(batch)
			s.logger.Warn("listing fan-out batch failed",
				"listing", ref.String(), "batch_size", len(batch), "error", err)
			return nil
		}
		report.Created += len(batch)
		return nil
	})
	if err != nil {
		report.Err = err
		s.logger.Error("listing fan-out aborted",
			"listing", ref.String(), "created", report.Created, "error", err)
	}
	return report
}

// OnResponseCreated tells the listing owner about a new response.
func (s *NotificationService) OnResponseCreated(ctx context.Context, ev ResponseEvent) error {
	typ, title := models.NotificationOfferResponse, "New response to your offer"
	if ev.Response.ResponseType == models.ListingRequest {
		typ, title = models.NotificationRequestResponse, "New response to your request"
	}
	return s.notifyCounterpart(ctx, ev, typ, title,
		fmt.Sprintf("%s responded to %q", s.displayName(ctx, ev.ActorID), ev.Listing.Title),
		"/responses/"+ev.Response.ID, "")
}

// OnStatusChanged tells the other party that the response changed state.
func (s *NotificationService) OnStatusChanged(ctx context.Context, ev ResponseEvent) error {
	name := s.displayName(ctx, ev.ActorID)
	var (
		typ   models.NotificationType
		title string
		text  string
	)
	switch ev.Response.Status {
	case models.ResponseAccepted:
		typ, title = models.NotificationResponseAccepted, "Your response was accepted"
		text = fmt.Sprintf("%s accepted your response to %q", name, ev.Listing.Title)
	case models.ResponseRejected:
		typ, title = models.NotificationResponseRejected, "Your response was declined"
		text = fmt.Sprintf("%s declined your response to %q", name, ev.Listing.Title)
	case models.ResponseWithdrawn:
		typ, title = models.NotificationResponseWithdrawn, "A response was withdrawn"
		text = fmt.Sprintf("%s withdrew their response to %q", name, ev.Listing.Title)
	default:
		return fmt.Errorf("no notification for response status %q", ev.Response.Status)
	}
	return s.notifyCounterpart(ctx, ev, typ, title, text, "/responses/"+ev.Response.ID, "")
}

// OnConnectionEvent tells the other party about a completion, an email exchange or a new conversation.
func (s *NotificationService) OnConnectionEvent(ctx context.Context, ev ConnectionEvent) error {
	name := s.displayName(ctx, ev.ActorID)
	actionURL := "/responses/" + ev.Response.ID
	var title, text string
	switch ev.Type {
	case models.NotificationApplicationCompleted:
		title = "Skill swap completed"
		text = fmt.Sprintf("%s marked %q as completed", name, ev.Listing.Title)
	case models.NotificationCompletionUndone:
		title = "Completion undone"
		text = fmt.Sprintf("%s reopened %q", name, ev.Listing.Title)
	case models.NotificationEmailExchanged:
		title = "Contact details shared"
		text = fmt.Sprintf("%s marked emails as exchanged for %q", name, ev.Listing.Title)
	case models.NotificationConversationStarted:
		title = "New conversation"
		text = fmt.Sprintf("%s started a conversation about %q", name, ev.Listing.Title)
		actionURL = "/messages/" + ev.ConversationID
	default:
		return fmt.Errorf("unsupported connection event %q", ev.Type)
	}
	return s.notifyCounterpart(ctx, ev.ResponseEvent, ev.Type, title, text, actionURL, ev.ConversationID)
}

func (s *NotificationService) notifyCounterpart(ctx context.Context, ev ResponseEvent, typ models.NotificationType, title, text, actionURL, conversationID string) error {
	n := &models.Notification{
		RecipientID: counterpart(ev.Response, ev.Listing.UserID, ev.ActorID),
		SenderID:    lo.ToPtr(ev.ActorID),
		Type:        typ,
		Title:       title,
		Message:     text,
		ListingKind: ev.Listing.Kind,
		ListingID:   lo.ToPtr(ev.Listing.ID),
		ResponseID:  lo.ToPtr(ev.Response.ID),
		ActionURL:   actionURL,
		Metadata: datatypes.JSONMap{
			"responseStatus": string(ev.Response.Status),
			"isCompleted":    ev.Response.IsCompleted,
		},
	}
	if conversationID != "" {
		n.ConversationID = lo.ToPtr(conversationID)
	}
	if err := s.db.WithContext(ctx).Create(n).Error; err != nil {
		return fmt.Errorf("failed to create %s notification: %w", typ, err)
	}
	return nil
}

// counterpart is the party of a response that is not the actor.
func counterpart(resp *models.Response, ownerID, actorID string) string {
	if actorID == resp.ApplicantID {
		return ownerID
	}
	return resp.ApplicantID
}

func (s *NotificationService) displayName(ctx context.Context, userID string) string {
	user, err := s.users.GetUser(ctx, userID)
	if err != nil {
		return "Someone"
	}
	return user.DisplayName()
}

// List returns the recipient's notifications, newest first, and the total matching count.
func (s *NotificationService) List(ctx context.Context, userID string, unreadOnly bool, page Page) ([]models.Notification, int64, error) {
	page = page.normalize(20)
	inbox := func() *gorm.DB {
		query := s.db.WithContext(ctx).Model(&models.Notification{}).Where("recipient_id = ?", userID)
		if unreadOnly {
			query = query.Where("is_read = ?", false)
		}
		return query
	}
	var total int64
	if err := inbox().Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count notifications: %w", err)
	}
	var items []models.Notification
	err := inbox().Order("created_at desc").Order("id desc").
		Offset(page.offset()).Limit(page.Limit).
		Find(&items).Error
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list notifications: %w", err)
	}
	return items, total, nil
}

// UnreadCount returns how many unread notifications userID has.
func (s *NotificationService) UnreadCount(ctx context.Context, userID string) (int64, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&models.Notification{}).
		Where("recipient_id = ? AND is_read = ?", userID, false).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count unread notifications: %w", err)
	}
	return count, nil
}

// MarkRead flags one of userID's notifications as read.
func (s *NotificationService) MarkRead(ctx context.Context, notificationID, userID string) (*models.Notification, error) {
	n, err := s.owned(ctx, notificationID, userID)
	if err != nil {
		return nil, err
	}
	if n.IsRead {
		return n, nil
	}
	now := time.Now().UTC()
	if err := s.db.WithContext(ctx).Model(n).Updates(map[string]any{"is_read": true, "read_at": now}).Error; err != nil {
		return nil, fmt.Errorf("failed to mark notification %s read: %w", notificationID, err)
	}
	n.IsRead, n.ReadAt = true, &now
	return n, nil
}

// MarkAllRead flags every unread notification of userID as read and returns how many changed.
func (s *NotificationService) MarkAllRead(ctx context.Context, userID string) (int64, error) {
	res := s.db.WithContext(ctx).Model(&models.Notification{}).
		Where("recipient_id = ? AND is_read = ?", userID, false).
		Updates(map[string]any{"is_read": true, "read_at": time.Now().UTC()})
	if res.Error != nil {
		return 0, fmt.Errorf("failed to mark notifications read: %w", res.Error)
	}
	return res.RowsAffected, nil
}

// Delete removes one of userID's notifications.
func (s *NotificationService) Delete(ctx context.Context, notificationID, userID string) error {
	n, err := s.owned(ctx, notificationID, userID)
	if err != nil {
		return err
	}
	if err := s.db.WithContext(ctx).Delete(n).Error; err != nil {
		return fmt.Errorf("failed to delete notification %s: %w", notificationID, err)
	}
	return nil
}

// owned loads a notification addressed to userID. Someone else's notification is reported as missing.
func (s *NotificationService) owned(ctx context.Context, notificationID, userID string) (*models.Notification, error) {
	var n models.Notification
	err := s.db.WithContext(ctx).
		Where("id = ? AND recipient_id = ?", notificationID, userID).
		First(&n).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFound("notification", notificationID)
		}
		return nil, fmt.Errorf("failed to load notification %s: %w", notificationID, err)
	}
	return &n, nil
}
