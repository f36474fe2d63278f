package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/samber/lo"
	"gorm.io/gorm"

	"skillswap-server/internal/models"
)

// ConversationSummary is one row of a user's inbox.
type ConversationSummary struct {
	Conversation models.Conversation `json:"conversation"`
	Counterpart  *models.UserSummary `json:"counterpart,omitempty"`
	LastMessage  *models.Message     `json:"lastMessage,omitempty"`
	UnreadCount  int64               `json:"unreadCount"`
}

type unreadRow struct {
	ConversationID string
	Total          int64
}

// ConversationService bootstraps and serves the conversation of a response.
type ConversationService struct {
	db       *gorm.DB
	listings ListingStore
	notifier Notifier
	logger   *slog.Logger
}

// NewConversationService creates a ConversationService.
func NewConversationService(db *gorm.DB, listings ListingStore, notifier Notifier, logger *slog.Logger) *ConversationService {
	return &ConversationService{db: db, listings: listings, notifier: notifier, logger: logger}
}

// GetOrCreate returns the conversation of responseID, creating it on first use.
// Creation is an insert guarded by the unique application_id index: a caller
// that loses the race reads back the winner's record instead of failing.
func (s *ConversationService) GetOrCreate(ctx context.Context, responseID, requesterID string) (*models.Conversation, error) {
	var resp models.Response
	if err := s.db.WithContext(ctx).First(&resp, "id = ?", responseID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFound("response", responseID)
		}
		return nil, fmt.Errorf("failed to load response %s: %w", responseID, err)
	}
	listing, err := s.listings.GetListing(ctx, resp.Target())
	if err != nil {
		return nil, err
	}
	if !isParty(&resp, listing, requesterID) {
		return nil, fmt.Errorf("start conversation on response %s: %w", responseID, ErrUnauthorized)
	}

	conv, err := s.findByApplication(ctx, responseID)
	if err != nil || conv != nil {
		return conv, err
	}

	if resp.Status != models.ResponsePending && resp.Status != models.ResponseAccepted {
		return nil, fmt.Errorf("cannot message on a %s response: %w", resp.Status, ErrInvalidTransition)
	}

	conv = &models.Conversation{
		ApplicantID:   resp.ApplicantID,
		OwnerID:       listing.UserID,
		ApplicationID: resp.ID,
		ItemType:      listing.Kind,
		ItemID:        listing.ID,
		ItemTitle:     listing.Title,
	}
	if err := s.db.WithContext(ctx).Create(conv).Error; err != nil {
		if !models.IsDuplicateKeyError(err) {
			return nil, fmt.Errorf("failed to create conversation for response %s: %w", responseID, err)
		}
		winner, err := s.findByApplication(ctx, responseID)
		if err != nil {
			return nil, err
		}
		if winner == nil {
			return nil, fmt.Errorf("conversation for response %s vanished after conflict", responseID)
		}
		return winner, nil
	}

	if err := s.notifier.OnConnectionEvent(ctx, ConnectionEvent{
		ResponseEvent:  ResponseEvent{Response: &resp, Listing: listing, ActorID: requesterID},
		Type:           models.NotificationConversationStarted,
		ConversationID: conv.ID,
	}); err != nil {
		s.logger.Warn("notification failed", "event", "conversation started", "conversation", conv.ID, "error", err)
	}
	return conv, nil
}

func (s *ConversationService) findByApplication(ctx context.Context, responseID string) (*models.Conversation, error) {
	var conv models.Conversation
	err := s.db.WithContext(ctx).Where("application_id = ?", responseID).First(&conv).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to look up conversation for response %s: %w", responseID, err)
	}
	return &conv, nil
}

// Get returns a conversation to one of its participants.
func (s *ConversationService) Get(ctx context.Context, conversationID, userID string) (*models.Conversation, error) {
	var conv models.Conversation
	if err := s.db.WithContext(ctx).First(&conv, "id = ?", conversationID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFound("conversation", conversationID)
		}
		return nil, fmt.Errorf("failed to load conversation %s: %w", conversationID, err)
	}
	if !conv.HasParticipant(userID) {
		return nil, fmt.Errorf("conversation %s: %w", conversationID, ErrUnauthorized)
	}
	return &conv, nil
}

// ListForUser returns userID's conversations, most recently active first.
func (s *ConversationService) ListForUser(ctx context.Context, userID string) ([]ConversationSummary, error) {
	var convs []models.Conversation
	err := s.db.WithContext(ctx).
		Where("applicant_id = ? OR owner_id = ?", userID, userID).
		Order("last_message_at desc").
		Order("created_at desc").
		Find(&convs).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list conversations: %w", err)
	}
	if len(convs) == 0 {
		return []ConversationSummary{}, nil
	}

	counterpartIDs := lo.Uniq(lo.Map(convs, func(c models.Conversation, _ int) string { return c.Other(userID) }))
	var users []models.User
	if err := s.db.WithContext(ctx).Where("id IN ?", counterpartIDs).Find(&users).Error; err != nil {
		return nil, fmt.Errorf("failed to load conversation participants: %w", err)
	}
	usersByID := lo.KeyBy(users, func(u models.User) string { return u.ID })

	lastIDs := lo.FilterMap(convs, func(c models.Conversation, _ int) (string, bool) {
		return lo.FromPtr(c.LastMessageID), c.LastMessageID != nil
	})
	var lastMessages []models.Message
	if len(lastIDs) > 0 {
		if err := s.db.WithContext(ctx).Where("id IN ?", lastIDs).Find(&lastMessages).Error; err != nil {
			return nil, fmt.Errorf("failed to load last messages: %w", err)
		}
	}
	messagesByID := lo.KeyBy(lastMessages, func(m models.Message) string { return m.ID })

	var unread []unreadRow
	err = s.db.WithContext(ctx).Model(&models.Message{}).
		Select("conversation_id, COUNT(*) AS total").
		Where("receiver_id = ? AND is_read = ?", userID, false).
		Group("conversation_id").
		Scan(&unread).Error
	if err != nil {
		return nil, fmt.Errorf("failed to count unread messages: %w", err)
	}
	unreadByConv := lo.SliceToMap(unread, func(u unreadRow) (string, int64) {
		return u.ConversationID, u.Total
	})

	return lo.Map(convs, func(c models.Conversation, _ int) ConversationSummary {
		summary := ConversationSummary{Conversation: c, UnreadCount: unreadByConv[c.ID]}
		if u, ok := usersByID[c.Other(userID)]; ok {
			summary.Counterpart = lo.ToPtr(u.Summary())
		}
		if c.LastMessageID != nil {
			if m, ok := messagesByID[*c.LastMessageID]; ok {
				summary.LastMessage = &m
			}
		}
		return summary
	}), nil
}
