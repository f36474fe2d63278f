package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/samber/lo"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"skillswap-server/internal/config"
	"skillswap-server/internal/models"
)

// MessageService is the append-only message log of conversations.
type MessageService struct {
	db            *gorm.DB
	conversations *ConversationService
	cfg           config.MessagesConfig
	logger        *slog.Logger
	now           func() time.Time
}

// NewMessageService creates a MessageService.
func NewMessageService(db *gorm.DB, conversations *ConversationService, cfg config.MessagesConfig, logger *slog.Logger) *MessageService {
	if cfg.DefaultPageSize <= 0 {
		cfg.DefaultPageSize = 50
	}
	return &MessageService{
		db:            db,
		conversations: conversations,
		cfg:           cfg,
		logger:        logger,
		now:           func() time.Time { return time.Now().UTC() },
	}
}

// Send appends a message from senderID. The receiver is always the other
// participant, never taken from the caller.
func (s *MessageService) Send(ctx context.Context, conversationID, senderID, content string) (*models.Message, error) {
	conv, err := s.conversations.Get(ctx, conversationID, senderID)
	if err != nil {
		return nil, err
	}
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, invalid("content", "is required")
	}
	if s.cfg.MaxContentLength > 0 && utf8.RuneCountInString(content) > s.cfg.MaxContentLength {
		return nil, invalid("content", fmt.Sprintf("must be at most %d characters", s.cfg.MaxContentLength))
	}

	msg := &models.Message{
		ConversationID: conv.ID,
		SenderID:       senderID,
		ReceiverID:     conv.Other(senderID),
		Content:        content,
		ReadBy:         []models.MessageRead{},
	}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// The counter bump locks the conversation row, so concurrent sends get distinct seqs.
		err := tx.Model(&models.Conversation{}).
			Where("id = ?", conv.ID).
			UpdateColumn("message_count", gorm.Expr("message_count + ?", 1)).Error
		if err != nil {
			return fmt.Errorf("failed to reserve message seq in conversation %s: %w", conv.ID, err)
		}
		if err := tx.Model(&models.Conversation{}).
			Where("id = ?", conv.ID).
			Select("message_count").
			Scan(&msg.Seq).Error; err != nil {
			return fmt.Errorf("failed to read message seq in conversation %s: %w", conv.ID, err)
		}
		if err := tx.Create(msg).Error; err != nil {
			return fmt.Errorf("failed to store message: %w", err)
		}
		err = tx.Model(&models.Conversation{}).
			Where("id = ?", conv.ID).
			Updates(map[string]any{
				"last_message_id": msg.ID,
				"last_message_at": msg.CreatedAt,
			}).Error
		if err != nil {
			return fmt.Errorf("failed to update conversation %s: %w", conv.ID, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return msg, nil
}

// Fetch returns a page of the conversation in send order. Every unread message
// addressed to requesterID is marked read first, with one audit entry each.
func (s *MessageService) Fetch(ctx context.Context, conversationID, requesterID string, page Page) ([]models.Message, error) {
	conv, err := s.conversations.Get(ctx, conversationID, requesterID)
	if err != nil {
		return nil, err
	}
	page = page.normalize(s.cfg.DefaultPageSize)

	if err := s.markRead(ctx, conv.ID, requesterID); err != nil {
		return nil, err
	}

	var messages []models.Message
	err = s.db.WithContext(ctx).
		Preload("ReadBy").
		Where("conversation_id = ?", conv.ID).
		Order("seq asc").
		Offset(page.offset()).
		Limit(page.Limit).
		Find(&messages).Error
	if err != nil {
		return nil, fmt.Errorf("failed to fetch messages of conversation %s: %w", conv.ID, err)
	}
	return messages, nil
}

func (s *MessageService) markRead(ctx context.Context, conversationID, readerID string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var unread []string
		err := tx.Model(&models.Message{}).
			Where("conversation_id = ? AND receiver_id = ? AND is_read = ?", conversationID, readerID, false).
			Pluck("id", &unread).Error
		if err != nil {
			return fmt.Errorf("failed to find unread messages: %w", err)
		}
		if len(unread) == 0 {
			return nil
		}

		readAt := s.now()
		receipts := lo.Map(unread, func(id string, _ int) models.MessageRead {
			return models.MessageRead{MessageID: id, UserID: readerID, ReadAt: readAt}
		})
		if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&receipts).Error; err != nil {
			return fmt.Errorf("failed to record read receipts: %w", err)
		}
		err = tx.Model(&models.Message{}).
			Where("id IN ? AND is_read = ?", unread, false).
			Update("is_read", true).Error
		if err != nil {
			return fmt.Errorf("failed to mark messages read: %w", err)
		}
		s.logger.Debug("messages marked read", "conversation", conversationID, "reader", readerID, "count", len(unread))
		return nil
	})
}

// UnreadCount returns how many messages addressed to userID are unread.
func (s *MessageService) UnreadCount(ctx context.Context, userID string) (int64, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&models.Message{}).
		Where("receiver_id = ? AND is_read = ?", userID, false).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count unread messages: %w", err)
	}
	return count, nil
}
