package models

import (
	"time"
)

// Message is an append-only entry in a conversation. Seq numbers the
// messages of a conversation in send order, starting at 1.
type Message struct {
	BaseModel
	ConversationID string        `gorm:"size:36;not null;uniqueIndex:idx_message_conversation_seq,priority:1" json:"conversationId"`
	Seq            int64         `gorm:"not null;uniqueIndex:idx_message_conversation_seq,priority:2" json:"seq"`
	SenderID       string        `gorm:"size:36;index;not null" json:"senderId"`
	ReceiverID     string        `gorm:"size:36;index;not null" json:"receiverId"`
	Content        string        `gorm:"type:text;not null" json:"content"`
	IsRead         bool          `gorm:"default:false;index" json:"isRead"`
	ReadBy         []MessageRead `gorm:"foreignKey:MessageID" json:"readBy"`
}

// MessageRead is the audit entry written when a receiver reads a message.
type MessageRead struct {
	ID        uint      `gorm:"primaryKey" json:"-"`
	MessageID string    `gorm:"size:36;not null;uniqueIndex:idx_message_read,priority:1" json:"-"`
	UserID    string    `gorm:"size:36;not null;uniqueIndex:idx_message_read,priority:2" json:"user"`
	ReadAt    time.Time `json:"readAt"`
}
