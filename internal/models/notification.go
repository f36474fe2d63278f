package models

import (
	"time"

	"gorm.io/datatypes"
)

// NotificationType enumerates the events the fan-out produces.
type NotificationType string

const (
	NotificationNewOffer             NotificationType = "new_offer"
	NotificationNewRequest           NotificationType = "new_request"
	NotificationOfferResponse        NotificationType = "offer_response"
	NotificationRequestResponse      NotificationType = "request_response"
	NotificationResponseAccepted     NotificationType = "response_accepted"
	NotificationResponseRejected     NotificationType = "response_rejected"
	NotificationResponseWithdrawn    NotificationType = "response_withdrawn"
	NotificationApplicationCompleted NotificationType = "application_completed"
	NotificationCompletionUndone     NotificationType = "completion_undone"
	NotificationEmailExchanged       NotificationType = "email_exchanged"
	NotificationConversationStarted  NotificationType = "conversation_started"
)

// Notification is owned by its recipient.
type Notification struct {
	BaseModel
	RecipientID    string            `gorm:"size:36;not null;index:idx_notification_recipient,priority:1" json:"recipientId"`
	SenderID       *string           `gorm:"size:36" json:"senderId,omitempty"`
	Type           NotificationType  `gorm:"size:40;not null" json:"type"`
	Title          string            `gorm:"size:255;not null" json:"title"`
	Message        string            `gorm:"type:text" json:"message"`
	ListingKind    ListingKind       `gorm:"size:10" json:"listingKind,omitempty"`
	ListingID      *string           `gorm:"size:36;index" json:"listingId,omitempty"`
	ResponseID     *string           `gorm:"size:36" json:"responseId,omitempty"`
	ConversationID *string           `gorm:"size:36" json:"conversationId,omitempty"`
	IsRead         bool              `gorm:"default:false;index:idx_notification_recipient,priority:2" json:"isRead"`
	ReadAt         *time.Time        `json:"readAt,omitempty"`
	ActionURL      string            `gorm:"size:255" json:"actionUrl,omitempty"`
	Metadata       datatypes.JSONMap `json:"metadata,omitempty"`
}
