package models

import (
	"time"

	"gorm.io/gorm"
)

// Conversation is the messaging channel bootstrapped for a single response.
// ApplicationID is unique so a response never has two conversations.
type Conversation struct {
	BaseModel
	ApplicantID   string      `gorm:"size:36;index;not null" json:"-"`
	OwnerID       string      `gorm:"size:36;index;not null" json:"-"`
	ApplicationID string      `gorm:"size:36;uniqueIndex;not null" json:"applicationId"`
	ItemType      ListingKind `gorm:"size:10" json:"itemType"`
	ItemID        string      `gorm:"size:36" json:"itemId"`
	ItemTitle     string      `gorm:"size:200" json:"itemTitle"`
	LastMessageID *string     `gorm:"size:36" json:"lastMessageId,omitempty"`
	LastMessageAt *time.Time  `gorm:"index" json:"lastMessageAt,omitempty"`
	MessageCount  int64       `gorm:"not null;default:0" json:"messageCount"`

	Participants []string `gorm:"-" json:"participants"`
}

// AfterFind exposes the two participant columns as a list.
func (c *Conversation) AfterFind(tx *gorm.DB) error {
	c.Participants = []string{c.ApplicantID, c.OwnerID}
	return nil
}

// AfterCreate mirrors AfterFind so freshly created records look the same.
func (c *Conversation) AfterCreate(tx *gorm.DB) error {
	c.Participants = []string{c.ApplicantID, c.OwnerID}
	return nil
}

// HasParticipant reports whether userID is one of the two participants.
func (c *Conversation) HasParticipant(userID string) bool {
	return userID != "" && (c.ApplicantID == userID || c.OwnerID == userID)
}

// Other returns the participant that is not userID.
func (c *Conversation) Other(userID string) string {
	if c.ApplicantID == userID {
		return c.OwnerID
	}
	return c.ApplicantID
}
