package models

import (
	"time"

	"github.com/google/uuid"
)

// Message rows are append-only. Seq is a bigserial that captures true
// insertion order; created_at is informational only.
type Message struct {
	ID             uuid.UUID `gorm:"type:uuid;primary_key" json:"id"`
	Seq            int64     `gorm:"autoIncrement;uniqueIndex" json:"-"`
	ConversationID uuid.UUID `gorm:"type:uuid;not null;index" json:"conversation_id"`
	SenderID       uuid.UUID `gorm:"type:uuid;not null" json:"sender_id"`
	Text           string    `gorm:"type:text" json:"text"`
	ImgURL         *string   `gorm:"size:512" json:"img,omitempty"`

	Conversation Conversation `gorm:"foreignkey:ConversationID" json:"-"`

	CreatedAt time.Time `json:"created_at"`
}
