package models

import (
	"time"

	"github.com/google/uuid"
)

// UserChat is one user's denormalized summary of one conversation. Each
// participant owns their own row; keying by (user_id, conversation_id) makes
// every patch an atomic single-row update.
type UserChat struct {
	UserID         uuid.UUID `gorm:"type:uuid;primaryKey" json:"user_id"`
	ConversationID uuid.UUID `gorm:"type:uuid;primaryKey" json:"conversation_id"`
	CounterpartID  uuid.UUID `gorm:"type:uuid;not null" json:"counterpart_id"`
	LastMessage    string    `gorm:"type:text" json:"last_message"`
	IsSeen         bool      `gorm:"not null;default:false" json:"is_seen"`

	Counterpart User `gorm:"foreignKey:CounterpartID" json:"counterpart"`

	UpdatedAt time.Time `json:"updated_at"`
}
