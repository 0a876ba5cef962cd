package models

import (
	"time"

	"github.com/google/uuid"
)

// Conversation is the anchor row for one two-party message log. Created
// lazily on first send and never deleted.
type Conversation struct {
	ID        uuid.UUID `gorm:"type:uuid;primary_key"`
	CreatedAt time.Time

	Messages []Message
}
