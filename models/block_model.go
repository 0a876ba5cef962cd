package models

import (
	"time"

	"github.com/google/uuid"
)

// Block is one directed edge in the block graph: blocker has blocked
// blocked. The unique index makes the toggle idempotent.
type Block struct {
	ID        uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	BlockerID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_blocks_pair" json:"blocker_id"`
	BlockedID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_blocks_pair" json:"blocked_id"`

	CreatedAt time.Time `json:"created_at"`
}
