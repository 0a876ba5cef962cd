package store

import (
	"context"
	"fmt"

	"github.com/duochat/duo_chat/chat"
	"github.com/duochat/duo_chat/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// BlockStore keeps directed block edges. Both directions of the toggle are
// single statements, so a failure leaves the previous state intact.
type BlockStore struct {
	db *gorm.DB
}

func NewBlockStore(db *gorm.DB) *BlockStore {
	return &BlockStore{db: db}
}

func (s *BlockStore) SetBlocked(ctx context.Context, userID, targetID string, blocked bool) error {
	blockerID, err := uuid.Parse(userID)
	if err != nil {
		return fmt.Errorf("invalid user id %q: %w", userID, err)
	}
	blockedID, err := uuid.Parse(targetID)
	if err != nil {
		return fmt.Errorf("invalid target id %q: %w", targetID, err)
	}

	if blocked {
		row := models.Block{BlockerID: blockerID, BlockedID: blockedID}
		if err := s.db.WithContext(ctx).
			Clauses(clause.OnConflict{DoNothing: true}).
			Create(&row).Error; err != nil {
			return fmt.Errorf("block %s -> %s: %w: %v", userID, targetID, chat.ErrWriteConflict, err)
		}
		return nil
	}

	if err := s.db.WithContext(ctx).
		Where("blocker_id = ? AND blocked_id = ?", blockerID, blockedID).
		Delete(&models.Block{}).Error; err != nil {
		return fmt.Errorf("unblock %s -> %s: %w: %v", userID, targetID, chat.ErrWriteConflict, err)
	}
	return nil
}

func (s *BlockStore) IsBlocked(ctx context.Context, userID, targetID string) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).
		Model(&models.Block{}).
		Where("blocker_id = ? AND blocked_id = ?", userID, targetID).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("block lookup %s -> %s: %w", userID, targetID, err)
	}
	return count > 0, nil
}
