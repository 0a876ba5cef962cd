package store

import (
	"context"
	"fmt"
	"time"

	"github.com/duochat/duo_chat/chat"
	"github.com/duochat/duo_chat/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// IndexStore keeps per-user conversation summaries, one row per
// (user, conversation). Patches are single-row updates, so two rapid sends
// to the same conversation can no longer drop each other's patch.
type IndexStore struct {
	db *gorm.DB
}

func NewIndexStore(db *gorm.DB) *IndexStore {
	return &IndexStore{db: db}
}

func (s *IndexStore) Entries(ctx context.Context, userID string) ([]chat.IndexEntry, error) {
	var rows []models.UserChat
	if err := s.db.WithContext(ctx).
		Preload("Counterpart").
		Where("user_id = ?", userID).
		Order("updated_at desc").
		Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("load chat index for user %s: %w", userID, err)
	}

	entries := make([]chat.IndexEntry, len(rows))
	for i, row := range rows {
		entry := chat.IndexEntry{
			ConversationID: row.ConversationID.String(),
			Counterpart: chat.User{
				ID:       row.CounterpartID.String(),
				Username: row.Counterpart.Username,
			},
			LastMessage: row.LastMessage,
			IsSeen:      row.IsSeen,
			UpdatedAt:   row.UpdatedAt,
		}
		if row.Counterpart.AvatarURL != nil {
			entry.Counterpart.Avatar = *row.Counterpart.AvatarURL
		}
		entries[i] = entry
	}
	return entries, nil
}

func (s *IndexStore) UpsertEntry(ctx context.Context, userID, conversationID string, patch chat.EntryPatch) error {
	// Zero rows affected means the entry was never created; that is a
	// no-op, entries only come into existence with the conversation.
	err := s.db.WithContext(ctx).
		Model(&models.UserChat{}).
		Where("user_id = ? AND conversation_id = ?", userID, conversationID).
		UpdateColumns(map[string]interface{}{
			"last_message": patch.LastMessage,
			"is_seen":      patch.IsSeen,
			"updated_at":   patch.UpdatedAt,
		}).Error
	if err != nil {
		return fmt.Errorf("patch chat index entry %s/%s: %w", userID, conversationID, err)
	}
	return nil
}

func (s *IndexStore) MarkSeen(ctx context.Context, userID, conversationID string) error {
	// UpdateColumn so marking seen does not touch updated_at and reorder
	// the conversation list.
	err := s.db.WithContext(ctx).
		Model(&models.UserChat{}).
		Where("user_id = ? AND conversation_id = ?", userID, conversationID).
		UpdateColumn("is_seen", true).Error
	if err != nil {
		return fmt.Errorf("mark seen %s/%s: %w", userID, conversationID, err)
	}
	return nil
}

// CreatePair inserts both participants' entries for a new conversation.
// Called once at conversation creation, inside the creating transaction.
func (s *IndexStore) CreatePair(ctx context.Context, conversationID, userA, userB uuid.UUID) error {
	now := time.Now()
	rows := []models.UserChat{
		{UserID: userA, ConversationID: conversationID, CounterpartID: userB, IsSeen: true, UpdatedAt: now},
		{UserID: userB, ConversationID: conversationID, CounterpartID: userA, IsSeen: true, UpdatedAt: now},
	}
	if err := s.db.WithContext(ctx).Create(&rows).Error; err != nil {
		return fmt.Errorf("create chat index pair for conversation %s: %w", conversationID, err)
	}
	return nil
}

// FindBetween returns the existing conversation id between two users, or
// uuid.Nil when they have never chatted.
func (s *IndexStore) FindBetween(ctx context.Context, userA, userB uuid.UUID) (uuid.UUID, error) {
	var row models.UserChat
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND counterpart_id = ?", userA, userB).
		First(&row).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return uuid.Nil, nil
		}
		return uuid.Nil, fmt.Errorf("find conversation between %s and %s: %w", userA, userB, err)
	}
	return row.ConversationID, nil
}
