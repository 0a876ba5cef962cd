package store

import (
	"context"
	"fmt"
	"log"

	"github.com/duochat/duo_chat/chat"
	"github.com/duochat/duo_chat/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// LogStore keeps conversation logs in Postgres. Appends are single-row
// inserts, so concurrent senders can interleave but never lose a message.
type LogStore struct {
	db     *gorm.DB
	broker *chat.Broker
}

func NewLogStore(db *gorm.DB, broker *chat.Broker) *LogStore {
	return &LogStore{db: db, broker: broker}
}

func (s *LogStore) EnsureExists(ctx context.Context, conversationID string) error {
	id, err := uuid.Parse(conversationID)
	if err != nil {
		return fmt.Errorf("invalid conversation id %q: %w", conversationID, err)
	}

	conv := models.Conversation{ID: id}
	// ON CONFLICT DO NOTHING keeps this idempotent without ever touching an
	// existing log.
	if err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&conv).Error; err != nil {
		return fmt.Errorf("ensure conversation %s: %w", conversationID, err)
	}
	return nil
}

func (s *LogStore) Append(ctx context.Context, conversationID string, msg chat.Message) error {
	row, err := toRow(msg)
	if err != nil {
		return err
	}

	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return fmt.Errorf("append to conversation %s: %w: %v", conversationID, chat.ErrWriteConflict, err)
	}

	s.notify(ctx, conversationID)
	return nil
}

func (s *LogStore) Messages(ctx context.Context, conversationID string) ([]chat.Message, error) {
	var rows []models.Message
	if err := s.db.WithContext(ctx).
		Where("conversation_id = ?", conversationID).
		Order("seq asc").
		Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("load conversation %s: %w", conversationID, err)
	}

	msgs := make([]chat.Message, len(rows))
	for i, row := range rows {
		msgs[i] = fromRow(row)
	}
	return msgs, nil
}

func (s *LogStore) Subscribe(ctx context.Context, conversationID string, fn func(snapshot []chat.Message)) (chat.Unsubscribe, error) {
	// Register before the initial load so an append racing with Subscribe
	// is delivered rather than missed.
	unsub := s.broker.Subscribe(conversationID, fn)

	snapshot, err := s.Messages(ctx, conversationID)
	if err != nil {
		unsub()
		return nil, err
	}
	fn(snapshot)

	return unsub, nil
}

// notify republishes the full log after an append. Subscribers always see a
// total snapshot, never a delta.
func (s *LogStore) notify(ctx context.Context, conversationID string) {
	snapshot, err := s.Messages(ctx, conversationID)
	if err != nil {
		log.Printf("store: snapshot reload failed for conversation %s: %v", conversationID, err)
		return
	}
	s.broker.Publish(conversationID, snapshot)
}

func toRow(msg chat.Message) (models.Message, error) {
	id, err := uuid.Parse(msg.ID)
	if err != nil {
		return models.Message{}, fmt.Errorf("invalid message id %q: %w", msg.ID, err)
	}
	convID, err := uuid.Parse(msg.ConversationID)
	if err != nil {
		return models.Message{}, fmt.Errorf("invalid conversation id %q: %w", msg.ConversationID, err)
	}
	senderID, err := uuid.Parse(msg.SenderID)
	if err != nil {
		return models.Message{}, fmt.Errorf("invalid sender id %q: %w", msg.SenderID, err)
	}

	row := models.Message{
		ID:             id,
		ConversationID: convID,
		SenderID:       senderID,
		Text:           msg.Text,
		CreatedAt:      msg.CreatedAt,
	}
	if msg.Img != "" {
		img := msg.Img
		row.ImgURL = &img
	}
	return row, nil
}

func fromRow(row models.Message) chat.Message {
	msg := chat.Message{
		ID:             row.ID.String(),
		ConversationID: row.ConversationID.String(),
		SenderID:       row.SenderID.String(),
		Text:           row.Text,
		CreatedAt:      row.CreatedAt,
	}
	if row.ImgURL != nil {
		msg.Img = *row.ImgURL
	}
	return msg
}
