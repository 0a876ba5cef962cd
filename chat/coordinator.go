package chat

import (
	"context"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"
)

// SyncCoordinator runs a send as a multi-step transaction across the blob
// store, the conversation log and the two participants' index entries. The
// log append is the durability-defining step; everything after it is
// best-effort.
type SyncCoordinator struct {
	logs   LogStore
	index  IndexStore
	blocks BlockRegistry
	blobs  BlobStore
	now    func() time.Time
}

func NewSyncCoordinator(logs LogStore, index IndexStore, blocks BlockRegistry, blobs BlobStore) *SyncCoordinator {
	return &SyncCoordinator{
		logs:   logs,
		index:  index,
		blocks: blocks,
		blobs:  blobs,
		now:    time.Now,
	}
}

// SendMessage appends one message to the conversation and patches both
// participants' index entries.
//
// An empty text with no attachment is a silent no-op and returns (nil, nil).
// A blocked pair returns ErrBlocked before any write. An attachment upload
// failure aborts the whole send. Index patch failures are logged and never
// propagated: the appended message already is the source of truth.
func (s *SyncCoordinator) SendMessage(ctx context.Context, conversationID, senderID, recipientID, text string, att *Attachment) (*Message, error) {
	if strings.TrimSpace(text) == "" && att == nil {
		return nil, nil
	}

	status, err := StatusBetween(ctx, s.blocks, senderID, recipientID)
	if err != nil {
		return nil, err
	}
	if status.SendDisabled() {
		return nil, ErrBlocked
	}

	var imgURL string
	if att != nil {
		imgURL, err = s.blobs.Upload(ctx, att.Name, att.Data)
		if err != nil {
			return nil, &UploadError{Name: att.Name, Err: err}
		}
	}

	msg := Message{
		ID:             uuid.NewString(),
		ConversationID: conversationID,
		SenderID:       senderID,
		Text:           text,
		Img:            imgURL,
		CreatedAt:      s.now(),
	}

	if err := s.logs.EnsureExists(ctx, conversationID); err != nil {
		return nil, err
	}
	if err := s.logs.Append(ctx, conversationID, msg); err != nil {
		return nil, err
	}

	// Sending marks the conversation seen for the sender and unseen for the
	// counterpart. The two patches are independent: one failing must not
	// roll back the other or the append.
	for _, userID := range []string{senderID, recipientID} {
		patch := EntryPatch{
			LastMessage: text,
			IsSeen:      userID == senderID,
			UpdatedAt:   msg.CreatedAt,
		}
		if err := s.index.UpsertEntry(ctx, userID, conversationID, patch); err != nil {
			log.Printf("chat: index patch dropped for user %s conversation %s: %v", userID, conversationID, err)
		}
	}

	return &msg, nil
}

// Gate reports whether the viewer may currently send to the counterpart.
func (s *SyncCoordinator) Gate(ctx context.Context, viewerID, counterpartID string) (BlockStatus, error) {
	return StatusBetween(ctx, s.blocks, viewerID, counterpartID)
}

// Watch subscribes to a conversation's live snapshots. Each delivery is a
// total replacement of the local view, never a delta to merge.
func (s *SyncCoordinator) Watch(ctx context.Context, conversationID string, fn func(snapshot []Message)) (Unsubscribe, error) {
	return s.logs.Subscribe(ctx, conversationID, fn)
}
