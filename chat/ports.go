package chat

import "context"

// Unsubscribe stops snapshot delivery for one subscription. Safe to call
// more than once.
type Unsubscribe func()

// LogStore is the authoritative, append-only message log per conversation.
// Append must be an atomic single-element add, never a read-modify-write of
// the whole log.
type LogStore interface {
	EnsureExists(ctx context.Context, conversationID string) error
	Append(ctx context.Context, conversationID string, msg Message) error
	Messages(ctx context.Context, conversationID string) ([]Message, error)
	// Subscribe invokes fn once with the current snapshot, then again on
	// every change, until the returned Unsubscribe is called. Snapshots are
	// always total, never deltas.
	Subscribe(ctx context.Context, conversationID string, fn func(snapshot []Message)) (Unsubscribe, error)
}

// IndexStore holds each user's conversation summaries, keyed per
// (user, conversation) so a patch is an atomic single-entry write.
type IndexStore interface {
	Entries(ctx context.Context, userID string) ([]IndexEntry, error)
	// UpsertEntry patches an existing entry. A missing entry is a no-op:
	// entries are created at conversation creation, not here.
	UpsertEntry(ctx context.Context, userID, conversationID string, patch EntryPatch) error
	MarkSeen(ctx context.Context, userID, conversationID string) error
}

// BlockRegistry is each user's set of blocked counterpart ids.
type BlockRegistry interface {
	// SetBlocked is an idempotent membership toggle. On error the observable
	// block state is unchanged.
	SetBlocked(ctx context.Context, userID, targetID string, blocked bool) error
	IsBlocked(ctx context.Context, userID, targetID string) (bool, error)
}

// BlobStore uploads an attachment and returns a stable retrieval URL.
// Names are caller-chosen; a name collision overwrites.
type BlobStore interface {
	Upload(ctx context.Context, name string, data []byte) (string, error)
}
