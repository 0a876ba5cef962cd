package chat

import "time"

// User is the identity a conversation participant is rendered with.
type User struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Avatar   string `json:"avatar,omitempty"`
}

// Message is one element of a conversation log. Immutable once appended;
// ordering is by append order, CreatedAt is informational only.
type Message struct {
	ID             string    `json:"id"`
	ConversationID string    `json:"conversation_id"`
	SenderID       string    `json:"sender_id"`
	Text           string    `json:"text"`
	Img            string    `json:"img,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

// IndexEntry is one user's denormalized summary of a conversation. The two
// participants each own an independent entry; the entries may transiently
// disagree and are repaired from the log, never the other way around.
type IndexEntry struct {
	ConversationID string    `json:"conversation_id"`
	Counterpart    User      `json:"counterpart"`
	LastMessage    string    `json:"last_message"`
	IsSeen         bool      `json:"is_seen"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// EntryPatch is the per-send mutation applied to an index entry.
type EntryPatch struct {
	LastMessage string
	IsSeen      bool
	UpdatedAt   time.Time
}

// Attachment is an image picked into the composer, not yet uploaded.
type Attachment struct {
	Name string
	Data []byte
}
