package chat

import "context"

// Composer is the local compose state of one conversation view: the text
// buffer plus a pending attachment. It is cleared only once a send has
// durably appended, so a failed send leaves it populated for a manual retry.
type Composer struct {
	Text       string
	Attachment *Attachment
}

func (c *Composer) Clear() {
	c.Text = ""
	c.Attachment = nil
}

// SendComposed sends the composer's contents and clears it on success.
// Index patch failures do not block clearing; a no-op send does not clear.
func (s *SyncCoordinator) SendComposed(ctx context.Context, conversationID, senderID, recipientID string, comp *Composer) (*Message, error) {
	msg, err := s.SendMessage(ctx, conversationID, senderID, recipientID, comp.Text, comp.Attachment)
	if err == nil && msg != nil {
		comp.Clear()
	}
	return msg, err
}
