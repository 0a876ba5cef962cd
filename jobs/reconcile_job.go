package jobs

import (
	"log"

	"github.com/duochat/duo_chat/database"
	"github.com/duochat/duo_chat/models"
)

// ReconcileChatIndexes repairs chat index rows whose patch was dropped at
// send time. The message log is the source of truth: any entry older than
// its conversation's newest message gets its last-message text and
// timestamp re-derived from the log. Seen flags are left alone, only the
// owner flips those.
func ReconcileChatIndexes() {
	var latest []models.Message
	err := database.DB.
		Raw(`SELECT DISTINCT ON (conversation_id) *
		     FROM messages
		     ORDER BY conversation_id, seq DESC`).
		Scan(&latest).Error
	if err != nil {
		log.Printf("index reconcile: loading latest messages failed: %v", err)
		return
	}

	repaired := int64(0)
	for _, msg := range latest {
		result := database.DB.
			Model(&models.UserChat{}).
			Where("conversation_id = ? AND updated_at < ?", msg.ConversationID, msg.CreatedAt).
			Updates(map[string]interface{}{
				"last_message": msg.Text,
				"updated_at":   msg.CreatedAt,
			})
		if result.Error != nil {
			log.Printf("index reconcile: conversation %s: %v", msg.ConversationID, result.Error)
			continue
		}
		repaired += result.RowsAffected
	}

	if repaired > 0 {
		log.Printf("index reconcile: repaired %d lagging entries", repaired)
	}
}
