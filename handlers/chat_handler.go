package handlers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"

	"github.com/duochat/duo_chat/chat"
	config "github.com/duochat/duo_chat/configs"
	"github.com/duochat/duo_chat/database"
	"github.com/duochat/duo_chat/models"
	"github.com/duochat/duo_chat/store"
	"github.com/duochat/duo_chat/websocket"
	websocketcontrib "github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
)

// ChatHandler exposes the chat core over REST and websocket. Its
// dependencies are injected so the whole vertical runs against fakes in
// tests.
type ChatHandler struct {
	Coordinator *chat.SyncCoordinator
	Logs        *store.LogStore
	Index       *store.IndexStore
	Blocks      *store.BlockStore
}

func NewChatHandler(coordinator *chat.SyncCoordinator, logs *store.LogStore, index *store.IndexStore, blocks *store.BlockStore) *ChatHandler {
	return &ChatHandler{Coordinator: coordinator, Logs: logs, Index: index, Blocks: blocks}
}

func (h *ChatHandler) GetConversations(c *fiber.Ctx) error {
	userID, err := currentUserID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	entries, err := h.Index.Entries(c.Context(), userID.String())
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to fetch conversations"})
	}
	return c.JSON(entries)
}

func (h *ChatHandler) CreateOrGetConversation(c *fiber.Ctx) error {
	userID, err := currentUserID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	type Request struct {
		RecipientID string `json:"recipient_id" validate:"required,uuid"`
	}
	var req Request
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Cannot parse JSON"})
	}
	if err := validate.Struct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}
	recipientID, _ := uuid.Parse(req.RecipientID)
	if recipientID == userID {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Cannot start a conversation with yourself"})
	}

	var recipient models.User
	if err := database.DB.First(&recipient, "id = ?", recipientID).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Recipient not found"})
	}

	existing, err := h.Index.FindBetween(c.Context(), userID, recipientID)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to look up conversation"})
	}
	if existing != uuid.Nil {
		return c.JSON(fiber.Map{"conversation_id": existing.String()})
	}

	conversationID := uuid.New()
	if err := h.Logs.EnsureExists(c.Context(), conversationID.String()); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to create conversation"})
	}
	if err := h.Index.CreatePair(c.Context(), conversationID, userID, recipientID); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to create conversation"})
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"conversation_id": conversationID.String()})
}

// GetMessages returns the full log. Blocked pairs keep read access to their
// history; only sending is gated.
func (h *ChatHandler) GetMessages(c *fiber.Ctx) error {
	userID, err := currentUserID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}
	conversationID := c.Params("conversationId")

	if _, err := h.participantEntry(userID, conversationID); err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Conversation not found"})
	}

	messages, err := h.Logs.Messages(c.Context(), conversationID)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to fetch messages"})
	}
	return c.JSON(messages)
}

func (h *ChatHandler) SendMessage(c *fiber.Ctx) error {
	userID, err := currentUserID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}
	conversationID := c.Params("conversationId")

	entry, err := h.participantEntry(userID, conversationID)
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Conversation not found"})
	}

	text := c.FormValue("text")

	var att *chat.Attachment
	if file, err := c.FormFile("image"); err == nil {
		src, err := file.Open()
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Cannot read attachment"})
		}
		data, err := io.ReadAll(src)
		src.Close()
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Cannot read attachment"})
		}
		att = &chat.Attachment{Name: file.Filename, Data: data}
	}

	msg, err := h.Coordinator.SendMessage(c.Context(), conversationID, userID.String(), entry.CounterpartID.String(), text, att)
	if err != nil {
		var uploadErr *chat.UploadError
		switch {
		case errors.Is(err, chat.ErrBlocked):
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "You cannot send a message"})
		case errors.As(err, &uploadErr):
			log.Printf("attachment upload failed for conversation %s: %v", conversationID, err)
			return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{"error": "Attachment upload failed"})
		default:
			log.Printf("send failed for conversation %s: %v", conversationID, err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to send message"})
		}
	}
	if msg == nil {
		// Empty composer, deliberate no-op.
		return c.SendStatus(fiber.StatusNoContent)
	}

	websocket.IndexChanged <- websocket.IndexChange{
		ConversationID: entry.ConversationID,
		UserIDs:        []uuid.UUID{userID, entry.CounterpartID},
	}

	return c.Status(fiber.StatusCreated).JSON(msg)
}

func (h *ChatHandler) MarkSeen(c *fiber.Ctx) error {
	userID, err := currentUserID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}
	conversationID := c.Params("conversationId")

	if _, err := h.participantEntry(userID, conversationID); err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Conversation not found"})
	}

	if err := h.Index.MarkSeen(c.Context(), userID.String(), conversationID); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to mark conversation seen"})
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// participantEntry authorizes the caller against a conversation and yields
// their index row, which also carries the counterpart id.
func (h *ChatHandler) participantEntry(userID uuid.UUID, conversationID string) (*models.UserChat, error) {
	var entry models.UserChat
	err := database.DB.
		Where("user_id = ? AND conversation_id = ?", userID, conversationID).
		First(&entry).Error
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

func (h *ChatHandler) ServeWs(c *websocketcontrib.Conn) {
	type AuthMessage struct {
		Type  string `json:"type"`
		Token string `json:"token"`
	}
	var authMsg AuthMessage
	if err := c.ReadJSON(&authMsg); err != nil || authMsg.Type != "auth" {
		log.Printf("ws auth failed: invalid or missing auth message: %v", err)
		_ = c.WriteJSON(fiber.Map{"error": "Invalid or missing auth message"})
		c.Close()
		return
	}

	claims, err := parseToken(authMsg.Token)
	if err != nil {
		log.Printf("ws auth failed: invalid token: %v", err)
		_ = c.WriteJSON(fiber.Map{"error": "Invalid token"})
		c.Close()
		return
	}

	userID, err := uuid.Parse(claims["user_id"].(string))
	if err != nil {
		log.Printf("ws auth failed: invalid user_id %v: %v", claims["user_id"], err)
		_ = c.WriteJSON(fiber.Map{"error": "Invalid user ID"})
		c.Close()
		return
	}

	client := websocket.NewClient(userID, c)
	websocket.Register <- client
	defer func() {
		websocket.Unregister <- client
		c.Close()
	}()

	for {
		type Frame struct {
			Type           string `json:"type"`
			ConversationID string `json:"conversation_id"`
		}
		var frame Frame
		if err := c.ReadJSON(&frame); err != nil {
			if websocketcontrib.IsCloseError(err, websocketcontrib.CloseGoingAway, websocketcontrib.CloseAbnormalClosure) {
				log.Printf("ws closed for client %s: %v", userID, err)
			} else {
				log.Printf("ws read error for client %s: %v", userID, err)
			}
			break
		}

		switch frame.Type {
		case "subscribe":
			if _, err := h.participantEntry(userID, frame.ConversationID); err != nil {
				_ = client.Send(websocket.Event{Type: "error", ConversationID: frame.ConversationID})
				continue
			}
			if err := client.Watch(context.Background(), h.Logs, frame.ConversationID); err != nil {
				log.Printf("ws subscribe failed for client %s: %v", userID, err)
				_ = client.Send(websocket.Event{Type: "error", ConversationID: frame.ConversationID})
			}
		case "unsubscribe":
			client.Unwatch(frame.ConversationID)
		default:
			log.Printf("ws unknown frame type %q from client %s", frame.Type, userID)
		}
	}
}

func parseToken(tokenString string) (jwt.MapClaims, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(config.Config("JWT_SECRET")), nil
	})
	if err != nil {
		return nil, err
	}
	if claims, ok := token.Claims.(jwt.MapClaims); ok && token.Valid {
		return claims, nil
	}
	return nil, errors.New("invalid token")
}
