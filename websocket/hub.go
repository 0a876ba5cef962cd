package websocket

import (
	"context"
	"log"
	"sync"

	"github.com/duochat/duo_chat/chat"
	"github.com/gofiber/contrib/websocket"
	"github.com/google/uuid"
)

// Event is the single frame type pushed to clients. "snapshot" carries a
// total conversation log; "conversation_updated" tells the client its chat
// index changed and should be refetched.
type Event struct {
	Type           string         `json:"type"`
	ConversationID string         `json:"conversation_id,omitempty"`
	Messages       []chat.Message `json:"messages"`
}

// IndexChange notifies connected participants that their chat index rows
// changed after a send.
type IndexChange struct {
	ConversationID uuid.UUID
	UserIDs        []uuid.UUID
}

// Client is one authenticated websocket connection plus its live
// conversation subscriptions.
type Client struct {
	UserID uuid.UUID
	Conn   *websocket.Conn

	writeMu sync.Mutex
	subsMu  sync.Mutex
	subs    map[string]chat.Unsubscribe
}

func NewClient(userID uuid.UUID, conn *websocket.Conn) *Client {
	return &Client{UserID: userID, Conn: conn, subs: make(map[string]chat.Unsubscribe)}
}

func (c *Client) Send(ev Event) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.Conn.WriteJSON(ev)
}

// Watch subscribes the connection to a conversation's snapshots. The
// current snapshot is delivered before Watch returns. Watching an
// already-watched conversation is a no-op.
func (c *Client) Watch(ctx context.Context, logs chat.LogStore, conversationID string) error {
	c.subsMu.Lock()
	_, watching := c.subs[conversationID]
	c.subsMu.Unlock()
	if watching {
		return nil
	}

	unsub, err := logs.Subscribe(ctx, conversationID, func(snapshot []chat.Message) {
		if err := c.Send(Event{Type: "snapshot", ConversationID: conversationID, Messages: snapshot}); err != nil {
			log.Printf("ws: snapshot push to %s failed: %v", c.UserID, err)
		}
	})
	if err != nil {
		return err
	}

	c.subsMu.Lock()
	c.subs[conversationID] = unsub
	c.subsMu.Unlock()
	return nil
}

// Unwatch stops snapshot delivery for one conversation. Idempotent.
func (c *Client) Unwatch(conversationID string) {
	c.subsMu.Lock()
	unsub, ok := c.subs[conversationID]
	delete(c.subs, conversationID)
	c.subsMu.Unlock()
	if ok {
		unsub()
	}
}

// Close drops every live subscription. Safe to call after the connection
// already went away.
func (c *Client) Close() {
	c.subsMu.Lock()
	subs := c.subs
	c.subs = make(map[string]chat.Unsubscribe)
	c.subsMu.Unlock()
	for _, unsub := range subs {
		unsub()
	}
}

var clients = make(map[uuid.UUID]*Client)
var clientsMu sync.RWMutex
var Register = make(chan *Client)
var Unregister = make(chan *Client)
var IndexChanged = make(chan IndexChange, 16)

func RunHub() {
	for {
		select {
		case client := <-Register:
			log.Printf("ws: client registered: %s", client.UserID)
			clientsMu.Lock()
			clients[client.UserID] = client
			clientsMu.Unlock()
		case client := <-Unregister:
			log.Printf("ws: client unregistered: %s", client.UserID)
			clientsMu.Lock()
			if current, ok := clients[client.UserID]; ok && current == client {
				delete(clients, client.UserID)
			}
			clientsMu.Unlock()
			client.Close()
		case change := <-IndexChanged:
			clientsMu.RLock()
			for _, userID := range change.UserIDs {
				client, ok := clients[userID]
				if !ok {
					continue
				}
				if err := client.Send(Event{Type: "conversation_updated", ConversationID: change.ConversationID.String()}); err != nil {
					log.Printf("ws: index ping to %s failed: %v", userID, err)
				}
			}
			clientsMu.RUnlock()
		}
	}
}
