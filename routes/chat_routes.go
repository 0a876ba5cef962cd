package routes

import (
	"github.com/duochat/duo_chat/handlers"
	"github.com/duochat/duo_chat/middleware"
	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
)

func ChatRoutes(app *fiber.App, h *handlers.ChatHandler) {
	api := app.Group("/api/v1")

	conversations := api.Group("/conversations", middleware.Protected())
	conversations.Get("", h.GetConversations)
	conversations.Post("", h.CreateOrGetConversation)
	conversations.Get("/:conversationId/messages", h.GetMessages)
	conversations.Post("/:conversationId/messages", h.SendMessage)
	conversations.Patch("/:conversationId/seen", h.MarkSeen)

	api.Use("/ws", func(c *fiber.Ctx) error {
		if !websocket.IsWebSocketUpgrade(c) {
			return fiber.ErrUpgradeRequired
		}
		return c.Next()
	})
	api.Get("/ws", websocket.New(h.ServeWs))
}
