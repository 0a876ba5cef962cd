package routes

import (
	"github.com/duochat/duo_chat/handlers"
	"github.com/duochat/duo_chat/middleware"
	"github.com/gofiber/fiber/v2"
)

func BlockRoutes(app *fiber.App, h *handlers.BlockHandler) {
	api := app.Group("/api/v1", middleware.Protected())

	users := api.Group("/users")
	users.Put("/:id/block", h.SetBlock)
	users.Get("/:id/block-status", h.GetBlockStatus)
}
