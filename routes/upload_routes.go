package routes

import (
	"github.com/duochat/duo_chat/handlers"
	"github.com/duochat/duo_chat/middleware"
	"github.com/gofiber/fiber/v2"
)

func UploadRoutes(app *fiber.App, h *handlers.UploadHandler) {
	api := app.Group("/api/v1", middleware.Protected())

	uploads := api.Group("/uploads")
	uploads.Post("/avatar", h.UploadAvatar)
}
