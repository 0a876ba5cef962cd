package routes

import (
	"github.com/duochat/duo_chat/handlers"
	"github.com/duochat/duo_chat/middleware"
	"github.com/gofiber/fiber/v2"
)

func ProfileRoutes(app *fiber.App) {
	api := app.Group("/api/v1", middleware.Protected())

	profile := api.Group("/profile")
	profile.Get("", handlers.GetProfile)
	profile.Patch("", handlers.UpdateProfile)
}
