package main

import (
	"log"
	"time"

	"github.com/duochat/duo_chat/chat"
	config "github.com/duochat/duo_chat/configs"
	"github.com/duochat/duo_chat/database"
	"github.com/duochat/duo_chat/handlers"
	"github.com/duochat/duo_chat/jobs"
	"github.com/duochat/duo_chat/routes"
	"github.com/duochat/duo_chat/storage"
	"github.com/duochat/duo_chat/store"
	"github.com/duochat/duo_chat/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/robfig/cron/v3"
)

func main() {
	database.ConnectDB()
	database.Migrate()

	blobs, err := storage.NewCloudinaryStore(config.Config("CLOUDINARY_URL"), "duo_chat")
	if err != nil {
		log.Fatalf("🔥 Failed to initialize blob storage: %v", err)
	}

	broker := chat.NewBroker()
	logs := store.NewLogStore(database.DB, broker)
	index := store.NewIndexStore(database.DB)
	blocks := store.NewBlockStore(database.DB)
	coordinator := chat.NewSyncCoordinator(logs, index, blocks, blobs)

	chatHandler := handlers.NewChatHandler(coordinator, logs, index, blocks)
	blockHandler := handlers.NewBlockHandler(blocks)
	uploadHandler := handlers.NewUploadHandler(blobs)

	c := cron.New()
	c.AddFunc("*/5 * * * *", jobs.ReconcileChatIndexes)
	go c.Start()
	log.Println("✅ Cron job for chat index reconciliation scheduled successfully.")

	app := fiber.New(fiber.Config{
		AppName:           "Duo Chat",
		CaseSensitive:     true,
		StrictRouting:     true,
		EnablePrintRoutes: true,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}

			log.Printf("[ERROR] %v | Path: %s | Method: %s", err, c.Path(), c.Method())
			return c.Status(code).JSON(fiber.Map{
				"status":  "error",
				"code":    code,
				"message": err.Error(),
			})
		},
	})

	app.Use(cors.New(cors.Config{
		AllowOrigins:  "*",
		AllowHeaders:  "Origin, Content-Type, Accept, Authorization, Sec-WebSocket-Key, Sec-WebSocket-Version",
		AllowMethods:  "GET, POST, PUT, PATCH, DELETE, OPTIONS",
		ExposeHeaders: "Content-Length, Authorization",
		MaxAge:        86400,
	}))

	app.Use(recover.New())
	app.Use(logger.New(logger.Config{
		TimeFormat: "2006-01-02 15:04:05",
		Format:     "[${time}] ${status} - ${latency} ${method} ${path}\n",
	}))

	routes.AuthRoutes(app)
	routes.ProfileRoutes(app)
	routes.ChatRoutes(app, chatHandler)
	routes.BlockRoutes(app, blockHandler)
	routes.UploadRoutes(app, uploadHandler)

	go websocket.RunHub()

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status": "ok",
		})
	})

	port := config.Config("PORT")
	if port == "" {
		port = "8080"
	}
	log.Printf("✅ Server is running on port %s", port)
	if err := app.Listen(":" + port); err != nil {
		log.Fatalf("🔥 Server failed to start: %v", err)
	}
}
