package handlers

import (
	"fmt"
	"io"
	"log"

	"github.com/duochat/duo_chat/chat"
	"github.com/duochat/duo_chat/database"
	"github.com/duochat/duo_chat/models"
	"github.com/gofiber/fiber/v2"
)

type UploadHandler struct {
	Blobs chat.BlobStore
}

func NewUploadHandler(blobs chat.BlobStore) *UploadHandler {
	return &UploadHandler{Blobs: blobs}
}

// UploadAvatar stores a profile picture and points the caller's record at
// its URL.
func (h *UploadHandler) UploadAvatar(c *fiber.Ctx) error {
	userID, err := currentUserID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	file, err := c.FormFile("file")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Missing file"})
	}
	src, err := file.Open()
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Cannot read file"})
	}
	data, err := io.ReadAll(src)
	src.Close()
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Cannot read file"})
	}

	url, err := h.Blobs.Upload(c.Context(), fmt.Sprintf("avatars/%s", userID), data)
	if err != nil {
		log.Printf("avatar upload failed for user %s: %v", userID, err)
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{"error": "Upload failed"})
	}

	if err := database.DB.Model(&models.User{}).Where("id = ?", userID).Update("avatar_url", url).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to save avatar"})
	}

	return c.JSON(fiber.Map{"url": url})
}
