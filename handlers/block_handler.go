package handlers

import (
	"github.com/duochat/duo_chat/chat"
	"github.com/duochat/duo_chat/database"
	"github.com/duochat/duo_chat/models"
	"github.com/duochat/duo_chat/store"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type BlockHandler struct {
	Blocks *store.BlockStore
}

func NewBlockHandler(blocks *store.BlockStore) *BlockHandler {
	return &BlockHandler{Blocks: blocks}
}

// SetBlock toggles the caller's block on another user. The toggle is
// idempotent; on failure the caller's block state is unchanged.
func (h *BlockHandler) SetBlock(c *fiber.Ctx) error {
	userID, err := currentUserID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	targetID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid user ID"})
	}
	if targetID == userID {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Cannot block yourself"})
	}

	type Request struct {
		Blocked bool `json:"blocked"`
	}
	var req Request
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Cannot parse JSON"})
	}

	var target models.User
	if err := database.DB.First(&target, "id = ?", targetID).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "User not found"})
	}

	if err := h.Blocks.SetBlocked(c.Context(), userID.String(), targetID.String(), req.Blocked); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to update block"})
	}

	return c.JSON(fiber.Map{"blocked": req.Blocked})
}

// GetBlockStatus reports the four-way pair state so a client can gate its
// composer while keeping history readable.
func (h *BlockHandler) GetBlockStatus(c *fiber.Ctx) error {
	userID, err := currentUserID(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	targetID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid user ID"})
	}

	status, err := chat.StatusBetween(c.Context(), h.Blocks, userID.String(), targetID.String())
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to resolve block status"})
	}

	return c.JSON(fiber.Map{
		"status":        status.String(),
		"send_disabled": status.SendDisabled(),
	})
}
