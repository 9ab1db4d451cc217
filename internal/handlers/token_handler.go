package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/arzan03/mediavault/internal/services"
)

// TokenHandler exposes token issuance, lookup, verification and revocation.
type TokenHandler struct {
	tokens *services.TokenService
}

func NewTokenHandler(tokens *services.TokenService) *TokenHandler {
	return &TokenHandler{tokens: tokens}
}

// Generate handles POST /generate-token.
func (h *TokenHandler) Generate(c *fiber.Ctx) error {
	var request struct {
		Name    string `json:"name"`
		Email   string `json:"email"`
		Message string `json:"message"`
		FileID  string `json:"fileId"`
	}
	if err := c.BodyParser(&request); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	tok, err := h.tokens.Issue(c.Context(), request.Name, request.Email, request.Message, request.FileID)
	if err != nil {
		return handleError(c, err)
	}
	return c.JSON(fiber.Map{
		"success":   true,
		"token":     tok.Token,
		"expiresAt": tok.ExpiresAt,
		"fileId":    tok.FileID,
	})
}

// TokenForFile handles GET /token-for-file/:fileId — the first matching
// token record, any owner.
func (h *TokenHandler) TokenForFile(c *fiber.Ctx) error {
	tok, err := h.tokens.FirstForFile(c.Context(), fileIDParam(c, "fileId"))
	if err != nil {
		return handleError(c, err)
	}
	return c.JSON(tok)
}

// TokensForFile handles GET /tokens-for-file/:fileId — all owners.
func (h *TokenHandler) TokensForFile(c *fiber.Ctx) error {
	records, err := h.tokens.ListForFile(c.Context(), fileIDParam(c, "fileId"))
	if err != nil {
		return handleError(c, err)
	}
	return c.JSON(records)
}

// Info handles GET /token-info/:token.
func (h *TokenHandler) Info(c *fiber.Ctx) error {
	info, err := h.tokens.Info(c.Context(), c.Params("token"))
	if err != nil {
		return handleError(c, err)
	}
	return c.JSON(fiber.Map{
		"valid": true,
		"user": fiber.Map{
			"name":  info.OwnerName,
			"email": info.OwnerEmail,
		},
		"file": fiber.Map{
			"id":   info.FileID,
			"name": info.FileName,
			"type": info.FileType,
		},
		"expiresAt": info.ExpiresAt,
	})
}

// VerifyFolder handles POST /verify-folder-token.
func (h *TokenHandler) VerifyFolder(c *fiber.Ctx) error {
	var request struct {
		Token  string `json:"token"`
		FileID string `json:"fileId"`
	}
	if err := c.BodyParser(&request); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	info, err := h.tokens.VerifyFolder(c.Context(), request.Token, request.FileID)
	if err != nil {
		return handleError(c, err)
	}
	return c.JSON(fiber.Map{
		"valid":     true,
		"tokenData": info,
	})
}

// Revoke handles DELETE /revoke-token/:fileId. Idempotent.
func (h *TokenHandler) Revoke(c *fiber.Ctx) error {
	count, err := h.tokens.RevokeForFile(c.Context(), fileIDParam(c, "fileId"))
	if err != nil {
		return handleError(c, err)
	}
	return c.JSON(fiber.Map{
		"success": true,
		"revoked": count,
	})
}
