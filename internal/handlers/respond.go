package handlers

import (
	"errors"
	"log"
	"net/url"

	"github.com/gofiber/fiber/v2"

	"github.com/arzan03/mediavault/internal/services"
)

// handleError maps the service error taxonomy onto response statuses.
// Anything outside the taxonomy is logged and reported as a generic failure
// so internal detail never reaches the client.
func handleError(c *fiber.Ctx, err error) error {
	var dup *services.DuplicateTokenError
	if errors.As(err, &dup) {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{
			"error":         "Token already exists for this file",
			"existingToken": dup.Existing.Token,
		})
	}

	switch {
	case errors.Is(err, services.ErrValidation),
		errors.Is(err, services.ErrUnsupportedType):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, services.ErrAuthRequired),
		errors.Is(err, services.ErrInvalidToken),
		errors.Is(err, services.ErrInvalidCredentials):
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, services.ErrExpiredToken),
		errors.Is(err, services.ErrScopeMismatch),
		errors.Is(err, services.ErrRevokedToken):
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, services.ErrNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, services.ErrConflict):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": err.Error()})
	default:
		log.Printf("%s %s failed: %v", c.Method(), c.Path(), err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal server error"})
	}
}

// fileIDParam reads a path parameter that may contain an URL-escaped object
// key (folder identifiers include slashes).
func fileIDParam(c *fiber.Ctx, name string) string {
	id := c.Params(name)
	if unescaped, err := url.PathUnescape(id); err == nil {
		id = unescaped
	}
	return id
}
