package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/arzan03/mediavault/internal/services"
)

// AdminHandler exposes the credential check and the user listing behind the
// admin middleware.
type AdminHandler struct {
	admin *services.AdminService
}

func NewAdminHandler(admin *services.AdminService) *AdminHandler {
	return &AdminHandler{admin: admin}
}

// Login handles POST /admin/login.
func (h *AdminHandler) Login(c *fiber.Ctx) error {
	var request struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := c.BodyParser(&request); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	token, err := h.admin.Login(request.Email, request.Password)
	if err != nil {
		return handleError(c, err)
	}
	return c.JSON(fiber.Map{
		"token": token,
		"role":  "admin",
	})
}

// ListUsers handles GET /admin/users.
func (h *AdminHandler) ListUsers(c *fiber.Ctx) error {
	users, err := h.admin.ListUsers(c.Context())
	if err != nil {
		return handleError(c, err)
	}
	return c.JSON(users)
}
