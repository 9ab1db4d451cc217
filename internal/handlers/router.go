package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"
)

// Register wires every route onto the app. adminGuard protects the admin
// group.
func Register(app *fiber.App, files *FileHandler, tokens *TokenHandler, admin *AdminHandler, adminGuard fiber.Handler) {
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":    "healthy",
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		})
	})

	// Listings and public previews
	app.Get("/drive-folder", files.ListFolder)
	app.Get("/drive-folder/:folderId", files.ListFolder)
	app.Get("/file-info/:id", files.FileInfo)
	app.Get("/file/:id/watermark", files.Watermark)

	// Token-gated clean downloads
	app.Get("/download/:id", files.Download)

	// Folder archives
	app.Get("/folder/:id/watermark-zip", files.WatermarkZip)
	app.Get("/folder/:id/clean-zip", files.CleanZip)

	// Token lifecycle
	app.Post("/generate-token", tokens.Generate)
	app.Get("/token-for-file/:fileId", tokens.TokenForFile)
	app.Get("/tokens-for-file/:fileId", tokens.TokensForFile)
	app.Get("/token-info/:token", tokens.Info)
	app.Post("/verify-folder-token", tokens.VerifyFolder)
	app.Delete("/revoke-token/:fileId", tokens.Revoke)

	// Admin
	app.Post("/admin/login", admin.Login)
	adminGroup := app.Group("/admin", adminGuard)
	adminGroup.Get("/users", admin.ListUsers)
}
