package handlers

import (
	"bufio"
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/arzan03/mediavault/internal/archive"
	"github.com/arzan03/mediavault/internal/models"
	"github.com/arzan03/mediavault/internal/services"
)

// FileHandler serves listings, watermarked previews, token-gated clean
// downloads and folder archives.
type FileHandler struct {
	files   *services.FileServer
	builder *archive.Builder
	tokens  *services.TokenService
	timeout time.Duration
}

func NewFileHandler(files *services.FileServer, builder *archive.Builder, tokens *services.TokenService, timeout time.Duration) *FileHandler {
	if timeout <= 0 {
		timeout = 5 * time.Minute
	}
	return &FileHandler{files: files, builder: builder, tokens: tokens, timeout: timeout}
}

// ListFolder handles GET /drive-folder and GET /drive-folder/:folderId.
func (h *FileHandler) ListFolder(c *fiber.Ctx) error {
	files, err := h.files.ListFolder(c.Context(), fileIDParam(c, "folderId"))
	if err != nil {
		return handleError(c, err)
	}
	if files == nil {
		files = []models.FileInfo{} // empty folder still yields a JSON array
	}
	return c.JSON(files)
}

// FileInfo handles GET /file-info/:id.
func (h *FileHandler) FileInfo(c *fiber.Ctx) error {
	info, err := h.files.FileInfo(c.Context(), fileIDParam(c, "id"))
	if err != nil {
		return handleError(c, err)
	}
	return c.JSON(info)
}

// Watermark handles GET /file/:id/watermark — the public preview path.
// Response metadata is set before the first body byte; a mid-stream failure
// can only abort the connection.
func (h *FileHandler) Watermark(c *fiber.Ctx) error {
	served, err := h.files.ServeWatermarked(c.Context(), fileIDParam(c, "id"))
	if err != nil {
		return handleError(c, err)
	}

	c.Set(fiber.HeaderContentType, served.ContentType)
	c.Set(fiber.HeaderContentDisposition, fmt.Sprintf("inline; filename=%q", served.Info.Name))
	if served.Size >= 0 {
		return c.SendStream(served.Body, int(served.Size))
	}
	return c.SendStream(served.Body)
}

// Download handles GET /download/:id?token=... — the clean, token-verified
// path. Fails closed: no bytes leave before verification succeeds.
func (h *FileHandler) Download(c *fiber.Ctx) error {
	fileID := fileIDParam(c, "id")
	served, err := h.files.ServeClean(c.Context(), fileID, c.Query("token"))
	if err != nil {
		return handleError(c, err)
	}

	c.Set(fiber.HeaderContentType, served.ContentType)
	c.Set(fiber.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", served.Info.Name))
	if served.Size >= 0 {
		return c.SendStream(served.Body, int(served.Size))
	}
	return c.SendStream(served.Body)
}

// WatermarkZip handles GET /folder/:id/watermark-zip. Public, like the
// single-file preview path.
func (h *FileHandler) WatermarkZip(c *fiber.Ctx) error {
	return h.streamArchive(c, fileIDParam(c, "id"), true)
}

// CleanZip handles GET /folder/:id/clean-zip?token=... The token must be
// scoped to the folder itself.
func (h *FileHandler) CleanZip(c *fiber.Ctx) error {
	folderID := fileIDParam(c, "id")
	if _, err := h.tokens.VerifyFolder(c.Context(), c.Query("token"), folderID); err != nil {
		return handleError(c, err)
	}
	return h.streamArchive(c, folderID, false)
}

func (h *FileHandler) streamArchive(c *fiber.Ctx, folderID string, watermarked bool) error {
	name := strings.TrimSuffix(folderID, "/")
	if name == "" {
		name = "archive"
	} else if i := strings.LastIndex(name, "/"); i >= 0 {
		name = name[i+1:]
	}

	c.Set(fiber.HeaderContentType, "application/zip")
	c.Set(fiber.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", name+".zip"))

	timeout := h.timeout
	builder := h.builder
	c.Context().SetBodyStreamWriter(func(w *bufio.Writer) {
		// The walk and all fetches run inside the response writer; a client
		// disconnect turns into a write error that aborts the build.
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		if err := builder.Build(ctx, folderID, watermarked, w); err != nil {
			log.Printf("archive build for %s aborted: %v", folderID, err)
		}
	})
	return nil
}
