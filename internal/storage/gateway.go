package storage

import (
	"context"
	"errors"
	"io"

	"github.com/arzan03/mediavault/internal/models"
)

var ErrNotFound = errors.New("object not found")

// Gateway is the read-only view of the remote file tree. Folder identifiers
// end with "/"; the empty string is the configured root folder.
type Gateway interface {
	// List returns the direct children of a folder in name order.
	List(ctx context.Context, folderID string) ([]models.FileInfo, error)

	// Stat fetches metadata for a single file or folder.
	Stat(ctx context.Context, fileID string) (models.FileInfo, error)

	// Open returns the raw byte stream of a file together with its metadata.
	// The caller owns the returned reader.
	Open(ctx context.Context, fileID string) (io.ReadCloser, models.FileInfo, error)
}
