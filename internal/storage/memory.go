package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/arzan03/mediavault/internal/models"
)

// MemoryGateway is an in-process Gateway over a map of object keys, with the
// same folder-as-prefix convention as the MinIO backend. Used by tests.
type MemoryGateway struct {
	mu      sync.RWMutex
	objects map[string]memObject
}

type memObject struct {
	data     []byte
	mimeType string
	modified time.Time
}

func NewMemoryGateway() *MemoryGateway {
	return &MemoryGateway{objects: make(map[string]memObject)}
}

// Put stores an object under key. Intermediate folders are implicit.
func (g *MemoryGateway) Put(key, mimeType string, data []byte) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.objects[key] = memObject{data: data, mimeType: mimeType, modified: time.Now()}
}

func (g *MemoryGateway) List(_ context.Context, folderID string) ([]models.FileInfo, error) {
	prefix := strings.TrimPrefix(folderID, "/")
	if prefix != "" && !strings.HasSuffix(prefix, "/") {
		return nil, fmt.Errorf("%s is not a folder", folderID)
	}

	g.mu.RLock()
	defer g.mu.RUnlock()

	seen := make(map[string]models.FileInfo)
	for key, obj := range g.objects {
		if !strings.HasPrefix(key, prefix) {
			continue
		}
		rest := strings.TrimPrefix(key, prefix)
		if i := strings.Index(rest, "/"); i >= 0 {
			// Child of a subfolder; surface the subfolder once.
			folder := prefix + rest[:i+1]
			seen[folder] = models.FileInfo{
				ID:       folder,
				Name:     rest[:i],
				MimeType: "application/x-directory",
				IsFolder: true,
				Kind:     models.KindFolder,
			}
			continue
		}
		seen[key] = g.info(key, obj)
	}

	out := make([]models.FileInfo, 0, len(seen))
	for _, info := range seen {
		out = append(out, info)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (g *MemoryGateway) Stat(_ context.Context, fileID string) (models.FileInfo, error) {
	key := strings.TrimPrefix(fileID, "/")
	if key == "" || strings.HasSuffix(key, "/") {
		return models.FileInfo{
			ID:       fileID,
			Name:     path.Base(strings.TrimSuffix(key, "/")),
			MimeType: "application/x-directory",
			IsFolder: true,
			Kind:     models.KindFolder,
		}, nil
	}

	g.mu.RLock()
	defer g.mu.RUnlock()
	obj, ok := g.objects[key]
	if !ok {
		return models.FileInfo{}, ErrNotFound
	}
	return g.info(key, obj), nil
}

func (g *MemoryGateway) Open(ctx context.Context, fileID string) (io.ReadCloser, models.FileInfo, error) {
	info, err := g.Stat(ctx, fileID)
	if err != nil {
		return nil, models.FileInfo{}, err
	}
	if info.IsFolder {
		return nil, models.FileInfo{}, fmt.Errorf("%s is a folder", fileID)
	}

	g.mu.RLock()
	obj := g.objects[strings.TrimPrefix(fileID, "/")]
	g.mu.RUnlock()
	return io.NopCloser(bytes.NewReader(obj.data)), info, nil
}

func (g *MemoryGateway) info(key string, obj memObject) models.FileInfo {
	return models.FileInfo{
		ID:           key,
		Name:         path.Base(key),
		MimeType:     obj.mimeType,
		Size:         int64(len(obj.data)),
		ModifiedTime: obj.modified,
		Kind:         models.KindFromMime(obj.mimeType, false),
	}
}
