// Package archive assembles zip downloads from a folder tree behind the
// storage gateway.
package archive

import (
	"archive/zip"
	"context"
	"errors"
	"fmt"
	"io"
	"log"

	"github.com/arzan03/mediavault/internal/models"
	"github.com/arzan03/mediavault/internal/storage"
	"github.com/arzan03/mediavault/internal/utils"
	"github.com/arzan03/mediavault/internal/watermark"
)

var errTooLarge = errors.New("file exceeds in-memory processing ceiling")

// Builder streams a folder tree into a zip archive. Fetch and transform run
// with bounded fan-out, but entries are appended in depth-first traversal
// order regardless of which fetch finishes first. One file's failure skips
// that file and never aborts the archive.
type Builder struct {
	gateway     storage.Gateway
	engine      *watermark.Engine
	concurrency int
	sizeCeiling int64
}

func NewBuilder(gateway storage.Gateway, engine *watermark.Engine, concurrency int, sizeCeiling int64) *Builder {
	if concurrency < 1 {
		concurrency = 1
	}
	return &Builder{
		gateway:     gateway,
		engine:      engine,
		concurrency: concurrency,
		sizeCeiling: sizeCeiling,
	}
}

type entry struct {
	path string
	info models.FileInfo
}

// payload is either buffered bytes (watermarked images) or an open stream.
type payload struct {
	data   []byte
	stream io.ReadCloser
}

// Build writes the archive for folderID to w and closes it exactly once.
// With watermarked set, images are composited before appending; videos are
// copied unchanged — transcoding every video of a folder synchronously would
// dominate archive latency, so single-file previews remain the watermarked
// video path. An empty folder yields a valid zero-entry archive.
func (b *Builder) Build(ctx context.Context, folderID string, watermarked bool, w io.Writer) error {
	entries, err := b.walk(ctx, folderID, "")
	if err != nil {
		return fmt.Errorf("failed to walk folder %s: %w", folderID, err)
	}

	zw := zip.NewWriter(w)
	for _, batch := range utils.Chunk(entries, b.concurrency) {
		tasks := make([]utils.Task[payload], len(batch))
		for i, ent := range batch {
			ent := ent
			tasks[i] = func() (payload, error) {
				return b.fetch(ctx, ent, watermarked)
			}
		}

		results, errs := utils.RunParallel(tasks)
		for i, ent := range batch {
			if errs[i] != nil {
				log.Printf("archive: skipping %s: %v", ent.path, errs[i])
				continue
			}
			if err := b.append(zw, ent, results[i]); err != nil {
				// The archive stream itself is broken; no point continuing.
				// append already closed its own stream, release the rest.
				closeAll(results[i+1:])
				zw.Close()
				return fmt.Errorf("failed to append %s: %w", ent.path, err)
			}
		}
	}
	return zw.Close()
}

// walk enumerates the folder depth-first, recursing into subfolders as they
// appear in listing order. Each subfolder contributes its name as a path
// prefix inside the archive.
func (b *Builder) walk(ctx context.Context, folderID, prefix string) ([]entry, error) {
	children, err := b.gateway.List(ctx, folderID)
	if err != nil {
		return nil, err
	}

	var entries []entry
	for _, child := range children {
		if child.Kind == models.KindFolder {
			sub, err := b.walk(ctx, child.ID, prefix+child.Name+"/")
			if err != nil {
				return nil, err
			}
			entries = append(entries, sub...)
			continue
		}
		entries = append(entries, entry{path: prefix + child.Name, info: child})
	}
	return entries, nil
}

func (b *Builder) fetch(ctx context.Context, ent entry, watermarked bool) (payload, error) {
	if watermarked && ent.info.Kind == models.KindImage {
		if b.sizeCeiling > 0 && ent.info.Size > b.sizeCeiling {
			return payload{}, errTooLarge
		}
		r, _, err := b.gateway.Open(ctx, ent.info.ID)
		if err != nil {
			return payload{}, err
		}
		defer r.Close()

		src, err := io.ReadAll(r)
		if err != nil {
			return payload{}, err
		}
		marked, err := b.engine.Image(src)
		if err != nil {
			return payload{}, err
		}
		return payload{data: marked}, nil
	}

	// Clean mode, videos and other kinds: stream bytes unchanged.
	r, _, err := b.gateway.Open(ctx, ent.info.ID)
	if err != nil {
		return payload{}, err
	}
	return payload{stream: r}, nil
}

func (b *Builder) append(zw *zip.Writer, ent entry, p payload) error {
	if p.stream != nil {
		defer p.stream.Close()
	}

	header := &zip.FileHeader{
		Name:     ent.path,
		Method:   zip.Deflate,
		Modified: ent.info.ModifiedTime,
	}
	w, err := zw.CreateHeader(header)
	if err != nil {
		return err
	}
	if p.stream != nil {
		_, err = io.Copy(w, p.stream)
		return err
	}
	_, err = w.Write(p.data)
	return err
}

func closeAll(payloads []payload) {
	for _, p := range payloads {
		if p.stream != nil {
			p.stream.Close()
		}
	}
}
