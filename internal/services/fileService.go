package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log"

	"github.com/arzan03/mediavault/internal/models"
	"github.com/arzan03/mediavault/internal/storage"
	"github.com/arzan03/mediavault/internal/watermark"
)

// ServedFile is a response-ready byte stream with its metadata. Size is -1
// when the length is unknown (transcoded video streams).
type ServedFile struct {
	Body        io.ReadCloser
	Info        models.FileInfo
	ContentType string
	Size        int64
}

// FileServer answers "serve me this file" under two trust levels: the public
// path always watermarks, the token-verified path streams clean bytes.
type FileServer struct {
	gateway storage.Gateway
	engine  *watermark.Engine
	tokens  *TokenService
}

func NewFileServer(gateway storage.Gateway, engine *watermark.Engine, tokens *TokenService) *FileServer {
	return &FileServer{gateway: gateway, engine: engine, tokens: tokens}
}

// ListFolder returns the direct children of a folder.
func (s *FileServer) ListFolder(ctx context.Context, folderID string) ([]models.FileInfo, error) {
	files, err := s.gateway.List(ctx, folderID)
	if err != nil {
		return nil, fmt.Errorf("%w: list %s: %v", ErrUpstream, folderID, err)
	}
	return files, nil
}

// FileInfo proxies a single metadata lookup.
func (s *FileServer) FileInfo(ctx context.Context, fileID string) (models.FileInfo, error) {
	info, err := s.gateway.Stat(ctx, fileID)
	if errors.Is(err, storage.ErrNotFound) {
		return models.FileInfo{}, fmt.Errorf("%w: file %s", ErrNotFound, fileID)
	}
	if err != nil {
		return models.FileInfo{}, fmt.Errorf("%w: stat %s: %v", ErrUpstream, fileID, err)
	}
	return info, nil
}

// ServeWatermarked is the public preview path: no token, always marked.
// Images are buffered and composited; videos stream through the transcode
// pipeline so arbitrarily large files never sit in memory.
func (s *FileServer) ServeWatermarked(ctx context.Context, fileID string) (*ServedFile, error) {
	info, err := s.FileInfo(ctx, fileID)
	if err != nil {
		return nil, err
	}

	switch info.Kind {
	case models.KindImage:
		r, _, err := s.gateway.Open(ctx, fileID)
		if err != nil {
			return nil, fmt.Errorf("%w: open %s: %v", ErrUpstream, fileID, err)
		}
		defer r.Close()

		src, err := io.ReadAll(r)
		if err != nil {
			return nil, fmt.Errorf("%w: read %s: %v", ErrUpstream, fileID, err)
		}
		marked, err := s.engine.Image(src)
		if err != nil {
			log.Printf("watermark failed for %s: %v", fileID, err)
			return nil, fmt.Errorf("%w: %v", ErrProcessing, err)
		}
		return &ServedFile{
			Body:        io.NopCloser(bytes.NewReader(marked)),
			Info:        info,
			ContentType: "image/jpeg",
			Size:        int64(len(marked)),
		}, nil

	case models.KindVideo:
		r, _, err := s.gateway.Open(ctx, fileID)
		if err != nil {
			return nil, fmt.Errorf("%w: open %s: %v", ErrUpstream, fileID, err)
		}
		out, err := s.engine.Video(ctx, r)
		if err != nil {
			r.Close()
			log.Printf("video watermark failed for %s: %v", fileID, err)
			return nil, fmt.Errorf("%w: %v", ErrProcessing, err)
		}
		return &ServedFile{
			Body:        closerChain{out, r},
			Info:        info,
			ContentType: "video/mp4",
			Size:        -1,
		}, nil

	default:
		return nil, fmt.Errorf("%w: %s is %s", ErrUnsupportedType, fileID, info.Kind)
	}
}

// ServeClean is the integrity-critical path: it streams unmodified bytes and
// must not leak them on any verification failure.
func (s *FileServer) ServeClean(ctx context.Context, fileID, tokenString string) (*ServedFile, error) {
	if _, err := s.tokens.Verify(ctx, tokenString, fileID); err != nil {
		return nil, err
	}

	r, info, err := s.gateway.Open(ctx, fileID)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, fmt.Errorf("%w: file %s", ErrNotFound, fileID)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %v", ErrUpstream, fileID, err)
	}
	return &ServedFile{
		Body:        r,
		Info:        info,
		ContentType: info.MimeType,
		Size:        info.Size,
	}, nil
}

// closerChain closes the transcode output and the upstream source together
// so a client disconnect stops the gateway fetch.
type closerChain struct {
	io.ReadCloser
	upstream io.Closer
}

func (c closerChain) Close() error {
	err := c.ReadCloser.Close()
	if uerr := c.upstream.Close(); err == nil {
		err = uerr
	}
	return err
}
