package services

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/arzan03/mediavault/internal/config"
	"github.com/arzan03/mediavault/internal/db"
	"github.com/arzan03/mediavault/internal/storage"
	"github.com/arzan03/mediavault/internal/watermark"
)

func writeLogoFile(t *testing.T) string {
	t.Helper()
	logo := image.NewNRGBA(image.Rect(0, 0, 16, 16))
	for y := 0; y < 16; y++ {
		for x := 0; x < 16; x++ {
			logo.Set(x, y, color.NRGBA{R: 255, A: 128})
		}
	}
	logoPath := filepath.Join(t.TempDir(), "logo.png")
	f, err := os.Create(logoPath)
	require.NoError(t, err)
	defer f.Close()
	require.NoError(t, png.Encode(f, logo))
	return logoPath
}

func newFileFixture(t *testing.T) (*FileServer, *TokenService, *storage.MemoryGateway) {
	t.Helper()

	engine, err := watermark.New(config.WatermarkConfig{LogoPath: writeLogoFile(t), Opacity: 0.3, Quality: 80})
	require.NoError(t, err)

	img := image.NewNRGBA(image.Rect(0, 0, 48, 48))
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))

	gw := storage.NewMemoryGateway()
	gw.Put("photo.png", "image/png", buf.Bytes())
	gw.Put("notes.txt", "text/plain", []byte("plain text"))

	tokens := NewTokenService(db.NewMemoryUserStore(), gw, testSecret, time.Hour)
	return NewFileServer(gw, engine, tokens), tokens, gw
}

func TestServeWatermarkedImage(t *testing.T) {
	files, _, _ := newFileFixture(t)

	served, err := files.ServeWatermarked(context.Background(), "photo.png")
	require.NoError(t, err)
	defer served.Body.Close()

	require.Equal(t, "image/jpeg", served.ContentType)
	body, err := io.ReadAll(served.Body)
	require.NoError(t, err)
	require.EqualValues(t, served.Size, len(body))

	decoded, format, err := image.Decode(bytes.NewReader(body))
	require.NoError(t, err)
	require.Equal(t, "jpeg", format)
	require.Equal(t, 48, decoded.Bounds().Dx())
}

func TestServeWatermarkedUnsupportedType(t *testing.T) {
	files, _, _ := newFileFixture(t)
	_, err := files.ServeWatermarked(context.Background(), "notes.txt")
	require.ErrorIs(t, err, ErrUnsupportedType)
}

func TestServeWatermarkedMissingFile(t *testing.T) {
	files, _, _ := newFileFixture(t)
	_, err := files.ServeWatermarked(context.Background(), "gone.png")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestServeWatermarkedCorruptImage(t *testing.T) {
	files, _, gw := newFileFixture(t)
	gw.Put("broken.png", "image/png", []byte("not a png"))

	_, err := files.ServeWatermarked(context.Background(), "broken.png")
	require.ErrorIs(t, err, ErrProcessing)
}

func writeStubTranscoder(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "transcoder")
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+body+"\n"), 0o755))
	return path
}

func newVideoFixture(t *testing.T, transcoder string) (*FileServer, *storage.MemoryGateway) {
	t.Helper()

	engine, err := watermark.New(config.WatermarkConfig{
		LogoPath: writeLogoFile(t),
		Opacity:  0.3,
		Quality:  80,
		FFmpeg:   transcoder,
	})
	require.NoError(t, err)

	gw := storage.NewMemoryGateway()
	gw.Put("clip.mp4", "video/mp4", []byte("boxed mp4 payload"))

	tokens := NewTokenService(db.NewMemoryUserStore(), gw, testSecret, time.Hour)
	return NewFileServer(gw, engine, tokens), gw
}

func TestServeWatermarkedVideoStreams(t *testing.T) {
	files, gw := newVideoFixture(t, writeStubTranscoder(t, "cat"))

	served, err := files.ServeWatermarked(context.Background(), "clip.mp4")
	require.NoError(t, err)
	defer served.Body.Close()

	require.Equal(t, "video/mp4", served.ContentType)
	require.EqualValues(t, -1, served.Size) // transcoded length is unknown

	body, err := io.ReadAll(served.Body)
	require.NoError(t, err)

	original, _, err := gw.Open(context.Background(), "clip.mp4")
	require.NoError(t, err)
	defer original.Close()
	want, err := io.ReadAll(original)
	require.NoError(t, err)
	require.Equal(t, want, body)
}

func TestServeWatermarkedVideoTranscodeFailure(t *testing.T) {
	files, _ := newVideoFixture(t, writeStubTranscoder(t, "echo 'codec not supported' >&2\nexit 1"))

	served, err := files.ServeWatermarked(context.Background(), "clip.mp4")
	require.NoError(t, err)
	defer served.Body.Close()

	// The failure reaches the reader as an error, not as half-written bytes
	// passed off as a complete response.
	_, err = io.ReadAll(served.Body)
	require.Error(t, err)
	require.Contains(t, err.Error(), "codec not supported")
}

func TestServeWatermarkedVideoMissingTranscoder(t *testing.T) {
	files, _ := newVideoFixture(t, filepath.Join(t.TempDir(), "no-such-binary"))

	_, err := files.ServeWatermarked(context.Background(), "clip.mp4")
	require.ErrorIs(t, err, ErrProcessing)
}

func TestServeCleanFailsClosed(t *testing.T) {
	files, tokens, _ := newFileFixture(t)
	ctx := context.Background()

	_, err := files.ServeClean(ctx, "photo.png", "")
	require.ErrorIs(t, err, ErrAuthRequired)

	_, err = files.ServeClean(ctx, "photo.png", "garbage")
	require.ErrorIs(t, err, ErrInvalidToken)

	// A token for another file never unlocks this one.
	other, err := tokens.Issue(ctx, "Alice", "alice@example.com", "", "notes.txt")
	require.NoError(t, err)
	_, err = files.ServeClean(ctx, "photo.png", other.Token)
	require.ErrorIs(t, err, ErrScopeMismatch)
}

func TestServeCleanStreamsOriginalBytes(t *testing.T) {
	files, tokens, gw := newFileFixture(t)
	ctx := context.Background()

	tok, err := tokens.Issue(ctx, "Alice", "alice@example.com", "", "photo.png")
	require.NoError(t, err)

	served, err := files.ServeClean(ctx, "photo.png", tok.Token)
	require.NoError(t, err)
	defer served.Body.Close()

	require.Equal(t, "image/png", served.ContentType)
	body, err := io.ReadAll(served.Body)
	require.NoError(t, err)

	original, _, err := gw.Open(ctx, "photo.png")
	require.NoError(t, err)
	defer original.Close()
	want, err := io.ReadAll(original)
	require.NoError(t, err)
	require.Equal(t, want, body) // no watermark on the clean path
}
