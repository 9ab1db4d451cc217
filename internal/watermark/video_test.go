package watermark

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/arzan03/mediavault/internal/config"
)

// writeTranscoder stands in for ffmpeg so the pipe wiring is testable without
// a real install.
func writeTranscoder(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "transcoder")
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+body+"\n"), 0o755))
	return path
}

func newVideoEngine(t *testing.T, transcoder string) *Engine {
	t.Helper()
	engine, err := New(config.WatermarkConfig{
		LogoPath: writeTestLogo(t),
		Opacity:  0.3,
		Quality:  80,
		FFmpeg:   transcoder,
	})
	require.NoError(t, err)
	return engine
}

func TestVideoPipesTranscoderOutput(t *testing.T) {
	engine := newVideoEngine(t, writeTranscoder(t, "cat"))

	src := []byte("fake video payload")
	out, err := engine.Video(context.Background(), bytes.NewReader(src))
	require.NoError(t, err)
	defer out.Close()

	got, err := io.ReadAll(out)
	require.NoError(t, err)
	require.Equal(t, src, got)
}

func TestVideoTranscoderFailure(t *testing.T) {
	engine := newVideoEngine(t, writeTranscoder(t, "echo 'bad input stream' >&2\nexit 1"))

	out, err := engine.Video(context.Background(), bytes.NewReader([]byte("payload")))
	require.NoError(t, err)
	defer out.Close()

	// A mid-stream death must surface as a read error carrying the
	// transcoder's reason, never as truncated success.
	_, err = io.ReadAll(out)
	require.Error(t, err)
	require.Contains(t, err.Error(), "bad input stream")
}

func TestVideoMissingBinary(t *testing.T) {
	engine := newVideoEngine(t, filepath.Join(t.TempDir(), "no-such-ffmpeg"))
	_, err := engine.Video(context.Background(), bytes.NewReader(nil))
	require.Error(t, err)
}
