package watermark

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os/exec"
	"strings"
)

// Video pipes the source stream through ffmpeg, overlaying the logo centered
// at the configured opacity for the full duration. Output is a fragmented MP4
// so bytes can be written to the response as they are produced; audio is
// copied through unchanged.
//
// The returned reader fails with the ffmpeg error if the transcode dies
// mid-stream. Canceling ctx kills the process, which stops the upstream read.
func (e *Engine) Video(ctx context.Context, src io.Reader) (io.ReadCloser, error) {
	filter := fmt.Sprintf(
		"[1:v]format=rgba,colorchannelmixer=aa=%.2f[wm];[0:v][wm]overlay=(W-w)/2:(H-h)/2",
		e.opacity,
	)
	cmd := exec.CommandContext(ctx, e.ffmpeg,
		"-i", "pipe:0",
		"-i", e.logoPath,
		"-filter_complex", filter,
		"-c:v", "libx264",
		"-preset", "veryfast",
		"-c:a", "copy",
		"-movflags", "frag_keyframe+empty_moov",
		"-f", "mp4",
		"pipe:1",
	)
	cmd.Stdin = src

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	pr, pw := io.Pipe()
	cmd.Stdout = pw

	if err := cmd.Start(); err != nil {
		pr.Close()
		pw.Close()
		return nil, fmt.Errorf("start ffmpeg: %w", err)
	}

	go func() {
		if err := cmd.Wait(); err != nil {
			pw.CloseWithError(fmt.Errorf("ffmpeg: %w: %s", err, lastLine(&stderr)))
			return
		}
		pw.Close()
	}()

	return pr, nil
}

// lastLine keeps error payloads short; ffmpeg puts the reason on its final
// stderr line.
func lastLine(buf *bytes.Buffer) string {
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) == 0 {
		return ""
	}
	return strings.TrimSpace(lines[len(lines)-1])
}
