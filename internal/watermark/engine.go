// Package watermark produces visibly marked copies of image and video
// content. Images are buffered and composited in-process; videos are piped
// through an external ffmpeg transcode so large files never sit in memory.
package watermark

import (
	"bytes"
	"fmt"
	"image"

	"github.com/disintegration/imaging"

	"github.com/arzan03/mediavault/internal/config"
)

// Engine applies the configured logo as an overlay. Construction fails when
// the logo asset is missing so a misconfigured deployment refuses to start
// instead of failing on every request.
type Engine struct {
	logo     image.Image
	logoPath string
	opacity  float64
	quality  int
	ffmpeg   string
}

func New(cfg config.WatermarkConfig) (*Engine, error) {
	logo, err := imaging.Open(cfg.LogoPath)
	if err != nil {
		return nil, fmt.Errorf("watermark logo %s: %w", cfg.LogoPath, err)
	}

	quality := cfg.Quality
	if quality <= 0 || quality > 100 {
		quality = 80
	}
	ffmpeg := cfg.FFmpeg
	if ffmpeg == "" {
		ffmpeg = "ffmpeg"
	}
	return &Engine{
		logo:     logo,
		logoPath: cfg.LogoPath,
		opacity:  cfg.Opacity,
		quality:  quality,
		ffmpeg:   ffmpeg,
	}, nil
}

// Image composites the logo over the source image and re-encodes it as JPEG.
// Policy: center-cover — the logo is scaled to cover the full frame so a crop
// cannot remove it, then blended at the configured opacity.
func (e *Engine) Image(src []byte) ([]byte, error) {
	img, err := imaging.Decode(bytes.NewReader(src))
	if err != nil {
		return nil, fmt.Errorf("decode source image: %w", err)
	}

	bounds := img.Bounds()
	overlay := imaging.Fill(e.logo, bounds.Dx(), bounds.Dy(), imaging.Center, imaging.Lanczos)
	marked := imaging.Overlay(img, overlay, image.Pt(0, 0), e.opacity)

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, marked, imaging.JPEG, imaging.JPEGQuality(e.quality)); err != nil {
		return nil, fmt.Errorf("encode watermarked image: %w", err)
	}
	return buf.Bytes(), nil
}
