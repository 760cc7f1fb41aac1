package upload

import (
	"bytes"
	"fmt"
	"image"

	_ "image/gif"  // register gif
	_ "image/jpeg" // register jpeg
	_ "image/png"  // register png
)

// Guards holds the local pre-upload thresholds. Guard failures never reach
// any remote API.
type Guards struct {
	MinWidth       int
	MinHeight      int
	MinAspectRatio float64
	MaxAspectRatio float64
	MaxBytes       int64
}

// DefaultGuards returns the production thresholds: 200px minimum edge, aspect
// ratio within [0.5, 2.0], 5 MiB maximum.
func DefaultGuards() Guards {
	return Guards{
		MinWidth:       200,
		MinHeight:      200,
		MinAspectRatio: 0.5,
		MaxAspectRatio: 2.0,
		MaxBytes:       5 << 20,
	}
}

// check runs the guards in order: decodability, minimum dimensions, aspect
// ratio bounds, then byte size. The returned error carries the human-readable
// failure reason.
func (g Guards) check(data []byte) error {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("unreadable image data")
	}

	if cfg.Width < g.MinWidth || cfg.Height < g.MinHeight {
		return fmt.Errorf("image too small: %dx%d, minimum %dx%d", cfg.Width, cfg.Height, g.MinWidth, g.MinHeight)
	}

	ratio := float64(cfg.Width) / float64(cfg.Height)
	if ratio < g.MinAspectRatio || ratio > g.MaxAspectRatio {
		return fmt.Errorf("aspect ratio %.2f outside allowed range [%.2f, %.2f]", ratio, g.MinAspectRatio, g.MaxAspectRatio)
	}

	if int64(len(data)) > g.MaxBytes {
		return fmt.Errorf("image exceeds %d byte limit", g.MaxBytes)
	}

	return nil
}
