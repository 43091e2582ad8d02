package stencil

import (
	"fmt"
	"time"
)

// Artifacts are the outputs of a single pipeline run. CurvedOnly and Final
// always come from the same run and have the source's dimensions.
type Artifacts struct {
	// CurvedOnly is the tone-mapped source.
	CurvedOnly PixelBuffer

	// Final is the blend of the tone-mapped and quantized renditions.
	Final PixelBuffer

	// Quantized is the flat-colour rendition before blending.
	Quantized PixelBuffer

	// Palette lists the quantized colours in centroid order with their
	// pixel counts. Colours with no pixels are omitted.
	Palette []Swatch

	// Settings and Tier record what produced these artifacts.
	Settings Settings
	Tier     FidelityTier

	// Elapsed is the wall time the run took.
	Elapsed time.Duration
}

// Result is delivered by ProcessAsync.
type Result struct {
	Artifacts Artifacts
	Err       error
}

// Process runs the full pipeline on src.
//
// Steps:
//  1. Build the master and red LUTs from settings.Curves.
//  2. ApplyCurves to get the tone-mapped buffer.
//  3. Quantize the tone-mapped buffer with settings.Levels and the tier.
//  4. Blend the two with settings.Opacity. In black-and-white mode the
//     tone-mapped buffer is desaturated before blending.
//
// Errors:
//   - ErrEmptyBuffer if src has no pixels; nothing is produced.
//   - ErrInvalidSettings if settings fail validation.
func Process(src PixelBuffer, settings Settings, tier FidelityTier) (Artifacts, error) {
	if src.Empty() {
		return Artifacts{}, ErrEmptyBuffer
	}
	if err := settings.Validate(); err != nil {
		return Artifacts{}, err
	}

	started := time.Now()
	lutAll, lutRed := settings.Curves.LUTs()
	curved := ApplyCurves(src, lutAll, lutRed)
	q := quantize(curved, settings.Levels, settings.BlackAndWhite, tier)

	base := curved
	if settings.BlackAndWhite {
		base = Desaturate(curved)
	}
	final, err := Blend(base, q.out, settings.Opacity, settings.BlackAndWhite)
	if err != nil {
		// Both inputs derive from src, so this is a programming error.
		return Artifacts{}, fmt.Errorf("blend: %w", err)
	}

	a := Artifacts{
		CurvedOnly: curved,
		Final:      final,
		Quantized:  q.out,
		Palette:    q.swatches(),
		Settings:   settings,
		Tier:       tier,
		Elapsed:    time.Since(started),
	}
	Logger().Debug("pipeline run",
		"width", src.Width(),
		"height", src.Height(),
		"tier", tier.String(),
		"levels", settings.Levels,
		"opacity", settings.Opacity,
		"black_and_white", settings.BlackAndWhite,
		"colors", len(a.Palette),
		"elapsed", a.Elapsed,
	)
	return a, nil
}

// ProcessAsync runs Process on a new goroutine and returns immediately. The
// returned channel receives exactly one Result and is then closed.
func ProcessAsync(src PixelBuffer, settings Settings, tier FidelityTier) <-chan Result {
	ch := make(chan Result, 1)
	go func() {
		defer close(ch)
		a, err := Process(src, settings, tier)
		ch <- Result{Artifacts: a, Err: err}
	}()
	return ch
}
