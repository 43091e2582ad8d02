package stencil

import (
	"fmt"
	"strings"

	"github.com/ironsheep/stencil-tools-mcp/internal/curve"
)

// Allowed ranges and defaults for Settings.
const (
	MinLevels      = 2
	MaxLevels      = 20
	MinOpacity     = 0
	MaxOpacity     = 100
	DefaultLevels  = 10
	DefaultOpacity = 50
)

// FidelityTier selects the quantizer's iteration and sample budget.
// It never affects output resolution.
type FidelityTier int

const (
	// TierLow clusters a subsample with a small iteration cap, for previews
	// while a curve is being dragged.
	TierLow FidelityTier = iota
	// TierHigh clusters every pixel with a larger iteration cap.
	TierHigh
)

func (t FidelityTier) String() string {
	switch t {
	case TierLow:
		return "low"
	case TierHigh:
		return "high"
	}
	return fmt.Sprintf("FidelityTier(%d)", int(t))
}

// ParseTier converts "low" or "high" (case-insensitive) to a FidelityTier.
// An empty string selects TierHigh.
func ParseTier(s string) (FidelityTier, error) {
	switch strings.ToLower(s) {
	case "low":
		return TierLow, nil
	case "high", "":
		return TierHigh, nil
	}
	return 0, fmt.Errorf("unknown fidelity tier: %s", s)
}

// Settings is an immutable snapshot of the processing parameters for one
// pipeline run.
type Settings struct {
	// Levels is the maximum number of palette colours (or grey bands), 2-20.
	Levels int `json:"levels"`

	// Opacity is the weight of the quantized rendition in the final blend,
	// 0-100. 0 reproduces the tone-mapped image, 100 the quantized one.
	Opacity int `json:"opacity"`

	// BlackAndWhite quantizes luminance instead of colour and makes the
	// final image fully desaturated.
	BlackAndWhite bool `json:"black_and_white"`

	// Curves are the tone curves applied before quantization.
	Curves curve.Set `json:"curves"`
}

// DefaultSettings returns levels=10, opacity=50, colour output and identity
// curves.
func DefaultSettings() Settings {
	return Settings{
		Levels:  DefaultLevels,
		Opacity: DefaultOpacity,
		Curves:  curve.DefaultSet(),
	}
}

// NewSettings validates its arguments and returns a Settings value.
// Errors wrap ErrInvalidSettings.
func NewSettings(levels, opacity int, blackAndWhite bool, curves curve.Set) (Settings, error) {
	s := Settings{
		Levels:        levels,
		Opacity:       opacity,
		BlackAndWhite: blackAndWhite,
		Curves:        curves,
	}
	if err := s.Validate(); err != nil {
		return Settings{}, err
	}
	return s, nil
}

// Validate checks the ranges of every field.
func (s Settings) Validate() error {
	if s.Levels < MinLevels || s.Levels > MaxLevels {
		return fmt.Errorf("%w: levels %d outside [%d,%d]", ErrInvalidSettings, s.Levels, MinLevels, MaxLevels)
	}
	if s.Opacity < MinOpacity || s.Opacity > MaxOpacity {
		return fmt.Errorf("%w: opacity %d outside [%d,%d]", ErrInvalidSettings, s.Opacity, MinOpacity, MaxOpacity)
	}
	if err := s.Curves.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidSettings, err)
	}
	return nil
}

// WithCurves returns a copy of s using the given curve set.
func (s Settings) WithCurves(c curve.Set) Settings {
	s.Curves = c
	return s
}
