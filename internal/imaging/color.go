package imaging

import (
	"image/color"
	"math"
	"sort"
	"strings"

	"github.com/lucasb-eyer/go-colorful"

	"github.com/ironsheep/stencil-tools-mcp/internal/stencil"
)

// RGBColor represents an RGB color with 8-bit components.
type RGBColor struct {
	R uint8 `json:"r"` // Red component (0-255)
	G uint8 `json:"g"` // Green component (0-255)
	B uint8 `json:"b"` // Blue component (0-255)
}

// HSLColor represents a color in HSL (Hue, Saturation, Lightness) color space.
type HSLColor struct {
	H int `json:"h"` // Hue: 0-360 degrees (0=red, 120=green, 240=blue)
	S int `json:"s"` // Saturation: 0-100 percent (0=gray, 100=vivid)
	L int `json:"l"` // Lightness: 0-100 percent (0=black, 50=normal, 100=white)
}

// ColorFrequency represents a color and its share of an image's pixels.
type ColorFrequency struct {
	Hex        string   `json:"hex"`        // Hex color "#RRGGBB"
	Percentage float64  `json:"percentage"` // Percentage of pixels with this color (0-100)
	Pixels     int      `json:"pixels"`     // Number of pixels with this color
	RGB        RGBColor `json:"rgb"`        // RGB components
	HSL        HSLColor `json:"hsl"`        // HSL representation
	Lightness  float64  `json:"lightness"`  // CIE L* (0-100), used for ordering
}

// PaletteResult lists the colours of a stencil from darkest to lightest.
//
// Ordering by perceptual lightness matches how stencil layers are usually
// traced: outlines and shadows first, highlights last.
type PaletteResult struct {
	Colors []ColorFrequency `json:"colors"`
	Count  int              `json:"count"`
}

// PaletteReport converts quantizer swatches into a PaletteResult.
//
// Percentages are relative to the total pixel count of all swatches.
func PaletteReport(swatches []stencil.Swatch) *PaletteResult {
	total := 0
	for _, s := range swatches {
		total += s.Pixels
	}

	colors := make([]ColorFrequency, 0, len(swatches))
	for _, s := range swatches {
		colors = append(colors, colorFrequency(s.R, s.G, s.B, s.Pixels, total))
	}
	sortByLightness(colors)

	return &PaletteResult{Colors: colors, Count: len(colors)}
}

// DominantColors returns the count most frequent exact colours in a buffer,
// most common first. Alpha is ignored.
//
// Parameters:
//   - b: The buffer to analyze.
//   - count: Maximum number of colours to return. Buffers with fewer distinct
//     colours return all of them.
func DominantColors(b stencil.PixelBuffer, count int) *PaletteResult {
	counts := make(map[color.NRGBA]int)
	total := 0
	for y := 0; y < b.Height(); y++ {
		for x := 0; x < b.Width(); x++ {
			c := b.At(x, y)
			c.A = 255
			counts[c]++
			total++
		}
	}

	colors := make([]ColorFrequency, 0, len(counts))
	for c, n := range counts {
		colors = append(colors, colorFrequency(c.R, c.G, c.B, n, total))
	}
	sort.Slice(colors, func(i, j int) bool {
		if colors[i].Pixels != colors[j].Pixels {
			return colors[i].Pixels > colors[j].Pixels
		}
		return colors[i].Hex < colors[j].Hex
	})
	if count >= 0 && len(colors) > count {
		colors = colors[:count]
	}

	return &PaletteResult{Colors: colors, Count: len(colors)}
}

func colorFrequency(r, g, b uint8, pixels, total int) ColorFrequency {
	c := colorful.Color{R: float64(r) / 255, G: float64(g) / 255, B: float64(b) / 255}
	h, s, l := c.Hsl()
	lstar, _, _ := c.Lab()

	pct := 0.0
	if total > 0 {
		pct = float64(pixels) / float64(total) * 100
	}
	return ColorFrequency{
		Hex:        strings.ToUpper(c.Hex()),
		Percentage: math.Round(pct*100) / 100,
		Pixels:     pixels,
		RGB:        RGBColor{R: r, G: g, B: b},
		HSL:        HSLColor{H: int(math.Round(h)) % 360, S: int(math.Round(s * 100)), L: int(math.Round(l * 100))},
		Lightness:  math.Round(lstar*10000) / 100,
	}
}

func sortByLightness(colors []ColorFrequency) {
	sort.SliceStable(colors, func(i, j int) bool {
		return colors[i].Lightness < colors[j].Lightness
	})
}
