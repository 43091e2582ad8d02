package stencil

import (
	"image"
	"image/color"

	"github.com/soniakeys/quant"
)

// Quantizer exposes the k-means clustering through the quant.Quantizer
// interface so paletted images can be produced for export.
type Quantizer struct {
	Tier      FidelityTier
	Grayscale bool
	N         int // palette size; zero means 256
}

var _ quant.Quantizer = Quantizer{}

// colors returns the palette size, clamped to [1,256].
func (q Quantizer) colors() int {
	switch {
	case q.N == 0 || q.N > 256:
		return 256
	case q.N < 1:
		return 1
	}
	return q.N
}

// Paletted quantizes img to at most q.N colours and returns it as a paletted
// image whose palette holds one entry per centroid. Alpha is not
// represented in the palette.
func (q Quantizer) Paletted(img image.Image) *image.Paletted {
	src := FromImage(img)
	res := quantize(src, q.colors(), q.Grayscale, q.Tier)

	pal := make(color.Palette, len(res.palette))
	for i, c := range res.palette {
		pal[i] = c
	}
	out := image.NewPaletted(image.Rect(0, 0, src.width, src.height), pal)
	copy(out.Pix, res.labels)
	return out
}

// Palette returns the centroid colours for img.
func (q Quantizer) Palette(img image.Image) quant.Palette {
	res := quantize(FromImage(img), q.colors(), q.Grayscale, q.Tier)
	pal := make(color.Palette, len(res.palette))
	for i, c := range res.palette {
		pal[i] = c
	}
	return quant.LinearPalette{Palette: pal}
}

// Paletted converts an already quantized buffer into a paletted image
// without re-clustering. It returns false if the buffer holds more than 256
// distinct colours.
func Paletted(b PixelBuffer) (*image.Paletted, bool) {
	index := make(map[color.NRGBA]uint8)
	var pal color.Palette
	out := image.NewPaletted(image.Rect(0, 0, b.width, b.height), nil)
	for j := 0; j < b.Len(); j++ {
		c := color.NRGBA{R: b.pix[j*4], G: b.pix[j*4+1], B: b.pix[j*4+2], A: 255}
		i, ok := index[c]
		if !ok {
			if len(pal) == 256 {
				return nil, false
			}
			i = uint8(len(pal))
			index[c] = i
			pal = append(pal, c)
		}
		out.Pix[j] = i
	}
	out.Palette = pal
	return out, true
}
