package stencil

import (
	"bytes"
	"fmt"
	"image"
	"image/color"

	"github.com/disintegration/imaging"
)

// PixelBuffer is an immutable width×height RGBA image stored row-major,
// 4 bytes per pixel, without alpha premultiplication.
type PixelBuffer struct {
	width  int
	height int
	pix    []uint8
}

// NewPixelBuffer wraps a copy of pix. len(pix) must be width*height*4.
func NewPixelBuffer(width, height int, pix []uint8) (PixelBuffer, error) {
	if width < 0 || height < 0 {
		return PixelBuffer{}, fmt.Errorf("negative dimensions %dx%d", width, height)
	}
	if len(pix) != width*height*4 {
		return PixelBuffer{}, fmt.Errorf("pixel data has %d bytes, want %d for %dx%d", len(pix), width*height*4, width, height)
	}
	return PixelBuffer{
		width:  width,
		height: height,
		pix:    append([]uint8(nil), pix...),
	}, nil
}

// FromImage converts any image into a PixelBuffer. The result is anchored at
// (0,0) regardless of the image's bounds.
func FromImage(img image.Image) PixelBuffer {
	if img == nil {
		return PixelBuffer{}
	}
	nrgba := imaging.Clone(img)
	return PixelBuffer{
		width:  nrgba.Rect.Dx(),
		height: nrgba.Rect.Dy(),
		pix:    nrgba.Pix,
	}
}

// newBuffer allocates a zeroed buffer. Only used for stage outputs.
func newBuffer(width, height int) PixelBuffer {
	return PixelBuffer{
		width:  width,
		height: height,
		pix:    make([]uint8, width*height*4),
	}
}

// Width returns the width in pixels.
func (b PixelBuffer) Width() int { return b.width }

// Height returns the height in pixels.
func (b PixelBuffer) Height() int { return b.height }

// Len returns the number of pixels.
func (b PixelBuffer) Len() int { return b.width * b.height }

// Empty reports whether the buffer has no pixels.
func (b PixelBuffer) Empty() bool {
	return b.width <= 0 || b.height <= 0 || len(b.pix) == 0
}

// SameSize reports whether b and o have identical dimensions.
func (b PixelBuffer) SameSize(o PixelBuffer) bool {
	return b.width == o.width && b.height == o.height
}

// At returns the pixel at (x, y). Coordinates outside the buffer return the
// zero colour.
func (b PixelBuffer) At(x, y int) color.NRGBA {
	if x < 0 || x >= b.width || y < 0 || y >= b.height {
		return color.NRGBA{}
	}
	i := (y*b.width + x) * 4
	return color.NRGBA{R: b.pix[i], G: b.pix[i+1], B: b.pix[i+2], A: b.pix[i+3]}
}

// Bytes returns a copy of the raw RGBA data.
func (b PixelBuffer) Bytes() []uint8 {
	return append([]uint8(nil), b.pix...)
}

// Equal reports whether both buffers have the same size and identical bytes.
func (b PixelBuffer) Equal(o PixelBuffer) bool {
	return b.SameSize(o) && bytes.Equal(b.pix, o.pix)
}

// ToImage returns a copy of the buffer as an *image.NRGBA.
func (b PixelBuffer) ToImage() *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, b.width, b.height))
	copy(img.Pix, b.pix)
	return img
}

// IsGray reports whether every pixel has R=G=B.
func (b PixelBuffer) IsGray() bool {
	for i := 0; i+3 < len(b.pix); i += 4 {
		if b.pix[i] != b.pix[i+1] || b.pix[i] != b.pix[i+2] {
			return false
		}
	}
	return true
}

// CountColors returns the number of distinct RGB colours, ignoring alpha.
func (b PixelBuffer) CountColors() int {
	seen := make(map[[3]uint8]struct{})
	for i := 0; i+3 < len(b.pix); i += 4 {
		seen[[3]uint8{b.pix[i], b.pix[i+1], b.pix[i+2]}] = struct{}{}
	}
	return len(seen)
}

// luma is the Rec.601 luminance of an 8-bit RGB triple, rounded.
func luma(r, g, b uint8) uint8 {
	return uint8((299*uint32(r) + 587*uint32(g) + 114*uint32(b) + 500) / 1000)
}
