package stencil

import (
	"fmt"

	"github.com/anthonynsimon/bild/parallel"
)

// Blend mixes the tone-mapped and quantized renditions.
//
// Per colour channel: out = round(curved*(1-opacity/100) + quantized*opacity/100).
// Output alpha is always 255. With grayscale set, each blended pixel is
// replaced by its Rec.601 luminance so that R=G=B; this is a no-op for
// inputs that are already grey, so the opacity 0 and 100 identities hold for
// grey inputs as well.
//
// Returns ErrDimensionMismatch if the buffers differ in size.
func Blend(curved, quantized PixelBuffer, opacity int, grayscale bool) (PixelBuffer, error) {
	if !curved.SameSize(quantized) {
		return PixelBuffer{}, fmt.Errorf("%w: curved %dx%d, quantized %dx%d", ErrDimensionMismatch,
			curved.width, curved.height, quantized.width, quantized.height)
	}
	opacity = clampInt(opacity, MinOpacity, MaxOpacity)
	wc := uint32(100 - opacity)
	wq := uint32(opacity)

	out := newBuffer(curved.width, curved.height)
	parallel.Line(curved.Len(), func(start, end int) {
		for i := start * 4; i < end*4; i += 4 {
			r := mix(curved.pix[i], quantized.pix[i], wc, wq)
			g := mix(curved.pix[i+1], quantized.pix[i+1], wc, wq)
			b := mix(curved.pix[i+2], quantized.pix[i+2], wc, wq)
			if grayscale {
				r = luma(r, g, b)
				g, b = r, r
			}
			out.pix[i] = r
			out.pix[i+1] = g
			out.pix[i+2] = b
			out.pix[i+3] = 255
		}
	})
	return out, nil
}

// Desaturate replaces every pixel's colour with its Rec.601 luminance,
// keeping alpha.
func Desaturate(src PixelBuffer) PixelBuffer {
	out := newBuffer(src.width, src.height)
	parallel.Line(src.Len(), func(start, end int) {
		for i := start * 4; i < end*4; i += 4 {
			y := luma(src.pix[i], src.pix[i+1], src.pix[i+2])
			out.pix[i] = y
			out.pix[i+1] = y
			out.pix[i+2] = y
			out.pix[i+3] = src.pix[i+3]
		}
	})
	return out
}

// mix computes (c*wc + q*wq)/100 rounded half up; wc+wq must be 100.
func mix(c, q uint8, wc, wq uint32) uint8 {
	return uint8((uint32(c)*wc + uint32(q)*wq + 50) / 100)
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
