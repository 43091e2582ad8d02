package stencil

import (
	"github.com/anthonynsimon/bild/parallel"

	"github.com/ironsheep/stencil-tools-mcp/internal/curve"
)

// ApplyCurves remaps every pixel's colour channels through the tone curves.
//
// Each of R, G and B is first mapped through lutAll; the red channel is then
// mapped again through lutRed. Alpha passes through unchanged. The result is
// a new buffer; src is not modified.
func ApplyCurves(src PixelBuffer, lutAll, lutRed curve.LUT) PixelBuffer {
	out := newBuffer(src.width, src.height)
	red := lutAll.Compose(lutRed)

	parallel.Line(src.Len(), func(start, end int) {
		for i := start * 4; i < end*4; i += 4 {
			out.pix[i] = red[src.pix[i]]
			out.pix[i+1] = lutAll[src.pix[i+1]]
			out.pix[i+2] = lutAll[src.pix[i+2]]
			out.pix[i+3] = src.pix[i+3]
		}
	})
	return out
}
