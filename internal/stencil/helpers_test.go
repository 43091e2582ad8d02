package stencil

import (
	"image/color"
	"math/rand"
	"testing"
)

// solidBuffer creates a width×height buffer filled with c.
func solidBuffer(t *testing.T, width, height int, c color.NRGBA) PixelBuffer {
	t.Helper()
	pix := make([]uint8, width*height*4)
	for i := 0; i < len(pix); i += 4 {
		pix[i], pix[i+1], pix[i+2], pix[i+3] = c.R, c.G, c.B, c.A
	}
	b, err := NewPixelBuffer(width, height, pix)
	if err != nil {
		t.Fatalf("NewPixelBuffer failed: %v", err)
	}
	return b
}

// checkerboard creates a black/white checkerboard with single-pixel cells.
func checkerboard(t *testing.T, width, height int) PixelBuffer {
	t.Helper()
	pix := make([]uint8, width*height*4)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			i := (y*width + x) * 4
			v := uint8(0)
			if (x+y)%2 == 1 {
				v = 255
			}
			pix[i], pix[i+1], pix[i+2], pix[i+3] = v, v, v, 255
		}
	}
	b, err := NewPixelBuffer(width, height, pix)
	if err != nil {
		t.Fatalf("NewPixelBuffer failed: %v", err)
	}
	return b
}

// stripes creates a white buffer with a one-pixel black column every period
// pixels, starting at x=0.
func stripes(t *testing.T, width, height, period int) PixelBuffer {
	t.Helper()
	pix := make([]uint8, width*height*4)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			i := (y*width + x) * 4
			v := uint8(255)
			if x%period == 0 {
				v = 0
			}
			pix[i], pix[i+1], pix[i+2], pix[i+3] = v, v, v, 255
		}
	}
	b, err := NewPixelBuffer(width, height, pix)
	if err != nil {
		t.Fatalf("NewPixelBuffer failed: %v", err)
	}
	return b
}

// noisyBuffer creates a buffer of pseudo-random colours from a fixed seed,
// with a smooth gradient underneath so clusters have some structure.
func noisyBuffer(t *testing.T, width, height int, seed int64) PixelBuffer {
	t.Helper()
	rng := rand.New(rand.NewSource(seed))
	pix := make([]uint8, width*height*4)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			i := (y*width + x) * 4
			pix[i] = uint8((x*255/max(width-1, 1) + rng.Intn(40)) % 256)
			pix[i+1] = uint8((y*255/max(height-1, 1) + rng.Intn(40)) % 256)
			pix[i+2] = uint8(rng.Intn(256))
			pix[i+3] = uint8(128 + rng.Intn(128))
		}
	}
	b, err := NewPixelBuffer(width, height, pix)
	if err != nil {
		t.Fatalf("NewPixelBuffer failed: %v", err)
	}
	return b
}

func alphaMatches(a, b PixelBuffer) bool {
	if !a.SameSize(b) {
		return false
	}
	for i := 3; i < len(a.pix); i += 4 {
		if a.pix[i] != b.pix[i] {
			return false
		}
	}
	return true
}
