package stencil

import (
	"image/color"
	"math"
	"sync"

	"github.com/anthonynsimon/bild/parallel"
)

// Clustering budgets per fidelity tier.
const (
	lowTierStride     = 4
	lowTierMinPixels  = 4096 // below this the low tier clusters every pixel
	lowTierMaxIter    = 8
	highTierMaxIter   = 32
	convergenceThresh = 0.5 // max centroid movement, in 8-bit units
)

// Swatch is one colour of a quantized palette and the number of pixels of
// the full image assigned to it.
type Swatch struct {
	R, G, B uint8
	Pixels  int
}

// NRGBA returns the swatch as an opaque colour.
func (s Swatch) NRGBA() color.NRGBA {
	return color.NRGBA{R: s.R, G: s.G, B: s.B, A: 255}
}

// Quantize reduces src to at most levels colours, or levels grey bands when
// grayscale is set.
//
// Centroids are seeded evenly across the observed value range, refined by
// k-means iterations within the tier's budget, and then every pixel of src
// is replaced by the colour of its nearest centroid. Alpha is copied from
// src. Identical inputs always give identical output.
//
// levels must already be validated by the caller; values below 1 are
// treated as 1.
func Quantize(src PixelBuffer, levels int, grayscale bool, tier FidelityTier) PixelBuffer {
	return quantize(src, levels, grayscale, tier).out
}

// clustering is the full result of a quantization run.
type clustering struct {
	out       PixelBuffer
	palette   []color.NRGBA // one opaque colour per centroid, in centroid order
	labels    []uint8       // centroid index per pixel
	counts    []int         // pixels per centroid in the final pass
	iteration int
	moved     float64
}

// swatches returns the palette entries that were assigned at least one
// pixel, merging centroids that rounded to the same colour.
func (c clustering) swatches() []Swatch {
	out := make([]Swatch, 0, len(c.palette))
	index := make(map[color.NRGBA]int, len(c.palette))
	for i, p := range c.palette {
		if c.counts[i] == 0 {
			continue
		}
		if j, ok := index[p]; ok {
			out[j].Pixels += c.counts[i]
			continue
		}
		index[p] = len(out)
		out = append(out, Swatch{R: p.R, G: p.G, B: p.B, Pixels: c.counts[i]})
	}
	return out
}

// kmeans clusters d-dimensional 8-bit feature vectors.
type kmeans struct {
	feat      []uint8 // n*d values
	d         int
	n         int
	k         int
	centroids []float64 // k*d values
}

func quantize(src PixelBuffer, levels int, grayscale bool, tier FidelityTier) clustering {
	if levels < 1 {
		levels = 1
	}
	if levels > 256 {
		levels = 256
	}

	km := newKMeans(src, levels, grayscale)
	stride, maxIter := tierBudget(tier, km.n)
	km.seed()

	var iter int
	var moved float64
	for iter = 1; iter <= maxIter; iter++ {
		moved = km.step(stride)
		if moved < convergenceThresh {
			break
		}
	}
	if iter > maxIter {
		iter = maxIter
	}

	res := km.assign(src)
	res.iteration = iter
	res.moved = moved

	Logger().Debug("quantized",
		"tier", tier.String(),
		"levels", levels,
		"grayscale", grayscale,
		"pixels", km.n,
		"stride", stride,
		"iterations", iter,
		"moved", moved,
	)
	return res
}

func tierBudget(tier FidelityTier, n int) (stride, maxIter int) {
	if tier == TierLow {
		if n >= lowTierMinPixels {
			return lowTierStride, lowTierMaxIter
		}
		return 1, lowTierMaxIter
	}
	return 1, highTierMaxIter
}

func newKMeans(src PixelBuffer, k int, grayscale bool) *kmeans {
	n := src.Len()
	d := 3
	if grayscale {
		d = 1
	}
	feat := make([]uint8, n*d)
	parallel.Line(n, func(start, end int) {
		for j := start; j < end; j++ {
			p := src.pix[j*4 : j*4+3]
			if grayscale {
				feat[j] = luma(p[0], p[1], p[2])
			} else {
				copy(feat[j*3:j*3+3], p)
			}
		}
	})
	return &kmeans{feat: feat, d: d, n: n, k: k, centroids: make([]float64, k*d)}
}

// seed spaces the centroids evenly along the diagonal of the bounding box of
// every value, so a sparse sample still starts with the full range.
func (km *kmeans) seed() {
	lo := make([]int, km.d)
	hi := make([]int, km.d)
	for c := range lo {
		lo[c], hi[c] = 255, 0
	}
	for j := 0; j < km.n; j++ {
		v := km.feat[j*km.d : j*km.d+km.d]
		for c := range v {
			lo[c] = min(lo[c], int(v[c]))
			hi[c] = max(hi[c], int(v[c]))
		}
	}
	if km.n == 0 {
		for c := range lo {
			lo[c], hi[c] = 0, 0
		}
	}

	for i := 0; i < km.k; i++ {
		t := 0.0
		if km.k > 1 {
			t = float64(i) / float64(km.k-1)
		}
		for c := 0; c < km.d; c++ {
			km.centroids[i*km.d+c] = float64(lo[c]) + t*float64(hi[c]-lo[c])
		}
	}
}

// step runs one assignment/update iteration over the sample and returns the
// largest distance any centroid moved. Centroids with no members keep their
// position.
func (km *kmeans) step(stride int) float64 {
	samples := (km.n + stride - 1) / stride
	sums := make([]int64, km.k*km.d)
	counts := make([]int64, km.k)
	var mu sync.Mutex

	parallel.Line(samples, func(start, end int) {
		localSums := make([]int64, km.k*km.d)
		localCounts := make([]int64, km.k)
		for s := start; s < end; s++ {
			j := s * stride
			v := km.feat[j*km.d : j*km.d+km.d]
			i := km.nearest(v)
			localCounts[i]++
			for c := range v {
				localSums[i*km.d+c] += int64(v[c])
			}
		}
		mu.Lock()
		for i := range localCounts {
			counts[i] += localCounts[i]
		}
		for i := range localSums {
			sums[i] += localSums[i]
		}
		mu.Unlock()
	})

	var moved float64
	for i := 0; i < km.k; i++ {
		if counts[i] == 0 {
			continue
		}
		var dist float64
		for c := 0; c < km.d; c++ {
			next := float64(sums[i*km.d+c]) / float64(counts[i])
			delta := next - km.centroids[i*km.d+c]
			dist += delta * delta
			km.centroids[i*km.d+c] = next
		}
		moved = math.Max(moved, math.Sqrt(dist))
	}
	return moved
}

// nearest returns the index of the centroid closest to v by squared
// Euclidean distance. Ties go to the lowest index.
func (km *kmeans) nearest(v []uint8) int {
	best := 0
	bestDist := math.Inf(1)
	for i := 0; i < km.k; i++ {
		cen := km.centroids[i*km.d : i*km.d+km.d]
		var dist float64
		for c := range v {
			delta := float64(v[c]) - cen[c]
			dist += delta * delta
		}
		if dist < bestDist {
			best, bestDist = i, dist
		}
	}
	return best
}

// palette rounds the centroids to opaque 8-bit colours. One-dimensional
// centroids become grey.
func (km *kmeans) palette() []color.NRGBA {
	pal := make([]color.NRGBA, km.k)
	for i := range pal {
		cen := km.centroids[i*km.d : i*km.d+km.d]
		if km.d == 1 {
			v := roundChannel(cen[0])
			pal[i] = color.NRGBA{R: v, G: v, B: v, A: 255}
			continue
		}
		pal[i] = color.NRGBA{R: roundChannel(cen[0]), G: roundChannel(cen[1]), B: roundChannel(cen[2]), A: 255}
	}
	return pal
}

// assign maps every pixel to its nearest centroid and writes the centroid
// colour, keeping the source alpha.
func (km *kmeans) assign(src PixelBuffer) clustering {
	pal := km.palette()
	out := newBuffer(src.width, src.height)
	labels := make([]uint8, km.n)
	counts := make([]int, km.k)
	var mu sync.Mutex

	parallel.Line(km.n, func(start, end int) {
		local := make([]int, km.k)
		for j := start; j < end; j++ {
			i := km.nearest(km.feat[j*km.d : j*km.d+km.d])
			labels[j] = uint8(i)
			local[i]++
			c := pal[i]
			out.pix[j*4] = c.R
			out.pix[j*4+1] = c.G
			out.pix[j*4+2] = c.B
			out.pix[j*4+3] = src.pix[j*4+3]
		}
		mu.Lock()
		for i, n := range local {
			counts[i] += n
		}
		mu.Unlock()
	})

	return clustering{out: out, palette: pal, labels: labels, counts: counts}
}

func roundChannel(v float64) uint8 {
	v = math.Round(v)
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return uint8(v)
}
