// Package stencil implements the image processing core that turns a
// photograph into a flat-colour tattoo stencil.
//
// The core is a pure, synchronous transformation from a source PixelBuffer
// and an immutable Settings value to two output buffers:
//
//	source ──ApplyCurves──▶ curved ──Quantize──▶ quantized
//	                          │                      │
//	                          └──────Blend(opacity)──┴──▶ final
//
// Process runs the whole pipeline and returns both buffers together as an
// Artifacts value. ProcessAsync does the same on a separate goroutine and
// delivers the result on a channel.
//
// # Pixel Buffers
//
// A PixelBuffer is a row-major, non-premultiplied RGBA byte array. Buffers
// have no exported mutators; every stage allocates a new output buffer and
// leaves its inputs untouched, so a source buffer can be shared by any
// number of concurrent runs.
//
// # Quantization
//
// Quantize reduces the palette with deterministic k-means clustering, either
// over RGB or, for black-and-white stencils, over Rec.601 luminance. Two
// fidelity tiers trade convergence accuracy for latency: TierLow clusters a
// spatial subsample with a small iteration cap, TierHigh clusters every pixel
// with a larger cap. Both tiers assign every pixel of the full-resolution
// image in the final pass. Per-pixel passes run in parallel; sums are
// accumulated as integers so results do not depend on how work is split.
//
// # Errors
//
// Settings are validated by NewSettings and again, defensively, by Process.
// Failures wrap ErrInvalidSettings, ErrDimensionMismatch or ErrEmptyBuffer
// and can be tested with errors.Is.
//
// # Logging
//
// The package is silent by default. Call SetLogger to receive debug records
// about runs and clustering convergence.
package stencil
