// Package curve implements tone curves and the 256-entry lookup tables
// derived from them.
//
// A Curve is a short, ordered list of control points spanning the full 8-bit
// intensity range. The first point always sits at x=0 and the last at x=255;
// only their y values may change. Interior points can be inserted, moved, or
// removed by dragging them onto a neighbour. All editing operations return a
// new Curve and never modify the receiver, so a Curve value can be shared
// freely between goroutines.
//
// # Lookup Tables
//
// BuildLUT expands a Curve into a LUT by piecewise-linear interpolation
// between consecutive control points, rounding to the nearest integer and
// clamping to [0,255]. Control points map exactly:
//
//	c := curve.MustNew(curve.Point{0, 0}, curve.Point{65, 15}, curve.Point{190, 240}, curve.Point{255, 255})
//	lut := curve.BuildLUT(c)
//	lut[65] // 15
//
// # Channels
//
// A Set maps channel names to curves. ChannelAll applies to every colour
// channel; ChannelRed applies to the red channel only, after ChannelAll.
package curve
