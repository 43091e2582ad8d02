package curve

import "math"

// LUT maps every 8-bit input intensity to an output intensity.
type LUT [256]uint8

// IdentityLUT returns the table that maps every value to itself.
func IdentityLUT() LUT {
	var l LUT
	for i := range l {
		l[i] = uint8(i)
	}
	return l
}

// BuildLUT expands a curve into a lookup table.
//
// For each x the bracketing control points (x0,y0),(x1,y1) are located and y
// is linearly interpolated, rounded to the nearest integer and clamped to
// [0,255]. An x that coincides with a control point takes that point's y
// directly.
//
// The curve must satisfy Validate. BuildLUT panics on a curve without
// endpoints at 0 and 255; callers that accept curves from outside should
// validate first.
func BuildLUT(c Curve) LUT {
	pts := c.points
	if len(pts) < 2 || pts[0].X != MinX || pts[len(pts)-1].X != MaxX {
		panic("curve: BuildLUT called with invalid curve " + c.String())
	}

	var l LUT
	seg := 0
	for x := MinX; x <= MaxX; x++ {
		for seg < len(pts)-2 && x > pts[seg+1].X {
			seg++
		}
		p0, p1 := pts[seg], pts[seg+1]
		switch x {
		case p0.X:
			l[x] = clamp8(float64(p0.Y))
		case p1.X:
			l[x] = clamp8(float64(p1.Y))
		default:
			t := float64(x-p0.X) / float64(p1.X-p0.X)
			l[x] = clamp8(math.Round(float64(p0.Y) + t*float64(p1.Y-p0.Y)))
		}
	}
	return l
}

// Compose returns the table equivalent to applying l first and then next.
func (l LUT) Compose(next LUT) LUT {
	var out LUT
	for i, v := range l {
		out[i] = next[v]
	}
	return out
}

// IsIdentity reports whether the table maps every value to itself.
func (l LUT) IsIdentity() bool {
	for i, v := range l {
		if int(v) != i {
			return false
		}
	}
	return true
}

func clamp8(v float64) uint8 {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return uint8(v)
}
