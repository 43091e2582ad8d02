package curve

import "fmt"

// InsertPoint returns a copy of c with a control point at (x, y).
//
// If a point already exists at x, its y is replaced instead. Coordinates are
// clamped to [0,255]; inserting at x=0 or x=255 therefore moves the
// corresponding endpoint vertically. The returned index is the position of
// the inserted (or replaced) point.
func (c Curve) InsertPoint(x, y int) (Curve, int) {
	x, y = clampInt(x, MinX, MaxX), clampInt(y, 0, 255)

	pts := make([]Point, 0, len(c.points)+1)
	idx := -1
	for _, p := range c.points {
		switch {
		case idx < 0 && p.X == x:
			pts = append(pts, Point{x, y})
			idx = len(pts) - 1
			continue
		case idx < 0 && p.X > x:
			pts = append(pts, Point{x, y})
			idx = len(pts) - 1
		}
		pts = append(pts, p)
	}
	return Curve{points: pts}, idx
}

// MovePoint returns a copy of c with point i dragged to (x, y).
//
// y is clamped to [0,255]. Endpoints keep their x (0 for the first, 255 for
// the last) and only move vertically. An interior point whose new x reaches
// or passes a neighbour's x is removed from the curve; the returned index is
// then -1. Otherwise the returned index is i.
func (c Curve) MovePoint(i, x, y int) (Curve, int, error) {
	if i < 0 || i >= len(c.points) {
		return Curve{}, -1, fmt.Errorf("%w: point index %d out of range [0,%d)", ErrInvalidCurve, i, len(c.points))
	}
	y = clampInt(y, 0, 255)

	pts := c.Points()
	last := len(pts) - 1
	switch i {
	case 0:
		pts[0].Y = y
		return Curve{points: pts}, 0, nil
	case last:
		pts[last].Y = y
		return Curve{points: pts}, last, nil
	}

	if x <= pts[i-1].X || x >= pts[i+1].X {
		pts = append(pts[:i], pts[i+1:]...)
		return Curve{points: pts}, -1, nil
	}
	pts[i] = Point{x, y}
	return Curve{points: pts}, i, nil
}

// RemovePoint returns a copy of c without interior point i.
// Endpoints cannot be removed.
func (c Curve) RemovePoint(i int) (Curve, error) {
	if i <= 0 || i >= len(c.points)-1 {
		return Curve{}, fmt.Errorf("%w: cannot remove point %d (endpoints are fixed)", ErrInvalidCurve, i)
	}
	pts := c.Points()
	pts = append(pts[:i], pts[i+1:]...)
	return Curve{points: pts}, nil
}

// Nearest returns the index of the control point closest to x, or -1 if no
// point lies within tolerance.
func (c Curve) Nearest(x, tolerance int) int {
	best, bestDist := -1, tolerance+1
	for i, p := range c.points {
		d := p.X - x
		if d < 0 {
			d = -d
		}
		if d < bestDist {
			best, bestDist = i, d
		}
	}
	return best
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
