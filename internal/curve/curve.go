package curve

import (
	"encoding/json"
	"errors"
	"fmt"
)

// MinX and MaxX are the fixed x positions of a curve's endpoints.
const (
	MinX = 0
	MaxX = 255
)

// ErrInvalidCurve is returned (wrapped) for curves that break the ordering
// or endpoint rules.
var ErrInvalidCurve = errors.New("invalid curve")

// Point is a single control point. X is the input intensity and Y the mapped
// output intensity, both in [0,255].
type Point struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// Curve is an immutable, x-ordered list of control points.
//
// The zero value is not a valid curve; use Identity, New or MustNew.
type Curve struct {
	points []Point
}

// Identity returns the default two-point curve [(0,0),(255,255)].
func Identity() Curve {
	return Curve{points: []Point{{MinX, 0}, {MaxX, 255}}}
}

// New builds a curve from the given points and validates it.
// The points are copied.
func New(points ...Point) (Curve, error) {
	c := Curve{points: append([]Point(nil), points...)}
	if err := c.Validate(); err != nil {
		return Curve{}, err
	}
	return c, nil
}

// MustNew is like New but panics on invalid input. It is meant for
// package-level presets and tests.
func MustNew(points ...Point) Curve {
	c, err := New(points...)
	if err != nil {
		panic(err)
	}
	return c
}

// Points returns a copy of the control points.
func (c Curve) Points() []Point {
	return append([]Point(nil), c.points...)
}

// Len returns the number of control points.
func (c Curve) Len() int {
	return len(c.points)
}

// At returns the i-th control point.
func (c Curve) At(i int) Point {
	return c.points[i]
}

// Equal reports whether two curves have identical control points.
func (c Curve) Equal(o Curve) bool {
	if len(c.points) != len(o.points) {
		return false
	}
	for i := range c.points {
		if c.points[i] != o.points[i] {
			return false
		}
	}
	return true
}

// Validate checks the curve invariants:
//   - at least two points
//   - every coordinate in [0,255]
//   - x strictly ascending
//   - first x is 0 and last x is 255
func (c Curve) Validate() error {
	if len(c.points) < 2 {
		return fmt.Errorf("%w: need at least 2 points, got %d", ErrInvalidCurve, len(c.points))
	}
	for i, p := range c.points {
		if p.X < MinX || p.X > MaxX || p.Y < 0 || p.Y > 255 {
			return fmt.Errorf("%w: point %d (%d,%d) out of range", ErrInvalidCurve, i, p.X, p.Y)
		}
		if i > 0 && p.X <= c.points[i-1].X {
			return fmt.Errorf("%w: x not strictly ascending at point %d", ErrInvalidCurve, i)
		}
	}
	if first := c.points[0]; first.X != MinX {
		return fmt.Errorf("%w: first point has x=%d, want %d", ErrInvalidCurve, first.X, MinX)
	}
	if last := c.points[len(c.points)-1]; last.X != MaxX {
		return fmt.Errorf("%w: last point has x=%d, want %d", ErrInvalidCurve, last.X, MaxX)
	}
	return nil
}

// String formats the curve as [(x,y) ...].
func (c Curve) String() string {
	s := "["
	for i, p := range c.points {
		if i > 0 {
			s += " "
		}
		s += fmt.Sprintf("(%d,%d)", p.X, p.Y)
	}
	return s + "]"
}

// MarshalJSON encodes the curve as its list of control points.
func (c Curve) MarshalJSON() ([]byte, error) {
	if c.points == nil {
		return []byte("null"), nil
	}
	return json.Marshal(c.points)
}

// UnmarshalJSON decodes a list of control points and validates the result.
// A null value leaves the curve unset.
func (c *Curve) UnmarshalJSON(data []byte) error {
	var pts []Point
	if err := json.Unmarshal(data, &pts); err != nil {
		return err
	}
	if pts == nil {
		*c = Curve{}
		return nil
	}
	nc, err := New(pts...)
	if err != nil {
		return err
	}
	*c = nc
	return nil
}
