// Package geometry maps telemetry values to chart-space drawing primitives.
// Everything here is pure: no I/O, no state, and no panics on empty or
// single-point input.
//
// Chart space has its origin at the top-left; y grows downward, so larger
// values are drawn at smaller y.
package geometry

// Anchor is the horizontal text alignment of a label, using SVG's
// text-anchor vocabulary.
type Anchor string

const (
	AnchorStart  Anchor = "start"
	AnchorMiddle Anchor = "middle"
	AnchorEnd    Anchor = "end"
)

// Primitive classes. Surfaces style by class, not by position.
const (
	ClassGrid       = "grid"
	ClassAxis       = "axis"
	ClassTickMajor  = "tick-major"
	ClassTickMinor  = "tick-minor"
	ClassTickLabel  = "tick-label"
	ClassSeriesGlow = "series-glow"
	ClassSeriesLine = "series-line"
)

// Point is a chart-space coordinate.
type Point struct {
	X, Y float64
}

// Rect is an axis-aligned rectangle with its origin at the top-left corner.
type Rect struct {
	X, Y, W, H float64
}

// Line is a straight segment.
type Line struct {
	X1, Y1, X2, Y2 float64
	Class          string
}

// Polyline is one stroke through ordered points.
type Polyline struct {
	Points  []Point
	Series  string
	Class   string
	Width   float64
	Opacity float64
}

// Text is a positioned label.
type Text struct {
	X, Y    float64
	Content string
	Anchor  Anchor
	Class   string
}

// Scene is everything drawn into one chart region, in paint order: lines
// first, then polylines, then text.
type Scene struct {
	Width, Height float64
	Lines         []Line
	Polylines     []Polyline
	Texts         []Text
}

// Empty reports whether the scene carries no data strokes.
func (s Scene) Empty() bool { return len(s.Polylines) == 0 }
