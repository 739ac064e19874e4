package geometry

import (
	"math"
	"time"
)

// DefaultTickLength is the length of a major tick mark.
const DefaultTickLength = 4

// twoDays is the span at which time labels switch from clock to date.
const twoDays = 2 * 24 * 60 * 60

// XTick is a precomputed horizontal tick.
type XTick struct {
	Fraction float64 // 0 = left edge, 1 = right edge
	TS       int64
	Label    string
	Anchor   Anchor
}

// AxisSpec describes the ticks of one chart.
type AxisSpec struct {
	Min, Max float64
	// Major values get a tick and a label from Format.
	Major []float64
	// Minor values get a short unlabeled tick, except at Min or Max.
	Minor      []float64
	Format     func(float64) string
	XTicks     []XTick
	TickLength float64 // DefaultTickLength when 0
}

// Grid returns evenly spaced decorative lines over r. rows and cols count
// cells; lines are drawn on every cell boundary including the edges.
func Grid(r Rect, rows, cols int) []Line {
	rows = max(1, rows)
	cols = max(1, cols)
	lines := make([]Line, 0, rows+cols+2)
	for k := 0; k <= rows; k++ {
		y := r.Y + float64(k)*r.H/float64(rows)
		lines = append(lines, Line{X1: r.X, Y1: y, X2: r.X + r.W, Y2: y, Class: ClassGrid})
	}
	for k := 0; k <= cols; k++ {
		x := r.X + float64(k)*r.W/float64(cols)
		lines = append(lines, Line{X1: x, Y1: r.Y, X2: x, Y2: r.Y + r.H, Class: ClassGrid})
	}
	return lines
}

// Axes draws the left and bottom axis lines of r and the ticks in spec.
func Axes(r Rect, spec AxisSpec) ([]Line, []Text) {
	tick := spec.TickLength
	if tick == 0 {
		tick = DefaultTickLength
	}
	format := spec.Format
	if format == nil {
		format = func(float64) string { return "" }
	}
	bottom := r.Y + r.H

	lines := []Line{
		{X1: r.X, Y1: r.Y, X2: r.X, Y2: bottom, Class: ClassAxis},
		{X1: r.X, Y1: bottom, X2: r.X + r.W, Y2: bottom, Class: ClassAxis},
	}
	var texts []Text

	for _, v := range spec.Major {
		y := ValueY(r, v, spec.Min, spec.Max)
		lines = append(lines, Line{X1: r.X - tick, Y1: y, X2: r.X, Y2: y, Class: ClassTickMajor})
		texts = append(texts, Text{
			X: r.X - tick - 2, Y: y + 3,
			Content: format(v), Anchor: AnchorEnd, Class: ClassTickLabel,
		})
	}
	for _, v := range spec.Minor {
		if v == spec.Min || v == spec.Max {
			continue
		}
		y := ValueY(r, v, spec.Min, spec.Max)
		lines = append(lines, Line{X1: r.X - tick/2, Y1: y, X2: r.X, Y2: y, Class: ClassTickMinor})
	}
	for _, xt := range spec.XTicks {
		x := r.X + xt.Fraction*r.W
		lines = append(lines, Line{X1: x, Y1: bottom, X2: x, Y2: bottom + tick, Class: ClassTickMajor})
		texts = append(texts, Text{
			X: x, Y: bottom + tick + 10,
			Content: xt.Label, Anchor: xt.Anchor, Class: ClassTickLabel,
		})
	}
	return lines, texts
}

// XTicks places one tick per fraction across the span [first, last] and
// labels it with TimeLabel. The first tick is start-anchored, the last
// end-anchored, the rest centered.
func XTicks(first, last int64, fractions []float64, loc *time.Location) []XTick {
	span := last - first
	ticks := make([]XTick, len(fractions))
	for i, f := range fractions {
		ts := first + int64(math.Round(f*float64(span)))
		anchor := AnchorMiddle
		switch i {
		case 0:
			anchor = AnchorStart
		case len(fractions) - 1:
			anchor = AnchorEnd
		}
		ticks[i] = XTick{Fraction: f, TS: ts, Label: TimeLabel(ts, span, loc), Anchor: anchor}
	}
	return ticks
}

// TimeLabel formats ts as HH:MM when the series spans less than two days
// and as MM/DD otherwise. A nil loc means local time.
func TimeLabel(ts, spanSeconds int64, loc *time.Location) string {
	if loc == nil {
		loc = time.Local
	}
	t := time.Unix(ts, 0).In(loc)
	if spanSeconds < twoDays {
		return t.Format("15:04")
	}
	return t.Format("01/02")
}
