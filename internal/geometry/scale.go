package geometry

import "math"

// Stroke styling for the doubled series line.
const (
	GlowWidth   = 6
	GlowOpacity = 0.18
	LineWidth   = 1.6
)

// Normalize clamps every present value into [lo, hi]. Missing (NaN) values
// stay NaN and the output has the same length as values.
func Normalize(values []float64, lo, hi float64) []float64 {
	out := make([]float64, len(values))
	for i, v := range values {
		switch {
		case math.IsNaN(v):
			out[i] = math.NaN()
		case v < lo:
			out[i] = lo
		case v > hi:
			out[i] = hi
		default:
			out[i] = v
		}
	}
	return out
}

// MapPoint places value v at index i of n inside r for the range
// [minV, maxV]. Both denominators are floored at 1, so n <= 1 or an empty
// value range never divide by zero.
func MapPoint(r Rect, i, n int, v, minV, maxV float64) Point {
	step := r.W / float64(max(1, n-1))
	den := math.Max(1, maxV-minV)
	return Point{
		X: r.X + float64(i)*step,
		Y: r.Y + r.H - ((v-minV)/den)*r.H,
	}
}

// ValueY is the y coordinate of v inside r for the range [minV, maxV].
func ValueY(r Rect, v, minV, maxV float64) float64 {
	return MapPoint(r, 0, 1, v, minV, maxV).Y
}

// PolylinePoints maps values to points, omitting missing ones. Indices of
// the remaining points are preserved, so x positions stay aligned with
// the other series of the same chart.
func PolylinePoints(r Rect, values []float64, minV, maxV float64) []Point {
	var pts []Point
	n := len(values)
	for i, v := range values {
		if math.IsNaN(v) {
			continue
		}
		pts = append(pts, MapPoint(r, i, n, v, minV, maxV))
	}
	return pts
}

// SeriesStrokes returns the wide low-opacity glow stroke followed by the
// thin full-opacity stroke. Both share the same points in the same order.
// No points yields no strokes.
func SeriesStrokes(points []Point, series string) []Polyline {
	if len(points) == 0 {
		return nil
	}
	return []Polyline{
		{Points: points, Series: series, Class: ClassSeriesGlow, Width: GlowWidth, Opacity: GlowOpacity},
		{Points: points, Series: series, Class: ClassSeriesLine, Width: LineWidth, Opacity: 1},
	}
}
