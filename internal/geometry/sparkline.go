package geometry

// Sparkline geometry is fixed: a 100x30 box, 3x6 grid, [0,100] range.
const (
	SparkWidth  = 100
	SparkHeight = 30
	SparkRows   = 3
	SparkCols   = 6
	sparkMin    = 0
	sparkMax    = 100
)

// Sparkline renders one percentage series as a compact, label-free scene.
func Sparkline(series string, values []float64) Scene {
	r := Rect{W: SparkWidth, H: SparkHeight}
	pts := PolylinePoints(r, Normalize(values, sparkMin, sparkMax), sparkMin, sparkMax)
	return Scene{
		Width:     SparkWidth,
		Height:    SparkHeight,
		Lines:     Grid(r, SparkRows, SparkCols),
		Polylines: SeriesStrokes(pts, series),
	}
}
