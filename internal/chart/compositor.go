// Package chart composes the dashboard's charts, sparklines and readouts
// from a snapshot of the session.
package chart

import (
	"time"

	"github.com/Dicklesworthstone/teledash/internal/conn"
	"github.com/Dicklesworthstone/teledash/internal/geometry"
	"github.com/Dicklesworthstone/teledash/internal/model"
	"github.com/Dicklesworthstone/teledash/internal/series"
)

// Region names a mount point on the rendering surface.
type Region string

const (
	RegionUsage    Region = "usage"
	RegionTemp     Region = "temp"
	RegionSparkCPU Region = "spark-cpu"
	RegionSparkMem Region = "spark-mem"
	RegionSparkGPU Region = "spark-gpu"
)

// Regions lists every region in drawing order.
var Regions = []Region{RegionUsage, RegionTemp, RegionSparkCPU, RegionSparkMem, RegionSparkGPU}

// XFractions are the positions of the shared time ticks.
var XFractions = []float64{0, 0.25, 0.5, 0.75, 1}

// Defaults for the main chart size and sparkline length.
const (
	DefaultWidth       = 640
	DefaultHeight      = 220
	DefaultSparkPoints = 60
)

const (
	padLeft   = 44
	padRight  = 12
	padTop    = 12
	padBottom = 26
	gridCols  = 8
)

// SeriesSpec binds a stroke name to a sample metric.
type SeriesSpec struct {
	Name   string
	Metric model.Metric
}

// Spec describes one full chart.
type Spec struct {
	Region   Region
	Min, Max float64
	Major    []float64
	Minor    []float64
	GridRows int
	Unit     string
	Series   []SeriesSpec
}

// UsageSpec is the percentage chart.
var UsageSpec = Spec{
	Region: RegionUsage,
	Min:    0, Max: 100,
	Major:    []float64{0, 50, 100},
	Minor:    []float64{25, 75},
	GridRows: 4,
	Unit:     "%",
	Series: []SeriesSpec{
		{"cpu", model.CPUUsage},
		{"mem", model.MemPercent},
		{"gpu", model.GPUUsage},
	},
}

// TempSpec is the temperature chart.
var TempSpec = Spec{
	Region: RegionTemp,
	Min:    0, Max: 120,
	Major:    []float64{0, 40, 80, 120},
	Minor:    []float64{20, 60, 100},
	GridRows: 6,
	Unit:     "°C",
	Series: []SeriesSpec{
		{"cpu", model.CPUTemp},
		{"gpu", model.GPUTemp},
	},
}

var sparkSeries = []struct {
	region Region
	spec   SeriesSpec
}{
	{RegionSparkCPU, SeriesSpec{"cpu", model.CPUUsage}},
	{RegionSparkMem, SeriesSpec{"mem", model.MemPercent}},
	{RegionSparkGPU, SeriesSpec{"gpu", model.GPUUsage}},
}

// View is the read-only input to a composition.
type View struct {
	Samples          []model.Sample
	Meta             series.Meta
	Latest           *model.Sample
	Status           *model.StatusResponse
	SamplingInterval time.Duration
	RangeSeconds     int
	Connection       conn.State
}

// Frame is everything a surface needs for one full redraw.
type Frame struct {
	Charts     map[Region]geometry.Scene
	XTicks     []geometry.XTick
	Readouts   Readouts
	Connection conn.State
	Meta       string
}

// Compositor turns a View into a Frame. The zero value uses the defaults.
type Compositor struct {
	Width, Height float64
	SparkPoints   int
	Location      *time.Location
}

// Compose builds a complete frame. It never mutates the view.
func (c Compositor) Compose(v View) Frame {
	var ticks []geometry.XTick
	if n := len(v.Samples); n > 0 {
		ticks = geometry.XTicks(v.Samples[0].TS, v.Samples[n-1].TS, XFractions, c.Location)
	}

	charts := make(map[Region]geometry.Scene, len(Regions))
	charts[RegionUsage] = c.Plot(UsageSpec, v.Samples, ticks)
	charts[RegionTemp] = c.Plot(TempSpec, v.Samples, ticks)

	tail := v.Samples
	if k := c.sparkPoints(); len(tail) > k {
		tail = tail[len(tail)-k:]
	}
	for _, sp := range sparkSeries {
		charts[sp.region] = geometry.Sparkline(sp.spec.Name, model.Values(tail, sp.spec.Metric))
	}

	return Frame{
		Charts:     charts,
		XTicks:     ticks,
		Readouts:   BuildReadouts(v.Latest),
		Connection: v.Connection,
		Meta:       MetaLine(v, len(v.Samples)),
	}
}

// Plot draws one chart: grid, axes, ticks, and a doubled stroke per series.
func (c Compositor) Plot(spec Spec, samples []model.Sample, ticks []geometry.XTick) geometry.Scene {
	w, h := c.size()
	r := geometry.Rect{X: padLeft, Y: padTop, W: w - padLeft - padRight, H: h - padTop - padBottom}

	lines := geometry.Grid(r, spec.GridRows, gridCols)
	axisLines, texts := geometry.Axes(r, geometry.AxisSpec{
		Min:    spec.Min,
		Max:    spec.Max,
		Major:  spec.Major,
		Minor:  spec.Minor,
		Format: unitFormatter(spec.Unit),
		XTicks: ticks,
	})
	lines = append(lines, axisLines...)

	var strokes []geometry.Polyline
	for _, s := range spec.Series {
		vals := geometry.Normalize(model.Values(samples, s.Metric), spec.Min, spec.Max)
		pts := geometry.PolylinePoints(r, vals, spec.Min, spec.Max)
		strokes = append(strokes, geometry.SeriesStrokes(pts, s.Name)...)
	}

	return geometry.Scene{Width: w, Height: h, Lines: lines, Polylines: strokes, Texts: texts}
}

func (c Compositor) size() (float64, float64) {
	w, h := c.Width, c.Height
	if w <= padLeft+padRight {
		w = DefaultWidth
	}
	if h <= padTop+padBottom {
		h = DefaultHeight
	}
	return w, h
}

func (c Compositor) sparkPoints() int {
	if c.SparkPoints <= 0 {
		return DefaultSparkPoints
	}
	return c.SparkPoints
}
