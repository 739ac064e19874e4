package ui

import (
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/Dicklesworthstone/teledash/internal/geometry"
)

// Braille cells hold a 2x4 dot matrix; U+2800 is the empty cell.
const brailleBase = '⠀'

// brailleDots[row][col] is the bit for that dot.
var brailleDots = [4][2]uint8{
	{0, 3},
	{1, 4},
	{2, 5},
	{6, 7},
}

// Ink names what drew a cell; higher rank wins the cell's colour.
const (
	inkGrid  = "grid"
	inkAxis  = "axis"
	inkLabel = "label"
)

func inkRank(ink string) int {
	switch {
	case ink == "":
		return 0
	case ink == inkGrid:
		return 1
	case ink == inkAxis:
		return 2
	default:
		return 3
	}
}

func seriesInk(series string) string { return "series:" + series }

// canvas rasterizes scene primitives onto a grid of braille cells with a
// text overlay.
type canvas struct {
	cols, rows int
	w, h       float64
	dots       []uint8
	ink        []string
	text       []rune
}

func newCanvas(cols, rows int, w, h float64) *canvas {
	cols, rows = max(1, cols), max(1, rows)
	n := cols * rows
	return &canvas{
		cols: cols, rows: rows, w: w, h: h,
		dots: make([]uint8, n),
		ink:  make([]string, n),
		text: make([]rune, n),
	}
}

// rasterize draws s onto a cols x rows canvas. Glow strokes are skipped:
// they share the line's geometry and a terminal cannot blend them.
func rasterize(s geometry.Scene, cols, rows int) *canvas {
	c := newCanvas(cols, rows, s.Width, s.Height)
	for _, l := range s.Lines {
		ink := inkAxis
		if l.Class == geometry.ClassGrid {
			ink = inkGrid
		}
		c.line(l.X1, l.Y1, l.X2, l.Y2, ink)
	}
	for _, p := range s.Polylines {
		if p.Class == geometry.ClassSeriesGlow || len(p.Points) == 0 {
			continue
		}
		ink := seriesInk(p.Series)
		if len(p.Points) == 1 {
			c.line(p.Points[0].X, p.Points[0].Y, p.Points[0].X, p.Points[0].Y, ink)
		}
		for i := 1; i < len(p.Points); i++ {
			a, b := p.Points[i-1], p.Points[i]
			c.line(a.X, a.Y, b.X, b.Y, ink)
		}
	}
	for _, t := range s.Texts {
		c.label(t)
	}
	return c
}

func (c *canvas) toDot(x, y float64) (int, int) {
	dx, dy := 0.0, 0.0
	if c.w > 0 {
		dx = x / c.w * float64(c.cols*2-1)
	}
	if c.h > 0 {
		dy = y / c.h * float64(c.rows*4-1)
	}
	return int(math.Round(dx)), int(math.Round(dy))
}

func (c *canvas) set(x, y int, ink string) {
	if x < 0 || y < 0 || x >= c.cols*2 || y >= c.rows*4 {
		return
	}
	cell := (y/4)*c.cols + x/2
	c.dots[cell] |= 1 << brailleDots[y%4][x%2]
	if inkRank(ink) >= inkRank(c.ink[cell]) {
		c.ink[cell] = ink
	}
}

// line draws a segment given in scene coordinates (Bresenham in dot space).
func (c *canvas) line(x1, y1, x2, y2 float64, ink string) {
	x0, y0 := c.toDot(x1, y1)
	xe, ye := c.toDot(x2, y2)
	dx, dy := abs(xe-x0), -abs(ye-y0)
	sx, sy := 1, 1
	if x0 > xe {
		sx = -1
	}
	if y0 > ye {
		sy = -1
	}
	err := dx + dy
	for {
		c.set(x0, y0, ink)
		if x0 == xe && y0 == ye {
			return
		}
		if e2 := 2 * err; e2 >= dy {
			err += dy
			x0 += sx
		} else {
			err += dx
			y0 += sy
		}
	}
}

// label places text at the cell nearest its anchor point.
func (c *canvas) label(t geometry.Text) {
	if c.w <= 0 || c.h <= 0 {
		return
	}
	runes := []rune(t.Content)
	row := min(c.rows-1, max(0, int(t.Y/c.h*float64(c.rows))))
	col := int(t.X / c.w * float64(c.cols))
	switch t.Anchor {
	case geometry.AnchorEnd:
		col -= len(runes)
	case geometry.AnchorMiddle:
		col -= len(runes) / 2
	}
	col = min(max(0, col), max(0, c.cols-len(runes)))
	for i, r := range runes {
		if cc := col + i; cc < c.cols {
			c.text[row*c.cols+cc] = r
		}
	}
}

// cell returns the rune and ink at (col, row).
func (c *canvas) cell(col, row int) (rune, string) {
	i := row*c.cols + col
	if c.text[i] != 0 {
		return c.text[i], inkLabel
	}
	return brailleBase + rune(c.dots[i]), c.ink[i]
}

// render joins the rows, colouring runs of equal ink with style(ink).
func (c *canvas) render(style func(ink string) lipgloss.Style) string {
	var b strings.Builder
	for row := 0; row < c.rows; row++ {
		if row > 0 {
			b.WriteByte('\n')
		}
		var run strings.Builder
		runInk := ""
		flush := func() {
			if run.Len() == 0 {
				return
			}
			if runInk == "" {
				b.WriteString(run.String())
			} else {
				b.WriteString(style(runInk).Render(run.String()))
			}
			run.Reset()
		}
		for col := 0; col < c.cols; col++ {
			r, ink := c.cell(col, row)
			if ink != runInk {
				flush()
				runInk = ink
			}
			run.WriteRune(r)
		}
		flush()
	}
	return b.String()
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
