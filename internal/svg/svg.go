// Package svg serializes geometry scenes as standalone SVG documents and
// provides a Surface that exports every frame to a directory.
package svg

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"math"
	"sort"
	"strconv"

	"github.com/Dicklesworthstone/teledash/internal/geometry"
)

// Palette maps series names to stroke colours.
type Palette map[string]string

// DefaultPalette colours the series the compositor emits.
var DefaultPalette = Palette{
	"cpu": "#38bdf8",
	"mem": "#a78bfa",
	"gpu": "#34d399",
}

const baseStyle = `.grid{stroke:#1f2937;stroke-width:1}` +
	`.axis{stroke:#6b7280;stroke-width:1}` +
	`.tick-major{stroke:#6b7280;stroke-width:1}` +
	`.tick-minor{stroke:#374151;stroke-width:1}` +
	`.tick-label{fill:#9ca3af;font:10px ui-monospace,monospace}` +
	`polyline{fill:none;stroke-linejoin:round;stroke-linecap:round}`

// Encode writes scene to w as an SVG document.
func Encode(w io.Writer, scene geometry.Scene, title string, palette Palette) error {
	if palette == nil {
		palette = DefaultPalette
	}
	var b bytes.Buffer
	fmt.Fprintf(&b, `<svg xmlns="http://www.w3.org/2000/svg" width="%s" height="%s" viewBox="0 0 %s %s" role="img">`,
		num(scene.Width), num(scene.Height), num(scene.Width), num(scene.Height))
	if title != "" {
		b.WriteString("<title>")
		escape(&b, title)
		b.WriteString("</title>")
	}
	b.WriteString("<style>")
	b.WriteString(baseStyle)
	writePalette(&b, palette)
	b.WriteString("</style>")

	for _, l := range scene.Lines {
		fmt.Fprintf(&b, `<line class="%s" x1="%s" y1="%s" x2="%s" y2="%s"/>`,
			l.Class, num(l.X1), num(l.Y1), num(l.X2), num(l.Y2))
	}
	for _, p := range scene.Polylines {
		fmt.Fprintf(&b, `<polyline class="%s s-%s" stroke-width="%s" stroke-opacity="%s" points="`,
			p.Class, p.Series, num(p.Width), num(p.Opacity))
		for i, pt := range p.Points {
			if i > 0 {
				b.WriteByte(' ')
			}
			b.WriteString(num(pt.X))
			b.WriteByte(',')
			b.WriteString(num(pt.Y))
		}
		b.WriteString(`"/>`)
	}
	for _, t := range scene.Texts {
		fmt.Fprintf(&b, `<text class="%s" x="%s" y="%s" text-anchor="%s">`,
			t.Class, num(t.X), num(t.Y), t.Anchor)
		escape(&b, t.Content)
		b.WriteString("</text>")
	}
	b.WriteString("</svg>\n")

	_, err := w.Write(b.Bytes())
	return err
}

// Render is Encode into a byte slice.
func Render(scene geometry.Scene, title string, palette Palette) []byte {
	var b bytes.Buffer
	Encode(&b, scene, title, palette)
	return b.Bytes()
}

func writePalette(b *bytes.Buffer, p Palette) {
	names := make([]string, 0, len(p))
	for name := range p {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(b, ".s-%s{stroke:%s}", name, p[name])
	}
}

func escape(b *bytes.Buffer, s string) {
	xml.EscapeText(b, []byte(s))
}

// num prints coordinates with at most two decimals.
func num(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return "0"
	}
	return strconv.FormatFloat(math.Round(v*100)/100, 'f', -1, 64)
}
