package svg

import (
	"encoding/json"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Dicklesworthstone/teledash/internal/chart"
	"github.com/Dicklesworthstone/teledash/internal/conn"
	"github.com/Dicklesworthstone/teledash/internal/geometry"
	"github.com/Dicklesworthstone/teledash/internal/model"
)

func TestRenderScene(t *testing.T) {
	scene := geometry.Scene{
		Width: 100, Height: 30,
		Lines: []geometry.Line{{X1: 0, Y1: 0, X2: 100, Y2: 0, Class: geometry.ClassGrid}},
		Polylines: geometry.SeriesStrokes([]geometry.Point{{X: 0, Y: 30}, {X: 100.0 / 3, Y: 0}}, "cpu"),
		Texts: []geometry.Text{{X: 10, Y: 20, Content: "<50%>", Anchor: geometry.AnchorEnd, Class: geometry.ClassTickLabel}},
	}
	doc := string(Render(scene, "usage", nil))

	assert.True(t, strings.HasPrefix(doc, `<svg xmlns="http://www.w3.org/2000/svg" width="100" height="30" viewBox="0 0 100 30"`))
	assert.Contains(t, doc, "<title>usage</title>")
	assert.Contains(t, doc, `<line class="grid" x1="0" y1="0" x2="100" y2="0"/>`)
	assert.Equal(t, 2, strings.Count(doc, "<polyline "))
	assert.Contains(t, doc, `class="series-glow s-cpu" stroke-width="6" stroke-opacity="0.18" points="0,30 33.33,0"`)
	assert.Contains(t, doc, `text-anchor="end">&lt;50%&gt;</text>`)
	assert.Contains(t, doc, ".s-cpu{stroke:#38bdf8}")
}

func TestRenderEmptyScene(t *testing.T) {
	doc := string(Render(geometry.Sparkline("gpu", nil), "", Palette{"gpu": "red"}))
	assert.NotContains(t, doc, "<polyline")
	assert.NotContains(t, doc, "<title>")
	assert.Contains(t, doc, ".s-gpu{stroke:red}")
	assert.True(t, strings.HasSuffix(doc, "</svg>\n"))
}

func TestNum(t *testing.T) {
	assert.Equal(t, "12", num(12))
	assert.Equal(t, "0.18", num(0.18))
	assert.Equal(t, "33.33", num(100.0/3))
	assert.Equal(t, "0", num(nan()))
}

func nan() float64 {
	var zero float64
	return zero / zero
}

func TestDirSurface(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out")
	s, err := NewDirSurface(dir, nil)
	require.NoError(t, err)

	latest := model.Sample{TS: 9, CPU: model.CPU{Usage: model.Float(12.34)}}
	frame := chart.Compositor{}.Compose(chart.View{
		Samples:    []model.Sample{latest},
		Latest:     &latest,
		Connection: conn.Live,
	})
	s.SetConnection(conn.Live)
	s.Apply(frame)
	require.NoError(t, s.Err())
	assert.Equal(t, 1, s.Frames())
	assert.Equal(t, conn.Live, s.Connection())

	for _, r := range chart.Regions {
		data, err := os.ReadFile(filepath.Join(dir, FileName(r)))
		require.NoError(t, err, r)
		assert.Contains(t, string(data), "<svg")
	}

	if runtime.GOOS != "windows" {
		for _, name := range []string{FileName(chart.RegionUsage), ReadoutsFile} {
			info, err := os.Stat(filepath.Join(dir, name))
			require.NoError(t, err)
			assert.Equal(t, os.FileMode(0o644), info.Mode().Perm(), name)
		}
	}

	var sum Summary
	data, err := os.ReadFile(filepath.Join(dir, ReadoutsFile))
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(data, &sum))
	assert.Equal(t, "12.3%", sum.Readouts.CPU)
	assert.Equal(t, "LIVE", sum.Connection)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, len(chart.Regions)+1, "no temp files left behind")
}
