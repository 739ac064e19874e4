package svg

import (
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/Dicklesworthstone/teledash/internal/chart"
	"github.com/Dicklesworthstone/teledash/internal/conn"
	"github.com/Dicklesworthstone/teledash/internal/logging"
)

// ReadoutsFile is the name of the JSON summary written next to the charts.
const ReadoutsFile = "readouts.json"

// Summary is the content of ReadoutsFile.
type Summary struct {
	Readouts   chart.Readouts `json:"readouts"`
	Connection string         `json:"connection"`
	Meta       string         `json:"meta"`
}

// FileName returns the document name for a region, e.g. "usage.svg".
func FileName(r chart.Region) string { return string(r) + ".svg" }

// WriteFrame writes one SVG per region plus ReadoutsFile into dir. Each
// file is replaced atomically.
func WriteFrame(dir string, frame chart.Frame, palette Palette) error {
	for _, r := range chart.Regions {
		if err := writeAtomic(dir, FileName(r), Render(frame.Charts[r], string(r), palette)); err != nil {
			return err
		}
	}
	data, err := json.MarshalIndent(Summary{
		Readouts:   frame.Readouts,
		Connection: frame.Connection.String(),
		Meta:       frame.Meta,
	}, "", "  ")
	if err != nil {
		return err
	}
	return writeAtomic(dir, ReadoutsFile, append(data, '\n'))
}

const fileMode = 0o644

func writeAtomic(dir, name string, data []byte) error {
	tmp, err := os.CreateTemp(dir, "."+name+".*")
	if err != nil {
		return err
	}
	// CreateTemp opens 0600; exported charts are meant to be served.
	if err := tmp.Chmod(fileMode); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), filepath.Join(dir, name))
}

// DirSurface exports every applied frame to a directory.
type DirSurface struct {
	dir     string
	palette Palette
	log     *slog.Logger

	mu     sync.Mutex
	state  conn.State
	frames int
	err    error
}

// NewDirSurface creates dir if needed.
func NewDirSurface(dir string, logger *slog.Logger) (*DirSurface, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &DirSurface{dir: dir, palette: DefaultPalette, log: logging.OrDiscard(logger).With("component", "svg")}, nil
}

func (d *DirSurface) Apply(frame chart.Frame) {
	err := WriteFrame(d.dir, frame, d.palette)
	d.mu.Lock()
	d.err = err
	d.frames++
	d.mu.Unlock()
	if err != nil {
		d.log.Warn("export failed", "dir", d.dir, "error", err)
	}
}

func (d *DirSurface) SetConnection(state conn.State) {
	d.mu.Lock()
	d.state = state
	d.mu.Unlock()
}

// Err returns the error of the most recent export.
func (d *DirSurface) Err() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.err
}

// Frames returns how many frames were applied.
func (d *DirSurface) Frames() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.frames
}

// Connection returns the last indicator state set on the surface.
func (d *DirSurface) Connection() conn.State {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.state
}
