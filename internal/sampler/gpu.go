package sampler

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"os/exec"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/Dicklesworthstone/teledash/internal/model"
)

const (
	gpuModeSMI      = "nvidia-smi"
	gpuPollInterval = 2 * time.Second
	gpuQueryTimeout = 2 * time.Second
	gpuMaxBackoff   = 60 * time.Second
)

type gpuReading struct {
	Usage *float64
	TempC *float64
	Name  *string
}

// gpuReader polls nvidia-smi and backs off exponentially while it fails.
type gpuReader struct {
	enabled bool
	index   int
	now     func() time.Time
	query   func(ctx context.Context, index int) (string, error)

	mu        sync.RWMutex
	last      gpuReading
	mode      string
	failCount int
	nextRetry time.Time
	lastErr   string
}

func newGPUReader(enabled bool, index int, now func() time.Time) *gpuReader {
	return &gpuReader{enabled: enabled, index: index, now: now, query: querySMI}
}

func (g *gpuReader) loop(ctx context.Context, log *slog.Logger) {
	g.poll(ctx)

	// Slower than the main loop to keep nvidia-smi overhead down.
	ticker := time.NewTicker(gpuPollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := g.poll(ctx); err != nil {
				log.Debug("gpu read failed", "error", err, "fail_count", g.status().FailCount)
			}
		}
	}
}

// poll performs one read unless the reader is disabled or backing off.
func (g *gpuReader) poll(ctx context.Context) error {
	if !g.enabled {
		return nil
	}
	now := g.now()
	g.mu.RLock()
	waiting := now.Before(g.nextRetry)
	g.mu.RUnlock()
	if waiting {
		return nil
	}

	qctx, cancel := context.WithTimeout(ctx, gpuQueryTimeout)
	out, err := g.query(qctx, g.index)
	cancel()
	var r gpuReading
	if err == nil {
		r, err = parseSMI(out)
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	if err != nil {
		g.failCount++
		g.nextRetry = now.Add(gpuBackoff(g.failCount))
		g.mode = ""
		g.lastErr = fmt.Sprintf("%s failed: %v", gpuModeSMI, err)
		g.last = gpuReading{}
		return err
	}
	g.last = r
	g.mode = gpuModeSMI
	g.failCount = 0
	g.nextRetry = time.Time{}
	g.lastErr = ""
	return nil
}

func (g *gpuReader) reading() gpuReading {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.last
}

func (g *gpuReader) status() model.GPUStatus {
	g.mu.RLock()
	defer g.mu.RUnlock()
	st := model.GPUStatus{
		Enabled:   g.enabled,
		Index:     g.index,
		Mode:      g.mode,
		FailCount: g.failCount,
		LastError: g.lastErr,
	}
	if !g.nextRetry.IsZero() {
		st.NextRetryAt = float64(g.nextRetry.UnixMilli()) / 1000
	}
	return st
}

// gpuBackoff is 1.5s * 2^min(fails, 5), capped at one minute.
func gpuBackoff(fails int) time.Duration {
	d := time.Duration(1.5 * float64(time.Second) * math.Pow(2, float64(min(fails, 5))))
	return min(d, gpuMaxBackoff)
}

func querySMI(ctx context.Context, index int) (string, error) {
	out, err := exec.CommandContext(ctx, "nvidia-smi",
		"--id="+strconv.Itoa(index),
		"--query-gpu=utilization.gpu,temperature.gpu,name",
		"--format=csv,noheader,nounits").Output()
	if ctx.Err() != nil {
		return "", ctx.Err()
	}
	return string(out), err
}

// parseSMI reads "usage, temp, name" from the first non-empty line. Fields
// nvidia-smi reports as "[N/A]" come back nil.
func parseSMI(out string) (gpuReading, error) {
	var line string
	for _, l := range strings.Split(out, "\n") {
		if l = strings.TrimSpace(l); l != "" {
			line = l
			break
		}
	}
	if line == "" {
		return gpuReading{}, fmt.Errorf("empty output")
	}
	parts := strings.Split(line, ",")
	if len(parts) < 3 {
		return gpuReading{}, fmt.Errorf("unexpected output %q", line)
	}
	r := gpuReading{
		Usage: parseFloat(parts[0]),
		TempC: parseFloat(parts[1]),
	}
	if name := strings.TrimSpace(strings.Join(parts[2:], ",")); name != "" {
		r.Name = model.String(name)
	}
	if r.Usage == nil && r.TempC == nil {
		return gpuReading{}, fmt.Errorf("no readable fields in %q", line)
	}
	return r, nil
}

func parseFloat(s string) *float64 {
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, "%")
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) {
		return nil
	}
	return &f
}
