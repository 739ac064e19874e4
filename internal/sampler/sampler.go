// Package sampler is an in-process metrics source built on gopsutil. It
// samples the local host on a fixed cadence, keeps a bounded in-memory ring
// and answers history, latest and status queries the way the metrics
// service does.
package sampler

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/host"
	"github.com/shirou/gopsutil/v3/mem"

	"github.com/Dicklesworthstone/teledash/internal/errs"
	"github.com/Dicklesworthstone/teledash/internal/logging"
	"github.com/Dicklesworthstone/teledash/internal/model"
	"github.com/Dicklesworthstone/teledash/internal/series"
)

const (
	DefaultInterval  = 2 * time.Second
	DefaultCapacity  = 43200 // 24h at the default interval
	DefaultMaxPoints = 2000

	minSeconds = 10
	maxSeconds = 30 * 86400
)

// Options configures a Local source.
type Options struct {
	Interval  time.Duration
	Capacity  int
	MaxPoints int
	GPU       bool
	GPUIndex  int
	Logger    *slog.Logger
}

// Local samples the host it runs on. Run drives the sampling loop; the
// query methods are safe to call from any goroutine.
type Local struct {
	opts Options
	log  *slog.Logger
	gpu  *gpuReader

	now       func() time.Time
	readTimes func() ([]cpu.TimesStat, error)
	readMem   func() (*mem.VirtualMemoryStat, error)
	readTemps func() ([]host.TemperatureStat, error)

	prevTotal float64
	prevIdle  float64

	mu      sync.RWMutex
	ring    *series.Buffer
	cpuTemp *model.CPUTempStatus
}

func New(opts Options) *Local {
	if opts.Interval <= 0 {
		opts.Interval = DefaultInterval
	}
	if opts.Capacity <= 0 {
		opts.Capacity = DefaultCapacity
	}
	if opts.MaxPoints <= 0 {
		opts.MaxPoints = DefaultMaxPoints
	}
	l := &Local{
		opts:      opts,
		log:       logging.OrDiscard(opts.Logger).With("component", "sampler"),
		now:       time.Now,
		readTimes: func() ([]cpu.TimesStat, error) { return cpu.Times(false) },
		readMem:   mem.VirtualMemory,
		readTemps: host.SensorsTemperatures,
		ring:      series.New(opts.Capacity),
	}
	l.gpu = newGPUReader(opts.GPU, opts.GPUIndex, func() time.Time { return l.now() })
	return l
}

// Run samples every Interval until ctx is done. GPU reads happen on their
// own slower loop so a hung nvidia-smi never delays CPU samples.
func (l *Local) Run(ctx context.Context) error {
	if l.gpu.enabled {
		go l.gpu.loop(ctx, l.log)
	}
	l.Collect()

	ticker := time.NewTicker(l.opts.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			l.Collect()
		}
	}
}

// Collect takes one sample, stores it and returns it. It must not run
// concurrently with Run.
func (l *Local) Collect() model.Sample {
	ts := l.now().Unix()
	smp := model.Sample{TS: ts}
	smp.CPU.Usage = l.cpuPercent()

	if vm, err := l.readMem(); err == nil && vm != nil {
		smp.Memory = model.Memory{
			Percent:    model.Float(vm.UsedPercent),
			UsedBytes:  model.Bytes(vm.Used),
			TotalBytes: model.Bytes(vm.Total),
		}
	} else if err != nil {
		l.log.Debug("memory read failed", "error", err)
	}

	tempStatus := l.readCPUTemp()
	smp.CPU.TempC = tempStatus.TempC

	g := l.gpu.reading()
	smp.GPU = model.GPU{Usage: g.Usage, TempC: g.TempC, Name: g.Name}

	l.mu.Lock()
	if last, ok := l.ring.Last(); !ok || ts > last.TS {
		l.ring.Append(smp)
	}
	l.cpuTemp = tempStatus
	l.mu.Unlock()
	return smp
}

// cpuPercent derives total utilisation from the delta of cumulative CPU
// times. The first call has no baseline and reports nothing.
func (l *Local) cpuPercent() *float64 {
	times, err := l.readTimes()
	if err != nil || len(times) == 0 {
		return nil
	}
	cur := times[0]
	curTotal := cur.Total()
	curIdle := cur.Idle + cur.Iowait

	var pct *float64
	if l.prevTotal > 0 {
		dt := curTotal - l.prevTotal
		di := curIdle - l.prevIdle
		if dt > 0 {
			pct = model.Float(clampPercent(100 * (1 - di/dt)))
		}
	}
	l.prevTotal, l.prevIdle = curTotal, curIdle
	return pct
}

func (l *Local) readCPUTemp() *model.CPUTempStatus {
	stats, err := l.readTemps()
	if len(stats) == 0 {
		if err != nil {
			l.log.Debug("temperature sensors unavailable", "error", err)
		}
		return &model.CPUTempStatus{}
	}
	c, ok := pickCPUTemp(stats)
	if !ok {
		return &model.CPUTempStatus{}
	}
	return &model.CPUTempStatus{
		Method: methodPsutil,
		TempC:  model.Float(c.tempC),
		Source: &model.TempSource{Chip: c.chip, Label: c.label, Score: c.score},
	}
}

// History returns the last seconds of samples, averaged into buckets when
// they would exceed MaxPoints.
func (l *Local) History(ctx context.Context, seconds int) (*model.HistoryResponse, error) {
	if err := ctx.Err(); err != nil {
		return nil, errs.Wrap(err, errs.NetworkFailure, "sampler/history", "request cancelled")
	}
	seconds = max(minSeconds, min(seconds, maxSeconds))
	end := l.now().Unix()
	start := end - int64(seconds)

	l.mu.RLock()
	var window []model.Sample
	for _, s := range l.ring.Samples() {
		if s.TS >= start && s.TS <= end {
			window = append(window, s)
		}
	}
	l.mu.RUnlock()

	samples, bucket, mode := Resample(window, start, end, l.opts.MaxPoints)
	if samples == nil {
		samples = []model.Sample{}
	}
	return &model.HistoryResponse{
		StartTS:       start,
		EndTS:         end,
		Seconds:       seconds,
		MaxPoints:     l.opts.MaxPoints,
		Mode:          mode,
		BucketSeconds: bucket,
		Count:         len(samples),
		Samples:       samples,
	}, nil
}

// Latest returns the newest sample, or nil before the first Collect.
func (l *Local) Latest(ctx context.Context) (*model.Sample, error) {
	if err := ctx.Err(); err != nil {
		return nil, errs.Wrap(err, errs.NetworkFailure, "sampler/latest", "request cancelled")
	}
	l.mu.RLock()
	defer l.mu.RUnlock()
	last, ok := l.ring.Last()
	if !ok {
		return nil, nil
	}
	return &last, nil
}

// Status reports the sampling cadence, the CPU temperature source and the
// GPU reader state.
func (l *Local) Status(ctx context.Context) (*model.StatusResponse, error) {
	if err := ctx.Err(); err != nil {
		return nil, errs.Wrap(err, errs.NetworkFailure, "sampler/status", "request cancelled")
	}
	l.mu.RLock()
	temp := l.cpuTemp
	l.mu.RUnlock()
	if temp == nil {
		temp = &model.CPUTempStatus{}
	}
	gpu := l.gpu.status()
	return &model.StatusResponse{
		Sampling: &model.SamplingStatus{
			IntervalSeconds: max(1, int(l.opts.Interval/time.Second)),
			GPU:             &gpu,
		},
		CPUTemp: temp,
	}, nil
}

func clampPercent(v float64) float64 {
	return max(0, min(100, v))
}
