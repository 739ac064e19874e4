package dashboard

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Dicklesworthstone/teledash/internal/chart"
	"github.com/Dicklesworthstone/teledash/internal/conn"
	"github.com/Dicklesworthstone/teledash/internal/errs"
	"github.com/Dicklesworthstone/teledash/internal/logging"
)

// DefaultPollInterval is the latest-sample cadence.
const DefaultPollInterval = 2 * time.Second

// Published is an immutable copy of the most recent frame, readable from
// any goroutine.
type Published struct {
	Frame        chart.Frame
	RangeSeconds int
	At           time.Time
}

// RunnerOptions configures a headless Runner.
type RunnerOptions struct {
	PollInterval time.Duration
	// Ticks replaces the poll ticker when set.
	Ticks  <-chan time.Time
	Logger *slog.Logger
}

// Runner is the headless timeline: a single select loop owns the
// controller, fetches run on their own goroutines and report back over a
// channel.
type Runner struct {
	ctl     *Controller
	surface Surface
	opts    RunnerOptions
	log     *slog.Logger

	ranges    chan int
	published atomic.Pointer[Published]
}

// NewRunner binds ctl to surface. A nil surface only publishes.
func NewRunner(ctl *Controller, surface Surface, opts RunnerOptions) *Runner {
	if opts.PollInterval <= 0 {
		opts.PollInterval = DefaultPollInterval
	}
	return &Runner{
		ctl:     ctl,
		surface: surface,
		opts:    opts,
		log:     logging.OrDiscard(opts.Logger).With("component", "runner"),
		ranges:  make(chan int),
	}
}

// Run blocks until ctx is done. In-flight fetches are waited for before
// it returns.
func (r *Runner) Run(ctx context.Context) error {
	results := make(chan Result)
	var wg sync.WaitGroup
	defer wg.Wait()

	spawn := func(f Fetch) {
		if f == nil {
			return
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			res := f(ctx)
			select {
			case results <- res:
			case <-ctx.Done():
			}
		}()
	}

	ticks := r.opts.Ticks
	if ticks == nil {
		t := time.NewTicker(r.opts.PollInterval)
		defer t.Stop()
		ticks = t.C
	}

	r.render(true)
	spawn(r.ctl.Start())
	r.log.Debug("runner started", "poll", r.opts.PollInterval)

	for {
		select {
		case <-ctx.Done():
			return nil
		case res := <-results:
			step := r.ctl.Handle(res)
			for _, f := range step.Next {
				spawn(f)
			}
			if step.Render || step.ConnectionChanged {
				r.render(step.ConnectionChanged)
			}
		case <-ticks:
			spawn(r.ctl.Poll())
		case secs := <-r.ranges:
			spawn(r.ctl.SetRange(secs))
			r.render(false)
		}
	}
}

// RequestRange asks the running loop to switch the display window. It
// blocks until the loop accepts the request or ctx is done.
func (r *Runner) RequestRange(ctx context.Context, seconds int) error {
	select {
	case r.ranges <- seconds:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Published returns the last frame, or nil before the first render.
func (r *Runner) Published() *Published {
	return r.published.Load()
}

func (r *Runner) render(connection bool) {
	frame := r.ctl.Frame()
	r.published.Store(&Published{
		Frame:        frame,
		RangeSeconds: r.ctl.Session().RangeSeconds,
		At:           r.ctl.clock.Now(),
	})
	if r.surface == nil {
		return
	}
	if connection {
		r.surface.SetConnection(frame.Connection)
	}
	r.surface.Apply(frame)
}

// Once bootstraps a fresh controller without polling: status, then
// history. It returns the composed frame and the history error, if any.
func Once(ctx context.Context, ctl *Controller) (chart.Frame, error) {
	var histErr error
	pending := []Fetch{ctl.Start()}
	for len(pending) > 0 {
		f := pending[0]
		pending = pending[1:]
		if f == nil {
			continue
		}
		res := f(ctx)
		if res.Kind == FetchHistory {
			histErr = res.Err
			if histErr == nil && res.History == nil {
				histErr = errs.New(errs.MalformedResponse, "history", "empty response")
			}
		}
		pending = append(pending, ctl.Handle(res).Next...)
	}
	return ctl.Frame(), histErr
}

var _ Surface = SurfaceFuncs{}

// SurfaceFuncs adapts plain functions to Surface. Nil fields are skipped.
type SurfaceFuncs struct {
	ApplyFunc      func(chart.Frame)
	ConnectionFunc func(conn.State)
}

func (s SurfaceFuncs) Apply(frame chart.Frame) {
	if s.ApplyFunc != nil {
		s.ApplyFunc(frame)
	}
}

func (s SurfaceFuncs) SetConnection(state conn.State) {
	if s.ConnectionFunc != nil {
		s.ConnectionFunc(state)
	}
}
