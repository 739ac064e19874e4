package dashboard

import (
	"context"
	"log/slog"
	"time"

	"github.com/Dicklesworthstone/teledash/internal/chart"
	"github.com/Dicklesworthstone/teledash/internal/conn"
	"github.com/Dicklesworthstone/teledash/internal/errs"
	"github.com/Dicklesworthstone/teledash/internal/logging"
	"github.com/Dicklesworthstone/teledash/internal/reconcile"
)

// DefaultTimeout bounds every request when the controller has none set.
const DefaultTimeout = 5 * time.Second

// Step tells the timeline what to do after handling a result.
type Step struct {
	// Render is set when the frame changed.
	Render bool
	// ConnectionChanged is set when the LIVE/OFFLINE indicator flipped.
	ConnectionChanged bool
	// Next lists fetches to start now.
	Next []Fetch
}

// Controller owns a Session and turns fetch results into session updates
// and follow-up fetches. It performs no I/O itself; callers run the
// returned Fetch values on their own goroutines and feed the results back
// through Handle. Not safe for concurrent use.
type Controller struct {
	session    *reconcile.Session
	source     Source
	clock      Clock
	compositor chart.Compositor
	timeout    time.Duration
	log        *slog.Logger

	started        bool
	bootstrapToken uint64
	ready          bool
}

// ControllerOptions configures NewController.
type ControllerOptions struct {
	Compositor chart.Compositor
	Clock      Clock         // SystemClock when nil
	Timeout    time.Duration // DefaultTimeout when <= 0
	Logger     *slog.Logger
}

func NewController(session *reconcile.Session, source Source, opts ControllerOptions) *Controller {
	if opts.Clock == nil {
		opts.Clock = SystemClock{}
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	return &Controller{
		session:    session,
		source:     source,
		clock:      opts.Clock,
		compositor: opts.Compositor,
		timeout:    opts.Timeout,
		log:        logging.OrDiscard(opts.Logger).With("component", "dashboard"),
	}
}

// Session exposes the controlled session for read-only inspection.
func (c *Controller) Session() *reconcile.Session { return c.session }

// Ready reports whether the bootstrap history has come back (successfully
// or not). Live polling starts only then.
func (c *Controller) Ready() bool { return c.ready }

// Start returns the status fetch that opens the bootstrap sequence.
// Subsequent calls return nil.
func (c *Controller) Start() Fetch {
	if c.started {
		return nil
	}
	c.started = true
	return c.statusFetch()
}

// Poll returns the latest-sample fetch for one poll tick, or nil while the
// bootstrap is still in progress.
func (c *Controller) Poll() Fetch {
	if !c.ready {
		return nil
	}
	return c.latestFetch()
}

// SetRange switches the display window and returns the reload it forces.
func (c *Controller) SetRange(seconds int) Fetch {
	req := c.session.SetRange(c.clock.Now(), seconds)
	c.log.Info("range changed", "range", chart.RangeLabel(c.session.RangeSeconds))
	return c.historyFetch(req)
}

// Frame composes the current session.
func (c *Controller) Frame() chart.Frame {
	return c.compositor.Compose(View(c.session))
}

// Connection returns the current indicator state.
func (c *Controller) Connection() conn.State {
	return c.session.Tracker.State()
}

// Handle applies one result to the session.
func (c *Controller) Handle(res Result) Step {
	now := c.clock.Now()
	before := c.session.Tracker.State()

	if res.Kind == FetchHistory && res.Err == nil && res.History == nil {
		res.Err = errs.New(errs.MalformedResponse, "history", "empty response")
	}

	var out reconcile.Outcome
	var step Step
	if res.Err != nil {
		out = c.session.FetchFailed(now)
		c.logFailure(res)
	}

	switch res.Kind {
	case FetchStatus:
		if res.Err == nil {
			out = c.session.ApplyStatus(now, res.Status)
			c.log.Debug("status loaded", "interval", c.session.SamplingInterval)
		}
		if c.bootstrapToken == 0 {
			req := c.session.Bootstrap(now)
			c.bootstrapToken = req.Token
			step.Next = append(step.Next, c.historyFetch(req))
		}

	case FetchHistory:
		if res.Err == nil {
			out = c.session.ApplyHistory(now, res.Request, res.History)
			if out.Discarded {
				c.log.Debug("stale history discarded", "token", res.Request.Token)
			}
		}
		if c.bootstrapToken != 0 && res.Request.Token >= c.bootstrapToken {
			c.ready = true
		}

	case FetchLatest:
		if res.Err == nil {
			out = c.session.ApplyLatest(now, res.Sample)
		}
	}

	if out.Reload != nil {
		c.log.Debug("background history reload", "bucket_seconds", c.session.Buffer.Meta().BucketSeconds)
		step.Next = append(step.Next, c.historyFetch(*out.Reload))
	}
	step.Render = out.Render
	step.ConnectionChanged = c.session.Tracker.State() != before
	switch {
	case !step.ConnectionChanged:
	case c.session.Tracker.State() == conn.Offline:
		c.log.Warn("connection lost", "last_ok", c.session.Tracker.LastOK(), "error", res.Err)
	default:
		c.log.Info("connection live")
	}
	return step
}

func (c *Controller) logFailure(res Result) {
	if res.Kind == FetchStatus {
		c.log.Warn("status unavailable, using defaults", "error", res.Err)
		return
	}
	c.log.Debug("fetch failed", "fetch", res.Kind, "error", res.Err)
}

func (c *Controller) statusFetch() Fetch {
	src, timeout := c.source, c.timeout
	return func(ctx context.Context) Result {
		ctx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()
		st, err := src.Status(ctx)
		return Result{Kind: FetchStatus, Status: st, Err: err}
	}
}

func (c *Controller) historyFetch(req reconcile.HistoryRequest) Fetch {
	src, timeout := c.source, c.timeout
	return func(ctx context.Context) Result {
		ctx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()
		resp, err := src.History(ctx, req.Seconds)
		return Result{Kind: FetchHistory, Request: req, History: resp, Err: err}
	}
}

func (c *Controller) latestFetch() Fetch {
	src, timeout := c.source, c.timeout
	return func(ctx context.Context) Result {
		ctx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()
		s, err := src.Latest(ctx)
		return Result{Kind: FetchLatest, Sample: s, Err: err}
	}
}

// View snapshots the session for composition. The samples slice is shared
// with the buffer, so the view is only valid on the timeline goroutine.
func View(s *reconcile.Session) chart.View {
	return chart.View{
		Samples:          s.Buffer.Samples(),
		Meta:             s.Buffer.Meta(),
		Latest:           s.Latest,
		Status:           s.Status,
		SamplingInterval: s.SamplingInterval,
		RangeSeconds:     s.RangeSeconds,
		Connection:       s.Tracker.State(),
	}
}
