package dashboard

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Dicklesworthstone/teledash/internal/chart"
	"github.com/Dicklesworthstone/teledash/internal/conn"
	"github.com/Dicklesworthstone/teledash/internal/errs"
	"github.com/Dicklesworthstone/teledash/internal/model"
	"github.com/Dicklesworthstone/teledash/internal/reconcile"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock { return &fakeClock{now: time.Unix(1_700_000_000, 0)} }

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type fakeSource struct {
	mu        sync.Mutex
	history   func(seconds int) (*model.HistoryResponse, error)
	latest    func() (*model.Sample, error)
	status    func() (*model.StatusResponse, error)
	histCalls []int
	latCalls  int
}

func (f *fakeSource) History(_ context.Context, seconds int) (*model.HistoryResponse, error) {
	f.mu.Lock()
	f.histCalls = append(f.histCalls, seconds)
	fn := f.history
	f.mu.Unlock()
	if fn == nil {
		return &model.HistoryResponse{Samples: []model.Sample{}}, nil
	}
	return fn(seconds)
}

func (f *fakeSource) Latest(context.Context) (*model.Sample, error) {
	f.mu.Lock()
	f.latCalls++
	fn := f.latest
	f.mu.Unlock()
	if fn == nil {
		return nil, nil
	}
	return fn()
}

func (f *fakeSource) Status(context.Context) (*model.StatusResponse, error) {
	f.mu.Lock()
	fn := f.status
	f.mu.Unlock()
	if fn == nil {
		return &model.StatusResponse{Sampling: &model.SamplingStatus{IntervalSeconds: 2}}, nil
	}
	return fn()
}

func (f *fakeSource) historyCalls() []int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]int(nil), f.histCalls...)
}

func sample(ts int64, cpu float64) model.Sample {
	return model.Sample{TS: ts, CPU: model.CPU{Usage: model.Float(cpu)}}
}

func history(bucket int, samples ...model.Sample) *model.HistoryResponse {
	mode := "raw"
	if bucket > 1 {
		mode = "avg_bucket"
	}
	return &model.HistoryResponse{Mode: mode, BucketSeconds: bucket, MaxPoints: 2000, Samples: samples}
}

func newController(src Source, clk Clock) *Controller {
	s := reconcile.NewSession(reconcile.Options{Policy: reconcile.DefaultPolicy()})
	return NewController(s, src, ControllerOptions{Clock: clk, Compositor: chart.Compositor{Location: time.UTC}})
}

// drive runs f synchronously and feeds the result back, following any
// fetches the controller asks for.
func drive(t *testing.T, ctl *Controller, f Fetch) []Step {
	t.Helper()
	var steps []Step
	queue := []Fetch{f}
	for len(queue) > 0 {
		next := queue[0]
		queue = queue[1:]
		require.NotNil(t, next)
		step := ctl.Handle(next(context.Background()))
		steps = append(steps, step)
		queue = append(queue, step.Next...)
	}
	return steps
}

func TestBootstrapSequence(t *testing.T) {
	src := &fakeSource{
		history: func(int) (*model.HistoryResponse, error) {
			return history(1, sample(100, 10), sample(102, 20)), nil
		},
		status: func() (*model.StatusResponse, error) {
			return &model.StatusResponse{Sampling: &model.SamplingStatus{IntervalSeconds: 5}}, nil
		},
	}
	ctl := newController(src, newFakeClock())

	start := ctl.Start()
	require.NotNil(t, start)
	assert.Nil(t, ctl.Start(), "bootstrap runs once")
	assert.Nil(t, ctl.Poll(), "no polling before history arrives")

	status := ctl.Handle(start(context.Background()))
	require.Len(t, status.Next, 1)
	assert.True(t, status.ConnectionChanged)
	assert.Equal(t, 5*time.Second, ctl.Session().SamplingInterval)
	assert.False(t, ctl.Ready())

	hist := ctl.Handle(status.Next[0](context.Background()))
	assert.True(t, hist.Render)
	assert.True(t, ctl.Ready())
	assert.NotNil(t, ctl.Poll())
	assert.Equal(t, []int{3600}, src.historyCalls())

	f := ctl.Frame()
	assert.Equal(t, "20.0%", f.Readouts.CPU, "bootstrap history feeds the readouts")
	assert.Equal(t, conn.Live, f.Connection)
}

func TestStatusFailureUsesDefaults(t *testing.T) {
	src := &fakeSource{
		status: func() (*model.StatusResponse, error) {
			return nil, errs.New(errs.NetworkFailure, "metrics/status", "unexpected status 502")
		},
	}
	ctl := newController(src, newFakeClock())
	drive(t, ctl, ctl.Start())

	assert.True(t, ctl.Ready(), "history still loads")
	assert.Nil(t, ctl.Session().Status)
	assert.Equal(t, reconcile.DefaultSamplingInterval, ctl.Session().SamplingInterval)
	assert.Contains(t, ctl.Frame().Meta, "status n/a")
	assert.Equal(t, conn.Live, ctl.Connection(), "the history success restores Live")
}

func TestHistoryFailureKeepsPolling(t *testing.T) {
	src := &fakeSource{
		history: func(int) (*model.HistoryResponse, error) {
			return nil, errs.New(errs.MalformedResponse, "metrics/history", "response has no samples")
		},
		status: func() (*model.StatusResponse, error) {
			return nil, errs.New(errs.NetworkFailure, "metrics/status", "refused")
		},
	}
	ctl := newController(src, newFakeClock())
	drive(t, ctl, ctl.Start())

	assert.Equal(t, conn.Offline, ctl.Connection())
	assert.True(t, ctl.Ready())
	require.NotNil(t, ctl.Poll())
}

func TestNilHistoryIsMalformed(t *testing.T) {
	src := &fakeSource{history: func(int) (*model.HistoryResponse, error) { return nil, nil }}
	ctl := newController(src, newFakeClock())
	drive(t, ctl, ctl.Start())
	assert.Zero(t, ctl.Session().Buffer.Len())
}

func TestLiveAppendWhenNearRaw(t *testing.T) {
	clk := newFakeClock()
	ts := int64(102)
	src := &fakeSource{
		history: func(int) (*model.HistoryResponse, error) { return history(1, sample(100, 1), sample(102, 2)), nil },
		latest: func() (*model.Sample, error) {
			s := sample(ts, 50)
			return &s, nil
		},
	}
	ctl := newController(src, clk)
	drive(t, ctl, ctl.Start())

	steps := drive(t, ctl, ctl.Poll())
	require.Len(t, steps, 1)
	assert.Equal(t, 2, ctl.Session().Buffer.Len(), "same timestamp is not appended twice")

	ts = 104
	clk.Advance(2 * time.Second)
	drive(t, ctl, ctl.Poll())
	assert.Equal(t, 3, ctl.Session().Buffer.Len())
	assert.Len(t, src.historyCalls(), 1, "near-raw polls never reload")
}

func TestCoarseReloadThrottle(t *testing.T) {
	clk := newFakeClock()
	src := &fakeSource{
		history: func(int) (*model.HistoryResponse, error) { return history(60, sample(60, 1), sample(120, 2)), nil },
		latest: func() (*model.Sample, error) {
			s := sample(130, 50)
			return &s, nil
		},
	}
	ctl := newController(src, clk)
	drive(t, ctl, ctl.Start())
	require.Len(t, src.historyCalls(), 1)

	clk.Advance(5 * time.Second)
	drive(t, ctl, ctl.Poll())
	assert.Len(t, src.historyCalls(), 1, "inside the 60s window")
	assert.Equal(t, "50.0%", ctl.Frame().Readouts.CPU, "readouts still follow the poll")
	assert.Equal(t, 2, ctl.Session().Buffer.Len(), "coarse buffers never take raw appends")

	clk.Advance(56 * time.Second)
	drive(t, ctl, ctl.Poll())
	assert.Len(t, src.historyCalls(), 2, "61s after bootstrap")
	assert.Equal(t, "50.0%", ctl.Frame().Readouts.CPU, "background reloads keep the polled readouts")
}

func TestStaleReloadDiscarded(t *testing.T) {
	src := &fakeSource{
		history: func(seconds int) (*model.HistoryResponse, error) {
			return history(1, sample(int64(seconds), float64(seconds%100))), nil
		},
	}
	ctl := newController(src, newFakeClock())
	drive(t, ctl, ctl.Start())

	slow := ctl.SetRange(300)
	fast := ctl.SetRange(900)
	assert.Equal(t, 900, ctl.Session().RangeSeconds)

	ctl.Handle(fast(context.Background()))
	ctl.Handle(slow(context.Background()))

	last, ok := ctl.Session().Buffer.Last()
	require.True(t, ok)
	assert.Equal(t, int64(900), last.TS, "the older reload lost")
}

func TestFailureWithinStaleWindow(t *testing.T) {
	clk := newFakeClock()
	fail := false
	src := &fakeSource{
		latest: func() (*model.Sample, error) {
			if fail {
				return nil, errs.New(errs.NetworkFailure, "metrics/latest", "timeout")
			}
			return nil, nil
		},
	}
	ctl := newController(src, clk)
	drive(t, ctl, ctl.Start())
	require.Equal(t, conn.Live, ctl.Connection())

	fail = true
	clk.Advance(3 * time.Second)
	step := drive(t, ctl, ctl.Poll())[0]
	assert.False(t, step.ConnectionChanged)
	assert.Equal(t, conn.Live, ctl.Connection())

	clk.Advance(6 * time.Second)
	step = drive(t, ctl, ctl.Poll())[0]
	assert.True(t, step.ConnectionChanged)
	assert.True(t, step.Render)
	assert.Equal(t, conn.Offline, ctl.Connection())
}

func TestOnce(t *testing.T) {
	src := &fakeSource{history: func(int) (*model.HistoryResponse, error) { return history(1, sample(5, 42)), nil }}
	frame, err := Once(context.Background(), newController(src, newFakeClock()))
	require.NoError(t, err)
	assert.Equal(t, "42.0%", frame.Readouts.CPU)

	bad := &fakeSource{history: func(int) (*model.HistoryResponse, error) {
		return nil, errs.New(errs.NetworkFailure, "metrics/history", "refused")
	}}
	_, err = Once(context.Background(), newController(bad, newFakeClock()))
	assert.True(t, errs.Is(err, errs.NetworkFailure))
}

type recordingSurface struct {
	mu     sync.Mutex
	frames []chart.Frame
	states []conn.State
}

func (r *recordingSurface) Apply(f chart.Frame) {
	r.mu.Lock()
	r.frames = append(r.frames, f)
	r.mu.Unlock()
}

func (r *recordingSurface) SetConnection(s conn.State) {
	r.mu.Lock()
	r.states = append(r.states, s)
	r.mu.Unlock()
}

func (r *recordingSurface) snapshot() ([]chart.Frame, []conn.State) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]chart.Frame(nil), r.frames...), append([]conn.State(nil), r.states...)
}

func TestRunner(t *testing.T) {
	src := &fakeSource{
		history: func(int) (*model.HistoryResponse, error) { return history(1, sample(100, 10)), nil },
		latest: func() (*model.Sample, error) {
			s := sample(102, 77)
			return &s, nil
		},
	}
	surface := &recordingSurface{}
	ticks := make(chan time.Time)
	runner := NewRunner(newController(src, newFakeClock()), surface, RunnerOptions{Ticks: ticks})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- runner.Run(ctx) }()

	require.Eventually(t, func() bool {
		p := runner.Published()
		return p != nil && p.Frame.Readouts.TS == 100
	}, 2*time.Second, 5*time.Millisecond)

	ticks <- time.Now()
	require.Eventually(t, func() bool {
		return runner.Published().Frame.Readouts.CPU == "77.0%"
	}, 2*time.Second, 5*time.Millisecond)

	require.NoError(t, runner.RequestRange(ctx, 300))
	require.Eventually(t, func() bool {
		calls := src.historyCalls()
		return len(calls) == 2 && calls[1] == 300
	}, 2*time.Second, 5*time.Millisecond)
	assert.Eventually(t, func() bool { return runner.Published().RangeSeconds == 300 }, time.Second, 5*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("runner did not stop")
	}

	frames, states := surface.snapshot()
	assert.NotEmpty(t, frames)
	require.NotEmpty(t, states)
	assert.Equal(t, conn.Offline, states[0], "initial render shows the starting state")
	assert.Equal(t, conn.Live, states[len(states)-1])
}

func (f *fakeSource) latestCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.latCalls
}

func TestRunnerPollsWhileLatestInFlight(t *testing.T) {
	release := make(chan struct{})
	var n atomic.Int64
	src := &fakeSource{
		history: func(int) (*model.HistoryResponse, error) { return history(1, sample(100, 10)), nil },
		latest: func() (*model.Sample, error) {
			i := n.Add(1)
			select {
			case <-release:
			case <-time.After(5 * time.Second):
			}
			s := sample(100+2*i, float64(74+i))
			return &s, nil
		},
	}
	ticks := make(chan time.Time)
	runner := NewRunner(newController(src, newFakeClock()), nil, RunnerOptions{Ticks: ticks})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- runner.Run(ctx) }()

	require.Eventually(t, func() bool {
		p := runner.Published()
		return p != nil && p.Frame.Readouts.TS == 100
	}, 2*time.Second, 5*time.Millisecond)

	// Every tick starts a new poll even though none has answered yet.
	for want := 1; want <= 3; want++ {
		ticks <- time.Now()
		require.Eventually(t, func() bool { return src.latestCalls() == want }, 2*time.Second, 5*time.Millisecond)
	}
	assert.Equal(t, int64(100), runner.Published().Frame.Readouts.TS)

	close(release)
	// Whatever the completion order, the newest sample ends up on screen.
	require.Eventually(t, func() bool {
		r := runner.Published().Frame.Readouts
		return r.TS == 106 && r.CPU == "77.0%"
	}, 2*time.Second, 5*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("runner did not stop")
	}
}
