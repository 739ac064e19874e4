package reconcile

import (
	"time"

	"github.com/Dicklesworthstone/teledash/internal/conn"
	"github.com/Dicklesworthstone/teledash/internal/model"
	"github.com/Dicklesworthstone/teledash/internal/series"
)

const (
	// DefaultSamplingInterval is assumed until the service reports its own.
	DefaultSamplingInterval = 2 * time.Second
	// DefaultRangeSeconds is the initial display window.
	DefaultRangeSeconds = 3600
)

// Options configures a Session.
type Options struct {
	Policy       Policy
	Capacity     int           // series.DefaultCapacity when <= 0
	StaleAfter   time.Duration // conn.DefaultStaleAfter when <= 0
	RangeSeconds int           // DefaultRangeSeconds when <= 0
}

// HistoryRequest is a history fetch the caller must perform and hand back
// to ApplyHistory together with its response.
type HistoryRequest struct {
	Token          uint64
	Seconds        int
	UpdateReadouts bool
	Forced         bool
	IssuedAt       time.Time
}

// Outcome tells the caller what to do after a state change.
type Outcome struct {
	// Render is set when anything visible changed.
	Render bool
	// Reload, when non-nil, is a history fetch to issue now.
	Reload *HistoryRequest
	// Discarded is set when a history response lost to a newer request.
	Discarded bool
	// Appended is set when a live sample went into the buffer.
	Appended bool
}

// Session is the dashboard's whole mutable state. Every method must be
// called from the same goroutine; none of them perform I/O.
type Session struct {
	policy Policy

	Buffer  *series.Buffer
	Tracker *conn.Tracker

	// Latest feeds the instantaneous readouts.
	Latest *model.Sample
	// Status is nil until the service answered metrics/status.
	Status *model.StatusResponse

	SamplingInterval time.Duration
	RangeSeconds     int

	lastReload   time.Time
	nextToken    uint64
	appliedToken uint64
}

// NewSession creates an empty session.
func NewSession(opts Options) *Session {
	rng := opts.RangeSeconds
	if rng <= 0 {
		rng = DefaultRangeSeconds
	}
	return &Session{
		policy:           opts.Policy,
		Buffer:           series.New(opts.Capacity),
		Tracker:          conn.NewTracker(opts.StaleAfter),
		SamplingInterval: DefaultSamplingInterval,
		RangeSeconds:     rng,
	}
}

// Policy returns the thresholds in effect.
func (s *Session) Policy() Policy { return s.policy }

// LastReload returns when the most recent history request was issued.
func (s *Session) LastReload() time.Time { return s.lastReload }

// NearRaw reports whether the current buffer takes live appends.
func (s *Session) NearRaw() bool {
	return s.policy.IsNearRaw(s.Buffer.Meta().BucketSeconds, s.SamplingInterval)
}

// Bootstrap issues the initial history request.
func (s *Session) Bootstrap(now time.Time) HistoryRequest {
	req, _ := s.RequestReload(now, true, true)
	return req
}

// RequestReload issues a history request unless force is false and the
// throttle window of the current bucket size has not elapsed. The throttle
// is measured from issue time so that an in-flight reload also counts.
func (s *Session) RequestReload(now time.Time, force, updateReadouts bool) (HistoryRequest, bool) {
	if !force && !s.policy.ShouldReload(now, s.lastReload, s.Buffer.Meta().BucketSeconds) {
		return HistoryRequest{}, false
	}
	s.nextToken++
	s.lastReload = now
	return HistoryRequest{
		Token:          s.nextToken,
		Seconds:        s.RangeSeconds,
		UpdateReadouts: updateReadouts,
		Forced:         force,
		IssuedAt:       now,
	}, true
}

// SetRange switches the display window and always reloads immediately.
func (s *Session) SetRange(now time.Time, seconds int) HistoryRequest {
	if seconds > 0 {
		s.RangeSeconds = seconds
	}
	req, _ := s.RequestReload(now, true, true)
	return req
}

// ApplyLatest handles one latest-sample poll result. A nil sample leaves
// the data untouched; a sample older than the current readouts does not
// replace them. Near-raw buffers take the sample directly (unless its
// timestamp is not newer than the tail); coarse buffers ask for a throttled
// background reload instead.
func (s *Session) ApplyLatest(now time.Time, sample *model.Sample) Outcome {
	out := s.succeeded(now)
	if sample == nil {
		return out
	}

	latest := *sample
	// A poll that finishes late must not roll the readouts back.
	if s.Latest == nil || latest.TS >= s.Latest.TS {
		s.Latest = &latest
		out.Render = true
	}

	if s.NearRaw() {
		if last, ok := s.Buffer.Last(); !ok || latest.TS > last.TS {
			s.Buffer.Append(latest)
			out.Appended = true
			out.Render = true
		}
		return out
	}

	if req, ok := s.RequestReload(now, false, false); ok {
		out.Reload = &req
	}
	return out
}

// ApplyHistory installs a history response for req. Responses to requests
// older than the one already applied are dropped.
func (s *Session) ApplyHistory(now time.Time, req HistoryRequest, resp *model.HistoryResponse) Outcome {
	out := s.succeeded(now)
	if req.Token < s.appliedToken {
		out.Discarded = true
		return out
	}
	s.appliedToken = req.Token

	resp.Normalize()
	s.Buffer.Replace(resp.Samples, series.Meta{
		Mode:          resp.Mode,
		BucketSeconds: resp.BucketSeconds,
		MaxPoints:     resp.MaxPoints,
	})
	if req.UpdateReadouts {
		if last, ok := s.Buffer.Last(); ok {
			s.Latest = &last
		}
	}
	out.Render = true
	return out
}

// ApplyStatus records the service's capabilities.
func (s *Session) ApplyStatus(now time.Time, st *model.StatusResponse) Outcome {
	out := s.succeeded(now)
	s.Status = st
	if st != nil && st.Sampling != nil && st.Sampling.IntervalSeconds > 0 {
		s.SamplingInterval = time.Duration(st.Sampling.IntervalSeconds) * time.Second
	}
	out.Render = true
	return out
}

// FetchFailed records a failed fetch. Data is kept; only the connection
// indicator may change.
func (s *Session) FetchFailed(now time.Time) Outcome {
	before := s.Tracker.State()
	after := s.Tracker.Failure(now)
	return Outcome{Render: before != after}
}

func (s *Session) succeeded(now time.Time) Outcome {
	before := s.Tracker.State()
	after := s.Tracker.Success(now)
	return Outcome{Render: before != after}
}
