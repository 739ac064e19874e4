// Package conn derives the dashboard's LIVE/OFFLINE indicator from fetch
// outcomes and staleness.
package conn

import (
	"fmt"
	"time"
)

// DefaultStaleAfter is how long after the last success a failure is allowed
// to flip the indicator to Offline.
const DefaultStaleAfter = 8000 * time.Millisecond

// State is the two-valued connection indicator.
type State int

const (
	// Offline means no fetch has succeeded recently.
	Offline State = iota
	// Live means a fetch succeeded recently.
	Live
)

// String returns the label shown in the indicator slot.
func (s State) String() string {
	switch s {
	case Live:
		return "LIVE"
	case Offline:
		return "OFFLINE"
	default:
		return fmt.Sprintf("unknown(%d)", int(s))
	}
}

// Tracker turns a stream of fetch outcomes into a State. A single failure
// shortly after a success does not flip the indicator; the next success
// always restores Live. Not safe for concurrent use.
type Tracker struct {
	staleAfter time.Duration
	state      State
	lastOK     time.Time
	failures   int
}

// NewTracker creates a tracker that starts Offline. staleAfter <= 0 selects
// DefaultStaleAfter.
func NewTracker(staleAfter time.Duration) *Tracker {
	if staleAfter <= 0 {
		staleAfter = DefaultStaleAfter
	}
	return &Tracker{staleAfter: staleAfter, state: Offline}
}

// Success records a successful fetch at now and returns the new state.
func (t *Tracker) Success(now time.Time) State {
	t.lastOK = now
	t.failures = 0
	t.state = Live
	return t.state
}

// Failure records a failed fetch at now and returns the new state.
func (t *Tracker) Failure(now time.Time) State {
	t.failures++
	if t.lastOK.IsZero() || now.Sub(t.lastOK) > t.staleAfter {
		t.state = Offline
	}
	return t.state
}

// State returns the current indicator value.
func (t *Tracker) State() State { return t.state }

// LastOK returns the time of the last success, zero if none.
func (t *Tracker) LastOK() time.Time { return t.lastOK }

// ConsecutiveFailures returns failures since the last success.
func (t *Tracker) ConsecutiveFailures() int { return t.failures }

// Staleness returns the time since the last success, or -1 if there has
// never been one.
func (t *Tracker) Staleness(now time.Time) time.Duration {
	if t.lastOK.IsZero() {
		return -1
	}
	return now.Sub(t.lastOK)
}
