// Package dashboard drives the telemetry session: it decides which fetches
// to issue, applies their results on a single timeline and hands composed
// frames to a Surface.
package dashboard

import (
	"context"
	"time"

	"github.com/Dicklesworthstone/teledash/internal/chart"
	"github.com/Dicklesworthstone/teledash/internal/conn"
	"github.com/Dicklesworthstone/teledash/internal/model"
	"github.com/Dicklesworthstone/teledash/internal/reconcile"
)

// Source provides telemetry. Implementations must honour ctx and report
// failures as errs.NetworkFailure or errs.MalformedResponse.
type Source interface {
	History(ctx context.Context, seconds int) (*model.HistoryResponse, error)
	// Latest may return (nil, nil) when nothing has been sampled yet.
	Latest(ctx context.Context) (*model.Sample, error)
	Status(ctx context.Context) (*model.StatusResponse, error)
}

// Surface displays frames. Both methods are called from the timeline
// goroutine only.
type Surface interface {
	Apply(frame chart.Frame)
	SetConnection(state conn.State)
}

// Clock supplies the time used for throttling and staleness.
type Clock interface {
	Now() time.Time
}

// SystemClock is the wall clock.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

// FetchKind identifies which endpoint a Result came from.
type FetchKind int

const (
	FetchStatus FetchKind = iota
	FetchHistory
	FetchLatest
)

func (k FetchKind) String() string {
	switch k {
	case FetchStatus:
		return "status"
	case FetchHistory:
		return "history"
	case FetchLatest:
		return "latest"
	default:
		return "unknown"
	}
}

// Result is the outcome of one fetch, delivered back to the timeline.
type Result struct {
	Kind    FetchKind
	Request reconcile.HistoryRequest
	History *model.HistoryResponse
	Sample  *model.Sample
	Status  *model.StatusResponse
	Err     error
}

// Fetch performs one request. It runs off the timeline and must not touch
// session state.
type Fetch func(ctx context.Context) Result
