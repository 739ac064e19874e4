package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Dicklesworthstone/teledash/internal/chart"
	"github.com/Dicklesworthstone/teledash/internal/conn"
	"github.com/Dicklesworthstone/teledash/internal/dashboard"
	"github.com/Dicklesworthstone/teledash/internal/model"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeDashboard struct {
	mu        sync.Mutex
	published *dashboard.Published
	ranges    []int
	rangeErr  error
}

func (f *fakeDashboard) Published() *dashboard.Published {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.published
}

func (f *fakeDashboard) RequestRange(_ context.Context, seconds int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.rangeErr != nil {
		return f.rangeErr
	}
	f.ranges = append(f.ranges, seconds)
	return nil
}

func published() *dashboard.Published {
	latest := model.Sample{TS: 100, CPU: model.CPU{Usage: model.Float(12.5)}, GPU: model.GPU{Name: model.String("T4")}}
	frame := chart.Compositor{Location: time.UTC}.Compose(chart.View{
		Samples:      []model.Sample{latest},
		Latest:       &latest,
		RangeSeconds: 900,
		Connection:   conn.Live,
	})
	return &dashboard.Published{Frame: frame, RangeSeconds: 900, At: time.Unix(1_700_000_000, 0)}
}

func do(t *testing.T, h http.Handler, method, target string, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestNoFrameYet(t *testing.T) {
	h := New(&fakeDashboard{}, Options{}).Handler()

	assert.Equal(t, http.StatusServiceUnavailable, do(t, h, "GET", "/charts/usage.svg", "").Code)
	assert.Equal(t, http.StatusServiceUnavailable, do(t, h, "GET", "/api/readouts", "").Code)

	health := do(t, h, "GET", "/healthz", "")
	assert.Equal(t, http.StatusOK, health.Code)
	assert.JSONEq(t, `{"status":"ok","connection":"unknown"}`, health.Body.String())

	index := do(t, h, "GET", "/", "")
	assert.Equal(t, http.StatusOK, index.Code)
	assert.Contains(t, index.Body.String(), "starting")
}

func TestCharts(t *testing.T) {
	h := New(&fakeDashboard{published: published()}, Options{}).Handler()

	for _, r := range chart.Regions {
		rec := do(t, h, "GET", "/charts/"+string(r)+".svg", "")
		require.Equal(t, http.StatusOK, rec.Code, r)
		assert.Equal(t, "image/svg+xml", rec.Header().Get("Content-Type"))
		assert.Equal(t, "no-store", rec.Header().Get("Cache-Control"))
		assert.True(t, strings.HasPrefix(rec.Body.String(), "<svg"))
	}

	assert.Equal(t, http.StatusNotFound, do(t, h, "GET", "/charts/disk.svg", "").Code)
	assert.Equal(t, http.StatusNotFound, do(t, h, "GET", "/charts/usage.png", "").Code)
}

func TestReadouts(t *testing.T) {
	h := New(&fakeDashboard{published: published()}, Options{}).Handler()
	rec := do(t, h, "GET", "/api/readouts", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var got readoutsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, "12.5%", got.Readouts.CPU)
	assert.Equal(t, "--%", got.Readouts.Mem)
	assert.Equal(t, "T4", got.Readouts.GPUName)
	assert.Equal(t, "LIVE", got.Connection)
	assert.Equal(t, 900, got.RangeSeconds)
	assert.Equal(t, "15m", got.Range)
	assert.Contains(t, got.Meta, "range 15m")
}

func TestSetRange(t *testing.T) {
	d := &fakeDashboard{published: published()}
	h := New(d, Options{}).Handler()

	rec := do(t, h, "POST", "/api/range?seconds=21600", "")
	require.Equal(t, http.StatusAccepted, rec.Code)
	assert.JSONEq(t, `{"range_seconds":21600,"range":"6h"}`, rec.Body.String())

	form := url.Values{"seconds": {"300"}, "redirect": {"1"}}.Encode()
	rec = do(t, h, "POST", "/api/range", form)
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/", rec.Header().Get("Location"))

	assert.Equal(t, []int{21600, 300}, d.ranges)

	for _, bad := range []string{"", "abc", "5", "2592001"} {
		rec = do(t, h, "POST", "/api/range?seconds="+bad, "")
		assert.Equal(t, http.StatusBadRequest, rec.Code, bad)
	}
	assert.Len(t, d.ranges, 2)
}

func TestSetRangeBusy(t *testing.T) {
	d := &fakeDashboard{rangeErr: errors.New("context deadline exceeded")}
	rec := do(t, New(d, Options{}).Handler(), "POST", "/api/range?seconds=300", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestIndex(t *testing.T) {
	h := New(&fakeDashboard{published: published()}, Options{Refresh: 3 * time.Second}).Handler()
	rec := do(t, h, "GET", "/", "")
	require.Equal(t, http.StatusOK, rec.Code)

	body := rec.Body.String()
	assert.Contains(t, body, `content="3"`)
	assert.Contains(t, body, `class="badge LIVE"`)
	assert.Contains(t, body, "CPU 12.5%")
	assert.Contains(t, body, `/charts/spark-gpu.svg?t=1700000000000`)
	assert.Contains(t, body, `<button class="active">15m</button>`)
	assert.Equal(t, len(chart.Ranges), strings.Count(body, `action="/api/range"`))
}

func TestRunShutsDown(t *testing.T) {
	s := New(&fakeDashboard{}, Options{})
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx, "127.0.0.1:0") }()

	time.Sleep(20 * time.Millisecond)
	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("server did not stop")
	}
}
