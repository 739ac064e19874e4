package metrics

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Dicklesworthstone/teledash/internal/errs"
)

func serve(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	c, err := New(srv.URL+"/api/v1/", Options{Limit: 500})
	require.NoError(t, err)
	return c
}

func TestHistory(t *testing.T) {
	c := serve(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/metrics/history", r.URL.Path)
		assert.Equal(t, "3600", r.URL.Query().Get("seconds"))
		assert.Equal(t, "500", r.URL.Query().Get("limit"))
		assert.Equal(t, "application/json", r.Header.Get("Accept"))
		assert.Equal(t, "no-cache", r.Header.Get("Cache-Control"))
		w.Write([]byte(`{"start_ts":0,"end_ts":3600,"seconds":3600,"max_points":500,
			"mode":"avg_bucket","bucket_seconds":8,"count":2,
			"samples":[{"ts":8,"cpu":{"usage":10}},{"ts":16,"cpu":{"usage":null},"memory":null}]}`))
	})

	resp, err := c.History(context.Background(), 3600)
	require.NoError(t, err)
	assert.Equal(t, "avg_bucket", resp.Mode)
	assert.Equal(t, 8, resp.BucketSeconds)
	assert.Equal(t, 500, resp.MaxPoints)
	require.Len(t, resp.Samples, 2)
	assert.Equal(t, 10.0, *resp.Samples[0].CPU.Usage)
	assert.Nil(t, resp.Samples[1].CPU.Usage)
}

func TestHistoryDefaults(t *testing.T) {
	c := serve(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"samples":[],"bucket_seconds":0}`))
	})
	resp, err := c.History(context.Background(), 60)
	require.NoError(t, err)
	assert.Equal(t, "raw", resp.Mode)
	assert.Equal(t, 1, resp.BucketSeconds)
	assert.Empty(t, resp.Samples)
}

func TestHistoryMissingSamples(t *testing.T) {
	c := serve(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"mode":"raw","bucket_seconds":1}`))
	})
	_, err := c.History(context.Background(), 60)
	require.Error(t, err)
	assert.True(t, errs.Is(err, errs.MalformedResponse))
	assert.True(t, errs.IsFetchFailure(err))
}

func TestLatest(t *testing.T) {
	body := `{"sample":{"ts":42,"gpu":{"usage":5,"temp_c":40,"name":"T4"}}}`
	c := serve(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/metrics/latest", r.URL.Path)
		w.Write([]byte(body))
	})

	s, err := c.Latest(context.Background())
	require.NoError(t, err)
	require.NotNil(t, s)
	assert.Equal(t, int64(42), s.TS)
	assert.Equal(t, "T4", *s.GPU.Name)

	body = `{"sample":null}`
	s, err = c.Latest(context.Background())
	require.NoError(t, err)
	assert.Nil(t, s)
}

func TestStatus(t *testing.T) {
	c := serve(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"sampling":{"sampling_interval_seconds":5,"gpu":{"enabled":true,"mode":"nvml"}},
			"cpu_temp":{"method":"hwmon","temp_c":51.5,"source":{"chip":"coretemp","label":"Package id 0"}}}`))
	})
	st, err := c.Status(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 5, st.Sampling.IntervalSeconds)
	assert.Equal(t, "hwmon", st.CPUTemp.Method)
	assert.Equal(t, "coretemp", st.CPUTemp.Source.Chip)
}

func TestErrorMapping(t *testing.T) {
	tests := []struct {
		name string
		h    http.HandlerFunc
		kind errs.Kind
	}{
		{"server error", func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "boom", http.StatusInternalServerError)
		}, errs.NetworkFailure},
		{"not found", func(w http.ResponseWriter, r *http.Request) {
			http.NotFound(w, r)
		}, errs.NetworkFailure},
		{"html body", func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte("<html>proxy login</html>"))
		}, errs.MalformedResponse},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := serve(t, tt.h)
			_, err := c.Latest(context.Background())
			require.Error(t, err)
			assert.True(t, errs.Is(err, tt.kind), "got %v", err)
		})
	}
}

func TestTransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	c, err := New(url, Options{})
	require.NoError(t, err)
	_, err = c.Status(context.Background())
	assert.True(t, errs.Is(err, errs.NetworkFailure))
}

func TestTimeout(t *testing.T) {
	release := make(chan struct{})
	c := serve(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	})
	defer close(release)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := c.History(ctx, 60)
	assert.True(t, errs.Is(err, errs.NetworkFailure))
}

func TestNewRejectsRelativeURL(t *testing.T) {
	_, err := New("/api/v1", Options{})
	assert.True(t, errs.Is(err, errs.Config))
}
