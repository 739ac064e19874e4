// Package metrics is the HTTP client for the metrics service API.
package metrics

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/Dicklesworthstone/teledash/internal/errs"
	"github.com/Dicklesworthstone/teledash/internal/logging"
	"github.com/Dicklesworthstone/teledash/internal/model"
)

// maxBody caps how much of a response is read; a 30 day history at the
// service's largest limit is well below this.
const maxBody = 32 << 20

// Client talks to {base}/metrics/{history,latest,status}. It holds no
// session state and is safe for concurrent use.
type Client struct {
	base  *url.URL
	http  *http.Client
	limit int
	log   *slog.Logger
}

// Options tunes a Client. The zero value is usable.
type Options struct {
	// HTTPClient defaults to a client without its own timeout; callers
	// bound each request through its context.
	HTTPClient *http.Client
	// Limit is sent as the history "limit" parameter when > 0.
	Limit  int
	Logger *slog.Logger
}

// New validates baseURL (e.g. http://127.0.0.1:8890/api/v1) and returns a
// client for it.
func New(baseURL string, opts Options) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, errs.Wrap(err, errs.Config, "base_url", "invalid URL")
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, errs.New(errs.Config, "base_url", fmt.Sprintf("%q is not an absolute http(s) URL", baseURL))
	}
	hc := opts.HTTPClient
	if hc == nil {
		hc = &http.Client{}
	}
	return &Client{
		base:  u,
		http:  hc,
		limit: opts.Limit,
		log:   logging.OrDiscard(opts.Logger).With("component", "metrics"),
	}, nil
}

// historyEnvelope distinguishes a missing samples key from an empty one.
type historyEnvelope struct {
	model.HistoryResponse
	Samples *[]model.Sample `json:"samples"`
}

// History fetches the last seconds of samples.
func (c *Client) History(ctx context.Context, seconds int) (*model.HistoryResponse, error) {
	const op = "metrics/history"
	q := url.Values{"seconds": {strconv.Itoa(seconds)}}
	if c.limit > 0 {
		q.Set("limit", strconv.Itoa(c.limit))
	}

	var env historyEnvelope
	if err := c.get(ctx, op, q, &env); err != nil {
		return nil, err
	}
	if env.Samples == nil {
		return nil, errs.New(errs.MalformedResponse, op, "response has no samples")
	}
	resp := env.HistoryResponse
	resp.Samples = *env.Samples
	resp.Normalize()
	return &resp, nil
}

// Latest fetches the newest sample. A nil sample with a nil error means
// the service has nothing yet.
func (c *Client) Latest(ctx context.Context) (*model.Sample, error) {
	var resp model.LatestResponse
	if err := c.get(ctx, "metrics/latest", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Sample, nil
}

// Status fetches the sampler and sensor capabilities.
func (c *Client) Status(ctx context.Context) (*model.StatusResponse, error) {
	var resp model.StatusResponse
	if err := c.get(ctx, "metrics/status", nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) get(ctx context.Context, op string, q url.Values, dst any) error {
	u := c.base.JoinPath(op)
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return errs.Wrap(err, errs.NetworkFailure, op, "cannot build request")
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Cache-Control", "no-cache")

	start := time.Now()
	res, err := c.http.Do(req)
	if err != nil {
		return errs.Wrap(err, errs.NetworkFailure, op, "request failed")
	}
	defer res.Body.Close()
	c.log.Debug("fetched", "op", op, "status", res.StatusCode, "elapsed", time.Since(start))

	if res.StatusCode < 200 || res.StatusCode > 299 {
		io.Copy(io.Discard, io.LimitReader(res.Body, 4096))
		return errs.New(errs.NetworkFailure, op, "unexpected status "+res.Status)
	}

	body, err := io.ReadAll(io.LimitReader(res.Body, maxBody))
	if err != nil {
		return errs.Wrap(err, errs.NetworkFailure, op, "reading body")
	}
	if err := json.Unmarshal(body, dst); err != nil {
		return errs.Wrap(err, errs.MalformedResponse, op, "undecodable body")
	}
	return nil
}
