// Package server exposes the headless dashboard over HTTP: the charts as
// SVG, the readouts as JSON and a small HTML page tying them together.
package server

import (
	"context"
	"errors"
	"html/template"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Dicklesworthstone/teledash/internal/chart"
	"github.com/Dicklesworthstone/teledash/internal/dashboard"
	"github.com/Dicklesworthstone/teledash/internal/logging"
	"github.com/Dicklesworthstone/teledash/internal/svg"
)

const (
	MinRangeSeconds = 10
	MaxRangeSeconds = 30 * 86400

	rangeTimeout    = 2 * time.Second
	shutdownTimeout = 5 * time.Second
)

// Dashboard is the part of dashboard.Runner the server needs.
type Dashboard interface {
	Published() *dashboard.Published
	RequestRange(ctx context.Context, seconds int) error
}

type Server struct {
	dash    Dashboard
	log     *slog.Logger
	engine  *gin.Engine
	palette svg.Palette
	refresh time.Duration
}

// Options tunes the server. The zero value is usable.
type Options struct {
	Logger *slog.Logger
	// Refresh is the HTML page's auto-reload period.
	Refresh time.Duration
}

func New(d Dashboard, opts Options) *Server {
	if opts.Refresh <= 0 {
		opts.Refresh = 5 * time.Second
	}
	s := &Server{
		dash:    d,
		log:     logging.OrDiscard(opts.Logger).With("component", "server"),
		engine:  gin.New(),
		palette: svg.DefaultPalette,
		refresh: opts.Refresh,
	}
	s.engine.Use(gin.Recovery(), requestLogger(s.log))
	s.engine.SetHTMLTemplate(indexTemplate)
	s.routes()
	return s
}

func (s *Server) routes() {
	s.engine.GET("/", s.index)
	s.engine.GET("/healthz", s.health)
	s.engine.GET("/charts/:name", s.chart)

	api := s.engine.Group("/api")
	{
		api.GET("/readouts", s.readouts)
		api.POST("/range", s.setRange)
	}
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler { return s.engine }

// Run serves on addr until ctx is done, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{Addr: addr, Handler: s.engine, ReadHeaderTimeout: 5 * time.Second}
	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()
	s.log.Info("listening", "addr", addr)

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(sctx)
	}
}

func (s *Server) health(c *gin.Context) {
	resp := gin.H{"status": "ok", "connection": "unknown"}
	if p := s.dash.Published(); p != nil {
		resp["connection"] = p.Frame.Connection.String()
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) chart(c *gin.Context) {
	name, ok := strings.CutSuffix(c.Param("name"), ".svg")
	if !ok || !validRegion(chart.Region(name)) {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown chart " + c.Param("name")})
		return
	}
	p := s.dash.Published()
	if p == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "no frame yet"})
		return
	}
	c.Header("Cache-Control", "no-store")
	c.Data(http.StatusOK, "image/svg+xml", svg.Render(p.Frame.Charts[chart.Region(name)], name, s.palette))
}

type readoutsResponse struct {
	Readouts     chart.Readouts `json:"readouts"`
	Connection   string         `json:"connection"`
	Meta         string         `json:"meta"`
	RangeSeconds int            `json:"range_seconds"`
	Range        string         `json:"range"`
	UpdatedAt    time.Time      `json:"updated_at"`
}

func (s *Server) readouts(c *gin.Context) {
	p := s.dash.Published()
	if p == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "no frame yet"})
		return
	}
	c.Header("Cache-Control", "no-store")
	c.JSON(http.StatusOK, readoutsResponse{
		Readouts:     p.Frame.Readouts,
		Connection:   p.Frame.Connection.String(),
		Meta:         p.Frame.Meta,
		RangeSeconds: p.RangeSeconds,
		Range:        chart.RangeLabel(p.RangeSeconds),
		UpdatedAt:    p.At.UTC(),
	})
}

func (s *Server) setRange(c *gin.Context) {
	raw := c.Query("seconds")
	if raw == "" {
		raw = c.PostForm("seconds")
	}
	seconds, err := strconv.Atoi(raw)
	if err != nil || seconds < MinRangeSeconds || seconds > MaxRangeSeconds {
		c.JSON(http.StatusBadRequest, gin.H{"error": "seconds must be an integer in [10, 2592000]"})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), rangeTimeout)
	defer cancel()
	if err := s.dash.RequestRange(ctx, seconds); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "dashboard busy: " + err.Error()})
		return
	}
	s.log.Info("range requested", "seconds", seconds)

	if c.PostForm("redirect") != "" {
		c.Redirect(http.StatusSeeOther, "/")
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"range_seconds": seconds, "range": chart.RangeLabel(seconds)})
}

type rangeOption struct {
	Seconds int
	Label   string
	Active  bool
}

type indexData struct {
	Published *dashboard.Published
	Regions   []chart.Region
	Ranges    []rangeOption
	Refresh   int
	Stamp     int64
}

func (s *Server) index(c *gin.Context) {
	p := s.dash.Published()
	data := indexData{Published: p, Regions: chart.Regions, Refresh: max(1, int(s.refresh/time.Second))}
	current := 0
	if p != nil {
		current = p.RangeSeconds
		data.Stamp = p.At.UnixMilli()
	}
	for _, secs := range chart.Ranges {
		data.Ranges = append(data.Ranges, rangeOption{Seconds: secs, Label: chart.RangeLabel(secs), Active: secs == current})
	}
	c.HTML(http.StatusOK, "index", data)
}

func validRegion(r chart.Region) bool {
	for _, known := range chart.Regions {
		if r == known {
			return true
		}
	}
	return false
}

func requestLogger(log *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.Debug("request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"elapsed", time.Since(start),
		)
	}
}

var indexTemplate = template.Must(template.New("index").Parse(`<!doctype html>
<html lang="en">
<head>
<meta charset="utf-8">
<meta http-equiv="refresh" content="{{.Refresh}}">
<title>teledash</title>
<style>
body{background:#0b1020;color:#e5e7eb;font:14px ui-monospace,monospace;margin:24px}
.badge{padding:2px 8px;border-radius:4px;background:#374151}
.badge.LIVE{background:#065f46}.badge.OFFLINE{background:#7f1d1d}
.cards{display:flex;gap:12px;margin:12px 0}
.card{border:1px solid #1f2937;border-radius:6px;padding:8px 12px}
.ranges form{display:inline}
.ranges button{background:#111827;color:#e5e7eb;border:1px solid #374151;cursor:pointer}
.ranges button.active{border-color:#38bdf8}
.meta{color:#9ca3af}
</style>
</head>
<body>
{{with .Published}}
<h1>teledash <span class="badge {{.Frame.Connection}}">{{.Frame.Connection}}</span></h1>
<div class="cards">
<div class="card">CPU {{.Frame.Readouts.CPU}} · {{.Frame.Readouts.CPUTemp}}</div>
<div class="card">MEM {{.Frame.Readouts.Mem}} · {{.Frame.Readouts.MemDetail}}</div>
<div class="card">GPU {{.Frame.Readouts.GPU}} · {{.Frame.Readouts.GPUTemp}}{{with .Frame.Readouts.GPUName}} · {{.}}{{end}}</div>
</div>
{{else}}
<h1>teledash <span class="badge">starting</span></h1>
{{end}}
<div class="ranges">{{range .Ranges}}<form method="post" action="/api/range"><input type="hidden" name="seconds" value="{{.Seconds}}"><input type="hidden" name="redirect" value="1"><button{{if .Active}} class="active"{{end}}>{{.Label}}</button></form> {{end}}</div>
{{$stamp := .Stamp}}
<div>{{range .Regions}}<img src="/charts/{{.}}.svg?t={{$stamp}}" alt="{{.}}"> {{end}}</div>
{{with .Published}}<p class="meta">{{.Frame.Meta}}</p>{{end}}
</body>
</html>
`))
