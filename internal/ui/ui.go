// Package ui is the terminal surface: a Bubble Tea program that drives a
// dashboard.Controller from its Update loop and draws each frame with
// braille charts.
package ui

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	zone "github.com/lrstanley/bubblezone"

	"github.com/Dicklesworthstone/teledash/internal/chart"
	"github.com/Dicklesworthstone/teledash/internal/conn"
	"github.com/Dicklesworthstone/teledash/internal/dashboard"
	"github.com/Dicklesworthstone/teledash/internal/logging"
	"github.com/Dicklesworthstone/teledash/internal/model"
)

// Options configures the terminal surface.
type Options struct {
	PollInterval time.Duration // dashboard.DefaultPollInterval when <= 0
	Location     *time.Location
	Logger       *slog.Logger
}

// Model renders controller frames. Update is the timeline: every session
// mutation happens there, fetches run as tea.Cmds.
type Model struct {
	ctl    *dashboard.Controller
	ctx    context.Context
	cancel context.CancelFunc
	poll   time.Duration
	loc    *time.Location
	log    *slog.Logger

	keys  keyMap
	help  help.Model
	zones *zone.Manager

	frame      chart.Frame
	connection conn.State
	now        time.Time
	width      int
	height     int
}

func New(ctl *dashboard.Controller, opts Options) *Model {
	if opts.PollInterval <= 0 {
		opts.PollInterval = dashboard.DefaultPollInterval
	}
	if opts.Location == nil {
		opts.Location = time.Local
	}
	ctx, cancel := context.WithCancel(context.Background())
	m := &Model{
		ctl:    ctl,
		ctx:    ctx,
		cancel: cancel,
		poll:   opts.PollInterval,
		loc:    opts.Location,
		log:    logging.OrDiscard(opts.Logger).With("component", "tui"),
		keys:   keys,
		help:   help.New(),
		zones:  zone.New(),
		width:  120,
		height: 40,
		now:    time.Now(),
	}
	m.Apply(ctl.Frame())
	m.SetConnection(ctl.Connection())
	return m
}

// Apply implements dashboard.Surface.
func (m *Model) Apply(frame chart.Frame) {
	m.frame = frame
}

// SetConnection implements dashboard.Surface.
func (m *Model) SetConnection(state conn.State) { m.connection = state }

// Messages
type (
	resultMsg dashboard.Result
	pollMsg   time.Time
)

func (m *Model) tick() tea.Cmd {
	return tea.Tick(m.poll, func(t time.Time) tea.Msg { return pollMsg(t) })
}

// run turns a fetch into a command; nil stays nil.
func (m *Model) run(f dashboard.Fetch) tea.Cmd {
	if f == nil {
		return nil
	}
	ctx := m.ctx
	return func() tea.Msg { return resultMsg(f(ctx)) }
}

func (m *Model) runAll(fs []dashboard.Fetch) tea.Cmd {
	cmds := make([]tea.Cmd, 0, len(fs))
	for _, f := range fs {
		cmds = append(cmds, m.run(f))
	}
	return tea.Batch(cmds...)
}

func (m *Model) Init() tea.Cmd {
	return tea.Batch(m.run(m.ctl.Start()), m.tick())
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.help.Width = msg.Width

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Quit):
			m.cancel()
			return m, tea.Quit
		case key.Matches(msg, m.keys.Help):
			m.help.ShowAll = !m.help.ShowAll
		case key.Matches(msg, m.keys.Range):
			idx := int(msg.String()[0] - '1')
			if idx >= 0 && idx < len(chart.Ranges) {
				return m, m.selectRange(chart.Ranges[idx])
			}
		case key.Matches(msg, m.keys.NextRange):
			return m, m.shiftRange(1)
		case key.Matches(msg, m.keys.PrevRange):
			return m, m.shiftRange(-1)
		}

	case tea.MouseMsg:
		if msg.Action != tea.MouseActionRelease || msg.Button != tea.MouseButtonLeft {
			return m, nil
		}
		for i, secs := range chart.Ranges {
			if m.zones.Get(rangeZone(i)).InBounds(msg) {
				return m, m.selectRange(secs)
			}
		}

	case resultMsg:
		step := m.ctl.Handle(dashboard.Result(msg))
		if step.Render || step.ConnectionChanged {
			m.Apply(m.ctl.Frame())
		}
		if step.ConnectionChanged {
			m.SetConnection(m.ctl.Connection())
		}
		return m, m.runAll(step.Next)

	case pollMsg:
		m.now = time.Time(msg)
		return m, tea.Batch(m.run(m.ctl.Poll()), m.tick())
	}
	return m, nil
}

// selectRange switches the window. The previous series stays on screen
// until the forced reload answers.
func (m *Model) selectRange(seconds int) tea.Cmd {
	if seconds == m.ctl.Session().RangeSeconds {
		return nil
	}
	f := m.ctl.SetRange(seconds)
	m.Apply(m.ctl.Frame())
	return m.run(f)
}

func (m *Model) shiftRange(delta int) tea.Cmd {
	cur := m.ctl.Session().RangeSeconds
	idx := chart.RangeIndex(cur)
	if idx < 0 {
		// Off-menu range: step to the nearest preset in that direction.
		idx = len(chart.Ranges)
		for i, r := range chart.Ranges {
			if r > cur {
				idx = i
				break
			}
		}
		if delta > 0 {
			delta--
		}
	}
	idx = max(0, min(len(chart.Ranges)-1, idx+delta))
	return m.selectRange(chart.Ranges[idx])
}

func rangeZone(i int) string { return fmt.Sprintf("range-%d", i) }

// Styles
var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("45"))
	subtleStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("244"))
	labelStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("81")).Bold(true)
	liveStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("16")).Background(lipgloss.Color("78")).Padding(0, 1)
	offStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("231")).Background(lipgloss.Color("160")).Padding(0, 1)
	rangeStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("250")).Padding(0, 1)
	activeRange = rangeStyle.Bold(true).Foreground(lipgloss.Color("16")).Background(lipgloss.Color("45"))
	gaugeFill   = "█"
	gaugeEmpty  = "░"
	cardStyle   = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("60")).
			Padding(0, 1).
			MarginRight(1)

	seriesColors = map[string]lipgloss.Color{
		"cpu": lipgloss.Color("45"),
		"mem": lipgloss.Color("141"),
		"gpu": lipgloss.Color("78"),
	}
	inkStyles = map[string]lipgloss.Style{
		inkGrid:  lipgloss.NewStyle().Foreground(lipgloss.Color("237")),
		inkAxis:  lipgloss.NewStyle().Foreground(lipgloss.Color("242")),
		inkLabel: subtleStyle,
	}
)

func inkStyle(ink string) lipgloss.Style {
	if s, ok := inkStyles[ink]; ok {
		return s
	}
	if c, ok := seriesColors[strings.TrimPrefix(ink, "series:")]; ok {
		return lipgloss.NewStyle().Foreground(c)
	}
	return lipgloss.NewStyle()
}

// Fixed rows around the two main charts: header, range bar, readout cards,
// sparkline cards, chart card chrome, meta and help.
const chromeRows = 1 + 1 + 5 + 5 + 2*3 + 1 + 1

func (m *Model) View() string {
	f := m.frame
	r := f.Readouts

	header := titleStyle.Render("teledash") + "  " +
		subtleStyle.Render(m.now.In(m.loc).Format("Mon Jan 2 15:04:05 MST 2006")) + "  " +
		badge(m.connection)

	// Card width excludes border and margin; inner excludes padding.
	cardW := max(20, m.width/3-3)
	inner := cardW - 2
	latest := m.ctl.Session().Latest
	var smp model.Sample
	if latest != nil {
		smp = *latest
	}
	gpuTitle := "GPU"
	if r.GPUName != "" {
		gpuTitle += " " + truncate(r.GPUName, inner-4)
	}
	readouts := lipgloss.JoinHorizontal(lipgloss.Top,
		card("CPU", cardW, gaugeBar(smp.Value(model.CPUUsage), r.CPU, inner-10)+"\n"+subtleStyle.Render("temp "+r.CPUTemp)),
		card("Memory", cardW, gaugeBar(smp.Value(model.MemPercent), r.Mem, inner-10)+"\n"+subtleStyle.Render(r.MemDetail)),
		card(gpuTitle, cardW, gaugeBar(smp.Value(model.GPUUsage), r.GPU, inner-10)+"\n"+subtleStyle.Render("temp "+r.GPUTemp)),
	)

	sparks := lipgloss.JoinHorizontal(lipgloss.Top,
		card("cpu", cardW, m.scene(chart.RegionSparkCPU, inner, 2)),
		card("mem", cardW, m.scene(chart.RegionSparkMem, inner, 2)),
		card("gpu", cardW, m.scene(chart.RegionSparkGPU, inner, 2)),
	)

	chartW := max(30, m.width-3)
	rows := max(4, (m.height-chromeRows)/2)
	usage := card("Usage %  "+legend("cpu", "mem", "gpu"), chartW, m.scene(chart.RegionUsage, chartW-2, rows))
	temp := card("Temperature °C  "+legend("cpu", "gpu"), chartW, m.scene(chart.RegionTemp, chartW-2, rows))

	view := lipgloss.JoinVertical(lipgloss.Left,
		header,
		m.rangeBar(),
		readouts,
		sparks,
		usage,
		temp,
		subtleStyle.Render(f.Meta),
		m.help.View(m.keys),
	)
	return m.zones.Scan(view)
}

func (m *Model) scene(region chart.Region, cols, rows int) string {
	s, ok := m.frame.Charts[region]
	if !ok {
		return strings.TrimRight(strings.Repeat(strings.Repeat(" ", max(1, cols))+"\n", rows), "\n")
	}
	return rasterize(s, max(1, cols), rows).render(inkStyle)
}

func (m *Model) rangeBar() string {
	cur := m.ctl.Session().RangeSeconds
	parts := make([]string, 0, len(chart.Ranges)+1)
	parts = append(parts, subtleStyle.Render("range"))
	for i, secs := range chart.Ranges {
		style := rangeStyle
		if secs == cur {
			style = activeRange
		}
		parts = append(parts, m.zones.Mark(rangeZone(i), style.Render(fmt.Sprintf("%d %s", i+1, chart.RangeLabel(secs)))))
	}
	if chart.RangeIndex(cur) < 0 {
		parts = append(parts, activeRange.Render(chart.RangeLabel(cur)))
	}
	return strings.Join(parts, " ")
}

// Helpers
func badge(s conn.State) string {
	if s == conn.Live {
		return liveStyle.Render("LIVE")
	}
	return offStyle.Render("OFFLINE")
}

func legend(names ...string) string {
	parts := make([]string, len(names))
	for i, n := range names {
		parts[i] = lipgloss.NewStyle().Foreground(seriesColors[n]).Render("■ " + n)
	}
	return strings.Join(parts, " ")
}

// gaugeBar draws pct as a bar followed by its formatted readout. A missing
// reading draws an empty bar.
func gaugeBar(pct float64, label string, width int) string {
	width = max(1, width)
	filled := 0
	if !math.IsNaN(pct) {
		pct = max(0, min(100, pct))
		filled = min(width, int((pct/100)*float64(width)))
	}
	return fmt.Sprintf("[%s%s] %s",
		strings.Repeat(gaugeFill, filled),
		strings.Repeat(gaugeEmpty, width-filled),
		label)
}

func card(title string, width int, body string) string {
	return cardStyle.Width(width).Render(labelStyle.Render(title) + "\n" + body)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if n <= 0 || len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}

// RunTUI runs the program until the user quits.
func RunTUI(ctl *dashboard.Controller, opts Options) error {
	m := New(ctl, opts)
	defer m.zones.Close()
	defer m.cancel()
	prog := tea.NewProgram(m, tea.WithAltScreen(), tea.WithMouseCellMotion())
	_, err := prog.Run()
	if err != nil {
		m.log.Error("tui exited", "error", err)
	}
	return err
}
