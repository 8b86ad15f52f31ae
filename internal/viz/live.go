package viz

import (
	"fmt"
	"io"
	"log"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/guptarohit/asciigraph"

	"github.com/san-kum/marblesim/internal/camera"
	"github.com/san-kum/marblesim/internal/compute"
	"github.com/san-kum/marblesim/internal/experiment"
	"github.com/san-kum/marblesim/internal/metrics"
	"github.com/san-kum/marblesim/internal/sim"
	"github.com/san-kum/marblesim/internal/spheretree"
)

const (
	panelWidth      = 36
	historyCapacity = 120
	keyHold         = 150 * time.Millisecond
	lookStep        = 50.0
)

type (
	frameMsg   time.Time
	resultMsg  compute.Result
	releaseMsg struct {
		action camera.Action
		gen    int
	}
)

var moveKeys = map[string]camera.Action{
	"w": camera.Forward,
	"s": camera.Backward,
	"d": camera.Right,
	"a": camera.Left,
	"f": camera.Down,
	"r": camera.Up,
	"]": camera.RollRight,
	"[": camera.RollLeft,
}

// Model is the live viewer. It owns the scheduler for the lifetime of the
// program; every call into it happens on the Bubble Tea update loop.
type Model struct {
	exp      *experiment.Experiment
	sched    *sim.Scheduler
	cam      *camera.Camera
	renderer *TermRenderer
	logger   *log.Logger

	frame    time.Duration
	start    time.Time
	camClock time.Time
	offset   time.Duration // wall time spent paused
	pausedAt time.Time
	paused   bool
	holds    map[camera.Action]int

	stats    *metrics.Stats
	momentum *metrics.Momentum
	history  []float64
	nodes    int
	depth    int
	render   time.Duration

	theme         Theme
	width, height int
}

// NewModel wraps an experiment that has already been set up with its clock
// at start.
func NewModel(exp *experiment.Experiment, start time.Time, logger *log.Logger) *Model {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	cols, rows := 80-panelWidth, 24
	return &Model{
		exp:      exp,
		sched:    exp.Scheduler(),
		cam:      camera.New(),
		renderer: NewTermRenderer(cols, rows),
		logger:   logger,
		frame:    exp.Config().FrameInterval(),
		start:    start,
		camClock: start,
		holds:    make(map[camera.Action]int),
		stats:    metrics.NewStats(start),
		momentum: metrics.NewMomentum(),
		history:  make([]float64, 0, historyCapacity),
		theme:    Themes[0],
		width:    80,
		height:   24,
	}
}

func (m *Model) Init() tea.Cmd {
	return tea.Batch(m.tick(), m.waitResult())
}

func (m *Model) tick() tea.Cmd {
	return tea.Tick(m.frame, func(t time.Time) tea.Msg { return frameMsg(t) })
}

func (m *Model) waitResult() tea.Cmd {
	ch := m.exp.Results()
	return func() tea.Msg {
		r, ok := <-ch
		if !ok {
			return nil
		}
		return resultMsg(r)
	}
}

// simNow maps wall time onto the physics timeline, which stands still while
// paused.
func (m *Model) simNow(now time.Time) time.Time {
	return now.Add(-m.offset)
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m, m.handleKey(msg)
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.renderer.Resize(msg.Width-panelWidth-2, msg.Height-1)
	case resultMsg:
		m.sched.HandleResult(compute.Result(msg))
		if !m.paused {
			m.sched.AdvanceTo(m.simNow(time.Now()))
		}
		return m, m.waitResult()
	case releaseMsg:
		if m.holds[msg.action] == msg.gen {
			m.cam.Set(msg.action, false)
		}
	case frameMsg:
		m.step(time.Time(msg))
		return m, m.tick()
	}
	return m, nil
}

func (m *Model) handleKey(msg tea.KeyMsg) tea.Cmd {
	key := msg.String()
	if a, ok := moveKeys[key]; ok {
		m.cam.Set(a, true)
		m.holds[a]++
		gen := m.holds[a]
		return tea.Tick(keyHold, func(time.Time) tea.Msg { return releaseMsg{action: a, gen: gen} })
	}

	switch key {
	case "q", "ctrl+c":
		return tea.Quit
	case " ":
		m.togglePause(time.Now())
	case "ctrl+s":
		m.cam.Slow = !m.cam.Slow
	case "up":
		m.cam.Look(0, -lookStep)
	case "down":
		m.cam.Look(0, lookStep)
	case "left":
		m.cam.Look(-lookStep, 0)
	case "right":
		m.cam.Look(lookStep, 0)
	case "b":
		m.renderer.ShowBounds = !m.renderer.ShowBounds
	case "t":
		m.theme = NextTheme(m.theme.Name)
	}
	return nil
}

func (m *Model) togglePause(now time.Time) {
	if m.paused {
		m.offset += now.Sub(m.pausedAt)
		m.paused = false
		m.sched.AdvanceTo(m.simNow(now))
		return
	}
	m.pausedAt = now
	m.paused = true
}

// step runs one frame: camera, physics catch-up, tree, raster.
func (m *Model) step(now time.Time) {
	m.camClock = m.camClock.Add(m.cam.Update(now.Sub(m.camClock)))
	if !m.paused {
		m.sched.AdvanceTo(m.simNow(now))
	}

	begin := time.Now()
	nodes := spheretree.Build(m.sched.Bodies(), m.cam.WorldToCamera())
	m.renderer.Render(nodes)
	m.render = time.Since(begin)
	m.nodes = len(nodes)
	m.depth = spheretree.Depth(nodes)

	m.momentum.Observe(m.sched.Bodies(), 0)
	m.history = append(m.history, m.momentum.Last())
	if len(m.history) > historyCapacity {
		m.history = m.history[1:]
	}

	if m.stats.Frame(m.render) {
		st := m.sched.Stats()
		m.stats.Physics(st.Ticks, st.PhysicsTime)
		m.logger.Print(m.stats.Line(now))
	}
}

func (m *Model) View() string {
	return lipgloss.JoinHorizontal(lipgloss.Top, m.renderer.View(), m.panel())
}

func (m *Model) panel() string {
	st := m.theme.styles()
	stats := m.sched.Stats()

	var b strings.Builder
	b.WriteString(st.header.Render("MARBLESIM") + "\n")
	switch {
	case m.paused:
		b.WriteString(st.paused.Render("PAUSED"))
	default:
		b.WriteString(st.running.Render("RUNNING"))
	}
	if m.cam.Slow {
		b.WriteString(" " + st.paused.Render("SLOW"))
	}
	b.WriteString("\n\n")

	row := func(label, value string) {
		b.WriteString(st.label.Render(label) + st.value.Render(value) + "\n")
	}
	row("Bodies", fmt.Sprintf("%d", len(m.sched.Bodies())))
	row("Sim time", fmt.Sprintf("%.2fs", m.sched.Clock().Sub(m.start).Seconds()))
	row("Ticks", fmt.Sprintf("%d", stats.Ticks))
	row("Lag", m.sched.Target().Sub(m.sched.Clock()).Round(time.Millisecond).String())
	row("Phase", m.sched.Phase().String())
	row("Tree", fmt.Sprintf("%d nodes, depth %d", m.nodes, m.depth))
	row("Drawn", fmt.Sprintf("%d/%d visited", m.renderer.Drawn(), m.renderer.Visited()))
	row("Render", m.render.Round(time.Microsecond).String())
	if stats.Anomalies > 0 {
		b.WriteString(st.label.Render("Dropped") + st.alert.Render(fmt.Sprintf("%s (%d)", stats.Dropped.Round(time.Millisecond), stats.Anomalies)) + "\n")
	}

	if len(m.history) > 1 {
		chart := asciigraph.Plot(m.history, asciigraph.Height(4), asciigraph.Width(panelWidth-12), asciigraph.Caption("|momentum|"))
		b.WriteString("\n" + st.graph.Render(chart) + "\n")
	}

	b.WriteString(st.help.Render("wasd/rf move  [ ] roll  arrows turn\nspace pause  ^s slow  b bounds\nt theme  q quit"))
	return st.panel.Render(b.String())
}
