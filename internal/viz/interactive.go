package viz

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/san-kum/marblesim/internal/config"
	"github.com/san-kum/marblesim/internal/experiment"
)

var presetInfo = map[string]string{
	"marble": "default cloud, G=40",
	"worker": "stronger pull, G=80",
	"legacy": "100 stiff, heavily damped marbles",
	"swarm":  "1024 small marbles",
}

const (
	stateMenu = iota
	stateConfig
	stateSim
)

// field is one editable config value on the config screen.
type field struct {
	name string
	get  func(*config.Config) float64
	set  func(*config.Config, float64)
}

var fields = []field{
	{"bodies", func(c *config.Config) float64 { return float64(c.Bodies) }, func(c *config.Config, v float64) { c.Bodies = int(v) }},
	{"seed", func(c *config.Config) float64 { return float64(c.Seed) }, func(c *config.Config, v float64) { c.Seed = int64(v) }},
	{"gravity", func(c *config.Config) float64 { return c.Physics.Gravity }, func(c *config.Config, v float64) { c.Physics.Gravity = v }},
	{"damping", func(c *config.Config) float64 { return c.Physics.Damping }, func(c *config.Config, v float64) { c.Physics.Damping = v }},
	{"stiffness", func(c *config.Config) float64 { return c.Physics.Stiffness }, func(c *config.Config, v float64) { c.Physics.Stiffness = v }},
	{"dt_ms", func(c *config.Config) float64 { return float64(c.Dt) / float64(time.Millisecond) }, func(c *config.Config, v float64) { c.Dt = time.Duration(v * float64(time.Millisecond)) }},
}

// Picker chooses a preset, lets a few values be tuned, then hands over to
// the live Model.
type Picker struct {
	ctx    context.Context
	logger *log.Logger

	state, cursor int
	presets       []string
	cfg           *config.Config
	fieldCursor   int
	editing       bool
	editBuf       string
	err           error
	size          *tea.WindowSizeMsg

	exp  *experiment.Experiment
	live *Model
}

func NewPicker(ctx context.Context, logger *log.Logger) *Picker {
	return &Picker{ctx: ctx, logger: logger, presets: config.ListPresets()}
}

func (m *Picker) Init() tea.Cmd { return nil }

func (m *Picker) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if m.state == stateSim {
		_, cmd := m.live.Update(msg)
		return m, cmd
	}
	if size, ok := msg.(tea.WindowSizeMsg); ok {
		m.size = &size
	}
	if key, ok := msg.(tea.KeyMsg); ok {
		switch m.state {
		case stateMenu:
			return m, m.menuKey(key)
		case stateConfig:
			return m, m.configKey(key)
		}
	}
	return m, nil
}

func (m *Picker) menuKey(msg tea.KeyMsg) tea.Cmd {
	switch msg.String() {
	case "q", "ctrl+c":
		return tea.Quit
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
	case "down", "j":
		if m.cursor < len(m.presets)-1 {
			m.cursor++
		}
	case "enter", " ":
		m.cfg = config.GetPreset(m.presets[m.cursor])
		m.state, m.fieldCursor, m.err = stateConfig, 0, nil
	}
	return nil
}

func (m *Picker) configKey(msg tea.KeyMsg) tea.Cmd {
	f := fields[m.fieldCursor]
	if m.editing {
		switch msg.String() {
		case "enter":
			if v, err := strconv.ParseFloat(m.editBuf, 64); err == nil {
				f.set(m.cfg, v)
			}
			m.editing, m.editBuf = false, ""
		case "esc":
			m.editing, m.editBuf = false, ""
		case "backspace":
			if len(m.editBuf) > 0 {
				m.editBuf = m.editBuf[:len(m.editBuf)-1]
			}
		default:
			if s := msg.String(); len(s) == 1 && strings.ContainsAny(s, "0123456789.-e") {
				m.editBuf += s
			}
		}
		return nil
	}

	switch msg.String() {
	case "q", "esc":
		m.state = stateMenu
	case "up", "k":
		if m.fieldCursor > 0 {
			m.fieldCursor--
		}
	case "down", "j":
		if m.fieldCursor < len(fields)-1 {
			m.fieldCursor++
		}
	case "enter", " ":
		m.editing, m.editBuf = true, strconv.FormatFloat(f.get(m.cfg), 'g', -1, 64)
	case "s":
		return m.start()
	}
	return nil
}

func (m *Picker) start() tea.Cmd {
	if err := m.cfg.Validate(); err != nil {
		m.err = err
		return nil
	}
	now := time.Now()
	exp := experiment.New(m.cfg, m.logger)
	if err := exp.Setup(m.ctx, now); err != nil {
		exp.Close()
		m.err = err
		return nil
	}
	m.exp = exp
	m.live = NewModel(exp, now, m.logger)
	if m.size != nil {
		m.live.Update(*m.size)
	}
	m.state = stateSim
	return m.live.Init()
}

// Close stops the experiment started from the picker, if any.
func (m *Picker) Close() {
	if m.exp != nil {
		m.exp.Close()
	}
}

func (m *Picker) View() string {
	switch m.state {
	case stateMenu:
		return m.viewMenu()
	case stateConfig:
		return m.viewConfig()
	case stateSim:
		return m.live.View()
	}
	return ""
}

var (
	pickTitle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#00cccc")).Bold(true)
	pickSub    = lipgloss.NewStyle().Foreground(lipgloss.Color("#666688"))
	pickArrow  = lipgloss.NewStyle().Foreground(lipgloss.Color("#00ffff")).Bold(true)
	pickActive = lipgloss.NewStyle().Foreground(lipgloss.Color("#ffffff")).Bold(true)
	pickDesc   = lipgloss.NewStyle().Foreground(lipgloss.Color("#ff88ff"))
	pickIdle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#555566"))
	pickKey    = lipgloss.NewStyle().Foreground(lipgloss.Color("#00aaaa")).Bold(true)
	pickErr    = lipgloss.NewStyle().Foreground(lipgloss.Color("#ff4444"))
)

func hints(pairs ...string) string {
	var b strings.Builder
	for i := 0; i+1 < len(pairs); i += 2 {
		b.WriteString(pickKey.Render(pairs[i]) + pickIdle.Render(" "+pairs[i+1]+"  "))
	}
	return b.String()
}

func (m *Picker) viewMenu() string {
	var b strings.Builder
	b.WriteString("\n\n    " + pickTitle.Render("MARBLESIM") + "\n    " + pickSub.Render("self-gravitating marbles") + "\n    " + pickSub.Render("─────────────────────────") + "\n\n")
	for i, name := range m.presets {
		if i == m.cursor {
			b.WriteString(fmt.Sprintf("    %s %s  %s\n", pickArrow.Render("▸"), pickActive.Render(fmt.Sprintf("%-10s", name)), pickDesc.Render(presetInfo[name])))
		} else {
			b.WriteString(fmt.Sprintf("      %s  %s\n", pickIdle.Render(fmt.Sprintf("%-10s", name)), pickIdle.Render(presetInfo[name])))
		}
	}
	b.WriteString("\n    " + hints("j/k", "navigate", "enter", "select", "q", "quit") + "\n")
	return b.String()
}

func (m *Picker) viewConfig() string {
	var b strings.Builder
	name := m.presets[m.cursor]
	b.WriteString("\n\n    " + pickTitle.Render(strings.ToUpper(name)) + "\n    " + pickSub.Render(presetInfo[name]) + "\n    " + pickSub.Render("─────────────────────────") + "\n\n")
	for i, f := range fields {
		val := fmt.Sprintf("%10.4g", f.get(m.cfg))
		if m.editing && i == m.fieldCursor {
			val = fmt.Sprintf("%10s", m.editBuf+"_")
		}
		if i == m.fieldCursor {
			b.WriteString(fmt.Sprintf("    %s %s %s\n", pickArrow.Render("▸"), pickActive.Render(fmt.Sprintf("%-10s", f.name)), pickDesc.Render(val)))
		} else {
			b.WriteString(fmt.Sprintf("      %s %s\n", pickIdle.Render(fmt.Sprintf("%-10s", f.name)), pickIdle.Render(val)))
		}
	}
	if m.err != nil {
		b.WriteString("\n    " + pickErr.Render(m.err.Error()) + "\n")
	}
	b.WriteString("\n    " + hints("j/k", "select", "enter", "edit", "s", "start", "esc", "back") + "\n")
	return b.String()
}

// Run starts the viewer. A nil exp opens the preset picker first.
func Run(ctx context.Context, exp *experiment.Experiment, start time.Time, logger *log.Logger) error {
	if exp != nil {
		_, err := tea.NewProgram(NewModel(exp, start, logger), tea.WithAltScreen(), tea.WithContext(ctx)).Run()
		return err
	}
	picker := NewPicker(ctx, logger)
	defer picker.Close()
	_, err := tea.NewProgram(picker, tea.WithAltScreen(), tea.WithContext(ctx)).Run()
	return err
}
