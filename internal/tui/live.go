// Package tui renders a running simulation in the terminal and feeds mouse
// drags back as the repulsion pointer.
package tui

import (
	"fmt"
	"math"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/san-kum/vfparticles/internal/field"
	"github.com/san-kum/vfparticles/internal/sim"
)

var (
	cyan   = lipgloss.NewStyle().Foreground(lipgloss.Color("86"))
	white  = lipgloss.NewStyle().Foreground(lipgloss.Color("255"))
	dim    = lipgloss.NewStyle().Foreground(lipgloss.Color("242"))
	dimmer = lipgloss.NewStyle().Foreground(lipgloss.Color("238"))
	green  = lipgloss.NewStyle().Foreground(lipgloss.Color("82"))
	yellow = lipgloss.NewStyle().Foreground(lipgloss.Color("220"))
	red    = lipgloss.NewStyle().Foreground(lipgloss.Color("203"))
)

// palette runs from old particles (dim) to freshly spawned ones (bright).
var palette = []lipgloss.Style{
	lipgloss.NewStyle().Foreground(lipgloss.Color("24")),
	lipgloss.NewStyle().Foreground(lipgloss.Color("31")),
	lipgloss.NewStyle().Foreground(lipgloss.Color("38")),
	lipgloss.NewStyle().Foreground(lipgloss.Color("45")),
	lipgloss.NewStyle().Foreground(lipgloss.Color("87")),
	lipgloss.NewStyle().Foreground(lipgloss.Color("159")),
}

const frameInterval = 16 * time.Millisecond

type tickMsg time.Time

func tick() tea.Cmd {
	return tea.Tick(frameInterval, func(t time.Time) tea.Msg { return tickMsg(t) })
}

// Model is the bubbletea model of the live view. It owns no simulation state
// beyond the host-side snapshot it draws from.
type Model struct {
	sim       *sim.Simulation
	particles []field.Particle
	canvas    *Canvas
	view      Viewport

	paused    bool
	speed     float32
	pointer   mgl32.Vec3
	pressed   bool
	lastFrame time.Time
	readback  *sim.Readback
	fps       float64
	err       error

	width  int
	height int
}

func NewModel(s *sim.Simulation) *Model {
	m := &Model{
		sim:       s,
		particles: make([]field.Particle, s.Count()),
		readback:  s.NewReadback(),
		canvas:    NewCanvas(1, 1),
		speed:     1,
		width:     80,
		height:    24,
	}
	m.layout()
	return m
}

func (m *Model) Init() tea.Cmd { return tick() }

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)
	case tea.MouseMsg:
		m.handleMouse(msg)
		return m, nil
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.layout()
		return m, nil
	case tickMsg:
		m.step(time.Time(msg))
		return m, tick()
	}
	return m, nil
}

func (m *Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c", "esc":
		return m, tea.Quit
	case " ", "space", "p":
		m.paused = !m.paused
	case "+", "=":
		m.speed = float32(math.Min(float64(m.speed*2), 8))
	case "-", "_":
		m.speed = float32(math.Max(float64(m.speed/2), 0.125))
	case "0":
		m.speed = 1
	}
	return m, nil
}

// handleMouse tracks the left button: held down, the pointer repels.
func (m *Model) handleMouse(msg tea.MouseMsg) {
	col, row := msg.X-canvasLeft, msg.Y-canvasTop
	switch msg.Action {
	case tea.MouseActionPress:
		if msg.Button == tea.MouseButtonLeft {
			m.pressed = true
		}
	case tea.MouseActionRelease:
		m.pressed = false
	}
	m.pointer = m.view.PointerAt(col, row)
}

func (m *Model) step(now time.Time) {
	if !m.lastFrame.IsZero() {
		if dt := now.Sub(m.lastFrame).Seconds(); dt > 0 {
			m.fps = 1 / dt
		}
	}
	elapsed := float32(now.Sub(m.lastFrame).Seconds())
	if m.lastFrame.IsZero() {
		elapsed = float32(frameInterval.Seconds())
	}
	m.lastFrame = now

	if !m.paused {
		m.sim.Tick(elapsed*m.speed, m.pressed, m.pointer)
	}
	if m.readback.Due(m.sim.Frame()) {
		_, m.err = m.sim.Snapshot(m.particles)
	}
}

const (
	canvasLeft = 3
	canvasTop  = 3
)

func (m *Model) layout() {
	w := m.width - canvasLeft*2
	h := m.height - canvasTop - 4
	if w < 20 {
		w = 20
	}
	if h < 8 {
		h = 8
	}
	m.canvas.Resize(w, h)
	m.view = NewViewport(m.sim.Extents(), m.canvas.SubWidth(), m.canvas.SubHeight())
}

// draw plots every particle, brighter the younger it is.
func (m *Model) draw() {
	m.canvas.Clear()
	lifetime := m.sim.Lifetime()
	for i := range m.particles {
		p := &m.particles[i]
		x, y := m.view.ToCanvas(p.Position)
		m.canvas.Set(x, y, 1-p.Life/lifetime)
	}
	if m.pressed {
		x, y := m.view.ToCanvas(m.pointer)
		m.canvas.DrawLine(x-2, y, x+2, y, 1)
		m.canvas.DrawLine(x, y-2, x, y+2, 1)
	}
}

func (m *Model) View() string {
	m.draw()

	var b strings.Builder
	statusIcon := green.Render("●")
	statusText := green.Render("running")
	if m.paused {
		statusIcon = yellow.Render("○")
		statusText = yellow.Render("paused")
	}
	b.WriteString(fmt.Sprintf("\n   %s %s  %s  %s\n",
		statusIcon, cyan.Render(m.sim.ActiveState().Name()), statusText,
		dim.Render(strings.Join(m.sim.ActiveState().Entries(), " → "))))

	dwell := m.sim.Machine().Dwell()
	progress := (m.sim.Clock() - m.sim.Machine().LastTransition()) / dwell
	if progress > 1 {
		progress = 1
	}
	barWidth := 36
	filled := int(progress * float64(barWidth))
	bar := cyan.Render(strings.Repeat("━", filled)) + dimmer.Render(strings.Repeat("─", barWidth-filled))
	b.WriteString(fmt.Sprintf("   %s %s  %s\n", bar,
		dim.Render(fmt.Sprintf("%.1fs/%.0fs", m.sim.Clock()-m.sim.Machine().LastTransition(), dwell)),
		dim.Render(fmt.Sprintf("%.0ffps  x%.2g", m.fps, m.speed))))

	b.WriteString(m.canvas.Render(palette, strings.Repeat(" ", canvasLeft)))

	b.WriteString(fmt.Sprintf("   %s %s  %s %s",
		dim.Render("particles"), white.Render(fmt.Sprint(m.sim.Count())),
		dim.Render("frame"), white.Render(fmt.Sprint(m.sim.Frame()))))
	if m.err != nil {
		b.WriteString("  " + red.Render(m.err.Error()))
	}
	b.WriteString("\n" + dim.Render("   drag repel  space pause  ±speed  q quit") + "\n")
	return b.String()
}

// Run starts the live view and blocks until the user quits.
func Run(s *sim.Simulation) error {
	p := tea.NewProgram(NewModel(s), tea.WithAltScreen(), tea.WithMouseAllMotion())
	_, err := p.Run()
	return err
}
