package tui

import (
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/san-kum/vfparticles/internal/compute"
	"github.com/san-kum/vfparticles/internal/config"
	"github.com/san-kum/vfparticles/internal/sim"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCanvasSetKeepsBrightestShade(t *testing.T) {
	c := NewCanvas(2, 1)
	c.Set(0, 0, 0.2)
	c.Set(1, 3, 0.7)
	c.Set(0, 1, 0.1)
	c.Set(-1, 0, 1)
	c.Set(4, 0, 1)

	assert.Equal(t, rune(blank|0x1|0x2|0x80), c.Grid[0][0])
	assert.Equal(t, rune(blank), c.Grid[0][1])
	assert.InDelta(t, 0.7, c.Shade[0][0], 1e-6)

	c.Clear()
	assert.Equal(t, string([]rune{blank, blank})+"\n", c.String())
}

func TestShadeIndex(t *testing.T) {
	assert.Equal(t, 0, shadeIndex(-0.5, 4))
	assert.Equal(t, 0, shadeIndex(0, 4))
	assert.Equal(t, 2, shadeIndex(0.6, 4))
	assert.Equal(t, 3, shadeIndex(1, 4))
}

func TestViewportPointerRoundTrip(t *testing.T) {
	v := NewViewport(mgl32.Vec3{8, 4.5, 1}, 160, 80)

	x, y := v.ToCanvas(mgl32.Vec3{})
	assert.Equal(t, 80, x)
	assert.Equal(t, 40, y)

	p := v.PointerAt(40, 10)
	assert.Zero(t, p.Z())
	px, py := v.ToCanvas(p)
	assert.Equal(t, 40, px/2)
	assert.Equal(t, 10, py/4)

	// Upper left cell maps to negative x, positive y.
	corner := v.PointerAt(0, 0)
	assert.Negative(t, corner.X())
	assert.Positive(t, corner.Y())
}

func newTestModel(t *testing.T) (*Model, *sim.Simulation) {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.ParticleCount = 500
	cfg.ThreadsPerGroup = 64
	cfg.Seed = 7
	s, err := sim.Start(cfg, compute.NewCPUDevice(compute.Options{ThreadsPerGroup: 64}))
	require.NoError(t, err)
	t.Cleanup(s.Shutdown)
	return NewModel(s), s
}

func TestModelTicksAndPauses(t *testing.T) {
	m, s := newTestModel(t)

	now := time.Now()
	m.Update(tickMsg(now))
	m.Update(tickMsg(now.Add(frameInterval)))
	assert.Equal(t, uint64(2), s.Frame())
	assert.NoError(t, m.err)

	m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{' '}})
	assert.True(t, m.paused)
	m.Update(tickMsg(now.Add(2 * frameInterval)))
	assert.Equal(t, uint64(2), s.Frame())

	view := m.View()
	assert.Contains(t, view, "spiral")
	assert.Contains(t, view, "paused")
}

func TestModelMouseDrivesPointer(t *testing.T) {
	m, _ := newTestModel(t)

	m.Update(tea.MouseMsg{X: canvasLeft + 5, Y: canvasTop + 2, Action: tea.MouseActionPress, Button: tea.MouseButtonLeft})
	assert.True(t, m.pressed)
	assert.Equal(t, m.view.PointerAt(5, 2), m.pointer)

	m.Update(tea.MouseMsg{X: canvasLeft + 6, Y: canvasTop + 2, Action: tea.MouseActionRelease, Button: tea.MouseButtonLeft})
	assert.False(t, m.pressed)
}

func TestModelSpeedKeys(t *testing.T) {
	m, _ := newTestModel(t)
	m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'+'}})
	assert.Equal(t, float32(2), m.speed)
	m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'-'}})
	m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'-'}})
	assert.Equal(t, float32(0.5), m.speed)
	m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'0'}})
	assert.Equal(t, float32(1), m.speed)

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'q'}})
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
}
