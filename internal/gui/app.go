// Package gui shows a running simulation in a raylib window. The left mouse
// button repels particles from the point under the cursor on the z=0 plane.
package gui

import (
	"fmt"

	rl "github.com/gen2brain/raylib-go/raylib"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/san-kum/vfparticles/internal/field"
	"github.com/san-kum/vfparticles/internal/sim"
)

var (
	ColBg      = rl.NewColor(10, 10, 10, 255)
	ColAccent  = rl.NewColor(180, 180, 180, 255)
	ColSelect  = rl.NewColor(255, 255, 255, 255)
	ColText    = rl.NewColor(140, 140, 140, 255)
	ColTextDim = rl.NewColor(60, 60, 60, 255)
	ColBox     = rl.NewColor(70, 70, 90, 255)
)

const (
	screenWidth  = 1280
	screenHeight = 720

	maxFrameTimes = 200
)

type App struct {
	Sim       *sim.Simulation
	Particles []field.Particle
	Camera    rl.Camera3D
	Running   bool
	Speed     float32
	Font      rl.Font
	ShowBox   bool

	pointer       mgl32.Vec3
	pointerActive bool
	frameTimes    []float32
	readback      *sim.Readback
	err           error
}

func initWindow() {
	rl.InitWindow(screenWidth, screenHeight, "vfparticles")
	rl.SetTargetFPS(60)
	rl.SetExitKey(0)
}

func NewApp(s *sim.Simulation) *App {
	ext := s.Extents()
	// Back off far enough to see the spawn box with some margin at a 45 degree fov.
	dist := ext.X() * 2.6
	if dist < 10 {
		dist = 10
	}
	return &App{
		Sim:       s,
		Particles: make([]field.Particle, s.Count()),
		Camera: rl.NewCamera3D(
			rl.NewVector3(0, 0, dist),
			rl.NewVector3(0, 0, 0),
			rl.NewVector3(0, 1, 0),
			45.0,
			rl.CameraPerspective,
		),
		Running:    true,
		Speed:      1,
		Font:       rl.GetFontDefault(),
		ShowBox:    true,
		frameTimes: make([]float32, 0, maxFrameTimes+1),
		readback:   s.NewReadback(),
	}
}

// Run opens the window, then calls open to start the simulation so that a gl
// device finds the window's context current. It blocks until the window is
// closed. done runs before the window and its context go away.
func Run(open func() (s *sim.Simulation, done func(), err error)) error {
	initWindow()
	defer rl.CloseWindow()

	s, done, err := open()
	if err != nil {
		return err
	}
	defer done()

	app := NewApp(s)
	app.RunLoop()
	return app.err
}

func (a *App) RunLoop() {
	for !rl.WindowShouldClose() {
		if rl.IsKeyPressed(rl.KeyQ) {
			return
		}
		a.Update()
		a.Draw()
	}
}

func (a *App) Update() {
	dt := rl.GetFrameTime()

	a.updatePointer()
	a.updateCamera()

	if rl.IsKeyPressed(rl.KeySpace) {
		a.Running = !a.Running
	}
	if rl.IsKeyPressed(rl.KeyB) {
		a.ShowBox = !a.ShowBox
	}
	if rl.IsKeyPressed(rl.KeyEqual) {
		a.Speed = min(a.Speed*2, 8)
	}
	if rl.IsKeyPressed(rl.KeyMinus) {
		a.Speed = max(a.Speed/2, 0.125)
	}

	if a.Running {
		a.Sim.Tick(dt*a.Speed, a.pointerActive, a.pointer)
	}
	if a.readback.Due(a.Sim.Frame()) {
		if _, err := a.Sim.Snapshot(a.Particles); err != nil {
			a.err = err
		}
	}

	a.frameTimes = append(a.frameTimes, dt*1000)
	if len(a.frameTimes) > maxFrameTimes {
		a.frameTimes = a.frameTimes[1:]
	}
}

// updatePointer casts the mouse ray onto the z=0 plane.
func (a *App) updatePointer() {
	ray := rl.GetMouseRay(rl.GetMousePosition(), a.Camera)
	origin := mgl32.Vec3{ray.Position.X, ray.Position.Y, ray.Position.Z}
	dir := mgl32.Vec3{ray.Direction.X, ray.Direction.Y, ray.Direction.Z}

	hit, ok := ProjectToPlane(origin, dir, 0)
	a.pointerActive = ok && rl.IsMouseButtonDown(rl.MouseLeftButton)
	if ok {
		a.pointer = hit
	}
}

func (a *App) updateCamera() {
	if rl.IsMouseButtonDown(rl.MouseRightButton) {
		delta := rl.GetMouseDelta()
		a.Camera.Position.X -= delta.X * 0.05
		a.Camera.Position.Y += delta.Y * 0.05
		a.Camera.Target.X -= delta.X * 0.05
		a.Camera.Target.Y += delta.Y * 0.05
	}

	if wheel := rl.GetMouseWheelMove(); wheel != 0 {
		diff := rl.Vector3Subtract(a.Camera.Target, a.Camera.Position)
		if rl.Vector3Length(diff) > 2 || wheel < 0 {
			dir := rl.Vector3Normalize(diff)
			a.Camera.Position = rl.Vector3Add(a.Camera.Position, rl.Vector3Scale(dir, wheel))
		}
	}
}

func (a *App) Draw() {
	rl.BeginDrawing()
	rl.ClearBackground(ColBg)

	rl.BeginMode3D(a.Camera)
	a.drawParticles()
	if a.ShowBox {
		a.drawSpawnBox()
	}
	if a.pointerActive {
		pos := toRL(a.pointer)
		rl.DrawCircle3D(pos, 0.5, rl.NewVector3(0, 0, 1), 0, rl.NewColor(255, 255, 255, 100))
		rl.DrawCircle3D(pos, 1.5, rl.NewVector3(0, 0, 1), 0, rl.NewColor(255, 255, 255, 50))
	}
	rl.EndMode3D()

	a.drawHUD()
	rl.EndDrawing()
}

func (a *App) drawHUD() {
	state := a.Sim.ActiveState()
	a.drawText("vfparticles", 30, 30, 24, ColSelect)
	a.drawText(fmt.Sprintf(":: %s %v", state.Name(), state.Entries()), 200, 34, 16, ColText)

	status := "RUNNING"
	col := ColSelect
	if !a.Running {
		status = "PAUSED"
		col = ColTextDim
	}
	a.drawText(status, 1150, 30, 16, col)

	m := a.Sim.Machine()
	a.drawText(fmt.Sprintf("%d particles  frame %d  next state in %.1fs  x%.3g",
		a.Sim.Count(), a.Sim.Frame(), m.Dwell()-(m.Clock()-m.LastTransition()), a.Speed),
		30, 60, 14, ColText)

	a.drawFrameTimes()

	a.drawText("[LMB] REPEL  [RMB] PAN  [SPACE] PAUSE  [B] BOX  [+/-] SPEED  [Q] QUIT", 640, 680, 14, ColTextDim)
	a.drawText(fmt.Sprintf("%d FPS", int32(rl.GetFPS())), 30, 680, 14, ColTextDim)
	if a.err != nil {
		a.drawText(a.err.Error(), 30, 90, 14, rl.Red)
	}
}

func (a *App) drawFrameTimes() {
	if len(a.frameTimes) < 2 {
		return
	}
	rectX, rectY := 30, 600
	width, height := 400, 60

	maxVal := a.frameTimes[0]
	for _, v := range a.frameTimes {
		maxVal = max(maxVal, v)
	}
	if maxVal == 0 {
		maxVal = 1
	}

	points := make([]rl.Vector2, len(a.frameTimes))
	for i, v := range a.frameTimes {
		px := float32(rectX) + float32(i)/float32(len(a.frameTimes))*float32(width)
		py := float32(rectY+height) - v/maxVal*float32(height)
		points[i] = rl.NewVector2(px, py)
	}
	rl.DrawLineStrip(points, ColAccent)
	a.drawText(fmt.Sprintf("%.1f ms", a.frameTimes[len(a.frameTimes)-1]), rectX+width+10, rectY+height-10, 14, ColText)
}

func (a *App) drawText(text string, x, y int, size int, color rl.Color) {
	rl.DrawTextEx(a.Font, text, rl.NewVector2(float32(x), float32(y)), float32(size), 1, color)
}
