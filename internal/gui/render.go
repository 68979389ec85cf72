package gui

import (
	rl "github.com/gen2brain/raylib-go/raylib"
	"github.com/go-gl/mathgl/mgl32"
)

func (a *App) drawParticles() {
	lifetime := a.Sim.Lifetime()
	for i := range a.Particles {
		p := &a.Particles[i]
		rl.DrawPoint3D(toRL(p.Position), LifeColor(p.Life, lifetime))
	}
}

// drawSpawnBox outlines the volume particles respawn in.
func (a *App) drawSpawnBox() {
	ext := a.Sim.Extents()
	rl.DrawCubeWires(rl.NewVector3(0, 0, 0), ext.X()*2, ext.Y()*2, ext.Z()*2, ColBox)
}

// LifeColor fades a particle from white at spawn to a dim blue near the end of
// its lifetime.
func LifeColor(life, lifetime float32) rl.Color {
	t := float32(0)
	if lifetime > 0 {
		t = mgl32.Clamp(life/lifetime, 0, 1)
	}
	r := uint8(mgl32.Round(255*(1-t)+40*t, 0))
	g := uint8(mgl32.Round(255*(1-t)+90*t, 0))
	b := uint8(255)
	alpha := uint8(mgl32.Round(255*(1-t)+60*t, 0))
	return rl.NewColor(r, g, b, alpha)
}

// ProjectToPlane intersects the ray origin+t*dir (t > 0) with the plane z = planeZ.
func ProjectToPlane(origin, dir mgl32.Vec3, planeZ float32) (mgl32.Vec3, bool) {
	if mgl32.Abs(dir.Z()) < mgl32.Epsilon {
		return mgl32.Vec3{}, false
	}
	t := (planeZ - origin.Z()) / dir.Z()
	if t <= 0 {
		return mgl32.Vec3{}, false
	}
	hit := origin.Add(dir.Mul(t))
	hit[2] = planeZ
	return hit, true
}

func toRL(v mgl32.Vec3) rl.Vector3 {
	return rl.NewVector3(v.X(), v.Y(), v.Z())
}
