package compute

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/san-kum/vfparticles/internal/field"
)

// Motion constants shared with the WGSL and GLSL programs in internal/shaders.
const (
	spiralSpin  = 1.5
	spiralPull  = 0.35
	eyeOffset   = 2.5
	eyeRadius   = 1.5
	eyeSpin     = 2.0
	eyePull     = 0.8
	bandWidth   = 0.75
	bandSpin    = 1.2
	depthEasing = 1.0
	minRepelLen = 1e-5
)

// KernelFunc updates one particle lane.
type KernelFunc func(p *field.Particle, prm *Params)

// cpuKernels is the host rendition of the compute program.
var cpuKernels = map[string]KernelFunc{
	EntryLifetime:        lifetimeKernel,
	EntryRepel:           repelKernel,
	EntrySpiral:          spiralKernel,
	EntryEyes:            eyesKernel,
	EntryOpticalIllusion: opticalIllusionKernel,
}

func lifetimeKernel(p *field.Particle, prm *Params) {
	p.Life += prm.DeltaTime
	if p.Life > prm.ParticleLifetime {
		p.Respawn()
	}
}

func repelKernel(p *field.Particle, prm *Params) {
	d := p.Position.Sub(prm.RepelPosition)
	dist := d.Len()
	if dist >= prm.RepelRadius || dist < minRepelLen {
		return
	}
	falloff := 1 - dist/prm.RepelRadius
	p.Position = p.Position.Add(d.Mul(prm.RepelPower * falloff * prm.DeltaTime / dist))
}

func spiralKernel(p *field.Particle, prm *Params) {
	dt := prm.DeltaTime
	xy := rotate(p.Position.Vec2(), spiralSpin*dt)
	xy = xy.Mul(1 - spiralPull*dt)
	p.Position = mgl32.Vec3{xy[0], xy[1], easeDepth(p, dt)}
}

func eyesKernel(p *field.Particle, prm *Params) {
	dt := prm.DeltaTime
	center := mgl32.Vec2{eyeOffset, 0}
	if p.InitialPosition[0] < 0 {
		center[0] = -eyeOffset
	}

	rel := rotate(p.Position.Vec2().Sub(center), eyeSpin*dt)
	if r := rel.Len(); r > 0 {
		rel = rel.Mul(1 + (eyeRadius-r)/r*eyePull*dt)
	}
	xy := center.Add(rel)
	p.Position = mgl32.Vec3{xy[0], xy[1], easeDepth(p, dt)}
}

func opticalIllusionKernel(p *field.Particle, prm *Params) {
	dt := prm.DeltaTime
	xy := p.Position.Vec2()
	band := int(xy.Len() / bandWidth)
	dir := float32(1)
	if band%2 == 1 {
		dir = -1
	}
	xy = rotate(xy, dir*bandSpin*dt)
	p.Position = mgl32.Vec3{xy[0], xy[1], easeDepth(p, dt)}
}

func rotate(v mgl32.Vec2, angle float32) mgl32.Vec2 {
	return mgl32.Rotate2D(angle).Mul2x1(v)
}

// easeDepth pulls z back toward the anchor plane.
func easeDepth(p *field.Particle, dt float32) float32 {
	t := float32(math.Min(1, float64(depthEasing*dt)))
	return p.Position[2] + (p.InitialPosition[2]-p.Position[2])*t
}
