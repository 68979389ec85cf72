package tui

import "github.com/go-gl/mathgl/mgl32"

// margin leaves room around the spawn box for particles pushed outward.
const margin = 1.5

// Viewport maps the simulation's x/y plane onto canvas dots, looking down the
// z axis. The spawn box is centered and its aspect ratio kept.
type Viewport struct {
	HalfWidth, HalfHeight float32
	SubW, SubH            int
}

func NewViewport(extents mgl32.Vec3, subW, subH int) Viewport {
	hw := extents.X() * margin
	hh := extents.Y() * margin
	if hw <= 0 {
		hw = 1
	}
	if hh <= 0 {
		hh = 1
	}
	// Terminal dots are roughly square; widen one axis to keep proportions.
	if aspect := float32(subW) / float32(subH); hw/hh < aspect {
		hw = hh * aspect
	} else {
		hh = hw / aspect
	}
	return Viewport{HalfWidth: hw, HalfHeight: hh, SubW: subW, SubH: subH}
}

// ToCanvas returns the dot coordinates of p. Points outside the view map
// outside the canvas and are clipped by Canvas.Set.
func (v Viewport) ToCanvas(p mgl32.Vec3) (int, int) {
	x := (p.X()/v.HalfWidth + 1) * 0.5 * float32(v.SubW)
	y := (1 - p.Y()/v.HalfHeight) * 0.5 * float32(v.SubH)
	return int(x), int(y)
}

// PointerAt projects the terminal cell (col, row) onto the z=0 plane. The
// center of the cell is used.
func (v Viewport) PointerAt(col, row int) mgl32.Vec3 {
	sx := (float32(col)*2 + 1) / float32(v.SubW)
	sy := (float32(row)*4 + 2) / float32(v.SubH)
	return mgl32.Vec3{
		(sx*2 - 1) * v.HalfWidth,
		(1 - sy*2) * v.HalfHeight,
		0,
	}
}
