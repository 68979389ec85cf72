// Package export writes particle frames as standalone images.
package export

import (
	"fmt"
	"io"
	"strings"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/san-kum/vfparticles/internal/field"
)

// Frame is a host-side copy of the particle buffer plus what is needed to
// place and shade it.
type Frame struct {
	Particles []field.Particle
	Lifetime  float32
	Extents   mgl32.Vec3
}

// padding around the spawn box, as a fraction of each extent.
const padding = 0.5

// FrameToSVG draws the x/y projection of the frame, one circle per particle,
// fading with age. Particles outside the padded spawn box are dropped.
func FrameToSVG(f Frame, width, height int) string {
	var sb strings.Builder
	WriteSVG(&sb, f, width, height)
	return sb.String()
}

// WriteSVG streams FrameToSVG output to w.
func WriteSVG(w io.Writer, f Frame, width, height int) error {
	hw := f.Extents.X() * (1 + padding)
	hh := f.Extents.Y() * (1 + padding)
	if hw <= 0 {
		hw = 1
	}
	if hh <= 0 {
		hh = 1
	}

	if _, err := fmt.Fprintf(w, `<?xml version="1.0" encoding="UTF-8"?>
<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" viewBox="0 0 %d %d">
<rect width="100%%" height="100%%" fill="#0a0a0a"/>
<g fill="#9fe8ff">
`, width, height, width, height); err != nil {
		return err
	}

	for i := range f.Particles {
		p := &f.Particles[i]
		if mgl32.Abs(p.Position.X()) > hw || mgl32.Abs(p.Position.Y()) > hh {
			continue
		}
		x := (p.Position.X()/hw + 1) * 0.5 * float32(width)
		y := (1 - p.Position.Y()/hh) * 0.5 * float32(height)
		if _, err := fmt.Fprintf(w, `<circle cx="%.1f" cy="%.1f" r="0.8" fill-opacity="%.2f"/>
`, x, y, opacity(p.Life, f.Lifetime)); err != nil {
			return err
		}
	}

	_, err := io.WriteString(w, "</g>\n</svg>")
	return err
}

func opacity(life, lifetime float32) float32 {
	if lifetime <= 0 {
		return 1
	}
	return 0.15 + 0.85*(1-mgl32.Clamp(life/lifetime, 0, 1))
}
