package export

import (
	"strings"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/san-kum/vfparticles/internal/field"
	"github.com/stretchr/testify/assert"
)

func TestFrameToSVG(t *testing.T) {
	f := Frame{
		Particles: []field.Particle{
			{Position: mgl32.Vec3{0, 0, 0}, Life: 0},
			{Position: mgl32.Vec3{1, -1, 0}, Life: 5},
			{Position: mgl32.Vec3{100, 0, 0}, Life: 1},
		},
		Lifetime: 5,
		Extents:  mgl32.Vec3{2, 2, 1},
	}

	svg := FrameToSVG(f, 300, 300)
	assert.True(t, strings.HasPrefix(svg, "<?xml"))
	assert.True(t, strings.HasSuffix(svg, "</svg>"))
	assert.Equal(t, 2, strings.Count(svg, "<circle"), "out of view particle is dropped")
	assert.Contains(t, svg, `cx="150.0" cy="150.0" r="0.8" fill-opacity="1.00"`)
	assert.Contains(t, svg, `fill-opacity="0.15"`)
}

func TestOpacity(t *testing.T) {
	assert.InDelta(t, 1, opacity(0, 5), 1e-6)
	assert.InDelta(t, 0.15, opacity(10, 5), 1e-6)
	assert.InDelta(t, 1, opacity(3, 0), 1e-6)
}
