package field

import (
	"encoding/binary"
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// Stride is the size in bytes of one particle in device memory: 4*(3+3+1).
// Shader structs must match this layout.
const Stride = 28

// Particle is one element of the particle buffer.
type Particle struct {
	Position        mgl32.Vec3
	InitialPosition mgl32.Vec3
	Life            float32
}

// Respawn puts the particle back on its anchor with age zero.
func (p *Particle) Respawn() {
	p.Position = p.InitialPosition
	p.Life = 0
}

// BufferSize returns the number of bytes a population of count particles occupies.
func BufferSize(count int) int64 {
	return int64(count) * Stride
}

// Encode packs particles into a little endian byte slice using the device layout.
func Encode(particles []Particle) []byte {
	buf := make([]byte, len(particles)*Stride)
	for i := range particles {
		off := i * Stride
		p := &particles[i]
		putVec3(buf[off:], p.Position)
		putVec3(buf[off+12:], p.InitialPosition)
		binary.LittleEndian.PutUint32(buf[off+24:], math.Float32bits(p.Life))
	}
	return buf
}

// Decode unpacks device bytes into dst. It returns the number of particles written.
func Decode(data []byte, dst []Particle) int {
	n := len(data) / Stride
	if n > len(dst) {
		n = len(dst)
	}
	for i := 0; i < n; i++ {
		off := i * Stride
		dst[i].Position = readVec3(data[off:])
		dst[i].InitialPosition = readVec3(data[off+12:])
		dst[i].Life = math.Float32frombits(binary.LittleEndian.Uint32(data[off+24:]))
	}
	return n
}

func putVec3(b []byte, v mgl32.Vec3) {
	binary.LittleEndian.PutUint32(b[0:], math.Float32bits(v[0]))
	binary.LittleEndian.PutUint32(b[4:], math.Float32bits(v[1]))
	binary.LittleEndian.PutUint32(b[8:], math.Float32bits(v[2]))
}

func readVec3(b []byte) mgl32.Vec3 {
	return mgl32.Vec3{
		math.Float32frombits(binary.LittleEndian.Uint32(b[0:])),
		math.Float32frombits(binary.LittleEndian.Uint32(b[4:])),
		math.Float32frombits(binary.LittleEndian.Uint32(b[8:])),
	}
}
