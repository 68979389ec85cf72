package compute

import (
	"encoding/binary"
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// Params mirrors the uniform block every kernel reads.
type Params struct {
	DeltaTime        float32
	RepelPosition    mgl32.Vec3
	RepelRadius      float32
	RepelPower       float32
	ParticleLifetime float32
	// ParticleCount is filled by the device from the bound buffer.
	ParticleCount uint32
}

func (p *Params) setFloat(name string, v float32) bool {
	switch name {
	case ParamDeltaTime:
		p.DeltaTime = v
	case ParamRepelRadius:
		p.RepelRadius = v
	case ParamRepelPower:
		p.RepelPower = v
	case ParamParticleLifetime:
		p.ParticleLifetime = v
	default:
		return false
	}
	return true
}

func (p *Params) setVector(name string, v mgl32.Vec3) bool {
	if name != ParamRepelPosition {
		return false
	}
	p.RepelPosition = v
	return true
}

// bytes packs the block with the std140 offsets the WGSL Params struct uses.
func (p *Params) bytes() []byte {
	buf := make([]byte, 32)
	putFloat(buf[0:], p.DeltaTime)
	putFloat(buf[4:], p.RepelRadius)
	putFloat(buf[8:], p.RepelPower)
	putFloat(buf[12:], p.ParticleLifetime)
	putFloat(buf[16:], p.RepelPosition[0])
	putFloat(buf[20:], p.RepelPosition[1])
	putFloat(buf[24:], p.RepelPosition[2])
	binary.LittleEndian.PutUint32(buf[28:], p.ParticleCount)
	return buf
}

func putFloat(b []byte, v float32) {
	binary.LittleEndian.PutUint32(b, math.Float32bits(v))
}
