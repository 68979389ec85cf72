package compute

import (
	"errors"
	"fmt"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/san-kum/vfparticles/internal/field"
)

// Kernel entry points of the particle compute program.
const (
	EntryLifetime        = "CSLifetime"
	EntryRepel           = "CSRepel"
	EntrySpiral          = "CSSpiral"
	EntryEyes            = "CSEyes"
	EntryOpticalIllusion = "CSOpticalIllusion"
)

// Parameter names the host sets before a dispatch.
const (
	ParamDeltaTime        = "deltaTime"
	ParamRepelPosition    = "repelPosition"
	ParamRepelRadius      = "repelRadius"
	ParamRepelPower       = "repelPower"
	ParamParticleLifetime = "particleLifetime"
)

// EntryID identifies a resolved entry point on one device.
type EntryID int

// Buffer is device-resident particle storage.
// Release is safe to call more than once; only the first call frees memory.
type Buffer interface {
	Count() int
	Release()
	Released() bool
}

// Device is the capability the simulation needs from a compute backend.
// Dispatches execute in submission order against the bound buffer.
type Device interface {
	Name() string
	Available() bool
	ThreadsPerGroup() int
	NewBuffer(particles []field.Particle) (Buffer, error)
	Entry(name string) (EntryID, error)
	Bind(entry EntryID, buf Buffer) error
	SetFloat(name string, v float32)
	SetVector(name string, v mgl32.Vec3)
	Dispatch(entry EntryID, groups int)
	Cleanup()
}

// Snapshotter is implemented by devices that can copy a buffer back to host memory.
// Render collaborators use it; the per-frame dispatch path never does.
type Snapshotter interface {
	Snapshot(buf Buffer, dst []field.Particle) (int, error)
}

var errNoSnapshot = errors.New("compute: device does not support buffer readback")

// Options configure device construction.
type Options struct {
	ThreadsPerGroup int
	// MaxBufferBytes caps allocations on the CPU device. Zero means no cap.
	MaxBufferBytes int64
}

// Open returns the device registered under name. "auto" prefers the WebGPU
// device when it is compiled in and finds an adapter, otherwise the CPU device.
func Open(name string, opts Options) (Device, error) {
	if opts.ThreadsPerGroup <= 0 {
		return nil, &field.ConfigError{Field: "threads_per_group", Reason: "must be positive"}
	}

	switch name {
	case "", "auto":
		return AutoSelectDevice(opts), nil
	case "cpu":
		return NewCPUDevice(opts), nil
	case "wgpu":
		return NewWGPUDevice(opts)
	case "gl":
		return NewGLDevice(opts)
	default:
		return nil, &field.ConfigError{Field: "device", Reason: fmt.Sprintf("unknown device %q", name)}
	}
}

// NeedsContext reports whether the named device only works on a thread with a
// current GL context. Open does not create one; a window must exist first.
func NeedsContext(name string) bool {
	return name == "gl"
}

func AutoSelectDevice(opts Options) Device {
	if d, err := NewWGPUDevice(opts); err == nil {
		if d.Available() {
			return d
		}
		d.Cleanup()
	}
	return NewCPUDevice(opts)
}
