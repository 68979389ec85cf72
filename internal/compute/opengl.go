//go:build gl

package compute

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/go-gl/gl/v4.3-core/gl"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/san-kum/vfparticles/internal/field"
	"github.com/san-kum/vfparticles/internal/shaders"
)

// GLDevice runs the GLSL particle program with OpenGL 4.3 compute shaders. It needs
// a current GL context on the calling thread. Each entry is its own program; a
// storage barrier follows every dispatch so the next one reads the writes.
type GLDevice struct {
	threads  int
	entries  []string
	programs []uint32
	uniforms []map[string]int32
	bound    map[EntryID]*glBuffer
	params   Params
}

var errNoGLContext = errors.New("compute: gl: no current GL context")

type glBuffer struct {
	ssbo     uint32
	count    int
	once     sync.Once
	released bool
}

func (b *glBuffer) Count() int { return b.count }

func (b *glBuffer) Release() {
	b.once.Do(func() {
		gl.DeleteBuffers(1, &b.ssbo)
		b.released = true
	})
}

func (b *glBuffer) Released() bool { return b.released }

func NewGLDevice(opts Options) (Device, error) {
	if err := gl.Init(); err != nil {
		return nil, fmt.Errorf("compute: gl: failed to init opengl: %w", err)
	}
	// Function pointers load without a context; the version query does not.
	if gl.GetString(gl.VERSION) == nil {
		return nil, errNoGLContext
	}
	var major, minor int32
	gl.GetIntegerv(gl.MAJOR_VERSION, &major)
	gl.GetIntegerv(gl.MINOR_VERSION, &minor)
	if major < 4 || (major == 4 && minor < 3) {
		return nil, fmt.Errorf("compute: gl: compute shaders need OpenGL 4.3, context is %d.%d", major, minor)
	}

	entries := shaders.GLSLEntries()
	sort.Strings(entries)
	return &GLDevice{
		threads:  opts.ThreadsPerGroup,
		entries:  entries,
		programs: make([]uint32, len(entries)),
		uniforms: make([]map[string]int32, len(entries)),
		bound:    make(map[EntryID]*glBuffer),
	}, nil
}

func (c *GLDevice) Name() string         { return "gl" }
func (c *GLDevice) Available() bool      { return true }
func (c *GLDevice) ThreadsPerGroup() int { return c.threads }

func (c *GLDevice) NewBuffer(particles []field.Particle) (Buffer, error) {
	size := field.BufferSize(len(particles))
	if len(particles) == 0 {
		return nil, &field.AllocationError{Bytes: size}
	}

	data := field.Encode(particles)
	b := &glBuffer{count: len(particles)}
	gl.GenBuffers(1, &b.ssbo)
	gl.BindBuffer(gl.SHADER_STORAGE_BUFFER, b.ssbo)
	gl.BufferData(gl.SHADER_STORAGE_BUFFER, len(data), gl.Ptr(data), gl.DYNAMIC_COPY)
	gl.BindBuffer(gl.SHADER_STORAGE_BUFFER, 0)

	if code := gl.GetError(); code != gl.NO_ERROR {
		b.Release()
		return nil, &field.AllocationError{Bytes: size, Wrapped: fmt.Errorf("gl error 0x%x", code)}
	}
	return b, nil
}

func (c *GLDevice) Entry(name string) (EntryID, error) {
	i := sort.SearchStrings(c.entries, name)
	if i == len(c.entries) || c.entries[i] != name {
		return -1, &field.EntryError{Entry: name, Device: c.Name()}
	}
	if c.programs[i] != 0 {
		return EntryID(i), nil
	}

	program, err := createComputeProgram(shaders.GLSL(name, c.threads))
	if err != nil {
		return -1, fmt.Errorf("compute: gl: %s: %w", name, err)
	}
	c.programs[i] = program
	c.uniforms[i] = make(map[string]int32)
	for _, u := range []string{ParamDeltaTime, ParamRepelPosition, ParamRepelRadius, ParamRepelPower, ParamParticleLifetime, "particleCount"} {
		c.uniforms[i][u] = gl.GetUniformLocation(program, gl.Str(u+"\x00"))
	}
	return EntryID(i), nil
}

func (c *GLDevice) Bind(entry EntryID, buf Buffer) error {
	if int(entry) < 0 || int(entry) >= len(c.programs) || c.programs[entry] == 0 {
		return fmt.Errorf("compute: gl: entry id %d not resolved", entry)
	}
	gb, ok := buf.(*glBuffer)
	if !ok {
		return fmt.Errorf("compute: gl: buffer %T was not allocated by this device", buf)
	}
	c.bound[entry] = gb
	return nil
}

func (c *GLDevice) SetFloat(name string, v float32)     { c.params.setFloat(name, v) }
func (c *GLDevice) SetVector(name string, v mgl32.Vec3) { c.params.setVector(name, v) }

func (c *GLDevice) Dispatch(entry EntryID, groups int) {
	buf, ok := c.bound[entry]
	if !ok {
		panic(fmt.Sprintf("compute: gl: dispatch of unbound entry %d", entry))
	}
	if groups <= 0 {
		return
	}

	program := c.programs[entry]
	loc := c.uniforms[entry]
	gl.UseProgram(program)
	gl.Uniform1f(loc[ParamDeltaTime], c.params.DeltaTime)
	gl.Uniform1f(loc[ParamRepelRadius], c.params.RepelRadius)
	gl.Uniform1f(loc[ParamRepelPower], c.params.RepelPower)
	gl.Uniform1f(loc[ParamParticleLifetime], c.params.ParticleLifetime)
	rp := c.params.RepelPosition
	gl.Uniform3f(loc[ParamRepelPosition], rp[0], rp[1], rp[2])
	gl.Uniform1ui(loc["particleCount"], uint32(buf.count))

	gl.BindBufferBase(gl.SHADER_STORAGE_BUFFER, 0, buf.ssbo)
	gl.DispatchCompute(uint32(groups), 1, 1)
	gl.MemoryBarrier(gl.SHADER_STORAGE_BARRIER_BIT | gl.VERTEX_ATTRIB_ARRAY_BARRIER_BIT)
}

func (c *GLDevice) Snapshot(buf Buffer, dst []field.Particle) (int, error) {
	gb, ok := buf.(*glBuffer)
	if !ok {
		return 0, fmt.Errorf("compute: gl: buffer %T was not allocated by this device", buf)
	}
	if gb.released || gb.count == 0 {
		return 0, fmt.Errorf("compute: gl: snapshot of released buffer")
	}

	data := make([]byte, field.BufferSize(gb.count))
	gl.BindBuffer(gl.SHADER_STORAGE_BUFFER, gb.ssbo)
	gl.GetBufferSubData(gl.SHADER_STORAGE_BUFFER, 0, len(data), gl.Ptr(data))
	gl.BindBuffer(gl.SHADER_STORAGE_BUFFER, 0)
	return field.Decode(data, dst), nil
}

func (c *GLDevice) Cleanup() {
	for i, p := range c.programs {
		if p != 0 {
			gl.DeleteProgram(p)
			c.programs[i] = 0
		}
	}
	c.bound = make(map[EntryID]*glBuffer)
}

func createComputeProgram(source string) (uint32, error) {
	shader := gl.CreateShader(gl.COMPUTE_SHADER)
	csources, free := gl.Strs(source + "\x00")
	gl.ShaderSource(shader, 1, csources, nil)
	free()
	gl.CompileShader(shader)

	var status int32
	gl.GetShaderiv(shader, gl.COMPILE_STATUS, &status)
	if status == gl.FALSE {
		var logLength int32
		gl.GetShaderiv(shader, gl.INFO_LOG_LENGTH, &logLength)
		log := strings.Repeat("\x00", int(logLength+1))
		gl.GetShaderInfoLog(shader, logLength, nil, gl.Str(log))
		gl.DeleteShader(shader)
		return 0, fmt.Errorf("failed to compile compute shader: %v", log)
	}

	program := gl.CreateProgram()
	gl.AttachShader(program, shader)
	gl.LinkProgram(program)
	gl.DeleteShader(shader)

	gl.GetProgramiv(program, gl.LINK_STATUS, &status)
	if status == gl.FALSE {
		gl.DeleteProgram(program)
		return 0, fmt.Errorf("failed to link program")
	}
	return program, nil
}
