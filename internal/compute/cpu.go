package compute

import (
	"fmt"
	"sort"
	"sync"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/san-kum/vfparticles/internal/field"
)

// CPUDevice runs the compute program on the host. Each dispatch spreads its thread
// groups across worker goroutines and joins them before returning, so submission
// order is execution order.
type CPUDevice struct {
	threads  int
	maxBytes int64

	entries []string
	params  Params
	bound   map[EntryID]*cpuBuffer
}

type cpuBuffer struct {
	mu        sync.Mutex
	particles []field.Particle
	once      sync.Once
	released  bool
}

func (b *cpuBuffer) Count() int { return len(b.particles) }

func (b *cpuBuffer) Release() {
	b.once.Do(func() {
		b.mu.Lock()
		b.particles = nil
		b.released = true
		b.mu.Unlock()
	})
}

func (b *cpuBuffer) Released() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.released
}

func NewCPUDevice(opts Options) *CPUDevice {
	entries := make([]string, 0, len(cpuKernels))
	for name := range cpuKernels {
		entries = append(entries, name)
	}
	sort.Strings(entries)

	return &CPUDevice{
		threads:  opts.ThreadsPerGroup,
		maxBytes: opts.MaxBufferBytes,
		entries:  entries,
		bound:    make(map[EntryID]*cpuBuffer),
	}
}

func (c *CPUDevice) Name() string         { return "cpu" }
func (c *CPUDevice) Available() bool      { return true }
func (c *CPUDevice) ThreadsPerGroup() int { return c.threads }
func (c *CPUDevice) Entries() []string    { return append([]string(nil), c.entries...) }

func (c *CPUDevice) Cleanup() {
	c.bound = make(map[EntryID]*cpuBuffer)
}

func (c *CPUDevice) NewBuffer(particles []field.Particle) (Buffer, error) {
	size := field.BufferSize(len(particles))
	if len(particles) == 0 || (c.maxBytes > 0 && size > c.maxBytes) {
		return nil, &field.AllocationError{Bytes: size}
	}

	buf := &cpuBuffer{particles: make([]field.Particle, len(particles))}
	copy(buf.particles, particles)
	return buf, nil
}

func (c *CPUDevice) Entry(name string) (EntryID, error) {
	i := sort.SearchStrings(c.entries, name)
	if i == len(c.entries) || c.entries[i] != name {
		return -1, &field.EntryError{Entry: name, Device: c.Name()}
	}
	return EntryID(i), nil
}

func (c *CPUDevice) Bind(entry EntryID, buf Buffer) error {
	if int(entry) < 0 || int(entry) >= len(c.entries) {
		return fmt.Errorf("compute: cpu: entry id %d out of range", entry)
	}
	cb, ok := buf.(*cpuBuffer)
	if !ok {
		return fmt.Errorf("compute: cpu: buffer %T was not allocated by this device", buf)
	}
	c.bound[entry] = cb
	return nil
}

func (c *CPUDevice) SetFloat(name string, v float32)     { c.params.setFloat(name, v) }
func (c *CPUDevice) SetVector(name string, v mgl32.Vec3) { c.params.setVector(name, v) }

// Dispatch covers groups*ThreadsPerGroup lanes; lanes at or beyond the buffer
// length are skipped the same way the shader bounds check skips them.
func (c *CPUDevice) Dispatch(entry EntryID, groups int) {
	buf, ok := c.bound[entry]
	if !ok {
		panic(fmt.Sprintf("compute: cpu: dispatch of unbound entry %d", entry))
	}
	if groups <= 0 {
		return
	}

	kernel := cpuKernels[c.entries[entry]]
	prm := c.params

	buf.mu.Lock()
	defer buf.mu.Unlock()
	particles := buf.particles
	prm.ParticleCount = uint32(len(particles))
	count := len(particles)
	threads := c.threads

	field.ParallelFor(groups, c.minGroupsPerWorker(), func(start, end int) {
		for g := start; g < end; g++ {
			base := g * threads
			for lane := 0; lane < threads; lane++ {
				i := base + lane
				if i >= count {
					return
				}
				kernel(&particles[i], &prm)
			}
		}
	})
}

func (c *CPUDevice) minGroupsPerWorker() int {
	if c.threads >= 1024 {
		return 1
	}
	return 1024 / c.threads
}

func (c *CPUDevice) Snapshot(buf Buffer, dst []field.Particle) (int, error) {
	cb, ok := buf.(*cpuBuffer)
	if !ok {
		return 0, fmt.Errorf("compute: cpu: buffer %T was not allocated by this device", buf)
	}
	cb.mu.Lock()
	defer cb.mu.Unlock()
	if cb.released {
		return 0, fmt.Errorf("compute: cpu: snapshot of released buffer")
	}
	return copy(dst, cb.particles), nil
}
