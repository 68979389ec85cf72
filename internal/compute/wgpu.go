//go:build wgpu

package compute

import (
	"errors"
	"fmt"
	"sync"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/san-kum/vfparticles/internal/field"
	"github.com/san-kum/vfparticles/internal/shaders"
)

// WGPUDevice runs the WGSL particle program on a WebGPU adapter. Every dispatch is
// recorded in its own compute pass and submitted on the single device queue, which
// executes submissions in order.
type WGPUDevice struct {
	instance *wgpu.Instance
	adapter  *wgpu.Adapter
	device   *wgpu.Device
	queue    *wgpu.Queue
	module   *wgpu.ShaderModule
	program  *shaders.Program

	threads    int
	params     Params
	paramsBuf  *wgpu.Buffer
	entries    []string
	pipelines  []*wgpu.ComputePipeline
	bindGroups map[EntryID]*wgpu.BindGroup
	bound      map[EntryID]*wgpuBuffer
}

type wgpuBuffer struct {
	buf      *wgpu.Buffer
	count    int
	once     sync.Once
	mu       sync.Mutex
	released bool
}

func (b *wgpuBuffer) Count() int { return b.count }

func (b *wgpuBuffer) Release() {
	b.once.Do(func() {
		b.mu.Lock()
		b.buf.Release()
		b.released = true
		b.mu.Unlock()
	})
}

func (b *wgpuBuffer) Released() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.released
}

func NewWGPUDevice(opts Options) (Device, error) {
	program, err := shaders.Compile(opts.ThreadsPerGroup)
	if err != nil {
		return nil, err
	}

	d := &WGPUDevice{
		program:    program,
		threads:    opts.ThreadsPerGroup,
		entries:    program.Entries,
		pipelines:  make([]*wgpu.ComputePipeline, len(program.Entries)),
		bindGroups: make(map[EntryID]*wgpu.BindGroup),
		bound:      make(map[EntryID]*wgpuBuffer),
	}

	d.instance = wgpu.CreateInstance(nil)
	d.adapter, err = d.instance.RequestAdapter(&wgpu.RequestAdapterOptions{
		PowerPreference: wgpu.PowerPreferenceHighPerformance,
	})
	if err != nil {
		d.Cleanup()
		return nil, fmt.Errorf("compute: wgpu: request adapter: %w", err)
	}

	d.device, err = d.adapter.RequestDevice(&wgpu.DeviceDescriptor{Label: "particle device"})
	if err != nil {
		d.Cleanup()
		return nil, fmt.Errorf("compute: wgpu: request device: %w", err)
	}
	d.queue = d.device.GetQueue()

	d.module, err = d.device.CreateShaderModule(&wgpu.ShaderModuleDescriptor{
		Label:          "particles",
		WGSLDescriptor: &wgpu.ShaderModuleWGSLDescriptor{Code: program.Source},
	})
	if err != nil {
		d.Cleanup()
		return nil, fmt.Errorf("compute: wgpu: shader module: %w", err)
	}

	d.paramsBuf, err = d.device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: "particle params",
		Size:  32,
		Usage: wgpu.BufferUsageUniform | wgpu.BufferUsageCopyDst,
	})
	if err != nil {
		d.Cleanup()
		return nil, fmt.Errorf("compute: wgpu: params buffer: %w", err)
	}

	return d, nil
}

func (d *WGPUDevice) Name() string { return "wgpu" }

func (d *WGPUDevice) Available() bool      { return d.device != nil }
func (d *WGPUDevice) ThreadsPerGroup() int { return d.threads }

func (d *WGPUDevice) NewBuffer(particles []field.Particle) (Buffer, error) {
	size := field.BufferSize(len(particles))
	if len(particles) == 0 {
		return nil, &field.AllocationError{Bytes: size}
	}

	buf, err := d.device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: "particleBuffer",
		Size:  uint64(size),
		Usage: wgpu.BufferUsageStorage | wgpu.BufferUsageCopyDst | wgpu.BufferUsageCopySrc | wgpu.BufferUsageVertex,
	})
	if err != nil {
		return nil, &field.AllocationError{Bytes: size, Wrapped: err}
	}
	if err := d.queue.WriteBuffer(buf, 0, field.Encode(particles)); err != nil {
		buf.Release()
		return nil, &field.AllocationError{Bytes: size, Wrapped: err}
	}
	return &wgpuBuffer{buf: buf, count: len(particles)}, nil
}

func (d *WGPUDevice) Entry(name string) (EntryID, error) {
	if !d.program.Has(name) {
		return -1, &field.EntryError{Entry: name, Device: d.Name()}
	}
	id := EntryID(0)
	for i, e := range d.entries {
		if e == name {
			id = EntryID(i)
		}
	}
	if d.pipelines[id] != nil {
		return id, nil
	}

	pipeline, err := d.device.CreateComputePipeline(&wgpu.ComputePipelineDescriptor{
		Label: name,
		Compute: wgpu.ProgrammableStageDescriptor{
			Module:     d.module,
			EntryPoint: name,
		},
	})
	if err != nil {
		return -1, fmt.Errorf("compute: wgpu: pipeline %s: %w", name, err)
	}
	d.pipelines[id] = pipeline
	return id, nil
}

func (d *WGPUDevice) Bind(entry EntryID, buf Buffer) error {
	if int(entry) < 0 || int(entry) >= len(d.pipelines) || d.pipelines[entry] == nil {
		return fmt.Errorf("compute: wgpu: entry id %d not resolved", entry)
	}
	wb, ok := buf.(*wgpuBuffer)
	if !ok {
		return fmt.Errorf("compute: wgpu: buffer %T was not allocated by this device", buf)
	}

	bg, err := d.device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Label:  d.entries[entry],
		Layout: d.pipelines[entry].GetBindGroupLayout(0),
		Entries: []wgpu.BindGroupEntry{
			{Binding: 0, Buffer: wb.buf, Size: wgpu.WholeSize},
			{Binding: 1, Buffer: d.paramsBuf, Size: wgpu.WholeSize},
		},
	})
	if err != nil {
		return fmt.Errorf("compute: wgpu: bind group %s: %w", d.entries[entry], err)
	}
	if old, ok := d.bindGroups[entry]; ok {
		old.Release()
	}
	d.bindGroups[entry] = bg
	d.bound[entry] = wb
	return nil
}

func (d *WGPUDevice) SetFloat(name string, v float32)     { d.params.setFloat(name, v) }
func (d *WGPUDevice) SetVector(name string, v mgl32.Vec3) { d.params.setVector(name, v) }

// Dispatch writes the current parameters and submits one compute pass. Queue
// writes are ordered before the submission that follows them.
func (d *WGPUDevice) Dispatch(entry EntryID, groups int) {
	bg, ok := d.bindGroups[entry]
	if !ok {
		panic(fmt.Sprintf("compute: wgpu: dispatch of unbound entry %d", entry))
	}
	if groups <= 0 {
		return
	}

	prm := d.params
	prm.ParticleCount = uint32(d.bound[entry].count)
	if err := d.queue.WriteBuffer(d.paramsBuf, 0, prm.bytes()); err != nil {
		panic(fmt.Errorf("compute: wgpu: write params: %w", err))
	}

	encoder, err := d.device.CreateCommandEncoder(nil)
	if err != nil {
		panic(fmt.Errorf("compute: wgpu: command encoder: %w", err))
	}
	defer encoder.Release()

	pass := encoder.BeginComputePass(nil)
	pass.SetPipeline(d.pipelines[entry])
	pass.SetBindGroup(0, bg, nil)
	pass.DispatchWorkgroups(uint32(groups), 1, 1)
	if err := pass.End(); err != nil {
		panic(fmt.Errorf("compute: wgpu: end pass %s: %w", d.entries[entry], err))
	}
	pass.Release()

	cmd, err := encoder.Finish(nil)
	if err != nil {
		panic(fmt.Errorf("compute: wgpu: finish %s: %w", d.entries[entry], err))
	}
	defer cmd.Release()
	d.queue.Submit(cmd)
}

// Snapshot copies buf into a staging buffer and blocks until it is mapped. Only
// host-side renderers call it; the frame path never waits on the device.
func (d *WGPUDevice) Snapshot(buf Buffer, dst []field.Particle) (int, error) {
	wb, ok := buf.(*wgpuBuffer)
	if !ok {
		return 0, fmt.Errorf("compute: wgpu: buffer %T was not allocated by this device", buf)
	}
	if wb.Released() {
		return 0, errors.New("compute: wgpu: snapshot of released buffer")
	}

	size := uint64(field.BufferSize(wb.count))
	staging, err := d.device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: "particle readback",
		Size:  size,
		Usage: wgpu.BufferUsageMapRead | wgpu.BufferUsageCopyDst,
	})
	if err != nil {
		return 0, fmt.Errorf("compute: wgpu: readback buffer: %w", err)
	}
	defer staging.Release()

	encoder, err := d.device.CreateCommandEncoder(nil)
	if err != nil {
		return 0, fmt.Errorf("compute: wgpu: command encoder: %w", err)
	}
	defer encoder.Release()
	if err := encoder.CopyBufferToBuffer(wb.buf, 0, staging, 0, size); err != nil {
		return 0, fmt.Errorf("compute: wgpu: copy to readback: %w", err)
	}
	cmd, err := encoder.Finish(nil)
	if err != nil {
		return 0, fmt.Errorf("compute: wgpu: finish readback: %w", err)
	}
	defer cmd.Release()
	d.queue.Submit(cmd)

	var status wgpu.BufferMapAsyncStatus
	done := false
	if err := staging.MapAsync(wgpu.MapModeRead, 0, size, func(s wgpu.BufferMapAsyncStatus) {
		status = s
		done = true
	}); err != nil {
		return 0, fmt.Errorf("compute: wgpu: map readback: %w", err)
	}
	for !done {
		d.device.Poll(true, nil)
	}
	if status != wgpu.BufferMapAsyncStatusSuccess {
		return 0, fmt.Errorf("compute: wgpu: map readback: status %d", status)
	}
	defer staging.Unmap()

	return field.Decode(staging.GetMappedRange(0, uint(size)), dst), nil
}

func (d *WGPUDevice) Cleanup() {
	for id, bg := range d.bindGroups {
		bg.Release()
		delete(d.bindGroups, id)
	}
	d.bound = make(map[EntryID]*wgpuBuffer)
	for i, p := range d.pipelines {
		if p != nil {
			p.Release()
			d.pipelines[i] = nil
		}
	}
	if d.paramsBuf != nil {
		d.paramsBuf.Release()
		d.paramsBuf = nil
	}
	if d.module != nil {
		d.module.Release()
		d.module = nil
	}
	if d.queue != nil {
		d.queue.Release()
		d.queue = nil
	}
	if d.device != nil {
		d.device.Release()
		d.device = nil
	}
	if d.adapter != nil {
		d.adapter.Release()
		d.adapter = nil
	}
	if d.instance != nil {
		d.instance.Release()
		d.instance = nil
	}
}
