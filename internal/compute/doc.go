// Package compute provides the devices that run the particle kernels.
//
// Open selects a device by name:
//
//   - wgpu: WebGPU compute pipelines (build with -tags wgpu)
//   - gl: OpenGL 4.3 compute shaders over SSBOs (build with -tags gl,opengl43);
//     needs a current context, so only the window command can use it
//   - cpu: the same kernels on worker goroutines, always available
//   - auto: wgpu when compiled in and an adapter is found, otherwise cpu
//
// A device resolves entry points by name, binds the particle buffer to them and
// dispatches whole thread groups in submission order:
//
//	dev, err := compute.Open("auto", compute.Options{ThreadsPerGroup: 256})
//	buf, err := dev.NewBuffer(particles)
//	id, err := dev.Entry(compute.EntryLifetime)
//	err = dev.Bind(id, buf)
//	dev.SetFloat(compute.ParamDeltaTime, dt)
//	dev.Dispatch(id, field.GroupCount(buf.Count(), 256))
package compute
