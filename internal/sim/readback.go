package sim

// gpuReadbackInterval is the number of frames a view lets pass between
// snapshots of a device buffer. A snapshot waits for the queue to drain.
const gpuReadbackInterval = 4

// Readback limits how often a view copies particles off the device.
type Readback struct {
	every uint64
	last  uint64
	read  bool
}

// NewReadback returns a limiter for views of s. The cpu device is read every
// frame since its snapshot is a plain copy.
func (s *Simulation) NewReadback() *Readback {
	every := uint64(gpuReadbackInterval)
	if s.dev.Name() == "cpu" {
		every = 1
	}
	return &Readback{every: every}
}

// Due reports whether the view should snapshot at frame and records it if so.
// The first call is always due; a frame that has not advanced never is.
func (r *Readback) Due(frame uint64) bool {
	if r.read && frame-r.last < r.every {
		return false
	}
	r.read = true
	r.last = frame
	return true
}

// Every is the frame interval between snapshots.
func (r *Readback) Every() uint64 { return r.every }
