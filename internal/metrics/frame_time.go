package metrics

import "time"

// FrameTime keeps the most recent tick durations for plotting and summaries.
type FrameTime struct {
	name    string
	window  int
	samples []float64
	sum     float64
	count   int
}

func NewFrameTime(window int) *FrameTime {
	if window <= 0 {
		window = 1
	}
	return &FrameTime{
		name:    "frame_ms",
		window:  window,
		samples: make([]float64, 0, window),
	}
}

func (f *FrameTime) Name() string { return f.name }

func (f *FrameTime) Observe(d time.Duration) {
	ms := float64(d) / float64(time.Millisecond)
	if len(f.samples) == f.window {
		copy(f.samples, f.samples[1:])
		f.samples = f.samples[:f.window-1]
	}
	f.samples = append(f.samples, ms)
	f.sum += ms
	f.count++
}

// Value is the mean frame time in milliseconds over every observation.
func (f *FrameTime) Value() float64 {
	if f.count == 0 {
		return 0
	}
	return f.sum / float64(f.count)
}

// Samples returns the windowed frame times, oldest first.
func (f *FrameTime) Samples() []float64 {
	return append([]float64(nil), f.samples...)
}

func (f *FrameTime) Reset() {
	f.samples = f.samples[:0]
	f.sum = 0
	f.count = 0
}
