package compute

import (
	"sync"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/san-kum/vfparticles/internal/field"
)

// Call is one dispatch observed by a Recorder, with the parameters the host had
// set when it was submitted.
type Call struct {
	Entry  string
	Groups int
	Params Params
}

// Recorder wraps a Device and records every dispatch in submission order.
// It forwards all calls, so it can sit in front of a real device for tracing.
type Recorder struct {
	Device

	mu     sync.Mutex
	names  map[EntryID]string
	params Params
	calls  []Call
}

func NewRecorder(dev Device) *Recorder {
	return &Recorder{Device: dev, names: make(map[EntryID]string)}
}

func (r *Recorder) Entry(name string) (EntryID, error) {
	id, err := r.Device.Entry(name)
	if err != nil {
		return id, err
	}
	r.mu.Lock()
	r.names[id] = name
	r.mu.Unlock()
	return id, nil
}

func (r *Recorder) Dispatch(entry EntryID, groups int) {
	r.mu.Lock()
	r.calls = append(r.calls, Call{Entry: r.names[entry], Groups: groups, Params: r.params})
	r.mu.Unlock()
	r.Device.Dispatch(entry, groups)
}

// Calls returns the dispatches recorded so far.
func (r *Recorder) Calls() []Call {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Call(nil), r.calls...)
}

// Drain returns the recorded dispatches and forgets them.
func (r *Recorder) Drain() []Call {
	r.mu.Lock()
	defer r.mu.Unlock()
	calls := r.calls
	r.calls = nil
	return calls
}

// Snapshot forwards to the wrapped device when it supports readback.
func (r *Recorder) Snapshot(buf Buffer, dst []field.Particle) (int, error) {
	if s, ok := r.Device.(Snapshotter); ok {
		return s.Snapshot(buf, dst)
	}
	return 0, errNoSnapshot
}

func (r *Recorder) SetFloat(name string, v float32) {
	r.mu.Lock()
	r.params.setFloat(name, v)
	r.mu.Unlock()
	r.Device.SetFloat(name, v)
}

func (r *Recorder) SetVector(name string, v mgl32.Vec3) {
	r.mu.Lock()
	r.params.setVector(name, v)
	r.mu.Unlock()
	r.Device.SetVector(name, v)
}

var _ Device = (*Recorder)(nil)
