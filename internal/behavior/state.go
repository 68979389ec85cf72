// Package behavior holds the per-frame motion behaviors and the timed ring that
// cycles through them.
package behavior

import (
	"errors"
	"fmt"

	"github.com/san-kum/vfparticles/internal/compute"
	"github.com/san-kum/vfparticles/internal/kernel"
)

var errNoKernels = errors.New("behavior: state needs at least one kernel")

// State is a named unit of per-frame work: one or more kernels dispatched
// back-to-back against the same buffer. Later kernels see the writes of earlier
// ones within the same frame.
type State struct {
	name     string
	bindings []*kernel.Binding
}

// NewState binds one kernel per entry, in order.
func NewState(name string, dev compute.Device, buf compute.Buffer, threadsPerGroup int, entries ...string) (*State, error) {
	if len(entries) == 0 {
		return nil, fmt.Errorf("%w: %s", errNoKernels, name)
	}

	s := &State{
		name:     name,
		bindings: make([]*kernel.Binding, 0, len(entries)),
	}
	for _, entry := range entries {
		b, err := kernel.Bind(dev, entry, buf, threadsPerGroup)
		if err != nil {
			return nil, fmt.Errorf("behavior: state %s: %w", name, err)
		}
		s.bindings = append(s.bindings, b)
	}
	return s, nil
}

func (s *State) Name() string { return s.name }

// Entries returns the kernel entry names in dispatch order.
func (s *State) Entries() []string {
	names := make([]string, len(s.bindings))
	for i, b := range s.bindings {
		names[i] = b.Entry()
	}
	return names
}

// Advance dispatches every bound kernel over the whole population.
func (s *State) Advance() {
	for _, b := range s.bindings {
		b.Dispatch(b.Groups())
	}
}

// Spec names a state and the entries it runs.
type Spec struct {
	Name    string
	Entries []string
}

// ReferenceRing is the fixed behavior cycle: spiral, eyes, optical illusion, and a
// combination that runs the optical illusion and then the spiral each frame.
var ReferenceRing = []Spec{
	{Name: "spiral", Entries: []string{compute.EntrySpiral}},
	{Name: "eyes", Entries: []string{compute.EntryEyes}},
	{Name: "optical_illusion", Entries: []string{compute.EntryOpticalIllusion}},
	{Name: "combination", Entries: []string{compute.EntryOpticalIllusion, compute.EntrySpiral}},
}

// BuildRing creates the states of specs in ring order.
func BuildRing(dev compute.Device, buf compute.Buffer, threadsPerGroup int, specs []Spec) ([]*State, error) {
	states := make([]*State, 0, len(specs))
	for _, spec := range specs {
		s, err := NewState(spec.Name, dev, buf, threadsPerGroup, spec.Entries...)
		if err != nil {
			return nil, err
		}
		states = append(states, s)
	}
	return states, nil
}
