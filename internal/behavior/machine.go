package behavior

import (
	"errors"
	"fmt"
)

var errEmptyRing = errors.New("behavior: ring needs at least one state")

// Observer is notified after every transition.
type Observer interface {
	OnTransition(from, to *State, at float64)
}

// Machine owns the ring of states and advances it on a timer. The successor of
// state i is state (i+1) mod len; the ring never changes after construction and
// cannot be reset or jumped.
type Machine struct {
	states []*State
	active int
	dwell  float64

	clock          float64
	lastTransition float64

	observers []Observer
}

// NewMachine starts on the first state with both clocks at zero.
func NewMachine(dwell float64, states ...*State) (*Machine, error) {
	if len(states) == 0 {
		return nil, errEmptyRing
	}
	if dwell <= 0 {
		return nil, fmt.Errorf("behavior: dwell must be positive, got %f", dwell)
	}
	return &Machine{states: states, dwell: dwell}, nil
}

func (m *Machine) AddObserver(o Observer) { m.observers = append(m.observers, o) }

// Update advances the clock by elapsed seconds. When more than one dwell has
// passed since the last transition it moves to the successor exactly once and
// restarts the dwell from the current clock. Skipped intervals are not caught up.
func (m *Machine) Update(elapsed float64) bool {
	m.clock += elapsed
	if m.clock-m.lastTransition <= m.dwell {
		return false
	}

	from := m.states[m.active]
	m.active = m.Successor(m.active)
	m.lastTransition = m.clock

	for _, o := range m.observers {
		o.OnTransition(from, m.states[m.active], m.clock)
	}
	return true
}

func (m *Machine) Active() *State          { return m.states[m.active] }
func (m *Machine) ActiveIndex() int        { return m.active }
func (m *Machine) Len() int                { return len(m.states) }
func (m *Machine) Dwell() float64          { return m.dwell }
func (m *Machine) Clock() float64          { return m.clock }
func (m *Machine) LastTransition() float64 { return m.lastTransition }

// Successor returns the ring index that follows i.
func (m *Machine) Successor(i int) int {
	return (i + 1) % len(m.states)
}

// States returns the ring in order.
func (m *Machine) States() []*State {
	return append([]*State(nil), m.states...)
}
