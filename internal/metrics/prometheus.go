package metrics

import (
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/san-kum/vfparticles/internal/behavior"
	"github.com/san-kum/vfparticles/internal/compute"
	"github.com/san-kum/vfparticles/internal/field"
)

// Collector exports simulation counters on its own registry so independent
// simulations do not collide on the global one.
type Collector struct {
	Registry *prometheus.Registry

	dispatches  *prometheus.CounterVec
	transitions *prometheus.CounterVec
	activeState *prometheus.GaugeVec
	tickSeconds prometheus.Histogram
	particles   prometheus.Gauge
}

func NewCollector() *Collector {
	c := &Collector{
		Registry: prometheus.NewRegistry(),
		dispatches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "vfparticles",
			Name:      "dispatches_total",
			Help:      "Compute dispatches submitted, by entry point.",
		}, []string{"entry"}),
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "vfparticles",
			Name:      "state_transitions_total",
			Help:      "Behavior ring transitions, by source and target state.",
		}, []string{"from", "to"}),
		activeState: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "vfparticles",
			Name:      "active_state",
			Help:      "1 for the active behavior state, 0 otherwise.",
		}, []string{"state"}),
		tickSeconds: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "vfparticles",
			Name:      "tick_seconds",
			Help:      "Host time spent submitting one frame.",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 2, 14),
		}),
		particles: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "vfparticles",
			Name:      "particles",
			Help:      "Particle population of the running simulation.",
		}),
	}
	c.Registry.MustRegister(c.dispatches, c.transitions, c.activeState, c.tickSeconds, c.particles)
	return c
}

func (c *Collector) SetParticles(n int) { c.particles.Set(float64(n)) }

func (c *Collector) ObserveTick(d time.Duration) { c.tickSeconds.Observe(d.Seconds()) }

// SetActive marks name as the active state and clears the others in states.
func (c *Collector) SetActive(name string, states []string) {
	for _, s := range states {
		c.activeState.WithLabelValues(s).Set(0)
	}
	c.activeState.WithLabelValues(name).Set(1)
}

// OnTransition implements behavior.Observer.
func (c *Collector) OnTransition(from, to *behavior.State, at float64) {
	c.transitions.WithLabelValues(from.Name(), to.Name()).Inc()
	c.activeState.WithLabelValues(from.Name()).Set(0)
	c.activeState.WithLabelValues(to.Name()).Set(1)
}

func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.Registry, promhttp.HandlerOpts{})
}

// Instrument wraps dev so every dispatch increments the per-entry counter.
func (c *Collector) Instrument(dev compute.Device) compute.Device {
	return &instrumentedDevice{Device: dev, c: c, counters: make(map[compute.EntryID]prometheus.Counter)}
}

type instrumentedDevice struct {
	compute.Device
	c *Collector

	mu       sync.Mutex
	counters map[compute.EntryID]prometheus.Counter
}

func (d *instrumentedDevice) Entry(name string) (compute.EntryID, error) {
	id, err := d.Device.Entry(name)
	if err != nil {
		return id, err
	}
	d.mu.Lock()
	d.counters[id] = d.c.dispatches.WithLabelValues(name)
	d.mu.Unlock()
	return id, nil
}

func (d *instrumentedDevice) Dispatch(entry compute.EntryID, groups int) {
	d.mu.Lock()
	counter := d.counters[entry]
	d.mu.Unlock()
	if counter != nil {
		counter.Inc()
	}
	d.Device.Dispatch(entry, groups)
}

// Snapshot forwards readback so instrumentation stays transparent to renderers.
func (d *instrumentedDevice) Snapshot(buf compute.Buffer, dst []field.Particle) (int, error) {
	s, ok := d.Device.(compute.Snapshotter)
	if !ok {
		return 0, errors.New("metrics: wrapped device does not support readback")
	}
	return s.Snapshot(buf, dst)
}
