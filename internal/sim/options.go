package sim

import (
	"math/rand"

	"github.com/san-kum/vfparticles/internal/behavior"
	"github.com/san-kum/vfparticles/internal/metrics"
	"go.uber.org/zap"
)

// Option customizes a Simulation at Start.
type Option func(*options)

type options struct {
	log       *zap.Logger
	collector *metrics.Collector
	observers []behavior.Observer
	rng       *rand.Rand
}

func defaultOptions() options {
	return options{log: zap.NewNop()}
}

func WithLogger(log *zap.Logger) Option {
	return func(o *options) {
		if log != nil {
			o.log = log
		}
	}
}

// WithCollector instruments the device and reports transitions and tick
// timings to c.
func WithCollector(c *metrics.Collector) Option {
	return func(o *options) { o.collector = c }
}

// WithObserver registers an extra transition observer on the state machine.
func WithObserver(obs behavior.Observer) Option {
	return func(o *options) { o.observers = append(o.observers, obs) }
}

// WithRand overrides the seed policy of the configuration.
func WithRand(rng *rand.Rand) Option {
	return func(o *options) { o.rng = rng }
}
