// Package sim drives the particle population frame by frame: pointer repulsion,
// lifetime aging, then the kernels of the active behavior state.
package sim

import (
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/google/uuid"
	"github.com/san-kum/vfparticles/internal/behavior"
	"github.com/san-kum/vfparticles/internal/compute"
	"github.com/san-kum/vfparticles/internal/config"
	"github.com/san-kum/vfparticles/internal/field"
	"github.com/san-kum/vfparticles/internal/kernel"
	"github.com/san-kum/vfparticles/internal/metrics"
	"go.uber.org/zap"
)

var (
	errNilDevice = errors.New("sim: nil compute device")
	errShutdown  = errors.New("sim: simulation is shut down")
)

// Simulation owns the particle buffer, the global kernels and the behavior ring.
// All methods must be called from the goroutine that submits frames.
type Simulation struct {
	id  uuid.UUID
	cfg config.Config
	dev compute.Device
	log *zap.Logger

	collector *metrics.Collector

	buf      compute.Buffer
	lifetime *kernel.Binding
	repel    *kernel.Binding
	machine  *behavior.Machine
	groups   int

	frame  uint64
	closed bool
}

// Start validates cfg, seeds the particle buffer on dev, sets the static kernel
// parameters and builds the behavior ring. Nothing touches the device when the
// configuration is invalid; anything acquired before a later failure is released.
// The caller keeps ownership of dev.
func Start(cfg *config.Config, dev compute.Device, opts ...Option) (*Simulation, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("sim: %w", err)
	}
	if dev == nil {
		return nil, errNilDevice
	}
	if o.collector != nil {
		dev = o.collector.Instrument(dev)
	}

	s := &Simulation{
		id:        uuid.New(),
		cfg:       *cfg,
		dev:       dev,
		collector: o.collector,
		groups:    field.GroupCount(cfg.ParticleCount, cfg.ThreadsPerGroup),
	}
	s.log = o.log.With(
		zap.String("run_id", s.id.String()),
		zap.String("device", dev.Name()),
	)

	rng := o.rng
	if rng == nil {
		rng = rand.New(rand.NewSource(seedFor(cfg.Seed)))
	}
	particles, err := field.Initialize(cfg.ParticleCount, cfg.Extents(), cfg.ParticleLifetime, rng)
	if err != nil {
		return nil, fmt.Errorf("sim: %w", err)
	}

	s.buf, err = dev.NewBuffer(particles)
	if err != nil {
		return nil, fmt.Errorf("sim: upload %d particles: %w", cfg.ParticleCount, err)
	}

	if err := s.bind(o.observers); err != nil {
		s.buf.Release()
		s.log.Error("startup failed", zap.Error(err))
		return nil, err
	}

	if s.collector != nil {
		s.collector.SetParticles(cfg.ParticleCount)
		names := make([]string, 0, s.machine.Len())
		for _, st := range s.machine.States() {
			names = append(names, st.Name())
		}
		s.collector.SetActive(s.machine.Active().Name(), names)
	}

	s.log.Info("simulation started",
		zap.Int("particles", cfg.ParticleCount),
		zap.Int("threads_per_group", cfg.ThreadsPerGroup),
		zap.Int("groups", s.groups),
		zap.Float64("state_dwell", cfg.StateDwell),
		zap.String("state", s.machine.Active().Name()),
	)
	return s, nil
}

func (s *Simulation) bind(observers []behavior.Observer) error {
	s.dev.SetFloat(compute.ParamParticleLifetime, s.cfg.ParticleLifetime)
	s.dev.SetFloat(compute.ParamRepelRadius, s.cfg.RepelRadius)
	s.dev.SetFloat(compute.ParamRepelPower, s.cfg.RepelPower)

	var err error
	s.lifetime, err = kernel.Bind(s.dev, compute.EntryLifetime, s.buf, s.cfg.ThreadsPerGroup)
	if err != nil {
		return fmt.Errorf("sim: %w", err)
	}
	s.repel, err = kernel.Bind(s.dev, compute.EntryRepel, s.buf, s.cfg.ThreadsPerGroup)
	if err != nil {
		return fmt.Errorf("sim: %w", err)
	}

	states, err := behavior.BuildRing(s.dev, s.buf, s.cfg.ThreadsPerGroup, behavior.ReferenceRing)
	if err != nil {
		return fmt.Errorf("sim: %w", err)
	}
	s.machine, err = behavior.NewMachine(s.cfg.StateDwell, states...)
	if err != nil {
		return fmt.Errorf("sim: %w", err)
	}

	s.machine.AddObserver(&transitionLog{log: s.log})
	if s.collector != nil {
		s.machine.AddObserver(s.collector)
	}
	for _, obs := range observers {
		s.machine.AddObserver(obs)
	}
	return nil
}

func seedFor(seed int64) int64 {
	if seed != 0 {
		return seed
	}
	return time.Now().UnixNano()
}

// Tick submits one frame. elapsed is the host frame time in seconds; pointer is
// the repulsion center in simulation space and is only used when pointerActive.
// Ticks after Shutdown are ignored.
func (s *Simulation) Tick(elapsed float32, pointerActive bool, pointer mgl32.Vec3) {
	if s.closed {
		return
	}
	start := time.Now()

	s.dev.SetFloat(compute.ParamDeltaTime, elapsed)
	if pointerActive {
		s.dev.SetVector(compute.ParamRepelPosition, pointer)
		s.repel.Dispatch(s.groups)
	}
	s.lifetime.Dispatch(s.groups)

	s.machine.Update(float64(elapsed))
	s.machine.Active().Advance()
	s.frame++

	if s.collector != nil {
		s.collector.ObserveTick(time.Since(start))
	}
}

// Shutdown releases the particle buffer. It is safe to call more than once.
func (s *Simulation) Shutdown() {
	if s.closed {
		return
	}
	s.closed = true
	s.buf.Release()
	s.log.Info("simulation stopped", zap.Uint64("frames", s.frame))
}

// Snapshot copies the particle buffer into dst for host-side renderers. It
// returns the number of particles copied.
func (s *Simulation) Snapshot(dst []field.Particle) (int, error) {
	if s.closed {
		return 0, errShutdown
	}
	snap, ok := s.dev.(compute.Snapshotter)
	if !ok {
		return 0, fmt.Errorf("sim: device %s cannot read back buffers", s.dev.Name())
	}
	return snap.Snapshot(s.buf, dst)
}

func (s *Simulation) ID() uuid.UUID                { return s.id }
func (s *Simulation) Buffer() compute.Buffer       { return s.buf }
func (s *Simulation) Lifetime() float32            { return s.cfg.ParticleLifetime }
func (s *Simulation) Count() int                   { return s.cfg.ParticleCount }
func (s *Simulation) Extents() mgl32.Vec3          { return s.cfg.Extents() }
func (s *Simulation) Frame() uint64                { return s.frame }
func (s *Simulation) Clock() float64               { return s.machine.Clock() }
func (s *Simulation) ActiveState() *behavior.State { return s.machine.Active() }
func (s *Simulation) Machine() *behavior.Machine   { return s.machine }

type transitionLog struct {
	log *zap.Logger
}

func (t *transitionLog) OnTransition(from, to *behavior.State, at float64) {
	t.log.Info("behavior transition",
		zap.String("from", from.Name()),
		zap.String("to", to.Name()),
		zap.Strings("kernels", to.Entries()),
		zap.Float64("clock", at),
	)
}
