package main

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"os"
	"os/signal"
	"sort"
	"text/tabwriter"
	"time"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/guptarohit/asciigraph"
	"github.com/san-kum/vfparticles/internal/compute"
	"github.com/san-kum/vfparticles/internal/config"
	"github.com/san-kum/vfparticles/internal/export"
	"github.com/san-kum/vfparticles/internal/field"
	"github.com/san-kum/vfparticles/internal/gui"
	"github.com/san-kum/vfparticles/internal/metrics"
	"github.com/san-kum/vfparticles/internal/shaders"
	"github.com/san-kum/vfparticles/internal/sim"
	"github.com/san-kum/vfparticles/internal/tui"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	configFile  string
	preset      string
	device      string
	count       int
	seed        int64
	debug       bool
	metricsAddr string

	runFrames int
	runDt     float64
	repel     bool
	svgPath   string

	benchFrames int
	benchDt     float64
	warmup      int
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "vfparticles",
		Short:         "vector field particle simulation",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          runLive,
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&configFile, "config", "", "config file path (yaml), read over --preset")
	pf.StringVar(&preset, "preset", "", "use preset configuration")
	pf.StringVar(&device, "device", "", "compute device: auto, cpu, wgpu, gl (gl only with window)")
	pf.IntVar(&count, "count", 0, "particle count override")
	pf.Int64Var(&seed, "seed", 0, "random seed override (0 keeps the config value)")
	pf.BoolVar(&debug, "debug", false, "development logging")
	pf.StringVar(&metricsAddr, "metrics-addr", "", "serve prometheus metrics on this address")

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "run headless for a number of frames",
		RunE:  runHeadless,
	}
	runCmd.Flags().IntVar(&runFrames, "frames", 600, "frames to run (0 runs until interrupted)")
	runCmd.Flags().Float64Var(&runDt, "dt", 1.0/60, "frame time in seconds")
	runCmd.Flags().BoolVar(&repel, "repel", false, "orbit a repelling pointer around the origin")
	runCmd.Flags().StringVar(&svgPath, "svg", "", "write the last frame as svg")

	liveCmd := &cobra.Command{
		Use:   "live",
		Short: "run with the terminal view",
		RunE:  runLive,
	}

	windowCmd := &cobra.Command{
		Use:   "window",
		Short: "run in a raylib window",
		RunE:  runWindow,
	}

	kernelsCmd := &cobra.Command{
		Use:   "kernels",
		Short: "list compute entry points",
		RunE:  listKernels,
	}

	configCmd := &cobra.Command{
		Use:   "config [path]",
		Short: "write the effective configuration as yaml",
		Args:  cobra.MaximumNArgs(1),
		RunE:  writeConfig,
	}

	presetsCmd := &cobra.Command{
		Use:   "presets",
		Short: "list available presets",
		Run: func(cmd *cobra.Command, args []string) {
			names := config.ListPresets()
			sort.Strings(names)
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "NAME\tPARTICLES\tLIFETIME\tDWELL\tTHREADS\tDEVICE")
			for _, name := range names {
				p := config.GetPreset(name)
				fmt.Fprintf(w, "%s\t%d\t%.1f\t%.0f\t%d\t%s\n",
					name, p.ParticleCount, p.ParticleLifetime, p.StateDwell, p.ThreadsPerGroup, p.Device)
			}
			w.Flush()
		},
	}

	benchCmd := &cobra.Command{
		Use:   "bench",
		Short: "time frame submission and plot it",
		RunE:  runBench,
	}
	benchCmd.Flags().IntVar(&benchFrames, "frames", 300, "frames to time")
	benchCmd.Flags().Float64Var(&benchDt, "dt", 1.0/60, "frame time in seconds")
	benchCmd.Flags().IntVar(&warmup, "warmup", 10, "untimed frames before timing starts")

	rootCmd.AddCommand(runCmd, liveCmd, windowCmd, kernelsCmd, configCmd, presetsCmd, benchCmd)
	return rootCmd
}

func newLogger() (*zap.Logger, error) {
	if debug {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

// loadConfig resolves preset, then file, then flag overrides, in that order.
// Keys missing from the file keep the preset's values.
func loadConfig() (*config.Config, error) {
	cfg := config.DefaultConfig()
	if preset != "" {
		cfg = config.GetPreset(preset)
		if cfg == nil {
			return nil, fmt.Errorf("unknown preset: %s", preset)
		}
	}
	if configFile != "" {
		loaded, err := config.LoadOver(configFile, cfg)
		if err != nil {
			return nil, fmt.Errorf("load config: %w", err)
		}
		cfg = loaded
	}
	if device != "" {
		cfg.Device = device
	}
	if count > 0 {
		cfg.ParticleCount = count
	}
	if seed != 0 {
		cfg.Seed = seed
	}
	return cfg, cfg.Validate()
}

// session bundles what every simulation command sets up and tears down.
type session struct {
	log       *zap.Logger
	dev       compute.Device
	sim       *sim.Simulation
	collector *metrics.Collector
	server    *http.Server
}

// openSession starts a simulation for the commands that never create a GL
// context.
func openSession() (*session, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	if compute.NeedsContext(cfg.Device) {
		return nil, &field.ConfigError{Field: "device", Reason: cfg.Device + " needs a window; use the window command"}
	}
	return startSession(cfg)
}

func startSession(cfg *config.Config) (*session, error) {
	log, err := newLogger()
	if err != nil {
		return nil, err
	}

	dev, err := compute.Open(cfg.Device, compute.Options{
		ThreadsPerGroup: cfg.ThreadsPerGroup,
		MaxBufferBytes:  cfg.MaxBufferBytes,
	})
	if err != nil {
		log.Sync()
		return nil, err
	}
	log.Debug("device selected", zap.String("requested", cfg.Device), zap.String("device", dev.Name()))

	s := &session{log: log, dev: dev, collector: metrics.NewCollector()}
	s.sim, err = sim.Start(cfg, dev, sim.WithLogger(log), sim.WithCollector(s.collector))
	if err != nil {
		dev.Cleanup()
		log.Sync()
		return nil, err
	}

	if metricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", s.collector.Handler())
		s.server = &http.Server{Addr: metricsAddr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
		go func() {
			if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error("metrics server", zap.Error(err))
			}
		}()
		log.Info("serving metrics", zap.String("addr", metricsAddr))
	}
	return s, nil
}

func (s *session) close() {
	if s.server != nil {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		s.server.Shutdown(ctx)
		cancel()
	}
	s.sim.Shutdown()
	s.dev.Cleanup()
	s.log.Sync()
}

func (s *session) requireReadback() {
	if _, ok := s.dev.(compute.Snapshotter); !ok {
		s.log.Warn("device cannot read particles back; the view will stay empty", zap.String("device", s.dev.Name()))
	}
}

func runHeadless(cmd *cobra.Command, args []string) error {
	s, err := openSession()
	if err != nil {
		return err
	}
	defer s.close()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	step := float32(runDt)
	start := time.Now()
	err = s.sim.RunFixed(ctx, runFrames, step, func(frame uint64) (sim.Pointer, bool) {
		if !repel {
			return sim.Pointer{}, true
		}
		angle := float64(frame) * runDt
		return sim.Pointer{Active: true, Position: mgl32.Vec3{
			float32(4 * math.Cos(angle)),
			float32(2 * math.Sin(angle)),
			0,
		}}, true
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	elapsed := time.Since(start)

	if svgPath != "" {
		if err := writeFrameSVG(s, svgPath); err != nil {
			return err
		}
		s.log.Info("wrote frame", zap.String("path", svgPath))
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "RUN\tDEVICE\tFRAMES\tCLOCK\tSTATE\tWALL\tFRAMES/SEC")
	fmt.Fprintf(w, "%s\t%s\t%d\t%.2fs\t%s\t%v\t%.0f\n",
		s.sim.ID().String()[:8], s.dev.Name(), s.sim.Frame(), s.sim.Clock(),
		s.sim.ActiveState().Name(), elapsed.Round(time.Millisecond),
		float64(s.sim.Frame())/elapsed.Seconds())
	return w.Flush()
}

func writeFrameSVG(s *session, path string) error {
	particles := make([]field.Particle, s.sim.Count())
	if _, err := s.sim.Snapshot(particles); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return export.WriteSVG(f, export.Frame{
		Particles: particles,
		Lifetime:  s.sim.Lifetime(),
		Extents:   s.sim.Extents(),
	}, 1280, 720)
}

func runLive(cmd *cobra.Command, args []string) error {
	s, err := openSession()
	if err != nil {
		return err
	}
	defer s.close()
	s.requireReadback()
	return tui.Run(s.sim)
}

func runWindow(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	return gui.Run(func() (*sim.Simulation, func(), error) {
		s, err := startSession(cfg)
		if err != nil {
			return nil, nil, err
		}
		s.requireReadback()
		return s.sim, s.close, nil
	})
}

func listKernels(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ENTRY\tWGSL\tSPIR-V\tGLSL\tCPU")

	wgsl := set(shaders.WGSLEntries(cfg.ThreadsPerGroup))
	var spirv map[string]bool
	prog, err := shaders.Compile(cfg.ThreadsPerGroup)
	if err != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "wgsl: %v\n", err)
	} else {
		spirv = set(prog.Entries)
	}
	glsl := set(shaders.GLSLEntries())
	cpu := compute.NewCPUDevice(compute.Options{ThreadsPerGroup: cfg.ThreadsPerGroup})

	for _, e := range []string{
		compute.EntryLifetime, compute.EntryRepel, compute.EntrySpiral,
		compute.EntryEyes, compute.EntryOpticalIllusion,
	} {
		_, cpuErr := cpu.Entry(e)
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
			e, mark(wgsl[e]), mark(spirv[e]), mark(glsl[e]), mark(cpuErr == nil))
	}
	return w.Flush()
}

func set(names []string) map[string]bool {
	m := make(map[string]bool, len(names))
	for _, n := range names {
		m[n] = true
	}
	return m
}

func mark(ok bool) string {
	if ok {
		return "yes"
	}
	return "-"
}

func writeConfig(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	path := "vfparticles.yaml"
	if len(args) == 1 {
		path = args[0]
	}
	if err := config.Save(path, cfg); err != nil {
		return err
	}
	fmt.Printf("wrote %s\n", path)
	return nil
}

func runBench(cmd *cobra.Command, args []string) error {
	if warmup < 0 {
		return &field.ConfigError{Field: "warmup", Reason: "must not be negative"}
	}
	s, err := openSession()
	if err != nil {
		return err
	}
	defer s.close()

	ft := metrics.NewFrameTime(benchFrames)
	step := float32(benchDt)
	for i := 0; i < warmup+benchFrames; i++ {
		if i == warmup {
			// Drop pipeline creation and first uploads from the summary.
			ft.Reset()
		}
		start := time.Now()
		s.sim.Tick(step, i%2 == 0, mgl32.Vec3{})
		ft.Observe(time.Since(start))
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "benchmarking %d particles on %s\n\n", s.sim.Count(), s.dev.Name())
	if samples := ft.Samples(); len(samples) > 1 {
		fmt.Fprintln(out, asciigraph.Plot(samples,
			asciigraph.Height(10),
			asciigraph.Width(80),
			asciigraph.Caption("submit time per frame (ms)"),
		))
		fmt.Fprintln(out)
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "FRAMES\tMEAN\tFRAMES/SEC\tPARTICLES/SEC")
	mean := ft.Value()
	fps := 0.0
	if mean > 0 {
		fps = 1000 / mean
	}
	fmt.Fprintf(w, "%d\t%.3fms\t%.0f\t%.3g\n", benchFrames, mean, fps, fps*float64(s.sim.Count()))
	return w.Flush()
}
