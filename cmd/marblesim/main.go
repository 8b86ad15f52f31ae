package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"text/tabwriter"
	"time"

	"github.com/guptarohit/asciigraph"
	"github.com/spf13/cobra"

	"github.com/san-kum/marblesim/internal/analysis"
	"github.com/san-kum/marblesim/internal/camera"
	"github.com/san-kum/marblesim/internal/compute"
	"github.com/san-kum/marblesim/internal/config"
	"github.com/san-kum/marblesim/internal/experiment"
	"github.com/san-kum/marblesim/internal/export"
	"github.com/san-kum/marblesim/internal/metrics"
	"github.com/san-kum/marblesim/internal/physics"
	"github.com/san-kum/marblesim/internal/sim"
	"github.com/san-kum/marblesim/internal/spheretree"
	"github.com/san-kum/marblesim/internal/storage"
	"github.com/san-kum/marblesim/internal/viz"
)

var (
	dataDir string
	logPath string

	preset     string
	configFile string
	seed       int64
	numBodies  int
	backend    string
	workers    int
	frameRate  int

	duration   time.Duration
	sampleRate time.Duration
	realtime   bool
	save       bool
	snapOut    string
	snapIn     string

	iterations int
	encodePath string
	svgPath    string
	bounds     bool

	divTicks int
	divEps   float64

	runs  int
	ticks int
)

func main() {
	rootCmd := &cobra.Command{
		Use:          "marblesim",
		Short:        "self-gravitating marble simulation",
		SilenceUsage: true,
		RunE:         runLive,
	}

	rootCmd.PersistentFlags().StringVar(&dataDir, "data", ".marblesim", "data directory")
	rootCmd.PersistentFlags().StringVar(&logPath, "log", "", "log file (default: stderr, or <data>/marblesim.log in the viewer)")
	simFlags(rootCmd)
	rootCmd.Flags().IntVar(&frameRate, "fps", 0, "frame rate (default from config)")

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "run headless for a fixed simulated duration",
		RunE:  runHeadless,
	}
	simFlags(runCmd)
	runCmd.Flags().DurationVar(&duration, "duration", 2*time.Second, "simulated duration")
	runCmd.Flags().DurationVar(&sampleRate, "sample", 100*time.Millisecond, "metric sample interval")
	runCmd.Flags().BoolVar(&realtime, "realtime", false, "pace frames on the wall clock")
	runCmd.Flags().BoolVar(&save, "save", false, "save run statistics to the data directory")
	runCmd.Flags().StringVar(&snapOut, "export", "", "write the final state to a snapshot file")
	runCmd.Flags().StringVar(&snapIn, "from", "", "start from a snapshot file")

	benchCmd := &cobra.Command{
		Use:   "bench",
		Short: "time the acceleration field and the tree build",
		RunE:  runBench,
	}
	simFlags(benchCmd)
	benchCmd.Flags().IntVar(&iterations, "n", 20, "iterations per measurement")

	treeCmd := &cobra.Command{
		Use:   "tree",
		Short: "build and validate a sphere tree for the initial bodies",
		RunE:  runTree,
	}
	simFlags(treeCmd)
	treeCmd.Flags().StringVar(&encodePath, "encode", "", "write the GPU node buffer to a file")
	treeCmd.Flags().StringVar(&svgPath, "svg", "", "write the camera view as SVG")
	treeCmd.Flags().BoolVar(&bounds, "bounds", false, "outline internal spheres in the SVG")

	analyzeCmd := &cobra.Command{
		Use:   "analyze",
		Short: "estimate how fast nearby states diverge",
		RunE:  runAnalyze,
	}
	simFlags(analyzeCmd)
	analyzeCmd.Flags().IntVar(&divTicks, "ticks", analysis.DefaultDivergence().Ticks, "ticks to integrate")
	analyzeCmd.Flags().Float64Var(&divEps, "eps", analysis.DefaultDivergence().Perturbation, "initial perturbation")

	ensembleCmd := &cobra.Command{
		Use:   "ensemble",
		Short: "step several seeds side by side and compare their end states",
		RunE:  runEnsemble,
	}
	simFlags(ensembleCmd)
	ensembleCmd.Flags().IntVar(&runs, "runs", 4, "number of seeds")
	ensembleCmd.Flags().IntVar(&ticks, "ticks", 1000, "ticks per seed")

	presetsCmd := &cobra.Command{
		Use:   "presets",
		Short: "list presets",
		RunE: func(cmd *cobra.Command, args []string) error {
			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "NAME\tBODIES\tGRAVITY\tDAMPING")
			for _, name := range config.ListPresets() {
				cfg := config.GetPreset(name)
				fmt.Fprintf(w, "%s\t%d\t%g\t%g\n", name, cfg.Bodies, cfg.Physics.Gravity, cfg.Physics.Damping)
			}
			return w.Flush()
		},
	}

	configCmd := &cobra.Command{
		Use:   "config [path]",
		Short: "write a config file (default config, or --preset)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.DefaultConfig()
			if preset != "" {
				if cfg = config.GetPreset(preset); cfg == nil {
					return fmt.Errorf("unknown preset: %s (available: %v)", preset, config.ListPresets())
				}
			}
			if err := config.Save(args[0], cfg); err != nil {
				return err
			}
			fmt.Printf("wrote %s\n", args[0])
			return nil
		},
	}
	configCmd.Flags().StringVar(&preset, "preset", "", "preset to write")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "list saved runs",
		RunE:  listRuns,
	}

	plotCmd := &cobra.Command{
		Use:   "plot [run_id]",
		Short: "plot a saved run",
		Args:  cobra.ExactArgs(1),
		RunE:  plotRun,
	}
	plotCmd.Flags().StringVar(&svgPath, "svg", "", "write the momentum series as SVG")

	rootCmd.AddCommand(runCmd, benchCmd, treeCmd, analyzeCmd, ensembleCmd, presetsCmd, configCmd, listCmd, plotCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func simFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&preset, "preset", "", "preset configuration")
	cmd.Flags().StringVar(&configFile, "config", "", "config file path (yaml)")
	cmd.Flags().Int64Var(&seed, "seed", 0, "random seed")
	cmd.Flags().IntVar(&numBodies, "bodies", 0, "number of bodies")
	cmd.Flags().StringVar(&backend, "backend", "", fmt.Sprintf("acceleration backend %v", compute.ListBackends()))
	cmd.Flags().IntVar(&workers, "workers", 0, "backend goroutines (0: one per CPU)")
}

// loadConfig layers defaults, preset, config file and changed flags, in that
// order.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.DefaultConfig()
	if preset != "" {
		if cfg = config.GetPreset(preset); cfg == nil {
			return nil, fmt.Errorf("unknown preset: %s (available: %v)", preset, config.ListPresets())
		}
	}
	if configFile != "" {
		loaded, err := config.LoadOver(configFile, cfg)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
		cfg = loaded
	}

	flags := cmd.Flags()
	if flags.Changed("seed") {
		cfg.Seed = seed
	}
	if flags.Changed("bodies") {
		cfg.Bodies = numBodies
	}
	if flags.Changed("backend") {
		cfg.Backend = backend
	}
	if flags.Changed("workers") {
		cfg.Workers = workers
	}
	if flags.Changed("fps") {
		cfg.FrameRate = frameRate
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt)
}

func runLive(cmd *cobra.Command, args []string) error {
	logger, closeLog, err := setupLogging(logPath, dataDir, true)
	if err != nil {
		return err
	}
	defer closeLog()

	ctx, stop := signalContext()
	defer stop()

	flags := cmd.Flags()
	picker := preset == "" && configFile == "" && !flags.Changed("bodies") && !flags.Changed("seed")
	if picker {
		return viz.Run(ctx, nil, time.Time{}, logger)
	}

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	exp := experiment.New(cfg, logger)
	defer exp.Close()
	start := time.Now()
	if err := exp.Setup(ctx, start); err != nil {
		return err
	}
	return viz.Run(ctx, exp, start, logger)
}

func runHeadless(cmd *cobra.Command, args []string) error {
	logger, closeLog, err := setupLogging(logPath, dataDir, false)
	if err != nil {
		return err
	}
	defer closeLog()

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	exp := experiment.New(cfg, logger)
	var offset float64
	if snapIn != "" {
		snap, err := storage.ImportSnapshot(snapIn)
		if err != nil {
			return err
		}
		exp.WithBodies(snap.Bodies)
		offset = snap.Time
		fmt.Printf("resuming %d bodies from t=%.3fs\n", len(snap.Bodies), snap.Time)
	}
	defer exp.Close()

	ctx, stop := signalContext()
	defer stop()
	if err := exp.Setup(ctx, time.Now()); err != nil {
		return err
	}

	name := preset
	if name == "" {
		name = "custom"
	}
	fmt.Printf("running %s: %d bodies for %s...\n", name, exp.NumBodies(), duration)
	result, err := exp.Run(ctx, experiment.RunOptions{
		Duration:    duration,
		SampleEvery: sampleRate,
		Realtime:    realtime,
	})
	if err != nil {
		return err
	}

	fmt.Printf("completed in %v\n", result.Elapsed.Round(time.Millisecond))
	fmt.Printf("frames: %d  ticks: %d  anomalies: %d\n", result.Frames, result.Stats.Ticks, result.Stats.Anomalies)
	fmt.Println("\nmetrics:")
	for _, name := range sortedKeys(result.Metrics) {
		fmt.Printf("  %s: %.6g\n", name, result.Metrics[name])
	}
	if len(result.Momentum) > 1 {
		fmt.Println()
		fmt.Println(asciigraph.Plot(result.Momentum,
			asciigraph.Height(8),
			asciigraph.Width(70),
			asciigraph.Caption("|momentum| per frame"),
		))
	}

	if save {
		st := storage.New(dataDir)
		if err := st.Init(); err != nil {
			return err
		}
		id, err := st.Save(storage.RunMetadata{
			Preset:    name,
			Seed:      cfg.Seed,
			Bodies:    exp.NumBodies(),
			Backend:   cfg.Backend,
			Dt:        cfg.Dt.Seconds(),
			Duration:  duration.Seconds(),
			Ticks:     result.Stats.Ticks,
			Anomalies: result.Stats.Anomalies,
			Metrics:   result.Metrics,
		}, toStorageSamples(result.Samples, offset))
		if err != nil {
			return err
		}
		fmt.Printf("\nrun id: %s\n", id)
	}

	if snapOut != "" {
		sched := exp.Scheduler()
		simulated := time.Duration(result.Stats.Ticks)*sched.Tick() + result.Stats.Dropped
		snap := storage.Snapshot{
			Time:   offset + simulated.Seconds(),
			Ticks:  result.Stats.Ticks,
			Bodies: result.Final,
		}
		if err := storage.ExportSnapshot(snapOut, snap); err != nil {
			return err
		}
		fmt.Printf("snapshot: %s\n", snapOut)
	}
	return nil
}

func toStorageSamples(samples []experiment.Sample, offset float64) []storage.Sample {
	out := make([]storage.Sample, len(samples))
	for i, s := range samples {
		out[i] = storage.Sample{
			Time:      offset + s.Time.Seconds(),
			Ticks:     s.Ticks,
			Momentum:  s.Momentum,
			Energy:    s.Energy,
			Spread:    s.Spread,
			Anomalies: s.Anomalies,
		}
	}
	return out
}

func runBench(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if iterations < 1 {
		return fmt.Errorf("iterations must be positive")
	}

	bodies := physics.NewBodies(cfg.Bodies, cfg.InitParams(), physics.NewRand(cfg.Seed))
	p := cfg.Params()
	view := camera.New().WorldToCamera()

	fmt.Printf("benchmarking %d bodies, %d iterations\n\n", len(bodies), iterations)
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "STAGE\tTOTAL\tPER ITER")

	for _, name := range compute.ListBackends() {
		be, err := compute.NewBackend(name, cfg.Workers)
		if err != nil {
			return err
		}
		start := time.Now()
		for i := 0; i < iterations; i++ {
			be.Accelerations(bodies, p)
		}
		elapsed := time.Since(start)
		be.Cleanup()
		fmt.Fprintf(w, "field %s\t%v\t%v\n", compute.BackendLabel(be), elapsed.Round(time.Microsecond), (elapsed / time.Duration(iterations)).Round(time.Microsecond))
	}

	start := time.Now()
	for i := 0; i < iterations; i++ {
		spheretree.Build(bodies, view)
	}
	elapsed := time.Since(start)
	fmt.Fprintf(w, "tree build\t%v\t%v\n", elapsed.Round(time.Microsecond), (elapsed / time.Duration(iterations)).Round(time.Microsecond))

	return w.Flush()
}

func runTree(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	bodies := physics.NewBodies(cfg.Bodies, cfg.InitParams(), physics.NewRand(cfg.Seed))
	view := camera.New().WorldToCamera()

	start := time.Now()
	nodes := spheretree.Build(bodies, view)
	elapsed := time.Since(start)

	if err := spheretree.Validate(nodes, len(bodies), 1e-9); err != nil {
		return err
	}
	root := nodes[spheretree.Root(nodes)]
	fmt.Printf("built %d nodes in %v\n", len(nodes), elapsed.Round(time.Microsecond))
	fmt.Printf("depth: %d\n", spheretree.Depth(nodes))
	fmt.Printf("root: center %.3f %.3f %.3f radius %.3f\n", root.Center[0], root.Center[1], root.Center[2], root.Radius)

	if encodePath != "" {
		f, err := os.Create(encodePath)
		if err != nil {
			return err
		}
		if err := spheretree.Encode(f, nodes); err != nil {
			f.Close()
			return fmt.Errorf("encode: %w", err)
		}
		if err := f.Close(); err != nil {
			return err
		}
		fmt.Printf("wrote %d bytes to %s\n", len(nodes)*spheretree.NodeSize, encodePath)
	}

	if svgPath != "" {
		svg := export.TreeToSVG(nodes, viz.DefaultProjection(), 800, 600, bounds)
		if err := os.WriteFile(svgPath, []byte(svg), 0644); err != nil {
			return err
		}
		fmt.Printf("wrote %s\n", svgPath)
	}
	return nil
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	be, err := compute.NewBackend(cfg.Backend, cfg.Workers)
	if err != nil {
		return err
	}
	defer be.Cleanup()

	opts := analysis.DefaultDivergence()
	opts.Ticks = divTicks
	opts.Perturbation = divEps

	bodies := physics.NewBodies(cfg.Bodies, cfg.InitParams(), physics.NewRand(cfg.Seed))
	fmt.Printf("integrating %d bodies for %d ticks...\n", len(bodies), opts.Ticks)
	res, err := analysis.Divergence(bodies, cfg.Params(), be, opts)
	if err != nil {
		return err
	}

	fmt.Printf("divergence exponent: %.4f /s\n", res.Exponent)
	if res.Exponent > 0 {
		fmt.Printf("predictability horizon: ~%.2fs\n", 1/res.Exponent)
	}
	if len(res.Growth) > 1 {
		fmt.Println()
		fmt.Println(asciigraph.Plot(res.Growth,
			asciigraph.Height(8),
			asciigraph.Width(70),
			asciigraph.Caption("log separation growth per interval"),
		))
	}
	return nil
}

func runEnsemble(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if runs < 1 || ticks < 0 {
		return fmt.Errorf("runs must be positive and ticks non-negative")
	}

	ctx, stop := signalContext()
	defer stop()

	p := cfg.Params()
	fmt.Printf("stepping %d seeds x %d bodies for %d ticks...\n", runs, cfg.Bodies, ticks)
	start := time.Now()
	results, err := sim.NewEnsemble(p, cfg.InitParams(), cfg.Bodies, runs, cfg.Seed).Run(ctx, ticks)
	if err != nil {
		return err
	}
	fmt.Printf("completed in %v\n\n", time.Since(start).Round(time.Millisecond))

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "SEED\tTICKS\tRMS RADIUS\tENERGY")
	for _, r := range results {
		fmt.Fprintf(w, "%d\t%d\t%.4f\t%.4g\n", r.Seed, r.Ticks, metrics.RMSRadius(r.Bodies), metrics.TotalEnergy(r.Bodies, p.Gravity))
	}
	return w.Flush()
}

func listRuns(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	runs, err := st.List()
	if err != nil {
		return err
	}

	if len(runs) == 0 {
		fmt.Println("no runs found")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tPRESET\tTIME\tBODIES\tDURATION\tTICKS\tANOMALIES")

	for _, run := range runs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%.2fs\t%d\t%d\n",
			run.ID,
			run.Preset,
			run.Timestamp.Format("2006-01-02 15:04:05"),
			run.Bodies,
			run.Duration,
			run.Ticks,
			run.Anomalies,
		)
	}

	return w.Flush()
}

func plotRun(cmd *cobra.Command, args []string) error {
	runID := args[0]

	st := storage.New(dataDir)
	meta, err := st.Load(runID)
	if err != nil {
		return err
	}

	samples, err := st.LoadSamples(runID)
	if err != nil {
		return err
	}
	if len(samples) < 2 {
		return fmt.Errorf("not enough samples to plot")
	}

	fmt.Printf("run: %s\n", meta.ID)
	fmt.Printf("preset: %s, %d bodies\n", meta.Preset, meta.Bodies)
	fmt.Printf("samples: %d\n\n", len(samples))

	series := []struct {
		caption string
		get     func(storage.Sample) float64
	}{
		{"|momentum|", func(s storage.Sample) float64 { return s.Momentum }},
		{"total energy", func(s storage.Sample) float64 { return s.Energy }},
		{"rms radius", func(s storage.Sample) float64 { return s.Spread }},
	}
	for _, sr := range series {
		data := make([]float64, len(samples))
		for i, s := range samples {
			data[i] = sr.get(s)
		}
		fmt.Println(asciigraph.Plot(data,
			asciigraph.Height(10),
			asciigraph.Width(80),
			asciigraph.Caption(sr.caption),
		))
		fmt.Println()
	}

	if svgPath != "" {
		data := make([]float64, len(samples))
		for i, s := range samples {
			data[i] = s.Momentum
		}
		if err := os.WriteFile(svgPath, []byte(export.SeriesToSVG(data, 800, 300, "#00ffff")), 0644); err != nil {
			return err
		}
		fmt.Printf("wrote %s\n", svgPath)
	}
	return nil
}

func sortedKeys(m map[string]float64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
