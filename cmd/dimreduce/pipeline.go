package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"strconv"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/san-kum/dimreduce/internal/affinity"
	"github.com/san-kum/dimreduce/internal/config"
	"github.com/san-kum/dimreduce/internal/embed"
	"github.com/san-kum/dimreduce/internal/metrics"
	"github.com/san-kum/dimreduce/internal/schedule"
	"github.com/san-kum/dimreduce/internal/sim"
	"github.com/san-kum/dimreduce/internal/storage"
	"github.com/san-kum/dimreduce/internal/table"
)

// pipeline is everything a run needs once the input has been read.
type pipeline struct {
	source   string
	dims     int
	ds       *table.Dataset
	sim      *sim.Simulator
	schedule schedule.Config
	opts     config.RunOptions
	write    table.WriteOptions
	logger   *slog.Logger

	history  *metrics.History
	stepTime *metrics.StepTime
	prom     *metrics.Prometheus
}

func newLogger(w io.Writer) *slog.Logger {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// loadConfig layers defaults < preset < config file < explicit flags.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := &config.Config{}

	if preset != "" {
		p := config.GetPreset(preset)
		if p == nil {
			return nil, fmt.Errorf("unknown preset: %s (available: %v)", preset, config.ListPresets())
		}
		cfg = cfg.Merge(p)
	}

	if configFile != "" {
		fileCfg, err := config.Load(configFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
		cfg = cfg.Merge(fileCfg)
	}

	return cfg.Merge(flagConfig(cmd)), nil
}

// flagConfig holds only the flags set on the command line.
func flagConfig(cmd *cobra.Command) *config.Config {
	f := cmd.Flags()
	c := &config.Config{}

	if f.Changed("n-iters") {
		c.Iters = config.Int(nIters)
	}
	if f.Changed("warmup-iterations") {
		c.WarmupIters = config.Int(warmupIters)
	}
	if f.Changed("rate") {
		c.Rate = config.Float(rate)
	}
	if f.Changed("final-rate") {
		c.FinalRate = config.Float(finalRate)
	}
	if f.Changed("inertia-multiplier") {
		c.InertiaMultiplier = config.Float(inertiaMultiplier)
	}
	if f.Changed("central-force") {
		c.CentralForce = config.Float(centralForce)
	}
	if f.Changed("same-particle-force") {
		c.SameParticleForce = config.Float(sameParticleForce)
	}
	if f.Changed("retain") {
		c.Retain = config.Int(retain)
	}
	if f.Changed("squeeze-rampup-rate") {
		c.SqueezeRampupRate = config.Float(squeezeRampupRate)
	}
	if f.Changed("squeeze-rampup-iters") {
		c.SqueezeRampupIters = config.Int(squeezeRampupIters)
	}
	if f.Changed("squeeze-final-force") {
		c.SqueezeFinalForce = config.Float(squeezeFinalForce)
	}
	if f.Changed("squeeze-final-initial-rate") {
		c.SqueezeFinalInitialRate = config.Float(squeezeFinalInitialRate)
	}
	if f.Changed("squeeze-final-iters") {
		c.SqueezeFinalIters = config.Int(squeezeFinalIters)
	}
	if f.Changed("random-seed") {
		c.Seed = config.Uint64(seed)
	}
	if f.Changed("normalize") {
		c.Normalize = config.Bool(normalize)
	}
	if f.Changed("workers") {
		c.Workers = config.Int(workers)
	}
	return c
}

func parseDelimiters() (field, rec byte, err error) {
	field, err = table.ParseDelimiter(delimiter)
	if err != nil {
		return 0, 0, fmt.Errorf("--delimiter: %w", err)
	}
	if recordDelimiter != "" {
		rec, err = table.ParseDelimiter(recordDelimiter)
		if err != nil {
			return 0, 0, fmt.Errorf("--record-delimiter: %w", err)
		}
	}
	return field, rec, nil
}

func openInput(args []string) (io.ReadCloser, string, error) {
	if len(args) < 3 || args[2] == "-" {
		return io.NopCloser(os.Stdin), "stdin", nil
	}
	f, err := os.Open(args[2])
	if err != nil {
		return nil, "", err
	}
	return f, filepath.Base(args[2]), nil
}

func preparePipeline(cmd *cobra.Command, args []string, logger *slog.Logger) (*pipeline, error) {
	columns, err := table.ParseColumns(args[0])
	if err != nil {
		return nil, err
	}
	dims, err := strconv.Atoi(args[1])
	if err != nil || dims < 1 {
		return nil, fmt.Errorf("n_out_coords must be a positive integer, got %q", args[1])
	}
	fieldDelim, recDelim, err := parseDelimiters()
	if err != nil {
		return nil, err
	}
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}

	in, source, err := openInput(args)
	if err != nil {
		return nil, err
	}
	defer in.Close()

	ds, err := table.Read(bufio.NewReader(in), table.ReadOptions{
		Columns:         columns,
		WeightColumn:    weightColumn,
		NoHeader:        noHeader,
		Delimiter:       fieldDelim,
		RecordDelimiter: recDelim,
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", source, err)
	}

	opts := cfg.Options()
	if opts.Workers <= 0 {
		opts.Workers = runtime.GOMAXPROCS(0)
	}
	if opts.Normalize {
		affinity.Normalize(ds.Input)
	}

	aff := affinity.Build(ds.Input, opts.SameParticleForce)
	avg := affinity.Average(aff)
	sc, err := config.Resolve(cfg, dims, avg)
	if err != nil {
		return nil, err
	}
	sc.Debug = debug

	s, err := sim.New(embed.RandomUniform(ds.Len(), dims, opts.Seed), ds.Weights, aff, sim.Options{
		Momentum: true,
		Workers:  opts.Workers,
		Logger:   logger,
	})
	if err != nil {
		return nil, err
	}

	logger.Debug("input",
		"source", source,
		"rows", ds.Len(),
		"columns", len(columns),
		"average_affinity", avg,
		"same_particle_force", opts.SameParticleForce,
		"seed", opts.Seed,
		"workers", opts.Workers,
	)

	p := &pipeline{
		source:   source,
		dims:     dims,
		ds:       ds,
		sim:      s,
		schedule: sc,
		opts:     opts,
		write:    table.WriteOptions{Delimiter: fieldDelim, RecordDelimiter: recDelim},
		logger:   logger,
		history:  metrics.NewHistory(),
		stepTime: metrics.NewStepTime(),
	}
	if metricsFile != "" {
		p.prom = metrics.NewPrometheus()
	}
	return p, nil
}

func (p *pipeline) controller(extra ...schedule.Option) *schedule.Controller {
	opts := []schedule.Option{
		schedule.WithLogger(p.logger),
		schedule.WithMetrics(p.history, p.stepTime),
	}
	if p.prom != nil {
		opts = append(opts, schedule.WithMetrics(p.prom))
	}
	if saveEvery > 0 {
		opts = append(opts, schedule.WithObserver(&table.SnapshotWriter{
			Every:   saveEvery,
			Dir:     snapshotDir,
			Prefix:  "dimreduce_",
			Header:  p.ds.Header,
			Records: p.ds.Records,
			Options: p.write,
		}))
	}
	return schedule.New(p.sim, p.schedule, append(opts, extra...)...)
}

func (p *pipeline) writeOutput(stdout io.Writer) error {
	w := stdout
	if output != "" {
		f, err := os.Create(output)
		if err != nil {
			return err
		}
		defer f.Close()
		w = f
	}

	bw := bufio.NewWriter(w)
	if err := table.NewWriter(bw, p.write).WriteAll(p.ds.Header, p.ds.Records, p.sim.Coords()); err != nil {
		return err
	}
	return bw.Flush()
}

// finish writes the result and the optional side outputs, then logs a
// summary.
func (p *pipeline) finish(res *schedule.Result, elapsed time.Duration, stdout io.Writer) error {
	if !embed.IsFinite(p.sim.Coords()) {
		return fmt.Errorf("simulation produced non-finite coordinates")
	}
	if err := p.writeOutput(stdout); err != nil {
		return fmt.Errorf("write output: %w", err)
	}

	if p.prom != nil {
		if err := p.prom.WriteTextfile(metricsFile); err != nil {
			return fmt.Errorf("write metrics: %w", err)
		}
	}

	coords := p.sim.Coords()
	res.Metrics["squeeze_residual"] = metrics.SqueezeResidual(coords, p.schedule.Retain)
	res.Metrics["coord1_spread"] = metrics.Spread(coords, 0)

	attrs := []any{
		"rows", p.ds.Len(),
		"dims", p.dims,
		"iterations", res.Iterations,
		"elapsed", elapsed.Round(time.Millisecond),
		"final_max_force", res.FinalMaxForce,
		"squeeze_residual", res.Metrics["squeeze_residual"],
	}

	if record {
		st := storage.New(dataDir)
		if err := st.Init(); err != nil {
			return err
		}
		runID, err := st.Save(storage.RunMetadata{
			Source:   p.source,
			Rows:     p.ds.Len(),
			Dims:     p.dims,
			Retain:   p.schedule.Retain,
			Seed:     p.opts.Seed,
			Schedule: p.schedule,
			Metrics:  res.Metrics,
		}, p.history.Samples())
		if err != nil {
			return fmt.Errorf("record run: %w", err)
		}
		attrs = append(attrs, "run_id", runID)
	}

	p.logger.Info("done", attrs...)
	return nil
}

func runReduce(cmd *cobra.Command, args []string) error {
	logger := newLogger(cmd.ErrOrStderr())
	p, err := preparePipeline(cmd, args, logger)
	if err != nil {
		return err
	}

	ctx, stop := signalContext(cmd.Context())
	defer stop()

	start := time.Now()
	res, err := p.controller().Run(ctx)
	if err != nil {
		return err
	}
	return p.finish(res, time.Since(start), cmd.OutOrStdout())
}

func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	if parent == nil {
		parent = context.Background()
	}
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}
