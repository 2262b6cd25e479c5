package schedule

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/san-kum/dimreduce/internal/sim"
)

type Controller struct {
	sim       *sim.Simulator
	cfg       Config
	observers []Observer
	metrics   []Metric
	logger    *slog.Logger

	iter   int
	phase  Phase
	result *Result
}

type Option func(*Controller)

func WithObserver(o Observer) Option {
	return func(c *Controller) { c.observers = append(c.observers, o) }
}

func WithMetrics(m ...Metric) Option {
	return func(c *Controller) { c.metrics = append(c.metrics, m...) }
}

func WithLogger(l *slog.Logger) Option {
	return func(c *Controller) { c.logger = l }
}

func New(s *sim.Simulator, cfg Config, opts ...Option) *Controller {
	c := &Controller{
		sim:       s,
		cfg:       cfg,
		observers: make([]Observer, 0),
		metrics:   make([]Metric, 0),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return c
}

// Iteration returns the number of steps performed so far.
func (c *Controller) Iteration() int { return c.iter }

// Run executes every phase. On error the partial result is returned along
// with it.
func (c *Controller) Run(ctx context.Context) (*Result, error) {
	_, d := c.sim.Dims()
	cfg := c.cfg
	if err := cfg.Validate(d); err != nil {
		return nil, err
	}

	for _, m := range c.metrics {
		m.Reset()
	}
	c.iter = 0
	c.result = &Result{
		Phases:  make(map[Phase]int),
		Metrics: make(map[string]float64),
	}

	c.logger.Debug("schedule",
		"n_iters", cfg.Iters,
		"warmup_iters", cfg.WarmupIters,
		"rate", cfg.Rate,
		"final_rate", cfg.FinalRate,
		"central_force", cfg.CentralForce,
		"inertia_multiplier", cfg.InertiaMultiplier,
		"retain", cfg.Retain,
		"squeeze_final_force", cfg.SqueezeFinalForce,
		"total_iters", cfg.TotalIters(d),
	)

	p := sim.Params{
		Rate:              cfg.Rate,
		CentralForce:      cfg.CentralForce,
		SqueezeFrom:       d,
		SqueezeForce:      cfg.CentralForce,
		SqueezeFinalForce: cfg.SqueezeFinalForce,
		InertiaMultiplier: cfg.InertiaMultiplier,
		Debug:             cfg.Debug,
	}

	if err := c.runMain(ctx, p); err != nil {
		return c.finish(), err
	}
	if cfg.Retain < d {
		if err := c.runSqueeze(ctx, p, d); err != nil {
			return c.finish(), err
		}
	}
	return c.finish(), nil
}

func (c *Controller) runMain(ctx context.Context, p sim.Params) error {
	cfg := c.cfg

	c.enter(PhaseWarmup)
	for q := 0; q < cfg.WarmupIters; q++ {
		p.Rate = Lerp(0.1*cfg.Rate, cfg.Rate, float64(q)/float64(cfg.WarmupIters))
		if err := c.step(ctx, p); err != nil {
			return err
		}
	}

	c.enter(PhaseMain)
	mainIters := cfg.Iters - cfg.WarmupIters
	for q := 0; q < mainIters; q++ {
		p.Rate = cfg.Rate
		if cfg.SqueezeFinalIters == 0 {
			p.Rate = SquareLerp(cfg.Rate, cfg.FinalRate, float64(q+1)/float64(mainIters))
		}
		if err := c.step(ctx, p); err != nil {
			return err
		}
	}
	return nil
}

func (c *Controller) runSqueeze(ctx context.Context, p sim.Params, d int) error {
	cfg := c.cfg

	c.enter(PhaseSqueezeRampup)
	p.Rate = cfg.SqueezeRampupRate
	p.SqueezeFinalForce = cfg.SqueezeFinalForce
	for boundary := d - 1; boundary >= cfg.Retain; boundary-- {
		c.sim.ResetMomentum()
		p.SqueezeFrom = boundary
		c.logger.Debug("squeezing coordinate", "index", boundary, "iter", c.iter)
		for q := 0; q < cfg.SqueezeRampupIters; q++ {
			t := float64(q+1) / float64(cfg.SqueezeRampupIters)
			p.SqueezeForce = LogLerp(cfg.CentralForce, cfg.SqueezeFinalForce, t)
			if err := c.step(ctx, p); err != nil {
				return err
			}
		}
	}

	c.enter(PhaseSqueezeFinal)
	c.sim.ResetMomentum()
	p.SqueezeFrom = cfg.Retain
	p.SqueezeForce = cfg.SqueezeFinalForce
	for q := 0; q < cfg.SqueezeFinalIters; q++ {
		t := float64(q+1) / float64(cfg.SqueezeFinalIters)
		p.Rate = SquareLerp(cfg.SqueezeFinalInitialRate, cfg.FinalRate, t)
		if err := c.step(ctx, p); err != nil {
			return err
		}
	}
	return nil
}

func (c *Controller) enter(phase Phase) {
	c.phase = phase
	c.logger.Debug("phase", "name", phase.String(), "iter", c.iter)
}

func (c *Controller) step(ctx context.Context, p sim.Params) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	for _, o := range c.observers {
		if err := o.Observe(c.iter, c.sim.Coords()); err != nil {
			return fmt.Errorf("observer at iteration %d: %w", c.iter, err)
		}
	}

	start := time.Now()
	st := c.sim.Step(p)
	rec := Record{
		Iter:    c.iter,
		Phase:   c.phase,
		Params:  p,
		Stats:   st,
		Elapsed: time.Since(start),
	}
	for _, m := range c.metrics {
		m.Observe(rec)
	}

	c.result.Iterations++
	c.result.Phases[c.phase]++
	c.result.FinalMaxForce = st.MaxForce
	c.iter++
	return nil
}

func (c *Controller) finish() *Result {
	for _, m := range c.metrics {
		c.result.Metrics[m.Name()] = m.Value()
	}
	return c.result
}
