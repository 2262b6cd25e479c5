package schedule

import (
	"fmt"
	"math"
	"time"

	"gonum.org/v1/gonum/mat"

	"github.com/san-kum/dimreduce/internal/embed"
	"github.com/san-kum/dimreduce/internal/sim"
)

type Phase int

const (
	PhaseWarmup Phase = iota
	PhaseMain
	PhaseSqueezeRampup
	PhaseSqueezeFinal
)

func (p Phase) String() string {
	switch p {
	case PhaseWarmup:
		return "warmup"
	case PhaseMain:
		return "main"
	case PhaseSqueezeRampup:
		return "squeeze_rampup"
	case PhaseSqueezeFinal:
		return "squeeze_final"
	default:
		return fmt.Sprintf("phase(%d)", int(p))
	}
}

// Observer is invoked with the coordinates before every step. Returning an
// error aborts the run.
type Observer interface {
	Observe(iter int, coords mat.Matrix) error
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(iter int, coords mat.Matrix) error

func (f ObserverFunc) Observe(iter int, coords mat.Matrix) error { return f(iter, coords) }

// Record describes one completed iteration.
type Record struct {
	Iter    int
	Phase   Phase
	Params  sim.Params
	Stats   sim.StepStats
	Elapsed time.Duration
}

type Metric interface {
	Name() string
	Observe(rec Record)
	Value() float64
	Reset()
}

// Config is a fully resolved schedule. Forces are absolute, already scaled
// by the average affinity.
type Config struct {
	Iters             int     `yaml:"n_iters" json:"n_iters"`
	WarmupIters       int     `yaml:"warmup_iters" json:"warmup_iters"`
	Rate              float64 `yaml:"rate" json:"rate"`
	FinalRate         float64 `yaml:"final_rate" json:"final_rate"`
	InertiaMultiplier float64 `yaml:"inertia_multiplier" json:"inertia_multiplier"`
	CentralForce      float64 `yaml:"central_force" json:"central_force"`

	// Retain is the number of leading coordinates kept; the rest are squeezed.
	Retain                  int     `yaml:"retain" json:"retain"`
	SqueezeRampupRate       float64 `yaml:"squeeze_rampup_rate" json:"squeeze_rampup_rate"`
	SqueezeRampupIters      int     `yaml:"squeeze_rampup_iters" json:"squeeze_rampup_iters"`
	SqueezeFinalForce       float64 `yaml:"squeeze_final_force" json:"squeeze_final_force"`
	SqueezeFinalInitialRate float64 `yaml:"squeeze_final_initial_rate" json:"squeeze_final_initial_rate"`
	SqueezeFinalIters       int     `yaml:"squeeze_final_iters" json:"squeeze_final_iters"`

	Debug bool `yaml:"-" json:"-"`
}

// Validate checks the config against d output coordinates.
func (c Config) Validate(d int) error {
	bad := func(format string, args ...any) error {
		return fmt.Errorf("%w: "+format, append([]any{embed.ErrInvalidConfig}, args...)...)
	}

	switch {
	case c.Iters < 0:
		return bad("n_iters must be non-negative, got %d", c.Iters)
	case c.WarmupIters < 0 || c.WarmupIters > c.Iters:
		return bad("warmup_iters must be within [0, %d], got %d", c.Iters, c.WarmupIters)
	case !positive(c.Rate):
		return bad("rate must be positive, got %g", c.Rate)
	case !nonNegative(c.FinalRate):
		return bad("final_rate must be non-negative, got %g", c.FinalRate)
	case !nonNegative(c.InertiaMultiplier) || c.InertiaMultiplier > 1:
		return bad("inertia_multiplier must be within [0, 1], got %g", c.InertiaMultiplier)
	case !nonNegative(c.CentralForce):
		return bad("central_force must be non-negative, got %g", c.CentralForce)
	case c.Retain < 0 || c.Retain > d:
		return bad("retain must be within [0, %d], got %d", d, c.Retain)
	}

	if c.Retain == d {
		return nil
	}
	switch {
	case c.SqueezeRampupIters < 0:
		return bad("squeeze_rampup_iters must be non-negative, got %d", c.SqueezeRampupIters)
	case c.SqueezeFinalIters < 0:
		return bad("squeeze_final_iters must be non-negative, got %d", c.SqueezeFinalIters)
	case c.SqueezeRampupIters > 0 && !positive(c.SqueezeRampupRate):
		return bad("squeeze_rampup_rate must be positive, got %g", c.SqueezeRampupRate)
	case c.SqueezeFinalIters > 0 && !positive(c.SqueezeFinalInitialRate):
		return bad("squeeze_final_initial_rate must be positive, got %g", c.SqueezeFinalInitialRate)
	case !nonNegative(c.SqueezeFinalForce):
		return bad("squeeze_final_force must be non-negative, got %g", c.SqueezeFinalForce)
	}
	return nil
}

// TotalIters is the number of steps a run performs with d output coordinates.
func (c Config) TotalIters(d int) int {
	total := c.Iters
	if c.Retain < d {
		total += (d-c.Retain)*c.SqueezeRampupIters + c.SqueezeFinalIters
	}
	return total
}

// Result summarises a run.
type Result struct {
	Iterations    int
	Phases        map[Phase]int
	Metrics       map[string]float64
	FinalMaxForce float64
}

func positive(v float64) bool    { return v > 0 && !math.IsInf(v, 0) }
func nonNegative(v float64) bool { return v >= 0 && !math.IsInf(v, 0) }
