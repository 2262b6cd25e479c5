package metrics

import (
	"time"

	"github.com/san-kum/dimreduce/internal/schedule"
)

// Sample is the per-iteration subset of a schedule.Record kept for plots and
// run records.
type Sample struct {
	Iter           int
	Phase          string
	Rate           float64
	MaxForce       float64
	MovementScaler float64
	SqueezeForce   float64
}

// History keeps every sample of a run. Its value is the last max force.
type History struct {
	samples []Sample
}

func NewHistory() *History {
	return &History{}
}

func (h *History) Name() string { return "final_max_force" }

func (h *History) Observe(rec schedule.Record) {
	h.samples = append(h.samples, Sample{
		Iter:           rec.Iter,
		Phase:          rec.Phase.String(),
		Rate:           rec.Params.Rate,
		MaxForce:       rec.Stats.MaxForce,
		MovementScaler: rec.Stats.MovementScaler,
		SqueezeForce:   rec.Params.SqueezeForce,
	})
}

func (h *History) Value() float64 {
	if len(h.samples) == 0 {
		return 0
	}
	return h.samples[len(h.samples)-1].MaxForce
}

func (h *History) Reset() { h.samples = nil }

func (h *History) Samples() []Sample { return h.samples }

// Series extracts one field across all samples.
func (h *History) Series(field func(Sample) float64) []float64 {
	out := make([]float64, len(h.samples))
	for i, s := range h.samples {
		out[i] = field(s)
	}
	return out
}

// StepTime is the mean wall time per step in milliseconds.
type StepTime struct {
	total   time.Duration
	samples int
}

func NewStepTime() *StepTime {
	return &StepTime{}
}

func (s *StepTime) Name() string { return "mean_step_ms" }

func (s *StepTime) Observe(rec schedule.Record) {
	s.total += rec.Elapsed
	s.samples++
}

func (s *StepTime) Value() float64 {
	if s.samples == 0 {
		return 0
	}
	return float64(s.total.Microseconds()) / 1000 / float64(s.samples)
}

func (s *StepTime) Reset() {
	s.total = 0
	s.samples = 0
}
