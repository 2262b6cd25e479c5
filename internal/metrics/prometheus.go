package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/san-kum/dimreduce/internal/schedule"
)

// Prometheus mirrors run progress into a private registry that can be dumped
// in the text exposition format, e.g. for node_exporter's textfile collector.
type Prometheus struct {
	reg *prometheus.Registry

	rate       prometheus.Gauge
	maxForce   prometheus.Gauge
	scaler     prometheus.Gauge
	iterations *prometheus.CounterVec
	stepTime   prometheus.Histogram

	count int
}

func NewPrometheus() *Prometheus {
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)
	return &Prometheus{
		reg: reg,
		rate: f.NewGauge(prometheus.GaugeOpts{
			Name: "dimreduce_rate",
			Help: "Rate of the most recent step.",
		}),
		maxForce: f.NewGauge(prometheus.GaugeOpts{
			Name: "dimreduce_max_force",
			Help: "Largest absolute force coordinate of the most recent step.",
		}),
		scaler: f.NewGauge(prometheus.GaugeOpts{
			Name: "dimreduce_movement_scaler",
			Help: "Movement scaler after the most recent step.",
		}),
		iterations: f.NewCounterVec(prometheus.CounterOpts{
			Name: "dimreduce_iterations_total",
			Help: "Steps performed, by schedule phase.",
		}, []string{"phase"}),
		stepTime: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "dimreduce_step_seconds",
			Help:    "Wall time per step.",
			Buckets: prometheus.ExponentialBuckets(1e-5, 4, 10),
		}),
	}
}

func (p *Prometheus) Name() string { return "iterations" }

func (p *Prometheus) Observe(rec schedule.Record) {
	p.rate.Set(rec.Params.Rate)
	p.maxForce.Set(rec.Stats.MaxForce)
	p.scaler.Set(rec.Stats.MovementScaler)
	p.iterations.WithLabelValues(rec.Phase.String()).Inc()
	p.stepTime.Observe(rec.Elapsed.Seconds())
	p.count++
}

func (p *Prometheus) Value() float64 { return float64(p.count) }

// Reset only clears the local count; Prometheus counters are monotonic.
func (p *Prometheus) Reset() { p.count = 0 }

func (p *Prometheus) Registry() *prometheus.Registry { return p.reg }

func (p *Prometheus) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, p.reg)
}
