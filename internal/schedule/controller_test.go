package schedule_test

import (
	"context"
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/san-kum/dimreduce/internal/affinity"
	"github.com/san-kum/dimreduce/internal/embed"
	"github.com/san-kum/dimreduce/internal/schedule"
	"github.com/san-kum/dimreduce/internal/sim"
)

type recorder struct {
	records []schedule.Record
}

func (r *recorder) Name() string                { return "recorder" }
func (r *recorder) Observe(rec schedule.Record) { r.records = append(r.records, rec) }
func (r *recorder) Value() float64              { return float64(len(r.records)) }
func (r *recorder) Reset()                      { r.records = nil }
func (r *recorder) phase(p schedule.Phase) []schedule.Record {
	var out []schedule.Record
	for _, rec := range r.records {
		if rec.Phase == p {
			out = append(out, rec)
		}
	}
	return out
}

func lineInput(n int) *mat.Dense {
	in := mat.NewDense(n, 1, nil)
	for i := 0; i < n; i++ {
		in.Set(i, 0, float64(i)/float64(n-1))
	}
	return in
}

func newSimulator(n, d int, momentum bool) (*sim.Simulator, float64) {
	aff := affinity.Build(lineInput(n), 0.2)
	s, err := sim.New(embed.RandomUniform(n, d, 7), nil, aff, sim.Options{Momentum: momentum})
	Expect(err).NotTo(HaveOccurred())
	return s, affinity.Average(aff)
}

func baseConfig(d int) schedule.Config {
	return schedule.Config{
		Iters:             10,
		WarmupIters:       4,
		Rate:              0.01,
		FinalRate:         0.001,
		InertiaMultiplier: 0.9,
		CentralForce:      1,
		Retain:            d,
	}
}

var _ = Describe("Controller", func() {
	var ctx context.Context

	BeforeEach(func() {
		ctx = context.Background()
	})

	Context("without squeezing", func() {
		It("runs warmup then an annealed main phase", func() {
			s, _ := newSimulator(6, 2, true)
			rec := &recorder{}
			res, err := schedule.New(s, baseConfig(2), schedule.WithMetrics(rec)).Run(ctx)
			Expect(err).NotTo(HaveOccurred())

			Expect(res.Iterations).To(Equal(10))
			Expect(res.Phases).To(HaveKeyWithValue(schedule.PhaseWarmup, 4))
			Expect(res.Phases).To(HaveKeyWithValue(schedule.PhaseMain, 6))
			Expect(res.Phases).NotTo(HaveKey(schedule.PhaseSqueezeRampup))
			Expect(res.Metrics).To(HaveKeyWithValue("recorder", 10.0))

			warm := rec.phase(schedule.PhaseWarmup)
			Expect(warm[0].Params.Rate).To(BeNumerically("~", 0.001, 1e-12))
			Expect(warm[1].Params.Rate).To(BeNumerically("~", 0.00325, 1e-12))
			for i := 1; i < len(warm); i++ {
				Expect(warm[i].Params.Rate).To(BeNumerically(">", warm[i-1].Params.Rate))
			}

			main := rec.phase(schedule.PhaseMain)
			for i := 1; i < len(main); i++ {
				Expect(main[i].Params.Rate).To(BeNumerically("<", main[i-1].Params.Rate))
			}
			Expect(main[len(main)-1].Params.Rate).To(BeNumerically("~", 0.001, 1e-12))

			for i, r := range rec.records {
				Expect(r.Iter).To(Equal(i))
				Expect(r.Params.SqueezeFrom).To(Equal(2))
				Expect(r.Params.CentralForce).To(Equal(1.0))
			}
		})

		It("keeps the base rate in the main phase when a final squeeze is configured", func() {
			s, _ := newSimulator(6, 2, false)
			cfg := baseConfig(2)
			cfg.SqueezeFinalIters = 5
			rec := &recorder{}
			_, err := schedule.New(s, cfg, schedule.WithMetrics(rec)).Run(ctx)
			Expect(err).NotTo(HaveOccurred())

			for _, r := range rec.phase(schedule.PhaseMain) {
				Expect(r.Params.Rate).To(Equal(0.01))
			}
			Expect(rec.phase(schedule.PhaseSqueezeFinal)).To(BeEmpty())
		})

		It("skips warmup when it has no iterations", func() {
			s, _ := newSimulator(4, 2, false)
			cfg := baseConfig(2)
			cfg.WarmupIters = 0
			res, err := schedule.New(s, cfg).Run(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(res.Phases).NotTo(HaveKey(schedule.PhaseWarmup))
			Expect(res.Phases).To(HaveKeyWithValue(schedule.PhaseMain, 10))
		})
	})

	Context("with squeezing", func() {
		var cfg schedule.Config

		BeforeEach(func() {
			cfg = baseConfig(3)
			cfg.Retain = 1
			cfg.SqueezeRampupRate = 0.002
			cfg.SqueezeRampupIters = 5
			cfg.SqueezeFinalForce = 10
			cfg.SqueezeFinalInitialRate = 0.002
			cfg.SqueezeFinalIters = 4
		})

		It("squeezes coordinates from the highest index down", func() {
			s, _ := newSimulator(6, 3, true)
			rec := &recorder{}
			res, err := schedule.New(s, cfg, schedule.WithMetrics(rec)).Run(ctx)
			Expect(err).NotTo(HaveOccurred())

			Expect(res.Iterations).To(Equal(cfg.TotalIters(3)))
			Expect(res.Iterations).To(Equal(24))
			Expect(res.Phases).To(HaveKeyWithValue(schedule.PhaseSqueezeRampup, 10))
			Expect(res.Phases).To(HaveKeyWithValue(schedule.PhaseSqueezeFinal, 4))

			ramp := rec.phase(schedule.PhaseSqueezeRampup)
			for i, r := range ramp {
				Expect(r.Params.Rate).To(Equal(0.002))
				Expect(r.Params.SqueezeFinalForce).To(Equal(10.0))
				if i < 5 {
					Expect(r.Params.SqueezeFrom).To(Equal(2))
				} else {
					Expect(r.Params.SqueezeFrom).To(Equal(1))
				}
				if i%5 > 0 {
					Expect(r.Params.SqueezeForce).To(BeNumerically(">", ramp[i-1].Params.SqueezeForce))
				}
			}
			Expect(ramp[4].Params.SqueezeForce).To(BeNumerically("~", 10, 1e-9))
			Expect(ramp[9].Params.SqueezeForce).To(BeNumerically("~", 10, 1e-9))

			final := rec.phase(schedule.PhaseSqueezeFinal)
			for _, r := range final {
				Expect(r.Params.SqueezeFrom).To(Equal(1))
				Expect(r.Params.SqueezeForce).To(Equal(10.0))
			}
			Expect(final[len(final)-1].Params.Rate).To(BeNumerically("~", 0.001, 1e-12))
		})

		It("flattens the squeezed coordinate while keeping the retained one spread", func() {
			s, avg := newSimulator(12, 2, true)
			cfg := schedule.Config{
				Iters:                   100,
				WarmupIters:             50,
				Rate:                    0.01,
				FinalRate:               0.0002,
				InertiaMultiplier:       0.9,
				CentralForce:            20 * avg,
				Retain:                  1,
				SqueezeRampupRate:       0.002,
				SqueezeRampupIters:      100,
				SqueezeFinalForce:       2000 * avg,
				SqueezeFinalInitialRate: 0.002,
				SqueezeFinalIters:       100,
			}
			_, err := schedule.New(s, cfg).Run(ctx)
			Expect(err).NotTo(HaveOccurred())

			out := s.CoordsCopy()
			for _, v := range mat.Col(nil, 1, out) {
				Expect(v).To(BeNumerically("~", 0.5, 0.01))
			}
			Expect(stat.Variance(mat.Col(nil, 0, out), nil)).To(BeNumerically(">", 0.005))
		})
	})

	Context("observers", func() {
		It("sees every iteration before the step", func() {
			s, _ := newSimulator(5, 2, false)
			var iters []int
			var first *mat.Dense
			obs := schedule.ObserverFunc(func(iter int, coords mat.Matrix) error {
				if iter == 0 {
					first = mat.DenseCopyOf(coords)
				}
				iters = append(iters, iter)
				return nil
			})
			before := s.CoordsCopy()
			_, err := schedule.New(s, baseConfig(2), schedule.WithObserver(obs)).Run(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(iters).To(Equal([]int{0, 1, 2, 3, 4, 5, 6, 7, 8, 9}))
			Expect(mat.Equal(first, before)).To(BeTrue())
		})

		It("aborts the run when an observer fails", func() {
			s, _ := newSimulator(5, 2, false)
			boom := errors.New("disk full")
			obs := schedule.ObserverFunc(func(iter int, _ mat.Matrix) error {
				if iter == 3 {
					return boom
				}
				return nil
			})
			c := schedule.New(s, baseConfig(2), schedule.WithObserver(obs))
			res, err := c.Run(ctx)
			Expect(err).To(MatchError(boom))
			Expect(err.Error()).To(ContainSubstring("iteration 3"))
			Expect(res.Iterations).To(Equal(3))
			Expect(c.Iteration()).To(Equal(3))
		})
	})

	It("stops when the context is canceled", func() {
		s, _ := newSimulator(5, 2, false)
		cctx, cancel := context.WithCancel(ctx)
		obs := schedule.ObserverFunc(func(iter int, _ mat.Matrix) error {
			if iter == 2 {
				cancel()
			}
			return nil
		})
		res, err := schedule.New(s, baseConfig(2), schedule.WithObserver(obs)).Run(cctx)
		Expect(err).To(MatchError(context.Canceled))
		Expect(res.Iterations).To(Equal(3))
	})

	It("rejects an invalid config before stepping", func() {
		s, _ := newSimulator(5, 2, false)
		cfg := baseConfig(2)
		cfg.Retain = 3
		before := s.CoordsCopy()
		res, err := schedule.New(s, cfg).Run(ctx)
		Expect(err).To(MatchError(embed.ErrInvalidConfig))
		Expect(res).To(BeNil())
		Expect(mat.Equal(before, s.Coords())).To(BeTrue())
	})
})

var _ = DescribeTable("Config.Validate",
	func(mutate func(*schedule.Config), ok bool) {
		cfg := baseConfig(2)
		cfg.SqueezeRampupRate = 0.002
		cfg.SqueezeFinalInitialRate = 0.002
		cfg.SqueezeRampupIters = 3
		cfg.SqueezeFinalIters = 3
		mutate(&cfg)
		err := cfg.Validate(2)
		if ok {
			Expect(err).NotTo(HaveOccurred())
		} else {
			Expect(err).To(MatchError(embed.ErrInvalidConfig))
		}
	},
	Entry("defaults", func(*schedule.Config) {}, true),
	Entry("negative iterations", func(c *schedule.Config) { c.Iters = -1 }, false),
	Entry("warmup beyond iterations", func(c *schedule.Config) { c.WarmupIters = 11 }, false),
	Entry("zero rate", func(c *schedule.Config) { c.Rate = 0 }, false),
	Entry("negative final rate", func(c *schedule.Config) { c.FinalRate = -1 }, false),
	Entry("inertia above one", func(c *schedule.Config) { c.InertiaMultiplier = 1.5 }, false),
	Entry("negative central force", func(c *schedule.Config) { c.CentralForce = -2 }, false),
	Entry("retain above dimensions", func(c *schedule.Config) { c.Retain = 3 }, false),
	Entry("squeeze without rampup rate", func(c *schedule.Config) { c.Retain = 1; c.SqueezeRampupRate = 0 }, false),
	Entry("squeeze with negative final force", func(c *schedule.Config) { c.Retain = 1; c.SqueezeFinalForce = -1 }, false),
	Entry("squeeze settings ignored when retaining all", func(c *schedule.Config) { c.SqueezeRampupRate = 0 }, true),
)

var _ = Describe("interpolation", func() {
	It("hits both endpoints", func() {
		for _, f := range []func(a, b, t float64) float64{schedule.Lerp, schedule.SquareLerp, schedule.LogLerp} {
			Expect(f(2, 8, 0)).To(BeNumerically("~", 2, 1e-12))
			Expect(f(2, 8, 1)).To(BeNumerically("~", 8, 1e-12))
		}
	})

	It("interpolates in the expected space", func() {
		Expect(schedule.Lerp(2, 8, 0.5)).To(Equal(5.0))
		Expect(schedule.SquareLerp(3, 4, 0.5)).To(BeNumerically("~", 3.5355339059, 1e-9))
		Expect(schedule.LogLerp(2, 8, 0.5)).To(BeNumerically("~", 4, 1e-12))
	})

	It("falls back to linear for non-positive endpoints", func() {
		Expect(schedule.LogLerp(0, 10, 0.5)).To(Equal(5.0))
		Expect(schedule.LogLerp(0, 10, 1)).To(Equal(10.0))
	})
})

var _ = Describe("Phase", func() {
	It("has readable names", func() {
		Expect(schedule.PhaseWarmup.String()).To(Equal("warmup"))
		Expect(schedule.PhaseSqueezeFinal.String()).To(Equal("squeeze_final"))
		Expect(schedule.Phase(9).String()).To(Equal("phase(9)"))
	})
})
