package sim

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"math"

	"github.com/viterin/vek"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/san-kum/dimreduce/internal/embed"
)

const minRowsPerWorker = 16

// Simulator owns the particle buffers and advances them one step at a time.
// It is not safe for concurrent use.
type Simulator struct {
	coords     *mat.Dense
	forces     *mat.Dense
	momentum   *mat.Dense
	weights    []float64
	affinities *mat.Dense

	tmp     []float64
	absBuf  []float64
	scratch *vecPool

	movementScaler float64
	seeded         bool

	opts   Options
	logger *slog.Logger
}

// New creates a simulator from initial coordinates (N x D), particle weights
// (nil means all ones) and an N x N affinity matrix. The simulator keeps its
// own copies of coords and weights.
func New(coords mat.Matrix, weights []float64, affinities mat.Matrix, opts Options) (*Simulator, error) {
	n, d := coords.Dims()
	if n == 0 || d == 0 {
		return nil, fmt.Errorf("%w: coordinates are %dx%d", embed.ErrEmpty, n, d)
	}
	if err := embed.CheckShape("affinities", affinities, n, n); err != nil {
		return nil, err
	}
	if weights == nil {
		weights = embed.Ones(n)
	} else {
		if err := embed.CheckWeights(weights, n); err != nil {
			return nil, err
		}
		weights = append([]float64(nil), weights...)
	}

	aff, ok := affinities.(*mat.Dense)
	if !ok {
		aff = mat.DenseCopyOf(affinities)
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	return &Simulator{
		coords:     mat.DenseCopyOf(coords),
		forces:     mat.NewDense(n, d, nil),
		momentum:   mat.NewDense(n, d, nil),
		weights:    weights,
		affinities: aff,
		tmp:        make([]float64, d),
		absBuf:     make([]float64, n*d),
		scratch:    newVecPool(d),
		opts:       opts,
		logger:     logger,
	}, nil
}

// Dims returns the number of particles and output coordinates.
func (s *Simulator) Dims() (n, d int) { return s.coords.Dims() }

// Coords returns a read-only view of the current coordinates. The view is
// only valid until the next call to Step.
func (s *Simulator) Coords() mat.Matrix { return s.coords }

// CoordsCopy returns a copy of the current coordinates.
func (s *Simulator) CoordsCopy() *mat.Dense { return mat.DenseCopyOf(s.coords) }

// MovementScaler returns the current smoothed step-size driver.
func (s *Simulator) MovementScaler() float64 { return s.movementScaler }

// ResetMomentum zeroes the inertia buffer.
func (s *Simulator) ResetMomentum() { s.momentum.Zero() }

// Step computes forces, integrates them and clamps coordinates to [0,1].
func (s *Simulator) Step(p Params) StepStats {
	s.checkContract()

	n, _ := s.coords.Dims()
	s.forces.Zero()

	if s.opts.Workers > 1 {
		embed.ParallelRows(n, s.opts.Workers, minRowsPerWorker, func(start, end int) {
			tmp := s.scratch.get()
			defer s.scratch.put(tmp)
			s.accumulate(start, end, *tmp, p)
		})
	} else {
		s.accumulate(0, n, s.tmp, p)
	}

	f := s.forces.RawMatrix().Data
	x := s.coords.RawMatrix().Data

	maxForce := vek.Max(vek.Abs_Into(s.absBuf, f))
	if p.Debug {
		s.logger.Debug("movement", "max_force", maxForce)
	}
	floored := math.Max(maxForce, MinMaxForce)

	if s.opts.Momentum && s.seeded {
		s.movementScaler = s.movementScaler*0.8 + floored*0.2
	} else {
		s.movementScaler = floored
		s.seeded = true
	}

	// Normalises the largest coordinate change to roughly Rate.
	scale := p.Rate / s.movementScaler

	if s.opts.Momentum {
		m := s.momentum.RawMatrix().Data
		floats.AddScaled(m, scale, f)
		floats.Add(x, m)
		floats.Scale(p.InertiaMultiplier, m)
	} else {
		floats.AddScaled(x, scale, f)
	}

	vek.MaximumNumber_Inplace(x, 0)
	vek.MinimumNumber_Inplace(x, 1)

	return StepStats{
		MaxForce:       maxForce,
		MovementScaler: s.movementScaler,
		Scale:          scale,
	}
}

// accumulate fills force rows [start, end). Rows are independent, so chunks
// may run concurrently.
func (s *Simulator) accumulate(start, end int, tmp []float64, p Params) {
	n, _ := s.coords.Dims()
	nf := float64(n)

	for j := start; j < end; j++ {
		xj := s.coords.RawRowView(j)
		fj := s.forces.RawRowView(j)
		aj := s.affinities.RawRowView(j)
		wj := s.weights[j]

		for q := 0; q < n; q++ {
			if q == j {
				continue
			}
			floats.SubTo(tmp, xj, s.coords.RawRowView(q))
			sq := floats.Dot(tmp, tmp)
			if sq < MinSquaredDistance {
				sq = MinSquaredDistance
			}
			repel := aj[q] / sq * s.weights[q] / wj
			floats.AddScaled(fj, repel/math.Sqrt(sq), tmp)
		}

		for c, xc := range xj {
			k := p.CentralForce
			switch {
			case c == p.SqueezeFrom:
				k = p.SqueezeForce
			case c > p.SqueezeFrom:
				k = p.SqueezeFinalForce
			}
			fj[c] -= nf * k * (xc - 0.5)
		}
	}
}

func (s *Simulator) checkContract() {
	n, d := s.coords.Dims()
	for _, m := range []struct {
		name string
		mat  *mat.Dense
	}{{"forces", s.forces}, {"momentum", s.momentum}} {
		if r, c := m.mat.Dims(); r != n || c != d {
			panic(&embed.ContractError{What: m.name, Got: [2]int{r, c}, Expected: [2]int{n, d}})
		}
	}
	if len(s.weights) != n {
		panic(&embed.ContractError{What: "weights", Got: [2]int{len(s.weights), 1}, Expected: [2]int{n, 1}})
	}
	if r, c := s.affinities.Dims(); r != n || c != n {
		panic(&embed.ContractError{What: "affinities", Got: [2]int{r, c}, Expected: [2]int{n, n}})
	}
	if len(s.tmp) != d {
		panic(&embed.ContractError{What: "scratch", Got: [2]int{len(s.tmp), 1}, Expected: [2]int{d, 1}})
	}
}

// Run performs steps with fixed params until ctx is done or steps are
// exhausted, returning the stats of the last step.
func (s *Simulator) Run(ctx context.Context, steps int, p Params) (StepStats, error) {
	var st StepStats
	for i := 0; i < steps; i++ {
		select {
		case <-ctx.Done():
			return st, ctx.Err()
		default:
		}
		st = s.Step(p)
	}
	return st, nil
}
