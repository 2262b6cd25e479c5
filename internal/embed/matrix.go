package embed

import (
	"fmt"
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/mat"
)

// RandomUniform returns an n x d matrix of independent uniform values in
// [0,1) drawn from a PCG source seeded with seed.
func RandomUniform(n, d int, seed uint64) *mat.Dense {
	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	data := make([]float64, n*d)
	for i := range data {
		data[i] = rng.Float64()
	}
	return mat.NewDense(n, d, data)
}

// Ones returns a slice of n ones.
func Ones(n int) []float64 {
	w := make([]float64, n)
	for i := range w {
		w[i] = 1
	}
	return w
}

// CheckShape returns ErrDimensionMismatch when m is not rows x cols.
func CheckShape(what string, m mat.Matrix, rows, cols int) error {
	r, c := m.Dims()
	if r != rows || c != cols {
		return fmt.Errorf("%w: %s is %dx%d, expected %dx%d", ErrDimensionMismatch, what, r, c, rows, cols)
	}
	return nil
}

// CheckWeights validates a weight vector of length n.
func CheckWeights(w []float64, n int) error {
	if len(w) != n {
		return fmt.Errorf("%w: weights has length %d, expected %d", ErrDimensionMismatch, len(w), n)
	}
	for i, v := range w {
		if !(v > 0) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: weight[%d] = %g", ErrInvalidWeight, i, v)
		}
	}
	return nil
}

// IsFinite reports whether every entry of m is neither NaN nor Inf.
func IsFinite(m mat.Matrix) bool {
	r, c := m.Dims()
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			v := m.At(i, j)
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return false
			}
		}
	}
	return true
}
