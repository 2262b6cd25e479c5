// Package affinity builds the pairwise dissimilarity matrix that drives
// particle repulsion.
package affinity

import (
	"github.com/viterin/vek"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// Build returns the N x N affinity matrix for an N x C input matrix.
// Entry (j,k) is sameParticleForce plus the L1 distance between rows j and k,
// so the diagonal holds exactly sameParticleForce.
func Build(input mat.Matrix, sameParticleForce float64) *mat.Dense {
	n, c := input.Dims()
	rows := make([][]float64, n)
	for j := range rows {
		rows[j] = mat.Row(nil, j, input)
	}

	out := mat.NewDense(n, n, nil)
	for j := 0; j < n; j++ {
		out.Set(j, j, sameParticleForce)
		for k := j + 1; k < n; k++ {
			d := 0.0
			if c > 0 {
				d = vek.ManhattanDistance(rows[j], rows[k])
			}
			a := sameParticleForce + d
			out.Set(j, k, a)
			out.Set(k, j, a)
		}
	}
	return out
}

// Average is the arithmetic mean of all entries of m.
func Average(m mat.Matrix) float64 {
	r, c := m.Dims()
	if r == 0 || c == 0 {
		return 0
	}
	return mat.Sum(m) / float64(r*c)
}

// Normalize rescales every column of m in place to zero mean and unit
// Euclidean norm. Constant columns end up all zero.
func Normalize(m *mat.Dense) {
	r, c := m.Dims()
	if r == 0 {
		return
	}
	col := make([]float64, r)
	for j := 0; j < c; j++ {
		mat.Col(col, j, m)
		floats.AddConst(-stat.Mean(col, nil), col)
		if norm := floats.Norm(col, 2); norm > 0 {
			floats.Scale(1/norm, col)
		} else {
			for i := range col {
				col[i] = 0
			}
		}
		m.SetCol(j, col)
	}
}
