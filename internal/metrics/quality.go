package metrics

import (
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// SqueezeResidual is the largest distance from 0.5 over the coordinates at or
// above retain. It is 0 when nothing is squeezed.
func SqueezeResidual(coords mat.Matrix, retain int) float64 {
	r, c := coords.Dims()
	var worst float64
	for i := 0; i < r; i++ {
		for k := max(retain, 0); k < c; k++ {
			worst = math.Max(worst, math.Abs(coords.At(i, k)-0.5))
		}
	}
	return worst
}

// Spread is the sample variance of one coordinate column.
func Spread(coords mat.Matrix, col int) float64 {
	return stat.Variance(mat.Col(nil, col, coords), nil)
}
