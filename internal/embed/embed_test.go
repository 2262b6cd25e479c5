package embed

import (
	"errors"
	"math"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func TestRandomUniform_Deterministic(t *testing.T) {
	a := RandomUniform(20, 3, 7)
	b := RandomUniform(20, 3, 7)
	c := RandomUniform(20, 3, 8)

	assert.True(t, mat.Equal(a, b), "same seed must give identical matrices")
	assert.False(t, mat.Equal(a, c), "different seeds should differ")

	r, cols := a.Dims()
	for i := 0; i < r; i++ {
		for j := 0; j < cols; j++ {
			v := a.At(i, j)
			assert.GreaterOrEqual(t, v, 0.0)
			assert.Less(t, v, 1.0)
		}
	}
}

func TestCheckShape(t *testing.T) {
	m := mat.NewDense(2, 3, nil)
	require.NoError(t, CheckShape("m", m, 2, 3))

	err := CheckShape("m", m, 3, 2)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrDimensionMismatch))
	assert.Contains(t, err.Error(), "m is 2x3, expected 3x2")
}

func TestCheckWeights(t *testing.T) {
	tests := []struct {
		name    string
		w       []float64
		n       int
		wantErr error
	}{
		{"ok", []float64{1, 2, 0.5}, 3, nil},
		{"short", []float64{1, 2}, 3, ErrDimensionMismatch},
		{"zero", []float64{1, 0, 1}, 3, ErrInvalidWeight},
		{"negative", []float64{-1, 1, 1}, 3, ErrInvalidWeight},
		{"nan", []float64{1, math.NaN(), 1}, 3, ErrInvalidWeight},
		{"inf", []float64{1, math.Inf(1), 1}, 3, ErrInvalidWeight},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := CheckWeights(tt.w, tt.n)
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestOnes(t *testing.T) {
	assert.Equal(t, []float64{1, 1, 1}, Ones(3))
	assert.Empty(t, Ones(0))
}

func TestIsFinite(t *testing.T) {
	assert.True(t, IsFinite(mat.NewDense(1, 2, []float64{0, 1})))
	assert.False(t, IsFinite(mat.NewDense(1, 2, []float64{0, math.NaN()})))
	assert.False(t, IsFinite(mat.NewDense(1, 2, []float64{math.Inf(-1), 1})))
}

func TestContractError(t *testing.T) {
	err := &ContractError{What: "forces", Got: [2]int{3, 2}, Expected: [2]int{3, 3}}
	assert.Equal(t, "embed: contract violation: forces is 3x2, expected 3x3", err.Error())
	assert.True(t, errors.Is(err, ErrDimensionMismatch))
}

func TestParallelRows_CoversEveryRowOnce(t *testing.T) {
	for _, workers := range []int{0, 1, 2, 3, 8, 100} {
		n := 37
		hits := make([]int32, n)
		ParallelRows(n, workers, 4, func(start, end int) {
			for i := start; i < end; i++ {
				atomic.AddInt32(&hits[i], 1)
			}
		})
		for i, h := range hits {
			if h != 1 {
				t.Fatalf("workers=%d: row %d visited %d times", workers, i, h)
			}
		}
	}
}

func TestParallelRows_Empty(t *testing.T) {
	calls := 0
	ParallelRows(0, 4, 1, func(start, end int) {
		calls++
		assert.Equal(t, 0, start)
		assert.Equal(t, 0, end)
	})
	assert.Equal(t, 1, calls)
}
