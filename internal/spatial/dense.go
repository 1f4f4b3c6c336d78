package spatial

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/mat"
)

var ErrSingular = errors.New("spatial: matrix is singular")

// InvertSymmetric inverts an n x n symmetric positive definite matrix given
// row-major in a. The result is written row-major to dst, which must have
// length n*n.
func InvertSymmetric(n int, a, dst []float64) error {
	if n == 0 {
		return nil
	}
	if len(a) != n*n || len(dst) != n*n {
		return fmt.Errorf("spatial: invert %dx%d: got %d values, %d destination slots", n, n, len(a), len(dst))
	}
	sym := mat.NewSymDense(n, append([]float64(nil), a...))
	var chol mat.Cholesky
	if ok := chol.Factorize(sym); !ok {
		return fmt.Errorf("%w: %dx%d articulated mass not positive definite", ErrSingular, n, n)
	}
	var inv mat.SymDense
	if err := chol.InverseTo(&inv); err != nil {
		return fmt.Errorf("%w: %v", ErrSingular, err)
	}
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			dst[i*n+j] = inv.At(i, j)
		}
	}
	return nil
}

func (m SpatialMat) Dense() *mat.Dense {
	d := mat.NewDense(6, 6, nil)
	for i := 0; i < 6; i++ {
		for j := 0; j < 6; j++ {
			d.Set(i, j, m.At(i, j))
		}
	}
	return d
}

func SpatialMatFromDense(d mat.Matrix) SpatialMat {
	var m SpatialMat
	for i := 0; i < 6; i++ {
		for j := 0; j < 6; j++ {
			m = m.Set(i, j, d.At(i, j))
		}
	}
	return m
}

// Inverse inverts a general 6x6 matrix.
func (m SpatialMat) Inverse() (SpatialMat, error) {
	var inv mat.Dense
	if err := inv.Inverse(m.Dense()); err != nil {
		return SpatialMat{}, fmt.Errorf("%w: %v", ErrSingular, err)
	}
	return SpatialMatFromDense(&inv), nil
}
