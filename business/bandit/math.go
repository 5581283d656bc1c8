package bandit

import (
	"fmt"
	"math"

	"shelfScout/domain"
)

// y = A * x
func matVecMul(A *[FeatureDim][FeatureDim]float64, x [FeatureDim]float64) [FeatureDim]float64 {
	var y [FeatureDim]float64
	for i := range FeatureDim {
		sum := 0.0
		for j := range FeatureDim {
			sum += A[i][j] * x[j]
		}
		y[i] = sum
	}
	return y
}

func dot(a, b [FeatureDim]float64) float64 {
	sum := 0.0
	for i := range FeatureDim {
		sum += a[i] * b[i]
	}
	return sum
}

func norm(x [FeatureDim]float64) float64 {
	return math.Sqrt(dot(x, x))
}

// A := A + x x^T
func addOuter(A *[FeatureDim][FeatureDim]float64, x [FeatureDim]float64) {
	for i := range FeatureDim {
		if x[i] == 0 {
			continue
		}
		for j := range FeatureDim {
			A[i][j] += x[i] * x[j]
		}
	}
}

// b := b + r x
func addScaled(b *[FeatureDim]float64, x [FeatureDim]float64, r float64) {
	for i := range FeatureDim {
		b[i] += r * x[i]
	}
}

func identityMatrix() [FeatureDim][FeatureDim]float64 {
	var A [FeatureDim][FeatureDim]float64
	for i := range FeatureDim {
		A[i][i] = 1.0
	}
	return A
}

// invert runs Gauss-Jordan elimination with partial pivoting.
func invert(A *[FeatureDim][FeatureDim]float64) ([FeatureDim][FeatureDim]float64, error) {
	// Augmented [A | I], allocated on the heap: 44x88 floats are too big
	// for comfort on the stack of a hot path.
	aug := make([][]float64, FeatureDim)
	for i := range FeatureDim {
		aug[i] = make([]float64, 2*FeatureDim)
		for j := range FeatureDim {
			aug[i][j] = A[i][j]
		}
		aug[i][FeatureDim+i] = 1.0
	}

	for col := range FeatureDim {
		// partial pivot: largest magnitude in this column
		pivotRow := col
		for r := col + 1; r < FeatureDim; r++ {
			if math.Abs(aug[r][col]) > math.Abs(aug[pivotRow][col]) {
				pivotRow = r
			}
		}
		if math.Abs(aug[pivotRow][col]) < 1e-12 {
			return [FeatureDim][FeatureDim]float64{}, fmt.Errorf("%w: matrix is singular at column %d", domain.ErrNumericInstability, col)
		}
		aug[col], aug[pivotRow] = aug[pivotRow], aug[col]

		pivot := aug[col][col]
		for j := range 2 * FeatureDim {
			aug[col][j] /= pivot
		}

		for i := range FeatureDim {
			if i == col {
				continue
			}
			factor := aug[i][col]
			if factor == 0 {
				continue
			}
			for j := range 2 * FeatureDim {
				aug[i][j] -= factor * aug[col][j]
			}
		}
	}

	var inv [FeatureDim][FeatureDim]float64
	for i := range FeatureDim {
		for j := range FeatureDim {
			inv[i][j] = aug[i][FeatureDim+j]
		}
	}
	return inv, nil
}

// invertWithRidge is the pseudo-inverse fallback: a straight inversion
// first, then one retry with epsilon on the diagonal. A second failure is
// surfaced so the caller can degrade the arm.
func invertWithRidge(A *[FeatureDim][FeatureDim]float64, eps float64) ([FeatureDim][FeatureDim]float64, error) {
	inv, err := invert(A)
	if err == nil {
		return inv, nil
	}

	ridged := *A
	for i := range FeatureDim {
		ridged[i][i] += eps
	}
	inv, rerr := invert(&ridged)
	if rerr != nil {
		return inv, fmt.Errorf("ridge retry also failed: %w", err)
	}
	return inv, nil
}
