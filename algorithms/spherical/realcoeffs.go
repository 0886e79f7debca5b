package spherical

import (
	"math"
	"math/cmplx"

	"gonum.org/v1/gonum/mat"
)

// RealCoefficientMatrix returns the (N+1)^2 x (N+1)^2 matrix that converts
// complex spherical-harmonic coefficients to real-basis coefficients. Applied
// to the coefficients of a real sound field, the result is real up to
// rounding, so the imaginary part can be dropped after projection.
func RealCoefficientMatrix(n int) *mat.CDense {
	size := (n + 1) * (n + 1)
	m := mat.NewCDense(size, size, nil)
	m.Set(0, 0, 1)

	inv := complex(1/math.Sqrt2, 0)
	for deg := 1; deg <= n; deg++ {
		base := deg * deg
		dim := 2*deg + 1

		for i := 0; i < dim; i++ {
			// main-diagonal term
			var diag complex128
			switch {
			case i < deg:
				diag = 1i
			case i == deg:
				diag = 0
			default:
				if (i-deg-1)%2 == 0 {
					diag = -1
				} else {
					diag = 1
				}
			}

			// anti-diagonal term
			var anti complex128
			switch {
			case i < deg:
				if (deg-1-i)%2 == 0 {
					anti = 1i
				} else {
					anti = -1i
				}
			case i == deg:
				anti = 0
			default:
				anti = 1
			}

			m.Set(base+i, base+i, m.At(base+i, base+i)+diag*inv)
			m.Set(base+i, base+dim-1-i, m.At(base+i, base+dim-1-i)+anti*inv)
		}

		// the zonal coefficient is already real
		m.Set(base+deg, base+deg, 1)
	}

	for i := 0; i < size; i++ {
		for j := 0; j < size; j++ {
			m.Set(i, j, cmplx.Conj(m.At(i, j)))
		}
	}

	return m
}
