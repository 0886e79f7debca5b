package spherical

import (
	"fmt"
	"math"
	"math/cmplx"
)

// DirectionVector computes the DirAC-style direction vector per bin from the
// zeroth- and first-degree coefficients: sqrt(0.5) * Re(conj(a00) * a1m) with
// the first-degree rows reordered to x/y/z. With real coefficients (see
// RealCoefficientMatrix) the result points at the direction of arrival.
func DirectionVector(anm [][]complex128) ([]Vector3, error) {
	if len(anm) < 4 {
		return nil, fmt.Errorf("direction vector needs the first four coefficient rows, got %d", len(anm))
	}

	scale := math.Sqrt(0.5)
	bins := len(anm[0])
	out := make([]Vector3, bins)
	for b := 0; b < bins; b++ {
		a0 := cmplx.Conj(anm[0][b])
		out[b] = Vector3{
			real(a0*anm[3][b]) * scale,
			real(a0*anm[1][b]) * scale,
			real(a0*anm[2][b]) * scale,
		}
	}

	return out, nil
}
