package spherical

import (
	"fmt"
	"math/cmplx"
)

// Vector3 is one x/y/z sample of a directional field.
type Vector3 [3]float64

// IntensityWeights holds the six triangle-selected recurrence weight vectors
// the intensity computation combines with order-shifted coefficients. They are
// built once per run from the raw Wnv/Wpv/Vv tables and broadcast read-only to
// every extractor.
type IntensityWeights struct {
	WpvNext []complex128 // Wpv at (n+1, m-1)
	WpvSame []complex128 // Wpv at (n, m)
	WnvSame []complex128 // Wnv at (n, m)
	WnvNext []complex128 // Wnv at (n+1, m+1)
	VvSame  []complex128 // Vv at (n, m)
	VvNext  []complex128 // Vv at (n+1, m)
}

// TriangleSelectWeights performs the six fixed reselections of the raw
// recurrence tables needed by IntensityVector.
func TriangleSelectWeights(wnv, wpv, vv []complex128) *IntensityWeights {
	return &IntensityWeights{
		WpvNext: SelectShiftedVector(wpv, 1, 1, -1),
		WpvSame: SelectShiftedVector(wpv, 1, 0, 0),
		WnvSame: SelectShiftedVector(wnv, 1, 0, 0),
		WnvNext: SelectShiftedVector(wnv, 1, 1, 1),
		VvSame:  SelectShiftedVector(vv, 1, 0, 0),
		VvNext:  SelectShiftedVector(vv, 1, 1, 0),
	}
}

// rows returns the common selection length, or an error when the six vectors
// disagree.
func (w *IntensityWeights) rows() (int, error) {
	n := len(w.WpvNext)
	for _, v := range [][]complex128{w.WpvSame, w.WnvSame, w.WnvNext, w.VvSame, w.VvNext} {
		if len(v) != n {
			return 0, fmt.Errorf("inconsistent weight vector lengths")
		}
	}
	return n, nil
}

// IntensityVector computes the time-averaged acoustic intensity per bin from
// spherical-harmonic coefficients. asv is indexed [degree-order row][bin];
// the result has one x/y/z vector per bin. The three components follow the
// convention of the reference recurrence: a fixed linear combination of
// order-shifted, conjugated coefficients, normalized by a factor of 2.
func IntensityVector(asv [][]complex128, w *IntensityWeights) ([]Vector3, error) {
	if len(asv) < 4 {
		return nil, fmt.Errorf("intensity needs at least first-degree coefficients, got %d rows", len(asv))
	}

	aug1 := SelectShifted(asv, 1, 0, 0)
	a2up := SelectShifted(asv, 1, 1, -1)
	a2down := SelectShifted(asv, 1, -1, -1)
	a3down := SelectShifted(asv, 1, -1, 1)
	a3up := SelectShifted(asv, 1, 1, 1)
	a4down := SelectShifted(asv, 1, -1, 0)
	a4up := SelectShifted(asv, 1, 1, 0)

	rows, err := w.rows()
	if err != nil {
		return nil, err
	}
	if rows != len(aug1) {
		return nil, fmt.Errorf("weight vector length (%d) doesn't match selected coefficient rows (%d)",
			rows, len(aug1))
	}

	bins := len(asv[0])
	out := make([]Vector3, bins)
	for b := 0; b < bins; b++ {
		var sx, sy, sz complex128
		for r := 0; r < rows; r++ {
			a1 := cmplx.Conj(aug1[r][b])
			aug2 := w.WpvNext[r]*a2up[r][b] - w.WnvSame[r]*a2down[r][b]
			aug3 := w.WpvSame[r]*a3down[r][b] - w.WnvNext[r]*a3up[r][b]
			aug4 := w.VvSame[r]*a4down[r][b] + w.VvNext[r]*a4up[r][b]

			sx += a1 * (aug2 + aug3)
			sy += a1 * (aug2 - aug3)
			sz += a1 * aug4
		}
		out[b] = Vector3{real(sx) / 4, imag(sy) / 4, real(sz) / 2}
	}

	return out, nil
}
