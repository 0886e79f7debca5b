// Package spherical implements the spherical-harmonic side of directional
// spectrogram synthesis: the constant set broadcast to extractor workers,
// triangle reselection of coefficients, and the intensity- and
// direction-vector computations.
package spherical

import (
	"math"
)

// SelectShifted reselects spherical-harmonic coefficient rows from a,
// reindexed by an angular-order offset and an (n, m) index shift. Row q of a
// holds the coefficient of degree n and order m with q = n*(n+1)+m. The
// output covers degrees 0..N-orderOffset where N is the top degree of a; the
// row for slot (n, m) is taken from source index (n+shiftN, m+shiftM).
// Out-of-range source indices leave the slot zero-filled; truncation at the
// top degree is expected, not an error.
func SelectShifted(a [][]complex128, orderOffset, shiftN, shiftM int) [][]complex128 {
	rows := len(a)
	n := int(math.Ceil(math.Sqrt(float64(rows)))) - 1
	outRows := n - orderOffset + 1
	if outRows < 0 {
		outRows = 0
	}

	width := 0
	if rows > 0 {
		width = len(a[0])
	}

	out := make([][]complex128, outRows*outRows)
	for i := range out {
		out[i] = make([]complex128, width)
	}

	idx := 0
	for ii := 0; ii <= n-orderOffset; ii++ {
		for jj := -ii; jj <= ii; jj++ {
			srcN, srcM := shiftN+ii, shiftM+jj
			src := srcM + srcN*(srcN+1)
			if -srcN <= srcM && srcM <= srcN && srcN >= 0 && srcN <= n && src < rows {
				copy(out[idx], a[src])
			}
			idx++
		}
	}

	return out
}

// SelectShiftedVector is SelectShifted for a per-degree scalar table, such as
// the recurrence weight vectors.
func SelectShiftedVector(a []complex128, orderOffset, shiftN, shiftM int) []complex128 {
	wrapped := make([][]complex128, len(a))
	for i, v := range a {
		wrapped[i] = []complex128{v}
	}

	selected := SelectShifted(wrapped, orderOffset, shiftN, shiftM)
	out := make([]complex128, len(selected))
	for i, row := range selected {
		out[i] = row[0]
	}
	return out
}
