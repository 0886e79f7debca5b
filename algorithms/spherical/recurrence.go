package spherical

import (
	"math"
)

// RecurrenceWeights returns the Wnv, Wpv and Vv recurrence coefficient tables
// up to degree n, indexed linearly by q = deg*(deg+1)+m. They encode the
// three-term recurrences that express a direction-weighted spherical harmonic
// in terms of its neighbors:
//
//	Wnv[q(n,m)] = sqrt((n+m-1)(n+m) / ((2n-1)(2n+1)))
//	Wpv[q(n,m)] = sqrt((n-m-1)(n-m) / ((2n-1)(2n+1)))
//	Vv[q(n,m)]  = sqrt((n^2-m^2)    / ((2n-1)(2n+1)))
//
// These are the tables the constants archive carries; generating them here
// keeps tests and archive tooling self-contained.
func RecurrenceWeights(n int) (wnv, wpv, vv []complex128) {
	size := (n + 1) * (n + 1)
	wnv = make([]complex128, size)
	wpv = make([]complex128, size)
	vv = make([]complex128, size)

	for deg := 0; deg <= n; deg++ {
		den := float64((2*deg - 1) * (2*deg + 1))
		for m := -deg; m <= deg; m++ {
			q := deg*(deg+1) + m
			wnv[q] = complex(sqrtRatio(float64((deg+m-1)*(deg+m)), den), 0)
			wpv[q] = complex(sqrtRatio(float64((deg-m-1)*(deg-m)), den), 0)
			vv[q] = complex(sqrtRatio(float64(deg*deg-m*m), den), 0)
		}
	}

	return wnv, wpv, vv
}

// sqrtRatio returns sqrt(num/den), treating a non-positive numerator as an
// out-of-triangle term that contributes zero.
func sqrtRatio(num, den float64) float64 {
	if num <= 0 {
		return 0
	}
	return math.Sqrt(num / den)
}
