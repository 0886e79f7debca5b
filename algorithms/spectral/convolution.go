package spectral

// FFTConvolve returns the full linear convolution of x and h
// (length len(x)+len(h)-1), computed in the frequency domain.
func FFTConvolve(x, h []float64) []float64 {
	if len(x) == 0 || len(h) == 0 {
		return nil
	}

	outLen := len(x) + len(h) - 1
	size := nextPowerOf2(outLen)

	f := NewFFT()
	xPad := make([]float64, size)
	hPad := make([]float64, size)
	copy(xPad, x)
	copy(hPad, h)

	xSpec := f.Compute(xPad)
	hSpec := f.Compute(hPad)
	for i := range xSpec {
		xSpec[i] *= hSpec[i]
	}

	full := f.ComputeInverseReal(xSpec)
	return full[:outLen]
}

// nextPowerOf2 returns the next power of 2 >= n
func nextPowerOf2(n int) int {
	if n <= 1 {
		return 1
	}
	p := 1
	for p < n {
		p *= 2
	}
	return p
}
