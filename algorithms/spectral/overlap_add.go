package spectral

import (
	"fmt"

	"github.com/soundfield/dirspec/algorithms/windowing"
)

// sumSquareFloor is the numerical floor below which the accumulated
// squared-window envelope is treated as zero energy; amplitude is only
// normalized where the envelope exceeds it, which avoids division by
// near-zero at the signal edges. Same order of magnitude as the smallest
// normal float32.
const sumSquareFloor = 1.1754944e-38

// OverlapAdd applies a frequency-domain filter to a signal through windowed
// framing, per-frame spectral multiplication, inverse transform, and
// overlap-add resynthesis. The synthesis artifact of the doubled window is
// compensated with the closed-form squared-window envelope.
type OverlapAdd struct {
	fft       *FFT
	fftSize   int
	hopLength int
	win       *windowing.Hann
}

// NewOverlapAdd creates an equalization filter stage for the given FFT size
// and hop length. The window length must equal the FFT size.
func NewOverlapAdd(fftSize, hopLength int, win *windowing.Hann) (*OverlapAdd, error) {
	if fftSize <= 0 {
		return nil, fmt.Errorf("fft size must be positive: %d", fftSize)
	}
	if hopLength <= 0 || hopLength > fftSize {
		return nil, fmt.Errorf("hop length must be in (0, fft size]: %d", hopLength)
	}
	if win.GetSize() != fftSize {
		return nil, fmt.Errorf("window size (%d) doesn't match fft size (%d)", win.GetSize(), fftSize)
	}

	return &OverlapAdd{
		fft:       NewFFT(),
		fftSize:   fftSize,
		hopLength: hopLength,
		win:       win,
	}, nil
}

// Filter applies filterSpectrum (length fftSize) to a complex signal and
// returns the filtered signal trimmed back to the input length.
func (o *OverlapAdd) Filter(signal []complex128, filterSpectrum []complex128) ([]complex128, error) {
	if len(signal) == 0 {
		return nil, fmt.Errorf("empty signal")
	}
	if len(filterSpectrum) != o.fftSize {
		return nil, fmt.Errorf("filter spectrum length (%d) doesn't match fft size (%d)",
			len(filterSpectrum), o.fftSize)
	}

	origLen := len(signal)
	pad := o.fftSize / 2
	padded := reflectPadComplex(signal, pad)

	nFrames := origLen/o.hopLength + 1
	olaLen := o.fftSize + o.hopLength*(nFrames-1)
	coeffs := o.win.GetCoefficients()

	out := make([]complex128, olaLen)
	frame := make([]complex128, o.fftSize)
	for t := 0; t < nFrames; t++ {
		start := t * o.hopLength
		for k := 0; k < o.fftSize; k++ {
			frame[k] = padded[start+k] * complex(coeffs[k], 0)
		}
		bins := o.fft.ComputeComplex(frame)
		for k := range bins {
			bins[k] *= filterSpectrum[k]
		}
		filtered := o.fft.ComputeInverse(bins)
		for k := 0; k < o.fftSize; k++ {
			out[start+k] += filtered[k] * complex(coeffs[k], 0)
		}
	}

	envelope := o.win.SumSquare(nFrames, o.hopLength, o.fftSize)
	for i, e := range envelope {
		if e > sumSquareFloor {
			out[i] /= complex(e, 0)
		}
	}

	return out[pad : pad+origLen], nil
}

// FilterReal applies filterSpectrum to a real signal and keeps the real part
// of the resynthesis.
func (o *OverlapAdd) FilterReal(signal []float64, filterSpectrum []complex128) ([]float64, error) {
	c := make([]complex128, len(signal))
	for i, v := range signal {
		c[i] = complex(v, 0)
	}

	filtered, err := o.Filter(c, filterSpectrum)
	if err != nil {
		return nil, err
	}

	out := make([]float64, len(filtered))
	for i, v := range filtered {
		out[i] = real(v)
	}
	return out, nil
}

// UnityFilter returns an all-ones filter spectrum, used when the stage should
// act as a plain analysis/resynthesis round trip.
func (o *OverlapAdd) UnityFilter() []complex128 {
	filt := make([]complex128, o.fftSize)
	for i := range filt {
		filt[i] = 1
	}
	return filt
}
