package spectral

import (
	"fmt"

	"github.com/soundfield/dirspec/algorithms/windowing"
)

// STFT computes framed forward transforms of (possibly complex) signals.
//
// The input is reflect-padded by fftSize/2 on both ends, framed at hopLength
// stride, multiplied by the analysis window, transformed, and truncated to the
// first fftSize/2+1 bins. The output layout is frequency x frames, matching
// the persisted feature layout.
type STFT struct {
	fft       *FFT
	fftSize   int
	hopLength int
	win       *windowing.Hann
}

// NewSTFT creates a framed transform for the given FFT size and hop length.
// The analysis window length must equal the FFT size.
func NewSTFT(fftSize, hopLength int, win *windowing.Hann) (*STFT, error) {
	if fftSize <= 0 {
		return nil, fmt.Errorf("fft size must be positive: %d", fftSize)
	}
	if hopLength <= 0 || hopLength > fftSize {
		return nil, fmt.Errorf("hop length must be in (0, fft size]: %d", hopLength)
	}
	if win.GetSize() != fftSize {
		return nil, fmt.Errorf("window size (%d) doesn't match fft size (%d)", win.GetSize(), fftSize)
	}

	return &STFT{
		fft:       NewFFT(),
		fftSize:   fftSize,
		hopLength: hopLength,
		win:       win,
	}, nil
}

// NumFreqs returns the number of retained frequency bins (fftSize/2 + 1).
func (s *STFT) NumFreqs() int {
	return s.fftSize/2 + 1
}

// NumFrames returns the number of frames produced for a signal of the given
// length after reflect padding.
func (s *STFT) NumFrames(signalLen int) int {
	padded := signalLen + s.fftSize
	return (padded-s.fftSize)/s.hopLength + 1
}

// Forward computes the complex spectrogram of a complex signal.
// The result is indexed [frequency][frame].
func (s *STFT) Forward(signal []complex128) ([][]complex128, error) {
	if len(signal) == 0 {
		return nil, fmt.Errorf("empty signal")
	}

	padded := reflectPadComplex(signal, s.fftSize/2)
	nFrames := s.NumFrames(len(signal))
	nFreqs := s.NumFreqs()
	coeffs := s.win.GetCoefficients()

	spec := make([][]complex128, nFreqs)
	for f := range spec {
		spec[f] = make([]complex128, nFrames)
	}

	frame := make([]complex128, s.fftSize)
	for t := 0; t < nFrames; t++ {
		start := t * s.hopLength
		for k := 0; k < s.fftSize; k++ {
			frame[k] = padded[start+k] * complex(coeffs[k], 0)
		}
		bins := s.fft.ComputeComplex(frame)
		for f := 0; f < nFreqs; f++ {
			spec[f][t] = bins[f]
		}
	}

	return spec, nil
}

// ForwardReal computes the complex spectrogram of a real signal.
func (s *STFT) ForwardReal(signal []float64) ([][]complex128, error) {
	c := make([]complex128, len(signal))
	for i, v := range signal {
		c[i] = complex(v, 0)
	}
	return s.Forward(c)
}

// reflectPadComplex pads a signal by pad samples on both ends, mirroring
// about the edge samples without repeating them. The reflection bounces when
// pad exceeds the signal length.
func reflectPadComplex(signal []complex128, pad int) []complex128 {
	n := len(signal)
	out := make([]complex128, n+2*pad)
	for i := range out {
		out[i] = signal[reflectIndex(i-pad, n)]
	}
	return out
}

// reflectIndex maps an out-of-range index into [0, n) by reflection about the
// boundary samples.
func reflectIndex(i, n int) int {
	if n == 1 {
		return 0
	}
	period := 2 * (n - 1)
	i %= period
	if i < 0 {
		i += period
	}
	if i >= n {
		i = period - i
	}
	return i
}
