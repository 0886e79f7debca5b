package windowing

import (
	"fmt"
	"math"
)

// Hann represents a Hann window function
type Hann struct {
	size         int
	symmetric    bool
	coefficients []float64
}

// NewHann creates a new Hann window. Analysis/synthesis windows for framed
// transforms use the periodic (non-symmetric) form.
func NewHann(size int, symmetric bool) *Hann {
	h := &Hann{
		size:      size,
		symmetric: symmetric,
	}
	h.generate()
	return h
}

// generate creates Hann window coefficients
func (h *Hann) generate() {
	h.coefficients = make([]float64, h.size)

	denominator := float64(h.size)
	if h.symmetric {
		denominator = float64(h.size - 1)
	}

	for i := 0; i < h.size; i++ {
		h.coefficients[i] = 0.5 * (1.0 - math.Cos(2*math.Pi*float64(i)/denominator))
	}
}

// Apply applies the window to a signal (creates new array)
func (h *Hann) Apply(signal []float64) []float64 {
	if len(signal) != h.size {
		return nil
	}

	windowed := make([]float64, h.size)
	for i := 0; i < h.size; i++ {
		windowed[i] = signal[i] * h.coefficients[i]
	}

	return windowed
}

// ApplyInPlace applies the window to a signal in-place
func (h *Hann) ApplyInPlace(signal []float64) error {
	if len(signal) != h.size {
		return fmt.Errorf("signal length (%d) doesn't match window size (%d)", len(signal), h.size)
	}

	for i := 0; i < h.size; i++ {
		signal[i] *= h.coefficients[i]
	}

	return nil
}

// SumSquare computes the accumulated squared-window envelope of an
// overlap-add resynthesis: the window is squared, centered in an fftSize-long
// slot, and accumulated at hopLength stride for numFrames frames. The result
// has length fftSize + hopLength*(numFrames-1) and is the normalization term
// that compensates analysis-plus-synthesis windowing.
func (h *Hann) SumSquare(numFrames, hopLength, fftSize int) []float64 {
	total := fftSize + hopLength*(numFrames-1)
	envelope := make([]float64, total)

	// window squared, centered in an fftSize slot
	slot := make([]float64, fftSize)
	offset := (fftSize - h.size) / 2
	for i, c := range h.coefficients {
		slot[offset+i] = c * c
	}

	for frame := 0; frame < numFrames; frame++ {
		start := frame * hopLength
		for i := 0; i < fftSize; i++ {
			envelope[start+i] += slot[i]
		}
	}

	return envelope
}

// GetCoefficients returns a copy of the window coefficients
func (h *Hann) GetCoefficients() []float64 {
	coeffs := make([]float64, len(h.coefficients))
	copy(coeffs, h.coefficients)
	return coeffs
}

// GetSize returns the window size
func (h *Hann) GetSize() int {
	return h.size
}

// GetType returns the window type
func (h *Hann) GetType() string {
	return "hann"
}
