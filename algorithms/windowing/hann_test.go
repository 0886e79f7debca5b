package windowing

import (
	"math"
	"testing"
)

func TestPeriodicHannStartsAtZero(t *testing.T) {
	h := NewHann(8, false)
	c := h.GetCoefficients()

	if c[0] != 0 {
		t.Fatalf("periodic window should start at zero, got %g", c[0])
	}
	// periodic form never reaches zero at the far end
	if c[7] == 0 {
		t.Fatalf("periodic window should not end at zero")
	}
	if c[4] != 1 {
		t.Fatalf("expected peak 1 at the midpoint, got %g", c[4])
	}
}

func TestSymmetricHannEndpoints(t *testing.T) {
	h := NewHann(9, true)
	c := h.GetCoefficients()

	if c[0] != 0 || c[8] != 0 {
		t.Fatalf("symmetric window endpoints should be zero, got %g and %g", c[0], c[8])
	}
	if math.Abs(c[4]-1) > 1e-15 {
		t.Fatalf("expected peak 1 at the center, got %g", c[4])
	}
}

func TestApplyRejectsWrongLength(t *testing.T) {
	h := NewHann(8, false)
	if out := h.Apply(make([]float64, 7)); out != nil {
		t.Fatalf("expected nil for mismatched signal length")
	}
	if err := h.ApplyInPlace(make([]float64, 9)); err == nil {
		t.Fatalf("expected error for mismatched signal length")
	}
}

func TestSumSquareMatchesDirectAccumulation(t *testing.T) {
	const (
		fftSize   = 16
		hopLength = 4
		numFrames = 7
	)
	h := NewHann(fftSize, false)
	c := h.GetCoefficients()

	want := make([]float64, fftSize+hopLength*(numFrames-1))
	for frame := 0; frame < numFrames; frame++ {
		for i, w := range c {
			want[frame*hopLength+i] += w * w
		}
	}

	got := h.SumSquare(numFrames, hopLength, fftSize)
	if len(got) != len(want) {
		t.Fatalf("envelope length mismatch: got %d, want %d", len(got), len(want))
	}
	for i := range want {
		if math.Abs(got[i]-want[i]) > 1e-12 {
			t.Fatalf("envelope mismatch at %d: got %g, want %g", i, got[i], want[i])
		}
	}
}
