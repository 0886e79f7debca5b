package spectral

import (
	"math"
	"testing"

	"github.com/soundfield/dirspec/algorithms/windowing"
)

func newTestOLA(t *testing.T, fftSize, hopLength int) *OverlapAdd {
	t.Helper()
	ola, err := NewOverlapAdd(fftSize, hopLength, windowing.NewHann(fftSize, false))
	if err != nil {
		t.Fatalf("NewOverlapAdd failed: %v", err)
	}
	return ola
}

func testSignal(n int) []float64 {
	sig := make([]float64, n)
	for i := range sig {
		sig[i] = math.Sin(float64(i)*0.11) + 0.3*math.Cos(float64(i)*0.71)
	}
	return sig
}

func TestUnityFilterRoundTrip(t *testing.T) {
	ola := newTestOLA(t, 64, 32)
	sig := testSignal(320)

	out, err := ola.FilterReal(sig, ola.UnityFilter())
	if err != nil {
		t.Fatalf("FilterReal failed: %v", err)
	}
	if len(out) != len(sig) {
		t.Fatalf("output length %d, want %d", len(out), len(sig))
	}
	for i := range sig {
		if d := math.Abs(out[i] - sig[i]); d > 1e-10 {
			t.Fatalf("round trip differs at %d: got %g, want %g (diff %g)", i, out[i], sig[i], d)
		}
	}
}

func TestConstantFilterScalesAmplitude(t *testing.T) {
	ola := newTestOLA(t, 64, 32)
	sig := testSignal(256)

	filt := ola.UnityFilter()
	for i := range filt {
		filt[i] *= 2
	}
	out, err := ola.FilterReal(sig, filt)
	if err != nil {
		t.Fatalf("FilterReal failed: %v", err)
	}
	for i := range sig {
		if d := math.Abs(out[i] - 2*sig[i]); d > 1e-10 {
			t.Fatalf("scaled output differs at %d: got %g, want %g", i, out[i], 2*sig[i])
		}
	}
}

func TestFilterRejectsWrongSpectrumLength(t *testing.T) {
	ola := newTestOLA(t, 64, 32)
	if _, err := ola.FilterReal(testSignal(128), make([]complex128, 33)); err == nil {
		t.Fatalf("expected error for half-length filter spectrum")
	}
}

func TestFFTConvolveMatchesDirectConvolution(t *testing.T) {
	x := testSignal(200)
	h := []float64{1.0, 0.3, -0.2, 0.1, 0.05}

	want := make([]float64, len(x)+len(h)-1)
	for i := range x {
		for j := range h {
			want[i+j] += x[i] * h[j]
		}
	}

	got := FFTConvolve(x, h)
	if len(got) != len(want) {
		t.Fatalf("convolution length %d, want %d", len(got), len(want))
	}
	for i := range want {
		if d := math.Abs(got[i] - want[i]); d > 1e-10 {
			t.Fatalf("convolution differs at %d: got %g, want %g", i, got[i], want[i])
		}
	}
}

func TestFFTConvolveEmptyInput(t *testing.T) {
	if out := FFTConvolve(nil, []float64{1}); out != nil {
		t.Fatalf("expected nil for empty signal")
	}
}
