package pipeline

import (
	"math"
	"math/cmplx"
	"testing"
)

// newTestExtractor builds an extractor over the miniature fixture archives.
func newTestExtractor(t *testing.T, feature string) *Extractor {
	t.Helper()
	cfg := newTestConfig(t, feature)
	bank, consts, _ := loadTestInputs(t, cfg)
	ext, err := NewExtractor(cfg, consts, bank)
	if err != nil {
		t.Fatalf("NewExtractor failed: %v", err)
	}
	return ext
}

// The room path must combine the microphone channels through the encoding
// matrix row by row before analysis. The fixture's equalization filter is
// unity, so each coefficient spectrum equals the analysis of the weighted
// microphone sum.
func TestRoomEncodingCombinesMicrophones(t *testing.T) {
	ext := newTestExtractor(t, "iv")

	const n = 96
	_, micCols := ext.consts.Yenc.Dims()
	room := make([][]float64, micCols)
	for m := range room {
		row := make([]float64, n)
		for i := range row {
			row[i] = math.Sin(2*math.Pi*float64(m+1)*float64(i)/n) + 0.1*float64(m)
		}
		room[m] = row
	}

	sig := &PropagatedSignal{Loc: 0, FreeField: make([]float64, n), Room: room}
	got, err := ext.roomSpectra(sig)
	if err != nil {
		t.Fatalf("roomSpectra failed: %v", err)
	}

	rows := ext.consts.NumRows()
	if len(got) != rows {
		t.Fatalf("got %d coefficient spectra, want %d", len(got), rows)
	}
	for r := 0; r < rows; r++ {
		combined := make([]complex128, n)
		for m := 0; m < micCols; m++ {
			w := ext.consts.Yenc.At(r, m)
			for i := 0; i < n; i++ {
				combined[i] += w * complex(room[m][i], 0)
			}
		}
		want, err := ext.stft.Forward(combined)
		if err != nil {
			t.Fatalf("Forward failed: %v", err)
		}
		for f := range want {
			for tt := range want[f] {
				if d := cmplx.Abs(got[r][f][tt] - want[f][tt]); d > 1e-9 {
					t.Fatalf("row %d bin (%d,%d) differs by %g", r, f, tt, d)
				}
			}
		}
	}
}

// The direction path converts the four coefficient signals to the real basis
// and analyzes the real part of each converted row.
func TestRealBasisProjection(t *testing.T) {
	ext := newTestExtractor(t, "dirac")

	const n = 96
	anm := make([][]complex128, 4)
	for r := range anm {
		row := make([]complex128, n)
		for i := range row {
			row[i] = complex(math.Cos(2*math.Pi*float64(r+1)*float64(i)/n),
				0.3*math.Sin(2*math.Pi*float64(i)/n))
		}
		anm[r] = row
	}

	got, err := ext.realSpectra(anm)
	if err != nil {
		t.Fatalf("realSpectra failed: %v", err)
	}

	for r := 0; r < 4; r++ {
		proj := make([]float64, n)
		for i := 0; i < n; i++ {
			var acc complex128
			for k := 0; k < 4; k++ {
				acc += ext.consts.Direction.TReal.At(r, k) * anm[k][i]
			}
			proj[i] = real(acc)
		}
		want, err := ext.stft.ForwardReal(proj)
		if err != nil {
			t.Fatalf("ForwardReal failed: %v", err)
		}
		for f := range want {
			for tt := range want[f] {
				if d := cmplx.Abs(got[r][f][tt] - want[f][tt]); d > 1e-9 {
					t.Fatalf("row %d bin (%d,%d) differs by %g", r, f, tt, d)
				}
			}
		}
	}
}
