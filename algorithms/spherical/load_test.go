package spherical

import (
	"math"
	"math/cmplx"
	"testing"

	"github.com/soundfield/dirspec/matstore"
)

func testConstantsArchive(nMics, n, nFreqs int) *matstore.Archive {
	rows := (n + 1) * (n + 1)
	arch := matstore.New()

	yenc := make([]complex128, nMics*rows)
	for i := range yenc {
		yenc[i] = complex(float64(i+1), -float64(i))
	}
	arch.SetArray(keyEncoding, matstore.NewComplexArray([]int{nMics, rows}, yenc))

	beq := make([]complex128, nFreqs*rows)
	for i := range beq {
		beq[i] = complex(1+float64(i)*0.01, float64(i)*0.001)
	}
	arch.SetArray(keyEqualization, matstore.NewComplexArray([]int{nFreqs, rows}, beq))

	wnv, wpv, vv := RecurrenceWeights(n)
	arch.SetArray(keyWnv, matstore.NewComplexArray([]int{rows}, wnv))
	arch.SetArray(keyWpv, matstore.NewComplexArray([]int{rows}, wpv))
	arch.SetArray(keyVv, matstore.NewComplexArray([]int{rows}, vv))
	return arch
}

func TestLoadConstantsIntensity(t *testing.T) {
	const (
		nMics  = 4
		order  = 1
		nFreqs = 9
	)
	arch := testConstantsArchive(nMics, order, nFreqs)

	c, err := LoadConstants(arch, VariantIntensity, nMics)
	if err != nil {
		t.Fatalf("LoadConstants failed: %v", err)
	}
	if c.Variant() != VariantIntensity {
		t.Fatalf("wrong variant: %v", c.Variant())
	}

	rows, mics := c.Yenc.Dims()
	if rows != 4 || mics != nMics {
		t.Fatalf("encoding matrix is %dx%d, want 4x%d", rows, mics, nMics)
	}
	// transposed and scaled: stored (mic 1, row 0) is value 5-4i
	scale := 1 / (math.Sqrt(4*math.Pi) * nMics)
	want := complex(5, -4) * complex(scale, 0)
	if d := cmplx.Abs(c.Yenc.At(0, 1) - want); d > 1e-15 {
		t.Fatalf("encoding entry (0,1): got %v, want %v", c.Yenc.At(0, 1), want)
	}

	if c.Intensity == nil {
		t.Fatalf("intensity weights missing")
	}
}

func TestLoadConstantsExpandsEqualizationSpectrum(t *testing.T) {
	const nFreqs = 9
	arch := testConstantsArchive(4, 1, nFreqs)

	c, err := LoadConstants(arch, VariantIntensity, 4)
	if err != nil {
		t.Fatalf("LoadConstants failed: %v", err)
	}

	fftSize := 2 * (nFreqs - 1)
	for r, row := range c.BnkrInv {
		if len(row) != fftSize {
			t.Fatalf("row %d has %d bins, want %d", r, len(row), fftSize)
		}
		// conjugate symmetry of the mirrored half
		for k := 1; k < nFreqs-1; k++ {
			if d := cmplx.Abs(row[fftSize-k] - cmplx.Conj(row[k])); d > 1e-15 {
				t.Fatalf("row %d bin %d is not conjugate-mirrored", r, k)
			}
		}
	}
}

func TestLoadConstantsDirectionTruncates(t *testing.T) {
	arch := testConstantsArchive(6, 2, 9)

	c, err := LoadConstants(arch, VariantDirection, 6)
	if err != nil {
		t.Fatalf("LoadConstants failed: %v", err)
	}
	if c.Variant() != VariantDirection {
		t.Fatalf("wrong variant: %v", c.Variant())
	}
	if rows := c.NumRows(); rows != 4 {
		t.Fatalf("direction variant should keep 4 rows, got %d", rows)
	}
	if len(c.BnkrInv) != 4 {
		t.Fatalf("direction variant should keep 4 equalization rows, got %d", len(c.BnkrInv))
	}
	if c.Direction == nil || c.Direction.TReal == nil {
		t.Fatalf("real-basis conversion matrix missing")
	}
}

func TestLoadConstantsRejectsMicrophoneMismatch(t *testing.T) {
	arch := testConstantsArchive(4, 1, 9)
	if _, err := LoadConstants(arch, VariantIntensity, 8); err == nil {
		t.Fatalf("expected error for microphone count mismatch")
	}
}

func TestLoadConstantsRejectsPartialDegreeSet(t *testing.T) {
	arch := matstore.New()
	arch.SetArray(keyEncoding, matstore.NewComplexArray([]int{4, 3}, make([]complex128, 12)))
	if _, err := LoadConstants(arch, VariantIntensity, 4); err == nil {
		t.Fatalf("expected error for 3 coefficient rows")
	}
}
