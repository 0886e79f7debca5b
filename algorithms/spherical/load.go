package spherical

import (
	"fmt"
	"math"
	"math/cmplx"

	"gonum.org/v1/gonum/mat"

	"github.com/soundfield/dirspec/matstore"
)

// Archive entry names of the constants file.
const (
	keyEncoding     = "Yenc"
	keyEqualization = "bEQf"
	keyWnv          = "Wnv"
	keyWpv          = "Wpv"
	keyVv           = "Vv"
)

// LoadConstants builds the constant set for the requested variant from a
// constants archive. The archive carries the encoding matrix "Yenc"
// (microphones x rows), the bank-equalization half spectrum "bEQf"
// (frequency bins x rows), and for the intensity variant the recurrence
// tables "Wnv", "Wpv", "Vv". Any malformed or missing entry is a
// configuration error; no worker should be started after a failure here.
func LoadConstants(arch *matstore.Archive, v Variant, numMics int) (*Constants, error) {
	yencArr, err := arch.Array(keyEncoding)
	if err != nil {
		return nil, err
	}
	if yencArr.NumDims() != 2 {
		return nil, fmt.Errorf("%s must be 2-D, got shape %v", keyEncoding, yencArr.Shape)
	}
	mics, rows := yencArr.Dim(0), yencArr.Dim(1)
	if mics != numMics {
		return nil, fmt.Errorf("%s has %d microphones, RIR bank has %d", keyEncoding, mics, numMics)
	}
	if n := int(math.Sqrt(float64(rows))); n*n != rows {
		return nil, fmt.Errorf("%s has %d coefficient rows, not a full set of degrees", keyEncoding, rows)
	}

	yencData, err := yencArr.Complex()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", keyEncoding, err)
	}

	// transpose to rows x microphones and fold in the quadrature weight
	scale := complex(1/(math.Sqrt(4*math.Pi)*float64(mics)), 0)
	yenc := mat.NewCDense(rows, mics, nil)
	for i := 0; i < mics; i++ {
		for j := 0; j < rows; j++ {
			yenc.Set(j, i, yencData[i*rows+j]*scale)
		}
	}

	bnkr, err := loadEqualization(arch, rows)
	if err != nil {
		return nil, err
	}

	c := &Constants{Yenc: yenc, BnkrInv: bnkr}

	switch v {
	case VariantDirection:
		// the DirAC path only needs the zeroth and first degrees
		if rows < 4 {
			return nil, fmt.Errorf("direction variant needs at least 4 coefficient rows, archive has %d", rows)
		}
		c.Yenc = truncateRows(yenc, 4)
		c.BnkrInv = bnkr[:4]
		c.Direction = &DirectionWeights{TReal: RealCoefficientMatrix(1)}

	case VariantIntensity:
		wnv, err := loadWeightTable(arch, keyWnv, rows)
		if err != nil {
			return nil, err
		}
		wpv, err := loadWeightTable(arch, keyWpv, rows)
		if err != nil {
			return nil, err
		}
		vv, err := loadWeightTable(arch, keyVv, rows)
		if err != nil {
			return nil, err
		}
		c.Intensity = TriangleSelectWeights(wnv, wpv, vv)

	default:
		return nil, fmt.Errorf("unknown variant %d", v)
	}

	return c, nil
}

// loadEqualization reads the half-spectrum equalization filter and expands it
// to the full FFT length by conjugate mirroring.
func loadEqualization(arch *matstore.Archive, rows int) ([][]complex128, error) {
	arr, err := arch.Array(keyEqualization)
	if err != nil {
		return nil, err
	}
	if arr.NumDims() != 2 {
		return nil, fmt.Errorf("%s must be 2-D, got shape %v", keyEqualization, arr.Shape)
	}
	nFreqs, cols := arr.Dim(0), arr.Dim(1)
	if cols != rows {
		return nil, fmt.Errorf("%s has %d coefficient rows, encoding matrix has %d", keyEqualization, cols, rows)
	}
	if nFreqs < 2 {
		return nil, fmt.Errorf("%s needs at least 2 frequency bins, got %d", keyEqualization, nFreqs)
	}

	data, err := arr.Complex()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", keyEqualization, err)
	}

	fftSize := 2 * (nFreqs - 1)
	out := make([][]complex128, rows)
	for o := range out {
		full := make([]complex128, fftSize)
		for f := 0; f < nFreqs; f++ {
			full[f] = data[f*rows+o]
		}
		for j := 0; j < nFreqs-2; j++ {
			full[nFreqs+j] = cmplx.Conj(data[(nFreqs-2-j)*rows+o])
		}
		out[o] = full
	}
	return out, nil
}

// loadWeightTable reads one recurrence table and checks it covers every
// coefficient row.
func loadWeightTable(arch *matstore.Archive, name string, rows int) ([]complex128, error) {
	arr, err := arch.Array(name)
	if err != nil {
		return nil, err
	}
	data, err := arr.Complex()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	if len(data) != rows {
		return nil, fmt.Errorf("%s has %d entries, expected %d", name, len(data), rows)
	}
	return data, nil
}

func truncateRows(m *mat.CDense, rows int) *mat.CDense {
	_, cols := m.Dims()
	out := mat.NewCDense(rows, cols, nil)
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			out.Set(i, j, m.At(i, j))
		}
	}
	return out
}
