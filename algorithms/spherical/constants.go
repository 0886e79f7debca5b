package spherical

import (
	"gonum.org/v1/gonum/mat"
)

// Variant selects which directional feature a run computes. It is fixed for
// the lifetime of a run and decides which extractor code path executes.
type Variant int

const (
	// VariantIntensity computes the spatially-averaged acoustic intensity
	// vector from the full-degree coefficients.
	VariantIntensity Variant = iota
	// VariantDirection computes the DirAC direction vector from the
	// first-degree real coefficients.
	VariantDirection
)

func (v Variant) String() string {
	switch v {
	case VariantIntensity:
		return "iv"
	case VariantDirection:
		return "dirac"
	default:
		return "unknown"
	}
}

// DirectionWeights carries the projection used by the direction-vector
// variant: complex first-degree coefficients are converted to the real basis
// before framing.
type DirectionWeights struct {
	TReal *mat.CDense // (4 x 4) complex-to-real coefficient conversion
}

// Constants is the spherical-harmonic constant set of one run: the encoding
// matrix, the bank-equalization spectrum, and exactly one variant payload.
// The orchestrator owns the master copy; each extractor works on a
// precision-reduced deep copy and never mutates the master.
type Constants struct {
	Yenc    *mat.CDense    // (degree-order rows x microphones) encoding matrix
	BnkrInv [][]complex128 // (degree-order rows x fft size) equalization spectrum

	Intensity *IntensityWeights
	Direction *DirectionWeights
}

// Variant reports which feature variant this constant set serves.
func (c *Constants) Variant() Variant {
	if c.Direction != nil {
		return VariantDirection
	}
	return VariantIntensity
}

// NumRows returns the number of degree-order coefficient rows.
func (c *Constants) NumRows() int {
	rows, _ := c.Yenc.Dims()
	return rows
}

// ReducePrecision returns a deep copy with every value rounded through single
// precision, leaving the unpopulated variant untouched. Extractors amortize
// this copy-in once per worker.
func (c *Constants) ReducePrecision() *Constants {
	out := &Constants{
		Yenc:    reduceCDense(c.Yenc),
		BnkrInv: reduceRows(c.BnkrInv),
	}

	if c.Intensity != nil {
		out.Intensity = &IntensityWeights{
			WpvNext: reduceVector(c.Intensity.WpvNext),
			WpvSame: reduceVector(c.Intensity.WpvSame),
			WnvSame: reduceVector(c.Intensity.WnvSame),
			WnvNext: reduceVector(c.Intensity.WnvNext),
			VvSame:  reduceVector(c.Intensity.VvSame),
			VvNext:  reduceVector(c.Intensity.VvNext),
		}
	}
	if c.Direction != nil {
		out.Direction = &DirectionWeights{TReal: reduceCDense(c.Direction.TReal)}
	}

	return out
}

// reduceValue rounds a complex value through single precision.
func reduceValue(z complex128) complex128 {
	return complex128(complex64(z))
}

func reduceVector(v []complex128) []complex128 {
	out := make([]complex128, len(v))
	for i, z := range v {
		out[i] = reduceValue(z)
	}
	return out
}

func reduceRows(rows [][]complex128) [][]complex128 {
	out := make([][]complex128, len(rows))
	for i, row := range rows {
		out[i] = reduceVector(row)
	}
	return out
}

func reduceCDense(m *mat.CDense) *mat.CDense {
	if m == nil {
		return nil
	}
	r, c := m.Dims()
	out := mat.NewCDense(r, c, nil)
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			out.Set(i, j, reduceValue(m.At(i, j)))
		}
	}
	return out
}
