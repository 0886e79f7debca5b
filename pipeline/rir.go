package pipeline

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"

	"github.com/soundfield/dirspec/algorithms/spectral"
	"github.com/soundfield/dirspec/algorithms/spherical"
	"github.com/soundfield/dirspec/matstore"
)

// RIRBank holds the measured impulse responses of one partition, the
// spherical-harmonic steering coefficients of every source location, and the
// direct-path delay and gain used to align the free-field reference.
type RIRBank struct {
	// Responses is indexed [location][microphone][time].
	Responses [][][]float64
	// Steering is indexed [location][coefficient row].
	Steering [][]complex128

	PeakDelay []int
	PeakGain  []float64
}

func (b *RIRBank) NumLocs() int { return len(b.Responses) }
func (b *RIRBank) NumMics() int { return len(b.Responses[0]) }

// LoadRIRBank reads one partition of the RIR archive. Responses are stored
// time x microphone x location and transposed on load; steering vectors are
// stored location-major and rescaled from the unit-power convention.
func LoadRIRBank(arch *matstore.Archive, split Split) (*RIRBank, error) {
	rirKey, ysKey := "RIR_"+string(split), "Ys_"+string(split)

	rirArr, err := arch.Array(rirKey)
	if err != nil {
		return nil, err
	}
	if rirArr.NumDims() != 3 {
		return nil, fmt.Errorf("%s must be 3-D, got shape %v", rirKey, rirArr.Shape)
	}
	rirData, err := rirArr.Float()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", rirKey, err)
	}
	nTime, nMic, nLoc := rirArr.Dim(0), rirArr.Dim(1), rirArr.Dim(2)

	responses := make([][][]float64, nLoc)
	for l := 0; l < nLoc; l++ {
		responses[l] = make([][]float64, nMic)
		for m := 0; m < nMic; m++ {
			h := make([]float64, nTime)
			for t := 0; t < nTime; t++ {
				h[t] = rirData[(t*nMic+m)*nLoc+l]
			}
			responses[l][m] = h
		}
	}

	ysArr, err := arch.Array(ysKey)
	if err != nil {
		return nil, err
	}
	if ysArr.NumDims() != 2 {
		return nil, fmt.Errorf("%s must be 2-D, got shape %v", ysKey, ysArr.Shape)
	}
	if ysArr.Dim(0) != nLoc {
		return nil, fmt.Errorf("%s covers %d locations, %s covers %d", ysKey, ysArr.Dim(0), rirKey, nLoc)
	}
	ysData, err := ysArr.Complex()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", ysKey, err)
	}

	scale := complex(math.Sqrt(4*math.Pi), 0)
	rows := ysArr.Dim(1)
	steering := make([][]complex128, nLoc)
	for l := 0; l < nLoc; l++ {
		ys := make([]complex128, rows)
		for r := 0; r < rows; r++ {
			ys[r] = ysData[l*rows+r] * scale
		}
		steering[l] = ys
	}

	return &RIRBank{Responses: responses, Steering: steering}, nil
}

// ComputeDirectPath locates the direct-path arrival at every location by
// encoding the responses to the zeroth-order pressure signal, equalizing it,
// and taking the signed maximum. The free-field reference of each record is
// delayed and scaled by these values; the gain keeps the response's polarity.
func (b *RIRBank) ComputeDirectPath(c *spherical.Constants, ola *spectral.OverlapAdd) error {
	nLoc, nMic := b.NumLocs(), b.NumMics()
	b.PeakDelay = make([]int, nLoc)
	b.PeakGain = make([]float64, nLoc)

	for l := 0; l < nLoc; l++ {
		p00 := make([]float64, len(b.Responses[l][0]))
		for m := 0; m < nMic; m++ {
			w := real(c.Yenc.At(0, m))
			for t, v := range b.Responses[l][m] {
				p00[t] += w * v
			}
		}
		a00, err := ola.FilterReal(p00, c.BnkrInv[0])
		if err != nil {
			return fmt.Errorf("failed to equalize direct path at location %d: %w", l, err)
		}
		peak := floats.MaxIdx(a00)
		b.PeakDelay[l] = peak
		b.PeakGain[l] = a00[peak]
	}
	return nil
}
