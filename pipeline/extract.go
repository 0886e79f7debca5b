package pipeline

import (
	"context"
	"fmt"
	"math/cmplx"

	"github.com/soundfield/dirspec/algorithms/spectral"
	"github.com/soundfield/dirspec/algorithms/spherical"
	"github.com/soundfield/dirspec/algorithms/windowing"
	"github.com/soundfield/dirspec/logging"
)

// Extractor turns propagated signals into directional spectrogram records.
// Each extractor stands in for one accelerator device: it owns a
// precision-reduced copy of the constant set and consumes exactly the records
// routed to its queue.
type Extractor struct {
	cfg      *Config
	consts   *spherical.Constants
	steering [][]complex128
	stft     *spectral.STFT
	ola      *spectral.OverlapAdd
	logger   logging.Logger
}

// NewExtractor builds one extractor from the master constant set. The
// constants and steering vectors are copied through single precision, the
// arithmetic width the reference feature sets were produced at.
func NewExtractor(cfg *Config, master *spherical.Constants, bank *RIRBank) (*Extractor, error) {
	win := windowing.NewHann(cfg.FFTSize, false)
	stft, err := spectral.NewSTFT(cfg.FFTSize, cfg.HopLength, win)
	if err != nil {
		return nil, err
	}
	ola, err := spectral.NewOverlapAdd(cfg.FFTSize, cfg.HopLength, win)
	if err != nil {
		return nil, err
	}

	steering := make([][]complex128, len(bank.Steering))
	for l, ys := range bank.Steering {
		row := make([]complex128, len(ys))
		for r, v := range ys {
			row[r] = complex128(complex64(v))
		}
		steering[l] = row
	}

	return &Extractor{
		cfg:      cfg,
		consts:   master.ReducePrecision(),
		steering: steering,
		stft:     stft,
		ola:      ola,
		logger:   logging.GetGlobalLogger(),
	}, nil
}

// run consumes exactly n signals from its queue. The count is fixed up front
// so the worker can finish without a sentinel even when signals arrive from
// several propagators out of order.
func (e *Extractor) run(ctx context.Context, n int, in <-chan *PropagatedSignal, out chan<- *FeatureRecord, errs chan<- error) {
	for i := 0; i < n; i++ {
		var sig *PropagatedSignal
		select {
		case sig = <-in:
		case <-ctx.Done():
			return
		}

		rec, err := e.Extract(sig)
		if err != nil {
			select {
			case errs <- fmt.Errorf("record %d: %w", sig.Idx, err):
			case <-ctx.Done():
			}
			return
		}
		select {
		case out <- rec:
		case <-ctx.Done():
			return
		}
	}
}

// Extract computes the free-field and room feature planes of one record.
func (e *Extractor) Extract(sig *PropagatedSignal) (*FeatureRecord, error) {
	freeSpec, err := e.freeSpectra(sig)
	if err != nil {
		return nil, err
	}
	dirFree, phaseFree, err := e.featurePlanes(freeSpec)
	if err != nil {
		return nil, err
	}

	roomSpec, err := e.roomSpectra(sig)
	if err != nil {
		return nil, err
	}
	dirRoom, phaseRoom, err := e.featurePlanes(roomSpec)
	if err != nil {
		return nil, err
	}

	return &FeatureRecord{
		Idx:         sig.Idx,
		Speech:      sig.Speech,
		Loc:         sig.Loc,
		SpeechPath:  sig.SpeechPath,
		DirspecFree: dirFree,
		PhaseFree:   phaseFree,
		DirspecRoom: dirRoom,
		PhaseRoom:   phaseRoom,
	}, nil
}

// freeSpectra builds the coefficient spectra of the free-field reference.
// The dry signal is steered to the source location analytically, so no
// equalization is needed.
func (e *Extractor) freeSpectra(sig *PropagatedSignal) ([][][]complex128, error) {
	ys := e.steering[sig.Loc]
	rows := e.consts.NumRows()
	if len(ys) < rows {
		return nil, fmt.Errorf("steering vector has %d rows, constants need %d", len(ys), rows)
	}

	anm := make([][]complex128, rows)
	for r := 0; r < rows; r++ {
		w := cmplx.Conj(ys[r])
		row := make([]complex128, len(sig.FreeField))
		for t, s := range sig.FreeField {
			row[t] = w * complex(s, 0)
		}
		anm[r] = row
	}

	if e.consts.Variant() == spherical.VariantDirection {
		return e.realSpectra(anm)
	}
	return e.complexSpectra(anm)
}

// roomSpectra encodes the microphone signals to coefficient signals and
// equalizes them, in the time domain for the direction variant and bin-wise
// after analysis for the intensity variant.
func (e *Extractor) roomSpectra(sig *PropagatedSignal) ([][][]complex128, error) {
	rows := e.consts.NumRows()
	mics := len(sig.Room)
	if _, c := e.consts.Yenc.Dims(); c != mics {
		return nil, fmt.Errorf("signal has %d microphones, encoding matrix has %d", mics, c)
	}

	n := len(sig.Room[0])
	pnm := make([][]complex128, rows)
	for r := 0; r < rows; r++ {
		row := make([]complex128, n)
		for m := 0; m < mics; m++ {
			w := e.consts.Yenc.At(r, m)
			for t, v := range sig.Room[m] {
				row[t] += w * complex(v, 0)
			}
		}
		pnm[r] = row
	}

	if e.consts.Variant() == spherical.VariantDirection {
		anm := make([][]complex128, rows)
		for r := 0; r < rows; r++ {
			eq, err := e.ola.Filter(pnm[r], e.consts.BnkrInv[r])
			if err != nil {
				return nil, err
			}
			anm[r] = eq
		}
		return e.realSpectra(anm)
	}

	spec := make([][][]complex128, rows)
	for r := 0; r < rows; r++ {
		s, err := e.stft.Forward(pnm[r])
		if err != nil {
			return nil, err
		}
		// bin-wise bank equalization on the analysis side
		bnkr := e.consts.BnkrInv[r]
		for f := range s {
			w := bnkr[f]
			for t := range s[f] {
				s[f][t] *= w
			}
		}
		spec[r] = s
	}
	return spec, nil
}

// complexSpectra analyzes each coefficient row as a complex signal.
func (e *Extractor) complexSpectra(anm [][]complex128) ([][][]complex128, error) {
	spec := make([][][]complex128, len(anm))
	for r, row := range anm {
		s, err := e.stft.Forward(row)
		if err != nil {
			return nil, err
		}
		spec[r] = s
	}
	return spec, nil
}

// realSpectra converts the first-degree coefficient signals to the real
// basis, drops the vanishing imaginary part, and analyzes the real rows.
func (e *Extractor) realSpectra(anm [][]complex128) ([][][]complex128, error) {
	if len(anm) < 4 {
		return nil, fmt.Errorf("direction variant needs 4 coefficient rows, got %d", len(anm))
	}
	n := len(anm[0])
	spec := make([][][]complex128, 4)
	for r := 0; r < 4; r++ {
		realRow := make([]float64, n)
		for k := 0; k < 4; k++ {
			w := e.consts.Direction.TReal.At(r, k)
			for t := 0; t < n; t++ {
				realRow[t] += real(w * anm[k][t])
			}
		}
		s, err := e.stft.ForwardReal(realRow)
		if err != nil {
			return nil, err
		}
		spec[r] = s
	}
	return spec, nil
}

// featurePlanes collapses coefficient spectra into the stored planes: a
// frequency x frame x 4 directional plane (x, y, z, magnitude of the
// zeroth-order coefficient) and a frequency x frame x 1 phase plane.
func (e *Extractor) featurePlanes(spec [][][]complex128) (dirspec, phase [][][]float32, err error) {
	rows := len(spec)
	nFreq := len(spec[0])
	nFrame := len(spec[0][0])

	dirspec = make([][][]float32, nFreq)
	phase = make([][][]float32, nFreq)
	for f := 0; f < nFreq; f++ {
		dirspec[f] = make([][]float32, nFrame)
		phase[f] = make([][]float32, nFrame)
	}

	asv := make([][]complex128, rows)
	for r := range asv {
		asv[r] = make([]complex128, nFreq)
	}

	for t := 0; t < nFrame; t++ {
		for r := 0; r < rows; r++ {
			for f := 0; f < nFreq; f++ {
				asv[r][f] = spec[r][f][t]
			}
		}

		var vecs []spherical.Vector3
		if e.consts.Variant() == spherical.VariantDirection {
			vecs, err = spherical.DirectionVector(asv)
		} else {
			vecs, err = spherical.IntensityVector(asv, e.consts.Intensity)
		}
		if err != nil {
			return nil, nil, err
		}

		for f := 0; f < nFreq; f++ {
			a0 := spec[0][f][t]
			dirspec[f][t] = []float32{
				float32(vecs[f][0]),
				float32(vecs[f][1]),
				float32(vecs[f][2]),
				float32(cmplx.Abs(a0)),
			}
			phase[f][t] = []float32{float32(cmplx.Phase(a0))}
		}
	}
	return dirspec, phase, nil
}
