package pipeline

import (
	"context"
	"fmt"

	"github.com/soundfield/dirspec/algorithms/spectral"
	"github.com/soundfield/dirspec/corpus"
	"github.com/soundfield/dirspec/logging"
)

// PropagatedSignal is one record's worth of simulated microphone capture: the
// direct-path-aligned free-field reference plus the per-microphone room
// signals, ready for feature extraction.
type PropagatedSignal struct {
	Idx        int
	Speech     int
	Loc        int
	SpeechPath string

	FreeField []float64
	// Room is indexed [microphone][time].
	Room [][]float64
}

type propagateJob struct {
	idx   int
	tuple FeatureTuple
}

// propagator convolves planned speech files through the RIR bank and routes
// each result to its extractor's queue. Several propagators share one job
// channel; routing by index keeps the per-device record order intact no
// matter which worker finishes first.
type propagator struct {
	cfg      *Config
	bank     *RIRBank
	speech   []string
	idxStart int
	queues   []chan *PropagatedSignal
	logger   logging.Logger
}

func (p *propagator) run(ctx context.Context, jobs <-chan propagateJob, errs chan<- error) {
	for job := range jobs {
		sig, err := p.propagate(job)
		if err != nil {
			select {
			case errs <- fmt.Errorf("record %d: %w", job.idx, err):
			case <-ctx.Done():
			}
			return
		}
		q := p.queues[(job.idx-p.idxStart)%len(p.queues)]
		select {
		case q <- sig:
		case <-ctx.Done():
			return
		}
	}
}

func (p *propagator) propagate(job propagateJob) (*PropagatedSignal, error) {
	path := p.speech[job.tuple.Speech]
	samples, rate, err := corpus.ReadMono(path)
	if err != nil {
		return nil, err
	}
	if rate != p.cfg.SampleRate {
		return nil, fmt.Errorf("%s has sample rate %d, run expects %d", path, rate, p.cfg.SampleRate)
	}

	loc := job.tuple.Loc
	responses := p.bank.Responses[loc]
	room := make([][]float64, len(responses))
	for m, h := range responses {
		room[m] = spectral.FFTConvolve(samples, h)
	}

	// The free-field reference is the dry speech aligned to the room
	// signals' direct-path arrival and scaled to its gain.
	delay, gain := p.bank.PeakDelay[loc], p.bank.PeakGain[loc]
	free := make([]float64, delay+len(samples))
	for i, s := range samples {
		free[delay+i] = s * gain
	}

	p.logger.Debug("propagated record", logging.Fields{
		"component": "pipeline",
		"idx":       job.idx,
		"speech":    job.tuple.Speech,
		"loc":       loc,
	})

	return &PropagatedSignal{
		Idx:        job.idx,
		Speech:     job.tuple.Speech,
		Loc:        loc,
		SpeechPath: path,
		FreeField:  free,
		Room:       room,
	}, nil
}
