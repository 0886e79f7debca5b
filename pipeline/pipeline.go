package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/soundfield/dirspec/algorithms/spectral"
	"github.com/soundfield/dirspec/algorithms/spherical"
	"github.com/soundfield/dirspec/algorithms/windowing"
	"github.com/soundfield/dirspec/corpus"
	"github.com/soundfield/dirspec/logging"
	"github.com/soundfield/dirspec/matstore"
)

// Pipeline drives one synthesis run: it plans the records, fans propagation
// out over a worker pool, routes each propagated signal to its extractor, and
// persists the finished records in arrival order per device.
type Pipeline struct {
	cfg    *Config
	logger logging.Logger

	// ResumeDecision, when set, is consulted before continuing a partially
	// finished run. It receives the index of the first record that would be
	// produced; returning false aborts the run cleanly.
	ResumeDecision func(startIdx int) bool
}

// New validates the configuration and returns a runnable pipeline.
func New(cfg *Config) (*Pipeline, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &Pipeline{cfg: cfg, logger: logging.GetGlobalLogger()}, nil
}

// Run executes the pipeline to completion. Every input is loaded and checked
// before the first worker starts, so configuration problems surface as an
// error here rather than mid-run.
func (p *Pipeline) Run(ctx context.Context) error {
	cfg := p.cfg

	speech, err := corpus.Discover(cfg.SpeechDir)
	if err != nil {
		return err
	}

	rirArch, err := matstore.ReadFile(cfg.RIRPath)
	if err != nil {
		return fmt.Errorf("failed to read RIR archive: %w", err)
	}
	bank, err := LoadRIRBank(rirArch, cfg.Partition())
	if err != nil {
		return fmt.Errorf("failed to load RIR bank: %w", err)
	}

	constArch, err := matstore.ReadFile(cfg.ConstantsPath)
	if err != nil {
		return fmt.Errorf("failed to read constants archive: %w", err)
	}
	variant := spherical.VariantIntensity
	if cfg.DirectionalFeature == "dirac" {
		variant = spherical.VariantDirection
	}
	consts, err := spherical.LoadConstants(constArch, variant, bank.NumMics())
	if err != nil {
		return fmt.Errorf("failed to load constants: %w", err)
	}

	win := windowing.NewHann(cfg.FFTSize, false)
	ola, err := spectral.NewOverlapAdd(cfg.FFTSize, cfg.HopLength, win)
	if err != nil {
		return err
	}
	if err := bank.ComputeDirectPath(consts, ola); err != nil {
		return err
	}

	// A run directory that already carries metadata replays its own plan, so
	// resuming survives later changes to the corpus or the sampling knobs.
	ref := cfg.ReferenceMetadata
	if ref == "" {
		if _, statErr := os.Stat(MetadataPath(cfg.OutDir)); statErr == nil {
			ref = MetadataPath(cfg.OutDir)
		}
	}

	var plan []FeatureTuple
	if ref != "" {
		plan, err = planFromMetadata(ref, cfg.Room)
	} else {
		plan = samplePlan(cfg.Room, len(speech), bank.NumLocs(), cfg.planCount(), cfg.Seed)
	}
	if err != nil {
		return err
	}
	for _, t := range plan {
		if t.Speech >= len(speech) || t.Loc >= bank.NumLocs() {
			return fmt.Errorf("planned record (speech %d, loc %d) outside corpus (%d files, %d locations)",
				t.Speech, t.Loc, len(speech), bank.NumLocs())
		}
	}

	if err := os.MkdirAll(cfg.OutDir, 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	start := cfg.FromIdx
	if start < 0 {
		if start, err = firstMissingIndex(cfg.OutDir, plan); err != nil {
			return err
		}
	}
	if start > len(plan) {
		return fmt.Errorf("resume index %d is past the end of the plan (%d records)", start, len(plan))
	}

	md := metadataFromConfig(cfg, bank.NumLocs(), speech, plan)
	if start == len(plan) {
		p.logger.Info("all records already exist, nothing to do", logging.Fields{
			"component": "pipeline",
			"records":   len(plan),
		})
		return writeMetadata(cfg.OutDir, md)
	}
	if start > 0 && p.ResumeDecision != nil && !p.ResumeDecision(start) {
		p.logger.Info("resume declined, aborting", logging.Fields{
			"component": "pipeline",
			"start_idx": start,
		})
		return nil
	}
	if err := writeMetadata(cfg.OutDir, md); err != nil {
		return err
	}

	p.logger.Info("starting synthesis run", logging.Fields{
		"component": "pipeline",
		"room":      cfg.Room,
		"split":     cfg.Kind,
		"variant":   cfg.DirectionalFeature,
		"records":   len(plan) - start,
		"start_idx": start,
		"devices":   cfg.NumDevices,
	})

	return p.process(ctx, bank, consts, speech, plan, start)
}

// process runs the worker topology over plan[start:]. Extractors are started
// first with their exact record counts, then the propagator pool; the main
// goroutine is the single writer of feature records.
func (p *Pipeline) process(ctx context.Context, bank *RIRBank, consts *spherical.Constants,
	speech []string, plan []FeatureTuple, start int) error {

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	cfg := p.cfg
	total := len(plan) - start
	nDev := cfg.NumDevices
	if nDev > total {
		nDev = total
	}

	queues := make([]chan *PropagatedSignal, nDev)
	for d := range queues {
		queues[d] = make(chan *PropagatedSignal, cfg.QueueCapacity)
	}
	out := make(chan *FeatureRecord, cfg.QueueCapacity*nDev)
	errs := make(chan error, 1)

	for d := 0; d < nDev; d++ {
		ext, err := NewExtractor(cfg, consts, bank)
		if err != nil {
			return err
		}
		// records start+d, start+d+nDev, ...
		count := (total - d + nDev - 1) / nDev
		go ext.run(ctx, count, queues[d], out, errs)
	}

	jobs := make(chan propagateJob)
	nProp := cfg.propagatorCount()
	for w := 0; w < nProp; w++ {
		prop := &propagator{
			cfg:      cfg,
			bank:     bank,
			speech:   speech,
			idxStart: start,
			queues:   queues,
			logger:   p.logger,
		}
		go prop.run(ctx, jobs, errs)
	}
	go func() {
		defer close(jobs)
		for i := start; i < len(plan); i++ {
			select {
			case jobs <- propagateJob{idx: i, tuple: plan[i]}:
			case <-ctx.Done():
				return
			}
		}
	}()

	for done := 0; done < total; {
		select {
		case rec := <-out:
			if err := WriteFeatureRecord(cfg.OutDir, cfg.Room, rec); err != nil {
				return err
			}
			done++
			p.logger.Info("record written", logging.Fields{
				"component": "pipeline",
				"idx":       rec.Idx,
				"done":      done,
				"total":     total,
				"queued":    queueDepths(queues),
			})
		case err := <-errs:
			return err
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	md := metadataFromConfig(cfg, bank.NumLocs(), speech, plan)
	if err := writeMetadata(cfg.OutDir, md); err != nil {
		return err
	}
	p.logger.Info("synthesis run complete", logging.Fields{
		"component": "pipeline",
		"records":   total,
		"out_dir":   cfg.OutDir,
	})
	return nil
}

func queueDepths(queues []chan *PropagatedSignal) []int {
	depths := make([]int, len(queues))
	for d, q := range queues {
		depths[d] = len(q)
	}
	return depths
}

// MetadataPath returns the metadata file of a run directory.
func MetadataPath(outDir string) string {
	return filepath.Join(outDir, metadataFilename)
}
