package pipeline

import (
	"fmt"
	"path/filepath"

	"github.com/soundfield/dirspec/matstore"
)

// metadataFilename sits next to the feature records and describes the run
// that produced them.
const metadataFilename = "metadata.dirspec"

// RunMetadata records the analysis parameters and the full plan of a run.
// It is written before the first record so an interrupted run can be resumed
// or replayed, and rewritten unchanged after the last record as a completion
// marker.
type RunMetadata struct {
	SampleRate  int
	FFTSize     int
	NumFreqs    int
	FrameLength int
	HopLength   int
	NumLocs     int
	Room        string

	SpeechPaths  []string
	FeatureFiles []string
}

func metadataFromConfig(cfg *Config, numLocs int, speech []string, plan []FeatureTuple) *RunMetadata {
	files := make([]string, len(plan))
	for i, t := range plan {
		files[i] = featureFilename(i, t)
	}
	return &RunMetadata{
		SampleRate:   cfg.SampleRate,
		FFTSize:      cfg.FFTSize,
		NumFreqs:     cfg.NumFreqs(),
		FrameLength:  cfg.FFTSize,
		HopLength:    cfg.HopLength,
		NumLocs:      numLocs,
		Room:         cfg.Room,
		SpeechPaths:  speech,
		FeatureFiles: files,
	}
}

func writeMetadata(outDir string, md *RunMetadata) error {
	arch := matstore.New()
	arch.SetInt("fs", md.SampleRate)
	arch.SetInt("n_fft", md.FFTSize)
	arch.SetInt("n_freq", md.NumFreqs)
	arch.SetInt("l_frame", md.FrameLength)
	arch.SetInt("l_hop", md.HopLength)
	arch.SetInt("n_loc", md.NumLocs)
	arch.SetStrings("room", []string{md.Room})
	arch.SetStrings("path_speech", md.SpeechPaths)
	arch.SetStrings("list_fname", md.FeatureFiles)

	path := filepath.Join(outDir, metadataFilename)
	if err := arch.WriteFile(path); err != nil {
		return fmt.Errorf("failed to write run metadata: %w", err)
	}
	return nil
}

func readMetadata(path string) (*RunMetadata, error) {
	arch, err := matstore.ReadFile(path)
	if err != nil {
		return nil, err
	}
	md := &RunMetadata{}
	for _, f := range []struct {
		name string
		dst  *int
	}{
		{"fs", &md.SampleRate},
		{"n_fft", &md.FFTSize},
		{"n_freq", &md.NumFreqs},
		{"l_frame", &md.FrameLength},
		{"l_hop", &md.HopLength},
		{"n_loc", &md.NumLocs},
	} {
		v, err := arch.Int(f.name)
		if err != nil {
			return nil, err
		}
		*f.dst = v
	}
	room, err := arch.Strings("room")
	if err != nil {
		return nil, err
	}
	md.Room = room[0]
	if md.SpeechPaths, err = arch.Strings("path_speech"); err != nil {
		return nil, err
	}
	if md.FeatureFiles, err = arch.Strings("list_fname"); err != nil {
		return nil, err
	}
	return md, nil
}
