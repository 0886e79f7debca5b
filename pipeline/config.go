// Package pipeline synthesizes directional spectrogram features from
// anechoic speech and measured room impulse responses. A pool of propagator
// workers convolves speech through the microphone-array responses and a set
// of per-device extractor workers turns each propagated signal into
// time-frequency feature records on disk.
package pipeline

import (
	"encoding/json"
	"fmt"
	"os"
	"runtime"
	"strings"
)

// Split selects which partition of the RIR bank a run draws from.
type Split string

const (
	SplitTrain Split = "TRAIN"
	SplitTest  Split = "TEST"
)

// ParseSplit maps the command-line split names onto the archive partitions.
// "unseen" rooms belong to the test partition, everything else to train.
func ParseSplit(s string) Split {
	if strings.EqualFold(s, "unseen") {
		return SplitTest
	}
	return SplitTrain
}

// Config fixes every knob of one synthesis run. JSON tags let runs be
// described in config files checked alongside the generated features.
type Config struct {
	// Signal analysis parameters.
	SampleRate int `json:"sample_rate"`
	FFTSize    int `json:"fft_size"`
	HopLength  int `json:"hop_length"`

	// DirectionalFeature selects the variant: "iv" for the intensity
	// vector, "dirac" for the DirAC-style direction vector.
	DirectionalFeature string `json:"directional_feature"`

	// Worker topology.
	NumDevices     int `json:"num_devices"`
	NumPropagators int `json:"num_propagators"` // 0 derives from NumDevices
	QueueCapacity  int `json:"queue_capacity"`

	// Sampling of (speech, location) pairs per room.
	CountPerRoom     int   `json:"count_per_room"`
	TestCountPerRoom int   `json:"test_count_per_room"`
	Seed             int64 `json:"seed"`

	// Inputs and outputs.
	SpeechDir     string `json:"speech_dir"`
	RIRPath       string `json:"rir_path"`
	ConstantsPath string `json:"constants_path"`
	OutDir        string `json:"out_dir"`

	// ReferenceMetadata, when set, replays the (speech, location) plan of
	// an earlier run instead of sampling a fresh one.
	ReferenceMetadata string `json:"reference_metadata,omitempty"`

	// Run selection. Kind is one of "train", "seen" or "unseen": seen and
	// unseen runs both sample TestCountPerRoom tuples, but seen rooms still
	// draw from the train partition of the RIR bank.
	Room    string `json:"room"`
	Kind    string `json:"split"`
	FromIdx int    `json:"from_idx"` // -1 resumes after the last finished record
}

// DefaultConfig returns the parameters used for the published feature sets.
func DefaultConfig() *Config {
	return &Config{
		SampleRate:         16000,
		FFTSize:            512,
		HopLength:          256,
		DirectionalFeature: "iv",
		NumDevices:         4,
		QueueCapacity:      3,
		CountPerRoom:       10000,
		TestCountPerRoom:   100,
		Seed:               1,
		Kind:               "train",
		FromIdx:            -1,
	}
}

// LoadConfig reads a JSON config file over the defaults. Fields absent from
// the file keep their default values.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	cfg := DefaultConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks the configuration before any worker is started.
func (c *Config) Validate() error {
	if c.SampleRate <= 0 {
		return fmt.Errorf("sample rate must be positive, got %d", c.SampleRate)
	}
	if c.FFTSize <= 0 || c.FFTSize%2 != 0 {
		return fmt.Errorf("FFT size must be a positive even number, got %d", c.FFTSize)
	}
	if c.HopLength <= 0 || c.HopLength > c.FFTSize {
		return fmt.Errorf("hop length must be in (0, %d], got %d", c.FFTSize, c.HopLength)
	}
	if c.DirectionalFeature != "iv" && c.DirectionalFeature != "dirac" {
		return fmt.Errorf("directional feature must be \"iv\" or \"dirac\", got %q", c.DirectionalFeature)
	}
	if c.NumDevices <= 0 {
		return fmt.Errorf("number of devices must be positive, got %d", c.NumDevices)
	}
	if c.QueueCapacity <= 0 {
		return fmt.Errorf("queue capacity must be positive, got %d", c.QueueCapacity)
	}
	if c.CountPerRoom <= 0 || c.TestCountPerRoom <= 0 {
		return fmt.Errorf("per-room counts must be positive, got %d/%d", c.CountPerRoom, c.TestCountPerRoom)
	}
	if c.SpeechDir == "" || c.RIRPath == "" || c.ConstantsPath == "" || c.OutDir == "" {
		return fmt.Errorf("speech dir, RIR path, constants path and output dir are all required")
	}
	if c.Room == "" {
		return fmt.Errorf("room name is required")
	}
	switch strings.ToLower(c.Kind) {
	case "train", "seen", "unseen":
	default:
		return fmt.Errorf("split must be \"train\", \"seen\" or \"unseen\", got %q", c.Kind)
	}
	return nil
}

// Partition returns the RIR bank partition this run draws from.
func (c *Config) Partition() Split { return ParseSplit(c.Kind) }

// NumFreqs returns the number of non-redundant frequency bins.
func (c *Config) NumFreqs() int { return c.FFTSize/2 + 1 }

// planCount returns how many (speech, location) pairs a fresh plan samples.
// Seen and unseen runs are both test-sized even though seen rooms draw from
// the train partition.
func (c *Config) planCount() int {
	if strings.EqualFold(c.Kind, "train") {
		return c.CountPerRoom
	}
	return c.TestCountPerRoom
}

// propagatorCount derives the propagator pool size from the host when not
// pinned explicitly. The pool is kept small enough to leave the extractors
// and the main goroutine their own cores.
func (c *Config) propagatorCount() int {
	if c.NumPropagators > 0 {
		return c.NumPropagators
	}
	n := runtime.NumCPU()/2 - 1 - c.NumDevices
	if max := 3 * c.NumDevices; n > max {
		n = max
	}
	if n < 1 {
		n = 1
	}
	return n
}
