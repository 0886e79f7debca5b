package pipeline

import (
	"os"
	"path/filepath"
	"testing"
)

func validTestConfig() *Config {
	cfg := DefaultConfig()
	cfg.SpeechDir = "/tmp/speech"
	cfg.RIRPath = "/tmp/rir.dirspec"
	cfg.ConstantsPath = "/tmp/consts.dirspec"
	cfg.OutDir = "/tmp/out"
	cfg.Room = "hall"
	return cfg
}

func TestValidateAcceptsDefaults(t *testing.T) {
	if err := validTestConfig().Validate(); err != nil {
		t.Fatalf("valid config rejected: %v", err)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"odd fft size", func(c *Config) { c.FFTSize = 511 }},
		{"zero hop", func(c *Config) { c.HopLength = 0 }},
		{"hop beyond fft", func(c *Config) { c.HopLength = c.FFTSize + 1 }},
		{"unknown feature", func(c *Config) { c.DirectionalFeature = "mel" }},
		{"zero devices", func(c *Config) { c.NumDevices = 0 }},
		{"zero queue", func(c *Config) { c.QueueCapacity = 0 }},
		{"zero count", func(c *Config) { c.CountPerRoom = 0 }},
		{"missing room", func(c *Config) { c.Room = "" }},
		{"missing speech dir", func(c *Config) { c.SpeechDir = "" }},
		{"bad split", func(c *Config) { c.Kind = "validation" }},
	}
	for _, tc := range cases {
		cfg := validTestConfig()
		tc.mutate(cfg)
		if err := cfg.Validate(); err == nil {
			t.Fatalf("%s: expected validation error", tc.name)
		}
	}
}

func TestLoadConfigKeepsDefaultsForAbsentFields(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.json")
	body := `{"fft_size": 1024, "directional_feature": "dirac", "speech_dir": "/data/speech"}`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.FFTSize != 1024 || cfg.DirectionalFeature != "dirac" || cfg.SpeechDir != "/data/speech" {
		t.Fatalf("file values not applied: %+v", cfg)
	}
	def := DefaultConfig()
	if cfg.HopLength != def.HopLength || cfg.NumDevices != def.NumDevices {
		t.Fatalf("absent fields lost their defaults: %+v", cfg)
	}
}

func TestLoadConfigRejectsGarbage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.json")
	if err := os.WriteFile(path, []byte("{nope"), 0o644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}
	if _, err := LoadConfig(path); err == nil {
		t.Fatalf("expected error for malformed config file")
	}
}

func TestParseSplit(t *testing.T) {
	if ParseSplit("unseen") != SplitTest {
		t.Fatalf("unseen should map to the test partition")
	}
	if ParseSplit("UNSEEN") != SplitTest {
		t.Fatalf("split matching should be case-insensitive")
	}
	for _, s := range []string{"train", "seen"} {
		if ParseSplit(s) != SplitTrain {
			t.Fatalf("%q should map to the train partition", s)
		}
	}
}

func TestPlanCountFollowsSplit(t *testing.T) {
	cfg := validTestConfig()
	cfg.CountPerRoom = 100
	cfg.TestCountPerRoom = 7

	if got := cfg.planCount(); got != 100 {
		t.Fatalf("train plan count %d, want 100", got)
	}
	// seen rooms stay on the train partition but are test-sized
	cfg.Kind = "seen"
	if got := cfg.planCount(); got != 7 {
		t.Fatalf("seen plan count %d, want 7", got)
	}
	if cfg.Partition() != SplitTrain {
		t.Fatalf("seen rooms should draw from the train partition")
	}
	cfg.Kind = "unseen"
	if got := cfg.planCount(); got != 7 {
		t.Fatalf("unseen plan count %d, want 7", got)
	}
	if cfg.Partition() != SplitTest {
		t.Fatalf("unseen rooms should draw from the test partition")
	}
}

func TestPropagatorCountPinned(t *testing.T) {
	cfg := validTestConfig()
	cfg.NumPropagators = 5
	if got := cfg.propagatorCount(); got != 5 {
		t.Fatalf("pinned propagator count %d, want 5", got)
	}

	cfg.NumPropagators = 0
	if got := cfg.propagatorCount(); got < 1 || got > 3*cfg.NumDevices {
		t.Fatalf("derived propagator count %d out of range", got)
	}
}
