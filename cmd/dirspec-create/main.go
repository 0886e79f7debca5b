// Command dirspec-create synthesizes a directional spectrogram feature set
// for one room and split.
//
// Usage:
//
//	dirspec-create [flags] ROOM SPLIT
//
// ROOM names the RIR measurement set, SPLIT is one of train, seen or unseen.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/soundfield/dirspec/logging"
	"github.com/soundfield/dirspec/pipeline"
)

func main() {
	cfg := pipeline.DefaultConfig()
	// JSON config file as the base layer; explicit flags override it below
	if path := configFlagValue(os.Args[1:]); path != "" {
		loaded, err := pipeline.LoadConfig(path)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(2)
		}
		cfg = loaded
	}
	flag.String("c", "", "JSON config file")

	flag.StringVar(&cfg.SpeechDir, "speech", cfg.SpeechDir, "directory of anechoic speech WAV files (required)")
	flag.StringVar(&cfg.RIRPath, "rir", cfg.RIRPath, "room impulse response archive (required)")
	flag.StringVar(&cfg.ConstantsPath, "constants", cfg.ConstantsPath, "spherical-harmonic constants archive (required)")
	flag.StringVar(&cfg.OutDir, "out", cfg.OutDir, "output root directory (required)")
	target := flag.String("t", "", "subfolder of the output root for this run")
	flag.StringVar(&cfg.DirectionalFeature, "feature", cfg.DirectionalFeature,
		"directional feature variant: iv or dirac")
	flag.IntVar(&cfg.NumDevices, "devices", cfg.NumDevices, "number of extractor workers")
	flag.IntVar(&cfg.QueueCapacity, "queue", cfg.QueueCapacity, "per-extractor queue capacity")
	flag.IntVar(&cfg.CountPerRoom, "count", cfg.CountPerRoom, "records per room (train splits)")
	flag.IntVar(&cfg.TestCountPerRoom, "test-count", cfg.TestCountPerRoom, "records per room (unseen split)")
	flag.Int64Var(&cfg.Seed, "seed", cfg.Seed, "sampling seed")
	flag.StringVar(&cfg.ReferenceMetadata, "ref", cfg.ReferenceMetadata, "replay the plan of an earlier run's metadata file")
	from := flag.Int("from", -1, "restart from this record index (default: continue after the last finished record)")
	verbose := flag.Bool("v", false, "enable debug logging")
	flag.Usage = usage
	flag.Parse()

	if flag.NArg() != 2 {
		usage()
		os.Exit(2)
	}
	cfg.Room = flag.Arg(0)
	split := strings.ToLower(flag.Arg(1))
	switch split {
	case "train", "seen", "unseen":
	default:
		fmt.Fprintf(os.Stderr, "unknown split %q: want train, seen or unseen\n", flag.Arg(1))
		os.Exit(2)
	}
	cfg.Kind = split
	cfg.FromIdx = *from
	if *target != "" {
		cfg.OutDir = filepath.Join(cfg.OutDir, *target)
	}

	if *verbose {
		logging.SetLevel(logging.DebugLevel)
	} else {
		logging.SetLevel(logging.InfoLevel)
	}

	p, err := pipeline.New(cfg)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	if *from >= 0 {
		p.ResumeDecision = confirmResume
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := p.Run(ctx); err != nil {
		logging.Error(err, "run failed", logging.Fields{"component": "main"})
		os.Exit(1)
	}
}

// configFlagValue pulls the -c value out of the raw arguments before the flag
// set is built, so the file can seed the defaults of every other flag.
func configFlagValue(args []string) string {
	for i, a := range args {
		switch {
		case a == "-c" || a == "--c":
			if i+1 < len(args) {
				return args[i+1]
			}
		case strings.HasPrefix(a, "-c="):
			return a[len("-c="):]
		case strings.HasPrefix(a, "--c="):
			return a[len("--c="):]
		}
	}
	return ""
}

func confirmResume(startIdx int) bool {
	fmt.Printf("records before index %d exist, continue from there? [y/n] ", startIdx)
	sc := bufio.NewScanner(os.Stdin)
	if !sc.Scan() {
		return false
	}
	ans := strings.ToLower(strings.TrimSpace(sc.Text()))
	return ans == "y" || ans == "yes"
}

func usage() {
	fmt.Fprintf(os.Stderr, "usage: %s [flags] ROOM SPLIT\n\n", filepath.Base(os.Args[0]))
	fmt.Fprintln(os.Stderr, "ROOM names the RIR measurement set; SPLIT is train, seen or unseen.")
	fmt.Fprintln(os.Stderr, "\nFlags:")
	flag.PrintDefaults()
}
