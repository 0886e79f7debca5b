package pipeline

import (
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
)

// featureFilePattern names one feature record: running index, speech index,
// room, location index.
const featureFilePattern = "%05d_%04d_%s_%02d.dirspec"

// FeatureTuple is one planned (speech, room, location) combination. Its
// position in the plan is the record's running index.
type FeatureTuple struct {
	Speech int
	Room   string
	Loc    int
}

func featureFilename(idx int, t FeatureTuple) string {
	return fmt.Sprintf(featureFilePattern, idx, t.Speech, t.Room, t.Loc)
}

func parseFeatureFilename(name string) (idx int, t FeatureTuple, err error) {
	base := strings.TrimSuffix(name, filepath.Ext(name))
	parts := strings.Split(base, "_")
	if len(parts) < 4 {
		return 0, FeatureTuple{}, fmt.Errorf("malformed feature filename %q", name)
	}
	idx, err = strconv.Atoi(parts[0])
	if err != nil {
		return 0, FeatureTuple{}, fmt.Errorf("malformed feature filename %q: %w", name, err)
	}
	t.Speech, err = strconv.Atoi(parts[1])
	if err != nil {
		return 0, FeatureTuple{}, fmt.Errorf("malformed feature filename %q: %w", name, err)
	}
	t.Loc, err = strconv.Atoi(parts[len(parts)-1])
	if err != nil {
		return 0, FeatureTuple{}, fmt.Errorf("malformed feature filename %q: %w", name, err)
	}
	t.Room = strings.Join(parts[2:len(parts)-1], "_")
	return idx, t, nil
}

// samplePlan draws count tuples without replacement from the full
// speech x location product, seeded so a rerun with the same inputs plans the
// same records. When count covers the whole product the plan is exhaustive.
func samplePlan(room string, numSpeech, numLoc, count int, seed int64) []FeatureTuple {
	total := numSpeech * numLoc
	if count > total {
		count = total
	}
	rng := rand.New(rand.NewSource(seed))
	picks := rng.Perm(total)[:count]
	sort.Ints(picks)

	plan := make([]FeatureTuple, count)
	for i, p := range picks {
		plan[i] = FeatureTuple{Speech: p / numLoc, Room: room, Loc: p % numLoc}
	}
	return plan
}

// planFromMetadata rebuilds the plan of an earlier run from its metadata so a
// matched feature set can be generated against different constants.
func planFromMetadata(path, room string) ([]FeatureTuple, error) {
	md, err := readMetadata(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read reference metadata: %w", err)
	}
	plan := make([]FeatureTuple, len(md.FeatureFiles))
	for i, name := range md.FeatureFiles {
		idx, t, err := parseFeatureFilename(name)
		if err != nil {
			return nil, err
		}
		if idx != i {
			return nil, fmt.Errorf("reference metadata lists %q at position %d", name, i)
		}
		t.Room = room
		plan[i] = t
	}
	return plan, nil
}

// firstMissingIndex scans outDir for the plan's feature files and returns the
// index of the first one that is absent. A full directory returns len(plan).
func firstMissingIndex(outDir string, plan []FeatureTuple) (int, error) {
	for i, t := range plan {
		_, err := os.Stat(filepath.Join(outDir, featureFilename(i, t)))
		if os.IsNotExist(err) {
			return i, nil
		}
		if err != nil {
			return 0, fmt.Errorf("failed to scan output directory: %w", err)
		}
	}
	return len(plan), nil
}
