package pipeline

import (
	"fmt"
	"path/filepath"

	"github.com/soundfield/dirspec/matstore"
)

// FeatureRecord is the on-disk unit of one synthesized example: the
// directional spectrogram and phase planes of the free-field reference and of
// the reverberant capture, both indexed frequency x frame x channel.
type FeatureRecord struct {
	Idx        int
	Speech     int
	Loc        int
	SpeechPath string

	DirspecFree [][][]float32
	PhaseFree   [][][]float32
	DirspecRoom [][][]float32
	PhaseRoom   [][][]float32
}

// Filename returns the record's filename under the run's output directory.
func (r *FeatureRecord) Filename(room string) string {
	return featureFilename(r.Idx, FeatureTuple{Speech: r.Speech, Room: room, Loc: r.Loc})
}

func (r *FeatureRecord) archive() (*matstore.Archive, error) {
	arch := matstore.New()
	for _, p := range []struct {
		name  string
		plane [][][]float32
	}{
		{"dirspec_free", r.DirspecFree},
		{"phase_free", r.PhaseFree},
		{"dirspec_room", r.DirspecRoom},
		{"phase_room", r.PhaseRoom},
	} {
		arr, err := planeArray(p.plane)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", p.name, err)
		}
		arch.SetArray(p.name, arr)
	}
	arch.SetStrings("path_speech", []string{r.SpeechPath})
	return arch, nil
}

// WriteFeatureRecord persists one record atomically under outDir.
func WriteFeatureRecord(outDir, room string, r *FeatureRecord) error {
	arch, err := r.archive()
	if err != nil {
		return err
	}
	path := filepath.Join(outDir, r.Filename(room))
	if err := arch.WriteCompressedFile(path); err != nil {
		return fmt.Errorf("failed to write feature record: %w", err)
	}
	return nil
}

// ReadFeatureRecord loads a persisted record back into memory.
func ReadFeatureRecord(path string) (*FeatureRecord, error) {
	arch, err := matstore.ReadCompressedFile(path)
	if err != nil {
		return nil, err
	}
	idx, t, err := parseFeatureFilename(filepath.Base(path))
	if err != nil {
		return nil, err
	}

	rec := &FeatureRecord{Idx: idx, Speech: t.Speech, Loc: t.Loc}
	for _, p := range []struct {
		name  string
		plane *[][][]float32
	}{
		{"dirspec_free", &rec.DirspecFree},
		{"phase_free", &rec.PhaseFree},
		{"dirspec_room", &rec.DirspecRoom},
		{"phase_room", &rec.PhaseRoom},
	} {
		arr, err := arch.Array(p.name)
		if err != nil {
			return nil, err
		}
		plane, err := arrayPlane(arr)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", p.name, err)
		}
		*p.plane = plane
	}
	paths, err := arch.Strings("path_speech")
	if err != nil {
		return nil, err
	}
	rec.SpeechPath = paths[0]
	return rec, nil
}

func planeArray(plane [][][]float32) (*matstore.Array, error) {
	if len(plane) == 0 || len(plane[0]) == 0 || len(plane[0][0]) == 0 {
		return nil, fmt.Errorf("empty feature plane")
	}
	nFreq, nFrame, nChan := len(plane), len(plane[0]), len(plane[0][0])
	data := make([]float64, 0, nFreq*nFrame*nChan)
	for _, frames := range plane {
		if len(frames) != nFrame {
			return nil, fmt.Errorf("ragged feature plane")
		}
		for _, chans := range frames {
			if len(chans) != nChan {
				return nil, fmt.Errorf("ragged feature plane")
			}
			for _, v := range chans {
				data = append(data, float64(v))
			}
		}
	}
	return matstore.NewSingleArray([]int{nFreq, nFrame, nChan}, data), nil
}

func arrayPlane(arr *matstore.Array) ([][][]float32, error) {
	if arr.NumDims() != 3 {
		return nil, fmt.Errorf("feature plane must be 3-D, got shape %v", arr.Shape)
	}
	data, err := arr.Float()
	if err != nil {
		return nil, err
	}
	nFreq, nFrame, nChan := arr.Dim(0), arr.Dim(1), arr.Dim(2)
	plane := make([][][]float32, nFreq)
	i := 0
	for f := range plane {
		plane[f] = make([][]float32, nFrame)
		for t := range plane[f] {
			chans := make([]float32, nChan)
			for c := range chans {
				chans[c] = float32(data[i])
				i++
			}
			plane[f][t] = chans
		}
	}
	return plane, nil
}
