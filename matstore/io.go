package matstore

import (
	"compress/gzip"
	"encoding/gob"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
)

// namedArray and namedStrings are the on-disk entry forms; the archive is
// encoded as sorted entry lists so gob output is deterministic.
type namedArray struct {
	Name  string
	Array *Array
}

type namedStrings struct {
	Name   string
	Values []string
}

type payload struct {
	Arrays  []namedArray
	Strings []namedStrings
}

// Encode writes the archive to w.
func (ar *Archive) Encode(w io.Writer) error {
	var p payload
	for name, a := range ar.arrays {
		p.Arrays = append(p.Arrays, namedArray{Name: name, Array: a})
	}
	for name, v := range ar.strings {
		p.Strings = append(p.Strings, namedStrings{Name: name, Values: v})
	}
	sort.Slice(p.Arrays, func(i, j int) bool { return p.Arrays[i].Name < p.Arrays[j].Name })
	sort.Slice(p.Strings, func(i, j int) bool { return p.Strings[i].Name < p.Strings[j].Name })

	for _, e := range p.Arrays {
		if err := e.Array.Validate(); err != nil {
			return fmt.Errorf("array %q: %w", e.Name, err)
		}
	}

	return gob.NewEncoder(w).Encode(&p)
}

// Decode reads an archive from r and validates every array.
func Decode(r io.Reader) (*Archive, error) {
	var p payload
	if err := gob.NewDecoder(r).Decode(&p); err != nil {
		return nil, fmt.Errorf("decode archive: %w", err)
	}

	ar := New()
	for _, e := range p.Arrays {
		if err := e.Array.Validate(); err != nil {
			return nil, fmt.Errorf("array %q: %w", e.Name, err)
		}
		ar.arrays[e.Name] = e.Array
	}
	for _, e := range p.Strings {
		ar.strings[e.Name] = e.Values
	}
	return ar, nil
}

// WriteFile persists the archive atomically: the bytes land in a temp file in
// the target directory and are renamed into place.
func (ar *Archive) WriteFile(path string) error {
	return ar.writeAtomic(path, false)
}

// WriteCompressedFile is WriteFile with a gzip layer, used for the bulky
// per-feature records.
func (ar *Archive) WriteCompressedFile(path string) error {
	return ar.writeAtomic(path, true)
}

func (ar *Archive) writeAtomic(path string, compress bool) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()

	var encodeErr error
	if compress {
		gz := gzip.NewWriter(tmp)
		encodeErr = ar.Encode(gz)
		if err := gz.Close(); encodeErr == nil {
			encodeErr = err
		}
	} else {
		encodeErr = ar.Encode(tmp)
	}

	if err := tmp.Close(); encodeErr == nil {
		encodeErr = err
	}
	if encodeErr != nil {
		os.Remove(tmpName)
		return fmt.Errorf("write %s: %w", path, encodeErr)
	}

	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("rename into place: %w", err)
	}
	return nil
}

// ReadFile loads an archive written by WriteFile.
func ReadFile(path string) (*Archive, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Decode(f)
}

// ReadCompressedFile loads an archive written by WriteCompressedFile.
func ReadCompressedFile(path string) (*Archive, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	gz, err := gzip.NewReader(f)
	if err != nil {
		return nil, fmt.Errorf("open gzip stream: %w", err)
	}
	defer gz.Close()
	return Decode(gz)
}
