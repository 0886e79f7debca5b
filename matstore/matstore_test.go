package matstore

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
)

func testArchive() *Archive {
	arch := New()
	arch.SetArray("real", NewArray([]int{2, 3}, []float64{1, 2, 3, 4, 5, 6}))
	arch.SetArray("single", NewSingleArray([]int{2}, []float64{1.0 / 3.0, 2.0 / 3.0}))
	arch.SetArray("cplx", NewComplexArray([]int{2}, []complex128{1 + 2i, -3i}))
	arch.SetStrings("names", []string{"a", "b", "c"})
	arch.SetInt("n_loc", 13)
	return arch
}

func TestArchiveRoundTrip(t *testing.T) {
	arch := testArchive()

	var buf bytes.Buffer
	if err := arch.Encode(&buf); err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	got, err := Decode(&buf)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}

	arr, err := got.Array("real")
	if err != nil {
		t.Fatalf("Array failed: %v", err)
	}
	if arr.Dim(0) != 2 || arr.Dim(1) != 3 {
		t.Fatalf("shape changed: %v", arr.Shape)
	}
	data, err := arr.Float()
	if err != nil {
		t.Fatalf("Float failed: %v", err)
	}
	if data[4] != 5 {
		t.Fatalf("data changed: %v", data)
	}

	c, err := got.Array("cplx")
	if err != nil {
		t.Fatalf("Array failed: %v", err)
	}
	cdata, err := c.Complex()
	if err != nil {
		t.Fatalf("Complex failed: %v", err)
	}
	if cdata[0] != 1+2i || cdata[1] != -3i {
		t.Fatalf("complex data changed: %v", cdata)
	}

	names, err := got.Strings("names")
	if err != nil || len(names) != 3 || names[1] != "b" {
		t.Fatalf("strings changed: %v (%v)", names, err)
	}
	n, err := got.Int("n_loc")
	if err != nil || n != 13 {
		t.Fatalf("int changed: %d (%v)", n, err)
	}
}

func TestEncodeIsDeterministic(t *testing.T) {
	var a, b bytes.Buffer
	if err := testArchive().Encode(&a); err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	if err := testArchive().Encode(&b); err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	if !bytes.Equal(a.Bytes(), b.Bytes()) {
		t.Fatalf("two encodings of the same archive differ")
	}
}

func TestWriteFileIsAtomicAndReadable(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "arch.dirspec")

	if err := testArchive().WriteFile(path); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}
	got, err := ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}
	if !got.HasArray("real") {
		t.Fatalf("array missing after round trip")
	}

	// no leftover temp files
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir failed: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected 1 file in dir, got %d", len(entries))
	}
}

func TestCompressedFileRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "arch.dirspec")
	if err := testArchive().WriteCompressedFile(path); err != nil {
		t.Fatalf("WriteCompressedFile failed: %v", err)
	}
	got, err := ReadCompressedFile(path)
	if err != nil {
		t.Fatalf("ReadCompressedFile failed: %v", err)
	}
	if n, err := got.Int("n_loc"); err != nil || n != 13 {
		t.Fatalf("int changed: %d (%v)", n, err)
	}
}

func TestSingleArrayQuantizes(t *testing.T) {
	arr := NewSingleArray([]int{1}, []float64{1.0 / 3.0})
	data, err := arr.Float()
	if err != nil {
		t.Fatalf("Float failed: %v", err)
	}
	if want := float64(float32(1.0 / 3.0)); data[0] != want {
		t.Fatalf("got %v, want single-precision %v", data[0], want)
	}
}

func TestFloatRejectsComplexArray(t *testing.T) {
	arr := NewComplexArray([]int{1}, []complex128{1i})
	if _, err := arr.Float(); err == nil {
		t.Fatalf("expected error reading complex array as float")
	}
}

func TestMissingEntriesError(t *testing.T) {
	arch := New()
	if _, err := arch.Array("nope"); err == nil {
		t.Fatalf("expected error for missing array")
	}
	if _, err := arch.Strings("nope"); err == nil {
		t.Fatalf("expected error for missing strings")
	}
	if _, err := arch.Int("nope"); err == nil {
		t.Fatalf("expected error for missing int")
	}
}

func TestValidateCatchesShapeMismatch(t *testing.T) {
	arr := NewArray([]int{2, 2}, []float64{1, 2, 3})
	if err := arr.Validate(); err == nil {
		t.Fatalf("expected error for shape/data mismatch")
	}
}
