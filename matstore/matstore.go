// Package matstore implements the binary named-array container used for every
// persistent artifact of the pipeline: RIR/steering archives, the
// spherical-harmonic constants archive, run metadata, and compressed feature
// records. Entries are serialized sorted by name so identical content always
// produces identical bytes, which is what makes resumed runs reproducible
// file-for-file.
package matstore

import (
	"fmt"
	"sort"
)

// DType identifies the numeric precision of an array payload.
type DType uint8

const (
	Float64 DType = iota
	Float32
	Complex128
	Complex64
)

func (d DType) String() string {
	switch d {
	case Float64:
		return "float64"
	case Float32:
		return "float32"
	case Complex128:
		return "complex128"
	case Complex64:
		return "complex64"
	default:
		return fmt.Sprintf("dtype(%d)", uint8(d))
	}
}

// isComplex reports whether the dtype carries an imaginary payload.
func (d DType) isComplex() bool {
	return d == Complex128 || d == Complex64
}

// supported reports whether the dtype tag is one this build understands.
// An unsupported tag in an input archive is a configuration error.
func (d DType) supported() bool {
	return d <= Complex64
}

// Array is a dense named-array payload with row-major data. Single-precision
// dtypes still store float64 values, quantized at construction.
type Array struct {
	Shape []int
	DType DType
	Real  []float64
	Imag  []float64 // nil for real dtypes
}

// NewArray creates a double-precision real array.
func NewArray(shape []int, data []float64) *Array {
	return &Array{Shape: shape, DType: Float64, Real: data}
}

// NewSingleArray creates a single-precision real array, quantizing the data.
func NewSingleArray(shape []int, data []float64) *Array {
	q := make([]float64, len(data))
	for i, v := range data {
		q[i] = float64(float32(v))
	}
	return &Array{Shape: shape, DType: Float32, Real: q}
}

// NewComplexArray creates a double-precision complex array.
func NewComplexArray(shape []int, data []complex128) *Array {
	re := make([]float64, len(data))
	im := make([]float64, len(data))
	for i, z := range data {
		re[i] = real(z)
		im[i] = imag(z)
	}
	return &Array{Shape: shape, DType: Complex128, Real: re, Imag: im}
}

// Len returns the number of elements implied by the shape.
func (a *Array) Len() int {
	n := 1
	for _, d := range a.Shape {
		n *= d
	}
	return n
}

// Dim returns the size of dimension i.
func (a *Array) Dim(i int) int {
	return a.Shape[i]
}

// NumDims returns the number of dimensions.
func (a *Array) NumDims() int {
	return len(a.Shape)
}

// Validate checks the dtype tag and payload lengths against the shape.
func (a *Array) Validate() error {
	if !a.DType.supported() {
		return fmt.Errorf("unsupported dtype %s", a.DType)
	}
	if len(a.Real) != a.Len() {
		return fmt.Errorf("payload length %d doesn't match shape %v", len(a.Real), a.Shape)
	}
	if a.DType.isComplex() {
		if len(a.Imag) != a.Len() {
			return fmt.Errorf("imaginary payload length %d doesn't match shape %v", len(a.Imag), a.Shape)
		}
	} else if a.Imag != nil {
		return fmt.Errorf("real dtype %s carries an imaginary payload", a.DType)
	}
	return nil
}

// IsComplex reports whether the array is complex-valued.
func (a *Array) IsComplex() bool {
	return a.DType.isComplex()
}

// Float returns the real payload. Complex arrays are rejected.
func (a *Array) Float() ([]float64, error) {
	if err := a.Validate(); err != nil {
		return nil, err
	}
	if a.IsComplex() {
		return nil, fmt.Errorf("array is %s, expected real values", a.DType)
	}
	return a.Real, nil
}

// Complex returns the payload widened to complex128, regardless of dtype.
func (a *Array) Complex() ([]complex128, error) {
	if err := a.Validate(); err != nil {
		return nil, err
	}
	out := make([]complex128, a.Len())
	for i := range out {
		if a.IsComplex() {
			out[i] = complex(a.Real[i], a.Imag[i])
		} else {
			out[i] = complex(a.Real[i], 0)
		}
	}
	return out, nil
}

// Archive is a set of named arrays and string lists.
type Archive struct {
	arrays  map[string]*Array
	strings map[string][]string
}

// New creates an empty archive.
func New() *Archive {
	return &Archive{
		arrays:  make(map[string]*Array),
		strings: make(map[string][]string),
	}
}

// SetArray stores an array under name, replacing any previous entry.
func (ar *Archive) SetArray(name string, a *Array) {
	ar.arrays[name] = a
}

// Array returns the named array.
func (ar *Archive) Array(name string) (*Array, error) {
	a, ok := ar.arrays[name]
	if !ok {
		return nil, fmt.Errorf("archive has no array %q", name)
	}
	return a, nil
}

// HasArray reports whether name is present.
func (ar *Archive) HasArray(name string) bool {
	_, ok := ar.arrays[name]
	return ok
}

// SetStrings stores a string list under name.
func (ar *Archive) SetStrings(name string, values []string) {
	ar.strings[name] = values
}

// Strings returns the named string list.
func (ar *Archive) Strings(name string) ([]string, error) {
	v, ok := ar.strings[name]
	if !ok {
		return nil, fmt.Errorf("archive has no string list %q", name)
	}
	return v, nil
}

// SetInt stores a scalar as a one-element array.
func (ar *Archive) SetInt(name string, v int) {
	ar.SetArray(name, NewArray([]int{1}, []float64{float64(v)}))
}

// Int reads back a scalar stored with SetInt.
func (ar *Archive) Int(name string) (int, error) {
	a, err := ar.Array(name)
	if err != nil {
		return 0, err
	}
	data, err := a.Float()
	if err != nil {
		return 0, err
	}
	if len(data) != 1 {
		return 0, fmt.Errorf("array %q is not a scalar (shape %v)", name, a.Shape)
	}
	return int(data[0]), nil
}

// Names returns all entry names, sorted.
func (ar *Archive) Names() []string {
	names := make([]string, 0, len(ar.arrays)+len(ar.strings))
	for n := range ar.arrays {
		names = append(names, n)
	}
	for n := range ar.strings {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
