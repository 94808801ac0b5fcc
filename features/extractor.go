// Package features exposes pluggable acoustic feature extractors for
// corpus preparation pipelines.
//
// Extractors are configuration-bearing objects that turn raw waveform
// buffers into feature matrices. Callers hand in either a plain sample
// slice (wrapped in an Array) or a device-tagged tensor (wrapped in a
// TensorBuffer) and get the same representation back, so downstream
// stages that branch on representation keep working.
package features

import (
	"fmt"

	"github.com/acousticlab/featex/tensor"
)

// Seconds is a duration expressed as a floating-point second count.
type Seconds float64

// EPSILON floors linear energies before taking logarithms. Energies
// are non-negative by construction, so this is a numerical safety net
// rather than a semantic branch.
const EPSILON = 1e-10

// Extractor is the interface all feature extractors implement.
type Extractor interface {
	// Name returns the registry name of the extractor
	Name() string

	// FeatureDim returns the feature dimension for the given sampling
	// rate. Some extractors ignore the rate; the parameter exists so
	// all extractors can be driven uniformly.
	FeatureDim(samplingRate int) int

	// FrameShift returns the time advanced per output frame
	FrameShift() Seconds

	// Extract computes a feature matrix from a 1-D waveform buffer,
	// preserving the caller's numeric representation on output
	Extract(samples NumericBuffer, samplingRate int) (NumericBuffer, error)
}

// NumericBuffer abstracts the numeric representations that can cross
// the extractor boundary: a plain in-memory array or a device-capable
// tensor. Extractors code against this interface and mirror the input
// representation on output.
type NumericBuffer interface {
	// PlainArray returns the values as a flat row-major copy
	PlainArray() []float64

	// Shape returns the dimensions of the buffer
	Shape() []int

	// FromMatrix builds a new buffer of the same representation from a
	// 2-D feature matrix
	FromMatrix(rows [][]float64) (NumericBuffer, error)

	// ToDevice places the buffer on the given compute device
	ToDevice(device tensor.Device) (NumericBuffer, error)
}

// Array is the plain in-memory representation: values plus a shape,
// with no device affinity. It is what callers use when their samples
// live in an ordinary slice.
type Array struct {
	data  []float64
	shape []int
}

// NewArray wraps a 1-D sample buffer. The samples are not copied;
// the extractor only reads them.
func NewArray(samples []float64) *Array {
	return &Array{
		data:  samples,
		shape: []int{len(samples)},
	}
}

// PlainArray returns the values as a flat row-major copy
func (a *Array) PlainArray() []float64 {
	data := make([]float64, len(a.data))
	copy(data, a.data)
	return data
}

// Shape returns the dimensions of the array
func (a *Array) Shape() []int {
	shape := make([]int, len(a.shape))
	copy(shape, a.shape)
	return shape
}

// FromMatrix builds a new 2-D Array from a feature matrix. All rows
// must have equal length.
func (a *Array) FromMatrix(rows [][]float64) (NumericBuffer, error) {
	cols := 0
	if len(rows) > 0 {
		cols = len(rows[0])
	}

	data := make([]float64, 0, len(rows)*cols)
	for i, row := range rows {
		if len(row) != cols {
			return nil, fmt.Errorf("ragged matrix: row 0 has %d columns, row %d has %d", cols, i, len(row))
		}
		data = append(data, row...)
	}

	return &Array{
		data:  data,
		shape: []int{len(rows), cols},
	}, nil
}

// ToDevice is a no-op for plain arrays, which always live in host
// memory. The device is validated so misconfiguration still surfaces.
func (a *Array) ToDevice(device tensor.Device) (NumericBuffer, error) {
	if err := device.Validate(); err != nil {
		return nil, err
	}
	return a, nil
}

// Matrix returns the values as a 2-D matrix. The array must be
// two-dimensional.
func (a *Array) Matrix() ([][]float64, error) {
	if len(a.shape) != 2 {
		return nil, fmt.Errorf("array has shape %v, expected 2 dimensions", a.shape)
	}
	rows, cols := a.shape[0], a.shape[1]
	m := make([][]float64, rows)
	for i := 0; i < rows; i++ {
		m[i] = make([]float64, cols)
		copy(m[i], a.data[i*cols:(i+1)*cols])
	}
	return m, nil
}

// TensorBuffer adapts a tensor.Tensor to the NumericBuffer interface.
type TensorBuffer struct {
	T *tensor.Tensor
}

// NewTensorBuffer wraps a tensor for extraction
func NewTensorBuffer(t *tensor.Tensor) *TensorBuffer {
	return &TensorBuffer{T: t}
}

// PlainArray returns the tensor values as a flat row-major copy
func (b *TensorBuffer) PlainArray() []float64 {
	return b.T.Data()
}

// Shape returns the tensor's dimensions
func (b *TensorBuffer) Shape() []int {
	return b.T.Shape()
}

// FromMatrix builds a new 2-D tensor on the receiver's device from a
// feature matrix
func (b *TensorBuffer) FromMatrix(rows [][]float64) (NumericBuffer, error) {
	t, err := tensor.FromMatrix(rows)
	if err != nil {
		return nil, err
	}
	t, err = t.To(b.T.Device())
	if err != nil {
		return nil, err
	}
	return &TensorBuffer{T: t}, nil
}

// ToDevice places the tensor on the given compute device
func (b *TensorBuffer) ToDevice(device tensor.Device) (NumericBuffer, error) {
	t, err := b.T.To(device)
	if err != nil {
		return nil, err
	}
	return &TensorBuffer{T: t}, nil
}
