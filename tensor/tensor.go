// Package tensor provides a minimal device-tagged numeric buffer.
//
// It exists so that callers which already hold their audio on an
// accelerator-style buffer can pass it through feature extraction and
// get the same representation back, mirroring how array and tensor
// inputs round-trip through the extractors in the features package.
package tensor

import (
	"fmt"
)

// Device identifies the compute target a Tensor is placed on.
type Device string

// CPU is the only compute target with an execution backend in this
// build. The type is kept open so device strings survive config
// round-trips unchanged.
const CPU Device = "cpu"

// Validate reports whether the device can actually execute work here.
func (d Device) Validate() error {
	switch d {
	case "", CPU:
		return nil
	default:
		return fmt.Errorf("unsupported compute device %q: only %q execution is available", string(d), string(CPU))
	}
}

// Tensor is a dense row-major buffer of float64 values with an attached
// shape and device tag. Tensors are value containers, not views: every
// constructor and conversion copies.
type Tensor struct {
	data   []float64
	shape  []int
	device Device
}

// New creates a tensor from a flat row-major slice and a shape. The
// element count of the shape must match len(data).
func New(data []float64, shape ...int) (*Tensor, error) {
	if len(shape) == 0 {
		return nil, fmt.Errorf("tensor shape must have at least one dimension")
	}
	n := 1
	for _, dim := range shape {
		if dim < 0 {
			return nil, fmt.Errorf("tensor shape contains negative dimension %d", dim)
		}
		n *= dim
	}
	if n != len(data) {
		return nil, fmt.Errorf("tensor shape %v requires %d elements, got %d", shape, n, len(data))
	}

	t := &Tensor{
		data:   make([]float64, len(data)),
		shape:  make([]int, len(shape)),
		device: CPU,
	}
	copy(t.data, data)
	copy(t.shape, shape)
	return t, nil
}

// FromSlice creates a 1-D tensor from a sample buffer.
func FromSlice(samples []float64) *Tensor {
	t, _ := New(samples, len(samples))
	return t
}

// FromMatrix creates a 2-D tensor from a row-major matrix. All rows
// must have equal length.
func FromMatrix(rows [][]float64) (*Tensor, error) {
	if len(rows) == 0 {
		return New(nil, 0, 0)
	}
	cols := len(rows[0])
	data := make([]float64, 0, len(rows)*cols)
	for i, row := range rows {
		if len(row) != cols {
			return nil, fmt.Errorf("ragged matrix: row 0 has %d columns, row %d has %d", cols, i, len(row))
		}
		data = append(data, row...)
	}
	return New(data, len(rows), cols)
}

// To returns a copy of the tensor tagged with the given device. The
// move fails if the device has no execution backend.
func (t *Tensor) To(device Device) (*Tensor, error) {
	if err := device.Validate(); err != nil {
		return nil, err
	}
	moved, err := New(t.data, t.shape...)
	if err != nil {
		return nil, err
	}
	if device == "" {
		device = CPU
	}
	moved.device = device
	return moved, nil
}

// Device returns the device tag.
func (t *Tensor) Device() Device {
	return t.device
}

// Shape returns a copy of the tensor's dimensions.
func (t *Tensor) Shape() []int {
	shape := make([]int, len(t.shape))
	copy(shape, t.shape)
	return shape
}

// Len returns the total number of elements.
func (t *Tensor) Len() int {
	return len(t.data)
}

// Data returns a copy of the values as a flat row-major slice.
func (t *Tensor) Data() []float64 {
	data := make([]float64, len(t.data))
	copy(data, t.data)
	return data
}

// Matrix returns the values as a freshly allocated 2-D matrix. The
// tensor must be two-dimensional.
func (t *Tensor) Matrix() ([][]float64, error) {
	if len(t.shape) != 2 {
		return nil, fmt.Errorf("tensor has shape %v, expected 2 dimensions", t.shape)
	}
	rows, cols := t.shape[0], t.shape[1]
	m := make([][]float64, rows)
	for i := 0; i < rows; i++ {
		m[i] = make([]float64, cols)
		copy(m[i], t.data[i*cols:(i+1)*cols])
	}
	return m, nil
}
