// Package tensor provides the dense row-major containers that carry acoustic
// features and symbol indices through the data pipeline.
package tensor

import (
	"errors"
	"fmt"
)

// Float is a dense, row-major float32 tensor.
type Float struct {
	shape []int64
	data  []float32
}

// New creates a tensor from data and shape. Both slices are copied.
func New(data []float32, shape []int64) (*Float, error) {
	total, err := shapeElemCount(shape)
	if err != nil {
		return nil, err
	}

	if len(data) != total {
		return nil, fmt.Errorf("tensor: data length %d does not match shape %v (%d elements)", len(data), shape, total)
	}

	s := append([]int64(nil), shape...)
	d := append([]float32(nil), data...)

	return &Float{shape: s, data: d}, nil
}

// FromOwned creates a tensor that takes ownership of data without copying.
// The caller must not retain or modify data afterwards.
func FromOwned(data []float32, shape []int64) (*Float, error) {
	total, err := shapeElemCount(shape)
	if err != nil {
		return nil, err
	}

	if len(data) != total {
		return nil, fmt.Errorf("tensor: data length %d does not match shape %v (%d elements)", len(data), shape, total)
	}

	return &Float{shape: append([]int64(nil), shape...), data: data}, nil
}

// Zeros creates a zero-initialized tensor.
func Zeros(shape []int64) (*Float, error) {
	total, err := shapeElemCount(shape)
	if err != nil {
		return nil, err
	}

	return &Float{
		shape: append([]int64(nil), shape...),
		data:  make([]float32, total),
	}, nil
}

func (t *Float) Shape() []int64 {
	if t == nil {
		return nil
	}

	return append([]int64(nil), t.shape...)
}

// Dim returns the size of dimension i; negative i counts from the end.
func (t *Float) Dim(i int) int64 {
	if t == nil {
		return 0
	}

	i, err := normalizeDim(i, len(t.shape))
	if err != nil {
		return 0
	}

	return t.shape[i]
}

// Data returns a copy of the underlying tensor data.
func (t *Float) Data() []float32 {
	if t == nil {
		return nil
	}

	return append([]float32(nil), t.data...)
}

// RawData returns the underlying data slice.
// Callers must treat it as read-only.
func (t *Float) RawData() []float32 {
	if t == nil {
		return nil
	}

	return t.data
}

func (t *Float) ElemCount() int {
	if t == nil {
		return 0
	}

	return len(t.data)
}

func (t *Float) Rank() int {
	if t == nil {
		return 0
	}

	return len(t.shape)
}

// At returns the element at the given coordinate.
func (t *Float) At(idx ...int64) (float32, error) {
	if t == nil {
		return 0, errors.New("tensor: at on nil tensor")
	}

	off, err := offset(t.shape, idx)
	if err != nil {
		return 0, err
	}

	return t.data[off], nil
}

// Row returns the contiguous innermost row addressed by the leading
// coordinates. The slice aliases tensor storage.
func (t *Float) Row(lead ...int64) ([]float32, error) {
	if t == nil {
		return nil, errors.New("tensor: row on nil tensor")
	}

	if len(lead) != len(t.shape)-1 {
		return nil, fmt.Errorf("tensor: row needs %d leading indices, got %d", len(t.shape)-1, len(lead))
	}

	idx := append(append([]int64(nil), lead...), 0)

	width := t.shape[len(t.shape)-1]
	if width == 0 {
		return nil, nil
	}

	off, err := offset(t.shape, idx)
	if err != nil {
		return nil, err
	}

	return t.data[off : off+width], nil
}

// Narrow slices the tensor along a single dimension into a new tensor.
func (t *Float) Narrow(dim int, start, length int64) (*Float, error) {
	if t == nil {
		return nil, errors.New("tensor: narrow on nil tensor")
	}

	dim, err := normalizeDim(dim, len(t.shape))
	if err != nil {
		return nil, fmt.Errorf("tensor: narrow: %w", err)
	}

	if start < 0 || length < 0 || start+length > t.shape[dim] {
		return nil, fmt.Errorf("tensor: narrow: range [%d:%d] out of bounds for dim %d size %d", start, start+length, dim, t.shape[dim])
	}

	outShape := append([]int64(nil), t.shape...)
	outShape[dim] = length

	out, err := Zeros(outShape)
	if err != nil {
		return nil, err
	}

	inner := int64(1)
	for i := dim + 1; i < len(t.shape); i++ {
		inner *= t.shape[i]
	}

	outer := int64(1)
	for i := range dim {
		outer *= t.shape[i]
	}

	span := length * inner
	for o := range outer {
		src := o*t.shape[dim]*inner + start*inner
		copy(out.data[o*span:(o+1)*span], t.data[src:src+span])
	}

	return out, nil
}
