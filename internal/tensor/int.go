package tensor

import (
	"errors"
	"fmt"
)

// Int is a dense, row-major int64 tensor used for symbol indices and
// length vectors.
type Int struct {
	shape []int64
	data  []int64
}

// NewInt creates an int tensor from data and shape. Both slices are copied.
func NewInt(data []int64, shape []int64) (*Int, error) {
	total, err := shapeElemCount(shape)
	if err != nil {
		return nil, err
	}

	if len(data) != total {
		return nil, fmt.Errorf("tensor: data length %d does not match shape %v (%d elements)", len(data), shape, total)
	}

	return &Int{
		shape: append([]int64(nil), shape...),
		data:  append([]int64(nil), data...),
	}, nil
}

// ZerosInt creates a zero-initialized int tensor.
func ZerosInt(shape []int64) (*Int, error) {
	total, err := shapeElemCount(shape)
	if err != nil {
		return nil, err
	}

	return &Int{
		shape: append([]int64(nil), shape...),
		data:  make([]int64, total),
	}, nil
}

func (t *Int) Shape() []int64 {
	if t == nil {
		return nil
	}

	return append([]int64(nil), t.shape...)
}

func (t *Int) Dim(i int) int64 {
	if t == nil {
		return 0
	}

	i, err := normalizeDim(i, len(t.shape))
	if err != nil {
		return 0
	}

	return t.shape[i]
}

// RawData returns the underlying data slice.
// Callers must treat it as read-only.
func (t *Int) RawData() []int64 {
	if t == nil {
		return nil
	}

	return t.data
}

func (t *Int) At(idx ...int64) (int64, error) {
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
func (t *Int) Row(lead ...int64) ([]int64, error) {
	if t == nil {
		return nil, errors.New("tensor: row on nil tensor")
	}

	if len(lead) != len(t.shape)-1 {
		return nil, fmt.Errorf("tensor: row needs %d leading indices, got %d", len(t.shape)-1, len(lead))
	}

	width := t.shape[len(t.shape)-1]
	if width == 0 {
		return nil, nil
	}

	off, err := offset(t.shape, append(append([]int64(nil), lead...), 0))
	if err != nil {
		return nil, err
	}

	return t.data[off : off+width], nil
}
