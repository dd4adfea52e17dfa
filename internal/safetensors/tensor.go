// Package safetensors reads and writes the safetensors container format:
// an 8-byte little-endian header length, a JSON header describing each
// tensor, then the raw little-endian tensor bytes.
package safetensors

import (
	"fmt"
	"math"
)

const (
	DTypeF32 = "F32"
	DTypeI64 = "I64"
)

const metadataKey = "__metadata__"

// Tensor is one named tensor. Exactly one of Float and Int carries the
// elements, selecting the dtype.
type Tensor struct {
	Name  string
	Shape []int64
	Float []float32
	Int   []int64
}

// F32 builds a float32 tensor.
func F32(name string, shape []int64, data []float32) Tensor {
	return Tensor{Name: name, Shape: shape, Float: data}
}

// I64 builds an int64 tensor.
func I64(name string, shape []int64, data []int64) Tensor {
	return Tensor{Name: name, Shape: shape, Int: data}
}

func (t Tensor) DType() string {
	if t.Int != nil {
		return DTypeI64
	}

	return DTypeF32
}

// Len is the number of stored elements.
func (t Tensor) Len() int {
	if t.Int != nil {
		return len(t.Int)
	}

	return len(t.Float)
}

func shapeElementCount(shape []int64) (int64, error) {
	total := int64(1)

	for _, d := range shape {
		if d < 0 {
			return 0, fmt.Errorf("negative dimension %d", d)
		}

		if d == 0 {
			return 0, nil
		}

		if total > math.MaxInt64/d {
			return 0, fmt.Errorf("shape %v overflows element count", shape)
		}

		total *= d
	}

	return total, nil
}

func dtypeBytes(dtype string) (int, error) {
	switch dtype {
	case DTypeF32:
		return 4, nil
	case DTypeI64:
		return 8, nil
	default:
		return 0, fmt.Errorf("unsupported dtype %q", dtype)
	}
}
