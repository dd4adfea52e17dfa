package mel

import (
	"fmt"
	"math"

	"github.com/example/go-meldata/internal/tensor"
)

// LogFloor is added to mel power before the logarithm.
const LogFloor = 1e-5

// Stretch resamples a [channels, frames] tensor along the time axis to size
// frames using linear interpolation with half-pixel centres.
func Stretch(x *tensor.Float, size int) (*tensor.Float, error) {
	if x.Rank() != 2 {
		return nil, fmt.Errorf("mel: stretch expects rank 2, got %d", x.Rank())
	}
	if size < 1 {
		return nil, fmt.Errorf("mel: stretch to invalid size %d", size)
	}

	rows := int(x.Dim(0))
	in := int(x.Dim(1))
	if in == 0 {
		return nil, fmt.Errorf("mel: stretch of empty time axis")
	}

	src := x.RawData()
	out := make([]float32, rows*size)
	scale := float64(in) / float64(size)

	for j := range size {
		pos := (float64(j)+0.5)*scale - 0.5
		if pos < 0 {
			pos = 0
		}
		i0 := int(pos)
		if i0 > in-1 {
			i0 = in - 1
		}
		i1 := i0 + 1
		if i1 > in-1 {
			i1 = in - 1
		}
		lambda := float32(pos - float64(i0))

		for r := range rows {
			a := src[r*in+i0]
			b := src[r*in+i1]
			out[r*size+j] = (1-lambda)*a + lambda*b
		}
	}

	return tensor.FromOwned(out, []int64{int64(rows), int64(size)})
}

// LogNormalize returns (ln(LogFloor + x) - mean) / std element-wise.
func LogNormalize(x *tensor.Float, mean, std float64) (*tensor.Float, error) {
	if std == 0 {
		return nil, fmt.Errorf("mel: normalisation std must be non-zero")
	}

	src := x.RawData()
	out := make([]float32, len(src))
	for i, v := range src {
		out[i] = float32((math.Log(LogFloor+float64(v)) - mean) / std)
	}

	return tensor.FromOwned(out, x.Shape())
}

// TruncateEven drops the last frame when the time axis has odd length.
func TruncateEven(x *tensor.Float) (*tensor.Float, error) {
	frames := x.Dim(-1)
	if frames%2 == 0 {
		return x, nil
	}

	return x.Narrow(-1, 0, frames-1)
}
