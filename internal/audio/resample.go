package audio

import (
	"fmt"
	"math"

	"github.com/cwbudde/algo-dsp/dsp/resample"
)

// Resample converts mono samples from one rate to another. The output has
// exactly ceil(len(samples) * to / from) samples and is aligned with the
// input: the filter's group delay is removed so sample i of the output
// corresponds to time i/to in the input.
func Resample(samples []float32, from, to int) ([]float32, error) {
	if from < 1 || to < 1 {
		return nil, fmt.Errorf("invalid sample rates %d -> %d", from, to)
	}

	if from == to {
		return append([]float32(nil), samples...), nil
	}

	want := int(math.Ceil(float64(len(samples)) * float64(to) / float64(from)))
	if len(samples) == 0 {
		return []float32{}, nil
	}

	rs, err := resample.NewRational(to, from, resample.WithQuality(resample.QualityBest))
	if err != nil {
		return nil, fmt.Errorf("failed to create resampler: %w", err)
	}

	delay := groupDelay(rs)
	up, down := rs.Ratio()

	// Trailing zeros flush the filter tail so delay extra outputs exist.
	tail := (delay+2)*down/up + 2
	input := make([]float64, len(samples)+tail)
	for i, s := range samples {
		input[i] = float64(s)
	}

	output := rs.Process(input)
	if delay < len(output) {
		output = output[delay:]
	} else {
		output = nil
	}

	out := make([]float32, want)
	for i := range out {
		if i >= len(output) {
			break
		}
		out[i] = float32(output[i])
	}

	return out, nil
}

// groupDelay returns the linear-phase delay of rs in output samples,
// rounded to the nearest sample.
func groupDelay(rs *resample.Resampler) int {
	_, down := rs.Ratio()
	taps := len(rs.Prototype())

	return int(math.Round(float64(taps-1) / float64(2*down)))
}
