package mel

import "math"

func hzToMel(hz float64) float64 {
	return 2595.0 * math.Log10(1.0+hz/700.0)
}

func melToHz(mel float64) float64 {
	return 700.0 * (math.Pow(10.0, mel/2595.0) - 1.0)
}

// filter is one triangular mel filter stored as a dense span of FFT bins.
type filter struct {
	start   int
	weights []float64
}

// melFilterBank builds numMels triangular HTK filters over numFreqs linear
// frequency bins spanning [0, sampleRate/2]. Filters are not area-normalised.
func melFilterBank(numMels, numFreqs, sampleRate int, fMin, fMax float64) []filter {
	nyquist := float64(sampleRate / 2)

	freqs := make([]float64, numFreqs)
	for k := range freqs {
		if numFreqs > 1 {
			freqs[k] = nyquist * float64(k) / float64(numFreqs-1)
		}
	}

	lowMel := hzToMel(fMin)
	highMel := hzToMel(fMax)

	points := make([]float64, numMels+2)
	for i := range points {
		points[i] = melToHz(lowMel + (highMel-lowMel)*float64(i)/float64(numMels+1))
	}

	bank := make([]filter, numMels)
	for m := range numMels {
		left, center, right := points[m], points[m+1], points[m+2]

		first, last := -1, -1
		dense := make([]float64, numFreqs)
		for k, f := range freqs {
			down := (f - left) / (center - left)
			up := (right - f) / (right - center)
			w := math.Max(0, math.Min(down, up))
			if w > 0 {
				if first < 0 {
					first = k
				}
				last = k
			}
			dense[k] = w
		}

		if first < 0 {
			bank[m] = filter{}
			continue
		}
		bank[m] = filter{start: first, weights: dense[first : last+1]}
	}

	return bank
}
