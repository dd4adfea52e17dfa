// Package mel computes mel-spectrogram acoustic features and the
// post-processing applied before they are used as training targets.
//
// The transform follows the torchaudio MelSpectrogram conventions the
// downstream models were trained with: a centred STFT with reflect padding,
// a periodic Hann window zero-padded to the FFT size, power 2 magnitudes and
// an HTK-scale filterbank without area normalisation.
package mel

import (
	"errors"
	"fmt"

	"github.com/cwbudde/algo-dsp/dsp/spectrum"
	"github.com/cwbudde/algo-dsp/dsp/window"
	algofft "github.com/cwbudde/algo-fft"

	"github.com/example/go-meldata/internal/tensor"
)

// Config parameterises the mel transform.
type Config struct {
	// SampleRate is the rate the filterbank is laid out for. It is
	// independent from the audio rate.
	SampleRate int
	NFFT       int
	WinLength  int
	HopLength  int
	NMels      int
	FMin       float64
	// FMax defaults to SampleRate/2 when zero.
	FMax float64
}

// DefaultConfig returns the feature parameters used for training data.
func DefaultConfig() Config {
	return Config{
		SampleRate: 16000,
		NFFT:       2048,
		WinLength:  1200,
		HopLength:  300,
		NMels:      80,
	}
}

// Validate reports the first invalid parameter.
func (c Config) Validate() error {
	switch {
	case c.SampleRate < 1:
		return fmt.Errorf("mel: invalid sample rate %d", c.SampleRate)
	case c.NFFT < 2:
		return fmt.Errorf("mel: invalid n_fft %d", c.NFFT)
	case c.WinLength < 1 || c.WinLength > c.NFFT:
		return fmt.Errorf("mel: win_length %d must be in [1, %d]", c.WinLength, c.NFFT)
	case c.HopLength < 1:
		return fmt.Errorf("mel: invalid hop_length %d", c.HopLength)
	case c.NMels < 1:
		return fmt.Errorf("mel: invalid n_mels %d", c.NMels)
	case c.FMin < 0 || (c.FMax != 0 && c.FMax <= c.FMin):
		return fmt.Errorf("mel: invalid frequency range [%g, %g]", c.FMin, c.FMax)
	}

	return nil
}

// Transform is an immutable mel-spectrogram operator. It is safe for
// concurrent use.
type Transform struct {
	cfg    Config
	plan   *algofft.Plan[complex128]
	window []float64 // win_length Hann window centred in n_fft
	bank   []filter
}

// New precomputes the window and filterbank for cfg.
func New(cfg Config) (*Transform, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	fMax := cfg.FMax
	if fMax == 0 {
		fMax = float64(cfg.SampleRate / 2)
	}

	hann, err := window.Hann(cfg.WinLength, window.WithPeriodic())
	if err != nil {
		return nil, fmt.Errorf("mel: window: %w", err)
	}
	padded := make([]float64, cfg.NFFT)
	copy(padded[(cfg.NFFT-cfg.WinLength)/2:], hann)

	plan, err := algofft.NewPlan64(cfg.NFFT)
	if err != nil {
		return nil, fmt.Errorf("mel: fft plan: %w", err)
	}

	return &Transform{
		cfg:    cfg,
		plan:   plan,
		window: padded,
		bank:   melFilterBank(cfg.NMels, cfg.NFFT/2+1, cfg.SampleRate, cfg.FMin, fMax),
	}, nil
}

func (m *Transform) Config() Config { return m.cfg }

// Frames returns the number of frames Compute yields for n samples.
func (m *Transform) Frames(n int) int {
	pad := m.cfg.NFFT / 2
	return (n+2*pad-m.cfg.NFFT)/m.cfg.HopLength + 1
}

// Compute returns the power mel spectrogram of wave with shape
// [n_mels, frames].
func (m *Transform) Compute(wave []float32) (*tensor.Float, error) {
	if len(wave) == 0 {
		return nil, errors.New("mel: empty waveform")
	}

	nfft := m.cfg.NFFT
	pad := nfft / 2
	frames := m.Frames(len(wave))
	nMels := m.cfg.NMels
	halfFFT := nfft/2 + 1

	out := make([]float32, nMels*frames)
	frame := make([]complex128, nfft)
	bins := make([]complex128, nfft)
	re := make([]float64, halfFFT)
	im := make([]float64, halfFFT)
	power := make([]float64, halfFFT)

	for t := range frames {
		start := t*m.cfg.HopLength - pad
		for k := range nfft {
			frame[k] = complex(float64(wave[reflectIndex(start+k, len(wave))])*m.window[k], 0)
		}

		if err := m.plan.Forward(bins, frame); err != nil {
			return nil, fmt.Errorf("mel: fft: %w", err)
		}

		for k := range halfFFT {
			re[k], im[k] = real(bins[k]), imag(bins[k])
		}
		spectrum.PowerFromParts(power, re, im)

		for b, f := range m.bank {
			var sum float64
			for i, w := range f.weights {
				sum += w * power[f.start+i]
			}
			out[b*frames+t] = float32(sum)
		}
	}

	return tensor.FromOwned(out, []int64{int64(nMels), int64(frames)})
}

// reflectIndex maps i onto [0, n) by mirroring at the edges without
// repeating the edge sample.
func reflectIndex(i, n int) int {
	if n == 1 {
		return 0
	}

	period := 2 * (n - 1)
	i %= period
	if i < 0 {
		i += period
	}
	if i >= n {
		i = period - i
	}

	return i
}
