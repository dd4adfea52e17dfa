// Package dataset turns manifest records into training examples and
// batches them into padded tensors.
package dataset

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/example/go-meldata/internal/audio"
	"github.com/example/go-meldata/internal/g2p"
	"github.com/example/go-meldata/internal/mel"
	"github.com/example/go-meldata/internal/symbols"
	"github.com/example/go-meldata/internal/tensor"
	"github.com/example/go-meldata/internal/text"
)

// ErrInvalidSpeaker is returned when a speaker field is not an integer.
var ErrInvalidSpeaker = errors.New("invalid speaker id")

const (
	DefaultMean = -4.0
	DefaultStd  = 4.0
)

// DecodeFunc loads the mono waveform at path resampled to sampleRate.
type DecodeFunc func(path string, sampleRate int) ([]float32, error)

// Options configures a Dataset. Zero values select the defaults.
type Options struct {
	Dictionary  *symbols.Dictionary
	Transcriber g2p.Transcriber
	SampleRate  int
	Mel         mel.Config
	Mean        float64
	Std         float64
	Decode      DecodeFunc
}

// DefaultOptions returns Options with every numeric field at its default.
// Dictionary and Transcriber are left for the caller.
func DefaultOptions() Options {
	return Options{
		SampleRate: audio.TargetSampleRate,
		Mel:        mel.DefaultConfig(),
		Mean:       DefaultMean,
		Std:        DefaultStd,
		Decode:     audio.Load,
	}
}

func (o Options) withDefaults() Options {
	def := DefaultOptions()
	if o.SampleRate == 0 {
		o.SampleRate = def.SampleRate
	}
	if o.Mel == (mel.Config{}) {
		o.Mel = def.Mel
	}
	if o.Std == 0 {
		o.Mean, o.Std = def.Mean, def.Std
	}
	if o.Decode == nil {
		o.Decode = def.Decode
	}

	return o
}

// Example is one prepared training pair. Mel has shape [n_mels, T] with T
// even; Tokens begins and ends with the blank index.
type Example struct {
	Wave      []float32
	Mel       *tensor.Float
	Tokens    []int64
	Path      string
	SpeakerID int
}

// Dataset maps manifest records to Examples. It is safe for concurrent use;
// every Get recomputes its Example from disk.
type Dataset struct {
	records    []Record
	cleaner    *symbols.Cleaner
	blank      int64
	tr         g2p.Transcriber
	mel        *mel.Transform
	sampleRate int
	mean       float64
	std        float64
	decode     DecodeFunc
}

// New parses lines as manifest records and prepares the shared transforms.
func New(lines []string, opts Options) (*Dataset, error) {
	opts = opts.withDefaults()
	if opts.Dictionary == nil {
		return nil, errors.New("dataset: dictionary is required")
	}
	if opts.Transcriber == nil {
		return nil, errors.New("dataset: transcriber is required")
	}

	records, err := ParseLines(lines)
	if err != nil {
		return nil, fmt.Errorf("dataset: %w", err)
	}

	tf, err := mel.New(opts.Mel)
	if err != nil {
		return nil, fmt.Errorf("dataset: %w", err)
	}

	return &Dataset{
		records:    records,
		cleaner:    symbols.NewCleaner(opts.Dictionary),
		blank:      opts.Dictionary.Blank(),
		tr:         opts.Transcriber,
		mel:        tf,
		sampleRate: opts.SampleRate,
		mean:       opts.Mean,
		std:        opts.Std,
		decode:     opts.Decode,
	}, nil
}

func (d *Dataset) Len() int { return len(d.records) }

// Record returns the i-th parsed manifest record.
func (d *Dataset) Record(i int) Record { return d.records[i] }

// SampleRate is the rate of every returned waveform.
func (d *Dataset) SampleRate() int { return d.sampleRate }

// Get loads and prepares the i-th example.
func (d *Dataset) Get(ctx context.Context, i int) (Example, error) {
	if i < 0 || i >= len(d.records) {
		return Example{}, fmt.Errorf("dataset: index %d out of range [0, %d)", i, len(d.records))
	}
	rec := d.records[i]

	speaker, err := strconv.Atoi(strings.TrimSpace(rec.SpeakerID))
	if err != nil {
		return Example{}, fmt.Errorf("%s: %w %q: %v", rec.AudioPath, ErrInvalidSpeaker, rec.SpeakerID, err)
	}

	wave, err := d.decode(rec.AudioPath, d.sampleRate)
	if err != nil {
		return Example{}, err
	}

	tokens, err := d.Tokens(ctx, rec.Text)
	if err != nil {
		return Example{}, fmt.Errorf("%s: %w", rec.AudioPath, err)
	}

	feat, err := d.features(wave, len(tokens))
	if err != nil {
		return Example{}, fmt.Errorf("%s: %w", rec.AudioPath, err)
	}

	return Example{
		Wave:      wave,
		Mel:       feat,
		Tokens:    tokens,
		Path:      rec.AudioPath,
		SpeakerID: speaker,
	}, nil
}

// Tokens converts a transcript into blank-bounded symbol indices.
func (d *Dataset) Tokens(ctx context.Context, raw string) ([]int64, error) {
	ps, err := text.Phonemize(ctx, raw, d.tr)
	if err != nil {
		return nil, err
	}

	idx, err := d.cleaner.Clean(ps)
	if err != nil {
		return nil, err
	}

	out := make([]int64, 0, len(idx)+2)
	out = append(out, d.blank)
	out = append(out, idx...)
	out = append(out, d.blank)

	return out, nil
}

// features computes the normalised log-mel of wave. Short spectrograms are
// stretched to three frames per token so the aligner has room.
func (d *Dataset) features(wave []float32, numTokens int) (*tensor.Float, error) {
	power, err := d.mel.Compute(wave)
	if err != nil {
		return nil, err
	}

	frames := int(power.Dim(1))
	if numTokens+1 >= frames/3 {
		power, err = mel.Stretch(power, (numTokens+1)*3)
		if err != nil {
			return nil, err
		}
	}

	feat, err := mel.LogNormalize(power, d.mean, d.std)
	if err != nil {
		return nil, err
	}

	return mel.TruncateEven(feat)
}
