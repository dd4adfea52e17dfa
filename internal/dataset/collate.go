package dataset

import (
	"errors"
	"fmt"
	"sort"

	"github.com/example/go-meldata/internal/tensor"
)

// ErrMisaligned is returned when an example has too few mel frames for its
// token sequence: every example must satisfy tokens < frames/2.
var ErrMisaligned = errors.New("text too long for mel length")

// Batch is a padded group of examples sorted by descending mel length.
// Row i of every field describes the same example.
type Batch struct {
	// Texts is [B, max input length], zero padded.
	Texts        *tensor.Int
	InputLengths []int64
	// Mels is [B, n_mels, max output length], zero padded.
	Mels          *tensor.Float
	OutputLengths []int64
	Paths         []string
	SpeakerIDs    []int64
	// Waves is nil unless the batch was collated with returnWave.
	Waves [][]float32
}

func (b Batch) Size() int { return len(b.Paths) }

// Collate pads examples into a Batch. Examples are reordered by descending
// mel length, ties keeping their input order.
func Collate(examples []Example, returnWave bool) (Batch, error) {
	if len(examples) == 0 {
		return Batch{}, errors.New("collate: empty batch")
	}

	order := make([]int, len(examples))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return examples[order[a]].Mel.Dim(1) > examples[order[b]].Mel.Dim(1)
	})

	nMels := examples[order[0]].Mel.Dim(0)
	var maxMel, maxText int64
	for _, ex := range examples {
		if ex.Mel.Rank() != 2 {
			return Batch{}, fmt.Errorf("collate: %s: mel rank %d, want 2", ex.Path, ex.Mel.Rank())
		}
		if ex.Mel.Dim(0) != nMels {
			return Batch{}, fmt.Errorf("collate: %s: %d mel bands, want %d", ex.Path, ex.Mel.Dim(0), nMels)
		}
		maxMel = max(maxMel, ex.Mel.Dim(1))
		maxText = max(maxText, int64(len(ex.Tokens)))
	}

	size := int64(len(examples))
	mels, err := tensor.Zeros([]int64{size, nMels, maxMel})
	if err != nil {
		return Batch{}, fmt.Errorf("collate: %w", err)
	}
	texts, err := tensor.ZerosInt([]int64{size, maxText})
	if err != nil {
		return Batch{}, fmt.Errorf("collate: %w", err)
	}

	b := Batch{
		Texts:         texts,
		InputLengths:  make([]int64, size),
		Mels:          mels,
		OutputLengths: make([]int64, size),
		Paths:         make([]string, size),
		SpeakerIDs:    make([]int64, size),
	}

	melData := mels.RawData()
	textData := texts.RawData()
	for bid, src := range order {
		ex := examples[src]
		melLen := ex.Mel.Dim(1)
		textLen := int64(len(ex.Tokens))

		frames := ex.Mel.RawData()
		for band := range nMels {
			dst := (int64(bid)*nMels + band) * maxMel
			copy(melData[dst:dst+melLen], frames[band*melLen:(band+1)*melLen])
		}
		copy(textData[int64(bid)*maxText:], ex.Tokens)

		b.InputLengths[bid] = textLen
		b.OutputLengths[bid] = melLen
		b.Paths[bid] = ex.Path
		b.SpeakerIDs[bid] = int64(ex.SpeakerID)

		if textLen >= melLen/2 {
			return Batch{}, fmt.Errorf("collate: %s: %w (%d tokens, %d frames)", ex.Path, ErrMisaligned, textLen, melLen)
		}
	}

	if returnWave {
		b.Waves = make([][]float32, size)
		for bid, src := range order {
			b.Waves[bid] = examples[src].Wave
		}
	}

	return b, nil
}
