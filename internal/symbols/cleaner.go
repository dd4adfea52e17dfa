package symbols

import "fmt"

// Cleaner converts phoneme strings into index sequences.
type Cleaner struct {
	dict *Dictionary
}

func NewCleaner(dict *Dictionary) *Cleaner {
	return &Cleaner{dict: dict}
}

func (c *Cleaner) Dictionary() *Dictionary { return c.dict }

// Clean maps s to indices by greedy longest match against the vocabulary.
// With a vocabulary of single-rune keys this is a per-character lookup.
func (c *Cleaner) Clean(s string) ([]int64, error) {
	runes := []rune(s)
	out := make([]int64, 0, len(runes))

	for i := 0; i < len(runes); {
		n := min(c.dict.maxLen, len(runes)-i)
		matched := false
		for ; n > 0; n-- {
			if idx, ok := c.dict.index[string(runes[i:i+n])]; ok {
				out = append(out, idx)
				i += n
				matched = true
				break
			}
		}
		if !matched {
			return nil, fmt.Errorf("%w %q at position %d in %q", ErrUnknownSymbol, runes[i], i, s)
		}
	}

	return out, nil
}
