package text

import (
	"context"
	"fmt"
	"strings"

	"github.com/example/go-meldata/internal/g2p"
)

// Group holds the phoneme symbols of one word. Index is the word's position
// among the word tokens of the transcript.
type Group struct {
	Word    string
	Index   int
	Symbols []string
}

// Assemble folds tokens into per-word phoneme groups. phonetic holds one
// whitespace-separated transcription per word token. A punctuation token is
// appended to the last symbol emitted so far; punctuation before any symbol
// has been emitted is dropped.
func Assemble(tokens []Token, phonetic []string) ([]Group, error) {
	words := 0
	for _, t := range tokens {
		if !t.Punct {
			words++
		}
	}

	if len(phonetic) != words {
		return nil, fmt.Errorf("text: %d transcriptions for %d words", len(phonetic), words)
	}

	groups := make([]Group, 0, words)
	for _, t := range tokens {
		if t.Punct {
			attachPunct(groups, t.Text)
			continue
		}

		i := len(groups)
		groups = append(groups, Group{
			Word:    t.Text,
			Index:   i,
			Symbols: strings.Fields(phonetic[i]),
		})
	}

	return groups, nil
}

// attachPunct walks back past words that produced no symbols.
func attachPunct(groups []Group, p string) {
	for g := len(groups) - 1; g >= 0; g-- {
		if n := len(groups[g].Symbols); n > 0 {
			groups[g].Symbols[n-1] += p
			return
		}
	}
}

// Symbols flattens groups into one symbol sequence.
func Symbols(groups []Group) []string {
	var out []string
	for _, g := range groups {
		out = append(out, g.Symbols...)
	}

	return out
}

// Phonemize runs the full text pipeline and returns the phoneme symbols of
// text joined by single spaces.
func Phonemize(ctx context.Context, raw string, tr g2p.Transcriber) (string, error) {
	s, err := Normalize(raw)
	if err != nil {
		return "", err
	}

	tokens := Tokenize(s)
	words := Words(tokens)

	phonetic := make([]string, 0, len(words))
	if len(words) > 0 {
		ts, err := tr.Transcribe(ctx, words)
		if err != nil {
			return "", fmt.Errorf("transcribe: %w", err)
		}
		if len(ts) != len(words) {
			return "", fmt.Errorf("transcribe: got %d transcriptions for %d words", len(ts), len(words))
		}
		for _, t := range ts {
			phonetic = append(phonetic, t.Phonetic)
		}
	}

	groups, err := Assemble(tokens, phonetic)
	if err != nil {
		return "", err
	}

	return strings.Join(Symbols(groups), " "), nil
}
