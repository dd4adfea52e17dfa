package g2p

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
)

// Lexicon is a pronunciation dictionary loaded from a text file where each
// line holds a word followed by its phoneme symbols. Lines starting with
// ";;;" or "#" are comments. The first pronunciation of a word wins.
type Lexicon struct {
	entries map[string]string
}

func LoadLexicon(path string) (*Lexicon, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open lexicon: %w", err)
	}
	defer f.Close()

	lex, err := ParseLexicon(f)
	if err != nil {
		return nil, fmt.Errorf("lexicon %s: %w", path, err)
	}

	return lex, nil
}

func ParseLexicon(r io.Reader) (*Lexicon, error) {
	entries := make(map[string]string)

	s := bufio.NewScanner(r)
	s.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	line := 0
	for s.Scan() {
		line++
		text := strings.TrimSpace(s.Text())
		if text == "" || strings.HasPrefix(text, ";;;") || strings.HasPrefix(text, "#") {
			continue
		}

		fields := strings.Fields(text)
		if len(fields) < 2 {
			return nil, fmt.Errorf("line %d: expected word and phonemes, got %q", line, text)
		}

		word := strings.ToLower(fields[0])
		if _, seen := entries[word]; seen {
			continue
		}
		entries[word] = strings.Join(fields[1:], " ")
	}
	if err := s.Err(); err != nil {
		return nil, fmt.Errorf("read: %w", err)
	}

	return &Lexicon{entries: entries}, nil
}

func (l *Lexicon) Len() int { return len(l.entries) }

// Transcribe looks every word up case-insensitively. There is no fallback
// for out-of-vocabulary words.
func (l *Lexicon) Transcribe(_ context.Context, words []string) ([]Transcription, error) {
	out := make([]Transcription, len(words))
	for i, w := range words {
		ph, ok := l.entries[strings.ToLower(w)]
		if !ok {
			return nil, fmt.Errorf("%w %q", ErrUnknownWord, w)
		}
		out[i] = Transcription{Word: w, Phonetic: ph}
	}
	return out, nil
}
