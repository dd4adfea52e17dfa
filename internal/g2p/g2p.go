// Package g2p defines the grapheme-to-phoneme contract used by the example
// loader and the backends that implement it.
package g2p

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/example/go-meldata/internal/config"
)

// ErrUnknownWord is returned when a backend has no transcription for a word.
var ErrUnknownWord = errors.New("no transcription for word")

// Transcription is the phonetic rendering of one word. Phonetic holds
// whitespace-separated phoneme symbols.
type Transcription struct {
	Word     string
	Phonetic string
}

// Transcriber converts words to phonetic strings. Implementations return
// exactly one Transcription per input word, in input order, and must be
// safe for concurrent use.
type Transcriber interface {
	Transcribe(ctx context.Context, words []string) ([]Transcription, error)
}

// New builds the transcriber selected by cfg.Backend.
func New(cfg config.G2PConfig) (Transcriber, error) {
	backend, err := config.NormalizeG2PBackend(cfg.Backend)
	if err != nil {
		return nil, err
	}

	switch backend {
	case config.G2PLexicon:
		if strings.TrimSpace(cfg.LexiconPath) == "" {
			return nil, errors.New("g2p: lexicon backend requires g2p.lexicon_path")
		}
		return LoadLexicon(cfg.LexiconPath)
	case config.G2PPhonetisaurus:
		if strings.TrimSpace(cfg.ModelPath) == "" {
			return nil, errors.New("g2p: phonetisaurus backend requires g2p.model_path")
		}
		return NewPhonetisaurus(cfg.ModelPath, cfg.CLIPath), nil
	default:
		return nil, fmt.Errorf("g2p: unsupported backend %q", backend)
	}
}

// Static is an in-memory Transcriber keyed by lower-cased word.
type Static map[string]string

func (s Static) Transcribe(ctx context.Context, words []string) ([]Transcription, error) {
	out := make([]Transcription, len(words))
	for i, w := range words {
		ph, ok := s[strings.ToLower(w)]
		if !ok {
			return nil, fmt.Errorf("%w %q", ErrUnknownWord, w)
		}
		out[i] = Transcription{Word: w, Phonetic: ph}
	}
	return out, nil
}
