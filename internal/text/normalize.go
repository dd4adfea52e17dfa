package text

import (
	"errors"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// ErrEmptyText is returned when the input text is empty or whitespace-only.
var ErrEmptyText = errors.New("text is empty")

// Normalize composes a transcript to NFC, so words match their lexicon
// spelling whatever encoding the manifest used, and trims surrounding
// whitespace. Empty or whitespace-only input is rejected.
func Normalize(s string) (string, error) {
	s = norm.NFC.String(s)
	s = strings.TrimSpace(s)

	if s == "" {
		return "", ErrEmptyText
	}

	return s, nil
}
