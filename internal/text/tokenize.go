// Package text turns transcripts into phoneme symbol sequences. Punctuation
// survives the trip by riding on the last phoneme of the preceding word.
package text

import (
	"regexp"
)

var tokenPattern = regexp.MustCompile(`[\p{L}\p{N}\p{M}_']+|[.,!?;:]`)

// Token is one unit of a transcript: a word or a single punctuation mark.
type Token struct {
	Text  string
	Punct bool
}

// Tokenize splits s into maximal runs of word characters (letters, digits,
// marks, underscore, apostrophe) and the punctuation marks . , ! ? ; :
// Everything else, whitespace included, separates tokens and is discarded.
func Tokenize(s string) []Token {
	matches := tokenPattern.FindAllString(s, -1)
	tokens := make([]Token, len(matches))
	for i, m := range matches {
		tokens[i] = Token{Text: m, Punct: isPunct(m)}
	}

	return tokens
}

// Words returns the word tokens of tokens in order.
func Words(tokens []Token) []string {
	words := make([]string, 0, len(tokens))
	for _, t := range tokens {
		if !t.Punct {
			words = append(words, t.Text)
		}
	}

	return words
}

func isPunct(s string) bool {
	switch s {
	case ".", ",", "!", "?", ";", ":":
		return true
	default:
		return false
	}
}
