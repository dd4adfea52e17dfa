// Package symbols maps phoneme strings to the integer indices of a fixed
// vocabulary file.
package symbols

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// BlankKey is the dictionary key of the blank/silence symbol.
const BlankKey = " "

var (
	// ErrNoBlank is returned when a vocabulary has no BlankKey entry.
	ErrNoBlank = errors.New("dictionary has no blank entry")
	// ErrUnknownSymbol is returned when text contains a symbol outside the vocabulary.
	ErrUnknownSymbol = errors.New("unknown symbol")
)

// Dictionary is a read-only symbol -> index vocabulary.
type Dictionary struct {
	index   map[string]int64
	maxLen  int // longest key in runes
	blank   int64
	entries int
}

// LoadDictionary reads a vocabulary file of `"symbol",index` CSV rows.
func LoadDictionary(path string) (*Dictionary, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open dictionary: %w", err)
	}
	defer f.Close()

	d, err := ParseDictionary(f)
	if err != nil {
		return nil, fmt.Errorf("dictionary %s: %w", path, err)
	}

	return d, nil
}

// ParseDictionary reads `"symbol",index` CSV rows from r.
func ParseDictionary(r io.Reader) (*Dictionary, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = 2
	cr.ReuseRecord = true

	entries := make(map[string]int64)
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("parse row: %w", err)
		}

		key := rec[0]
		idx, err := strconv.ParseInt(strings.TrimSpace(rec[1]), 10, 64)
		if err != nil {
			line, _ := cr.FieldPos(1)
			return nil, fmt.Errorf("line %d: invalid index %q for symbol %q", line, rec[1], key)
		}
		if _, dup := entries[key]; dup {
			line, _ := cr.FieldPos(0)
			return nil, fmt.Errorf("line %d: duplicate symbol %q", line, key)
		}
		entries[key] = idx
	}

	return NewDictionary(entries)
}

// NewDictionary builds a dictionary from an in-memory mapping.
func NewDictionary(entries map[string]int64) (*Dictionary, error) {
	blank, ok := entries[BlankKey]
	if !ok {
		return nil, ErrNoBlank
	}

	d := &Dictionary{
		index:   make(map[string]int64, len(entries)),
		blank:   blank,
		entries: len(entries),
	}
	for k, v := range entries {
		if k == "" {
			return nil, errors.New("dictionary contains an empty symbol")
		}
		d.index[k] = v
		if n := len([]rune(k)); n > d.maxLen {
			d.maxLen = n
		}
	}

	return d, nil
}

// Index returns the index of sym.
func (d *Dictionary) Index(sym string) (int64, bool) {
	v, ok := d.index[sym]
	return v, ok
}

// Blank returns the blank/silence index.
func (d *Dictionary) Blank() int64 { return d.blank }

func (d *Dictionary) Len() int { return d.entries }
