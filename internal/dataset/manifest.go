package dataset

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

// ErrMalformedRecord is returned for manifest lines that do not split into
// two or three '|'-separated fields.
var ErrMalformedRecord = errors.New("malformed manifest record")

// DefaultSpeakerID is assigned to records that carry no speaker field.
const DefaultSpeakerID = "0"

// Record is one manifest line: audio_path|text[|speaker_id].
type Record struct {
	AudioPath string
	Text      string
	SpeakerID string
}

// ParseRecord splits a single manifest line.
func ParseRecord(line string) (Record, error) {
	fields := strings.Split(line, "|")
	switch len(fields) {
	case 2:
		return Record{AudioPath: fields[0], Text: fields[1], SpeakerID: DefaultSpeakerID}, nil
	case 3:
		return Record{AudioPath: fields[0], Text: fields[1], SpeakerID: fields[2]}, nil
	default:
		return Record{}, fmt.Errorf("%w: %d fields in %q", ErrMalformedRecord, len(fields), line)
	}
}

// ParseLines parses manifest lines, skipping blank lines and '#' comments.
// Errors name the 1-based line number.
func ParseLines(lines []string) ([]Record, error) {
	records := make([]Record, 0, len(lines))
	for i, line := range lines {
		line = strings.TrimRight(line, "\r")
		if skipLine(line) {
			continue
		}

		rec, err := ParseRecord(line)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", i+1, err)
		}
		records = append(records, rec)
	}

	return records, nil
}

// ReadLines returns the raw lines of a manifest stream.
func ReadLines(r io.Reader) ([]string, error) {
	var lines []string
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		lines = append(lines, sc.Text())
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}

	return lines, nil
}

// ReadManifestFile returns the raw lines of the manifest at path.
func ReadManifestFile(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open manifest: %w", err)
	}
	defer f.Close()

	return ReadLines(f)
}

func skipLine(line string) bool {
	trimmed := strings.TrimSpace(line)
	return trimmed == "" || strings.HasPrefix(trimmed, "#")
}
