package g2p

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
)

// DefaultPhonetisaurusCLI is the executable used when no path is configured.
const DefaultPhonetisaurusCLI = "phonetisaurus-g2pfst"

// Phonetisaurus transcribes words with a trained FST model by running the
// phonetisaurus-g2pfst command once per call.
type Phonetisaurus struct {
	ModelPath      string
	ExecutablePath string

	run func(ctx context.Context, exe string, args []string) ([]byte, error)
}

func NewPhonetisaurus(modelPath, exe string) *Phonetisaurus {
	if exe == "" {
		exe = DefaultPhonetisaurusCLI
	}
	return &Phonetisaurus{ModelPath: modelPath, ExecutablePath: exe, run: runCommand}
}

func runCommand(ctx context.Context, exe string, args []string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, exe, args...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return nil, fmt.Errorf("%w: %s", err, msg)
		}
		return nil, err
	}
	return stdout.Bytes(), nil
}

func (p *Phonetisaurus) Transcribe(ctx context.Context, words []string) ([]Transcription, error) {
	if len(words) == 0 {
		return []Transcription{}, nil
	}

	f, err := os.CreateTemp("", "g2p-words-*.txt")
	if err != nil {
		return nil, fmt.Errorf("create word list: %w", err)
	}
	defer func() { _ = os.Remove(f.Name()) }()

	for _, w := range words {
		if _, err := fmt.Fprintln(f, w); err != nil {
			_ = f.Close()
			return nil, fmt.Errorf("write word list: %w", err)
		}
	}
	if err := f.Close(); err != nil {
		return nil, fmt.Errorf("close word list: %w", err)
	}

	args := []string{
		"--model=" + p.ModelPath,
		"--wordlist=" + f.Name(),
		"--nbest=1",
	}
	out, err := p.run(ctx, p.ExecutablePath, args)
	if err != nil {
		return nil, mapRunError(p.ExecutablePath, err)
	}

	prons, err := parseG2PFSTOutput(out)
	if err != nil {
		return nil, err
	}

	result := make([]Transcription, len(words))
	for i, w := range words {
		ph, ok := prons[w]
		if !ok {
			return nil, fmt.Errorf("%w %q", ErrUnknownWord, w)
		}
		result[i] = Transcription{Word: w, Phonetic: ph}
	}
	return result, nil
}

// parseG2PFSTOutput reads `word<TAB>score<TAB>phones` or `word<TAB>phones`
// lines, keeping the first hypothesis per word.
func parseG2PFSTOutput(out []byte) (map[string]string, error) {
	prons := make(map[string]string)

	s := bufio.NewScanner(bytes.NewReader(out))
	for s.Scan() {
		line := strings.TrimRight(s.Text(), "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}

		fields := strings.Split(line, "\t")
		var word, phones string
		switch len(fields) {
		case 2:
			word, phones = fields[0], fields[1]
		case 3:
			word, phones = fields[0], fields[2]
		default:
			return nil, fmt.Errorf("g2p: unexpected phonetisaurus output line %q", line)
		}

		phones = strings.Join(strings.Fields(phones), " ")
		if phones == "" {
			continue
		}
		if _, seen := prons[word]; !seen {
			prons[word] = phones
		}
	}
	if err := s.Err(); err != nil {
		return nil, fmt.Errorf("g2p: read phonetisaurus output: %w", err)
	}

	return prons, nil
}

func mapRunError(exe string, err error) error {
	if errors.Is(err, exec.ErrNotFound) {
		return fmt.Errorf("g2p: %s executable not found; set --g2p-cli-path or MELDATA_G2P_CLI_PATH: %w", exe, err)
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return fmt.Errorf("g2p: %s returned non-zero exit: %w", exe, err)
	}

	return fmt.Errorf("g2p: run %s: %w", exe, err)
}

// LookPath resolves the phonetisaurus executable, falling back to
// DefaultPhonetisaurusCLI when exe is empty.
func LookPath(exe string) (string, error) {
	if exe == "" {
		exe = DefaultPhonetisaurusCLI
	}

	path, err := exec.LookPath(exe)
	if err != nil {
		return "", mapRunError(exe, err)
	}

	return path, nil
}
