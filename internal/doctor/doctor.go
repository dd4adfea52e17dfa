// Package doctor provides preflight checks for a data preparation run.
package doctor

import (
	"fmt"
	"io"
	"os"

	"github.com/example/go-meldata/internal/config"
	"github.com/example/go-meldata/internal/dataset"
	"github.com/example/go-meldata/internal/g2p"
	"github.com/example/go-meldata/internal/symbols"
)

// PassMark and FailMark are the prefix symbols printed for each check result.
const (
	PassMark = "✓"
	FailMark = "✗"
)

// DefaultMaxMissing bounds how many missing audio files are listed per manifest.
const DefaultMaxMissing = 5

// VersionFunc returns a version string or an error if the component is unavailable.
type VersionFunc func() (string, error)

// Config holds the inputs and injectable dependencies for each check.
type Config struct {
	DictPath string
	// Manifests are checked for syntax and for the existence of every
	// referenced audio file. Empty paths are skipped.
	Manifests  []string
	MaxMissing int
	G2P        config.G2PConfig
	// PhonetisaurusVersion locates the phonetisaurus binary. Only consulted
	// for the phonetisaurus backend.
	PhonetisaurusVersion VersionFunc
}

// Result collects the outcome of all checks.
type Result struct {
	failures []string
}

// Failed returns true if any check failed.
func (r *Result) Failed() bool { return len(r.failures) > 0 }

// Failures returns the list of failure messages.
func (r *Result) Failures() []string { return append([]string(nil), r.failures...) }

// AddFailure appends an external failure message to the result.
func (r *Result) AddFailure(msg string) { r.failures = append(r.failures, msg) }

func (r *Result) fail(msg string) { r.failures = append(r.failures, msg) }

// Run executes all configured checks and writes human-readable output to w.
// Each check line is prefixed with PassMark or FailMark.
func Run(cfg Config, w io.Writer) Result {
	var res Result

	checkDictionary(cfg.DictPath, w, &res)

	maxMissing := cfg.MaxMissing
	if maxMissing <= 0 {
		maxMissing = DefaultMaxMissing
	}
	for _, path := range cfg.Manifests {
		if path == "" {
			continue
		}
		checkManifest(path, maxMissing, w, &res)
	}

	checkG2P(cfg, w, &res)

	return res
}

func checkDictionary(path string, w io.Writer, res *Result) {
	dict, err := symbols.LoadDictionary(path)
	if err != nil {
		res.fail(fmt.Sprintf("dictionary: %v", err))
		fmt.Fprintf(w, "%s dictionary %s: %v\n", FailMark, path, err)
		return
	}

	fmt.Fprintf(w, "%s dictionary: %s (%d symbols, blank=%d)\n", PassMark, path, dict.Len(), dict.Blank())
}

func checkManifest(path string, maxMissing int, w io.Writer, res *Result) {
	lines, err := dataset.ReadManifestFile(path)
	if err != nil {
		res.fail(fmt.Sprintf("manifest %q: %v", path, err))
		fmt.Fprintf(w, "%s manifest %s: %v\n", FailMark, path, err)
		return
	}

	records, err := dataset.ParseLines(lines)
	if err != nil {
		res.fail(fmt.Sprintf("manifest %q: %v", path, err))
		fmt.Fprintf(w, "%s manifest %s: %v\n", FailMark, path, err)
		return
	}

	missing := 0
	for _, rec := range records {
		if _, err := os.Stat(rec.AudioPath); err == nil {
			continue
		}
		missing++
		if missing <= maxMissing {
			fmt.Fprintf(w, "%s audio file %s: not found\n", FailMark, rec.AudioPath)
		}
	}

	if missing > 0 {
		if missing > maxMissing {
			fmt.Fprintf(w, "  ... and %d more\n", missing-maxMissing)
		}
		res.fail(fmt.Sprintf("manifest %q: %d of %d audio files missing", path, missing, len(records)))
		fmt.Fprintf(w, "%s manifest %s: %d of %d audio files missing\n", FailMark, path, missing, len(records))
		return
	}

	fmt.Fprintf(w, "%s manifest: %s (%d records)\n", PassMark, path, len(records))
}

func checkG2P(cfg Config, w io.Writer, res *Result) {
	backend, err := config.NormalizeG2PBackend(cfg.G2P.Backend)
	if err != nil {
		res.fail(fmt.Sprintf("g2p: %v", err))
		fmt.Fprintf(w, "%s g2p backend: %v\n", FailMark, err)
		return
	}

	switch backend {
	case config.G2PLexicon:
		lex, err := g2p.LoadLexicon(cfg.G2P.LexiconPath)
		if err != nil {
			res.fail(fmt.Sprintf("g2p lexicon: %v", err))
			fmt.Fprintf(w, "%s g2p lexicon %s: %v\n", FailMark, cfg.G2P.LexiconPath, err)
			return
		}
		fmt.Fprintf(w, "%s g2p lexicon: %s (%d words)\n", PassMark, cfg.G2P.LexiconPath, lex.Len())
	case config.G2PPhonetisaurus:
		if cfg.PhonetisaurusVersion == nil {
			res.fail("phonetisaurus binary: no probe configured")
			fmt.Fprintf(w, "%s phonetisaurus binary: no probe configured\n", FailMark)
		} else if ver, err := cfg.PhonetisaurusVersion(); err != nil {
			res.fail(fmt.Sprintf("phonetisaurus binary: %v", err))
			fmt.Fprintf(w, "%s phonetisaurus binary: not found (%v)\n", FailMark, err)
		} else {
			fmt.Fprintf(w, "%s phonetisaurus binary: %s\n", PassMark, ver)
		}

		if _, err := os.Stat(cfg.G2P.ModelPath); err != nil {
			res.fail(fmt.Sprintf("phonetisaurus model %q: %v", cfg.G2P.ModelPath, err))
			fmt.Fprintf(w, "%s phonetisaurus model %s: not found\n", FailMark, cfg.G2P.ModelPath)
		} else {
			fmt.Fprintf(w, "%s phonetisaurus model: %s\n", PassMark, cfg.G2P.ModelPath)
		}
	}
}
