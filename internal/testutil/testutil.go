// Package testutil provides fixture writers and skip helpers shared by the
// package and command tests.
//
// Skip helpers call t.Skip with a clear human-readable reason when the named
// prerequisite is absent, so integration tests remain runnable in partial
// environments without failing noisily.
//
// Typical usage:
//
//	func TestPhonetisaurusIntegration(t *testing.T) {
//	    model := testutil.RequirePhonetisaurus(t)
//	    ...
//	}
package testutil

import (
	"fmt"
	"math"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"
	"testing"

	"github.com/example/go-meldata/internal/audio"
)

// RequirePhonetisaurus skips the test unless phonetisaurus-g2pfst is on PATH
// (or at MELDATA_G2P_CLI_PATH) and MELDATA_G2P_MODEL_PATH names an existing
// FST model. It returns the model path.
func RequirePhonetisaurus(tb testing.TB) string {
	tb.Helper()

	exe := os.Getenv("MELDATA_G2P_CLI_PATH")
	if exe == "" {
		exe = "phonetisaurus-g2pfst"
	}

	if _, err := exec.LookPath(exe); err != nil {
		tb.Skipf("phonetisaurus binary not available (%q not in PATH); set MELDATA_G2P_CLI_PATH to override", exe)
		return ""
	}

	model := os.Getenv("MELDATA_G2P_MODEL_PATH")
	if model == "" {
		tb.Skip("MELDATA_G2P_MODEL_PATH not set")
		return ""
	}

	if _, err := os.Stat(model); err != nil {
		tb.Skipf("phonetisaurus model not found at %q", model)
		return ""
	}

	return model
}

// Sine returns n samples of a 0.5 amplitude sine wave.
func Sine(n, sampleRate int, freq float64) []float32 {
	out := make([]float32, n)
	for i := range out {
		out[i] = float32(0.5 * math.Sin(2*math.Pi*freq*float64(i)/float64(sampleRate)))
	}

	return out
}

// WriteWAV encodes interleaved samples as 16-bit PCM into dir/name and
// returns the file path.
func WriteWAV(tb testing.TB, dir, name string, samples []float32, sampleRate, channels int) string {
	tb.Helper()

	data, err := audio.EncodeWAV(samples, sampleRate, channels)
	if err != nil {
		tb.Fatalf("encode wav fixture: %v", err)
	}

	return WriteFile(tb, dir, name, data)
}

// WriteFile writes data to dir/name and returns the path.
func WriteFile(tb testing.TB, dir, name string, data []byte) string {
	tb.Helper()

	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		tb.Fatalf("write fixture %s: %v", name, err)
	}

	return path
}

// WriteManifest writes one record per line and returns the path.
func WriteManifest(tb testing.TB, dir, name string, lines ...string) string {
	tb.Helper()

	return WriteFile(tb, dir, name, []byte(strings.Join(lines, "\n")+"\n"))
}

// WriteDictionary writes entries in the quoted CSV vocabulary format and
// returns the path.
func WriteDictionary(tb testing.TB, dir string, entries map[string]int64) string {
	tb.Helper()

	keys := make([]string, 0, len(entries))
	for k := range entries {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return entries[keys[i]] < entries[keys[j]] })

	var b strings.Builder
	for _, k := range keys {
		fmt.Fprintf(&b, "\"%s\",%d\n", strings.ReplaceAll(k, `"`, `""`), entries[k])
	}

	return WriteFile(tb, dir, "word_index_dict.txt", []byte(b.String()))
}

// Alphabet returns a dictionary mapping the blank, the lowercase latin
// letters and the punctuation marks to consecutive indices starting at 1.
// Index 0 stays free for padding.
func Alphabet() map[string]int64 {
	entries := map[string]int64{" ": 1}
	next := int64(2)
	for _, r := range "abcdefghijklmnopqrstuvwxyz.,!?;:'" {
		entries[string(r)] = next
		next++
	}

	return entries
}
