package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDoctor_Passes(t *testing.T) {
	p := newProject(t, 2, 1)

	stdout, _, err := runCLI(t, append([]string{"doctor"}, p.flags()...)...)
	if err != nil {
		t.Fatalf("doctor: %v\n%s", err, stdout)
	}

	for _, want := range []string{"g2p backend: lexicon", "(2 records)", "(1 records)", "(2 words)", "doctor checks passed"} {
		if !strings.Contains(stdout, want) {
			t.Errorf("output missing %q:\n%s", want, stdout)
		}
	}
}

func TestDoctor_ReportsMissingAudio(t *testing.T) {
	p := newProject(t, 3, 1)

	for _, name := range []string{"train-0.wav", "train-2.wav"} {
		if err := os.Remove(filepath.Join(p.dir, name)); err != nil {
			t.Fatal(err)
		}
	}

	stdout, stderr, err := runCLI(t, append([]string{"doctor", "--max-missing", "1"}, p.flags()...)...)
	if err == nil {
		t.Fatal("expected doctor to fail")
	}

	if !strings.Contains(stdout, "... and 1 more") {
		t.Errorf("expected truncated missing list:\n%s", stdout)
	}
	if !strings.Contains(stdout, "2 of 3 audio files missing") {
		t.Errorf("expected missing count:\n%s", stdout)
	}
	if !strings.Contains(stderr, "FAIL:") {
		t.Errorf("expected failures on stderr, got %q", stderr)
	}
}
