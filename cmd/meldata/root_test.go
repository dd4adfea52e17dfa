package main

import (
	"bytes"
	"context"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/example/go-meldata/internal/config"
	"github.com/example/go-meldata/internal/testutil"
)

// project is a self-contained set of fixture files for end-to-end runs.
type project struct {
	dir        string
	dict       string
	lexicon    string
	train      string
	validation string
	out        string
}

func newProject(t *testing.T, trainCount, valCount int) project {
	t.Helper()

	dir := t.TempDir()
	texts := []string{"Hello, world!", "hello", "world hello.", "Hello world"}

	manifest := func(name string, n int) string {
		lines := make([]string, 0, n)
		for i := range n {
			// Varying lengths exercise sorting inside each batch.
			samples := 24000 + 3000*i
			wav := testutil.WriteWAV(t, dir, fmt.Sprintf("%s-%d.wav", name, i), testutil.Sine(samples, 24000, 220), 24000, 1)
			lines = append(lines, fmt.Sprintf("%s|%s|%d", wav, texts[i%len(texts)], i%2))
		}
		return testutil.WriteManifest(t, dir, name+".txt", lines...)
	}

	return project{
		dir:        dir,
		dict:       testutil.WriteDictionary(t, dir, testutil.Alphabet()),
		lexicon:    testutil.WriteFile(t, dir, "lexicon.txt", []byte("hello\th e l o\nworld\tw o r l d\n")),
		train:      manifest("train", trainCount),
		validation: manifest("val", valCount),
		out:        filepath.Join(dir, "shards"),
	}
}

func (p project) flags(extra ...string) []string {
	return append([]string{
		"--paths-dict=" + p.dict,
		"--paths-manifest=" + p.train,
		"--paths-validation-manifest=" + p.validation,
		"--paths-output-dir=" + p.out,
		"--g2p-backend=lexicon",
		"--g2p-lexicon-path=" + p.lexicon,
		"--loader-batch-size=2",
		"--loader-workers=2",
		"--log-level=error",
	}, extra...)
}

func runCLI(t *testing.T, args ...string) (string, string, error) {
	t.Helper()

	var stdout, stderr bytes.Buffer
	root := NewRootCmd()
	root.SetArgs(args)
	root.SetOut(&stdout)
	root.SetErr(&stderr)

	err := root.ExecuteContext(context.Background())

	return stdout.String(), stderr.String(), err
}

func TestNewRootCmd_HasExpectedSubcommands(t *testing.T) {
	root := NewRootCmd()

	want := []string{"prepare", "inspect", "doctor", "bench"}
	for _, name := range want {
		found := false

		for _, sub := range root.Commands() {
			if sub.Name() == name {
				found = true
				break
			}
		}

		if !found {
			t.Errorf("expected subcommand %q not found in root", name)
		}
	}
}

func TestNewRootCmd_HasPersistentConfigFlag(t *testing.T) {
	root := NewRootCmd()
	if root.PersistentFlags().Lookup("config") == nil {
		t.Error("expected --config persistent flag to be registered")
	}
	if root.PersistentFlags().Lookup("loader-batch-size") == nil {
		t.Error("expected config flags to be registered as persistent flags")
	}
}

func TestSetupLogger_DoesNotPanic(_ *testing.T) {
	for _, level := range []string{"debug", "info", "warn", "error", "not-a-level"} {
		setupLogger(level)
	}
}

func TestRequireConfig(t *testing.T) {
	orig := activeCfg
	t.Cleanup(func() { activeCfg = orig })

	activeCfg = config.Config{}
	if _, err := requireConfig(); err == nil {
		t.Fatal("expected error when config is not loaded")
	}

	activeCfg = config.DefaultConfig()
	got, err := requireConfig()
	if err != nil {
		t.Fatalf("requireConfig returned unexpected error: %v", err)
	}
	if got.Audio.SampleRate != 24000 {
		t.Errorf("unexpected sample rate: %d", got.Audio.SampleRate)
	}
}

func TestRoot_InvalidConfigFileFails(t *testing.T) {
	if _, _, err := runCLI(t, "doctor", "--config", filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatal("expected error for missing config file")
	}
}
