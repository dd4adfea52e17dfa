package doctor_test

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/example/go-meldata/internal/config"
	"github.com/example/go-meldata/internal/doctor"
	"github.com/example/go-meldata/internal/testutil"
)

var errBinaryNotFound = errors.New("executable file not found in $PATH")

type fixture struct {
	dir      string
	dict     string
	lexicon  string
	manifest string
}

func newFixture(t *testing.T) fixture {
	t.Helper()

	dir := t.TempDir()
	wav := testutil.WriteWAV(t, dir, "a.wav", testutil.Sine(2400, 24000, 440), 24000, 1)

	return fixture{
		dir:      dir,
		dict:     testutil.WriteDictionary(t, dir, testutil.Alphabet()),
		lexicon:  testutil.WriteFile(t, dir, "lexicon.txt", []byte("hello\th e l o\n")),
		manifest: testutil.WriteManifest(t, dir, "train.txt", wav+"|hello"),
	}
}

func (f fixture) config() doctor.Config {
	return doctor.Config{
		DictPath:  f.dict,
		Manifests: []string{f.manifest},
		G2P:       config.G2PConfig{Backend: config.G2PLexicon, LexiconPath: f.lexicon},
	}
}

func hasFailureContaining(failures []string, substr string) bool {
	for _, f := range failures {
		if strings.Contains(f, substr) {
			return true
		}
	}

	return false
}

// ---------------------------------------------------------------------------
// all-pass scenario
// ---------------------------------------------------------------------------

func TestRun_AllChecksPass(t *testing.T) {
	f := newFixture(t)

	var out strings.Builder
	result := doctor.Run(f.config(), &out)

	if result.Failed() {
		t.Errorf("expected all checks to pass; failures: %v", result.Failures())
	}

	for _, want := range []string{"dictionary", "manifest", "g2p lexicon", doctor.PassMark} {
		if !strings.Contains(out.String(), want) {
			t.Errorf("output missing %q:\n%s", want, out.String())
		}
	}
	if strings.Contains(out.String(), doctor.FailMark) {
		t.Errorf("unexpected fail mark:\n%s", out.String())
	}
}

// ---------------------------------------------------------------------------
// dictionary
// ---------------------------------------------------------------------------

func TestRun_DictionaryWithoutBlankFails(t *testing.T) {
	f := newFixture(t)
	cfg := f.config()
	cfg.DictPath = testutil.WriteFile(t, f.dir, "noblank.txt", []byte("\"a\",1\n"))

	var out strings.Builder
	result := doctor.Run(cfg, &out)

	if !hasFailureContaining(result.Failures(), "dictionary") {
		t.Errorf("expected dictionary failure, got: %v", result.Failures())
	}
}

func TestRun_DictionaryMissingFails(t *testing.T) {
	f := newFixture(t)
	cfg := f.config()
	cfg.DictPath = filepath.Join(f.dir, "missing.txt")

	var out strings.Builder
	if result := doctor.Run(cfg, &out); !result.Failed() {
		t.Fatal("expected failure for missing dictionary")
	}
}

// ---------------------------------------------------------------------------
// manifests
// ---------------------------------------------------------------------------

func TestRun_MissingAudioIsReportedAndCapped(t *testing.T) {
	f := newFixture(t)
	lines := make([]string, 0, 8)
	for i := range 8 {
		lines = append(lines, filepath.Join(f.dir, "gone", string(rune('a'+i))+".wav")+"|hello")
	}

	cfg := f.config()
	cfg.Manifests = []string{testutil.WriteManifest(t, f.dir, "val.txt", lines...)}
	cfg.MaxMissing = 3

	var out strings.Builder
	result := doctor.Run(cfg, &out)

	if !hasFailureContaining(result.Failures(), "8 of 8 audio files missing") {
		t.Errorf("expected missing-audio failure, got: %v", result.Failures())
	}
	if got := strings.Count(out.String(), "not found"); got != 3 {
		t.Errorf("listed %d missing files; want 3\n%s", got, out.String())
	}
	if !strings.Contains(out.String(), "and 5 more") {
		t.Errorf("output should summarise the remainder:\n%s", out.String())
	}
}

func TestRun_MalformedManifestFails(t *testing.T) {
	f := newFixture(t)
	cfg := f.config()
	cfg.Manifests = []string{testutil.WriteManifest(t, f.dir, "bad.txt", "no-separator")}

	var out strings.Builder
	result := doctor.Run(cfg, &out)

	if !hasFailureContaining(result.Failures(), "line 1") {
		t.Errorf("expected failure naming line 1, got: %v", result.Failures())
	}
}

func TestRun_EmptyManifestPathSkipped(t *testing.T) {
	f := newFixture(t)
	cfg := f.config()
	cfg.Manifests = append(cfg.Manifests, "")

	var out strings.Builder
	if result := doctor.Run(cfg, &out); result.Failed() {
		t.Fatalf("unexpected failures: %v", result.Failures())
	}
}

// ---------------------------------------------------------------------------
// g2p backends
// ---------------------------------------------------------------------------

func TestRun_LexiconMissingFails(t *testing.T) {
	f := newFixture(t)
	cfg := f.config()
	cfg.G2P.LexiconPath = filepath.Join(f.dir, "nope.txt")

	var out strings.Builder
	result := doctor.Run(cfg, &out)

	if !hasFailureContaining(result.Failures(), "g2p lexicon") {
		t.Errorf("expected lexicon failure, got: %v", result.Failures())
	}
}

func TestRun_Phonetisaurus(t *testing.T) {
	f := newFixture(t)
	model := filepath.Join(f.dir, "model.fst")
	if err := os.WriteFile(model, []byte("fst"), 0o644); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name     string
		version  doctor.VersionFunc
		model    string
		wantFail string
	}{
		{
			name:    "binary and model present",
			version: func() (string, error) { return "/usr/bin/phonetisaurus-g2pfst", nil },
			model:   model,
		},
		{
			name:     "binary missing",
			version:  func() (string, error) { return "", errBinaryNotFound },
			model:    model,
			wantFail: "phonetisaurus binary",
		},
		{
			name:     "model missing",
			version:  func() (string, error) { return "/usr/bin/phonetisaurus-g2pfst", nil },
			model:    filepath.Join(f.dir, "missing.fst"),
			wantFail: "phonetisaurus model",
		},
		{
			name:     "no probe",
			model:    model,
			wantFail: "no probe",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := f.config()
			cfg.G2P = config.G2PConfig{Backend: config.G2PPhonetisaurus, ModelPath: tt.model}
			cfg.PhonetisaurusVersion = tt.version

			var out strings.Builder
			result := doctor.Run(cfg, &out)

			if tt.wantFail == "" {
				if result.Failed() {
					t.Fatalf("unexpected failures: %v", result.Failures())
				}
				return
			}
			if !hasFailureContaining(result.Failures(), tt.wantFail) {
				t.Errorf("expected failure containing %q, got: %v", tt.wantFail, result.Failures())
			}
		})
	}
}

func TestRun_InvalidBackendFails(t *testing.T) {
	f := newFixture(t)
	cfg := f.config()
	cfg.G2P.Backend = "espeak"

	var out strings.Builder
	result := doctor.Run(cfg, &out)

	if !hasFailureContaining(result.Failures(), "g2p") {
		t.Errorf("expected g2p failure, got: %v", result.Failures())
	}
}

func TestResult_AddFailure(t *testing.T) {
	var r doctor.Result
	r.AddFailure("external")

	if !r.Failed() || r.Failures()[0] != "external" {
		t.Errorf("AddFailure not recorded: %v", r.Failures())
	}
}
