package main

import (
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/example/go-meldata/internal/g2p"
	"github.com/example/go-meldata/internal/shard"
	"github.com/example/go-meldata/internal/testutil"
)

func TestPrepare_TrainingDropsPartialBatch(t *testing.T) {
	p := newProject(t, 5, 1)

	stdout, _, err := runCLI(t, append([]string{"prepare"}, p.flags("--loader-seed=3")...)...)
	if err != nil {
		t.Fatalf("prepare: %v", err)
	}
	if !strings.Contains(stdout, "wrote 2 batches (4 examples)") {
		t.Errorf("unexpected output: %q", stdout)
	}

	dir := filepath.Join(p.out, "train")
	idx, err := shard.ReadIndex(dir)
	if err != nil {
		t.Fatalf("ReadIndex: %v", err)
	}
	if idx.Batches != 2 || idx.Examples != 4 {
		t.Fatalf("index = %d batches / %d examples; want 2 / 4", idx.Batches, idx.Examples)
	}
	if idx.Config["split"] != "train" || idx.Config["hop_length"] != "300" {
		t.Errorf("config summary = %v", idx.Config)
	}

	for _, e := range idx.Shards {
		b, err := shard.ReadBatch(dir, e)
		if err != nil {
			t.Fatalf("ReadBatch: %v", err)
		}
		if b.Mels.Dim(1) != 80 {
			t.Errorf("n_mels = %d; want 80", b.Mels.Dim(1))
		}
		if b.OutputLengths[0] < b.OutputLengths[1] {
			t.Errorf("batch not sorted: %v", b.OutputLengths)
		}
		if b.Mels.Dim(2) != b.OutputLengths[0] {
			t.Errorf("mel width %d != max length %d", b.Mels.Dim(2), b.OutputLengths[0])
		}
		for i := range b.Size() {
			if b.InputLengths[i] >= b.OutputLengths[i]/2 {
				t.Errorf("row %d misaligned: %d tokens, %d frames", i, b.InputLengths[i], b.OutputLengths[i])
			}
		}
		if b.Waves != nil {
			t.Error("waves exported without --loader-return-wave")
		}
	}
}

func TestPrepare_ValidationKeepsLastBatchAndWaves(t *testing.T) {
	p := newProject(t, 1, 3)

	_, _, err := runCLI(t, append([]string{"prepare", "--validation"}, p.flags("--loader-return-wave")...)...)
	if err != nil {
		t.Fatalf("prepare --validation: %v", err)
	}

	dir := filepath.Join(p.out, "validation")
	idx, err := shard.ReadIndex(dir)
	if err != nil {
		t.Fatalf("ReadIndex: %v", err)
	}
	if idx.Batches != 2 || idx.Examples != 3 {
		t.Fatalf("index = %d batches / %d examples; want 2 / 3", idx.Batches, idx.Examples)
	}

	last, err := shard.ReadBatch(dir, idx.Shards[1])
	if err != nil {
		t.Fatalf("ReadBatch: %v", err)
	}
	if last.Size() != 1 || len(last.Waves) != 1 {
		t.Fatalf("last batch size = %d, waves = %d; want 1, 1", last.Size(), len(last.Waves))
	}
	if !strings.HasSuffix(last.Paths[0], "val-2.wav") {
		t.Errorf("last path = %q; want val-2.wav", last.Paths[0])
	}
	if len(last.Waves[0]) != 24000+6000 {
		t.Errorf("wave length = %d; want 30000", len(last.Waves[0]))
	}
}

func TestPrepare_UnknownWordFails(t *testing.T) {
	p := newProject(t, 2, 1)
	partial := testutil.WriteFile(t, p.dir, "partial.txt", []byte("hello\th e l o\n"))

	_, _, err := runCLI(t, append([]string{"prepare"}, p.flags("--g2p-lexicon-path="+partial)...)...)
	if !errors.Is(err, g2p.ErrUnknownWord) {
		t.Fatalf("err = %v; want ErrUnknownWord", err)
	}
	if _, err := shard.ReadIndex(filepath.Join(p.out, "train")); err == nil {
		t.Error("failed run wrote index.json")
	}
}

func TestPrepare_RerunReplacesLongerRun(t *testing.T) {
	p := newProject(t, 6, 1)

	if _, _, err := runCLI(t, append([]string{"prepare"}, p.flags()...)...); err != nil {
		t.Fatalf("first prepare: %v", err)
	}

	short := testutil.WriteManifest(t, p.dir, "short.txt",
		filepath.Join(p.dir, "train-0.wav")+"|hello|0",
		filepath.Join(p.dir, "train-1.wav")+"|world|1",
	)
	if _, _, err := runCLI(t, append([]string{"prepare"}, p.flags("--paths-manifest="+short)...)...); err != nil {
		t.Fatalf("second prepare: %v", err)
	}

	dir := filepath.Join(p.out, "train")
	idx, err := shard.ReadIndex(dir)
	if err != nil {
		t.Fatalf("ReadIndex: %v", err)
	}
	if idx.Batches != 1 {
		t.Fatalf("batches = %d; want 1", idx.Batches)
	}

	stale, err := filepath.Glob(filepath.Join(dir, "batch-*"))
	if err != nil {
		t.Fatal(err)
	}
	if len(stale) != 2 {
		t.Errorf("shard files = %v; want only batch-00000", stale)
	}
}

func TestPrepare_MissingLexiconFails(t *testing.T) {
	p := newProject(t, 2, 1)

	_, _, err := runCLI(t, append([]string{"prepare"}, p.flags("--g2p-lexicon-path="+filepath.Join(p.dir, "absent.txt"))...)...)
	if err == nil {
		t.Fatal("expected error for missing lexicon")
	}
}
