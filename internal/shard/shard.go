// Package shard exports collated batches to disk. Each batch becomes a
// safetensors file holding the padded tensors and a msgpack sidecar holding
// the per-example metadata; index.json lists every shard of a run.
package shard

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/example/go-meldata/internal/dataset"
	"github.com/example/go-meldata/internal/safetensors"
)

const IndexFile = "index.json"

// Tensor names inside each shard.
const (
	TensorTexts         = "texts"
	TensorInputLengths  = "input_lengths"
	TensorMels          = "mels"
	TensorOutputLengths = "output_lengths"
)

// Sidecar is the msgpack payload written next to each tensor file.
type Sidecar struct {
	RunID      string      `msgpack:"run_id"`
	Batch      int         `msgpack:"batch"`
	Paths      []string    `msgpack:"paths"`
	SpeakerIDs []int64     `msgpack:"speaker_ids"`
	Waves      [][]float32 `msgpack:"waves,omitempty"`
}

// Entry describes one exported batch in the index.
type Entry struct {
	Tensors   string `json:"tensors"`
	Sidecar   string `json:"sidecar"`
	Size      int    `json:"size"`
	MaxFrames int64  `json:"max_frames"`
	MaxTokens int64  `json:"max_tokens"`
}

// Index is the content of index.json.
type Index struct {
	RunID     string            `json:"run_id"`
	CreatedAt time.Time         `json:"created_at"`
	Batches   int               `json:"batches"`
	Examples  int               `json:"examples"`
	Config    map[string]string `json:"config,omitempty"`
	Shards    []Entry           `json:"shards"`
}

// Option configures a Writer.
type Option func(*Writer)

// WithLogger sets the logger used to report shard writes.
func WithLogger(l *slog.Logger) Option {
	return func(w *Writer) {
		if l != nil {
			w.log = l
		}
	}
}

// WithConfig records a configuration summary in index.json.
func WithConfig(summary map[string]string) Option {
	return func(w *Writer) {
		w.index.Config = summary
	}
}

// Writer writes batches into a directory. It is not safe for concurrent use.
// index.json only appears once Close succeeds, so a directory without one
// holds an unfinished run.
type Writer struct {
	dir    string
	log    *slog.Logger
	index  Index
	closed bool
}

// NewWriter prepares dir for a new run, removing the index and shards left
// by any earlier run.
func NewWriter(dir string, opts ...Option) (*Writer, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("shard: create %s: %w", dir, err)
	}

	w := &Writer{
		dir: dir,
		log: slog.Default(),
		index: Index{
			RunID:     uuid.NewString(),
			CreatedAt: time.Now().UTC(),
			Shards:    []Entry{},
		},
	}
	for _, opt := range opts {
		opt(w)
	}

	if err := w.clear(); err != nil {
		return nil, err
	}

	return w, nil
}

func (w *Writer) clear() error {
	if err := os.Remove(filepath.Join(w.dir, IndexFile)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("shard: remove stale index: %w", err)
	}

	removed := 0
	for _, pattern := range []string{"batch-*.safetensors", "batch-*.msgpack"} {
		stale, err := filepath.Glob(filepath.Join(w.dir, pattern))
		if err != nil {
			return fmt.Errorf("shard: %w", err)
		}
		for _, f := range stale {
			if err := os.Remove(f); err != nil {
				return fmt.Errorf("shard: remove stale shard: %w", err)
			}
			removed++
		}
	}

	if removed > 0 {
		w.log.Info("stale shards removed", slog.String("dir", w.dir), slog.Int("files", removed))
	}

	return nil
}

func (w *Writer) RunID() string { return w.index.RunID }

// Write exports b as the next shard.
func (w *Writer) Write(b dataset.Batch) error {
	if w.closed {
		return errors.New("shard: write after close")
	}

	n := len(w.index.Shards)
	entry := Entry{
		Tensors:   fmt.Sprintf("batch-%05d.safetensors", n),
		Sidecar:   fmt.Sprintf("batch-%05d.msgpack", n),
		Size:      b.Size(),
		MaxFrames: b.Mels.Dim(-1),
		MaxTokens: b.Texts.Dim(-1),
	}

	size := int64(b.Size())
	tensors := []safetensors.Tensor{
		safetensors.I64(TensorTexts, b.Texts.Shape(), b.Texts.RawData()),
		safetensors.I64(TensorInputLengths, []int64{size}, b.InputLengths),
		safetensors.F32(TensorMels, b.Mels.Shape(), b.Mels.RawData()),
		safetensors.I64(TensorOutputLengths, []int64{size}, b.OutputLengths),
	}
	meta := map[string]string{
		"run_id": w.index.RunID,
		"batch":  strconv.Itoa(n),
	}
	if err := safetensors.WriteFile(filepath.Join(w.dir, entry.Tensors), tensors, meta); err != nil {
		return fmt.Errorf("shard %d: %w", n, err)
	}

	side, err := msgpack.Marshal(Sidecar{
		RunID:      w.index.RunID,
		Batch:      n,
		Paths:      b.Paths,
		SpeakerIDs: b.SpeakerIDs,
		Waves:      b.Waves,
	})
	if err != nil {
		return fmt.Errorf("shard %d: encode sidecar: %w", n, err)
	}
	if err := os.WriteFile(filepath.Join(w.dir, entry.Sidecar), side, 0o644); err != nil {
		return fmt.Errorf("shard %d: write sidecar: %w", n, err)
	}

	w.index.Shards = append(w.index.Shards, entry)
	w.index.Batches++
	w.index.Examples += entry.Size

	w.log.Info("shard written",
		slog.String("file", entry.Tensors),
		slog.Int("examples", entry.Size),
		slog.Int64("max_frames", entry.MaxFrames),
		slog.Int64("max_tokens", entry.MaxTokens),
	)

	return nil
}

// Close writes index.json. Further writes fail.
func (w *Writer) Close() error {
	if w.closed {
		return nil
	}
	w.closed = true

	data, err := json.MarshalIndent(w.index, "", "  ")
	if err != nil {
		return fmt.Errorf("shard: encode index: %w", err)
	}

	if err := os.WriteFile(filepath.Join(w.dir, IndexFile), data, 0o644); err != nil {
		return fmt.Errorf("shard: write index: %w", err)
	}

	return nil
}

// Abort ends a failed run without writing index.json. Shards written so far
// stay on disk for inspection. Further writes fail.
func (w *Writer) Abort() {
	if w.closed {
		return
	}
	w.closed = true

	w.log.Warn("run aborted, index not written",
		slog.String("dir", w.dir),
		slog.Int("batches", w.index.Batches),
	)
}

// Index returns a copy of the index accumulated so far.
func (w *Writer) Index() Index {
	idx := w.index
	idx.Shards = append([]Entry(nil), w.index.Shards...)

	return idx
}
