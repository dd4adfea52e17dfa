package shard

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/example/go-meldata/internal/dataset"
	"github.com/example/go-meldata/internal/safetensors"
	"github.com/example/go-meldata/internal/tensor"
)

// ReadIndex loads index.json from dir.
func ReadIndex(dir string) (Index, error) {
	data, err := os.ReadFile(filepath.Join(dir, IndexFile))
	if err != nil {
		return Index{}, fmt.Errorf("shard: read index: %w", err)
	}

	var idx Index
	if err := json.Unmarshal(data, &idx); err != nil {
		return Index{}, fmt.Errorf("shard: decode index: %w", err)
	}

	return idx, nil
}

// ReadBatch reconstructs the batch described by e from dir.
func ReadBatch(dir string, e Entry) (dataset.Batch, error) {
	store, err := safetensors.OpenStore(filepath.Join(dir, e.Tensors))
	if err != nil {
		return dataset.Batch{}, err
	}

	texts, err := intTensor(store, TensorTexts)
	if err != nil {
		return dataset.Batch{}, err
	}
	inLens, err := store.Tensor(TensorInputLengths)
	if err != nil {
		return dataset.Batch{}, err
	}
	outLens, err := store.Tensor(TensorOutputLengths)
	if err != nil {
		return dataset.Batch{}, err
	}
	melsRaw, err := store.Tensor(TensorMels)
	if err != nil {
		return dataset.Batch{}, err
	}
	mels, err := tensor.FromOwned(melsRaw.Float, melsRaw.Shape)
	if err != nil {
		return dataset.Batch{}, fmt.Errorf("shard: %s: %w", TensorMels, err)
	}

	data, err := os.ReadFile(filepath.Join(dir, e.Sidecar))
	if err != nil {
		return dataset.Batch{}, fmt.Errorf("shard: read sidecar: %w", err)
	}
	var side Sidecar
	if err := msgpack.Unmarshal(data, &side); err != nil {
		return dataset.Batch{}, fmt.Errorf("shard: decode sidecar: %w", err)
	}

	return dataset.Batch{
		Texts:         texts,
		InputLengths:  inLens.Int,
		Mels:          mels,
		OutputLengths: outLens.Int,
		Paths:         side.Paths,
		SpeakerIDs:    side.SpeakerIDs,
		Waves:         side.Waves,
	}, nil
}

func intTensor(store *safetensors.Store, name string) (*tensor.Int, error) {
	t, err := store.Tensor(name)
	if err != nil {
		return nil, err
	}

	out, err := tensor.NewInt(t.Int, t.Shape)
	if err != nil {
		return nil, fmt.Errorf("shard: %s: %w", name, err)
	}

	return out, nil
}
