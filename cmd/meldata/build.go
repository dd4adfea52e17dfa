package main

import (
	"fmt"
	"strconv"

	"github.com/example/go-meldata/internal/config"
	"github.com/example/go-meldata/internal/dataset"
	"github.com/example/go-meldata/internal/g2p"
	"github.com/example/go-meldata/internal/mel"
	"github.com/example/go-meldata/internal/symbols"
)

func melConfig(cfg config.Config) mel.Config {
	return mel.Config{
		SampleRate: cfg.Audio.MelSampleRate,
		NFFT:       cfg.Audio.NFFT,
		WinLength:  cfg.Audio.WinLength,
		HopLength:  cfg.Audio.HopLength,
		NMels:      cfg.Audio.NMels,
	}
}

// manifestFor picks the training or validation manifest.
func manifestFor(cfg config.Config, validation bool) (string, error) {
	path := cfg.Paths.Manifest
	if validation {
		path = cfg.Paths.ValidationManifest
	}
	if path == "" {
		return "", fmt.Errorf("no manifest configured (validation=%v)", validation)
	}
	return path, nil
}

// openDataset wires the dictionary, transcriber and manifest into a Dataset.
func openDataset(cfg config.Config, manifest string) (*dataset.Dataset, error) {
	dict, err := symbols.LoadDictionary(cfg.Paths.Dict)
	if err != nil {
		return nil, err
	}

	tr, err := g2p.New(cfg.G2P)
	if err != nil {
		return nil, err
	}

	lines, err := dataset.ReadManifestFile(manifest)
	if err != nil {
		return nil, err
	}

	return dataset.New(lines, dataset.Options{
		Dictionary:  dict,
		Transcriber: tr,
		SampleRate:  cfg.Audio.SampleRate,
		Mel:         melConfig(cfg),
		Mean:        cfg.Features.Mean,
		Std:         cfg.Features.Std,
	})
}

func loaderOptions(cfg config.Config, validation bool) dataset.LoaderOptions {
	opts := dataset.LoaderOptions{
		BatchSize:  cfg.Loader.BatchSize,
		Workers:    cfg.Loader.Workers,
		Seed:       uint64(cfg.Loader.Seed),
		ReturnWave: cfg.Loader.ReturnWave,
	}
	if validation {
		return dataset.ForValidation(opts)
	}
	return dataset.ForTraining(opts)
}

// configSummary is recorded in the shard index so exports are traceable.
func configSummary(cfg config.Config, manifest string, validation bool) map[string]string {
	split := "train"
	if validation {
		split = "validation"
	}

	return map[string]string{
		"split":           split,
		"manifest":        manifest,
		"sample_rate":     strconv.Itoa(cfg.Audio.SampleRate),
		"n_fft":           strconv.Itoa(cfg.Audio.NFFT),
		"win_length":      strconv.Itoa(cfg.Audio.WinLength),
		"hop_length":      strconv.Itoa(cfg.Audio.HopLength),
		"n_mels":          strconv.Itoa(cfg.Audio.NMels),
		"mel_sample_rate": strconv.Itoa(cfg.Audio.MelSampleRate),
		"mean":            strconv.FormatFloat(cfg.Features.Mean, 'g', -1, 64),
		"std":             strconv.FormatFloat(cfg.Features.Std, 'g', -1, 64),
		"g2p_backend":     cfg.G2P.Backend,
		"batch_size":      strconv.Itoa(cfg.Loader.BatchSize),
		"seed":            strconv.FormatInt(cfg.Loader.Seed, 10),
	}
}
