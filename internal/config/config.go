package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

type Config struct {
	Paths    PathsConfig    `mapstructure:"paths"`
	Audio    AudioConfig    `mapstructure:"audio"`
	Features FeaturesConfig `mapstructure:"features"`
	G2P      G2PConfig      `mapstructure:"g2p"`
	Loader   LoaderConfig   `mapstructure:"loader"`
	LogLevel string         `mapstructure:"log_level"`
}

type PathsConfig struct {
	Manifest           string `mapstructure:"manifest"`
	ValidationManifest string `mapstructure:"validation_manifest"`
	Dict               string `mapstructure:"dict"`
	OutputDir          string `mapstructure:"output_dir"`
}

type AudioConfig struct {
	SampleRate    int `mapstructure:"sample_rate"`
	NFFT          int `mapstructure:"n_fft"`
	WinLength     int `mapstructure:"win_length"`
	HopLength     int `mapstructure:"hop_length"`
	NMels         int `mapstructure:"n_mels"`
	MelSampleRate int `mapstructure:"mel_sample_rate"`
}

type FeaturesConfig struct {
	Mean float64 `mapstructure:"mean"`
	Std  float64 `mapstructure:"std"`
}

type G2PConfig struct {
	Backend     string `mapstructure:"backend"`
	LexiconPath string `mapstructure:"lexicon_path"`
	ModelPath   string `mapstructure:"model_path"`
	CLIPath     string `mapstructure:"cli_path"`
}

type LoaderConfig struct {
	BatchSize  int   `mapstructure:"batch_size"`
	Workers    int   `mapstructure:"workers"`
	Seed       int64 `mapstructure:"seed"`
	ReturnWave bool  `mapstructure:"return_wave"`
}

type LoadOptions struct {
	Cmd        flagBinder
	ConfigFile string
	Defaults   Config
}

type flagBinder interface {
	Flags() *pflag.FlagSet
}

func DefaultConfig() Config {
	return Config{
		Paths: PathsConfig{
			Manifest:           "data/train_list.txt",
			ValidationManifest: "data/val_list.txt",
			Dict:               "data/word_index_dict.txt",
			OutputDir:          "shards",
		},
		Audio: AudioConfig{
			SampleRate:    24000,
			NFFT:          2048,
			WinLength:     1200,
			HopLength:     300,
			NMels:         80,
			MelSampleRate: 16000,
		},
		Features: FeaturesConfig{
			Mean: -4,
			Std:  4,
		},
		G2P: G2PConfig{
			Backend:     G2PLexicon,
			LexiconPath: "data/lexicon.txt",
			ModelPath:   "",
			CLIPath:     "",
		},
		Loader: LoaderConfig{
			BatchSize:  4,
			Workers:    1,
			Seed:       1,
			ReturnWave: false,
		},
		LogLevel: "info",
	}
}

// flagKeys maps every registered flag to its configuration key.
var flagKeys = map[string]string{
	"paths-manifest":            "paths.manifest",
	"paths-validation-manifest": "paths.validation_manifest",
	"paths-dict":                "paths.dict",
	"paths-output-dir":          "paths.output_dir",
	"audio-sample-rate":         "audio.sample_rate",
	"audio-n-fft":               "audio.n_fft",
	"audio-win-length":          "audio.win_length",
	"audio-hop-length":          "audio.hop_length",
	"audio-n-mels":              "audio.n_mels",
	"audio-mel-sample-rate":     "audio.mel_sample_rate",
	"features-mean":             "features.mean",
	"features-std":              "features.std",
	"g2p-backend":               "g2p.backend",
	"g2p-lexicon-path":          "g2p.lexicon_path",
	"g2p-model-path":            "g2p.model_path",
	"g2p-cli-path":              "g2p.cli_path",
	"loader-batch-size":         "loader.batch_size",
	"loader-workers":            "loader.workers",
	"loader-seed":               "loader.seed",
	"loader-return-wave":        "loader.return_wave",
	"log-level":                 "log_level",
}

func RegisterFlags(fs *pflag.FlagSet, defaults Config) {
	fs.String("paths-manifest", defaults.Paths.Manifest, "Training manifest (audio_path|text[|speaker_id] per line)")
	fs.String("paths-validation-manifest", defaults.Paths.ValidationManifest, "Validation manifest")
	fs.String("paths-dict", defaults.Paths.Dict, "Symbol dictionary CSV")
	fs.String("paths-output-dir", defaults.Paths.OutputDir, "Directory for exported batch shards")
	fs.Int("audio-sample-rate", defaults.Audio.SampleRate, "Target waveform sample rate")
	fs.Int("audio-n-fft", defaults.Audio.NFFT, "FFT size of the mel transform")
	fs.Int("audio-win-length", defaults.Audio.WinLength, "Window length of the mel transform")
	fs.Int("audio-hop-length", defaults.Audio.HopLength, "Hop length of the mel transform")
	fs.Int("audio-n-mels", defaults.Audio.NMels, "Number of mel bands")
	fs.Int("audio-mel-sample-rate", defaults.Audio.MelSampleRate, "Sample rate the mel filterbank is laid out for")
	fs.Float64("features-mean", defaults.Features.Mean, "Log-mel normalisation mean")
	fs.Float64("features-std", defaults.Features.Std, "Log-mel normalisation standard deviation")
	fs.String("g2p-backend", defaults.G2P.Backend, "G2P backend (lexicon|phonetisaurus)")
	fs.String("g2p-lexicon-path", defaults.G2P.LexiconPath, "Pronunciation lexicon for the lexicon backend")
	fs.String("g2p-model-path", defaults.G2P.ModelPath, "FST model for the phonetisaurus backend")
	fs.String("g2p-cli-path", defaults.G2P.CLIPath, "Path to phonetisaurus-g2pfst")
	fs.Int("loader-batch-size", defaults.Loader.BatchSize, "Examples per batch")
	fs.Int("loader-workers", defaults.Loader.Workers, "Concurrent example loaders")
	fs.Int64("loader-seed", defaults.Loader.Seed, "Shuffle seed")
	fs.Bool("loader-return-wave", defaults.Loader.ReturnWave, "Keep raw waveforms in batches")
	fs.String("log-level", defaults.LogLevel, "Log level (debug|info|warn|error)")
}

func Load(opts LoadOptions) (Config, error) {
	v := viper.New()

	setDefaults(v, opts.Defaults)
	if opts.Cmd != nil {
		if err := bindFlags(v, opts.Cmd.Flags()); err != nil {
			return Config{}, fmt.Errorf("bind flags: %w", err)
		}
	}

	v.SetEnvPrefix("MELDATA")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	v.AutomaticEnv()

	if opts.ConfigFile != "" {
		v.SetConfigFile(opts.ConfigFile)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
	} else {
		v.SetConfigName("meldata")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return Config{}, fmt.Errorf("read config file: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper, c Config) {
	v.SetDefault("paths.manifest", c.Paths.Manifest)
	v.SetDefault("paths.validation_manifest", c.Paths.ValidationManifest)
	v.SetDefault("paths.dict", c.Paths.Dict)
	v.SetDefault("paths.output_dir", c.Paths.OutputDir)
	v.SetDefault("audio.sample_rate", c.Audio.SampleRate)
	v.SetDefault("audio.n_fft", c.Audio.NFFT)
	v.SetDefault("audio.win_length", c.Audio.WinLength)
	v.SetDefault("audio.hop_length", c.Audio.HopLength)
	v.SetDefault("audio.n_mels", c.Audio.NMels)
	v.SetDefault("audio.mel_sample_rate", c.Audio.MelSampleRate)
	v.SetDefault("features.mean", c.Features.Mean)
	v.SetDefault("features.std", c.Features.Std)
	v.SetDefault("g2p.backend", c.G2P.Backend)
	v.SetDefault("g2p.lexicon_path", c.G2P.LexiconPath)
	v.SetDefault("g2p.model_path", c.G2P.ModelPath)
	v.SetDefault("g2p.cli_path", c.G2P.CLIPath)
	v.SetDefault("loader.batch_size", c.Loader.BatchSize)
	v.SetDefault("loader.workers", c.Loader.Workers)
	v.SetDefault("loader.seed", c.Loader.Seed)
	v.SetDefault("loader.return_wave", c.Loader.ReturnWave)
	v.SetDefault("log_level", c.LogLevel)
}

// bindFlags binds each known flag to its dotted key. Unknown flags (such as
// --config) are ignored.
func bindFlags(v *viper.Viper, fs *pflag.FlagSet) error {
	for name, key := range flagKeys {
		f := fs.Lookup(name)
		if f == nil {
			continue
		}
		if err := v.BindPFlag(key, f); err != nil {
			return fmt.Errorf("flag --%s: %w", name, err)
		}
	}

	return nil
}
