package audio

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/cwbudde/wav"
	"github.com/hajimehoshi/go-mp3"
)

// TargetSampleRate is the rate every training waveform is brought to.
const TargetSampleRate = 24000

// ErrEmptyAudio is returned when a file decodes to zero samples.
var ErrEmptyAudio = errors.New("audio contains no samples")

// Clip is decoded PCM audio. Samples are interleaved when Channels > 1 and
// scaled to [-1, 1].
type Clip struct {
	Samples    []float32
	SampleRate int
	Channels   int
}

// Frames returns the number of sample frames (samples per channel).
func (c Clip) Frames() int {
	if c.Channels <= 0 {
		return 0
	}

	return len(c.Samples) / c.Channels
}

// DecodeWAV decodes WAV bytes of any rate, channel count and PCM bit depth.
func DecodeWAV(data []byte) (Clip, error) {
	if len(data) == 0 {
		return Clip{}, errors.New("empty WAV input")
	}

	dec := wav.NewDecoder(bytes.NewReader(data))
	if !dec.IsValidFile() {
		return Clip{}, errors.New("invalid WAV file")
	}

	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return Clip{}, fmt.Errorf("reading PCM data: %w", err)
	}

	clip := Clip{
		Samples:    buf.Data,
		SampleRate: int(dec.SampleRate),
		Channels:   int(dec.NumChans),
	}
	if clip.SampleRate < 1 || clip.Channels < 1 {
		return Clip{}, fmt.Errorf("invalid WAV format: rate %d, channels %d", clip.SampleRate, clip.Channels)
	}

	return clip, nil
}

// DecodeMP3 decodes an MP3 stream. The decoder always yields 16-bit stereo.
func DecodeMP3(r io.Reader) (Clip, error) {
	dec, err := mp3.NewDecoder(r)
	if err != nil {
		return Clip{}, fmt.Errorf("open mp3 stream: %w", err)
	}

	raw, err := io.ReadAll(dec)
	if err != nil {
		return Clip{}, fmt.Errorf("reading mp3 frames: %w", err)
	}

	samples := make([]float32, len(raw)/2)
	for i := range samples {
		v := int16(raw[2*i]) | int16(raw[2*i+1])<<8
		samples[i] = float32(v) / 32768.0
	}

	return Clip{Samples: samples, SampleRate: dec.SampleRate(), Channels: 2}, nil
}

// DecodeFile reads and decodes the audio file at path, choosing the codec
// from the file extension (.mp3, everything else is treated as WAV).
func DecodeFile(path string) (Clip, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Clip{}, fmt.Errorf("read audio %s: %w", path, err)
	}

	var clip Clip
	switch strings.ToLower(filepath.Ext(path)) {
	case ".mp3":
		clip, err = DecodeMP3(bytes.NewReader(data))
	default:
		clip, err = DecodeWAV(data)
	}
	if err != nil {
		return Clip{}, fmt.Errorf("decode audio %s: %w", path, err)
	}

	if clip.Frames() == 0 {
		return Clip{}, fmt.Errorf("decode audio %s: %w", path, ErrEmptyAudio)
	}

	return clip, nil
}

// ToMono collapses interleaved multi-channel samples by averaging channels.
func ToMono(samples []float32, channels int) []float32 {
	if channels <= 1 {
		return samples
	}

	frames := len(samples) / channels
	out := make([]float32, frames)
	for i := range frames {
		var sum float32
		for c := range channels {
			sum += samples[i*channels+c]
		}
		out[i] = sum / float32(channels)
	}

	return out
}

// Load decodes path, collapses it to mono and resamples it to sampleRate.
func Load(path string, sampleRate int) ([]float32, error) {
	clip, err := DecodeFile(path)
	if err != nil {
		return nil, err
	}

	mono := ToMono(clip.Samples, clip.Channels)
	if clip.SampleRate == sampleRate {
		return mono, nil
	}

	out, err := Resample(mono, clip.SampleRate, sampleRate)
	if err != nil {
		return nil, fmt.Errorf("resample %s: %w", path, err)
	}

	return out, nil
}
