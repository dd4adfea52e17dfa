// Package bench measures how fast examples can be prepared relative to the
// amount of audio they contain.
package bench

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/example/go-meldata/internal/dataset"
)

// ---------------------------------------------------------------------------
// Run result and stats
// ---------------------------------------------------------------------------

// RunResult holds the timing and size of a single example fetch.
type RunResult struct {
	Index         int
	Path          string
	Cold          bool // true for the first run
	Duration      time.Duration
	AudioDuration time.Duration
	Frames        int64
	Tokens        int
	RTF           float64
}

// Stats holds aggregate timing statistics across all runs.
type Stats struct {
	Min     time.Duration
	Max     time.Duration
	Mean    time.Duration
	MeanRTF float64
}

// ComputeStats calculates min, max and mean over a slice of durations.
func ComputeStats(durations []time.Duration) Stats {
	if len(durations) == 0 {
		return Stats{}
	}
	mn, mx := durations[0], durations[0]
	var sum time.Duration
	for _, d := range durations {
		if d < mn {
			mn = d
		}
		if d > mx {
			mx = d
		}
		sum += d
	}
	return Stats{
		Min:  mn,
		Max:  mx,
		Mean: sum / time.Duration(len(durations)),
	}
}

// Summarize aggregates runs, including the mean real-time factor.
func Summarize(runs []RunResult) Stats {
	durations := make([]time.Duration, len(runs))
	var rtf float64
	for i, r := range runs {
		durations[i] = r.Duration
		rtf += r.RTF
	}

	s := ComputeStats(durations)
	if len(runs) > 0 {
		s.MeanRTF = rtf / float64(len(runs))
	}

	return s
}

// ---------------------------------------------------------------------------
// RTF helpers
// ---------------------------------------------------------------------------

// CalcRTF returns the real-time factor: processing time / audio duration.
// Returns 0 if audioDur is zero to avoid division by zero.
func CalcRTF(procDur, audioDur time.Duration) float64 {
	if audioDur <= 0 {
		return 0
	}
	return float64(procDur) / float64(audioDur)
}

// AudioDuration converts a sample count at sampleRate to playback time.
func AudioDuration(samples, sampleRate int) time.Duration {
	if sampleRate <= 0 {
		return 0
	}
	return time.Duration(int64(samples) * int64(time.Second) / int64(sampleRate))
}

// ---------------------------------------------------------------------------
// Runner
// ---------------------------------------------------------------------------

// Run fetches the first n examples of src one at a time and times each
// fetch. n <= 0 or n > src.Len() benchmarks every example.
func Run(ctx context.Context, src dataset.Source, n, sampleRate int) ([]RunResult, error) {
	if n <= 0 || n > src.Len() {
		n = src.Len()
	}

	runs := make([]RunResult, 0, n)
	for i := range n {
		start := time.Now()
		ex, err := src.Get(ctx, i)
		elapsed := time.Since(start)
		if err != nil {
			return runs, fmt.Errorf("example %d: %w", i, err)
		}

		audioDur := AudioDuration(len(ex.Wave), sampleRate)
		runs = append(runs, RunResult{
			Index:         i,
			Path:          ex.Path,
			Cold:          i == 0,
			Duration:      elapsed,
			AudioDuration: audioDur,
			Frames:        ex.Mel.Dim(-1),
			Tokens:        len(ex.Tokens),
			RTF:           CalcRTF(elapsed, audioDur),
		})
	}

	return runs, nil
}

// ---------------------------------------------------------------------------
// RTF threshold gate
// ---------------------------------------------------------------------------

// CheckRTFThreshold returns an error if meanRTF > threshold.
// A threshold of 0 disables the gate.
func CheckRTFThreshold(meanRTF, threshold float64) error {
	if threshold <= 0 {
		return nil
	}
	if meanRTF > threshold {
		return fmt.Errorf("mean RTF %.3f exceeds threshold %.3f", meanRTF, threshold)
	}
	return nil
}

// ---------------------------------------------------------------------------
// Output formatters
// ---------------------------------------------------------------------------

// FormatTable writes a human-readable ASCII table of bench results to w.
func FormatTable(runs []RunResult, stats Stats, w io.Writer) {
	sb := &strings.Builder{}

	fmt.Fprintf(sb, "%-5s  %-5s  %10s  %12s  %7s  %7s  %8s\n", "Run", "Cold", "MS", "Audio(ms)", "Frames", "Tokens", "RTF")
	fmt.Fprintln(sb, strings.Repeat("-", 66))

	for _, r := range runs {
		cold := ""
		if r.Cold {
			cold = "yes"
		}
		fmt.Fprintf(sb, "%-5d  %-5s  %10.1f  %12.1f  %7d  %7d  %8.3f\n",
			r.Index+1,
			cold,
			float64(r.Duration.Microseconds())/1000,
			float64(r.AudioDuration.Milliseconds()),
			r.Frames,
			r.Tokens,
			r.RTF,
		)
	}

	fmt.Fprintln(sb, strings.Repeat("-", 66))
	fmt.Fprintf(sb, "%-5s  %-5s  %10.1f  (min)\n", "", "", float64(stats.Min.Microseconds())/1000)
	fmt.Fprintf(sb, "%-5s  %-5s  %10.1f  (mean, rtf %.3f)\n", "", "", float64(stats.Mean.Microseconds())/1000, stats.MeanRTF)
	fmt.Fprintf(sb, "%-5s  %-5s  %10.1f  (max)\n", "", "", float64(stats.Max.Microseconds())/1000)

	fmt.Fprint(w, sb.String())
}

// jsonReport is the top-level JSON structure emitted by FormatJSON.
type jsonReport struct {
	Runs  []jsonRun `json:"runs"`
	Stats jsonStats `json:"stats"`
}

type jsonRun struct {
	Index      int     `json:"index"`
	Path       string  `json:"path"`
	Cold       bool    `json:"cold"`
	DurationMS float64 `json:"duration_ms"`
	AudioMS    float64 `json:"audio_ms"`
	Frames     int64   `json:"frames"`
	Tokens     int     `json:"tokens"`
	RTF        float64 `json:"rtf"`
}

type jsonStats struct {
	MinMS   float64 `json:"min_ms"`
	MeanMS  float64 `json:"mean_ms"`
	MaxMS   float64 `json:"max_ms"`
	MeanRTF float64 `json:"mean_rtf"`
}

// FormatJSON writes a JSON report of bench results to w.
func FormatJSON(runs []RunResult, stats Stats, w io.Writer) error {
	jr := jsonReport{
		Runs: make([]jsonRun, len(runs)),
		Stats: jsonStats{
			MinMS:   float64(stats.Min.Microseconds()) / 1000,
			MeanMS:  float64(stats.Mean.Microseconds()) / 1000,
			MaxMS:   float64(stats.Max.Microseconds()) / 1000,
			MeanRTF: stats.MeanRTF,
		},
	}
	for i, r := range runs {
		jr.Runs[i] = jsonRun{
			Index:      r.Index,
			Path:       r.Path,
			Cold:       r.Cold,
			DurationMS: float64(r.Duration.Microseconds()) / 1000,
			AudioMS:    float64(r.AudioDuration.Milliseconds()),
			Frames:     r.Frames,
			Tokens:     r.Tokens,
			RTF:        r.RTF,
		}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(jr)
}
