package bench_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/example/go-meldata/internal/bench"
	"github.com/example/go-meldata/internal/dataset"
	"github.com/example/go-meldata/internal/tensor"
)

// ---------------------------------------------------------------------------
// Aggregation
// ---------------------------------------------------------------------------

func TestStats_MinMaxMean(t *testing.T) {
	durations := []time.Duration{
		100 * time.Millisecond,
		200 * time.Millisecond,
		300 * time.Millisecond,
	}
	s := bench.ComputeStats(durations)

	if s.Min != 100*time.Millisecond {
		t.Errorf("want min=100ms, got %v", s.Min)
	}

	if s.Max != 300*time.Millisecond {
		t.Errorf("want max=300ms, got %v", s.Max)
	}

	if s.Mean != 200*time.Millisecond {
		t.Errorf("want mean=200ms, got %v", s.Mean)
	}
}

func TestStats_Empty(t *testing.T) {
	if s := bench.ComputeStats(nil); s != (bench.Stats{}) {
		t.Errorf("want zero stats, got %+v", s)
	}
	if s := bench.Summarize(nil); s != (bench.Stats{}) {
		t.Errorf("want zero summary, got %+v", s)
	}
}

func TestSummarize_MeanRTF(t *testing.T) {
	s := bench.Summarize([]bench.RunResult{
		{Duration: 100 * time.Millisecond, RTF: 0.1},
		{Duration: 300 * time.Millisecond, RTF: 0.3},
	})

	if s.Mean != 200*time.Millisecond {
		t.Errorf("want mean=200ms, got %v", s.Mean)
	}
	if s.MeanRTF < 0.1999 || s.MeanRTF > 0.2001 {
		t.Errorf("want mean RTF 0.2, got %.4f", s.MeanRTF)
	}
}

// ---------------------------------------------------------------------------
// RTF calculation
// ---------------------------------------------------------------------------

func TestRTF_Calculation(t *testing.T) {
	// 1 second of audio prepared in 50ms -> RTF = 0.05
	rtf := bench.CalcRTF(50*time.Millisecond, time.Second)
	if rtf < 0.0499 || rtf > 0.0501 {
		t.Errorf("want RTF≈0.05, got %.4f", rtf)
	}
}

func TestRTF_ZeroAudioDuration(t *testing.T) {
	if rtf := bench.CalcRTF(500*time.Millisecond, 0); rtf != 0 {
		t.Errorf("want RTF=0 for zero audio duration, got %.4f", rtf)
	}
}

func TestAudioDuration(t *testing.T) {
	tests := []struct {
		samples, rate int
		want          time.Duration
	}{
		{24000, 24000, time.Second},
		{12000, 24000, 500 * time.Millisecond},
		{16000, 16000, time.Second},
		{100, 0, 0},
	}

	for _, tt := range tests {
		if got := bench.AudioDuration(tt.samples, tt.rate); got != tt.want {
			t.Errorf("AudioDuration(%d, %d) = %v; want %v", tt.samples, tt.rate, got, tt.want)
		}
	}
}

// ---------------------------------------------------------------------------
// Runner
// ---------------------------------------------------------------------------

type fakeSource struct {
	n      int
	failAt int
}

func (f fakeSource) Len() int { return f.n }

func (f fakeSource) Get(_ context.Context, i int) (dataset.Example, error) {
	if i == f.failAt {
		return dataset.Example{}, errors.New("decode failed")
	}
	m, err := tensor.Zeros([]int64{80, 40})
	if err != nil {
		return dataset.Example{}, err
	}
	return dataset.Example{
		Wave:   make([]float32, 12000),
		Mel:    m,
		Tokens: []int64{1, 2, 3},
		Path:   "x.wav",
	}, nil
}

func TestRun(t *testing.T) {
	runs, err := bench.Run(context.Background(), fakeSource{n: 5, failAt: -1}, 3, 24000)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if len(runs) != 3 {
		t.Fatalf("got %d runs; want 3", len(runs))
	}
	if !runs[0].Cold || runs[1].Cold {
		t.Errorf("cold flags = %v, %v; want true, false", runs[0].Cold, runs[1].Cold)
	}
	for _, r := range runs {
		if r.AudioDuration != 500*time.Millisecond {
			t.Errorf("AudioDuration = %v; want 500ms", r.AudioDuration)
		}
		if r.Frames != 40 || r.Tokens != 3 {
			t.Errorf("frames/tokens = %d/%d; want 40/3", r.Frames, r.Tokens)
		}
	}
}

func TestRun_AllWhenNExceedsLen(t *testing.T) {
	runs, err := bench.Run(context.Background(), fakeSource{n: 2, failAt: -1}, 10, 24000)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(runs) != 2 {
		t.Errorf("got %d runs; want 2", len(runs))
	}
}

func TestRun_StopsOnError(t *testing.T) {
	runs, err := bench.Run(context.Background(), fakeSource{n: 4, failAt: 2}, 0, 24000)
	if err == nil {
		t.Fatal("expected error")
	}
	if len(runs) != 2 {
		t.Errorf("got %d completed runs; want 2", len(runs))
	}
}

// ---------------------------------------------------------------------------
// RTF threshold gate
// ---------------------------------------------------------------------------

func TestRTFThreshold(t *testing.T) {
	tests := []struct {
		name      string
		mean      float64
		threshold float64
		wantErr   bool
	}{
		{"exceeds", 1.5, 1.0, true},
		{"below", 0.8, 1.0, false},
		{"exactly at", 1.0, 1.0, false},
		{"disabled", 9999, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := bench.CheckRTFThreshold(tt.mean, tt.threshold)
			if (err != nil) != tt.wantErr {
				t.Errorf("CheckRTFThreshold(%v, %v) = %v; wantErr %v", tt.mean, tt.threshold, err, tt.wantErr)
			}
		})
	}
}

// ---------------------------------------------------------------------------
// Output formatting
// ---------------------------------------------------------------------------

func TestFormatTable_ContainsHeaders(t *testing.T) {
	runs := []bench.RunResult{
		{Index: 0, Cold: true, Duration: 80 * time.Millisecond, RTF: 0.08, AudioDuration: time.Second, Frames: 80, Tokens: 12},
		{Index: 1, Cold: false, Duration: 50 * time.Millisecond, RTF: 0.05, AudioDuration: time.Second, Frames: 80, Tokens: 12},
	}
	stats := bench.Summarize(runs)

	var buf strings.Builder
	bench.FormatTable(runs, stats, &buf)
	out := buf.String()

	for _, want := range []string{"run", "cold", "ms", "frames", "tokens", "rtf", "(mean"} {
		if !strings.Contains(strings.ToLower(out), want) {
			t.Errorf("table output missing %q:\n%s", want, out)
		}
	}
}

func TestFormatJSON_IsValidJSON(t *testing.T) {
	runs := []bench.RunResult{
		{Index: 0, Path: "a.wav", Cold: true, Duration: 80 * time.Millisecond, RTF: 0.08, AudioDuration: time.Second},
	}
	stats := bench.Summarize(runs)

	var buf bytes.Buffer
	if err := bench.FormatJSON(runs, stats, &buf); err != nil {
		t.Fatalf("FormatJSON: %v", err)
	}

	var out struct {
		Runs []struct {
			Path string `json:"path"`
		} `json:"runs"`
		Stats struct {
			MeanRTF float64 `json:"mean_rtf"`
		} `json:"stats"`
	}
	if err := json.Unmarshal(buf.Bytes(), &out); err != nil {
		t.Fatalf("FormatJSON produced invalid JSON: %v\n%s", err, buf.String())
	}
	if len(out.Runs) != 1 || out.Runs[0].Path != "a.wav" || out.Stats.MeanRTF != 0.08 {
		t.Errorf("unexpected report: %+v", out)
	}
}
