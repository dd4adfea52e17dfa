package main

import (
	"fmt"
	"os"
	"runtime/pprof"

	"github.com/spf13/cobra"

	"github.com/example/go-meldata/internal/bench"
)

func newBenchCmd() *cobra.Command {
	var (
		examples     int
		validation   bool
		format       string
		rtfThreshold float64
		cpuprofile   string
	)

	cmd := &cobra.Command{
		Use:   "bench",
		Short: "Benchmark example preparation time and realtime factor",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := requireConfig()
			if err != nil {
				return err
			}

			if examples < 0 {
				return fmt.Errorf("--examples must not be negative")
			}
			if format != "table" && format != "json" {
				return fmt.Errorf("--format must be 'table' or 'json'")
			}

			manifest, err := manifestFor(cfg, validation)
			if err != nil {
				return err
			}

			ds, err := openDataset(cfg, manifest)
			if err != nil {
				return err
			}

			if cpuprofile != "" {
				f, err := os.Create(cpuprofile)
				if err != nil {
					return fmt.Errorf("create cpu profile: %w", err)
				}
				defer f.Close()

				if err := pprof.StartCPUProfile(f); err != nil {
					return fmt.Errorf("start cpu profile: %w", err)
				}
				defer pprof.StopCPUProfile()
			}

			runs, err := bench.Run(cmdContext(cmd), ds, examples, ds.SampleRate())
			if err != nil {
				return err
			}

			stats := bench.Summarize(runs)
			out := cmd.OutOrStdout()

			switch format {
			case "json":
				if err := bench.FormatJSON(runs, stats, out); err != nil {
					return err
				}
			default:
				bench.FormatTable(runs, stats, out)
			}

			return bench.CheckRTFThreshold(stats.MeanRTF, rtfThreshold)
		},
	}

	cmd.Flags().IntVar(&examples, "examples", 10, "Number of examples to time (0 = all)")
	cmd.Flags().BoolVar(&validation, "validation", false, "Benchmark the validation manifest")
	cmd.Flags().StringVar(&format, "format", "table", "Output format: table or json")
	cmd.Flags().Float64Var(&rtfThreshold, "rtf-threshold", 0, "Fail when mean RTF exceeds this value (0 disables)")
	cmd.Flags().StringVar(&cpuprofile, "cpuprofile", "", "Write a CPU profile of the run to this file")

	return cmd
}
