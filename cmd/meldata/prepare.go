package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/example/go-meldata/internal/dataset"
	"github.com/example/go-meldata/internal/shard"
)

func newPrepareCmd() *cobra.Command {
	var validation bool

	cmd := &cobra.Command{
		Use:   "prepare",
		Short: "Load, batch and export a manifest as safetensors shards",
		Long: "Loads every manifest record, computes normalised log-mel features and symbol indices,\n" +
			"collates them into padded batches and writes one shard per batch.\n" +
			"Training runs shuffle and drop the trailing partial batch; --validation keeps manifest order and every example.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := requireConfig()
			if err != nil {
				return err
			}

			manifest, err := manifestFor(cfg, validation)
			if err != nil {
				return err
			}

			ds, err := openDataset(cfg, manifest)
			if err != nil {
				return err
			}

			loader, err := dataset.NewLoader(ds, loaderOptions(cfg, validation))
			if err != nil {
				return err
			}

			split := "train"
			if validation {
				split = "validation"
			}
			outDir := filepath.Join(cfg.Paths.OutputDir, split)

			w, err := shard.NewWriter(outDir, shard.WithConfig(configSummary(cfg, manifest, validation)))
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmdContext(cmd), os.Interrupt)
			defer stop()

			slog.Info("prepare started",
				slog.String("manifest", manifest),
				slog.Int("examples", ds.Len()),
				slog.Int("batches", loader.NumBatches()),
				slog.String("run_id", w.RunID()),
			)

			if err := loader.Each(ctx, w.Write); err != nil {
				w.Abort()
				return fmt.Errorf("prepare %s: %w", split, err)
			}
			if err := w.Close(); err != nil {
				return err
			}

			idx := w.Index()
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "wrote %d batches (%d examples) to %s\n", idx.Batches, idx.Examples, outDir)

			return nil
		},
	}

	cmd.Flags().BoolVar(&validation, "validation", false, "Use the validation manifest: sequential order, keep the last partial batch")

	return cmd
}

func cmdContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
