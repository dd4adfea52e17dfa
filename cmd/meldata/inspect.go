package main

import (
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/example/go-meldata/internal/audio"
	"github.com/example/go-meldata/internal/shard"
)

func newInspectCmd() *cobra.Command {
	var (
		validation bool
		wavOut     string
		shardDir   string
	)

	cmd := &cobra.Command{
		Use:   "inspect [index]",
		Short: "Print one prepared example, or summarise an exported shard directory",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			if shardDir != "" {
				return inspectShards(shardDir, out)
			}

			cfg, err := requireConfig()
			if err != nil {
				return err
			}

			index := 0
			if len(args) == 1 {
				index, err = strconv.Atoi(args[0])
				if err != nil {
					return fmt.Errorf("invalid index %q: %w", args[0], err)
				}
			}

			manifest, err := manifestFor(cfg, validation)
			if err != nil {
				return err
			}

			ds, err := openDataset(cfg, manifest)
			if err != nil {
				return err
			}

			ex, err := ds.Get(cmdContext(cmd), index)
			if err != nil {
				return err
			}

			rec := ds.Record(index)
			_, _ = fmt.Fprintf(out, "path:     %s\n", ex.Path)
			_, _ = fmt.Fprintf(out, "text:     %s\n", rec.Text)
			_, _ = fmt.Fprintf(out, "speaker:  %d\n", ex.SpeakerID)
			_, _ = fmt.Fprintf(out, "samples:  %d (%d Hz)\n", len(ex.Wave), ds.SampleRate())
			_, _ = fmt.Fprintf(out, "mel:      %v\n", ex.Mel.Shape())
			_, _ = fmt.Fprintf(out, "tokens:   %d %v\n", len(ex.Tokens), ex.Tokens)

			if wavOut != "" {
				data, err := audio.EncodeWAV(ex.Wave, ds.SampleRate(), 1)
				if err != nil {
					return err
				}
				if err := os.WriteFile(wavOut, data, 0o644); err != nil {
					return fmt.Errorf("write %s: %w", wavOut, err)
				}
				_, _ = fmt.Fprintf(out, "wav:      %s\n", wavOut)
			}

			return nil
		},
	}

	cmd.Flags().BoolVar(&validation, "validation", false, "Read from the validation manifest")
	cmd.Flags().StringVar(&wavOut, "wav", "", "Write the resampled mono waveform to this WAV file")
	cmd.Flags().StringVar(&shardDir, "shards", "", "Summarise an exported shard directory instead of a manifest example")

	return cmd
}

func inspectShards(dir string, out io.Writer) error {
	idx, err := shard.ReadIndex(dir)
	if err != nil {
		return err
	}

	_, _ = fmt.Fprintf(out, "run:      %s\n", idx.RunID)
	_, _ = fmt.Fprintf(out, "created:  %s\n", idx.CreatedAt.Format("2006-01-02T15:04:05Z07:00"))
	_, _ = fmt.Fprintf(out, "batches:  %d\n", idx.Batches)
	_, _ = fmt.Fprintf(out, "examples: %d\n", idx.Examples)

	for _, e := range idx.Shards {
		b, err := shard.ReadBatch(dir, e)
		if err != nil {
			return err
		}
		_, _ = fmt.Fprintf(out, "%s  size=%d  mels=%v  texts=%v  output_lengths=%v\n",
			e.Tensors, b.Size(), b.Mels.Shape(), b.Texts.Shape(), b.OutputLengths)
	}

	return nil
}
