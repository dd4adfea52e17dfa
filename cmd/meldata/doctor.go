package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/example/go-meldata/internal/doctor"
	"github.com/example/go-meldata/internal/g2p"
)

func newDoctorCmd() *cobra.Command {
	var maxMissing int

	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Check the dictionary, manifests, audio files and G2P backend",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := requireConfig()
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			_, _ = fmt.Fprintf(out, "g2p backend: %s\n", cfg.G2P.Backend)

			result := doctor.Run(doctor.Config{
				DictPath:   cfg.Paths.Dict,
				Manifests:  []string{cfg.Paths.Manifest, cfg.Paths.ValidationManifest},
				MaxMissing: maxMissing,
				G2P:        cfg.G2P,
				PhonetisaurusVersion: func() (string, error) {
					return g2p.LookPath(cfg.G2P.CLIPath)
				},
			}, out)

			if result.Failed() {
				for _, f := range result.Failures() {
					_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "FAIL: %s\n", f)
				}

				return errors.New("doctor checks failed")
			}

			_, _ = fmt.Fprintln(out, "doctor checks passed")

			return nil
		},
	}

	cmd.Flags().IntVar(&maxMissing, "max-missing", doctor.DefaultMaxMissing, "Missing audio files listed per manifest")

	return cmd
}
