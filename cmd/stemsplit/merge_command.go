package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/cwbudde/algo-stems/merge"
	"github.com/cwbudde/algo-stems/stem"
)

func newMergeCommand(ctx *commandContext) *cobra.Command {
	var (
		target      string
		source      string
		track       string
		ext         string
		strictRates bool
	)

	cmd := &cobra.Command{
		Use:   "merge <dir>",
		Short: "Fold one stem into another and delete it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := ctx.config
			if cmd.Flags().Changed("strict-rates") {
				cfg.Merge.StrictRates = strictRates
			}
			valid, err := ctx.validated()
			if err != nil {
				return err
			}
			m, err := merge.New(valid, ctx.logger)
			if err != nil {
				return err
			}
			res, err := m.Merge(cmd.Context(), args[0], merge.Options{
				Target: stem.Label(target),
				Source: stem.Label(source),
				Track:  track,
				Ext:    ext,
			})
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if res.Resumed {
				fmt.Fprintf(out, "already merged: %s\n", filepath.Base(res.Target))
				return nil
			}
			fmt.Fprintf(out, "merged %s into %s (%d frames at %d Hz, peak %s)\n",
				filepath.Base(res.Source), filepath.Base(res.Target), res.Frames, res.SampleRate, formatDB(linToDB(res.Peak)))
			if res.Truncated > 0 {
				fmt.Fprintf(out, "%d source frames beyond the target were dropped\n", res.Truncated)
			}
			if res.Clipped > 0 {
				fmt.Fprintf(out, "%d samples clipped\n", res.Clipped)
			}
			return nil
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&target, "target", "", "Stem that receives the overlay (default from config)")
	flags.StringVar(&source, "source", "", "Stem folded into the target and deleted (default from config)")
	flags.StringVar(&track, "track", "", "Track prefix of the stem files, as written by separate")
	flags.StringVar(&ext, "ext", "", "Stem file extension, wav or flac (default from config)")
	flags.BoolVar(&strictRates, "strict-rates", false, "Fail instead of resampling when sample rates differ")
	return cmd
}
