package main

import (
	"fmt"
	"path/filepath"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/cwbudde/algo-stems/separate"
	"github.com/cwbudde/algo-stems/stem"
)

func newSeparateCommand(ctx *commandContext) *cobra.Command {
	var (
		outputDir  string
		sampleRate int
		gains      []string
		downmix    bool
		overwrite  bool
		frameSize  int
		hopSize    int
	)

	cmd := &cobra.Command{
		Use:   "separate <input>",
		Short: "Split a recording into four stems",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := ctx.config
			flags := cmd.Flags()
			if flags.Changed("sample-rate") {
				cfg.Audio.SampleRate = sampleRate
			}
			if flags.Changed("downmix") {
				cfg.Audio.Downmix = downmix
			}
			if flags.Changed("overwrite") {
				cfg.Audio.Overwrite = overwrite
			}
			if flags.Changed("frame") {
				cfg.HPSS.FrameSize = frameSize
			}
			if flags.Changed("hop") {
				cfg.HPSS.HopSize = hopSize
			}
			for _, g := range gains {
				if err := cfg.Gains.ParseGain(g); err != nil {
					return stem.NewError(stem.KindInvalidConfig, "flags", "", err)
				}
			}
			valid, err := ctx.validated()
			if err != nil {
				return err
			}

			d, err := separate.New(valid, ctx.logger)
			if err != nil {
				return err
			}
			res, err := d.Separate(cmd.Context(), args[0], outputDir)
			if err != nil {
				return err
			}
			printSeparateResult(cmd, res)
			return nil
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&outputDir, "output", "o", "stems", "Directory for the stem files")
	flags.IntVar(&sampleRate, "sample-rate", 0, "Analysis and output sample rate in Hz")
	flags.StringArrayVar(&gains, "gain", nil, "Stem gain as label=value (repeatable)")
	flags.BoolVar(&downmix, "downmix", false, "Separate a mono downmix instead of each channel")
	flags.BoolVar(&overwrite, "overwrite", false, "Replace stems left by an earlier run")
	flags.IntVar(&frameSize, "frame", 0, "STFT frame size in samples")
	flags.IntVar(&hopSize, "hop", 0, "STFT hop size in samples")
	return cmd
}

func printSeparateResult(cmd *cobra.Command, res *separate.Result) {
	rows := make([][]string, 0, len(res.Files))
	for _, label := range stem.BaseLabels {
		st := res.Stats[label]
		rows = append(rows, []string{
			label.String(),
			filepath.Base(res.Files[label]),
			strconv.Itoa(st.Frames),
			formatDB(st.PeakDBFS),
			formatDB(st.RMSDBFS),
		})
	}
	out := cmd.OutOrStdout()
	fmt.Fprintln(out, renderTable(
		[]string{"Stem", "File", "Frames", "Peak", "RMS"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignRight, alignRight, alignRight},
	))
	fmt.Fprintf(out, "%s: %d frames at %d Hz, %d channel(s), reconstruction similarity %.3f\n",
		res.Track, res.Frames, res.SampleRate, res.Channels, res.Reconstruction.Similarity)
	if res.Clipped > 0 {
		fmt.Fprintf(out, "%d samples clipped\n", res.Clipped)
	}
}
