// Package separate splits a recording into vocals, bass, drums and other
// stems.
//
// The split is a two-way harmonic/percussive decomposition relabeled into
// four stems: drums and vocals are scaled copies of the percussive
// component, other and bass scaled copies of the harmonic one. The gains come
// from config.Gains.
package separate

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/cwbudde/algo-stems/config"
	"github.com/cwbudde/algo-stems/hpss"
	"github.com/cwbudde/algo-stems/internal/logging"
	"github.com/cwbudde/algo-stems/internal/stemfs"
	"github.com/cwbudde/algo-stems/stem"
)

// Decomposer runs separations with one fixed configuration.
type Decomposer struct {
	cfg    config.Config
	params hpss.Params
	logger *slog.Logger
	commit func(tmp, final string) error
}

// New validates cfg and returns a Decomposer. A nil logger discards output.
func New(cfg config.Config, logger *slog.Logger) (*Decomposer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, stem.NewError(stem.KindInvalidConfig, "separate", "", err)
	}
	params := hpss.Params{
		FrameSize:        cfg.HPSS.FrameSize,
		HopSize:          cfg.HPSS.HopSize,
		HarmonicKernel:   cfg.HPSS.HarmonicKernel,
		PercussiveKernel: cfg.HPSS.PercussiveKernel,
		MaskPower:        cfg.HPSS.MaskPower,
		Margin:           cfg.HPSS.Margin,
	}
	if err := params.Validate(); err != nil {
		return nil, stem.NewError(stem.KindInvalidConfig, "separate", "", err)
	}
	return &Decomposer{
		cfg:    cfg,
		params: params,
		logger: logging.NewComponentLogger(logger, "separate"),
		commit: stemfs.Commit,
	}, nil
}

// components is the raw two-way split before relabeling.
type components struct {
	harmonic   *stem.Waveform
	percussive *stem.Waveform
}

// Split separates w in memory and returns the four base stems at w's rate
// and channel layout. Samples are not clipped.
func (d *Decomposer) Split(w *stem.Waveform) (stem.Set, error) {
	parts, err := d.decompose(context.Background(), w)
	if err != nil {
		return nil, err
	}
	return d.relabel(parts), nil
}

func (d *Decomposer) decompose(ctx context.Context, w *stem.Waveform) (components, error) {
	if err := w.Validate(); err != nil {
		return components{}, fmt.Errorf("split: %w", err)
	}
	parts := components{
		harmonic:   &stem.Waveform{SampleRate: w.SampleRate, Channels: make([][]float64, w.NumChannels())},
		percussive: &stem.Waveform{SampleRate: w.SampleRate, Channels: make([][]float64, w.NumChannels())},
	}
	for c, ch := range w.Channels {
		if err := ctx.Err(); err != nil {
			return components{}, err
		}
		res, err := hpss.Separate(ch, d.params)
		if err != nil {
			return components{}, fmt.Errorf("split channel %d: %w", c, err)
		}
		parts.harmonic.Channels[c] = res.Harmonic
		parts.percussive.Channels[c] = res.Percussive
	}
	return parts, nil
}

func (d *Decomposer) relabel(parts components) stem.Set {
	set := make(stem.Set, len(stem.BaseLabels))
	for _, label := range stem.BaseLabels {
		gain, _ := d.cfg.Gains.For(label)
		src := parts.harmonic
		if percussiveLabel(label) {
			src = parts.percussive
		}
		set[label] = src.Scale(gain)
	}
	return set
}

func percussiveLabel(label stem.Label) bool {
	return label == stem.Drums || label == stem.Vocals
}
