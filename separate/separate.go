package separate

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"

	"github.com/cwbudde/algo-stems/analysis"
	"github.com/cwbudde/algo-stems/internal/audioio"
	"github.com/cwbudde/algo-stems/internal/logging"
	"github.com/cwbudde/algo-stems/internal/stemfs"
	"github.com/cwbudde/algo-stems/stem"
)

// Result describes a completed separation.
type Result struct {
	Track      string
	Files      map[stem.Label]string
	Frames     int
	SampleRate int
	Channels   int
	// Clipped counts samples clamped to [-1, 1] across all stems.
	Clipped int
	Stats   map[stem.Label]analysis.Stats
	// Reconstruction compares harmonic+percussive against the analysed
	// input.
	Reconstruction analysis.Metrics
}

// Separate decodes input, splits it and writes <track>_<label>.wav for every
// base label into outputDir. Either all four files are written or none.
func (d *Decomposer) Separate(ctx context.Context, input, outputDir string) (*Result, error) {
	const op = "separate"

	if err := d.checkInput(input); err != nil {
		return nil, err
	}
	if err := stemfs.EnsureWritable(outputDir); err != nil {
		return nil, stem.NewError(stem.KindWrite, op, outputDir, err)
	}
	lock, err := stemfs.LockDir(outputDir)
	if err != nil {
		return nil, stem.NewError(stem.KindWrite, op, outputDir, err)
	}
	defer func() {
		if err := lock.Unlock(); err != nil {
			d.logger.Warn("release directory lock", logging.Error(err))
		}
	}()

	track := stem.TrackName(input)
	files := make(map[stem.Label]string, len(stem.BaseLabels))
	for _, label := range stem.BaseLabels {
		path := stem.Path(outputDir, track, label, stem.DefaultExt)
		files[label] = path
		exists, err := stemfs.Exists(path)
		if err != nil {
			return nil, stem.NewError(stem.KindWrite, op, path, err)
		}
		if exists && !d.cfg.Audio.Overwrite {
			return nil, stem.NewError(stem.KindWrite, op, path, errors.New("stem already exists (enable overwrite to replace it)"))
		}
	}

	wave, err := d.load(input)
	if err != nil {
		return nil, err
	}
	d.logger.Info("decoded input",
		slog.String("input", input),
		slog.Int("frames", wave.Len()),
		slog.Int("channels", wave.NumChannels()),
		slog.Int("sample_rate", wave.SampleRate),
	)

	parts, err := d.decompose(ctx, wave)
	if err != nil {
		if ctx.Err() != nil {
			return nil, err
		}
		return nil, stem.NewError(stem.KindDecode, op, input, err)
	}
	set := d.relabel(parts)

	res := &Result{
		Track:      track,
		Files:      files,
		Frames:     wave.Len(),
		SampleRate: wave.SampleRate,
		Channels:   wave.NumChannels(),
		Stats:      make(map[stem.Label]analysis.Stats, len(set)),
	}
	for _, s := range set.Stems() {
		res.Clipped += s.Wave.Clip()
		res.Stats[s.Label] = analysis.Measure(s.Wave)
	}
	if res.Clipped > 0 {
		d.logger.Warn("stem samples clipped", slog.Int("samples", res.Clipped))
	}

	if err := d.writeSet(ctx, set, files); err != nil {
		return nil, err
	}

	res.Reconstruction = analysis.Compare(wave.Downmix(), mix(parts).Downmix(), wave.SampleRate)
	d.logger.Info("stems written",
		slog.String("track", track),
		slog.String("output_dir", outputDir),
		slog.Float64("reconstruction_similarity", res.Reconstruction.Similarity),
	)
	return res, nil
}

func (d *Decomposer) checkInput(input string) error {
	const op = "separate"
	info, err := os.Stat(input)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return stem.NewError(stem.KindInputNotFound, op, input, nil)
	case err != nil:
		return stem.NewError(stem.KindInputNotFound, op, input, err)
	case info.IsDir():
		return stem.NewError(stem.KindDecode, op, input, errors.New("input is a directory"))
	}
	if !audioio.Supported(input) {
		return stem.NewError(stem.KindDecode, op, input,
			fmt.Errorf("%w (supported: %v)", audioio.ErrUnsupportedFormat, audioio.SupportedExts))
	}
	if limit := d.cfg.Audio.MaxInputBytes; limit > 0 && info.Size() > limit {
		return stem.NewError(stem.KindDecode, op, input,
			fmt.Errorf("input is %d bytes, limit is %d", info.Size(), limit))
	}
	return nil
}

// load decodes input and brings it to the analysis rate and layout.
func (d *Decomposer) load(input string) (*stem.Waveform, error) {
	const op = "separate"
	wave, err := audioio.Decode(input)
	if err != nil {
		return nil, stem.NewError(stem.KindDecode, op, input, err)
	}
	if wave.SampleRate != d.cfg.Audio.SampleRate {
		d.logger.Debug("resampling input",
			slog.Int("from", wave.SampleRate),
			slog.Int("to", d.cfg.Audio.SampleRate),
		)
		wave, err = stem.Resample(wave, d.cfg.Audio.SampleRate)
		if err != nil {
			return nil, stem.NewError(stem.KindDecode, op, input, err)
		}
	}
	if d.cfg.Audio.Downmix && wave.NumChannels() > 1 {
		wave = stem.Mono(wave.Downmix(), wave.SampleRate)
	}
	return wave, nil
}

// writeSet encodes every stem to a temp file, then renames them in label
// order. Stems being overwritten are moved aside first. On failure nothing
// written by this call is left behind and the moved stems are put back.
func (d *Decomposer) writeSet(ctx context.Context, set stem.Set, files map[stem.Label]string) error {
	const op = "separate"
	temps := make(map[stem.Label]string, len(set))
	cleanup := func() {
		for _, tmp := range temps {
			_ = os.Remove(tmp)
		}
	}

	for _, s := range set.Stems() {
		if err := ctx.Err(); err != nil {
			cleanup()
			return err
		}
		final := files[s.Label]
		tmp, err := stemfs.WriteTemp(final, func(f *os.File) error {
			return audioio.EncodeWAV(f, s.Wave)
		})
		if err != nil {
			cleanup()
			return stem.NewError(stem.KindWrite, op, final, err)
		}
		temps[s.Label] = tmp
	}
	if err := ctx.Err(); err != nil {
		cleanup()
		return err
	}

	type swap struct{ final, backup string }
	var swapped []swap
	rollback := func() {
		cleanup()
		for i := len(swapped) - 1; i >= 0; i-- {
			if err := stemfs.Restore(swapped[i].backup, swapped[i].final); err != nil {
				d.logger.Error("restore stem", slog.String("path", swapped[i].final), logging.Error(err))
			}
		}
	}
	for _, s := range set.Stems() {
		final := files[s.Label]
		backup, err := stemfs.Backup(final)
		if err != nil {
			rollback()
			return stem.NewError(stem.KindWrite, op, final, err)
		}
		swapped = append(swapped, swap{final: final, backup: backup})
		err = d.commit(temps[s.Label], final)
		delete(temps, s.Label)
		if err != nil {
			rollback()
			return stem.NewError(stem.KindWrite, op, final, err)
		}
		d.logger.Debug("stem committed", slog.String("label", s.Label.String()), slog.String("path", final))
	}
	for _, sw := range swapped {
		if sw.backup == "" {
			continue
		}
		if err := os.Remove(sw.backup); err != nil {
			d.logger.Warn("remove replaced stem", slog.String("path", sw.backup), logging.Error(err))
		}
	}
	return nil
}

func mix(parts components) *stem.Waveform {
	out := parts.harmonic.Clone()
	for c, ch := range out.Channels {
		for i, v := range parts.percussive.Channels[c] {
			ch[i] += v
		}
	}
	return out
}
