// Package merge folds one stem file into another and deletes the folded
// stem.
//
// A merge is a two-phase commit. The merged target is encoded to a temp
// file whose digest is recorded in a journal before the temp file replaces
// the target. The source is deleted only after that rename. A run that
// finds a journal whose digest matches the current target completes the
// deletion instead of adding the source a second time.
package merge

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/cwbudde/algo-stems/config"
	"github.com/cwbudde/algo-stems/internal/audioio"
	"github.com/cwbudde/algo-stems/internal/logging"
	"github.com/cwbudde/algo-stems/internal/stemfs"
	"github.com/cwbudde/algo-stems/stem"
)

// Options selects the two stems of a merge. Zero fields take the merge
// defaults of the configuration.
type Options struct {
	Target stem.Label
	Source stem.Label
	// Track is the file name prefix written by separate, empty for bare
	// "<label>.<ext>" files.
	Track string
	Ext   string
}

// Result describes a completed (or resumed) merge.
type Result struct {
	Target     string
	Source     string
	Frames     int
	SampleRate int
	Channels   int
	// Truncated counts source frames beyond the target's length.
	Truncated int
	Resampled bool
	Clipped   int
	Peak      float64
	// Resumed is set when an earlier run had already replaced the target
	// and only the source deletion was left.
	Resumed bool
}

// Merger overlays stems with one fixed configuration.
type Merger struct {
	cfg      config.Config
	logger   *slog.Logger
	encoders func(ext string) (audioio.Encoder, error)
}

// New validates cfg and returns a Merger. A nil logger discards output.
func New(cfg config.Config, logger *slog.Logger) (*Merger, error) {
	if err := cfg.Validate(); err != nil {
		return nil, stem.NewError(stem.KindInvalidConfig, "merge", "", err)
	}
	return &Merger{
		cfg:      cfg,
		logger:   logging.NewComponentLogger(logger, "merge"),
		encoders: audioio.EncoderFor,
	}, nil
}

// DefaultOptions returns the configured target, source and extension.
func (m *Merger) DefaultOptions() Options {
	return Options{
		Target: stem.Label(m.cfg.Merge.Target),
		Source: stem.Label(m.cfg.Merge.Source),
		Ext:    m.cfg.Merge.Ext,
	}
}

func (m *Merger) resolve(opts Options) (Options, audioio.Encoder, error) {
	def := m.DefaultOptions()
	if opts.Target == "" {
		opts.Target = def.Target
	}
	if opts.Source == "" {
		opts.Source = def.Source
	}
	if opts.Ext == "" {
		opts.Ext = def.Ext
	}
	var err error
	if opts.Target, err = stem.ParseLabel(string(opts.Target)); err != nil {
		return opts, nil, stem.NewError(stem.KindInvalidConfig, "merge", "", err)
	}
	if opts.Source, err = stem.ParseLabel(string(opts.Source)); err != nil {
		return opts, nil, stem.NewError(stem.KindInvalidConfig, "merge", "", err)
	}
	if opts.Target == opts.Source {
		return opts, nil, stem.NewError(stem.KindInvalidConfig, "merge", "",
			fmt.Errorf("target and source are both %q", opts.Target))
	}
	// The target is rewritten in its own container, so the extension needs
	// an encoder before anything on disk is read.
	enc, err := m.encoders(opts.Ext)
	if err != nil {
		return opts, nil, stem.NewError(stem.KindInvalidConfig, "merge", "", err)
	}
	return opts, enc, nil
}

// Merge overlays the source stem onto the target stem in dir, replaces the
// target and deletes the source. Nothing is modified when a precondition
// fails.
func (m *Merger) Merge(ctx context.Context, dir string, opts Options) (*Result, error) {
	opts, enc, err := m.resolve(opts)
	if err != nil {
		return nil, err
	}
	targetName := stem.FileName(opts.Track, opts.Target, opts.Ext)
	sourceName := stem.FileName(opts.Track, opts.Source, opts.Ext)
	targetPath := filepath.Join(dir, targetName)
	sourcePath := filepath.Join(dir, sourceName)

	if info, err := os.Stat(dir); err != nil {
		return nil, stem.NewError(stem.KindInputNotFound, "merge", dir, err)
	} else if !info.IsDir() {
		return nil, stem.NewError(stem.KindInputNotFound, "merge", dir, errors.New("not a directory"))
	}
	lock, err := stemfs.LockDir(dir)
	if err != nil {
		return nil, stem.NewError(stem.KindWrite, "merge", dir, err)
	}
	defer func() {
		if err := lock.Unlock(); err != nil {
			m.logger.Warn("release directory lock", logging.Error(err))
		}
	}()

	resumed, err := m.recover(dir, targetName, sourceName)
	if err != nil {
		return nil, err
	}
	if resumed {
		m.logger.Info("already merged", slog.String("target", targetPath), slog.String("source", sourcePath))
		return &Result{Target: targetPath, Source: sourcePath, Resumed: true}, nil
	}

	for _, f := range []struct{ role, path string }{{"source", sourcePath}, {"target", targetPath}} {
		exists, err := stemfs.Exists(f.path)
		if err != nil {
			return nil, stem.NewError(stem.KindInputNotFound, "merge "+f.role, f.path, err)
		}
		if !exists {
			return nil, stem.NewError(stem.KindInputNotFound, "merge "+f.role, f.path, nil)
		}
	}

	target, err := audioio.Decode(targetPath)
	if err != nil {
		return nil, stem.NewError(stem.KindDecode, "merge target", targetPath, err)
	}
	source, err := audioio.Decode(sourcePath)
	if err != nil {
		return nil, stem.NewError(stem.KindDecode, "merge source", sourcePath, err)
	}

	res := &Result{Target: targetPath, Source: sourcePath}
	if source.SampleRate != target.SampleRate {
		if m.cfg.Merge.StrictRates {
			return nil, stem.RateMismatchError("merge source", sourcePath, target.SampleRate, source.SampleRate)
		}
		m.logger.Warn("resampling source to target rate",
			slog.Int("source_rate", source.SampleRate),
			slog.Int("target_rate", target.SampleRate),
		)
		source, err = stem.Resample(source, target.SampleRate)
		if err != nil {
			return nil, stem.NewError(stem.KindDecode, "merge source", sourcePath, err)
		}
		res.Resampled = true
	}
	if source.NumChannels() != target.NumChannels() {
		source = source.WithChannels(target.NumChannels())
	}

	merged, truncated := Overlay(target, source)
	res.Truncated = truncated
	res.Clipped = merged.Clip()
	res.Frames = merged.Len()
	res.SampleRate = merged.SampleRate
	res.Channels = merged.NumChannels()
	res.Peak = merged.Peak()
	if truncated > 0 {
		m.logger.Warn("source longer than target, excess dropped", slog.Int("frames", truncated))
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := m.commit(dir, targetName, sourceName, merged, enc); err != nil {
		return nil, err
	}
	m.logger.Info("stems merged",
		slog.String("target", targetPath),
		slog.String("source", sourcePath),
		slog.Int("frames", res.Frames),
		slog.Int("clipped", res.Clipped),
	)
	return res, nil
}

// commit runs both phases. Until the rename succeeds the target and source
// are untouched.
func (m *Merger) commit(dir, targetName, sourceName string, merged *stem.Waveform, enc audioio.Encoder) error {
	targetPath := filepath.Join(dir, targetName)

	tmp, err := stemfs.WriteTemp(targetPath, func(f *os.File) error {
		return enc(f, merged)
	})
	if err != nil {
		return stem.NewError(stem.KindWrite, "merge", targetPath, err)
	}
	digest, err := stemfs.Digest(tmp)
	if err != nil {
		_ = os.Remove(tmp)
		return stem.NewError(stem.KindWrite, "merge", targetPath, err)
	}
	journal := &stemfs.Journal{Target: targetName, Source: sourceName, Digest: digest, Created: time.Now().UTC()}
	if err := stemfs.WriteJournal(dir, journal); err != nil {
		_ = os.Remove(tmp)
		return stem.NewError(stem.KindWrite, "merge", stemfs.JournalPath(dir), err)
	}
	if err := stemfs.Commit(tmp, targetPath); err != nil {
		_ = stemfs.RemoveJournal(dir)
		return stem.NewError(stem.KindWrite, "merge", targetPath, err)
	}
	return m.finish(dir, journal)
}

// finish is phase two: delete the source, then the journal.
func (m *Merger) finish(dir string, j *stemfs.Journal) error {
	sourcePath := filepath.Join(dir, j.Source)
	if err := os.Remove(sourcePath); err != nil && !errors.Is(err, os.ErrNotExist) {
		return stem.NewError(stem.KindWrite, "merge", sourcePath, fmt.Errorf("delete source: %w", err))
	}
	if err := stemfs.RemoveJournal(dir); err != nil {
		m.logger.Warn("remove merge journal", logging.Error(err))
	}
	return nil
}

// recover completes or discards a journal left by an interrupted merge. It
// reports whether that merge was the requested one.
func (m *Merger) recover(dir, targetName, sourceName string) (bool, error) {
	j, err := stemfs.ReadJournal(dir)
	if err != nil {
		m.logger.Warn("discarding unreadable merge journal", logging.Error(err))
		return false, m.dropJournal(dir)
	}
	if j == nil {
		return false, nil
	}
	digest, err := stemfs.Digest(filepath.Join(dir, j.Target))
	if err != nil || digest != j.Digest {
		m.logger.Info("discarding stale merge journal", slog.String("target", j.Target))
		return false, m.dropJournal(dir)
	}
	m.logger.Info("completing interrupted merge", slog.String("target", j.Target), slog.String("source", j.Source))
	if err := m.finish(dir, j); err != nil {
		return false, err
	}
	return j.Target == targetName && j.Source == sourceName, nil
}

func (m *Merger) dropJournal(dir string) error {
	if err := stemfs.RemoveJournal(dir); err != nil {
		return stem.NewError(stem.KindWrite, "merge", stemfs.JournalPath(dir), err)
	}
	return nil
}
