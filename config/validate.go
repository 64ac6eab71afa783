package config

import (
	"errors"
	"fmt"
	"math"

	"github.com/cwbudde/algo-stems/internal/audioio"
	"github.com/cwbudde/algo-stems/stem"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateAudio(); err != nil {
		return err
	}
	if err := c.validateHPSS(); err != nil {
		return err
	}
	if err := c.validateGains(); err != nil {
		return err
	}
	if err := c.validateMerge(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validateAudio() error {
	if c.Audio.SampleRate < 8000 || c.Audio.SampleRate > 384000 {
		return fmt.Errorf("audio.sample_rate must be between 8000 and 384000, got %d", c.Audio.SampleRate)
	}
	if c.Audio.MaxInputBytes < 0 {
		return errors.New("audio.max_input_bytes must be >= 0")
	}
	return nil
}

func (c *Config) validateHPSS() error {
	h := c.HPSS
	if h.FrameSize < 64 || h.FrameSize&(h.FrameSize-1) != 0 {
		return fmt.Errorf("hpss.frame_size must be a power of two >= 64, got %d", h.FrameSize)
	}
	if h.HopSize < 1 || h.HopSize > h.FrameSize/2 {
		return fmt.Errorf("hpss.hop_size must be between 1 and frame_size/2, got %d", h.HopSize)
	}
	if h.HarmonicKernel < 1 || h.HarmonicKernel%2 == 0 {
		return fmt.Errorf("hpss.harmonic_kernel must be a positive odd number, got %d", h.HarmonicKernel)
	}
	if h.PercussiveKernel < 1 || h.PercussiveKernel%2 == 0 {
		return fmt.Errorf("hpss.percussive_kernel must be a positive odd number, got %d", h.PercussiveKernel)
	}
	if !(h.MaskPower > 0) || math.IsInf(h.MaskPower, 0) {
		return errors.New("hpss.mask_power must be > 0")
	}
	if h.Margin < 1 || math.IsInf(h.Margin, 0) {
		return errors.New("hpss.margin must be >= 1")
	}
	return nil
}

func (c *Config) validateGains() error {
	for _, l := range stem.BaseLabels {
		g, _ := c.Gains.For(l)
		if g < 0 || math.IsNaN(g) || math.IsInf(g, 0) {
			return fmt.Errorf("gains.%s must be a finite value >= 0", l)
		}
	}
	return nil
}

func (c *Config) validateMerge() error {
	target, err := stem.ParseLabel(c.Merge.Target)
	if err != nil {
		return fmt.Errorf("merge.target: %w", err)
	}
	source, err := stem.ParseLabel(c.Merge.Source)
	if err != nil {
		return fmt.Errorf("merge.source: %w", err)
	}
	if target == source {
		return errors.New("merge.target and merge.source must differ")
	}
	if c.Merge.Ext == "" {
		return errors.New("merge.ext must be set")
	}
	if _, err := audioio.EncoderFor(c.Merge.Ext); err != nil {
		return fmt.Errorf("merge.ext: %w", err)
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "", "console", "json":
	default:
		return fmt.Errorf("logging.format: unsupported value %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level: unsupported value %q", c.Logging.Level)
	}
	return nil
}
