package config

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strings"

	"github.com/pelletier/go-toml/v2"

	"github.com/cwbudde/algo-stems/stem"
)

// Audio controls decoding and the analysis rate.
type Audio struct {
	// SampleRate is the rate every input is resampled to before separation
	// and the rate of the written stems.
	SampleRate int `toml:"sample_rate"`
	// Downmix separates a single mono mix instead of each channel.
	Downmix bool `toml:"downmix"`
	// Overwrite permits replacing stem files left by an earlier run.
	Overwrite bool `toml:"overwrite"`
	// MaxInputBytes rejects larger inputs before decoding. 0 disables the
	// check.
	MaxInputBytes int64 `toml:"max_input_bytes"`
}

// HPSS holds the time-frequency analysis parameters.
type HPSS struct {
	FrameSize        int     `toml:"frame_size"`
	HopSize          int     `toml:"hop_size"`
	HarmonicKernel   int     `toml:"harmonic_kernel"`
	PercussiveKernel int     `toml:"percussive_kernel"`
	MaskPower        float64 `toml:"mask_power"`
	Margin           float64 `toml:"margin"`
}

// Gains are the per-label scalars applied after separation. Drums and
// vocals scale the percussive component, other and bass the harmonic one.
type Gains struct {
	Vocals float64 `toml:"vocals"`
	Bass   float64 `toml:"bass"`
	Drums  float64 `toml:"drums"`
	Other  float64 `toml:"other"`
}

// Merge holds the defaults of the merge step.
type Merge struct {
	Target string `toml:"target"`
	Source string `toml:"source"`
	Ext    string `toml:"ext"`
	// StrictRates rejects stems with different sample rates instead of
	// resampling the source.
	StrictRates bool `toml:"strict_rates"`
}

// Logging selects the log handler.
type Logging struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

// Config is the complete parameter set.
type Config struct {
	Audio   Audio   `toml:"audio"`
	HPSS    HPSS    `toml:"hpss"`
	Gains   Gains   `toml:"gains"`
	Merge   Merge   `toml:"merge"`
	Logging Logging `toml:"logging"`
}

// For returns the gain of label.
func (g Gains) For(label stem.Label) (float64, bool) {
	switch label {
	case stem.Vocals:
		return g.Vocals, true
	case stem.Bass:
		return g.Bass, true
	case stem.Drums:
		return g.Drums, true
	case stem.Other:
		return g.Other, true
	}
	return 0, false
}

// Set assigns the gain of label.
func (g *Gains) Set(label stem.Label, v float64) error {
	switch label {
	case stem.Vocals:
		g.Vocals = v
	case stem.Bass:
		g.Bass = v
	case stem.Drums:
		g.Drums = v
	case stem.Other:
		g.Other = v
	default:
		return fmt.Errorf("no gain for stem %q", label)
	}
	return nil
}

// ParseGain parses "label=value" as used by the --gain flag.
func (g *Gains) ParseGain(raw string) error {
	name, value, ok := strings.Cut(raw, "=")
	if !ok {
		return fmt.Errorf("gain %q: want label=value", raw)
	}
	label, err := stem.ParseLabel(name)
	if err != nil {
		return err
	}
	var v float64
	if _, err := fmt.Sscanf(strings.TrimSpace(value), "%g", &v); err != nil {
		return fmt.Errorf("gain %q: %w", raw, err)
	}
	return g.Set(label, v)
}

// Load reads path on top of Default and validates the result. An empty path
// or a missing file yields the defaults; exists reports whether a file was
// read.
func Load(path string) (cfg *Config, exists bool, err error) {
	c := Default()
	if path != "" {
		file, err := os.Open(path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
		case err != nil:
			return nil, false, fmt.Errorf("open config: %w", err)
		default:
			defer file.Close()
			if err := Decode(file, &c); err != nil {
				return nil, false, err
			}
			exists = true
		}
	}
	c.normalize()
	if err := c.Validate(); err != nil {
		return nil, false, err
	}
	return &c, exists, nil
}

// Decode parses TOML from r into c. Unknown keys are rejected so typos in
// gain names do not silently fall back to defaults.
func Decode(r io.Reader, c *Config) error {
	dec := toml.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(c); err != nil {
		return fmt.Errorf("parse config: %w", err)
	}
	return nil
}

// Encode writes c as TOML.
func (c *Config) Encode(w io.Writer) error {
	enc := toml.NewEncoder(w)
	return enc.Encode(c)
}

func (c *Config) normalize() {
	c.Merge.Target = strings.ToLower(strings.TrimSpace(c.Merge.Target))
	c.Merge.Source = strings.ToLower(strings.TrimSpace(c.Merge.Source))
	c.Merge.Ext = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(c.Merge.Ext), "."))
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
}
