package config

import "github.com/cwbudde/algo-stems/stem"

const (
	DefaultSampleRate    = 44100
	DefaultMaxInputBytes = 100 << 20

	DefaultFrameSize        = 2048
	DefaultHopSize          = 512
	DefaultHarmonicKernel   = 31
	DefaultPercussiveKernel = 31
	DefaultMaskPower        = 2.0
	DefaultMargin           = 1.0

	DefaultVocalsGain = 0.7
	DefaultBassGain   = 0.8
	DefaultDrumsGain  = 0.9
	DefaultOtherGain  = 0.6
)

// Default returns the documented defaults.
func Default() Config {
	return Config{
		Audio: Audio{
			SampleRate:    DefaultSampleRate,
			Downmix:       false,
			Overwrite:     false,
			MaxInputBytes: DefaultMaxInputBytes,
		},
		HPSS: HPSS{
			FrameSize:        DefaultFrameSize,
			HopSize:          DefaultHopSize,
			HarmonicKernel:   DefaultHarmonicKernel,
			PercussiveKernel: DefaultPercussiveKernel,
			MaskPower:        DefaultMaskPower,
			Margin:           DefaultMargin,
		},
		Gains: Gains{
			Vocals: DefaultVocalsGain,
			Bass:   DefaultBassGain,
			Drums:  DefaultDrumsGain,
			Other:  DefaultOtherGain,
		},
		Merge: Merge{
			Target:      string(stem.Other),
			Source:      string(stem.Piano),
			Ext:         stem.DefaultExt,
			StrictRates: false,
		},
		Logging: Logging{
			Level:  "info",
			Format: "console",
		},
	}
}
