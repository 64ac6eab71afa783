package analysis

import (
	"math"
	"math/cmplx"

	"github.com/cwbudde/algo-approx"
	algofft "github.com/cwbudde/algo-fft"

	"github.com/cwbudde/algo-stems/stem"
)

// SilenceDBFS is the peak level below which a stem is reported as silent.
const SilenceDBFS = -90.0

// Band is a named frequency range.
type Band struct {
	Name string
	LoHz float64
	HiHz float64
}

// Bands used for stem level profiles.
var Bands = []Band{
	{"sub-bass", 20, 100},
	{"bass", 100, 300},
	{"low-mid", 300, 1000},
	{"mid", 1000, 3000},
	{"hi-mid", 3000, 6000},
	{"high", 6000, 20000},
}

// BandLevel is the mean power of one band in dB.
type BandLevel struct {
	Band
	DB float64 `json:"db"`
}

// Stats summarises the level of a waveform.
type Stats struct {
	Frames   int         `json:"frames"`
	Peak     float64     `json:"peak"`
	PeakDBFS float64     `json:"peak_dbfs"`
	RMS      float64     `json:"rms"`
	RMSDBFS  float64     `json:"rms_dbfs"`
	Silent   bool        `json:"silent"`
	Bands    []BandLevel `json:"bands,omitempty"`
}

const profileFrame = 4096

// Measure computes level statistics and a band profile of the mono downmix.
func Measure(w *stem.Waveform) Stats {
	s := Stats{Frames: w.Len()}
	if s.Frames == 0 {
		s.PeakDBFS = linToDB(0)
		s.RMSDBFS = linToDB(0)
		s.Silent = true
		return s
	}
	s.Peak = w.Peak()
	s.RMS = w.RMS()
	s.PeakDBFS = linToDB(s.Peak)
	s.RMSDBFS = linToDB(s.RMS)
	s.Silent = s.Peak < dbToAmp(SilenceDBFS)
	s.Bands = bandProfile(w.Downmix(), w.SampleRate)
	return s
}

// dbToAmp converts dBFS to linear amplitude.
func dbToAmp(db float64) float64 {
	const ln10over20 = 0.11512925464970229
	return float64(approx.FastExp(float32(db * ln10over20)))
}

// bandProfile averages Hann-windowed power spectra over half-overlapping
// frames and integrates them per band.
func bandProfile(x []float64, sampleRate int) []BandLevel {
	if sampleRate <= 0 || len(x) < profileFrame {
		return nil
	}
	plan, err := algofft.NewPlanReal64(profileFrame)
	if err != nil {
		return nil
	}
	hop := profileFrame / 2
	hann := hannWindow(profileFrame)
	buf := make([]float64, profileFrame)
	spec := make([]complex128, profileFrame/2+1)
	power := make([]float64, profileFrame/2+1)
	frames := 0
	for pos := 0; pos+profileFrame <= len(x); pos += hop {
		for i := 0; i < profileFrame; i++ {
			buf[i] = x[pos+i] * hann[i]
		}
		plan.Forward(spec, buf)
		for k := range power {
			a := cmplx.Abs(spec[k])
			power[k] += a * a
		}
		frames++
	}

	binHz := float64(sampleRate) / float64(profileFrame)
	nyquist := float64(sampleRate) / 2
	out := make([]BandLevel, 0, len(Bands))
	for _, b := range Bands {
		if b.LoHz >= nyquist {
			continue
		}
		lo := int(math.Ceil(b.LoHz / binHz))
		hi := int(math.Floor(math.Min(b.HiHz, nyquist) / binHz))
		if lo < 1 {
			lo = 1
		}
		if hi > len(power)-1 {
			hi = len(power) - 1
		}
		if lo > hi {
			continue
		}
		var sum float64
		for k := lo; k <= hi; k++ {
			sum += power[k]
		}
		mean := sum / float64((hi-lo+1)*frames)
		out = append(out, BandLevel{Band: b, DB: 10 * math.Log10(math.Max(mean, 1e-24))})
	}
	return out
}
