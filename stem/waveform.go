package stem

import (
	"fmt"
	"math"
	"time"

	dspresample "github.com/cwbudde/algo-dsp/dsp/resample"
)

// Waveform holds planar samples, one slice per channel, nominally in
// [-1, 1].
type Waveform struct {
	SampleRate int
	Channels   [][]float64
}

// NewWaveform allocates a silent waveform.
func NewWaveform(sampleRate, channels, frames int) *Waveform {
	w := &Waveform{SampleRate: sampleRate, Channels: make([][]float64, channels)}
	for c := range w.Channels {
		w.Channels[c] = make([]float64, frames)
	}
	return w
}

// Mono wraps a single channel.
func Mono(samples []float64, sampleRate int) *Waveform {
	return &Waveform{SampleRate: sampleRate, Channels: [][]float64{samples}}
}

// Len returns the number of frames.
func (w *Waveform) Len() int {
	if w == nil || len(w.Channels) == 0 {
		return 0
	}
	return len(w.Channels[0])
}

func (w *Waveform) NumChannels() int {
	if w == nil {
		return 0
	}
	return len(w.Channels)
}

func (w *Waveform) Duration() time.Duration {
	if w == nil || w.SampleRate <= 0 {
		return 0
	}
	return time.Duration(float64(w.Len()) / float64(w.SampleRate) * float64(time.Second))
}

// Validate checks rate, channel count and equal channel lengths.
func (w *Waveform) Validate() error {
	if w == nil {
		return fmt.Errorf("nil waveform")
	}
	if w.SampleRate <= 0 {
		return fmt.Errorf("invalid sample rate %d", w.SampleRate)
	}
	if len(w.Channels) < 1 {
		return fmt.Errorf("waveform has no channels")
	}
	n := len(w.Channels[0])
	for c, ch := range w.Channels {
		if len(ch) != n {
			return fmt.Errorf("channel %d has %d frames, want %d", c, len(ch), n)
		}
	}
	return nil
}

// Clone returns a deep copy.
func (w *Waveform) Clone() *Waveform {
	out := &Waveform{SampleRate: w.SampleRate, Channels: make([][]float64, len(w.Channels))}
	for c, ch := range w.Channels {
		out.Channels[c] = append([]float64(nil), ch...)
	}
	return out
}

// Downmix averages all channels into one.
func (w *Waveform) Downmix() []float64 {
	n := w.Len()
	out := make([]float64, n)
	if len(w.Channels) == 1 {
		copy(out, w.Channels[0])
		return out
	}
	scale := 1.0 / float64(len(w.Channels))
	for _, ch := range w.Channels {
		for i, v := range ch {
			out[i] += v
		}
	}
	for i := range out {
		out[i] *= scale
	}
	return out
}

// WithChannels converts the layout to n channels: mono is duplicated,
// anything else is downmixed first. The receiver is not modified.
func (w *Waveform) WithChannels(n int) *Waveform {
	if n == len(w.Channels) {
		return w.Clone()
	}
	src := w.Channels[0]
	if len(w.Channels) > 1 {
		src = w.Downmix()
	}
	out := &Waveform{SampleRate: w.SampleRate, Channels: make([][]float64, n)}
	for c := range out.Channels {
		out.Channels[c] = append([]float64(nil), src...)
	}
	return out
}

// Scale returns a copy with every sample multiplied by gain.
func (w *Waveform) Scale(gain float64) *Waveform {
	out := &Waveform{SampleRate: w.SampleRate, Channels: make([][]float64, len(w.Channels))}
	for c, ch := range w.Channels {
		dst := make([]float64, len(ch))
		for i, v := range ch {
			dst[i] = v * gain
		}
		out.Channels[c] = dst
	}
	return out
}

// Clip clamps every sample to [-1, 1] in place and returns the number of
// clamped samples.
func (w *Waveform) Clip() int {
	clipped := 0
	for _, ch := range w.Channels {
		for i, v := range ch {
			switch {
			case v > 1:
				ch[i] = 1
				clipped++
			case v < -1:
				ch[i] = -1
				clipped++
			}
		}
	}
	return clipped
}

// Peak returns the largest absolute sample value.
func (w *Waveform) Peak() float64 {
	var peak float64
	for _, ch := range w.Channels {
		for _, v := range ch {
			if a := math.Abs(v); a > peak {
				peak = a
			}
		}
	}
	return peak
}

// RMS over all channels.
func (w *Waveform) RMS() float64 {
	var sum float64
	var n int
	for _, ch := range w.Channels {
		for _, v := range ch {
			sum += v * v
		}
		n += len(ch)
	}
	if n == 0 {
		return 0
	}
	return math.Sqrt(sum / float64(n))
}

// Resample converts w to rate. A waveform already at rate is returned as is.
func Resample(w *Waveform, rate int) (*Waveform, error) {
	if rate <= 0 {
		return nil, fmt.Errorf("invalid target sample rate %d", rate)
	}
	if w.SampleRate == rate {
		return w, nil
	}
	out := &Waveform{SampleRate: rate, Channels: make([][]float64, len(w.Channels))}
	for c, ch := range w.Channels {
		r, err := dspresample.NewForRates(
			float64(w.SampleRate),
			float64(rate),
			dspresample.WithQuality(dspresample.QualityBest),
		)
		if err != nil {
			return nil, fmt.Errorf("resample %d -> %d Hz: %w", w.SampleRate, rate, err)
		}
		out.Channels[c] = r.Process(ch)
	}
	equalizeLengths(out)
	return out, nil
}

// equalizeLengths trims channels to the shortest one; per-channel resamplers
// may disagree by a frame at the tail.
func equalizeLengths(w *Waveform) {
	n := -1
	for _, ch := range w.Channels {
		if n < 0 || len(ch) < n {
			n = len(ch)
		}
	}
	for c := range w.Channels {
		w.Channels[c] = w.Channels[c][:n]
	}
}
