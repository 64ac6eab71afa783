package hpss

import (
	"github.com/mjibson/go-dsp/fft"
	"github.com/r9y9/gossp/stft"
)

// transform is a padded STFT/ISTFT pair with a fixed frame and hop.
type transform struct {
	s     *stft.STFT
	frame int
	hop   int
}

func newTransform(frame, hop int) *transform {
	return &transform{s: stft.New(hop, frame), frame: frame, hop: hop}
}

// pad surrounds x with one frame of silence on each side and extends the
// tail so the last frame ends exactly on the buffer end.
func (t *transform) pad(x []float64) []float64 {
	l := len(x) + 2*t.frame
	if rem := (l - t.frame) % t.hop; rem != 0 {
		l += t.hop - rem
	}
	out := make([]float64, l)
	copy(out[t.frame:], x)
	return out
}

// forward returns one full-length complex spectrum per frame.
func (t *transform) forward(padded []float64) [][]complex128 {
	return t.s.STFT(padded)
}

// inverse overlap-adds the windowed inverse FFT of every frame and
// normalises by the summed squared window, then strips the analysis padding
// and returns n samples.
func (t *transform) inverse(spec [][]complex128, n int) []float64 {
	if len(spec) == 0 {
		return make([]float64, n)
	}
	win := t.s.Window
	total := (len(spec)-1)*t.hop + t.frame
	out := make([]float64, total)
	wsum := make([]float64, total)
	for i, frame := range spec {
		buf := fft.IFFT(frame)
		off := i * t.hop
		for j := 0; j < t.frame; j++ {
			w := win[j]
			out[off+j] += real(buf[j]) * w
			wsum[off+j] += w * w
		}
	}
	for i := range out {
		if wsum[i] > 1e-10 {
			out[i] /= wsum[i]
		}
	}

	res := make([]float64, n)
	copy(res, out[t.frame:])
	return res
}
