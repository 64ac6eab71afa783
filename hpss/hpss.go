package hpss

import (
	"fmt"
	"math"
	"math/cmplx"
)

// Params configures the decomposition.
type Params struct {
	FrameSize        int
	HopSize          int
	HarmonicKernel   int // median length along time, in frames
	PercussiveKernel int // median length along frequency, in bins
	MaskPower        float64
	Margin           float64
}

// DefaultParams matches the usual 2048/512 analysis with 31-tap medians and
// Wiener masks.
func DefaultParams() Params {
	return Params{
		FrameSize:        2048,
		HopSize:          512,
		HarmonicKernel:   31,
		PercussiveKernel: 31,
		MaskPower:        2,
		Margin:           1,
	}
}

// Validate rejects parameters the transform cannot run with.
func (p Params) Validate() error {
	if p.FrameSize < 4 || p.FrameSize&(p.FrameSize-1) != 0 {
		return fmt.Errorf("frame size must be a power of two >= 4, got %d", p.FrameSize)
	}
	if p.HopSize < 1 || p.HopSize > p.FrameSize/2 {
		return fmt.Errorf("hop size must be in [1, %d], got %d", p.FrameSize/2, p.HopSize)
	}
	if p.HarmonicKernel < 1 || p.HarmonicKernel%2 == 0 {
		return fmt.Errorf("harmonic kernel must be odd and positive, got %d", p.HarmonicKernel)
	}
	if p.PercussiveKernel < 1 || p.PercussiveKernel%2 == 0 {
		return fmt.Errorf("percussive kernel must be odd and positive, got %d", p.PercussiveKernel)
	}
	if !(p.MaskPower > 0) {
		return fmt.Errorf("mask power must be > 0, got %v", p.MaskPower)
	}
	if !(p.Margin >= 1) {
		return fmt.Errorf("margin must be >= 1, got %v", p.Margin)
	}
	return nil
}

// Result holds the two components, each as long as the input.
type Result struct {
	Harmonic   []float64
	Percussive []float64
}

// Separate decomposes x. The input slice is not modified.
func Separate(x []float64, p Params) (Result, error) {
	if err := p.Validate(); err != nil {
		return Result{}, err
	}
	n := len(x)
	if n == 0 {
		return Result{Harmonic: []float64{}, Percussive: []float64{}}, nil
	}

	t := newTransform(p.FrameSize, p.HopSize)
	spec := t.forward(t.pad(x))
	if len(spec) == 0 {
		return Result{}, fmt.Errorf("stft produced no frames for %d samples", n)
	}

	mag := magnitudes(spec, p.FrameSize/2+1)
	harm := filterAcrossTime(mag, p.HarmonicKernel)
	perc := filterAcrossFrequency(mag, p.PercussiveKernel)
	maskH, maskP := softMasks(harm, perc, p.MaskPower, p.Margin)

	return Result{
		Harmonic:   t.inverse(applyMask(spec, maskH), n),
		Percussive: t.inverse(applyMask(spec, maskP), n),
	}, nil
}

func magnitudes(spec [][]complex128, bins int) [][]float64 {
	mag := make([][]float64, len(spec))
	for i, frame := range spec {
		row := make([]float64, bins)
		for k := 0; k < bins; k++ {
			row[k] = cmplx.Abs(frame[k])
		}
		mag[i] = row
	}
	return mag
}

// filterAcrossTime runs the median over each frequency bin's trajectory.
func filterAcrossTime(mag [][]float64, k int) [][]float64 {
	frames := len(mag)
	bins := len(mag[0])
	out := make([][]float64, frames)
	for i := range out {
		out[i] = make([]float64, bins)
	}
	col := make([]float64, frames)
	filtered := make([]float64, frames)
	for b := 0; b < bins; b++ {
		for i := 0; i < frames; i++ {
			col[i] = mag[i][b]
		}
		medianFilter(filtered, col, k)
		for i := 0; i < frames; i++ {
			out[i][b] = filtered[i]
		}
	}
	return out
}

// filterAcrossFrequency runs the median over each frame's spectrum.
func filterAcrossFrequency(mag [][]float64, k int) [][]float64 {
	out := make([][]float64, len(mag))
	for i, row := range mag {
		out[i] = make([]float64, len(row))
		medianFilter(out[i], row, k)
	}
	return out
}

// softMasks builds Wiener masks. A bin where both enhanced spectrograms
// vanish is split evenly so the masks still sum to one.
func softMasks(harm, perc [][]float64, power, margin float64) (maskH, maskP [][]float64) {
	maskH = make([][]float64, len(harm))
	maskP = make([][]float64, len(harm))
	for i := range harm {
		mh := make([]float64, len(harm[i]))
		mp := make([]float64, len(harm[i]))
		for k := range mh {
			mh[k] = softMask(harm[i][k], margin*perc[i][k], power)
			mp[k] = softMask(perc[i][k], margin*harm[i][k], power)
		}
		maskH[i] = mh
		maskP[i] = mp
	}
	return maskH, maskP
}

const tiny = 1e-300

func softMask(x, ref, power float64) float64 {
	z := math.Max(x, ref)
	if z < tiny {
		return 0.5
	}
	a := pow(x/z, power)
	b := pow(ref/z, power)
	return a / (a + b)
}

func pow(v, p float64) float64 {
	if p == 2 {
		return v * v
	}
	if p == 1 {
		return v
	}
	return math.Pow(v, p)
}

// applyMask scales a copy of spec by a half-spectrum mask, mirroring it onto
// the negative frequencies so every frame stays conjugate symmetric.
func applyMask(spec [][]complex128, mask [][]float64) [][]complex128 {
	out := make([][]complex128, len(spec))
	for i, frame := range spec {
		n := len(frame)
		dst := make([]complex128, n)
		for k, v := range frame {
			bin := k
			if bin > n/2 {
				bin = n - k
			}
			dst[k] = v * complex(mask[i][bin], 0)
		}
		out[i] = dst
	}
	return out
}
