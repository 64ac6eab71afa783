package merge

import "github.com/cwbudde/algo-stems/stem"

// Overlay adds source onto a copy of target sample by sample. The result has
// target's length and layout; source frames past the end of target are
// dropped and counted in truncated. Both waveforms must share rate and
// channel count.
func Overlay(target, source *stem.Waveform) (out *stem.Waveform, truncated int) {
	out = target.Clone()
	n := min(target.Len(), source.Len())
	for c, ch := range out.Channels {
		src := source.Channels[c]
		for i := 0; i < n; i++ {
			ch[i] += src[i]
		}
	}
	if extra := source.Len() - target.Len(); extra > 0 {
		truncated = extra
	}
	return out, truncated
}
