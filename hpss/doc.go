// Package hpss splits a mono signal into a harmonic and a percussive
// component by median filtering its magnitude spectrogram.
//
// Harmonic partials are stable across time and form horizontal ridges in
// the spectrogram; transients are broadband and form vertical ones. A median
// filter along time therefore enhances the harmonic part and a median filter
// along frequency the percussive part. The two enhanced spectrograms are
// turned into soft (Wiener) masks, applied to the complex STFT, and
// resynthesised by weighted overlap-add.
//
// With Margin 1 the masks sum to one in every bin, so Harmonic+Percussive
// reproduces the input up to floating point error. The signal is zero padded
// by one frame on both sides before analysis and the padding is removed
// after synthesis: both components have exactly len(input) samples.
//
// # Usage
//
//	p := hpss.DefaultParams()
//	res, err := hpss.Separate(samples, p)
//	// res.Harmonic, res.Percussive
package hpss
