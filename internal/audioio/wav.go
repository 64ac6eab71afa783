package audioio

import (
	"fmt"
	"io"
	"os"

	"github.com/cwbudde/algo-stems/stem"
	"github.com/cwbudde/wav"
	"github.com/go-audio/audio"
)

// BitDepth of written stems.
const BitDepth = 16

// maxPCM is the largest sample that survives conversion to 16-bit integers
// without wrapping.
const maxPCM = float32(32767.0 / 32768.0)

func readWAV(r io.ReadSeeker, name string) (*stem.Waveform, error) {
	dec := wav.NewDecoder(r)
	if !dec.IsValidFile() {
		return nil, fmt.Errorf("invalid wav file: %s", name)
	}
	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, err
	}
	if buf == nil || buf.Format == nil || buf.Format.NumChannels < 1 {
		return nil, fmt.Errorf("invalid wav buffer: %s", name)
	}
	if buf.Format.SampleRate <= 0 {
		return nil, fmt.Errorf("invalid wav sample-rate: %d", buf.Format.SampleRate)
	}
	ch := buf.Format.NumChannels
	frames := len(buf.Data) / ch
	w := stem.NewWaveform(buf.Format.SampleRate, ch, frames)
	for i := 0; i < frames; i++ {
		for c := 0; c < ch; c++ {
			w.Channels[c][i] = float64(buf.Data[i*ch+c])
		}
	}
	return w, nil
}

// EncodeWAV writes w as 16-bit PCM. Callers clip to [-1, 1]; full-scale
// positive samples are pulled to the largest positive 16-bit value.
func EncodeWAV(dst io.WriteSeeker, w *stem.Waveform) error {
	if err := w.Validate(); err != nil {
		return err
	}
	ch := w.NumChannels()
	frames := w.Len()
	data := make([]float32, frames*ch)
	for i := 0; i < frames; i++ {
		for c := 0; c < ch; c++ {
			data[i*ch+c] = min(float32(w.Channels[c][i]), maxPCM)
		}
	}

	enc := wav.NewEncoder(dst, w.SampleRate, BitDepth, ch, 1)
	buf := &audio.Float32Buffer{
		Format: &audio.Format{
			SampleRate:  w.SampleRate,
			NumChannels: ch,
		},
		Data:           data,
		SourceBitDepth: BitDepth,
	}
	if err := enc.Write(buf); err != nil {
		_ = enc.Close()
		return err
	}
	return enc.Close()
}

// WriteWAV creates path and encodes w into it.
func WriteWAV(path string, w *stem.Waveform) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := EncodeWAV(f, w); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}
