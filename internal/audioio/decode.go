// Package audioio decodes recordings into planar waveforms and encodes stems
// as 16-bit WAV or FLAC.
package audioio

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/faiface/beep"
	"github.com/faiface/beep/mp3"
	"github.com/faiface/beep/vorbis"
	"github.com/mewkiz/flac"

	"github.com/cwbudde/algo-stems/stem"
)

// ErrUnsupportedFormat is returned for extensions without a decoder.
var ErrUnsupportedFormat = errors.New("unsupported audio format")

// SupportedExts lists the decodable container extensions.
var SupportedExts = []string{"wav", "flac", "mp3", "ogg"}

// Supported reports whether path has a decodable extension.
func Supported(path string) bool {
	ext := normalizeExt(path)
	for _, e := range SupportedExts {
		if e == ext {
			return true
		}
	}
	return false
}

func normalizeExt(path string) string {
	return strings.ToLower(strings.TrimPrefix(filepath.Ext(path), "."))
}

// Decode reads the whole file at path.
func Decode(path string) (*stem.Waveform, error) {
	if !Supported(path) {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, filepath.Ext(path))
	}
	var (
		w   *stem.Waveform
		err error
	)
	switch normalizeExt(path) {
	case "wav":
		w, err = decodeWAVFile(path)
	case "flac":
		w, err = decodeFLAC(path)
	case "mp3":
		w, err = decodeBeep(path, mp3.Decode)
	case "ogg":
		w, err = decodeBeep(path, vorbis.Decode)
	}
	if err != nil {
		return nil, err
	}
	if err := w.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if w.Len() == 0 {
		return nil, fmt.Errorf("%s: no audio frames", path)
	}
	return w, nil
}

func decodeWAVFile(path string) (*stem.Waveform, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return readWAV(f, path)
}

func decodeFLAC(path string) (*stem.Waveform, error) {
	s, err := flac.ParseFile(path)
	if err != nil {
		return nil, err
	}
	defer s.Close()

	ch := int(s.Info.NChannels)
	if ch < 1 {
		return nil, fmt.Errorf("invalid flac channel count: %d", ch)
	}
	fullScale := float64(int64(1) << (s.Info.BitsPerSample - 1))
	w := &stem.Waveform{SampleRate: int(s.Info.SampleRate), Channels: make([][]float64, ch)}
	if s.Info.NSamples > 0 {
		for c := range w.Channels {
			w.Channels[c] = make([]float64, 0, s.Info.NSamples)
		}
	}
	for {
		frame, err := s.ParseNext()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		for c := 0; c < ch && c < len(frame.Subframes); c++ {
			for _, v := range frame.Subframes[c].Samples {
				w.Channels[c] = append(w.Channels[c], float64(v)/fullScale)
			}
		}
	}
	return w, nil
}

type beepDecoder func(io.ReadCloser) (beep.StreamSeekCloser, beep.Format, error)

// decodeBeep drains a beep stream. Beep always yields stereo pairs; mono
// sources are stored as one channel.
func decodeBeep(path string, decode beepDecoder) (*stem.Waveform, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	streamer, format, err := decode(f)
	if err != nil {
		_ = f.Close()
		return nil, err
	}
	defer streamer.Close()

	ch := format.NumChannels
	if ch < 1 || ch > 2 {
		ch = 2
	}
	w := &stem.Waveform{SampleRate: int(format.SampleRate), Channels: make([][]float64, ch)}
	buf := make([][2]float64, 4096)
	for {
		n, ok := streamer.Stream(buf)
		for i := 0; i < n; i++ {
			for c := 0; c < ch; c++ {
				w.Channels[c] = append(w.Channels[c], buf[i][c])
			}
		}
		if !ok {
			break
		}
	}
	if err := streamer.Err(); err != nil {
		return nil, err
	}
	return w, nil
}
