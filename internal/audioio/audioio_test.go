package audioio

import (
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/cwbudde/algo-stems/stem"
)

func TestWAVRoundTrip(t *testing.T) {
	tests := []struct {
		name     string
		channels int
	}{
		{"mono", 1},
		{"stereo", 2},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			const sr = 22050
			w := stem.NewWaveform(sr, tc.channels, 1000)
			for c := range w.Channels {
				for i := range w.Channels[c] {
					w.Channels[c][i] = 0.5 * math.Sin(float64(i)*0.05+float64(c))
				}
			}
			path := filepath.Join(t.TempDir(), "x.wav")
			if err := WriteWAV(path, w); err != nil {
				t.Fatalf("WriteWAV: %v", err)
			}
			got, err := Decode(path)
			if err != nil {
				t.Fatalf("Decode: %v", err)
			}
			if got.SampleRate != sr || got.NumChannels() != tc.channels || got.Len() != 1000 {
				t.Fatalf("got %d Hz %d ch %d frames", got.SampleRate, got.NumChannels(), got.Len())
			}
			for c := range w.Channels {
				for i, v := range w.Channels[c] {
					if math.Abs(got.Channels[c][i]-v) > 1e-4 {
						t.Fatalf("ch %d sample %d: got %v want %v", c, i, got.Channels[c][i], v)
					}
				}
			}
		})
	}
}

func TestFLACRoundTrip(t *testing.T) {
	tests := []struct {
		name     string
		channels int
		frames   int
		rate     int
	}{
		{"mono short", 1, 100, 44100},
		{"stereo blocks", 2, 3 * flacBlockSize, 48000},
		{"folded tail", 2, 2*flacBlockSize + 7, 44100},
		{"odd rate", 1, flacBlockSize + 20, 11025},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			w := stem.NewWaveform(tc.rate, tc.channels, tc.frames)
			for c := range w.Channels {
				for i := range w.Channels[c] {
					w.Channels[c][i] = 0.5 * math.Sin(float64(i)*0.05+float64(c))
				}
			}
			path := filepath.Join(t.TempDir(), "x.flac")
			if err := WriteFLAC(path, w); err != nil {
				t.Fatalf("WriteFLAC: %v", err)
			}
			got, err := Decode(path)
			if err != nil {
				t.Fatalf("Decode: %v", err)
			}
			if got.SampleRate != tc.rate || got.NumChannels() != tc.channels || got.Len() != tc.frames {
				t.Fatalf("got %d Hz %d ch %d frames", got.SampleRate, got.NumChannels(), got.Len())
			}
			for c := range w.Channels {
				for i, v := range w.Channels[c] {
					if math.Abs(got.Channels[c][i]-v) > 1e-4 {
						t.Fatalf("ch %d sample %d: got %v want %v", c, i, got.Channels[c][i], v)
					}
				}
			}
		})
	}
}

func TestEncodeFLACClampsFullScale(t *testing.T) {
	x := make([]float64, 32)
	for i := range x {
		x[i] = 1.5
		if i%2 == 1 {
			x[i] = -1.5
		}
	}
	path := filepath.Join(t.TempDir(), "full.flac")
	if err := WriteFLAC(path, stem.Mono(x, 44100)); err != nil {
		t.Fatal(err)
	}
	got, err := Decode(path)
	if err != nil {
		t.Fatal(err)
	}
	for i, v := range got.Channels[0] {
		want := 1.0
		if i%2 == 1 {
			want = -1
		}
		if math.Abs(v-want) > 1e-3 {
			t.Fatalf("sample %d = %v, want about %v", i, v, want)
		}
	}
}

func TestEncodeFLACRejectsTinyStream(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tiny.flac")
	if err := WriteFLAC(path, stem.Mono(make([]float64, flacMinBlockSize-1), 44100)); err == nil {
		t.Fatal("expected error for a stream shorter than one frame")
	}
}

func TestFLACBlocks(t *testing.T) {
	tests := []struct {
		n    int
		want [][2]int
	}{
		{16, [][2]int{{0, 16}}},
		{flacBlockSize, [][2]int{{0, flacBlockSize}}},
		{flacBlockSize + 15, [][2]int{{0, flacBlockSize + 15}}},
		{flacBlockSize + 16, [][2]int{{0, flacBlockSize}, {flacBlockSize, flacBlockSize + 16}}},
	}
	for _, tc := range tests {
		got := flacBlocks(tc.n)
		if len(got) != len(tc.want) {
			t.Fatalf("flacBlocks(%d) = %v, want %v", tc.n, got, tc.want)
		}
		for i := range got {
			if got[i] != tc.want[i] {
				t.Fatalf("flacBlocks(%d) = %v, want %v", tc.n, got, tc.want)
			}
		}
	}
}

func TestEncoderFor(t *testing.T) {
	for _, ext := range []string{"wav", ".WAV", "flac", "Flac"} {
		if _, err := EncoderFor(ext); err != nil {
			t.Errorf("EncoderFor(%q): %v", ext, err)
		}
	}
	for _, ext := range []string{"mp3", "ogg", "aiff", ""} {
		if _, err := EncoderFor(ext); !errors.Is(err, ErrUnsupportedFormat) {
			t.Errorf("EncoderFor(%q) = %v, want ErrUnsupportedFormat", ext, err)
		}
	}
}

func TestEncodeWAVFullScaleDoesNotWrap(t *testing.T) {
	path := filepath.Join(t.TempDir(), "full.wav")
	if err := WriteWAV(path, stem.Mono([]float64{1, -1, 1, -1}, 44100)); err != nil {
		t.Fatal(err)
	}
	got, err := Decode(path)
	if err != nil {
		t.Fatal(err)
	}
	for i, v := range got.Channels[0] {
		want := 1.0
		if i%2 == 1 {
			want = -1
		}
		if math.Abs(v-want) > 1e-3 {
			t.Fatalf("sample %d = %v, want about %v", i, v, want)
		}
	}
}

func TestDecodeErrors(t *testing.T) {
	dir := t.TempDir()
	junk := filepath.Join(dir, "junk.wav")
	if err := os.WriteFile(junk, []byte("definitely not riff"), 0o644); err != nil {
		t.Fatal(err)
	}
	empty := filepath.Join(dir, "empty.wav")
	if err := WriteWAV(empty, stem.Mono(nil, 44100)); err != nil {
		t.Fatal(err)
	}

	if _, err := Decode(filepath.Join(dir, "a.aiff")); !errors.Is(err, ErrUnsupportedFormat) {
		t.Fatalf("aiff: err = %v, want ErrUnsupportedFormat", err)
	}
	if _, err := Decode(filepath.Join(dir, "missing.wav")); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("missing: err = %v, want not-exist", err)
	}
	if _, err := Decode(junk); err == nil {
		t.Fatal("junk: expected error")
	}
	if _, err := Decode(empty); err == nil {
		t.Fatal("empty: expected error")
	}
	for _, name := range []string{"junk.flac", "junk.mp3", "junk.ogg"} {
		path := filepath.Join(dir, name)
		if err := os.WriteFile(path, []byte("definitely not audio data at all"), 0o644); err != nil {
			t.Fatal(err)
		}
		if _, err := Decode(path); err == nil {
			t.Fatalf("%s: expected error", name)
		}
	}
}

func TestSupported(t *testing.T) {
	for path, want := range map[string]bool{
		"a.wav":     true,
		"B.FLAC":    true,
		"c.mp3":     true,
		"d.ogg":     true,
		"e.m4a":     false,
		"noext":     false,
		"dir.wav/x": false,
		"track.Mp3": true,
	} {
		if got := Supported(path); got != want {
			t.Errorf("Supported(%q) = %v, want %v", path, got, want)
		}
	}
}
