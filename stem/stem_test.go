package stem

import (
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestParseLabel(t *testing.T) {
	tests := []struct {
		in      string
		want    Label
		wantErr bool
	}{
		{in: "vocals", want: Vocals},
		{in: " Drums ", want: Drums},
		{in: "PIANO", want: Piano},
		{in: "guitar", want: Guitar},
		{in: "kazoo", wantErr: true},
		{in: "", wantErr: true},
	}
	for _, tc := range tests {
		got, err := ParseLabel(tc.in)
		if tc.wantErr {
			if err == nil {
				t.Errorf("ParseLabel(%q) = %q, want error", tc.in, got)
			}
			continue
		}
		if err != nil || got != tc.want {
			t.Errorf("ParseLabel(%q) = %q, %v; want %q", tc.in, got, err, tc.want)
		}
	}
}

func TestSetStemsOrder(t *testing.T) {
	s := Set{Other: &Waveform{}, Piano: &Waveform{}, Vocals: &Waveform{}, Drums: &Waveform{}, Bass: &Waveform{}}
	var got []Label
	for _, st := range s.Stems() {
		got = append(got, st.Label)
	}
	want := []Label{Vocals, Bass, Drums, Other, Piano}
	if fmt.Sprint(got) != fmt.Sprint(want) {
		t.Fatalf("order = %v, want %v", got, want)
	}
}

func TestFileNames(t *testing.T) {
	if got := FileName("song", Vocals, ""); got != "song_vocals.wav" {
		t.Fatalf("FileName = %q", got)
	}
	if got := FileName("", Piano, ".flac"); got != "piano.flac" {
		t.Fatalf("FileName = %q", got)
	}
	if got := Path("out", "a", Bass, "wav"); got != filepath.Join("out", "a_bass.wav") {
		t.Fatalf("Path = %q", got)
	}
}

func TestTrackNameNormalizesUnicode(t *testing.T) {
	decomposed := "Cafe\u0301.mp3"
	composed := "Caf\u00e9"
	if got := TrackName(filepath.Join("music", decomposed)); got != composed {
		t.Fatalf("TrackName = %q, want %q", got, composed)
	}
	if got := TrackName("a.b.wav"); got != "a.b" {
		t.Fatalf("TrackName = %q", got)
	}
}

func TestErrorMatchesSentinels(t *testing.T) {
	cause := os.ErrPermission
	err := fmt.Errorf("wrapped: %w", NewError(KindWrite, "merge", "/x/other.wav", cause))
	if !errors.Is(err, ErrWrite) {
		t.Fatal("errors.Is(ErrWrite) = false")
	}
	if errors.Is(err, ErrDecode) {
		t.Fatal("errors.Is(ErrDecode) = true")
	}
	if !errors.Is(err, os.ErrPermission) {
		t.Fatal("cause not unwrapped")
	}
	if KindOf(err) != KindWrite {
		t.Fatalf("KindOf = %q", KindOf(err))
	}
	if KindOf(errors.New("plain")) != "" {
		t.Fatal("KindOf(plain) != \"\"")
	}
	want := "wrapped: merge: write failed /x/other.wav: permission denied"
	if err.Error() != want {
		t.Fatalf("Error() = %q, want %q", err.Error(), want)
	}

	rm := RateMismatchError("merge source", "p.wav", 44100, 48000)
	if !errors.Is(rm, ErrRateMismatch) || rm.ErrorKind() != "rate_mismatch" {
		t.Fatalf("rate mismatch error %v", rm)
	}
}

func TestWaveformHelpers(t *testing.T) {
	w := &Waveform{SampleRate: 4, Channels: [][]float64{{1, -3, 0.5, 0}, {1, 1, 0.5, 0}}}
	if err := w.Validate(); err != nil {
		t.Fatal(err)
	}
	if w.Duration() != time.Second {
		t.Fatalf("Duration = %v", w.Duration())
	}
	mono := w.Downmix()
	if fmt.Sprint(mono) != fmt.Sprint([]float64{1, -1, 0.5, 0}) {
		t.Fatalf("Downmix = %v", mono)
	}
	if w.Peak() != 3 {
		t.Fatalf("Peak = %v", w.Peak())
	}

	scaled := w.Scale(0.5)
	if scaled.Channels[0][1] != -1.5 || w.Channels[0][1] != -3 {
		t.Fatal("Scale must copy")
	}

	c := w.Clone()
	if n := c.Clip(); n != 1 || c.Channels[0][1] != -1 {
		t.Fatalf("Clip = %d, sample %v", n, c.Channels[0][1])
	}

	one := w.WithChannels(1)
	if one.NumChannels() != 1 || one.Channels[0][1] != -1 {
		t.Fatalf("WithChannels(1) = %v", one.Channels)
	}
	two := Mono([]float64{0.1, 0.2}, 4).WithChannels(2)
	if two.NumChannels() != 2 || two.Channels[1][1] != 0.2 {
		t.Fatalf("WithChannels(2) = %v", two.Channels)
	}

	bad := &Waveform{SampleRate: 4, Channels: [][]float64{{1}, {1, 2}}}
	if bad.Validate() == nil {
		t.Fatal("expected length mismatch error")
	}
	if (&Waveform{SampleRate: 0, Channels: [][]float64{{1}}}).Validate() == nil {
		t.Fatal("expected rate error")
	}
}

func TestRMS(t *testing.T) {
	w := Mono([]float64{1, -1, 1, -1}, 10)
	if math.Abs(w.RMS()-1) > 1e-12 {
		t.Fatalf("RMS = %v", w.RMS())
	}
	if NewWaveform(10, 1, 0).RMS() != 0 {
		t.Fatal("empty RMS != 0")
	}
}

func TestResampleKeepsChannelsAligned(t *testing.T) {
	const from, to = 22050, 44100
	w := NewWaveform(from, 2, from/10)
	for c := range w.Channels {
		for i := range w.Channels[c] {
			w.Channels[c][i] = math.Sin(2 * math.Pi * 440 * float64(i) / from)
		}
	}
	out, err := Resample(w, to)
	if err != nil {
		t.Fatalf("Resample: %v", err)
	}
	if out.SampleRate != to || out.Validate() != nil {
		t.Fatalf("rate %d, validate %v", out.SampleRate, out.Validate())
	}
	want := 2 * w.Len()
	if d := out.Len() - want; d < -want/50 || d > want/50 {
		t.Fatalf("len = %d, want about %d", out.Len(), want)
	}
	same, err := Resample(w, from)
	if err != nil || same != w {
		t.Fatal("same-rate resample should return the input")
	}
	if _, err := Resample(w, 0); err == nil {
		t.Fatal("expected error for rate 0")
	}
}
