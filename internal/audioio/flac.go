package audioio

import (
	"fmt"
	"io"
	"math"
	"os"

	"github.com/mewkiz/flac"
	"github.com/mewkiz/flac/frame"
	"github.com/mewkiz/flac/meta"

	"github.com/cwbudde/algo-stems/stem"
)

const (
	flacBlockSize    = 4096
	flacMinBlockSize = 16
	flacMaxChannels  = 8
)

// seekOnly hides Close from the flac encoder so the caller keeps ownership of
// the file. The encoder still sees Seek and rewrites STREAMINFO on close.
type seekOnly struct{ io.WriteSeeker }

// EncodeFLAC writes w as 16-bit FLAC with verbatim subframes. Samples are
// clamped like EncodeWAV. Streams shorter than 16 frames cannot be framed
// and are rejected.
func EncodeFLAC(dst io.WriteSeeker, w *stem.Waveform) error {
	if err := w.Validate(); err != nil {
		return err
	}
	ch := w.NumChannels()
	if ch > flacMaxChannels {
		return fmt.Errorf("flac: %d channels exceed %d", ch, flacMaxChannels)
	}
	if w.SampleRate >= 1<<20 {
		return fmt.Errorf("flac: sample rate %d out of range", w.SampleRate)
	}
	n := w.Len()
	if n < flacMinBlockSize {
		return fmt.Errorf("flac: %d frames, need at least %d", n, flacMinBlockSize)
	}

	info := &meta.StreamInfo{
		BlockSizeMin:  flacMinBlockSize,
		BlockSizeMax:  flacBlockSize,
		SampleRate:    uint32(w.SampleRate),
		NChannels:     uint8(ch),
		BitsPerSample: BitDepth,
	}
	enc, err := flac.NewEncoder(seekOnly{dst}, info)
	if err != nil {
		return err
	}
	for _, b := range flacBlocks(n) {
		f := &frame.Frame{
			Header: frame.Header{
				BlockSize:     uint16(b[1] - b[0]),
				SampleRate:    uint32(w.SampleRate),
				Channels:      frame.Channels(ch - 1),
				BitsPerSample: BitDepth,
			},
			Subframes: make([]*frame.Subframe, ch),
		}
		for c := range f.Subframes {
			samples := make([]int32, b[1]-b[0])
			for i := range samples {
				samples[i] = toPCM16(w.Channels[c][b[0]+i])
			}
			f.Subframes[c] = &frame.Subframe{
				SubHeader: frame.SubHeader{Pred: frame.PredVerbatim},
				Samples:   samples,
				NSamples:  len(samples),
			}
		}
		if err := enc.WriteFrame(f); err != nil {
			_ = enc.Close()
			return err
		}
	}
	return enc.Close()
}

// flacBlocks splits n frames into [start, end) blocks of flacBlockSize. A tail
// too short for a frame is folded into the block before it, so the stream
// uses variable block sizes.
func flacBlocks(n int) [][2]int {
	var blocks [][2]int
	for start := 0; start < n; start += flacBlockSize {
		end := min(start+flacBlockSize, n)
		if end-start < flacMinBlockSize && len(blocks) > 0 {
			blocks[len(blocks)-1][1] = end
			break
		}
		blocks = append(blocks, [2]int{start, end})
	}
	return blocks
}

func toPCM16(v float64) int32 {
	s := math.Round(v * 32768)
	return int32(max(-32768, min(s, 32767)))
}

// WriteFLAC creates path and encodes w into it.
func WriteFLAC(path string, w *stem.Waveform) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := EncodeFLAC(f, w); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}
