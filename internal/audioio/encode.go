package audioio

import (
	"fmt"
	"io"
	"strings"

	"github.com/cwbudde/algo-stems/stem"
)

// Encoder writes w to dst.
type Encoder func(dst io.WriteSeeker, w *stem.Waveform) error

// EncodableExts lists the extensions stems can be written as. MP3 and Ogg are
// decode only.
var EncodableExts = []string{"wav", "flac"}

// EncoderFor returns the encoder for ext, with or without a leading dot.
func EncoderFor(ext string) (Encoder, error) {
	switch strings.ToLower(strings.TrimPrefix(ext, ".")) {
	case "wav":
		return EncodeWAV, nil
	case "flac":
		return EncodeFLAC, nil
	}
	return nil, fmt.Errorf("%w: no encoder for %q (writable: %v)", ErrUnsupportedFormat, ext, EncodableExts)
}
