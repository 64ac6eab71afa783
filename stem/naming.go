package stem

import (
	"path/filepath"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// DefaultExt is the container extension of written stems.
const DefaultExt = "wav"

// FileName returns "<track>_<label>.<ext>", or "<label>.<ext>" when track is
// empty.
func FileName(track string, label Label, ext string) string {
	ext = strings.TrimPrefix(strings.TrimSpace(ext), ".")
	if ext == "" {
		ext = DefaultExt
	}
	if track == "" {
		return string(label) + "." + ext
	}
	return track + "_" + string(label) + "." + ext
}

// Path joins FileName onto dir.
func Path(dir, track string, label Label, ext string) string {
	return filepath.Join(dir, FileName(track, label, ext))
}

// TrackName derives the stem prefix from an input path: the base name without
// its extension, in Unicode NFC so decomposed names from some filesystems map
// to the same output paths.
func TrackName(input string) string {
	base := filepath.Base(input)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	return norm.NFC.String(base)
}
