package stem

import (
	"fmt"
	"strings"
)

// Label names one stem of a separated recording.
type Label string

const (
	Vocals Label = "vocals"
	Bass   Label = "bass"
	Drums  Label = "drums"
	Other  Label = "other"
	Piano  Label = "piano"
	Guitar Label = "guitar"
)

// BaseLabels are the stems every separation produces, in write order.
var BaseLabels = []Label{Vocals, Bass, Drums, Other}

var vocabulary = []Label{Vocals, Bass, Drums, Other, Piano, Guitar}

// ParseLabel accepts any label of the vocabulary, case-insensitively.
func ParseLabel(s string) (Label, error) {
	v := Label(strings.ToLower(strings.TrimSpace(s)))
	for _, l := range vocabulary {
		if v == l {
			return l, nil
		}
	}
	return "", fmt.Errorf("unknown stem label %q (want one of %s)", s, vocabularyString())
}

// Valid reports whether l belongs to the vocabulary.
func (l Label) Valid() bool {
	_, err := ParseLabel(string(l))
	return err == nil
}

func (l Label) String() string {
	return string(l)
}

func vocabularyString() string {
	parts := make([]string, len(vocabulary))
	for i, l := range vocabulary {
		parts[i] = string(l)
	}
	return strings.Join(parts, ", ")
}

// Stem is a labeled waveform.
type Stem struct {
	Label Label
	Wave  *Waveform
}

// Set maps labels to the waveforms of one separation run.
type Set map[Label]*Waveform

// Stems returns the set as a slice ordered like BaseLabels, followed by any
// extra labels in vocabulary order.
func (s Set) Stems() []Stem {
	out := make([]Stem, 0, len(s))
	for _, l := range vocabulary {
		if w, ok := s[l]; ok {
			out = append(out, Stem{Label: l, Wave: w})
		}
	}
	return out
}
