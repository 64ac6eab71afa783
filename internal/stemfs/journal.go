package stemfs

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// JournalName is the merge journal kept in an output directory between the
// target overwrite and the source delete.
const JournalName = ".stemsplit-merge.json"

// Journal records a merge whose target has been (or is about to be)
// replaced.
type Journal struct {
	Target  string    `json:"target"`
	Source  string    `json:"source"`
	Digest  string    `json:"digest"`
	Created time.Time `json:"created"`
}

// JournalPath returns the journal location for dir.
func JournalPath(dir string) string {
	return filepath.Join(dir, JournalName)
}

// ReadJournal returns the journal of dir, or nil when there is none.
func ReadJournal(dir string) (*Journal, error) {
	b, err := os.ReadFile(JournalPath(dir))
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var j Journal
	if err := json.Unmarshal(b, &j); err != nil {
		return nil, fmt.Errorf("parse merge journal: %w", err)
	}
	return &j, nil
}

// WriteJournal stores j atomically.
func WriteJournal(dir string, j *Journal) error {
	b, err := json.MarshalIndent(j, "", "  ")
	if err != nil {
		return err
	}
	final := JournalPath(dir)
	tmp, err := WriteTemp(final, func(f *os.File) error {
		_, err := f.Write(b)
		return err
	})
	if err != nil {
		return err
	}
	return Commit(tmp, final)
}

// RemoveJournal deletes the journal of dir if present.
func RemoveJournal(dir string) error {
	err := os.Remove(JournalPath(dir))
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}
