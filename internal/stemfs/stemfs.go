// Package stemfs holds the file-system side of separation and merge runs:
// directory locking, write pre-checks, and temp-then-rename commits.
package stemfs

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
	"github.com/google/uuid"
)

// LockName is the advisory lock file kept in an output directory.
const LockName = ".stemsplit.lock"

// ErrBusy is returned when another run holds the directory lock.
var ErrBusy = errors.New("output directory is locked by another run")

// Lock is an exclusive advisory lock on one output directory.
type Lock struct {
	fl *flock.Flock
}

// LockDir takes the lock without blocking.
func LockDir(dir string) (*Lock, error) {
	fl := flock.New(filepath.Join(dir, LockName))
	ok, err := fl.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return nil, ErrBusy
	}
	return &Lock{fl: fl}, nil
}

// Unlock releases the lock. The lock file itself stays in place.
func (l *Lock) Unlock() error {
	if l == nil || l.fl == nil {
		return nil
	}
	return l.fl.Unlock()
}

// EnsureWritable creates dir if needed and proves it accepts new files by
// creating and removing a scratch file.
func EnsureWritable(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	scratch := TempPath(dir, "writable")
	f, err := os.OpenFile(scratch, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	_ = f.Close()
	return os.Remove(scratch)
}

// TempPath returns a unique hidden sibling path in dir.
func TempPath(dir, name string) string {
	return filepath.Join(dir, "."+name+"."+uuid.NewString()+".tmp")
}

// WriteTemp creates a temp file next to final and lets write fill it. On
// failure the temp file is removed and final is untouched.
func WriteTemp(final string, write func(f *os.File) error) (string, error) {
	tmp := TempPath(filepath.Dir(final), filepath.Base(final))
	f, err := os.OpenFile(tmp, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return "", err
	}
	if err := write(f); err != nil {
		_ = f.Close()
		_ = os.Remove(tmp)
		return "", err
	}
	if err := f.Sync(); err != nil {
		_ = f.Close()
		_ = os.Remove(tmp)
		return "", err
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(tmp)
		return "", err
	}
	return tmp, nil
}

// Commit renames tmp over final.
func Commit(tmp, final string) error {
	if err := os.Rename(tmp, final); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	return nil
}

// Backup moves an existing final aside so a rollback can put it back. It
// returns "" when there is nothing at final.
func Backup(final string) (string, error) {
	backup := TempPath(filepath.Dir(final), filepath.Base(final)+".old")
	if err := os.Rename(final, backup); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", nil
		}
		return "", err
	}
	return backup, nil
}

// Restore undoes Backup. With an empty backup it removes whatever was
// committed at final.
func Restore(backup, final string) error {
	if backup == "" {
		if err := os.Remove(final); err != nil && !errors.Is(err, os.ErrNotExist) {
			return err
		}
		return nil
	}
	return os.Rename(backup, final)
}

// Exists reports whether path names an existing regular file. Anything else
// at path is an error.
func Exists(path string) (bool, error) {
	info, err := os.Stat(path)
	if err == nil {
		if info.IsDir() {
			return false, fmt.Errorf("%s is a directory", path)
		}
		if !info.Mode().IsRegular() {
			return false, fmt.Errorf("%s is not a regular file", path)
		}
		return true, nil
	}
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	return false, err
}

// Digest returns the hex SHA-256 of the file at path.
func Digest(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
