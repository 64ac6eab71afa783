package stemfs

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLockDirIsExclusive(t *testing.T) {
	dir := t.TempDir()
	first, err := LockDir(dir)
	if err != nil {
		t.Fatalf("first lock: %v", err)
	}
	if _, err := LockDir(dir); !errors.Is(err, ErrBusy) {
		t.Fatalf("second lock: err = %v, want ErrBusy", err)
	}
	if err := first.Unlock(); err != nil {
		t.Fatal(err)
	}
	again, err := LockDir(dir)
	if err != nil {
		t.Fatalf("relock: %v", err)
	}
	_ = again.Unlock()
}

func TestEnsureWritable(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "a", "b")
	if err := EnsureWritable(dir); err != nil {
		t.Fatalf("EnsureWritable: %v", err)
	}
	entries, _ := os.ReadDir(dir)
	if len(entries) != 0 {
		t.Fatalf("scratch file left behind: %v", entries)
	}

	file := filepath.Join(t.TempDir(), "f")
	if err := os.WriteFile(file, nil, 0o644); err != nil {
		t.Fatal(err)
	}
	if err := EnsureWritable(filepath.Join(file, "sub")); err == nil {
		t.Fatal("expected error below a regular file")
	}
}

func TestWriteTempAndCommit(t *testing.T) {
	dir := t.TempDir()
	final := filepath.Join(dir, "out.wav")
	tmp, err := WriteTemp(final, func(f *os.File) error {
		_, err := f.WriteString("data")
		return err
	})
	if err != nil {
		t.Fatalf("WriteTemp: %v", err)
	}
	if !strings.HasPrefix(filepath.Base(tmp), ".out.wav.") || filepath.Dir(tmp) != dir {
		t.Fatalf("unexpected temp path %s", tmp)
	}
	if ok, _ := Exists(final); ok {
		t.Fatal("final exists before commit")
	}
	if err := Commit(tmp, final); err != nil {
		t.Fatalf("Commit: %v", err)
	}
	b, _ := os.ReadFile(final)
	if string(b) != "data" {
		t.Fatalf("final = %q", b)
	}
	if ok, _ := Exists(tmp); ok {
		t.Fatal("temp survived commit")
	}
}

func TestWriteTempFailureRemovesTemp(t *testing.T) {
	dir := t.TempDir()
	_, err := WriteTemp(filepath.Join(dir, "x"), func(*os.File) error {
		return errors.New("boom")
	})
	if err == nil {
		t.Fatal("expected error")
	}
	entries, _ := os.ReadDir(dir)
	if len(entries) != 0 {
		t.Fatalf("temp left behind: %v", entries)
	}
}

func TestExists(t *testing.T) {
	dir := t.TempDir()
	if ok, err := Exists(filepath.Join(dir, "nope")); ok || err != nil {
		t.Fatalf("missing: %v %v", ok, err)
	}
	if _, err := Exists(dir); err == nil {
		t.Fatal("directory: expected error")
	}
}

func TestBackupAndRestore(t *testing.T) {
	dir := t.TempDir()
	final := filepath.Join(dir, "bass.wav")
	if err := os.WriteFile(final, []byte("old"), 0o644); err != nil {
		t.Fatal(err)
	}
	backup, err := Backup(final)
	if err != nil || backup == "" {
		t.Fatalf("Backup = %q, %v", backup, err)
	}
	if ok, _ := Exists(final); ok {
		t.Fatal("final still in place after backup")
	}
	if err := os.WriteFile(final, []byte("new"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := Restore(backup, final); err != nil {
		t.Fatalf("Restore: %v", err)
	}
	if b, _ := os.ReadFile(final); string(b) != "old" {
		t.Fatalf("final = %q, want old", b)
	}
	if entries, _ := os.ReadDir(dir); len(entries) != 1 {
		t.Fatalf("backup left behind: %v", entries)
	}

	fresh := filepath.Join(dir, "drums.wav")
	backup, err = Backup(fresh)
	if err != nil || backup != "" {
		t.Fatalf("Backup of missing file = %q, %v", backup, err)
	}
	if err := os.WriteFile(fresh, []byte("new"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := Restore(backup, fresh); err != nil {
		t.Fatalf("Restore: %v", err)
	}
	if ok, _ := Exists(fresh); ok {
		t.Fatal("restore kept a file that did not exist before")
	}
}

func TestDigestIsContentAddressed(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a")
	b := filepath.Join(dir, "b")
	_ = os.WriteFile(a, []byte("same"), 0o644)
	_ = os.WriteFile(b, []byte("same"), 0o644)
	da, err := Digest(a)
	if err != nil {
		t.Fatal(err)
	}
	db, _ := Digest(b)
	if da != db || len(da) != 64 {
		t.Fatalf("digests %s %s", da, db)
	}
	_ = os.WriteFile(b, []byte("different"), 0o644)
	if db, _ = Digest(b); db == da {
		t.Fatal("digest ignores content")
	}
}

func TestJournalLifecycle(t *testing.T) {
	dir := t.TempDir()
	if j, err := ReadJournal(dir); j != nil || err != nil {
		t.Fatalf("empty dir: %v %v", j, err)
	}
	want := &Journal{Target: "other.wav", Source: "piano.wav", Digest: "abc"}
	if err := WriteJournal(dir, want); err != nil {
		t.Fatalf("WriteJournal: %v", err)
	}
	got, err := ReadJournal(dir)
	if err != nil {
		t.Fatalf("ReadJournal: %v", err)
	}
	if got.Target != want.Target || got.Source != want.Source || got.Digest != want.Digest {
		t.Fatalf("got %+v", got)
	}
	if err := RemoveJournal(dir); err != nil {
		t.Fatal(err)
	}
	if err := RemoveJournal(dir); err != nil {
		t.Fatalf("second remove: %v", err)
	}

	_ = os.WriteFile(JournalPath(dir), []byte("{"), 0o644)
	if _, err := ReadJournal(dir); err == nil {
		t.Fatal("expected parse error")
	}
}
