package fsutil

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestReadFileScoped_ReadsFile(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "a.txt")
	if err := os.WriteFile(p, []byte("hello"), 0o600); err != nil {
		t.Fatalf("write file: %v", err)
	}

	b, err := ReadFileScoped(p)
	if err != nil {
		t.Fatalf("ReadFileScoped error: %v", err)
	}
	if string(b) != "hello" {
		t.Fatalf("unexpected content: %q", string(b))
	}
}

func TestReadFileScoped_RejectsInvalidPath(t *testing.T) {
	for _, p := range []string{"", ".", string(filepath.Separator)} {
		if _, err := ReadFileScoped(p); err == nil {
			t.Fatalf("expected error for %q", p)
		}
	}
}

func TestReadFileScoped_NonexistentFile(t *testing.T) {
	_, err := ReadFileScoped(filepath.Join(t.TempDir(), "missing.md"))
	if !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected not-exist error, got %v", err)
	}
}

func TestAtomicWriteFile_CreatesDirsAndReplaces(t *testing.T) {
	p := filepath.Join(t.TempDir(), "nested", "dir", "state.json")

	if err := AtomicWriteFile(p, []byte("one"), 0o644); err != nil {
		t.Fatalf("first write: %v", err)
	}
	if err := AtomicWriteFile(p, []byte("two"), 0o644); err != nil {
		t.Fatalf("second write: %v", err)
	}

	data, err := os.ReadFile(p)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "two" {
		t.Errorf("content = %q, want %q", data, "two")
	}

	entries, err := os.ReadDir(filepath.Dir(p))
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Errorf("expected no leftover temp files, found %d entries", len(entries))
	}
}

func TestJSONRoundTrip(t *testing.T) {
	type doc struct {
		Name  string `json:"name"`
		Count int    `json:"count"`
	}
	p := filepath.Join(t.TempDir(), "doc.json")

	if err := WriteJSON(p, doc{Name: "x", Count: 3}); err != nil {
		t.Fatalf("WriteJSON: %v", err)
	}

	var got doc
	found, err := ReadJSON(p, &got)
	if err != nil || !found {
		t.Fatalf("ReadJSON found=%v err=%v", found, err)
	}
	if got.Name != "x" || got.Count != 3 {
		t.Errorf("got %+v", got)
	}
}

func TestReadJSON_MissingAndCorrupt(t *testing.T) {
	dir := t.TempDir()

	var v map[string]interface{}
	found, err := ReadJSON(filepath.Join(dir, "none.json"), &v)
	if found || err != nil {
		t.Fatalf("missing file: found=%v err=%v", found, err)
	}

	bad := filepath.Join(dir, "bad.json")
	if err := os.WriteFile(bad, []byte(`{"state": "CLO`), 0o600); err != nil {
		t.Fatal(err)
	}
	found, err = ReadJSON(bad, &v)
	if !found {
		t.Error("corrupt file should be reported as found")
	}
	if !errors.Is(err, ErrCorrupt) {
		t.Fatalf("expected ErrCorrupt, got %v", err)
	}
}

func TestMoveAside(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "tracking.json")
	if err := os.WriteFile(p, []byte("garbage"), 0o600); err != nil {
		t.Fatal(err)
	}

	dest, err := MoveAside(p)
	if err != nil {
		t.Fatalf("MoveAside: %v", err)
	}
	if dest != p+".corrupt" {
		t.Errorf("dest = %q", dest)
	}
	if _, err := os.Stat(p); !os.IsNotExist(err) {
		t.Error("original should be gone")
	}

	dest, err = MoveAside(filepath.Join(dir, "absent.json"))
	if err != nil || dest != "" {
		t.Errorf("absent file: dest=%q err=%v", dest, err)
	}
}
