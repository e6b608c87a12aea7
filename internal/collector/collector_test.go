package collector

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/hugo-lorenzo-mato/crossreview/internal/core"
)

func writeTree(t *testing.T, files map[string]string) string {
	t.Helper()
	root := t.TempDir()
	for rel, content := range files {
		path := filepath.Join(root, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	return root
}

func TestCollect_SectionsInPathOrder(t *testing.T) {
	root := writeTree(t, map[string]string{
		"main.go":           "package main\n",
		"pkg/util.go":       "package pkg",
		"README.md":         "# readme\n",
		"image.png":         "not really",
		".git/config":       "[core]\n",
		"vendor/x/x.go":     "package x\n",
		".crossreview/a.md": "artifact\n",
	})

	got, err := New(DefaultOptions(), nil).Collect(context.Background(), root)
	if err != nil {
		t.Fatalf("Collect() error = %v", err)
	}
	want := "=== README.md ===\n# readme\n\n" +
		"=== main.go ===\npackage main\n\n" +
		"=== pkg/util.go ===\npackage pkg\n\n"
	if got != want {
		t.Errorf("Collect() =\n%q\nwant\n%q", got, want)
	}
}

func TestCollect_EmptyExtensionsMeansAllText(t *testing.T) {
	root := writeTree(t, map[string]string{
		"Makefile": "all:\n",
		"blob.bin": "abc\x00def",
	})
	got, err := New(Options{}, nil).Collect(context.Background(), root)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(got, "=== Makefile ===") {
		t.Errorf("Makefile missing: %q", got)
	}
	if strings.Contains(got, "blob.bin") {
		t.Errorf("binary file included: %q", got)
	}
}

func TestCollect_ExtensionsAreNormalized(t *testing.T) {
	root := writeTree(t, map[string]string{"A.PY": "print(1)\n", "b.go": "package b\n"})
	got, err := New(Options{Extensions: []string{"py", " "}}, nil).Collect(context.Background(), root)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(got, "A.PY") || strings.Contains(got, "b.go") {
		t.Errorf("Collect() = %q", got)
	}
}

func TestCollect_Limits(t *testing.T) {
	root := writeTree(t, map[string]string{
		"a.go": strings.Repeat("a", 100),
		"b.go": strings.Repeat("b", 100),
		"c.go": "c",
	})
	opts := Options{Extensions: []string{".go"}, MaxFileBytes: 60, MaxTotalBytes: 100}
	got, err := New(opts, nil).Collect(context.Background(), root)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(got, "=== a.go ===\n"+strings.Repeat("a", 60)+"\n[truncated]\n") {
		t.Errorf("per-file cap not applied: %q", got)
	}
	if !strings.Contains(got, "=== b.go ===\n"+strings.Repeat("b", 40)+"\n[truncated]\n") {
		t.Errorf("total cap not applied: %q", got)
	}
	if !strings.Contains(got, "[1 more files omitted") {
		t.Errorf("omission note missing: %q", got)
	}
}

func TestCollect_InvalidTarget(t *testing.T) {
	c := New(DefaultOptions(), nil)
	_, err := c.Collect(context.Background(), filepath.Join(t.TempDir(), "missing"))
	if !core.HasCode(err, core.CodeInvalidTarget) {
		t.Errorf("missing dir: %v", err)
	}

	root := writeTree(t, map[string]string{"f.go": "x"})
	_, err = c.Collect(context.Background(), filepath.Join(root, "f.go"))
	if !core.HasCode(err, core.CodeInvalidTarget) {
		t.Errorf("file target: %v", err)
	}
}

func TestCollect_Cancelled(t *testing.T) {
	root := writeTree(t, map[string]string{"a.go": "x"})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := New(DefaultOptions(), nil).Collect(ctx, root); err != context.Canceled {
		t.Errorf("Collect() error = %v, want context.Canceled", err)
	}
}
