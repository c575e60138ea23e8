package fsutil

import (
	"os"
	"path/filepath"
	"testing"
)

func TestExpandHome(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("USERPROFILE", home)

	cases := map[string]string{
		"":           "",
		"/tmp":       "/tmp",
		"~":          home,
		"~/models":   filepath.Join(home, "models"),
		"~other/x":   "~other/x",
		"rel/~/path": "rel/~/path",
	}
	for in, want := range cases {
		got, err := ExpandHome(in)
		if err != nil {
			t.Fatalf("%q: %v", in, err)
		}
		if got != want {
			t.Fatalf("ExpandHome(%q)=%q, want %q", in, got, want)
		}
	}
}

func TestAbs(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("USERPROFILE", home)
	got, err := Abs("~/a/../b")
	if err != nil {
		t.Fatalf("Abs: %v", err)
	}
	if got != filepath.Join(home, "b") {
		t.Fatalf("got %q", got)
	}
	rel, err := Abs("x.gguf")
	if err != nil || !filepath.IsAbs(rel) {
		t.Fatalf("relative path not made absolute: %q err=%v", rel, err)
	}
}

func TestIsFile(t *testing.T) {
	dir := t.TempDir()
	if IsFile(dir) {
		t.Fatalf("directory reported as file")
	}
	f := filepath.Join(dir, ".env")
	if IsFile(f) {
		t.Fatalf("%q should not exist yet", f)
	}
	if err := os.WriteFile(f, []byte("A=1\n"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	if !IsFile(f) {
		t.Fatalf("%q should be a file", f)
	}
}
