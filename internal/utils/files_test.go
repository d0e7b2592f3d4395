package utils

import (
	"os"
	"path/filepath"
	"testing"
)

func TestSafeWriteFileReplacesContent(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "out.csv")
	if err := SafeWriteFile(p, []byte("a\n")); err != nil {
		t.Fatalf("first write: %v", err)
	}
	if err := SafeWriteFile(p, []byte("b\n")); err != nil {
		t.Fatalf("second write: %v", err)
	}
	b, err := os.ReadFile(p)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(b) != "b\n" {
		t.Fatalf("content = %q", b)
	}
	if _, err := os.Stat(p + ".tmp"); !os.IsNotExist(err) {
		t.Fatalf("temp file left behind: %v", err)
	}
}

func TestOutputPath(t *testing.T) {
	if got := OutputPath("out", "a.csv"); got != filepath.Join("out", "a.csv") {
		t.Fatalf("joined = %q", got)
	}
	if got := OutputPath("", "a.csv"); got != "a.csv" {
		t.Fatalf("no dir = %q", got)
	}
	nested := filepath.Join("x", "a.csv")
	if got := OutputPath("out", nested); got != nested {
		t.Fatalf("nested = %q", got)
	}
}

func TestDerivedName(t *testing.T) {
	if got := DerivedName("data.csv", "long"); got != "data_long.csv" {
		t.Fatalf("got %q", got)
	}
	if got := DerivedName("data", "long"); got != "data_long.csv" {
		t.Fatalf("no ext got %q", got)
	}
}
