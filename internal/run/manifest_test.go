package run_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/KaramelBytes/darwinprep/internal/run"
)

func TestManifestSaveLoadList(t *testing.T) {
	dir := t.TempDir()

	m := run.NewManifest("run", "DARWIN.csv", dir)
	if m.ID == "" {
		t.Fatal("expected generated id")
	}
	m.AddStep("clean", 15*time.Millisecond, map[string]any{"rows": 174})
	m.AddOutput(run.Artifact{Kind: "cleaned", Path: "DARWIN_cleaned.csv", Rows: 174, Cols: 452})
	m.Config = map[string]any{"variance_threshold": 0.001}
	if err := m.Save(); err != nil {
		t.Fatalf("save: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, m.ID, "run.json")); err != nil {
		t.Fatalf("run.json not written: %v", err)
	}

	got, err := run.LoadManifest(m.RootDir())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got.ID != m.ID || got.Input != "DARWIN.csv" {
		t.Fatalf("unexpected manifest: %+v", got)
	}
	if len(got.Steps) != 1 || got.Steps[0].Duration != 15*time.Millisecond {
		t.Fatalf("steps not round-tripped: %+v", got.Steps)
	}
	if len(got.Outputs) != 1 || got.Outputs[0].Cols != 452 {
		t.Fatalf("outputs not round-tripped: %+v", got.Outputs)
	}

	older := run.NewManifest("reduce", "x.csv", dir)
	older.CreatedAt = m.CreatedAt.Add(-time.Hour)
	if err := older.Save(); err != nil {
		t.Fatal(err)
	}
	// stray directory without run.json is ignored
	if err := os.MkdirAll(filepath.Join(dir, "junk"), 0o755); err != nil {
		t.Fatal(err)
	}

	all, err := run.List(dir)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(all) != 2 || all[0].ID != m.ID || all[1].ID != older.ID {
		t.Fatalf("unexpected list order: %d runs", len(all))
	}
}

func TestListMissingDir(t *testing.T) {
	all, err := run.List(filepath.Join(t.TempDir(), "nope"))
	if err != nil || len(all) != 0 {
		t.Fatalf("expected empty list, got %v %v", all, err)
	}
}

func TestLoadManifestMissing(t *testing.T) {
	if _, err := run.LoadManifest(t.TempDir()); err == nil {
		t.Fatal("expected error")
	}
}
