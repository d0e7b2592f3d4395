// Package run records what a pipeline invocation read, did, and wrote.
package run

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/KaramelBytes/darwinprep/internal/utils"
)

const manifestFileName = "run.json"

// Artifact is one file written by a run.
type Artifact struct {
	Kind string `json:"kind"`
	Path string `json:"path"`
	Rows int    `json:"rows"`
	Cols int    `json:"cols"`
}

// Step is one logged stage of a run.
type Step struct {
	Name     string         `json:"name"`
	Duration time.Duration  `json:"duration_ns"`
	Details  map[string]any `json:"details,omitempty"`
}

// Manifest is persisted as run.json under <runs_dir>/<id>/.
type Manifest struct {
	ID        string         `json:"id"`
	Command   string         `json:"command"`
	Input     string         `json:"input"`
	Outputs   []Artifact     `json:"outputs"`
	Steps     []Step         `json:"steps"`
	Config    map[string]any `json:"config,omitempty"`
	CreatedAt time.Time      `json:"created_at"`

	// Not serialized: directory holding run.json
	rootDir string `json:"-"`
}

// NewManifest constructs an in-memory manifest with a fresh ID rooted under runsDir.
// Call Save() to persist.
func NewManifest(command, input, runsDir string) *Manifest {
	id := uuid.NewString()
	return &Manifest{
		ID:        id,
		Command:   command,
		Input:     input,
		CreatedAt: time.Now().UTC(),
		rootDir:   filepath.Join(runsDir, id),
	}
}

// RootDir returns the on-disk run directory.
func (m *Manifest) RootDir() string { return m.rootDir }

// AddStep appends a completed step.
func (m *Manifest) AddStep(name string, d time.Duration, details map[string]any) {
	m.Steps = append(m.Steps, Step{Name: name, Duration: d, Details: details})
}

// AddOutput appends a written artifact.
func (m *Manifest) AddOutput(a Artifact) {
	m.Outputs = append(m.Outputs, a)
}

// Save writes run.json using atomic write.
func (m *Manifest) Save() error {
	if m.rootDir == "" {
		return errors.New("run directory not set")
	}
	if err := utils.EnsureDir(m.rootDir); err != nil {
		return fmt.Errorf("ensure dir: %w", err)
	}
	data, err := utils.PrettyJSON(m)
	if err != nil {
		return err
	}
	return utils.SafeWriteFile(filepath.Join(m.rootDir, manifestFileName), data)
}

// LoadManifest reads run.json from dir.
func LoadManifest(dir string) (*Manifest, error) {
	path := filepath.Join(dir, manifestFileName)
	b, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("run not found at %s: %w", path, err)
		}
		return nil, fmt.Errorf("read run: %w", err)
	}
	var m Manifest
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, fmt.Errorf("parse run: %w", err)
	}
	m.rootDir = dir
	return &m, nil
}

// List loads every manifest under runsDir, newest first. Directories
// without a readable run.json are skipped. A missing runsDir yields no runs.
func List(runsDir string) ([]*Manifest, error) {
	entries, err := os.ReadDir(runsDir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read runs dir: %w", err)
	}
	var out []*Manifest
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		m, err := LoadManifest(filepath.Join(runsDir, e.Name()))
		if err != nil {
			continue
		}
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}
