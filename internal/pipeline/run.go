package pipeline

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/KaramelBytes/darwinprep/internal/export"
	"github.com/KaramelBytes/darwinprep/internal/reshape"
	"github.com/KaramelBytes/darwinprep/internal/run"
	"github.com/KaramelBytes/darwinprep/internal/table"
	"github.com/KaramelBytes/darwinprep/internal/utils"
	"github.com/KaramelBytes/darwinprep/internal/validate"
)

// Default output file names, matching the DARWIN preprocessing convention.
const (
	CleanedFile      = "DARWIN_cleaned.csv"
	LongFile         = "DARWIN_long.csv"
	StandardizedFile = "DARWIN_standardized.csv"
	DiscretizedFile  = "DARWIN_discretized.csv"
	SQLiteFile       = "DARWIN.db"
	FeaturesFile     = "DARWIN_features.npy"
)

// Outputs says where Run writes its artifacts.
type Outputs struct {
	Dir string
	// SQLite also stores the long and standardized tables in Dir/DARWIN.db.
	SQLite bool
	// Npy also writes the standardized feature matrix as .npy.
	Npy bool
	// RunsDir receives the run manifest; empty skips it.
	RunsDir string
	Config  map[string]any
}

// Result gathers everything Run produced.
type Result struct {
	Clean      *CleanResult
	Validation *validate.Report
	Long       *table.Table
	Layout     *reshape.Layout
	Reduce     *ReduceResult
	Manifest   *run.Manifest
	Artifacts  []run.Artifact
}

// Run reads input and executes clean, validate, reshape and reduce,
// writing every artifact into out.Dir. A failed hard validation check
// stops the run before anything is written.
func Run(ctx context.Context, input string, ro table.ReadOptions, opt Options, out Outputs, log *zap.Logger) (*Result, error) {
	if log == nil {
		log = zap.NewNop()
	}
	log = log.With(zap.String("input", input))
	var manifest *run.Manifest
	if out.RunsDir != "" {
		manifest = run.NewManifest("run", input, out.RunsDir)
		manifest.Config = out.Config
		log = log.With(zap.String("run_id", manifest.ID))
	}
	step := func(name string, start time.Time, details map[string]any) {
		d := time.Since(start)
		log.Debug("step finished", zap.String("step", name), zap.Duration("took", d))
		if manifest != nil {
			manifest.AddStep(name, d, details)
		}
	}

	start := time.Now()
	t, err := table.Read(input, ro)
	if err != nil {
		return nil, err
	}
	rows, cols := t.Shape()
	step("read", start, map[string]any{"rows": rows, "cols": cols})

	res := &Result{}
	start = time.Now()
	res.Clean, err = Clean(t, opt, log)
	if err != nil {
		return nil, err
	}
	step("clean", start, map[string]any{"duplicates": res.Clean.Duplicates, "outliers": res.Clean.Outliers})

	start = time.Now()
	res.Validation = validate.Run(t, validate.Options{ID: opt.ID, Class: opt.Class, Prefixes: opt.MetricPrefixes})
	step("validate", start, map[string]any{"passed": res.Validation.Passed()})
	if err := res.Validation.Err(); err != nil {
		return res, err
	}

	start = time.Now()
	res.Long, res.Layout, err = Long(t, opt, log)
	if err != nil {
		return res, err
	}
	step("reshape", start, map[string]any{"metrics": len(res.Layout.Metrics), "trials": len(res.Layout.Trials)})

	if err := ctx.Err(); err != nil {
		return res, err
	}

	// cleaned wide file is written before reduce mutates t
	if out.Dir == "" {
		out.Dir = "."
	}
	if err := utils.EnsureDir(out.Dir); err != nil {
		return res, fmt.Errorf("ensure output dir: %w", err)
	}
	if err := res.write(CleanedFile, "cleaned", t, out.Dir); err != nil {
		return res, err
	}
	if err := res.write(LongFile, "long", res.Long, out.Dir); err != nil {
		return res, err
	}

	start = time.Now()
	res.Reduce, err = Reduce(t, opt, log)
	if err != nil {
		return res, err
	}
	step("reduce", start, map[string]any{
		"low_variance": len(res.Reduce.LowVariance),
		"correlated":   len(res.Reduce.Correlated),
		"features":     len(res.Reduce.Features),
	})
	if err := res.write(StandardizedFile, "standardized", res.Reduce.Table, out.Dir); err != nil {
		return res, err
	}
	if res.Reduce.Discretized != nil {
		if err := res.write(DiscretizedFile, "discretized", res.Reduce.Discretized, out.Dir); err != nil {
			return res, err
		}
	}

	if out.SQLite {
		path := filepath.Join(out.Dir, SQLiteFile)
		if err := export.WriteSQLite(ctx, path, "trials", res.Long); err != nil {
			return res, err
		}
		if err := export.WriteSQLite(ctx, path, "subjects", res.Reduce.Table); err != nil {
			return res, err
		}
		res.Artifacts = append(res.Artifacts, run.Artifact{Kind: "sqlite", Path: path})
	}
	if out.Npy {
		path := filepath.Join(out.Dir, FeaturesFile)
		features := res.Reduce.Columns
		if err := export.WriteNpy(path, res.Reduce.Table, features); err != nil {
			return res, err
		}
		r, _ := res.Reduce.Table.Shape()
		res.Artifacts = append(res.Artifacts, run.Artifact{Kind: "npy", Path: path, Rows: r, Cols: len(features)})
	}

	if manifest != nil {
		for _, a := range res.Artifacts {
			manifest.AddOutput(a)
		}
		if err := manifest.Save(); err != nil {
			return res, fmt.Errorf("save run manifest: %w", err)
		}
		res.Manifest = manifest
		log.Info("run saved", zap.String("dir", manifest.RootDir()))
	}
	return res, nil
}

func (r *Result) write(name, kind string, t *table.Table, dir string) error {
	path := utils.OutputPath(dir, name)
	if err := table.Write(path, t); err != nil {
		return fmt.Errorf("write %s: %w", kind, err)
	}
	rows, cols := t.Shape()
	r.Artifacts = append(r.Artifacts, run.Artifact{Kind: kind, Path: path, Rows: rows, Cols: cols})
	return nil
}
