package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

const darwinCSV = "ID,class,air_time1,air_time2,air_time3,total_time1,total_time2,total_time3,pressure_mean1,pressure_mean2,pressure_mean3\n" +
	"id_1,P,5,10,12,100,250,130,1500,1700,1600\n" +
	"id_2,H,5,14,9,120,200,180,1400,1800,1650\n" +
	"id_3,P,5,8,15,90,260,150,1550,1600,1700\n" +
	"id_4,H,5,12,11,110,230,170,1450,1750,1620\n"

// resetFlags restores every flag to its default so state does not leak
// between invocations of the shared rootCmd.
func resetFlags(c *cobra.Command) {
	reset := func(fl *pflag.Flag) {
		if sv, ok := fl.Value.(pflag.SliceValue); ok {
			_ = sv.Replace(nil)
		} else {
			_ = fl.Value.Set(fl.DefValue)
		}
		fl.Changed = false
	}
	c.Flags().VisitAll(reset)
	c.PersistentFlags().VisitAll(reset)
	for _, sub := range c.Commands() {
		resetFlags(sub)
	}
}

// runCmd is a helper to execute the root command with args, returning stdout.
func runCmd(t *testing.T, args ...string) string {
	t.Helper()
	out, err := execCmd(args...)
	if err != nil {
		t.Fatalf("command %v failed: %v\n%s", args, err, out)
	}
	return out
}

func execCmd(args ...string) (string, error) {
	resetFlags(rootCmd)
	cfg = nil
	var buf bytes.Buffer
	rootCmd.SetOut(&buf)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return buf.String(), err
}

func setupHome(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	oldHome := os.Getenv("HOME")
	t.Cleanup(func() { os.Setenv("HOME", oldHome) })
	os.Setenv("HOME", home)
	return home
}

func writeInput(t *testing.T, dir, body string) string {
	t.Helper()
	p := filepath.Join(dir, "DARWIN.csv")
	if err := os.WriteFile(p, []byte(body), 0o644); err != nil {
		t.Fatalf("write input: %v", err)
	}
	return p
}

func TestCLI_ConfigSetShow(t *testing.T) {
	home := setupHome(t)

	runCmd(t, "config", "set", "correlation_threshold", "0.9")
	runCmd(t, "config", "set", "class_labels", "Patient=0,Healthy=1")
	out := runCmd(t, "config", "show")
	if !strings.Contains(out, "correlation_threshold: 0.9") {
		t.Fatalf("threshold not persisted:\n%s", out)
	}
	if _, err := os.Stat(filepath.Join(home, ".darwinprep", "config.yaml")); err != nil {
		t.Fatalf("config file not written: %v", err)
	}
	if _, err := execCmd("config", "set", "bin_strategy", "kmeans"); err == nil {
		t.Fatal("expected invalid bin_strategy error")
	}
	if _, err := execCmd("config", "set", "nope", "1"); err == nil {
		t.Fatal("expected unknown key error")
	}
}

func TestCLI_CleanValidateReshapeReduce(t *testing.T) {
	home := setupHome(t)
	input := writeInput(t, home, darwinCSV)
	outDir := filepath.Join(home, "out")

	out := runCmd(t, "clean", input, "--output-dir", outDir, "--long")
	if !strings.Contains(out, "Initial data shape: (4, 11)") {
		t.Fatalf("missing inspection summary:\n%s", out)
	}
	cleaned := filepath.Join(outDir, "DARWIN_cleaned.csv")
	b, err := os.ReadFile(cleaned)
	if err != nil {
		t.Fatalf("cleaned file: %v", err)
	}
	if !strings.Contains(string(b), "id_1,0,") {
		t.Fatalf("class not recoded:\n%s", b)
	}
	if _, err := os.Stat(filepath.Join(outDir, "DARWIN_long.csv")); err != nil {
		t.Fatalf("long file: %v", err)
	}

	out = runCmd(t, "validate", cleaned)
	if !strings.Contains(out, "✓ Validation passed") {
		t.Fatalf("validate output:\n%s", out)
	}

	long := filepath.Join(outDir, "long.csv")
	db := filepath.Join(outDir, "darwin.db")
	out = runCmd(t, "reshape", cleaned, "-o", long, "--sqlite", db)
	if !strings.Contains(out, "Found 3 metrics across 3 common trials") {
		t.Fatalf("reshape output:\n%s", out)
	}
	if _, err := os.Stat(db); err != nil {
		t.Fatalf("sqlite file: %v", err)
	}

	npy := filepath.Join(outDir, "features.npy")
	out = runCmd(t, "reduce", cleaned, "--output-dir", outDir, "--npy", npy, "--clusters", "2")
	if !strings.Contains(out, "Preprocessing complete") || !strings.Contains(out, "KMeans: 2 clusters") {
		t.Fatalf("reduce output:\n%s", out)
	}
	for _, p := range []string{filepath.Join(outDir, "DARWIN_standardized.csv"), npy} {
		if _, err := os.Stat(p); err != nil {
			t.Fatalf("missing %s: %v", p, err)
		}
	}
}

func TestCLI_ValidateFailsOnDuplicateIDs(t *testing.T) {
	home := setupHome(t)
	input := writeInput(t, home, darwinCSV+"id_1,P,5,10,12,100,250,130,1500,1700,1600\n")

	out, err := execCmd("validate", input)
	if err == nil {
		t.Fatal("expected validation error")
	}
	if !strings.Contains(err.Error(), "duplication") {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(out, "IDs are duplicated") {
		t.Fatalf("missing report:\n%s", out)
	}
}

func TestCLI_RunRecordsManifest(t *testing.T) {
	home := setupHome(t)
	input := writeInput(t, home, darwinCSV)
	outDir := filepath.Join(home, "out")

	out := runCmd(t, "run", input, "--output-dir", outDir, "--sqlite", "--npy")
	if !strings.Contains(out, "recorded in") {
		t.Fatalf("run output:\n%s", out)
	}
	for _, name := range []string{"DARWIN_cleaned.csv", "DARWIN_long.csv", "DARWIN_standardized.csv", "DARWIN.db", "DARWIN_features.npy"} {
		if _, err := os.Stat(filepath.Join(outDir, name)); err != nil {
			t.Fatalf("missing %s: %v", name, err)
		}
	}
	out = runCmd(t, "runs")
	if !strings.Contains(out, input) {
		t.Fatalf("runs listing:\n%s", out)
	}
}

func TestCLI_Profile(t *testing.T) {
	home := setupHome(t)
	input := writeInput(t, home, darwinCSV)
	dest := filepath.Join(home, "profile.md")
	runCmd(t, "profile", input, "-o", dest, "--correlations", "--group-by", "class")
	b, err := os.ReadFile(dest)
	if err != nil {
		t.Fatalf("profile file: %v", err)
	}
	if !strings.Contains(string(b), "[DATASET SUMMARY]") {
		t.Fatalf("unexpected profile:\n%s", b)
	}
}

func TestCLI_IDColumnFlagOverridesConfig(t *testing.T) {
	home := setupHome(t)
	input := writeInput(t, home, "subject"+strings.TrimPrefix(darwinCSV, "ID"))

	if _, err := execCmd("validate", input); err == nil {
		t.Fatal("expected linkage failure without --id-column")
	}
	out := runCmd(t, "validate", input, "--id-column", "subject")
	if !strings.Contains(out, "✓ Validation passed") {
		t.Fatalf("validate output:\n%s", out)
	}
}
