package config

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	c, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "ID", c.IDColumn)
	assert.Equal(t, "class", c.ClassColumn)
	assert.Equal(t, 1e-3, c.VarianceThreshold)
	assert.Equal(t, 0.95, c.CorrelationThreshold)
	assert.Equal(t, 1, c.RoundDecimals)
	assert.Equal(t, 300, c.KMeansIterations)
	assert.Equal(t, "uniform", c.BinStrategy)
	assert.Len(t, c.MetricPrefixes, 12)
	assert.Len(t, c.ClassLabels, 4)
	assert.Equal(t, filepath.Join(home, ".darwinprep", "runs"), c.RunsDir)
}

func TestDefaultsMatchLoad(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	d := Defaults()
	assert.Equal(t, filepath.Join(home, ".darwinprep", "runs"), d.RunsDir)
	assert.Equal(t, 0, d.ClassLabels["Patient"])
	assert.Equal(t, 1, d.ClassLabels["H"])
	assert.Len(t, d.MetricPrefixes, 12)

	c, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, d.RunsDir, c.RunsDir)
	assert.Equal(t, d.MetricPrefixes, c.MetricPrefixes)
	assert.Equal(t, d.IQRFactor, c.IQRFactor)
	assert.Equal(t, d.OutputDir, c.OutputDir)
}

func TestLoadEnvOverridesDefault(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("DARWINPREP_CORRELATION_THRESHOLD", "0.8")
	t.Setenv("DARWINPREP_ID_COLUMN", "subject")

	c, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 0.8, c.CorrelationThreshold)
	assert.Equal(t, "subject", c.IDColumn)
}

func TestSaveThenLoad(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	path := filepath.Join(t.TempDir(), "config.yaml")

	c, err := Load("")
	require.NoError(t, err)
	c.PCAComponents = 5
	c.RunsDir = "/tmp/runs"
	require.NoError(t, Save(c, path))

	got, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 5, got.PCAComponents)
	assert.Equal(t, "/tmp/runs", got.RunsDir)
	assert.Equal(t, 0, got.ClassLabels["patient"]+got.ClassLabels["Patient"])
	assert.Equal(t, 1, got.ClassLabels["healthy"]+got.ClassLabels["Healthy"])
}
