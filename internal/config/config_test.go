package config

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/born-ml/tensoreval/internal/optimize"
	"github.com/born-ml/tensoreval/internal/tensor"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, "fast", cfg.Factory().Name())
	assert.NotNil(t, cfg.Optimizer())

	cache, err := cfg.PlanCache()
	require.NoError(t, err)
	assert.NotNil(t, cache)
}

func TestParse(t *testing.T) {
	cfg, err := Parse([]byte(`
backend: simple
optimize: true
log_level: debug
plan_cache_size: 0
disabled_kernels: [dense_matmul, join_with_number]
jobs: 3
`))
	require.NoError(t, err)
	assert.Equal(t, 3, cfg.Parallel().Workers)
	assert.Equal(t, tensor.SimpleValueBuilderFactory{}, cfg.Factory())

	cache, err := cfg.PlanCache()
	require.NoError(t, err)
	assert.Nil(t, cache)

	kernels := cfg.Optimizer().Kernels()
	assert.NotContains(t, kernels, optimize.KernelDenseMatMul)
	assert.NotContains(t, kernels, optimize.KernelJoinWithNumber)
	assert.Contains(t, kernels, optimize.KernelDenseMultiMatMul)
}

func TestParse_KeepsDefaultsForMissingFields(t *testing.T) {
	cfg, err := Parse([]byte("optimize: false\n"))
	require.NoError(t, err)
	assert.Nil(t, cfg.Optimizer())
	assert.Equal(t, BackendFast, cfg.Backend)
	assert.Equal(t, Default().PlanCacheSize, cfg.PlanCacheSize)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"backend", func(c *Config) { c.Backend = "gpu" }},
		{"log level", func(c *Config) { c.LogLevel = "trace" }},
		{"plan cache size", func(c *Config) { c.PlanCacheSize = -1 }},
		{"kernel", func(c *Config) { c.DisabledKernels = []string{"dense_conv"} }},
		{"jobs", func(c *Config) { c.Jobs = -2 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}

	_, err := Parse([]byte("backend: [fast"))
	assert.Error(t, err)
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tensoreval.yaml")
	require.NoError(t, os.WriteFile(path, []byte("backend: simple\n"), 0o600))
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, BackendSimple, cfg.Backend)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestLogger(t *testing.T) {
	var buf bytes.Buffer
	cfg := Default()
	cfg.LogLevel = "warn"
	logger := cfg.Logger(log.NewLogfmtLogger(&buf))
	require.NoError(t, level.Info(logger).Log("msg", "hidden"))
	require.NoError(t, level.Warn(logger).Log("msg", "shown"))
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "shown")
}
