// Package config holds the engine settings read by the command line tool.
package config

import (
	"os"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/born-ml/tensoreval/internal/optimize"
	"github.com/born-ml/tensoreval/internal/parallel"
	"github.com/born-ml/tensoreval/internal/plan"
	"github.com/born-ml/tensoreval/internal/tensor"
)

// Value builder backends.
const (
	BackendFast   = "fast"
	BackendSimple = "simple"
)

// Config controls how expressions are compiled and evaluated.
type Config struct {
	Backend         string   `yaml:"backend"`          // Value builder factory: fast or simple.
	Optimize        bool     `yaml:"optimize"`         // Whether specialized kernels replace generic nodes.
	LogLevel        string   `yaml:"log_level"`        // debug, info, warn or error.
	PlanCacheSize   int      `yaml:"plan_cache_size"`  // Join and reduce plans kept per kind. 0 disables caching.
	DisabledKernels []string `yaml:"disabled_kernels"` // Optimizer rules to skip.
	Jobs            int      `yaml:"jobs"`             // Expression files evaluated at once. 0 means one per CPU.
}

// Default returns the settings used when no file is given.
func Default() Config {
	return Config{
		Backend:       BackendFast,
		Optimize:      true,
		LogLevel:      "info",
		PlanCacheSize: plan.DefaultCacheSize,
	}
}

// Parse reads YAML on top of the defaults and validates the result.
func Parse(data []byte) (Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, errors.Wrap(err, "parse config")
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Load reads a YAML config file.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, errors.Wrapf(err, "read config %s", path)
	}
	return Parse(data)
}

// Validate checks every field.
func (c Config) Validate() error {
	switch c.Backend {
	case BackendFast, BackendSimple:
	default:
		return errors.Errorf("unknown backend %q", c.Backend)
	}
	if _, err := c.levelOption(); err != nil {
		return err
	}
	if c.PlanCacheSize < 0 {
		return errors.Errorf("plan_cache_size must not be negative, got %d", c.PlanCacheSize)
	}
	if c.Jobs < 0 {
		return errors.Errorf("jobs must not be negative, got %d", c.Jobs)
	}
	known := make(map[string]bool)
	for _, r := range optimize.DefaultRules() {
		known[r.Name] = true
	}
	for _, name := range c.DisabledKernels {
		if !known[name] {
			return errors.Errorf("unknown kernel %q", name)
		}
	}
	return nil
}

func (c Config) levelOption() (level.Option, error) {
	switch c.LogLevel {
	case "debug":
		return level.AllowDebug(), nil
	case "info", "":
		return level.AllowInfo(), nil
	case "warn":
		return level.AllowWarn(), nil
	case "error":
		return level.AllowError(), nil
	}
	return nil, errors.Errorf("unknown log level %q", c.LogLevel)
}

// Factory returns the configured value builder factory.
func (c Config) Factory() tensor.ValueBuilderFactory {
	if c.Backend == BackendSimple {
		return tensor.SimpleValueBuilderFactory{}
	}
	return tensor.FastValueBuilderFactory{}
}

// PlanCache returns a new plan cache, or nil when caching is disabled.
func (c Config) PlanCache() (*plan.Cache, error) {
	if c.PlanCacheSize == 0 {
		return nil, nil
	}
	return plan.NewCache(c.PlanCacheSize)
}

// Logger filters l by the configured level.
func (c Config) Logger(l log.Logger) log.Logger {
	opt, err := c.levelOption()
	if err != nil {
		opt = level.AllowInfo()
	}
	return level.NewFilter(l, opt)
}

// Optimizer returns the configured optimizer, or nil when optimization is off.
func (c Config) Optimizer(opts ...optimize.Option) *optimize.Optimizer {
	if !c.Optimize {
		return nil
	}
	opts = append(opts, optimize.WithDisabled(c.DisabledKernels...))
	return optimize.New(opts...)
}

// Parallel returns the worker settings for evaluating several files.
func (c Config) Parallel() parallel.Config {
	return parallel.Config{Workers: c.Jobs}
}
