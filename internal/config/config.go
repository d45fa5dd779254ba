package config

import (
	"errors"
	"fmt"
	"time"
)

// Sampler policy names accepted in configuration.
const (
	PolicyUniform   = "uniform"
	PolicyLogNormal = "lognormal"
)

// Defaults applied when the configuration file omits a setting.
const (
	DefaultBenchTimeout      = "5m"
	DefaultJobs              = 1
	DefaultSamplerPolicy     = PolicyUniform
	DefaultSamplerSigma      = 0.5
	DefaultSamplerMaxRetries = 1000
)

// ErrUnknownBench is returned when a benchmark name is not in the catalog.
var ErrUnknownBench = errors.New("unknown benchmark")

// ErrInvalidConfig is returned when a loaded configuration fails validation.
var ErrInvalidConfig = errors.New("invalid configuration")

// Config is the top-level perftool configuration, loaded once and passed by
// reference into constructors. There is no ambient global.
type Config struct {
	Repo         string           `mapstructure:"repo"`
	BenchTimeout string           `mapstructure:"bench_timeout"`
	Jobs         int              `mapstructure:"jobs"`
	Sampler      SamplerConfig    `mapstructure:"sampler"`
	Benches      map[string]Bench `mapstructure:"benches"`
}

// SamplerConfig selects the parameter sampling policy.
type SamplerConfig struct {
	Policy     string  `mapstructure:"policy"`
	Mean       float64 `mapstructure:"mean"`
	Sigma      float64 `mapstructure:"sigma"`
	MaxRetries int     `mapstructure:"max_retries"`
}

// Bench describes one benchmark: the parameter and output column names, a
// human description, and the labelled revision series to compare. Immutable
// once loaded.
type Bench struct {
	Parameter   string            `mapstructure:"parameter"`
	Output      string            `mapstructure:"output"`
	Description string            `mapstructure:"description"`
	Benches     map[string]Series `mapstructure:"benches"`
}

// Series maps a display label to the revision and entry point it benchmarks.
type Series struct {
	Commit        string `mapstructure:"commit"`
	BenchFunction string `mapstructure:"bench_function"`
	ELF           string `mapstructure:"elf"`
}

// Bench returns the descriptor for name.
func (c *Config) Bench(name string) (Bench, error) {
	bench, ok := c.Benches[name]
	if !ok {
		return Bench{}, fmt.Errorf("%w: %s", ErrUnknownBench, name)
	}

	return bench, nil
}

// BenchTimeoutDuration returns the parsed benchmark subprocess timeout.
func (c *Config) BenchTimeoutDuration() time.Duration {
	d, err := time.ParseDuration(c.BenchTimeout)
	if err != nil {
		d, _ = time.ParseDuration(DefaultBenchTimeout)
	}

	return d
}

// Validate checks semantic constraints the JSON schema cannot express.
func (c *Config) Validate() error {
	_, timeoutErr := time.ParseDuration(c.BenchTimeout)
	if timeoutErr != nil {
		return fmt.Errorf("%w: bench_timeout: %v", ErrInvalidConfig, timeoutErr)
	}

	if c.Jobs < 1 {
		return fmt.Errorf("%w: jobs must be >= 1, got %d", ErrInvalidConfig, c.Jobs)
	}

	if c.Sampler.Policy != PolicyUniform && c.Sampler.Policy != PolicyLogNormal {
		return fmt.Errorf("%w: unknown sampler policy %q", ErrInvalidConfig, c.Sampler.Policy)
	}

	if c.Sampler.Policy == PolicyLogNormal && c.Sampler.Mean <= 0 {
		return fmt.Errorf("%w: lognormal sampler requires a positive mean", ErrInvalidConfig)
	}

	for name, bench := range c.Benches {
		validateErr := validateBench(name, bench)
		if validateErr != nil {
			return validateErr
		}
	}

	return nil
}

func validateBench(name string, bench Bench) error {
	if bench.Parameter == bench.Output {
		return fmt.Errorf("%w: bench %s: parameter and output columns must differ", ErrInvalidConfig, name)
	}

	for label, series := range bench.Benches {
		if series.BenchFunction == "" {
			return fmt.Errorf("%w: bench %s label %s: bench_function is required", ErrInvalidConfig, name, label)
		}
	}

	return nil
}
