package config

import (
	"bytes"
	"fmt"
	"os"

	"github.com/spf13/viper"
)

// DefaultFile is the configuration file read when --config is not given.
const DefaultFile = "perftool.json"

// configType is the configuration file format.
const configType = "json"

// Load reads, schema-checks and unmarshals the configuration file at path.
// The file is required: every command needs the benchmark catalog.
func Load(path string) (*Config, error) {
	raw, readErr := os.ReadFile(path)
	if readErr != nil {
		return nil, fmt.Errorf("read config: %w", readErr)
	}

	schemaErr := validateDocument(raw)
	if schemaErr != nil {
		return nil, fmt.Errorf("%s: %w", path, schemaErr)
	}

	viperCfg := viper.New()

	applyDefaults(viperCfg)

	viperCfg.SetConfigType(configType)

	parseErr := viperCfg.ReadConfig(bytes.NewReader(raw))
	if parseErr != nil {
		return nil, fmt.Errorf("parse config: %w", parseErr)
	}

	var cfg Config

	unmarshalErr := viperCfg.Unmarshal(&cfg)
	if unmarshalErr != nil {
		return nil, fmt.Errorf("unmarshal config: %w", unmarshalErr)
	}

	validateErr := cfg.Validate()
	if validateErr != nil {
		return nil, fmt.Errorf("validate config: %w", validateErr)
	}

	return &cfg, nil
}

func applyDefaults(viperCfg *viper.Viper) {
	viperCfg.SetDefault("repo", ".")
	viperCfg.SetDefault("bench_timeout", DefaultBenchTimeout)
	viperCfg.SetDefault("jobs", DefaultJobs)

	viperCfg.SetDefault("sampler.policy", DefaultSamplerPolicy)
	viperCfg.SetDefault("sampler.sigma", DefaultSamplerSigma)
	viperCfg.SetDefault("sampler.max_retries", DefaultSamplerMaxRetries)
}
