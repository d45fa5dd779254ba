package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/0xmozak/perftool/internal/config"
)

const sampleConfig = `{
  "repo": "/srv/vm",
  "bench_timeout": "2m",
  "benches": {
    "matrix-multiply": {
      "parameter": "size",
      "output": "seconds",
      "description": "Dense matrix multiplication",
      "benches": {
        "baseline": {"commit": "abc123", "bench_function": "matmul"},
        "tuned": {"commit": "def456", "bench_function": "matmul", "elf": "guest"}
      }
    }
  }
}`

func writeConfig(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), config.DefaultFile)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	return path
}

func TestLoad_Sample(t *testing.T) {
	t.Parallel()

	cfg, err := config.Load(writeConfig(t, sampleConfig))
	require.NoError(t, err)

	assert.Equal(t, "/srv/vm", cfg.Repo)
	assert.Equal(t, 2*time.Minute, cfg.BenchTimeoutDuration())
	assert.Equal(t, config.DefaultJobs, cfg.Jobs)
	assert.Equal(t, config.PolicyUniform, cfg.Sampler.Policy)

	bench, err := cfg.Bench("matrix-multiply")
	require.NoError(t, err)
	assert.Equal(t, "size", bench.Parameter)
	assert.Equal(t, "seconds", bench.Output)
	assert.Len(t, bench.Benches, 2)
	assert.Equal(t, "guest", bench.Benches["tuned"].ELF)
}

func TestLoad_MissingFile(t *testing.T) {
	t.Parallel()

	_, err := config.Load(filepath.Join(t.TempDir(), "absent.json"))
	require.Error(t, err)
}

func TestLoad_UnknownBench(t *testing.T) {
	t.Parallel()

	cfg, err := config.Load(writeConfig(t, sampleConfig))
	require.NoError(t, err)

	_, err = cfg.Bench("no-such-bench")
	require.ErrorIs(t, err, config.ErrUnknownBench)
}

func TestLoad_SchemaRejectsMissingParameter(t *testing.T) {
	t.Parallel()

	bad := `{
	  "benches": {
	    "broken": {
	      "output": "seconds",
	      "benches": {"a": {"commit": "abc", "bench_function": "f"}}
	    }
	  }
	}`

	_, err := config.Load(writeConfig(t, bad))
	require.ErrorIs(t, err, config.ErrInvalidConfig)
	assert.Contains(t, err.Error(), "parameter")
}

func TestLoad_SchemaRejectsEmptySeries(t *testing.T) {
	t.Parallel()

	bad := `{
	  "benches": {
	    "broken": {
	      "parameter": "size",
	      "output": "seconds",
	      "benches": {}
	    }
	  }
	}`

	_, err := config.Load(writeConfig(t, bad))
	require.ErrorIs(t, err, config.ErrInvalidConfig)
}

func TestLoad_SchemaRejectsNonStringCommit(t *testing.T) {
	t.Parallel()

	bad := `{
	  "benches": {
	    "broken": {
	      "parameter": "size",
	      "output": "seconds",
	      "benches": {"a": {"commit": 42, "bench_function": "f"}}
	    }
	  }
	}`

	_, err := config.Load(writeConfig(t, bad))
	require.ErrorIs(t, err, config.ErrInvalidConfig)
}

func TestValidate_LogNormalNeedsMean(t *testing.T) {
	t.Parallel()

	bad := `{
	  "sampler": {"policy": "lognormal"},
	  "benches": {
	    "ok": {
	      "parameter": "size",
	      "output": "seconds",
	      "benches": {"a": {"commit": "abc", "bench_function": "f"}}
	    }
	  }
	}`

	_, err := config.Load(writeConfig(t, bad))
	require.ErrorIs(t, err, config.ErrInvalidConfig)
	assert.Contains(t, err.Error(), "mean")
}

func TestValidate_SameColumnNames(t *testing.T) {
	t.Parallel()

	bad := `{
	  "benches": {
	    "broken": {
	      "parameter": "n",
	      "output": "n",
	      "benches": {"a": {"commit": "abc", "bench_function": "f"}}
	    }
	  }
	}`

	_, err := config.Load(writeConfig(t, bad))
	require.ErrorIs(t, err, config.ErrInvalidConfig)
}
