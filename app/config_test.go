package app

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"socanalyzer/oracle"
)

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1:8080", cfg.Server.ListenAddr)
	assert.Equal(t, "socanalyzer.db", cfg.Database.Path)
	assert.Equal(t, oracle.KindTGI, cfg.Oracle.Kind)
	assert.Equal(t, 3, cfg.Retriever.TopK)
}

func TestLoadFromYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  listen_addr: "0.0.0.0:9000"
  max_concurrent: 4
database:
  path: /tmp/soc.db
oracle:
  base_url: http://tgi:5005/generate
  kind: tgi
  max_tokens: 400
logging:
  level: debug
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0:9000", cfg.Server.ListenAddr)
	assert.Equal(t, 4, cfg.Server.MaxConcurrent)
	assert.Equal(t, "/tmp/soc.db", cfg.Database.Path)
	assert.Equal(t, "http://tgi:5005/generate", cfg.Oracle.BaseURL)
	assert.Equal(t, 400, cfg.Oracle.MaxTokens)
	assert.Equal(t, "debug", cfg.Logging.Level)
	// Unspecified fields keep their defaults.
	assert.Equal(t, int64(1<<20), cfg.Server.MaxBodyBytes)
}

func TestLoadMalformedYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server: ["), 0o644))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("SOC_LISTEN_ADDR", "127.0.0.1:7777")
	t.Setenv("SOC_ORACLE_URL", "http://override:5005/generate")
	t.Setenv("SOC_ORACLE_TIMEOUT", "120")

	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1:7777", cfg.Server.ListenAddr)
	assert.Equal(t, "http://override:5005/generate", cfg.Oracle.BaseURL)
	assert.Equal(t, 120, cfg.Oracle.TimeoutSec)
}

func TestEnvOverrideMalformedNumberIgnored(t *testing.T) {
	t.Setenv("SOC_ORACLE_TIMEOUT", "not-a-number")

	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, 60, cfg.Oracle.TimeoutSec)
}

func TestValidate(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Server.ListenAddr = ""
	assert.ErrorIs(t, cfg.Validate(), ErrInvalidListenAddr)

	cfg = NewDefaultConfig()
	cfg.Database.Path = ""
	assert.ErrorIs(t, cfg.Validate(), ErrInvalidDatabase)

	// Zero tuning values are filled, not rejected.
	cfg = NewDefaultConfig()
	cfg.Server.MaxConcurrent = 0
	cfg.Retriever.TopK = -1
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 16, cfg.Server.MaxConcurrent)
	assert.Equal(t, 3, cfg.Retriever.TopK)
}
