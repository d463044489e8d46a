package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func env(vars map[string]string) func(string) (string, bool) {
	return func(k string) (string, bool) {
		v, ok := vars[k]
		return v, ok
	}
}

func TestDefaults(t *testing.T) {
	cfg, err := Load("", false)
	require.NoError(t, err)
	assert.Equal(t, "localhost:9009", cfg.Address())
	assert.Equal(t, DefaultTimeout, cfg.Bridge.Timeout.Duration)
	assert.Equal(t, 100, cfg.Bridge.DefaultLimit)
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "binja-mcp.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
host = "127.0.0.1"
port = 9100
codec = "cbor"

[bridge]
timeout = "750ms"
default_limit = 50

[analysis]
snapshot = "program.yaml"
delay = "2s"
`), 0o644))

	cfg, err := Load(path, true)
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:9100", cfg.Address())
	assert.Equal(t, "cbor", cfg.Codec)
	assert.Equal(t, 750*time.Millisecond, cfg.Bridge.Timeout.Duration)
	assert.Equal(t, 50, cfg.Bridge.DefaultLimit)
	assert.Equal(t, MaxPageLimit, cfg.Bridge.MaxLimit)
	assert.Equal(t, "program.yaml", cfg.Analysis.Snapshot)
	assert.Equal(t, 2*time.Second, cfg.Analysis.Delay.Duration)
}

func TestMissingFile(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "nope.toml")
	_, err := Load(missing, false)
	assert.NoError(t, err)
	_, err = Load(missing, true)
	assert.Error(t, err)
}

func TestApplyEnv(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.ApplyEnv(env(map[string]string{
		EnvHost:    "10.0.0.2",
		EnvPort:    "9200",
		EnvTimeout: "2s",
	})))
	assert.Equal(t, "10.0.0.2:9200", cfg.Address())
	assert.Equal(t, 2*time.Second, cfg.Bridge.Timeout.Duration)

	require.NoError(t, cfg.ApplyEnv(env(map[string]string{EnvSocket: "/tmp/ops.sock"})))
	assert.Equal(t, "unix:///tmp/ops.sock", cfg.Address())

	assert.Error(t, cfg.ApplyEnv(env(map[string]string{EnvPort: "ninety"})))
	assert.Error(t, cfg.ApplyEnv(env(map[string]string{EnvTimeout: "soon"})))
}

func TestValidate(t *testing.T) {
	mutate := []func(*Config){
		func(c *Config) { c.Port = 0 },
		func(c *Config) { c.Host = "" },
		func(c *Config) { c.Codec = "xml" },
		func(c *Config) { c.Bridge.Timeout = Duration{} },
		func(c *Config) { c.Bridge.DefaultLimit = 5000 },
		func(c *Config) { c.Bridge.MaxLimit = 0 },
	}
	for i, m := range mutate {
		cfg := Default()
		m(cfg)
		assert.Error(t, cfg.Validate(), "case %d", i)
	}

	cfg := Default()
	cfg.Port = 0
	cfg.Socket = "/tmp/x.sock"
	assert.NoError(t, cfg.Validate())
}
