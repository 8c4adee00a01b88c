package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, `
project: "test-proj"
account: "0x1111111111111111111111111111111111111111"
nodes:
  - url: "127.0.0.1:10997"
    priority: 10
    rate_limit: 50
    max_concurrent: 4
listener:
  name: "token"
  address: "0xCCCCCCCCCCCCCCCCCCCCCCCCCCCCCCCCCCCCCCCC"
  events: ["Transfer"]
  batch_size: 50
  retry_interval: "1s"
outputs:
  console:
    enabled: true
  webhook:
    enabled: true
    url: "http://localhost"
    retry:
      max_attempts: 3
      initial_backoff: "500ms"
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "test-proj", cfg.Project)
	require.Len(t, cfg.Nodes, 1)
	assert.Equal(t, "127.0.0.1:10997", cfg.Nodes[0].URL)
	assert.Equal(t, 10, cfg.Nodes[0].Priority)
	assert.Equal(t, 50.0, cfg.Nodes[0].RateLimit)
	assert.Equal(t, 4, cfg.Nodes[0].MaxConcurrent)
	assert.Equal(t, uint64(50), cfg.Listener.BatchSize)
	assert.Equal(t, 1*time.Second, cfg.Listener.RetryInterval)
	assert.Equal(t, []string{"Transfer"}, cfg.Listener.Events)
	assert.True(t, cfg.Outputs.Console.Enabled)
	assert.Equal(t, 500*time.Millisecond, cfg.Outputs.Webhook.Retry.InitialBackoff)

	_, err = Load("non_existent_file.yaml")
	assert.Error(t, err)

	_, err = Load(writeConfig(t, "invalid_yaml: [ unclosed bracket"))
	assert.Error(t, err)
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, `project: "defaults"`))
	require.NoError(t, err)

	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, uint64(100), cfg.Listener.BatchSize)
	assert.Equal(t, 3*time.Second, cfg.Listener.RetryInterval)
	assert.Equal(t, "defaults", cfg.Listener.Name)
	assert.Equal(t, "memory", cfg.Storage.Type)
	assert.Equal(t, "defaults_", cfg.Storage.Prefix)
}

func TestDefault(t *testing.T) {
	cfg := Default()
	assert.Equal(t, "burrow", cfg.Project)
	assert.Empty(t, cfg.Nodes)
	assert.Equal(t, uint64(100), cfg.Listener.BatchSize)
}

func TestLoad_ChainPreset(t *testing.T) {
	cfg, err := Load(writeConfig(t, `chain: "burrow-local"`))
	require.NoError(t, err)
	require.Len(t, cfg.Nodes, 1)
	assert.Equal(t, "127.0.0.1:10997", cfg.Nodes[0].URL)
	assert.Equal(t, uint64(500), cfg.Listener.BatchSize)

	_, err = Load(writeConfig(t, `chain: "nowhere"`))
	assert.ErrorContains(t, err, "unknown chain preset")
}

func TestLoad_EnvVars(t *testing.T) {
	path := writeConfig(t, `
project: "default"
listener:
  batch_size: 10
`)
	t.Setenv("BURROW_PROJECT", "env-project")
	t.Setenv("BURROW_LISTENER_BATCH_SIZE", "999")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "env-project", cfg.Project)
	assert.Equal(t, uint64(999), cfg.Listener.BatchSize)
}

func TestListenerABI(t *testing.T) {
	inline := &Config{Listener: ListenerConfig{ABI: ` [{"type":"event","name":"E","inputs":[]}]`}}
	b, err := inline.ListenerABI()
	require.NoError(t, err)
	assert.Contains(t, string(b), `"name":"E"`)

	path := filepath.Join(t.TempDir(), "token.abi")
	require.NoError(t, os.WriteFile(path, []byte(`[]`), 0o600))
	fromFile := &Config{Listener: ListenerConfig{ABI: path}}
	b, err = fromFile.ListenerABI()
	require.NoError(t, err)
	assert.Equal(t, "[]", string(b))

	_, err = (&Config{}).ListenerABI()
	assert.Error(t, err)
}
