package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(p, []byte(body), 0o600))
	return p
}

func TestLoadParsesHumanFriendlyValues(t *testing.T) {
	p := writeConfig(t, `
server:
  address: "127.0.0.1"
  port: 9090
  db_path: "/tmp/refersync"
sync:
  poll_interval: "2s"
  mark_read_after: "1500ms"
messaging:
  max_attachment_bytes: "5MB"
  max_content_len: 1024
digest:
  enabled: true
  cron: "0 7 * * *"
`)
	cfg, err := Load(p)
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1:9090", cfg.Addr())
	assert.Equal(t, 2*time.Second, cfg.PollInterval())
	assert.Equal(t, 1500*time.Millisecond, cfg.Sync.MarkReadAfter.Duration())
	assert.Equal(t, int64(5_000_000), cfg.MaxAttachmentBytes())
	assert.Equal(t, 1024, cfg.MaxContentLen())
	assert.True(t, cfg.Digest.Enabled)
}

func TestDefaultsWhenUnset(t *testing.T) {
	cfg := &Config{}
	assert.Equal(t, "0.0.0.0:8080", cfg.Addr())
	assert.Equal(t, DefaultPollInterval, cfg.PollInterval())
	assert.Equal(t, int64(DefaultMaxAttachmentBytes), cfg.MaxAttachmentBytes())
	assert.Equal(t, DefaultMaxContentLen, cfg.MaxContentLen())
}

func TestDurationNumericSeconds(t *testing.T) {
	p := writeConfig(t, "sync:\n  poll_interval: 3\n")
	cfg, err := Load(p)
	require.NoError(t, err)
	assert.Equal(t, 3*time.Second, cfg.PollInterval())
}

func TestLoadEffectiveConfigExplicitConfigFlag(t *testing.T) {
	p := writeConfig(t, "server:\n  db_path: \"/data/refersync\"\n  port: 9000\n")
	fileCfg, err := Load(p)
	require.NoError(t, err)

	flags := Flags{Config: p, Set: map[string]bool{"config": true}}
	eff, err := LoadEffectiveConfig(flags, fileCfg, true, &Config{}, EnvResult{})
	require.NoError(t, err)
	assert.Equal(t, "config", eff.Source)
	assert.Equal(t, "/data/refersync", eff.DBPath)
	assert.Equal(t, "0.0.0.0:9000", eff.Addr)
}

func TestLoadEffectiveConfigMissingExplicitFile(t *testing.T) {
	flags := Flags{Config: "/does/not/exist.yaml", Set: map[string]bool{"config": true}}
	_, err := LoadEffectiveConfig(flags, &Config{}, false, &Config{}, EnvResult{})
	require.Error(t, err)
}

func TestLoadEffectiveConfigFlagsWin(t *testing.T) {
	flags := Flags{Addr: ":7000", DB: "/flag/db", Set: map[string]bool{"addr": true, "db": true}}
	eff, err := LoadEffectiveConfig(flags, &Config{}, false, &Config{}, EnvResult{})
	require.NoError(t, err)
	assert.Equal(t, "flags", eff.Source)
	assert.Equal(t, ":7000", eff.Addr)
	assert.Equal(t, "/flag/db", eff.DBPath)
}

func TestLoadEffectiveConfigEnvFallback(t *testing.T) {
	envCfg := &Config{}
	envCfg.Server.Address = "10.0.0.1"
	envCfg.Server.Port = 8088
	envCfg.Server.DBPath = "/env/db"
	eff, err := LoadEffectiveConfig(Flags{Set: map[string]bool{}}, &Config{}, false, envCfg, EnvResult{EnvUsed: true})
	require.NoError(t, err)
	assert.Equal(t, "env", eff.Source)
	assert.Equal(t, "10.0.0.1:8088", eff.Addr)
	assert.Equal(t, "/env/db", eff.DBPath)
}

func TestParseConfigEnvs(t *testing.T) {
	t.Setenv("REFERSYNC_ADDR", "0.0.0.0:8443")
	t.Setenv("REFERSYNC_DB_PATH", "/env/db")
	t.Setenv("REFERSYNC_POLL_INTERVAL", "250ms")
	t.Setenv("REFERSYNC_API_BACKEND_KEYS", "k1, k2")

	cfg, res := ParseConfigEnvs()
	assert.True(t, res.EnvUsed)
	assert.Equal(t, "0.0.0.0:8443", cfg.Addr())
	assert.Equal(t, "/env/db", cfg.Server.DBPath)
	assert.Equal(t, 250*time.Millisecond, cfg.Sync.PollInterval.Duration())
	assert.Contains(t, res.BackendKeys, "k1")
	assert.Contains(t, res.BackendKeys, "k2")
}
