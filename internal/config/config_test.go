package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"empty root", func(c *Config) { c.Host.Root = " " }},
		{"bad addr", func(c *Config) { c.Host.HTTPAddr = "localhost" }},
		{"negative depth", func(c *Config) { c.Host.ScanDepth = -1 }},
		{"negative max bytes", func(c *Config) { c.Host.MaxFileBytes = -5 }},
		{"bad ignore", func(c *Config) { c.Host.Ignore = []string{"["} }},
		{"http host url", func(c *Config) { c.UI.HostURL = "http://127.0.0.1:7788/ws" }},
		{"host url without host", func(c *Config) { c.UI.HostURL = "ws:///ws" }},
		{"log level", func(c *Config) { c.Log.Level = "loud" }},
		{"log format", func(c *Config) { c.Log.Format = "xml" }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			tc.mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestEnsureCreatesThenLoads(t *testing.T) {
	p := filepath.Join(t.TempDir(), "conf", "treebridge.json")

	cfg, created, err := Ensure(p)
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, Default(), cfg)

	cfg, created, err = Ensure(p)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, Default(), cfg)
}

func TestLoadKeepsDefaultsAndStripsBOM(t *testing.T) {
	p := filepath.Join(t.TempDir(), "treebridge.json")
	body := "\xEF\xBB\xBF" + `{"host":{"root":"work","scan_depth":2},"log":{"level":"debug"}}`
	require.NoError(t, os.WriteFile(p, []byte(body), 0o644))

	cfg, err := Load(p)
	require.NoError(t, err)
	assert.Equal(t, "work", cfg.Host.Root)
	assert.Equal(t, 2, cfg.Host.ScanDepth)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, Default().Host.HTTPAddr, cfg.Host.HTTPAddr)
	assert.Equal(t, Default().Log.Format, cfg.Log.Format)
}

func TestLoadRejectsInvalid(t *testing.T) {
	dir := t.TempDir()

	bad := filepath.Join(dir, "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte(`{"host":`), 0o644))
	_, err := Load(bad)
	assert.Error(t, err)

	invalid := filepath.Join(dir, "invalid.json")
	require.NoError(t, os.WriteFile(invalid, []byte(`{"log":{"level":"trace"}}`), 0o644))
	_, err = Load(invalid)
	assert.Error(t, err)

	_, err = Load(filepath.Join(dir, "missing.json"))
	assert.Error(t, err)
}

func TestRootDir(t *testing.T) {
	cfg := Default()
	cfg.Host.Root = "ws"
	assert.Equal(t, filepath.Join("/etc/tb", "ws"), cfg.RootDir("/etc/tb/treebridge.json"))

	abs := t.TempDir()
	cfg.Host.Root = abs
	assert.Equal(t, abs, cfg.RootDir("/etc/tb/treebridge.json"))
}
