package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func write(t *testing.T, dir, name, content string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	return p
}

func TestLoad_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())
	cfg, err := Load("", "")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoad_FileThenEnv(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	path := write(t, dir, "site.hcl", `
site {
  base_dir = "/srv/annalist"
  base_uri = "http://example.org/annalist"
}
server {
  listen    = ":9000"
  read_only = true
}
index {
  path = "/srv/index.db"
}
log {
  level = "debug"
}
`)
	envFile := write(t, dir, "test.env", "ANNALIST_LOG_LEVEL=warn\n")
	t.Setenv("ANNALIST_LISTEN", ":9100")
	t.Setenv("ANNALIST_WATCH", "true")

	cfg, err := Load(path, envFile)
	require.NoError(t, err)
	assert.Equal(t, "/srv/annalist", cfg.BaseDir)
	assert.Equal(t, "http://example.org/annalist/", cfg.SiteBaseURI())
	assert.Equal(t, ":9100", cfg.Listen)
	assert.True(t, cfg.ReadOnly)
	assert.True(t, cfg.Watch)
	assert.Equal(t, "/srv/index.db", cfg.IndexPath)
	assert.Equal(t, "warn", cfg.LogLevel)
	assert.Equal(t, "json", cfg.LogFormat)
}

func TestLoad_DefaultFile(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	write(t, dir, DefaultFile, `site { host = "annalist.example.org" }`)
	cfg, err := Load("", "")
	require.NoError(t, err)
	assert.Equal(t, "annalist.example.org", cfg.Host)
}

func TestLoad_Errors(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)

	_, err := Load(filepath.Join(dir, "missing.hcl"), "")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = Load("", filepath.Join(dir, "missing.env"))
	assert.ErrorIs(t, err, ErrNotFound)

	bad := write(t, dir, "bad.hcl", `site { base_dir = }`)
	_, err = Load(bad, "")
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotFound)

	t.Setenv("ANNALIST_READ_ONLY", "maybe")
	_, err = Load("", "")
	assert.Error(t, err)
}
