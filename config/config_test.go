package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadReturnsDefaultsWhenFileMissing(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nonexistent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Empty(t, cfg.Profiles)
}

func TestLoadParsesProfiles(t *testing.T) {
	path := filepath.Join(t.TempDir(), "davsync.yaml")
	yaml := `
profiles:
  - name: work
    url: https://dav.example.com/
    protocol: caldav
    username: alice
    password: secret
    sync_interval: 5m
logging:
  level: debug
  format: json
`
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Len(t, cfg.Profiles, 1)
	assert.Equal(t, "work", cfg.Profiles[0].Name)
	assert.Equal(t, "caldav", cfg.Profiles[0].Protocol)
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestValidateRejectsMissingProtocol(t *testing.T) {
	cfg := &Config{Profiles: []Profile{{Name: "x", URL: "https://dav.example/"}}}
	err := cfg.Validate()
	assert.Error(t, err)
}

func TestValidateRejectsDuplicateNames(t *testing.T) {
	cfg := &Config{Profiles: []Profile{
		{Name: "x", URL: "https://dav.example/a/", Protocol: "caldav"},
		{Name: "x", URL: "https://dav.example/b/", Protocol: "carddav"},
	}}
	assert.Error(t, cfg.Validate())
}

func TestProfileIntervalDefaultsTo15Minutes(t *testing.T) {
	p := Profile{}
	assert.Equal(t, "15m0s", p.Interval().String())
}

func TestFindReturnsMatchingProfile(t *testing.T) {
	cfg := &Config{Profiles: []Profile{{Name: "work", URL: "https://dav.example/"}}}
	p, ok := cfg.Find("work")
	assert.True(t, ok)
	assert.Equal(t, "https://dav.example/", p.URL)

	_, ok = cfg.Find("missing")
	assert.False(t, ok)
}
