package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTempJSON(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "cfg.json")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestParseJson(t *testing.T) {
	t.Run("overlays present fields only", func(t *testing.T) {
		path := writeTempJSON(t, `{"api_base_url":"http://drive.local","http_timeout":"1m","requests_per_second":0,"backup_schedule":""}`)

		cfg := &Config{APIBaseURL: "x", HTTPTimeout: time.Second, RequestsPerSecond: 5, BackupSchedule: "@daily", LogLevel: "info"}
		require.NoError(t, parseJson(cfg, []string{"-config", path}))

		assert.Equal(t, "http://drive.local", cfg.APIBaseURL)
		assert.Equal(t, time.Minute, cfg.HTTPTimeout)
		assert.Equal(t, 0, cfg.RequestsPerSecond, "explicit zero is applied")
		assert.Empty(t, cfg.BackupSchedule, "explicit empty string is applied")
		assert.Equal(t, "info", cfg.LogLevel)
	})

	t.Run("nanosecond timeout", func(t *testing.T) {
		path := writeTempJSON(t, `{"http_timeout":2000000000}`)

		cfg := &Config{}
		require.NoError(t, parseJson(cfg, []string{"-c", path}))
		assert.Equal(t, 2*time.Second, cfg.HTTPTimeout)
	})

	t.Run("no config flag leaves config untouched", func(t *testing.T) {
		cfg := &Config{DatabasePath: "keep.db"}
		require.NoError(t, parseJson(cfg, []string{"-d", "other.db"}))
		assert.Equal(t, "keep.db", cfg.DatabasePath)
	})

	t.Run("invalid json", func(t *testing.T) {
		path := writeTempJSON(t, `{ this is not valid json`)
		require.ErrorContains(t, parseJson(&Config{}, []string{"-c", path}), "parse config")
	})

	t.Run("missing file", func(t *testing.T) {
		require.ErrorContains(t, parseJson(&Config{}, []string{"-c", filepath.Join(t.TempDir(), "none.json")}), "read config")
	})
}
