package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTempJSON(t *testing.T, dir, name string, data map[string]any) string {
	t.Helper()
	path := filepath.Join(dir, name)
	b, err := json.Marshal(data)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, b, 0o600))
	return path
}

func Test_parseJson(t *testing.T) {
	dir := t.TempDir()

	t.Run("overlays present keys only", func(t *testing.T) {
		path := writeTempJSON(t, dir, "partial.json", map[string]any{
			"base_url":        "https://api.example.com",
			"request_timeout": "0s",
			"cookie_channel":  false,
		})

		cfg := &Config{}
		cfg.LoadDefaults()
		parseJson(cfg, []string{"-config", path})

		assert.Equal(t, "https://api.example.com", cfg.BaseURL)
		assert.Equal(t, time.Duration(0), cfg.RequestTimeout, "explicit zero disables the timeout")
		assert.False(t, cfg.CookieChannel)
		assert.Equal(t, 10*time.Second, cfg.RefreshTimeout, "absent key keeps the default")
		assert.Equal(t, StoreDriverSQLite, cfg.StoreDriver)
	})

	t.Run("no flag → no changes", func(t *testing.T) {
		cfg := &Config{BaseURL: "http://defaults"}
		parseJson(cfg, []string{"-a", "x"})
		assert.Equal(t, "http://defaults", cfg.BaseURL)
	})

	t.Run("invalid JSON → panics", func(t *testing.T) {
		bad := filepath.Join(dir, "bad.json")
		require.NoError(t, os.WriteFile(bad, []byte(`{ not json`), 0o600))
		require.Panics(t, func() { parseJson(&Config{}, []string{"-c", bad}) })
	})

	t.Run("missing file → panics", func(t *testing.T) {
		require.Panics(t, func() { parseJson(&Config{}, []string{"-c", filepath.Join(dir, "nope.json")}) })
	})
}
