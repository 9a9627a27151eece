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

func writeTempJSON(t *testing.T, data map[string]any) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "cfg.json")
	b, err := json.Marshal(data)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, b, 0o600))
	return path
}

func Test_parseJson(t *testing.T) {
	origArgs := os.Args
	t.Cleanup(func() { os.Args = origArgs })

	path := writeTempJSON(t, map[string]any{
		"server_endpoint_addr":  "http://wallet.example:9000",
		"request_timeout":       "5s",
		"online_check_interval": "30s",
	})

	t.Run("loads from json", func(t *testing.T) {
		os.Args = []string{"testbin", "-config", path}

		cfg := &Config{}
		parseJson(cfg)

		assert.Equal(t, "http://wallet.example:9000", cfg.ServerEndpointAddr)
		assert.Equal(t, 5*time.Second, cfg.RequestTimeout)
		assert.Equal(t, 30*time.Second, cfg.OnlineCheckInterval)
	})

	t.Run("no config flag leaves defaults", func(t *testing.T) {
		os.Args = []string{"testbin"}

		cfg := &Config{}
		cfg.LoadDefaults()
		parseJson(cfg)

		assert.Equal(t, "http://127.0.0.1:8080", cfg.ServerEndpointAddr)
	})

	t.Run("panics on missing file", func(t *testing.T) {
		os.Args = []string{"testbin", "-config", filepath.Join(t.TempDir(), "missing.json")}

		assert.Panics(t, func() { parseJson(&Config{}) })
	})
}
