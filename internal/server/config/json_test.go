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
	if dir == "" {
		dir = t.TempDir()
	}
	if name == "" {
		name = "cfg.json"
	}
	path := filepath.Join(dir, name)
	b, err := json.Marshal(data)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, b, 0o600))
	return path
}

func Test_parseJson_SourcesAndPrecedence(t *testing.T) {
	origArgs := os.Args
	t.Cleanup(func() { os.Args = origArgs })

	dir := t.TempDir()
	pathFlag := writeTempJSON(t, dir, "flag.json", map[string]any{
		"endpoint_addr_http":            "www.example:9000",
		"database_dsn":                  "postgres://localhost/wallet",
		"ledger_file":                   "ledger.json",
		"backup_file":                   "backups.json",
		"secret_key":                    "my_secret_key",
		"admin_password":                "op_password",
		"admin_token_validity_duration": "45m",
		"session_timeout":               "20m",
		"password_scheme":               "bcrypt",
		"compliance_enabled":            true,
		"compliance_fail_open":          false,
		"sanctions_check":               true,
		"backup_interval":               "2h",
		"backup_retention":              48,
		"scan_interval":                 "30s",
		"s3_root_user":                  "user",
		"s3_root_password":              "password",
		"s3_bucket":                     "bucket",
		"s3_region":                     "region",
		"s3_base_endpoint":              "base_endpoint",
	})

	t.Run("loads from json", func(t *testing.T) {
		os.Args = []string{"testbin", "-config", pathFlag}

		cfg := &Config{}
		parseJson(cfg)

		assert.Equal(t, "www.example:9000", cfg.EndpointAddrHTTP)
		assert.Equal(t, "postgres://localhost/wallet", cfg.DatabaseDSN)
		assert.Equal(t, "ledger.json", cfg.LedgerFile)
		assert.Equal(t, "backups.json", cfg.BackupFile)
		assert.Equal(t, "my_secret_key", cfg.SecretKey)
		assert.Equal(t, "op_password", cfg.AdminPassword)
		assert.Equal(t, 45*time.Minute, cfg.AdminTokenValidityDuration)
		assert.Equal(t, 20*time.Minute, cfg.SessionTimeout)
		assert.Equal(t, "bcrypt", cfg.PasswordScheme)
		assert.True(t, cfg.ComplianceEnabled)
		assert.False(t, cfg.ComplianceFailOpen)
		assert.True(t, cfg.SanctionsCheck)
		assert.Equal(t, 2*time.Hour, cfg.BackupInterval)
		assert.Equal(t, 48, cfg.BackupRetention)
		assert.Equal(t, 30*time.Second, cfg.ScanInterval)
		assert.Equal(t, "user", cfg.S3RootUser)
		assert.Equal(t, "password", cfg.S3RootPassword)
		assert.Equal(t, "bucket", cfg.S3Bucket)
		assert.Equal(t, "region", cfg.S3Region)
		assert.Equal(t, "base_endpoint", cfg.S3BaseEndpoint)
	})

	t.Run("absent booleans keep defaults", func(t *testing.T) {
		partial := writeTempJSON(t, dir, "partial.json", map[string]any{
			"endpoint_addr_http": "host:1",
		})
		os.Args = []string{"testbin", "-config", partial}

		cfg := &Config{ComplianceEnabled: true, ComplianceFailOpen: true, SanctionsCheck: true}
		parseJson(cfg)

		assert.Equal(t, "host:1", cfg.EndpointAddrHTTP)
		assert.True(t, cfg.ComplianceEnabled)
		assert.True(t, cfg.ComplianceFailOpen)
		assert.True(t, cfg.SanctionsCheck)
	})

	t.Run("no CONFIG and no flags → no changes", func(t *testing.T) {
		os.Args = []string{"testbin"}

		cfg := &Config{
			EndpointAddrHTTP: "defaults:1234",
			SecretKey:        "key",
			SessionTimeout:   2 * time.Minute,
		}
		parseJson(cfg)

		assert.Equal(t, "defaults:1234", cfg.EndpointAddrHTTP)
		assert.Equal(t, "key", cfg.SecretKey)
		assert.Equal(t, 2*time.Minute, cfg.SessionTimeout)
	})

	t.Run("invalid JSON → panics", func(t *testing.T) {
		bad := filepath.Join(dir, "bad.json")
		require.NoError(t, os.WriteFile(bad, []byte(`{ this is not valid json`), 0o600))

		os.Args = []string{"testbin", "-config", bad}

		cfg := &Config{}
		require.Panics(t, func() { parseJson(cfg) })
	})
}
