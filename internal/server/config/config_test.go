package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	var c Config
	c.LoadDefaults()

	assert.Equal(t, c.EndpointAddrHTTP, ":8080")
	assert.Equal(t, c.DatabaseDSN, "")
	assert.Equal(t, c.LedgerFile, "data/ledger.json")
	assert.Equal(t, c.BackupFile, "data/backups.json")
	assert.Equal(t, c.SecretKey, "secretKey")
	assert.Equal(t, c.AdminPassword, "admin123")
	assert.Equal(t, c.AdminTokenValidityDuration, 60*time.Minute)
	assert.Equal(t, c.SessionTimeout, 30*time.Minute)
	assert.Equal(t, c.PasswordScheme, "legacy")
	assert.True(t, c.ComplianceEnabled)
	assert.True(t, c.ComplianceFailOpen)
	assert.True(t, c.SanctionsCheck)
	assert.Equal(t, c.BackupInterval, 4*time.Hour)
	assert.Equal(t, c.BackupRetention, 168)
	assert.Equal(t, c.ScanInterval, time.Minute)
	assert.Equal(t, c.S3RootUser, "admin")
	assert.Equal(t, c.S3RootPassword, "secretpassword")
	assert.Equal(t, c.S3Bucket, "")
	assert.Equal(t, c.S3Region, "us-east-1")
	assert.Equal(t, c.S3BaseEndpoint, "http://127.0.0.1:9000/")
}

func TestLoadConfig_UsesDefaultsBeforeParsing(t *testing.T) {
	c := LoadConfig()

	require.NotNil(t, c, "LoadConfig must not return nil")

	assert.Equal(t, c.EndpointAddrHTTP, ":8080")
	assert.Equal(t, c.LedgerFile, "data/ledger.json")
	assert.Equal(t, c.SecretKey, "secretKey")
	assert.Equal(t, c.AdminTokenValidityDuration, 60*time.Minute)
	assert.Equal(t, c.BackupRetention, 168)
}
