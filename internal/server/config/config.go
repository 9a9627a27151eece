// Package config handles configuration for the server component,
// including defaults, JSON overlay, and command-line flags.
package config

import "time"

// Config holds runtime settings for the wallet server.
//
// Fields:
//   - EndpointAddrHTTP: bind address for the HTTP API.
//   - DatabaseDSN: PostgreSQL DSN (pgx). Empty selects the file store.
//   - LedgerFile / BackupFile: file-store paths.
//   - SecretKey: HMAC secret for signing admin JWTs (HS256). Do not use test defaults in prod.
//   - AdminPassword: password for the admin token endpoint.
//   - AdminTokenValidityDuration: admin JWT lifetime.
//   - SessionTimeout: idle lifetime of user login sessions.
//   - PasswordScheme: "legacy" (document-compatible) or "bcrypt".
//   - ComplianceEnabled / ComplianceFailOpen / SanctionsCheck: policy gate switches.
//   - BackupInterval / BackupRetention: snapshot schedule and bound.
//   - ScanInterval: security scan cadence.
//   - S3RootUser / S3RootPassword: credentials for the S3-compatible backend.
//   - S3Bucket / S3Region / S3BaseEndpoint: object storage settings; empty bucket disables offsite upload.
type Config struct {
	EndpointAddrHTTP           string
	DatabaseDSN                string
	LedgerFile                 string
	BackupFile                 string
	SecretKey                  string
	AdminPassword              string
	AdminTokenValidityDuration time.Duration
	SessionTimeout             time.Duration
	PasswordScheme             string
	ComplianceEnabled          bool
	ComplianceFailOpen         bool
	SanctionsCheck             bool
	BackupInterval             time.Duration
	BackupRetention            int
	ScanInterval               time.Duration
	S3RootUser                 string
	S3RootPassword             string
	S3Bucket                   string
	S3Region                   string
	S3BaseEndpoint             string
}

// LoadDefaults populates Config with sensible development defaults.
// NOTE: These values are insecure for production and should be overridden.
func (c *Config) LoadDefaults() {
	c.EndpointAddrHTTP = ":8080"
	c.DatabaseDSN = ""
	c.LedgerFile = "data/ledger.json"
	c.BackupFile = "data/backups.json"
	c.SecretKey = "secretKey"
	c.AdminPassword = "admin123"
	c.AdminTokenValidityDuration = 60 * time.Minute
	c.SessionTimeout = 30 * time.Minute
	c.PasswordScheme = "legacy"
	c.ComplianceEnabled = true
	c.ComplianceFailOpen = true
	c.SanctionsCheck = true
	c.BackupInterval = 4 * time.Hour
	c.BackupRetention = 168
	c.ScanInterval = time.Minute
	c.S3RootUser = "admin"
	c.S3RootPassword = "secretpassword"
	c.S3Bucket = ""
	c.S3Region = "us-east-1"
	c.S3BaseEndpoint = "http://127.0.0.1:9000/"
}

// LoadConfig builds a Config by applying defaults, then overlaying values
// from an optional JSON file and finally from command-line flags.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg)
	parseFlags(cfg)
	return cfg
}
