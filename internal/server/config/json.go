package config

import (
	"encoding/json"
	"os"
	"time"

	"github.com/m-usd/phonechain/internal/flagx"
	"github.com/m-usd/phonechain/internal/timex"
)

// JsonConfig is the intermediate DTO for reading JSON configuration files.
// It uses timex.Duration for interval fields, which allows parsing both
// string values such as "1m" and integer nanoseconds. After unmarshalling,
// its fields are copied into the runtime Config struct.
type JsonConfig struct {
	EndpointAddrHTTP           string         `json:"endpoint_addr_http"`
	DatabaseDSN                string         `json:"database_dsn"`
	LedgerFile                 string         `json:"ledger_file"`
	BackupFile                 string         `json:"backup_file"`
	SecretKey                  string         `json:"secret_key"`
	AdminPassword              string         `json:"admin_password"`
	AdminTokenValidityDuration timex.Duration `json:"admin_token_validity_duration"`
	SessionTimeout             timex.Duration `json:"session_timeout"`
	PasswordScheme             string         `json:"password_scheme"`
	ComplianceEnabled          *bool          `json:"compliance_enabled"`
	ComplianceFailOpen         *bool          `json:"compliance_fail_open"`
	SanctionsCheck             *bool          `json:"sanctions_check"`
	BackupInterval             timex.Duration `json:"backup_interval"`
	BackupRetention            int            `json:"backup_retention"`
	ScanInterval               timex.Duration `json:"scan_interval"`
	S3RootUser                 string         `json:"s3_root_user"`
	S3RootPassword             string         `json:"s3_root_password"`
	S3Bucket                   string         `json:"s3_bucket"`
	S3Region                   string         `json:"s3_region"`
	S3BaseEndpoint             string         `json:"s3_base_endpoint"`
}

// parseJson loads configuration values from a JSON file into the provided
// Config instance. The file path comes from the -c or -config command-line
// flags; when neither is set, no JSON file is loaded. If the file cannot
// be read or contains invalid JSON, the function panics.
//
// Boolean switches use pointers so that an absent key keeps the default
// instead of forcing false.
func parseJson(config *Config) {
	jsonConfigFile := flagx.JsonConfigFlags()
	if jsonConfigFile == "" {
		return
	}

	c := &JsonConfig{}

	file, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}
	if err := json.Unmarshal(file, c); err != nil {
		panic(err)
	}

	config.EndpointAddrHTTP = c.EndpointAddrHTTP
	config.DatabaseDSN = c.DatabaseDSN
	config.LedgerFile = c.LedgerFile
	config.BackupFile = c.BackupFile
	config.SecretKey = c.SecretKey
	config.AdminPassword = c.AdminPassword
	config.AdminTokenValidityDuration = time.Duration(c.AdminTokenValidityDuration.Duration)
	config.SessionTimeout = time.Duration(c.SessionTimeout.Duration)
	config.PasswordScheme = c.PasswordScheme
	if c.ComplianceEnabled != nil {
		config.ComplianceEnabled = *c.ComplianceEnabled
	}
	if c.ComplianceFailOpen != nil {
		config.ComplianceFailOpen = *c.ComplianceFailOpen
	}
	if c.SanctionsCheck != nil {
		config.SanctionsCheck = *c.SanctionsCheck
	}
	config.BackupInterval = time.Duration(c.BackupInterval.Duration)
	config.BackupRetention = c.BackupRetention
	config.ScanInterval = time.Duration(c.ScanInterval.Duration)
	config.S3RootUser = c.S3RootUser
	config.S3RootPassword = c.S3RootPassword
	config.S3Bucket = c.S3Bucket
	config.S3Region = c.S3Region
	config.S3BaseEndpoint = c.S3BaseEndpoint
}
