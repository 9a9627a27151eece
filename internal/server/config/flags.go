package config

import (
	"flag"
	"os"
	"time"

	"github.com/m-usd/phonechain/internal/flagx"
)

// parseFlags populates selected server Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-a string   HTTP bind address (e.g., ":8080")
//	-d string   PostgreSQL DSN; empty selects the file store
//	-f string   ledger file path (file store)
//	-k string   backup file path
//	-s string   JWT HMAC secret key
//	-w string   admin password
//	-t int      admin token validity, minutes
//	-i int      backup interval, minutes
//	-u string   S3 root user
//	-p string   S3 root password
//	-b string   S3 bucket name
//	-g string   S3 region
//	-e string   S3 base endpoint (e.g., "http://127.0.0.1:9000/")
//
// The function first filters os.Args to only the flags it recognizes using
// flagx.FilterArgs, avoiding collisions with other components. Duration
// flags are accepted as integers in minutes.
func parseFlags(config *Config) {
	args := flagx.FilterArgs(os.Args[1:], []string{"-a", "-d", "-f", "-k", "-s", "-w", "-t", "-i", "-u", "-p", "-b", "-g", "-e"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&config.EndpointAddrHTTP, "a", config.EndpointAddrHTTP, "address and port to run server")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.LedgerFile, "f", config.LedgerFile, "ledger file path")
	fs.StringVar(&config.BackupFile, "k", config.BackupFile, "backup file path")
	fs.StringVar(&config.SecretKey, "s", config.SecretKey, "secret key")
	fs.StringVar(&config.AdminPassword, "w", config.AdminPassword, "admin password")

	adminTokenValidityDuration := fs.Int("t", int(config.AdminTokenValidityDuration.Minutes()), "admin_token_validity_duration (in minutes)")
	backupInterval := fs.Int("i", int(config.BackupInterval.Minutes()), "backup_interval (in minutes)")

	fs.StringVar(&config.S3RootUser, "u", config.S3RootUser, "S3 root user")
	fs.StringVar(&config.S3RootPassword, "p", config.S3RootPassword, "S3 root password")
	fs.StringVar(&config.S3Bucket, "b", config.S3Bucket, "S3 bucket")
	fs.StringVar(&config.S3Region, "g", config.S3Region, "S3 region")
	fs.StringVar(&config.S3BaseEndpoint, "e", config.S3BaseEndpoint, "S3 base endpoint")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	config.AdminTokenValidityDuration = time.Duration(*adminTokenValidityDuration) * time.Minute
	config.BackupInterval = time.Duration(*backupInterval) * time.Minute
}
