// Package common defines shared constants and sentinel errors used across
// PhoneChain components. Callers should use errors.Is to match these values;
// reason-bearing variants are produced by wrapping, e.g.
// fmt.Errorf("%w: reason: %s", common.ErrAccountFrozen, reason).
package common

import "errors"

var (
	// Validation errors.
	ErrInvalidInput = errors.New("invalid input")

	// Account lifecycle errors.
	ErrDuplicateAccount = errors.New("phone number already registered")
	ErrNotFound         = errors.New("account not found")
	ErrAccountSuspended = errors.New("account suspended")
	ErrAccountFrozen    = errors.New("account frozen")

	// Authentication errors.
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidToken       = errors.New("invalid token")

	// Transfer errors.
	ErrInsufficientFunds  = errors.New("insufficient balance")
	ErrComplianceBlocked  = errors.New("transaction blocked by compliance rules")
	ErrRecipientSuspended = errors.New("recipient account is suspended")
	ErrSelfTransfer       = errors.New("cannot send to yourself")

	// Guard-layer errors.
	ErrTooManyAttempts = errors.New("too many attempts")
	ErrAccountLocked   = errors.New("account locked")

	// Backup/restore errors.
	ErrBackupNotFound     = errors.New("backup not found")
	ErrBackupCorrupted    = errors.New("backup verification failed")
	ErrNoBackupsAvailable = errors.New("no backups available")
)
