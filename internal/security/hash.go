// Package security holds the policy helpers shared by the ledger and its
// guards: the legacy digest scheme, wallet address derivation, fee math,
// id generation, input validation and session tracking.
//
// The digests here are rolling checksums, not cryptography. They are kept
// bit-compatible with the data already persisted by existing deployments;
// see the password scheme notes in password.go for the upgrade path.
package security

import (
	"fmt"
	"strings"
	"unicode/utf16"
)

// rollingHash implements the classic "hash*(2^shift-1)+char" checksum over
// UTF-16 code units with 32-bit wrapping, matching the digests embedded in
// persisted ledger documents.
func rollingHash(s string, shift uint) int32 {
	var h int32
	for _, c := range utf16.Encode([]rune(s)) {
		h = (h << shift) - h + int32(c)
	}
	return h
}

// abs widens before negating so the minimum int32 does not overflow.
func abs(h int32) uint64 {
	v := int64(h)
	if v < 0 {
		v = -v
	}
	return uint64(v)
}

func padHex(v uint64, width int) string {
	s := fmt.Sprintf("%x", v)
	if len(s) >= width {
		return s
	}
	return strings.Repeat("0", width-len(s)) + s
}

// HashPassword produces the 32-character legacy password digest.
// Empty input digests to the empty string, as in stored data.
func HashPassword(password string) string {
	if password == "" {
		return ""
	}
	return padHex(abs(rollingHash(password, 5)), 32)
}

// Checksum produces the 64-character digest used for snapshot and
// tamper-evidence checks over arbitrary payloads.
func Checksum(data string) string {
	if data == "" {
		return ""
	}
	return padHex(abs(rollingHash(data, 5)), 64)
}

// WalletAddress derives the deterministic wallet address for a phone
// number. Only digit characters participate, so formatting variants of the
// same number map to the same address.
func WalletAddress(phone string) string {
	var digits strings.Builder
	for _, r := range phone {
		if r >= '0' && r <= '9' {
			digits.WriteRune(r)
		}
	}
	return "PHONE_" + padHex(abs(rollingHash(digits.String(), 7)), 40)
}
