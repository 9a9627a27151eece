package auth

import (
	"errors"
	"testing"
	"time"

	"github.com/m-usd/phonechain/internal/common"
)

func TestGenerateAndParse_Success(t *testing.T) {
	t.Parallel()

	secret := []byte("super-secret")

	tok, err := GenerateToken(RoleAdmin, secret, time.Hour)
	if err != nil {
		t.Fatalf("GenerateToken error: %v", err)
	}

	role, err := GetRoleFromToken(tok, secret)
	if err != nil {
		t.Fatalf("GetRoleFromToken error: %v", err)
	}
	if role != RoleAdmin {
		t.Fatalf("role mismatch: got %q want %q", role, RoleAdmin)
	}
}

func TestGetRoleFromToken_Expired(t *testing.T) {
	t.Parallel()

	secret := []byte("secret")

	tok, err := GenerateToken(RoleAdmin, secret, -1*time.Second)
	if err != nil {
		t.Fatalf("GenerateToken error: %v", err)
	}

	_, err = GetRoleFromToken(tok, secret)
	if err == nil {
		t.Fatalf("expected error for expired token, got nil")
	}
	if !errors.Is(err, common.ErrInvalidToken) {
		t.Fatalf("expected common.ErrInvalidToken, got %v", err)
	}
}

func TestGetRoleFromToken_WrongSecret(t *testing.T) {
	t.Parallel()

	tok, err := GenerateToken(RoleAdmin, []byte("right-secret"), time.Hour)
	if err != nil {
		t.Fatalf("GenerateToken error: %v", err)
	}

	_, err = GetRoleFromToken(tok, []byte("wrong-secret"))
	if err == nil {
		t.Fatalf("expected error for invalid signature, got nil")
	}
}

func TestGetRoleFromToken_MalformedString(t *testing.T) {
	t.Parallel()

	_, err := GetRoleFromToken("not.a.jwt", []byte("k"))
	if err == nil {
		t.Fatalf("expected error for malformed token, got nil")
	}
}
