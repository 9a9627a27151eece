// Package auth issues and verifies the HS256 tokens that protect the
// admin surface of the HTTP API. User sessions use opaque tokens instead;
// JWTs are only for operators.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/m-usd/phonechain/internal/common"
)

// Claims carries the registered claims plus the operator role.
type Claims struct {
	jwt.RegisteredClaims
	Role string
}

// RoleAdmin is the only role issued today.
const RoleAdmin = "admin"

func GenerateToken(role string, secretKey []byte, validityDuration time.Duration) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(validityDuration)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
		Role: role,
	})

	tokenString, err := token.SignedString(secretKey)
	if err != nil {
		return "", err
	}

	return tokenString, nil
}

// GetRoleFromToken verifies the signature and expiry and returns the role.
// Any verification failure maps to common.ErrInvalidToken.
func GetRoleFromToken(tokenString string, secretKey []byte) (string, error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return secretKey, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", fmt.Errorf("%w: token expired", common.ErrInvalidToken)
		}
		return "", fmt.Errorf("%w: %v", common.ErrInvalidToken, err)
	}

	if !token.Valid {
		return "", common.ErrInvalidToken
	}

	return claims.Role, nil
}
