package httpapi

import (
	"context"
	"net/http"
	"strings"

	"github.com/m-usd/phonechain/internal/common"
	"github.com/m-usd/phonechain/internal/server/auth"
)

type contextKey string

const phoneKey contextKey = "phone"

func bearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if strings.HasPrefix(h, "Bearer ") {
		return strings.TrimPrefix(h, "Bearer ")
	}
	return ""
}

// sessionAuth resolves the bearer session token to an account and stores
// the phone number in the request context.
func (s *Server) sessionAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r)
		if token == "" {
			writeError(w, common.ErrInvalidToken)
			return
		}
		phone, err := s.svc.Authorize(token)
		if err != nil {
			writeError(w, err)
			return
		}
		ctx := context.WithValue(r.Context(), phoneKey, phone)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// adminAuth verifies the bearer JWT and the admin role.
func (s *Server) adminAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r)
		if token == "" {
			writeError(w, common.ErrInvalidToken)
			return
		}
		role, err := auth.GetRoleFromToken(token, s.secret)
		if err != nil {
			writeError(w, err)
			return
		}
		if role != auth.RoleAdmin {
			writeError(w, common.ErrInvalidToken)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// requestPhone extracts the authenticated phone number placed by
// sessionAuth.
func requestPhone(r *http.Request) string {
	phone, _ := r.Context().Value(phoneKey).(string)
	return phone
}
