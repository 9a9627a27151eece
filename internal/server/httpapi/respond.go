package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/m-usd/phonechain/internal/common"
)

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		_ = json.NewEncoder(w).Encode(v)
	}
}

// writeError maps the domain sentinels onto HTTP status codes. Unknown
// errors become opaque 500s so internals never leak to clients.
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	msg := "internal server error"

	switch {
	case errors.Is(err, common.ErrInvalidInput),
		errors.Is(err, common.ErrSelfTransfer),
		errors.Is(err, common.ErrInsufficientFunds):
		status = http.StatusBadRequest
		msg = err.Error()
	case errors.Is(err, common.ErrInvalidCredentials),
		errors.Is(err, common.ErrInvalidToken):
		status = http.StatusUnauthorized
		msg = err.Error()
	case errors.Is(err, common.ErrAccountFrozen),
		errors.Is(err, common.ErrAccountSuspended),
		errors.Is(err, common.ErrRecipientSuspended),
		errors.Is(err, common.ErrAccountLocked),
		errors.Is(err, common.ErrComplianceBlocked):
		status = http.StatusForbidden
		msg = err.Error()
	case errors.Is(err, common.ErrNotFound),
		errors.Is(err, common.ErrBackupNotFound),
		errors.Is(err, common.ErrNoBackupsAvailable):
		status = http.StatusNotFound
		msg = err.Error()
	case errors.Is(err, common.ErrDuplicateAccount),
		errors.Is(err, common.ErrBackupCorrupted):
		status = http.StatusConflict
		msg = err.Error()
	case errors.Is(err, common.ErrTooManyAttempts):
		status = http.StatusTooManyRequests
		msg = err.Error()
	}

	writeJSON(w, status, errorResponse{Error: msg})
}

func decodeBody(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return common.ErrInvalidInput
	}
	return nil
}
