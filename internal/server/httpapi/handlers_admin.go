package httpapi

import (
	"io"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/m-usd/phonechain/internal/common"
	"github.com/m-usd/phonechain/internal/server/auth"
	"github.com/m-usd/phonechain/internal/timex"
)

type adminLoginRequest struct {
	Password string `json:"password"`
}

// adminGuardKey is the reserved identifier the guard tracks admin login
// attempts under. It is not a valid phone number, so it can never collide
// with a user account.
const adminGuardKey = "admin"

func (s *Server) handleAdminLogin(w http.ResponseWriter, r *http.Request) {
	var req adminLoginRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if err := s.svc.Guard().CheckLogin(adminGuardKey); err != nil {
		writeError(w, err)
		return
	}
	if req.Password == "" || req.Password != s.adminPWD {
		s.svc.Guard().RecordFailure(adminGuardKey)
		writeError(w, common.ErrInvalidCredentials)
		return
	}
	s.svc.Guard().RecordSuccess(adminGuardKey)

	token, err := auth.GenerateToken(auth.RoleAdmin, s.secret, s.tokenTTL)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"token": token})
}

func (s *Server) handleListAccounts(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.svc.Ledger().ListAccounts())
}

func (s *Server) handleGetAccount(w http.ResponseWriter, r *http.Request) {
	acc, err := s.svc.Ledger().GetAccount(mux.Vars(r)["phone"])
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, acc)
}

type reasonRequest struct {
	Reason string `json:"reason"`
}

func (s *Server) handleFreeze(w http.ResponseWriter, r *http.Request) {
	var req reasonRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if err := s.svc.Ledger().Freeze(r.Context(), mux.Vars(r)["phone"], req.Reason); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "frozen"})
}

func (s *Server) handleUnfreeze(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.Ledger().Unfreeze(r.Context(), mux.Vars(r)["phone"]); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "active"})
}

func (s *Server) handleSuspend(w http.ResponseWriter, r *http.Request) {
	var req reasonRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if err := s.svc.Ledger().Suspend(r.Context(), mux.Vars(r)["phone"], req.Reason); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "suspended"})
}

func (s *Server) handleActivate(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.Ledger().Activate(r.Context(), mux.Vars(r)["phone"]); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "active"})
}

type deductRequest struct {
	Amount float64 `json:"amount"`
	Reason string  `json:"reason"`
}

func (s *Server) handleDeduct(w http.ResponseWriter, r *http.Request) {
	var req deductRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}
	tx, err := s.svc.Ledger().DeductFunds(r.Context(), mux.Vars(r)["phone"], req.Amount, req.Reason)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, tx)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.svc.Ledger().GetSystemStats())
}

func (s *Server) handleComplianceReport(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.comp.GetReport())
}

func (s *Server) handleAlerts(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.comp.Alerts())
}

func (s *Server) handleScan(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.svc.Guard().Scan(s.svc.Ledger()))
}

func (s *Server) handleUnlockAll(w http.ResponseWriter, r *http.Request) {
	count := s.svc.Guard().EmergencyUnlockAll()
	writeJSON(w, http.StatusOK, map[string]int{"unlockedAccounts": count})
}

// backupSummary lists snapshots without their payloads.
type backupSummary struct {
	Timestamp timex.Time `json:"timestamp"`
	Checksum  string     `json:"checksum"`
	Version   string     `json:"version"`
	Users     int        `json:"users"`
}

func (s *Server) handleListBackups(w http.ResponseWriter, r *http.Request) {
	snaps := s.backups.Snapshots()
	out := make([]backupSummary, 0, len(snaps))
	for _, snap := range snaps {
		out = append(out, backupSummary{
			Timestamp: snap.Timestamp,
			Checksum:  snap.Checksum,
			Version:   snap.Version,
			Users:     len(snap.Data.Users),
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleCreateBackup(w http.ResponseWriter, r *http.Request) {
	snap, err := s.backups.Create(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, backupSummary{
		Timestamp: snap.Timestamp,
		Checksum:  snap.Checksum,
		Version:   snap.Version,
		Users:     len(snap.Data.Users),
	})
}

type restoreRequest struct {
	Timestamp string `json:"timestamp"`
}

func (s *Server) handleRestoreBackup(w http.ResponseWriter, r *http.Request) {
	var req restoreRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if err := s.backups.Restore(r.Context(), req.Timestamp); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "restored"})
}

func (s *Server) handleEmergencyRecovery(w http.ResponseWriter, r *http.Request) {
	if err := s.backups.EmergencyRecovery(r.Context()); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "recovered"})
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	raw, err := s.backups.Export(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", `attachment; filename="wallet-export.json"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(raw)
}

func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	raw, err := io.ReadAll(io.LimitReader(r.Body, 32<<20))
	if err != nil {
		writeError(w, common.ErrInvalidInput)
		return
	}

	if err := s.backups.Import(r.Context(), raw); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "imported"})
}
