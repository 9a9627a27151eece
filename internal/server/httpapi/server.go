// Package httpapi exposes the wallet over HTTP/JSON: a user surface with
// opaque session tokens (phone-number accounts) and an admin surface
// protected by short-lived JWTs.
package httpapi

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/m-usd/phonechain/internal/backup"
	"github.com/m-usd/phonechain/internal/compliance"
	"github.com/m-usd/phonechain/internal/logging"
	"github.com/m-usd/phonechain/internal/wallet"
)

// Server carries the dependencies of the HTTP handlers.
type Server struct {
	svc      *wallet.Service
	comp     *compliance.Engine
	backups  *backup.Manager
	log      logging.Logger
	secret   []byte
	adminPWD string
	tokenTTL time.Duration
}

func NewServer(svc *wallet.Service, comp *compliance.Engine, backups *backup.Manager,
	secret []byte, adminPassword string, tokenTTL time.Duration, log logging.Logger) *Server {
	if log == nil {
		log = logging.Nop{}
	}
	return &Server{
		svc:      svc,
		comp:     comp,
		backups:  backups,
		log:      log.With("module", "httpapi"),
		secret:   secret,
		adminPWD: adminPassword,
		tokenTTL: tokenTTL,
	}
}

// Router wires every route. User routes authenticate with the session
// token from login; admin routes need a bearer JWT from /api/admin/login.
func (s *Server) Router() *mux.Router {
	r := mux.NewRouter()

	r.HandleFunc("/api/health", s.handleHealth).Methods("GET")
	r.HandleFunc("/api/register", s.handleRegister).Methods("POST")
	r.HandleFunc("/api/login", s.handleLogin).Methods("POST")

	user := r.PathPrefix("/api").Subrouter()
	user.Use(s.sessionAuth)
	user.HandleFunc("/logout", s.handleLogout).Methods("POST")
	user.HandleFunc("/wallet", s.handleWallet).Methods("GET")
	user.HandleFunc("/transactions", s.handleTransactions).Methods("GET")
	user.HandleFunc("/transfer", s.handleTransfer).Methods("POST")
	user.HandleFunc("/faucet", s.handleFaucet).Methods("POST")

	r.HandleFunc("/api/admin/login", s.handleAdminLogin).Methods("POST")

	admin := r.PathPrefix("/api/admin").Subrouter()
	admin.Use(s.adminAuth)
	admin.HandleFunc("/accounts", s.handleListAccounts).Methods("GET")
	admin.HandleFunc("/accounts/{phone}", s.handleGetAccount).Methods("GET")
	admin.HandleFunc("/accounts/{phone}/freeze", s.handleFreeze).Methods("POST")
	admin.HandleFunc("/accounts/{phone}/unfreeze", s.handleUnfreeze).Methods("POST")
	admin.HandleFunc("/accounts/{phone}/suspend", s.handleSuspend).Methods("POST")
	admin.HandleFunc("/accounts/{phone}/activate", s.handleActivate).Methods("POST")
	admin.HandleFunc("/accounts/{phone}/deduct", s.handleDeduct).Methods("POST")
	admin.HandleFunc("/stats", s.handleStats).Methods("GET")
	admin.HandleFunc("/compliance/report", s.handleComplianceReport).Methods("GET")
	admin.HandleFunc("/compliance/alerts", s.handleAlerts).Methods("GET")
	admin.HandleFunc("/scan", s.handleScan).Methods("GET")
	admin.HandleFunc("/unlock-all", s.handleUnlockAll).Methods("POST")
	admin.HandleFunc("/backups", s.handleListBackups).Methods("GET")
	admin.HandleFunc("/backups", s.handleCreateBackup).Methods("POST")
	admin.HandleFunc("/backups/restore", s.handleRestoreBackup).Methods("POST")
	admin.HandleFunc("/recovery", s.handleEmergencyRecovery).Methods("POST")
	admin.HandleFunc("/export", s.handleExport).Methods("GET")
	admin.HandleFunc("/import", s.handleImport).Methods("POST")

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
