package httpapi

import (
	"net/http"

	"github.com/m-usd/phonechain/internal/common"
	"github.com/m-usd/phonechain/internal/ledger"
)

type credentialsRequest struct {
	PhoneNumber string `json:"phoneNumber"`
	Password    string `json:"password"`
}

type registerResponse struct {
	PhoneNumber   string `json:"phoneNumber"`
	WalletAddress string `json:"walletAddress"`
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}

	acc, err := s.svc.Register(r.Context(), req.PhoneNumber, req.Password)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, registerResponse{
		PhoneNumber:   acc.PhoneNumber,
		WalletAddress: acc.WalletAddress,
	})
}

type loginResponse struct {
	Token  string          `json:"token"`
	Wallet *ledger.Profile `json:"wallet"`
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}

	acc, token, err := s.svc.Login(r.Context(), req.PhoneNumber, req.Password)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, loginResponse{
		Token:  token,
		Wallet: s.svc.Profile(acc.PhoneNumber),
	})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	s.svc.Logout(bearerToken(r))
	writeJSON(w, http.StatusOK, map[string]string{"status": "logged out"})
}

func (s *Server) handleWallet(w http.ResponseWriter, r *http.Request) {
	profile := s.svc.Profile(requestPhone(r))
	if profile == nil {
		writeError(w, common.ErrNotFound)
		return
	}
	writeJSON(w, http.StatusOK, profile)
}

func (s *Server) handleTransactions(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.svc.History(requestPhone(r)))
}

type transferRequest struct {
	To       string  `json:"to"`
	Amount   float64 `json:"amount"`
	Password string  `json:"password"`
}

func (s *Server) handleTransfer(w http.ResponseWriter, r *http.Request) {
	var req transferRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}

	res, err := s.svc.Send(r.Context(), requestPhone(r), req.To, req.Amount, req.Password)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

type faucetRequest struct {
	Amount float64 `json:"amount"`
}

// handleFaucet credits demo money to the authenticated account.
func (s *Server) handleFaucet(w http.ResponseWriter, r *http.Request) {
	var req faucetRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}

	tx, err := s.svc.AddFunds(r.Context(), requestPhone(r), req.Amount)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, tx)
}
