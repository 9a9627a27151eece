// Package wallet composes the user-facing operation pipeline: every call
// passes through the guard first, then the ledger, so rate limits and
// lockouts apply before any credential or balance check runs.
package wallet

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/m-usd/phonechain/internal/common"
	"github.com/m-usd/phonechain/internal/guard"
	"github.com/m-usd/phonechain/internal/ledger"
	"github.com/m-usd/phonechain/internal/logging"
	"github.com/m-usd/phonechain/internal/security"
)

// Service is the facade the transports talk to.
type Service struct {
	led      *ledger.Ledger
	guard    *guard.Guard
	sessions *security.SessionTracker
	log      logging.Logger
}

func NewService(led *ledger.Ledger, g *guard.Guard, sessionTimeout time.Duration, log logging.Logger) *Service {
	if log == nil {
		log = logging.Nop{}
	}
	return &Service{
		led:      led,
		guard:    g,
		sessions: security.NewSessionTracker(sessionTimeout),
		log:      log.With("module", "wallet"),
	}
}

// Ledger exposes the underlying ledger for read-only handlers.
func (s *Service) Ledger() *ledger.Ledger { return s.led }

// Guard exposes the guard for admin handlers.
func (s *Service) Guard() *guard.Guard { return s.guard }

// Register creates an account. Registration is not rate limited; the
// phone number format check inside the ledger bounds abuse well enough
// for a demo system.
func (s *Service) Register(ctx context.Context, phone, password string) (*ledger.Account, error) {
	acc, err := s.led.Register(ctx, phone, password)
	if err != nil {
		return nil, err
	}
	s.log.Info(ctx, "account registered", "phone", ledger.MaskPhone(phone))
	return acc, nil
}

// Login authenticates and opens a session. The guard check runs first so
// a locked or rate-limited account never reaches credential verification;
// failed credentials feed the brute-force counter.
func (s *Service) Login(ctx context.Context, phone, password string) (*ledger.Account, string, error) {
	if err := s.guard.CheckLogin(phone); err != nil {
		return nil, "", err
	}

	acc, err := s.led.Authenticate(ctx, phone, password)
	if err != nil {
		if errors.Is(err, common.ErrInvalidCredentials) {
			s.guard.RecordFailure(phone)
		}
		return nil, "", err
	}

	s.guard.RecordSuccess(phone)
	token := uuid.NewString()
	s.sessions.Start(token, phone)
	s.log.Info(ctx, "login", "phone", ledger.MaskPhone(phone))
	return acc, token, nil
}

// Logout discards the session token.
func (s *Service) Logout(token string) {
	s.sessions.End(token)
}

// Authorize resolves a session token to the account it belongs to.
func (s *Service) Authorize(token string) (string, error) {
	phone, ok := s.sessions.Lookup(token)
	if !ok {
		return "", common.ErrInvalidToken
	}
	return phone, nil
}

// Send moves money. The transfer rate limit admits the attempt before
// anything else; a wrong transfer password counts toward the same
// brute-force lock as failed logins.
func (s *Service) Send(ctx context.Context, from, to string, amount float64, password string) (*ledger.TransferResult, error) {
	if err := s.guard.CheckTransfer(from); err != nil {
		return nil, err
	}

	res, err := s.led.Transfer(ctx, from, to, amount, password)
	if err != nil {
		if errors.Is(err, common.ErrInvalidCredentials) {
			s.guard.RecordFailure(from)
		}
		return nil, err
	}
	return res, nil
}

// AddFunds credits an account from the demo faucet.
func (s *Service) AddFunds(ctx context.Context, phone string, amount float64) (*ledger.Transaction, error) {
	return s.led.AddFunds(ctx, phone, amount)
}

// Balance returns the current balance.
func (s *Service) Balance(phone string) float64 {
	return s.led.GetBalance(phone)
}

// Profile returns the public account view, or nil when absent.
func (s *Service) Profile(phone string) *ledger.Profile {
	return s.led.GetProfile(phone)
}

// History returns the account's transactions, newest first.
func (s *Service) History(phone string) []*ledger.Transaction {
	return s.led.GetUserTransactions(phone)
}
