// Package guard provides brute-force protection around the authentication
// and transfer entry points: per-account rate limits, failure tracking with
// temporary locks, an emergency override and a periodic security scan. It
// is independent of the compliance gate.
package guard

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/m-usd/phonechain/internal/common"
	"github.com/m-usd/phonechain/internal/logging"
)

// Config carries the guard thresholds. Zero values take the defaults.
type Config struct {
	LoginMaxAttempts    int           // per account per LoginWindow
	LoginWindow         time.Duration //
	TransferMaxAttempts int           // per account per TransferWindow
	TransferWindow      time.Duration //
	BruteForceThreshold int           // failures within BruteForceWindow that trigger a lock
	BruteForceWindow    time.Duration //
	LockDuration        time.Duration //
	RetentionWindow     time.Duration // how long idle rate entries survive cleanup
}

// DefaultConfig returns the production guard thresholds.
func DefaultConfig() Config {
	return Config{
		LoginMaxAttempts:    5,
		LoginWindow:         15 * time.Minute,
		TransferMaxAttempts: 10,
		TransferWindow:      time.Hour,
		BruteForceThreshold: 3,
		BruteForceWindow:    5 * time.Minute,
		LockDuration:        30 * time.Minute,
		RetentionWindow:     time.Hour,
	}
}

func (c *Config) applyDefaults() {
	d := DefaultConfig()
	if c.LoginMaxAttempts <= 0 {
		c.LoginMaxAttempts = d.LoginMaxAttempts
	}
	if c.LoginWindow <= 0 {
		c.LoginWindow = d.LoginWindow
	}
	if c.TransferMaxAttempts <= 0 {
		c.TransferMaxAttempts = d.TransferMaxAttempts
	}
	if c.TransferWindow <= 0 {
		c.TransferWindow = d.TransferWindow
	}
	if c.BruteForceThreshold <= 0 {
		c.BruteForceThreshold = d.BruteForceThreshold
	}
	if c.BruteForceWindow <= 0 {
		c.BruteForceWindow = d.BruteForceWindow
	}
	if c.LockDuration <= 0 {
		c.LockDuration = d.LockDuration
	}
	if c.RetentionWindow <= 0 {
		c.RetentionWindow = d.RetentionWindow
	}
}

type rateEntry struct {
	count int
	last  time.Time
}

// Guard tracks failed attempts, rate-limit counters and temporary locks
// per account. All state is in memory; locks expire by timestamp rather
// than by timer so they survive nothing but behave deterministically.
type Guard struct {
	cfg Config
	log logging.Logger

	mu      sync.Mutex
	failed  map[string][]time.Time
	locks   map[string]time.Time // lock expiry per account
	limits  map[string]*rateEntry
	now     func() time.Time
}

func New(cfg Config, log logging.Logger) *Guard {
	cfg.applyDefaults()
	if log == nil {
		log = logging.Nop{}
	}
	return &Guard{
		cfg:    cfg,
		log:    log.With("module", "guard"),
		failed: make(map[string][]time.Time),
		locks:  make(map[string]time.Time),
		limits: make(map[string]*rateEntry),
		now:    time.Now,
	}
}

// CheckLogin gates an authentication attempt. The attempt is counted even
// when rejected, so hammering a locked account keeps it rate limited.
func (g *Guard) CheckLogin(phone string) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if !g.admitLocked(phone+"_login", g.cfg.LoginMaxAttempts, g.cfg.LoginWindow) {
		return fmt.Errorf("%w: too many login attempts, try again in %d minutes",
			common.ErrTooManyAttempts, int(g.cfg.LoginWindow.Minutes()))
	}
	if remaining, locked := g.lockRemainingLocked(phone); locked {
		return fmt.Errorf("%w: try again in %d minutes", common.ErrAccountLocked, ceilMinutes(remaining))
	}
	return nil
}

// CheckTransfer gates a transfer attempt.
func (g *Guard) CheckTransfer(phone string) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if !g.admitLocked(phone+"_transaction", g.cfg.TransferMaxAttempts, g.cfg.TransferWindow) {
		return fmt.Errorf("%w: too many transactions, please try again later", common.ErrTooManyAttempts)
	}
	if remaining, locked := g.lockRemainingLocked(phone); locked {
		return fmt.Errorf("%w: account temporarily locked, try again in %d minutes",
			common.ErrAccountLocked, ceilMinutes(remaining))
	}
	return nil
}

// RecordFailure notes a failed authentication or transfer attempt. Enough
// failures inside the brute-force window lock the account.
func (g *Guard) RecordFailure(phone string) {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.now()
	g.failed[phone] = append(g.failed[phone], now)

	recent := 0
	for _, t := range g.failed[phone] {
		if now.Sub(t) < g.cfg.BruteForceWindow {
			recent++
		}
	}
	if recent >= g.cfg.BruteForceThreshold {
		g.locks[phone] = now.Add(g.cfg.LockDuration)
		g.log.Warn(context.Background(), "account locked",
			"phone", maskPhone(phone), "duration", g.cfg.LockDuration, "reason", "multiple failed attempts")
	}
}

// RecordSuccess clears the account's failure history and login counters.
func (g *Guard) RecordSuccess(phone string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.failed, phone)
	delete(g.limits, phone+"_login")
}

// IsLocked reports whether the account currently has an unexpired lock.
func (g *Guard) IsLocked(phone string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	_, locked := g.lockRemainingLocked(phone)
	return locked
}

// EmergencyUnlockAll clears every lock, failure record and rate counter,
// returning the number of accounts that were locked. Admin use only.
func (g *Guard) EmergencyUnlockAll() int {
	g.mu.Lock()
	defer g.mu.Unlock()

	count := len(g.locks)
	g.locks = make(map[string]time.Time)
	g.failed = make(map[string][]time.Time)
	g.limits = make(map[string]*rateEntry)

	g.log.Warn(context.Background(), "emergency unlock", "unlocked_accounts", count)
	return count
}

// Cleanup drops expired locks and rate entries idle past the retention
// window. Called periodically by the scan job.
func (g *Guard) Cleanup() {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.now()
	for key, entry := range g.limits {
		if now.Sub(entry.last) > g.cfg.RetentionWindow {
			delete(g.limits, key)
		}
	}
	for phone, expiry := range g.locks {
		if !now.Before(expiry) {
			delete(g.locks, phone)
			delete(g.failed, phone)
		}
	}
}

// admitLocked implements the fixed-window counter: the window restarts
// when the previous attempt is older than it, every call counts, and the
// call is admitted while the count stays within the quota.
func (g *Guard) admitLocked(key string, max int, window time.Duration) bool {
	now := g.now()
	entry, ok := g.limits[key]
	if !ok {
		entry = &rateEntry{}
		g.limits[key] = entry
	}
	if now.Sub(entry.last) > window {
		entry.count = 0
	}
	entry.count++
	entry.last = now
	return entry.count <= max
}

func (g *Guard) lockRemainingLocked(phone string) (time.Duration, bool) {
	expiry, ok := g.locks[phone]
	if !ok {
		return 0, false
	}
	remaining := expiry.Sub(g.now())
	if remaining <= 0 {
		delete(g.locks, phone)
		delete(g.failed, phone)
		return 0, false
	}
	return remaining, true
}

func ceilMinutes(d time.Duration) int {
	return int(math.Ceil(d.Minutes()))
}

func maskPhone(phone string) string {
	if phone == "" {
		return "unknown"
	}
	if len(phone) < 7 {
		return phone
	}
	return phone[:4] + "***" + phone[len(phone)-3:]
}
