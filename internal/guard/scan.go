package guard

import (
	"context"
	"fmt"
	"time"

	"github.com/m-usd/phonechain/internal/ledger"
	"github.com/m-usd/phonechain/internal/timex"
)

// Defaults for the periodic scan.
const (
	defaultScanHourlyTxThreshold = 10
	defaultDormancyWindow        = 7 * 24 * time.Hour
)

// LedgerReader is the read-only ledger surface the scan needs.
type LedgerReader interface {
	AllTransactions() []*ledger.Transaction
	ListAccounts() []*ledger.Account
}

// ScanReport is the outcome of one security scan pass: counters plus
// human-readable issue strings for operator review.
type ScanReport struct {
	Timestamp      timex.Time `json:"timestamp"`
	LockedAccounts int        `json:"lockedAccounts"`
	FailedAttempts int        `json:"failedAttempts"`
	Issues         []string   `json:"issues"`
}

// Scan inspects recent transaction volume per account and dormant-but-
// funded accounts.
func (g *Guard) Scan(src LedgerReader) ScanReport {
	now := g.nowSnapshot()

	report := ScanReport{
		Timestamp: timex.At(now),
		Issues:    []string{},
	}

	g.mu.Lock()
	report.LockedAccounts = len(g.locks)
	report.FailedAttempts = len(g.failed)
	g.mu.Unlock()

	// Rapid transaction sequences in the trailing hour.
	hourAgo := now.Add(-time.Hour)
	perSender := make(map[string]int)
	var latest = map[string]time.Time{}
	for _, tx := range src.AllTransactions() {
		if tx.Timestamp.After(hourAgo) {
			perSender[tx.From]++
		}
		for _, party := range []string{tx.From, tx.To} {
			if tx.Timestamp.After(latest[party]) {
				latest[party] = tx.Timestamp.Time
			}
		}
	}
	for sender, count := range perSender {
		if count > defaultScanHourlyTxThreshold {
			report.Issues = append(report.Issues,
				fmt.Sprintf("account %s has %d transactions in last hour", maskPhone(sender), count))
		}
	}

	// Funded accounts with no activity for a week.
	dormantCutoff := now.Add(-defaultDormancyWindow)
	for _, acc := range src.ListAccounts() {
		if acc.IsSystem || acc.Balance <= 0 {
			continue
		}
		if last, ok := latest[acc.PhoneNumber]; !ok || last.Before(dormantCutoff) {
			report.Issues = append(report.Issues,
				fmt.Sprintf("dormant account %s has balance but no recent activity", maskPhone(acc.PhoneNumber)))
		}
	}

	return report
}

// RunScans runs Cleanup and Scan on the given interval until ctx is
// cancelled. Reports with issues are logged for operators.
func (g *Guard) RunScans(ctx context.Context, interval time.Duration, src LedgerReader) {
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			g.Cleanup()
			report := g.Scan(src)
			if len(report.Issues) > 0 {
				g.log.Warn(ctx, "security scan found issues",
					"issues", report.Issues,
					"locked_accounts", report.LockedAccounts)
			}
		}
	}
}

func (g *Guard) nowSnapshot() time.Time {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.now()
}
