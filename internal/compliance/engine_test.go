package compliance

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/m-usd/phonechain/internal/ledger"
	"github.com/m-usd/phonechain/internal/timex"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	sender    = "+10000000001"
	recipient = "+10000000002"
)

func testEngine(t *testing.T) *Engine {
	t.Helper()
	e := NewEngine(DefaultConfig(), nil)
	e.now = func() time.Time {
		return time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	}
	return e
}

func request(amount float64) ledger.TransferRequest {
	return ledger.TransferRequest{
		From:      sender,
		To:        recipient,
		Amount:    amount,
		Timestamp: timex.At(time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)),
	}
}

// at builds a history record with a timestamp relative to the test clock.
func at(e *Engine, offset time.Duration, from, to string, amount float64) *ledger.Transaction {
	return &ledger.Transaction{
		ID:        fmt.Sprintf("TX_%d_aaaaaaaaa", offset),
		From:      from,
		To:        to,
		Amount:    amount,
		Timestamp: timex.At(e.now().Add(offset)),
	}
}

func TestReviewTransfer_CleanTransferAllowed(t *testing.T) {
	e := testEngine(t)
	d := e.ReviewTransfer(context.Background(), request(100), nil)
	assert.True(t, d.Allowed)
	assert.Empty(t, e.Alerts())
}

func TestReviewTransfer_DisabledAllowsEverything(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Enabled = false
	e := NewEngine(cfg, nil)

	d := e.ReviewTransfer(context.Background(), request(9_000_000), nil)
	assert.True(t, d.Allowed)
	assert.Empty(t, e.Alerts())
}

func TestReviewTransfer_SingleAmountLimit(t *testing.T) {
	e := testEngine(t)

	d := e.ReviewTransfer(context.Background(), request(50_001), nil)
	require.False(t, d.Allowed)
	// Amount violations are severe: the sender gets frozen.
	assert.True(t, d.FreezeSender)
	assert.Equal(t, FreezeReason, d.FreezeReason)

	alerts := e.Alerts()
	require.Len(t, alerts, 1)
	assert.Contains(t, alerts[0].Violations, RuleAmountLimit)
	assert.Equal(t, ActionBlock, alerts[0].AutoAction)
	assert.Equal(t, AlertPendingReview, alerts[0].Status)
	// Every alert carries a provisional reference to the reviewed transfer.
	assert.True(t, strings.HasPrefix(alerts[0].TransactionID, "TX_"), alerts[0].TransactionID)
	assert.NotEmpty(t, alerts[0].ID)

	// Exactly at the limit is allowed.
	d = e.ReviewTransfer(context.Background(), request(50_000), nil)
	assert.True(t, d.Allowed)
}

func TestReviewTransfer_DailyLimitCountsTodayOnly(t *testing.T) {
	e := testEngine(t)

	history := []*ledger.Transaction{
		at(e, -2*time.Hour, sender, recipient, 999_990),
		// Yesterday's volume does not count toward today.
		at(e, -25*time.Hour, sender, recipient, 500_000),
	}

	d := e.ReviewTransfer(context.Background(), request(20), history)
	require.False(t, d.Allowed)
	assert.True(t, d.FreezeSender)

	d = e.ReviewTransfer(context.Background(), request(10), history)
	assert.True(t, d.Allowed)
}

func TestReviewTransfer_FrequencyLimit(t *testing.T) {
	e := testEngine(t)

	// Nine recent records to distinct recipients: busy but still allowed.
	var history []*ledger.Transaction
	for i := 0; i < 9; i++ {
		to := fmt.Sprintf("+1999999%04d", i)
		history = append(history, at(e, -time.Duration(i+1)*time.Minute, sender, to, 1))
	}

	d := e.ReviewTransfer(context.Background(), request(1), history)
	assert.True(t, d.Allowed)

	// The tenth record in the hour trips the rule. Incoming records
	// count too, so receiving money consumes the same budget.
	history = append(history, at(e, -30*time.Minute, recipient, sender, 1))
	d = e.ReviewTransfer(context.Background(), request(1), history)
	require.False(t, d.Allowed)
	// Frequency alone is not severe: review, no freeze.
	assert.False(t, d.FreezeSender)

	alerts := e.Alerts()
	require.Len(t, alerts, 1)
	assert.Contains(t, alerts[0].Violations, RuleFrequency)
	assert.Equal(t, ActionReview, alerts[0].AutoAction)
}

func TestReviewTransfer_FrequencyIgnoresOldRecords(t *testing.T) {
	e := testEngine(t)

	var history []*ledger.Transaction
	for i := 0; i < 20; i++ {
		history = append(history, at(e, -2*time.Hour-time.Duration(i)*time.Minute, sender, recipient, 1))
	}

	d := e.ReviewTransfer(context.Background(), request(1), history)
	assert.True(t, d.Allowed)
}

func TestReviewTransfer_PatternDetection(t *testing.T) {
	e := testEngine(t)

	history := []*ledger.Transaction{
		at(e, -10*time.Minute, sender, recipient, 1),
		at(e, -20*time.Minute, sender, recipient, 1),
	}
	d := e.ReviewTransfer(context.Background(), request(1), history)
	assert.True(t, d.Allowed)

	history = append(history, at(e, -30*time.Minute, sender, recipient, 1))
	d = e.ReviewTransfer(context.Background(), request(1), history)
	require.False(t, d.Allowed)
	assert.False(t, d.FreezeSender)

	alerts := e.Alerts()
	require.Len(t, alerts, 1)
	assert.Contains(t, alerts[0].Violations, RulePattern)
}

func TestReviewTransfer_SanctionsCheck(t *testing.T) {
	e := testEngine(t)

	d := e.ReviewTransfer(context.Background(), ledger.TransferRequest{
		From: sender, To: "+1234567890", Amount: 10,
	}, nil)
	require.False(t, d.Allowed)
	assert.True(t, d.FreezeSender)

	alerts := e.Alerts()
	require.Len(t, alerts, 1)
	assert.Contains(t, alerts[0].Violations, RuleSanctions)
	assert.Equal(t, ActionBlock, alerts[0].AutoAction)
}

func TestReviewTransfer_SanctionsCheckDisabled(t *testing.T) {
	cfg := DefaultConfig()
	cfg.SanctionsCheck = false
	e := NewEngine(cfg, nil)

	d := e.ReviewTransfer(context.Background(), ledger.TransferRequest{
		From: sender, To: "+1234567890", Amount: 10,
	}, nil)
	assert.True(t, d.Allowed)
}

func TestReviewTransfer_FailOpen(t *testing.T) {
	e := testEngine(t)
	e.evalHook = func(ledger.TransferRequest, []*ledger.Transaction) ([]ruleResult, error) {
		return nil, errors.New("rule engine exploded")
	}

	d := e.ReviewTransfer(context.Background(), request(10), nil)
	assert.True(t, d.Allowed)
	assert.Empty(t, e.Alerts())
}

func TestReviewTransfer_FailClosed(t *testing.T) {
	cfg := DefaultConfig()
	cfg.FailOpen = false
	e := NewEngine(cfg, nil)
	e.evalHook = func(ledger.TransferRequest, []*ledger.Transaction) ([]ruleResult, error) {
		return nil, errors.New("rule engine exploded")
	}

	d := e.ReviewTransfer(context.Background(), request(10), nil)
	assert.False(t, d.Allowed)
	assert.False(t, d.FreezeSender)
}

func TestReviewTransfer_PanicIsContained(t *testing.T) {
	e := testEngine(t)
	e.sanctions = nil // forces a nil dereference inside rule evaluation

	var d ledger.GateDecision
	assert.NotPanics(t, func() {
		d = e.ReviewTransfer(context.Background(), request(10), nil)
	})
	assert.True(t, d.Allowed) // fail-open default
}

func TestGetReport(t *testing.T) {
	e := testEngine(t)

	_ = e.ReviewTransfer(context.Background(), request(60_000), nil)
	_ = e.ReviewTransfer(context.Background(), request(70_000), nil)

	report := e.GetReport()
	assert.Equal(t, 2, report.TotalAlerts)
	assert.Equal(t, 2, report.ActiveAlerts)
	assert.Equal(t, 2, report.SanctionsListSize)
	require.Len(t, e.Alerts(), 2)
}

func TestSanctionsList(t *testing.T) {
	l := DefaultSanctionsList()
	assert.True(t, l.Contains("+1234567890"))
	assert.True(t, l.Contains("john doe"))
	assert.False(t, l.Contains("+10000000001"))
	assert.Greater(t, l.Len(), 0)
}
