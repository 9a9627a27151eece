// Package compliance implements the pre-transfer policy gate: amount,
// frequency, pattern and sanctions rules evaluated independently, with
// alerts recorded for every violation. The engine never touches ledger
// state itself; it returns a decision and the ledger applies it.
package compliance

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/m-usd/phonechain/internal/ledger"
	"github.com/m-usd/phonechain/internal/logging"
	"github.com/m-usd/phonechain/internal/security"
	"github.com/m-usd/phonechain/internal/timex"
)

// Rule identifiers, as recorded on alerts.
const (
	RuleAmountLimit = "AMOUNT_LIMIT"
	RuleFrequency   = "FREQUENCY_LIMIT"
	RulePattern     = "PATTERN_DETECTION"
	RuleSanctions   = "SANCTIONS_CHECK"
)

// Auto-action classifications.
const (
	ActionBlock  = "BLOCK"
	ActionReview = "REVIEW"
)

// FreezeReason is the reason recorded when a BLOCK decision freezes the
// sender.
const FreezeReason = "Suspicious transaction pattern"

// Config carries the rule thresholds. Zero values take the production
// defaults.
type Config struct {
	Enabled                bool
	SingleTransactionLimit float64
	DailyLimit             float64
	MaxHourlyTransactions  int
	MaxSameRecipientHourly int
	SanctionsCheck         bool
	// FailOpen controls behavior when rule evaluation itself fails:
	// true (the inherited default) allows the transfer and logs the
	// failure, false blocks it.
	FailOpen bool
}

// DefaultConfig returns the production rule thresholds.
func DefaultConfig() Config {
	return Config{
		Enabled:                true,
		SingleTransactionLimit: 50_000,
		DailyLimit:             1_000_000,
		MaxHourlyTransactions:  10,
		MaxSameRecipientHourly: 3,
		SanctionsCheck:         true,
		FailOpen:               true,
	}
}

type ruleResult struct {
	Rule    string
	Passed  bool
	Details string
}

// Engine evaluates the rules and accumulates alerts. It implements
// ledger.Gate.
type Engine struct {
	cfg       Config
	log       logging.Logger
	sanctions *SanctionsList

	mu     sync.Mutex
	alerts []*Alert

	now func() time.Time

	// evalHook, when set, replaces rule evaluation. Tests use it to
	// exercise the fail-open/fail-closed paths.
	evalHook func(req ledger.TransferRequest, history []*ledger.Transaction) ([]ruleResult, error)
}

func NewEngine(cfg Config, log logging.Logger) *Engine {
	if cfg.SingleTransactionLimit <= 0 {
		cfg.SingleTransactionLimit = 50_000
	}
	if cfg.DailyLimit <= 0 {
		cfg.DailyLimit = 1_000_000
	}
	if cfg.MaxHourlyTransactions <= 0 {
		cfg.MaxHourlyTransactions = 10
	}
	if cfg.MaxSameRecipientHourly <= 0 {
		cfg.MaxSameRecipientHourly = 3
	}
	if log == nil {
		log = logging.Nop{}
	}
	return &Engine{
		cfg:       cfg,
		log:       log.With("module", "compliance"),
		sanctions: DefaultSanctionsList(),
		now:       time.Now,
	}
}

// ReviewTransfer runs every rule against the pending transfer. Any failed
// rule records an alert and blocks; severe failures additionally ask the
// ledger to freeze the sender.
func (e *Engine) ReviewTransfer(ctx context.Context, req ledger.TransferRequest, history []*ledger.Transaction) ledger.GateDecision {
	if !e.cfg.Enabled {
		return ledger.GateDecision{Allowed: true}
	}

	results, err := e.evaluate(req, history)
	if err != nil {
		// An evaluation failure is a policy decision, not a user-facing
		// error: fail open (allow) or closed (block) per configuration.
		e.log.Error(ctx, "compliance evaluation failed", "error", err, "fail_open", e.cfg.FailOpen)
		return ledger.GateDecision{Allowed: e.cfg.FailOpen}
	}

	var violations []ruleResult
	for _, r := range results {
		if !r.Passed {
			violations = append(violations, r)
		}
	}
	if len(violations) == 0 {
		return ledger.GateDecision{Allowed: true}
	}

	alert := e.recordAlert(req, violations)
	e.log.Warn(ctx, "transfer blocked by compliance",
		"from", ledger.MaskPhone(req.From), "rules", alert.Violations, "action", alert.AutoAction)

	return ledger.GateDecision{
		Allowed:      false,
		FreezeSender: alert.AutoAction == ActionBlock,
		FreezeReason: FreezeReason,
	}
}

func (e *Engine) evaluate(req ledger.TransferRequest, history []*ledger.Transaction) (results []ruleResult, err error) {
	if e.evalHook != nil {
		return e.evalHook(req, history)
	}
	defer func() {
		if p := recover(); p != nil {
			results = nil
			err = fmt.Errorf("rule evaluation panic: %v", p)
		}
	}()

	results = []ruleResult{
		e.checkAmountLimit(req, history),
		e.checkFrequency(req, history),
		e.checkPattern(req, history),
	}
	if e.cfg.SanctionsCheck {
		results = append(results, e.checkSanctions(req))
	}
	return results, nil
}

// checkAmountLimit enforces the per-transaction ceiling and the sender's
// same-calendar-day cumulative ceiling. The daily total counts every
// outgoing record, fee records included, matching historical behavior.
func (e *Engine) checkAmountLimit(req ledger.TransferRequest, history []*ledger.Transaction) ruleResult {
	today := e.now()
	var dailyTotal float64
	for _, tx := range history {
		if tx.From != req.From {
			continue
		}
		y1, m1, d1 := tx.Timestamp.Date()
		y2, m2, d2 := today.Date()
		if y1 == y2 && m1 == m2 && d1 == d2 {
			dailyTotal += tx.Amount
		}
	}

	passed := req.Amount <= e.cfg.SingleTransactionLimit &&
		dailyTotal+req.Amount <= e.cfg.DailyLimit

	r := ruleResult{Rule: RuleAmountLimit, Passed: passed}
	if !passed {
		r.Details = fmt.Sprintf("exceeds limits: %.2f", req.Amount)
	}
	return r
}

// checkFrequency bounds the sender's activity in the trailing hour. All
// records the sender participates in count, incoming included.
func (e *Engine) checkFrequency(req ledger.TransferRequest, history []*ledger.Transaction) ruleResult {
	cutoff := e.now().Add(-time.Hour)
	count := 0
	for _, tx := range history {
		if tx.Timestamp.After(cutoff) {
			count++
		}
	}

	r := ruleResult{Rule: RuleFrequency, Passed: count < e.cfg.MaxHourlyTransactions}
	if !r.Passed {
		r.Details = "too many transactions in short period"
	}
	return r
}

// checkPattern flags rapid repeated transfers to the same recipient.
func (e *Engine) checkPattern(req ledger.TransferRequest, history []*ledger.Transaction) ruleResult {
	cutoff := e.now().Add(-time.Hour)
	count := 0
	for _, tx := range history {
		if tx.To == req.To && tx.Timestamp.After(cutoff) {
			count++
		}
	}

	r := ruleResult{Rule: RulePattern, Passed: count < e.cfg.MaxSameRecipientHourly}
	if !r.Passed {
		r.Details = "multiple transactions to same recipient"
	}
	return r
}

func (e *Engine) checkSanctions(req ledger.TransferRequest) ruleResult {
	r := ruleResult{
		Rule:   RuleSanctions,
		Passed: !e.sanctions.Contains(req.From) && !e.sanctions.Contains(req.To),
	}
	if !r.Passed {
		r.Details = "party involved in sanctioned activity"
	}
	return r
}

func (e *Engine) recordAlert(req ledger.TransferRequest, violations []ruleResult) *Alert {
	rules := make([]string, 0, len(violations))
	severe := false
	for _, v := range violations {
		rules = append(rules, v.Rule)
		if v.Rule == RuleAmountLimit || v.Rule == RuleSanctions {
			severe = true
		}
	}

	action := ActionReview
	if severe {
		action = ActionBlock
	}

	alert := &Alert{
		ID:            security.AlertID(),
		TransactionID: security.TransactionID(),
		PhoneNumber:   req.From,
		Amount:        req.Amount,
		Violations:    rules,
		Timestamp:     timex.At(e.now()),
		Status:        AlertPendingReview,
		AutoAction:    action,
	}

	e.mu.Lock()
	e.alerts = append(e.alerts, alert)
	e.mu.Unlock()

	return alert
}
