package compliance

import "github.com/m-usd/phonechain/internal/timex"

// Alert statuses. Alerts are immutable once created except for the status
// field, which a manual review flow may advance.
const (
	AlertPendingReview = "pending_review"
	AlertResolved      = "resolved"
)

// Alert records a rule violation. One alert may carry several violated
// rules from the same transfer attempt.
type Alert struct {
	ID string `json:"id"`
	// TransactionID is a provisional id minted for the reviewed request.
	// The transfer it refers to may never commit when the action is BLOCK.
	TransactionID string     `json:"transactionId"`
	PhoneNumber   string     `json:"phoneNumber"`
	Amount        float64    `json:"amount"`
	Violations    []string   `json:"violations"`
	Timestamp     timex.Time `json:"timestamp"`
	Status        string     `json:"status"`
	AutoAction    string     `json:"autoAction"`
}

// Report is the aggregate view exposed to operators.
type Report struct {
	Timestamp         timex.Time `json:"timestamp"`
	ActiveAlerts      int        `json:"activeAlerts"`
	TotalAlerts       int        `json:"totalAlerts"`
	SanctionsListSize int        `json:"sanctionsListSize"`
}

// Alerts returns a copy of the recorded alerts, oldest first.
func (e *Engine) Alerts() []*Alert {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]*Alert, 0, len(e.alerts))
	for _, a := range e.alerts {
		c := *a
		c.Violations = append([]string(nil), a.Violations...)
		out = append(out, &c)
	}
	return out
}

// GetReport summarizes alert activity.
func (e *Engine) GetReport() Report {
	e.mu.Lock()
	defer e.mu.Unlock()

	active := 0
	for _, a := range e.alerts {
		if a.Status == AlertPendingReview {
			active++
		}
	}
	return Report{
		Timestamp:         timex.At(e.now()),
		ActiveAlerts:      active,
		TotalAlerts:       len(e.alerts),
		SanctionsListSize: e.sanctions.Len(),
	}
}
