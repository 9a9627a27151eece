package ledger

import (
	"strconv"

	"github.com/m-usd/phonechain/internal/security"
	"github.com/m-usd/phonechain/internal/timex"
)

// Transaction kinds.
const (
	KindTransfer       = "transfer"
	KindFee            = "fee"
	KindFunding        = "funding"
	KindAdminDeduction = "admin_deduction"
)

// StatusConfirmed is the only status a persisted transaction ever has.
// There are no pending or failed records; rejected operations leave no trace.
const StatusConfirmed = "confirmed"

// Placeholders for system-originated movements (funding, deductions).
const (
	SystemSender  = "system"
	SystemAddress = "SYSTEM_WALLET"
)

// Account is a phone-number-addressed wallet. The phone number is the
// primary key; the wallet address is derived deterministically from it.
// An account is active or suspended, and independently frozen or not:
// frozen blocks all balance movement, suspended additionally blocks login.
type Account struct {
	PhoneNumber   string     `json:"phoneNumber"`
	WalletAddress string     `json:"walletAddress"`
	PasswordHash  string     `json:"passwordHash"`
	Balance       float64    `json:"balance"`
	CreatedAt     timex.Time `json:"createdAt"`
	IsActive      bool       `json:"isActive"`
	Frozen        bool       `json:"frozen"`
	FreezeReason  string     `json:"freezeReason,omitempty"`
	SuspendReason string     `json:"suspendReason,omitempty"`
	IsSystem      bool       `json:"isSystem,omitempty"`
	Transactions  []string   `json:"transactions"`
}

func (a *Account) clone() *Account {
	c := *a
	c.Transactions = append([]string(nil), a.Transactions...)
	return &c
}

// Transaction is an immutable ledger record. A transfer produces two of
// them: the principal record and a fee record whose RelatedTx points back
// at the principal.
type Transaction struct {
	ID          string     `json:"id"`
	From        string     `json:"from"`
	To          string     `json:"to"`
	FromAddress string     `json:"fromAddress"`
	ToAddress   string     `json:"toAddress"`
	Amount      float64    `json:"amount"`
	Fee         float64    `json:"fee"`
	Total       float64    `json:"total"`
	Timestamp   timex.Time `json:"timestamp"`
	Status      string     `json:"status"`
	Type        string     `json:"type"`
	BlockHeight int64      `json:"blockHeight"`
	Signature   string     `json:"signature"`
	RelatedTx   string     `json:"relatedTx,omitempty"`
	Reason      string     `json:"reason,omitempty"`
}

func (t *Transaction) clone() *Transaction {
	c := *t
	return &c
}

// sign computes the tamper-evidence digest over the record's identifying
// fields. The amount is rendered the way stored documents render numbers,
// so recomputed signatures match historical ones.
func (t *Transaction) sign() string {
	return security.HashPassword(
		t.From + t.To + strconv.FormatFloat(t.Amount, 'f', -1, 64) + t.Timestamp.ISO(),
	)
}

// VerifySignature recomputes the digest and compares. This is a
// demonstration of tamper evidence, not a cryptographic guarantee.
func (t *Transaction) VerifySignature() bool {
	return t.Signature == t.sign()
}

// TransferResult is returned to the caller of a successful transfer.
type TransferResult struct {
	Amount        float64 `json:"amount"`
	Fee           float64 `json:"fee"`
	Total         float64 `json:"total"`
	Recipient     string  `json:"recipient"`
	TransactionID string  `json:"transactionId"`
}

// Profile is the public view of an account.
type Profile struct {
	PhoneNumber   string     `json:"phoneNumber"`
	WalletAddress string     `json:"walletAddress"`
	IsActive      bool       `json:"isActive"`
	Frozen        bool       `json:"frozen"`
	CreatedAt     timex.Time `json:"createdAt"`
	Balance       float64    `json:"balance"`
}

// Stats is an aggregate snapshot of the ledger.
type Stats struct {
	TotalUsers        int     `json:"totalUsers"`
	TotalTransactions int     `json:"totalTransactions"`
	BlockHeight       int64   `json:"blockHeight"`
	TotalValue        float64 `json:"totalValue"`
	TotalFees         float64 `json:"totalFees"`
	FeeCollector      string  `json:"feeCollector"`
}
