// Package ledger is the system of record for balances and transaction
// history. All state changes, including policy-triggered freezes, go
// through the operations on Ledger so invariants are enforced in one place.
package ledger

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/m-usd/phonechain/internal/common"
	"github.com/m-usd/phonechain/internal/logging"
	"github.com/m-usd/phonechain/internal/security"
	"github.com/m-usd/phonechain/internal/timex"
)

// Defaults for the reserved fee-collector account.
const (
	DefaultFeeCollector = "+254746500025"
	feeCollectorSecret  = "system_fee_collector_2024"
)

const (
	defaultFreezeReason  = "Security concerns"
	defaultSuspendReason = "Violation of terms of service"
)

// TransferRequest describes a transfer about to happen, as seen by the
// compliance gate.
type TransferRequest struct {
	From      string
	To        string
	Amount    float64
	Timestamp timex.Time
}

// GateDecision is the compliance gate's verdict. When FreezeSender is set
// the ledger freezes the sender with FreezeReason before rejecting.
type GateDecision struct {
	Allowed      bool
	FreezeSender bool
	FreezeReason string
}

// Gate reviews a transfer before any balance changes. The sender's
// transaction history is passed in so the gate needs no read access of its
// own. Implementations must not call back into the ledger.
type Gate interface {
	ReviewTransfer(ctx context.Context, req TransferRequest, senderHistory []*Transaction) GateDecision
}

// allowAll is the gate used when none is configured.
type allowAll struct{}

func (allowAll) ReviewTransfer(context.Context, TransferRequest, []*Transaction) GateDecision {
	return GateDecision{Allowed: true}
}

// Config carries the ledger's policy parameters.
type Config struct {
	FeeCollector      string
	Fees              security.FeeSchedule
	PasswordMinLength int
	Hasher            security.PasswordHasher
}

// AfterWrite is invoked synchronously after every successful mutation with
// a copy of the just-persisted document. The backup subsystem hooks in
// here; it replaces the method-wrapping interception the original design
// used. The hook runs under the ledger's mutex and must not call back into
// the ledger.
type AfterWrite func(ctx context.Context, doc *Document)

// Ledger owns the account map and the append-only transaction list.
// A single mutex serializes every read-modify-write sequence, which closes
// the cross-operation double-spend window a lockless design would have.
type Ledger struct {
	mu    sync.Mutex
	cfg   Config
	log   logging.Logger
	store Store
	gate  Gate
	after AfterWrite

	accounts     map[string]*Account
	order        []string // account insertion order, for stable exports
	transactions []*Transaction
	blockHeight  int64
}

// New loads any previously persisted document from store and ensures the
// fee-collector account exists.
func New(ctx context.Context, cfg Config, store Store, log logging.Logger) (*Ledger, error) {
	if cfg.FeeCollector == "" {
		cfg.FeeCollector = DefaultFeeCollector
	}
	if cfg.Fees == (security.FeeSchedule{}) {
		cfg.Fees = security.DefaultFeeSchedule()
	}
	if cfg.PasswordMinLength <= 0 {
		cfg.PasswordMinLength = security.DefaultPasswordMinLength
	}
	if cfg.Hasher == nil {
		cfg.Hasher = security.LegacyHasher{}
	}
	if log == nil {
		log = logging.Nop{}
	}

	l := &Ledger{
		cfg:      cfg,
		log:      log.With("module", "ledger"),
		store:    store,
		gate:     allowAll{},
		accounts: make(map[string]*Account),
	}

	if store != nil {
		doc, err := store.Load(ctx)
		if err != nil {
			return nil, fmt.Errorf("loading ledger document: %w", err)
		}
		if doc != nil {
			if err := l.apply(doc); err != nil {
				return nil, fmt.Errorf("applying ledger document: %w", err)
			}
		}
	}

	l.ensureFeeCollector(ctx)
	return l, nil
}

// SetGate installs the compliance gate. Wired once at construction time.
func (l *Ledger) SetGate(g Gate) {
	if g != nil {
		l.gate = g
	}
}

// SetAfterWrite installs the post-mutation hook. Wired once at construction
// time.
func (l *Ledger) SetAfterWrite(f AfterWrite) {
	l.after = f
}

// FeeCollector returns the reserved fee-collector phone number.
func (l *Ledger) FeeCollector() string {
	return l.cfg.FeeCollector
}

func (l *Ledger) ensureFeeCollector(ctx context.Context) {
	l.mu.Lock()
	defer l.mu.Unlock()

	phone := l.cfg.FeeCollector
	if _, ok := l.accounts[phone]; ok {
		return
	}

	hash, err := l.cfg.Hasher.Hash(feeCollectorSecret)
	if err != nil {
		l.log.Error(ctx, "hashing fee collector password", "error", err)
		return
	}

	l.insertAccount(&Account{
		PhoneNumber:   phone,
		WalletAddress: security.WalletAddress(phone),
		PasswordHash:  hash,
		Balance:       0,
		CreatedAt:     timex.Now(),
		IsActive:      true,
		IsSystem:      true,
		Transactions:  []string{},
	})
	l.commit(ctx)
}

func (l *Ledger) insertAccount(a *Account) {
	l.accounts[a.PhoneNumber] = a
	l.order = append(l.order, a.PhoneNumber)
}

// Register creates a zero-balance account for the phone number.
func (l *Ledger) Register(ctx context.Context, phone, password string) (*Account, error) {
	if phone == "" || password == "" {
		return nil, fmt.Errorf("%w: phone number and password are required", common.ErrInvalidInput)
	}
	if !security.ValidPhoneNumber(phone) {
		return nil, fmt.Errorf("%w: invalid phone number format", common.ErrInvalidInput)
	}
	if !security.ValidPassword(password, l.cfg.PasswordMinLength) {
		return nil, fmt.Errorf("%w: password must be at least %d characters", common.ErrInvalidInput, l.cfg.PasswordMinLength)
	}

	hash, err := l.cfg.Hasher.Hash(password)
	if err != nil {
		return nil, fmt.Errorf("hashing password: %w", err)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if _, exists := l.accounts[phone]; exists {
		return nil, common.ErrDuplicateAccount
	}

	acc := &Account{
		PhoneNumber:   phone,
		WalletAddress: security.WalletAddress(phone),
		PasswordHash:  hash,
		Balance:       0,
		CreatedAt:     timex.Now(),
		IsActive:      true,
		Transactions:  []string{},
	}
	l.insertAccount(acc)
	l.commit(ctx)

	return acc.clone(), nil
}

// Authenticate verifies credentials. A frozen account can still log in:
// freeze restricts money movement only, suspension blocks login.
func (l *Ledger) Authenticate(ctx context.Context, phone, password string) (*Account, error) {
	if phone == "" || password == "" {
		return nil, fmt.Errorf("%w: phone number and password are required", common.ErrInvalidInput)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	acc, ok := l.accounts[phone]
	if !ok {
		return nil, common.ErrNotFound
	}
	if !acc.IsActive {
		return nil, fmt.Errorf("%w: reason: %s", common.ErrAccountSuspended, reasonOr(acc.SuspendReason, defaultSuspendReason))
	}
	if !l.cfg.Hasher.Verify(password, acc.PasswordHash) {
		return nil, common.ErrInvalidCredentials
	}

	return acc.clone(), nil
}

// Transfer moves amount from one account to another, charging the fee to
// the sender and crediting it to the fee collector. On success two records
// are appended: the principal transfer and a fee record linked to it.
func (l *Ledger) Transfer(ctx context.Context, fromPhone, toPhone string, amount float64, password string) (*TransferResult, error) {
	if fromPhone == "" || toPhone == "" || password == "" {
		return nil, fmt.Errorf("%w: all fields are required", common.ErrInvalidInput)
	}
	if amount <= 0 {
		return nil, fmt.Errorf("%w: amount must be positive", common.ErrInvalidInput)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	from, ok := l.accounts[fromPhone]
	if !ok {
		return nil, fmt.Errorf("%w: sender", common.ErrNotFound)
	}
	to, ok := l.accounts[toPhone]
	if !ok {
		return nil, fmt.Errorf("%w: recipient", common.ErrNotFound)
	}
	if from.Frozen {
		return nil, fmt.Errorf("%w: reason: %s", common.ErrAccountFrozen, reasonOr(from.FreezeReason, defaultFreezeReason))
	}
	if !from.IsActive {
		return nil, fmt.Errorf("%w: reason: %s", common.ErrAccountSuspended, reasonOr(from.SuspendReason, defaultSuspendReason))
	}
	if !to.IsActive {
		return nil, common.ErrRecipientSuspended
	}
	if fromPhone == toPhone {
		return nil, common.ErrSelfTransfer
	}
	if !l.cfg.Hasher.Verify(password, from.PasswordHash) {
		return nil, common.ErrInvalidCredentials
	}

	req := TransferRequest{From: fromPhone, To: toPhone, Amount: amount, Timestamp: timex.Now()}
	decision := l.gate.ReviewTransfer(ctx, req, l.userTransactionsLocked(fromPhone))
	if !decision.Allowed {
		if decision.FreezeSender {
			l.freezeLocked(from, decision.FreezeReason)
			l.commit(ctx)
		}
		return nil, common.ErrComplianceBlocked
	}

	fee := l.cfg.Fees.Fee(amount)
	total := amount + fee
	if from.Balance < total {
		return nil, fmt.Errorf("%w: you need %.2f USD (including %.2f USD fee)", common.ErrInsufficientFunds, total, fee)
	}

	collector := l.accounts[l.cfg.FeeCollector]

	from.Balance -= total
	to.Balance += amount
	if collector != nil {
		collector.Balance += fee
	}

	now := timex.Now()
	main := &Transaction{
		ID:          security.TransactionID(),
		From:        fromPhone,
		To:          toPhone,
		FromAddress: from.WalletAddress,
		ToAddress:   to.WalletAddress,
		Amount:      amount,
		Fee:         fee,
		Total:       total,
		Timestamp:   now,
		Status:      StatusConfirmed,
		Type:        KindTransfer,
		BlockHeight: l.blockHeight,
	}
	main.Signature = main.sign()

	feeAddr := "FEE_WALLET"
	if collector != nil {
		feeAddr = collector.WalletAddress
	}
	feeTx := &Transaction{
		ID:          security.TransactionID(),
		From:        fromPhone,
		To:          l.cfg.FeeCollector,
		FromAddress: from.WalletAddress,
		ToAddress:   feeAddr,
		Amount:      fee,
		Fee:         0,
		Total:       fee,
		Timestamp:   now,
		Status:      StatusConfirmed,
		Type:        KindFee,
		BlockHeight: l.blockHeight,
		RelatedTx:   main.ID,
	}
	feeTx.Signature = feeTx.sign()

	l.transactions = append(l.transactions, main, feeTx)
	from.Transactions = append(from.Transactions, main.ID, feeTx.ID)
	to.Transactions = append(to.Transactions, main.ID)
	if collector != nil {
		collector.Transactions = append(collector.Transactions, feeTx.ID)
	}

	l.blockHeight++
	l.commit(ctx)

	l.log.Info(ctx, "transfer confirmed",
		"from", MaskPhone(fromPhone), "to", MaskPhone(toPhone),
		"amount", amount, "fee", fee, "tx", main.ID)

	return &TransferResult{
		Amount:        amount,
		Fee:           fee,
		Total:         total,
		Recipient:     toPhone,
		TransactionID: main.ID,
	}, nil
}

// AddFunds credits the account and appends a funding record.
func (l *Ledger) AddFunds(ctx context.Context, phone string, amount float64) (*Transaction, error) {
	if amount <= 0 {
		return nil, fmt.Errorf("%w: amount must be positive", common.ErrInvalidInput)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	acc, ok := l.accounts[phone]
	if !ok {
		return nil, common.ErrNotFound
	}
	if acc.Frozen {
		return nil, fmt.Errorf("%w: reason: %s: cannot add funds", common.ErrAccountFrozen, reasonOr(acc.FreezeReason, defaultFreezeReason))
	}
	if !acc.IsActive {
		return nil, fmt.Errorf("%w: reason: %s: cannot add funds", common.ErrAccountSuspended, reasonOr(acc.SuspendReason, defaultSuspendReason))
	}

	acc.Balance += amount

	tx := &Transaction{
		ID:          security.TransactionID(),
		From:        SystemSender,
		To:          phone,
		FromAddress: SystemAddress,
		ToAddress:   acc.WalletAddress,
		Amount:      amount,
		Timestamp:   timex.Now(),
		Status:      StatusConfirmed,
		Type:        KindFunding,
		BlockHeight: l.blockHeight,
	}
	tx.Signature = tx.sign()

	l.blockHeight++
	l.transactions = append(l.transactions, tx)
	acc.Transactions = append(acc.Transactions, tx.ID)
	l.commit(ctx)

	return tx.clone(), nil
}

// DeductFunds is the administrative counterpart of AddFunds: it debits the
// account and records an admin_deduction with the operator's reason.
func (l *Ledger) DeductFunds(ctx context.Context, phone string, amount float64, reason string) (*Transaction, error) {
	if amount <= 0 {
		return nil, fmt.Errorf("%w: amount must be positive", common.ErrInvalidInput)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	acc, ok := l.accounts[phone]
	if !ok {
		return nil, common.ErrNotFound
	}
	if acc.Balance < amount {
		return nil, fmt.Errorf("%w: account holds %.2f USD", common.ErrInsufficientFunds, acc.Balance)
	}

	acc.Balance -= amount

	tx := &Transaction{
		ID:          security.TransactionID(),
		From:        phone,
		To:          SystemSender,
		FromAddress: acc.WalletAddress,
		ToAddress:   SystemAddress,
		Amount:      amount,
		Timestamp:   timex.Now(),
		Status:      StatusConfirmed,
		Type:        KindAdminDeduction,
		BlockHeight: l.blockHeight,
		Reason:      reason,
	}
	tx.Signature = tx.sign()

	l.blockHeight++
	l.transactions = append(l.transactions, tx)
	acc.Transactions = append(acc.Transactions, tx.ID)
	l.commit(ctx)

	return tx.clone(), nil
}

// Freeze blocks all balance movement on the account. This is the single
// mutation path for freezes, whether triggered by an operator or by the
// compliance gate.
func (l *Ledger) Freeze(ctx context.Context, phone, reason string) error {
	return l.setFlags(ctx, phone, func(a *Account) {
		l.freezeLocked(a, reason)
	})
}

// Unfreeze lifts a freeze.
func (l *Ledger) Unfreeze(ctx context.Context, phone string) error {
	return l.setFlags(ctx, phone, func(a *Account) {
		a.Frozen = false
		a.FreezeReason = ""
	})
}

// Suspend deactivates the account; login and all operations are blocked.
func (l *Ledger) Suspend(ctx context.Context, phone, reason string) error {
	return l.setFlags(ctx, phone, func(a *Account) {
		a.IsActive = false
		a.SuspendReason = reasonOr(reason, "Administrative action")
	})
}

// Activate reinstates a suspended account.
func (l *Ledger) Activate(ctx context.Context, phone string) error {
	return l.setFlags(ctx, phone, func(a *Account) {
		a.IsActive = true
		a.SuspendReason = ""
	})
}

func (l *Ledger) setFlags(ctx context.Context, phone string, mutate func(*Account)) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	acc, ok := l.accounts[phone]
	if !ok {
		return common.ErrNotFound
	}
	mutate(acc)
	l.commit(ctx)
	return nil
}

func (l *Ledger) freezeLocked(a *Account, reason string) {
	a.Frozen = true
	a.FreezeReason = reasonOr(reason, defaultFreezeReason)
	l.log.Warn(context.Background(), "account frozen", "phone", MaskPhone(a.PhoneNumber), "reason", a.FreezeReason)
}

// GetBalance returns the account balance, or zero for unknown accounts.
func (l *Ledger) GetBalance(phone string) float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	if acc, ok := l.accounts[phone]; ok {
		return acc.Balance
	}
	return 0
}

// UserExists reports whether the phone number has an account.
func (l *Ledger) UserExists(phone string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, ok := l.accounts[phone]
	return ok
}

// GetProfile returns the public view of an account, or nil when absent.
func (l *Ledger) GetProfile(phone string) *Profile {
	l.mu.Lock()
	defer l.mu.Unlock()
	acc, ok := l.accounts[phone]
	if !ok {
		return nil
	}
	return &Profile{
		PhoneNumber:   acc.PhoneNumber,
		WalletAddress: acc.WalletAddress,
		IsActive:      acc.IsActive,
		Frozen:        acc.Frozen,
		CreatedAt:     acc.CreatedAt,
		Balance:       acc.Balance,
	}
}

// GetAccount returns a copy of the full account record, for admin use.
func (l *Ledger) GetAccount(phone string) (*Account, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	acc, ok := l.accounts[phone]
	if !ok {
		return nil, common.ErrNotFound
	}
	return acc.clone(), nil
}

// ListAccounts returns copies of every account in insertion order.
func (l *Ledger) ListAccounts() []*Account {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]*Account, 0, len(l.order))
	for _, phone := range l.order {
		out = append(out, l.accounts[phone].clone())
	}
	return out
}

// GetUserTransactions returns every transaction the account participated
// in, newest first.
func (l *Ledger) GetUserTransactions(phone string) []*Transaction {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make([]*Transaction, 0)
	for _, tx := range l.userTransactionsLocked(phone) {
		out = append(out, tx.clone())
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Timestamp.After(out[j].Timestamp.Time)
	})
	return out
}

// AllTransactions returns a copy of the full history, oldest first.
func (l *Ledger) AllTransactions() []*Transaction {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]*Transaction, 0, len(l.transactions))
	for _, tx := range l.transactions {
		out = append(out, tx.clone())
	}
	return out
}

func (l *Ledger) userTransactionsLocked(phone string) []*Transaction {
	var out []*Transaction
	for _, tx := range l.transactions {
		if tx.From == phone || tx.To == phone {
			out = append(out, tx)
		}
	}
	return out
}

// GetSystemStats aggregates the ledger without side effects.
func (l *Ledger) GetSystemStats() Stats {
	l.mu.Lock()
	defer l.mu.Unlock()

	var totalValue float64
	for _, acc := range l.accounts {
		totalValue += acc.Balance
	}
	var totalFees float64
	if collector, ok := l.accounts[l.cfg.FeeCollector]; ok {
		totalFees = collector.Balance
	}

	return Stats{
		TotalUsers:        len(l.accounts),
		TotalTransactions: len(l.transactions),
		BlockHeight:       l.blockHeight,
		TotalValue:        totalValue,
		TotalFees:         totalFees,
		FeeCollector:      l.cfg.FeeCollector,
	}
}

// Snapshot returns a deep copy of the full ledger state as a document.
func (l *Ledger) Snapshot() *Document {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.documentLocked().clone()
}

// Restore replaces the ledger state wholesale with the given document and
// persists it. Used by backup restore and by import.
func (l *Ledger) Restore(ctx context.Context, doc *Document) error {
	if err := doc.Validate(); err != nil {
		return fmt.Errorf("%w: %v", common.ErrInvalidInput, err)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if err := l.apply(doc.clone()); err != nil {
		return err
	}
	l.commit(ctx)
	return nil
}

func (l *Ledger) apply(doc *Document) error {
	accounts := make(map[string]*Account, len(doc.Users))
	order := make([]string, 0, len(doc.Users))
	for _, e := range doc.Users {
		if e.Phone == "" || e.Account == nil {
			return fmt.Errorf("document contains an empty user entry")
		}
		accounts[e.Phone] = e.Account
		order = append(order, e.Phone)
	}

	l.accounts = accounts
	l.order = order
	l.transactions = doc.Transactions
	if l.transactions == nil {
		l.transactions = []*Transaction{}
	}
	l.blockHeight = doc.BlockHeight
	return nil
}

func (l *Ledger) documentLocked() *Document {
	doc := &Document{
		Users:        make([]UserEntry, 0, len(l.order)),
		Transactions: l.transactions,
		BlockHeight:  l.blockHeight,
	}
	for _, phone := range l.order {
		doc.Users = append(doc.Users, UserEntry{Phone: phone, Account: l.accounts[phone]})
	}
	return doc
}

// commit hands the current state to the store and fires the after-write
// hook. Store failures are logged and the in-memory mutation stands; there
// is no rollback between memory and store.
func (l *Ledger) commit(ctx context.Context) {
	doc := l.documentLocked().clone()
	if l.store != nil {
		if err := l.store.Save(ctx, doc); err != nil {
			l.log.Error(ctx, "persisting ledger state", "error", err)
		}
	}
	if l.after != nil {
		l.after(ctx, doc)
	}
}

func reasonOr(reason, fallback string) string {
	if reason == "" {
		return fallback
	}
	return reason
}

// MaskPhone hides the middle digits of a phone number for log output.
func MaskPhone(phone string) string {
	if phone == "" {
		return "unknown"
	}
	if len(phone) < 7 {
		return phone
	}
	return phone[:4] + "***" + phone[len(phone)-3:]
}
