package ledger

import (
	"encoding/json"
	"fmt"
)

// Document is the portable, persisted shape of the full ledger state.
// Backup, restore and export/import all speak this format, and it must stay
// interchangeable with documents produced by existing deployments: users as
// a list of [phoneNumber, record] pairs, transactions oldest first, and the
// current block height.
type Document struct {
	Users        []UserEntry    `json:"users"`
	Transactions []*Transaction `json:"transactions"`
	BlockHeight  int64          `json:"blockHeight"`
}

// UserEntry is one [key, value] pair of the document's account list.
type UserEntry struct {
	Phone   string
	Account *Account
}

func (e UserEntry) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]any{e.Phone, e.Account})
}

func (e *UserEntry) UnmarshalJSON(b []byte) error {
	var pair []json.RawMessage
	if err := json.Unmarshal(b, &pair); err != nil {
		return err
	}
	if len(pair) != 2 {
		return fmt.Errorf("user entry: expected [phone, account] pair, got %d elements", len(pair))
	}
	if err := json.Unmarshal(pair[0], &e.Phone); err != nil {
		return fmt.Errorf("user entry phone: %w", err)
	}
	e.Account = &Account{}
	if err := json.Unmarshal(pair[1], e.Account); err != nil {
		return fmt.Errorf("user entry account: %w", err)
	}
	return nil
}

// Validate performs the structural checks applied before an import:
// non-nil collections, unique ids, non-negative balances and referential
// integrity of fee links.
func (d *Document) Validate() error {
	if d.Users == nil || d.Transactions == nil {
		return fmt.Errorf("document missing users or transactions")
	}

	seenPhones := make(map[string]struct{}, len(d.Users))
	for _, e := range d.Users {
		if e.Phone == "" || e.Account == nil {
			return fmt.Errorf("document contains an empty user entry")
		}
		if _, dup := seenPhones[e.Phone]; dup {
			return fmt.Errorf("duplicate account %s", e.Phone)
		}
		seenPhones[e.Phone] = struct{}{}
		if e.Account.Balance < 0 {
			return fmt.Errorf("account %s has negative balance", e.Phone)
		}
	}

	seenIDs := make(map[string]struct{}, len(d.Transactions))
	for _, tx := range d.Transactions {
		if tx.ID == "" {
			return fmt.Errorf("transaction with empty id")
		}
		if _, dup := seenIDs[tx.ID]; dup {
			return fmt.Errorf("duplicate transaction id %s", tx.ID)
		}
		seenIDs[tx.ID] = struct{}{}
	}
	for _, tx := range d.Transactions {
		if tx.RelatedTx != "" {
			if _, ok := seenIDs[tx.RelatedTx]; !ok {
				return fmt.Errorf("transaction %s references unknown transaction %s", tx.ID, tx.RelatedTx)
			}
		}
	}

	return nil
}

func (d *Document) clone() *Document {
	c := &Document{
		Users:        make([]UserEntry, 0, len(d.Users)),
		Transactions: make([]*Transaction, 0, len(d.Transactions)),
		BlockHeight:  d.BlockHeight,
	}
	for _, e := range d.Users {
		c.Users = append(c.Users, UserEntry{Phone: e.Phone, Account: e.Account.clone()})
	}
	for _, tx := range d.Transactions {
		c.Transactions = append(c.Transactions, tx.clone())
	}
	return c
}
