package backup

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/m-usd/phonechain/internal/common"
	"github.com/m-usd/phonechain/internal/ledger"
	"github.com/m-usd/phonechain/internal/timex"
)

// ExportDocument is the portable dump produced by Export and consumed by
// Import. A round trip reproduces the full ledger state.
type ExportDocument struct {
	Users        []ledger.UserEntry    `json:"users"`
	Transactions []*ledger.Transaction `json:"transactions"`
	BlockHeight  int64                 `json:"blockHeight"`
	System       SystemState           `json:"system"`
	ExportTime   timex.Time            `json:"exportTime"`
}

// Export serializes the full ledger state.
func (m *Manager) Export(ctx context.Context) ([]byte, error) {
	doc := m.led.Snapshot()
	at := timex.At(m.now())
	out := ExportDocument{
		Users:        doc.Users,
		Transactions: doc.Transactions,
		BlockHeight:  doc.BlockHeight,
		System:       systemStateOf(doc, at),
		ExportTime:   at,
	}
	return json.MarshalIndent(out, "", "  ")
}

// Import replaces the ledger state with a previously exported dump. A
// safety snapshot of the current state is taken first, so a bad import
// can be rolled back with EmergencyRecovery.
func (m *Manager) Import(ctx context.Context, raw []byte) error {
	var in ExportDocument
	if err := json.Unmarshal(raw, &in); err != nil {
		return fmt.Errorf("%w: parsing import: %v", common.ErrInvalidInput, err)
	}
	if in.Users == nil || in.Transactions == nil {
		return fmt.Errorf("%w: import is missing users or transactions", common.ErrInvalidInput)
	}

	if _, err := m.Create(ctx); err != nil {
		return fmt.Errorf("pre-import backup: %w", err)
	}

	doc := &ledger.Document{
		Users:        in.Users,
		Transactions: in.Transactions,
		BlockHeight:  in.BlockHeight,
	}
	return m.led.Restore(ctx, doc)
}
