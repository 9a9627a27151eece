package localstore

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/m-usd/phonechain/internal/ledger"
	"github.com/m-usd/phonechain/internal/timex"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleDocument() *ledger.Document {
	return &ledger.Document{
		Users: []ledger.UserEntry{
			{Phone: "+10000000001", Account: &ledger.Account{
				PhoneNumber:   "+10000000001",
				WalletAddress: "PHONE_000000000000000000000000000000006e36c332",
				PasswordHash:  "00000000000000000000000053ab39b7",
				Balance:       100,
				CreatedAt:     timex.Now(),
				IsActive:      true,
				Transactions:  []string{"TX_1_aaaaaaaaa"},
			}},
		},
		Transactions: []*ledger.Transaction{
			{
				ID:        "TX_1_aaaaaaaaa",
				From:      ledger.SystemSender,
				To:        "+10000000001",
				Amount:    100,
				Total:     100,
				Timestamp: timex.Now(),
				Status:    ledger.StatusConfirmed,
				Type:      ledger.KindFunding,
			},
		},
		BlockHeight: 1,
	}
}

func TestFileStore_LoadMissingFile(t *testing.T) {
	s := New(filepath.Join(t.TempDir(), "ledger.json"))
	doc, err := s.Load(context.Background())
	require.NoError(t, err)
	assert.Nil(t, doc)
}

func TestFileStore_SaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger.json")
	s := New(path)

	want := sampleDocument()
	require.NoError(t, s.Save(context.Background(), want))

	got, err := s.Load(context.Background())
	require.NoError(t, err)
	require.NotNil(t, got)

	assert.Equal(t, want.BlockHeight, got.BlockHeight)
	require.Len(t, got.Users, 1)
	assert.Equal(t, "+10000000001", got.Users[0].Phone)
	assert.Equal(t, want.Users[0].Account.Balance, got.Users[0].Account.Balance)
	require.Len(t, got.Transactions, 1)
	assert.Equal(t, "TX_1_aaaaaaaaa", got.Transactions[0].ID)
}

func TestFileStore_SaveCreatesParentDir(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "dir", "ledger.json")
	s := New(path)

	require.NoError(t, s.Save(context.Background(), sampleDocument()))
	_, err := os.Stat(path)
	require.NoError(t, err)
}

func TestFileStore_LoadCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))

	_, err := New(path).Load(context.Background())
	assert.Error(t, err)
}
