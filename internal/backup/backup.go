// Package backup provides point-in-time recovery for the ledger: periodic
// and mutation-triggered checksummed snapshots with bounded retention,
// restore by timestamp, emergency recovery from the newest snapshot, and
// portable export/import. Snapshots can additionally be shipped to
// S3-compatible object storage.
package backup

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/m-usd/phonechain/internal/common"
	"github.com/m-usd/phonechain/internal/ledger"
	"github.com/m-usd/phonechain/internal/logging"
	"github.com/m-usd/phonechain/internal/security"
	"github.com/m-usd/phonechain/internal/timex"
)

// DefaultRetention bounds the snapshot list: one week of hourly snapshots.
const DefaultRetention = 168

const snapshotVersion = "2.0.0"

// SystemState is the summary stored alongside each snapshot's data.
type SystemState struct {
	TotalUsers        int        `json:"totalUsers"`
	TotalTransactions int        `json:"totalTransactions"`
	TotalValue        float64    `json:"totalValue"`
	Timestamp         timex.Time `json:"timestamp"`
}

// SnapshotData is the checksummed payload of a snapshot.
type SnapshotData struct {
	Users        []ledger.UserEntry    `json:"users"`
	Transactions []*ledger.Transaction `json:"transactions"`
	BlockHeight  int64                 `json:"blockHeight"`
	SystemState  SystemState           `json:"systemState"`
}

// Snapshot is one point-in-time copy of the full ledger state. The
// checksum covers the canonical JSON encoding of Data; Restore recomputes
// it and refuses mismatches.
type Snapshot struct {
	Timestamp timex.Time   `json:"timestamp"`
	Data      SnapshotData `json:"data"`
	Checksum  string       `json:"checksum"`
	Version   string       `json:"version"`
}

// Uploader ships a snapshot payload to offsite storage.
type Uploader interface {
	Upload(ctx context.Context, key string, payload []byte) error
}

// Config for the backup manager.
type Config struct {
	Retention int    // max snapshots kept, oldest pruned first
	Path      string // backups file; empty keeps snapshots in memory only
}

// Manager owns the snapshot list.
type Manager struct {
	led      *ledger.Ledger
	log      logging.Logger
	uploader Uploader
	cfg      Config

	mu        sync.Mutex
	snapshots []*Snapshot
	now       func() time.Time
}

// NewManager loads any previously saved snapshot list from cfg.Path.
// A snapshot file that fails to parse is logged and ignored; individual
// snapshot corruption is only detected at restore time, by checksum.
func NewManager(led *ledger.Ledger, cfg Config, log logging.Logger, uploader Uploader) *Manager {
	if cfg.Retention <= 0 {
		cfg.Retention = DefaultRetention
	}
	if log == nil {
		log = logging.Nop{}
	}
	m := &Manager{
		led:      led,
		log:      log.With("module", "backup"),
		uploader: uploader,
		cfg:      cfg,
		now:      time.Now,
	}
	m.loadSnapshots()
	return m
}

func (m *Manager) loadSnapshots() {
	if m.cfg.Path == "" {
		return
	}
	raw, err := os.ReadFile(m.cfg.Path)
	if err != nil {
		if !os.IsNotExist(err) {
			m.log.Warn(context.Background(), "reading backup file", "error", err)
		}
		return
	}
	var snaps []*Snapshot
	if err := json.Unmarshal(raw, &snaps); err != nil {
		m.log.Warn(context.Background(), "parsing backup file", "error", err)
		return
	}
	m.snapshots = snaps
}

func (m *Manager) saveSnapshotsLocked(ctx context.Context) {
	if m.cfg.Path == "" {
		return
	}
	raw, err := json.Marshal(m.snapshots)
	if err != nil {
		m.log.Error(ctx, "encoding backup file", "error", err)
		return
	}
	tmp := m.cfg.Path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o600); err == nil {
		err = os.Rename(tmp, m.cfg.Path)
	}
	if err != nil {
		m.log.Error(ctx, "writing backup file", "error", err)
	}
}

// checksumOf computes the tamper-evidence digest over the payload's
// canonical JSON encoding.
func checksumOf(data SnapshotData) (string, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return "", err
	}
	return security.Checksum(string(raw)), nil
}

func systemStateOf(doc *ledger.Document, at timex.Time) SystemState {
	var total float64
	for _, e := range doc.Users {
		total += e.Account.Balance
	}
	return SystemState{
		TotalUsers:        len(doc.Users),
		TotalTransactions: len(doc.Transactions),
		TotalValue:        total,
		Timestamp:         at,
	}
}

// Create snapshots the current ledger state.
func (m *Manager) Create(ctx context.Context) (*Snapshot, error) {
	return m.CreateFromDocument(ctx, m.led.Snapshot())
}

// CreateFromDocument snapshots an already-captured document. This is the
// entry point used by the ledger's after-write hook, which runs under the
// ledger's mutex: nothing here may call back into the ledger.
func (m *Manager) CreateFromDocument(ctx context.Context, doc *ledger.Document) (*Snapshot, error) {
	at := timex.At(m.now())
	data := SnapshotData{
		Users:        doc.Users,
		Transactions: doc.Transactions,
		BlockHeight:  doc.BlockHeight,
		SystemState:  systemStateOf(doc, at),
	}
	checksum, err := checksumOf(data)
	if err != nil {
		return nil, fmt.Errorf("snapshot checksum: %w", err)
	}

	snap := &Snapshot{
		Timestamp: at,
		Data:      data,
		Checksum:  checksum,
		Version:   snapshotVersion,
	}

	m.mu.Lock()
	m.snapshots = append(m.snapshots, snap)
	if len(m.snapshots) > m.cfg.Retention {
		m.snapshots = m.snapshots[len(m.snapshots)-m.cfg.Retention:]
	}
	m.saveSnapshotsLocked(ctx)
	m.mu.Unlock()

	if m.uploader != nil {
		if err := m.uploadSnapshot(ctx, snap); err != nil {
			m.log.Warn(ctx, "offsite snapshot upload failed", "error", err)
		}
	}

	return snap, nil
}

func (m *Manager) uploadSnapshot(ctx context.Context, snap *Snapshot) error {
	payload, err := json.Marshal(snap)
	if err != nil {
		return err
	}
	t := snap.Timestamp.Time
	key := fmt.Sprintf("snapshots/%04d/%02d/%02d/%s.json", t.Year(), t.Month(), t.Day(), uuid.NewString())
	return m.uploader.Upload(ctx, key, payload)
}

// Snapshots returns the retained snapshots, oldest first.
func (m *Manager) Snapshots() []*Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*Snapshot(nil), m.snapshots...)
}

// Restore locates the snapshot with the given timestamp (document ISO
// format), verifies its checksum, and replaces the ledger state wholesale.
func (m *Manager) Restore(ctx context.Context, timestamp string) error {
	doc, err := m.verifiedDocument(timestamp)
	if err != nil {
		return err
	}
	return m.led.Restore(ctx, doc)
}

// EmergencyRecovery restores from the most recent snapshot.
func (m *Manager) EmergencyRecovery(ctx context.Context) error {
	m.mu.Lock()
	if len(m.snapshots) == 0 {
		m.mu.Unlock()
		return common.ErrNoBackupsAvailable
	}
	latest := m.snapshots[len(m.snapshots)-1].Timestamp.ISO()
	m.mu.Unlock()

	return m.Restore(ctx, latest)
}

// verifiedDocument finds a snapshot, re-derives its checksum and hands
// back its document. The ledger is deliberately not touched under the
// manager's mutex.
func (m *Manager) verifiedDocument(timestamp string) (*ledger.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var snap *Snapshot
	for _, s := range m.snapshots {
		if s.Timestamp.ISO() == timestamp {
			snap = s
			break
		}
	}
	if snap == nil {
		return nil, common.ErrBackupNotFound
	}

	checksum, err := checksumOf(snap.Data)
	if err != nil {
		return nil, fmt.Errorf("snapshot checksum: %w", err)
	}
	if checksum != snap.Checksum {
		return nil, common.ErrBackupCorrupted
	}

	return &ledger.Document{
		Users:        snap.Data.Users,
		Transactions: snap.Data.Transactions,
		BlockHeight:  snap.Data.BlockHeight,
	}, nil
}

// Run creates snapshots on the given interval until ctx is cancelled.
func (m *Manager) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = 4 * time.Hour
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := m.Create(ctx); err != nil {
				m.log.Error(ctx, "scheduled backup failed", "error", err)
			}
		}
	}
}
