package ledger

import "context"

// Store persists the full ledger document. Implementations live in
// internal/storage: a JSON file store and a Postgres-backed one.
//
// Load returns (nil, nil) when no document has been saved yet. Save
// replaces the persisted state wholesale; it is called synchronously from
// every mutating ledger operation, and a Save failure is logged but does
// not roll back the in-memory mutation.
type Store interface {
	Load(ctx context.Context) (*Document, error)
	Save(ctx context.Context, doc *Document) error
}
