// Package localstore persists the ledger document as a single JSON file.
// It is the default store for demo deployments: the file is the same
// document shape the export/import tooling speaks, so it can be inspected
// and edited with ordinary tools.
package localstore

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/m-usd/phonechain/internal/ledger"
)

// FileStore implements ledger.Store on top of one JSON file.
type FileStore struct {
	path string
}

func New(path string) *FileStore {
	return &FileStore{path: path}
}

// Load reads the document. A missing file is not an error: it reports
// (nil, nil) and the ledger starts empty.
func (s *FileStore) Load(ctx context.Context) (*ledger.Document, error) {
	raw, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading %s: %w", s.path, err)
	}

	var doc ledger.Document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", s.path, err)
	}
	return &doc, nil
}

// Save writes the document atomically: a temp file in the same directory
// is renamed over the target, so a crash mid-write never leaves a torn file.
func (s *FileStore) Save(ctx context.Context, doc *ledger.Document) error {
	raw, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encoding document: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("creating %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".*")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		return fmt.Errorf("writing %s: %w", tmp.Name(), err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing %s: %w", tmp.Name(), err)
	}

	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("replacing %s: %w", s.path, err)
	}
	return nil
}
