// Package pgstore persists the ledger document in PostgreSQL. Accounts and
// transactions are stored as JSONB records with an explicit position column
// so the document's insertion order survives the round trip. Every save
// replaces the whole document inside one transaction, matching the
// document-at-a-time persistence model of the file store.
package pgstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"github.com/m-usd/phonechain/internal/dbx"
	"github.com/m-usd/phonechain/internal/ledger"
	"github.com/m-usd/phonechain/internal/storage/pgstore/migrations"
)

// PostgresStore implements ledger.Store on a PostgreSQL database.
type PostgresStore struct {
	db *sql.DB
}

// Open connects with the pgx stdlib driver and verifies the connection.
func Open(ctx context.Context, dsn string) (*PostgresStore, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}
	return &PostgresStore{db: db}, nil
}

// NewWithDB wraps an existing connection. Used by tests.
func NewWithDB(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// gooseUpContext is a seam for testing RunMigrations.
var gooseUpContext = func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error {
	return goose.UpContext(ctx, db, dir, opts...)
}

// RunMigrations applies the embedded schema migrations.
func (s *PostgresStore) RunMigrations(ctx context.Context) error {
	goose.SetBaseFS(migrations.Migrations)
	if err := goose.SetDialect("pgx"); err != nil {
		return err
	}
	return gooseUpContext(ctx, s.db, ".")
}

func (s *PostgresStore) Close() error {
	return s.db.Close()
}

// Load reassembles the document. An absent meta row means the store has
// never been written: it reports (nil, nil) and the ledger starts empty.
func (s *PostgresStore) Load(ctx context.Context) (*ledger.Document, error) {
	doc := &ledger.Document{
		Users:        []ledger.UserEntry{},
		Transactions: []*ledger.Transaction{},
	}

	err := s.db.QueryRowContext(ctx,
		`SELECT block_height FROM ledger_meta WHERE id = 1`,
	).Scan(&doc.BlockHeight)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT phone, record FROM ledger_accounts ORDER BY position`,
	)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var phone string
		var raw []byte
		if err := rows.Scan(&phone, &raw); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		acc := &ledger.Account{}
		if err := json.Unmarshal(raw, acc); err != nil {
			return nil, fmt.Errorf("parsing account %s: %w", phone, err)
		}
		doc.Users = append(doc.Users, ledger.UserEntry{Phone: phone, Account: acc})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	txRows, err := s.db.QueryContext(ctx,
		`SELECT record FROM ledger_transactions ORDER BY position`,
	)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer txRows.Close()
	for txRows.Next() {
		var raw []byte
		if err := txRows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		tx := &ledger.Transaction{}
		if err := json.Unmarshal(raw, tx); err != nil {
			return nil, fmt.Errorf("parsing transaction: %w", err)
		}
		doc.Transactions = append(doc.Transactions, tx)
	}
	if err := txRows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return doc, nil
}

// Save replaces the stored document wholesale inside one transaction.
func (s *PostgresStore) Save(ctx context.Context, doc *ledger.Document) error {
	return dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		for _, stmt := range []string{
			`DELETE FROM ledger_accounts`,
			`DELETE FROM ledger_transactions`,
		} {
			if _, err := tx.ExecContext(ctx, stmt); err != nil {
				return fmt.Errorf("db error: %w", err)
			}
		}

		for i, e := range doc.Users {
			raw, err := json.Marshal(e.Account)
			if err != nil {
				return fmt.Errorf("encoding account %s: %w", e.Phone, err)
			}
			_, err = tx.ExecContext(ctx,
				`INSERT INTO ledger_accounts (position, phone, record) VALUES ($1, $2, $3)`,
				i, e.Phone, raw)
			if err != nil {
				return fmt.Errorf("db error: %w", err)
			}
		}

		for i, t := range doc.Transactions {
			raw, err := json.Marshal(t)
			if err != nil {
				return fmt.Errorf("encoding transaction %s: %w", t.ID, err)
			}
			_, err = tx.ExecContext(ctx,
				`INSERT INTO ledger_transactions (position, id, record) VALUES ($1, $2, $3)`,
				i, t.ID, raw)
			if err != nil {
				return fmt.Errorf("db error: %w", err)
			}
		}

		_, err := tx.ExecContext(ctx,
			`INSERT INTO ledger_meta (id, block_height, updated_at) VALUES (1, $1, now())
			 ON CONFLICT (id) DO UPDATE SET block_height = EXCLUDED.block_height, updated_at = now()`,
			doc.BlockHeight)
		if err != nil {
			return fmt.Errorf("db error: %w", err)
		}
		return nil
	})
}
