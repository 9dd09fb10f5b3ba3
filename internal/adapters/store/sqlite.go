package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/subwatch/invoice-scanner/internal/core"
	"go.uber.org/zap"
)

// SQLiteStore is a SQLite implementation of the InvoiceRepository interface.
// The unique index on (account_id, message_id) is the source of truth for the
// one-record-per-message invariant; the application never locks.
type SQLiteStore struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewSQLiteStore creates a new SQLite invoice store
func NewSQLiteStore(dbPath string, logger *zap.Logger) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite database: %w", err)
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS invoices (
			account_id TEXT NOT NULL,
			message_id TEXT NOT NULL,
			vendor TEXT,
			amount REAL NOT NULL,
			currency TEXT NOT NULL,
			invoice_date TIMESTAMP NOT NULL,
			renewal_date TIMESTAMP,
			invoice_ref TEXT,
			confidence REAL NOT NULL,
			extracted_at TIMESTAMP NOT NULL,
			UNIQUE(account_id, message_id)
		)
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create table: %w", err)
	}

	_, err = db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_invoices_account ON invoices(account_id)
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create index: %w", err)
	}

	return &SQLiteStore{
		db:     db,
		logger: logger,
	}, nil
}

var _ core.InvoiceRepository = (*SQLiteStore)(nil)

// ExistingIDs reports which candidate message identifiers already have a
// persisted record for the account.
func (s *SQLiteStore) ExistingIDs(ctx context.Context, accountID string, ids []string) (map[string]bool, error) {
	existing := make(map[string]bool)
	if len(ids) == 0 {
		return existing, nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")
	args := make([]interface{}, 0, len(ids)+1)
	args = append(args, accountID)
	for _, id := range ids {
		args = append(args, id)
	}

	rows, err := s.db.QueryContext(ctx, fmt.Sprintf(`
		SELECT message_id FROM invoices
		WHERE account_id = ? AND message_id IN (%s)
	`, placeholders), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query existing messages: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan message id: %w", err)
		}
		existing[id] = true
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate existing messages: %w", err)
	}

	return existing, nil
}

// UpsertInvoices inserts records with duplicate-ignoring semantics and
// returns how many rows were actually inserted. Duplicate-key collisions are
// successful no-ops.
func (s *SQLiteStore) UpsertInvoices(ctx context.Context, accountID string, invoices []core.ExtractedInvoice) (int, error) {
	inserted := 0

	for _, inv := range invoices {
		var renewal interface{}
		if inv.RenewalDate != nil {
			renewal = inv.RenewalDate.Format(time.RFC3339)
		}

		result, err := s.db.ExecContext(ctx, `
			INSERT OR IGNORE INTO invoices
				(account_id, message_id, vendor, amount, currency, invoice_date, renewal_date, invoice_ref, confidence, extracted_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`,
			accountID,
			inv.MessageID,
			inv.Vendor,
			inv.Amount,
			inv.Currency,
			inv.InvoiceDate.Format(time.RFC3339),
			renewal,
			inv.InvoiceID,
			inv.Confidence,
			inv.ExtractedAt.Format(time.RFC3339),
		)
		if err != nil {
			return inserted, fmt.Errorf("failed to insert invoice: %w", err)
		}

		rowsAffected, err := result.RowsAffected()
		if err != nil {
			s.logger.Warn("Failed to get rows affected", zap.Error(err))
			continue
		}
		if rowsAffected == 0 {
			s.logger.Debug("Invoice already persisted, ignoring",
				zap.String("message_id", inv.MessageID))
			continue
		}
		inserted += int(rowsAffected)
	}

	return inserted, nil
}

// Close closes the database connection
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
