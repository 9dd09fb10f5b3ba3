package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/go-sql-driver/mysql"
	"github.com/subwatch/invoice-scanner/internal/core"
	"go.uber.org/zap"
)

// MySQLStore is a MySQL implementation of the InvoiceRepository interface.
type MySQLStore struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewMySQLStore creates a new MySQL invoice store
func NewMySQLStore(dsn string, logger *zap.Logger) (*MySQLStore, error) {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open MySQL connection: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping MySQL: %w", err)
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS invoices (
			account_id VARCHAR(64) NOT NULL,
			message_id VARCHAR(128) NOT NULL,
			vendor VARCHAR(255),
			amount DOUBLE NOT NULL,
			currency CHAR(3) NOT NULL,
			invoice_date DATETIME NOT NULL,
			renewal_date DATETIME NULL,
			invoice_ref VARCHAR(64),
			confidence DOUBLE NOT NULL,
			extracted_at DATETIME NOT NULL,
			UNIQUE KEY uniq_account_message (account_id, message_id),
			KEY idx_account (account_id)
		)
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create table: %w", err)
	}

	return &MySQLStore{
		db:     db,
		logger: logger,
	}, nil
}

var _ core.InvoiceRepository = (*MySQLStore)(nil)

// ExistingIDs reports which candidate message identifiers already have a
// persisted record for the account.
func (s *MySQLStore) ExistingIDs(ctx context.Context, accountID string, ids []string) (map[string]bool, error) {
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

// UpsertInvoices inserts records with INSERT IGNORE so a concurrent scan for
// the same account can never produce two records for one message.
func (s *MySQLStore) UpsertInvoices(ctx context.Context, accountID string, invoices []core.ExtractedInvoice) (int, error) {
	inserted := 0

	for _, inv := range invoices {
		var renewal interface{}
		if inv.RenewalDate != nil {
			renewal = *inv.RenewalDate
		}

		result, err := s.db.ExecContext(ctx, `
			INSERT IGNORE INTO invoices
				(account_id, message_id, vendor, amount, currency, invoice_date, renewal_date, invoice_ref, confidence, extracted_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`,
			accountID,
			inv.MessageID,
			inv.Vendor,
			inv.Amount,
			inv.Currency,
			inv.InvoiceDate,
			renewal,
			inv.InvoiceID,
			inv.Confidence,
			inv.ExtractedAt,
		)
		if err != nil {
			return inserted, fmt.Errorf("failed to insert invoice: %w", err)
		}

		rowsAffected, err := result.RowsAffected()
		if err != nil {
			s.logger.Warn("Failed to get rows affected", zap.Error(err))
			continue
		}
		inserted += int(rowsAffected)
	}

	return inserted, nil
}

// Close closes the database connection
func (s *MySQLStore) Close() error {
	return s.db.Close()
}
