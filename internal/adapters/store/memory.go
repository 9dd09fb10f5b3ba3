package store

import (
	"context"
	"sync"

	"github.com/subwatch/invoice-scanner/internal/core"
	"go.uber.org/zap"
)

// MemoryStore is an in-memory implementation of the InvoiceRepository
// interface, used for tests and dry runs. The map key plays the role of the
// database uniqueness constraint.
type MemoryStore struct {
	mu       sync.RWMutex
	invoices map[string]map[string]core.ExtractedInvoice
	logger   *zap.Logger
}

// NewMemoryStore creates a new in-memory invoice store
func NewMemoryStore(logger *zap.Logger) *MemoryStore {
	return &MemoryStore{
		invoices: make(map[string]map[string]core.ExtractedInvoice),
		logger:   logger,
	}
}

var _ core.InvoiceRepository = (*MemoryStore)(nil)

// ExistingIDs reports which candidate message identifiers already have a
// persisted record for the account.
func (s *MemoryStore) ExistingIDs(_ context.Context, accountID string, ids []string) (map[string]bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	existing := make(map[string]bool)
	account := s.invoices[accountID]
	for _, id := range ids {
		if _, ok := account[id]; ok {
			existing[id] = true
		}
	}
	return existing, nil
}

// UpsertInvoices stores records with duplicate-ignoring semantics.
func (s *MemoryStore) UpsertInvoices(_ context.Context, accountID string, invoices []core.ExtractedInvoice) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	account, ok := s.invoices[accountID]
	if !ok {
		account = make(map[string]core.ExtractedInvoice)
		s.invoices[accountID] = account
	}

	inserted := 0
	for _, inv := range invoices {
		if _, exists := account[inv.MessageID]; exists {
			continue
		}
		account[inv.MessageID] = inv
		inserted++
	}
	return inserted, nil
}

// Count returns how many records are persisted for the account.
func (s *MemoryStore) Count(accountID string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.invoices[accountID])
}

// Get returns the persisted record for one message, if any.
func (s *MemoryStore) Get(accountID, messageID string) (core.ExtractedInvoice, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	inv, ok := s.invoices[accountID][messageID]
	return inv, ok
}
