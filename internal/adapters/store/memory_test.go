package store

import (
	"context"
	"testing"
	"time"

	"github.com/subwatch/invoice-scanner/internal/core"
	"go.uber.org/zap"
)

func sampleInvoice(messageID string) core.ExtractedInvoice {
	return core.ExtractedInvoice{
		MessageID:   messageID,
		Vendor:      "Netflix",
		Amount:      15.49,
		Currency:    "USD",
		InvoiceDate: time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC),
		Confidence:  0.85,
		ExtractedAt: time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC),
	}
}

func TestMemoryStoreUpsertIgnoresDuplicates(t *testing.T) {
	s := NewMemoryStore(zap.NewNop())
	ctx := context.Background()

	inserted, err := s.UpsertInvoices(ctx, "acct-1", []core.ExtractedInvoice{
		sampleInvoice("m1"),
		sampleInvoice("m2"),
	})
	if err != nil {
		t.Fatalf("UpsertInvoices failed: %v", err)
	}
	if inserted != 2 {
		t.Errorf("inserted = %d, want 2", inserted)
	}

	// Replaying one existing and one new record inserts only the new one.
	inserted, err = s.UpsertInvoices(ctx, "acct-1", []core.ExtractedInvoice{
		sampleInvoice("m1"),
		sampleInvoice("m3"),
	})
	if err != nil {
		t.Fatalf("UpsertInvoices failed: %v", err)
	}
	if inserted != 1 {
		t.Errorf("inserted = %d, want 1", inserted)
	}
	if s.Count("acct-1") != 3 {
		t.Errorf("Count = %d, want 3", s.Count("acct-1"))
	}
}

func TestMemoryStoreExistingIDs(t *testing.T) {
	s := NewMemoryStore(zap.NewNop())
	ctx := context.Background()

	if _, err := s.UpsertInvoices(ctx, "acct-1", []core.ExtractedInvoice{sampleInvoice("m1")}); err != nil {
		t.Fatalf("UpsertInvoices failed: %v", err)
	}

	existing, err := s.ExistingIDs(ctx, "acct-1", []string{"m1", "m2"})
	if err != nil {
		t.Fatalf("ExistingIDs failed: %v", err)
	}
	if !existing["m1"] {
		t.Error("m1 should be reported as existing")
	}
	if existing["m2"] {
		t.Error("m2 should not be reported as existing")
	}
}

func TestMemoryStoreIsolatesAccounts(t *testing.T) {
	s := NewMemoryStore(zap.NewNop())
	ctx := context.Background()

	if _, err := s.UpsertInvoices(ctx, "acct-1", []core.ExtractedInvoice{sampleInvoice("m1")}); err != nil {
		t.Fatalf("UpsertInvoices failed: %v", err)
	}

	existing, err := s.ExistingIDs(ctx, "acct-2", []string{"m1"})
	if err != nil {
		t.Fatalf("ExistingIDs failed: %v", err)
	}
	if existing["m1"] {
		t.Error("records must not leak across accounts")
	}
	if _, ok := s.Get("acct-2", "m1"); ok {
		t.Error("Get should not find another account's record")
	}
}
