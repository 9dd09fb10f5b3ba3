package extract

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/subwatch/invoice-scanner/internal/core"
	"github.com/subwatch/invoice-scanner/internal/utils"
	"github.com/subwatch/invoice-scanner/internal/vendors"
	"go.uber.org/zap"
)

func testPipeline(assistant core.ExtractionAssistant) *Pipeline {
	logger := zap.NewNop()
	return NewPipeline(
		NewNormalizer(utils.NewTextProcessor(logger), logger, 16384),
		NewClassifier(vendors.NewRegistry(vendors.Default(), logger), logger),
		NewAmountExtractor(100000),
		NewDateExtractor(10, testNow),
		NewIdentifierExtractor(),
		NewAssembler(testNow),
		assistant,
		logger,
	)
}

func plainMessage(id, sender, subject, body string, ts time.Time) *core.RawMessage {
	return &core.RawMessage{
		ID:        id,
		Sender:    sender,
		Subject:   subject,
		Timestamp: ts,
		Parts: []core.BodyPart{
			{Kind: core.PartPlainText, Content: encodeBody(body)},
		},
	}
}

func TestPipelineKnownVendorReceipt(t *testing.T) {
	p := testPipeline(nil)

	msg := plainMessage(
		"msg-a",
		"Stripe <receipts@stripe.com>",
		"Your receipt from Acme Corp",
		"Thanks for your payment of $12.50 on March 1, 2025. Invoice #IN-2025-001.",
		time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC),
	)

	inv, reason := p.Extract(context.Background(), msg)
	if inv == nil {
		t.Fatalf("Extract rejected the message: %s", reason)
	}
	if inv.Vendor != "Stripe" {
		t.Errorf("Vendor = %q, want Stripe", inv.Vendor)
	}
	if inv.Amount != 12.50 || inv.Currency != "USD" {
		t.Errorf("Amount = %v %s, want 12.50 USD", inv.Amount, inv.Currency)
	}
	want := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	if !inv.InvoiceDate.Equal(want) {
		t.Errorf("InvoiceDate = %v, want %v", inv.InvoiceDate, want)
	}
	if inv.InvoiceID != "IN-2025-001" {
		t.Errorf("InvoiceID = %q, want IN-2025-001", inv.InvoiceID)
	}
	if inv.Confidence < 0.8 || inv.Confidence > 0.99 {
		t.Errorf("Confidence = %v, want a high score for a full match", inv.Confidence)
	}
}

func TestPipelineRejectsWithoutAmount(t *testing.T) {
	p := testPipeline(nil)

	msg := plainMessage(
		"msg-b",
		"newsletter@stripe.com",
		"Product updates from Stripe",
		"We shipped new dashboard features this week. No action needed.",
		time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC),
	)

	inv, reason := p.Extract(context.Background(), msg)
	if inv != nil {
		t.Fatalf("Extract = %+v, want rejection", inv)
	}
	if reason != SkipNoAmount {
		t.Errorf("reason = %q, want %q", reason, SkipNoAmount)
	}
}

func TestPipelineRenewalAndIdentifier(t *testing.T) {
	p := testPipeline(nil)

	msg := plainMessage(
		"msg-c",
		"billing@unknownvendor.io",
		"Subscription invoice AB-1234",
		"You were charged €99 for your annual plan. Invoice number AB-1234. Next billing: January 5, 2026.",
		time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC),
	)

	inv, reason := p.Extract(context.Background(), msg)
	if inv == nil {
		t.Fatalf("Extract rejected the message: %s", reason)
	}
	if inv.Amount != 99 || inv.Currency != "EUR" {
		t.Errorf("Amount = %v %s, want 99 EUR", inv.Amount, inv.Currency)
	}
	if inv.InvoiceID != "AB-1234" {
		t.Errorf("InvoiceID = %q, want AB-1234", inv.InvoiceID)
	}
	if inv.RenewalDate == nil {
		t.Fatal("RenewalDate = nil, want January 5, 2026")
	}
	wantRenewal := time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC)
	if !inv.RenewalDate.Equal(wantRenewal) {
		t.Errorf("RenewalDate = %v, want %v", inv.RenewalDate, wantRenewal)
	}
	// Unknown sender domain still yields a vendor label from the domain.
	if inv.Vendor != "Unknownvendor" {
		t.Errorf("Vendor = %q, want domain-derived label", inv.Vendor)
	}
}

func TestPipelineTimestampFallback(t *testing.T) {
	p := testPipeline(nil)
	ts := time.Date(2025, 4, 2, 15, 30, 0, 0, time.UTC)

	msg := plainMessage(
		"msg-d",
		"billing@example.com",
		"Payment received",
		"Amount due: 15.00. Thank you.",
		ts,
	)

	inv, reason := p.Extract(context.Background(), msg)
	if inv == nil {
		t.Fatalf("Extract rejected the message: %s", reason)
	}
	if !inv.InvoiceDate.Equal(ts) {
		t.Errorf("InvoiceDate = %v, want the message timestamp %v", inv.InvoiceDate, ts)
	}
}

func TestPipelineConfidenceBounds(t *testing.T) {
	p := testPipeline(nil)

	// Full vendor match plus an identifier pushes the raw score past 1.0;
	// the stored confidence must still stay below the cap.
	msg := plainMessage(
		"msg-e",
		"receipts@stripe.com",
		"Your receipt from Stripe, payment confirmation",
		"Stripe charged you $20.00. Invoice #ST-9001.",
		time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC),
	)

	inv, reason := p.Extract(context.Background(), msg)
	if inv == nil {
		t.Fatalf("Extract rejected the message: %s", reason)
	}
	if inv.Confidence <= 0 || inv.Confidence > 0.99 {
		t.Errorf("Confidence = %v, want within (0, 0.99]", inv.Confidence)
	}
}

type fakeAssistant struct {
	amount *core.Amount
	err    error
	calls  int
}

func (f *fakeAssistant) SuggestAmount(_ context.Context, _ *core.NormalizedMessage) (*core.Amount, error) {
	f.calls++
	return f.amount, f.err
}

func TestPipelineAssistantFallback(t *testing.T) {
	ts := time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC)
	noAmountMsg := func(id string) *core.RawMessage {
		return plainMessage(id, "billing@example.com", "Your subscription",
			"Thanks for staying with us, see the attached statement.", ts)
	}

	t.Run("suggestion accepted", func(t *testing.T) {
		assistant := &fakeAssistant{amount: &core.Amount{Value: 42.00, Currency: "eur"}}
		p := testPipeline(assistant)

		inv, reason := p.Extract(context.Background(), noAmountMsg("msg-f"))
		if inv == nil {
			t.Fatalf("Extract rejected the message: %s", reason)
		}
		if inv.Amount != 42.00 || inv.Currency != "EUR" {
			t.Errorf("Amount = %v %s, want 42.00 EUR", inv.Amount, inv.Currency)
		}
		if assistant.calls != 1 {
			t.Errorf("assistant calls = %d, want 1", assistant.calls)
		}
	})

	t.Run("implausible suggestion rejected", func(t *testing.T) {
		assistant := &fakeAssistant{amount: &core.Amount{Value: 5000000, Currency: "USD"}}
		p := testPipeline(assistant)

		inv, reason := p.Extract(context.Background(), noAmountMsg("msg-g"))
		if inv != nil {
			t.Fatalf("Extract = %+v, want rejection", inv)
		}
		if reason != SkipNoAmount {
			t.Errorf("reason = %q, want %q", reason, SkipNoAmount)
		}
	})

	t.Run("assistant error is non-fatal", func(t *testing.T) {
		assistant := &fakeAssistant{err: errors.New("quota exceeded")}
		p := testPipeline(assistant)

		inv, _ := p.Extract(context.Background(), noAmountMsg("msg-h"))
		if inv != nil {
			t.Fatalf("Extract = %+v, want rejection", inv)
		}
	})

	t.Run("unknown currency defaults", func(t *testing.T) {
		assistant := &fakeAssistant{amount: &core.Amount{Value: 9.99, Currency: "XYZ"}}
		p := testPipeline(assistant)

		inv, reason := p.Extract(context.Background(), noAmountMsg("msg-i"))
		if inv == nil {
			t.Fatalf("Extract rejected the message: %s", reason)
		}
		if inv.Currency != "USD" {
			t.Errorf("Currency = %q, want the USD default", inv.Currency)
		}
	})
}
