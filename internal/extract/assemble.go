package extract

import (
	"time"

	"github.com/subwatch/invoice-scanner/internal/core"
)

// Confidence aggregation constants. The cap stays just under 1.0 because
// extraction is always heuristic, never certain.
const (
	identifierBonus = 0.1
	confidenceCap   = 0.99
)

// Assembler combines classifier and extractor outputs into the terminal
// record and computes its aggregate confidence.
type Assembler struct {
	now func() time.Time
}

// NewAssembler creates a new record assembler. now is injectable for tests.
func NewAssembler(now func() time.Time) *Assembler {
	if now == nil {
		now = time.Now
	}
	return &Assembler{now: now}
}

// Assemble builds the record. Callers only reach this once an amount was
// isolated, so the amount blend always applies:
//
//	confidence = (vendorConfidence + 1) / 2, +0.1 with an identifier, capped at 0.99
func (a *Assembler) Assemble(
	messageID string,
	vendor string,
	vendorConfidence float64,
	amount core.Amount,
	invoiceDate time.Time,
	renewalDate *time.Time,
	invoiceID string,
) *core.ExtractedInvoice {
	confidence := (vendorConfidence + 1) / 2
	if invoiceID != "" {
		confidence += identifierBonus
	}
	if confidence > confidenceCap {
		confidence = confidenceCap
	}

	return &core.ExtractedInvoice{
		MessageID:   messageID,
		Vendor:      vendor,
		Amount:      amount.Value,
		Currency:    amount.Currency,
		InvoiceDate: invoiceDate,
		RenewalDate: renewalDate,
		InvoiceID:   invoiceID,
		Confidence:  confidence,
		ExtractedAt: a.now(),
	}
}
