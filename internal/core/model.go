package core

import (
	"time"
)

// PartKind identifies the content kind of a message body part.
type PartKind string

const (
	PartPlainText PartKind = "text/plain"
	PartHTML      PartKind = "text/html"
)

// BodyPart is one MIME-style part of a raw message. Content is still
// transport-encoded (base64url) as delivered by the mailbox API.
type BodyPart struct {
	Kind    PartKind
	Content string
}

// RawMessage is an inbound message exactly as the mailbox API returned it.
type RawMessage struct {
	ID        string
	ThreadID  string
	Sender    string
	Subject   string
	Snippet   string
	Timestamp time.Time
	Parts     []BodyPart
}

// NormalizedMessage is the normalizer's output: header fields plus a single
// decoded, markup-free text blob.
type NormalizedMessage struct {
	Sender    string
	Subject   string
	Body      string
	Timestamp time.Time
}

// BillingFrequency classifies how a vendor bills.
type BillingFrequency string

const (
	BillingMonthly        BillingFrequency = "monthly"
	BillingAnnual         BillingFrequency = "annual"
	BillingPerTransaction BillingFrequency = "per_transaction"
	BillingVariable       BillingFrequency = "variable"
)

// VendorSignature is the static pattern set identifying a known billing source.
type VendorSignature struct {
	Name            string
	SenderContains  []string
	SubjectPatterns []string
	DomainHint      string
	Frequency       BillingFrequency
}

// Amount is a monetary value with its resolved ISO currency code.
type Amount struct {
	Value    float64
	Currency string
}

// ExtractedInvoice is the pipeline's terminal output. It is only constructed
// when an amount was isolated; every other field may be absent.
type ExtractedInvoice struct {
	MessageID   string
	Vendor      string
	Amount      float64
	Currency    string
	InvoiceDate time.Time
	RenewalDate *time.Time
	InvoiceID   string
	Confidence  float64
	ExtractedAt time.Time
}

// InvoiceSummary is the minimal caller-facing projection of a saved invoice.
type InvoiceSummary struct {
	MessageID   string
	Vendor      string
	Amount      float64
	Currency    string
	InvoiceDate time.Time
}

// MessagePage is one page of candidate message identifiers.
type MessagePage struct {
	IDs        []string
	NextCursor string
}

// ScanRequest describes one scan invocation.
type ScanRequest struct {
	AccountID   string
	MaxMessages int
	Exhaustive  bool
}

// ScanSummary reports the outcome of a completed scan. A scan that hit
// per-message problems still completes with counts and a best-effort
// invoice list.
type ScanSummary struct {
	ProcessedCount int
	SavedCount     int
	SkippedCount   int
	Errors         []string
	Invoices       []InvoiceSummary
}
