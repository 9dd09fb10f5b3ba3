package core

import (
	"context"
)

// MessageSource defines the interface for the external mailbox API.
type MessageSource interface {
	// ListBillingMessages returns one page of candidate message identifiers
	// matching the billing search query. An empty cursor requests the first
	// page; a non-empty NextCursor means more pages exist.
	ListBillingMessages(ctx context.Context, cursor string, pageSize int) (*MessagePage, error)

	// FetchMessage returns the full raw payload for one message identifier.
	FetchMessage(ctx context.Context, id string) (*RawMessage, error)
}

// InvoiceRepository defines the interface for the persisted invoice store.
type InvoiceRepository interface {
	// ExistingIDs reports which of the candidate message identifiers already
	// have a persisted record for the account.
	ExistingIDs(ctx context.Context, accountID string, ids []string) (map[string]bool, error)

	// UpsertInvoices stores records keyed by (account, message id) with
	// duplicate-ignoring semantics and returns how many rows were inserted.
	UpsertInvoices(ctx context.Context, accountID string, invoices []ExtractedInvoice) (int, error)
}

// InvoiceExtractor turns one raw message into an invoice record. A nil record
// with a non-empty reason is a rejection, not an error; extraction itself
// never fails the pipeline.
type InvoiceExtractor interface {
	Extract(ctx context.Context, msg *RawMessage) (*ExtractedInvoice, string)
}

// ExtractionAssistant is an optional remote helper consulted only when the
// pattern extractors find no amount. Its answer is validated exactly like a
// pattern match before it can influence acceptance.
type ExtractionAssistant interface {
	SuggestAmount(ctx context.Context, msg *NormalizedMessage) (*Amount, error)
}
