package core

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// ScanService is the core orchestrator: it walks candidate messages from the
// source, skips already-processed identifiers, runs extraction, and persists
// accepted records one message at a time.
type ScanService struct {
	source     MessageSource
	repo       InvoiceRepository
	extractor  InvoiceExtractor
	logger     *zap.Logger
	batchCap   int
	fetchDelay time.Duration
}

// NewScanService creates a new scan service
func NewScanService(
	source MessageSource,
	repo InvoiceRepository,
	extractor InvoiceExtractor,
	logger *zap.Logger,
	batchCap int,
	fetchDelay time.Duration,
) *ScanService {
	return &ScanService{
		source:     source,
		repo:       repo,
		extractor:  extractor,
		logger:     logger,
		batchCap:   batchCap,
		fetchDelay: fetchDelay,
	}
}

// Scan runs one pass over the account's billing mail. Per-message failures
// are isolated into the summary's error list; only authentication failure or
// total source unavailability aborts the scan. The returned summary is
// best-effort even when err is non-nil.
func (s *ScanService) Scan(ctx context.Context, req ScanRequest) (*ScanSummary, error) {
	summary := &ScanSummary{}

	limit := req.MaxMessages
	if limit <= 0 || limit > s.batchCap {
		limit = s.batchCap
	}

	ids, err := s.collectCandidates(ctx, limit, req.Exhaustive)
	if err != nil {
		return summary, err
	}

	existing, err := s.repo.ExistingIDs(ctx, req.AccountID, ids)
	if err != nil {
		return summary, fmt.Errorf("failed to query processed messages: %w", err)
	}

	for _, id := range ids {
		if existing[id] {
			s.logger.Debug("Message already processed, skipping",
				zap.String("message_id", id),
				zap.String("account_id", req.AccountID))
			summary.SkippedCount++
			continue
		}

		if err := s.processMessage(ctx, req.AccountID, id, summary); err != nil {
			return summary, err
		}

		if err := s.pause(ctx); err != nil {
			return summary, err
		}
	}

	s.logger.Info("Scan complete",
		zap.String("account_id", req.AccountID),
		zap.Int("processed", summary.ProcessedCount),
		zap.Int("saved", summary.SavedCount),
		zap.Int("skipped", summary.SkippedCount),
		zap.Int("errors", len(summary.Errors)))

	return summary, nil
}

// collectCandidates pages through the billing search until the limit is
// reached. A single page is fetched unless exhaustive pagination was asked
// for.
func (s *ScanService) collectCandidates(ctx context.Context, limit int, exhaustive bool) ([]string, error) {
	var ids []string
	cursor := ""

	for {
		page, err := s.source.ListBillingMessages(ctx, cursor, limit-len(ids))
		if err != nil {
			if errors.Is(err, ErrAuthenticationFailed) {
				return nil, err
			}
			return nil, fmt.Errorf("%w: %v", ErrSourceUnavailable, err)
		}

		ids = append(ids, page.IDs...)
		cursor = page.NextCursor

		// An empty page with a cursor would otherwise spin forever.
		if !exhaustive || cursor == "" || len(ids) >= limit || len(page.IDs) == 0 {
			break
		}
	}

	if len(ids) > limit {
		ids = ids[:limit]
	}
	return ids, nil
}

// processMessage fetches, extracts, and persists a single message. Malformed
// payloads are recorded and swallowed; source-level failures propagate.
func (s *ScanService) processMessage(ctx context.Context, accountID, id string, summary *ScanSummary) error {
	msg, err := s.source.FetchMessage(ctx, id)
	if err != nil {
		if errors.Is(err, ErrMalformedMessage) {
			summary.ProcessedCount++
			summary.Errors = append(summary.Errors, fmt.Sprintf("%s: %v", id, err))
			return nil
		}
		return err
	}

	summary.ProcessedCount++

	invoice, reason := s.extractor.Extract(ctx, msg)
	if invoice == nil {
		s.logger.Debug("Message rejected",
			zap.String("message_id", id),
			zap.String("reason", reason))
		summary.SkippedCount++
		return nil
	}

	inserted, err := s.repo.UpsertInvoices(ctx, accountID, []ExtractedInvoice{*invoice})
	if err != nil {
		summary.Errors = append(summary.Errors, fmt.Sprintf("%s: persist: %v", id, err))
		return nil
	}

	// A zero insert means another scan won the race; the unique key already
	// guarantees a single record per message.
	summary.SavedCount += inserted
	if inserted == 0 {
		summary.SkippedCount++
		return nil
	}

	summary.Invoices = append(summary.Invoices, InvoiceSummary{
		MessageID:   invoice.MessageID,
		Vendor:      invoice.Vendor,
		Amount:      invoice.Amount,
		Currency:    invoice.Currency,
		InvoiceDate: invoice.InvoiceDate,
	})
	return nil
}

func (s *ScanService) pause(ctx context.Context) error {
	if s.fetchDelay <= 0 {
		return nil
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(s.fetchDelay):
		return nil
	}
}
