package extract

import (
	"context"
	"time"

	"github.com/subwatch/invoice-scanner/internal/core"
	"go.uber.org/zap"
)

// SkipNoAmount is the rejection reason when no monetary amount was isolated.
const SkipNoAmount = "could not extract amount"

// Pipeline composes the normalizer, classifier, and field extractors into the
// core.InvoiceExtractor port. All stages after normalization are pure pattern
// work; only the optional assistant touches the network.
type Pipeline struct {
	normalizer  *Normalizer
	classifier  *Classifier
	amounts     *AmountExtractor
	dates       *DateExtractor
	identifiers *IdentifierExtractor
	assembler   *Assembler
	assistant   core.ExtractionAssistant
	logger      *zap.Logger
}

// NewPipeline creates the extraction pipeline. assistant may be nil.
func NewPipeline(
	normalizer *Normalizer,
	classifier *Classifier,
	amounts *AmountExtractor,
	dates *DateExtractor,
	identifiers *IdentifierExtractor,
	assembler *Assembler,
	assistant core.ExtractionAssistant,
	logger *zap.Logger,
) *Pipeline {
	return &Pipeline{
		normalizer:  normalizer,
		classifier:  classifier,
		amounts:     amounts,
		dates:       dates,
		identifiers: identifiers,
		assembler:   assembler,
		assistant:   assistant,
		logger:      logger,
	}
}

var _ core.InvoiceExtractor = (*Pipeline)(nil)

// Extract runs one message through the full pipeline. A record is produced
// iff an amount was isolated; every other field may be absent or defaulted.
func (p *Pipeline) Extract(ctx context.Context, msg *core.RawMessage) (*core.ExtractedInvoice, string) {
	norm := p.normalizer.Normalize(msg)
	text := norm.Subject + "\n" + norm.Body

	vendor, vendorConfidence := p.classifier.Classify(norm.Sender, norm.Subject, norm.Body)

	amount, found := p.amounts.Extract(text)
	if !found {
		amount, found = p.consultAssistant(ctx, &norm)
	}
	if !found {
		return nil, SkipNoAmount
	}

	invoiceDate, dateFound := p.dates.ExtractInvoiceDate(text)
	if !dateFound {
		// Explicit approximation: the message's own timestamp stands in for
		// an unparseable invoice date.
		p.logger.Info("No invoice date found, using message timestamp",
			zap.String("message_id", msg.ID),
			zap.Time("timestamp", norm.Timestamp))
		invoiceDate = norm.Timestamp
	}

	var renewalDate *time.Time
	if renewal, ok := p.dates.ExtractRenewalDate(text); ok {
		renewalDate = &renewal
	}

	invoiceID, _ := p.identifiers.Extract(text)

	invoice := p.assembler.Assemble(
		msg.ID,
		vendor,
		vendorConfidence,
		amount,
		invoiceDate,
		renewalDate,
		invoiceID,
	)
	return invoice, ""
}

// consultAssistant asks the optional remote helper for an amount when the
// pattern families found none. Suggestions pass the exact same plausibility
// and currency gates as pattern matches.
func (p *Pipeline) consultAssistant(ctx context.Context, norm *core.NormalizedMessage) (core.Amount, bool) {
	if p.assistant == nil {
		return core.Amount{}, false
	}

	suggestion, err := p.assistant.SuggestAmount(ctx, norm)
	if err != nil {
		p.logger.Warn("Extraction assistant failed", zap.Error(err))
		return core.Amount{}, false
	}
	if suggestion == nil || !p.amounts.Plausible(suggestion.Value) {
		return core.Amount{}, false
	}

	currency, known := NormalizeCurrency(suggestion.Currency)
	if !known {
		currency = DefaultCurrency()
	}
	return core.Amount{Value: suggestion.Value, Currency: currency}, true
}
