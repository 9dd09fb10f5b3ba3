package factory

import (
	"github.com/subwatch/invoice-scanner/internal/config"
	"github.com/subwatch/invoice-scanner/internal/core"
	"github.com/subwatch/invoice-scanner/internal/extract"
	"github.com/subwatch/invoice-scanner/internal/utils"
	"github.com/subwatch/invoice-scanner/internal/vendors"
	"go.uber.org/zap"
)

// ExtractorFactory assembles the extraction pipeline from configuration
type ExtractorFactory struct {
	cfg           *config.Config
	logger        *zap.Logger
	textProcessor *utils.TextProcessor
}

// NewExtractorFactory creates a new extractor factory
func NewExtractorFactory(cfg *config.Config, logger *zap.Logger, textProcessor *utils.TextProcessor) *ExtractorFactory {
	return &ExtractorFactory{
		cfg:           cfg,
		logger:        logger,
		textProcessor: textProcessor,
	}
}

// CreatePipeline builds the full extraction pipeline over the built-in vendor
// registry. assistant may be nil.
func (f *ExtractorFactory) CreatePipeline(assistant core.ExtractionAssistant) *extract.Pipeline {
	registry := vendors.NewRegistry(vendors.Default(), f.logger)

	return extract.NewPipeline(
		extract.NewNormalizer(f.textProcessor, f.logger, f.cfg.GetInt("extract.max_body_size")),
		extract.NewClassifier(registry, f.logger),
		extract.NewAmountExtractor(f.cfg.GetFloat64("extract.max_amount")),
		extract.NewDateExtractor(f.cfg.GetInt("extract.year_window"), nil),
		extract.NewIdentifierExtractor(),
		extract.NewAssembler(nil),
		assistant,
		f.logger,
	)
}
