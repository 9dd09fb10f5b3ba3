package di

import (
	"context"
	"fmt"

	"go.uber.org/dig"
	"go.uber.org/zap"

	"github.com/subwatch/invoice-scanner/internal/config"
	"github.com/subwatch/invoice-scanner/internal/core"
	"github.com/subwatch/invoice-scanner/internal/factory"
	"github.com/subwatch/invoice-scanner/internal/logging"
	"github.com/subwatch/invoice-scanner/internal/utils"
)

// BuildContainer creates and configures a dependency injection container
func BuildContainer(ctx context.Context) (*dig.Container, error) {
	container := dig.New()

	// Register configuration
	if err := container.Provide(config.New); err != nil {
		return nil, err
	}

	// Register logger
	if err := container.Provide(logging.InitLogger); err != nil {
		return nil, err
	}

	// Register factories
	if err := container.Provide(factory.NewTextProcessorFactory); err != nil {
		return nil, err
	}
	if err := container.Provide(factory.NewSourceFactory); err != nil {
		return nil, err
	}
	if err := container.Provide(factory.NewStoreFactory); err != nil {
		return nil, err
	}
	if err := container.Provide(factory.NewAssistantFactory); err != nil {
		return nil, err
	}
	if err := container.Provide(factory.NewExtractorFactory); err != nil {
		return nil, err
	}

	// Register text processor
	if err := container.Provide(func(f *factory.TextProcessorFactory) *utils.TextProcessor {
		return f.CreateTextProcessor()
	}); err != nil {
		return nil, err
	}

	// Register message source
	if err := container.Provide(func(f *factory.SourceFactory) (core.MessageSource, error) {
		return f.CreateSource(ctx)
	}); err != nil {
		return nil, err
	}

	// Register invoice repository
	if err := container.Provide(func(f *factory.StoreFactory) (core.InvoiceRepository, error) {
		return f.CreateRepository()
	}); err != nil {
		return nil, err
	}

	// Register extraction pipeline with its optional assistant
	if err := container.Provide(func(ef *factory.ExtractorFactory, af *factory.AssistantFactory) (core.InvoiceExtractor, error) {
		assistant, err := af.CreateAssistant(ctx)
		if err != nil {
			return nil, err
		}
		return ef.CreatePipeline(assistant), nil
	}); err != nil {
		return nil, err
	}

	// Register scan service
	if err := container.Provide(func(
		cfg *config.Config,
		source core.MessageSource,
		repo core.InvoiceRepository,
		extractor core.InvoiceExtractor,
		logger *zap.Logger,
	) (*core.ScanService, error) {
		fetchDelay, err := cfg.GetDuration("scan.fetch_delay")
		if err != nil {
			return nil, fmt.Errorf("invalid scan fetch delay: %w", err)
		}
		return core.NewScanService(
			source,
			repo,
			extractor,
			logger,
			cfg.GetInt("scan.max_messages"),
			fetchDelay,
		), nil
	}); err != nil {
		return nil, err
	}

	return container, nil
}
