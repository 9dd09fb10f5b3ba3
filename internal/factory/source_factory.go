package factory

import (
	"context"
	"fmt"

	"github.com/subwatch/invoice-scanner/internal/adapters/gmail"
	"github.com/subwatch/invoice-scanner/internal/config"
	"github.com/subwatch/invoice-scanner/internal/core"
	"go.uber.org/zap"
)

// SourceFactory creates message sources based on configuration
type SourceFactory struct {
	cfg    *config.Config
	logger *zap.Logger
}

// NewSourceFactory creates a new source factory
func NewSourceFactory(cfg *config.Config, logger *zap.Logger) *SourceFactory {
	return &SourceFactory{
		cfg:    cfg,
		logger: logger,
	}
}

// CreateSource creates a message source based on the configuration
func (f *SourceFactory) CreateSource(ctx context.Context) (core.MessageSource, error) {
	sourceType := f.cfg.GetString("source.type")

	retryDelay, err := f.cfg.GetDuration("source.retry_base_delay")
	if err != nil {
		return nil, fmt.Errorf("invalid source retry base delay: %w", err)
	}

	switch sourceType {
	case "gmail":
		return gmail.NewSource(
			ctx,
			f.cfg.GetString("gmail.access_token"),
			f.cfg.GetString("gmail.user"),
			f.cfg.GetInt("source.lookback_days"),
			f.cfg.GetInt("source.max_retries"),
			retryDelay,
			f.logger,
		)
	default:
		return nil, fmt.Errorf("unsupported source type: %s", sourceType)
	}
}
