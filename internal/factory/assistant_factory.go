package factory

import (
	"context"
	"fmt"

	"github.com/subwatch/invoice-scanner/internal/adapters/bedrock"
	"github.com/subwatch/invoice-scanner/internal/adapters/gemini"
	"github.com/subwatch/invoice-scanner/internal/adapters/openai"
	"github.com/subwatch/invoice-scanner/internal/config"
	"github.com/subwatch/invoice-scanner/internal/core"
	"github.com/subwatch/invoice-scanner/internal/utils"
	"go.uber.org/zap"
)

// AssistantFactory creates extraction assistants based on configuration
type AssistantFactory struct {
	cfg           *config.Config
	logger        *zap.Logger
	textProcessor *utils.TextProcessor
}

// NewAssistantFactory creates a new assistant factory
func NewAssistantFactory(cfg *config.Config, logger *zap.Logger, textProcessor *utils.TextProcessor) *AssistantFactory {
	return &AssistantFactory{
		cfg:           cfg,
		logger:        logger,
		textProcessor: textProcessor,
	}
}

// CreateAssistant creates an extraction assistant based on the configuration.
// A nil assistant (with nil error) means the feature is disabled and the
// pipeline runs on pattern extraction alone.
func (f *AssistantFactory) CreateAssistant(ctx context.Context) (core.ExtractionAssistant, error) {
	if !f.cfg.GetBool("assistant.enabled") {
		return nil, nil
	}

	provider := f.cfg.GetString("assistant.provider")
	maxBodySize := f.cfg.GetInt("assistant.max_body_size")

	switch provider {
	case "openai":
		return openai.NewAssistant(
			f.cfg.GetString("openai.api_key"),
			f.cfg.GetString("openai.model_name"),
			f.cfg.GetInt("openai.max_tokens"),
			float32(f.cfg.GetFloat64("openai.temperature")),
			maxBodySize,
			f.textProcessor,
			f.logger,
		), nil
	case "gemini":
		return gemini.NewAssistant(
			ctx,
			f.cfg.GetString("gemini.api_key"),
			f.cfg.GetString("gemini.model_name"),
			f.cfg.GetInt("gemini.max_tokens"),
			float32(f.cfg.GetFloat64("gemini.temperature")),
			maxBodySize,
			f.textProcessor,
			f.logger,
		)
	case "bedrock":
		return bedrock.NewAssistant(
			ctx,
			f.cfg.GetString("bedrock.region"),
			f.cfg.GetString("bedrock.model_id"),
			f.cfg.GetInt("bedrock.max_tokens"),
			f.cfg.GetFloat64("bedrock.temperature"),
			maxBodySize,
			f.textProcessor,
			f.logger,
		)
	default:
		return nil, fmt.Errorf("unsupported assistant provider: %s", provider)
	}
}
