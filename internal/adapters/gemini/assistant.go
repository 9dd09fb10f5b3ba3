package gemini

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"github.com/subwatch/invoice-scanner/internal/core"
	"github.com/subwatch/invoice-scanner/internal/utils"
	"go.uber.org/zap"
	"google.golang.org/api/option"
)

// Assistant is an implementation of the ExtractionAssistant interface using
// Google Gemini.
type Assistant struct {
	client        *genai.Client
	model         *genai.GenerativeModel
	modelName     string
	maxBodySize   int
	textProcessor *utils.TextProcessor
	logger        *zap.Logger
	promptFormat  string
}

// amountResponse represents the structured response from the model
type amountResponse struct {
	Found    bool    `json:"found"`
	Amount   float64 `json:"amount"`
	Currency string  `json:"currency"`
}

// NewAssistant creates a new Gemini extraction assistant
func NewAssistant(
	ctx context.Context,
	apiKey string,
	modelName string,
	maxTokens int,
	temperature float32,
	maxBodySize int,
	textProcessor *utils.TextProcessor,
	logger *zap.Logger,
) (*Assistant, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	model := client.GenerativeModel(modelName)
	model.SetTemperature(temperature)
	model.SetMaxOutputTokens(int32(maxTokens))
	model.ResponseMIMEType = "application/json"

	return &Assistant{
		client:        client,
		model:         model,
		modelName:     modelName,
		maxBodySize:   maxBodySize,
		textProcessor: textProcessor,
		logger:        logger,
		promptFormat: `You are a billing email analyzer. Find the single amount that was charged in the following email, if any.
Respond with a JSON object containing:
- found: boolean (true only if a charged amount is clearly present)
- amount: number (the charged amount, without currency symbols)
- currency: string (three-letter ISO code, e.g. "USD")

Email:
From: %s
Subject: %s
Body:
%s

Respond only with the JSON object and nothing else.`,
	}, nil
}

// Close closes the Gemini client
func (a *Assistant) Close() error {
	if a.client != nil {
		return a.client.Close()
	}
	return nil
}

var _ core.ExtractionAssistant = (*Assistant)(nil)

// SuggestAmount asks the model for the charged amount in a message the
// pattern extractors could not read.
func (a *Assistant) SuggestAmount(ctx context.Context, msg *core.NormalizedMessage) (*core.Amount, error) {
	body := a.textProcessor.ProcessText(msg.Body, a.maxBodySize)
	prompt := fmt.Sprintf(a.promptFormat, msg.Sender, msg.Subject, body)

	resp, err := a.model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return nil, fmt.Errorf("failed to generate content with Gemini: %w", err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return nil, fmt.Errorf("empty response from Gemini")
	}

	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			sb.WriteString(string(text))
		}
	}

	var parsed amountResponse
	if err := json.Unmarshal([]byte(sb.String()), &parsed); err != nil {
		return nil, fmt.Errorf("failed to parse model response as JSON: %w", err)
	}
	if !parsed.Found {
		return nil, nil
	}

	a.logger.Debug("Assistant suggested amount",
		zap.Float64("amount", parsed.Amount),
		zap.String("currency", parsed.Currency),
		zap.String("model", a.modelName))

	return &core.Amount{Value: parsed.Amount, Currency: parsed.Currency}, nil
}
