package openai

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/sashabaranov/go-openai"
	"github.com/subwatch/invoice-scanner/internal/core"
	"github.com/subwatch/invoice-scanner/internal/utils"
	"go.uber.org/zap"
)

// Assistant is an implementation of the ExtractionAssistant interface using
// OpenAI chat completions.
type Assistant struct {
	client        *openai.Client
	modelName     string
	maxTokens     int
	temperature   float32
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

// NewAssistant creates a new OpenAI extraction assistant
func NewAssistant(
	apiKey string,
	modelName string,
	maxTokens int,
	temperature float32,
	maxBodySize int,
	textProcessor *utils.TextProcessor,
	logger *zap.Logger,
) *Assistant {
	client := openai.NewClient(apiKey)

	return &Assistant{
		client:        client,
		modelName:     modelName,
		maxTokens:     maxTokens,
		temperature:   temperature,
		maxBodySize:   maxBodySize,
		textProcessor: textProcessor,
		logger:        logger,
		promptFormat:  amountPromptFormat,
	}
}

const amountPromptFormat = `You are a billing email analyzer. Find the single amount that was charged in the following email, if any.
Respond with a JSON object containing:
- found: boolean (true only if a charged amount is clearly present)
- amount: number (the charged amount, without currency symbols)
- currency: string (three-letter ISO code, e.g. "USD")

Email:
From: %s
Subject: %s
Body:
%s

Respond only with the JSON object and nothing else.`

var _ core.ExtractionAssistant = (*Assistant)(nil)

// SuggestAmount asks the model for the charged amount in a message the
// pattern extractors could not read.
func (a *Assistant) SuggestAmount(ctx context.Context, msg *core.NormalizedMessage) (*core.Amount, error) {
	body := a.textProcessor.ProcessText(msg.Body, a.maxBodySize)
	prompt := fmt.Sprintf(a.promptFormat, msg.Sender, msg.Subject, body)

	req := openai.ChatCompletionRequest{
		Model: a.modelName,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: "You are a billing email analyzer. Respond only with JSON.",
			},
			{
				Role:    openai.ChatMessageRoleUser,
				Content: prompt,
			},
		},
		MaxTokens:   a.maxTokens,
		Temperature: a.temperature,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	}

	resp, err := a.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("failed to create chat completion with OpenAI: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("empty response from OpenAI")
	}

	parsed, err := parseAmountResponse(resp.Choices[0].Message.Content)
	if err != nil {
		return nil, err
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

// parseAmountResponse parses the model output, tolerating prose around the
// JSON object.
func parseAmountResponse(text string) (*amountResponse, error) {
	var parsed amountResponse
	if err := json.Unmarshal([]byte(text), &parsed); err == nil {
		return &parsed, nil
	}

	jsonStart := -1
	jsonEnd := -1
	for i := 0; i < len(text); i++ {
		if text[i] == '{' {
			jsonStart = i
			break
		}
	}
	for i := len(text) - 1; i >= 0; i-- {
		if text[i] == '}' {
			jsonEnd = i + 1
			break
		}
	}
	if jsonStart < 0 || jsonEnd <= jsonStart {
		return nil, fmt.Errorf("no JSON object in model response")
	}

	if err := json.Unmarshal([]byte(text[jsonStart:jsonEnd]), &parsed); err != nil {
		return nil, fmt.Errorf("failed to parse model response as JSON: %w", err)
	}
	return &parsed, nil
}
