package bedrock

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/subwatch/invoice-scanner/internal/core"
	"github.com/subwatch/invoice-scanner/internal/utils"
	"go.uber.org/zap"
)

// Assistant is an implementation of the ExtractionAssistant interface using
// AWS Bedrock.
type Assistant struct {
	client        *bedrockruntime.Client
	modelID       string
	maxTokens     int
	temperature   float64
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

// NewAssistant creates a new Bedrock extraction assistant
func NewAssistant(
	ctx context.Context,
	region string,
	modelID string,
	maxTokens int,
	temperature float64,
	maxBodySize int,
	textProcessor *utils.TextProcessor,
	logger *zap.Logger,
) (*Assistant, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS configuration: %w", err)
	}

	return &Assistant{
		client:        bedrockruntime.NewFromConfig(awsCfg),
		modelID:       modelID,
		maxTokens:     maxTokens,
		temperature:   temperature,
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

var _ core.ExtractionAssistant = (*Assistant)(nil)

// SuggestAmount asks the model for the charged amount in a message the
// pattern extractors could not read.
func (a *Assistant) SuggestAmount(ctx context.Context, msg *core.NormalizedMessage) (*core.Amount, error) {
	body := a.textProcessor.ProcessText(msg.Body, a.maxBodySize)
	prompt := fmt.Sprintf(a.promptFormat, msg.Sender, msg.Subject, body)

	payload, err := json.Marshal(map[string]interface{}{
		"prompt":               fmt.Sprintf("\n\nHuman: %s\n\nAssistant:", prompt),
		"max_tokens_to_sample": a.maxTokens,
		"temperature":          a.temperature,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request payload: %w", err)
	}

	resp, err := a.client.InvokeModel(ctx, &bedrockruntime.InvokeModelInput{
		ModelId:     &a.modelID,
		Body:        payload,
		Accept:      aws.String("application/json"),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to invoke Bedrock model: %w", err)
	}

	var completion struct {
		Completion string `json:"completion"`
	}
	if err := json.Unmarshal(resp.Body, &completion); err != nil {
		return nil, fmt.Errorf("failed to parse Bedrock response: %w", err)
	}

	parsed, err := extractJSON(completion.Completion)
	if err != nil {
		return nil, err
	}
	if !parsed.Found {
		return nil, nil
	}

	a.logger.Debug("Assistant suggested amount",
		zap.Float64("amount", parsed.Amount),
		zap.String("currency", parsed.Currency),
		zap.String("model", a.modelID))

	return &core.Amount{Value: parsed.Amount, Currency: parsed.Currency}, nil
}

// extractJSON parses the completion text, tolerating prose around the JSON
// object.
func extractJSON(text string) (*amountResponse, error) {
	var parsed amountResponse
	if err := json.Unmarshal([]byte(text), &parsed); err == nil {
		return &parsed, nil
	}

	start := -1
	end := -1
	for i := 0; i < len(text); i++ {
		if text[i] == '{' {
			start = i
			break
		}
	}
	for i := len(text) - 1; i >= 0; i-- {
		if text[i] == '}' {
			end = i + 1
			break
		}
	}
	if start < 0 || end <= start {
		return nil, fmt.Errorf("no JSON object in model response")
	}

	if err := json.Unmarshal([]byte(text[start:end]), &parsed); err != nil {
		return nil, fmt.Errorf("failed to parse model response as JSON: %w", err)
	}
	return &parsed, nil
}
