// invoice-extract runs the extraction pipeline over a single raw email from a
// file or stdin, without touching the mailbox API or any store. Useful for
// inspecting what a scan would make of one message.
package main

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/mail"
	"os"
	"strings"
	"time"

	"github.com/subwatch/invoice-scanner/internal/core"
	"github.com/subwatch/invoice-scanner/internal/extract"
	"github.com/subwatch/invoice-scanner/internal/logging"
	"github.com/subwatch/invoice-scanner/internal/utils"
	"github.com/subwatch/invoice-scanner/internal/vendors"
	"go.uber.org/zap"
)

var (
	inputFile   = flag.String("file", "", "Input email file (use stdin if not specified)")
	maxAmount   = flag.Float64("max-amount", 100000, "Amount sanity ceiling")
	yearWindow  = flag.Int("year-window", 10, "Plausible invoice-date window in years around now")
	maxBodySize = flag.Int("max-body-size", 16384, "Maximum body size fed to the extractors")
	verbose     = flag.Bool("verbose", false, "Enable verbose logging")
	jsonLog     = flag.Bool("json-log", false, "Output logs in JSON format")
)

func main() {
	flag.Parse()

	logger, err := logging.InitConsoleLogger(*verbose, *jsonLog)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	msg, err := readMessage(*inputFile)
	if err != nil {
		logger.Fatal("Failed to read email", zap.Error(err))
	}

	pipeline := buildPipeline(logger)

	invoice, reason := pipeline.Extract(context.Background(), msg)
	if invoice == nil {
		fmt.Printf("No invoice extracted: %s\n", reason)
		os.Exit(1)
	}

	out, err := json.MarshalIndent(invoice, "", "  ")
	if err != nil {
		logger.Fatal("Failed to encode result", zap.Error(err))
	}
	fmt.Println(string(out))
}

func buildPipeline(logger *zap.Logger) *extract.Pipeline {
	textProcessor := utils.NewTextProcessor(logger)
	registry := vendors.NewRegistry(vendors.Default(), logger)

	return extract.NewPipeline(
		extract.NewNormalizer(textProcessor, logger, *maxBodySize),
		extract.NewClassifier(registry, logger),
		extract.NewAmountExtractor(*maxAmount),
		extract.NewDateExtractor(*yearWindow, nil),
		extract.NewIdentifierExtractor(),
		extract.NewAssembler(nil),
		nil,
		logger,
	)
}

// readMessage parses an RFC 822 email into the raw message shape the
// pipeline expects; the body is re-encoded the way a mailbox API would
// deliver it.
func readMessage(path string) (*core.RawMessage, error) {
	var reader io.Reader = os.Stdin
	if path != "" {
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		reader = f
	}

	parsed, err := mail.ReadMessage(reader)
	if err != nil {
		return nil, fmt.Errorf("failed to parse email: %w", err)
	}

	body, err := io.ReadAll(parsed.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read email body: %w", err)
	}

	timestamp := time.Now().UTC()
	if t, err := parsed.Header.Date(); err == nil {
		timestamp = t.UTC()
	}

	kind := core.PartPlainText
	if strings.Contains(strings.ToLower(parsed.Header.Get("Content-Type")), "text/html") {
		kind = core.PartHTML
	}

	return &core.RawMessage{
		ID:        "local",
		Sender:    parsed.Header.Get("From"),
		Subject:   parsed.Header.Get("Subject"),
		Timestamp: timestamp,
		Parts: []core.BodyPart{
			{Kind: kind, Content: base64.RawURLEncoding.EncodeToString(body)},
		},
	}, nil
}
