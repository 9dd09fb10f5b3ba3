package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/subwatch/invoice-scanner/internal/core"
	"github.com/subwatch/invoice-scanner/internal/di"
	"go.uber.org/zap"
)

var (
	accountID   = flag.String("account", "", "Account identifier the scan is running for")
	maxMessages = flag.Int("max", 0, "Maximum messages to examine (0 uses the configured cap)")
	exhaustive  = flag.Bool("exhaustive", false, "Follow pagination to the end instead of a single page")
)

func main() {
	flag.Parse()

	if *accountID == "" {
		fmt.Fprintln(os.Stderr, "an -account identifier is required")
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Build the dependency injection container
	container, err := di.BuildContainer(ctx)
	if err != nil {
		fmt.Printf("Failed to build dependency container: %v\n", err)
		os.Exit(1)
	}

	// Run the scan
	if err := container.Invoke(func(logger *zap.Logger, svc *core.ScanService) error {
		return run(ctx, logger, svc)
	}); err != nil {
		fmt.Printf("Application error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, logger *zap.Logger, svc *core.ScanService) error {
	defer logger.Sync()

	summary, err := svc.Scan(ctx, core.ScanRequest{
		AccountID:   *accountID,
		MaxMessages: *maxMessages,
		Exhaustive:  *exhaustive,
	})
	if err != nil {
		logger.Error("Scan aborted", zap.Error(err))
	}

	// The summary is best-effort even when the scan aborted; report what was
	// completed either way.
	if summary != nil {
		out, marshalErr := json.MarshalIndent(summary, "", "  ")
		if marshalErr != nil {
			return marshalErr
		}
		fmt.Println(string(out))
	}

	return err
}
