package gmail

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/subwatch/invoice-scanner/internal/core"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
	gmailapi "google.golang.org/api/gmail/v1"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

// billingQueryTerms is the fixed topical search for billing-like mail.
// Promotional and social categories are excluded up front so the extractors
// never see marketing blasts.
const billingQueryTerms = "(invoice OR receipt OR billing OR subscription OR payment OR charged)" +
	" -category:promotions -category:social"

// Source is the Gmail implementation of the core.MessageSource port. It is a
// read-only boundary adapter: rate limits are retried with bounded
// exponential backoff, authentication failures surface immediately.
type Source struct {
	svc        *gmailapi.Service
	user       string
	query      string
	logger     *zap.Logger
	maxRetries int
	baseDelay  time.Duration
}

// NewSource creates a Gmail source for one account access token.
func NewSource(
	ctx context.Context,
	accessToken string,
	user string,
	lookbackDays int,
	maxRetries int,
	baseDelay time.Duration,
	logger *zap.Logger,
) (*Source, error) {
	tokenSource := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: accessToken})
	svc, err := gmailapi.NewService(ctx, option.WithTokenSource(tokenSource))
	if err != nil {
		return nil, fmt.Errorf("failed to create gmail service: %w", err)
	}

	query := billingQueryTerms
	if lookbackDays > 0 {
		query = fmt.Sprintf("%s newer_than:%dd", query, lookbackDays)
	}

	return &Source{
		svc:        svc,
		user:       user,
		query:      query,
		logger:     logger,
		maxRetries: maxRetries,
		baseDelay:  baseDelay,
	}, nil
}

var _ core.MessageSource = (*Source)(nil)

// ListBillingMessages returns one page of candidate identifiers for the
// billing query.
func (s *Source) ListBillingMessages(ctx context.Context, cursor string, pageSize int) (*core.MessagePage, error) {
	if pageSize <= 0 {
		pageSize = 100
	}

	var resp *gmailapi.ListMessagesResponse
	err := s.withRetry(ctx, "list messages", func() error {
		req := s.svc.Users.Messages.List(s.user).Q(s.query).MaxResults(int64(pageSize))
		if cursor != "" {
			req = req.PageToken(cursor)
		}
		var apiErr error
		resp, apiErr = req.Context(ctx).Do()
		return apiErr
	})
	if err != nil {
		return nil, err
	}

	page := &core.MessagePage{NextCursor: resp.NextPageToken}
	for _, m := range resp.Messages {
		page.IDs = append(page.IDs, m.Id)
	}

	s.logger.Debug("Listed billing messages",
		zap.Int("count", len(page.IDs)),
		zap.Bool("has_more", page.NextCursor != ""))

	return page, nil
}

// FetchMessage returns the full raw payload for one message. A payload the
// adapter cannot interpret is a per-message failure, never a batch failure.
func (s *Source) FetchMessage(ctx context.Context, id string) (*core.RawMessage, error) {
	var msg *gmailapi.Message
	err := s.withRetry(ctx, "fetch message", func() error {
		var apiErr error
		msg, apiErr = s.svc.Users.Messages.Get(s.user, id).Format("full").Context(ctx).Do()
		return apiErr
	})
	if err != nil {
		return nil, err
	}

	if msg == nil || msg.Payload == nil {
		return nil, fmt.Errorf("%w: message %s has no payload", core.ErrMalformedMessage, id)
	}

	raw := &core.RawMessage{
		ID:        msg.Id,
		ThreadID:  msg.ThreadId,
		Snippet:   msg.Snippet,
		Timestamp: time.UnixMilli(msg.InternalDate).UTC(),
	}

	for _, h := range msg.Payload.Headers {
		switch strings.ToLower(h.Name) {
		case "from":
			raw.Sender = h.Value
		case "subject":
			raw.Subject = h.Value
		case "date":
			if raw.Timestamp.IsZero() || msg.InternalDate == 0 {
				if t, err := mail.ParseDate(h.Value); err == nil {
					raw.Timestamp = t.UTC()
				}
			}
		}
	}

	collectParts(msg.Payload, raw)

	if raw.Sender == "" && len(raw.Parts) == 0 && raw.Snippet == "" {
		return nil, fmt.Errorf("%w: message %s has no usable content", core.ErrMalformedMessage, id)
	}

	return raw, nil
}

// collectParts walks the MIME tree and keeps text parts with their transport
// encoding intact; decoding belongs to the normalizer.
func collectParts(part *gmailapi.MessagePart, raw *core.RawMessage) {
	if part == nil {
		return
	}

	if part.Body != nil && part.Body.Data != "" {
		switch {
		case strings.HasPrefix(part.MimeType, "text/plain"):
			raw.Parts = append(raw.Parts, core.BodyPart{Kind: core.PartPlainText, Content: part.Body.Data})
		case strings.HasPrefix(part.MimeType, "text/html"):
			raw.Parts = append(raw.Parts, core.BodyPart{Kind: core.PartHTML, Content: part.Body.Data})
		}
	}

	for _, child := range part.Parts {
		collectParts(child, raw)
	}
}

// withRetry retries rate-limited calls with a doubling delay, escalating to
// ErrSourceUnavailable once attempts are exhausted. Authentication failures
// and malformed requests are never retried.
func (s *Source) withRetry(ctx context.Context, op string, call func() error) error {
	delay := s.baseDelay
	var lastErr error

	for attempt := 0; attempt < s.maxRetries; attempt++ {
		err := call()
		if err == nil {
			return nil
		}

		mapped := s.mapError(err)
		if !errors.Is(mapped, core.ErrRateLimited) {
			return mapped
		}
		lastErr = mapped

		s.logger.Warn("Rate limited, backing off",
			zap.String("op", op),
			zap.Int("attempt", attempt+1),
			zap.Duration("delay", delay))

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
		delay *= 2
	}

	return fmt.Errorf("%w: %s: %v", core.ErrSourceUnavailable, op, lastErr)
}

// mapError translates Gmail API failures into the core error taxonomy.
func (s *Source) mapError(err error) error {
	var apiErr *googleapi.Error
	if !errors.As(err, &apiErr) {
		return fmt.Errorf("%w: %v", core.ErrSourceUnavailable, err)
	}

	switch apiErr.Code {
	case 401:
		return fmt.Errorf("%w: %v", core.ErrAuthenticationFailed, apiErr)
	case 429:
		return fmt.Errorf("%w: %v", core.ErrRateLimited, apiErr)
	case 403:
		for _, e := range apiErr.Errors {
			switch e.Reason {
			case "rateLimitExceeded", "userRateLimitExceeded", "quotaExceeded", "dailyLimitExceeded":
				return fmt.Errorf("%w: %v", core.ErrRateLimited, apiErr)
			}
		}
		return fmt.Errorf("%w: %v", core.ErrAuthenticationFailed, apiErr)
	case 400:
		return fmt.Errorf("%w: %v", core.ErrMalformedMessage, apiErr)
	default:
		return fmt.Errorf("%w: %v", core.ErrSourceUnavailable, apiErr)
	}
}
