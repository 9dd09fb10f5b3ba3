package gmail

import (
	"context"
	"errors"
	"testing"

	"github.com/subwatch/invoice-scanner/internal/core"
	"go.uber.org/zap"
	gmailapi "google.golang.org/api/gmail/v1"
	"google.golang.org/api/googleapi"
)

func testSource() *Source {
	return &Source{
		user:       "me",
		query:      billingQueryTerms,
		logger:     zap.NewNop(),
		maxRetries: 3,
	}
}

func TestMapError(t *testing.T) {
	s := testSource()

	tests := []struct {
		name string
		err  error
		want error
	}{
		{
			name: "401 is an authentication failure",
			err:  &googleapi.Error{Code: 401, Message: "invalid credentials"},
			want: core.ErrAuthenticationFailed,
		},
		{
			name: "429 is rate limiting",
			err:  &googleapi.Error{Code: 429, Message: "too many requests"},
			want: core.ErrRateLimited,
		},
		{
			name: "403 with a quota reason is rate limiting",
			err: &googleapi.Error{Code: 403, Errors: []googleapi.ErrorItem{
				{Reason: "userRateLimitExceeded"},
			}},
			want: core.ErrRateLimited,
		},
		{
			name: "403 without a quota reason is an authorization failure",
			err: &googleapi.Error{Code: 403, Errors: []googleapi.ErrorItem{
				{Reason: "insufficientPermissions"},
			}},
			want: core.ErrAuthenticationFailed,
		},
		{
			name: "400 is a malformed message",
			err:  &googleapi.Error{Code: 400, Message: "bad request"},
			want: core.ErrMalformedMessage,
		},
		{
			name: "500 is source unavailability",
			err:  &googleapi.Error{Code: 500, Message: "backend error"},
			want: core.ErrSourceUnavailable,
		},
		{
			name: "non-API errors are source unavailability",
			err:  errors.New("connection refused"),
			want: core.ErrSourceUnavailable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := s.mapError(tt.err)
			if !errors.Is(got, tt.want) {
				t.Errorf("mapError(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestWithRetryEscalatesExhaustedRateLimits(t *testing.T) {
	s := testSource()
	calls := 0

	err := s.withRetry(context.Background(), "list messages", func() error {
		calls++
		return &googleapi.Error{Code: 429, Message: "too many requests"}
	})

	if calls != s.maxRetries {
		t.Errorf("calls = %d, want %d", calls, s.maxRetries)
	}
	if !errors.Is(err, core.ErrSourceUnavailable) {
		t.Errorf("err = %v, want escalation to ErrSourceUnavailable", err)
	}
}

func TestWithRetryDoesNotRetryAuthFailures(t *testing.T) {
	s := testSource()
	calls := 0

	err := s.withRetry(context.Background(), "list messages", func() error {
		calls++
		return &googleapi.Error{Code: 401, Message: "invalid credentials"}
	})

	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
	if !errors.Is(err, core.ErrAuthenticationFailed) {
		t.Errorf("err = %v, want ErrAuthenticationFailed", err)
	}
}

func TestCollectPartsWalksNestedMultipart(t *testing.T) {
	payload := &gmailapi.MessagePart{
		MimeType: "multipart/alternative",
		Parts: []*gmailapi.MessagePart{
			{
				MimeType: "multipart/related",
				Parts: []*gmailapi.MessagePart{
					{MimeType: "text/plain; charset=utf-8", Body: &gmailapi.MessagePartBody{Data: "cGxhaW4"}},
					{MimeType: "image/png", Body: &gmailapi.MessagePartBody{Data: "aW1n"}},
				},
			},
			{MimeType: "text/html", Body: &gmailapi.MessagePartBody{Data: "aHRtbA"}},
		},
	}

	raw := &core.RawMessage{}
	collectParts(payload, raw)

	if len(raw.Parts) != 2 {
		t.Fatalf("Parts = %d, want text/plain and text/html only", len(raw.Parts))
	}
	if raw.Parts[0].Kind != core.PartPlainText || raw.Parts[0].Content != "cGxhaW4" {
		t.Errorf("Parts[0] = %+v, want the plain part", raw.Parts[0])
	}
	if raw.Parts[1].Kind != core.PartHTML {
		t.Errorf("Parts[1] = %+v, want the html part", raw.Parts[1])
	}
}
