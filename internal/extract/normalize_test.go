package extract

import (
	"encoding/base64"
	"strings"
	"testing"
	"time"

	"github.com/subwatch/invoice-scanner/internal/core"
	"github.com/subwatch/invoice-scanner/internal/utils"
	"go.uber.org/zap"
)

func testNormalizer() *Normalizer {
	logger := zap.NewNop()
	return NewNormalizer(utils.NewTextProcessor(logger), logger, 16384)
}

func encodeBody(s string) string {
	return base64.RawURLEncoding.EncodeToString([]byte(s))
}

func TestNormalizePrefersPlainText(t *testing.T) {
	n := testNormalizer()

	msg := &core.RawMessage{
		ID:      "m1",
		Sender:  "Stripe <receipts@stripe.com>",
		Subject: "  Your receipt  ",
		Parts: []core.BodyPart{
			{Kind: core.PartHTML, Content: encodeBody("<p>html version</p>")},
			{Kind: core.PartPlainText, Content: encodeBody("plain version")},
		},
		Timestamp: time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC),
	}

	norm := n.Normalize(msg)
	if norm.Body != "plain version" {
		t.Errorf("Body = %q, want the plain part", norm.Body)
	}
	if norm.Sender != "receipts@stripe.com" {
		t.Errorf("Sender = %q, want bare address", norm.Sender)
	}
	if norm.Subject != "Your receipt" {
		t.Errorf("Subject = %q, want trimmed", norm.Subject)
	}
	if !norm.Timestamp.Equal(msg.Timestamp) {
		t.Errorf("Timestamp = %v, want %v", norm.Timestamp, msg.Timestamp)
	}
}

func TestNormalizeStripsMarkup(t *testing.T) {
	n := testNormalizer()

	html := `<html><head><style>p { color: red }</style></head>
<body><p>Total: <b>$9.99</b></p><script>alert(1)</script></body></html>`

	msg := &core.RawMessage{
		ID:    "m2",
		Parts: []core.BodyPart{{Kind: core.PartHTML, Content: encodeBody(html)}},
	}

	norm := n.Normalize(msg)
	if !strings.Contains(norm.Body, "Total: $9.99") {
		t.Errorf("Body = %q, want rendered text", norm.Body)
	}
	if strings.Contains(norm.Body, "alert") || strings.Contains(norm.Body, "color") {
		t.Errorf("Body = %q, script/style content should be removed", norm.Body)
	}
	if strings.Contains(norm.Body, "<") {
		t.Errorf("Body = %q, tags should be stripped", norm.Body)
	}
}

func TestNormalizeFallsBackToSnippet(t *testing.T) {
	n := testNormalizer()

	msg := &core.RawMessage{
		ID:      "m3",
		Snippet: "You were charged $5.00",
	}

	norm := n.Normalize(msg)
	if norm.Body != "You were charged $5.00" {
		t.Errorf("Body = %q, want the snippet", norm.Body)
	}
}

func TestNormalizeToleratesBadEncoding(t *testing.T) {
	n := testNormalizer()

	// Not valid base64 in any alphabet; the raw content must survive.
	msg := &core.RawMessage{
		ID:    "m4",
		Parts: []core.BodyPart{{Kind: core.PartPlainText, Content: "!!!not base64!!!"}},
	}

	norm := n.Normalize(msg)
	if norm.Body == "" {
		t.Error("Body should never be lost to a decode failure")
	}
}

func TestNormalizeIsTotal(t *testing.T) {
	n := testNormalizer()

	// An entirely empty message still normalizes.
	norm := n.Normalize(&core.RawMessage{ID: "m5"})
	if norm.Body != "" {
		t.Errorf("Body = %q, want empty", norm.Body)
	}
}

func TestNormalizeCollapsesWhitespace(t *testing.T) {
	n := testNormalizer()

	msg := &core.RawMessage{
		ID:    "m6",
		Parts: []core.BodyPart{{Kind: core.PartPlainText, Content: encodeBody("Total:\n\n  $12.50\t today")}},
	}

	norm := n.Normalize(msg)
	if norm.Body != "Total: $12.50 today" {
		t.Errorf("Body = %q, want collapsed whitespace", norm.Body)
	}
}
