package extract

import (
	"encoding/base64"
	"net/mail"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"github.com/subwatch/invoice-scanner/internal/core"
	"github.com/subwatch/invoice-scanner/internal/utils"
	"go.uber.org/zap"
	"golang.org/x/text/encoding/charmap"
)

// Normalizer reduces a raw message to header fields plus one decoded,
// markup-free text blob. It is total: every input produces a normalized
// message, possibly with an empty body.
type Normalizer struct {
	text        *utils.TextProcessor
	logger      *zap.Logger
	maxBodySize int
}

// NewNormalizer creates a new content normalizer
func NewNormalizer(text *utils.TextProcessor, logger *zap.Logger, maxBodySize int) *Normalizer {
	return &Normalizer{
		text:        text,
		logger:      logger,
		maxBodySize: maxBodySize,
	}
}

// Normalize selects the best body part (plain text, then stripped HTML, then
// the snippet), decodes it tolerantly, and collapses it into a single blob.
func (n *Normalizer) Normalize(msg *core.RawMessage) core.NormalizedMessage {
	body := ""
	switch {
	case n.findPart(msg, core.PartPlainText) != nil:
		body = decodeContent(n.findPart(msg, core.PartPlainText).Content)
	case n.findPart(msg, core.PartHTML) != nil:
		body = n.stripMarkup(decodeContent(n.findPart(msg, core.PartHTML).Content))
	default:
		body = msg.Snippet
	}

	return core.NormalizedMessage{
		Sender:    normalizeSender(msg.Sender),
		Subject:   strings.TrimSpace(msg.Subject),
		Body:      n.text.ProcessText(body, n.maxBodySize),
		Timestamp: msg.Timestamp,
	}
}

func (n *Normalizer) findPart(msg *core.RawMessage, kind core.PartKind) *core.BodyPart {
	for i := range msg.Parts {
		if msg.Parts[i].Kind == kind && msg.Parts[i].Content != "" {
			return &msg.Parts[i]
		}
	}
	return nil
}

// stripMarkup drops tags, scripts, and styles, keeping only rendered text.
func (n *Normalizer) stripMarkup(html string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		n.logger.Debug("Failed to parse HTML part, keeping raw content", zap.Error(err))
		return html
	}
	doc.Find("script,style").Remove()
	return doc.Text()
}

// decodeContent reverses the mailbox API's base64url transport encoding.
// Content that does not decode, or decodes to invalid UTF-8, falls back to a
// raw Latin-1 interpretation rather than failing.
func decodeContent(content string) string {
	var raw []byte
	var err error
	for _, enc := range []*base64.Encoding{
		base64.RawURLEncoding,
		base64.URLEncoding,
		base64.RawStdEncoding,
		base64.StdEncoding,
	} {
		raw, err = enc.DecodeString(content)
		if err == nil {
			break
		}
	}
	if err != nil {
		return content
	}

	if utf8.Valid(raw) {
		return string(raw)
	}

	decoded, decErr := charmap.ISO8859_1.NewDecoder().Bytes(raw)
	if decErr != nil {
		return string(raw)
	}
	return string(decoded)
}

// normalizeSender reduces "Display Name <addr>" forms to the bare address.
func normalizeSender(sender string) string {
	if addr, err := mail.ParseAddress(sender); err == nil {
		return strings.ToLower(addr.Address)
	}
	return strings.ToLower(strings.TrimSpace(sender))
}
