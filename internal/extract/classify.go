package extract

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/subwatch/invoice-scanner/internal/vendors"
	"go.uber.org/zap"
)

// Classifier scoring weights. The additive score per vendor is capped at 1.0;
// anything below matchThreshold falls back to a domain-derived label.
const (
	senderMatchWeight  = 0.5
	domainHintWeight   = 0.3
	subjectMatchWeight = 0.2
	nameMentionWeight  = 0.1
	matchThreshold     = 0.3
	fallbackConfidence = 0.4
)

// Classifier matches a message against the vendor registry and produces a
// vendor name plus a match confidence in [0,1].
type Classifier struct {
	registry *vendors.Registry
	nameRes  []*regexp.Regexp
	logger   *zap.Logger
}

// NewClassifier creates a classifier over the given registry. Whole-word name
// patterns are compiled once here, not per message.
func NewClassifier(registry *vendors.Registry, logger *zap.Logger) *Classifier {
	sigs := registry.Signatures()
	nameRes := make([]*regexp.Regexp, len(sigs))
	for i, sig := range sigs {
		nameRes[i] = regexp.MustCompile(`(?i)\b` + regexp.QuoteMeta(sig.Name) + `\b`)
	}
	return &Classifier{
		registry: registry,
		nameRes:  nameRes,
		logger:   logger,
	}
}

// Classify scores every registered vendor against the sender address,
// subject, and normalized body. The highest score wins; ties go to the first
// registered vendor. Below the threshold the vendor label is derived from the
// sender's domain at a fixed confidence, so an unknown vendor never blocks a
// record on its own.
func (c *Classifier) Classify(sender, subject, body string) (string, float64) {
	senderLower := strings.ToLower(sender)
	subjectLower := strings.ToLower(subject)
	mentionText := subject + "\n" + body

	bestName := ""
	bestScore := 0.0

	for i, sig := range c.registry.Signatures() {
		score := 0.0

		for _, sub := range sig.SenderContains {
			if sub != "" && strings.Contains(senderLower, sub) {
				score += senderMatchWeight
				break
			}
		}

		if sig.DomainHint != "" && strings.Contains(senderLower, sig.DomainHint) {
			score += domainHintWeight
		}

		for _, pattern := range sig.SubjectPatterns {
			if pattern != "" && strings.Contains(subjectLower, pattern) {
				score += subjectMatchWeight
			}
		}

		if c.nameRes[i].MatchString(mentionText) {
			score += nameMentionWeight
		}

		if score > 1.0 {
			score = 1.0
		}

		// Strictly greater keeps the first registered vendor on ties.
		if score > bestScore {
			bestScore = score
			bestName = sig.Name
		}
	}

	if bestScore < matchThreshold {
		name := vendorFromDomain(senderLower)
		c.logger.Debug("No vendor signature matched, deriving from domain",
			zap.String("sender", sender),
			zap.String("vendor", name))
		return name, fallbackConfidence
	}

	return bestName, bestScore
}

// vendorFromDomain capitalizes the leading label of the sender's domain.
func vendorFromDomain(sender string) string {
	at := strings.LastIndex(sender, "@")
	if at < 0 || at == len(sender)-1 {
		return "Unknown"
	}
	domain := sender[at+1:]
	label := domain
	if dot := strings.Index(domain, "."); dot > 0 {
		label = domain[:dot]
	}
	if label == "" {
		return "Unknown"
	}
	runes := []rune(label)
	runes[0] = unicode.ToUpper(runes[0])
	return string(runes)
}
