package extract

import (
	"regexp"
	"strings"
)

// identifierRe anchors a short alphanumeric-and-hyphen token to an invoice
// keyword. Tokens are bounded to 3-24 characters.
var identifierRe = regexp.MustCompile(`(?i)\b(?:invoice|receipt|order|transaction|reference|confirmation)\b[\s#:.]*(?:number|no\.?|id)?[\s#:.]*([A-Za-z0-9][A-Za-z0-9-]{2,23})\b`)

// IdentifierExtractor finds an invoice/receipt identifier near its anchor
// keyword.
type IdentifierExtractor struct{}

// NewIdentifierExtractor creates a new identifier extractor
func NewIdentifierExtractor() *IdentifierExtractor {
	return &IdentifierExtractor{}
}

// Extract returns the first anchored token that contains at least one digit,
// normalized to uppercase. Plain words after an anchor ("invoice date") are
// not identifiers.
func (e *IdentifierExtractor) Extract(text string) (string, bool) {
	for _, m := range identifierRe.FindAllStringSubmatch(text, -1) {
		token := m[1]
		if !strings.ContainsAny(token, "0123456789") {
			continue
		}
		return strings.ToUpper(token), true
	}
	return "", false
}
