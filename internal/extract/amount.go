package extract

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/subwatch/invoice-scanner/internal/core"
)

// currencySymbols maps literal symbols to ISO codes. Unmapped symbols default
// to the whitelist's first code.
var currencySymbols = map[string]string{
	"$": "USD",
	"€": "EUR",
	"£": "GBP",
	"¥": "JPY",
	"₹": "INR",
}

// currencyCodes is the accepted three-letter code whitelist. The first entry
// is the default when a match carries no currency signal at all.
var currencyCodes = []string{"USD", "EUR", "GBP", "CAD", "AUD", "JPY", "CHF", "SEK", "INR", "BRL"}

const numberPattern = `([0-9][0-9,]*(?:\.[0-9]{1,2})?)`

// The four amount pattern families, in priority order. Matching is
// short-circuiting across families: the first valid match of the highest
// family wins, never a merged score.
var (
	symbolAmountRe  = regexp.MustCompile(`([$€£¥₹])\s*` + numberPattern)
	amountCodeRe    = regexp.MustCompile(`\b` + numberPattern + `\s*([A-Za-z]{3})\b`)
	codeAmountRe    = regexp.MustCompile(`\b([A-Za-z]{3})\s*` + numberPattern + `\b`)
	keywordAmountRe = regexp.MustCompile(`(?i)\b(?:total|amount due|amount|charged|charge|payment|paid|billed)\b[^0-9$€£¥₹\n]{0,20}([$€£¥₹]?)\s*` + numberPattern)
)

// AmountExtractor isolates a monetary amount and resolves its currency.
type AmountExtractor struct {
	maxAmount float64
}

// NewAmountExtractor creates an amount extractor with the given sanity
// ceiling; values above it are treated as mis-parsed tokens, not money.
func NewAmountExtractor(maxAmount float64) *AmountExtractor {
	return &AmountExtractor{maxAmount: maxAmount}
}

// Extract returns the first plausible amount found across the pattern
// families. No amount means the whole message is rejected upstream.
func (e *AmountExtractor) Extract(text string) (core.Amount, bool) {
	// Family 1: symbol-prefixed amount.
	for _, m := range symbolAmountRe.FindAllStringSubmatch(text, -1) {
		if value, ok := e.parseValue(m[2]); ok {
			return core.Amount{Value: value, Currency: symbolToCode(m[1])}, true
		}
	}

	// Family 2: amount followed by a three-letter code.
	for _, m := range amountCodeRe.FindAllStringSubmatch(text, -1) {
		code, known := NormalizeCurrency(m[2])
		if !known {
			continue
		}
		if value, ok := e.parseValue(m[1]); ok {
			return core.Amount{Value: value, Currency: code}, true
		}
	}

	// Family 3: code followed by an amount.
	for _, m := range codeAmountRe.FindAllStringSubmatch(text, -1) {
		code, known := NormalizeCurrency(m[1])
		if !known {
			continue
		}
		if value, ok := e.parseValue(m[2]); ok {
			return core.Amount{Value: value, Currency: code}, true
		}
	}

	// Family 4: keyword-anchored amount, defaulting the currency.
	for _, m := range keywordAmountRe.FindAllStringSubmatch(text, -1) {
		if value, ok := e.parseValue(m[2]); ok {
			currency := DefaultCurrency()
			if m[1] != "" {
				currency = symbolToCode(m[1])
			}
			return core.Amount{Value: value, Currency: currency}, true
		}
	}

	return core.Amount{}, false
}

// Plausible reports whether a value passes the positivity and ceiling checks.
// The assistant's suggestions go through the same gate as pattern matches.
func (e *AmountExtractor) Plausible(value float64) bool {
	return value > 0 && value <= e.maxAmount
}

func (e *AmountExtractor) parseValue(raw string) (float64, bool) {
	value, err := strconv.ParseFloat(strings.ReplaceAll(raw, ",", ""), 64)
	if err != nil {
		return 0, false
	}
	if !e.Plausible(value) {
		return 0, false
	}
	return value, true
}

// NormalizeCurrency upper-cases a literal code and validates it against the
// whitelist.
func NormalizeCurrency(code string) (string, bool) {
	upper := strings.ToUpper(code)
	for _, known := range currencyCodes {
		if upper == known {
			return upper, true
		}
	}
	return "", false
}

// DefaultCurrency is the code assumed when a match has no currency signal.
func DefaultCurrency() string {
	return currencyCodes[0]
}

func symbolToCode(symbol string) string {
	if code, ok := currencySymbols[symbol]; ok {
		return code
	}
	return DefaultCurrency()
}
