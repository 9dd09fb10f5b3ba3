package extract

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

const monthNames = `January|February|March|April|May|June|July|August|September|October|November|December`

// Invoice date pattern families, in priority order: ISO numeric, long month
// name (either order), numeric with a 4-digit year.
var (
	isoDateRe      = regexp.MustCompile(`\b(\d{4})-(\d{1,2})-(\d{1,2})\b`)
	monthDayYearRe = regexp.MustCompile(`(?i)\b(` + monthNames + `)\s+(\d{1,2})(?:st|nd|rd|th)?,?\s+(\d{4})\b`)
	dayMonthYearRe = regexp.MustCompile(`(?i)\b(\d{1,2})(?:st|nd|rd|th)?\s+(` + monthNames + `),?\s+(\d{4})\b`)
	numericDateRe  = regexp.MustCompile(`\b(\d{1,2})[/-](\d{1,2})[/-](\d{4})\b`)
)

// renewalAnchors are the phrases a renewal date is expected to follow. They
// are checked in this order; only the first anchor present is used.
var renewalAnchors = []string{
	"next billing",
	"renews on",
	"renewal date",
	"subscription renews",
	"subscription ends",
	"valid until",
	"valid through",
	"expires",
}

// renewalWindow is how many characters after an anchor are searched for a date.
const renewalWindow = 50

var monthIndex = func() map[string]time.Month {
	m := make(map[string]time.Month)
	for i, name := range strings.Split(monthNames, "|") {
		m[strings.ToLower(name)] = time.Month(i + 1)
	}
	return m
}()

// DateExtractor finds invoice and renewal dates in normalized text. Every
// candidate is range-validated against a plausible-year window around "now"
// and rebuilt through the calendar to reject rollovers like February 30.
type DateExtractor struct {
	yearWindow int
	now        func() time.Time
}

// NewDateExtractor creates a date extractor. now is injectable for tests; nil
// means the wall clock.
func NewDateExtractor(yearWindow int, now func() time.Time) *DateExtractor {
	if now == nil {
		now = time.Now
	}
	return &DateExtractor{yearWindow: yearWindow, now: now}
}

// ExtractInvoiceDate returns the first structurally valid date. A false
// return means the caller should fall back to the message timestamp.
func (e *DateExtractor) ExtractInvoiceDate(text string) (time.Time, bool) {
	return e.firstValidDate(text)
}

// ExtractRenewalDate looks for a date in the short window following the first
// renewal anchor phrase. Absence is a normal outcome, never an error.
func (e *DateExtractor) ExtractRenewalDate(text string) (time.Time, bool) {
	// Lowercasing can change byte offsets for some Unicode runes, so the
	// window is located and sliced in the lowered copy only. The date
	// patterns are case-insensitive, so matching there is equivalent.
	lower := strings.ToLower(text)
	for _, anchor := range renewalAnchors {
		idx := strings.Index(lower, anchor)
		if idx < 0 {
			continue
		}
		start := idx + len(anchor)
		end := start + renewalWindow
		if end > len(lower) {
			end = len(lower)
		}
		return e.firstValidDate(lower[start:end])
	}
	return time.Time{}, false
}

func (e *DateExtractor) firstValidDate(text string) (time.Time, bool) {
	for _, m := range isoDateRe.FindAllStringSubmatch(text, -1) {
		if d, ok := e.buildDate(atoi(m[1]), time.Month(atoi(m[2])), atoi(m[3])); ok {
			return d, true
		}
	}

	for _, m := range monthDayYearRe.FindAllStringSubmatch(text, -1) {
		if d, ok := e.buildDate(atoi(m[3]), monthIndex[strings.ToLower(m[1])], atoi(m[2])); ok {
			return d, true
		}
	}

	for _, m := range dayMonthYearRe.FindAllStringSubmatch(text, -1) {
		if d, ok := e.buildDate(atoi(m[3]), monthIndex[strings.ToLower(m[2])], atoi(m[1])); ok {
			return d, true
		}
	}

	for _, m := range numericDateRe.FindAllStringSubmatch(text, -1) {
		month, day := atoi(m[1]), atoi(m[2])
		// Month-first by default; a leading value over 12 can only be a day.
		if month > 12 && day <= 12 {
			month, day = day, month
		}
		if d, ok := e.buildDate(atoi(m[3]), time.Month(month), day); ok {
			return d, true
		}
	}

	return time.Time{}, false
}

// buildDate validates ranges and reconstructs the date, rejecting silently
// when the calendar rolls the day over.
func (e *DateExtractor) buildDate(year int, month time.Month, day int) (time.Time, bool) {
	nowYear := e.now().Year()
	if year < nowYear-e.yearWindow || year > nowYear+e.yearWindow {
		return time.Time{}, false
	}
	if month < time.January || month > time.December || day < 1 || day > 31 {
		return time.Time{}, false
	}

	d := time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
	if d.Year() != year || d.Month() != month || d.Day() != day {
		return time.Time{}, false
	}
	return d, true
}

func atoi(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}
