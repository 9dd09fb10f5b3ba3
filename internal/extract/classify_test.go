package extract

import (
	"testing"

	"github.com/subwatch/invoice-scanner/internal/core"
	"github.com/subwatch/invoice-scanner/internal/vendors"
	"go.uber.org/zap"
)

func testClassifier(sigs []core.VendorSignature) *Classifier {
	return NewClassifier(vendors.NewRegistry(sigs, zap.NewNop()), zap.NewNop())
}

func approxEqual(a, b float64) bool {
	diff := a - b
	return diff < 1e-9 && diff > -1e-9
}

func TestClassifyScoring(t *testing.T) {
	c := testClassifier([]core.VendorSignature{
		{
			Name:            "Stripe",
			SenderContains:  []string{"receipts@stripe.com"},
			SubjectPatterns: []string{"your receipt from"},
			DomainHint:      "stripe.com",
			Frequency:       core.BillingPerTransaction,
		},
		{
			Name:            "Notion",
			SenderContains:  []string{"team@makenotion.com"},
			SubjectPatterns: []string{"your notion invoice"},
			DomainHint:      "notion.so",
			Frequency:       core.BillingMonthly,
		},
	})

	tests := []struct {
		name       string
		sender     string
		subject    string
		body       string
		wantVendor string
		wantScore  float64
	}{
		{
			name:       "full match capped at one",
			sender:     "receipts@stripe.com",
			subject:    "Your receipt from Stripe",
			body:       "Stripe charged your card",
			wantVendor: "Stripe",
			wantScore:  1.0,
		},
		{
			name:       "sender substring only",
			sender:     "receipts@stripe.com",
			subject:    "Payment processed",
			body:       "thanks for your purchase",
			wantVendor: "Stripe",
			wantScore:  0.8, // sender substring + domain hint both hit
		},
		{
			name:       "domain hint only",
			sender:     "billing@stripe.com",
			subject:    "Payment processed",
			body:       "thanks for your purchase",
			wantVendor: "Stripe",
			wantScore:  0.3,
		},
		{
			name:       "unknown sender falls back to domain label",
			sender:     "billing@acmetools.io",
			subject:    "Monthly invoice",
			body:       "your plan was charged",
			wantVendor: "Acmetools",
			wantScore:  0.4,
		},
		{
			name:       "name mention alone stays below threshold",
			sender:     "friend@example.com",
			subject:    "lunch",
			body:       "I moved our notes to Notion yesterday",
			wantVendor: "Example",
			wantScore:  0.4,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			vendor, score := c.Classify(tt.sender, tt.subject, tt.body)
			if vendor != tt.wantVendor {
				t.Errorf("Classify() vendor = %q, want %q", vendor, tt.wantVendor)
			}
			if !approxEqual(score, tt.wantScore) {
				t.Errorf("Classify() score = %v, want %v", score, tt.wantScore)
			}
		})
	}
}

func TestClassifyTieBreaksOnRegistrationOrder(t *testing.T) {
	c := testClassifier([]core.VendorSignature{
		{Name: "First", DomainHint: "shared.example"},
		{Name: "Second", DomainHint: "shared.example"},
	})

	vendor, score := c.Classify("billing@shared.example", "invoice", "")
	if vendor != "First" {
		t.Errorf("tie should go to the first registered vendor, got %q", vendor)
	}
	if !approxEqual(score, 0.3) {
		t.Errorf("score = %v, want 0.3", score)
	}
}

func TestClassifyMultipleSubjectPatterns(t *testing.T) {
	c := testClassifier([]core.VendorSignature{
		{
			Name:            "Acme",
			SubjectPatterns: []string{"acme invoice", "billing period"},
			DomainHint:      "acme.com",
		},
	})

	// Two subject patterns at 0.2 each clear the threshold without any
	// sender evidence.
	vendor, score := c.Classify("noreply@mailer.example", "Acme invoice for billing period May", "")
	if vendor != "Acme" {
		t.Errorf("vendor = %q, want Acme", vendor)
	}
	if score < 0.39 || score > 0.61 {
		t.Errorf("score = %v, want around 0.4-0.5", score)
	}
}

func TestVendorFromDomain(t *testing.T) {
	tests := []struct {
		sender string
		want   string
	}{
		{"billing@acme.com", "Acme"},
		{"noreply@sub.example.org", "Sub"},
		{"not-an-address", "Unknown"},
		{"trailing@", "Unknown"},
	}

	for _, tt := range tests {
		if got := vendorFromDomain(tt.sender); got != tt.want {
			t.Errorf("vendorFromDomain(%q) = %q, want %q", tt.sender, got, tt.want)
		}
	}
}
