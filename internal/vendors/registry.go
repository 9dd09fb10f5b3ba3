package vendors

import (
	"strings"

	"github.com/subwatch/invoice-scanner/internal/core"
	"go.uber.org/zap"
)

// Registry holds the known-vendor signatures. It is built once at startup and
// read-only afterwards; registration order is significant because the
// classifier breaks score ties in favor of the first registered vendor.
type Registry struct {
	signatures []core.VendorSignature
	logger     *zap.Logger
}

// NewRegistry creates a registry from the given signatures, normalizing the
// matchable fields to lowercase.
func NewRegistry(signatures []core.VendorSignature, logger *zap.Logger) *Registry {
	normalized := make([]core.VendorSignature, 0, len(signatures))
	for _, sig := range signatures {
		n := core.VendorSignature{
			Name:       sig.Name,
			DomainHint: strings.ToLower(strings.TrimSpace(sig.DomainHint)),
			Frequency:  sig.Frequency,
		}
		for _, s := range sig.SenderContains {
			n.SenderContains = append(n.SenderContains, strings.ToLower(strings.TrimSpace(s)))
		}
		for _, p := range sig.SubjectPatterns {
			n.SubjectPatterns = append(n.SubjectPatterns, strings.ToLower(strings.TrimSpace(p)))
		}
		normalized = append(normalized, n)
	}

	if logger != nil {
		logger.Info("Initialized vendor registry", zap.Int("vendors", len(normalized)))
	}

	return &Registry{
		signatures: normalized,
		logger:     logger,
	}
}

// Signatures returns the registered signatures in registration order.
func (r *Registry) Signatures() []core.VendorSignature {
	return r.signatures
}

// Default returns the built-in signature set for common subscription vendors.
func Default() []core.VendorSignature {
	return []core.VendorSignature{
		{
			Name:            "Stripe",
			SenderContains:  []string{"receipts@stripe.com", "support@stripe.com", "invoice+statements"},
			SubjectPatterns: []string{"your receipt from", "your stripe invoice", "payment receipt"},
			DomainHint:      "stripe.com",
			Frequency:       core.BillingPerTransaction,
		},
		{
			Name:            "Netflix",
			SenderContains:  []string{"info@account.netflix.com", "info@mailer.netflix.com"},
			SubjectPatterns: []string{"your netflix bill", "payment confirmation"},
			DomainHint:      "netflix.com",
			Frequency:       core.BillingMonthly,
		},
		{
			Name:            "Spotify",
			SenderContains:  []string{"no-reply@spotify.com"},
			SubjectPatterns: []string{"your spotify premium receipt", "your receipt from spotify"},
			DomainHint:      "spotify.com",
			Frequency:       core.BillingMonthly,
		},
		{
			Name:            "Amazon Web Services",
			SenderContains:  []string{"aws-receivables", "no-reply-aws@amazon.com"},
			SubjectPatterns: []string{"amazon web services billing statement", "your aws invoice"},
			DomainHint:      "aws.amazon.com",
			Frequency:       core.BillingVariable,
		},
		{
			Name:            "Google Workspace",
			SenderContains:  []string{"payments-noreply@google.com", "workspace-noreply@google.com"},
			SubjectPatterns: []string{"your google workspace invoice", "your invoice is available"},
			DomainHint:      "google.com",
			Frequency:       core.BillingMonthly,
		},
		{
			Name:            "Adobe",
			SenderContains:  []string{"mail@mail.adobe.com", "message@adobe.com"},
			SubjectPatterns: []string{"your adobe invoice", "adobe creative cloud"},
			DomainHint:      "adobe.com",
			Frequency:       core.BillingMonthly,
		},
		{
			Name:            "Slack",
			SenderContains:  []string{"feedback@slack.com", "billing@slack.com"},
			SubjectPatterns: []string{"your slack receipt", "slack invoice"},
			DomainHint:      "slack.com",
			Frequency:       core.BillingMonthly,
		},
		{
			Name:            "Zoom",
			SenderContains:  []string{"no-reply@zoom.us", "billing@zoom.us"},
			SubjectPatterns: []string{"your zoom invoice", "payment processed"},
			DomainHint:      "zoom.us",
			Frequency:       core.BillingMonthly,
		},
		{
			Name:            "GitHub",
			SenderContains:  []string{"support@github.com", "billing@github.com"},
			SubjectPatterns: []string{"your github receipt", "payment receipt for"},
			DomainHint:      "github.com",
			Frequency:       core.BillingMonthly,
		},
		{
			Name:            "Dropbox",
			SenderContains:  []string{"no-reply@dropbox.com"},
			SubjectPatterns: []string{"your dropbox receipt", "your dropbox invoice"},
			DomainHint:      "dropbox.com",
			Frequency:       core.BillingAnnual,
		},
		{
			Name:            "Notion",
			SenderContains:  []string{"team@makenotion.com", "billing@makenotion.com"},
			SubjectPatterns: []string{"your notion invoice", "notion receipt"},
			DomainHint:      "notion.so",
			Frequency:       core.BillingMonthly,
		},
		{
			Name:            "Figma",
			SenderContains:  []string{"no-reply@figma.com", "billing@figma.com"},
			SubjectPatterns: []string{"your figma receipt", "figma invoice"},
			DomainHint:      "figma.com",
			Frequency:       core.BillingAnnual,
		},
		{
			Name:            "Atlassian",
			SenderContains:  []string{"no-reply@am.atlassian.com", "billing@atlassian.com"},
			SubjectPatterns: []string{"atlassian invoice", "your atlassian order"},
			DomainHint:      "atlassian.com",
			Frequency:       core.BillingMonthly,
		},
		{
			Name:            "Microsoft",
			SenderContains:  []string{"microsoft-noreply@microsoft.com", "billing@microsoft.com"},
			SubjectPatterns: []string{"your microsoft invoice", "microsoft 365"},
			DomainHint:      "microsoft.com",
			Frequency:       core.BillingMonthly,
		},
		{
			Name:            "DigitalOcean",
			SenderContains:  []string{"billing@digitalocean.com", "no-reply@digitalocean.com"},
			SubjectPatterns: []string{"your digitalocean invoice", "payment receipt"},
			DomainHint:      "digitalocean.com",
			Frequency:       core.BillingMonthly,
		},
		{
			Name:            "Mailchimp",
			SenderContains:  []string{"billing@mailchimp.com"},
			SubjectPatterns: []string{"your mailchimp receipt", "mailchimp billing"},
			DomainHint:      "mailchimp.com",
			Frequency:       core.BillingMonthly,
		},
		{
			Name:            "Twilio",
			SenderContains:  []string{"billing-noreply@twilio.com"},
			SubjectPatterns: []string{"twilio invoice", "your twilio receipt"},
			DomainHint:      "twilio.com",
			Frequency:       core.BillingVariable,
		},
		{
			Name:            "Shopify",
			SenderContains:  []string{"billing@shopify.com", "noreply@shopify.com"},
			SubjectPatterns: []string{"your shopify invoice", "shopify billing"},
			DomainHint:      "shopify.com",
			Frequency:       core.BillingMonthly,
		},
	}
}
