// Package intel extracts structured indicators (bank accounts, UPI IDs,
// phishing links, phone numbers, suspicious keywords) from raw message text.
package intel

import (
	"regexp"
	"sort"
	"strings"

	"golang.org/x/text/cases"
)

// Pre-compiled patterns - compiled once at startup, not per message.
var (
	reBankAccount = regexp.MustCompile(`\b\d{9,18}\b`)
	reUPIID       = regexp.MustCompile(`[a-zA-Z0-9._-]+@[a-zA-Z0-9._-]+`)
	rePhishing    = regexp.MustCompile(`https?://\S+`)
	// Optional +91/0 prefix, then a 10-digit number starting 6-9.
	rePhone = regexp.MustCompile(`(?:\+91|0)?[6-9]\d{9}`)
)

// baseKeywords is the suspicious-keyword vocabulary shared by all personas.
var baseKeywords = []string{
	"bank", "verify", "otp", "block", "urgent", "kyc",
	"money", "account", "prize", "pension", "payment", "lucky",
}

// Intel holds one turn's extracted indicators. Each category has unique
// members and is always a non-nil slice for stable JSON output.
type Intel struct {
	BankAccounts       []string `json:"bankAccounts"`
	UPIIDs             []string `json:"upiIds"`
	PhishingLinks      []string `json:"phishingLinks"`
	PhoneNumbers       []string `json:"phoneNumbers"`
	SuspiciousKeywords []string `json:"suspiciousKeywords"`
}

// Empty returns an Intel with all categories initialized to empty slices.
func Empty() Intel {
	return Intel{
		BankAccounts:       []string{},
		UPIIDs:             []string{},
		PhishingLinks:      []string{},
		PhoneNumbers:       []string{},
		SuspiciousKeywords: []string{},
	}
}

// IsEmpty reports whether no category has any member.
func (in Intel) IsEmpty() bool {
	return len(in.BankAccounts) == 0 && len(in.UPIIDs) == 0 &&
		len(in.PhishingLinks) == 0 && len(in.PhoneNumbers) == 0 &&
		len(in.SuspiciousKeywords) == 0
}

// HasCritical reports whether any of the critical categories (bank account,
// payment identifier, phishing link) has a member.
func (in Intel) HasCritical() bool {
	return len(in.BankAccounts) > 0 || len(in.UPIIDs) > 0 || len(in.PhishingLinks) > 0
}

// Total returns the member count across all categories.
func (in Intel) Total() int {
	return len(in.BankAccounts) + len(in.UPIIDs) + len(in.PhishingLinks) +
		len(in.PhoneNumbers) + len(in.SuspiciousKeywords)
}

// Extractor derives Intel from raw text. The keyword vocabulary can be
// extended per persona; everything else is fixed.
type Extractor struct {
	keywords *regexp.Regexp
}

// New creates an Extractor with the base vocabulary plus any persona
// additions. Extra keywords are case-folded and deduplicated.
func New(extraKeywords ...string) *Extractor {
	vocab := make([]string, 0, len(baseKeywords)+len(extraKeywords))
	seen := make(map[string]bool, len(baseKeywords)+len(extraKeywords))
	for _, kw := range append(append([]string{}, baseKeywords...), extraKeywords...) {
		kw = cases.Fold().String(strings.TrimSpace(kw))
		if kw == "" || seen[kw] {
			continue
		}
		seen[kw] = true
		vocab = append(vocab, regexp.QuoteMeta(kw))
	}
	return &Extractor{
		keywords: regexp.MustCompile(`(?i)(` + strings.Join(vocab, "|") + `)`),
	}
}

var defaultExtractor = New()

// Extract runs the default extractor (base vocabulary only).
func Extract(text string) Intel {
	return defaultExtractor.Extract(text)
}

// Extract derives indicators from the current message text only, never from
// history. Pure and deterministic: extracting the same text twice yields
// identical results.
func (e *Extractor) Extract(text string) Intel {
	out := Empty()
	if text == "" {
		return out
	}

	out.BankAccounts = uniqueSorted(reBankAccount.FindAllString(text, -1))
	out.UPIIDs = uniqueSorted(reUPIID.FindAllString(text, -1))
	out.PhishingLinks = uniqueSorted(rePhishing.FindAllString(text, -1))
	out.PhoneNumbers = uniqueSorted(rePhone.FindAllString(text, -1))

	// Keywords are case-folded before dedup so "OTP" and "otp" count once.
	raw := e.keywords.FindAllString(text, -1)
	for i, kw := range raw {
		raw[i] = cases.Fold().String(kw)
	}
	out.SuspiciousKeywords = uniqueSorted(raw)

	return out
}

// uniqueSorted deduplicates matches. Sorted output keeps JSON payloads and
// tests deterministic; insertion order carries no meaning.
func uniqueSorted(matches []string) []string {
	if len(matches) == 0 {
		return []string{}
	}
	seen := make(map[string]bool, len(matches))
	out := make([]string, 0, len(matches))
	for _, m := range matches {
		if !seen[m] {
			seen[m] = true
			out = append(out, m)
		}
	}
	sort.Strings(out)
	return out
}
