package classify

import "strings"

// Config holds everything the classifier needs. Nothing is read from
// globals, so tests can swap in small vocabularies and a fake domain.
type Config struct {
	// InternalDomain is the email domain of the firm's own staff.
	InternalDomain string

	SalesKeywords    []string
	PartnerKeywords  []string
	InternalKeywords []string

	// Substrings of the provider's meeting-type field.
	SalesMeetingTypes    []string
	InternalMeetingTypes []string

	Model           string
	MaxTokens       int64
	TranscriptWords int
}

var defaultSalesKeywords = []string{
	"audit",
	"security review",
	"smart contract",
	"pricing",
	"quote",
	"proposal",
	"budget",
	"scope",
	"timeline",
	"engagement",
	"retainer",
	"incident response",
	"penetration test",
	"statement of work",
	"estimate",
	"deadline",
	"launch",
	"mainnet",
}

var defaultPartnerKeywords = []string{
	"partnership",
	"referral",
	"co-marketing",
	"revenue share",
	"rev share",
	"affiliate",
	"reseller",
	"joint venture",
	"ecosystem",
	"integration partner",
}

var defaultInternalKeywords = []string{
	"standup",
	"stand-up",
	"sprint",
	"retrospective",
	"all hands",
	"all-hands",
	"one-on-one",
	"1:1",
	"hiring",
	"onboarding",
	"roadmap",
	"offsite",
}

var defaultSalesMeetingTypes = []string{"sales", "discovery", "demo", "prospect", "pitch"}

var defaultInternalMeetingTypes = []string{"internal", "standup", "stand-up", "team", "1:1", "one-on-one"}

// DefaultConfig returns the built-in vocabularies and model settings.
func DefaultConfig() Config {
	return Config{
		InternalDomain:       "example.com",
		SalesKeywords:        defaultSalesKeywords,
		PartnerKeywords:      defaultPartnerKeywords,
		InternalKeywords:     defaultInternalKeywords,
		SalesMeetingTypes:    defaultSalesMeetingTypes,
		InternalMeetingTypes: defaultInternalMeetingTypes,
		Model:                "claude-haiku-4-5-20251001",
		MaxTokens:            16,
		TranscriptWords:      500,
	}
}

// withDefaults fills empty fields from DefaultConfig and normalizes the
// vocabularies to lower-case, de-duplicated lists.
func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.InternalDomain == "" {
		c.InternalDomain = d.InternalDomain
	}
	c.InternalDomain = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(c.InternalDomain), "@"))
	if len(c.SalesKeywords) == 0 {
		c.SalesKeywords = d.SalesKeywords
	}
	if len(c.PartnerKeywords) == 0 {
		c.PartnerKeywords = d.PartnerKeywords
	}
	if len(c.InternalKeywords) == 0 {
		c.InternalKeywords = d.InternalKeywords
	}
	if len(c.SalesMeetingTypes) == 0 {
		c.SalesMeetingTypes = d.SalesMeetingTypes
	}
	if len(c.InternalMeetingTypes) == 0 {
		c.InternalMeetingTypes = d.InternalMeetingTypes
	}
	if c.Model == "" {
		c.Model = d.Model
	}
	if c.MaxTokens <= 0 {
		c.MaxTokens = d.MaxTokens
	}
	if c.TranscriptWords <= 0 {
		c.TranscriptWords = d.TranscriptWords
	}

	c.SalesKeywords = normalizeVocab(c.SalesKeywords)
	c.PartnerKeywords = normalizeVocab(c.PartnerKeywords)
	c.InternalKeywords = normalizeVocab(c.InternalKeywords)
	c.SalesMeetingTypes = normalizeVocab(c.SalesMeetingTypes)
	c.InternalMeetingTypes = normalizeVocab(c.InternalMeetingTypes)
	return c
}

func normalizeVocab(words []string) []string {
	seen := make(map[string]bool, len(words))
	out := make([]string, 0, len(words))
	for _, w := range words {
		w = strings.ToLower(strings.TrimSpace(w))
		if w == "" || seen[w] {
			continue
		}
		seen[w] = true
		out = append(out, w)
	}
	return out
}
