// Package extract turns a sales-call transcript into a normalized
// ExtractionResult using a language model.
package extract

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/call-pipeline/internal/model"
	"github.com/sells-group/call-pipeline/pkg/anthropic"
)

var (
	// ErrTranscriptTooShort means the transcript is below the minimum length
	// and no model call was made. It is a skip, not a failure.
	ErrTranscriptTooShort = eris.New("extract: transcript too short")

	// ErrParse means the model response held no parseable JSON object.
	ErrParse = eris.New("extract: model output is not a JSON object")
)

// TruncationMarker is appended when the request text exceeds MaxInputChars.
const TruncationMarker = "\n\n[... transcript truncated ...]"

// Config controls the extraction call.
type Config struct {
	Model              string
	MaxTokens          int64
	MinTranscriptChars int
	MaxInputChars      int
}

// DefaultConfig returns the standard extraction settings.
func DefaultConfig() Config {
	return Config{
		Model:              "claude-sonnet-4-5-20250929",
		MaxTokens:          4096,
		MinTranscriptChars: 50,
		MaxInputChars:      100000,
	}
}

// Input is the text of one sales meeting.
type Input struct {
	ExternalID string
	Title      string
	Summary    string
	Transcript string
}

// Extractor calls the model and normalizes its answer.
type Extractor struct {
	cfg    Config
	client anthropic.Client
}

// New creates an Extractor. Zero-valued config fields take defaults.
func New(cfg Config, client anthropic.Client) *Extractor {
	d := DefaultConfig()
	if cfg.Model == "" {
		cfg.Model = d.Model
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = d.MaxTokens
	}
	if cfg.MinTranscriptChars <= 0 {
		cfg.MinTranscriptChars = d.MinTranscriptChars
	}
	if cfg.MaxInputChars <= 0 {
		cfg.MaxInputChars = d.MaxInputChars
	}
	return &Extractor{cfg: cfg, client: client}
}

// Adequate reports whether the transcript is long enough to extract from.
func (e *Extractor) Adequate(transcript string) bool {
	return utf8.RuneCountInString(strings.TrimSpace(transcript)) >= e.cfg.MinTranscriptChars
}

// Extract asks the model for the structured representation of the call.
// It returns ErrTranscriptTooShort without calling the model when the
// transcript is too short, and an error wrapping ErrParse when the answer
// is not JSON. Token usage is returned even when parsing fails.
func (e *Extractor) Extract(ctx context.Context, in Input) (*model.ExtractionResult, anthropic.TokenUsage, error) {
	if !e.Adequate(in.Transcript) {
		return nil, anthropic.TokenUsage{}, ErrTranscriptTooShort
	}

	prompt := Truncate(buildPrompt(in), e.cfg.MaxInputChars)
	text, usage, err := anthropic.Complete(ctx, e.client, e.cfg.Model, systemPrompt, prompt, e.cfg.MaxTokens)
	if err != nil {
		return nil, usage, eris.Wrapf(err, "extract: model call for %s", in.ExternalID)
	}

	raw, err := decodeObject(text)
	if err != nil {
		zap.L().Debug("extract: unparseable model output",
			zap.String("external_id", in.ExternalID),
			zap.Int("length", len(text)),
		)
		return nil, usage, eris.Wrapf(ErrParse, "extract: %s: %v", in.ExternalID, err)
	}
	return Normalize(raw), usage, nil
}

func buildPrompt(in Input) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Meeting title: %s\n", strings.TrimSpace(in.Title))
	if s := strings.TrimSpace(in.Summary); s != "" {
		fmt.Fprintf(&b, "Meeting summary:\n%s\n", s)
	}
	b.WriteString("\nTranscript:\n")
	b.WriteString(in.Transcript)
	return b.String()
}

// Truncate cuts s to at most limit runes, dropping from the end and
// appending TruncationMarker. The result is the same for the same input.
func Truncate(s string, limit int) string {
	if limit <= 0 || utf8.RuneCountInString(s) <= limit {
		return s
	}
	n := 0
	for i := range s {
		if n == limit {
			return s[:i] + TruncationMarker
		}
		n++
	}
	return s
}

const systemPrompt = `You analyze sales calls of a blockchain security firm that sells smart contract audits, security retainers, and incident response.

Read the meeting below and return ONLY a JSON object, with no prose and no code fences, matching this schema:

{
  "call_type": "discovery" | "technical_deep_dive" | "pricing_negotiation" | "follow_up" | "closing",
  "offering_pitched": "audit" | "retainer" | "incident_response" | "none",
  "company_name": string,            // the prospect organization, or "Unknown"
  "prospects": [{"name": string, "role": string}],
  "team_members": [{"name": string, "email": string}],
  "technologies": [string],          // languages, chains, frameworks mentioned
  "outcome": "positive" | "neutral" | "negative" | "closed_won" | "closed_lost",
  "deal_size": number | null,        // USD, only if stated
  "quality_score": integer,          // 1-10, how well the call was run
  "quality_rationale": string,
  "objections": [{"type": string, "quote": string, "context": string}],
  "prospect_questions": [string],
  "key_quotes": [{"speaker": string, "text": string, "context": string}],
  "follow_ups": [{"action": string, "assignee": string}],
  "counter_responses": [{"objection_type": string, "response": string, "effectiveness": "effective" | "partially_effective" | "ineffective" | "unknown"}]
}

Objection types are one of: pricing, budget, timeline, competitor, scope, trust, no_need, authority, internal_capability, process.
Use empty arrays when nothing applies. Quote speakers verbatim.`
