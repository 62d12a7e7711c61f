// Package classify assigns a category to a raw meeting: deterministic
// keyword rules first, a single model call only when the rules are
// inconclusive.
package classify

import (
	"context"
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/call-pipeline/internal/model"
	"github.com/sells-group/call-pipeline/pkg/anthropic"
)

// Tier identifies which stage produced a classification.
type Tier string

const (
	TierRules Tier = "rules"
	TierLLM   Tier = "llm"
)

// Result is the outcome of classifying one meeting.
type Result struct {
	Category model.Category       `json:"category"`
	Tier     Tier                 `json:"tier"`
	Reason   string               `json:"reason,omitempty"`
	Scores   Scores               `json:"scores"`
	Usage    anthropic.TokenUsage `json:"-"`
}

// Limiter blocks until the next model call is allowed. *rate.Limiter
// satisfies it.
type Limiter interface {
	Wait(ctx context.Context) error
}

// Classifier implements the two-tier classification.
type Classifier struct {
	cfg     Config
	client  anthropic.Client
	limiter Limiter
}

// New creates a Classifier. client may be nil for rules-only use; limiter
// may be nil to call the model without throttling.
func New(cfg Config, client anthropic.Client, limiter Limiter) *Classifier {
	return &Classifier{cfg: cfg.withDefaults(), client: client, limiter: limiter}
}

const llmSystemPrompt = `You classify business meetings of a security audit firm. Answer with exactly one lower-case word and nothing else:
sales - a conversation with a prospective or current client about buying services
partner - a conversation with a partner, referrer, or reseller
internal - a meeting among the firm's own staff
other - anything else`

// Classify returns the meeting's category. A *RuleError or *LLMError is
// returned alongside a Result whose category is "other".
func (c *Classifier) Classify(ctx context.Context, meeting model.RawMeeting) (Result, error) {
	res, ok, err := c.Rules(meeting)
	if err != nil {
		return res, err
	}
	if ok {
		return res, nil
	}

	meta, _ := meeting.DecodeMetadata()
	return c.classifyLLM(ctx, meeting, meta)
}

func (c *Classifier) classifyLLM(ctx context.Context, meeting model.RawMeeting, meta model.MeetingMetadata) (Result, error) {
	res := Result{Category: model.CategoryOther, Tier: TierLLM}
	if c.client == nil {
		return res, &LLMError{ExternalID: meeting.ExternalID, Err: eris.New("no model client configured")}
	}
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return res, &LLMError{ExternalID: meeting.ExternalID, Err: eris.Wrap(err, "classify: wait for rate limiter")}
		}
	}

	text, usage, err := anthropic.Complete(ctx, c.client, c.cfg.Model, llmSystemPrompt, c.llmPrompt(meeting, meta), c.cfg.MaxTokens)
	res.Usage = usage
	if err != nil {
		return res, &LLMError{ExternalID: meeting.ExternalID, Err: err}
	}

	token := cleanToken(text)
	cat, valid := model.ParseCategory(token)
	if !valid {
		zap.L().Debug("classify: model answered outside category set",
			zap.String("external_id", meeting.ExternalID),
			zap.String("answer", text),
		)
		cat = model.CategoryOther
	}
	res.Category = cat
	res.Reason = fmt.Sprintf("model answered %q", token)
	return res, nil
}

func (c *Classifier) llmPrompt(meeting model.RawMeeting, meta model.MeetingMetadata) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Title: %s\n", meeting.Title)
	if overview := strings.TrimSpace(meta.Summary.Overview); overview != "" {
		fmt.Fprintf(&b, "Overview: %s\n", overview)
	}
	if excerpt := firstWords(meta.Transcript, c.cfg.TranscriptWords); excerpt != "" {
		fmt.Fprintf(&b, "\nTranscript excerpt:\n%s\n", excerpt)
	}
	return b.String()
}

// firstWords returns the first n whitespace-delimited words of s.
func firstWords(s string, n int) string {
	words := strings.Fields(s)
	if len(words) > n {
		words = words[:n]
	}
	return strings.Join(words, " ")
}

// cleanToken lower-cases s and keeps only letters and underscores.
func cleanToken(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(s) {
		if (r >= 'a' && r <= 'z') || r == '_' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
