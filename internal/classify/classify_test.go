package classify

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/call-pipeline/internal/model"
	"github.com/sells-group/call-pipeline/pkg/anthropic"
	anthropicmocks "github.com/sells-group/call-pipeline/pkg/anthropic/mocks"
)

func testConfig() Config {
	return Config{
		InternalDomain:   "firm.io",
		SalesKeywords:    []string{"audit", "pricing", "proposal", "scope"},
		PartnerKeywords:  []string{"partnership", "referral", "reseller"},
		InternalKeywords: []string{"standup", "sprint", "hiring"},
	}
}

func meeting(t *testing.T, title string, meta model.MeetingMetadata) model.RawMeeting {
	t.Helper()
	raw, err := json.Marshal(meta)
	require.NoError(t, err)
	return model.RawMeeting{ID: "m-1", ExternalID: "ff-1", Title: title, Metadata: raw}
}

func TestRules_AllInternalParticipants(t *testing.T) {
	c := New(testConfig(), nil, nil)
	m := meeting(t, "Audit pricing proposal", model.MeetingMetadata{
		Participants:   []string{"alice@firm.io", "Bob@FIRM.io"},
		OrganizerEmail: "carol@firm.io",
	})

	res, ok, err := c.Rules(m)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, model.CategoryInternal, res.Category)
}

func TestRules_SalesKeywords(t *testing.T) {
	c := New(testConfig(), nil, nil)
	m := meeting(t, "Acme Protocol", model.MeetingMetadata{
		Participants: []string{"alice@firm.io", "dev@acme.xyz"},
		Summary:      model.MeetingSummary{Overview: "Discussed audit scope and pricing. Audit again."},
	})

	res, ok, err := c.Rules(m)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, model.CategorySales, res.Category)
	assert.Equal(t, Scores{Sales: 3}, res.Scores, "repeated keywords count once")
}

func TestRules_SalesNeedsStrictLead(t *testing.T) {
	c := New(testConfig(), nil, nil)
	m := meeting(t, "Partnership sync", model.MeetingMetadata{
		Participants: []string{"alice@firm.io", "bd@other.xyz"},
		Summary:      model.MeetingSummary{Overview: "audit pricing proposal; partnership, referral, reseller terms"},
	})

	res, ok, err := c.Rules(m)
	require.NoError(t, err)
	require.True(t, ok)
	// sales 3 does not beat partner 3; partner 3 does not beat sales 3;
	// falls through to the weak sales signal.
	assert.Equal(t, Scores{Sales: 3, Partner: 3}, res.Scores)
	assert.Equal(t, model.CategorySales, res.Category)
}

func TestRules_Partner(t *testing.T) {
	c := New(testConfig(), nil, nil)
	m := meeting(t, "Referral partnership", model.MeetingMetadata{
		Participants: []string{"alice@firm.io", "bd@other.xyz"},
	})

	res, ok, err := c.Rules(m)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, model.CategoryPartner, res.Category)
}

func TestRules_InternalKeywords(t *testing.T) {
	c := New(testConfig(), nil, nil)
	m := meeting(t, "Sprint standup", model.MeetingMetadata{
		Participants: []string{"alice@firm.io", "contractor@gmail.com"},
	})

	res, ok, err := c.Rules(m)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, model.CategoryInternal, res.Category)
}

func TestRules_MeetingType(t *testing.T) {
	c := New(testConfig(), nil, nil)

	sales := meeting(t, "Weekly", model.MeetingMetadata{
		Participants: []string{"bd@other.xyz"},
		Summary:      model.MeetingSummary{MeetingType: "  Sales Discovery Call "},
	})
	res, ok, err := c.Rules(sales)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, model.CategorySales, res.Category)

	internal := meeting(t, "Weekly", model.MeetingMetadata{
		Participants: []string{"bd@other.xyz"},
		Summary:      model.MeetingSummary{MeetingType: "Internal Review"},
	})
	res, ok, err = c.Rules(internal)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, model.CategoryInternal, res.Category)
}

func TestRules_LowConfidenceSales(t *testing.T) {
	c := New(testConfig(), nil, nil)
	m := meeting(t, "Quick audit chat", model.MeetingMetadata{
		Participants: []string{"alice@firm.io", "cto@acme.xyz"},
	})

	res, ok, err := c.Rules(m)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, model.CategorySales, res.Category)
	assert.Equal(t, 1, res.Scores.Sales)
}

func TestRules_Inconclusive(t *testing.T) {
	c := New(testConfig(), nil, nil)

	noParticipants := meeting(t, "Quick audit chat", model.MeetingMetadata{})
	_, ok, err := c.Rules(noParticipants)
	require.NoError(t, err)
	assert.False(t, ok, "a single sales keyword needs an external participant")

	noSignal := meeting(t, "Catch up", model.MeetingMetadata{
		Participants: []string{"alice@firm.io", "x@other.xyz"},
	})
	_, ok, err = c.Rules(noSignal)
	require.NoError(t, err)
	assert.False(t, ok)

	emptyCorpus := meeting(t, "  ", model.MeetingMetadata{
		Participants: []string{"alice@firm.io", "x@other.xyz"},
	})
	res, ok, err := c.Rules(emptyCorpus)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, "no title or summary text", res.Reason)
}

func TestRules_Deterministic(t *testing.T) {
	c := New(testConfig(), nil, nil)
	m := meeting(t, "Audit proposal", model.MeetingMetadata{
		Participants: []string{"alice@firm.io", "cto@acme.xyz"},
		Summary:      model.MeetingSummary{Keywords: []string{"pricing", "standup"}},
	})

	first, ok1, err1 := c.Rules(m)
	second, ok2, err2 := c.Rules(m)
	require.NoError(t, err1)
	require.NoError(t, err2)
	assert.Equal(t, ok1, ok2)
	assert.Equal(t, first, second)
}

func TestRules_MalformedMetadata(t *testing.T) {
	c := New(testConfig(), nil, nil)
	m := model.RawMeeting{ExternalID: "bad", Title: "Audit", Metadata: json.RawMessage(`{"participants": 42`)}

	res, ok, err := c.Rules(m)
	require.Error(t, err)
	assert.False(t, ok)
	assert.Equal(t, model.CategoryOther, res.Category)

	var ruleErr *RuleError
	assert.True(t, errors.As(err, &ruleErr))
	assert.Equal(t, "bad", ruleErr.ExternalID)
}

func TestClassify_RulesDecideWithoutModel(t *testing.T) {
	client := anthropicmocks.NewMockClient(t)
	c := New(testConfig(), client, nil)
	m := meeting(t, "Audit pricing proposal", model.MeetingMetadata{
		Participants: []string{"alice@firm.io", "cto@acme.xyz"},
	})

	res, err := c.Classify(context.Background(), m)
	require.NoError(t, err)
	assert.Equal(t, model.CategorySales, res.Category)
	assert.Equal(t, TierRules, res.Tier)
	client.AssertNotCalled(t, "CreateMessage", mock.Anything, mock.Anything)
}

type countingLimiter struct{ calls int }

func (l *countingLimiter) Wait(context.Context) error {
	l.calls++
	return nil
}

func TestClassify_LLMTier(t *testing.T) {
	client := anthropicmocks.NewMockClient(t)
	limiter := &countingLimiter{}
	c := New(testConfig(), client, limiter)

	transcript := strings.Repeat("word ", 800)
	m := meeting(t, "Catch up", model.MeetingMetadata{
		Participants: []string{"alice@firm.io", "x@other.xyz"},
		Summary:      model.MeetingSummary{Overview: "General chat"},
		Transcript:   transcript,
	})

	client.On("CreateMessage", mock.Anything, mock.MatchedBy(func(req anthropic.MessageRequest) bool {
		prompt := req.Messages[0].Content
		return req.Model == "claude-haiku-4-5-20251001" &&
			strings.Contains(prompt, "Title: Catch up") &&
			strings.Contains(prompt, "Overview: General chat") &&
			strings.Count(prompt, "word") == 500
	})).Return(anthropicmocks.TextResponse(" Sales.\n"), nil).Once()

	res, err := c.Classify(context.Background(), m)
	require.NoError(t, err)
	assert.Equal(t, model.CategorySales, res.Category)
	assert.Equal(t, TierLLM, res.Tier)
	assert.Equal(t, int64(100), res.Usage.InputTokens)
	assert.Equal(t, 1, limiter.calls)
}

func TestClassify_LLMInvalidAnswerFallsBackToOther(t *testing.T) {
	client := anthropicmocks.NewMockClient(t)
	c := New(testConfig(), client, nil)
	m := meeting(t, "Catch up", model.MeetingMetadata{Participants: []string{"x@other.xyz"}})

	client.On("CreateMessage", mock.Anything, mock.Anything).
		Return(anthropicmocks.TextResponse("I think this is a customer call"), nil).Once()

	res, err := c.Classify(context.Background(), m)
	require.NoError(t, err)
	assert.Equal(t, model.CategoryOther, res.Category)
	assert.Equal(t, TierLLM, res.Tier)
}

func TestClassify_LLMFailureIsExplicit(t *testing.T) {
	client := anthropicmocks.NewMockClient(t)
	c := New(testConfig(), client, nil)
	m := meeting(t, "Catch up", model.MeetingMetadata{Participants: []string{"x@other.xyz"}})

	client.On("CreateMessage", mock.Anything, mock.Anything).
		Return(nil, errors.New("connection reset by peer")).Once()

	res, err := c.Classify(context.Background(), m)
	require.Error(t, err)
	var llmErr *LLMError
	require.True(t, errors.As(err, &llmErr))
	assert.Equal(t, model.CategoryOther, res.Category)
}

func TestClassify_NoClient(t *testing.T) {
	c := New(testConfig(), nil, nil)
	m := meeting(t, "Catch up", model.MeetingMetadata{Participants: []string{"x@other.xyz"}})

	_, err := c.Classify(context.Background(), m)
	var llmErr *LLMError
	assert.True(t, errors.As(err, &llmErr))
}

func TestCleanToken(t *testing.T) {
	tests := map[string]string{
		"Sales":          "sales",
		" internal.\n":   "internal",
		"`partner`":      "partner",
		"OTHER!!":        "other",
		"sales_call 123": "sales_call",
		"":               "",
	}
	for in, want := range tests {
		assert.Equal(t, want, cleanToken(in), "input %q", in)
	}
}

func TestFirstWords(t *testing.T) {
	assert.Equal(t, "a b c", firstWords("  a\tb\n c d e ", 3))
	assert.Equal(t, "a b", firstWords("a b", 10))
	assert.Equal(t, "", firstWords("", 10))
}

func TestConfigDefaults(t *testing.T) {
	c := New(Config{InternalDomain: "@Firm.IO", SalesKeywords: []string{"Audit", "audit ", ""}}, nil, nil)
	assert.Equal(t, "firm.io", c.cfg.InternalDomain)
	assert.Equal(t, []string{"audit"}, c.cfg.SalesKeywords)
	assert.NotEmpty(t, c.cfg.PartnerKeywords)
	assert.Equal(t, 500, c.cfg.TranscriptWords)
}
