package model

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCategory(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in     string
		want   Category
		wantOK bool
	}{
		{"sales", CategorySales, true},
		{" Partner ", CategoryPartner, true},
		{"INTERNAL", CategoryInternal, true},
		{"other", CategoryOther, true},
		{"customer_success", CategoryOther, false},
		{"", CategoryOther, false},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			t.Parallel()
			got, ok := ParseCategory(tt.in)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.wantOK, ok)
		})
	}
}

func TestParseEnums_Defaults(t *testing.T) {
	t.Parallel()

	ct, ok := ParseCallType("Follow-up")
	assert.True(t, ok)
	assert.Equal(t, CallTypeFollowUp, ct)

	ct, ok = ParseCallType("webinar")
	assert.False(t, ok)
	assert.Equal(t, CallTypeDiscovery, ct)

	off, ok := ParseOffering("Incident Response")
	assert.True(t, ok)
	assert.Equal(t, OfferingIncidentResponse, off)

	off, ok = ParseOffering("")
	assert.False(t, ok)
	assert.Equal(t, OfferingNone, off)

	out, ok := ParseOutcome("great")
	assert.False(t, ok)
	assert.Equal(t, OutcomeNeutral, out)

	eff, ok := ParseEffectiveness("partially effective")
	assert.True(t, ok)
	assert.Equal(t, EffectivenessPartiallyEffective, eff)
}

func TestClampQualityScore(t *testing.T) {
	t.Parallel()

	assert.Equal(t, 1, ClampQualityScore(-4))
	assert.Equal(t, 1, ClampQualityScore(0))
	assert.Equal(t, 7, ClampQualityScore(7))
	assert.Equal(t, 10, ClampQualityScore(11))
}

func TestRawMeeting_DecodeMetadata(t *testing.T) {
	t.Parallel()

	m := RawMeeting{
		ExternalID: "ff-1",
		Metadata: json.RawMessage(`{
			"participants": ["Alice@Example.com", "bob@acme.io", "alice@example.com"],
			"organizer_email": "carol@example.com",
			"summary": {"overview": "Audit scoping", "keywords": ["audit", "pricing"]},
			"transcript": "hello"
		}`),
	}

	meta, err := m.DecodeMetadata()
	require.NoError(t, err)
	assert.Equal(t, []string{"alice@example.com", "bob@acme.io", "carol@example.com"}, meta.Emails())
	assert.Equal(t, "Audit scoping\naudit, pricing", meta.SummaryText())
	assert.Equal(t, "hello", meta.Transcript)
}

func TestRawMeeting_DecodeMetadata_Empty(t *testing.T) {
	t.Parallel()

	meta, err := RawMeeting{}.DecodeMetadata()
	require.NoError(t, err)
	assert.Empty(t, meta.Emails())
	assert.Empty(t, meta.SummaryText())
}

func TestRawMeeting_DecodeMetadata_Malformed(t *testing.T) {
	t.Parallel()

	_, err := RawMeeting{ExternalID: "bad", Metadata: json.RawMessage(`{"participants": 7`)}.DecodeMetadata()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decode metadata for bad")
}

func TestNewRunStats(t *testing.T) {
	t.Parallel()

	s := NewRunStats()
	assert.Len(t, s.ByCategory, 4)
	assert.Zero(t, s.ByCategory[CategorySales])
	assert.False(t, s.StartedAt.IsZero())
}
