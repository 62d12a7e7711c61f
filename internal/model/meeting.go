package model

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/rotisserie/eris"
)

// RawMeeting is one ingested transcript record. The pipeline only ever
// mutates Classification and ProcessedAt.
type RawMeeting struct {
	ID             string          `json:"id"`
	ExternalID     string          `json:"external_id"`
	Title          string          `json:"title"`
	MeetingDate    *time.Time      `json:"meeting_date,omitempty"`
	DurationSecs   int             `json:"duration_secs"`
	Metadata       json.RawMessage `json:"metadata"`
	Classification *Category       `json:"classification,omitempty"`
	ProcessedAt    *time.Time      `json:"processed_at,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
}

// Processed reports whether the pipeline has finished with the meeting.
func (m RawMeeting) Processed() bool {
	return m.ProcessedAt != nil
}

// DecodeMetadata parses the opaque metadata blob. An empty blob decodes to
// zero-value metadata.
func (m RawMeeting) DecodeMetadata() (MeetingMetadata, error) {
	var meta MeetingMetadata
	raw := strings.TrimSpace(string(m.Metadata))
	if raw == "" || raw == "null" {
		return meta, nil
	}
	if err := json.Unmarshal(m.Metadata, &meta); err != nil {
		return meta, eris.Wrapf(err, "model: decode metadata for %s", m.ExternalID)
	}
	return meta, nil
}

// MeetingMetadata is the shape of the transcript source's metadata blob.
type MeetingMetadata struct {
	Participants   []string       `json:"participants,omitempty"`
	OrganizerEmail string         `json:"organizer_email,omitempty"`
	Summary        MeetingSummary `json:"summary"`
	Transcript     string         `json:"transcript,omitempty"`
}

// MeetingSummary holds the provider's summary-style fields.
type MeetingSummary struct {
	Overview     string   `json:"overview,omitempty"`
	ShortSummary string   `json:"short_summary,omitempty"`
	BulletGist   string   `json:"bullet_gist,omitempty"`
	ActionItems  string   `json:"action_items,omitempty"`
	Keywords     []string `json:"keywords,omitempty"`
	MeetingType  string   `json:"meeting_type,omitempty"`
}

// Emails returns the distinct, lower-cased participant addresses including
// the organizer.
func (m MeetingMetadata) Emails() []string {
	seen := make(map[string]bool)
	var out []string
	add := func(e string) {
		e = strings.ToLower(strings.TrimSpace(e))
		if e == "" || seen[e] {
			return
		}
		seen[e] = true
		out = append(out, e)
	}
	for _, p := range m.Participants {
		add(p)
	}
	add(m.OrganizerEmail)
	return out
}

// SummaryText joins every summary-style field into a single block.
func (m MeetingMetadata) SummaryText() string {
	parts := []string{
		m.Summary.Overview,
		m.Summary.ShortSummary,
		m.Summary.BulletGist,
		m.Summary.ActionItems,
		strings.Join(m.Summary.Keywords, ", "),
	}
	var b strings.Builder
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		if b.Len() > 0 {
			b.WriteString("\n")
		}
		b.WriteString(p)
	}
	return b.String()
}
