package main

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadMeetings_JSONArray(t *testing.T) {
	in := `  [
	  {"external_id": "ff-1", "title": "Acme audit", "meeting_date": "2025-03-04T15:00:00Z", "duration_secs": 1800,
	   "participants": ["jane@firm.io", "dana@acme.xyz"], "summary": {"overview": "Audit scope"}, "transcript": "hello"},
	  {"id": "ff-2", "title": "Standup", "date": "2025-03-05T09:00:00Z", "duration": 900.5,
	   "metadata": {"participants": ["a@firm.io"]}}
	]`

	meetings, err := readMeetings(strings.NewReader(in))
	require.NoError(t, err)
	require.Len(t, meetings, 2)

	m := meetings[0]
	assert.Equal(t, "ff-1", m.ExternalID)
	assert.Equal(t, 1800, m.DurationSecs)
	require.NotNil(t, m.MeetingDate)
	meta, err := m.DecodeMetadata()
	require.NoError(t, err)
	assert.Equal(t, []string{"jane@firm.io", "dana@acme.xyz"}, meta.Participants)
	assert.Equal(t, "Audit scope", meta.Summary.Overview)
	assert.Equal(t, "hello", meta.Transcript)

	m = meetings[1]
	assert.Equal(t, "ff-2", m.ExternalID)
	assert.Equal(t, 900, m.DurationSecs)
	require.NotNil(t, m.MeetingDate)
	assert.Equal(t, 5, m.MeetingDate.Day())
	assert.JSONEq(t, `{"participants": ["a@firm.io"]}`, string(m.Metadata))
}

func TestReadMeetings_JSONLines(t *testing.T) {
	in := `{"external_id": "a", "title": "one"}
{"external_id": "b", "title": "two"}
`
	meetings, err := readMeetings(strings.NewReader(in))
	require.NoError(t, err)
	require.Len(t, meetings, 2)
	assert.Equal(t, "b", meetings[1].ExternalID)
}

func TestReadMeetings_Empty(t *testing.T) {
	meetings, err := readMeetings(strings.NewReader("  \n"))
	require.NoError(t, err)
	assert.Empty(t, meetings)
}

func TestReadMeetings_MissingExternalID(t *testing.T) {
	_, err := readMeetings(strings.NewReader(`[{"title": "no id"}]`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "record 1")
}

func TestReadMeetings_Malformed(t *testing.T) {
	_, err := readMeetings(strings.NewReader(`{"external_id": "a"}
{"external_id": `))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decode record 2")
}
