package store

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/call-pipeline/internal/model"
)

func newTestSQLiteStore(t *testing.T) *SQLiteStore {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	st, err := NewSQLite(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() }) //nolint:errcheck
	require.NoError(t, st.Migrate(context.Background()))
	return st
}

func testMeeting(externalID, title string, date time.Time) model.RawMeeting {
	return model.RawMeeting{
		ExternalID:   externalID,
		Title:        title,
		MeetingDate:  &date,
		DurationSecs: 1800,
		Metadata:     json.RawMessage(`{"participants":["a@example.com"]}`),
	}
}

// --- Raw meetings ---

func TestSQLite_UpsertRawMeetings_InsertAndGet(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()
	date := time.Date(2025, 3, 4, 15, 0, 0, 0, time.UTC)

	n, err := st.UpsertRawMeetings(ctx, []model.RawMeeting{testMeeting("ff-1", "Intro call", date)})
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	m, err := st.GetRawMeeting(ctx, "ff-1")
	require.NoError(t, err)
	require.NotNil(t, m)
	assert.NotEmpty(t, m.ID)
	assert.Equal(t, "Intro call", m.Title)
	assert.Equal(t, 1800, m.DurationSecs)
	require.NotNil(t, m.MeetingDate)
	assert.True(t, date.Equal(*m.MeetingDate))
	assert.Nil(t, m.Classification)
	assert.Nil(t, m.ProcessedAt)
	assert.JSONEq(t, `{"participants":["a@example.com"]}`, string(m.Metadata))
}

func TestSQLite_GetRawMeeting_Missing(t *testing.T) {
	st := newTestSQLiteStore(t)

	m, err := st.GetRawMeeting(context.Background(), "nope")
	require.NoError(t, err)
	assert.Nil(t, m)
}

func TestSQLite_UpsertRawMeetings_PreservesPipelineState(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()
	date := time.Date(2025, 3, 4, 15, 0, 0, 0, time.UTC)

	_, err := st.UpsertRawMeetings(ctx, []model.RawMeeting{testMeeting("ff-1", "Old title", date)})
	require.NoError(t, err)
	m, err := st.GetRawMeeting(ctx, "ff-1")
	require.NoError(t, err)
	require.NoError(t, st.SetClassification(ctx, m.ID, model.CategorySales))
	require.NoError(t, st.MarkProcessed(ctx, m.ID, time.Now()))

	_, err = st.UpsertRawMeetings(ctx, []model.RawMeeting{testMeeting("ff-1", "New title", date)})
	require.NoError(t, err)

	got, err := st.GetRawMeeting(ctx, "ff-1")
	require.NoError(t, err)
	assert.Equal(t, m.ID, got.ID)
	assert.Equal(t, "New title", got.Title)
	require.NotNil(t, got.Classification)
	assert.Equal(t, model.CategorySales, *got.Classification)
	assert.NotNil(t, got.ProcessedAt)
}

func TestSQLite_UpsertRawMeetings_DuplicateInBatch(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()
	date := time.Date(2025, 3, 4, 15, 0, 0, 0, time.UTC)

	_, err := st.UpsertRawMeetings(ctx, []model.RawMeeting{
		testMeeting("ff-1", "first", date),
		testMeeting("ff-1", "second", date),
	})
	require.NoError(t, err)

	stats, err := st.BacklogStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Total)

	m, err := st.GetRawMeeting(ctx, "ff-1")
	require.NoError(t, err)
	assert.Equal(t, "second", m.Title)
}

func TestSQLite_ListUnprocessed_OrderAndLimit(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	noDate := testMeeting("ff-nodate", "no date", base)
	noDate.MeetingDate = nil
	_, err := st.UpsertRawMeetings(ctx, []model.RawMeeting{
		testMeeting("ff-3", "third", base.Add(72*time.Hour)),
		noDate,
		testMeeting("ff-1", "first", base),
		testMeeting("ff-2", "second", base.Add(24*time.Hour)),
	})
	require.NoError(t, err)

	all, err := st.ListUnprocessed(ctx, 0)
	require.NoError(t, err)
	require.Len(t, all, 4)
	assert.Equal(t, "ff-1", all[0].ExternalID)
	assert.Equal(t, "ff-2", all[1].ExternalID)
	assert.Equal(t, "ff-3", all[2].ExternalID)
	assert.Equal(t, "ff-nodate", all[3].ExternalID)

	require.NoError(t, st.MarkProcessed(ctx, all[0].ID, time.Now()))

	limited, err := st.ListUnprocessed(ctx, 2)
	require.NoError(t, err)
	require.Len(t, limited, 2)
	assert.Equal(t, "ff-2", limited[0].ExternalID)
}

func TestSQLite_SetClassification_NotFound(t *testing.T) {
	st := newTestSQLiteStore(t)

	err := st.SetClassification(context.Background(), "missing", model.CategoryOther)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestSQLite_BacklogStats(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()
	date := time.Date(2025, 3, 4, 15, 0, 0, 0, time.UTC)

	_, err := st.UpsertRawMeetings(ctx, []model.RawMeeting{
		testMeeting("a", "a", date),
		testMeeting("b", "b", date),
		testMeeting("c", "c", date),
	})
	require.NoError(t, err)

	a, _ := st.GetRawMeeting(ctx, "a")
	b, _ := st.GetRawMeeting(ctx, "b")
	require.NoError(t, st.SetClassification(ctx, a.ID, model.CategorySales))
	require.NoError(t, st.MarkProcessed(ctx, a.ID, time.Now()))
	require.NoError(t, st.SetClassification(ctx, b.ID, model.CategoryInternal))

	stats, err := st.BacklogStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, stats.Total)
	assert.Equal(t, 1, stats.Processed)
	assert.Equal(t, 2, stats.Unprocessed)
	assert.Equal(t, 1, stats.Unclassified)
	assert.Equal(t, 1, stats.ByClassification[model.CategorySales])
	assert.Equal(t, 1, stats.ByClassification[model.CategoryInternal])
	assert.Equal(t, 0, stats.Calls)
}

// --- Entities ---

func TestSQLite_Companies(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	id, err := st.FindCompanyByName(ctx, "Acme Protocol")
	require.NoError(t, err)
	assert.Empty(t, id)

	created, err := st.CreateCompany(ctx, "Acme Protocol", time.Now())
	require.NoError(t, err)

	found, err := st.FindCompanyByName(ctx, "Acme Protocol")
	require.NoError(t, err)
	assert.Equal(t, created, found)

	_, err = st.CreateCompany(ctx, "Acme Protocol", time.Now())
	assert.Error(t, err, "company names are unique")
}

func TestSQLite_TeamMembers(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	created, err := st.CreateTeamMember(ctx, "Jane Doe", "jane@example.com")
	require.NoError(t, err)

	found, err := st.FindTeamMemberByEmail(ctx, "jane@example.com")
	require.NoError(t, err)
	assert.Equal(t, created, found)
}

func TestSQLite_Prospects_NameOnly(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	c1, err := st.CreateCompany(ctx, "One", time.Now())
	require.NoError(t, err)
	c2, err := st.CreateCompany(ctx, "Two", time.Now())
	require.NoError(t, err)

	_, err = st.CreateProspect(ctx, "John Smith", "CTO", c1)
	require.NoError(t, err)
	_, err = st.CreateProspect(ctx, "John Smith", "CEO", c2)
	require.NoError(t, err)

	found, err := st.FindProspectByName(ctx, "John Smith")
	require.NoError(t, err)
	assert.NotEmpty(t, found, "same-named contacts at different companies resolve by name alone")
}

// --- Vocabularies ---

func TestSQLite_SeedIdempotent(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	v, err := DefaultVocabulary()
	require.NoError(t, err)

	first, err := Seed(ctx, st, v)
	require.NoError(t, err)
	assert.Equal(t, len(v.ObjectionTypes), first.ObjectionTypes)
	assert.Equal(t, len(v.Technologies), first.Technologies)

	second, err := Seed(ctx, st, v)
	require.NoError(t, err)
	assert.Equal(t, 0, second.ObjectionTypes)
	assert.Equal(t, 0, second.Technologies)
}

func TestSQLite_VocabularyLookups(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	_, err := st.SeedObjectionTypes(ctx, []model.ObjectionType{{Key: "pricing", Label: "Pricing"}})
	require.NoError(t, err)
	_, err = st.SeedTechnologies(ctx, []model.Technology{{Name: "Solidity", Category: "language"}})
	require.NoError(t, err)

	id, err := st.FindObjectionType(ctx, "pricing")
	require.NoError(t, err)
	assert.NotEmpty(t, id)

	id, err = st.FindObjectionType(ctx, "vibes")
	require.NoError(t, err)
	assert.Empty(t, id)

	id, err = st.FindTechnology(ctx, "solidity")
	require.NoError(t, err)
	assert.NotEmpty(t, id, "technology lookup is case-insensitive")

	id, err = st.FindTechnology(ctx, "COBOL")
	require.NoError(t, err)
	assert.Empty(t, id)
}

// --- Calls ---

func TestSQLite_CreateCallAndDetails(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()
	date := time.Date(2025, 3, 4, 15, 0, 0, 0, time.UTC)

	_, err := st.UpsertRawMeetings(ctx, []model.RawMeeting{testMeeting("ff-1", "Acme audit", date)})
	require.NoError(t, err)
	m, err := st.GetRawMeeting(ctx, "ff-1")
	require.NoError(t, err)

	companyID, err := st.CreateCompany(ctx, "Acme Protocol", date)
	require.NoError(t, err)
	deal := 50000.0
	call := &model.Call{
		RawMeetingID:    m.ID,
		CallType:        model.CallTypeDiscovery,
		OfferingPitched: model.OfferingAudit,
		CompanyID:       companyID,
		Outcome:         model.OutcomePositive,
		DealSize:        &deal,
		QualityScore:    8,
		Title:           m.Title,
		MeetingDate:     m.MeetingDate,
	}
	callID, err := st.CreateCall(ctx, call)
	require.NoError(t, err)
	assert.Equal(t, callID, call.ID)

	_, err = st.SeedObjectionTypes(ctx, []model.ObjectionType{{Key: "pricing"}})
	require.NoError(t, err)
	otID, err := st.FindObjectionType(ctx, "pricing")
	require.NoError(t, err)

	memberID, err := st.CreateTeamMember(ctx, "Jane", "jane@example.com")
	require.NoError(t, err)
	require.NoError(t, st.LinkTeamMember(ctx, callID, memberID))
	require.NoError(t, st.LinkTeamMember(ctx, callID, memberID), "duplicate link is ignored")
	require.NoError(t, st.AddObjection(ctx, callID, otID, model.ObjectionRef{TypeKey: "pricing", Quote: "too pricey"}))
	require.NoError(t, st.AddCounterResponse(ctx, callID, otID, model.CounterResponse{ObjectionKey: "pricing", Response: "phased", Effectiveness: model.EffectivenessEffective}))
	require.NoError(t, st.AddFollowUp(ctx, callID, model.FollowUp{Action: "send proposal", Assignee: "Jane"}))
	require.NoError(t, st.AddProspectQuestion(ctx, callID, "How long does it take?"))
	require.NoError(t, st.AddKeyQuote(ctx, callID, model.KeyQuote{Speaker: "Bob", Text: "We need this by Q3"}))

	counts, err := st.CallDetailCounts(ctx, callID)
	require.NoError(t, err)
	assert.Equal(t, model.CallDetailCounts{
		TeamMembers:       1,
		Objections:        1,
		FollowUps:         1,
		ProspectQuestions: 1,
		KeyQuotes:         1,
		CounterResponses:  1,
	}, *counts)

	got, err := st.GetCallByRawMeeting(ctx, m.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, model.OfferingAudit, got.OfferingPitched)
	require.NotNil(t, got.DealSize)
	assert.InDelta(t, 50000.0, *got.DealSize, 0.001)

	// One call per raw meeting.
	_, err = st.CreateCall(ctx, &model.Call{RawMeetingID: m.ID, CompanyID: companyID, QualityScore: 5,
		CallType: model.CallTypeDiscovery, OfferingPitched: model.OfferingNone, Outcome: model.OutcomeNeutral})
	assert.Error(t, err)
}

func TestSQLite_CreateCall_RejectsOutOfRangeScore(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()
	date := time.Date(2025, 3, 4, 15, 0, 0, 0, time.UTC)

	_, err := st.UpsertRawMeetings(ctx, []model.RawMeeting{testMeeting("ff-1", "x", date)})
	require.NoError(t, err)
	m, _ := st.GetRawMeeting(ctx, "ff-1")
	companyID, err := st.CreateCompany(ctx, "Acme", date)
	require.NoError(t, err)

	_, err = st.CreateCall(ctx, &model.Call{RawMeetingID: m.ID, CompanyID: companyID, QualityScore: 11,
		CallType: model.CallTypeDiscovery, OfferingPitched: model.OfferingNone, Outcome: model.OutcomeNeutral})
	assert.Error(t, err)
}

func TestSQLite_GetCallByRawMeeting_Missing(t *testing.T) {
	st := newTestSQLiteStore(t)

	c, err := st.GetCallByRawMeeting(context.Background(), "none")
	require.NoError(t, err)
	assert.Nil(t, c)
}
