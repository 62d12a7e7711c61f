package store

import (
	"context"
	"time"

	"github.com/sells-group/call-pipeline/internal/model"
)

// Store defines the persistence interface for the call pipeline.
//
// Lookups return ("", nil) when no row matches. Create methods assign a new
// uuid and return it.
type Store interface {
	// Raw meetings
	UpsertRawMeetings(ctx context.Context, meetings []model.RawMeeting) (int64, error)
	GetRawMeeting(ctx context.Context, externalID string) (*model.RawMeeting, error)
	ListUnprocessed(ctx context.Context, limit int) ([]model.RawMeeting, error)
	SetClassification(ctx context.Context, meetingID string, category model.Category) error
	MarkProcessed(ctx context.Context, meetingID string, at time.Time) error
	BacklogStats(ctx context.Context) (*model.BacklogStats, error)

	// Entities
	FindCompanyByName(ctx context.Context, name string) (string, error)
	CreateCompany(ctx context.Context, name string, firstSeen time.Time) (string, error)
	FindTeamMemberByEmail(ctx context.Context, email string) (string, error)
	CreateTeamMember(ctx context.Context, name, email string) (string, error)
	FindProspectByName(ctx context.Context, name string) (string, error)
	CreateProspect(ctx context.Context, name, role, companyID string) (string, error)

	// Closed vocabularies
	FindObjectionType(ctx context.Context, key string) (string, error)
	FindTechnology(ctx context.Context, name string) (string, error)
	SeedObjectionTypes(ctx context.Context, types []model.ObjectionType) (int, error)
	SeedTechnologies(ctx context.Context, techs []model.Technology) (int, error)

	// Calls
	CreateCall(ctx context.Context, call *model.Call) (string, error)
	GetCallByRawMeeting(ctx context.Context, rawMeetingID string) (*model.Call, error)
	CallDetailCounts(ctx context.Context, callID string) (*model.CallDetailCounts, error)
	LinkTeamMember(ctx context.Context, callID, memberID string) error
	LinkProspect(ctx context.Context, callID, prospectID string) error
	LinkTechnology(ctx context.Context, callID, technologyID string) error
	AddObjection(ctx context.Context, callID, objectionTypeID string, o model.ObjectionRef) error
	AddCounterResponse(ctx context.Context, callID, objectionTypeID string, r model.CounterResponse) error
	AddFollowUp(ctx context.Context, callID string, f model.FollowUp) error
	AddProspectQuestion(ctx context.Context, callID, question string) error
	AddKeyQuote(ctx context.Context, callID string, q model.KeyQuote) error

	// Lifecycle
	Ping(ctx context.Context) error
	Migrate(ctx context.Context) error
	Close() error
}

// dedupeMeetings keeps the last record per external id, preserving the
// order of first appearance.
func dedupeMeetings(meetings []model.RawMeeting) []model.RawMeeting {
	idx := make(map[string]int, len(meetings))
	out := make([]model.RawMeeting, 0, len(meetings))
	for _, m := range meetings {
		if m.ExternalID == "" {
			continue
		}
		if i, ok := idx[m.ExternalID]; ok {
			out[i] = m
			continue
		}
		idx[m.ExternalID] = len(out)
		out = append(out, m)
	}
	return out
}

// metadataText returns the metadata blob as text, substituting an empty
// object for a missing blob.
func metadataText(m model.RawMeeting) string {
	if len(m.Metadata) == 0 {
		return "{}"
	}
	return string(m.Metadata)
}

func newBacklogStats() *model.BacklogStats {
	return &model.BacklogStats{ByClassification: make(map[model.Category]int)}
}
