// Package writer materializes one normalized extraction as a call row and
// its dependent link and detail rows.
package writer

import (
	"context"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/call-pipeline/internal/model"
	"github.com/sells-group/call-pipeline/internal/resolve"
)

// Store is the persistence the writer needs.
type Store interface {
	resolve.Store

	FindObjectionType(ctx context.Context, key string) (string, error)
	FindTechnology(ctx context.Context, name string) (string, error)

	CreateCall(ctx context.Context, call *model.Call) (string, error)
	LinkTeamMember(ctx context.Context, callID, memberID string) error
	LinkProspect(ctx context.Context, callID, prospectID string) error
	LinkTechnology(ctx context.Context, callID, technologyID string) error
	AddObjection(ctx context.Context, callID, objectionTypeID string, o model.ObjectionRef) error
	AddCounterResponse(ctx context.Context, callID, objectionTypeID string, r model.CounterResponse) error
	AddFollowUp(ctx context.Context, callID string, f model.FollowUp) error
	AddProspectQuestion(ctx context.Context, callID, question string) error
	AddKeyQuote(ctx context.Context, callID string, q model.KeyQuote) error
}

// Report describes what Materialize wrote.
type Report struct {
	CallID    string `json:"call_id"`
	CompanyID string `json:"company_id"`

	// LinkFailures counts child items whose resolution or insert failed.
	LinkFailures int `json:"link_failures"`
	// Dropped counts technology, objection, and counter-response
	// references outside the seeded vocabularies.
	Dropped int `json:"dropped"`
}

// Writer writes extraction results.
type Writer struct {
	store    Store
	resolver *resolve.Resolver
}

// New creates a Writer. Entity references go through resolver.
func New(st Store, resolver *resolve.Resolver) *Writer {
	return &Writer{store: st, resolver: resolver}
}

// Materialize writes exactly one call for meeting plus its dependent rows.
// An error is returned only when the company or the call row cannot be
// written; per-item failures are logged and counted in the report.
func (w *Writer) Materialize(ctx context.Context, meeting model.RawMeeting, meta model.MeetingMetadata, res *model.ExtractionResult) (*Report, error) {
	if res == nil {
		return nil, eris.Errorf("writer: nil extraction for %s", meeting.ExternalID)
	}

	companyID, err := w.resolver.Company(ctx, res.CompanyName, meeting.MeetingDate)
	if err != nil {
		return nil, eris.Wrapf(err, "writer: resolve company for %s", meeting.ExternalID)
	}

	call := &model.Call{
		RawMeetingID:     meeting.ID,
		CallType:         res.CallType,
		OfferingPitched:  res.OfferingPitched,
		CompanyID:        companyID,
		Outcome:          res.Outcome,
		DealSize:         res.DealSize,
		QualityScore:     model.ClampQualityScore(res.QualityScore),
		QualityRationale: res.QualityRationale,
		Title:            meeting.Title,
		Transcript:       meta.Transcript,
		Summary:          meta.SummaryText(),
		MeetingDate:      meeting.MeetingDate,
		DurationSecs:     meeting.DurationSecs,
	}
	callID, err := w.store.CreateCall(ctx, call)
	if err != nil {
		return nil, eris.Wrapf(err, "writer: create call for %s", meeting.ExternalID)
	}

	rep := &Report{CallID: callID, CompanyID: companyID}
	log := zap.L().With(zap.String("external_id", meeting.ExternalID), zap.String("call_id", callID))
	fail := func(kind, item string, err error) {
		rep.LinkFailures++
		log.Warn("writer: link failed",
			zap.String("kind", kind),
			zap.String("item", item),
			zap.Error(err),
		)
	}
	drop := func(kind, item string) {
		rep.Dropped++
		log.Debug("writer: reference outside vocabulary dropped",
			zap.String("kind", kind),
			zap.String("item", item),
		)
	}

	for _, tm := range res.TeamMembers {
		id, err := w.resolver.TeamMember(ctx, tm.Name, tm.Email)
		if err == nil {
			err = w.store.LinkTeamMember(ctx, callID, id)
		}
		if err != nil {
			fail("team_member", tm.Name, err)
		}
	}

	for _, p := range res.Prospects {
		id, err := w.resolver.Prospect(ctx, p.Name, p.Role, companyID)
		if err == nil {
			err = w.store.LinkProspect(ctx, callID, id)
		}
		if err != nil {
			fail("prospect", p.Name, err)
		}
	}

	for _, name := range res.Technologies {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		id, err := w.store.FindTechnology(ctx, name)
		if err != nil {
			fail("technology", name, err)
			continue
		}
		if id == "" {
			drop("technology", name)
			continue
		}
		if err := w.store.LinkTechnology(ctx, callID, id); err != nil {
			fail("technology", name, err)
		}
	}

	// Objection type ids are looked up once per key and reused by the
	// counter-responses below.
	objectionIDs := make(map[string]string)
	objectionType := func(key string) (string, error) {
		if id, ok := objectionIDs[key]; ok {
			return id, nil
		}
		id, err := w.store.FindObjectionType(ctx, key)
		if err != nil {
			return "", err
		}
		objectionIDs[key] = id
		return id, nil
	}

	for _, o := range res.Objections {
		id, err := objectionType(o.TypeKey)
		if err != nil {
			fail("objection", o.TypeKey, err)
			continue
		}
		if id == "" {
			drop("objection", o.TypeKey)
			continue
		}
		if err := w.store.AddObjection(ctx, callID, id, o); err != nil {
			fail("objection", o.TypeKey, err)
		}
	}

	for _, f := range res.FollowUps {
		if err := w.store.AddFollowUp(ctx, callID, f); err != nil {
			fail("follow_up", f.Action, err)
		}
	}

	for _, q := range res.ProspectQuestions {
		if err := w.store.AddProspectQuestion(ctx, callID, q); err != nil {
			fail("prospect_question", q, err)
		}
	}

	for _, q := range res.KeyQuotes {
		if err := w.store.AddKeyQuote(ctx, callID, q); err != nil {
			fail("key_quote", q.Speaker, err)
		}
	}

	for _, cr := range res.CounterResponses {
		id, err := objectionType(cr.ObjectionKey)
		if err != nil {
			fail("counter_response", cr.ObjectionKey, err)
			continue
		}
		if id == "" {
			drop("counter_response", cr.ObjectionKey)
			continue
		}
		if err := w.store.AddCounterResponse(ctx, callID, id, cr); err != nil {
			fail("counter_response", cr.ObjectionKey, err)
		}
	}

	return rep, nil
}
