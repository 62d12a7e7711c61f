package classify

import (
	"fmt"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/call-pipeline/internal/model"
)

// Scores holds the number of distinct keywords from each vocabulary found
// in a meeting's title and summary fields.
type Scores struct {
	Sales    int `json:"sales"`
	Partner  int `json:"partner"`
	Internal int `json:"internal"`
}

// Thresholds for the rule tier's decision order.
const (
	minSalesScore    = 3
	minPartnerScore  = 2
	minInternalScore = 2
)

// Rules runs the deterministic tier. ok is false when the rules are
// inconclusive and the model tier should decide. The result depends only on
// the meeting and the configuration.
func (c *Classifier) Rules(meeting model.RawMeeting) (res Result, ok bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			res = Result{Category: model.CategoryOther, Tier: TierRules}
			ok = false
			err = &RuleError{ExternalID: meeting.ExternalID, Err: eris.Errorf("panic: %v", r)}
		}
	}()

	meta, err := meeting.DecodeMetadata()
	if err != nil {
		return Result{Category: model.CategoryOther, Tier: TierRules}, false, &RuleError{ExternalID: meeting.ExternalID, Err: err}
	}

	res = Result{Tier: TierRules}
	emails := meta.Emails()
	external := c.externalCount(emails)
	if len(emails) > 0 && external == 0 {
		res.Category = model.CategoryInternal
		res.Reason = "all participants internal"
		return res, true, nil
	}

	corpus := strings.ToLower(strings.TrimSpace(meeting.Title + "\n" + meta.SummaryText()))
	if corpus == "" {
		res.Reason = "no title or summary text"
		return res, false, nil
	}

	s := Scores{
		Sales:    distinctHits(corpus, c.cfg.SalesKeywords),
		Partner:  distinctHits(corpus, c.cfg.PartnerKeywords),
		Internal: distinctHits(corpus, c.cfg.InternalKeywords),
	}
	res.Scores = s

	switch {
	case s.Sales >= minSalesScore && s.Sales > s.Partner && s.Sales > s.Internal:
		res.Category = model.CategorySales
		res.Reason = "sales keywords"
		return res, true, nil
	case s.Partner >= minPartnerScore && s.Partner > s.Sales:
		res.Category = model.CategoryPartner
		res.Reason = "partner keywords"
		return res, true, nil
	case s.Internal >= minInternalScore && s.Internal > s.Sales:
		res.Category = model.CategoryInternal
		res.Reason = "internal keywords"
		return res, true, nil
	}

	meetingType := strings.ToLower(strings.TrimSpace(meta.Summary.MeetingType))
	if meetingType != "" {
		if containsAny(meetingType, c.cfg.SalesMeetingTypes) {
			res.Category = model.CategorySales
			res.Reason = fmt.Sprintf("meeting type %q", meetingType)
			return res, true, nil
		}
		if containsAny(meetingType, c.cfg.InternalMeetingTypes) {
			res.Category = model.CategoryInternal
			res.Reason = fmt.Sprintf("meeting type %q", meetingType)
			return res, true, nil
		}
	}

	// Low-confidence acceptance: a single sales keyword plus any outside
	// participant is enough to trigger a paid extraction.
	if s.Sales >= 1 && external > 0 {
		res.Category = model.CategorySales
		res.Reason = "weak sales signal with external participant"
		return res, true, nil
	}

	res.Reason = "inconclusive"
	return res, false, nil
}

func (c *Classifier) externalCount(emails []string) int {
	n := 0
	for _, e := range emails {
		if !c.isInternal(e) {
			n++
		}
	}
	return n
}

func (c *Classifier) isInternal(email string) bool {
	at := strings.LastIndex(email, "@")
	if at < 0 {
		return false
	}
	return strings.EqualFold(email[at+1:], c.cfg.InternalDomain)
}

// distinctHits counts vocabulary entries that occur at least once.
func distinctHits(corpus string, vocab []string) int {
	n := 0
	for _, kw := range vocab {
		if strings.Contains(corpus, kw) {
			n++
		}
	}
	return n
}

func containsAny(s string, subs []string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
