package model

// Quality score bounds and default.
const (
	MinQualityScore     = 1
	MaxQualityScore     = 10
	DefaultQualityScore = 5
)

// UnknownCompany is the literal company name the model uses when it cannot
// identify the prospect organization.
const UnknownCompany = "Unknown"

// ExtractionResult is the normalized structured representation of a sales
// call. Every slice is non-nil and every enum holds a valid value once the
// extractor has normalized it.
type ExtractionResult struct {
	CallType          CallType          `json:"call_type"`
	OfferingPitched   Offering          `json:"offering_pitched"`
	CompanyName       string            `json:"company_name"`
	Prospects         []ProspectRef     `json:"prospects"`
	TeamMembers       []TeamMemberRef   `json:"team_members"`
	Technologies      []string          `json:"technologies"`
	Outcome           Outcome           `json:"outcome"`
	DealSize          *float64          `json:"deal_size"`
	QualityScore      int               `json:"quality_score"`
	QualityRationale  string            `json:"quality_rationale"`
	Objections        []ObjectionRef    `json:"objections"`
	ProspectQuestions []string          `json:"prospect_questions"`
	KeyQuotes         []KeyQuote        `json:"key_quotes"`
	FollowUps         []FollowUp        `json:"follow_ups"`
	CounterResponses  []CounterResponse `json:"counter_responses"`
}

// ProspectRef is an external attendee named in the extraction.
type ProspectRef struct {
	Name string `json:"name"`
	Role string `json:"role"`
}

// TeamMemberRef is an internal attendee named in the extraction.
type TeamMemberRef struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

// ObjectionRef references a seeded objection type with supporting evidence.
type ObjectionRef struct {
	TypeKey string `json:"type"`
	Quote   string `json:"quote"`
	Context string `json:"context"`
}

// KeyQuote is a notable verbatim line from the call.
type KeyQuote struct {
	Speaker string `json:"speaker"`
	Text    string `json:"text"`
	Context string `json:"context"`
}

// FollowUp is an agreed next action.
type FollowUp struct {
	Action   string `json:"action"`
	Assignee string `json:"assignee"`
}

// CounterResponse is how the team answered an objection.
type CounterResponse struct {
	ObjectionKey  string        `json:"objection_type"`
	Response      string        `json:"response"`
	Effectiveness Effectiveness `json:"effectiveness"`
}

// ClampQualityScore forces a score into [MinQualityScore, MaxQualityScore].
func ClampQualityScore(score int) int {
	if score < MinQualityScore {
		return MinQualityScore
	}
	if score > MaxQualityScore {
		return MaxQualityScore
	}
	return score
}
