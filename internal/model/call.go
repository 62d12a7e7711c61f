package model

import "time"

// Call is one persisted sales-call extraction, owned 1:1 by a RawMeeting.
type Call struct {
	ID               string
	RawMeetingID     string
	CallType         CallType
	OfferingPitched  Offering
	CompanyID        string
	Outcome          Outcome
	DealSize         *float64
	QualityScore     int
	QualityRationale string
	Title            string
	Transcript       string
	Summary          string
	MeetingDate      *time.Time
	DurationSecs     int
	CreatedAt        time.Time
}

// Company is a resolved prospect organization.
type Company struct {
	ID          string
	Name        string
	FirstSeenAt time.Time
}

// TeamMember is an internal participant, unique by email.
type TeamMember struct {
	ID    string
	Name  string
	Email string
}

// ProspectContact is an external participant. Resolution keys on name only,
// so same-named contacts at different companies share one row.
type ProspectContact struct {
	ID        string
	Name      string
	Role      string
	CompanyID string
}

// ObjectionType is one entry of the closed objection vocabulary.
type ObjectionType struct {
	ID          string `yaml:"-"`
	Key         string `yaml:"key"`
	Label       string `yaml:"label"`
	Description string `yaml:"description"`
}

// Technology is one entry of the closed technology vocabulary.
type Technology struct {
	ID       string `yaml:"-"`
	Name     string `yaml:"name"`
	Category string `yaml:"category"`
}

// BacklogStats summarizes the raw meeting table for operators.
type BacklogStats struct {
	Total            int              `json:"total"`
	Processed        int              `json:"processed"`
	Unprocessed      int              `json:"unprocessed"`
	Unclassified     int              `json:"unclassified"`
	ByClassification map[Category]int `json:"by_classification"`
	Calls            int              `json:"calls"`
}

// CallDetailCounts is the number of dependent rows written for one call.
type CallDetailCounts struct {
	TeamMembers       int `json:"team_members"`
	Prospects         int `json:"prospects"`
	Technologies      int `json:"technologies"`
	Objections        int `json:"objections"`
	FollowUps         int `json:"follow_ups"`
	ProspectQuestions int `json:"prospect_questions"`
	KeyQuotes         int `json:"key_quotes"`
	CounterResponses  int `json:"counter_responses"`
}
