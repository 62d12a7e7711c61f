package model

import "time"

// TokenUsage accumulates LLM token consumption.
type TokenUsage struct {
	InputTokens  int64   `json:"input_tokens"`
	OutputTokens int64   `json:"output_tokens"`
	Cost         float64 `json:"cost"`
}

// Add accumulates other into u.
func (u *TokenUsage) Add(other TokenUsage) {
	u.InputTokens += other.InputTokens
	u.OutputTokens += other.OutputTokens
	u.Cost += other.Cost
}

// RunStats is the running tally a pipeline run reports at the end.
type RunStats struct {
	StartedAt          time.Time        `json:"started_at"`
	FinishedAt         time.Time        `json:"finished_at"`
	Total              int              `json:"total"`
	ByCategory         map[Category]int `json:"by_category"`
	Extracted          int              `json:"extracted"`
	ExtractionErrors   int              `json:"extraction_errors"`
	WriteErrors        int              `json:"write_errors"`
	SkippedShort       int              `json:"skipped_short"`
	ClassifyRuleErrors int              `json:"classify_rule_errors"`
	ClassifyLLMErrors  int              `json:"classify_llm_errors"`
	LLMClassified      int              `json:"llm_classified"`
	LinkFailures       int              `json:"link_failures"`
	DroppedReferences  int              `json:"dropped_references"`
	Usage              TokenUsage       `json:"usage"`
}

// NewRunStats returns stats with every category pre-populated at zero.
func NewRunStats() *RunStats {
	s := &RunStats{
		StartedAt:  time.Now().UTC(),
		ByCategory: make(map[Category]int, len(AllCategories())),
	}
	for _, c := range AllCategories() {
		s.ByCategory[c] = 0
	}
	return s
}
