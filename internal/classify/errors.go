package classify

import "fmt"

// RuleError reports a failure inside the rule tier, such as undecodable
// metadata or a recovered panic. Callers treat the meeting as "other".
type RuleError struct {
	ExternalID string
	Err        error
}

func (e *RuleError) Error() string {
	return fmt.Sprintf("classify: rule tier failed for %s: %v", e.ExternalID, e.Err)
}

func (e *RuleError) Unwrap() error { return e.Err }

// LLMError reports a failed model call in the second tier. It is kept
// distinct from a deliberate "other" answer so runs can count it.
type LLMError struct {
	ExternalID string
	Err        error
}

func (e *LLMError) Error() string {
	return fmt.Sprintf("classify: llm tier failed for %s: %v", e.ExternalID, e.Err)
}

func (e *LLMError) Unwrap() error { return e.Err }
