package pipeline

import (
	"fmt"
	"strings"
	"time"

	"github.com/sells-group/call-pipeline/internal/model"
)

// FormatReport renders the end-of-run summary.
func FormatReport(stats *model.RunStats) string {
	var b strings.Builder

	b.WriteString("# Run Report\n")
	if !stats.FinishedAt.IsZero() {
		fmt.Fprintf(&b, "Duration: %s\n", stats.FinishedAt.Sub(stats.StartedAt).Round(time.Millisecond))
	}
	b.WriteString("\n")

	b.WriteString("## Summary\n")
	fmt.Fprintf(&b, "- Meetings processed: %d\n", stats.Total)
	fmt.Fprintf(&b, "- Calls extracted: %d\n", stats.Extracted)
	fmt.Fprintf(&b, "- Extraction errors: %d\n", stats.ExtractionErrors)
	fmt.Fprintf(&b, "- Write errors: %d\n", stats.WriteErrors)
	fmt.Fprintf(&b, "- Skipped (transcript too short): %d\n\n", stats.SkippedShort)

	b.WriteString("## Classification\n")
	for _, c := range model.AllCategories() {
		fmt.Fprintf(&b, "- %s: %d\n", c, stats.ByCategory[c])
	}
	fmt.Fprintf(&b, "- Decided by model: %d\n", stats.LLMClassified)
	fmt.Fprintf(&b, "- Rule errors: %d\n", stats.ClassifyRuleErrors)
	fmt.Fprintf(&b, "- Model errors: %d\n\n", stats.ClassifyLLMErrors)

	b.WriteString("## Links\n")
	fmt.Fprintf(&b, "- Link failures: %d\n", stats.LinkFailures)
	fmt.Fprintf(&b, "- Dropped vocabulary references: %d\n\n", stats.DroppedReferences)

	b.WriteString("## Usage\n")
	fmt.Fprintf(&b, "- Token usage: %d input, %d output\n", stats.Usage.InputTokens, stats.Usage.OutputTokens)
	fmt.Fprintf(&b, "- Estimated cost: $%.4f\n", stats.Usage.Cost)

	return b.String()
}
