package pipeline

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/sells-group/call-pipeline/internal/model"
)

func TestFormatReport(t *testing.T) {
	stats := model.NewRunStats()
	stats.FinishedAt = stats.StartedAt.Add(90 * time.Second)
	stats.Total = 5
	stats.ByCategory[model.CategorySales] = 3
	stats.ByCategory[model.CategoryInternal] = 2
	stats.Extracted = 2
	stats.ExtractionErrors = 1
	stats.SkippedShort = 0
	stats.LLMClassified = 1
	stats.DroppedReferences = 4
	stats.Usage = model.TokenUsage{InputTokens: 1200, OutputTokens: 300, Cost: 0.0081}

	out := FormatReport(stats)
	assert.Contains(t, out, "Duration: 1m30s")
	assert.Contains(t, out, "- Meetings processed: 5\n")
	assert.Contains(t, out, "- Calls extracted: 2\n")
	assert.Contains(t, out, "- Extraction errors: 1\n")
	assert.Contains(t, out, "- sales: 3\n")
	assert.Contains(t, out, "- partner: 0\n")
	assert.Contains(t, out, "- Decided by model: 1\n")
	assert.Contains(t, out, "- Dropped vocabulary references: 4\n")
	assert.Contains(t, out, "- Token usage: 1200 input, 300 output\n")
	assert.Contains(t, out, "- Estimated cost: $0.0081\n")
}

func TestFormatReport_Unfinished(t *testing.T) {
	out := FormatReport(model.NewRunStats())
	assert.NotContains(t, out, "Duration")
	assert.Contains(t, out, "- other: 0\n")
}
