package cost

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func testRates() map[string]ModelRate {
	return map[string]ModelRate{
		"haiku":  {Input: 1.00, Output: 5.00},
		"sonnet": {Input: 3.00, Output: 15.00},
	}
}

func TestClaude(t *testing.T) {
	t.Parallel()
	calc := NewCalculator(testRates())

	tests := []struct {
		name   string
		model  string
		input  int64
		output int64
		want   float64
	}{
		{"haiku classify", "haiku", 1000, 5, 0.001 + 0.000025},
		{"sonnet extract", "sonnet", 1_000_000, 100_000, 3.0 + 1.5},
		{"zero tokens", "sonnet", 0, 0, 0},
		{"unknown model", "gpt-4", 1_000_000, 1_000_000, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.InDelta(t, tt.want, calc.Claude(tt.model, tt.input, tt.output), 1e-9)
		})
	}
}

func TestUsage(t *testing.T) {
	t.Parallel()
	calc := NewCalculator(testRates())

	u := calc.Usage("sonnet", 2_000_000, 0)
	assert.Equal(t, int64(2_000_000), u.InputTokens)
	assert.Equal(t, int64(0), u.OutputTokens)
	assert.InDelta(t, 6.0, u.Cost, 1e-9)
}

func TestNewCalculator_NilUsesDefaults(t *testing.T) {
	t.Parallel()
	calc := NewCalculator(nil)

	assert.Greater(t, calc.Claude("claude-sonnet-4-5-20250929", 1_000_000, 0), 0.0)
}
