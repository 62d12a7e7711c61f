// Package cost estimates Claude spend for a pipeline run.
package cost

import "github.com/sells-group/call-pipeline/internal/model"

// ModelRate holds per-model token pricing (USD per million tokens).
type ModelRate struct {
	Input  float64 `yaml:"input" mapstructure:"input"`
	Output float64 `yaml:"output" mapstructure:"output"`
}

// Calculator computes costs for API usage.
type Calculator struct {
	rates map[string]ModelRate
}

// NewCalculator creates a Calculator with the given per-model rates. A nil
// map uses DefaultRates.
func NewCalculator(rates map[string]ModelRate) *Calculator {
	if rates == nil {
		rates = DefaultRates()
	}
	return &Calculator{rates: rates}
}

// Claude computes the cost of one Claude call. Unknown models cost 0.
func (c *Calculator) Claude(modelName string, input, output int64) float64 {
	rate, ok := c.rates[modelName]
	if !ok {
		return 0
	}
	return (float64(input)/1e6)*rate.Input + (float64(output)/1e6)*rate.Output
}

// Usage builds a TokenUsage for one call with its cost filled in.
func (c *Calculator) Usage(modelName string, input, output int64) model.TokenUsage {
	return model.TokenUsage{
		InputTokens:  input,
		OutputTokens: output,
		Cost:         c.Claude(modelName, input, output),
	}
}

// DefaultRates returns list pricing for the default models.
func DefaultRates() map[string]ModelRate {
	return map[string]ModelRate{
		"claude-haiku-4-5-20251001":  {Input: 1.00, Output: 5.00},
		"claude-sonnet-4-5-20250929": {Input: 3.00, Output: 15.00},
		"claude-opus-4-6":            {Input: 15.00, Output: 75.00},
	}
}
