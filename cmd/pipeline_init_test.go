package main

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/call-pipeline/internal/config"
	"github.com/sells-group/call-pipeline/internal/model"
	"github.com/sells-group/call-pipeline/internal/monitoring"
)

func TestClassifyConfig_FromConfig(t *testing.T) {
	c := &config.Config{
		Pipeline:  config.PipelineConfig{InternalDomain: "firm.io", ClassifyTranscriptWords: 300},
		Anthropic: config.AnthropicConfig{ClassifyModel: "haiku", ClassifyMaxTokens: 8},
		Classify:  config.ClassifyConfig{SalesKeywords: []string{"audit"}},
	}
	cc := classifyConfig(c)
	assert.Equal(t, "firm.io", cc.InternalDomain)
	assert.Equal(t, []string{"audit"}, cc.SalesKeywords)
	assert.Equal(t, "haiku", cc.Model)
	assert.Equal(t, int64(8), cc.MaxTokens)
	assert.Equal(t, 300, cc.TranscriptWords)
}

func TestExtractConfig_FromConfig(t *testing.T) {
	c := &config.Config{
		Pipeline:  config.PipelineConfig{MinTranscriptChars: 80, MaxInputChars: 5000},
		Anthropic: config.AnthropicConfig{ExtractModel: "sonnet", ExtractMaxTokens: 2048},
	}
	ec := extractConfig(c)
	assert.Equal(t, "sonnet", ec.Model)
	assert.Equal(t, int64(2048), ec.MaxTokens)
	assert.Equal(t, 80, ec.MinTranscriptChars)
	assert.Equal(t, 5000, ec.MaxInputChars)
}

func TestCostCalculator(t *testing.T) {
	c := &config.Config{Pricing: config.PricingConfig{Anthropic: map[string]config.ModelPricing{
		"m": {Input: 2, Output: 10},
	}}}
	assert.InDelta(t, 12.0, costCalculator(c).Claude("m", 1_000_000, 1_000_000), 1e-9)

	fallback := costCalculator(&config.Config{})
	assert.InDelta(t, 3.0, fallback.Claude("claude-sonnet-4-5-20250929", 1_000_000, 0), 1e-9)
}

type fixedRunner struct {
	stats *model.RunStats
	err   error
}

func (f fixedRunner) Run(context.Context, int) (*model.RunStats, error) { return f.stats, f.err }

func TestAlertingRunner_SendsAlertsForFailedRun(t *testing.T) {
	var received atomic.Int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		received.Add(1)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer ts.Close()

	stats := model.NewRunStats()
	stats.ClassifyLLMErrors = 1
	r := &alertingRunner{
		runner:  fixedRunner{stats: stats, err: errors.New("mark processed failed")},
		alerter: monitoring.NewAlerter(config.MonitoringConfig{WebhookURL: ts.URL, FailureRateThreshold: 0.1}),
	}

	got, err := r.Run(context.Background(), 0)
	require.Error(t, err)
	assert.Same(t, stats, got)
	assert.Equal(t, int32(1), received.Load())
}
