package main

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/sells-group/call-pipeline/internal/classify"
	"github.com/sells-group/call-pipeline/internal/config"
	"github.com/sells-group/call-pipeline/internal/cost"
	"github.com/sells-group/call-pipeline/internal/extract"
	"github.com/sells-group/call-pipeline/internal/model"
	"github.com/sells-group/call-pipeline/internal/monitoring"
	"github.com/sells-group/call-pipeline/internal/pipeline"
	"github.com/sells-group/call-pipeline/internal/store"
	anthropicpkg "github.com/sells-group/call-pipeline/pkg/anthropic"
)

// pipelineEnv holds the store and the components built on it for the
// process and serve commands.
type pipelineEnv struct {
	Store    store.Store
	Pipeline *pipeline.Pipeline
	Throttle *pipeline.Throttle
	// Runner runs the pipeline and alerts on the result.
	Runner runner
}

// Close releases resources held by the pipeline environment.
func (pe *pipelineEnv) Close() {
	if pe.Store != nil {
		_ = pe.Store.Close()
	}
}

// initPipeline validates config for mode, opens and migrates the store, and
// builds the Pipeline. Callers should defer env.Close().
func initPipeline(ctx context.Context, mode string) (*pipelineEnv, error) {
	if err := cfg.Validate(mode); err != nil {
		return nil, err
	}

	throttle, err := pipeline.NewThrottle(cfg.Pipeline.RateLimitMode, time.Duration(cfg.Pipeline.LLMDelayMs)*time.Millisecond)
	if err != nil {
		return nil, err
	}

	st, err := openMigratedStore(ctx)
	if err != nil {
		return nil, err
	}

	client := anthropicpkg.NewClient(anthropicpkg.Options{
		APIKey:     cfg.Anthropic.Key,
		BaseURL:    cfg.Anthropic.BaseURL,
		MaxRetries: cfg.Anthropic.MaxRetries,
	})

	classifier := classify.New(classifyConfig(cfg), client, throttle)
	extractor := extract.New(extractConfig(cfg), client)

	p := pipeline.New(pipeline.Config{
		InternalDomain: cfg.Pipeline.InternalDomain,
		ClassifyModel:  cfg.Anthropic.ClassifyModel,
		ExtractModel:   cfg.Anthropic.ExtractModel,
		PageSize:       cfg.Pipeline.PageSize,
	}, st, classifier, extractor, throttle, costCalculator(cfg))

	zap.L().Debug("pipeline initialized",
		zap.String("store", cfg.Store.Driver),
		zap.String("throttle", throttle.Mode()),
		zap.Int("llm_delay_ms", cfg.Pipeline.LLMDelayMs),
	)
	return &pipelineEnv{
		Store:    st,
		Pipeline: p,
		Throttle: throttle,
		Runner:   &alertingRunner{runner: p, alerter: monitoring.NewAlerter(cfg.Monitoring)},
	}, nil
}

// alertingRunner evaluates every finished run, including one cut short by
// an error, and sends any resulting alerts.
type alertingRunner struct {
	runner  runner
	alerter *monitoring.Alerter
}

func (r *alertingRunner) Run(ctx context.Context, limit int) (*model.RunStats, error) {
	stats, err := r.runner.Run(ctx, limit)
	if alerts := r.alerter.Evaluate(stats); len(alerts) > 0 {
		// Deliver even when ctx was cancelled mid-run.
		sendCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 30*time.Second)
		r.alerter.SendAlerts(sendCtx, alerts)
		cancel()
	}
	return stats, err
}

func classifyConfig(c *config.Config) classify.Config {
	return classify.Config{
		InternalDomain:       c.Pipeline.InternalDomain,
		SalesKeywords:        c.Classify.SalesKeywords,
		PartnerKeywords:      c.Classify.PartnerKeywords,
		InternalKeywords:     c.Classify.InternalKeywords,
		SalesMeetingTypes:    c.Classify.SalesMeetingTypes,
		InternalMeetingTypes: c.Classify.InternalMeetingTypes,
		Model:                c.Anthropic.ClassifyModel,
		MaxTokens:            c.Anthropic.ClassifyMaxTokens,
		TranscriptWords:      c.Pipeline.ClassifyTranscriptWords,
	}
}

func extractConfig(c *config.Config) extract.Config {
	return extract.Config{
		Model:              c.Anthropic.ExtractModel,
		MaxTokens:          c.Anthropic.ExtractMaxTokens,
		MinTranscriptChars: c.Pipeline.MinTranscriptChars,
		MaxInputChars:      c.Pipeline.MaxInputChars,
	}
}

// costCalculator builds the calculator from configured pricing, falling
// back to the default rates when none is configured.
func costCalculator(c *config.Config) *cost.Calculator {
	if len(c.Pricing.Anthropic) == 0 {
		return cost.NewCalculator(nil)
	}
	rates := make(map[string]cost.ModelRate, len(c.Pricing.Anthropic))
	for name, p := range c.Pricing.Anthropic {
		rates[name] = cost.ModelRate{Input: p.Input, Output: p.Output}
	}
	return cost.NewCalculator(rates)
}
