// Package monitoring raises webhook alerts when a finished run breaches
// failure-rate or cost thresholds.
package monitoring

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/call-pipeline/internal/config"
	"github.com/sells-group/call-pipeline/internal/model"
)

// AlertType identifies the kind of alert.
type AlertType string

const (
	AlertExtractionFailureRate AlertType = "extraction_failure_rate"
	AlertClassifierModelErrors AlertType = "classifier_model_errors"
	AlertCostOverrun           AlertType = "cost_overrun"
)

// minAttempts is the number of extraction attempts below which the failure
// rate is too noisy to alert on.
const minAttempts = 5

// Alert represents a single alert to be sent.
type Alert struct {
	Type      AlertType      `json:"type"`
	Severity  string         `json:"severity"`
	Message   string         `json:"message"`
	Details   map[string]any `json:"details,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}

// Alerter evaluates run statistics against configured thresholds and sends
// alerts via webhook when thresholds are breached.
type Alerter struct {
	cfg    config.MonitoringConfig
	client *http.Client
}

// NewAlerter creates a new Alerter with the given monitoring config.
func NewAlerter(cfg config.MonitoringConfig) *Alerter {
	return &Alerter{
		cfg:    cfg,
		client: &http.Client{Timeout: 10 * time.Second},
	}
}

// Evaluate checks the run statistics against thresholds and returns any
// alerts.
func (a *Alerter) Evaluate(stats *model.RunStats) []Alert {
	if stats == nil {
		return nil
	}
	var alerts []Alert
	now := time.Now().UTC()

	failed := stats.ExtractionErrors + stats.WriteErrors
	attempted := stats.Extracted + failed
	if attempted >= minAttempts {
		rate := float64(failed) / float64(attempted)
		if rate > a.cfg.FailureRateThreshold {
			alerts = append(alerts, Alert{
				Type:     AlertExtractionFailureRate,
				Severity: "high",
				Message: fmt.Sprintf(
					"Extraction failure rate %.1f%% exceeds threshold %.1f%% (%d failed / %d attempted)",
					rate*100, a.cfg.FailureRateThreshold*100, failed, attempted,
				),
				Details: map[string]any{
					"failure_rate":      rate,
					"threshold":         a.cfg.FailureRateThreshold,
					"extraction_errors": stats.ExtractionErrors,
					"write_errors":      stats.WriteErrors,
					"attempted":         attempted,
				},
				Timestamp: now,
			})
		}
	}

	if stats.ClassifyLLMErrors > 0 {
		alerts = append(alerts, Alert{
			Type:     AlertClassifierModelErrors,
			Severity: "medium",
			Message: fmt.Sprintf(
				"%d meeting(s) fell back to other after a failed classifier model call",
				stats.ClassifyLLMErrors,
			),
			Details: map[string]any{
				"llm_errors": stats.ClassifyLLMErrors,
				"total":      stats.Total,
			},
			Timestamp: now,
		})
	}

	if a.cfg.CostThresholdUSD > 0 && stats.Usage.Cost > a.cfg.CostThresholdUSD {
		alerts = append(alerts, Alert{
			Type:     AlertCostOverrun,
			Severity: "high",
			Message: fmt.Sprintf(
				"Run API cost $%.2f exceeds threshold $%.2f",
				stats.Usage.Cost, a.cfg.CostThresholdUSD,
			),
			Details: map[string]any{
				"cost_usd":      stats.Usage.Cost,
				"threshold_usd": a.cfg.CostThresholdUSD,
				"meetings":      stats.Total,
			},
			Timestamp: now,
		})
	}

	return alerts
}

// SendAlerts delivers alerts to the configured webhook URL.
// Returns the number of alerts successfully sent.
func (a *Alerter) SendAlerts(ctx context.Context, alerts []Alert) int {
	if a.cfg.WebhookURL == "" || len(alerts) == 0 {
		return 0
	}

	sent := 0
	for _, alert := range alerts {
		if err := a.sendWebhook(ctx, alert); err != nil {
			zap.L().Error("monitoring: failed to send alert",
				zap.String("type", string(alert.Type)),
				zap.Error(err),
			)
			continue
		}
		zap.L().Info("monitoring: alert sent",
			zap.String("type", string(alert.Type)),
			zap.String("severity", alert.Severity),
		)
		sent++
	}
	return sent
}

// sendWebhook posts a single alert to the webhook URL.
func (a *Alerter) sendWebhook(ctx context.Context, alert Alert) error {
	payload, err := json.Marshal(alert)
	if err != nil {
		return eris.Wrap(err, "monitoring: marshal alert")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.cfg.WebhookURL, bytes.NewReader(payload))
	if err != nil {
		return eris.Wrap(err, "monitoring: create webhook request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		return eris.Wrap(err, "monitoring: webhook request")
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode >= 400 {
		return eris.Errorf("monitoring: webhook returned status %d", resp.StatusCode)
	}
	return nil
}
