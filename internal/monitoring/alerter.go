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

	"github.com/sells-group/visibility-cli/internal/config"
)

// AlertType identifies the kind of alert.
type AlertType string

const (
	AlertRunFailureRate AlertType = "run_failure_rate"
	AlertLowCoverage    AlertType = "low_coverage"
	AlertCostOverrun    AlertType = "cost_overrun"
)

// minFinishedRuns is the sample size below which rate-based alerts stay quiet.
const minFinishedRuns = 5

// Alert represents a single alert to be sent.
type Alert struct {
	Type      AlertType      `json:"type"`
	Severity  string         `json:"severity"`
	Message   string         `json:"message"`
	Details   map[string]any `json:"details,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}

// Alerter checks snapshots against the configured thresholds and posts
// the resulting alerts to a webhook.
type Alerter struct {
	cfg    config.MonitoringConfig
	client *http.Client
	rules  []rule
}

// rule inspects a snapshot and returns an alert, or nil when healthy.
type rule func(cfg config.MonitoringConfig, snap *MetricsSnapshot) *Alert

// NewAlerter builds an Alerter with the standard rule set.
func NewAlerter(cfg config.MonitoringConfig) *Alerter {
	return &Alerter{
		cfg:    cfg,
		client: &http.Client{Timeout: 10 * time.Second},
		rules:  []rule{failureRateRule, coverageRule, costRule},
	}
}

// Evaluate returns the alerts the snapshot triggers, in rule order.
func (a *Alerter) Evaluate(snap *MetricsSnapshot) []Alert {
	var alerts []Alert
	now := time.Now().UTC()
	for _, r := range a.rules {
		if alert := r(a.cfg, snap); alert != nil {
			alert.Timestamp = now
			alerts = append(alerts, *alert)
		}
	}
	return alerts
}

func failureRateRule(cfg config.MonitoringConfig, snap *MetricsSnapshot) *Alert {
	finished := snap.RunsComplete + snap.RunsFailed
	if finished < minFinishedRuns || snap.FailRate <= cfg.FailureRateThreshold {
		return nil
	}
	return &Alert{
		Type:     AlertRunFailureRate,
		Severity: "high",
		Message: fmt.Sprintf("%d of %d visibility runs failed in the last %dh (%.0f%%, limit %.0f%%)",
			snap.RunsFailed, finished, snap.LookbackHours, snap.FailRate*100, cfg.FailureRateThreshold*100),
		Details: map[string]any{
			"failure_rate": snap.FailRate,
			"threshold":    cfg.FailureRateThreshold,
			"failed":       snap.RunsFailed,
			"finished":     finished,
		},
	}
}

func coverageRule(cfg config.MonitoringConfig, snap *MetricsSnapshot) *Alert {
	if cfg.MinAvgCoverage <= 0 || snap.RunsComplete < minFinishedRuns || snap.AvgCoverage >= cfg.MinAvgCoverage {
		return nil
	}
	return &Alert{
		Type:     AlertLowCoverage,
		Severity: "medium",
		Message: fmt.Sprintf("provider named in %.0f%% of answers on average over %d runs (floor %.0f%%)",
			snap.AvgCoverage*100, snap.RunsComplete, cfg.MinAvgCoverage*100),
		Details: map[string]any{
			"avg_coverage":   snap.AvgCoverage,
			"avg_confidence": snap.AvgConfidence,
			"threshold":      cfg.MinAvgCoverage,
		},
	}
}

func costRule(cfg config.MonitoringConfig, snap *MetricsSnapshot) *Alert {
	if cfg.CostThresholdUSD <= 0 || snap.CostUSD <= cfg.CostThresholdUSD {
		return nil
	}
	return &Alert{
		Type:     AlertCostOverrun,
		Severity: "high",
		Message: fmt.Sprintf("answer source spend $%.2f over %dh is above $%.2f",
			snap.CostUSD, snap.LookbackHours, cfg.CostThresholdUSD),
		Details: map[string]any{
			"cost_usd":      snap.CostUSD,
			"threshold_usd": cfg.CostThresholdUSD,
			"runs_total":    snap.RunsTotal,
			"tokens":        snap.Tokens,
		},
	}
}

// webhookPayload wraps an alert for chat-style webhooks, which render Text.
type webhookPayload struct {
	Source string `json:"source"`
	Text   string `json:"text"`
	Alert  Alert  `json:"alert"`
}

// SendAlerts posts each alert to the configured webhook and returns how
// many were accepted. A failed delivery is logged and skipped.
func (a *Alerter) SendAlerts(ctx context.Context, alerts []Alert) int {
	if a.cfg.WebhookURL == "" {
		return 0
	}

	sent := 0
	for _, alert := range alerts {
		log := zap.L().With(
			zap.String("type", string(alert.Type)),
			zap.String("severity", alert.Severity),
		)
		if err := a.post(ctx, webhookPayload{
			Source: "visibility-cli",
			Text:   fmt.Sprintf("[%s] %s", alert.Severity, alert.Message),
			Alert:  alert,
		}); err != nil {
			log.Error("monitoring: alert delivery failed", zap.Error(err))
			continue
		}
		log.Info("monitoring: alert delivered")
		sent++
	}
	return sent
}

func (a *Alerter) post(ctx context.Context, payload webhookPayload) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return eris.Wrap(err, "monitoring: marshal alert")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.cfg.WebhookURL, bytes.NewReader(body))
	if err != nil {
		return eris.Wrap(err, "monitoring: build webhook request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		return eris.Wrap(err, "monitoring: post webhook")
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode >= 300 {
		return eris.Errorf("monitoring: webhook answered %d", resp.StatusCode)
	}
	return nil
}
