// Package notification delivers signal alerts to external channels
// (Telegram, webhooks) when a tradeable signal is generated.
package notification

import (
	"context"
	"fmt"
	"log/slog"

	"cryptosignals/internal/model"
)

// AlertLevel represents the severity of an alert.
type AlertLevel string

const (
	AlertInfo     AlertLevel = "INFO"
	AlertWarning  AlertLevel = "WARNING"
	AlertCritical AlertLevel = "CRITICAL"
)

// Alert represents a notification to be sent. Fields carry structured
// key/value detail that each backend renders in its own format.
type Alert struct {
	Level   AlertLevel        `json:"level"`
	Title   string            `json:"title"`
	Message string            `json:"message"`
	Fields  map[string]string `json:"fields,omitempty"`
}

// Notifier is the interface for all notification backends.
type Notifier interface {
	// Send delivers an alert. Returns error if delivery fails.
	Send(ctx context.Context, alert Alert) error
}

// SignalAlert builds the alert sent when a tradeable signal is generated.
func SignalAlert(sig *model.Signal) Alert {
	confidence := "-"
	if sig.Confidence != nil {
		confidence = fmt.Sprintf("%d%%", *sig.Confidence)
	}
	return Alert{
		Level:   AlertInfo,
		Title:   fmt.Sprintf("%s %s signal: %s", sig.Symbol, sig.Timeframe, sig.Direction),
		Message: sig.Rationale,
		Fields: map[string]string{
			"market":     sig.MarketID,
			"timeframe":  string(sig.Timeframe),
			"direction":  string(sig.Direction),
			"confidence": confidence,
			"order_flow": fmt.Sprintf("%.1f", sig.Scores.OrderFlow),
			"momentum":   fmt.Sprintf("%.1f", sig.Scores.Momentum),
			"sentiment":  fmt.Sprintf("%.1f", sig.Scores.Sentiment),
		},
	}
}

// Fanout delivers each alert to every configured backend. A backend failure
// is logged and does not block the others.
type Fanout struct {
	backends []Notifier
	log      *slog.Logger
}

// NewFanout creates a fanout over the given backends.
func NewFanout(log *slog.Logger, backends ...Notifier) *Fanout {
	return &Fanout{backends: backends, log: log}
}

func (f *Fanout) Send(ctx context.Context, alert Alert) error {
	for _, n := range f.backends {
		if err := n.Send(ctx, alert); err != nil {
			f.log.Warn("alert delivery failed",
				slog.String("backend", fmt.Sprintf("%T", n)),
				slog.String("title", alert.Title),
				slog.String("error", err.Error()))
		}
	}
	return nil
}

// LogNotifier logs alerts instead of sending them (useful for development).
type LogNotifier struct {
	log *slog.Logger
}

// NewLogNotifier creates a log-based notifier.
func NewLogNotifier(log *slog.Logger) *LogNotifier {
	return &LogNotifier{log: log}
}

func (n *LogNotifier) Send(ctx context.Context, alert Alert) error {
	n.log.Info("alert",
		slog.String("level", string(alert.Level)),
		slog.String("title", alert.Title),
		slog.String("message", alert.Message))
	return nil
}
