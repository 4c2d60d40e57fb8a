package consumer

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"whaled/internal/platform/kafka"
	audit "whaled/pkg/platform/audit"
)

// LogHandler writes audit events to the structured log at a fixed level.
// Issuance events are the ledger's paper trail; security events surface at
// warn so they stand out in aggregation.
type LogHandler struct {
	logger *slog.Logger
	level  slog.Level
}

// NewLogHandler creates a handler logging at the given level.
func NewLogHandler(logger *slog.Logger, level slog.Level) *LogHandler {
	return &LogHandler{logger: logger, level: level}
}

// Handle decodes the event and logs it.
func (h *LogHandler) Handle(ctx context.Context, msg *kafka.Message) error {
	var event audit.Event
	if err := json.Unmarshal(msg.Value, &event); err != nil {
		return fmt.Errorf("decode audit event: %w", err)
	}

	attrs := []any{
		"action", event.Action,
		"category", string(event.Category),
		"actor", event.ActorID,
	}
	if event.TokenID != nil {
		attrs = append(attrs, "token_id", *event.TokenID)
	}
	if event.Owner != "" {
		attrs = append(attrs, "owner", event.Owner)
	}
	if event.Reason != "" {
		attrs = append(attrs, "reason", event.Reason)
	}

	h.logger.Log(ctx, h.level, "audit event", attrs...)
	return nil
}

// MetricsHandler counts consumed audit events by action. Wrap it around
// another handler to observe the stream without changing behaviour.
type MetricsHandler struct {
	next   CategoryHandler
	events *prometheus.CounterVec
}

// NewMetricsHandler creates a counting handler delegating to next.
func NewMetricsHandler(next CategoryHandler) *MetricsHandler {
	return &MetricsHandler{
		next: next,
		events: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "whaled_audit_events_consumed_total",
			Help: "Audit events consumed from the stream, by action.",
		}, []string{"action"}),
	}
}

// Handle counts the event and delegates.
func (h *MetricsHandler) Handle(ctx context.Context, msg *kafka.Message) error {
	var event audit.Event
	if err := json.Unmarshal(msg.Value, &event); err == nil {
		h.events.WithLabelValues(event.Action).Inc()
	}
	return h.next.Handle(ctx, msg)
}
