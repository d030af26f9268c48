// Copyright 2026 © The Strata Authors
// SPDX-License-Identifier: Apache-2.0

package telemetry

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/strata-ai/strata/pkg/api"
)

// EventSink is the inline telemetry capability provider. Events land on the
// structured logger and increment an event counter, so they flow to
// whichever exporter the SDK was initialized with.
type EventSink struct {
	logger  *slog.Logger
	counter metric.Int64Counter
}

// NewEventSink creates the sink on the default logger and global meter.
func NewEventSink() (*EventSink, error) {
	counter, err := otel.Meter("strata/telemetry").Int64Counter(
		"strata.events.total",
		metric.WithDescription("Telemetry events by type and severity"),
	)
	if err != nil {
		return nil, err
	}
	return &EventSink{logger: slog.Default(), counter: counter}, nil
}

// LogEvent records one event.
func (s *EventSink) LogEvent(ctx context.Context, event api.Event) error {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	severity := event.Severity
	if severity == "" {
		severity = api.SeverityInfo
	}

	attrs := []any{
		slog.String("event_type", event.Type),
		slog.Time("event_time", event.Timestamp),
	}
	if event.TraceID != "" {
		attrs = append(attrs, slog.String("trace_id", event.TraceID))
	}
	if event.SpanID != "" {
		attrs = append(attrs, slog.String("span_id", event.SpanID))
	}
	for k, v := range event.Attributes {
		attrs = append(attrs, slog.String(k, v))
	}
	s.logger.Log(ctx, slogLevel(severity), event.Message, attrs...)

	s.counter.Add(ctx, 1, metric.WithAttributes(
		attribute.String("event.type", event.Type),
		attribute.String("event.severity", string(severity)),
	))
	return nil
}

var _ api.Telemetry = (*EventSink)(nil)
