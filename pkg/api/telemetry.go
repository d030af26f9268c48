// Copyright 2026 © The Strata Authors
// SPDX-License-Identifier: Apache-2.0

package api

import (
	"context"
	"time"
)

// EventSeverity classifies telemetry events.
type EventSeverity string

const (
	SeverityDebug EventSeverity = "debug"
	SeverityInfo  EventSeverity = "info"
	SeverityWarn  EventSeverity = "warn"
	SeverityError EventSeverity = "error"
)

// Event is a structured telemetry record emitted by stack components or
// external callers.
type Event struct {
	TraceID    string            `json:"trace_id,omitempty"`
	SpanID     string            `json:"span_id,omitempty"`
	Type       string            `json:"type"`
	Severity   EventSeverity     `json:"severity,omitempty"`
	Message    string            `json:"message"`
	Attributes map[string]string `json:"attributes,omitempty"`
	Timestamp  time.Time         `json:"timestamp,omitzero"`
}

// Telemetry is the capability contract for event sinks.
type Telemetry interface {
	LogEvent(ctx context.Context, event Event) error
}
