// Copyright 2026 © The Strata Authors
// SPDX-License-Identifier: Apache-2.0

package telemetry

import (
	"context"
	"io"
	"log/slog"
	"strings"

	"go.opentelemetry.io/otel/trace"

	"github.com/strata-ai/strata/pkg/api"
)

// levelNames maps the spellings accepted in server config and the event
// severities of the telemetry capability onto slog levels. Unknown values
// fall back to info.
var levelNames = map[string]slog.Level{
	"debug":   slog.LevelDebug,
	"info":    slog.LevelInfo,
	"warn":    slog.LevelWarn,
	"warning": slog.LevelWarn,
	"error":   slog.LevelError,
}

func parseLogLevel(name string) slog.Level {
	if level, ok := levelNames[strings.ToLower(strings.TrimSpace(name))]; ok {
		return level
	}
	return slog.LevelInfo
}

// slogLevel maps an event severity onto the level the event sink logs at.
// Severities share the level vocabulary, so the one table serves both.
func slogLevel(severity api.EventSeverity) slog.Level {
	return parseLogLevel(string(severity))
}

// ConfigureSlog installs the process-wide logger: json or text per server
// config, every record stamped with the ambient span context.
func ConfigureSlog(output io.Writer, level, format string) *slog.Logger {
	logger := slog.New(newSlogHandler(output, level, format))
	slog.SetDefault(logger)
	return logger
}

func newSlogHandler(output io.Writer, level, format string) slog.Handler {
	opts := &slog.HandlerOptions{Level: parseLogLevel(level)}
	var base slog.Handler
	if strings.EqualFold(strings.TrimSpace(format), "json") {
		base = slog.NewJSONHandler(output, opts)
	} else {
		base = slog.NewTextHandler(output, opts)
	}
	return traceHandler{next: base}
}

// traceHandler stamps trace_id and span_id onto records logged inside a
// span, so dispatch and turn log lines join up with exported spans. Ids
// already on the record win; the event sink sets them explicitly from the
// event payload.
type traceHandler struct {
	next slog.Handler
}

func (h traceHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.next.Enabled(ctx, level)
}

func (h traceHandler) Handle(ctx context.Context, record slog.Record) error {
	if ctx != nil {
		if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
			record.AddAttrs(absentAttrs(record,
				slog.String("trace_id", sc.TraceID().String()),
				slog.String("span_id", sc.SpanID().String()),
			)...)
		}
	}
	return h.next.Handle(ctx, record)
}

func (h traceHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return traceHandler{next: h.next.WithAttrs(attrs)}
}

func (h traceHandler) WithGroup(name string) slog.Handler {
	return traceHandler{next: h.next.WithGroup(name)}
}

// absentAttrs filters candidates down to keys the record does not carry yet.
func absentAttrs(record slog.Record, candidates ...slog.Attr) []slog.Attr {
	present := make(map[string]bool, record.NumAttrs())
	record.Attrs(func(attr slog.Attr) bool {
		present[attr.Key] = true
		return true
	})
	out := make([]slog.Attr, 0, len(candidates))
	for _, attr := range candidates {
		if !present[attr.Key] {
			out = append(out, attr)
		}
	}
	return out
}
