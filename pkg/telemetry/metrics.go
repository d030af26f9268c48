// Copyright 2026 © The Strata Authors
// SPDX-License-Identifier: Apache-2.0

package telemetry

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/strata-ai/strata/pkg/errors"
)

// RouterMetrics tracks capability dispatch volume, latency and failures.
type RouterMetrics struct {
	// dispatchCounter counts dispatches by capability, operation and provider.
	dispatchCounter metric.Int64Counter

	// dispatchDuration tracks dispatch latency in milliseconds.
	dispatchDuration metric.Float64Histogram

	// errorCounter counts failed dispatches by error code.
	errorCounter metric.Int64Counter
}

// NewRouterMetrics creates the router instruments on the global meter.
func NewRouterMetrics() (*RouterMetrics, error) {
	meter := otel.Meter("strata/router")

	dispatchCounter, err := meter.Int64Counter(
		"strata.router.dispatches",
		metric.WithDescription("Total capability dispatches by group, operation and provider"),
	)
	if err != nil {
		return nil, err
	}

	dispatchDuration, err := meter.Float64Histogram(
		"strata.router.dispatch.duration",
		metric.WithDescription("Capability dispatch latency"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	errorCounter, err := meter.Int64Counter(
		"strata.router.errors",
		metric.WithDescription("Failed dispatches by error code"),
	)
	if err != nil {
		return nil, err
	}

	return &RouterMetrics{
		dispatchCounter:  dispatchCounter,
		dispatchDuration: dispatchDuration,
		errorCounter:     errorCounter,
	}, nil
}

// RecordDispatch records one dispatch outcome. Safe on a nil receiver so
// callers do not need to guard the unconfigured case.
func (m *RouterMetrics) RecordDispatch(ctx context.Context, group, operation, provider string, d time.Duration, err error) {
	if m == nil {
		return
	}
	attrs := []attribute.KeyValue{
		attribute.String(AttrCapability, group),
		attribute.String(AttrOperation, operation),
	}
	if provider != "" {
		attrs = append(attrs, attribute.String(AttrProvider, provider))
	}

	m.dispatchCounter.Add(ctx, 1, metric.WithAttributes(attrs...))
	m.dispatchDuration.Record(ctx, float64(d)/float64(time.Millisecond), metric.WithAttributes(attrs...))

	if err != nil {
		errAttrs := append(attrs, attribute.String(AttrErrorCode, string(errors.Code(err))))
		m.errorCounter.Add(ctx, 1, metric.WithAttributes(errAttrs...))
	}
}
