// Copyright 2026 © The Strata Authors
// SPDX-License-Identifier: Apache-2.0

// Package router dispatches capability calls to the adapter bound in the
// provider registry.
//
// The router performs no business logic: it decodes the payload into the
// operation's declared request type, forwards it to the adapter, and passes
// back exactly what the adapter returns. Decoding is strict in both
// directions — a shape mismatch is a contract violation, never a silent
// coercion. The router never retries; retry policy belongs to the caller.
package router

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/strata-ai/strata/pkg/api"
	"github.com/strata-ai/strata/pkg/errors"
	"github.com/strata-ai/strata/pkg/registry"
	"github.com/strata-ai/strata/pkg/telemetry"
)

// Router routes capability calls into a resolved provider registry.
type Router struct {
	reg     *registry.Registry
	tracer  trace.Tracer
	metrics *telemetry.RouterMetrics
}

// Option configures the router.
type Option func(*Router)

// WithMetrics attaches dispatch metrics.
func WithMetrics(m *telemetry.RouterMetrics) Option {
	return func(r *Router) { r.metrics = m }
}

// New creates a router over a resolved registry.
func New(reg *registry.Registry, opts ...Option) *Router {
	r := &Router{
		reg:    reg,
		tracer: otel.Tracer("strata/router"),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Registry exposes the underlying registry.
func (r *Router) Registry() *registry.Registry { return r.reg }

// operation adapts one typed contract method to the uniform dispatch shape.
type operation func(ctx context.Context, payload []byte) (any, error)

// Dispatch forwards one capability call to the active adapter of the group
// and returns the encoded result. Payload may be empty for operations
// without parameters.
func (r *Router) Dispatch(ctx context.Context, group api.CapabilityGroup, op string, payload []byte) (json.RawMessage, error) {
	start := time.Now()
	ctx, span := r.tracer.Start(ctx, "router.dispatch",
		trace.WithAttributes(
			attribute.String("strata.capability", string(group)),
			attribute.String("strata.operation", op),
		))
	defer span.End()

	result, provider, err := r.dispatch(ctx, group, op, payload)
	r.record(ctx, group, op, provider, time.Since(start), err)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, string(errors.Code(err)))
		return nil, err
	}
	return result, nil
}

func (r *Router) dispatch(ctx context.Context, group api.CapabilityGroup, op string, payload []byte) (json.RawMessage, string, error) {
	if !group.Valid() {
		return nil, "", errors.Newf(errors.CodeNoActiveProvider, "unknown capability group %q", group)
	}
	impl, provider, err := r.reg.Active(group)
	if err != nil {
		return nil, "", err
	}

	table, err := operationTable(group, impl)
	if err != nil {
		return nil, provider, errors.Annotate(err, string(group), provider)
	}
	fn, ok := table[op]
	if !ok {
		return nil, provider, errors.Newf(errors.CodeUnknownOperation,
			"capability group %q has no operation %q", group, op)
	}

	result, err := fn(ctx, payload)
	if err != nil {
		return nil, provider, errors.Annotate(err, string(group), provider)
	}
	encoded, err := json.Marshal(result)
	if err != nil {
		return nil, provider, errors.New(errors.CodeContractViolation, "encode response", err).
			WithProvider(string(group), provider)
	}
	return encoded, provider, nil
}

func (r *Router) record(ctx context.Context, group api.CapabilityGroup, op, provider string, d time.Duration, err error) {
	if r.metrics == nil {
		return
	}
	r.metrics.RecordDispatch(ctx, string(group), op, provider, d, err)
}

// operationTable returns the operation set of a group, bound to the adapter.
// An adapter that does not satisfy the group's contract is a contract
// violation surfaced at call time.
func operationTable(group api.CapabilityGroup, impl any) (map[string]operation, error) {
	switch group {
	case api.GroupInference:
		p, ok := impl.(api.Inference)
		if !ok {
			return nil, contractErr(group)
		}
		return inferenceOps(p), nil
	case api.GroupSafety:
		p, ok := impl.(api.Safety)
		if !ok {
			return nil, contractErr(group)
		}
		return safetyOps(p), nil
	case api.GroupMemory:
		p, ok := impl.(api.Memory)
		if !ok {
			return nil, contractErr(group)
		}
		return memoryOps(p), nil
	case api.GroupAgents:
		p, ok := impl.(api.Agents)
		if !ok {
			return nil, contractErr(group)
		}
		return agentsOps(p), nil
	case api.GroupTelemetry:
		p, ok := impl.(api.Telemetry)
		if !ok {
			return nil, contractErr(group)
		}
		return telemetryOps(p), nil
	case api.GroupToolRuntime:
		p, ok := impl.(api.ToolRuntime)
		if !ok {
			return nil, contractErr(group)
		}
		return toolOps(p), nil
	}
	return nil, errors.Newf(errors.CodeNoActiveProvider, "unknown capability group %q", group)
}

func contractErr(group api.CapabilityGroup) error {
	return errors.Newf(errors.CodeContractViolation, "adapter does not satisfy the %q contract", group)
}

func inferenceOps(p api.Inference) map[string]operation {
	return map[string]operation{
		OpChatCompletion: typed(func(ctx context.Context, req api.ChatCompletionRequest) (any, error) {
			return p.ChatCompletion(ctx, req)
		}),
		OpCompletion: typed(func(ctx context.Context, req api.CompletionRequest) (any, error) {
			return p.Completion(ctx, req)
		}),
		OpEmbeddings: typed(func(ctx context.Context, req api.EmbeddingsRequest) (any, error) {
			return p.Embeddings(ctx, req)
		}),
	}
}

func safetyOps(p api.Safety) map[string]operation {
	return map[string]operation{
		OpRunShield: typed(func(ctx context.Context, req api.RunShieldRequest) (any, error) {
			return p.RunShield(ctx, req)
		}),
		OpListShields: bare(func(ctx context.Context) (any, error) {
			shields, err := p.ListShields(ctx)
			if err != nil {
				return nil, err
			}
			return shieldList{Shields: shields}, nil
		}),
	}
}

func memoryOps(p api.Memory) map[string]operation {
	return map[string]operation{
		OpRegisterBank: typed(func(ctx context.Context, spec api.BankSpec) (any, error) {
			id, err := p.RegisterBank(ctx, spec)
			if err != nil {
				return nil, err
			}
			return bankRef{BankID: id}, nil
		}),
		OpUnregisterBank: typed(func(ctx context.Context, req bankRef) (any, error) {
			if err := p.UnregisterBank(ctx, req.BankID); err != nil {
				return nil, err
			}
			return empty{}, nil
		}),
		OpListBanks: bare(func(ctx context.Context) (any, error) {
			banks, err := p.ListBanks(ctx)
			if err != nil {
				return nil, err
			}
			return bankList{Banks: banks}, nil
		}),
		OpInsert: typed(func(ctx context.Context, req api.InsertRequest) (any, error) {
			if err := p.Insert(ctx, req); err != nil {
				return nil, err
			}
			return empty{}, nil
		}),
		OpQuery: typed(func(ctx context.Context, req api.QueryRequest) (any, error) {
			return p.Query(ctx, req)
		}),
	}
}

func agentsOps(p api.Agents) map[string]operation {
	return map[string]operation{
		OpCreateAgent: typed(func(ctx context.Context, req api.CreateAgentRequest) (any, error) {
			return p.CreateAgent(ctx, req)
		}),
		OpCreateSession: typed(func(ctx context.Context, req api.CreateSessionRequest) (any, error) {
			return p.CreateSession(ctx, req)
		}),
		OpCreateTurn: typed(func(ctx context.Context, req api.TurnRequest) (any, error) {
			return p.CreateTurn(ctx, req)
		}),
		OpGetSession: typed(func(ctx context.Context, req api.GetSessionRequest) (any, error) {
			return p.GetSession(ctx, req)
		}),
	}
}

func telemetryOps(p api.Telemetry) map[string]operation {
	return map[string]operation{
		OpLogEvent: typed(func(ctx context.Context, ev api.Event) (any, error) {
			if err := p.LogEvent(ctx, ev); err != nil {
				return nil, err
			}
			return empty{}, nil
		}),
	}
}

func toolOps(p api.ToolRuntime) map[string]operation {
	return map[string]operation{
		OpListTools: bare(func(ctx context.Context) (any, error) {
			tools, err := p.ListTools(ctx)
			if err != nil {
				return nil, err
			}
			return toolList{Tools: tools}, nil
		}),
		OpInvokeTool: typed(func(ctx context.Context, inv api.ToolInvocation) (any, error) {
			return p.InvokeTool(ctx, inv)
		}),
	}
}

// typed wraps a handler taking a decoded request. The payload must conform
// to the request shape exactly.
func typed[T any](fn func(ctx context.Context, req T) (any, error)) operation {
	return func(ctx context.Context, payload []byte) (any, error) {
		var req T
		if err := decodeStrict(payload, &req); err != nil {
			return nil, err
		}
		return fn(ctx, req)
	}
}

// bare wraps a handler without parameters. Any non-empty payload beyond an
// empty object is rejected.
func bare(fn func(ctx context.Context) (any, error)) operation {
	return func(ctx context.Context, payload []byte) (any, error) {
		var req empty
		if err := decodeStrict(payload, &req); err != nil {
			return nil, err
		}
		return fn(ctx)
	}
}

// decodeStrict decodes JSON rejecting unknown fields and trailing garbage.
// Empty input decodes as the zero request.
func decodeStrict(data []byte, out any) error {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(out); err != nil {
		return errors.New(errors.CodeContractViolation, "payload does not match operation contract", err)
	}
	if dec.More() {
		return errors.Newf(errors.CodeContractViolation, "trailing data after payload")
	}
	return nil
}

// decodeStrictReader is decodeStrict over a stream (used for HTTP bodies).
func decodeStrictReader(r io.Reader, out any) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return errors.New(errors.CodeTransport, "read payload", err)
	}
	return decodeStrict(data, out)
}

// Wire envelope types for operations whose Go contract is not a single
// request/response struct.
type empty struct{}

type bankRef struct {
	BankID string `json:"bank_id"`
}

type bankList struct {
	Banks []api.BankSpec `json:"banks"`
}

type shieldList struct {
	Shields []string `json:"shields"`
}

type toolList struct {
	Tools []api.ToolDef `json:"tools"`
}
