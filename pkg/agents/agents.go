// Copyright 2026 © The Strata Authors
// SPDX-License-Identifier: Apache-2.0

// Package agents implements the local agent execution provider.
//
// A turn runs the full loop: input shields, memory retrieval, inference,
// output shields, persistence. A shield firing at error level short-circuits
// the turn with a refusal message; the turn is still recorded, verdict
// included, so the session history shows what was blocked and why.
package agents

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/strata-ai/strata/pkg/api"
	"github.com/strata-ai/strata/pkg/errors"
	"github.com/strata-ai/strata/pkg/telemetry"
)

const (
	agentKeyPrefix   = "agents:"
	sessionKeyPrefix = "sessions:"

	// retrievalK bounds how many chunks each memory bank contributes to a
	// turn's context.
	retrievalK = 5
)

// Config is the provider-config bag of an inline::local agents binding.
type Config struct {
	// DBPath locates the SQLite session store; empty means in-memory.
	DBPath string `yaml:"db_path"`
}

// Engine executes agents against the stack's own capabilities.
type Engine struct {
	store     KVStore
	inference api.Inference
	safety    api.Safety
	memory    api.Memory
	tracer    trace.Tracer

	// Turns on one session read-modify-write its history; the per-session
	// lock serializes them so no turn is lost.
	mu       sync.Mutex
	sessions map[string]*sync.Mutex
}

// NewEngine creates an agent engine. Safety and memory may be nil when the
// stack does not carry those groups; agents that reference shields or banks
// then fail their turns with a routing error.
func NewEngine(store KVStore, inference api.Inference, safety api.Safety, memory api.Memory) *Engine {
	return &Engine{
		store:     store,
		inference: inference,
		safety:    safety,
		memory:    memory,
		tracer:    otel.Tracer("strata/agents"),
		sessions:  make(map[string]*sync.Mutex),
	}
}

func (e *Engine) lockSession(sessionID string) func() {
	e.mu.Lock()
	lock, ok := e.sessions[sessionID]
	if !ok {
		lock = &sync.Mutex{}
		e.sessions[sessionID] = lock
	}
	e.mu.Unlock()
	lock.Lock()
	return lock.Unlock
}

// CreateAgent validates and persists the agent configuration.
func (e *Engine) CreateAgent(ctx context.Context, req api.CreateAgentRequest) (*api.CreateAgentResponse, error) {
	if req.Config.Model == "" {
		return nil, errors.Newf(errors.CodeInvalidConfig, "agent config needs a model")
	}
	agentID := uuid.NewString()
	if err := e.store.Set(ctx, agentKeyPrefix+agentID, req.Config); err != nil {
		return nil, err
	}
	return &api.CreateAgentResponse{AgentID: agentID}, nil
}

// CreateSession opens a session owned by the agent.
func (e *Engine) CreateSession(ctx context.Context, req api.CreateSessionRequest) (*api.CreateSessionResponse, error) {
	if _, err := e.agentConfig(ctx, req.AgentID); err != nil {
		return nil, err
	}
	session := api.Session{
		SessionID:   uuid.NewString(),
		SessionName: req.SessionName,
		AgentID:     req.AgentID,
		Turns:       []api.Turn{},
		StartedAt:   time.Now().UTC(),
	}
	if err := e.store.Set(ctx, sessionKeyPrefix+session.SessionID, session); err != nil {
		return nil, err
	}
	return &api.CreateSessionResponse{SessionID: session.SessionID}, nil
}

// CreateTurn runs one full agent turn and appends it to the session.
func (e *Engine) CreateTurn(ctx context.Context, req api.TurnRequest) (*api.Turn, error) {
	cfg, err := e.agentConfig(ctx, req.AgentID)
	if err != nil {
		return nil, err
	}

	unlock := e.lockSession(req.SessionID)
	defer unlock()

	session, err := e.session(ctx, req.AgentID, req.SessionID)
	if err != nil {
		return nil, err
	}
	if len(req.Messages) == 0 {
		return nil, errors.Newf(errors.CodeContractViolation, "turn needs at least one message")
	}

	turn := api.Turn{
		TurnID:        uuid.NewString(),
		SessionID:     session.SessionID,
		InputMessages: req.Messages,
		StartedAt:     time.Now().UTC(),
	}

	ctx, span := e.tracer.Start(ctx, "agents.turn",
		trace.WithAttributes(telemetry.TurnAttributes(req.AgentID, session.SessionID, turn.TurnID)...))
	defer span.End()

	output, verdict, err := e.runTurn(ctx, cfg, session, req.Messages)
	if err != nil {
		return nil, err
	}
	turn.Output = output
	turn.Verdict = verdict
	turn.CompletedAt = time.Now().UTC()

	session.Turns = append(session.Turns, turn)
	if err := e.store.Set(ctx, sessionKeyPrefix+session.SessionID, session); err != nil {
		return nil, err
	}

	if verdict != nil {
		span.SetAttributes(attribute.String(telemetry.AttrViolationLevel, string(verdict.ViolationLevel)))
		slog.WarnContext(ctx, "turn gated by shield",
			"agent_id", req.AgentID, "turn_id", turn.TurnID,
			"violation_level", verdict.ViolationLevel)
	}
	return &turn, nil
}

// GetSession returns the session with its turn history.
func (e *Engine) GetSession(ctx context.Context, req api.GetSessionRequest) (*api.Session, error) {
	return e.session(ctx, req.AgentID, req.SessionID)
}

// Close releases the session store.
func (e *Engine) Close() error {
	if c, ok := e.store.(api.Closer); ok {
		return c.Close()
	}
	return nil
}

// runTurn executes the shielded loop. An error-level verdict on input or
// output yields a refusal message and the verdict; other errors propagate.
func (e *Engine) runTurn(ctx context.Context, cfg api.AgentConfig, session *api.Session, input []api.Message) (api.Message, *api.ShieldVerdict, error) {
	if verdict, err := e.runShields(ctx, cfg.InputShields, input); err != nil {
		return api.Message{}, nil, err
	} else if verdict != nil {
		return refusal(verdict), verdict, nil
	}

	messages, err := e.buildContext(ctx, cfg, session, input)
	if err != nil {
		return api.Message{}, nil, err
	}

	resp, err := e.inference.ChatCompletion(ctx, api.ChatCompletionRequest{
		Model:          cfg.Model,
		Messages:       messages,
		SamplingParams: cfg.SamplingParams,
	})
	if err != nil {
		return api.Message{}, nil, err
	}
	output := resp.Completion

	if verdict, err := e.runShields(ctx, cfg.OutputShields, []api.Message{output}); err != nil {
		return api.Message{}, nil, err
	} else if verdict != nil {
		return refusal(verdict), verdict, nil
	}
	return output, nil, nil
}

// runShields evaluates each shield over the messages. It returns a non-nil
// verdict only for error-level violations; warns pass through.
func (e *Engine) runShields(ctx context.Context, shields []string, messages []api.Message) (*api.ShieldVerdict, error) {
	if len(shields) == 0 {
		return nil, nil
	}
	if e.safety == nil {
		return nil, errors.Newf(errors.CodeNoActiveProvider, "agent references shields but no safety provider is bound")
	}
	for _, shieldType := range shields {
		resp, err := e.safety.RunShield(ctx, api.RunShieldRequest{ShieldType: shieldType, Messages: messages})
		if err != nil {
			return nil, err
		}
		if resp.Verdict.ViolationLevel == api.ViolationError {
			v := resp.Verdict
			return &v, nil
		}
	}
	return nil, nil
}

// buildContext assembles the model input: instructions, retrieved memory,
// prior turns, then the new messages.
func (e *Engine) buildContext(ctx context.Context, cfg api.AgentConfig, session *api.Session, input []api.Message) ([]api.Message, error) {
	var messages []api.Message
	if cfg.Instructions != "" {
		messages = append(messages, api.Message{Role: api.RoleSystem, Content: cfg.Instructions})
	}

	if len(cfg.MemoryBankIDs) > 0 {
		retrieved, err := e.retrieve(ctx, cfg, lastUserContent(input))
		if err != nil {
			return nil, err
		}
		if retrieved != "" {
			messages = append(messages, api.Message{
				Role:    api.RoleSystem,
				Content: "Relevant context retrieved from memory:\n" + retrieved,
			})
		}
	}

	for _, turn := range session.Turns {
		messages = append(messages, turn.InputMessages...)
		messages = append(messages, turn.Output)
	}
	return append(messages, input...), nil
}

// retrieve queries every configured bank and concatenates the chunks.
func (e *Engine) retrieve(ctx context.Context, cfg api.AgentConfig, query string) (string, error) {
	if e.memory == nil {
		return "", errors.Newf(errors.CodeNoActiveProvider, "agent references memory banks but no memory provider is bound")
	}
	if query == "" {
		return "", nil
	}
	var b strings.Builder
	for _, bankID := range cfg.MemoryBankIDs {
		resp, err := e.memory.Query(ctx, api.QueryRequest{
			BankID:  bankID,
			Queries: []string{query},
			K:       retrievalK,
		})
		if err != nil {
			return "", err
		}
		for _, chunk := range resp.Chunks {
			fmt.Fprintf(&b, "- %s\n", chunk.Content)
		}
	}
	return b.String(), nil
}

func (e *Engine) agentConfig(ctx context.Context, agentID string) (api.AgentConfig, error) {
	var cfg api.AgentConfig
	if err := e.store.Get(ctx, agentKeyPrefix+agentID, &cfg); err != nil {
		if errors.Is(err, errors.CodeNotFound) {
			return cfg, errors.Newf(errors.CodeNotFound, "agent %q not found", agentID)
		}
		return cfg, err
	}
	return cfg, nil
}

func (e *Engine) session(ctx context.Context, agentID, sessionID string) (*api.Session, error) {
	var session api.Session
	if err := e.store.Get(ctx, sessionKeyPrefix+sessionID, &session); err != nil {
		if errors.Is(err, errors.CodeNotFound) {
			return nil, errors.Newf(errors.CodeNotFound, "session %q not found", sessionID)
		}
		return nil, err
	}
	// Sessions are scoped to their owning agent.
	if session.AgentID != agentID {
		return nil, errors.Newf(errors.CodeNotFound, "session %q not found for agent %q", sessionID, agentID)
	}
	return &session, nil
}

func refusal(verdict *api.ShieldVerdict) api.Message {
	msg := verdict.UserMessage
	if msg == "" {
		msg = "I can't help with that request."
	}
	return api.Message{Role: api.RoleAssistant, Content: msg}
}

func lastUserContent(messages []api.Message) string {
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == api.RoleUser {
			return messages[i].Content
		}
	}
	return ""
}

var _ api.Agents = (*Engine)(nil)
