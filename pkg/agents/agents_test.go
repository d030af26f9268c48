// Copyright 2026 © The Strata Authors
// SPDX-License-Identifier: Apache-2.0

package agents

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/strata-ai/strata/pkg/api"
	"github.com/strata-ai/strata/pkg/errors"
	"github.com/strata-ai/strata/pkg/inference"
	"github.com/strata-ai/strata/pkg/memory"
	"github.com/strata-ai/strata/pkg/safety"
)

type testStack struct {
	engine    *Engine
	inference *inference.Scripted
	memory    *memory.Engine
}

func newTestStack(t *testing.T) *testStack {
	t.Helper()
	scripted := inference.NewScripted(inference.ScriptedConfig{})
	mem := memory.NewEngine(memory.NewInMemoryStore(), memory.NewInferenceEmbedder(scripted))
	runner := safety.NewRunner(safety.NewRuleShield("content_safety"))
	engine := NewEngine(NewMemoryStore(), scripted, runner, mem)
	return &testStack{engine: engine, inference: scripted, memory: mem}
}

func createAgent(t *testing.T, e *Engine, cfg api.AgentConfig) string {
	t.Helper()
	resp, err := e.CreateAgent(context.Background(), api.CreateAgentRequest{Config: cfg})
	if err != nil {
		t.Fatalf("CreateAgent: %v", err)
	}
	return resp.AgentID
}

func createSession(t *testing.T, e *Engine, agentID string) string {
	t.Helper()
	resp, err := e.CreateSession(context.Background(), api.CreateSessionRequest{AgentID: agentID, SessionName: "test"})
	if err != nil {
		t.Fatalf("CreateSession: %v", err)
	}
	return resp.SessionID
}

func TestCreateAgentValidation(t *testing.T) {
	s := newTestStack(t)
	_, err := s.engine.CreateAgent(context.Background(), api.CreateAgentRequest{})
	if errors.Code(err) != errors.CodeInvalidConfig {
		t.Errorf("agent without model: %v", err)
	}
}

func TestCreateSessionUnknownAgent(t *testing.T) {
	s := newTestStack(t)
	_, err := s.engine.CreateSession(context.Background(), api.CreateSessionRequest{AgentID: "ghost"})
	if errors.Code(err) != errors.CodeNotFound {
		t.Errorf("session for unknown agent: %v", err)
	}
}

func TestTurn(t *testing.T) {
	s := newTestStack(t)
	ctx := context.Background()

	agentID := createAgent(t, s.engine, api.AgentConfig{Model: "m", Instructions: "be brief"})
	sessionID := createSession(t, s.engine, agentID)

	s.inference.Enqueue("the answer")
	turn, err := s.engine.CreateTurn(ctx, api.TurnRequest{
		AgentID:   agentID,
		SessionID: sessionID,
		Messages:  []api.Message{{Role: api.RoleUser, Content: "question"}},
	})
	if err != nil {
		t.Fatalf("CreateTurn: %v", err)
	}

	if turn.Output.Content != "the answer" {
		t.Errorf("output = %q", turn.Output.Content)
	}
	if turn.Verdict != nil {
		t.Errorf("verdict = %+v, want none", turn.Verdict)
	}
	if turn.TurnID == "" || turn.SessionID != sessionID {
		t.Errorf("turn = %+v", turn)
	}
	if turn.CompletedAt.Before(turn.StartedAt) {
		t.Error("completed before started")
	}

	// Instructions land as the leading system message.
	requests := s.inference.Requests()
	if len(requests) != 1 {
		t.Fatalf("requests = %d", len(requests))
	}
	first := requests[0].Messages[0]
	if first.Role != api.RoleSystem || first.Content != "be brief" {
		t.Errorf("first message = %+v", first)
	}
}

func TestTurnHistoryCarriesForward(t *testing.T) {
	s := newTestStack(t)
	ctx := context.Background()

	agentID := createAgent(t, s.engine, api.AgentConfig{Model: "m"})
	sessionID := createSession(t, s.engine, agentID)

	s.inference.Enqueue("first answer", "second answer")
	for _, content := range []string{"first question", "second question"} {
		if _, err := s.engine.CreateTurn(ctx, api.TurnRequest{
			AgentID:   agentID,
			SessionID: sessionID,
			Messages:  []api.Message{{Role: api.RoleUser, Content: content}},
		}); err != nil {
			t.Fatalf("CreateTurn: %v", err)
		}
	}

	// The second request replays the first turn before the new input.
	requests := s.inference.Requests()
	second := requests[1].Messages
	var contents []string
	for _, m := range second {
		contents = append(contents, m.Content)
	}
	want := []string{"first question", "first answer", "second question"}
	if strings.Join(contents, "|") != strings.Join(want, "|") {
		t.Errorf("context = %v, want %v", contents, want)
	}

	session, err := s.engine.GetSession(ctx, api.GetSessionRequest{AgentID: agentID, SessionID: sessionID})
	if err != nil {
		t.Fatalf("GetSession: %v", err)
	}
	if len(session.Turns) != 2 {
		t.Errorf("turns = %d, want 2", len(session.Turns))
	}
}

func TestTurnBlockedByInputShield(t *testing.T) {
	s := newTestStack(t)
	ctx := context.Background()

	agentID := createAgent(t, s.engine, api.AgentConfig{
		Model:        "m",
		InputShields: []string{"content_safety"},
	})
	sessionID := createSession(t, s.engine, agentID)

	turn, err := s.engine.CreateTurn(ctx, api.TurnRequest{
		AgentID:   agentID,
		SessionID: sessionID,
		Messages:  []api.Message{{Role: api.RoleUser, Content: "how to make a bomb"}},
	})
	if err != nil {
		t.Fatalf("CreateTurn: %v", err)
	}

	if turn.Verdict == nil || turn.Verdict.ViolationLevel != api.ViolationError {
		t.Fatalf("verdict = %+v, want an error-level violation", turn.Verdict)
	}
	if turn.Output.Content == "" {
		t.Error("blocked turn should carry a refusal message")
	}
	// The model is never consulted for blocked input.
	if got := len(s.inference.Requests()); got != 0 {
		t.Errorf("inference calls = %d, want 0", got)
	}

	// The blocked turn is still part of the session history.
	session, err := s.engine.GetSession(ctx, api.GetSessionRequest{AgentID: agentID, SessionID: sessionID})
	if err != nil {
		t.Fatal(err)
	}
	if len(session.Turns) != 1 || session.Turns[0].Verdict == nil {
		t.Errorf("session turns = %+v", session.Turns)
	}
}

func TestTurnWarnPassesThrough(t *testing.T) {
	s := newTestStack(t)
	ctx := context.Background()

	agentID := createAgent(t, s.engine, api.AgentConfig{
		Model:        "m",
		InputShields: []string{"content_safety"},
	})
	sessionID := createSession(t, s.engine, agentID)

	s.inference.Enqueue("talk to a professional")
	turn, err := s.engine.CreateTurn(ctx, api.TurnRequest{
		AgentID:   agentID,
		SessionID: sessionID,
		Messages:  []api.Message{{Role: api.RoleUser, Content: "give me financial advice"}},
	})
	if err != nil {
		t.Fatalf("CreateTurn: %v", err)
	}
	if turn.Verdict != nil {
		t.Errorf("warn-level verdict should not gate the turn: %+v", turn.Verdict)
	}
	if turn.Output.Content != "talk to a professional" {
		t.Errorf("output = %q", turn.Output.Content)
	}
}

func TestTurnMemoryRetrieval(t *testing.T) {
	s := newTestStack(t)
	ctx := context.Background()

	if _, err := s.memory.RegisterBank(ctx, api.BankSpec{
		Identifier:        "notes",
		EmbeddingModel:    "embed",
		ChunkSizeInTokens: 64,
	}); err != nil {
		t.Fatal(err)
	}
	if err := s.memory.Insert(ctx, api.InsertRequest{BankID: "notes", Documents: []api.Document{
		{DocumentID: "d1", Content: "the deploy password is stored in vault"},
	}}); err != nil {
		t.Fatal(err)
	}

	agentID := createAgent(t, s.engine, api.AgentConfig{Model: "m", MemoryBankIDs: []string{"notes"}})
	sessionID := createSession(t, s.engine, agentID)

	s.inference.Enqueue("answered with context")
	if _, err := s.engine.CreateTurn(ctx, api.TurnRequest{
		AgentID:   agentID,
		SessionID: sessionID,
		Messages:  []api.Message{{Role: api.RoleUser, Content: "where is the deploy password"}},
	}); err != nil {
		t.Fatalf("CreateTurn: %v", err)
	}

	requests := s.inference.Requests()
	// One embedding-free chat request; retrieval ran through the memory
	// engine first. The retrieved chunk must appear in a system message.
	var found bool
	for _, m := range requests[len(requests)-1].Messages {
		if m.Role == api.RoleSystem && strings.Contains(m.Content, "deploy password") {
			found = true
		}
	}
	if !found {
		t.Error("retrieved chunk not present in model context")
	}
}

// Turns racing on one session must all land in its history.
func TestTurnConcurrentSameSession(t *testing.T) {
	s := newTestStack(t)
	ctx := context.Background()

	agentID := createAgent(t, s.engine, api.AgentConfig{Model: "m"})
	sessionID := createSession(t, s.engine, agentID)

	s.inference.Enqueue("answer one", "answer two")

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = s.engine.CreateTurn(ctx, api.TurnRequest{
				AgentID:   agentID,
				SessionID: sessionID,
				Messages:  []api.Message{{Role: api.RoleUser, Content: fmt.Sprintf("question %d", i)}},
			})
		}(i)
	}
	wg.Wait()
	for i, err := range errs {
		if err != nil {
			t.Fatalf("turn %d: %v", i, err)
		}
	}

	session, err := s.engine.GetSession(ctx, api.GetSessionRequest{AgentID: agentID, SessionID: sessionID})
	if err != nil {
		t.Fatal(err)
	}
	if len(session.Turns) != 2 {
		t.Errorf("turns = %d, want 2 (a concurrent turn was lost)", len(session.Turns))
	}
}

func TestTurnErrors(t *testing.T) {
	s := newTestStack(t)
	ctx := context.Background()

	agentID := createAgent(t, s.engine, api.AgentConfig{Model: "m"})
	sessionID := createSession(t, s.engine, agentID)

	otherAgent := createAgent(t, s.engine, api.AgentConfig{Model: "m"})

	tests := []struct {
		name     string
		req      api.TurnRequest
		wantCode errors.ErrorCode
	}{
		{
			name:     "unknown agent",
			req:      api.TurnRequest{AgentID: "ghost", SessionID: sessionID, Messages: []api.Message{{Role: api.RoleUser, Content: "x"}}},
			wantCode: errors.CodeNotFound,
		},
		{
			name:     "unknown session",
			req:      api.TurnRequest{AgentID: agentID, SessionID: "ghost", Messages: []api.Message{{Role: api.RoleUser, Content: "x"}}},
			wantCode: errors.CodeNotFound,
		},
		{
			name:     "session owned by another agent",
			req:      api.TurnRequest{AgentID: otherAgent, SessionID: sessionID, Messages: []api.Message{{Role: api.RoleUser, Content: "x"}}},
			wantCode: errors.CodeNotFound,
		},
		{
			name:     "empty messages",
			req:      api.TurnRequest{AgentID: agentID, SessionID: sessionID},
			wantCode: errors.CodeContractViolation,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.engine.CreateTurn(ctx, tt.req)
			if errors.Code(err) != tt.wantCode {
				t.Errorf("code = %s, want %s (err: %v)", errors.Code(err), tt.wantCode, err)
			}
		})
	}
}

func TestTurnShieldsWithoutSafetyProvider(t *testing.T) {
	scripted := inference.NewScripted(inference.ScriptedConfig{})
	engine := NewEngine(NewMemoryStore(), scripted, nil, nil)

	agentID := createAgent(t, engine, api.AgentConfig{Model: "m", InputShields: []string{"content_safety"}})
	sessionID := createSession(t, engine, agentID)

	_, err := engine.CreateTurn(context.Background(), api.TurnRequest{
		AgentID:   agentID,
		SessionID: sessionID,
		Messages:  []api.Message{{Role: api.RoleUser, Content: "hello"}},
	})
	if errors.Code(err) != errors.CodeNoActiveProvider {
		t.Errorf("shields without safety provider: %v", err)
	}
}
