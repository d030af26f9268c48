// Copyright 2026 © The Strata Authors
// SPDX-License-Identifier: Apache-2.0

package api

import (
	"context"
	"time"
)

// AgentConfig declares how an agent behaves: its model, instructions, which
// shields gate its input and output, and which memory banks it retrieves
// from before answering.
type AgentConfig struct {
	Model          string         `json:"model"`
	Instructions   string         `json:"instructions,omitempty"`
	InputShields   []string       `json:"input_shields,omitempty"`
	OutputShields  []string       `json:"output_shields,omitempty"`
	MemoryBankIDs  []string       `json:"memory_bank_ids,omitempty"`
	SamplingParams SamplingParams `json:"sampling_params,omitempty"`
}

// CreateAgentRequest registers a new agent.
type CreateAgentRequest struct {
	Config AgentConfig `json:"agent_config"`
}

// CreateAgentResponse carries the new agent id.
type CreateAgentResponse struct {
	AgentID string `json:"agent_id"`
}

// CreateSessionRequest opens a named session for an agent.
type CreateSessionRequest struct {
	AgentID     string `json:"agent_id"`
	SessionName string `json:"session_name"`
}

// CreateSessionResponse carries the new session id.
type CreateSessionResponse struct {
	SessionID string `json:"session_id"`
}

// TurnRequest submits user messages to a session for one agent turn.
type TurnRequest struct {
	AgentID   string    `json:"agent_id"`
	SessionID string    `json:"session_id"`
	Messages  []Message `json:"messages"`
}

// Turn records one request/response exchange, including any shield verdict
// that aborted it.
type Turn struct {
	TurnID        string         `json:"turn_id"`
	SessionID     string         `json:"session_id"`
	InputMessages []Message      `json:"input_messages"`
	Output        Message        `json:"output_message"`
	Verdict       *ShieldVerdict `json:"shield_verdict,omitempty"`
	StartedAt     time.Time      `json:"started_at"`
	CompletedAt   time.Time      `json:"completed_at"`
}

// Session is a named sequence of turns owned by one agent.
type Session struct {
	SessionID   string    `json:"session_id"`
	SessionName string    `json:"session_name"`
	AgentID     string    `json:"agent_id"`
	Turns       []Turn    `json:"turns"`
	StartedAt   time.Time `json:"started_at"`
}

// GetSessionRequest fetches a session with its turn history.
type GetSessionRequest struct {
	AgentID   string `json:"agent_id"`
	SessionID string `json:"session_id"`
}

// Agents is the capability contract for agent execution providers.
type Agents interface {
	CreateAgent(ctx context.Context, req CreateAgentRequest) (*CreateAgentResponse, error)
	CreateSession(ctx context.Context, req CreateSessionRequest) (*CreateSessionResponse, error)
	CreateTurn(ctx context.Context, req TurnRequest) (*Turn, error)
	GetSession(ctx context.Context, req GetSessionRequest) (*Session, error)
}
