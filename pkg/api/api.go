// Copyright 2026 © The Strata Authors
// SPDX-License-Identifier: Apache-2.0

// Package api defines the capability contracts of a Strata stack.
//
// Each capability group (inference, safety, memory, agents, tool runtime,
// telemetry) is a plain Go interface. A provider satisfies the contract
// either in-process or by proxying the calls over HTTP; callers cannot tell
// the difference. The wire representations of every request and response
// live here too, so local and remote adapters share the exact same types.
package api

import "context"

// CapabilityGroup names one of the fixed API surfaces of the stack.
type CapabilityGroup string

const (
	GroupInference   CapabilityGroup = "inference"
	GroupSafety      CapabilityGroup = "safety"
	GroupMemory      CapabilityGroup = "memory"
	GroupAgents      CapabilityGroup = "agents"
	GroupTelemetry   CapabilityGroup = "telemetry"
	GroupToolRuntime CapabilityGroup = "tool_runtime"
)

// Groups lists every capability group the stack knows about, in dependency
// order: providers later in the list may depend on providers earlier in it.
func Groups() []CapabilityGroup {
	return []CapabilityGroup{
		GroupTelemetry,
		GroupInference,
		GroupMemory,
		GroupToolRuntime,
		GroupSafety,
		GroupAgents,
	}
}

// Valid reports whether g is a known capability group.
func (g CapabilityGroup) Valid() bool {
	switch g {
	case GroupInference, GroupSafety, GroupMemory, GroupAgents, GroupTelemetry, GroupToolRuntime:
		return true
	}
	return false
}

// Role represents the role of a message sender.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// Message is a single unit of conversation.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Closer is implemented by adapters that hold resources needing release at
// process shutdown (database handles, subprocess transports).
type Closer interface {
	Close() error
}

// HealthChecker is implemented by adapters that can verify connectivity to
// their backend. Remote adapters establish connections lazily, so a health
// check is the first point at which a bad endpoint surfaces.
type HealthChecker interface {
	Health(ctx context.Context) error
}
