// Copyright 2026 © The Strata Authors
// SPDX-License-Identifier: Apache-2.0

package api

import "context"

// ToolDef describes one tool exposed by a tool runtime.
type ToolDef struct {
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	Parameters  map[string]any `json:"parameters,omitempty"` // JSON Schema
}

// ToolInvocation calls a named tool with keyword arguments.
type ToolInvocation struct {
	ToolName string         `json:"tool_name"`
	Args     map[string]any `json:"args,omitempty"`
}

// ToolResult is the outcome of a tool invocation. IsError marks a failure
// reported by the tool itself, as opposed to a transport failure.
type ToolResult struct {
	Content string `json:"content"`
	IsError bool   `json:"is_error,omitempty"`
}

// ToolRuntime is the capability contract for tool execution backends.
type ToolRuntime interface {
	// ListTools returns the tools the runtime currently exposes.
	ListTools(ctx context.Context) ([]ToolDef, error)

	// InvokeTool executes one tool call.
	InvokeTool(ctx context.Context, inv ToolInvocation) (*ToolResult, error)
}
