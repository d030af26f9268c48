// Copyright 2026 © The Strata Authors
// SPDX-License-Identifier: Apache-2.0

// Package tools provides tool runtime adapters. The MCP runtime exposes
// tools from a Model Context Protocol server over stdio or streamable HTTP.
package tools

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/client"
	"github.com/mark3labs/mcp-go/mcp"

	"github.com/strata-ai/strata/pkg/api"
	"github.com/strata-ai/strata/pkg/errors"
)

const initTimeout = 10 * time.Second

// MCPConfig is the provider-config bag of a remote::mcp binding. Exactly one
// of URL (streamable HTTP) or Command (stdio subprocess) must be set.
type MCPConfig struct {
	URL     string   `yaml:"url"`
	Command string   `yaml:"command"`
	Args    []string `yaml:"args"`
}

// MCPRuntime implements the tool runtime contract against one MCP server.
type MCPRuntime struct {
	client *client.Client
}

// NewMCPRuntime connects to the configured MCP server and completes the
// protocol handshake.
func NewMCPRuntime(cfg MCPConfig) (*MCPRuntime, error) {
	var (
		mcpClient *client.Client
		err       error
	)
	switch {
	case cfg.Command != "":
		mcpClient, err = client.NewStdioMCPClient(cfg.Command, nil, cfg.Args...)
	case cfg.URL != "":
		mcpClient, err = client.NewStreamableHttpClient(cfg.URL)
	default:
		return nil, errors.Newf(errors.CodeInvalidConfig, "mcp binding needs a url or a command")
	}
	if err != nil {
		return nil, errors.New(errors.CodeTransport, "create mcp client", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), initTimeout)
	defer cancel()

	if err := mcpClient.Start(ctx); err != nil {
		mcpClient.Close()
		return nil, errors.New(errors.CodeTransport, "start mcp client", err)
	}

	initRequest := mcp.InitializeRequest{}
	initRequest.Params.ProtocolVersion = mcp.LATEST_PROTOCOL_VERSION
	initRequest.Params.ClientInfo = mcp.Implementation{
		Name:    "strata",
		Version: "0.1.0",
	}
	if _, err := mcpClient.Initialize(ctx, initRequest); err != nil {
		mcpClient.Close()
		return nil, errors.New(errors.CodeUpstream, "initialize mcp session", err)
	}
	return &MCPRuntime{client: mcpClient}, nil
}

// ListTools returns the server's tools as capability tool definitions.
func (r *MCPRuntime) ListTools(ctx context.Context) ([]api.ToolDef, error) {
	resp, err := r.client.ListTools(ctx, mcp.ListToolsRequest{})
	if err != nil {
		return nil, wrapMCPErr("list tools", err)
	}
	out := make([]api.ToolDef, 0, len(resp.Tools))
	for _, tool := range resp.Tools {
		out = append(out, toolDef(tool))
	}
	return out, nil
}

// toolDef converts an MCP tool into a capability tool definition. The input
// schema round-trips through JSON into a generic parameter map.
func toolDef(tool mcp.Tool) api.ToolDef {
	def := api.ToolDef{
		Name:        tool.Name,
		Description: tool.Description,
	}
	if schema, err := json.Marshal(tool.InputSchema); err == nil {
		var params map[string]any
		if json.Unmarshal(schema, &params) == nil {
			def.Parameters = params
		}
	}
	return def
}

// InvokeTool executes one tool call. Tool-reported failures come back as a
// result with IsError set, not as a transport error.
func (r *MCPRuntime) InvokeTool(ctx context.Context, inv api.ToolInvocation) (*api.ToolResult, error) {
	req := mcp.CallToolRequest{}
	req.Params.Name = inv.ToolName
	req.Params.Arguments = inv.Args

	resp, err := r.client.CallTool(ctx, req)
	if err != nil {
		return nil, wrapMCPErr("call tool "+inv.ToolName, err)
	}

	return toolResult(resp), nil
}

// toolResult flattens the MCP result's text content blocks into one string;
// non-text blocks are dropped.
func toolResult(resp *mcp.CallToolResult) *api.ToolResult {
	var parts []string
	for _, content := range resp.Content {
		if text, ok := mcp.AsTextContent(content); ok {
			parts = append(parts, text.Text)
		}
	}
	return &api.ToolResult{
		Content: strings.Join(parts, "\n"),
		IsError: resp.IsError,
	}
}

// Close shuts down the underlying transport (and subprocess for stdio).
func (r *MCPRuntime) Close() error {
	return r.client.Close()
}

func wrapMCPErr(op string, err error) error {
	if err == context.DeadlineExceeded {
		return errors.Newf(errors.CodeTimeout, "mcp %s timed out", op)
	}
	return errors.New(errors.CodeUpstream, "mcp "+op, err)
}

var (
	_ api.ToolRuntime = (*MCPRuntime)(nil)
	_ api.Closer      = (*MCPRuntime)(nil)
)
