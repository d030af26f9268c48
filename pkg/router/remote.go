// Copyright 2026 © The Strata Authors
// SPDX-License-Identifier: Apache-2.0

package router

import (
	"bytes"
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/strata-ai/strata/pkg/api"
	"github.com/strata-ai/strata/pkg/errors"
	"github.com/strata-ai/strata/pkg/manifest"
)

// DefaultTimeout bounds each remote adapter invocation unless the binding
// configures its own deadline.
const DefaultTimeout = 20 * time.Second

// maxErrorBody caps how much upstream diagnostic text is retained on a
// non-2xx response.
const maxErrorBody = 4 << 10

// RemoteConfig is the provider-config bag of every remote::stack binding.
type RemoteConfig struct {
	URL     string `yaml:"url"`
	Timeout string `yaml:"timeout"`
}

// Client speaks the stack wire protocol: POST <base>/<capability>/<operation>
// with a JSON body, 2xx plus a decodable body is success, anything else is
// an upstream failure. The constructor does not dial; the first call does.
type Client struct {
	base    string
	httpc   *http.Client
	timeout time.Duration
}

// NewClient creates a wire-protocol client for the given base URL.
func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		base:    baseURL,
		httpc:   &http.Client{},
		timeout: timeout,
	}
}

// NewClientFromBinding builds a client from a manifest binding.
func NewClientFromBinding(b manifest.Binding) (*Client, error) {
	var cfg RemoteConfig
	if err := b.DecodeConfig(&cfg); err != nil {
		return nil, err
	}
	if cfg.URL == "" {
		return nil, errors.Newf(errors.CodeInvalidConfig, "remote binding %q needs a url", b.ProviderID)
	}
	timeout := DefaultTimeout
	if cfg.Timeout != "" {
		d, err := time.ParseDuration(cfg.Timeout)
		if err != nil {
			return nil, errors.Newf(errors.CodeInvalidConfig, "remote binding %q: bad timeout %q", b.ProviderID, cfg.Timeout)
		}
		timeout = d
	}
	return NewClient(cfg.URL, timeout), nil
}

// Call performs one wire call. The deadline bounds the whole invocation; on
// expiry the call is abandoned and the in-flight request cancelled
// best-effort. The client never retries.
func (c *Client) Call(ctx context.Context, group api.CapabilityGroup, op string, in, out any) error {
	body, err := json.Marshal(in)
	if err != nil {
		return errors.New(errors.CodeInternal, "encode request", err)
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	url := fmt.Sprintf("%s/%s/%s", c.base, group, op)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return errors.New(errors.CodeTransport, "build request", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpc.Do(req)
	if err != nil {
		if stderrors.Is(err, context.DeadlineExceeded) || ctx.Err() == context.DeadlineExceeded {
			return errors.Newf(errors.CodeTimeout, "call %s/%s exceeded %s", group, op, c.timeout)
		}
		return errors.New(errors.CodeTransport, fmt.Sprintf("call %s/%s", group, op), err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		// Body is opaque diagnostic text; never interpreted here.
		diag, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return errors.Newf(errors.CodeUpstream, "call %s/%s: upstream status %d", group, op, resp.StatusCode).
			WithContext("status", resp.StatusCode).
			WithContext("body", string(diag))
	}

	if out == nil {
		return nil
	}
	if err := decodeStrictReader(resp.Body, out); err != nil {
		// The deadline can also fire while the 2xx body is streaming in.
		if ctx.Err() == context.DeadlineExceeded {
			return errors.Newf(errors.CodeTimeout, "call %s/%s exceeded %s", group, op, c.timeout)
		}
		if errors.Is(err, errors.CodeContractViolation) {
			return errors.Wrap(err).WithContext("operation", op)
		}
		return err
	}
	return nil
}

// Remote adapters: one per capability group, all backed by the same wire
// client, each a drop-in substitute for a local adapter behind the
// identical contract.

// RemoteInference proxies the inference contract over the wire.
type RemoteInference struct{ c *Client }

// NewRemoteInference wraps a client as an inference adapter.
func NewRemoteInference(c *Client) *RemoteInference { return &RemoteInference{c: c} }

func (p *RemoteInference) ChatCompletion(ctx context.Context, req api.ChatCompletionRequest) (*api.ChatCompletionResponse, error) {
	var out api.ChatCompletionResponse
	if err := p.c.Call(ctx, api.GroupInference, OpChatCompletion, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (p *RemoteInference) Completion(ctx context.Context, req api.CompletionRequest) (*api.CompletionResponse, error) {
	var out api.CompletionResponse
	if err := p.c.Call(ctx, api.GroupInference, OpCompletion, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (p *RemoteInference) Embeddings(ctx context.Context, req api.EmbeddingsRequest) (*api.EmbeddingsResponse, error) {
	var out api.EmbeddingsResponse
	if err := p.c.Call(ctx, api.GroupInference, OpEmbeddings, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// RemoteSafety proxies the safety contract over the wire.
type RemoteSafety struct{ c *Client }

// NewRemoteSafety wraps a client as a safety adapter.
func NewRemoteSafety(c *Client) *RemoteSafety { return &RemoteSafety{c: c} }

func (p *RemoteSafety) RunShield(ctx context.Context, req api.RunShieldRequest) (*api.RunShieldResponse, error) {
	var out api.RunShieldResponse
	if err := p.c.Call(ctx, api.GroupSafety, OpRunShield, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (p *RemoteSafety) ListShields(ctx context.Context) ([]string, error) {
	var out shieldList
	if err := p.c.Call(ctx, api.GroupSafety, OpListShields, empty{}, &out); err != nil {
		return nil, err
	}
	return out.Shields, nil
}

// RemoteMemory proxies the memory contract over the wire.
type RemoteMemory struct{ c *Client }

// NewRemoteMemory wraps a client as a memory adapter.
func NewRemoteMemory(c *Client) *RemoteMemory { return &RemoteMemory{c: c} }

func (p *RemoteMemory) RegisterBank(ctx context.Context, spec api.BankSpec) (string, error) {
	var out bankRef
	if err := p.c.Call(ctx, api.GroupMemory, OpRegisterBank, spec, &out); err != nil {
		return "", err
	}
	return out.BankID, nil
}

func (p *RemoteMemory) UnregisterBank(ctx context.Context, bankID string) error {
	return p.c.Call(ctx, api.GroupMemory, OpUnregisterBank, bankRef{BankID: bankID}, &empty{})
}

func (p *RemoteMemory) ListBanks(ctx context.Context) ([]api.BankSpec, error) {
	var out bankList
	if err := p.c.Call(ctx, api.GroupMemory, OpListBanks, empty{}, &out); err != nil {
		return nil, err
	}
	return out.Banks, nil
}

func (p *RemoteMemory) Insert(ctx context.Context, req api.InsertRequest) error {
	return p.c.Call(ctx, api.GroupMemory, OpInsert, req, &empty{})
}

func (p *RemoteMemory) Query(ctx context.Context, req api.QueryRequest) (*api.QueryResponse, error) {
	var out api.QueryResponse
	if err := p.c.Call(ctx, api.GroupMemory, OpQuery, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// RemoteAgents proxies the agents contract over the wire.
type RemoteAgents struct{ c *Client }

// NewRemoteAgents wraps a client as an agents adapter.
func NewRemoteAgents(c *Client) *RemoteAgents { return &RemoteAgents{c: c} }

func (p *RemoteAgents) CreateAgent(ctx context.Context, req api.CreateAgentRequest) (*api.CreateAgentResponse, error) {
	var out api.CreateAgentResponse
	if err := p.c.Call(ctx, api.GroupAgents, OpCreateAgent, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (p *RemoteAgents) CreateSession(ctx context.Context, req api.CreateSessionRequest) (*api.CreateSessionResponse, error) {
	var out api.CreateSessionResponse
	if err := p.c.Call(ctx, api.GroupAgents, OpCreateSession, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (p *RemoteAgents) CreateTurn(ctx context.Context, req api.TurnRequest) (*api.Turn, error) {
	var out api.Turn
	if err := p.c.Call(ctx, api.GroupAgents, OpCreateTurn, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (p *RemoteAgents) GetSession(ctx context.Context, req api.GetSessionRequest) (*api.Session, error) {
	var out api.Session
	if err := p.c.Call(ctx, api.GroupAgents, OpGetSession, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// RemoteTelemetry proxies the telemetry contract over the wire.
type RemoteTelemetry struct{ c *Client }

// NewRemoteTelemetry wraps a client as a telemetry adapter.
func NewRemoteTelemetry(c *Client) *RemoteTelemetry { return &RemoteTelemetry{c: c} }

func (p *RemoteTelemetry) LogEvent(ctx context.Context, ev api.Event) error {
	return p.c.Call(ctx, api.GroupTelemetry, OpLogEvent, ev, &empty{})
}

// RemoteToolRuntime proxies the tool runtime contract over the wire.
type RemoteToolRuntime struct{ c *Client }

// NewRemoteToolRuntime wraps a client as a tool runtime adapter.
func NewRemoteToolRuntime(c *Client) *RemoteToolRuntime { return &RemoteToolRuntime{c: c} }

func (p *RemoteToolRuntime) ListTools(ctx context.Context) ([]api.ToolDef, error) {
	var out toolList
	if err := p.c.Call(ctx, api.GroupToolRuntime, OpListTools, empty{}, &out); err != nil {
		return nil, err
	}
	return out.Tools, nil
}

func (p *RemoteToolRuntime) InvokeTool(ctx context.Context, inv api.ToolInvocation) (*api.ToolResult, error) {
	var out api.ToolResult
	if err := p.c.Call(ctx, api.GroupToolRuntime, OpInvokeTool, inv, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

var (
	_ api.Inference   = (*RemoteInference)(nil)
	_ api.Safety      = (*RemoteSafety)(nil)
	_ api.Memory      = (*RemoteMemory)(nil)
	_ api.Agents      = (*RemoteAgents)(nil)
	_ api.Telemetry   = (*RemoteTelemetry)(nil)
	_ api.ToolRuntime = (*RemoteToolRuntime)(nil)
)
