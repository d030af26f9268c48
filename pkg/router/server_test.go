// Copyright 2026 © The Strata Authors
// SPDX-License-Identifier: Apache-2.0

package router

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/strata-ai/strata/pkg/api"
	"github.com/strata-ai/strata/pkg/errors"
	"github.com/strata-ai/strata/pkg/inference"
	"github.com/strata-ai/strata/pkg/memory"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	r := newTestRouter(t, map[api.CapabilityGroup]any{
		api.GroupInference: fakeInference{},
		api.GroupSafety:    fakeSafety{},
	})
	srv := httptest.NewServer(NewServer(r))
	t.Cleanup(srv.Close)
	return srv
}

// A remote adapter pointed at a served stack must behave exactly like the
// local adapter behind it.
func TestRemoteRoundtrip(t *testing.T) {
	srv := newTestServer(t)
	client := NewClient(srv.URL, 0)

	inf := NewRemoteInference(client)
	resp, err := inf.ChatCompletion(context.Background(), api.ChatCompletionRequest{
		Model:    "m",
		Messages: []api.Message{{Role: api.RoleUser, Content: "ping"}},
	})
	if err != nil {
		t.Fatalf("ChatCompletion: %v", err)
	}
	if resp.Completion.Content != "echo: ping" {
		t.Errorf("completion = %q", resp.Completion.Content)
	}

	emb, err := inf.Embeddings(context.Background(), api.EmbeddingsRequest{Model: "m", Contents: []string{"a", "b"}})
	if err != nil {
		t.Fatalf("Embeddings: %v", err)
	}
	if len(emb.Embeddings) != 2 {
		t.Errorf("embeddings = %d, want 2", len(emb.Embeddings))
	}

	saf := NewRemoteSafety(client)
	shields, err := saf.ListShields(context.Background())
	if err != nil {
		t.Fatalf("ListShields: %v", err)
	}
	if len(shields) != 1 || shields[0] != "content_safety" {
		t.Errorf("shields = %v", shields)
	}

	verdict, err := saf.RunShield(context.Background(), api.RunShieldRequest{
		ShieldType: "content_safety",
		Messages:   []api.Message{{Role: api.RoleUser, Content: "something bad"}},
	})
	if err != nil {
		t.Fatalf("RunShield: %v", err)
	}
	if verdict.Verdict.ViolationLevel != api.ViolationError {
		t.Errorf("violation = %s, want error", verdict.Verdict.ViolationLevel)
	}
}

// Querying the engine directly and through the served wire must yield the
// same results: the transport adds nothing and loses nothing.
func TestRemoteMemoryTransparency(t *testing.T) {
	ctx := context.Background()
	scripted := inference.NewScripted(inference.ScriptedConfig{})
	engine := memory.NewEngine(memory.NewInMemoryStore(), memory.NewInferenceEmbedder(scripted))

	r := newTestRouter(t, map[api.CapabilityGroup]any{api.GroupMemory: engine})
	srv := httptest.NewServer(NewServer(r))
	t.Cleanup(srv.Close)
	remote := NewRemoteMemory(NewClient(srv.URL, 0))

	if _, err := remote.RegisterBank(ctx, api.BankSpec{
		Identifier:        "docs",
		EmbeddingModel:    "embed",
		ChunkSizeInTokens: 32,
	}); err != nil {
		t.Fatalf("RegisterBank: %v", err)
	}
	if err := remote.Insert(ctx, api.InsertRequest{BankID: "docs", Documents: []api.Document{
		{DocumentID: "d1", Content: "stacks compose over a uniform wire protocol"},
		{DocumentID: "d2", Content: "memory banks rank chunks by cosine similarity"},
	}}); err != nil {
		t.Fatalf("Insert: %v", err)
	}

	req := api.QueryRequest{BankID: "docs", Queries: []string{"how are chunks ranked"}}
	viaWire, err := remote.Query(ctx, req)
	if err != nil {
		t.Fatalf("remote Query: %v", err)
	}
	direct, err := engine.Query(ctx, req)
	if err != nil {
		t.Fatalf("local Query: %v", err)
	}
	if !reflect.DeepEqual(viaWire, direct) {
		t.Errorf("remote = %+v\nlocal = %+v", viaWire, direct)
	}

	// The serialized body carries the documented top-level keys.
	body, _ := json.Marshal(req)
	httpResp, err := http.Post(srv.URL+"/memory/query", "application/json", strings.NewReader(string(body)))
	if err != nil {
		t.Fatalf("post query: %v", err)
	}
	defer httpResp.Body.Close()
	var wire map[string]json.RawMessage
	if err := json.NewDecoder(httpResp.Body).Decode(&wire); err != nil {
		t.Fatalf("decode wire body: %v", err)
	}
	if _, ok := wire["chunks"]; !ok {
		t.Error(`wire body missing top-level "chunks"`)
	}
	if _, ok := wire["scores"]; !ok {
		t.Error(`wire body missing top-level "scores"`)
	}

	banks, err := remote.ListBanks(ctx)
	if err != nil {
		t.Fatalf("ListBanks: %v", err)
	}
	if len(banks) != 1 || banks[0].Identifier != "docs" {
		t.Errorf("banks = %+v", banks)
	}
	if err := remote.UnregisterBank(ctx, "docs"); err != nil {
		t.Fatalf("UnregisterBank: %v", err)
	}
	if _, err := engine.Query(ctx, req); errors.Code(err) != errors.CodeNotFound {
		t.Errorf("query after unregister: %v", err)
	}
}

func TestServerErrorBody(t *testing.T) {
	srv := newTestServer(t)

	resp, err := http.Post(srv.URL+"/inference/no-such-op", "application/json", strings.NewReader("{}"))
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != 404 {
		t.Errorf("status = %d, want 404", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "application/problem+json" {
		t.Errorf("content type = %q", ct)
	}
	var body struct {
		Title string `json:"title"`
		Group string `json:"group"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Title != string(errors.CodeUnknownOperation) {
		t.Errorf("title = %q, want %s", body.Title, errors.CodeUnknownOperation)
	}
}

func TestServerBadPayloadIs400(t *testing.T) {
	srv := newTestServer(t)

	resp, err := http.Post(srv.URL+"/inference/chat-completion", "application/json",
		strings.NewReader(`{"mesages":[]}`))
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != 400 {
		t.Errorf("status = %d, want 400", resp.StatusCode)
	}
}

func TestServerMethodNotAllowed(t *testing.T) {
	srv := newTestServer(t)

	resp, err := http.Get(srv.URL + "/inference/chat-completion")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusMethodNotAllowed {
		t.Errorf("status = %d, want 405", resp.StatusCode)
	}
}

func TestServerHealthz(t *testing.T) {
	srv := newTestServer(t)

	resp, err := http.Get(srv.URL + "/healthz")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != 200 {
		t.Errorf("status = %d, want 200", resp.StatusCode)
	}
}

func TestClientUpstreamError(t *testing.T) {
	srv := newTestServer(t)
	client := NewClient(srv.URL, 0)

	// The server rejects the unknown operation; the client reports it as an
	// upstream failure carrying the status.
	err := client.Call(context.Background(), api.GroupInference, "no-such-op", empty{}, nil)
	if err == nil {
		t.Fatal("expected an error")
	}
	if got := errors.Code(err); got != errors.CodeUpstream {
		t.Errorf("code = %s, want %s", got, errors.CodeUpstream)
	}
	se, _ := errors.As(err)
	if se.Context["status"] != 404 {
		t.Errorf("status context = %v, want 404", se.Context["status"])
	}
}

func TestClientTimeout(t *testing.T) {
	slow := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer slow.Close()

	client := NewClient(slow.URL, 50*time.Millisecond)
	start := time.Now()
	err := client.Call(context.Background(), api.GroupInference, OpChatCompletion, empty{}, nil)
	if err == nil {
		t.Fatal("expected a timeout")
	}
	if got := errors.Code(err); got != errors.CodeTimeout {
		t.Errorf("code = %s, want %s", got, errors.CodeTimeout)
	}
	// A single attempt, no retries: the call returns around the deadline.
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("call took %s, suggests a retry happened", elapsed)
	}
}

// A deadline expiring while the 2xx body streams in is still a timeout,
// not a transport failure.
func TestClientTimeoutDuringBody(t *testing.T) {
	stall := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"completion_message":`))
		if f, ok := w.(http.Flusher); ok {
			f.Flush()
		}
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer stall.Close()

	client := NewClient(stall.URL, 50*time.Millisecond)
	var out api.ChatCompletionResponse
	err := client.Call(context.Background(), api.GroupInference, OpChatCompletion, empty{}, &out)
	if err == nil {
		t.Fatal("expected a timeout")
	}
	if got := errors.Code(err); got != errors.CodeTimeout {
		t.Errorf("code = %s, want %s", got, errors.CodeTimeout)
	}
}

func TestClientTransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close()

	client := NewClient(srv.URL, time.Second)
	err := client.Call(context.Background(), api.GroupInference, OpChatCompletion, empty{}, nil)
	if err == nil {
		t.Fatal("expected an error")
	}
	if got := errors.Code(err); got != errors.CodeTransport {
		t.Errorf("code = %s, want %s", got, errors.CodeTransport)
	}
}

func TestClientStrictResponseDecode(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"completion_message":{"role":"assistant","content":"ok"},"surprise":true}`))
	}))
	defer srv.Close()

	client := NewClient(srv.URL, time.Second)
	var out api.ChatCompletionResponse
	err := client.Call(context.Background(), api.GroupInference, OpChatCompletion, empty{}, &out)
	if err == nil {
		t.Fatal("expected strict decoding to reject the extra field")
	}
	if got := errors.Code(err); got != errors.CodeContractViolation {
		t.Errorf("code = %s, want %s", got, errors.CodeContractViolation)
	}
}
