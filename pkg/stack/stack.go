// Copyright 2026 © The Strata Authors
// SPDX-License-Identifier: Apache-2.0

// Package stack assembles a running distribution: it binds the provider
// catalog, resolves a manifest into a registry and serves it through the
// router.
package stack

import (
	"time"

	"github.com/strata-ai/strata/pkg/agents"
	"github.com/strata-ai/strata/pkg/api"
	"github.com/strata-ai/strata/pkg/errors"
	"github.com/strata-ai/strata/pkg/inference"
	"github.com/strata-ai/strata/pkg/manifest"
	"github.com/strata-ai/strata/pkg/memory"
	memollama "github.com/strata-ai/strata/pkg/memory/ollama"
	memqdrant "github.com/strata-ai/strata/pkg/memory/qdrant"
	"github.com/strata-ai/strata/pkg/registry"
	"github.com/strata-ai/strata/pkg/router"
	"github.com/strata-ai/strata/pkg/safety"
	"github.com/strata-ai/strata/pkg/telemetry"
	"github.com/strata-ai/strata/pkg/tools"
)

// Provider kinds known to the default catalog.
const (
	KindRemoteStack  = "remote::stack"
	KindRemoteOllama = "remote::ollama"
	KindRemoteMCP    = "remote::mcp"

	KindInlineScripted = "inline::scripted"
	KindInlineVector   = "inline::vector"
	KindInlineShields  = "inline::shields"
	KindInlineLocal    = "inline::local"
	KindInlineOTel     = "inline::otel"
)

// MemoryConfig is the provider-config bag of an inline::vector binding.
type MemoryConfig struct {
	// Store selects the vector backend: "inmemory" (default) or "qdrant".
	Store string `yaml:"store"`

	// QdrantAddr is the gRPC address for the qdrant store.
	QdrantAddr string `yaml:"qdrant_addr"`

	// Embedder selects how chunks are embedded: "inference" (default, uses
	// the stack's inference provider) or "ollama" (direct embeddings API).
	Embedder string `yaml:"embedder"`

	// OllamaURL is the base URL for the ollama embedder.
	OllamaURL string `yaml:"ollama_url"`
}

// DefaultCatalog returns the closed set of provider kinds this build knows
// how to construct.
func DefaultCatalog() *registry.Catalog {
	c := registry.NewCatalog()

	c.Register(api.GroupTelemetry, KindInlineOTel, func(_ manifest.Binding, _ registry.Deps) (any, error) {
		return telemetry.NewEventSink()
	})
	c.Register(api.GroupTelemetry, KindRemoteStack, remoteCtor(func(cl *router.Client) any {
		return router.NewRemoteTelemetry(cl)
	}))

	c.Register(api.GroupInference, KindRemoteOllama, func(b manifest.Binding, _ registry.Deps) (any, error) {
		var cfg inference.OllamaConfig
		if err := b.DecodeConfig(&cfg); err != nil {
			return nil, err
		}
		var timeout time.Duration
		if cfg.Timeout != "" {
			d, err := time.ParseDuration(cfg.Timeout)
			if err != nil {
				return nil, errors.Newf(errors.CodeInvalidConfig,
					"binding %q: bad timeout %q", b.ProviderID, cfg.Timeout)
			}
			timeout = d
		}
		return inference.NewOllama(cfg.URL, timeout), nil
	})
	c.Register(api.GroupInference, KindInlineScripted, func(b manifest.Binding, _ registry.Deps) (any, error) {
		var cfg inference.ScriptedConfig
		if err := b.DecodeConfig(&cfg); err != nil {
			return nil, err
		}
		return inference.NewScripted(cfg), nil
	})
	c.Register(api.GroupInference, KindRemoteStack, remoteCtor(func(cl *router.Client) any {
		return router.NewRemoteInference(cl)
	}))

	c.Register(api.GroupMemory, KindInlineVector, buildVectorMemory)
	c.Register(api.GroupMemory, KindRemoteStack, remoteCtor(func(cl *router.Client) any {
		return router.NewRemoteMemory(cl)
	}))

	c.Register(api.GroupToolRuntime, KindRemoteMCP, func(b manifest.Binding, _ registry.Deps) (any, error) {
		var cfg tools.MCPConfig
		if err := b.DecodeConfig(&cfg); err != nil {
			return nil, err
		}
		return tools.NewMCPRuntime(cfg)
	})
	c.Register(api.GroupToolRuntime, KindRemoteStack, remoteCtor(func(cl *router.Client) any {
		return router.NewRemoteToolRuntime(cl)
	}))

	c.Register(api.GroupSafety, KindInlineShields, func(b manifest.Binding, deps registry.Deps) (any, error) {
		var cfg safety.Config
		if err := b.DecodeConfig(&cfg); err != nil {
			return nil, err
		}
		return safety.NewFromConfig(cfg, deps.Inference)
	})
	c.Register(api.GroupSafety, KindRemoteStack, remoteCtor(func(cl *router.Client) any {
		return router.NewRemoteSafety(cl)
	}))

	c.Register(api.GroupAgents, KindInlineLocal, func(b manifest.Binding, deps registry.Deps) (any, error) {
		if deps.Inference == nil {
			return nil, errors.Newf(errors.CodeMissingCapability,
				"agents binding %q requires an inference provider", b.ProviderID)
		}
		var cfg agents.Config
		if err := b.DecodeConfig(&cfg); err != nil {
			return nil, err
		}
		store, err := agents.NewSQLiteStore(cfg.DBPath)
		if err != nil {
			return nil, err
		}
		return agents.NewEngine(store, deps.Inference, deps.Safety, deps.Memory), nil
	})
	c.Register(api.GroupAgents, KindRemoteStack, remoteCtor(func(cl *router.Client) any {
		return router.NewRemoteAgents(cl)
	}))

	return c
}

// buildVectorMemory wires the bank engine to its store and embedder.
func buildVectorMemory(b manifest.Binding, deps registry.Deps) (any, error) {
	var cfg MemoryConfig
	if err := b.DecodeConfig(&cfg); err != nil {
		return nil, err
	}

	var store memory.VectorStore
	switch cfg.Store {
	case "", "inmemory":
		store = memory.NewInMemoryStore()
	case "qdrant":
		if cfg.QdrantAddr == "" {
			return nil, errors.Newf(errors.CodeInvalidConfig,
				"binding %q: qdrant store needs qdrant_addr", b.ProviderID)
		}
		qs, err := memqdrant.New(cfg.QdrantAddr)
		if err != nil {
			return nil, err
		}
		store = qs
	default:
		return nil, errors.Newf(errors.CodeInvalidConfig,
			"binding %q: unknown store %q", b.ProviderID, cfg.Store)
	}

	var embedder memory.Embedder
	switch cfg.Embedder {
	case "", "inference":
		if deps.Inference == nil {
			return nil, errors.Newf(errors.CodeMissingCapability,
				"binding %q: inference embedder needs an inference provider", b.ProviderID)
		}
		embedder = memory.NewInferenceEmbedder(deps.Inference)
	case "ollama":
		embedder = memollama.NewEmbedder(cfg.OllamaURL)
	default:
		return nil, errors.Newf(errors.CodeInvalidConfig,
			"binding %q: unknown embedder %q", b.ProviderID, cfg.Embedder)
	}

	return memory.NewEngine(store, embedder), nil
}

// remoteCtor adapts a wire-client wrapper into a catalog constructor.
func remoteCtor(wrap func(*router.Client) any) registry.Constructor {
	return func(b manifest.Binding, _ registry.Deps) (any, error) {
		cl, err := router.NewClientFromBinding(b)
		if err != nil {
			return nil, err
		}
		return wrap(cl), nil
	}
}

// Build resolves a manifest against the default catalog.
func Build(m *manifest.Manifest) (*registry.Registry, error) {
	return registry.Resolve(m, DefaultCatalog())
}
