// Copyright 2026 © The Strata Authors
// SPDX-License-Identifier: Apache-2.0

// Package registry holds the configured provider adapters of a running
// stack, keyed by capability group and provider identifier.
//
// The registry is built once at startup by Resolve and is read-mostly
// afterwards: lookups take no lock. There is no runtime rebinding in the
// serving path.
package registry

import (
	"context"
	"log/slog"

	"github.com/strata-ai/strata/pkg/api"
	"github.com/strata-ai/strata/pkg/errors"
	"github.com/strata-ai/strata/pkg/manifest"
)

// Deps carries the already-resolved capability implementations a provider
// constructor may depend on. Groups resolve in api.Groups() order, so a
// constructor only ever sees dependencies from earlier groups.
type Deps struct {
	Telemetry   api.Telemetry
	Inference   api.Inference
	Memory      api.Memory
	ToolRuntime api.ToolRuntime
	Safety      api.Safety
}

// Constructor builds one provider adapter from its binding. Construction is
// eager but must not dial the network: remote adapters connect lazily on
// first use, while inline adapters may allocate local resources.
type Constructor func(b manifest.Binding, deps Deps) (any, error)

// Catalog is the closed set of known provider kinds per capability group.
// Unknown kinds are rejected at resolve time, not at call time.
type Catalog struct {
	constructors map[api.CapabilityGroup]map[string]Constructor
}

// NewCatalog creates an empty catalog.
func NewCatalog() *Catalog {
	return &Catalog{constructors: make(map[api.CapabilityGroup]map[string]Constructor)}
}

// Register adds a constructor for (group, kind). Later registrations of the
// same pair replace earlier ones.
func (c *Catalog) Register(group api.CapabilityGroup, kind string, ctor Constructor) *Catalog {
	kinds := c.constructors[group]
	if kinds == nil {
		kinds = make(map[string]Constructor)
		c.constructors[group] = kinds
	}
	kinds[kind] = ctor
	return c
}

// Lookup returns the constructor for (group, kind), if registered.
func (c *Catalog) Lookup(group api.CapabilityGroup, kind string) (Constructor, bool) {
	ctor, ok := c.constructors[group][kind]
	return ctor, ok
}

// Entry is one configured adapter inside the registry.
type Entry struct {
	Binding manifest.Binding
	Impl    any
}

// Registry owns every provider binding and adapter for the process lifetime.
type Registry struct {
	entries map[api.CapabilityGroup][]Entry
	active  map[api.CapabilityGroup]int
}

// Resolve instantiates the registry from a validated manifest. Resolution is
// all-or-nothing: if any adapter fails to construct, already-built adapters
// are closed and no registry is returned.
func Resolve(m *manifest.Manifest, catalog *Catalog) (*Registry, error) {
	if err := m.Validate(); err != nil {
		return nil, err
	}

	r := &Registry{
		entries: make(map[api.CapabilityGroup][]Entry),
		active:  make(map[api.CapabilityGroup]int),
	}

	var deps Deps
	for _, group := range api.Groups() {
		bindings := m.Providers[string(group)]
		if len(bindings) == 0 {
			continue
		}
		for _, b := range bindings {
			ctor, ok := catalog.Lookup(group, b.ProviderKind)
			if !ok {
				r.close()
				return nil, errors.Newf(errors.CodeUnknownProviderKind,
					"no adapter for kind %q", b.ProviderKind).WithProvider(string(group), b.ProviderID)
			}
			impl, err := ctor(b, deps)
			if err != nil {
				r.close()
				return nil, errors.Annotate(err, string(group), b.ProviderID)
			}
			r.entries[group] = append(r.entries[group], Entry{Binding: b, Impl: impl})
			slog.Debug("registry.provider.built",
				slog.String("group", string(group)),
				slog.String("provider_id", b.ProviderID),
				slog.String("kind", b.ProviderKind))
		}
		// The first binding in a group is active; additional bindings are
		// resolvable but inert until selected.
		r.active[group] = 0
		r.fillDeps(&deps, group)
	}
	return r, nil
}

func (r *Registry) fillDeps(deps *Deps, group api.CapabilityGroup) {
	entry, _, err := r.Active(group)
	if err != nil {
		return
	}
	switch group {
	case api.GroupTelemetry:
		deps.Telemetry, _ = entry.(api.Telemetry)
	case api.GroupInference:
		deps.Inference, _ = entry.(api.Inference)
	case api.GroupMemory:
		deps.Memory, _ = entry.(api.Memory)
	case api.GroupToolRuntime:
		deps.ToolRuntime, _ = entry.(api.ToolRuntime)
	case api.GroupSafety:
		deps.Safety, _ = entry.(api.Safety)
	}
}

// Active returns the active adapter for a group along with its provider id.
func (r *Registry) Active(group api.CapabilityGroup) (any, string, error) {
	entries := r.entries[group]
	if len(entries) == 0 {
		return nil, "", errors.Newf(errors.CodeNoActiveProvider,
			"no active provider for capability group %q", group)
	}
	e := entries[r.active[group]]
	return e.Impl, e.Binding.ProviderID, nil
}

// Entries returns all configured adapters for a group in manifest order.
func (r *Registry) Entries(group api.CapabilityGroup) []Entry {
	return r.entries[group]
}

// SetActive switches the active binding of a group by provider id. Intended
// for assembly and tests; the serving path never rebinds.
func (r *Registry) SetActive(group api.CapabilityGroup, providerID string) error {
	for i, e := range r.entries[group] {
		if e.Binding.ProviderID == providerID {
			r.active[group] = i
			return nil
		}
	}
	return errors.Newf(errors.CodeNotFound, "no binding %q in group %q", providerID, group)
}

// Groups returns the capability groups that have at least one adapter.
func (r *Registry) Groups() []api.CapabilityGroup {
	var out []api.CapabilityGroup
	for _, g := range api.Groups() {
		if len(r.entries[g]) > 0 {
			out = append(out, g)
		}
	}
	return out
}

// Health pings every adapter that supports connectivity checks.
func (r *Registry) Health(ctx context.Context) error {
	for _, group := range api.Groups() {
		for _, e := range r.entries[group] {
			hc, ok := e.Impl.(api.HealthChecker)
			if !ok {
				continue
			}
			if err := hc.Health(ctx); err != nil {
				return errors.Annotate(err, string(group), e.Binding.ProviderID)
			}
		}
	}
	return nil
}

// Close releases every adapter that holds resources.
func (r *Registry) Close() error {
	return r.close()
}

func (r *Registry) close() error {
	var first error
	for _, entries := range r.entries {
		for _, e := range entries {
			c, ok := e.Impl.(api.Closer)
			if !ok {
				continue
			}
			if err := c.Close(); err != nil && first == nil {
				first = err
			}
		}
	}
	return first
}
