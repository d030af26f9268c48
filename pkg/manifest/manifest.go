// Copyright 2026 © The Strata Authors
// SPDX-License-Identifier: Apache-2.0

// Package manifest models the declarative startup specification of a stack:
// which capability groups are declared and which provider binding serves
// each of them.
package manifest

import (
	"fmt"
	"strings"

	koanfyaml "github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"
	"gopkg.in/yaml.v3"

	"github.com/strata-ai/strata/pkg/api"
	"github.com/strata-ai/strata/pkg/errors"
)

// CurrentVersion is the manifest schema version this build understands.
const CurrentVersion = 1

// EnvPrefix is the prefix for environment overrides of manifest values
// (STRATA_VERSION -> version).
const EnvPrefix = "STRATA_"

// Binding binds one provider to a capability group. Immutable once the
// registry is built.
type Binding struct {
	ProviderID   string         `koanf:"provider_id" yaml:"provider_id"`
	ProviderKind string         `koanf:"provider_kind" yaml:"provider_kind"`
	Config       map[string]any `koanf:"config" yaml:"config,omitempty"`
}

// Remote reports whether the binding's kind addresses a network backend.
func (b Binding) Remote() bool {
	return strings.HasPrefix(b.ProviderKind, "remote::")
}

// Manifest is the declarative startup configuration of a stack.
type Manifest struct {
	Version   int                  `koanf:"version" yaml:"version"`
	APIs      []string             `koanf:"apis" yaml:"apis"`
	Providers map[string][]Binding `koanf:"providers" yaml:"providers"`
}

// Load reads a manifest from a YAML file, applying STRATA_* environment
// overrides, and validates it.
func Load(path string) (*Manifest, error) {
	k := koanf.New(".")
	if err := k.Load(file.Provider(path), koanfyaml.Parser()); err != nil {
		return nil, errors.New(errors.CodeInvalidConfig, fmt.Sprintf("load manifest %s", path), err)
	}
	return finish(k)
}

// LoadBytes parses a manifest from raw YAML. Used by tests and embedded
// manifests.
func LoadBytes(data []byte) (*Manifest, error) {
	k := koanf.New(".")
	if err := k.Load(rawbytes.Provider(data), koanfyaml.Parser()); err != nil {
		return nil, errors.New(errors.CodeInvalidConfig, "parse manifest", err)
	}
	return finish(k)
}

func finish(k *koanf.Koanf) (*Manifest, error) {
	// STRATA_VERSION -> version, underscores become dots.
	if err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		return strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(s, EnvPrefix)), "_", ".")
	}), nil); err != nil {
		return nil, errors.New(errors.CodeInvalidConfig, "load environment overrides", err)
	}

	var m Manifest
	if err := k.Unmarshal("", &m); err != nil {
		return nil, errors.New(errors.CodeInvalidConfig, "unmarshal manifest", err)
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return &m, nil
}

// Validate checks structural invariants: supported schema version, known
// capability groups only, at least one binding per declared group, unique
// provider ids within a group, and a well-formed kind on every binding.
func (m *Manifest) Validate() error {
	if m.Version != CurrentVersion {
		return errors.Newf(errors.CodeInvalidConfig, "unsupported manifest version %d (want %d)", m.Version, CurrentVersion)
	}
	if len(m.APIs) == 0 {
		return errors.Newf(errors.CodeInvalidConfig, "manifest declares no apis")
	}

	declared := make(map[api.CapabilityGroup]bool, len(m.APIs))
	for _, name := range m.APIs {
		group := api.CapabilityGroup(name)
		if !group.Valid() {
			return errors.Newf(errors.CodeInvalidConfig, "unknown capability group %q in apis", name)
		}
		if declared[group] {
			return errors.Newf(errors.CodeInvalidConfig, "capability group %q declared twice", name)
		}
		declared[group] = true
	}

	for name, bindings := range m.Providers {
		group := api.CapabilityGroup(name)
		if !group.Valid() {
			return errors.Newf(errors.CodeInvalidConfig, "providers bound to unknown capability group %q", name)
		}
		seen := make(map[string]bool, len(bindings))
		for _, b := range bindings {
			if b.ProviderID == "" {
				return errors.Newf(errors.CodeInvalidConfig, "%s: binding without provider_id", name)
			}
			if seen[b.ProviderID] {
				return errors.Newf(errors.CodeInvalidConfig, "%s: duplicate provider_id %q", name, b.ProviderID)
			}
			seen[b.ProviderID] = true
			if err := validateKind(b.ProviderKind); err != nil {
				return errors.Wrap(err).WithProvider(name, b.ProviderID)
			}
		}
	}

	for group := range declared {
		if len(m.Providers[string(group)]) == 0 {
			return errors.Newf(errors.CodeMissingCapability, "capability group %q has no provider binding", group)
		}
	}
	return nil
}

// Declares reports whether the manifest declares the given capability group.
func (m *Manifest) Declares(group api.CapabilityGroup) bool {
	for _, name := range m.APIs {
		if api.CapabilityGroup(name) == group {
			return true
		}
	}
	return false
}

func validateKind(kind string) error {
	scope, _, ok := strings.Cut(kind, "::")
	if !ok || scope == "" {
		return errors.Newf(errors.CodeInvalidConfig, "malformed provider kind %q (want scope::name)", kind)
	}
	if scope != "inline" && scope != "remote" {
		return errors.Newf(errors.CodeUnknownProviderKind, "unknown provider scope %q in kind %q", scope, kind)
	}
	return nil
}

// DecodeConfig decodes a binding's provider-specific configuration bag into
// a typed struct. Decoding is strict: unknown keys are rejected so a typo in
// the manifest fails at startup rather than being silently ignored.
func (b Binding) DecodeConfig(out any) error {
	raw, err := yaml.Marshal(b.Config)
	if err != nil {
		return errors.New(errors.CodeInvalidConfig, "encode provider config", err)
	}
	dec := yaml.NewDecoder(strings.NewReader(string(raw)))
	dec.KnownFields(true)
	if err := dec.Decode(out); err != nil {
		return errors.Newf(errors.CodeInvalidConfig, "provider %s config: %v", b.ProviderID, err)
	}
	return nil
}
