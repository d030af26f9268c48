// Copyright 2026 © The Strata Authors
// SPDX-License-Identifier: Apache-2.0

package manifest

import (
	"testing"

	"github.com/strata-ai/strata/pkg/api"
	"github.com/strata-ai/strata/pkg/errors"
)

const validManifest = `
version: 1
apis:
  - inference
  - memory
providers:
  inference:
    - provider_id: scripted
      provider_kind: inline::scripted
  memory:
    - provider_id: vector
      provider_kind: inline::vector
      config:
        store: inmemory
`

func TestLoadBytesValid(t *testing.T) {
	m, err := LoadBytes([]byte(validManifest))
	if err != nil {
		t.Fatalf("LoadBytes: %v", err)
	}
	if m.Version != 1 {
		t.Errorf("Version = %d, want 1", m.Version)
	}
	if len(m.APIs) != 2 {
		t.Fatalf("APIs = %v, want 2 groups", m.APIs)
	}
	if !m.Declares(api.GroupInference) || !m.Declares(api.GroupMemory) {
		t.Errorf("Declares missing groups: %v", m.APIs)
	}
	if m.Declares(api.GroupSafety) {
		t.Error("Declares(safety) should be false")
	}

	bindings := m.Providers["memory"]
	if len(bindings) != 1 {
		t.Fatalf("memory bindings = %d, want 1", len(bindings))
	}
	if bindings[0].ProviderID != "vector" || bindings[0].ProviderKind != "inline::vector" {
		t.Errorf("binding = %+v", bindings[0])
	}
	if bindings[0].Config["store"] != "inmemory" {
		t.Errorf("config bag = %v", bindings[0].Config)
	}
}

func TestLoadBytesInvalid(t *testing.T) {
	tests := []struct {
		name     string
		yaml     string
		wantCode errors.ErrorCode
	}{
		{
			name:     "unsupported version",
			yaml:     "version: 2\napis: [inference]\nproviders:\n  inference:\n    - provider_id: x\n      provider_kind: inline::scripted\n",
			wantCode: errors.CodeInvalidConfig,
		},
		{
			name:     "no apis",
			yaml:     "version: 1\napis: []\n",
			wantCode: errors.CodeInvalidConfig,
		},
		{
			name:     "unknown capability group",
			yaml:     "version: 1\napis: [clairvoyance]\nproviders:\n  clairvoyance:\n    - provider_id: x\n      provider_kind: inline::x\n",
			wantCode: errors.CodeInvalidConfig,
		},
		{
			name:     "group declared twice",
			yaml:     "version: 1\napis: [inference, inference]\nproviders:\n  inference:\n    - provider_id: x\n      provider_kind: inline::scripted\n",
			wantCode: errors.CodeInvalidConfig,
		},
		{
			name:     "declared group without binding",
			yaml:     "version: 1\napis: [inference]\nproviders: {}\n",
			wantCode: errors.CodeMissingCapability,
		},
		{
			name:     "binding without provider_id",
			yaml:     "version: 1\napis: [inference]\nproviders:\n  inference:\n    - provider_kind: inline::scripted\n",
			wantCode: errors.CodeInvalidConfig,
		},
		{
			name:     "duplicate provider_id",
			yaml:     "version: 1\napis: [inference]\nproviders:\n  inference:\n    - provider_id: x\n      provider_kind: inline::scripted\n    - provider_id: x\n      provider_kind: remote::ollama\n",
			wantCode: errors.CodeInvalidConfig,
		},
		{
			name:     "malformed provider kind",
			yaml:     "version: 1\napis: [inference]\nproviders:\n  inference:\n    - provider_id: x\n      provider_kind: scripted\n",
			wantCode: errors.CodeInvalidConfig,
		},
		{
			name:     "unknown provider scope",
			yaml:     "version: 1\napis: [inference]\nproviders:\n  inference:\n    - provider_id: x\n      provider_kind: sidecar::scripted\n",
			wantCode: errors.CodeUnknownProviderKind,
		},
		{
			name:     "providers for unknown group",
			yaml:     "version: 1\napis: [inference]\nproviders:\n  inference:\n    - provider_id: x\n      provider_kind: inline::scripted\n  weather:\n    - provider_id: y\n      provider_kind: inline::y\n",
			wantCode: errors.CodeInvalidConfig,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadBytes([]byte(tt.yaml))
			if err == nil {
				t.Fatal("expected an error")
			}
			if got := errors.Code(err); got != tt.wantCode {
				t.Errorf("code = %s, want %s (err: %v)", got, tt.wantCode, err)
			}
		})
	}
}

func TestEnvOverride(t *testing.T) {
	t.Setenv("STRATA_VERSION", "7")
	_, err := LoadBytes([]byte(validManifest))
	if err == nil {
		t.Fatal("expected version override to fail validation")
	}
	if got := errors.Code(err); got != errors.CodeInvalidConfig {
		t.Errorf("code = %s, want %s", got, errors.CodeInvalidConfig)
	}
}

func TestRemote(t *testing.T) {
	if (Binding{ProviderKind: "remote::ollama"}).Remote() != true {
		t.Error("remote::ollama should be remote")
	}
	if (Binding{ProviderKind: "inline::scripted"}).Remote() != false {
		t.Error("inline::scripted should not be remote")
	}
}

func TestDecodeConfig(t *testing.T) {
	type cfg struct {
		URL     string `yaml:"url"`
		Timeout string `yaml:"timeout"`
	}

	b := Binding{
		ProviderID: "ollama",
		Config:     map[string]any{"url": "http://localhost:11434", "timeout": "30s"},
	}
	var out cfg
	if err := b.DecodeConfig(&out); err != nil {
		t.Fatalf("DecodeConfig: %v", err)
	}
	if out.URL != "http://localhost:11434" || out.Timeout != "30s" {
		t.Errorf("decoded = %+v", out)
	}
}

func TestDecodeConfigRejectsUnknownKeys(t *testing.T) {
	type cfg struct {
		URL string `yaml:"url"`
	}

	b := Binding{
		ProviderID: "ollama",
		Config:     map[string]any{"url": "http://localhost:11434", "tiemout": "30s"},
	}
	var out cfg
	err := b.DecodeConfig(&out)
	if err == nil {
		t.Fatal("expected unknown key to be rejected")
	}
	if got := errors.Code(err); got != errors.CodeInvalidConfig {
		t.Errorf("code = %s, want %s", got, errors.CodeInvalidConfig)
	}
}
