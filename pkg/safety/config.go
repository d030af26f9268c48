// Copyright 2026 © The Strata Authors
// SPDX-License-Identifier: Apache-2.0

package safety

import (
	"github.com/strata-ai/strata/pkg/api"
	"github.com/strata-ai/strata/pkg/errors"
)

// Config is the provider-config bag of an inline::shields binding.
type Config struct {
	Shields []ShieldConfig `yaml:"shields"`
}

// ShieldConfig declares one shield instance.
type ShieldConfig struct {
	// Type is the identifier callers pass as shield_type.
	Type string `yaml:"type"`

	// Engine selects the implementation: "rules" (pattern matching, no
	// backend) or "guard" (model-backed). Empty means "rules".
	Engine string `yaml:"engine"`

	// Model is the guard model name; only meaningful for engine "guard".
	Model string `yaml:"model"`
}

// NewFromConfig assembles a runner from declared shields. A "guard" shield
// needs an inference backend; without one it degrades to the rule engine so
// an inline stack still answers every configured shield type.
func NewFromConfig(cfg Config, inference api.Inference) (*Runner, error) {
	if len(cfg.Shields) == 0 {
		cfg.Shields = []ShieldConfig{{Type: "content_safety", Engine: "rules"}}
	}

	r := NewRunner()
	for _, sc := range cfg.Shields {
		if sc.Type == "" {
			return nil, errors.Newf(errors.CodeInvalidConfig, "shield declaration without a type")
		}
		switch sc.Engine {
		case "", "rules":
			r.Register(NewRuleShield(sc.Type))
		case "guard":
			if inference == nil {
				r.Register(NewRuleShield(sc.Type))
				continue
			}
			model := sc.Model
			if model == "" {
				model = "llama-guard3"
			}
			r.Register(NewGuardShield(sc.Type, inference, model))
		default:
			return nil, errors.Newf(errors.CodeInvalidConfig, "shield %q: unknown engine %q", sc.Type, sc.Engine)
		}
	}
	return r, nil
}
