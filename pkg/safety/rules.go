// Copyright 2026 © The Strata Authors
// SPDX-License-Identifier: Apache-2.0

package safety

import (
	"context"
	"regexp"
	"strings"

	"github.com/strata-ai/strata/pkg/api"
)

// Hazard category codes. The taxonomy follows the MLCommons hazard list so
// rule-based and model-based shields speak the same vocabulary.
const (
	CategoryViolentCrimes    = "S1"
	CategoryNonViolentCrimes = "S2"
	CategorySexCrimes        = "S3"
	CategoryChildExploit     = "S4"
	CategoryDefamation       = "S5"
	CategorySpecializedAdv   = "S6"
	CategoryPrivacy          = "S7"
	CategoryIntellectualProp = "S8"
	CategoryIndiscrimWeapons = "S9"
	CategoryHate             = "S10"
	CategorySelfHarm         = "S11"
	CategorySexualContent    = "S12"
	CategoryElections        = "S13"
	CategoryCodeAbuse        = "S14"
)

// categoryTitles names each hazard code for verdict messages.
var categoryTitles = map[string]string{
	CategoryViolentCrimes:    "Violent Crimes",
	CategoryNonViolentCrimes: "Non-Violent Crimes",
	CategorySexCrimes:        "Sex Crimes",
	CategoryChildExploit:     "Child Exploitation",
	CategoryDefamation:       "Defamation",
	CategorySpecializedAdv:   "Specialized Advice",
	CategoryPrivacy:          "Privacy",
	CategoryIntellectualProp: "Intellectual Property",
	CategoryIndiscrimWeapons: "Indiscriminate Weapons",
	CategoryHate:             "Hate",
	CategorySelfHarm:         "Suicide & Self-Harm",
	CategorySexualContent:    "Sexual Content",
	CategoryElections:        "Elections",
	CategoryCodeAbuse:        "Code Interpreter Abuse",
}

// rule binds compiled patterns and keywords to a hazard category and the
// level a match raises.
type rule struct {
	category string
	level    api.ViolationLevel
	patterns []*regexp.Regexp
	keywords []string
}

// Conservative, English-focused defaults. Pattern shields are a first line;
// the guard shield covers what patterns miss.
var defaultRules = []struct {
	category string
	level    api.ViolationLevel
	patterns []string
	keywords []string
}{
	{
		category: CategoryIndiscrimWeapons,
		level:    api.ViolationError,
		patterns: []string{
			`(?i)(how\s+to\s+)?(make|build|create)\s+(me\s+)?(a\s+)?(bomb|explosive|weapon)`,
			`(?i)instructions?\s+(for|to)\s+(making|building)\s+(bombs?|explosives?|weapons?)`,
			`(?i)synthesize\s+(nerve\s+agents?|chemical\s+weapons?)`,
		},
		keywords: []string{"ricin", "sarin", "anthrax", "weaponize"},
	},
	{
		category: CategorySelfHarm,
		level:    api.ViolationError,
		patterns: []string{
			`(?i)how\s+to\s+(commit\s+)?suicide`,
			`(?i)best\s+way\s+to\s+(kill|harm)\s+(myself|yourself)`,
			`(?i)methods?\s+of\s+self[- ]?harm`,
		},
	},
	{
		category: CategoryNonViolentCrimes,
		level:    api.ViolationError,
		patterns: []string{
			`(?i)how\s+to\s+hack\s+(into|someone)`,
			`(?i)how\s+to\s+(buy|sell)\s+(drugs|stolen)`,
			`(?i)crack\s+(a\s+)?(password|software|license)`,
			`(?i)create\s+(a\s+)?phishing\s+(page|email|site)`,
		},
	},
	{
		category: CategoryCodeAbuse,
		level:    api.ViolationError,
		patterns: []string{
			`(?i)write\s+(a\s+)?(virus|malware|ransomware|trojan)`,
			`(?i)create\s+(a\s+)?(keylogger|botnet|rootkit)`,
		},
	},
	{
		category: CategorySpecializedAdv,
		level:    api.ViolationWarn,
		patterns: []string{
			`(?i)what\s+medication\s+should\s+i\s+take`,
			`(?i)diagnose\s+(my|this)\s+(condition|symptoms?)`,
			`(?i)give\s+me\s+financial\s+advice`,
			`(?i)is\s+this\s+(stock|crypto)\s+a\s+good\s+(buy|investment)`,
		},
	},
}

// RuleShield flags messages by regex and keyword matching. It needs no
// model backend, so it is always available, including in inline stacks.
type RuleShield struct {
	shieldType string
	rules      []rule
}

// RuleShieldOption configures a RuleShield.
type RuleShieldOption func(*RuleShield)

// WithRule adds a custom pattern rule for a category.
func WithRule(category string, level api.ViolationLevel, pattern string) RuleShieldOption {
	return func(s *RuleShield) {
		re, err := regexp.Compile(pattern)
		if err != nil {
			return
		}
		s.rules = append(s.rules, rule{category: category, level: level, patterns: []*regexp.Regexp{re}})
	}
}

// NewRuleShield creates the default pattern shield registered under the
// given type name.
func NewRuleShield(shieldType string, opts ...RuleShieldOption) *RuleShield {
	s := &RuleShield{shieldType: shieldType}
	for _, def := range defaultRules {
		r := rule{category: def.category, level: def.level, keywords: def.keywords}
		for _, p := range def.patterns {
			r.patterns = append(r.patterns, regexp.MustCompile(p))
		}
		s.rules = append(s.rules, r)
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Type returns the shield identifier.
func (s *RuleShield) Type() string { return s.shieldType }

// Run checks every message and aggregates to the highest violation level.
// Metadata carries the category code of the worst match.
func (s *RuleShield) Run(ctx context.Context, messages []api.Message) (*api.ShieldVerdict, error) {
	verdict := &api.ShieldVerdict{ViolationLevel: api.ViolationNone}
	for _, msg := range messages {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		level, category := s.classify(msg.Content)
		if level.Rank() > verdict.ViolationLevel.Rank() {
			verdict.ViolationLevel = level
			verdict.UserMessage = "content flagged: " + categoryTitles[category]
			verdict.Metadata = map[string]string{"violation_type": category}
		}
	}
	return verdict, nil
}

func (s *RuleShield) classify(content string) (api.ViolationLevel, string) {
	if content == "" {
		return api.ViolationNone, ""
	}
	normalized := strings.ToLower(content)

	worst := api.ViolationNone
	worstCategory := ""
	for _, r := range s.rules {
		matched := false
		for _, re := range r.patterns {
			if re.MatchString(normalized) {
				matched = true
				break
			}
		}
		if !matched {
			for _, kw := range r.keywords {
				if strings.Contains(normalized, strings.ToLower(kw)) {
					matched = true
					break
				}
			}
		}
		if matched && r.level.Rank() > worst.Rank() {
			worst = r.level
			worstCategory = r.category
		}
	}
	return worst, worstCategory
}

var _ Shield = (*RuleShield)(nil)
