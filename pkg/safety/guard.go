// Copyright 2026 © The Strata Authors
// SPDX-License-Identifier: Apache-2.0

package safety

import (
	"context"
	"fmt"
	"strings"

	"github.com/strata-ai/strata/pkg/api"
)

// GuardShield classifies conversations with a safety-tuned model through the
// inference capability. The model is prompted with the hazard taxonomy and
// expected to answer "safe" or "unsafe" followed by the violated category
// codes on the next line.
type GuardShield struct {
	shieldType string
	inference  api.Inference
	model      string
}

// NewGuardShield creates a model-backed shield.
func NewGuardShield(shieldType string, inference api.Inference, model string) *GuardShield {
	return &GuardShield{shieldType: shieldType, inference: inference, model: model}
}

// Type returns the shield identifier.
func (s *GuardShield) Type() string { return s.shieldType }

// Run prompts the guard model with the conversation and parses its verdict.
func (s *GuardShield) Run(ctx context.Context, messages []api.Message) (*api.ShieldVerdict, error) {
	if len(messages) == 0 {
		return &api.ShieldVerdict{ViolationLevel: api.ViolationNone}, nil
	}

	resp, err := s.inference.ChatCompletion(ctx, api.ChatCompletionRequest{
		Model: s.model,
		Messages: []api.Message{
			{Role: api.RoleUser, Content: s.buildPrompt(messages)},
		},
		SamplingParams: api.SamplingParams{Temperature: 0},
	})
	if err != nil {
		return nil, err
	}
	return s.parseVerdict(resp.Completion.Content), nil
}

// buildPrompt renders the taxonomy and the conversation for the guard model.
func (s *GuardShield) buildPrompt(messages []api.Message) string {
	var b strings.Builder
	b.WriteString("Task: Check if there is unsafe content in the conversation below according to our safety policy with the these categories.\n\n")
	b.WriteString("<BEGIN UNSAFE CONTENT CATEGORIES>\n")
	for i := 1; i <= 14; i++ {
		code := fmt.Sprintf("S%d", i)
		fmt.Fprintf(&b, "%s: %s.\n", code, categoryTitles[code])
	}
	b.WriteString("<END UNSAFE CONTENT CATEGORIES>\n\n")
	b.WriteString("<BEGIN CONVERSATION>\n\n")
	for _, m := range messages {
		role := "User"
		if m.Role == api.RoleAssistant {
			role = "Agent"
		}
		fmt.Fprintf(&b, "%s: %s\n\n", role, m.Content)
	}
	b.WriteString("<END CONVERSATION>\n\n")
	b.WriteString("Provide your safety assessment for the conversation above:\n")
	b.WriteString(" - First line must read 'safe' or 'unsafe'.\n")
	b.WriteString(" - If unsafe, a second line must include a comma-separated list of violated categories.")
	return b.String()
}

// parseVerdict maps the guard model's answer to a verdict. Anything that is
// not a clean "safe" counts as a violation; a guard that cannot be parsed
// must not wave content through.
func (s *GuardShield) parseVerdict(answer string) *api.ShieldVerdict {
	lines := strings.Split(strings.TrimSpace(answer), "\n")
	head := strings.ToLower(strings.TrimSpace(lines[0]))

	if head == "safe" {
		return &api.ShieldVerdict{ViolationLevel: api.ViolationNone}
	}

	verdict := &api.ShieldVerdict{
		ViolationLevel: api.ViolationError,
		UserMessage:    "I can't answer that. Can I help with something else?",
	}
	if head != "unsafe" {
		verdict.Metadata = map[string]string{"raw_response": strings.TrimSpace(answer)}
		return verdict
	}
	if len(lines) > 1 {
		codes := strings.TrimSpace(lines[1])
		if codes != "" {
			verdict.Metadata = map[string]string{"violation_type": codes}
		}
	}
	return verdict
}

var _ Shield = (*GuardShield)(nil)
