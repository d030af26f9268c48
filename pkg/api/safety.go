// Copyright 2026 © The Strata Authors
// SPDX-License-Identifier: Apache-2.0

package api

import "context"

// ViolationLevel is a totally ordered severity: none < warn < error.
type ViolationLevel string

const (
	ViolationNone  ViolationLevel = "none"
	ViolationWarn  ViolationLevel = "warn"
	ViolationError ViolationLevel = "error"
)

// Rank returns the level's position in the total order. Unknown levels rank
// below none so a malformed classifier response can never mask a violation.
func (v ViolationLevel) Rank() int {
	switch v {
	case ViolationNone:
		return 1
	case ViolationWarn:
		return 2
	case ViolationError:
		return 3
	}
	return 0
}

// Max returns the higher of two levels.
func (v ViolationLevel) Max(other ViolationLevel) ViolationLevel {
	if other.Rank() > v.Rank() {
		return other
	}
	return v
}

// ShieldVerdict is the outcome of one shield invocation. Metadata is passed
// through from the classifier untouched (e.g. a policy category code).
type ShieldVerdict struct {
	ViolationLevel ViolationLevel    `json:"violation_level"`
	UserMessage    string            `json:"user_message,omitempty"`
	Metadata       map[string]string `json:"metadata,omitempty"`
}

// RunShieldRequest evaluates a message list against one shield.
type RunShieldRequest struct {
	ShieldType string    `json:"shield_type"`
	Messages   []Message `json:"messages"`
}

// RunShieldResponse wraps the aggregated verdict for the batch.
type RunShieldResponse struct {
	Verdict ShieldVerdict `json:"verdict"`
}

// Safety is the capability contract for shield providers.
type Safety interface {
	// RunShield evaluates all messages and returns the highest violation
	// level seen across the batch.
	RunShield(ctx context.Context, req RunShieldRequest) (*RunShieldResponse, error)

	// ListShields returns the configured shield type names.
	ListShields(ctx context.Context) ([]string, error)
}
