// Copyright 2026 © The Strata Authors
// SPDX-License-Identifier: Apache-2.0

// Package safety implements the shield runner for the safety capability.
//
// Shields inspect conversation messages and return a verdict with a
// violation level. Running a shield over a batch of messages aggregates to
// the highest level found, so one flagged message marks the whole batch.
package safety

import (
	"context"
	"sync"

	"github.com/strata-ai/strata/pkg/api"
	"github.com/strata-ai/strata/pkg/errors"
)

// Shield classifies a batch of messages.
type Shield interface {
	// Type is the shield identifier callers route to.
	Type() string

	// Run inspects the messages and returns an aggregated verdict.
	Run(ctx context.Context, messages []api.Message) (*api.ShieldVerdict, error)
}

// Runner routes run-shield requests to registered shields.
type Runner struct {
	mu      sync.RWMutex
	shields map[string]Shield
	order   []string
}

// NewRunner creates a runner over the given shields.
func NewRunner(shields ...Shield) *Runner {
	r := &Runner{shields: make(map[string]Shield)}
	for _, s := range shields {
		r.Register(s)
	}
	return r
}

// Register adds a shield, replacing any previous shield of the same type.
func (r *Runner) Register(s Shield) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.shields[s.Type()]; !ok {
		r.order = append(r.order, s.Type())
	}
	r.shields[s.Type()] = s
}

// RunShield executes the named shield over the request messages.
func (r *Runner) RunShield(ctx context.Context, req api.RunShieldRequest) (*api.RunShieldResponse, error) {
	r.mu.RLock()
	s, ok := r.shields[req.ShieldType]
	r.mu.RUnlock()
	if !ok {
		return nil, errors.Newf(errors.CodeUnknownShield, "shield %q is not configured", req.ShieldType)
	}
	verdict, err := s.Run(ctx, req.Messages)
	if err != nil {
		return nil, err
	}
	if verdict == nil {
		verdict = &api.ShieldVerdict{ViolationLevel: api.ViolationNone}
	}
	return &api.RunShieldResponse{Verdict: *verdict}, nil
}

// ListShields returns the registered shield types in registration order.
func (r *Runner) ListShields(_ context.Context) ([]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]string(nil), r.order...), nil
}

var _ api.Safety = (*Runner)(nil)
