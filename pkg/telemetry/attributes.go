// Copyright 2026 © The Strata Authors
// SPDX-License-Identifier: Apache-2.0

package telemetry

import (
	"go.opentelemetry.io/otel/attribute"
)

// Semantic conventions for stack telemetry. These follow OpenTelemetry
// naming conventions where applicable.
const (
	// Dispatch attributes
	AttrCapability = "strata.capability"
	AttrOperation  = "strata.operation"
	AttrProvider   = "strata.provider"
	AttrErrorCode  = "strata.error.code"

	// Memory attributes
	AttrBankID     = "strata.bank.id"
	AttrDocCount   = "strata.documents.count"
	AttrChunkCount = "strata.chunks.count"
	AttrQueryK     = "strata.query.k"

	// Safety attributes
	AttrShieldType     = "strata.shield.type"
	AttrViolationLevel = "strata.shield.violation_level"

	// Agent attributes
	AttrAgentID   = "strata.agent.id"
	AttrSessionID = "strata.session.id"
	AttrTurnID    = "strata.turn.id"

	// LLM attributes (standard gen_ai conventions)
	AttrLLMModel        = "gen_ai.request.model"
	AttrLLMTokensInput  = "gen_ai.usage.input_tokens"
	AttrLLMTokensOutput = "gen_ai.usage.output_tokens"
)

// DispatchAttributes returns the common attributes for a dispatch span.
func DispatchAttributes(capability, operation, provider string) []attribute.KeyValue {
	attrs := []attribute.KeyValue{
		attribute.String(AttrCapability, capability),
		attribute.String(AttrOperation, operation),
	}
	if provider != "" {
		attrs = append(attrs, attribute.String(AttrProvider, provider))
	}
	return attrs
}

// ShieldAttributes returns attributes for a shield invocation.
func ShieldAttributes(shieldType, level string) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String(AttrShieldType, shieldType),
		attribute.String(AttrViolationLevel, level),
	}
}

// TurnAttributes returns attributes for one agent turn.
func TurnAttributes(agentID, sessionID, turnID string) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String(AttrAgentID, agentID),
		attribute.String(AttrSessionID, sessionID),
		attribute.String(AttrTurnID, turnID),
	}
}
