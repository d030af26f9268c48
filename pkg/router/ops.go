// Copyright 2026 © The Strata Authors
// SPDX-License-Identifier: Apache-2.0

package router

// Operation names as they appear on the wire: POST /<capability>/<operation>.
const (
	OpChatCompletion = "chat-completion"
	OpCompletion     = "completion"
	OpEmbeddings     = "embeddings"

	OpRunShield   = "run-shield"
	OpListShields = "list-shields"

	OpRegisterBank   = "register-bank"
	OpUnregisterBank = "unregister-bank"
	OpListBanks      = "list-banks"
	OpInsert         = "insert"
	OpQuery          = "query"

	OpCreateAgent   = "create-agent"
	OpCreateSession = "create-session"
	OpCreateTurn    = "create-turn"
	OpGetSession    = "get-session"

	OpLogEvent = "log-event"

	OpListTools  = "list-tools"
	OpInvokeTool = "invoke-tool"
)
