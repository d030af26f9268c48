// SPDX-License-Identifier: Apache-2.0
// Package errors provides the typed error taxonomy for Strata.
//
// Three families matter to callers: config errors are fatal at startup and
// the process must not come up; routing errors mean the request itself was
// invalid (no provider bound, unknown operation, contract shape mismatch);
// adapter errors mean the backend failed (timeout, upstream non-2xx,
// transport). The core performs zero automatic retries — retry policy lives
// with the caller, and the split lets it choose a strategy per family.
package errors

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrorCode classifies Strata errors for routing, monitoring and recovery.
type ErrorCode string

const (
	// CodeInternal indicates an internal system error.
	CodeInternal ErrorCode = "INTERNAL_ERROR"

	// CodeMissingCapability indicates a manifest without a required group.
	CodeMissingCapability ErrorCode = "CONFIG_MISSING_CAPABILITY"

	// CodeUnknownProviderKind indicates a provider kind outside the closed set.
	CodeUnknownProviderKind ErrorCode = "CONFIG_UNKNOWN_PROVIDER_KIND"

	// CodeInvalidConfig indicates a malformed or incomplete manifest.
	CodeInvalidConfig ErrorCode = "CONFIG_INVALID"

	// CodeDuplicateBank indicates a memory bank id registered twice.
	CodeDuplicateBank ErrorCode = "CONFIG_DUPLICATE_BANK"

	// CodeNoActiveProvider indicates no binding is active for a group.
	CodeNoActiveProvider ErrorCode = "ROUTING_NO_ACTIVE_PROVIDER"

	// CodeUnknownOperation indicates an operation the group does not declare.
	CodeUnknownOperation ErrorCode = "ROUTING_UNKNOWN_OPERATION"

	// CodeUnknownShield indicates a shield type with no configured backend.
	CodeUnknownShield ErrorCode = "ROUTING_UNKNOWN_SHIELD"

	// CodeContractViolation indicates a payload or response that does not
	// conform to the capability contract's declared shape.
	CodeContractViolation ErrorCode = "ROUTING_CONTRACT_VIOLATION"

	// CodeTimeout indicates an adapter invocation exceeded its deadline.
	CodeTimeout ErrorCode = "ADAPTER_TIMEOUT"

	// CodeUpstream indicates a non-2xx response from a remote backend.
	CodeUpstream ErrorCode = "ADAPTER_UPSTREAM"

	// CodeTransport indicates the remote backend could not be reached.
	CodeTransport ErrorCode = "ADAPTER_TRANSPORT"

	// CodeNotFound indicates a resource (bank, agent, session) was not found.
	CodeNotFound ErrorCode = "NOT_FOUND"

	// CodeDuplicateDocument indicates a document id already present in a bank.
	CodeDuplicateDocument ErrorCode = "CHUNKING_DUPLICATE_DOCUMENT"

	// CodeChunking indicates a document could not be chunked or embedded.
	CodeChunking ErrorCode = "CHUNKING_FAILED"
)

// StrataError is a typed error annotated with the originating capability
// group and provider identifier. It implements the error interface and can
// be unwrapped with errors.As().
type StrataError struct {
	Code       ErrorCode
	Message    string
	Err        error
	Group      string
	Provider   string
	Context    map[string]any
	StatusCode int // HTTP status for the wire surface
}

// Error implements the error interface.
func (e *StrataError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "[%s]", e.Code)
	if e.Group != "" {
		fmt.Fprintf(&b, " %s", e.Group)
		if e.Provider != "" {
			fmt.Fprintf(&b, "/%s", e.Provider)
		}
		b.WriteString(":")
	}
	fmt.Fprintf(&b, " %s", e.Message)
	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	return b.String()
}

// Unwrap implements errors.Unwrap for error chain traversal.
func (e *StrataError) Unwrap() error {
	return e.Err
}

// MarshalJSON implements json.Marshaler for structured logging.
func (e *StrataError) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Code     string         `json:"code"`
		Message  string         `json:"message"`
		Group    string         `json:"group,omitempty"`
		Provider string         `json:"provider,omitempty"`
		Cause    string         `json:"cause,omitempty"`
		Context  map[string]any `json:"context,omitempty"`
	}{
		Code:     string(e.Code),
		Message:  e.Message,
		Group:    e.Group,
		Provider: e.Provider,
		Cause:    causeString(e.Err),
		Context:  e.Context,
	})
}

func causeString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}

// New creates a StrataError with the given code, message and cause.
func New(code ErrorCode, msg string, cause error) *StrataError {
	return &StrataError{
		Code:       code,
		Message:    msg,
		Err:        cause,
		StatusCode: codeToStatusCode(code),
	}
}

// Newf creates a StrataError with a formatted message and no cause.
func Newf(code ErrorCode, format string, args ...any) *StrataError {
	return New(code, fmt.Sprintf(format, args...), nil)
}

// WithProvider annotates the error with the originating capability group and
// provider identifier. Returns the error for method chaining.
func (e *StrataError) WithProvider(group, provider string) *StrataError {
	e.Group = group
	e.Provider = provider
	return e
}

// WithContext adds a key-value pair to the error context.
// Returns the error for method chaining.
func (e *StrataError) WithContext(key string, value any) *StrataError {
	if e.Context == nil {
		e.Context = make(map[string]any)
	}
	e.Context[key] = value
	return e
}

// WithStatus overrides the HTTP status carried by the error. Used by the
// remote adapter to preserve the upstream status code.
func (e *StrataError) WithStatus(status int) *StrataError {
	e.StatusCode = status
	return e
}

// As attempts to convert an error to a StrataError. The second return is
// false when err is nil or no StrataError is found in its chain.
func As(err error) (*StrataError, bool) {
	var se *StrataError
	if errors.As(err, &se) {
		return se, true
	}
	return nil, false
}

// Wrap returns err as a StrataError, wrapping unknown errors as internal.
func Wrap(err error) *StrataError {
	if err == nil {
		return nil
	}
	if se, ok := As(err); ok {
		return se
	}
	return New(CodeInternal, "wrapped error", err)
}

// Annotate attaches group/provider to the StrataError in the chain, wrapping
// foreign errors first. The annotation is applied once: an error that already
// names its origin keeps it, so the innermost provider wins.
func Annotate(err error, group, provider string) error {
	if err == nil {
		return nil
	}
	se := Wrap(err)
	if se.Group == "" {
		se.Group = group
		se.Provider = provider
	}
	return se
}

// Code returns the error code of err, or CodeInternal for foreign errors.
func Code(err error) ErrorCode {
	if se, ok := As(err); ok {
		return se.Code
	}
	return CodeInternal
}

// Is reports whether err carries the given code.
func Is(err error, code ErrorCode) bool {
	return Code(err) == code
}

// IsConfig reports whether err is fatal-at-startup configuration trouble.
func IsConfig(err error) bool {
	switch Code(err) {
	case CodeMissingCapability, CodeUnknownProviderKind, CodeInvalidConfig, CodeDuplicateBank:
		return true
	}
	return false
}

// IsRouting reports whether err means the request itself was invalid.
func IsRouting(err error) bool {
	switch Code(err) {
	case CodeNoActiveProvider, CodeUnknownOperation, CodeUnknownShield, CodeContractViolation:
		return true
	}
	return false
}

// IsAdapter reports whether err means the backend failed.
func IsAdapter(err error) bool {
	switch Code(err) {
	case CodeTimeout, CodeUpstream, CodeTransport:
		return true
	}
	return false
}

// HTTPStatus returns the HTTP status code for err.
func HTTPStatus(err error) int {
	if se, ok := As(err); ok {
		if se.StatusCode != 0 {
			return se.StatusCode
		}
		return codeToStatusCode(se.Code)
	}
	return 500
}

// codeToStatusCode maps error codes to HTTP status codes.
func codeToStatusCode(code ErrorCode) int {
	switch code {
	case CodeNotFound, CodeNoActiveProvider, CodeUnknownOperation, CodeUnknownShield:
		return 404
	case CodeInvalidConfig, CodeMissingCapability, CodeUnknownProviderKind,
		CodeContractViolation, CodeDuplicateBank, CodeDuplicateDocument, CodeChunking:
		return 400
	case CodeTimeout:
		return 504
	case CodeUpstream, CodeTransport:
		return 502
	default:
		return 500
	}
}
