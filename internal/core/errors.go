package core

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorCategory classifies errors for handling decisions.
type ErrorCategory string

const (
	ErrCatValidation ErrorCategory = "validation" // Invalid input or malformed agent output
	ErrCatExecution  ErrorCategory = "execution"  // Agent process failure
	ErrCatTimeout    ErrorCategory = "timeout"    // Agent exceeded its deadline
	ErrCatState      ErrorCategory = "state"      // Persisted state corruption or breaker open
	ErrCatNotFound   ErrorCategory = "not_found"  // Missing artifact, agent or file
	ErrCatInternal   ErrorCategory = "internal"   // Unexpected internal error
)

// DomainError represents a structured error from the domain layer.
type DomainError struct {
	Category  ErrorCategory
	Code      string
	Message   string
	Retryable bool
	Cause     error
	Details   map[string]interface{}
}

// Error implements the error interface.
func (e *DomainError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %s (%v)", e.Category, e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Category, e.Code, e.Message)
}

// Unwrap returns the underlying cause.
func (e *DomainError) Unwrap() error {
	return e.Cause
}

// Is checks if this error matches a target.
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return e.Category == t.Category && e.Code == t.Code
}

// WithCause wraps an underlying error.
func (e *DomainError) WithCause(cause error) *DomainError {
	e.Cause = cause
	return e
}

// WithDetail adds contextual information.
func (e *DomainError) WithDetail(key string, value interface{}) *DomainError {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// Error codes.
const (
	CodeAgentTimeout          = "AGENT_TIMEOUT"
	CodeAgentFailed           = "AGENT_FAILED"
	CodeAgentNotFound         = "AGENT_NOT_FOUND"
	CodeMissingArtifact       = "MISSING_ARTIFACT"
	CodeMalformedStatusBlock  = "MALFORMED_STATUS_BLOCK"
	CodeStateCorrupted        = "STATE_CORRUPTED"
	CodeCircuitOpen           = "CIRCUIT_OPEN"
	CodeInvalidConfig         = "INVALID_CONFIG"
	CodeInvalidTarget         = "INVALID_TARGET"
	CodePreflightFailed       = "PREFLIGHT_FAILED"
	CodeUnknownPhase          = "UNKNOWN_PHASE"
	CodeTemplateRenderFailure = "TEMPLATE_RENDER_FAILED"
)

// ErrValidation creates a validation error.
func ErrValidation(code, message string) *DomainError {
	return &DomainError{
		Category:  ErrCatValidation,
		Code:      code,
		Message:   message,
		Retryable: false,
	}
}

// ErrAgentTimeout reports an agent invocation that exceeded its deadline.
// The orchestrator treats the agent's output as absent.
func ErrAgentTimeout(agent, message string) *DomainError {
	return &DomainError{
		Category:  ErrCatTimeout,
		Code:      CodeAgentTimeout,
		Message:   message,
		Retryable: true,
		Details:   map[string]interface{}{"agent": agent},
	}
}

// ErrAgentFailure reports a non-zero, non-timeout agent exit.
func ErrAgentFailure(agent string, exitCode int, message string) *DomainError {
	return &DomainError{
		Category:  ErrCatExecution,
		Code:      CodeAgentFailed,
		Message:   message,
		Retryable: true,
		Details: map[string]interface{}{
			"agent":     agent,
			"exit_code": exitCode,
		},
	}
}

// ErrMissingArtifact reports an expected prior-phase artifact that does not exist.
func ErrMissingArtifact(path string) *DomainError {
	return &DomainError{
		Category:  ErrCatNotFound,
		Code:      CodeMissingArtifact,
		Message:   fmt.Sprintf("artifact not found: %s", path),
		Retryable: false,
		Details:   map[string]interface{}{"path": path},
	}
}

// ErrMalformedStatusBlock reports agent output without a usable status block.
func ErrMalformedStatusBlock(block, message string) *DomainError {
	return &DomainError{
		Category:  ErrCatValidation,
		Code:      CodeMalformedStatusBlock,
		Message:   message,
		Retryable: false,
		Details:   map[string]interface{}{"block": block},
	}
}

// ErrPersistenceCorruption reports an on-disk state file that could not be decoded.
func ErrPersistenceCorruption(path string) *DomainError {
	return &DomainError{
		Category:  ErrCatState,
		Code:      CodeStateCorrupted,
		Message:   fmt.Sprintf("state file is corrupt: %s", path),
		Retryable: false,
		Details:   map[string]interface{}{"path": path},
	}
}

// ErrCircuitOpen reports that the circuit breaker refuses further iterations.
func ErrCircuitOpen(reason string) *DomainError {
	return &DomainError{
		Category:  ErrCatState,
		Code:      CodeCircuitOpen,
		Message:   fmt.Sprintf("circuit breaker is open: %s", reason),
		Retryable: false,
	}
}

// ErrAgentNotFound reports an agent name that is not configured. Close
// matches are attached as the "suggestions" detail.
func ErrAgentNotFound(name string, suggestions []string) *DomainError {
	msg := fmt.Sprintf("unknown agent %q", name)
	if len(suggestions) > 0 {
		msg += fmt.Sprintf(" (did you mean %s?)", strings.Join(suggestions, ", "))
	}
	return &DomainError{
		Category:  ErrCatNotFound,
		Code:      CodeAgentNotFound,
		Message:   msg,
		Retryable: false,
		Details: map[string]interface{}{
			"agent":       name,
			"suggestions": suggestions,
		},
	}
}

// ErrPreflight reports that resource checks refused an agent invocation.
func ErrPreflight(agent, message string) *DomainError {
	return &DomainError{
		Category:  ErrCatExecution,
		Code:      CodePreflightFailed,
		Message:   message,
		Retryable: true,
		Details:   map[string]interface{}{"agent": agent},
	}
}

// ErrNotFound creates a not found error.
func ErrNotFound(resource, id string) *DomainError {
	return &DomainError{
		Category:  ErrCatNotFound,
		Code:      "NOT_FOUND",
		Message:   fmt.Sprintf("%s not found: %s", resource, id),
		Retryable: false,
	}
}

// IsRetryable checks if an error is retryable.
func IsRetryable(err error) bool {
	var domErr *DomainError
	if errors.As(err, &domErr) {
		return domErr.Retryable
	}
	return false
}

// GetCategory extracts the error category.
func GetCategory(err error) ErrorCategory {
	var domErr *DomainError
	if errors.As(err, &domErr) {
		return domErr.Category
	}
	return ErrCatInternal
}

// IsCategory checks if an error belongs to a category.
func IsCategory(err error, cat ErrorCategory) bool {
	return GetCategory(err) == cat
}

// HasCode reports whether err is a DomainError carrying code.
func HasCode(err error, code string) bool {
	var domErr *DomainError
	if errors.As(err, &domErr) {
		return domErr.Code == code
	}
	return false
}
