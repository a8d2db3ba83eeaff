package errors

import (
	"errors"
	"fmt"
	"strings"
)

// AppError is the unified application error type.
type AppError struct {
	// Code is a machine-readable error code.
	Code ErrorCode `json:"code"`
	// Message is a human-readable error message.
	Message string `json:"message"`
	// Retryable indicates if the operation can be retried.
	Retryable bool `json:"retryable"`
	// Details contains additional context for the error.
	Details map[string]any `json:"details,omitempty"`
	// Cause is the underlying error that caused this error.
	Cause error `json:"-"`
}

// Error returns the string representation of the error.
func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (cause: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause of the error.
func (e *AppError) Unwrap() error { return e.Cause }

// WithCause sets the underlying cause of the error and returns the receiver.
func (e *AppError) WithCause(cause error) *AppError {
	e.Cause = cause
	return e
}

// WithDetails merges the provided details into the error and returns the receiver.
func (e *AppError) WithDetails(details map[string]any) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	for k, v := range details {
		e.Details[k] = v
	}
	return e
}

// WithDetail sets a single detail key-value pair and returns the receiver.
func (e *AppError) WithDetail(key string, value any) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

// New creates a new AppError with automatic retryable detection.
func New(code ErrorCode, message string) *AppError {
	return &AppError{
		Code:      code,
		Message:   message,
		Retryable: IsRetryableCode(code),
	}
}

// CodeOf extracts the ErrorCode from err, or ErrCodeInternal if err is not an AppError.
func CodeOf(err error) ErrorCode {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return ErrCodeInternal
}

// HasCode reports whether err (or any error in its chain) carries the given code.
func HasCode(err error, code ErrorCode) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code == code
	}
	return false
}

// --- Common Error Constructors ---

// Cycle creates a new AppError for a cyclic node graph.
// nodePath lists the node names along the detected cycle.
func Cycle(nodePath []string) *AppError {
	msg := "The node graph contains a cycle."
	if len(nodePath) > 0 {
		msg = fmt.Sprintf("The node graph contains a cycle: %s.", strings.Join(nodePath, " -> "))
	}
	return &AppError{
		Code: ErrCodeCycle, Message: msg, Retryable: false,
		Details: map[string]any{"nodes": nodePath},
	}
}

// UnnamedOutput creates a new AppError for an output node without an explicit name.
func UnnamedOutput(nodeName string) *AppError {
	return &AppError{
		Code:    ErrCodeUnnamedOutput,
		Message: "All outputs must carry an explicit name; pass one when the node is created.",
		Details: map[string]any{"node": nodeName},
	}
}

// DisconnectedInput creates a new AppError for input nodes reachable from the
// outputs but absent from the pipeline's declared inputs.
func DisconnectedInput(nodeNames []string) *AppError {
	return &AppError{
		Code:    ErrCodeDisconnectedInput,
		Message: fmt.Sprintf("The execution path requires undeclared input nodes: %s.", strings.Join(nodeNames, ", ")),
		Details: map[string]any{"nodes": nodeNames},
	}
}

// MissingInput creates a new AppError for a required input key absent from supplied data.
func MissingInput(key string) *AppError {
	return &AppError{
		Code:    ErrCodeMissingInput,
		Message: fmt.Sprintf("Input data is missing the required key %q.", key),
		Details: map[string]any{"key": key},
	}
}

// NodeFailed creates a new AppError tagging a node execution failure with the node's name.
func NodeFailed(nodeName string, cause error) *AppError {
	return &AppError{
		Code:    ErrCodeNodeFailed,
		Message: fmt.Sprintf("Error thrown at node named %q.", nodeName),
		Cause:   cause,
		Details: map[string]any{"node": nodeName},
	}
}

// EagerRun creates a new AppError for a transform-style call on an eager pipeline.
func EagerRun() *AppError {
	return &AppError{
		Code:    ErrCodeEagerRun,
		Message: "This pipeline executed eagerly at construction; its outputs are already computed.",
	}
}

// MultipleTrainables creates a new AppError for a generator-driven fit targeting
// more than one trainable node.
func MultipleTrainables(nodeNames []string) *AppError {
	return &AppError{
		Code:    ErrCodeMultipleTrainables,
		Message: fmt.Sprintf("A generator-driven fit permits exactly one trainable node; found: %s.", strings.Join(nodeNames, ", ")),
		Details: map[string]any{"nodes": nodeNames},
	}
}

// InvalidIndex creates a new AppError for a write index that is not one-dimensional.
func InvalidIndex(reason string) *AppError {
	return &AppError{
		Code:    ErrCodeInvalidIndex,
		Message: fmt.Sprintf("Invalid index: %s", reason),
	}
}

// InvalidInput creates a new AppError for invalid input.
func InvalidInput(field, reason string) *AppError {
	details := make(map[string]any)
	if field != "" {
		details["field"] = field
	}
	return &AppError{
		Code: ErrCodeInvalidInput, Message: fmt.Sprintf("Invalid input: %s", reason),
		Details: details,
	}
}

// Validation creates a new AppError for validation errors.
func Validation(message string) *AppError {
	return &AppError{Code: ErrCodeInvalidInput, Message: message}
}

// MissingField creates a new AppError for a missing required field.
func MissingField(field string) *AppError {
	return &AppError{
		Code: ErrCodeMissingField, Message: fmt.Sprintf("Missing required field: %s", field),
		Details: map[string]any{"field": field},
	}
}

// InvalidArtifact creates a new AppError for an undecodable pipeline record.
func InvalidArtifact(reason string, cause error) *AppError {
	return &AppError{
		Code: ErrCodeInvalidArtifact, Message: fmt.Sprintf("Invalid pipeline artifact: %s", reason),
		Cause: cause,
	}
}

// UnknownKind creates a new AppError for a node kind missing from the load registry.
func UnknownKind(kind string) *AppError {
	return &AppError{
		Code:    ErrCodeUnknownKind,
		Message: fmt.Sprintf("No factory registered for node kind %q.", kind),
		Details: map[string]any{"kind": kind},
	}
}

// Storage creates a new AppError for a storage backend failure.
func Storage(operation string, cause error) *AppError {
	return &AppError{
		Code: ErrCodeStorage, Message: fmt.Sprintf("Storage operation %q failed.", operation),
		Retryable: true, Cause: cause,
		Details: map[string]any{"operation": operation},
	}
}

// NotFound creates a new AppError for an artifact that was not found.
func NotFound(resource, id string) *AppError {
	details := map[string]any{"resource": resource}
	if id != "" {
		details["id"] = id
	}
	return &AppError{
		Code: ErrCodeNotFound, Message: fmt.Sprintf("The requested %s was not found.", resource),
		Details: details,
	}
}

// Internal creates a new AppError for an unexpected internal error.
func Internal(cause error) *AppError {
	return &AppError{
		Code: ErrCodeInternal, Message: "An unexpected error occurred.",
		Cause: cause,
	}
}
