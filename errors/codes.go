package errors

// ErrorCode represents a machine-readable error code.
type ErrorCode string

// Graph construction errors (fatal, no pipeline object is returned)
const (
	// ErrCodeCycle indicates the node graph contains a cycle.
	ErrCodeCycle ErrorCode = "CYCLE_DETECTED"
	// ErrCodeUnnamedOutput indicates a declared output carries an auto-generated name.
	ErrCodeUnnamedOutput ErrorCode = "UNNAMED_OUTPUT"
	// ErrCodeDisconnectedInput indicates the path reaches an input node that was not declared.
	ErrCodeDisconnectedInput ErrorCode = "DISCONNECTED_INPUT"
	// ErrCodeMultipleTrainables indicates more than one trainable node in a generator-driven fit.
	ErrCodeMultipleTrainables ErrorCode = "MULTIPLE_TRAINABLES"
)

// Execution errors (fatal per pass)
const (
	// ErrCodeMissingInput indicates a required input key is absent from the supplied data.
	ErrCodeMissingInput ErrorCode = "MISSING_INPUT"
	// ErrCodeNodeFailed indicates a node's fit/transform/evaluate step returned an error.
	ErrCodeNodeFailed ErrorCode = "NODE_FAILED"
	// ErrCodeEagerRun indicates a transform-style call on an eagerly executed pipeline.
	ErrCodeEagerRun ErrorCode = "EAGER_RUN"
	// ErrCodeInvalidIndex indicates a supplied write index is not one-dimensional.
	ErrCodeInvalidIndex ErrorCode = "INVALID_INDEX"
)

// Validation errors
const (
	// ErrCodeInvalidInput indicates the input is invalid.
	ErrCodeInvalidInput ErrorCode = "INVALID_INPUT"
	// ErrCodeMissingField indicates a required field is missing.
	ErrCodeMissingField ErrorCode = "MISSING_FIELD"
)

// Persistence errors
const (
	// ErrCodeInvalidArtifact indicates a persisted pipeline record could not be decoded.
	ErrCodeInvalidArtifact ErrorCode = "INVALID_ARTIFACT"
	// ErrCodeUnknownKind indicates a node kind absent from the load registry.
	ErrCodeUnknownKind ErrorCode = "UNKNOWN_KIND"
	// ErrCodeStorage indicates a storage backend failure.
	ErrCodeStorage ErrorCode = "STORAGE_ERROR"
	// ErrCodeNotFound indicates the requested artifact was not found.
	ErrCodeNotFound ErrorCode = "NOT_FOUND"
)

// Internal errors
const (
	// ErrCodeInternal indicates an unexpected internal error.
	ErrCodeInternal ErrorCode = "INTERNAL_ERROR"
)

var retryableCodes = map[ErrorCode]bool{
	ErrCodeStorage: true,
}

// IsRetryableCode reports whether an error code represents a retryable condition.
func IsRetryableCode(code ErrorCode) bool {
	return retryableCodes[code]
}
