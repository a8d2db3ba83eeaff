// Package errors provides unified error handling for featflow.
// It implements structured error types with machine-readable error codes,
// contextual details, and cause chaining compatible with errors.Is/As.
//
// Construction-time errors (cycle detection, unnamed outputs, disconnected
// inputs) and run-time errors (node failures, missing input keys) share the
// same AppError shape so callers can dispatch on Code without string matching.
package errors
