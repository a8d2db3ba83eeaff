// Package logger wraps zerolog with featflow conventions: a small Config,
// structured field helpers for pipeline/node/pass identifiers, and a global
// registry of named component loggers.
//
// The execution engine logs one debug line per node and one info line per
// completed pass; construction-time warnings (such as unused declared inputs)
// go through the same logger.
package logger
