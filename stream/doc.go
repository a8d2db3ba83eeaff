// Package stream provides a lazy, pull-based iterator abstraction used by the
// generator-driven pipeline passes.
//
// The engine never owns the pacing of a stream: batches are pulled one at a
// time via Next, and the caller cancels simply by exhausting or abandoning the
// iterator between pulls. Take enforces the scheduler's step bound
// (steps-per-epoch times epochs) regardless of how many batches the source
// could produce.
package stream
