// Package feature provides built-in transformations and metrics for pipeline
// nodes: stateless lambdas, arithmetic combiners, running standardization
// with mergeable partial fits, a one-hot index encoder, and common
// evaluation metrics.
//
// Every persistable type carries a kind; Register binds the full set to a
// pipeline.Registry so saved pipelines can be reloaded.
package feature
