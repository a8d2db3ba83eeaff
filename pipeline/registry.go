package pipeline

import (
	"github.com/kbukum/featflow/errors"
)

// Registry maps persisted operation kinds to factories so a loaded artifact
// can rebuild its transformers, metrics, and models. Operations are opaque
// behavior; only their kind and learned state cross the persistence
// boundary.
type Registry struct {
	transformers map[string]func() Transformer
	metrics      map[string]func() Metric
	models       map[string]func() Model
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		transformers: make(map[string]func() Transformer),
		metrics:      make(map[string]func() Metric),
		models:       make(map[string]func() Model),
	}
}

// RegisterTransformer binds a transformer factory to a kind. A later
// registration for the same kind replaces the earlier one.
func (r *Registry) RegisterTransformer(kind string, fn func() Transformer) {
	r.transformers[kind] = fn
}

// RegisterMetric binds a metric factory to a kind.
func (r *Registry) RegisterMetric(kind string, fn func() Metric) {
	r.metrics[kind] = fn
}

// RegisterModel binds a model factory to a kind.
func (r *Registry) RegisterModel(kind string, fn func() Model) {
	r.models[kind] = fn
}

func (r *Registry) transformer(kind string) (Transformer, error) {
	fn, ok := r.transformers[kind]
	if !ok {
		return nil, errors.UnknownKind(kind)
	}
	return fn(), nil
}

func (r *Registry) metric(kind string) (Metric, error) {
	fn, ok := r.metrics[kind]
	if !ok {
		return nil, errors.UnknownKind(kind)
	}
	return fn(), nil
}

func (r *Registry) model(kind string) (Model, error) {
	fn, ok := r.models[kind]
	if !ok {
		return nil, errors.UnknownKind(kind)
	}
	return fn(), nil
}
