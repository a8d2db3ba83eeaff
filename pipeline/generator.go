package pipeline

import (
	"context"

	"github.com/kbukum/featflow/errors"
	"github.com/kbukum/featflow/stream"
)

// Batch is one generator-supplied unit of input data, keyed by input node
// name like the in-memory pass methods.
type Batch = map[string]any

// FitIterator fits the pipeline incrementally from a caller-paced stream of
// batches, consuming at most stepsPerEpoch*epochs of them. Each batch
// triggers exactly one partial-fit sweep over the path; the stream stopping
// early between batches is the cancellation mechanism.
//
// At most one trainable node may be reachable from the outputs. When one is
// present, its ancestor transformations are assumed already fitted: for each
// batch the scheduler runs them to assemble the trainable's input tuple and
// forwards the resulting stream to the model's own epoch-based protocol.
func (p *Pipeline) FitIterator(ctx context.Context, batches stream.Iterator[Batch], stepsPerEpoch, epochs int) error {
	if p.eager {
		return errors.EagerRun()
	}
	if len(p.parts.trainables) > 1 {
		names := make([]string, len(p.parts.trainables))
		for i, n := range p.parts.trainables {
			names[i] = n.name
		}
		return errors.MultipleTrainables(names)
	}

	bounded := stream.Take(batches, stepsPerEpoch*epochs)
	if len(p.parts.trainables) == 1 {
		return p.fitTrainable(ctx, p.parts.trainables[0], bounded, stepsPerEpoch, epochs)
	}

	return stream.Drain(ctx, bounded, func(ctx context.Context, batch Batch) error {
		return p.fit(ctx, batch, true)
	})
}

// fitTrainable adapts the generic batch stream to the model collaborator's
/// protocol: per batch, run the trainable's ancestor path and emit the tuple
// of its inbound values. The ancestor subpath is cleaned after every batch,
// successful or not, so an aborted stream never leaves stale pass state on
// the shared graph.
func (p *Pipeline) fitTrainable(ctx context.Context, t *Node, batches stream.Iterator[Batch], stepsPerEpoch, epochs int) error {
	ancestry, err := buildPath([]*Node{t})
	if err != nil {
		return err
	}
	ancestors := ancestry[:len(ancestry)-1]
	parts := partitionPath(ancestors)

	reset := func() {
		for _, n := range ancestors {
			n.hasRun = false
			n.output = nil
		}
	}

	tuples := stream.Map(batches, func(_ context.Context, batch Batch) ([]any, error) {
		tuple, err := p.ancestorTuple(t, ancestors, parts.inputs, batch)
		reset()
		if err != nil {
			return nil, err
		}
		return tuple, nil
	})

	if err := t.model.FitIterator(ctx, tuples, stepsPerEpoch, epochs); err != nil {
		reset()
		return errors.NodeFailed(t.name, err).WithDetail("pass", passFit)
	}
	return nil
}

// ancestorTuple loads batch data into the subpath's inputs, runs its
// transformations, and extracts the trainable's inbound values. The caller
// owns cleanup of the subpath regardless of outcome.
func (p *Pipeline) ancestorTuple(t *Node, ancestors []*Node, inputs []*Node, batch Batch) ([]any, error) {
	for _, in := range inputs {
		v, ok := batch[in.name]
		if !ok {
			return nil, errors.MissingInput(in.name)
		}
		in.output = v
		in.hasRun = true
	}
	for _, n := range ancestors {
		if n.role == RoleInput {
			continue
		}
		out, err := p.transformNode(n)
		if err != nil {
			return nil, errors.NodeFailed(n.name, err).WithDetail("pass", passFit)
		}
		n.output = out
		n.hasRun = true
	}
	return t.inputValues(), nil
}

// TransformIterator maps a caller-paced stream of batches through the
// pipeline, consuming at most stepsPerEpoch*epochs of them and yielding one
// result mapping per batch. Storage writes, when enabled, happen per batch
// under the store's positional counter.
func (p *Pipeline) TransformIterator(ctx context.Context, batches stream.Iterator[Batch], stepsPerEpoch, epochs int, opts ...RunOption) (stream.Iterator[map[string]any], error) {
	if p.eager {
		return nil, errors.EagerRun()
	}
	bounded := stream.Take(batches, stepsPerEpoch*epochs)
	return stream.Map(bounded, func(ctx context.Context, batch Batch) (map[string]any, error) {
		return p.Transform(ctx, batch, opts...)
	}), nil
}

/// EvaluateIterator is the metric counterpart of TransformIterator: one
// evaluate pass per pulled batch, yielding one metric mapping each.
func (p *Pipeline) EvaluateIterator(ctx context.Context, batches stream.Iterator[Batch], stepsPerEpoch, epochs int, opts ...RunOption) (stream.Iterator[map[string]any], error) {
	if p.eager {
		return nil, errors.EagerRun()
	}
	bounded := stream.Take(batches, stepsPerEpoch*epochs)
	return stream.Map(bounded, func(ctx context.Context, batch Batch) (map[string]any, error) {
		return p.Evaluate(ctx, batch, opts...)
	}), nil
}
