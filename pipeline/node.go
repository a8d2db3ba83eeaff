package pipeline

import (
	"context"

	"github.com/google/uuid"

	"github.com/kbukum/featflow/stream"
)

// Role is the closed set of node variants.
type Role int8

const (
	// RoleInput injects external data; it has no inbound nodes.
	RoleInput Role = iota
	// RoleTransform is a stateful or stateless function of its inbound outputs.
	RoleTransform
	// RoleMetric consumes outputs to produce an aggregate, never consumed downstream.
	RoleMetric
	// RoleTrainable delegates fitting to an external model collaborator.
	RoleTrainable
)

// String returns the role name used in logs and persisted artifacts.
func (r Role) String() string {
	switch r {
	case RoleInput:
		return "input"
	case RoleTransform:
		return "transform"
	case RoleMetric:
		return "metric"
	case RoleTrainable:
		return "trainable"
	default:
		return "unknown"
	}
}

// Transformer is the capability interface of a transformation node.
// Stateless transformers implement Fit and PartialFit as no-ops.
type Transformer interface {
	// Fit learns state from a full in-memory batch of inbound values.
	Fit(inputs []any) error
	// PartialFit merges one batch worth of evidence into the learned state.
	PartialFit(inputs []any) error
	// Transform computes the node's output from inbound values.
	Transform(inputs []any) (any, error)
}

// Metric consumes node outputs to produce an evaluation result.
type Metric interface {
	Evaluate(inputs []any) (any, error)
}

// Model is the external trainable collaborator. The engine depends only on
// this method shape, never on the model's internal representation.
type Model interface {
	// Fit trains on a full in-memory tuple of inbound values.
	Fit(ctx context.Context, inputs []any) error
	// FitIterator trains from a stream of inbound-value tuples using the
	// model's own epoch semantics.
	FitIterator(ctx context.Context, batches stream.Iterator[[]any], stepsPerEpoch, epochs int) error
	// Predict computes the node's output from inbound values.
	Predict(inputs []any) (any, error)
}

// StateCodec is optionally implemented by transformers, metrics, and models
// whose learned state must survive save/load.
type StateCodec interface {
	MarshalState() ([]byte, error)
	UnmarshalState(data []byte) error
}

// Kinded identifies the registry kind used to rebuild an operation at load
// time. Operations without a kind cannot be persisted.
type Kinded interface {
	Kind() string
}

// Node is a vertex in the computation DAG. Connectivity is fixed at
// definition time; output and the run flag are pass-scoped.
type Node struct {
	id          string
	name        string
	defaultName bool
	role        Role

	inbound  []*Node
	outbound []*Node

	output any
	hasRun bool

	op     Transformer
	metric Metric
	model  Model
}

// Input creates an input node. Pass an empty name to auto-generate one;
// auto-named nodes cannot be declared as pipeline outputs.
func Input(name string) *Node {
	n := newNode(name, RoleInput)
	return n
}

// InputData creates an input node that already holds its data. Building a
// pipeline over a populated input makes the pipeline eager: the transform
// sweep runs at construction and the explicit pass methods are rejected.
func InputData(name string, data any) *Node {
	n := newNode(name, RoleInput)
	n.output = data
	return n
}

// Apply creates a transformation node consuming the given inbound nodes.
func Apply(name string, op Transformer, inbound ...*Node) *Node {
	n := newNode(name, RoleTransform)
	n.op = op
	connect(n, inbound)
	return n
}

// Measure creates a metric node consuming the given inbound nodes.
// Metric nodes are terminal: nothing may consume them downstream.
func Measure(name string, m Metric, inbound ...*Node) *Node {
	n := newNode(name, RoleMetric)
	n.metric = m
	connect(n, inbound)
	return n
}

// Train creates a trainable node whose fitting is delegated to model.
func Train(name string, model Model, inbound ...*Node) *Node {
	n := newNode(name, RoleTrainable)
	n.model = model
	connect(n, inbound)
	return n
}

func newNode(name string, role Role) *Node {
	n := &Node{
		id:   uuid.NewString(),
		role: role,
		name: name,
	}
	if name == "" {
		n.name = role.String() + "-" + n.id[:8]
		n.defaultName = true
	}
	return n
}

func connect(n *Node, inbound []*Node) {
	for _, in := range inbound {
		n.inbound = append(n.inbound, in)
		if !containsNode(in.outbound, n) {
			in.outbound = append(in.outbound, n)
		}
	}
}

func containsNode(nodes []*Node, target *Node) bool {
	for _, n := range nodes {
		if n == target {
			return true
		}
	}
	return false
}

// Name returns the node's identifier.
func (n *Node) Name() string { return n.name }

// Role returns the node's role tag.
func (n *Node) Role() Role { return n.role }

// IsDefaultName reports whether the name was auto-generated.
func (n *Node) IsDefaultName() bool { return n.defaultName }

// Inbound returns the node's ordered predecessors.
func (n *Node) Inbound() []*Node {
	out := make([]*Node, len(n.inbound))
	copy(out, n.inbound)
	return out
}

// Outbound returns the node's successors.
func (n *Node) Outbound() []*Node {
	out := make([]*Node, len(n.outbound))
	copy(out, n.outbound)
	return out
}

// Output returns the node's current output, or nil when not computed.
func (n *Node) Output() any { return n.output }

// SetOutput pre-populates the node's output. A populated node is treated as
// already computed by the next transform pass and is not re-executed.
func (n *Node) SetOutput(v any) { n.output = v }

// inputValues gathers the outputs of the node's inbound nodes, in order.
func (n *Node) inputValues() []any {
	vals := make([]any, len(n.inbound))
	for i, in := range n.inbound {
		vals[i] = in.output
	}
	return vals
}
