package pipeline

import (
	"context"

	"github.com/kbukum/featflow/errors"
	"github.com/kbukum/featflow/logger"
	"github.com/kbukum/featflow/observability"
	"github.com/kbukum/featflow/storage"
)

// Pipeline executes a directed acyclic graph of feature nodes. The graph is
// frozen at construction: the topological path, the role partition, and the
// declared inputs and outputs do not change afterwards.
type Pipeline struct {
	name    string
	version string

	outputs []*Node
	inputs  []*Node
	path    []*Node
	parts   partition

	store   *storage.FeatureStore
	log     *logger.Logger
	metrics *observability.Metrics

	eager        bool
	eagerData    map[string]any
	eagerResults map[string]any

	report *Report

	// blob is held until New has seen every option, so the cache prefix
	// reflects the final name and version.
	blob        storage.Storage
	storageCfg  *storage.Config
	providerCfg any

	// declared output nodes as a set, for reclamation checks
	outputSet map[*Node]bool
}

// Option configures a Pipeline at construction time.
type Option func(*Pipeline)

// WithName sets the pipeline name used in logs and cache paths.
func WithName(name string) Option {
	return func(p *Pipeline) { p.name = name }
}

// WithVersion sets the pipeline version used in cache paths.
func WithVersion(version string) Option {
	return func(p *Pipeline) { p.version = version }
}

// WithStorage attaches a blob store; transformed batches and fitted metadata
// are written under "<name>/<version>/".
func WithStorage(blob storage.Storage) Option {
	return func(p *Pipeline) { p.blob = blob }
}

// WithStorageConfig builds the blob store from configuration through the
// provider factory registry. The provider's package must be imported for its
// factory to be registered. A disabled config leaves the pipeline storeless.
func WithStorageConfig(cfg storage.Config, providerCfg any) Option {
	return func(p *Pipeline) {
		p.storageCfg = &cfg
		p.providerCfg = providerCfg
	}
}

// WithStore attaches a pre-built feature store, taking precedence over
// WithStorage.
func WithStore(store *storage.FeatureStore) Option {
	return func(p *Pipeline) { p.store = store }
}

// WithLogger overrides the default pipeline logger.
func WithLogger(log *logger.Logger) Option {
	return func(p *Pipeline) { p.log = log }
}

// WithMetrics attaches OpenTelemetry instruments recorded per node and pass.
func WithMetrics(m *observability.Metrics) Option {
	return func(p *Pipeline) { p.metrics = m }
}

// WithEagerData makes the pipeline eager: the transform sweep runs over the
// given data at construction, and the explicit pass methods are rejected
// afterwards. Results are available via EagerResults.
func WithEagerData(data map[string]any) Option {
	return func(p *Pipeline) { p.eagerData = data }
}

// New builds a pipeline over the graph reachable backward from outputs.
//
// Every output must carry an explicit name and every Input node reachable
// from the outputs must be listed in inputs. Listed inputs that feed none of
// the outputs are tolerated with a warning.
func New(outputs []*Node, inputs []*Node, opts ...Option) (*Pipeline, error) {
	p := &Pipeline{
		name:    "pipeline",
		version: "1",
		outputs: outputs,
		inputs:  inputs,
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.log == nil {
		p.log = logger.NewDefault(p.name).WithPipeline(p.name, p.version)
	}
	if p.blob == nil && p.storageCfg != nil && p.storageCfg.Enabled {
		blob, err := storage.New(*p.storageCfg, p.providerCfg, p.log)
		if err != nil {
			return nil, err
		}
		p.blob = blob
	}
	if p.store == nil && p.blob != nil {
		p.store = storage.NewFeatureStore(p.blob, p.name+"/"+p.version, p.log)
	}

	for _, out := range outputs {
		if out.defaultName {
			return nil, errors.UnnamedOutput(out.name)
		}
	}

	path, err := buildPath(outputs)
	if err != nil {
		return nil, err
	}
	p.path = path
	p.parts = partitionPath(path)

	declared := make(map[*Node]bool, len(inputs))
	for _, in := range inputs {
		declared[in] = true
	}
	reachable := make(map[*Node]bool, len(p.parts.inputs))
	var disconnected []string
	for _, in := range p.parts.inputs {
		reachable[in] = true
		if !declared[in] {
			disconnected = append(disconnected, in.name)
		}
	}
	if len(disconnected) > 0 {
		return nil, errors.DisconnectedInput(disconnected)
	}
	for _, in := range inputs {
		if !reachable[in] {
			p.log.Warn("declared input feeds no output", map[string]interface{}{logger.FieldNode: in.name})
		}
	}

	// Inputs built with data in hand, or an eager-data option, make the
	// whole pipeline eager: the sweep runs now and the explicit pass
	// methods are rejected afterwards.
	p.eager = p.eagerData != nil
	for _, in := range p.parts.inputs {
		if in.output != nil {
			p.eager = true
			break
		}
	}

	p.outputSet = make(map[*Node]bool, len(outputs))
	for _, out := range outputs {
		p.outputSet[out] = true
	}

	p.log.Debug("pipeline constructed", map[string]interface{}{
		"nodes":   len(path),
		"inputs":  len(p.parts.inputs),
		"outputs": len(outputs),
		"eager":   p.eager,
	})

	if p.eager {
		results, err := p.sweep(context.Background(), p.eagerData, runOptions{}, false)
		if err != nil {
			return nil, err
		}
		p.eagerResults = results
		p.finishPass(true)
	}
	return p, nil
}

// Eager reports whether the pipeline ran at construction time.
func (p *Pipeline) Eager() bool { return p.eager }

// EagerResults returns the outputs computed at construction for an eager
// pipeline, or nil for a lazy one.
func (p *Pipeline) EagerResults() map[string]any { return p.eagerResults }

// Name returns the pipeline name.
func (p *Pipeline) Name() string { return p.name }

// Version returns the pipeline version.
func (p *Pipeline) Version() string { return p.version }

// Path returns the topological execution order. The slice is shared; callers
// must not mutate it.
func (p *Pipeline) Path() []*Node { return p.path }

// Outputs returns the declared output nodes.
func (p *Pipeline) Outputs() []*Node { return p.outputs }

// Store returns the attached feature store, or nil.
func (p *Pipeline) Store() *storage.FeatureStore { return p.store }
