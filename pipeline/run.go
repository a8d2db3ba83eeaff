package pipeline

import (
	"context"
	"time"

	"github.com/kbukum/featflow/errors"
	"github.com/kbukum/featflow/logger"
	"github.com/kbukum/featflow/observability"
	"github.com/kbukum/featflow/storage"
)

// Pass names used in logs, spans, and metric attributes.
const (
	passFit        = "fit"
	passPartialFit = "partial_fit"
	passTransform  = "transform"
	passEvaluate   = "evaluate"
)

type runOptions struct {
	keepData  bool
	index     any
	skipWrite bool
}

// RunOption adjusts a single transform or evaluate pass.
type RunOption func(*runOptions)

// KeepData retains every intermediate node output after the pass instead of
// reclaiming it, so the full computation can be inspected.
func KeepData() RunOption {
	return func(o *runOptions) { o.keepData = true }
}

// WithIndex keys the storage write with the given one-dimensional index
// instead of the default positional counter.
func WithIndex(index any) RunOption {
	return func(o *runOptions) { o.index = index }
}

// SkipWrite suppresses the storage write for this pass even when a feature
// store is attached.
func SkipWrite() RunOption {
	return func(o *runOptions) { o.skipWrite = true }
}

func applyRunOptions(opts []RunOption) runOptions {
	var o runOptions
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// Fit learns state for every transformation node from a full in-memory
// batch, executing the path in dependency order so each node fits against
// its predecessors' freshly transformed outputs.
func (p *Pipeline) Fit(ctx context.Context, data map[string]any) error {
	return p.fit(ctx, data, false)
}

// PartialFit merges one batch worth of evidence into every transformation
// node's learned state. Repeated calls over sequential batches are the
// incremental counterpart of one Fit over their concatenation.
func (p *Pipeline) PartialFit(ctx context.Context, data map[string]any) error {
	return p.fit(ctx, data, true)
}

func (p *Pipeline) fit(ctx context.Context, data map[string]any, incremental bool) error {
	if p.eager {
		return errors.EagerRun()
	}
	pass := passFit
	if incremental {
		pass = passPartialFit
	}
	ctx, span := observability.StartSpan(ctx, observability.SpanFitPass)
	defer span.End()
	start := time.Now()
	p.beginReport(pass)

	p.reload()
	if err := p.loadInputs(data); err != nil {
		return p.failPass(ctx, pass, start, err)
	}
	for i, n := range p.path {
		switch n.role {
		case RoleInput:
			// loaded above
		case RoleMetric:
			// metrics carry no fit state
			n.hasRun = true
			p.reportNode(n, StatusSkipped, 0)
		default:
			nodeStart := time.Now()
			if err := p.fitNode(ctx, n, incremental); err != nil {
				return p.failNode(ctx, pass, start, n, err)
			}
			n.hasRun = true
			p.reportNode(n, StatusOK, time.Since(nodeStart))
			p.metrics.RecordNode(ctx, n.name, pass, "ok", time.Since(nodeStart))
			p.log.Debug("node fitted", logger.NodeFields(n.name, pass, time.Since(nodeStart)))
		}
		p.reclaim(i, false)
	}

	p.finishPass(false)
	p.endReport(time.Since(start), nil)
	p.metrics.RecordPass(ctx, p.name, pass, "ok", time.Since(start))
	p.log.Info("pass complete", logger.DurationFields(pass, time.Since(start)))
	return nil
}

func (p *Pipeline) fitNode(ctx context.Context, n *Node, incremental bool) error {
	vals := n.inputValues()
	switch n.role {
	case RoleTransform:
		if incremental {
			if err := n.op.PartialFit(vals); err != nil {
				return err
			}
		} else {
			if err := n.op.Fit(vals); err != nil {
				return err
			}
		}
		out, err := n.op.Transform(vals)
		if err != nil {
			return err
		}
		n.output = out
	case RoleTrainable:
		if err := n.model.Fit(ctx, vals); err != nil {
			return err
		}
		out, err := n.model.Predict(vals)
		if err != nil {
			return err
		}
		n.output = out
	}
	return nil
}

// Transform computes the declared outputs for the given input data. Nodes
// whose output is already populated are treated as cached and skipped. When
// a feature store is attached the result mapping is written under the
// supplied or positional index, unless SkipWrite is set.
func (p *Pipeline) Transform(ctx context.Context, data map[string]any, opts ...RunOption) (map[string]any, error) {
	if p.eager {
		return nil, errors.EagerRun()
	}
	o := applyRunOptions(opts)
	ctx, span := observability.StartSpan(ctx, observability.SpanTransformPass)
	defer span.End()
	start := time.Now()
	p.beginReport(passTransform)

	results, err := p.sweep(ctx, data, o, false)
	if err != nil {
		return nil, p.failPass(ctx, passTransform, start, err)
	}
	if err := p.writeResults(ctx, results, o); err != nil {
		return nil, p.failPass(ctx, passTransform, start, err)
	}

	p.finishPass(o.keepData)
	p.endReport(time.Since(start), nil)
	p.metrics.RecordPass(ctx, p.name, passTransform, "ok", time.Since(start))
	p.log.Info("pass complete", logger.DurationFields(passTransform, time.Since(start)))
	return results, nil
}

// Evaluate runs the transformation sweep, then executes every metric node
// against its now-available inbound outputs. The returned mapping is keyed
// by metric node name.
func (p *Pipeline) Evaluate(ctx context.Context, data map[string]any, opts ...RunOption) (map[string]any, error) {
	if p.eager {
		return nil, errors.EagerRun()
	}
	o := applyRunOptions(opts)
	ctx, span := observability.StartSpan(ctx, observability.SpanEvaluatePass)
	defer span.End()
	start := time.Now()
	p.beginReport(passEvaluate)

	results, err := p.sweep(ctx, data, o, true)
	if err != nil {
		return nil, p.failPass(ctx, passEvaluate, start, err)
	}

	scores := make(map[string]any, len(p.parts.metrics))
	for _, n := range p.parts.metrics {
		nodeStart := time.Now()
		out, err := n.metric.Evaluate(n.inputValues())
		if err != nil {
			return nil, p.failNode(ctx, passEvaluate, start, n, err)
		}
		n.output = out
		n.hasRun = true
		scores[n.name] = out
		p.reportNode(n, StatusOK, time.Since(nodeStart))
		p.metrics.RecordNode(ctx, n.name, passEvaluate, "ok", time.Since(nodeStart))
	}

	if err := p.writeResults(ctx, results, o); err != nil {
		return nil, p.failPass(ctx, passEvaluate, start, err)
	}

	p.finishPass(o.keepData)
	p.endReport(time.Since(start), nil)
	p.metrics.RecordPass(ctx, p.name, passEvaluate, "ok", time.Since(start))
	p.log.Info("pass complete", logger.DurationFields(passEvaluate, time.Since(start)))
	return scores, nil
}

// sweep runs the transformation portion of a transform or evaluate pass and
// collects the declared non-metric outputs. When deferMetrics is set, metric
// nodes are left unrun so their inbound outputs survive reclamation until
// the caller executes them.
func (p *Pipeline) sweep(ctx context.Context, data map[string]any, o runOptions, deferMetrics bool) (map[string]any, error) {
	if o.index != nil {
		if shape := storage.ShapeOf(o.index); len(shape) > 1 {
			return nil, errors.InvalidIndex("index must be one-dimensional")
		}
	}

	p.reload()
	if err := p.loadInputs(data); err != nil {
		return nil, err
	}
	pass := passTransform
	if deferMetrics {
		pass = passEvaluate
	}

	for i, n := range p.path {
		switch n.role {
		case RoleInput:
			// loaded above
		case RoleMetric:
			if deferMetrics {
				continue
			}
			n.hasRun = true
			p.reportNode(n, StatusSkipped, 0)
		default:
			if n.output != nil {
				// cached upstream of this pass
				n.hasRun = true
				p.reportNode(n, StatusSkipped, 0)
				break
			}
			nodeStart := time.Now()
			out, err := p.transformNode(n)
			if err != nil {
				p.reportNode(n, StatusFailed, time.Since(nodeStart))
				p.metrics.RecordError(ctx, n.name, pass)
				return nil, errors.NodeFailed(n.name, err).WithDetail("pass", pass)
			}
			n.output = out
			n.hasRun = true
			p.reportNode(n, StatusOK, time.Since(nodeStart))
			p.metrics.RecordNode(ctx, n.name, pass, "ok", time.Since(nodeStart))
			p.log.Debug("node transformed", logger.NodeFields(n.name, pass, time.Since(nodeStart)))
		}
		if !o.keepData {
			p.reclaim(i, true)
		}
	}

	results := make(map[string]any, len(p.outputs))
	for _, n := range p.outputs {
		if n.role == RoleMetric {
			continue
		}
		results[n.name] = n.output
	}
	return results, nil
}

func (p *Pipeline) transformNode(n *Node) (any, error) {
	if n.role == RoleTrainable {
		return n.model.Predict(n.inputValues())
	}
	return n.op.Transform(n.inputValues())
}

// writeResults hands the collected outputs to the feature store, keyed by
// the caller-supplied index or the store's positional write counter.
func (p *Pipeline) writeResults(ctx context.Context, results map[string]any, o runOptions) error {
	if p.store == nil || o.skipWrite {
		return nil
	}
	index := o.index
	if index == nil {
		index = p.store.Writes()
	}
	return p.store.Write(ctx, results, index)
}

// reload resets every node's run flag at the start of a pass.
func (p *Pipeline) reload() {
	for _, n := range p.path {
		n.hasRun = false
	}
}

// loadInputs injects the supplied data into the pipeline's input nodes.
// Inputs that already hold data are left as-is. Only the input nodes are
// visited, never the rest of the path.
func (p *Pipeline) loadInputs(data map[string]any) error {
	for _, n := range p.parts.inputs {
		if n.output != nil {
			n.hasRun = true
			continue
		}
		v, ok := data[n.name]
		if !ok {
			return errors.MissingInput(n.name)
		}
		n.output = v
		n.hasRun = true
	}
	return nil
}

// reclaim clears the output of every already-visited node whose consumers
// have all run this pass. A node feeding several branches survives until the
// last of them has executed. Declared outputs are spared when spareOutputs
// is set so the caller can collect them.
func (p *Pipeline) reclaim(i int, spareOutputs bool) {
	for j := 0; j < i; j++ {
		n := p.path[j]
		if n.output == nil {
			continue
		}
		if spareOutputs && p.outputSet[n] {
			continue
		}
		done := true
		for _, out := range n.outbound {
			if !out.hasRun {
				done = false
				break
			}
		}
		if done {
			n.output = nil
		}
	}
}

// finishPass resets run flags and, unless the caller asked to keep data,
// clears every remaining output so the pipeline is reusable for an
// independent run. Learned state is untouched.
func (p *Pipeline) finishPass(keepData bool) {
	for _, n := range p.path {
		n.hasRun = false
		if !keepData {
			n.output = nil
		}
	}
}

// rollback discards the partial effects of an aborted pass: every node that
// ran loses its output and flag, so a failure in one node cannot corrupt a
// later run.
func (p *Pipeline) rollback() {
	for _, n := range p.path {
		if n.hasRun {
			n.output = nil
			n.hasRun = false
		}
	}
}

func (p *Pipeline) failNode(ctx context.Context, pass string, start time.Time, n *Node, cause error) error {
	err := errors.NodeFailed(n.name, cause).WithDetail("pass", pass)
	p.reportNode(n, StatusFailed, 0)
	p.metrics.RecordError(ctx, n.name, pass)
	return p.failPass(ctx, pass, start, err)
}

func (p *Pipeline) failPass(ctx context.Context, pass string, start time.Time, err error) error {
	p.rollback()
	p.endReport(time.Since(start), err)
	observability.SetSpanError(ctx, err)
	p.metrics.RecordPass(ctx, p.name, pass, "error", time.Since(start))
	p.log.Error("pass aborted", logger.ErrorFields(pass, err))
	return err
}
