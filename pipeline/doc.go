// Package pipeline provides a DAG (Directed Acyclic Graph) execution engine
// for feature-engineering pipelines: named inputs flow through transformation
// nodes into named output features, with support for one-shot and incremental
// fitting, metric evaluation, and metadata-only persistence.
//
// A pipeline is built from nodes:
//
//	x := pipeline.Input("x")
//	a := pipeline.Apply("a", &feature.Scale{Factor: 2}, x)
//	p, err := pipeline.New([]*pipeline.Node{a}, []*pipeline.Node{x})
//	out, err := p.Transform(ctx, pipeline.Batch{"x": []float64{1, 2, 3}})
//
// Execution is single-threaded and synchronous: every pass walks the
// topologically ordered path, so a node never runs before its inbound nodes
// have run in the same pass. Intermediate outputs are reclaimed as soon as no
// remaining step of the pass needs them; a node feeding several consumers
// survives until the last consumer has run.
//
// Generator-driven passes (FitIterator and friends) pull batches from a
// stream.Iterator; pacing and early termination belong entirely to the
// supplier of that iterator.
package pipeline
