package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"reflect"
	"strings"
	"testing"

	"github.com/kbukum/featflow/errors"
	"github.com/kbukum/featflow/storage"
	"github.com/kbukum/featflow/storage/local"
	"github.com/kbukum/featflow/stream"
)

// doubler multiplies its single input by two. Stateless.
type doubler struct{}

func (doubler) Fit([]any) error        { return nil }
func (doubler) PartialFit([]any) error { return nil }
func (doubler) Transform(inputs []any) (any, error) {
	in := inputs[0].([]float64)
	out := make([]float64, len(in))
	for i, v := range in {
		out[i] = v * 2
	}
	return out, nil
}

// adder sums two row-aligned inputs elementwise.
type adder struct{}

func (adder) Fit([]any) error        { return nil }
func (adder) PartialFit([]any) error { return nil }
func (adder) Transform(inputs []any) (any, error) {
	a := inputs[0].([]float64)
	b := inputs[1].([]float64)
	out := make([]float64, len(a))
	for i := range a {
		out[i] = a[i] + b[i]
	}
	return out, nil
}

// meanScaler centers values on the running mean. Its state survives
// save/load and accumulates across partial fits.
type meanScaler struct {
	Sum float64 `json:"sum"`
	N   int     `json:"n"`
}

func (s *meanScaler) Fit(inputs []any) error {
	s.Sum, s.N = 0, 0
	return s.PartialFit(inputs)
}

func (s *meanScaler) PartialFit(inputs []any) error {
	for _, v := range inputs[0].([]float64) {
		s.Sum += v
		s.N++
	}
	return nil
}

func (s *meanScaler) Transform(inputs []any) (any, error) {
	if s.N == 0 {
		return nil, fmt.Errorf("not fitted")
	}
	mean := s.Sum / float64(s.N)
	in := inputs[0].([]float64)
	out := make([]float64, len(in))
	for i, v := range in {
		out[i] = v - mean
	}
	return out, nil
}

func (s *meanScaler) Kind() string                  { return "mean_scaler" }
func (s *meanScaler) MarshalState() ([]byte, error) { return json.Marshal(s) }
func (s *meanScaler) UnmarshalState(b []byte) error { return json.Unmarshal(b, s) }

// countingOp counts Transform calls on top of a doubler.
type countingOp struct {
	doubler
	calls int
}

func (c *countingOp) Transform(inputs []any) (any, error) {
	c.calls++
	return c.doubler.Transform(inputs)
}

// failingOp always fails its transform step.
type failingOp struct{ doubler }

func (failingOp) Transform([]any) (any, error) { return nil, fmt.Errorf("boom") }

// flakyOp fails its nth transform call and works otherwise.
type flakyOp struct {
	doubler
	calls  int
	failOn int
}

func (f *flakyOp) Transform(inputs []any) (any, error) {
	f.calls++
	if f.calls == f.failOn {
		return nil, fmt.Errorf("boom on call %d", f.calls)
	}
	return f.doubler.Transform(inputs)
}

// checkingOp fails if any inbound value was reclaimed too early.
type checkingOp struct {
	adder
	t *testing.T
}

func (c checkingOp) Transform(inputs []any) (any, error) {
	for i, v := range inputs {
		if v == nil {
			c.t.Fatalf("input %d reclaimed before consumer ran", i)
		}
	}
	return c.adder.Transform(inputs)
}

// fakeModel records what the scheduler hands it.
type fakeModel struct {
	fitCalls int
	tuples   [][]any
}

func (m *fakeModel) Fit(_ context.Context, inputs []any) error {
	m.fitCalls++
	m.tuples = append(m.tuples, inputs)
	return nil
}

func (m *fakeModel) FitIterator(ctx context.Context, batches stream.Iterator[[]any], _, _ int) error {
	tuples, err := stream.Collect(ctx, batches)
	if err != nil {
		return err
	}
	m.tuples = append(m.tuples, tuples...)
	return nil
}

func (m *fakeModel) Predict(inputs []any) (any, error) { return inputs[0], nil }

// meanMetric reports the mean of its single input.
type meanMetric struct{}

func (meanMetric) Evaluate(inputs []any) (any, error) {
	in := inputs[0].([]float64)
	var sum float64
	for _, v := range in {
		sum += v
	}
	return sum / float64(len(in)), nil
}

func indexOf(path []*Node, n *Node) int {
	for i, p := range path {
		if p == n {
			return i
		}
	}
	return -1
}

func TestTopologicalOrderDiamond(t *testing.T) {
	x := Input("x")
	a := Apply("a", doubler{}, x)
	b := Apply("b", doubler{}, x)
	c := Apply("c", adder{}, a, b)

	p, err := New([]*Node{c}, []*Node{x})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	path := p.Path()
	if len(path) != 4 {
		t.Fatalf("path has %d nodes, want 4 (diamond must deduplicate)", len(path))
	}
	for _, n := range []*Node{a, b, c} {
		for _, in := range n.Inbound() {
			if indexOf(path, in) >= indexOf(path, n) {
				t.Fatalf("dependency %s not before %s in path", in.Name(), n.Name())
			}
		}
	}
}

func TestCycleDetection(t *testing.T) {
	x := Input("x")
	a := Apply("a", doubler{}, x)
	b := Apply("b", doubler{}, a)
	// hand-wire a back-edge; the constructors cannot produce one
	a.inbound = append(a.inbound, b)
	b.outbound = append(b.outbound, a)

	_, err := buildPath([]*Node{b})
	if !errors.HasCode(err, errors.ErrCodeCycle) {
		t.Fatalf("expected cycle error, got %v", err)
	}
}

func TestCycleErrorNamesOnlyTheCycle(t *testing.T) {
	x := Input("x")
	a := Apply("a", doubler{}, x)
	b := Apply("b", doubler{}, a)
	out := Apply("out", doubler{}, b)
	// hand-wire a back-edge; the constructors cannot produce one
	a.inbound = append(a.inbound, b)
	b.outbound = append(b.outbound, a)

	_, err := buildPath([]*Node{out})
	if !errors.HasCode(err, errors.ErrCodeCycle) {
		t.Fatalf("expected cycle error, got %v", err)
	}
	msg := err.Error()
	if !strings.Contains(msg, "b -> a -> b") {
		t.Fatalf("cycle message does not show the loop: %s", msg)
	}
	if strings.Contains(msg, "out") {
		t.Fatalf("cycle message leaks nodes outside the loop: %s", msg)
	}
}

func TestUnnamedOutputRejected(t *testing.T) {
	x := Input("x")
	a := Apply("", doubler{}, x)

	_, err := New([]*Node{a}, []*Node{x})
	if !errors.HasCode(err, errors.ErrCodeUnnamedOutput) {
		t.Fatalf("expected unnamed-output error, got %v", err)
	}
}

func TestDisconnectedInputRejected(t *testing.T) {
	x := Input("x")
	a := Apply("a", doubler{}, x)

	_, err := New([]*Node{a}, nil)
	if !errors.HasCode(err, errors.ErrCodeDisconnectedInput) {
		t.Fatalf("expected disconnected-input error, got %v", err)
	}
	if !strings.Contains(err.Error(), "x") {
		t.Fatalf("error should name the missing input: %v", err)
	}
}

func TestUnusedInputTolerated(t *testing.T) {
	x := Input("x")
	y := Input("y")
	a := Apply("a", doubler{}, x)

	if _, err := New([]*Node{a}, []*Node{x, y}); err != nil {
		t.Fatalf("unused input must only warn, got %v", err)
	}
}

func TestMissingInputKey(t *testing.T) {
	x := Input("x")
	a := Apply("a", doubler{}, x)
	p, err := New([]*Node{a}, []*Node{x})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	_, err = p.Transform(context.Background(), map[string]any{})
	if !errors.HasCode(err, errors.ErrCodeMissingInput) {
		t.Fatalf("expected missing-input error, got %v", err)
	}
	if !strings.Contains(err.Error(), "x") {
		t.Fatalf("error should name the missing key: %v", err)
	}
}

func TestTransformDouble(t *testing.T) {
	x := Input("x")
	a := Apply("a", doubler{}, x)
	p, err := New([]*Node{a}, []*Node{x})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	got, err := p.Transform(context.Background(), map[string]any{"x": []float64{1, 2, 3}})
	if err != nil {
		t.Fatalf("Transform: %v", err)
	}
	want := map[string]any{"a": []float64{2, 4, 6}}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestTransformDeterministic(t *testing.T) {
	x := Input("x")
	s := &meanScaler{}
	a := Apply("a", s, x)
	p, err := New([]*Node{a}, []*Node{x})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	ctx := context.Background()
	data := map[string]any{"x": []float64{1, 2, 3}}
	if err := p.Fit(ctx, data); err != nil {
		t.Fatalf("Fit: %v", err)
	}
	first, err := p.Transform(ctx, data)
	if err != nil {
		t.Fatalf("first Transform: %v", err)
	}
	second, err := p.Transform(ctx, data)
	if err != nil {
		t.Fatalf("second Transform: %v", err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("repeated transform diverged: %v vs %v", first, second)
	}
}

func TestDiamondNotReclaimedEarly(t *testing.T) {
	x := Input("x")
	a := Apply("a", doubler{}, x)
	b := Apply("b", doubler{}, x)
	c := Apply("c", checkingOp{t: t}, a, b)
	p, err := New([]*Node{c}, []*Node{x})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	got, err := p.Transform(context.Background(), map[string]any{"x": []float64{1}})
	if err != nil {
		t.Fatalf("Transform: %v", err)
	}
	if !reflect.DeepEqual(got["c"], []float64{4}) {
		t.Fatalf("got %v, want [4]", got["c"])
	}
}

func TestReclaimSparesDeclaredOutputsAndLaterConsumers(t *testing.T) {
	x := Input("x")
	a := Apply("a", doubler{}, x)
	b := Apply("b", doubler{}, a)
	p, err := New([]*Node{a, b}, []*Node{x})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	// after x and a have run, x is reclaimable but the declared output a is not
	x.output = []float64{1}
	a.output = []float64{2}
	x.hasRun, a.hasRun = true, true
	p.reclaim(indexOf(p.Path(), b), true)

	if x.Output() != nil {
		t.Fatalf("x should be reclaimed once its only consumer ran")
	}
	if a.Output() == nil {
		t.Fatalf("declared output must survive reclamation")
	}
}

func TestCachedOutputSkipsRecompute(t *testing.T) {
	x := Input("x")
	op := &countingOp{}
	a := Apply("a", op, x)
	p, err := New([]*Node{a}, []*Node{x})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	a.SetOutput([]float64{9})
	got, err := p.Transform(context.Background(), map[string]any{"x": []float64{1}})
	if err != nil {
		t.Fatalf("Transform: %v", err)
	}
	if op.calls != 0 {
		t.Fatalf("cached node executed %d times, want 0", op.calls)
	}
	if !reflect.DeepEqual(got["a"], []float64{9}) {
		t.Fatalf("got %v, want cached [9]", got["a"])
	}
}

func TestKeepDataRetainsIntermediates(t *testing.T) {
	x := Input("x")
	a := Apply("a", doubler{}, x)
	b := Apply("b", doubler{}, a)
	p, err := New([]*Node{b}, []*Node{x})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	if _, err := p.Transform(context.Background(), map[string]any{"x": []float64{1}}, KeepData()); err != nil {
		t.Fatalf("Transform: %v", err)
	}
	if a.Output() == nil || x.Output() == nil {
		t.Fatalf("KeepData must retain intermediate outputs")
	}
}

func TestNodeFailureRollsBack(t *testing.T) {
	x := Input("x")
	a := Apply("a", doubler{}, x)
	bad := Apply("bad", failingOp{}, a)
	p, err := New([]*Node{bad}, []*Node{x})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	_, err = p.Transform(context.Background(), map[string]any{"x": []float64{1}})
	if !errors.HasCode(err, errors.ErrCodeNodeFailed) {
		t.Fatalf("expected node-failed error, got %v", err)
	}
	if !strings.Contains(err.Error(), `Error thrown at node named "bad"`) {
		t.Fatalf("error should be tagged with the failing node: %v", err)
	}
	for _, n := range p.Path() {
		if n.Output() != nil || n.hasRun {
			t.Fatalf("node %s kept pass state after abort", n.Name())
		}
	}

	// the pipeline stays usable once the fault is gone
	good := Apply("good", doubler{}, Input("x2"))
	if _, err := New([]*Node{good}, []*Node{good.Inbound()[0]}); err != nil {
		t.Fatalf("rebuild after failure: %v", err)
	}
}

func TestPartialFitMatchesConcatenatedFit(t *testing.T) {
	build := func() (*Pipeline, *Node) {
		x := Input("x")
		a := Apply("a", &meanScaler{}, x)
		p, err := New([]*Node{a}, []*Node{x})
		if err != nil {
			t.Fatalf("New: %v", err)
		}
		return p, x
	}

	ctx := context.Background()
	full, _ := build()
	if err := full.Fit(ctx, map[string]any{"x": []float64{1, 2, 3, 4}}); err != nil {
		t.Fatalf("Fit: %v", err)
	}

	inc, _ := build()
	if err := inc.PartialFit(ctx, map[string]any{"x": []float64{1, 2}}); err != nil {
		t.Fatalf("PartialFit: %v", err)
	}
	if err := inc.PartialFit(ctx, map[string]any{"x": []float64{3, 4}}); err != nil {
		t.Fatalf("PartialFit: %v", err)
	}

	sample := map[string]any{"x": []float64{10}}
	wantOut, err := full.Transform(ctx, sample)
	if err != nil {
		t.Fatalf("Transform: %v", err)
	}
	gotOut, err := inc.Transform(ctx, sample)
	if err != nil {
		t.Fatalf("Transform: %v", err)
	}
	if !reflect.DeepEqual(gotOut, wantOut) {
		t.Fatalf("incremental state diverged: %v vs %v", gotOut, wantOut)
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	x := Input("x")
	a := Apply("a", &meanScaler{}, x)
	p, err := New([]*Node{a}, []*Node{x}, WithName("demo"), WithVersion("3"))
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	ctx := context.Background()
	if err := p.Fit(ctx, map[string]any{"x": []float64{1, 2, 3}}); err != nil {
		t.Fatalf("Fit: %v", err)
	}

	data, err := p.Save()
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if strings.Contains(string(data), "1,2,3") {
		t.Fatalf("artifact must not carry data tensors")
	}

	reg := NewRegistry()
	reg.RegisterTransformer("mean_scaler", func() Transformer { return &meanScaler{} })
	loaded, err := Load(data, reg)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if loaded.Name() != "demo" || loaded.Version() != "3" {
		t.Fatalf("metadata lost: %s/%s", loaded.Name(), loaded.Version())
	}

	sample := map[string]any{"x": []float64{5, 6}}
	want, err := p.Transform(ctx, sample)
	if err != nil {
		t.Fatalf("Transform original: %v", err)
	}
	got, err := loaded.Transform(ctx, sample)
	if err != nil {
		t.Fatalf("Transform loaded: %v", err)
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("round trip changed results: %v vs %v", got, want)
	}
}

func TestSaveLeavesLivePipelineUntouched(t *testing.T) {
	x := Input("x")
	a := Apply("a", &meanScaler{}, x)
	p, err := New([]*Node{a}, []*Node{x})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	ctx := context.Background()
	if err := p.Fit(ctx, map[string]any{"x": []float64{1, 2}}); err != nil {
		t.Fatalf("Fit: %v", err)
	}
	if _, err := p.Transform(ctx, map[string]any{"x": []float64{1}}, KeepData()); err != nil {
		t.Fatalf("Transform: %v", err)
	}

	before := a.Output()
	if _, err := p.Save(); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if !reflect.DeepEqual(a.Output(), before) {
		t.Fatalf("Save mutated live outputs")
	}
}

func TestLoadUnknownKind(t *testing.T) {
	x := Input("x")
	a := Apply("a", &meanScaler{}, x)
	p, err := New([]*Node{a}, []*Node{x})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	data, err := p.Save()
	if err != nil {
		t.Fatalf("Save: %v", err)
	}

	_, err = Load(data, NewRegistry())
	if !errors.HasCode(err, errors.ErrCodeUnknownKind) {
		t.Fatalf("expected unknown-kind error, got %v", err)
	}
}

func TestFitIteratorBound(t *testing.T) {
	x := Input("x")
	a := Apply("a", &meanScaler{}, x)
	p, err := New([]*Node{a}, []*Node{x})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	pulled := 0
	endless := stream.FromFunc(func(context.Context) (Batch, bool, error) {
		pulled++
		return Batch{"x": []float64{float64(pulled)}}, true, nil
	})

	if err := p.FitIterator(context.Background(), endless, 2, 3); err != nil {
		t.Fatalf("FitIterator: %v", err)
	}
	if pulled != 6 {
		t.Fatalf("consumed %d batches, want stepsPerEpoch*epochs = 6", pulled)
	}
}

func TestFitIteratorRejectsMultipleTrainables(t *testing.T) {
	x := Input("x")
	t1 := Train("m1", &fakeModel{}, x)
	t2 := Train("m2", &fakeModel{}, x)
	out := Apply("out", adder{}, t1, t2)
	p, err := New([]*Node{out}, []*Node{x})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	pulled := 0
	src := stream.FromFunc(func(context.Context) (Batch, bool, error) {
		pulled++
		return Batch{"x": []float64{1}}, true, nil
	})

	err = p.FitIterator(context.Background(), src, 1, 1)
	if !errors.HasCode(err, errors.ErrCodeMultipleTrainables) {
		t.Fatalf("expected multiple-trainables error, got %v", err)
	}
	if pulled != 0 {
		t.Fatalf("batches consumed before the configuration error: %d", pulled)
	}
}

func TestFitIteratorAdaptsTrainable(t *testing.T) {
	x := Input("x")
	a := Apply("a", doubler{}, x)
	model := &fakeModel{}
	m := Train("model", model, a)
	p, err := New([]*Node{m}, []*Node{x})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	batches := stream.FromSlice([]Batch{
		{"x": []float64{1}},
		{"x": []float64{2}},
	})
	if err := p.FitIterator(context.Background(), batches, 2, 1); err != nil {
		t.Fatalf("FitIterator: %v", err)
	}

	want := [][]any{
		{[]float64{2}},
		{[]float64{4}},
	}
	if !reflect.DeepEqual(model.tuples, want) {
		t.Fatalf("model received %v, want ancestor-transformed %v", model.tuples, want)
	}
}

func TestFitIteratorAncestorFailureLeavesGraphClean(t *testing.T) {
	x := Input("x")
	a := Apply("a", &flakyOp{failOn: 2}, x)
	m := Train("model", &fakeModel{}, a)
	p, err := New([]*Node{m}, []*Node{x})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	ctx := context.Background()
	batches := stream.FromSlice([]Batch{
		{"x": []float64{2}},
		{"x": []float64{3}},
	})
	err = p.FitIterator(ctx, batches, 2, 1)
	if !errors.HasCode(err, errors.ErrCodeNodeFailed) {
		t.Fatalf("expected node-failed error, got %v", err)
	}
	for _, n := range p.Path() {
		if n.Output() != nil || n.hasRun {
			t.Fatalf("node %s kept pass state after aborted generator fit", n.Name())
		}
	}

	// a later pass must compute from its own data, not the failed batch's
	got, err := p.Transform(ctx, map[string]any{"x": []float64{10}})
	if err != nil {
		t.Fatalf("Transform after abort: %v", err)
	}
	if !reflect.DeepEqual(got["model"], []float64{20}) {
		t.Fatalf("got %v, want fresh [20]", got["model"])
	}
}

func TestFitIteratorMissingKeyLeavesGraphClean(t *testing.T) {
	x := Input("x")
	y := Input("y")
	a := Apply("a", adder{}, x, y)
	m := Train("model", &fakeModel{}, a)
	p, err := New([]*Node{m}, []*Node{x, y})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	batches := stream.FromSlice([]Batch{{"x": []float64{1}}})
	err = p.FitIterator(context.Background(), batches, 1, 1)
	if !errors.HasCode(err, errors.ErrCodeNodeFailed) {
		t.Fatalf("expected node-failed error, got %v", err)
	}
	if !strings.Contains(err.Error(), "MISSING_INPUT") {
		t.Fatalf("expected the missing key as the cause, got %v", err)
	}
	for _, n := range p.Path() {
		if n.Output() != nil || n.hasRun {
			t.Fatalf("node %s kept pass state after missing batch key", n.Name())
		}
	}
}

func TestTransformIteratorBound(t *testing.T) {
	x := Input("x")
	a := Apply("a", doubler{}, x)
	p, err := New([]*Node{a}, []*Node{x})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	batches := stream.FromSlice([]Batch{
		{"x": []float64{1}},
		{"x": []float64{2}},
		{"x": []float64{3}},
	})
	it, err := p.TransformIterator(context.Background(), batches, 2, 1)
	if err != nil {
		t.Fatalf("TransformIterator: %v", err)
	}
	results, err := stream.Collect(context.Background(), it)
	if err != nil {
		t.Fatalf("Collect: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("yielded %d results, want 2", len(results))
	}
	if !reflect.DeepEqual(results[1]["a"], []float64{4}) {
		t.Fatalf("second batch result %v, want [4]", results[1]["a"])
	}
}

func TestEvaluate(t *testing.T) {
	x := Input("x")
	a := Apply("a", doubler{}, x)
	m := Measure("mean_a", meanMetric{}, a)
	p, err := New([]*Node{m}, []*Node{x})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	scores, err := p.Evaluate(context.Background(), map[string]any{"x": []float64{1, 2, 3}})
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if scores["mean_a"] != 4.0 {
		t.Fatalf("mean_a = %v, want 4", scores["mean_a"])
	}
}

func TestEvaluateIteratorYieldsPerBatchScores(t *testing.T) {
	x := Input("x")
	a := Apply("a", doubler{}, x)
	m := Measure("mean_a", meanMetric{}, a)
	p, err := New([]*Node{m}, []*Node{x})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	batches := stream.FromSlice([]Batch{
		{"x": []float64{1, 2, 3}},
		{"x": []float64{4, 5, 6}},
	})
	it, err := p.EvaluateIterator(context.Background(), batches, 2, 1)
	if err != nil {
		t.Fatalf("EvaluateIterator: %v", err)
	}
	scores, err := stream.Collect(context.Background(), it)
	if err != nil {
		t.Fatalf("Collect: %v", err)
	}
	if len(scores) != 2 {
		t.Fatalf("yielded %d score mappings, want 2", len(scores))
	}
	if scores[0]["mean_a"] != 4.0 {
		t.Fatalf("first batch mean_a = %v, want 4", scores[0]["mean_a"])
	}
	if scores[1]["mean_a"] != 10.0 {
		t.Fatalf("second batch mean_a = %v, want 10", scores[1]["mean_a"])
	}
}

func TestEagerPipeline(t *testing.T) {
	x := Input("x")
	a := Apply("a", doubler{}, x)
	p, err := New([]*Node{a}, []*Node{x}, WithEagerData(map[string]any{"x": []float64{1, 2}}))
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	if !p.Eager() {
		t.Fatalf("pipeline should be eager")
	}
	if !reflect.DeepEqual(p.EagerResults()["a"], []float64{2, 4}) {
		t.Fatalf("eager results %v, want [2 4]", p.EagerResults()["a"])
	}

	_, err = p.Transform(context.Background(), map[string]any{"x": []float64{1}})
	if !errors.HasCode(err, errors.ErrCodeEagerRun) {
		t.Fatalf("expected eager-run error, got %v", err)
	}
	if err := p.Fit(context.Background(), nil); !errors.HasCode(err, errors.ErrCodeEagerRun) {
		t.Fatalf("expected eager-run error from Fit, got %v", err)
	}
}

func TestInvalidIndexRejected(t *testing.T) {
	x := Input("x")
	a := Apply("a", doubler{}, x)
	p, err := New([]*Node{a}, []*Node{x})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	_, err = p.Transform(context.Background(),
		map[string]any{"x": []float64{1}},
		WithIndex([][]int{{1, 2}}))
	if !errors.HasCode(err, errors.ErrCodeInvalidIndex) {
		t.Fatalf("expected invalid-index error, got %v", err)
	}
}

func TestTransformWritesToStore(t *testing.T) {
	blob, err := local.NewStorage(t.TempDir())
	if err != nil {
		t.Fatalf("NewStorage: %v", err)
	}

	x := Input("x")
	a := Apply("a", doubler{}, x)
	p, err := New([]*Node{a}, []*Node{x},
		WithName("demo"), WithVersion("1"), WithStorage(blob))
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	ctx := context.Background()
	if _, err := p.Transform(ctx, map[string]any{"x": []float64{1, 2}}); err != nil {
		t.Fatalf("Transform: %v", err)
	}
	if got := p.Store().Writes(); got != 1 {
		t.Fatalf("store writes = %d, want 1", got)
	}
	ok, err := blob.Exists(ctx, "demo/1/batches/000000.json")
	if err != nil || !ok {
		t.Fatalf("expected written batch object, exists=%v err=%v", ok, err)
	}

	book := p.Store().Bookkeeping()
	if !reflect.DeepEqual(book.OutputNames, []string{"a"}) {
		t.Fatalf("bookkeeping names %v, want [a]", book.OutputNames)
	}
}

func TestStorageFromConfig(t *testing.T) {
	cfg := storage.Config{Provider: storage.ProviderLocal, BasePath: t.TempDir(), Enabled: true}

	x := Input("x")
	a := Apply("a", doubler{}, x)
	p, err := New([]*Node{a}, []*Node{x},
		WithName("demo"), WithVersion("1"), WithStorageConfig(cfg, nil))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if p.Store() == nil {
		t.Fatal("expected a feature store built from config")
	}

	ctx := context.Background()
	if _, err := p.Transform(ctx, map[string]any{"x": []float64{1, 2}}); err != nil {
		t.Fatalf("Transform: %v", err)
	}
	if got := p.Store().Writes(); got != 1 {
		t.Fatalf("store writes = %d, want 1", got)
	}
}

func TestStorageConfigDisabledLeavesPipelineStoreless(t *testing.T) {
	cfg := storage.Config{Provider: storage.ProviderLocal, BasePath: t.TempDir()}

	x := Input("x")
	a := Apply("a", doubler{}, x)
	p, err := New([]*Node{a}, []*Node{x}, WithStorageConfig(cfg, nil))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if p.Store() != nil {
		t.Fatal("disabled storage config must not attach a store")
	}
}

func TestNoStoreWriteOnAbortedPass(t *testing.T) {
	blob, err := local.NewStorage(t.TempDir())
	if err != nil {
		t.Fatalf("NewStorage: %v", err)
	}

	x := Input("x")
	bad := Apply("bad", failingOp{}, x)
	p, err := New([]*Node{bad}, []*Node{x}, WithStorage(blob))
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	if _, err := p.Transform(context.Background(), map[string]any{"x": []float64{1}}); err == nil {
		t.Fatalf("expected failure")
	}
	if got := p.Store().Writes(); got != 0 {
		t.Fatalf("aborted pass wrote %d batches, want 0", got)
	}
}

func TestSaveToAndLoadFrom(t *testing.T) {
	blob, err := local.NewStorage(t.TempDir())
	if err != nil {
		t.Fatalf("NewStorage: %v", err)
	}

	x := Input("x")
	a := Apply("a", &meanScaler{}, x)
	p, err := New([]*Node{a}, []*Node{x},
		WithName("demo"), WithVersion("2"), WithStorage(blob))
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	ctx := context.Background()
	sample := map[string]any{"x": []float64{4, 5}}
	if err := p.Fit(ctx, map[string]any{"x": []float64{1, 2, 3}}); err != nil {
		t.Fatalf("Fit: %v", err)
	}
	if _, err := p.Transform(ctx, sample); err != nil {
		t.Fatalf("Transform: %v", err)
	}
	if err := p.SaveTo(ctx); err != nil {
		t.Fatalf("SaveTo: %v", err)
	}

	reg := NewRegistry()
	reg.RegisterTransformer("mean_scaler", func() Transformer { return &meanScaler{} })
	loaded, err := LoadFrom(ctx, blob, "demo", "2", reg)
	if err != nil {
		t.Fatalf("LoadFrom: %v", err)
	}

	// the loaded store inherits the original's bookkeeping
	if book := loaded.Store().Bookkeeping(); !reflect.DeepEqual(book.OutputNames, []string{"a"}) {
		t.Fatalf("bookkeeping not reinstated: %v", book.OutputNames)
	}

	want, err := p.Transform(ctx, sample, SkipWrite())
	if err != nil {
		t.Fatalf("Transform original: %v", err)
	}
	got, err := loaded.Transform(ctx, sample, SkipWrite())
	if err != nil {
		t.Fatalf("Transform loaded: %v", err)
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("round trip changed results: %v vs %v", got, want)
	}
}

func TestReportTracksPass(t *testing.T) {
	x := Input("x")
	a := Apply("a", doubler{}, x)
	p, err := New([]*Node{a}, []*Node{x})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if p.Report() != nil {
		t.Fatalf("report should be nil before any pass")
	}

	if _, err := p.Transform(context.Background(), map[string]any{"x": []float64{1}}); err != nil {
		t.Fatalf("Transform: %v", err)
	}
	rep := p.Report()
	if rep == nil || rep.Pass != "transform" {
		t.Fatalf("unexpected report: %+v", rep)
	}
	if len(rep.Nodes) == 0 || rep.Nodes[len(rep.Nodes)-1].Status != StatusOK {
		t.Fatalf("report missing node outcomes: %+v", rep.Nodes)
	}
}

func TestToFrame(t *testing.T) {
	f := ToFrame(map[string]any{"b": []float64{2}, "a": []float64{1}})
	if !reflect.DeepEqual(f.Columns, []string{"a", "b"}) {
		t.Fatalf("columns %v, want sorted [a b]", f.Columns)
	}
	if v, ok := f.Column("b"); !ok || !reflect.DeepEqual(v, []float64{2}) {
		t.Fatalf("column b = %v", v)
	}
}

var _ StateCodec = (*meanScaler)(nil)
var _ Kinded = (*meanScaler)(nil)

func BenchmarkTransformDiamond(b *testing.B) {
	x := Input("x")
	l := Apply("l", doubler{}, x)
	r := Apply("r", doubler{}, x)
	c := Apply("c", adder{}, l, r)
	p, err := New([]*Node{c}, []*Node{x})
	if err != nil {
		b.Fatalf("New: %v", err)
	}

	ctx := context.Background()
	data := map[string]any{"x": []float64{1, 2, 3, 4, 5, 6, 7, 8}}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := p.Transform(ctx, data); err != nil {
			b.Fatalf("Transform: %v", err)
		}
	}
}
