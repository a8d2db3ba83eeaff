package feature

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
)

// Persistence kinds of the built-in operations.
const (
	KindScale       = "feature.scale"
	KindStandardize = "feature.standardize"
	KindSum         = "feature.sum"
	KindOneHot      = "feature.one_hot"
	KindMSE         = "feature.mse"
	KindAccuracy    = "feature.accuracy"
)

// Lambda adapts a plain function into a stateless transformation. Lambdas
// carry no kind and therefore cannot cross the persistence boundary.
type Lambda func(inputs []any) (any, error)

func (Lambda) Fit([]any) error        { return nil }
func (Lambda) PartialFit([]any) error { return nil }

func (f Lambda) Transform(inputs []any) (any, error) { return f(inputs) }

// Scale multiplies its single input by a fixed factor.
type Scale struct {
	Factor float64 `json:"factor"`
}

func (*Scale) Fit([]any) error        { return nil }
func (*Scale) PartialFit([]any) error { return nil }

func (s *Scale) Transform(inputs []any) (any, error) {
	in, err := column(inputs, 0)
	if err != nil {
		return nil, err
	}
	out := make([]float64, len(in))
	for i, v := range in {
		out[i] = v * s.Factor
	}
	return out, nil
}

func (*Scale) Kind() string                    { return KindScale }
func (s *Scale) MarshalState() ([]byte, error) { return json.Marshal(s) }
func (s *Scale) UnmarshalState(b []byte) error { return json.Unmarshal(b, s) }

// Standardize centers and scales values using a running mean and variance.
// The Welford update makes N partial fits equivalent to one fit over the
// concatenated batches.
type Standardize struct {
	Count int64   `json:"count"`
	Mean  float64 `json:"mean"`
	M2    float64 `json:"m2"`
}

func (s *Standardize) Fit(inputs []any) error {
	s.Count, s.Mean, s.M2 = 0, 0, 0
	return s.PartialFit(inputs)
}

func (s *Standardize) PartialFit(inputs []any) error {
	in, err := column(inputs, 0)
	if err != nil {
		return err
	}
	for _, v := range in {
		s.Count++
		delta := v - s.Mean
		s.Mean += delta / float64(s.Count)
		s.M2 += delta * (v - s.Mean)
	}
	return nil
}

func (s *Standardize) Transform(inputs []any) (any, error) {
	if s.Count == 0 {
		return nil, fmt.Errorf("standardize: not fitted")
	}
	in, err := column(inputs, 0)
	if err != nil {
		return nil, err
	}
	std := math.Sqrt(s.M2 / float64(s.Count))
	out := make([]float64, len(in))
	for i, v := range in {
		if std == 0 {
			out[i] = 0
			continue
		}
		out[i] = (v - s.Mean) / std
	}
	return out, nil
}

func (*Standardize) Kind() string                    { return KindStandardize }
func (s *Standardize) MarshalState() ([]byte, error) { return json.Marshal(s) }
func (s *Standardize) UnmarshalState(b []byte) error { return json.Unmarshal(b, s) }

// Sum adds any number of row-aligned inputs elementwise.
type Sum struct{}

func (*Sum) Fit([]any) error        { return nil }
func (*Sum) PartialFit([]any) error { return nil }

func (*Sum) Transform(inputs []any) (any, error) {
	if len(inputs) == 0 {
		return nil, fmt.Errorf("sum: no inputs")
	}
	first, err := column(inputs, 0)
	if err != nil {
		return nil, err
	}
	out := make([]float64, len(first))
	copy(out, first)
	for i := 1; i < len(inputs); i++ {
		in, err := column(inputs, i)
		if err != nil {
			return nil, err
		}
		if len(in) != len(out) {
			return nil, fmt.Errorf("sum: input %d has %d rows, want %d", i, len(in), len(out))
		}
		for j, v := range in {
			out[j] += v
		}
	}
	return out, nil
}

func (*Sum) Kind() string                  { return KindSum }
func (*Sum) MarshalState() ([]byte, error) { return json.Marshal(struct{}{}) }
func (*Sum) UnmarshalState([]byte) error   { return nil }

// OneHot encodes string categories as indicator vectors over the category
// set seen during fitting. Categories are kept sorted so the encoding is
// stable across runs and across save/load. Unseen categories encode to all
// zeros.
type OneHot struct {
	Categories []string `json:"categories"`

	index map[string]int
}

func (o *OneHot) Fit(inputs []any) error {
	o.Categories, o.index = nil, nil
	return o.PartialFit(inputs)
}

func (o *OneHot) PartialFit(inputs []any) error {
	in, err := labels(inputs, 0)
	if err != nil {
		return err
	}
	seen := make(map[string]bool, len(o.Categories))
	for _, c := range o.Categories {
		seen[c] = true
	}
	for _, v := range in {
		if !seen[v] {
			seen[v] = true
			o.Categories = append(o.Categories, v)
		}
	}
	sort.Strings(o.Categories)
	o.rebuildIndex()
	return nil
}

func (o *OneHot) Transform(inputs []any) (any, error) {
	if len(o.Categories) == 0 {
		return nil, fmt.Errorf("one_hot: not fitted")
	}
	in, err := labels(inputs, 0)
	if err != nil {
		return nil, err
	}
	out := make([][]float64, len(in))
	for i, v := range in {
		row := make([]float64, len(o.Categories))
		if j, ok := o.index[v]; ok {
			row[j] = 1
		}
		out[i] = row
	}
	return out, nil
}

func (o *OneHot) rebuildIndex() {
	o.index = make(map[string]int, len(o.Categories))
	for i, c := range o.Categories {
		o.index[c] = i
	}
}

func (*OneHot) Kind() string                    { return KindOneHot }
func (o *OneHot) MarshalState() ([]byte, error) { return json.Marshal(o) }
func (o *OneHot) UnmarshalState(b []byte) error {
	if err := json.Unmarshal(b, o); err != nil {
		return err
	}
	o.rebuildIndex()
	return nil
}

// column extracts input i as []float64.
func column(inputs []any, i int) ([]float64, error) {
	if i >= len(inputs) {
		return nil, fmt.Errorf("missing input %d", i)
	}
	v, ok := inputs[i].([]float64)
	if !ok {
		return nil, fmt.Errorf("input %d is %T, want []float64", i, inputs[i])
	}
	return v, nil
}

// labels extracts input i as []string.
func labels(inputs []any, i int) ([]string, error) {
	if i >= len(inputs) {
		return nil, fmt.Errorf("missing input %d", i)
	}
	v, ok := inputs[i].([]string)
	if !ok {
		return nil, fmt.Errorf("input %d is %T, want []string", i, inputs[i])
	}
	return v, nil
}
