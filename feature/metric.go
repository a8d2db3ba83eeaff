package feature

import (
	"encoding/json"
	"fmt"
)

// MSE reports the mean squared error between its two inbound values,
// predictions first.
type MSE struct{}

func (*MSE) Evaluate(inputs []any) (any, error) {
	pred, err := column(inputs, 0)
	if err != nil {
		return nil, err
	}
	target, err := column(inputs, 1)
	if err != nil {
		return nil, err
	}
	if len(pred) != len(target) {
		return nil, fmt.Errorf("mse: %d predictions vs %d targets", len(pred), len(target))
	}
	if len(pred) == 0 {
		return nil, fmt.Errorf("mse: empty inputs")
	}
	var sum float64
	for i := range pred {
		d := pred[i] - target[i]
		sum += d * d
	}
	return sum / float64(len(pred)), nil
}

func (*MSE) Kind() string                  { return KindMSE }
func (*MSE) MarshalState() ([]byte, error) { return json.Marshal(struct{}{}) }
func (*MSE) UnmarshalState([]byte) error   { return nil }

// Accuracy reports the fraction of exactly matching prediction/target pairs.
type Accuracy struct{}

func (*Accuracy) Evaluate(inputs []any) (any, error) {
	pred, err := labels(inputs, 0)
	if err != nil {
		return nil, err
	}
	target, err := labels(inputs, 1)
	if err != nil {
		return nil, err
	}
	if len(pred) != len(target) {
		return nil, fmt.Errorf("accuracy: %d predictions vs %d targets", len(pred), len(target))
	}
	if len(pred) == 0 {
		return nil, fmt.Errorf("accuracy: empty inputs")
	}
	hits := 0
	for i := range pred {
		if pred[i] == target[i] {
			hits++
		}
	}
	return float64(hits) / float64(len(pred)), nil
}

func (*Accuracy) Kind() string                  { return KindAccuracy }
func (*Accuracy) MarshalState() ([]byte, error) { return json.Marshal(struct{}{}) }
func (*Accuracy) UnmarshalState([]byte) error   { return nil }
