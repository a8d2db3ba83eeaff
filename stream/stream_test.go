package stream

import (
	"context"
	"errors"
	"testing"
)

func TestFromSlice_Collect(t *testing.T) {
	got, err := Collect(context.Background(), FromSlice([]int{1, 2, 3}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 3 || got[0] != 1 || got[2] != 3 {
		t.Fatalf("unexpected values: %v", got)
	}
}

func TestFromFunc_Exhaustion(t *testing.T) {
	n := 0
	it := FromFunc(func(_ context.Context) (int, bool, error) {
		if n >= 2 {
			return 0, false, nil
		}
		n++
		return n, true, nil
	})
	got, err := Collect(context.Background(), it)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 values, got %v", got)
	}
}

func TestTake_Bounds(t *testing.T) {
	src := FromSlice([]int{1, 2, 3, 4, 5})
	got, err := Collect(context.Background(), Take(src, 3))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("expected 3 values, got %v", got)
	}
}

func TestTake_NonPositive(t *testing.T) {
	got, err := Collect(context.Background(), Take(FromSlice([]int{1}), 0))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("expected no values, got %v", got)
	}
}

func TestMap(t *testing.T) {
	doubled := Map(FromSlice([]int{1, 2}), func(_ context.Context, v int) (int, error) {
		return v * 2, nil
	})
	got, err := Collect(context.Background(), doubled)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got[0] != 2 || got[1] != 4 {
		t.Fatalf("unexpected values: %v", got)
	}
}

func TestMap_PropagatesError(t *testing.T) {
	boom := errors.New("boom")
	it := Map(FromSlice([]int{1}), func(_ context.Context, _ int) (int, error) {
		return 0, boom
	})
	_, _, err := it.Next(context.Background())
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
}

func TestFromFunc_ContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	it := FromFunc(func(_ context.Context) (int, bool, error) {
		return 1, true, nil
	})
	_, _, err := it.Next(ctx)
	if err == nil {
		t.Fatal("expected context error")
	}
}

func TestDrain(t *testing.T) {
	var sum int
	err := Drain(context.Background(), FromSlice([]int{1, 2, 3}), func(_ context.Context, v int) error {
		sum += v
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sum != 6 {
		t.Fatalf("expected 6, got %d", sum)
	}
}
