package pipeline

import (
	"github.com/kbukum/featflow/errors"
)

// visit marks for the dependency-first traversal.
const (
	markUnseen int8 = iota
	markExpanding
	markDone
)

// buildPath computes the deduplicated topological execution order reachable
// backward from the given terminal nodes. Dependencies always precede their
// consumers; a node reached through several branches appears exactly once.
// A back-edge (a node revisited while still being expanded) is a cycle.
func buildPath(outputs []*Node) ([]*Node, error) {
	marks := make(map[*Node]int8)
	var path []*Node
	var trail []*Node // nodes along the current expansion, for cycle reporting

	var expand func(n *Node) error
	expand = func(n *Node) error {
		switch marks[n] {
		case markDone:
			return nil
		case markExpanding:
			return errors.Cycle(cycleNames(trail, n))
		}

		marks[n] = markExpanding
		trail = append(trail, n)
		for _, in := range n.inbound {
			if err := expand(in); err != nil {
				return err
			}
		}
		trail = trail[:len(trail)-1]
		marks[n] = markDone
		path = append(path, n)
		return nil
	}

	for _, out := range outputs {
		if err := expand(out); err != nil {
			return nil, err
		}
	}
	return path, nil
}

// cycleNames trims the expansion trail to the cycle itself: from the first
// occurrence of the revisited node through to its reappearance.
func cycleNames(trail []*Node, revisited *Node) []string {
	start := 0
	for i, n := range trail {
		if n == revisited {
			start = i
			break
		}
	}
	names := make([]string, 0, len(trail)-start+1)
	for _, n := range trail[start:] {
		names = append(names, n.name)
	}
	return append(names, revisited.name)
}

// partition splits a path by role, preserving path order.
type partition struct {
	inputs     []*Node
	transforms []*Node
	metrics    []*Node
	trainables []*Node
}

func partitionPath(path []*Node) partition {
	var p partition
	for _, n := range path {
		switch n.role {
		case RoleInput:
			p.inputs = append(p.inputs, n)
		case RoleTransform:
			p.transforms = append(p.transforms, n)
		case RoleMetric:
			p.metrics = append(p.metrics, n)
		case RoleTrainable:
			p.trainables = append(p.trainables, n)
		}
	}
	return p
}
