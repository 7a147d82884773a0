// Package bt wraps the behavior-tree engine with the node vocabulary the
// bot decision trees are assembled from.
package bt

import (
	behaviortree "github.com/joeycumines/go-behaviortree"
)

type (
	// Status is the tri-state result of ticking a node.
	Status = behaviortree.Status
	// Node is a behavior-tree vertex. Ticking it evaluates the subtree.
	Node = behaviortree.Node
	// Tick evaluates a node's children and reports the subtree status.
	Tick = behaviortree.Tick
)

const (
	Running = behaviortree.Running
	Success = behaviortree.Success
	Failure = behaviortree.Failure
)

// New builds a node from a tick and its fixed child list.
func New(tick Tick, children ...Node) Node {
	return behaviortree.New(tick, children...)
}

// Sequence ticks children in order and fails or yields on the first child
// that does not succeed.
func Sequence(children ...Node) Node {
	return behaviortree.New(behaviortree.Sequence, children...)
}

// Selector ticks children in order and returns the first non-failure result.
func Selector(children ...Node) Node {
	return behaviortree.New(behaviortree.Selector, children...)
}

// Action wraps a leaf function. Errors are reserved for invariant
// violations; expected absence must be reported as Failure.
func Action(fn func() (Status, error)) Node {
	return behaviortree.New(func([]Node) (Status, error) {
		if fn == nil {
			return Failure, nil
		}
		return fn()
	})
}

// Condition wraps a predicate leaf.
func Condition(fn func() bool) Node {
	return behaviortree.New(func([]Node) (Status, error) {
		if fn != nil && fn() {
			return Success, nil
		}
		return Failure, nil
	})
}
