// Package nav defines the navigation capabilities the decision core consumes.
// The pathfinding engine itself lives behind these interfaces; the reference
// grid mesh under nav/grid implements them for the harness and tests, and the
// core packages never import it directly.
package nav

import (
	"hide-and-hunt/server/internal/world"
)

// NodeRef identifies a navigation node on a Mesh. Refs are only meaningful
// against the mesh that produced them.
type NodeRef int64

// NoNode is the zero-value ref for "no node found".
const NoNode NodeRef = -1

// Filter constrains NearestNode lookups.
type Filter struct {
	// MaxDistance rejects nodes farther than this from the query point.
	// Zero means unbounded.
	MaxDistance float64
	// SkipLinks excludes jump-link connector nodes from the search.
	SkipLinks bool
}

// Mesh is the navigation graph the bots path across. FindPath and
// LineOfSight may be called concurrently with each other; MutateGraph takes
// the mesh exclusively so cost writes never interleave with an in-flight
// path read.
type Mesh interface {
	// NearestNode finds the node closest to a world position.
	NearestNode(pos world.Vec3, filter Filter) (NodeRef, bool)

	// FindPath computes a waypoint path from start to one of the goals.
	// With multiTarget set the cheapest goal wins; otherwise only the first
	// goal is considered. The call is synchronous; the Planner runs it off
	// the simulation goroutine.
	FindPath(start world.Vec3, goals []world.Vec3, multiTarget bool) (Path, error)

	// LineOfSight walks the mesh from start toward to and reports whether
	// something blocks the segment, and how far away the blocker is.
	LineOfSight(from, to world.Vec3, start NodeRef) (hit bool, distance float64)

	// ClosestPoint clamps a world position onto the given node.
	ClosestPoint(node NodeRef, p world.Vec3) world.Vec3

	// Contains reports whether the point lies on the given node.
	Contains(node NodeRef, p world.Vec3) bool

	// IsLink reports whether the node is a jump-link connector.
	IsLink(node NodeRef) bool

	// MutateGraph runs fn with exclusive access to the graph. In-flight
	// path computations see either the state before or after fn, never a
	// torn mix.
	MutateGraph(fn func(GraphTx))
}

// GraphTx is the exclusive mutation view handed to MutateGraph callbacks.
type GraphTx interface {
	// Neighbors lists the nodes directly connected to the given node.
	Neighbors(node NodeRef) []NodeRef
	// Position reports the node's world position.
	Position(node NodeRef) world.Vec3
	// IsLink reports whether the node is a jump-link connector.
	IsLink(node NodeRef) bool
	// Penalty reads the node's traversal penalty.
	Penalty(node NodeRef) float64
	// SetPenalty writes the node's traversal penalty.
	SetPenalty(node NodeRef, penalty float64)
}
