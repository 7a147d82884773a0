package nav

import (
	"hide-and-hunt/server/internal/world"
)

// Goal names what a path was computed for. Generation comes from the
// requester and increments whenever its commitment changes, so results from
// superseded requests can be told apart from current ones.
type Goal struct {
	ObjectiveID string
	Generation  uint64
	Target      world.Vec3
}

// Path is the polyline a mesh produced, with the graph node under each
// waypoint. Links flags the waypoints that sit on jump-link connectors.
// A Path is never mutated after creation; a replacement arrives wholesale.
type Path struct {
	Waypoints []world.Vec3
	Nodes     []NodeRef
	Links     []bool
}

// Empty reports whether the path has no waypoints.
func (p Path) Empty() bool {
	return len(p.Waypoints) == 0
}

// EndNode reports the final graph node, or NoNode for an empty path.
func (p Path) EndNode() NodeRef {
	if len(p.Nodes) == 0 {
		return NoNode
	}
	return p.Nodes[len(p.Nodes)-1]
}

// LinkAt reports whether the waypoint at index sits on a jump link.
func (p Path) LinkAt(index int) bool {
	if index < 0 || index >= len(p.Links) {
		return false
	}
	return p.Links[index]
}

// Result is one completed path computation: the goal it was requested for,
// the path, and the upstream error when the mesh could not serve it.
// Consumers match Goal against their current commitment and discard on
// mismatch; nothing is cancelled in flight.
type Result struct {
	Goal Goal
	Path Path
	Err  error
}

// Matches reports whether the result was computed for the given commitment.
func (r *Result) Matches(goal Goal) bool {
	if r == nil {
		return false
	}
	return r.Goal.ObjectiveID == goal.ObjectiveID && r.Goal.Generation == goal.Generation
}

// Completed reports whether the mesh produced a usable path.
func (r *Result) Completed() bool {
	return r != nil && r.Err == nil && !r.Path.Empty()
}
