// Package cost biases pathfinding away from the hunter. Whenever the
// hunter's nearest graph node changes, a flood fill writes inverse-distance
// penalties onto every node within reach and clears the ones the previous
// pass touched that this one did not.
package cost

import (
	"math"

	"hide-and-hunt/server/internal/nav"
	"hide-and-hunt/server/tuning"
)

// minDistance caps the inverse-distance term so the penalty at the hunter's
// own node stays finite.
const minDistance = 0.5

// Pass summarizes one committed shaping pass.
type Pass struct {
	Penalized  int
	Cleared    int
	ThreatNode nav.NodeRef
}

// Shaper owns the hunter penalty field on a mesh. Not safe for concurrent
// use; the orchestrator drives it from the simulation goroutine and all
// graph writes happen inside a single MutateGraph critical section.
type Shaper struct {
	cfg      tuning.CostConfig
	lastNode nav.NodeRef
	applied  map[nav.NodeRef]struct{}
}

// NewShaper builds a shaper with no field applied yet.
func NewShaper(cfg tuning.CostConfig) *Shaper {
	return &Shaper{
		cfg:      cfg,
		lastNode: nav.NoNode,
		applied:  make(map[nav.NodeRef]struct{}),
	}
}

// Apply recomputes the penalty field for the hunter standing on threatNode.
// It returns false without touching the mesh when the node has not changed
// since the last pass. Passing NoNode clears the field.
func (s *Shaper) Apply(mesh nav.Mesh, threatNode nav.NodeRef) (Pass, bool) {
	if s == nil || mesh == nil || threatNode == s.lastNode {
		return Pass{}, false
	}
	s.lastNode = threatNode
	current := make(map[nav.NodeRef]struct{})
	pass := Pass{ThreatNode: threatNode}

	mesh.MutateGraph(func(tx nav.GraphTx) {
		if threatNode != nav.NoNode {
			s.fill(tx, threatNode, current)
		}
		for node := range s.applied {
			if _, still := current[node]; !still {
				tx.SetPenalty(node, 0)
				pass.Cleared++
			}
		}
	})

	pass.Penalized = len(current)
	s.applied = current
	return pass, true
}

// fill walks neighbor connections outward from the origin, penalizing every
// node whose position lies within the configured radius. Jump-link
// connectors are neither penalized nor walked through.
func (s *Shaper) fill(tx nav.GraphTx, origin nav.NodeRef, current map[nav.NodeRef]struct{}) {
	center := tx.Position(origin)
	visited := map[nav.NodeRef]struct{}{origin: {}}
	queue := []nav.NodeRef{origin}
	for len(queue) > 0 {
		node := queue[0]
		queue = queue[1:]
		dist := tx.Position(node).HorizontalDistance(center)
		if dist > s.cfg.Radius {
			continue
		}
		tx.SetPenalty(node, s.cfg.Floor+s.cfg.Gain/math.Max(dist, minDistance))
		current[node] = struct{}{}
		for _, next := range tx.Neighbors(node) {
			if _, seen := visited[next]; seen {
				continue
			}
			visited[next] = struct{}{}
			if tx.IsLink(next) {
				continue
			}
			queue = append(queue, next)
		}
	}
}

// Clear removes every penalty the shaper has applied.
func (s *Shaper) Clear(mesh nav.Mesh) (Pass, bool) {
	return s.Apply(mesh, nav.NoNode)
}
