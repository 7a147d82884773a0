package grid

import (
	"container/heap"
	"fmt"
	"math"

	"hide-and-hunt/server/internal/nav"
	"hide-and-hunt/server/internal/world"
)

type gridNeighbor struct {
	col      int
	row      int
	cost     float64
	diagonal bool
}

var neighborOffsets = [...]gridNeighbor{
	{col: 0, row: -1, cost: 1, diagonal: false},
	{col: 1, row: 0, cost: 1, diagonal: false},
	{col: 0, row: 1, cost: 1, diagonal: false},
	{col: -1, row: 0, cost: 1, diagonal: false},
	{col: 1, row: -1, cost: math.Sqrt2, diagonal: true},
	{col: 1, row: 1, cost: math.Sqrt2, diagonal: true},
	{col: -1, row: 1, cost: math.Sqrt2, diagonal: true},
	{col: -1, row: -1, cost: math.Sqrt2, diagonal: true},
}

// canCutCorner rejects diagonal moves that squeeze between two blocked or
// step-discontinuous orthogonal cells.
func (m *Mesh) canCutCorner(col, row int, delta gridNeighbor) bool {
	if !delta.diagonal {
		return true
	}
	horizCol, horizRow := col+delta.col, row
	vertCol, vertRow := col, row+delta.row
	if !m.inBounds(horizCol, horizRow) || !m.inBounds(vertCol, vertRow) {
		return false
	}
	from := m.index(col, row)
	horiz := m.index(horizCol, horizRow)
	vert := m.index(vertCol, vertRow)
	if !m.walkable[horiz] || !m.walkable[vert] {
		return false
	}
	if math.Abs(m.elevation[horiz]-m.elevation[from]) > MaxStepHeight {
		return false
	}
	if math.Abs(m.elevation[vert]-m.elevation[from]) > MaxStepHeight {
		return false
	}
	return true
}

type searchNode struct {
	ref    nav.NodeRef
	g      float64
	f      float64
	index  int
	parent *searchNode
}

type searchQueue []*searchNode

func (pq searchQueue) Len() int { return len(pq) }

func (pq searchQueue) Less(i, j int) bool { return pq[i].f < pq[j].f }

func (pq searchQueue) Swap(i, j int) {
	pq[i], pq[j] = pq[j], pq[i]
	pq[i].index = i
	pq[j].index = j
}

func (pq *searchQueue) Push(x any) {
	n := len(*pq)
	item := x.(*searchNode)
	item.index = n
	*pq = append(*pq, item)
}

func (pq *searchQueue) Pop() any {
	old := *pq
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	item.index = -1
	*pq = old[:n-1]
	return item
}

// octile is the admissible heuristic for 8-way grids, in cell units.
func octile(dx, dz float64) float64 {
	dx = math.Abs(dx)
	dz = math.Abs(dz)
	if dx > dz {
		return dx + (math.Sqrt2-1)*dz
	}
	return dz + (math.Sqrt2-1)*dx
}

// FindPath computes a waypoint path from start to one of the goals. The
// cheapest reachable goal wins when multiTarget is set; otherwise only
// goals[0] counts. Cell penalties are added on entry, so shaped regions
// get detoured around rather than blocked outright.
func (m *Mesh) FindPath(start world.Vec3, goals []world.Vec3, multiTarget bool) (nav.Path, error) {
	if m == nil {
		return nav.Path{}, fmt.Errorf("find path: %w", nav.ErrOffMesh)
	}
	if len(goals) == 0 {
		return nav.Path{}, fmt.Errorf("find path: %w", nav.ErrNoPath)
	}
	if !multiTarget {
		goals = goals[:1]
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	startCol, startRow, ok := m.locate(start.X, start.Z)
	if !ok {
		return nav.Path{}, fmt.Errorf("find path from %.1f,%.1f: %w", start.X, start.Z, nav.ErrOffMesh)
	}
	if !m.walkable[m.index(startCol, startRow)] {
		startCol, startRow, ok = m.closestWalkable(startCol, startRow)
		if !ok {
			return nav.Path{}, fmt.Errorf("find path from %.1f,%.1f: %w", start.X, start.Z, nav.ErrOffMesh)
		}
	}
	startIdx := m.index(startCol, startRow)

	// Resolve every goal to a walkable cell; unreachable goals drop out.
	goalCells := make(map[int]world.Vec3, len(goals))
	for _, goal := range goals {
		col, row, ok := m.locate(goal.X, goal.Z)
		if !ok {
			continue
		}
		if !m.walkable[m.index(col, row)] {
			col, row, ok = m.closestWalkable(col, row)
			if !ok {
				continue
			}
		}
		idx := m.index(col, row)
		if _, exists := goalCells[idx]; !exists {
			goalCells[idx] = goal
		}
	}
	if len(goalCells) == 0 {
		return nav.Path{}, fmt.Errorf("find path: every goal off mesh: %w", nav.ErrOffMesh)
	}

	end, ok := m.searchLocked(startIdx, goalCells)
	if !ok {
		return nav.Path{}, fmt.Errorf("find path from %.1f,%.1f: %w", start.X, start.Z, nav.ErrNoPath)
	}
	return m.buildPathLocked(end, goalCells[int(end.ref)]), nil
}

func (m *Mesh) searchLocked(startIdx int, goalCells map[int]world.Vec3) (*searchNode, bool) {
	startRef := nav.NodeRef(startIdx)
	open := &searchQueue{}
	heap.Init(open)
	heap.Push(open, &searchNode{ref: startRef, g: 0, f: m.heuristicLocked(startRef, goalCells)})
	gScore := map[nav.NodeRef]float64{startRef: 0}
	closed := make(map[nav.NodeRef]struct{})

	for open.Len() > 0 {
		current := heap.Pop(open).(*searchNode)
		if _, seen := closed[current.ref]; seen {
			continue
		}
		closed[current.ref] = struct{}{}
		if _, isGoal := goalCells[int(current.ref)]; isGoal {
			return current, true
		}
		for _, edge := range m.edgesLocked(current.ref) {
			if _, seen := closed[edge.ref]; seen {
				continue
			}
			tentativeG := current.g + edge.cost
			if prev, ok := gScore[edge.ref]; ok && tentativeG >= prev {
				continue
			}
			gScore[edge.ref] = tentativeG
			heap.Push(open, &searchNode{
				ref:    edge.ref,
				g:      tentativeG,
				f:      tentativeG + m.heuristicLocked(edge.ref, goalCells),
				parent: current,
			})
		}
	}
	return nil, false
}

type gridEdge struct {
	ref  nav.NodeRef
	cost float64
}

func (m *Mesh) edgesLocked(ref nav.NodeRef) []gridEdge {
	if li, ok := m.linkIndex(ref); ok {
		link := m.links[li]
		pos := link.pos
		return []gridEdge{
			{ref: nav.NodeRef(link.a), cost: m.hopCostLocked(pos, link.a)},
			{ref: nav.NodeRef(link.b), cost: m.hopCostLocked(pos, link.b)},
		}
	}
	cell, ok := m.cellAt(ref)
	if !ok {
		return nil
	}
	col := cell % m.cols
	row := cell / m.cols
	edges := make([]gridEdge, 0, 8)
	for _, delta := range neighborOffsets {
		nc, nr := col+delta.col, row+delta.row
		if !m.inBounds(nc, nr) {
			continue
		}
		nIdx := m.index(nc, nr)
		if !m.walkable[nIdx] {
			continue
		}
		if math.Abs(m.elevation[nIdx]-m.elevation[cell]) > MaxStepHeight {
			continue
		}
		if delta.diagonal && !m.canCutCorner(col, row, delta) {
			continue
		}
		edges = append(edges, gridEdge{
			ref:  nav.NodeRef(nIdx),
			cost: delta.cost + m.penalty[nIdx],
		})
	}
	from := m.cellCenterLocked(cell)
	for _, li := range m.cellLinks[cell] {
		edges = append(edges, gridEdge{
			ref:  m.linkRef(li),
			cost: math.Max(from.HorizontalDistance(m.links[li].pos)/m.cellSize, 0.5),
		})
	}
	return edges
}

func (m *Mesh) hopCostLocked(linkPos world.Vec3, cell int) float64 {
	base := math.Max(linkPos.HorizontalDistance(m.cellCenterLocked(cell))/m.cellSize, 0.5)
	return base + m.penalty[cell]
}

func (m *Mesh) heuristicLocked(ref nav.NodeRef, goalCells map[int]world.Vec3) float64 {
	var pos world.Vec3
	if li, ok := m.linkIndex(ref); ok {
		pos = m.links[li].pos
	} else if cell, ok := m.cellAt(ref); ok {
		pos = m.cellCenterLocked(cell)
	}
	best := math.MaxFloat64
	for cell := range goalCells {
		goal := m.cellCenterLocked(cell)
		h := octile((pos.X-goal.X)/m.cellSize, (pos.Z-goal.Z)/m.cellSize)
		if h < best {
			best = h
		}
	}
	return best
}

// buildPathLocked walks the parent chain back to the start, drops the start
// node, and lands the final waypoint on the exact requested target.
func (m *Mesh) buildPathLocked(end *searchNode, target world.Vec3) nav.Path {
	var refs []nav.NodeRef
	for node := end; node != nil; node = node.parent {
		refs = append(refs, node.ref)
	}
	for i := 0; i < len(refs)/2; i++ {
		j := len(refs) - 1 - i
		refs[i], refs[j] = refs[j], refs[i]
	}
	if len(refs) <= 1 {
		endRef := refs[0]
		return nav.Path{
			Waypoints: []world.Vec3{target.WithY(m.nodeHeightLocked(endRef))},
			Nodes:     []nav.NodeRef{endRef},
			Links:     []bool{false},
		}
	}
	refs = refs[1:]
	path := nav.Path{
		Waypoints: make([]world.Vec3, 0, len(refs)),
		Nodes:     make([]nav.NodeRef, 0, len(refs)),
		Links:     make([]bool, 0, len(refs)),
	}
	for _, ref := range refs {
		var pos world.Vec3
		link := false
		if li, ok := m.linkIndex(ref); ok {
			pos = m.links[li].pos
			link = true
		} else if cell, ok := m.cellAt(ref); ok {
			pos = m.cellCenterLocked(cell)
		}
		path.Waypoints = append(path.Waypoints, pos)
		path.Nodes = append(path.Nodes, ref)
		path.Links = append(path.Links, link)
	}
	last := len(path.Waypoints) - 1
	exact := target.WithY(m.nodeHeightLocked(path.Nodes[last]))
	if path.Waypoints[last].HorizontalDistance(exact) > m.cellSize {
		path.Waypoints = append(path.Waypoints, exact)
		path.Nodes = append(path.Nodes, path.Nodes[last])
		path.Links = append(path.Links, false)
	} else if !path.Links[last] {
		path.Waypoints[last] = exact
	}
	return path
}

func (m *Mesh) nodeHeightLocked(ref nav.NodeRef) float64 {
	if li, ok := m.linkIndex(ref); ok {
		return m.links[li].pos.Y
	}
	if cell, ok := m.cellAt(ref); ok {
		return m.elevation[cell]
	}
	return 0
}
