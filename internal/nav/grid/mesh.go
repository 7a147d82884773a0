// Package grid is the reference navigation mesh: a uniform cell grid with
// per-cell elevation, jump-link connectors between disconnected surfaces,
// and traversal penalties the cost shaper writes into. The harness and tests
// build arenas on it; the decision core only ever sees the nav interfaces.
package grid

import (
	"math"
	"sync"

	"hide-and-hunt/server/internal/nav"
	"hide-and-hunt/server/internal/world"
)

const (
	// DefaultCellSize is the grid resolution in world units.
	DefaultCellSize = 1.0
	// MaxStepHeight is the largest elevation change walkable without a link.
	MaxStepHeight = 0.6
	// losSampleDivisor controls raycast granularity relative to cell size.
	losSampleDivisor = 4
)

// Config sizes a mesh.
type Config struct {
	Cols, Rows int
	CellSize   float64
}

type jumpLink struct {
	a, b int // cell indices
	pos  world.Vec3
}

// Mesh is a grid-backed nav.Mesh. Path and line-of-sight reads share the
// mesh; MutateGraph writers take it exclusively. Authoring calls (Block,
// Raise, Link) run before the mesh starts serving and also take the write
// lock so a hot-reloading harness cannot tear a read.
type Mesh struct {
	mu        sync.RWMutex
	cols      int
	rows      int
	cellSize  float64
	walkable  []bool
	elevation []float64
	penalty   []float64
	links     []jumpLink
	cellLinks map[int][]int
}

// NewMesh builds an all-walkable flat mesh.
func NewMesh(cfg Config) *Mesh {
	cols, rows := cfg.Cols, cfg.Rows
	if cols <= 0 {
		cols = 1
	}
	if rows <= 0 {
		rows = 1
	}
	cellSize := cfg.CellSize
	if cellSize <= 0 {
		cellSize = DefaultCellSize
	}
	m := &Mesh{
		cols:      cols,
		rows:      rows,
		cellSize:  cellSize,
		walkable:  make([]bool, cols*rows),
		elevation: make([]float64, cols*rows),
		penalty:   make([]float64, cols*rows),
		cellLinks: make(map[int][]int),
	}
	for i := range m.walkable {
		m.walkable[i] = true
	}
	return m
}

// Block marks a single cell unwalkable.
func (m *Mesh) Block(col, row int) {
	m.BlockRect(col, row, col, row)
}

// BlockRect marks the inclusive cell rectangle unwalkable.
func (m *Mesh) BlockRect(c0, r0, c1, r1 int) {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for row := r0; row <= r1; row++ {
		for col := c0; col <= c1; col++ {
			if m.inBounds(col, row) {
				m.walkable[m.index(col, row)] = false
			}
		}
	}
}

// Raise sets the elevation of the inclusive cell rectangle. Cells bordering
// a step taller than MaxStepHeight become mutually unreachable without a
// jump link.
func (m *Mesh) Raise(c0, r0, c1, r1 int, height float64) {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for row := r0; row <= r1; row++ {
		for col := c0; col <= c1; col++ {
			if m.inBounds(col, row) {
				m.elevation[m.index(col, row)] = height
			}
		}
	}
}

// Link adds a jump connector between two cells and returns its node ref.
// Links carry no penalty and the cost shaper skips them.
func (m *Mesh) Link(fromCol, fromRow, toCol, toRow int) nav.NodeRef {
	if m == nil || !m.inBounds(fromCol, fromRow) || !m.inBounds(toCol, toRow) {
		return nav.NoNode
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	a := m.index(fromCol, fromRow)
	b := m.index(toCol, toRow)
	pa := m.cellCenterLocked(a)
	pb := m.cellCenterLocked(b)
	link := jumpLink{
		a: a,
		b: b,
		pos: world.Vec3{
			X: (pa.X + pb.X) / 2,
			Y: math.Max(pa.Y, pb.Y),
			Z: (pa.Z + pb.Z) / 2,
		},
	}
	idx := len(m.links)
	m.links = append(m.links, link)
	if m.cellLinks == nil {
		m.cellLinks = make(map[int][]int)
	}
	m.cellLinks[a] = append(m.cellLinks[a], idx)
	m.cellLinks[b] = append(m.cellLinks[b], idx)
	return m.linkRef(idx)
}

// Cols reports the number of grid columns.
func (m *Mesh) Cols() int {
	if m == nil {
		return 0
	}
	return m.cols
}

// Rows reports the number of grid rows.
func (m *Mesh) Rows() int {
	if m == nil {
		return 0
	}
	return m.rows
}

// CellSize reports the grid resolution in world units.
func (m *Mesh) CellSize() float64 {
	if m == nil {
		return 0
	}
	return m.cellSize
}

// CellRef reports the node ref for a cell address.
func (m *Mesh) CellRef(col, row int) nav.NodeRef {
	if m == nil || !m.inBounds(col, row) {
		return nav.NoNode
	}
	return nav.NodeRef(m.index(col, row))
}

// NearestNode finds the walkable node closest to a world position.
func (m *Mesh) NearestNode(pos world.Vec3, filter nav.Filter) (nav.NodeRef, bool) {
	if m == nil {
		return nav.NoNode, false
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	col, row, ok := m.locate(pos.X, pos.Z)
	if !ok {
		return nav.NoNode, false
	}
	if !m.walkable[m.index(col, row)] {
		col, row, ok = m.closestWalkable(col, row)
		if !ok {
			return nav.NoNode, false
		}
	}
	cell := m.index(col, row)
	best := nav.NodeRef(cell)
	bestDist := m.cellCenterLocked(cell).Distance(pos)

	if !filter.SkipLinks {
		for i, link := range m.links {
			if d := link.pos.Distance(pos); d < bestDist {
				best = m.linkRef(i)
				bestDist = d
			}
		}
	}
	if filter.MaxDistance > 0 && bestDist > filter.MaxDistance {
		return nav.NoNode, false
	}
	return best, true
}

// ClosestPoint clamps a world position onto the node's surface.
func (m *Mesh) ClosestPoint(node nav.NodeRef, p world.Vec3) world.Vec3 {
	if m == nil {
		return p
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if li, ok := m.linkIndex(node); ok {
		return m.links[li].pos
	}
	cell := int(node)
	if cell < 0 || cell >= len(m.walkable) {
		return p
	}
	col := cell % m.cols
	row := cell / m.cols
	minX := float64(col) * m.cellSize
	minZ := float64(row) * m.cellSize
	return world.Vec3{
		X: world.Clamp(p.X, minX, minX+m.cellSize),
		Y: m.elevation[cell],
		Z: world.Clamp(p.Z, minZ, minZ+m.cellSize),
	}
}

// Contains reports whether the point lies over the node.
func (m *Mesh) Contains(node nav.NodeRef, p world.Vec3) bool {
	if m == nil {
		return false
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if li, ok := m.linkIndex(node); ok {
		return m.links[li].pos.HorizontalDistance(p) <= m.cellSize/2
	}
	cell := int(node)
	if cell < 0 || cell >= len(m.walkable) {
		return false
	}
	col, row, ok := m.locate(p.X, p.Z)
	return ok && m.index(col, row) == cell
}

// IsLink reports whether the ref names a jump-link connector.
func (m *Mesh) IsLink(node nav.NodeRef) bool {
	if m == nil {
		return false
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.linkIndex(node)
	return ok
}

// MutateGraph runs fn with exclusive access to the graph.
func (m *Mesh) MutateGraph(fn func(nav.GraphTx)) {
	if m == nil || fn == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	fn(&graphTx{mesh: m})
}

func (m *Mesh) index(col, row int) int {
	return row*m.cols + col
}

func (m *Mesh) inBounds(col, row int) bool {
	return m != nil && col >= 0 && row >= 0 && col < m.cols && row < m.rows
}

func (m *Mesh) linkRef(i int) nav.NodeRef {
	return nav.NodeRef(m.cols*m.rows + i)
}

func (m *Mesh) linkIndex(node nav.NodeRef) (int, bool) {
	i := int(node) - m.cols*m.rows
	if i < 0 || i >= len(m.links) {
		return 0, false
	}
	return i, true
}

func (m *Mesh) cellCenterLocked(cell int) world.Vec3 {
	col := cell % m.cols
	row := cell / m.cols
	return world.Vec3{
		X: (float64(col) + 0.5) * m.cellSize,
		Y: m.elevation[cell],
		Z: (float64(row) + 0.5) * m.cellSize,
	}
}

func (m *Mesh) locate(x, z float64) (int, int, bool) {
	if m.cols == 0 || m.rows == 0 {
		return 0, 0, false
	}
	width := float64(m.cols) * m.cellSize
	height := float64(m.rows) * m.cellSize
	col := int(world.Clamp(x, 0, width-1e-9) / m.cellSize)
	row := int(world.Clamp(z, 0, height-1e-9) / m.cellSize)
	if !m.inBounds(col, row) {
		return 0, 0, false
	}
	return col, row, true
}

// closestWalkable breadth-first searches outward for the nearest walkable
// cell when the addressed one is blocked.
func (m *Mesh) closestWalkable(col, row int) (int, int, bool) {
	type cellAddr struct{ col, row int }
	start := m.index(col, row)
	visited := map[int]struct{}{start: {}}
	queue := []cellAddr{{col, row}}
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		idx := m.index(current.col, current.row)
		if m.walkable[idx] {
			return current.col, current.row, true
		}
		for _, delta := range neighborOffsets {
			nc, nr := current.col+delta.col, current.row+delta.row
			if !m.inBounds(nc, nr) {
				continue
			}
			nIdx := m.index(nc, nr)
			if _, seen := visited[nIdx]; seen {
				continue
			}
			visited[nIdx] = struct{}{}
			queue = append(queue, cellAddr{nc, nr})
		}
	}
	return 0, 0, false
}

// LineOfSight samples the planar segment from from to to and reports the
// first blocked or step-discontinuous cell, with the distance to it.
func (m *Mesh) LineOfSight(from, to world.Vec3, start nav.NodeRef) (bool, float64) {
	if m == nil {
		return false, 0
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	total := from.HorizontalDistance(to)
	if total < 1e-9 {
		return false, 0
	}
	step := m.cellSize / losSampleDivisor
	if step <= 0 {
		step = 0.25
	}

	prevElev := from.Y
	if cell, ok := m.cellAt(start); ok {
		prevElev = m.elevation[cell]
	}
	dir := to.Sub(from)
	for travelled := step; travelled <= total; travelled += step {
		p := from.Add(dir.Scale(travelled / total))
		col, row, ok := m.locate(p.X, p.Z)
		if !ok {
			return true, travelled
		}
		idx := m.index(col, row)
		if !m.walkable[idx] {
			return true, travelled
		}
		if math.Abs(m.elevation[idx]-prevElev) > MaxStepHeight {
			return true, travelled
		}
		prevElev = m.elevation[idx]
	}
	return false, total
}

func (m *Mesh) cellAt(node nav.NodeRef) (int, bool) {
	cell := int(node)
	if cell < 0 || cell >= len(m.walkable) {
		return 0, false
	}
	return cell, true
}

// graphTx exposes the mutation view while the mesh write lock is held.
type graphTx struct {
	mesh *Mesh
}

func (tx *graphTx) Neighbors(node nav.NodeRef) []nav.NodeRef {
	m := tx.mesh
	if li, ok := m.linkIndex(node); ok {
		link := m.links[li]
		return []nav.NodeRef{nav.NodeRef(link.a), nav.NodeRef(link.b)}
	}
	cell, ok := m.cellAt(node)
	if !ok {
		return nil
	}
	col := cell % m.cols
	row := cell / m.cols
	var out []nav.NodeRef
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
		out = append(out, nav.NodeRef(nIdx))
	}
	for _, li := range m.cellLinks[cell] {
		out = append(out, m.linkRef(li))
	}
	return out
}

func (tx *graphTx) Position(node nav.NodeRef) world.Vec3 {
	m := tx.mesh
	if li, ok := m.linkIndex(node); ok {
		return m.links[li].pos
	}
	if cell, ok := m.cellAt(node); ok {
		return m.cellCenterLocked(cell)
	}
	return world.Vec3{}
}

func (tx *graphTx) IsLink(node nav.NodeRef) bool {
	_, ok := tx.mesh.linkIndex(node)
	return ok
}

func (tx *graphTx) Penalty(node nav.NodeRef) float64 {
	if cell, ok := tx.mesh.cellAt(node); ok {
		return tx.mesh.penalty[cell]
	}
	return 0
}

func (tx *graphTx) SetPenalty(node nav.NodeRef, penalty float64) {
	if cell, ok := tx.mesh.cellAt(node); ok {
		tx.mesh.penalty[cell] = penalty
	}
}

var _ nav.Mesh = (*Mesh)(nil)
