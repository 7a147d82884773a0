package cost

import (
	"math"
	"testing"

	"hide-and-hunt/server/internal/nav"
	"hide-and-hunt/server/internal/world"
	"hide-and-hunt/server/tuning"
)

// fakeMesh is a hand-built graph: positions, adjacency, link flags. Only
// the mutation view matters to the shaper.
type fakeMesh struct {
	positions map[nav.NodeRef]world.Vec3
	edges     map[nav.NodeRef][]nav.NodeRef
	links     map[nav.NodeRef]bool
	penalties map[nav.NodeRef]float64
	mutations int
}

func newFakeMesh() *fakeMesh {
	return &fakeMesh{
		positions: make(map[nav.NodeRef]world.Vec3),
		edges:     make(map[nav.NodeRef][]nav.NodeRef),
		links:     make(map[nav.NodeRef]bool),
		penalties: make(map[nav.NodeRef]float64),
	}
}

func (m *fakeMesh) node(ref nav.NodeRef, x float64, link bool) {
	m.positions[ref] = world.Vec3{X: x}
	m.links[ref] = link
}

func (m *fakeMesh) connect(a, b nav.NodeRef) {
	m.edges[a] = append(m.edges[a], b)
	m.edges[b] = append(m.edges[b], a)
}

func (m *fakeMesh) MutateGraph(fn func(nav.GraphTx)) {
	m.mutations++
	fn(&fakeTx{mesh: m})
}

func (m *fakeMesh) NearestNode(world.Vec3, nav.Filter) (nav.NodeRef, bool) { return nav.NoNode, false }
func (m *fakeMesh) FindPath(world.Vec3, []world.Vec3, bool) (nav.Path, error) {
	return nav.Path{}, nav.ErrNoPath
}
func (m *fakeMesh) LineOfSight(world.Vec3, world.Vec3, nav.NodeRef) (bool, float64) { return false, 0 }
func (m *fakeMesh) ClosestPoint(_ nav.NodeRef, p world.Vec3) world.Vec3             { return p }
func (m *fakeMesh) Contains(nav.NodeRef, world.Vec3) bool                           { return false }
func (m *fakeMesh) IsLink(ref nav.NodeRef) bool                                     { return m.links[ref] }

type fakeTx struct {
	mesh *fakeMesh
}

func (tx *fakeTx) Neighbors(n nav.NodeRef) []nav.NodeRef { return tx.mesh.edges[n] }
func (tx *fakeTx) Position(n nav.NodeRef) world.Vec3     { return tx.mesh.positions[n] }
func (tx *fakeTx) IsLink(n nav.NodeRef) bool             { return tx.mesh.links[n] }
func (tx *fakeTx) Penalty(n nav.NodeRef) float64         { return tx.mesh.penalties[n] }
func (tx *fakeTx) SetPenalty(n nav.NodeRef, p float64)   { tx.mesh.penalties[n] = p }

func testCost() tuning.CostConfig {
	return tuning.CostConfig{Radius: 7, Floor: 2, Gain: 10}
}

// lineMesh builds nodes 0..5 on a line, 3 units apart, plus a link node 10
// bridging to island node 11 near node 2.
func lineMesh() *fakeMesh {
	m := newFakeMesh()
	for i := 0; i <= 5; i++ {
		m.node(nav.NodeRef(i), float64(i)*3, false)
		if i > 0 {
			m.connect(nav.NodeRef(i-1), nav.NodeRef(i))
		}
	}
	m.node(10, 6.5, true)
	m.node(11, 7, false)
	m.connect(2, 10)
	m.connect(10, 11)
	return m
}

func TestShaperPenalizesWithinRadius(t *testing.T) {
	m := lineMesh()
	s := NewShaper(testCost())

	pass, ran := s.Apply(m, 0)
	if !ran {
		t.Fatalf("first pass must run")
	}
	if pass.Penalized != 3 {
		t.Fatalf("expected nodes 0..2 penalized, got %d", pass.Penalized)
	}

	wantAtOrigin := 2 + 10/0.5
	if got := m.penalties[0]; math.Abs(got-wantAtOrigin) > 1e-9 {
		t.Fatalf("origin penalty %.2f, want %.2f", got, wantAtOrigin)
	}
	if got := m.penalties[1]; math.Abs(got-(2+10.0/3)) > 1e-9 {
		t.Fatalf("node 1 penalty %.2f, want %.2f", got, 2+10.0/3)
	}
	if got := m.penalties[2]; math.Abs(got-(2+10.0/6)) > 1e-9 {
		t.Fatalf("node 2 penalty %.2f, want %.2f", got, 2+10.0/6)
	}
	if got := m.penalties[3]; got != 0 {
		t.Fatalf("node 3 is outside the radius, penalty %.2f", got)
	}
	if m.penalties[1] <= m.penalties[2] {
		t.Fatalf("closer nodes must cost more: %.2f vs %.2f", m.penalties[1], m.penalties[2])
	}
}

func TestShaperSkipsLinkConnectors(t *testing.T) {
	m := lineMesh()
	s := NewShaper(testCost())

	s.Apply(m, 0)
	if got := m.penalties[10]; got != 0 {
		t.Fatalf("link node must not be penalized, got %.2f", got)
	}
	if got := m.penalties[11]; got != 0 {
		t.Fatalf("island behind the link must not be reached, got %.2f", got)
	}
}

func TestShaperClearsPreviousPassOnMove(t *testing.T) {
	m := lineMesh()
	s := NewShaper(testCost())
	s.Apply(m, 0)

	pass, ran := s.Apply(m, 4)
	if !ran {
		t.Fatalf("moving the threat must run a pass")
	}
	// From node 4 (x=12) the radius covers nodes 2..5; the island stays
	// unreachable behind its link.
	if m.penalties[0] != 0 || m.penalties[1] != 0 {
		t.Fatalf("stale penalties must be cleared: node0=%.2f node1=%.2f",
			m.penalties[0], m.penalties[1])
	}
	if pass.Cleared != 2 {
		t.Fatalf("expected 2 cleared nodes, got %d", pass.Cleared)
	}
	if m.penalties[4] == 0 || m.penalties[5] == 0 {
		t.Fatalf("new field must be applied around node 4")
	}
	if m.penalties[2] == 0 {
		t.Fatalf("node 2 is in both passes and must stay penalized")
	}
}

func TestShaperNoOpWhenNodeUnchanged(t *testing.T) {
	m := lineMesh()
	s := NewShaper(testCost())
	s.Apply(m, 0)
	before := m.mutations

	if _, ran := s.Apply(m, 0); ran {
		t.Fatalf("same node must not rerun the pass")
	}
	if m.mutations != before {
		t.Fatalf("no-op pass must not touch the graph")
	}
}

func TestShaperSinglePassIsOneMutation(t *testing.T) {
	m := lineMesh()
	s := NewShaper(testCost())

	s.Apply(m, 0)
	if m.mutations != 1 {
		t.Fatalf("apply must batch into one graph mutation, got %d", m.mutations)
	}
	s.Apply(m, 4)
	if m.mutations != 2 {
		t.Fatalf("each pass is one mutation, got %d", m.mutations)
	}
}

func TestShaperClear(t *testing.T) {
	m := lineMesh()
	s := NewShaper(testCost())
	s.Apply(m, 0)

	pass, ran := s.Clear(m)
	if !ran {
		t.Fatalf("clear after a pass must run")
	}
	if pass.Penalized != 0 || pass.Cleared != 3 {
		t.Fatalf("clear pass: penalized=%d cleared=%d", pass.Penalized, pass.Cleared)
	}
	for ref, p := range m.penalties {
		if p != 0 {
			t.Fatalf("node %d still penalized after clear: %.2f", ref, p)
		}
	}

	if _, ran := s.Clear(m); ran {
		t.Fatalf("second clear is a no-op")
	}
}
