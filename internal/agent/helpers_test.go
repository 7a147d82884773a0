package agent

import (
	"context"
	"sync"
	"testing"
	"time"

	"hide-and-hunt/server/internal/nav"
	"hide-and-hunt/server/internal/target"
	"hide-and-hunt/server/internal/world"
	"hide-and-hunt/server/logging"
	"hide-and-hunt/server/tuning"
)

// fakeMesh serves straight-line paths unless a script overrides pathFn. The
// planner workers call FindPath concurrently, so everything sits behind mu.
type fakeMesh struct {
	mu      sync.Mutex
	nearest nav.NodeRef
	pathFn  func(start world.Vec3, goals []world.Vec3) (nav.Path, error)
	losHit  bool
	losDist float64
}

func newFakeMesh() *fakeMesh {
	return &fakeMesh{}
}

func (f *fakeMesh) NearestNode(world.Vec3, nav.Filter) (nav.NodeRef, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.nearest, true
}

func (f *fakeMesh) FindPath(start world.Vec3, goals []world.Vec3, _ bool) (nav.Path, error) {
	f.mu.Lock()
	fn := f.pathFn
	nearest := f.nearest
	f.mu.Unlock()
	if fn != nil {
		return fn(start, goals)
	}
	return nav.Path{
		Waypoints: []world.Vec3{goals[0]},
		Nodes:     []nav.NodeRef{nearest},
		Links:     []bool{false},
	}, nil
}

func (f *fakeMesh) LineOfSight(world.Vec3, world.Vec3, nav.NodeRef) (bool, float64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.losHit, f.losDist
}

func (f *fakeMesh) ClosestPoint(_ nav.NodeRef, p world.Vec3) world.Vec3 { return p }
func (f *fakeMesh) Contains(nav.NodeRef, world.Vec3) bool               { return true }
func (f *fakeMesh) IsLink(nav.NodeRef) bool                             { return false }
func (f *fakeMesh) MutateGraph(fn func(nav.GraphTx))                    {}

func (f *fakeMesh) setPathFn(fn func(start world.Vec3, goals []world.Vec3) (nav.Path, error)) {
	f.mu.Lock()
	f.pathFn = fn
	f.mu.Unlock()
}

// capturePublisher records every published event for assertions.
type capturePublisher struct {
	mu     sync.Mutex
	events []logging.Event
}

func (c *capturePublisher) Publish(_ context.Context, event logging.Event) {
	c.mu.Lock()
	c.events = append(c.events, event)
	c.mu.Unlock()
}

func (c *capturePublisher) byType(t logging.EventType) []logging.Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []logging.Event
	for _, e := range c.events {
		if e.Type == t {
			out = append(out, e)
		}
	}
	return out
}

// scenario bundles the shared fixtures one decision-stack test needs.
type scenario struct {
	mesh    *fakeMesh
	planner *nav.Planner
	reg     *target.Registry
	ctx     *world.Context
	cfg     tuning.Config
	pub     *capturePublisher
}

func newScenario(t *testing.T, kind world.ArenaKind) *scenario {
	t.Helper()
	mesh := newFakeMesh()
	planner := nav.NewPlanner(mesh, 1, 16)
	t.Cleanup(planner.Close)
	ctx := world.NewContext(kind, 1)
	ctx.SetBounds(40, 40)
	ctx.BeginFrame(1.0 / 15)
	cfg := tuning.Default()
	return &scenario{
		mesh:    mesh,
		planner: planner,
		reg:     target.NewRegistry(),
		ctx:     ctx,
		cfg:     cfg,
		pub:     &capturePublisher{},
	}
}

func (s *scenario) agent(id string, slot int, color world.ConsoleColor) *Agent {
	return NewAgent(Config{
		ID:       id,
		Slot:     slot,
		Color:    color,
		Mesh:     s.mesh,
		Planner:  s.planner,
		Registry: s.reg,
		Ctx:      s.ctx,
		Tuning:   &s.cfg,
	})
}

// stepUntil retries step with a small pause until it reports done, failing
// the test after the frame budget. The pause gives planner workers time to
// deliver.
func stepUntil(t *testing.T, frames int, step func() bool) {
	t.Helper()
	for i := 0; i < frames; i++ {
		if step() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("condition not reached within %d frames", frames)
}
