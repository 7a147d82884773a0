package agent

import (
	"math"
	"testing"

	"hide-and-hunt/server/internal/bt"
	"hide-and-hunt/server/internal/nav"
	"hide-and-hunt/server/internal/world"
)

func TestSolveJumpFlatCrossing(t *testing.T) {
	pos := world.Vec3{}
	land := world.Vec3{X: 3}
	vel, ok := solveJump(pos, land, 7.5, 19.6)
	if !ok {
		t.Fatalf("flat jump reported unreachable")
	}
	if vel.Y != 7.5 {
		t.Fatalf("vertical speed = %v, want 7.5", vel.Y)
	}
	// Same height: airborne for the full arc, t = 2*v0/g.
	wantT := 2 * 7.5 / 19.6
	if got, want := vel.X, 3/wantT; math.Abs(got-want) > 1e-9 {
		t.Fatalf("horizontal speed = %v, want %v", got, want)
	}
	if vel.Z != 0 {
		t.Fatalf("lateral speed = %v, want 0", vel.Z)
	}
}

func TestSolveJumpLandsOnElevation(t *testing.T) {
	pos := world.Vec3{}
	land := world.Vec3{X: 2, Y: 1}
	vel, ok := solveJump(pos, land, 7.5, 19.6)
	if !ok {
		t.Fatalf("reachable ledge reported unreachable")
	}
	// The landing must happen exactly at the ledge height on the falling
	// side of the arc.
	disc := 7.5*7.5 - 2*19.6*1
	tFall := (7.5 + math.Sqrt(disc)) / 19.6
	height := 7.5*tFall - 0.5*19.6*tFall*tFall
	if math.Abs(height-1) > 1e-9 {
		t.Fatalf("arc height at landing = %v, want 1", height)
	}
	dist := tFall * math.Hypot(vel.X, vel.Z)
	if math.Abs(dist-2) > 1e-9 {
		t.Fatalf("arc covers %v, want 2", dist)
	}
}

func TestSolveJumpTooHigh(t *testing.T) {
	// Peak height is v0^2/(2g) ~ 1.43; a 2-unit ledge is out of reach.
	if _, ok := solveJump(world.Vec3{}, world.Vec3{X: 2, Y: 2}, 7.5, 19.6); ok {
		t.Fatalf("unreachable ledge reported reachable")
	}
}

func TestMoveLeafWalksAndArrives(t *testing.T) {
	s := newScenario(t, world.ArenaStandard)
	bb := NewBlackboard("bot-1", 0, world.ColorNone)
	dest := world.Vec3{X: 10}
	reachedCalls := 0
	leaf := NewMoveLeaf(bb, MoveConfig{
		Mesh:    s.mesh,
		Planner: s.planner,
		Tuning:  s.cfg.Movement,
		Dest:    func() (world.Vec3, string, bool) { return dest, "door-1", true },
		Reached: func(string) { reachedCalls++ },
	})
	node := leaf.Node()

	// A few frames in the path lands and the leaf steers east.
	stepUntil(t, 200, func() bool {
		if status := mustTick(t, node); status != bt.Running {
			t.Fatalf("status while walking = %v, want running", status)
		}
		return bb.Intent().Move.X > 0.9
	})

	// Inside stopping distance: halt, face the door, report once.
	bb.Pos = world.Vec3{X: 9.2}
	if status := mustTick(t, node); status != bt.Success {
		t.Fatalf("status at arrival = %v, want success", status)
	}
	if reachedCalls != 1 {
		t.Fatalf("reached fired %d times, want 1", reachedCalls)
	}
	in := bb.Intent()
	if !in.HasYaw || in.Move.Length() != 0 {
		t.Fatalf("halt intent = %+v, want facing with no motion", in)
	}
	if status := mustTick(t, node); status != bt.Success {
		t.Fatalf("latched status = %v, want success", status)
	}
	if reachedCalls != 1 {
		t.Fatalf("latched arrival re-fired, calls = %d", reachedCalls)
	}

	// Outside 1.5x stopping distance the latch re-arms.
	bb.Pos = world.Vec3{X: 7}
	stepUntil(t, 200, func() bool {
		status := mustTick(t, node)
		return status == bt.Running && bb.Intent().Move.X > 0.9
	})
	bb.Pos = world.Vec3{X: 9.5}
	if status := mustTick(t, node); status != bt.Success {
		t.Fatalf("second arrival status = %v, want success", status)
	}
	if reachedCalls != 2 {
		t.Fatalf("reached fired %d times after re-arm, want 2", reachedCalls)
	}
}

func TestMoveLeafYieldPreempts(t *testing.T) {
	s := newScenario(t, world.ArenaStandard)
	bb := NewBlackboard("bot-1", 0, world.ColorNone)
	yield := false
	leaf := NewMoveLeaf(bb, MoveConfig{
		Mesh:    s.mesh,
		Planner: s.planner,
		Tuning:  s.cfg.Movement,
		Dest:    func() (world.Vec3, string, bool) { return world.Vec3{X: 10}, "door-1", true },
		Yield:   func() bool { return yield },
	})
	node := leaf.Node()

	if status := mustTick(t, node); status != bt.Running {
		t.Fatalf("status = %v, want running", status)
	}
	yield = true
	if status := mustTick(t, node); status != bt.Failure {
		t.Fatalf("status under yield = %v, want failure", status)
	}
}

func TestMoveLeafFailsWithoutDestination(t *testing.T) {
	s := newScenario(t, world.ArenaStandard)
	bb := NewBlackboard("bot-1", 0, world.ColorNone)
	leaf := NewMoveLeaf(bb, MoveConfig{
		Mesh:    s.mesh,
		Planner: s.planner,
		Tuning:  s.cfg.Movement,
		Dest:    func() (world.Vec3, string, bool) { return world.Vec3{}, "", false },
	})
	if status := mustTick(t, leaf.Node()); status != bt.Failure {
		t.Fatalf("status = %v, want failure", status)
	}
}

func TestMoveLeafReportsUnreachableOnce(t *testing.T) {
	s := newScenario(t, world.ArenaStandard)
	s.mesh.setPathFn(func(world.Vec3, []world.Vec3) (nav.Path, error) {
		return nav.Path{}, nav.ErrNoPath
	})
	bb := NewBlackboard("bot-1", 0, world.ColorNone)
	unreachable := 0
	failures := 0
	leaf := NewMoveLeaf(bb, MoveConfig{
		Mesh:        s.mesh,
		Planner:     s.planner,
		Tuning:      s.cfg.Movement,
		Dest:        func() (world.Vec3, string, bool) { return world.Vec3{X: 10}, "door-1", true },
		Unreachable: func(string) { unreachable++ },
		PathFailed:  func(nav.Goal, error) { failures++ },
	})
	node := leaf.Node()

	stepUntil(t, 200, func() bool {
		return mustTick(t, node) == bt.Failure
	})
	if unreachable != 1 || failures != 1 {
		t.Fatalf("unreachable=%d failures=%d, want 1 and 1", unreachable, failures)
	}
	// Repeat ticks keep failing without re-reporting the same goal.
	for i := 0; i < 5; i++ {
		if status := mustTick(t, node); status != bt.Failure {
			t.Fatalf("status = %v, want failure", status)
		}
	}
	if unreachable != 1 || failures != 1 {
		t.Fatalf("repeat ticks re-reported: unreachable=%d failures=%d", unreachable, failures)
	}
}

func TestMoveLeafJumpsAcrossLink(t *testing.T) {
	s := newScenario(t, world.ArenaStandard)
	s.mesh.setPathFn(func(world.Vec3, []world.Vec3) (nav.Path, error) {
		return nav.Path{
			Waypoints: []world.Vec3{{X: 2}, {X: 5}},
			Nodes:     []nav.NodeRef{7, 0},
			Links:     []bool{true, false},
		}, nil
	})
	bb := NewBlackboard("bot-1", 0, world.ColorNone)
	bb.Pos = world.Vec3{X: 1.8}
	leaf := NewMoveLeaf(bb, MoveConfig{
		Mesh:    s.mesh,
		Planner: s.planner,
		Tuning:  s.cfg.Movement,
		Dest:    func() (world.Vec3, string, bool) { return world.Vec3{X: 10}, "door-1", true },
	})
	node := leaf.Node()

	// Standing on the link waypoint: the tick that consumes it must launch
	// toward the landing waypoint.
	stepUntil(t, 200, func() bool {
		if status := mustTick(t, node); status != bt.Running {
			t.Fatalf("status = %v, want running", status)
		}
		return bb.Intent().Jump
	})
	in := bb.Intent()
	if in.JumpVelocity.Y != s.cfg.Movement.JumpLaunchSpeed {
		t.Fatalf("launch vertical = %v, want %v", in.JumpVelocity.Y, s.cfg.Movement.JumpLaunchSpeed)
	}
	if in.JumpVelocity.X <= 0 || in.JumpVelocity.Z != 0 {
		t.Fatalf("launch velocity = %+v, want eastbound arc", in.JumpVelocity)
	}

	// Airborne frames steer toward the landing waypoint without re-jumping.
	bb.Grounded = false
	bb.Pos = world.Vec3{X: 3, Y: 0.8}
	if status := mustTick(t, node); status != bt.Running {
		t.Fatalf("airborne status = %v, want running", status)
	}
	if bb.Intent().Jump {
		t.Fatalf("re-jumped while airborne")
	}
}

func TestMoveLeafReplansOnDrift(t *testing.T) {
	s := newScenario(t, world.ArenaStandard)
	bb := NewBlackboard("bot-1", 0, world.ColorNone)
	dest := world.Vec3{X: 10}
	leaf := NewMoveLeaf(bb, MoveConfig{
		Mesh:    s.mesh,
		Planner: s.planner,
		Tuning:  s.cfg.Movement,
		Dest:    func() (world.Vec3, string, bool) { return dest, "hunter-prey", true },
	})
	node := leaf.Node()

	stepUntil(t, 200, func() bool {
		mustTick(t, node)
		return bb.Intent().Move.X > 0.9
	})
	gen := leaf.goal.Generation

	// Small drift keeps the goal; a drift past the threshold re-plans.
	dest = world.Vec3{X: 12}
	mustTick(t, node)
	if leaf.goal.Generation != gen {
		t.Fatalf("small drift minted generation %d", leaf.goal.Generation)
	}
	dest = world.Vec3{X: 10, Z: 9}
	mustTick(t, node)
	if leaf.goal.Generation <= gen {
		t.Fatalf("large drift kept generation %d", leaf.goal.Generation)
	}
	stepUntil(t, 200, func() bool {
		mustTick(t, node)
		return bb.Intent().Move.Y > 0.5
	})
}

func TestMoveLeafStallRelaxesWaypoint(t *testing.T) {
	s := newScenario(t, world.ArenaStandard)
	s.mesh.setPathFn(func(world.Vec3, []world.Vec3) (nav.Path, error) {
		return nav.Path{
			Waypoints: []world.Vec3{{X: 3}, {X: 10}},
			Nodes:     []nav.NodeRef{4, 0},
			Links:     []bool{false, false},
		}, nil
	})
	bb := NewBlackboard("bot-1", 0, world.ColorNone)
	bb.Pos = world.Vec3{X: 2.5}
	tun := s.cfg.Movement
	tun.StallTicks = 3
	tun.StallRelax = 0.5
	leaf := NewMoveLeaf(bb, MoveConfig{
		Mesh:    s.mesh,
		Planner: s.planner,
		Tuning:  tun,
		Dest:    func() (world.Vec3, string, bool) { return world.Vec3{X: 10}, "door-1", true },
	})
	node := leaf.Node()

	// The waypoint sits 0.5 away with a 0.35 radius and the agent never
	// moves; after the stall window the radius must widen.
	stepUntil(t, 300, func() bool {
		mustTick(t, node)
		return leaf.relax > 0
	})
	if leaf.relax != 0.5 {
		t.Fatalf("relax = %v, want 0.5", leaf.relax)
	}

	// With the widened radius the re-planned path's first waypoint is
	// consumed and the leaf steers for the second.
	stepUntil(t, 300, func() bool {
		mustTick(t, node)
		return leaf.index > 0 && bb.Intent().Move.X > 0.9
	})
}
