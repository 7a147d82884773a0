package agent

import (
	"math"

	"hide-and-hunt/server/internal/bt"
	"hide-and-hunt/server/internal/nav"
	"hide-and-hunt/server/internal/world"
	"hide-and-hunt/server/tuning"
)

const (
	// recalcDistance is how far a destination may drift from the position a
	// path was requested for before the leaf mints a fresh request.
	recalcDistance = 4.0

	// reachedResetScale re-arms the arrival latch once the destination sits
	// outside stoppingDistance times this factor.
	reachedResetScale = 1.5

	// stallEpsilon is the minimum per-frame progress toward the current
	// waypoint that counts as movement.
	stallEpsilon = 1e-3
)

// MoveConfig wires a movement leaf to its destination and observers. Only
// Mesh, Planner and Dest are required.
type MoveConfig struct {
	Mesh    nav.Mesh
	Planner *nav.Planner
	Tuning  tuning.MovementConfig

	// Dest yields the current destination each tick; ok=false fails the
	// leaf so the selector falls through.
	Dest func() (pos world.Vec3, id string, ok bool)

	// Yield, when set and returning true, fails the leaf before any work so
	// a higher-priority branch can take over on the same tick.
	Yield func() bool

	// Reached fires once per arrival, re-armed by the hysteresis latch.
	Reached func(id string)

	// Unreachable fires once per goal when the mesh cannot serve it.
	Unreachable func(id string)

	// PathReady and PathFailed observe result arrival on the tick goroutine.
	PathReady  func(goal nav.Goal, path nav.Path)
	PathFailed func(goal nav.Goal, err error)
}

// MoveLeaf walks the blackboard's agent toward a destination: it keeps one
// outstanding path request against the planner, follows the delivered
// waypoints, launches across jump links, and reports Running until the
// destination sits inside stopping distance.
type MoveLeaf struct {
	bb  *Blackboard
	cfg MoveConfig

	goal    nav.Goal
	hasGoal bool
	pending bool

	last  *nav.Result
	index int

	reached   bool
	relax     float64
	stall     int
	lastDist  float64
	failedGen uint64
}

// NewMoveLeaf builds a movement leaf over the shared blackboard.
func NewMoveLeaf(bb *Blackboard, cfg MoveConfig) *MoveLeaf {
	return &MoveLeaf{bb: bb, cfg: cfg, lastDist: math.MaxFloat64}
}

// Node wraps the leaf for tree composition.
func (l *MoveLeaf) Node() bt.Node { return bt.Action(l.tick) }

// Reset drops all per-goal state, for episode resets.
func (l *MoveLeaf) Reset() {
	l.hasGoal = false
	l.pending = false
	l.last = nil
	l.index = 0
	l.reached = false
	l.relax = 0
	l.stall = 0
	l.lastDist = math.MaxFloat64
}

func (l *MoveLeaf) tick() (bt.Status, error) {
	if l.cfg.Yield != nil && l.cfg.Yield() {
		return bt.Failure, nil
	}
	dest, id, ok := l.cfg.Dest()
	if !ok {
		l.Reset()
		return bt.Failure, nil
	}

	// Arrival with hysteresis: the latch holds Success near the destination
	// and fires Reached exactly once, re-arming only after the destination
	// moves clearly out of the halt radius again.
	dist := l.bb.Pos.HorizontalDistance(dest)
	if l.reached {
		if dist > l.cfg.Tuning.StoppingDistance*reachedResetScale {
			l.reached = false
		} else {
			l.halt(dest)
			return bt.Success, nil
		}
	}
	if dist <= l.cfg.Tuning.StoppingDistance {
		l.reached = true
		l.relax = 0
		l.stall = 0
		l.halt(dest)
		if l.cfg.Reached != nil {
			l.cfg.Reached(id)
		}
		return bt.Success, nil
	}

	// Goal bookkeeping: a new destination or a large drift mints a fresh
	// generation so superseded results get discarded on arrival.
	if !l.hasGoal || l.goal.ObjectiveID != id {
		l.setGoal(dest, id)
		l.relax = 0
	} else if l.goal.Target.HorizontalDistance(dest) > recalcDistance {
		l.setGoal(dest, id)
	}

	res := l.bb.Path()
	if res != nil && !res.Matches(l.goal) {
		if res.Goal.Generation > l.goal.Generation {
			// Another leaf superseded us while we were parked. Mint above
			// its generation so our next result can land in the slot.
			l.setGoal(dest, id)
		}
		res = nil
	}
	if res == nil {
		l.requestPath(dest)
		return bt.Running, nil
	}

	l.pending = false
	if res.Err != nil {
		if l.failedGen != l.goal.Generation {
			l.failedGen = l.goal.Generation
			if l.cfg.PathFailed != nil {
				l.cfg.PathFailed(l.goal, res.Err)
			}
			if l.cfg.Unreachable != nil {
				l.cfg.Unreachable(id)
			}
		}
		return bt.Failure, nil
	}
	if res != l.last {
		l.last = res
		l.index = 0
		l.stall = 0
		l.lastDist = math.MaxFloat64
		if l.cfg.PathReady != nil {
			l.cfg.PathReady(l.goal, res.Path)
		}
	}

	// The path must still end on the destination's node; a mesh edit or a
	// drifted destination invalidates it.
	if end, found := l.cfg.Mesh.NearestNode(dest, nav.Filter{SkipLinks: true}); found && res.Path.EndNode() != end {
		l.bb.ClearPath()
		l.last = nil
		l.requestPath(dest)
		return bt.Running, nil
	}

	return l.follow(res.Path, dest), nil
}

// follow consumes waypoints and emits the steering intent for this frame.
func (l *MoveLeaf) follow(path nav.Path, dest world.Vec3) bt.Status {
	eps := l.cfg.Tuning.WaypointEpsilon + l.relax
	for l.index < len(path.Waypoints) {
		wp := path.Waypoints[l.index]
		if l.bb.Pos.HorizontalDistance(wp) > eps {
			break
		}
		if path.LinkAt(l.index) && l.bb.Grounded {
			land := dest
			if l.index+1 < len(path.Waypoints) {
				land = path.Waypoints[l.index+1]
			}
			if vel, ok := solveJump(l.bb.Pos, land, l.cfg.Tuning.JumpLaunchSpeed, l.cfg.Tuning.Gravity); ok {
				l.index++
				l.stall = 0
				l.lastDist = math.MaxFloat64
				l.bb.SetIntent(Intent{
					Move:         world.Vec2{X: vel.X, Y: vel.Z}.Normalize(),
					Jump:         true,
					JumpVelocity: vel,
				})
				return bt.Running
			}
			// Flat crossing: the arc cannot reach, walk it instead.
		}
		l.index++
		l.lastDist = math.MaxFloat64
	}

	target := dest
	if l.index < len(path.Waypoints) {
		target = path.Waypoints[l.index]
	}
	l.trackStall(target)
	l.steer(target)
	return bt.Running
}

// steer emits a unit move direction toward the target for this frame.
func (l *MoveLeaf) steer(to world.Vec3) {
	dir := to.Flat().Sub(l.bb.Pos.Flat())
	if dir.LengthSq() < 1e-12 {
		return
	}
	l.bb.SetIntent(Intent{Move: dir.Normalize()})
}

// halt zeroes motion and faces the destination.
func (l *MoveLeaf) halt(dest world.Vec3) {
	l.bb.SetIntent(Intent{Yaw: world.YawTo(l.bb.Pos, dest), HasYaw: true})
}

// trackStall widens the waypoint radius and forces a fresh path when the
// agent stops making progress, so a clipped waypoint cannot pin it forever.
func (l *MoveLeaf) trackStall(wp world.Vec3) {
	dist := l.bb.Pos.HorizontalDistance(wp)
	if dist < l.lastDist-stallEpsilon {
		l.lastDist = dist
		l.stall = 0
		return
	}
	l.stall++
	if l.cfg.Tuning.StallTicks > 0 && l.stall >= l.cfg.Tuning.StallTicks {
		l.relax += l.cfg.Tuning.StallRelax
		l.stall = 0
		l.lastDist = math.MaxFloat64
		l.bb.ClearPath()
		l.last = nil
	}
}

// setGoal mints a new generation for the destination and clears stale state.
func (l *MoveLeaf) setGoal(dest world.Vec3, id string) {
	l.goal = nav.Goal{ObjectiveID: id, Generation: l.bb.NextGeneration(), Target: dest}
	l.hasGoal = true
	l.pending = false
	l.last = nil
	l.index = 0
	l.stall = 0
	l.lastDist = math.MaxFloat64
	l.bb.ClearPath()
}

// requestPath stages one planner request for the current goal. A full
// backlog just means a retry next frame.
func (l *MoveLeaf) requestPath(dest world.Vec3) {
	if l.pending || l.cfg.Planner == nil {
		return
	}
	bb := l.bb
	if l.cfg.Planner.Request(l.goal, l.bb.Pos, nil, false, func(res *nav.Result) {
		bb.StorePath(res)
	}) {
		l.pending = true
	}
}

// solveJump computes a launch velocity from pos to land with fixed vertical
// speed v0 under gravity g. The larger root of the height crossing is used
// so the landing happens on the falling side of the arc; a crossing the arc
// cannot reach reports false.
func solveJump(pos, land world.Vec3, v0, g float64) (world.Vec3, bool) {
	if g <= 0 {
		return world.Vec3{}, false
	}
	disc := v0*v0 - 2*g*(land.Y-pos.Y)
	if disc < 0 {
		return world.Vec3{}, false
	}
	t := (v0 + math.Sqrt(disc)) / g
	if t <= 0 {
		return world.Vec3{}, false
	}
	flat := land.Flat().Sub(pos.Flat())
	dist := flat.Length()
	if dist < 1e-9 {
		return world.Vec3{Y: v0}, true
	}
	dir := flat.Scale(1 / dist)
	speed := dist / t
	return world.Vec3{X: dir.X * speed, Y: v0, Z: dir.Y * speed}, true
}
