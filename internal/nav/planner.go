package nav

import (
	"sync"
	"sync/atomic"

	"hide-and-hunt/server/internal/world"
)

const (
	defaultPlannerWorkers = 2
	defaultPlannerBacklog = 64
)

// Planner executes path computations off the simulation goroutine. Requests
// are fire-and-forget: the deliver callback runs on a worker goroutine when
// the mesh finishes, and whoever receives the Result decides whether it still
// matches their commitment. Superseded results are discarded on arrival, not
// cancelled in flight.
type Planner struct {
	mesh     Mesh
	requests chan plannerRequest
	stop     chan struct{}
	wg       sync.WaitGroup
	closed   atomic.Bool

	completedTotal atomic.Uint64
	droppedTotal   atomic.Uint64
}

type plannerRequest struct {
	goal        Goal
	start       world.Vec3
	goals       []world.Vec3
	multiTarget bool
	deliver     func(*Result)
}

// PlannerStats counts completed and dropped requests since construction.
type PlannerStats struct {
	CompletedTotal uint64
	DroppedTotal   uint64
}

// NewPlanner starts the worker pool. Non-positive workers or backlog fall
// back to defaults.
func NewPlanner(mesh Mesh, workers, backlog int) *Planner {
	if workers <= 0 {
		workers = defaultPlannerWorkers
	}
	if backlog <= 0 {
		backlog = defaultPlannerBacklog
	}
	p := &Planner{
		mesh:     mesh,
		requests: make(chan plannerRequest, backlog),
		stop:     make(chan struct{}),
	}
	for i := 0; i < workers; i++ {
		p.wg.Add(1)
		go p.worker()
	}
	return p
}

// Request stages a path computation toward goal.Target, plus any extra goal
// positions when multiTarget is set. It reports false when the backlog is
// full or the planner is closed; the caller simply re-requests on a later
// frame.
func (p *Planner) Request(goal Goal, start world.Vec3, extraGoals []world.Vec3, multiTarget bool, deliver func(*Result)) bool {
	if p == nil || deliver == nil || p.closed.Load() {
		return false
	}
	goals := make([]world.Vec3, 0, 1+len(extraGoals))
	goals = append(goals, goal.Target)
	if multiTarget {
		goals = append(goals, extraGoals...)
	}
	req := plannerRequest{
		goal:        goal,
		start:       start,
		goals:       goals,
		multiTarget: multiTarget,
		deliver:     deliver,
	}
	select {
	case p.requests <- req:
		return true
	default:
		p.droppedTotal.Add(1)
		return false
	}
}

// Close stops the workers. Requests still in the backlog are abandoned.
func (p *Planner) Close() {
	if p == nil || !p.closed.CompareAndSwap(false, true) {
		return
	}
	close(p.stop)
	p.wg.Wait()
}

// Stats reports planner throughput counters.
func (p *Planner) Stats() PlannerStats {
	if p == nil {
		return PlannerStats{}
	}
	return PlannerStats{
		CompletedTotal: p.completedTotal.Load(),
		DroppedTotal:   p.droppedTotal.Load(),
	}
}

func (p *Planner) worker() {
	defer p.wg.Done()
	for {
		select {
		case <-p.stop:
			return
		case req := <-p.requests:
			path, err := p.mesh.FindPath(req.start, req.goals, req.multiTarget)
			p.completedTotal.Add(1)
			req.deliver(&Result{Goal: req.goal, Path: path, Err: err})
		}
	}
}
