package bt

// Recurring is a selector that remembers which child reported Running and
// re-ticks only that child first on the next frame, so an in-progress action
// is not preempted by a higher-priority sibling merely evaluating. The moment
// the remembered child stops running the full priority scan resumes within
// the same tick, which may tick that child a second time that frame.
//
// The tree is ticked from a single goroutine; Recurring carries no locking.
type Recurring struct {
	children []Node
	running  int
	chosen   int
}

// NewRecurring builds the stateful selector over the given children.
func NewRecurring(children ...Node) *Recurring {
	return &Recurring{children: children, running: -1, chosen: -1}
}

// Node exposes the selector for composition.
func (r *Recurring) Node() Node {
	return New(r.tick, r.children...)
}

func (r *Recurring) tick(children []Node) (Status, error) {
	if r.running >= 0 && r.running < len(children) {
		status, err := children[r.running].Tick()
		if err != nil {
			r.running = -1
			r.chosen = -1
			return Failure, err
		}
		if status == Running {
			r.chosen = r.running
			return Running, nil
		}
		r.running = -1
	}

	for i, child := range children {
		status, err := child.Tick()
		if err != nil {
			r.chosen = -1
			return Failure, err
		}
		switch status {
		case Running:
			r.running = i
			r.chosen = i
			return Running, nil
		case Success:
			r.chosen = i
			return Success, nil
		}
	}
	r.chosen = -1
	return Failure, nil
}

// RunningChild reports the remembered child index, or -1 when none is held.
func (r *Recurring) RunningChild() int {
	if r == nil {
		return -1
	}
	return r.running
}

// Chosen reports which child produced the last non-failure result, or -1.
func (r *Recurring) Chosen() int {
	if r == nil {
		return -1
	}
	return r.chosen
}

// Reset forgets any remembered child, for arena resets.
func (r *Recurring) Reset() {
	if r == nil {
		return
	}
	r.running = -1
	r.chosen = -1
}
