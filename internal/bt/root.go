package bt

// Root anchors a tree. It guards against ticking an empty tree and records
// the last result so the orchestrator can report branch changes.
type Root struct {
	node       Node
	lastStatus Status
	lastErr    error
}

func NewRoot(node Node) *Root {
	return &Root{node: node}
}

// Tick evaluates the tree once. Errors indicate defects, not expected
// absence, and leave the agent on its fallback behavior.
func (r *Root) Tick() (Status, error) {
	if r == nil || r.node == nil {
		return Failure, nil
	}
	status, err := r.node.Tick()
	r.lastStatus = status
	r.lastErr = err
	return status, err
}

// Last reports the most recent tick result.
func (r *Root) Last() (Status, error) {
	if r == nil {
		return Failure, nil
	}
	return r.lastStatus, r.lastErr
}
