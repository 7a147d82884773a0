package bt

// OnSuccess runs fn after the wrapped node succeeds, passing the child
// status through untouched. The side effect never fires on Running, Failure,
// or error.
func OnSuccess(node Node, fn func()) Node {
	return New(func(children []Node) (Status, error) {
		status, err := children[0].Tick()
		if err == nil && status == Success && fn != nil {
			fn()
		}
		return status, err
	}, node)
}
