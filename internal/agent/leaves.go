package agent

import (
	"hide-and-hunt/server/internal/bt"
)

// NewFaceTravelLeaf returns the post-pass that points the agent along its
// travel direction. Leaves that already chose a facing win; otherwise a
// nonzero move vector becomes the yaw. Always succeeds.
func NewFaceTravelLeaf(bb *Blackboard) bt.Node {
	return bt.Action(func() (bt.Status, error) {
		in := bb.Intent()
		if in.HasYaw {
			return bt.Success, nil
		}
		if in.Move.LengthSq() > 1e-12 {
			bb.MergeYaw(in.Move.Angle())
		}
		return bt.Success, nil
	})
}

// NewIdleLeaf returns the terminal fallback: stand still and succeed, so the
// selector never sticks to the idle branch across frames.
func NewIdleLeaf() bt.Node {
	return bt.Action(func() (bt.Status, error) {
		return bt.Success, nil
	})
}
