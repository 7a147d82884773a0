package nav

import "errors"

// Sentinel errors mesh implementations wrap. Consumers treat both as "no
// path this frame" and keep their current commitment.
var (
	// ErrOffMesh means the start or every goal lies outside the mesh.
	ErrOffMesh = errors.New("position off mesh")
	// ErrNoPath means the graph connects no goal to the start.
	ErrNoPath = errors.New("no path to goal")
)
