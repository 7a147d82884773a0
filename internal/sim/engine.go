package sim

// Engine defines the minimal loop surface exposed to non-simulation callers.
type Engine interface {
	Enqueue(Command) (bool, string)
	Advance(TickContext) StepResult
	Run(stop <-chan struct{})
	Snapshot() Snapshot
	Pending() int
}
