package sim

import (
	"math/rand"

	"hide-and-hunt/server/internal/telemetry"
	"hide-and-hunt/server/logging"
)

// Deps carries the shared infrastructure dependencies required by an arena
// core and the loop that drives it.
type Deps struct {
	Logger  telemetry.Logger
	Metrics telemetry.Metrics
	Clock   logging.Clock
	RNG     *rand.Rand
}
