// Package intake stages watcher commands: it maps wire envelopes onto
// simulation commands, stamps origin metadata, and hands them to the
// engine queue.
package intake

import (
	"time"

	"hide-and-hunt/server"
	"hide-and-hunt/server/internal/net/proto"
	"hide-and-hunt/server/internal/sim"
)

// Enqueuer is the slice of the engine surface intake needs.
type Enqueuer interface {
	Enqueue(sim.Command) (bool, string)
}

// CommandContext carries the staging dependencies for one connection.
type CommandContext struct {
	Engine Enqueuer
	Tick   func() uint64
	Now    func() time.Time
}

// StageClientCommand validates an inbound envelope, stamps actor and origin
// metadata, and stages the command. The returned reason is empty on
// success.
func StageClientCommand(ctx CommandContext, actorID string, msg proto.ClientMessage) (sim.Command, bool, string) {
	var zero sim.Command

	command, ok := proto.ClientCommand(msg)
	if !ok {
		return zero, false, server.CommandRejectInvalidAction
	}

	command.ActorID = actorID
	if ctx.Tick != nil {
		command.OriginTick = ctx.Tick()
	}
	if ctx.Now != nil {
		command.IssuedAt = ctx.Now()
	} else {
		command.IssuedAt = time.Now()
	}

	if ctx.Engine == nil {
		return zero, false, sim.CommandRejectQueueFull
	}
	if ok, reason := ctx.Engine.Enqueue(command); !ok {
		return zero, false, reason
	}

	return command, true, ""
}
