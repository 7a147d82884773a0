package intake

import (
	"testing"
	"time"

	"hide-and-hunt/server"
	"hide-and-hunt/server/internal/net/proto"
	"hide-and-hunt/server/internal/sim"
)

type fakeEngine struct {
	enqueueOK     bool
	enqueueReason string
	commands      []sim.Command
}

func (f *fakeEngine) Enqueue(cmd sim.Command) (bool, string) {
	f.commands = append(f.commands, cmd)
	if f.enqueueOK {
		return true, ""
	}
	if f.enqueueReason == "" {
		f.enqueueReason = sim.CommandRejectQueueLimit
	}
	return false, f.enqueueReason
}

func TestStageClientCommandAcceptsHunterMove(t *testing.T) {
	engine := &fakeEngine{enqueueOK: true}
	issuedAt := time.Unix(100, 0)
	ctx := CommandContext{
		Engine: engine,
		Tick:   func() uint64 { return 42 },
		Now:    func() time.Time { return issuedAt },
	}

	msg := proto.ClientMessage{Type: proto.TypeHunterMove, DX: 1, DZ: 0}
	cmd, ok, reason := StageClientCommand(ctx, "watcher-1", msg)
	if !ok {
		t.Fatalf("expected command to be accepted, got reason %q", reason)
	}
	if cmd.ActorID != "watcher-1" {
		t.Fatalf("expected ActorID to be set, got %q", cmd.ActorID)
	}
	if cmd.OriginTick != 42 {
		t.Fatalf("expected OriginTick 42, got %d", cmd.OriginTick)
	}
	if !cmd.IssuedAt.Equal(issuedAt) {
		t.Fatalf("expected IssuedAt %v, got %v", issuedAt, cmd.IssuedAt)
	}
	if len(engine.commands) != 1 {
		t.Fatalf("expected engine to record command, got %d", len(engine.commands))
	}
}

func TestStageClientCommandRejectsIncompleteVariant(t *testing.T) {
	engine := &fakeEngine{enqueueOK: true}
	ctx := CommandContext{
		Engine: engine,
		Tick:   func() uint64 { return 1 },
		Now:    func() time.Time { return time.Unix(0, 0) },
	}

	msg := proto.ClientMessage{Type: proto.TypeRecolor, ConsoleID: "console-red"}
	_, ok, reason := StageClientCommand(ctx, "watcher-1", msg)
	if ok {
		t.Fatalf("expected rejection for recolor without color")
	}
	if reason != server.CommandRejectInvalidAction {
		t.Fatalf("expected reason %q, got %q", server.CommandRejectInvalidAction, reason)
	}
	if len(engine.commands) != 0 {
		t.Fatalf("expected nothing staged, got %d commands", len(engine.commands))
	}
}

func TestStageClientCommandPropagatesEngineReason(t *testing.T) {
	engine := &fakeEngine{enqueueOK: false, enqueueReason: sim.CommandRejectQueueLimit}
	ctx := CommandContext{
		Engine: engine,
		Tick:   func() uint64 { return 1 },
		Now:    func() time.Time { return time.Unix(0, 0) },
	}

	msg := proto.ClientMessage{Type: proto.TypeHunterMove, DX: 1}
	_, ok, reason := StageClientCommand(ctx, "watcher-1", msg)
	if ok {
		t.Fatalf("expected rejection from engine")
	}
	if reason != sim.CommandRejectQueueLimit {
		t.Fatalf("expected engine reason %q, got %q", sim.CommandRejectQueueLimit, reason)
	}
}

func TestStageClientCommandHandlesNilEngine(t *testing.T) {
	ctx := CommandContext{
		Tick: func() uint64 { return 1 },
		Now:  func() time.Time { return time.Unix(0, 0) },
	}

	msg := proto.ClientMessage{Type: proto.TypeHunterMove, DX: 1}
	_, ok, reason := StageClientCommand(ctx, "watcher-1", msg)
	if ok {
		t.Fatalf("expected rejection when engine is nil")
	}
	if reason != sim.CommandRejectQueueFull {
		t.Fatalf("expected reason %q, got %q", sim.CommandRejectQueueFull, reason)
	}
}

func TestStageClientCommandDefaultsIssuedAt(t *testing.T) {
	engine := &fakeEngine{enqueueOK: true}
	ctx := CommandContext{Engine: engine}

	before := time.Now()
	cmd, ok, reason := StageClientCommand(ctx, "watcher-1", proto.ClientMessage{Type: proto.TypeEndArena})
	if !ok {
		t.Fatalf("expected command to be accepted, got reason %q", reason)
	}
	if cmd.IssuedAt.Before(before) {
		t.Fatalf("expected IssuedAt to default to the staging time")
	}
	if cmd.OriginTick != 0 {
		t.Fatalf("expected OriginTick to stay zero without a tick source, got %d", cmd.OriginTick)
	}
}
