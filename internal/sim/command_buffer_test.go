package sim

import (
	"testing"

	"hide-and-hunt/server/internal/telemetry"
)

func TestCommandBufferWraparound(t *testing.T) {
	buffer := NewCommandBuffer(3, nil)
	cmds := []Command{
		{ActorID: "hunter", Type: CommandHunterMove},
		{ActorID: "warden", Type: CommandJail},
		{ActorID: "script", Type: CommandRecolorConsole},
	}
	for _, cmd := range cmds {
		if !buffer.Push(cmd) {
			t.Fatalf("expected push to succeed for %+v", cmd)
		}
	}
	if buffer.Push(Command{ActorID: "overflow"}) {
		t.Fatalf("expected push to fail when buffer full")
	}
	drained := buffer.Drain()
	if len(drained) != len(cmds) {
		t.Fatalf("expected %d commands, got %d", len(cmds), len(drained))
	}
	for i, cmd := range drained {
		if cmd.ActorID != cmds[i].ActorID {
			t.Fatalf("expected drain order %v, got %v", cmds[i].ActorID, cmd.ActorID)
		}
	}
	// Push again to ensure the indices wrap correctly.
	for _, cmd := range []Command{{ActorID: "hunter"}, {ActorID: "warden"}} {
		if !buffer.Push(cmd) {
			t.Fatalf("expected push to succeed after drain for %+v", cmd)
		}
	}
	wrapped := buffer.Drain()
	if len(wrapped) != 2 {
		t.Fatalf("expected 2 commands after wraparound, got %d", len(wrapped))
	}
	if wrapped[0].ActorID != "hunter" || wrapped[1].ActorID != "warden" {
		t.Fatalf("unexpected order after wraparound: %+v", wrapped)
	}
}

func TestCommandBufferOverflow(t *testing.T) {
	buffer := NewCommandBuffer(1, nil)
	if !buffer.Push(Command{ActorID: "one"}) {
		t.Fatalf("expected initial push to succeed")
	}
	if buffer.Push(Command{ActorID: "two"}) {
		t.Fatalf("expected push to fail when capacity exceeded")
	}
	drained := buffer.Drain()
	if len(drained) != 1 || drained[0].ActorID != "one" {
		t.Fatalf("unexpected drained commands: %+v", drained)
	}
}

func TestCommandBufferReportsMetrics(t *testing.T) {
	counters := telemetry.NewCounters()
	buffer := NewCommandBuffer(2, counters)
	buffer.Push(Command{ActorID: "hunter"})
	buffer.Push(Command{ActorID: "warden"})
	if got := counters.Snapshot()["sim.command_queue"]; got != 2 {
		t.Fatalf("expected occupancy gauge 2, got %d", got)
	}
	buffer.Push(Command{ActorID: "overflow"})
	if got := counters.Snapshot()["sim.command_overflows"]; got != 1 {
		t.Fatalf("expected 1 overflow, got %d", got)
	}
	buffer.Drain()
	if got := counters.Snapshot()["sim.command_queue"]; got != 0 {
		t.Fatalf("expected occupancy gauge reset, got %d", got)
	}
}
