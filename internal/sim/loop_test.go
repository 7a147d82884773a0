package sim

import (
	"sync"
	"testing"
	"time"
)

type fakeCore struct {
	mu       sync.Mutex
	deps     Deps
	applied  [][]Command
	contexts []TickContext
	trace    []string
	snapshot Snapshot
}

func (c *fakeCore) Deps() Deps { return c.deps }

func (c *fakeCore) Apply(cmds []Command) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.applied = append(c.applied, cmds)
	c.trace = append(c.trace, "apply")
	return nil
}

func (c *fakeCore) Step(ctx TickContext) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.contexts = append(c.contexts, ctx)
	c.trace = append(c.trace, "step")
	c.snapshot.Tick = ctx.Tick
}

func (c *fakeCore) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshot
}

func (c *fakeCore) record(event string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.trace = append(c.trace, event)
}

func (c *fakeCore) lastContext() (TickContext, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.contexts) == 0 {
		return TickContext{}, false
	}
	return c.contexts[len(c.contexts)-1], true
}

// fakeClock advances a fixed step on every read so delta math is scripted.
type fakeClock struct {
	mu   sync.Mutex
	now  time.Time
	step time.Duration
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(c.step)
	return c.now
}

func TestLoopAdvanceAppliesStagedCommands(t *testing.T) {
	core := &fakeCore{}
	loop := NewLoop(core, Config{CommandCapacity: 8}, Hooks{
		Prepare: func(TickContext) { core.record("prepare") },
	})
	if ok, _ := loop.Enqueue(Command{ActorID: "hunter", Type: CommandHunterMove}); !ok {
		t.Fatalf("expected first enqueue to succeed")
	}
	if ok, _ := loop.Enqueue(Command{ActorID: "script", Type: CommandEndArena}); !ok {
		t.Fatalf("expected second enqueue to succeed")
	}

	result := loop.Advance(TickContext{Tick: 7, Delta: 1.0 / 15, Authoritative: true})
	if result.Tick != 7 {
		t.Fatalf("expected tick 7, got %d", result.Tick)
	}
	if len(result.Commands) != 2 {
		t.Fatalf("expected 2 staged commands, got %d", len(result.Commands))
	}
	if result.Snapshot.Tick != 7 {
		t.Fatalf("expected snapshot rebuilt for tick 7, got %d", result.Snapshot.Tick)
	}
	if loop.Pending() != 0 {
		t.Fatalf("expected queue drained, %d left", loop.Pending())
	}

	core.mu.Lock()
	defer core.mu.Unlock()
	if len(core.applied) != 1 || len(core.applied[0]) != 2 {
		t.Fatalf("expected one apply batch of 2, got %+v", core.applied)
	}
	want := []string{"prepare", "apply", "step"}
	if len(core.trace) != len(want) {
		t.Fatalf("expected trace %v, got %v", want, core.trace)
	}
	for i, event := range want {
		if core.trace[i] != event {
			t.Fatalf("expected trace %v, got %v", want, core.trace)
		}
	}
}

func TestLoopEnqueuePerActorLimit(t *testing.T) {
	core := &fakeCore{}
	var drops []string
	loop := NewLoop(core, Config{CommandCapacity: 8, PerActorLimit: 2}, Hooks{
		OnCommandDrop: func(reason string, cmd Command) {
			drops = append(drops, reason+":"+cmd.ActorID)
		},
	})
	for i := 0; i < 2; i++ {
		if ok, _ := loop.Enqueue(Command{ActorID: "hunter"}); !ok {
			t.Fatalf("expected enqueue %d to succeed", i)
		}
	}
	ok, reason := loop.Enqueue(Command{ActorID: "hunter"})
	if ok || reason != CommandRejectQueueLimit {
		t.Fatalf("expected per-actor rejection, got ok=%v reason=%q", ok, reason)
	}
	if len(drops) != 1 || drops[0] != "queue_limit:hunter" {
		t.Fatalf("unexpected drop reports: %v", drops)
	}
	// Other actors are unaffected by the hunter's throttle.
	if ok, _ := loop.Enqueue(Command{ActorID: "warden"}); !ok {
		t.Fatalf("expected unrelated actor to enqueue")
	}
	// Draining resets the per-actor window.
	loop.DrainCommands()
	if ok, _ := loop.Enqueue(Command{ActorID: "hunter"}); !ok {
		t.Fatalf("expected enqueue to succeed after drain")
	}
}

func TestLoopEnqueueQueueFull(t *testing.T) {
	core := &fakeCore{}
	loop := NewLoop(core, Config{CommandCapacity: 1}, Hooks{})
	if ok, _ := loop.Enqueue(Command{ActorID: "hunter"}); !ok {
		t.Fatalf("expected first enqueue to succeed")
	}
	ok, reason := loop.Enqueue(Command{ActorID: "warden"})
	if ok || reason != CommandRejectQueueFull {
		t.Fatalf("expected saturation rejection, got ok=%v reason=%q", ok, reason)
	}
}

func TestLoopQueueWarning(t *testing.T) {
	core := &fakeCore{}
	var warnings []int
	loop := NewLoop(core, Config{CommandCapacity: 8, WarningStep: 2}, Hooks{
		OnQueueWarning: func(length int) { warnings = append(warnings, length) },
	})
	loop.Enqueue(Command{ActorID: "a"})
	loop.Enqueue(Command{ActorID: "b"})
	loop.Enqueue(Command{ActorID: "c"})
	loop.Enqueue(Command{ActorID: "d"})
	if len(warnings) != 2 || warnings[0] != 2 || warnings[1] != 4 {
		t.Fatalf("expected warnings at 2 and 4, got %v", warnings)
	}
}

func TestLoopRunDeliversFrames(t *testing.T) {
	core := &fakeCore{}
	results := make(chan StepResult, 8)
	var tick uint64 = 100
	loop := NewLoop(core, Config{TickRate: 100, CatchupMaxTicks: 4, CommandCapacity: 4}, Hooks{
		NextTick: func() uint64 { tick++; return tick },
		AfterStep: func(result StepResult) {
			select {
			case results <- result:
			default:
			}
		},
	})
	stop := make(chan struct{})
	go loop.Run(stop)
	defer close(stop)

	select {
	case result := <-results:
		if result.Tick != 101 {
			t.Fatalf("expected tick from hook, got %d", result.Tick)
		}
		if result.Budget != 10*time.Millisecond {
			t.Fatalf("expected 10ms budget, got %v", result.Budget)
		}
		if result.MaxDelta != 0.04 {
			t.Fatalf("expected max delta 0.04, got %v", result.MaxDelta)
		}
		if result.Delta <= 0 {
			t.Fatalf("expected positive delta, got %v", result.Delta)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("loop never delivered a frame")
	}

	ctx, ok := core.lastContext()
	if !ok || !ctx.Authoritative {
		t.Fatalf("expected authoritative tick context, got %+v ok=%v", ctx, ok)
	}
}

func TestLoopRunObserverGatesAuthority(t *testing.T) {
	core := &fakeCore{}
	results := make(chan StepResult, 8)
	loop := NewLoop(core, Config{TickRate: 100, Observer: true}, Hooks{
		AfterStep: func(result StepResult) {
			select {
			case results <- result:
			default:
			}
		},
	})
	stop := make(chan struct{})
	go loop.Run(stop)
	defer close(stop)

	select {
	case <-results:
	case <-time.After(2 * time.Second):
		t.Fatalf("loop never delivered a frame")
	}
	ctx, ok := core.lastContext()
	if !ok {
		t.Fatalf("core never stepped")
	}
	if ctx.Authoritative {
		t.Fatalf("observer instance must not run authoritative frames")
	}
}

func TestLoopRunClampsDelta(t *testing.T) {
	core := &fakeCore{}
	core.deps.Clock = &fakeClock{now: time.Unix(0, 0), step: time.Second}
	results := make(chan StepResult, 8)
	loop := NewLoop(core, Config{TickRate: 100, CatchupMaxTicks: 4}, Hooks{
		AfterStep: func(result StepResult) {
			select {
			case results <- result:
			default:
			}
		},
	})
	stop := make(chan struct{})
	go loop.Run(stop)
	defer close(stop)

	select {
	case result := <-results:
		if !result.ClampedDelta {
			t.Fatalf("expected clamped delta with a runaway clock")
		}
		if result.Delta != result.MaxDelta {
			t.Fatalf("expected delta pinned to %v, got %v", result.MaxDelta, result.Delta)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("loop never delivered a frame")
	}
}
