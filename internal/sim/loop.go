package sim

import (
	"sync"
	"time"

	"hide-and-hunt/server/internal/telemetry"
	"hide-and-hunt/server/logging"
)

const (
	// CommandRejectQueueLimit indicates a command was dropped due to per-actor
	// queue throttling.
	CommandRejectQueueLimit = "queue_limit"
	// CommandRejectQueueFull indicates the global command buffer is saturated.
	CommandRejectQueueFull = "queue_full"
)

// Core is the arena state machine the loop drives. Apply stages external
// commands, Step advances one frame, Snapshot mirrors the result.
type Core interface {
	Deps() Deps
	Apply([]Command) error
	Step(TickContext)
	Snapshot() Snapshot
}

// TickContext describes the frame being evaluated. Observer instances
// receive Authoritative=false and must not run decision logic.
type TickContext struct {
	Tick          uint64
	Now           time.Time
	Delta         float64
	Authoritative bool
}

// StepResult reports the outcome of a single loop advance.
type StepResult struct {
	Tick         uint64
	Now          time.Time
	Delta        float64
	Snapshot     Snapshot
	Commands     []Command
	Duration     time.Duration
	Budget       time.Duration
	ClampedDelta bool
	MaxDelta     float64
}

// Hooks customises tick sequencing and telemetry fan-out.
type Hooks struct {
	// NextTick supplies the tick number for the frame about to run. When nil
	// the loop counts from one.
	NextTick func() uint64
	// Prepare runs before staged commands are applied.
	Prepare func(TickContext)
	// AfterStep observes the completed frame.
	AfterStep func(StepResult)
	// OnQueueWarning fires when the staged queue crosses a warning step.
	OnQueueWarning func(length int)
	// OnCommandDrop observes rejected commands.
	OnCommandDrop func(reason string, cmd Command)
}

// Config tunes the command buffer and tick loop orchestration.
type Config struct {
	TickRate        int
	CatchupMaxTicks int
	CommandCapacity int
	PerActorLimit   int
	WarningStep     int
	// Observer marks this instance non-authoritative; frames still run so
	// mirrored state stays warm, but decision logic is gated off.
	Observer bool
}

// Loop coordinates command ingestion and the fixed-timestep arena runner.
type Loop struct {
	core    Core
	buffer  *CommandBuffer
	hooks   Hooks
	config  Config
	logger  telemetry.Logger
	metrics telemetry.Metrics

	queueMu       sync.Mutex
	perActorCount map[string]int
	dropCounts    map[string]uint64
}

// NewLoop wraps the provided core with a ring-buffer queue and loop.
func NewLoop(core Core, cfg Config, hooks Hooks) *Loop {
	if core == nil {
		return nil
	}
	deps := core.Deps()
	return &Loop{
		core:          core,
		buffer:        NewCommandBuffer(cfg.CommandCapacity, deps.Metrics),
		hooks:         hooks,
		config:        cfg,
		logger:        deps.Logger,
		metrics:       deps.Metrics,
		perActorCount: make(map[string]int),
		dropCounts:    make(map[string]uint64),
	}
}

// Deps returns the injected dependencies for the underlying core.
func (l *Loop) Deps() Deps {
	if l == nil {
		return Deps{}
	}
	return l.core.Deps()
}

// Snapshot delegates to the underlying core.
func (l *Loop) Snapshot() Snapshot {
	if l == nil {
		return Snapshot{}
	}
	return l.core.Snapshot()
}

// Pending reports the number of staged commands.
func (l *Loop) Pending() int {
	if l == nil {
		return 0
	}
	return l.buffer.Len()
}

// DrainCommands clears the staged command queue without advancing the core.
func (l *Loop) DrainCommands() []Command {
	if l == nil {
		return nil
	}
	return l.drainCommands()
}

// Enqueue stages a command, enforcing per-actor throttling and capacity limits.
func (l *Loop) Enqueue(cmd Command) (bool, string) {
	if l == nil {
		return false, CommandRejectQueueFull
	}
	reason := ""
	var dropCount uint64
	l.queueMu.Lock()
	if l.config.PerActorLimit > 0 && cmd.ActorID != "" {
		count := l.perActorCount[cmd.ActorID]
		if count >= l.config.PerActorLimit {
			reason = CommandRejectQueueLimit
			dropCount = l.incrementDropLocked(cmd.ActorID)
		} else {
			l.perActorCount[cmd.ActorID] = count + 1
		}
	}
	if reason == "" {
		if !l.buffer.Push(cmd) {
			reason = CommandRejectQueueFull
			dropCount = l.incrementDropLocked(cmd.ActorID)
		} else if l.config.WarningStep > 0 {
			length := l.buffer.Len()
			if length >= l.config.WarningStep && length%l.config.WarningStep == 0 {
				l.queueMu.Unlock()
				l.warnQueue(length)
				return true, ""
			}
		}
	}
	l.queueMu.Unlock()
	if reason != "" {
		l.reportDrop(reason, cmd, dropCount)
		return false, reason
	}
	return true, ""
}

// Advance executes a single frame using the staged commands.
func (l *Loop) Advance(ctx TickContext) StepResult {
	if l == nil {
		return StepResult{}
	}
	commands := l.drainCommands()
	if l.hooks.Prepare != nil {
		l.hooks.Prepare(ctx)
	}
	_ = l.core.Apply(commands)
	l.core.Step(ctx)
	return StepResult{
		Tick:     ctx.Tick,
		Now:      ctx.Now,
		Delta:    ctx.Delta,
		Snapshot: l.core.Snapshot(),
		Commands: commands,
	}
}

// Run drives the fixed-timestep loop until the stop channel closes.
func (l *Loop) Run(stop <-chan struct{}) {
	if l == nil {
		return
	}
	tickRate := l.config.TickRate
	if tickRate <= 0 {
		tickRate = 15
	}
	ticker := time.NewTicker(time.Second / time.Duration(tickRate))
	defer ticker.Stop()

	clock := l.core.Deps().Clock
	if clock == nil {
		clock = logging.SystemClock{}
	}
	last := clock.Now()
	budgetSeconds := 1.0 / float64(tickRate)
	maxDt := budgetSeconds
	if l.config.CatchupMaxTicks > 1 {
		maxDt = budgetSeconds * float64(l.config.CatchupMaxTicks)
	}
	budgetDuration := time.Second / time.Duration(tickRate)

	var tick uint64
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			now := clock.Now()
			dt := now.Sub(last).Seconds()
			clamped := false
			if dt <= 0 {
				dt = budgetSeconds
			} else if dt > maxDt {
				dt = maxDt
				clamped = true
			}
			last = now

			if l.hooks.NextTick != nil {
				tick = l.hooks.NextTick()
			} else {
				tick++
			}

			start := clock.Now()
			result := l.Advance(TickContext{
				Tick:          tick,
				Now:           now,
				Delta:         dt,
				Authoritative: !l.config.Observer,
			})
			result.Duration = clock.Now().Sub(start)
			result.Budget = budgetDuration
			result.ClampedDelta = clamped
			result.MaxDelta = maxDt

			if l.hooks.AfterStep != nil {
				l.hooks.AfterStep(result)
			}
		}
	}
}

func (l *Loop) drainCommands() []Command {
	l.queueMu.Lock()
	defer l.queueMu.Unlock()
	commands := l.buffer.Drain()
	if len(l.perActorCount) > 0 {
		l.perActorCount = make(map[string]int)
	}
	return commands
}

func (l *Loop) incrementDropLocked(actorID string) uint64 {
	if actorID == "" {
		return 0
	}
	count := l.dropCounts[actorID] + 1
	l.dropCounts[actorID] = count
	return count
}

func (l *Loop) warnQueue(length int) {
	if l.hooks.OnQueueWarning != nil {
		l.hooks.OnQueueWarning(length)
	}
}

func (l *Loop) reportDrop(reason string, cmd Command, count uint64) {
	if l.hooks.OnCommandDrop != nil {
		l.hooks.OnCommandDrop(reason, cmd)
	}
	// Log per-actor drops only at power-of-two counts to bound noise.
	if count > 0 && count&(count-1) == 0 && l.logger != nil {
		l.logger.Printf(
			"[backpressure] dropping command actor=%s type=%s reason=%s count=%d",
			cmd.ActorID,
			cmd.Type,
			reason,
			count,
		)
	}
}

// Ensure Loop implements Engine.
var _ Engine = (*Loop)(nil)
