package server

import (
	"context"
	"fmt"

	"github.com/d5/tengo/v2"
	"github.com/d5/tengo/v2/stdlib"

	"hide-and-hunt/server/internal/sim"
	"hide-and-hunt/server/internal/telemetry"
	"hide-and-hunt/server/logging"
	"hide-and-hunt/server/logging/arena"
)

// hunterScriptActor names the scripted driver in the command journal.
const hunterScriptActor = "hunter-script"

// hunterDispatchScript is appended to every hunter script so the driver can
// invoke its script-defined entry point.
const hunterDispatchScript = `
tick(__arena, __state)
`

// DefaultHunterScript patrols a rectangle and chases the nearest free bot
// once it comes within sight. It is tuned for the standard arena; operators
// swap in their own script for other layouts.
const DefaultHunterScript = `
math := import("math")

patrol := [[8.0, 8.0], [40.0, 8.0], [40.0, 24.0], [8.0, 24.0]]

tick := func(arena, state) {
	if is_undefined(state.wp) {
		state.wp = 0
	}
	h := arena.hunter
	if is_undefined(h) {
		steer(1.0, 0.0)
		return
	}

	best := undefined
	bestd := 81.0
	for b in arena.bots {
		if b.jailed {
			continue
		}
		dx := b.x - h.x
		dz := b.z - h.z
		d := dx*dx + dz*dz
		if d < bestd {
			bestd = d
			best = b
		}
	}
	if !is_undefined(best) {
		steer(best.x - h.x, best.z - h.z)
		return
	}

	wp := patrol[state.wp % len(patrol)]
	dx := wp[0] - h.x
	dz := wp[1] - h.z
	if math.sqrt(dx*dx + dz*dz) < 1.5 {
		state.wp = (state.wp + 1) % len(patrol)
		wp = patrol[state.wp]
		dx = wp[0] - h.x
		dz = wp[1] - h.z
	}
	steer(dx, dz)
}
`

// pendingSteer is the steering the script requested during one run.
type pendingSteer struct {
	dx, dz float64
	speed  float64
	set    bool
}

// HunterDriver runs a hunter control script once per frame and turns its
// steering calls into hunter movement commands. The script is compiled once;
// each drive rebinds the arena view and re-runs it. State the script stashes
// in its state map survives across frames.
//
// Drive runs on the simulation loop goroutine only.
type HunterDriver struct {
	compiled *tengo.Compiled
	state    *tengo.Map
	pending  pendingSteer

	width, height float64

	pub     logging.Publisher
	metrics telemetry.Metrics
}

// HunterDriverConfig assembles a scripted hunter.
type HunterDriverConfig struct {
	// Script is the tengo source; it must define tick(arena, state).
	Script string

	// Width and Height are the arena bounds exposed to the script.
	Width  float64
	Height float64

	Publisher logging.Publisher
	Metrics   telemetry.Metrics
}

// NewHunterDriver compiles the hunter script. The script gets the tengo
// stdlib plus a steer(dx, dz [, speed]) builtin that records the frame's
// steering request.
func NewHunterDriver(cfg HunterDriverConfig) (*HunterDriver, error) {
	if cfg.Script == "" {
		cfg.Script = DefaultHunterScript
	}
	if cfg.Publisher == nil {
		cfg.Publisher = logging.NopPublisher()
	}
	if cfg.Metrics == nil {
		cfg.Metrics = telemetry.NopMetrics()
	}

	d := &HunterDriver{
		state:   &tengo.Map{Value: map[string]tengo.Object{}},
		width:   cfg.Width,
		height:  cfg.Height,
		pub:     cfg.Publisher,
		metrics: cfg.Metrics,
	}

	script := tengo.NewScript([]byte(cfg.Script + "\n" + hunterDispatchScript))
	_ = script.Add("__arena", map[string]any{})
	_ = script.Add("__state", map[string]any{})
	if err := script.Add("steer", &tengo.UserFunction{Name: "steer", Value: d.steerFn}); err != nil {
		return nil, fmt.Errorf("bind steer: %w", err)
	}
	script.SetImports(stdlib.GetModuleMap(stdlib.AllModuleNames()...))

	compiled, err := script.Compile()
	if err != nil {
		return nil, fmt.Errorf("compile hunter script: %w", err)
	}
	d.compiled = compiled
	return d, nil
}

func (d *HunterDriver) steerFn(args ...tengo.Object) (tengo.Object, error) {
	if len(args) < 2 {
		return nil, tengo.ErrWrongNumArguments
	}
	dx, ok := tengo.ToFloat64(args[0])
	if !ok {
		return nil, tengo.ErrInvalidArgumentType{Name: "dx", Expected: "float", Found: args[0].TypeName()}
	}
	dz, ok := tengo.ToFloat64(args[1])
	if !ok {
		return nil, tengo.ErrInvalidArgumentType{Name: "dz", Expected: "float", Found: args[1].TypeName()}
	}
	d.pending = pendingSteer{dx: dx, dz: dz, set: true}
	if len(args) >= 3 {
		if speed, ok := tengo.ToFloat64(args[2]); ok && speed > 0 {
			d.pending.speed = speed
		}
	}
	return tengo.UndefinedValue, nil
}

// Drive runs the script against a frame snapshot and returns the hunter
// command it asked for, if any. Script faults are reported on the event
// stream and skip the frame rather than stopping the hunt.
func (d *HunterDriver) Drive(snap sim.Snapshot, tick uint64, delta float64) (sim.Command, bool) {
	d.pending = pendingSteer{}

	if err := d.compiled.Set("__arena", d.arenaView(snap, tick, delta)); err != nil {
		d.fault(tick, err)
		return sim.Command{}, false
	}
	if err := d.compiled.Set("__state", d.state); err != nil {
		d.fault(tick, err)
		return sim.Command{}, false
	}
	if err := d.compiled.Run(); err != nil {
		d.fault(tick, err)
		return sim.Command{}, false
	}

	if !d.pending.set {
		return sim.Command{}, false
	}
	d.metrics.Add("hunter.script_steers", 1)
	return sim.Command{
		ActorID: hunterScriptActor,
		Type:    sim.CommandHunterMove,
		HunterMove: &sim.HunterMoveCommand{
			DX:    d.pending.dx,
			DZ:    d.pending.dz,
			Speed: d.pending.speed,
		},
	}, true
}

func (d *HunterDriver) fault(tick uint64, err error) {
	arena.HunterScript(context.Background(), d.pub, tick, logging.HunterRef(hunterScriptActor), arena.ScriptPayload{
		Error: err.Error(),
	}, nil)
	d.metrics.Add("hunter.script_faults", 1)
}

// arenaView builds the read-only frame view handed to the script.
func (d *HunterDriver) arenaView(snap sim.Snapshot, tick uint64, delta float64) *tengo.ImmutableMap {
	values := map[string]tengo.Object{
		"tick":   &tengo.Int{Value: int64(tick)},
		"delta":  &tengo.Float{Value: delta},
		"width":  &tengo.Float{Value: d.width},
		"height": &tengo.Float{Value: d.height},
		"jailed": &tengo.Int{Value: int64(snap.JailedAgents)},
	}

	if snap.Hunter != nil {
		values["hunter"] = &tengo.ImmutableMap{Value: map[string]tengo.Object{
			"x":     &tengo.Float{Value: snap.Hunter.X},
			"y":     &tengo.Float{Value: snap.Hunter.Y},
			"z":     &tengo.Float{Value: snap.Hunter.Z},
			"yaw":   &tengo.Float{Value: snap.Hunter.Yaw},
			"speed": &tengo.Float{Value: snap.Hunter.Speed},
		}}
	}

	bots := make([]tengo.Object, 0, len(snap.Bots))
	for _, b := range snap.Bots {
		jailed := tengo.FalseValue
		if b.Jailed {
			jailed = tengo.TrueValue
		}
		bots = append(bots, &tengo.ImmutableMap{Value: map[string]tengo.Object{
			"id":     &tengo.String{Value: b.ID},
			"x":      &tengo.Float{Value: b.X},
			"y":      &tengo.Float{Value: b.Y},
			"z":      &tengo.Float{Value: b.Z},
			"jailed": jailed,
		}})
	}
	values["bots"] = &tengo.Array{Value: bots}

	return &tengo.ImmutableMap{Value: values}
}
