package tuning

import (
	"fmt"
	"math"
)

// Version is the config document revision this build understands.
const Version = 1

// Config is the designer-tunable parameter set for bot decision making.
// It is loaded from YAML; tuning/cmd/schema emits the JSON schema used by
// editor tooling to validate authored documents.
type Config struct {
	Version    int              `yaml:"version" json:"version" jsonschema:"title=Document version,description=Must match the revision the server was built against"`
	Simulation SimulationConfig `yaml:"simulation" json:"simulation"`
	Movement   MovementConfig   `yaml:"movement" json:"movement"`
	Behavior   BehaviorConfig   `yaml:"behavior" json:"behavior"`
	Avoidance  AvoidanceConfig  `yaml:"avoidance" json:"avoidance"`
	Cost       CostConfig       `yaml:"cost" json:"cost"`
}

type SimulationConfig struct {
	TickRate int     `yaml:"tickRate" json:"tickRate" jsonschema:"title=Ticks per second,description=Authoritative frame rate for bot decisions"`
	MaxDelta float64 `yaml:"maxDeltaSeconds" json:"maxDeltaSeconds" jsonschema:"description=Clamp applied to frame delta after a stall"`
}

type MovementConfig struct {
	Speed            float64 `yaml:"speed" json:"speed" jsonschema:"description=Bot surface speed in units per second"`
	StoppingDistance float64 `yaml:"stoppingDistance" json:"stoppingDistance" jsonschema:"description=Halt radius around a committed objective"`
	WaypointEpsilon  float64 `yaml:"waypointEpsilon" json:"waypointEpsilon" jsonschema:"description=Advance to the next waypoint inside this radius"`
	TurnRate         float64 `yaml:"turnRate" json:"turnRate" jsonschema:"description=Maximum yaw change in radians per second"`
	JumpLaunchSpeed  float64 `yaml:"jumpLaunchSpeed" json:"jumpLaunchSpeed" jsonschema:"description=Fixed vertical launch speed for link jumps"`
	Gravity          float64 `yaml:"gravity" json:"gravity" jsonschema:"description=Downward acceleration used by the jump solver"`
	StallTicks       int     `yaml:"stallTicks" json:"stallTicks" jsonschema:"description=Frames without progress before the arrival radius relaxes"`
	StallRelax       float64 `yaml:"stallRelax" json:"stallRelax" jsonschema:"description=Extra arrival radius granted per stall window"`
}

type BehaviorConfig struct {
	HearingRadius float64    `yaml:"hearingRadius" json:"hearingRadius" jsonschema:"description=Knowledge propagates between agents within this range"`
	Jail          JailConfig `yaml:"jail" json:"jail"`
}

// JailConfig tunes the probability gate on jail-break targeting. The gate is
// min(rampBase^(distance-distanceThreshold), 1) * baseProbability, scaled by
// the jailed-teammate count and the frame delta.
type JailConfig struct {
	RampBase          float64 `yaml:"rampBase" json:"rampBase" jsonschema:"description=Exponential ramp base,maximum=1"`
	DistanceThreshold float64 `yaml:"distanceThreshold" json:"distanceThreshold" jsonschema:"description=Remaining goal distance at which the ramp saturates"`
	BaseProbability   float64 `yaml:"baseProbability" json:"baseProbability" jsonschema:"description=Gate probability once the ramp saturates"`
}

type AvoidanceConfig struct {
	Danger      RingConfig   `yaml:"danger" json:"danger" jsonschema:"description=Inner ellipse the bot must never enter"`
	Detour      RingConfig   `yaml:"detour" json:"detour" jsonschema:"description=Middle ellipse detour waypoints are placed on"`
	Warning     RingConfig   `yaml:"warning" json:"warning" jsonschema:"description=Outer early-warning ellipse"`
	Shrink      ShrinkConfig `yaml:"shrink" json:"shrink"`
	ArcSamples  int          `yaml:"arcSamples" json:"arcSamples" jsonschema:"description=Arc-length table samples per quadrant"`
	StepPadding float64      `yaml:"stepPadding" json:"stepPadding" jsonschema:"description=Multiplier on the speed-derived detour step"`
	ProbeRange  float64      `yaml:"probeRange" json:"probeRange" jsonschema:"description=A blocker closer than this flips detour direction"`
}

// RingConfig is one ellipse, elongated along the hunter's facing.
type RingConfig struct {
	Forward float64 `yaml:"forward" json:"forward" jsonschema:"description=Semi-axis along the hunter's facing"`
	Side    float64 `yaml:"side" json:"side" jsonschema:"description=Semi-axis across the hunter's facing"`
}

// ShrinkConfig escalates avoidance collapse as a bot lingers near the hunter.
type ShrinkConfig struct {
	SoftAfter     float64 `yaml:"softAfter" json:"softAfter" jsonschema:"description=Exposure seconds before the first shrink"`
	SoftScale     float64 `yaml:"softScale" json:"softScale" jsonschema:"description=Ring scale after the first shrink"`
	HardAfter     float64 `yaml:"hardAfter" json:"hardAfter" jsonschema:"description=Exposure seconds before the second shrink"`
	HardScale     float64 `yaml:"hardScale" json:"hardScale" jsonschema:"description=Ring scale after the second shrink"`
	CollapseAfter float64 `yaml:"collapseAfter" json:"collapseAfter" jsonschema:"description=Exposure seconds before avoidance collapses to zero"`
	AwayReset     float64 `yaml:"awayReset" json:"awayReset" jsonschema:"description=Seconds outside the warning ring before sizes reset"`
}

type CostConfig struct {
	Radius float64 `yaml:"radius" json:"radius" jsonschema:"description=World-distance reach of the hunter penalty flood fill"`
	Floor  float64 `yaml:"floor" json:"floor" jsonschema:"description=Minimum penalty inside the radius"`
	Gain   float64 `yaml:"gain" json:"gain" jsonschema:"description=Inverse-distance penalty numerator"`
}

// Default returns the shipped tuning values.
func Default() Config {
	return Config{
		Version: Version,
		Simulation: SimulationConfig{
			TickRate: 15,
			MaxDelta: 0.25,
		},
		Movement: MovementConfig{
			Speed:            4.0,
			StoppingDistance: 1.2,
			WaypointEpsilon:  0.35,
			TurnRate:         6.0,
			JumpLaunchSpeed:  7.5,
			Gravity:          19.6,
			StallTicks:       45,
			StallRelax:       0.5,
		},
		Behavior: BehaviorConfig{
			HearingRadius: 12,
			Jail: JailConfig{
				RampBase:          0.82,
				DistanceThreshold: 6,
				BaseProbability:   0.35,
			},
		},
		Avoidance: AvoidanceConfig{
			Danger:  RingConfig{Forward: 5, Side: 3.2},
			Detour:  RingConfig{Forward: 8, Side: 5.5},
			Warning: RingConfig{Forward: 12, Side: 9},
			Shrink: ShrinkConfig{
				SoftAfter:     4,
				SoftScale:     0.65,
				HardAfter:     8,
				HardScale:     0.35,
				CollapseAfter: 14,
				AwayReset:     5,
			},
			ArcSamples:  24,
			StepPadding: 1.25,
			ProbeRange:  0.25,
		},
		Cost: CostConfig{
			Radius: 14,
			Floor:  2.5,
			Gain:   30,
		},
	}
}

// Validate reports the first violated constraint.
func (c Config) Validate() error {
	if c.Version != Version {
		return fmt.Errorf("unsupported config version %d (want %d)", c.Version, Version)
	}
	if c.Simulation.TickRate <= 0 {
		return fmt.Errorf("simulation.tickRate must be positive")
	}
	if c.Simulation.MaxDelta <= 0 {
		return fmt.Errorf("simulation.maxDeltaSeconds must be positive")
	}
	if c.Movement.Speed <= 0 {
		return fmt.Errorf("movement.speed must be positive")
	}
	if c.Movement.StoppingDistance <= 0 {
		return fmt.Errorf("movement.stoppingDistance must be positive")
	}
	if c.Movement.WaypointEpsilon <= 0 {
		return fmt.Errorf("movement.waypointEpsilon must be positive")
	}
	if c.Movement.TurnRate <= 0 {
		return fmt.Errorf("movement.turnRate must be positive")
	}
	if c.Movement.Gravity <= 0 || c.Movement.JumpLaunchSpeed <= 0 {
		return fmt.Errorf("movement jump parameters must be positive")
	}
	if c.Behavior.HearingRadius < 0 {
		return fmt.Errorf("behavior.hearingRadius must not be negative")
	}
	jail := c.Behavior.Jail
	if jail.RampBase <= 0 || jail.RampBase >= 1 {
		return fmt.Errorf("behavior.jail.rampBase must be in (0, 1)")
	}
	if jail.BaseProbability < 0 || jail.BaseProbability > 1 {
		return fmt.Errorf("behavior.jail.baseProbability must be in [0, 1]")
	}
	for name, ring := range map[string]RingConfig{
		"danger":  c.Avoidance.Danger,
		"detour":  c.Avoidance.Detour,
		"warning": c.Avoidance.Warning,
	} {
		if ring.Forward <= 0 || ring.Side <= 0 {
			return fmt.Errorf("avoidance.%s semi-axes must be positive", name)
		}
	}
	if !ringInside(c.Avoidance.Danger, c.Avoidance.Detour) || !ringInside(c.Avoidance.Detour, c.Avoidance.Warning) {
		return fmt.Errorf("avoidance rings must nest: danger inside detour inside warning")
	}
	shrink := c.Avoidance.Shrink
	if !(shrink.SoftAfter > 0 && shrink.SoftAfter < shrink.HardAfter && shrink.HardAfter < shrink.CollapseAfter) {
		return fmt.Errorf("avoidance.shrink thresholds must ascend: soft < hard < collapse")
	}
	if !(shrink.HardScale > 0 && shrink.HardScale < shrink.SoftScale && shrink.SoftScale < 1) {
		return fmt.Errorf("avoidance.shrink scales must satisfy 0 < hard < soft < 1")
	}
	if shrink.AwayReset <= 0 {
		return fmt.Errorf("avoidance.shrink.awayReset must be positive")
	}
	if c.Avoidance.ArcSamples < 4 {
		return fmt.Errorf("avoidance.arcSamples must be at least 4")
	}
	if c.Avoidance.StepPadding < 1 {
		return fmt.Errorf("avoidance.stepPadding must be at least 1")
	}
	if c.Avoidance.ProbeRange < 0 {
		return fmt.Errorf("avoidance.probeRange must not be negative")
	}
	if c.Cost.Radius <= 0 {
		return fmt.Errorf("cost.radius must be positive")
	}
	if c.Cost.Floor < 0 || c.Cost.Gain < 0 {
		return fmt.Errorf("cost.floor and cost.gain must not be negative")
	}
	if math.IsNaN(c.Cost.Floor + c.Cost.Gain + c.Cost.Radius) {
		return fmt.Errorf("cost parameters must be finite")
	}
	return nil
}

func ringInside(inner, outer RingConfig) bool {
	return inner.Forward < outer.Forward && inner.Side < outer.Side
}
