// Package arena publishes game-rule events: barrier drops, console claims,
// relic pickups, jail transitions, and episode lifecycle.
package arena

import (
	"context"

	"hide-and-hunt/server/logging"
)

const (
	// EventBarrierDropped is emitted when a button press lowers the exit barrier.
	EventBarrierDropped logging.EventType = "arena.barrier_dropped"
	// EventConsoleClaimed is emitted when a bot finishes using its console.
	EventConsoleClaimed logging.EventType = "arena.console_claimed"
	// EventRelicCollected is emitted when a bot picks up a relic.
	EventRelicCollected logging.EventType = "arena.relic_collected"
	// EventBotJailed is emitted when the hunter catches a bot.
	EventBotJailed logging.EventType = "arena.bot_jailed"
	// EventBotsFreed is emitted when jailed bots are released.
	EventBotsFreed logging.EventType = "arena.bots_freed"
	// EventEpisodeEnded is emitted when the arena resets.
	EventEpisodeEnded logging.EventType = "arena.episode_ended"
	// EventTuningApplied is emitted when a reloaded tuning document takes effect.
	EventTuningApplied logging.EventType = "arena.tuning_applied"
	// EventHunterScript is emitted when the hunter driver reports a script fault.
	EventHunterScript logging.EventType = "arena.hunter_script"
)

// BarrierPayload names the button that dropped the barrier and the door it
// guarded.
type BarrierPayload struct {
	ButtonID string `json:"buttonId"`
	DoorID   string `json:"doorId,omitempty"`
}

// ConsolePayload records a claimed console.
type ConsolePayload struct {
	ConsoleID string `json:"consoleId"`
	Color     string `json:"color,omitempty"`
}

// RelicPayload records a collected relic and how many remain.
type RelicPayload struct {
	RelicID   string `json:"relicId"`
	Remaining int    `json:"remaining"`
}

// JailPayload records a jail transition and the resulting jailed count.
type JailPayload struct {
	BotID  string `json:"botId,omitempty"`
	Jailed int    `json:"jailed"`
}

// FreedPayload lists the bots released and who triggered the release.
type FreedPayload struct {
	BotIDs []string `json:"botIds"`
	By     string   `json:"by,omitempty"`
}

// EpisodePayload explains why the episode ended.
type EpisodePayload struct {
	Reason string `json:"reason,omitempty"`
}

// TuningPayload identifies the applied tuning document.
type TuningPayload struct {
	Version int    `json:"version"`
	Source  string `json:"source,omitempty"`
}

// ScriptPayload carries a hunter script fault.
type ScriptPayload struct {
	Error string `json:"error"`
}

// BarrierDropped publishes a barrier drop.
func BarrierDropped(ctx context.Context, pub logging.Publisher, tick uint64, actor logging.EntityRef, payload BarrierPayload, extra map[string]any) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     EventBarrierDropped,
		Tick:     tick,
		Actor:    actor,
		Severity: logging.SeverityInfo,
		Category: logging.CategoryArena,
		Payload:  payload,
		Extra:    extra,
	})
}

// ConsoleClaimed publishes a console claim.
func ConsoleClaimed(ctx context.Context, pub logging.Publisher, tick uint64, actor logging.EntityRef, console logging.EntityRef, payload ConsolePayload, extra map[string]any) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     EventConsoleClaimed,
		Tick:     tick,
		Actor:    actor,
		Targets:  []logging.EntityRef{console},
		Severity: logging.SeverityInfo,
		Category: logging.CategoryArena,
		Payload:  payload,
		Extra:    extra,
	})
}

// RelicCollected publishes a relic pickup.
func RelicCollected(ctx context.Context, pub logging.Publisher, tick uint64, actor logging.EntityRef, relic logging.EntityRef, payload RelicPayload, extra map[string]any) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     EventRelicCollected,
		Tick:     tick,
		Actor:    actor,
		Targets:  []logging.EntityRef{relic},
		Severity: logging.SeverityInfo,
		Category: logging.CategoryArena,
		Payload:  payload,
		Extra:    extra,
	})
}

// BotJailed publishes a capture.
func BotJailed(ctx context.Context, pub logging.Publisher, tick uint64, actor logging.EntityRef, payload JailPayload, extra map[string]any) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     EventBotJailed,
		Tick:     tick,
		Actor:    actor,
		Severity: logging.SeverityInfo,
		Category: logging.CategoryArena,
		Payload:  payload,
		Extra:    extra,
	})
}

// BotsFreed publishes a jail release.
func BotsFreed(ctx context.Context, pub logging.Publisher, tick uint64, actor logging.EntityRef, payload FreedPayload, extra map[string]any) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     EventBotsFreed,
		Tick:     tick,
		Actor:    actor,
		Severity: logging.SeverityInfo,
		Category: logging.CategoryArena,
		Payload:  payload,
		Extra:    extra,
	})
}

// EpisodeEnded publishes an episode reset.
func EpisodeEnded(ctx context.Context, pub logging.Publisher, tick uint64, payload EpisodePayload, extra map[string]any) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     EventEpisodeEnded,
		Tick:     tick,
		Actor:    logging.WorldRef(),
		Severity: logging.SeverityInfo,
		Category: logging.CategoryArena,
		Payload:  payload,
		Extra:    extra,
	})
}

// TuningApplied publishes a live tuning reload.
func TuningApplied(ctx context.Context, pub logging.Publisher, tick uint64, payload TuningPayload, extra map[string]any) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     EventTuningApplied,
		Tick:     tick,
		Actor:    logging.WorldRef(),
		Severity: logging.SeverityInfo,
		Category: logging.CategoryArena,
		Payload:  payload,
		Extra:    extra,
	})
}

// HunterScript publishes a hunter driver fault.
func HunterScript(ctx context.Context, pub logging.Publisher, tick uint64, actor logging.EntityRef, payload ScriptPayload, extra map[string]any) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     EventHunterScript,
		Tick:     tick,
		Actor:    actor,
		Severity: logging.SeverityWarn,
		Category: logging.CategoryArena,
		Payload:  payload,
		Extra:    extra,
	})
}
