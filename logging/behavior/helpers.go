package behavior

import (
	"context"

	"hide-and-hunt/server/logging"
)

const (
	// EventDecision is emitted when a bot's active branch changes.
	EventDecision logging.EventType = "behavior.decision"
	// EventTargetCommitted is emitted when a selection leaf commits an objective.
	EventTargetCommitted logging.EventType = "behavior.target_committed"
	// EventTargetDropped is emitted when a committed objective is released.
	EventTargetDropped logging.EventType = "behavior.target_dropped"
	// EventTargetReached is emitted once when a bot first arrives at its objective.
	EventTargetReached logging.EventType = "behavior.target_reached"
	// EventDetourStarted is emitted when hunter avoidance takes over steering.
	EventDetourStarted logging.EventType = "behavior.detour_started"
	// EventDetourEnded is emitted when the bot leaves the danger zone.
	EventDetourEnded logging.EventType = "behavior.detour_ended"
	// EventKnowledgeShared is emitted when an agent tells a nearby teammate
	// about objectives it knows.
	EventKnowledgeShared logging.EventType = "behavior.knowledge_shared"
)

// DecisionPayload names the branch that produced this frame's result.
type DecisionPayload struct {
	Branch   string `json:"branch"`
	Previous string `json:"previous,omitempty"`
}

// TargetPayload describes the objective a selection or movement leaf acted on.
type TargetPayload struct {
	ObjectiveID string `json:"objectiveId"`
	Category    string `json:"category"`
	Reason      string `json:"reason,omitempty"`
}

// DetourPayload captures where on the detour ring the bot is headed.
type DetourPayload struct {
	Direction int     `json:"direction"`
	Theta     float64 `json:"theta"`
	Reason    string  `json:"reason,omitempty"`
}

// KnowledgeSharedPayload lists what a teammate just learned.
type KnowledgeSharedPayload struct {
	ObjectiveIDs []string `json:"objectiveIds"`
}

// Decision publishes a branch-change event.
func Decision(ctx context.Context, pub logging.Publisher, tick uint64, actor logging.EntityRef, payload DecisionPayload, extra map[string]any) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     EventDecision,
		Tick:     tick,
		Actor:    actor,
		Severity: logging.SeverityDebug,
		Category: logging.CategoryBehavior,
		Payload:  payload,
		Extra:    extra,
	})
}

// TargetCommitted publishes an objective commit event.
func TargetCommitted(ctx context.Context, pub logging.Publisher, tick uint64, actor logging.EntityRef, objective logging.EntityRef, payload TargetPayload, extra map[string]any) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     EventTargetCommitted,
		Tick:     tick,
		Actor:    actor,
		Targets:  []logging.EntityRef{objective},
		Severity: logging.SeverityInfo,
		Category: logging.CategoryBehavior,
		Payload:  payload,
		Extra:    extra,
	})
}

// TargetDropped publishes an objective release event.
func TargetDropped(ctx context.Context, pub logging.Publisher, tick uint64, actor logging.EntityRef, objective logging.EntityRef, payload TargetPayload, extra map[string]any) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     EventTargetDropped,
		Tick:     tick,
		Actor:    actor,
		Targets:  []logging.EntityRef{objective},
		Severity: logging.SeverityInfo,
		Category: logging.CategoryBehavior,
		Payload:  payload,
		Extra:    extra,
	})
}

// TargetReached publishes the one-shot arrival event.
func TargetReached(ctx context.Context, pub logging.Publisher, tick uint64, actor logging.EntityRef, objective logging.EntityRef, payload TargetPayload, extra map[string]any) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     EventTargetReached,
		Tick:     tick,
		Actor:    actor,
		Targets:  []logging.EntityRef{objective},
		Severity: logging.SeverityInfo,
		Category: logging.CategoryBehavior,
		Payload:  payload,
		Extra:    extra,
	})
}

// DetourStarted publishes the start of hunter avoidance steering.
func DetourStarted(ctx context.Context, pub logging.Publisher, tick uint64, actor logging.EntityRef, payload DetourPayload, extra map[string]any) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     EventDetourStarted,
		Tick:     tick,
		Actor:    actor,
		Severity: logging.SeverityInfo,
		Category: logging.CategoryBehavior,
		Payload:  payload,
		Extra:    extra,
	})
}

// DetourEnded publishes the end of hunter avoidance steering.
func DetourEnded(ctx context.Context, pub logging.Publisher, tick uint64, actor logging.EntityRef, payload DetourPayload, extra map[string]any) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     EventDetourEnded,
		Tick:     tick,
		Actor:    actor,
		Severity: logging.SeverityInfo,
		Category: logging.CategoryBehavior,
		Payload:  payload,
		Extra:    extra,
	})
}

// KnowledgeShared publishes a successful knowledge broadcast.
func KnowledgeShared(ctx context.Context, pub logging.Publisher, tick uint64, actor logging.EntityRef, listener logging.EntityRef, payload KnowledgeSharedPayload, extra map[string]any) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     EventKnowledgeShared,
		Tick:     tick,
		Actor:    actor,
		Targets:  []logging.EntityRef{listener},
		Severity: logging.SeverityDebug,
		Category: logging.CategoryBehavior,
		Payload:  payload,
		Extra:    extra,
	})
}
