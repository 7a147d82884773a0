package navigation

import (
	"context"

	"hide-and-hunt/server/logging"
)

const (
	// EventPathReady is emitted when an async path computation lands.
	EventPathReady logging.EventType = "navigation.path_ready"
	// EventPathFailed is emitted when the mesh could not serve a request.
	EventPathFailed logging.EventType = "navigation.path_failed"
	// EventCostPass is emitted after a hunter cost-shaping pass commits.
	EventCostPass logging.EventType = "navigation.cost_pass"
	// EventArcTableRebuilt is emitted when a new detour arc table publishes.
	EventArcTableRebuilt logging.EventType = "navigation.arc_table_rebuilt"
)

// PathPayload summarizes a completed or failed path computation.
type PathPayload struct {
	ObjectiveID string `json:"objectiveId,omitempty"`
	Waypoints   int    `json:"waypoints,omitempty"`
	Reason      string `json:"reason,omitempty"`
}

// CostPassPayload counts the nodes touched by one shaping pass.
type CostPassPayload struct {
	Penalized  int   `json:"penalized"`
	Cleared    int   `json:"cleared"`
	ThreatNode int64 `json:"threatNode"`
}

// ArcTablePayload describes a published detour ring table.
type ArcTablePayload struct {
	Samples       int     `json:"samples"`
	Circumference float64 `json:"circumference"`
}

// PathReady publishes a successful path completion.
func PathReady(ctx context.Context, pub logging.Publisher, tick uint64, actor logging.EntityRef, payload PathPayload, extra map[string]any) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     EventPathReady,
		Tick:     tick,
		Actor:    actor,
		Severity: logging.SeverityDebug,
		Category: logging.CategoryNavigation,
		Payload:  payload,
		Extra:    extra,
	})
}

// PathFailed publishes a failed path computation.
func PathFailed(ctx context.Context, pub logging.Publisher, tick uint64, actor logging.EntityRef, payload PathPayload, extra map[string]any) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     EventPathFailed,
		Tick:     tick,
		Actor:    actor,
		Severity: logging.SeverityWarn,
		Category: logging.CategoryNavigation,
		Payload:  payload,
		Extra:    extra,
	})
}

// CostPass publishes the summary of a committed cost-shaping pass.
func CostPass(ctx context.Context, pub logging.Publisher, tick uint64, payload CostPassPayload, extra map[string]any) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     EventCostPass,
		Tick:     tick,
		Actor:    logging.EntityRef{Kind: logging.EntityKindWorld},
		Severity: logging.SeverityDebug,
		Category: logging.CategoryNavigation,
		Payload:  payload,
		Extra:    extra,
	})
}

// ArcTableRebuilt publishes the arrival of a new detour ring table.
func ArcTableRebuilt(ctx context.Context, pub logging.Publisher, tick uint64, actor logging.EntityRef, payload ArcTablePayload, extra map[string]any) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     EventArcTableRebuilt,
		Tick:     tick,
		Actor:    actor,
		Severity: logging.SeverityDebug,
		Category: logging.CategoryNavigation,
		Payload:  payload,
		Extra:    extra,
	})
}
