package events

import "time"

// EventType names a kind of event flowing through the bus.
type EventType string

const (
	// PortfolioChanged fires whenever positions, cash balances, or security
	// active-state change — the trigger that invalidates the incremental
	// planner's cached sequences for the old portfolio hash.
	PortfolioChanged EventType = "portfolio_changed"
	// PriceUpdated fires on a new price tick for one or more symbols.
	PriceUpdated EventType = "price_updated"
	// PlanReady fires once an orchestrator run produces a new best plan.
	PlanReady EventType = "plan_ready"
)

// Event is the payload delivered to subscribers. Data carries event-specific
// fields (e.g. "symbols" for PriceUpdated); Module names the emitting
// component for logging. TypedData optionally carries a concrete struct
// (e.g. *JobStatusData) for subscribers that want more than a string map.
type Event struct {
	Type      EventType
	Timestamp time.Time
	Data      map[string]interface{}
	Module    string
	TypedData interface{}
}

// GetTypedData returns the event's typed payload, or nil if none was set.
func (e *Event) GetTypedData() interface{} {
	return e.TypedData
}
