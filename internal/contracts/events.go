package contracts

import "time"

// EventType names an ingestion event pushed to live subscribers
type EventType string

const (
	EventStockUpdated    EventType = "stock_updated"
	EventWatchlistAdded  EventType = "watchlist_added"
	EventWatchlistPruned EventType = "watchlist_pruned"
	EventCycleCompleted  EventType = "cycle_completed"
)

// UpdateEvent is one notification about store changes
type UpdateEvent struct {
	Type    EventType   `json:"type"`
	CycleID string      `json:"cycle_id,omitempty"`
	Symbol  string      `json:"symbol,omitempty"`
	At      time.Time   `json:"at"`
	Data    interface{} `json:"data,omitempty"`
}

// Publisher receives update events; implementations must not block
type Publisher interface {
	Publish(event UpdateEvent)
}
