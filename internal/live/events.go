package live

import (
	"time"

	"github.com/abelbrown/newsdesk/internal/news"
)

// State is the connection state of the refresh loop.
type State string

const (
	StateStopped   State = "stopped"
	StateStarting  State = "starting"
	StateConnected State = "connected"
	StateRetrying  State = "retrying"
)

// Refresh intervals. Low is used while the view is hidden.
const (
	FreqHigh   = 2 * time.Minute
	FreqNormal = 5 * time.Minute
	FreqLow    = 10 * time.Minute
)

// EventType tags events delivered to subscribers.
type EventType string

const (
	EventNews   EventType = "news_update"
	EventStatus EventType = "connection_status"
	EventError  EventType = "error"
)

// Status describes the loop at a point in time.
type Status struct {
	State      State
	Connected  bool
	LastUpdate time.Time
	RetryCount int
	Err        string
}

// Event is one notification to a subscriber. Exactly one of Snapshot
// and Status is set for news and status events; Err carries the
// message for error events.
type Event struct {
	Type      EventType
	Snapshot  *news.Snapshot
	Status    *Status
	Err       string
	Timestamp time.Time
}
