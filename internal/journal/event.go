// Package journal records structured pipeline events as JSONL, with an
// optional ring buffer for live inspection from the debug view.
//
// The journal answers "what did the fetch pipeline actually do" without
// grepping human-oriented logs: every relay attempt, cache hit, cycle
// summary, and loop state change lands here as a typed event.
package journal

import "time"

// Level is the event severity.
type Level string

const (
	LevelDebug Level = "debug"
	LevelInfo  Level = "info"
	LevelWarn  Level = "warn"
	LevelError Level = "error"
)

// Kind identifies what happened.
type Kind string

const (
	KindRelayAttempt     Kind = "relay_attempt"
	KindRelayRateLimited Kind = "relay_rate_limited"
	KindSourceFetch      Kind = "source_fetch"
	KindSourceCacheHit   Kind = "source_cache_hit"
	KindSourceEmpty      Kind = "source_empty"
	KindCycle            Kind = "cycle"
	KindCycleError       Kind = "cycle_error"
	KindLoopState        Kind = "loop_state"
	KindEventDropped     Kind = "event_dropped"
)

// Event is one journal record. Zero-valued optional fields are omitted
// from the JSONL encoding to keep lines short.
type Event struct {
	Time      time.Time `json:"t"`
	SessionID string    `json:"sid,omitempty"`
	Level     Level     `json:"lvl"`
	Kind      Kind      `json:"kind"`
	Comp      string    `json:"comp"`
	Source    string    `json:"src,omitempty"`
	Relay     string    `json:"relay,omitempty"`
	Msg       string    `json:"msg,omitempty"`
	Err       string    `json:"err,omitempty"`
	Count     int       `json:"n,omitempty"`

	// Dur is kept off the wire; DurMS is the serialized form.
	Dur   time.Duration `json:"-"`
	DurMS int64         `json:"ms,omitempty"`
}
