package journal

// Goroutine safety: the drain goroutine is the sole reader of j.ch and
// the sole writer to j.w. Journal.mu protects only the ring pointer.
// The ring buffer's own mutex handles concurrent Push/Snapshot calls.

import (
	"crypto/rand"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"
	"sync/atomic"
	"time"
)

// chanSize is the capacity of the async write channel. Emit never
// blocks the pipeline; a full channel drops the event instead.
const chanSize = 2048

type entry struct {
	data []byte
	ev   Event
}

// Journal serializes events as JSONL via an async background writer.
// Goroutine-safe.
type Journal struct {
	mu        sync.Mutex
	ring      *RingBuffer // nil until SetRingBuffer
	sessionID string
	ch        chan entry
	w         io.Writer
	dropped   atomic.Uint64
	closed    atomic.Bool
	done      chan struct{}
	closeOnce sync.Once
}

// New creates a Journal writing JSONL to w asynchronously.
// Call Close to flush and stop the drain goroutine.
func New(w io.Writer) *Journal {
	var sid [8]byte
	_, _ = rand.Read(sid[:])

	j := &Journal{
		sessionID: fmt.Sprintf("%x", sid[:]),
		ch:        make(chan entry, chanSize),
		w:         w,
		done:      make(chan struct{}),
	}
	go j.drain()
	return j
}

// NewNull creates a Journal that discards output. Still call Close to
// stop the drain goroutine.
func NewNull() *Journal {
	return New(io.Discard)
}

func (j *Journal) drain() {
	defer close(j.done)
	for e := range j.ch {
		if _, err := j.w.Write(e.data); err != nil {
			j.dropped.Add(1)
		}

		j.mu.Lock()
		ring := j.ring
		j.mu.Unlock()

		if ring != nil {
			ring.Push(e.ev)
		}
	}
}

// Emit records an event. Sets Time (if zero), SessionID, and DurMS.
// Non-blocking: events are dropped when the channel is full or the
// journal is closed. Safe to call concurrently with Close; a racing
// send on the closed channel is recovered and counted as a drop.
func (j *Journal) Emit(e Event) {
	defer func() {
		if recover() != nil {
			j.dropped.Add(1)
		}
	}()

	if j.closed.Load() {
		j.dropped.Add(1)
		return
	}

	if e.Time.IsZero() {
		e.Time = time.Now()
	}
	e.SessionID = j.sessionID
	if e.Dur > 0 {
		e.DurMS = e.Dur.Milliseconds()
	}

	data, err := json.Marshal(e)
	if err != nil {
		j.dropped.Add(1)
		return
	}
	data = append(data, '\n')

	select {
	case j.ch <- entry{data: data, ev: e}:
	default:
		j.dropped.Add(1)
	}
}

// SetRingBuffer attaches a ring buffer for live inspection.
func (j *Journal) SetRingBuffer(ring *RingBuffer) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.ring = ring
}

// Dropped returns the number of events dropped since creation.
func (j *Journal) Dropped() uint64 {
	return j.dropped.Load()
}

// Close flushes pending events and stops the drain goroutine.
// Emit calls racing Close are dropped, never panicked.
func (j *Journal) Close() {
	j.closeOnce.Do(func() {
		j.closed.Store(true)
		close(j.ch)
		<-j.done

		if d := j.dropped.Load(); d > 0 {
			fmt.Fprintf(os.Stderr, "newsdesk: %d journal events dropped during session %s\n", d, j.sessionID)
		}
	})
}
