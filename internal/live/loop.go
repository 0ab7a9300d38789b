// Package live runs the periodic refresh loop: it executes
// aggregation cycles on a timer, retries failures with exponential
// backoff, and fans results out to subscribers over channels.
package live

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/abelbrown/newsdesk/internal/agg"
	"github.com/abelbrown/newsdesk/internal/journal"
	"github.com/abelbrown/newsdesk/internal/logging"
	"github.com/abelbrown/newsdesk/internal/news"
)

const (
	defaultBaseDelay  = time.Second
	defaultMaxRetries = 5

	// cycleTimeout bounds a single aggregation cycle regardless of
	// per-request timeouts further down.
	cycleTimeout = 60 * time.Second

	subscriberBuffer = 16
)

// cycleFunc runs one aggregation cycle.
type cycleFunc func(ctx context.Context) (news.Snapshot, error)

// Options tunes the loop. Zero values pick production defaults; tests
// shrink BaseDelay to keep backoff fast.
type Options struct {
	Frequency  time.Duration
	BaseDelay  time.Duration
	MaxRetries int
	Journal    *journal.Journal
}

// Loop drives repeated aggregation cycles. At most one cycle runs at
// a time; a timer tick that lands while a cycle is in flight is
// skipped rather than queued.
type Loop struct {
	mu      sync.Mutex
	cycle   cycleFunc
	journal *journal.Journal

	baseDelay  time.Duration
	maxRetries int

	state      State
	freq       time.Duration
	retryCount int
	lastUpdate time.Time
	lastFresh  time.Time
	lastErr    string

	running bool
	timer   *time.Timer

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	subscribers map[string]chan Event
}

// NewLoop creates a stopped loop around cycle.
func NewLoop(cycle cycleFunc, opts Options) *Loop {
	if opts.Frequency <= 0 {
		opts.Frequency = FreqNormal
	}
	if opts.BaseDelay <= 0 {
		opts.BaseDelay = defaultBaseDelay
	}
	if opts.MaxRetries <= 0 {
		opts.MaxRetries = defaultMaxRetries
	}
	jrnl := opts.Journal
	if jrnl == nil {
		jrnl = journal.NewNull()
	}
	return &Loop{
		cycle:       cycle,
		journal:     jrnl,
		baseDelay:   opts.BaseDelay,
		maxRetries:  opts.MaxRetries,
		state:       StateStopped,
		freq:        opts.Frequency,
		subscribers: make(map[string]chan Event),
	}
}

// NewFromScheduler wraps an aggregation scheduler as the loop's
// cycle. A cycle where every source failed counts as an error so the
// retry ladder engages; an empty source list does not.
func NewFromScheduler(s *agg.Scheduler, opts Options) *Loop {
	return NewLoop(func(ctx context.Context) (news.Snapshot, error) {
		snap := s.FetchAll(ctx)
		if snap.Succeeded == 0 && snap.Failed > 0 {
			return snap, fmt.Errorf("all %d sources failed", snap.Failed)
		}
		return snap, nil
	}, opts)
}

// Start begins the refresh loop with an immediate first cycle. It is
// a no-op when the loop is already running.
func (l *Loop) Start() {
	l.mu.Lock()
	if l.state != StateStopped {
		l.mu.Unlock()
		return
	}
	l.ctx, l.cancel = context.WithCancel(context.Background())
	l.retryCount = 0
	l.setStateLocked(StateStarting)
	l.mu.Unlock()

	l.kick(false)
}

// Stop halts scheduling and cancels the in-flight cycle, if any.
func (l *Loop) Stop() {
	l.mu.Lock()
	if l.state == StateStopped {
		l.mu.Unlock()
		return
	}
	l.stopTimerLocked()
	if l.cancel != nil {
		l.cancel()
	}
	l.setStateLocked(StateStopped)
	l.mu.Unlock()
}

// Wait blocks until the in-flight cycle, if any, has finished.
func (l *Loop) Wait() {
	l.wg.Wait()
}

// State returns the current connection state.
func (l *Loop) State() State {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state
}

// Status returns a point-in-time status snapshot.
func (l *Loop) Status() Status {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.statusLocked()
}

// SetFrequency changes the interval used when scheduling future
// cycles. The in-flight cycle and the already-armed timer are not
// disturbed.
func (l *Loop) SetFrequency(freq time.Duration) {
	if freq <= 0 {
		return
	}
	l.mu.Lock()
	l.freq = freq
	l.mu.Unlock()
}

// SetVisible adjusts the refresh cadence to view visibility. A hidden
// view slows to the low frequency from the next scheduling decision;
// a view becoming visible returns to normal frequency and refreshes
// immediately unless the loop is stopped.
func (l *Loop) SetVisible(visible bool) {
	l.mu.Lock()
	if !visible {
		l.freq = FreqLow
		l.mu.Unlock()
		return
	}
	l.freq = FreqNormal
	stopped := l.state == StateStopped
	l.mu.Unlock()

	if !stopped {
		l.kick(false)
	}
}

// TriggerManualUpdate runs a cycle now. It works even while the loop
// is stopped, without restarting scheduled refreshes. A request that
// lands during an in-flight cycle is dropped.
func (l *Loop) TriggerManualUpdate() {
	l.mu.Lock()
	if l.running {
		l.mu.Unlock()
		return
	}
	if l.ctx == nil || l.ctx.Err() != nil {
		l.ctx, l.cancel = context.WithCancel(context.Background())
	}
	l.mu.Unlock()

	l.kick(true)
}

// Subscribe registers id for events. The returned channel is buffered;
// a subscriber that stops draining loses events rather than stalling
// the loop.
func (l *Loop) Subscribe(id string) <-chan Event {
	l.mu.Lock()
	defer l.mu.Unlock()

	if ch, ok := l.subscribers[id]; ok {
		return ch
	}
	ch := make(chan Event, subscriberBuffer)
	l.subscribers[id] = ch
	return ch
}

// SubscribeAuto registers under a generated id.
func (l *Loop) SubscribeAuto() (string, <-chan Event) {
	id := uuid.NewString()
	return id, l.Subscribe(id)
}

// Unsubscribe removes id and closes its channel. When the last
// subscriber leaves, the loop stops.
func (l *Loop) Unsubscribe(id string) {
	l.mu.Lock()
	ch, ok := l.subscribers[id]
	if ok {
		delete(l.subscribers, id)
		close(ch)
	}
	empty := len(l.subscribers) == 0
	l.mu.Unlock()

	if ok && empty {
		l.Stop()
	}
}

// kick starts a cycle goroutine unless one is already running. force
// bypasses the stopped-state check for manual updates.
func (l *Loop) kick(force bool) {
	l.mu.Lock()
	if l.running || (l.state == StateStopped && !force) {
		l.mu.Unlock()
		return
	}
	l.running = true
	ctx := l.ctx
	l.mu.Unlock()

	l.wg.Add(1)
	go func() {
		defer l.wg.Done()
		snap, err := l.safeCycle(ctx)
		l.finishCycle(snap, err)
	}()
}

// safeCycle runs the cycle under a bounded timeout and converts a
// panic into an ordinary error.
func (l *Loop) safeCycle(ctx context.Context) (snap news.Snapshot, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("cycle panicked: %v", r)
			logging.Error("refresh cycle panicked", "panic", r)
		}
	}()

	cctx, cancel := context.WithTimeout(ctx, cycleTimeout)
	defer cancel()
	return l.cycle(cctx)
}

func (l *Loop) finishCycle(snap news.Snapshot, err error) {
	now := time.Now()

	l.mu.Lock()
	defer l.mu.Unlock()
	l.running = false

	stopped := l.state == StateStopped

	if err != nil {
		l.lastErr = err.Error()
		l.journal.Emit(journal.Event{
			Level: journal.LevelError,
			Kind:  journal.KindCycleError,
			Comp:  "live",
			Err:   err.Error(),
		})

		if stopped {
			// Manual update failed; no retry ladder while stopped.
			l.publishLocked(Event{Type: EventError, Err: err.Error(), Timestamp: now})
			return
		}

		l.retryCount++
		if l.retryCount > l.maxRetries {
			logging.Error("refresh loop giving up", "retries", l.retryCount-1, "error", err)
			l.publishLocked(Event{Type: EventError, Err: l.lastErr, Timestamp: now})
			l.stopTimerLocked()
			if l.cancel != nil {
				l.cancel()
			}
			l.setStateLocked(StateStopped)
			return
		}

		delay := l.baseDelay * (1 << l.retryCount)
		logging.Warn("refresh cycle failed", "retry", l.retryCount, "delay", delay, "error", err)
		l.setStateLocked(StateRetrying)
		l.scheduleLocked(delay)
		return
	}

	l.retryCount = 0
	l.lastErr = ""
	l.lastUpdate = now
	if !stopped {
		l.setStateLocked(StateConnected)
	}

	if fresh := snap.Freshest(); fresh.After(l.lastFresh) {
		l.lastFresh = fresh
		published := snap
		l.publishLocked(Event{Type: EventNews, Snapshot: &published, Timestamp: now})
	}

	if !stopped {
		l.scheduleLocked(l.freq)
	}
}

func (l *Loop) scheduleLocked(d time.Duration) {
	l.stopTimerLocked()
	l.timer = time.AfterFunc(d, func() { l.kick(false) })
}

func (l *Loop) stopTimerLocked() {
	if l.timer != nil {
		l.timer.Stop()
		l.timer = nil
	}
}

func (l *Loop) statusLocked() Status {
	return Status{
		State:      l.state,
		Connected:  l.state == StateConnected,
		LastUpdate: l.lastUpdate,
		RetryCount: l.retryCount,
		Err:        l.lastErr,
	}
}

func (l *Loop) setStateLocked(state State) {
	if l.state == state {
		return
	}
	l.state = state
	l.journal.Emit(journal.Event{
		Level: journal.LevelInfo,
		Kind:  journal.KindLoopState,
		Comp:  "live",
		Msg:   string(state),
	})

	status := l.statusLocked()
	l.publishLocked(Event{Type: EventStatus, Status: &status, Timestamp: time.Now()})
}

// publishLocked delivers e to every subscriber without blocking.
// Subscribers with full buffers miss the event.
func (l *Loop) publishLocked(e Event) {
	for id, ch := range l.subscribers {
		select {
		case ch <- e:
		default:
			l.journal.Emit(journal.Event{
				Level: journal.LevelWarn,
				Kind:  journal.KindEventDropped,
				Comp:  "live",
				Msg:   id,
			})
		}
	}
}
