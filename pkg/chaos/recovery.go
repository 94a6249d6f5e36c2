package chaos

import (
	"sync"
	"time"
)

// recoveryQueue tracks the pending recovery timer of each active event.
// Cancellation on disable keeps stale callbacks from firing after the
// harness dropped the events they reference.
type recoveryQueue struct {
	mu     sync.Mutex
	timers map[string]*time.Timer
}

func newRecoveryQueue() *recoveryQueue {
	return &recoveryQueue{
		timers: make(map[string]*time.Timer),
	}
}

// Schedule arms a timer for the event. The callback runs once after the
// delay unless the event is cancelled first.
func (q *recoveryQueue) Schedule(eventID string, delay time.Duration, fire func()) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if existing, ok := q.timers[eventID]; ok {
		existing.Stop()
	}
	q.timers[eventID] = time.AfterFunc(delay, func() {
		q.mu.Lock()
		delete(q.timers, eventID)
		q.mu.Unlock()
		fire()
	})
}

// Cancel stops the timer for the event, if one is still pending.
func (q *recoveryQueue) Cancel(eventID string) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if timer, ok := q.timers[eventID]; ok {
		timer.Stop()
		delete(q.timers, eventID)
	}
}

// CancelAll stops every pending timer.
func (q *recoveryQueue) CancelAll() {
	q.mu.Lock()
	defer q.mu.Unlock()

	for id, timer := range q.timers {
		timer.Stop()
		delete(q.timers, id)
	}
}

// Pending returns the number of armed timers.
func (q *recoveryQueue) Pending() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.timers)
}
