package telemetry

import "sync"

// pendingRequest pairs an event with its completion handle while it waits for
// the instance to become ready. The queue owns entries from push until they
// are handed to dispatch; only the submitting caller consumes the handle.
type pendingRequest struct {
	id     string
	event  Event
	handle *Handle
}

// submissionQueue holds events submitted before initialization completed, in
// arrival order. It is bounded; overflow rejects the new entry, never evicts
// an accepted one.
type submissionQueue struct {
	mu       sync.Mutex
	entries  []pendingRequest
	draining bool
	max      int
}

func newSubmissionQueue(max int) *submissionQueue {
	if max <= 0 {
		max = defaultMaxQueued
	}
	return &submissionQueue{max: max}
}

func (q *submissionQueue) push(p pendingRequest) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.entries) >= q.max {
		return ErrQueueFull
	}
	q.entries = append(q.entries, p)
	return nil
}

func (q *submissionQueue) len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.entries)
}

// drain removes entries in FIFO order and hands each to dispatch. At most one
// drain pass runs at a time; a call that finds a pass in progress, or an
// empty queue, returns immediately. The guard is only released once the queue
// is observed empty, so every entry present when a pass starts is dispatched
// by that pass.
func (q *submissionQueue) drain(dispatch func(pendingRequest)) {
	q.mu.Lock()
	if q.draining || len(q.entries) == 0 {
		q.mu.Unlock()
		return
	}
	q.draining = true
	for len(q.entries) > 0 {
		head := q.entries[0]
		q.entries = q.entries[1:]
		q.mu.Unlock()
		dispatch(head)
		q.mu.Lock()
	}
	q.draining = false
	q.mu.Unlock()
}

// rejectAll removes every queued entry and resolves its handle with err.
func (q *submissionQueue) rejectAll(err error) {
	q.mu.Lock()
	rejected := q.entries
	q.entries = nil
	q.mu.Unlock()
	for _, p := range rejected {
		p.handle.resolve(err)
	}
}
