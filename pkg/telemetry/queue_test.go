package telemetry

import (
	"errors"
	"fmt"
	"testing"
	"time"
)

func pending(path string) pendingRequest {
	return pendingRequest{id: path, event: Event{Method: "GET", Path: path}, handle: newHandle()}
}

func TestQueueDrainRemovesInArrivalOrder(t *testing.T) {
	q := newSubmissionQueue(10)
	for i := 0; i < 5; i++ {
		if err := q.push(pending(fmt.Sprintf("/r%d", i))); err != nil {
			t.Fatalf("push %d: %v", i, err)
		}
	}

	var order []string
	q.drain(func(p pendingRequest) {
		order = append(order, p.event.Path)
	})

	if q.len() != 0 {
		t.Fatalf("expected empty queue after drain, got %d", q.len())
	}
	for i, path := range order {
		if want := fmt.Sprintf("/r%d", i); path != want {
			t.Fatalf("entry %d drained out of order: got %s want %s", i, path, want)
		}
	}
	if len(order) != 5 {
		t.Fatalf("expected 5 dispatches, got %d", len(order))
	}
}

func TestQueueDrainIsMutuallyExclusive(t *testing.T) {
	q := newSubmissionQueue(10)
	for i := 0; i < 3; i++ {
		if err := q.push(pending(fmt.Sprintf("/r%d", i))); err != nil {
			t.Fatalf("push: %v", err)
		}
	}

	entered := make(chan struct{})
	release := make(chan struct{})
	dispatched := make(chan string, 8)

	go q.drain(func(p pendingRequest) {
		dispatched <- p.event.Path
		if p.event.Path == "/r0" {
			close(entered)
			<-release
		}
	})

	<-entered
	// First pass is mid-dispatch; this call must bounce off the guard without
	// touching the queue.
	q.drain(func(p pendingRequest) {
		t.Errorf("second drain pass dispatched %s", p.event.Path)
	})
	if got := q.len(); got != 2 {
		t.Fatalf("redundant drain changed queue length: %d", got)
	}
	close(release)

	deadline := time.After(2 * time.Second)
	for i := 0; i < 3; i++ {
		select {
		case <-dispatched:
		case <-deadline:
			t.Fatal("drain did not finish")
		}
	}
	if q.len() != 0 {
		t.Fatalf("expected queue emptied, got %d", q.len())
	}
}

func TestQueuePickUpEntriesAddedDuringDrain(t *testing.T) {
	q := newSubmissionQueue(10)
	if err := q.push(pending("/first")); err != nil {
		t.Fatalf("push: %v", err)
	}

	var order []string
	q.drain(func(p pendingRequest) {
		order = append(order, p.event.Path)
		if p.event.Path == "/first" {
			if err := q.push(pending("/late")); err != nil {
				t.Fatalf("push during drain: %v", err)
			}
		}
	})

	if len(order) != 2 || order[1] != "/late" {
		t.Fatalf("expected drain to pick up late entry, got %v", order)
	}
}

func TestQueueRejectsWhenFull(t *testing.T) {
	q := newSubmissionQueue(2)
	if err := q.push(pending("/a")); err != nil {
		t.Fatalf("push: %v", err)
	}
	if err := q.push(pending("/b")); err != nil {
		t.Fatalf("push: %v", err)
	}
	err := q.push(pending("/c"))
	if !errors.Is(err, ErrQueueFull) {
		t.Fatalf("expected ErrQueueFull, got %v", err)
	}
	if q.len() != 2 {
		t.Fatalf("overflow disturbed queued entries: %d", q.len())
	}
}

func TestQueueRejectAllResolvesEveryHandle(t *testing.T) {
	q := newSubmissionQueue(10)
	handles := make([]*Handle, 0, 3)
	for i := 0; i < 3; i++ {
		p := pending(fmt.Sprintf("/r%d", i))
		handles = append(handles, p.handle)
		if err := q.push(p); err != nil {
			t.Fatalf("push: %v", err)
		}
	}

	q.rejectAll(ErrInitializationFailed)

	if q.len() != 0 {
		t.Fatalf("expected queue cleared, got %d", q.len())
	}
	for i, h := range handles {
		select {
		case <-h.Done():
		default:
			t.Fatalf("handle %d not resolved", i)
		}
		if !errors.Is(h.Err(), ErrInitializationFailed) {
			t.Fatalf("handle %d resolved with %v", i, h.Err())
		}
	}
}

func TestHandleResolvesExactlyOnce(t *testing.T) {
	h := newHandle()
	first := errors.New("first")
	h.resolve(first)
	h.resolve(errors.New("second"))
	if !errors.Is(h.Err(), first) {
		t.Fatalf("expected first resolution to win, got %v", h.Err())
	}
}
