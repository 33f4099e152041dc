package telemetry

import (
	"context"
	"sync"
)

// Handle reports the eventual delivery outcome of one submitted event. It is
// resolved exactly once; a nil error means the event reached the collector.
type Handle struct {
	once sync.Once
	done chan struct{}
	err  error
}

func newHandle() *Handle {
	return &Handle{done: make(chan struct{})}
}

func (h *Handle) resolve(err error) {
	h.once.Do(func() {
		h.err = err
		close(h.done)
	})
}

// Done is closed once the outcome is known.
func (h *Handle) Done() <-chan struct{} {
	return h.done
}

// Err returns the outcome. Only valid after Done is closed.
func (h *Handle) Err() error {
	return h.err
}

// Wait blocks until the outcome is known or the context ends.
func (h *Handle) Wait(ctx context.Context) error {
	select {
	case <-h.done:
		return h.err
	case <-ctx.Done():
		return ctx.Err()
	}
}
