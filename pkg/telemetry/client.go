// Package telemetry buffers request-observation events and ships them to the
// Yelix collector. All network traffic is gated behind a one-time instance
// registration: events submitted before registration completes are queued in
// arrival order and drained once the instance is ready.
package telemetry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/yelix-cloud/yelix-sdk-go/internal/transport"
	"github.com/yelix-cloud/yelix-sdk-go/pkg/config"
	"github.com/yelix-cloud/yelix-sdk-go/pkg/logger"
)

const defaultMaxQueued = 1024

// ErrQueueFull indicates the submission was rejected because too many events
// are already waiting for initialization to complete.
var ErrQueueFull = errors.New("telemetry: submission queue full")

// ErrInitializationFailed indicates instance registration failed; the client
// permanently refuses delivery.
var ErrInitializationFailed = errors.New("telemetry: initialization failed")

// ErrInvalidEvent indicates the event violates the data model (negative duration).
var ErrInvalidEvent = errors.New("telemetry: invalid event")

type state int

const (
	stateUninitialized state = iota
	stateInitializing
	stateReady
	stateFailed
)

func (s state) String() string {
	switch s {
	case stateUninitialized:
		return "uninitialized"
	case stateInitializing:
		return "initializing"
	case stateReady:
		return "ready"
	case stateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Collector abstracts the wire protocol to the Yelix collector.
type Collector interface {
	RegisterInstance(ctx context.Context, reg transport.Registration) (string, error)
	Deliver(ctx context.Context, instanceID string, ev transport.Event) <-chan error
}

// Client is the host-facing telemetry entry point. A single Client owns its
// lifecycle state and submission queue exclusively; hosts interact only
// through Submit and the handles it returns.
type Client struct {
	mu              sync.Mutex
	state           state
	instanceID      string
	bootstrapIssued bool

	collector  Collector
	queue      *submissionQueue
	logger     *slog.Logger
	metrics    *metricsSet
	newEventID func() string
	now        func() time.Time

	httpClient    *http.Client
	autoBootstrap bool
	autoEnv       string
	autoSchema    map[string]any
}

// Option customises client construction.
type Option func(*Client)

// WithLogger sets the diagnostics sink. Without it diagnostics are dropped.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithHTTPClient overrides the HTTP client used for collector calls.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) {
		if h != nil {
			c.httpClient = h
		}
	}
}

// WithBootstrap puts the client in auto-bootstrap mode: the first submission
// starts initialization in the background with the given environment and
// schema, so hosts never have to invoke the returned Bootstrap themselves.
func WithBootstrap(environment string, schema map[string]any) Option {
	return func(c *Client) {
		c.autoBootstrap = true
		c.autoEnv = environment
		c.autoSchema = schema
	}
}

// New constructs a Client from configuration. A missing API key or collector
// URL is a configuration error: no client is constructed.
func New(cfg config.SDKConfig, opts ...Option) (*Client, error) {
	c := &Client{
		state:      stateUninitialized,
		queue:      newSubmissionQueue(cfg.MaxQueued),
		logger:     logger.Discard(),
		newEventID: uuid.NewString,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	base := c.logger
	c.logger = base.With("component", "telemetry")
	if c.httpClient == nil && cfg.RequestTimeout > 0 {
		c.httpClient = &http.Client{Timeout: cfg.RequestTimeout}
	}

	collector, err := transport.NewCollector(cfg.CollectorURL, cfg.APIKey, cfg.TokenTTL, c.httpClient, base)
	if err != nil {
		return nil, fmt.Errorf("telemetry: %w", err)
	}
	c.collector = collector
	if cfg.MetricsEnabled {
		c.metrics = newMetricsSet()
	}
	return c, nil
}

// Submit records one observed request. It never blocks: the returned
// Submission carries a Handle that resolves with the delivery outcome, and,
// for the very first submission before initialization, the Bootstrap action
// the host must run to start the handshake.
func (c *Client) Submit(ev Event) Submission {
	handle := newHandle()
	if ev.Duration < 0 {
		handle.resolve(fmt.Errorf("%w: negative duration %v", ErrInvalidEvent, ev.Duration))
		return Submission{Handle: handle}
	}
	p := pendingRequest{id: c.newEventID(), event: ev, handle: handle}

	c.mu.Lock()
	switch c.state {
	case stateReady:
		c.mu.Unlock()
		c.metrics.recordSubmitted(c.queue.len())
		c.dispatch(p)
		return Submission{Handle: handle}

	case stateFailed:
		c.mu.Unlock()
		c.logger.Warn("event rejected, instance initialization previously failed", "event_id", p.id)
		handle.resolve(ErrInitializationFailed)
		return Submission{Handle: handle}

	default: // uninitialized or initializing
		if err := c.queue.push(p); err != nil {
			c.mu.Unlock()
			c.logger.Warn("event rejected, queue full", "event_id", p.id)
			handle.resolve(err)
			return Submission{Handle: handle}
		}
		var boot *Bootstrap
		if c.state == stateUninitialized && !c.bootstrapIssued {
			c.bootstrapIssued = true
			boot = &Bootstrap{client: c, handle: handle}
		}
		c.mu.Unlock()

		c.metrics.recordSubmitted(c.queue.len())
		c.logger.Info("event queued pending initialization", "event_id", p.id, "queued", c.queue.len())

		if boot != nil && c.autoBootstrap {
			go func(b *Bootstrap) {
				if err := b.Run(context.Background(), c.autoEnv, c.autoSchema); err != nil {
					c.logger.Warn("auto bootstrap finished with error", "error", err)
				}
			}(boot)
			return Submission{Handle: handle}
		}
		return Submission{Handle: handle, Bootstrap: boot}
	}
}

// initialize performs the one-time registration handshake. Calls made while
// the state is anything but uninitialized are benign no-ops; the transition
// into initializing happens under the lock, before the network call starts,
// so two racing callers can never both fire the handshake. Failures are
// contained here: they surface only through queued handles, never as a return
// value.
func (c *Client) initialize(ctx context.Context, environment string, schema map[string]any) {
	c.mu.Lock()
	if c.state != stateUninitialized {
		current := c.state
		c.mu.Unlock()
		c.logger.Warn("initialize ignored", "state", current.String())
		return
	}
	c.state = stateInitializing
	c.mu.Unlock()
	c.logger.Info("registering instance", "environment", environment)

	instanceID, err := c.collector.RegisterInstance(ctx, transport.Registration{
		Environment: environment,
		Schema:      schema,
	})
	if err != nil {
		c.mu.Lock()
		c.state = stateFailed
		c.mu.Unlock()
		c.logger.Error("instance registration failed", "error", err)
		c.queue.rejectAll(fmt.Errorf("%w: %w", ErrInitializationFailed, err))
		c.metrics.recordQueueDepth(0)
		return
	}

	c.mu.Lock()
	c.state = stateReady
	c.instanceID = instanceID
	c.mu.Unlock()
	c.logger.Info("instance ready", "instance_id", instanceID)
	c.drain()
}

// drain delivers queued events once the instance is ready. Safe to call at
// any time; it is a no-op unless the state is ready and the queue non-empty.
func (c *Client) drain() {
	c.mu.Lock()
	ready := c.state == stateReady
	c.mu.Unlock()
	if !ready {
		return
	}
	c.queue.drain(c.dispatch)
	c.metrics.recordQueueDepth(c.queue.len())
}

// dispatch issues one delivery call. Calls are issued synchronously in the
// order dispatch is invoked; completion is awaited on a separate goroutine so
// a slow or failing delivery never holds up the next one.
func (c *Client) dispatch(p pendingRequest) {
	c.mu.Lock()
	instanceID := c.instanceID
	c.mu.Unlock()

	started := c.now()
	done := c.collector.Deliver(context.Background(), instanceID, transport.Event{
		EventID:    p.id,
		Method:     p.event.Method,
		Path:       p.event.Path,
		DurationMS: p.event.Duration,
		StartTime:  p.event.StartTime,
	})
	go func() {
		err := <-done
		c.metrics.recordOutcome(err, c.now().Sub(started))
		if err != nil {
			c.logger.Warn("event delivery failed", "event_id", p.id, "error", err)
		} else {
			c.logger.Info("event delivered", "event_id", p.id)
		}
		p.handle.resolve(err)
	}()
}
