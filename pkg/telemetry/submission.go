package telemetry

import (
	"context"
	"errors"
)

// Submission is the tagged result of Submit. Handle is always set. Bootstrap
// is non-nil only for the first submission observed before initialization; the
// host must invoke it (or construct the client with WithBootstrap) for any
// queued event to ever be delivered.
type Submission struct {
	Handle    *Handle
	Bootstrap *Bootstrap
}

// Bootstrap is the deferred action that starts the one-time initialization
// handshake. It is handed to exactly one caller per client lifetime.
type Bootstrap struct {
	client *Client
	handle *Handle
}

// Run initializes the client against the collector with the given environment
// and schema, triggers a drain, and blocks until the originating submission's
// own event is delivered or rejected. Calling Run more than once is benign:
// initialization happens at most once.
func (b *Bootstrap) Run(ctx context.Context, environment string, schema map[string]any) error {
	if b == nil || b.client == nil {
		return errors.New("telemetry: bootstrap not bound to a client")
	}
	b.client.initialize(ctx, environment, schema)
	b.client.drain()
	return b.handle.Wait(ctx)
}
