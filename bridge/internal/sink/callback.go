package sink

import (
	"context"

	"github.com/hazyhaar/treebridge/bridge/wire"
)

// MessageFunc is called for each outbound envelope.
type MessageFunc func(ctx context.Context, msg wire.Message) error

// Callback delivers envelopes via a Go function call. This is the
// in-process path: when the logic context lives in the same binary it
// receives the typed message with no serialisation.
type Callback struct {
	fn MessageFunc
}

// NewCallback creates a Callback sink. fn may be nil.
func NewCallback(fn MessageFunc) *Callback {
	return &Callback{fn: fn}
}

func (c *Callback) Send(ctx context.Context, msg wire.Message) error {
	if c.fn != nil {
		return c.fn(ctx, msg)
	}
	return nil
}

func (c *Callback) Close() error { return nil }
