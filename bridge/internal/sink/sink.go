// Package sink defines the outbound backends that carry sanitized mutation
// batches to the logic context.
package sink

import (
	"context"

	"github.com/hazyhaar/treebridge/bridge/wire"
)

// Sink is the output interface. Implementations deliver envelopes to
// different backends (stdout, webhook, journal, in-process callback).
type Sink interface {
	Send(ctx context.Context, msg wire.Message) error
	Close() error
}
