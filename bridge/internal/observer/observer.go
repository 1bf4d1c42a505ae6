// Package observer turns the document's change records into sanitized
// MutationRecord envelopes and ships them to the outbound sink.
//
// The observer has no goroutine of its own: the bridge loop feeds it
// records, selects on TimerC and calls Flush. Everything it touches
// (document, registry, style table) belongs to that loop.
package observer

import (
	"context"
	"log/slog"
	"time"

	"github.com/hazyhaar/treebridge/bridge/internal/registry"
	"github.com/hazyhaar/treebridge/bridge/internal/sanitize"
	"github.com/hazyhaar/treebridge/bridge/internal/sink"
	"github.com/hazyhaar/treebridge/dom"
)

// Stats counts the observer's work since Attach.
type Stats struct {
	Records int    // raw records observed
	Batches int    // debounced batches sanitized
	Dropped int    // records removed by the empty-list filter
	Sent    uint64 // envelopes handed to the sink (last sequence number)
	Failed  int    // sink errors
	Evicted int    // identities evicted for detached nodes
}

// Observer batches, sanitizes and emits change records.
type Observer struct {
	doc    *dom.Document
	reg    *registry.Registry
	san    *sanitize.Sanitizer
	sink   sink.Sink
	logger *slog.Logger

	evictRemoved bool
	debouncer    *debouncer

	// ctx is the bridge loop context, used by flushes the buffer triggers.
	ctx   context.Context
	seq   uint64
	stats Stats
}

// Config for creating an Observer.
type Config struct {
	Document       *dom.Document
	Registry       *registry.Registry
	Sanitizer      *sanitize.Sanitizer
	Sink           sink.Sink
	DebounceWindow time.Duration
	DebounceMax    int
	Compress       bool
	EvictRemoved   bool
	Logger         *slog.Logger
}

// New creates an Observer.
func New(cfg Config) *Observer {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	o := &Observer{
		doc:          cfg.Document,
		reg:          cfg.Registry,
		san:          cfg.Sanitizer,
		sink:         cfg.Sink,
		logger:       cfg.Logger,
		evictRemoved: cfg.EvictRemoved,
		ctx:          context.Background(),
	}
	o.debouncer = newDebouncer(debounceConfig{
		Window:    cfg.DebounceWindow,
		MaxBuffer: cfg.DebounceMax,
		Compress:  cfg.Compress,
	}, o.onFlush)
	return o
}

// Attach installs the observer on the document. Records are buffered until
// the debounce window expires or the buffer fills.
func (o *Observer) Attach(ctx context.Context) {
	o.ctx = ctx
	o.doc.Observe(o.add)
}

// Detach flushes pending records under ctx and disconnects from the
// document.
func (o *Observer) Detach(ctx context.Context) {
	o.ctx = ctx
	o.debouncer.flush()
	o.doc.Disconnect()
}

// TimerC fires when the pending batch is due. Nil when nothing is pending.
func (o *Observer) TimerC() <-chan time.Time { return o.debouncer.timerC() }

// Flush emits pending records now.
func (o *Observer) Flush() { o.debouncer.flush() }

// Pending returns the number of buffered records.
func (o *Observer) Pending() int { return o.debouncer.pending() }

// Stats returns the counters.
func (o *Observer) Stats() Stats { return o.stats }

func (o *Observer) add(rec dom.ChangeRecord) {
	o.stats.Records++
	o.debouncer.add(rec)
}

func (o *Observer) onFlush(records []dom.ChangeRecord) {
	o.stats.Batches++
	msg := o.san.Batch(records)
	o.stats.Dropped += len(records) - len(msg.Mutations)

	if o.evictRemoved {
		o.evict(records)
	}

	if len(msg.Mutations) == 0 {
		o.logger.Debug("observer: batch reduced to nothing", "records", len(records))
		return
	}

	o.seq++
	o.stats.Sent = o.seq
	if err := o.sink.Send(o.ctx, msg); err != nil {
		o.stats.Failed++
		o.logger.Error("observer: send batch failed", "seq", o.seq, "error", err)
		return
	}
	o.logger.Debug("observer: batch sent",
		"seq", o.seq,
		"records", len(records),
		"mutations", len(msg.Mutations),
	)
}

// evict forgets removed subtrees that are no longer in the document. It runs
// after sanitization so removal records still name their nodes. Protected
// nodes are kept: the logic context never saw them go.
func (o *Observer) evict(records []dom.ChangeRecord) {
	for _, rec := range records {
		for _, n := range rec.RemovedNodes {
			if o.doc.Contains(n) || o.san.Protected(n) {
				continue
			}
			o.stats.Evicted += o.reg.Evict(n)
		}
	}
}
