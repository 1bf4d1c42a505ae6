// Package bridge keeps a live tree owned by the render host synchronized
// with a logic context that runs against a private replica of it.
//
// Outbound, the document's change records are batched, sanitized into
// identity-stable MutationRecord envelopes and fanned out to sinks.
// Inbound, init, event and return messages are applied to the live tree.
//
// A Bridge runs one loop goroutine that owns the document, the identity
// registry and the style table. Deliver and Update queue work onto that
// loop, so none of them need locking and no two sanitization passes ever
// interleave.
package bridge

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/hazyhaar/treebridge/bridge/internal/observer"
	"github.com/hazyhaar/treebridge/bridge/internal/registry"
	"github.com/hazyhaar/treebridge/bridge/internal/sanitize"
	"github.com/hazyhaar/treebridge/bridge/internal/sink"
	"github.com/hazyhaar/treebridge/bridge/wire"
	"github.com/hazyhaar/treebridge/dom"
	"github.com/hazyhaar/treebridge/idgen"
	"github.com/hazyhaar/treebridge/journal"
)

var (
	// ErrStopped is returned for work submitted after Stop or after the
	// Start context ended.
	ErrStopped = errors.New("bridge: stopped")
	// ErrNotStarted is returned for work submitted before Start.
	ErrNotStarted = errors.New("bridge: not started")
)

// teardownTimeout bounds the final flush at Stop.
const teardownTimeout = 5 * time.Second

// Bridge is the render-host side of the channel.
type Bridge struct {
	cfg     *Config
	doc     *dom.Document
	reg     *registry.Registry
	styles  *sanitize.StyleTable
	obs     *observer.Observer
	router  *router
	sinks   *sink.Router
	journal *journal.Journal
	logger  *slog.Logger
	session string

	reqs    chan request
	quit    chan struct{}
	done    chan struct{}
	started chan struct{}

	mu    sync.Mutex
	state state
}

type state int

const (
	stateNew state = iota
	stateRunning
	stateStopped
)

type request struct {
	fn   func() error
	errc chan error
}

// Option configures a Bridge.
type Option func(*options)

type options struct {
	logger  *slog.Logger
	eval    Evaluator
	sinks   []Sink
	journal *journal.Journal
	session string
}

// WithLogger sets the logger. Default: slog.Default().
func WithLogger(l *slog.Logger) Option { return func(o *options) { o.logger = l } }

// WithEvaluator sets the evaluator return messages are forwarded to.
func WithEvaluator(e Evaluator) Option { return func(o *options) { o.eval = e } }

// WithSinks adds outbound sinks.
func WithSinks(s ...Sink) Option { return func(o *options) { o.sinks = append(o.sinks, s...) } }

// WithJournal records inbound messages into j. Add j.Sink() to the sinks to
// record outbound envelopes as well.
func WithJournal(j *journal.Journal) Option { return func(o *options) { o.journal = j } }

// WithSession sets the session id. Default: the journal's session, else a
// fresh UUIDv7.
func WithSession(id string) Option { return func(o *options) { o.session = id } }

// New creates a Bridge over doc. A nil cfg uses DefaultConfig.
func New(doc *dom.Document, cfg *Config, opts ...Option) *Bridge {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	o := options{}
	for _, fn := range opts {
		fn(&o)
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}
	if o.session == "" && o.journal != nil {
		o.session = o.journal.Session()
	}
	if o.session == "" {
		o.session = idgen.Default()
	}
	logger := o.logger.With("session", o.session)

	reg := registry.New(doc.Body)
	styles := sanitize.NewStyleTable()
	san := sanitize.New(sanitize.Config{
		Registry:  reg,
		Styles:    styles,
		Listeners: doc,
		Body:      doc.Body,
		BodyTag:   cfg.Tags.Body,
		StyleTag:  cfg.Tags.Style,
	})
	sinks := sink.NewRouter(logger, o.sinks...)

	b := &Bridge{
		cfg:     cfg,
		doc:     doc,
		reg:     reg,
		styles:  styles,
		sinks:   sinks,
		journal: o.journal,
		logger:  logger,
		session: o.session,
		reqs:    make(chan request),
		quit:    make(chan struct{}),
		done:    make(chan struct{}),
		started: make(chan struct{}),
	}
	b.obs = observer.New(observer.Config{
		Document:       doc,
		Registry:       reg,
		Sanitizer:      san,
		Sink:           sinks,
		DebounceWindow: cfg.Debounce.Window,
		DebounceMax:    cfg.Debounce.MaxBuffer,
		Compress:       cfg.Debounce.Compress,
		EvictRemoved:   cfg.Registry.EvictRemoved,
		Logger:         logger,
	})
	b.router = newRouter(doc, reg, cfg.PointerPrefix, o.eval, logger)

	if cfg.Document.URL != "" {
		doc.SetURL(cfg.Document.URL)
	}
	if cfg.Document.Width > 0 {
		doc.SetClientWidth(cfg.Document.Width)
	}
	return b
}

// Session returns the bridge session id.
func (b *Bridge) Session() string { return b.session }

// Start attaches the observer and runs the loop until ctx ends or Stop is
// called. Starting a running or stopped bridge is a no-op.
func (b *Bridge) Start(ctx context.Context) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.state != stateNew {
		return
	}
	b.state = stateRunning
	b.obs.Attach(ctx)
	close(b.started)
	go b.loop(ctx)
	b.logger.Info("bridge: started",
		"url", b.doc.URL(),
		"sinks", b.sinks.Len(),
		"debounce", b.cfg.Debounce.Window,
	)
}

// Stop flushes pending records, disconnects the observer, releases the
// registry and style table and closes the sinks. It blocks until the loop
// has exited. Stop on a bridge that was never started only closes sinks.
func (b *Bridge) Stop() {
	b.mu.Lock()
	prev := b.state
	b.state = stateStopped
	switch prev {
	case stateNew:
		close(b.done)
	case stateRunning:
		close(b.quit)
	}
	b.mu.Unlock()
	if prev == stateStopped {
		return
	}

	<-b.done
	if err := b.sinks.Close(); err != nil {
		b.logger.Warn("bridge: close sinks", "error", err)
	}
	b.logger.Info("bridge: stopped")
}

// Done is closed once the bridge has stopped.
func (b *Bridge) Done() <-chan struct{} { return b.done }

func (b *Bridge) loop(ctx context.Context) {
	defer close(b.done)
	for {
		select {
		case <-ctx.Done():
			b.teardown(ctx)
			return
		case <-b.quit:
			b.teardown(ctx)
			return
		case req := <-b.reqs:
			req.errc <- req.fn()
		case <-b.obs.TimerC():
			b.obs.Flush()
		}
	}
}

func (b *Bridge) teardown(ctx context.Context) {
	fctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), teardownTimeout)
	defer cancel()
	b.obs.Detach(fctx)
	st := b.obs.Stats()
	b.logger.Info("bridge: released",
		"nodes", b.reg.Len(),
		"styles", b.styles.Len(),
		"batches", st.Batches,
		"sent", st.Sent,
	)
	b.reg.Release()
	b.styles.Release()
}

// do runs fn on the loop with the caller's context and waits for its
// result.
func (b *Bridge) do(ctx context.Context, fn func(ctx context.Context) error) error {
	select {
	case <-b.started:
	default:
		select {
		case <-b.done:
			return ErrStopped
		default:
			return ErrNotStarted
		}
	}
	req := request{fn: func() error { return fn(ctx) }, errc: make(chan error, 1)}
	select {
	case b.reqs <- req:
	case <-b.done:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case err := <-req.errc:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Deliver applies one inbound message from the logic context. With a
// journal configured the message is recorded on the loop first, so journal
// order is application order.
func (b *Bridge) Deliver(ctx context.Context, msg wire.Message) error {
	return b.do(ctx, func(ctx context.Context) error {
		return b.apply(ctx, msg)
	})
}

func (b *Bridge) apply(ctx context.Context, msg wire.Message) error {
	if b.journal != nil {
		if err := b.journal.Record(ctx, journal.Inbound, msg); err != nil {
			b.logger.Warn("bridge: journal inbound", "type", msg.Type, "error", err)
		}
	}
	return b.router.handle(ctx, msg)
}

// Update runs fn against the live tree on the loop. Mutations fn makes are
// observed and batched like any other host change.
func (b *Bridge) Update(ctx context.Context, fn func(doc *dom.Document) error) error {
	return b.do(ctx, func(context.Context) error {
		return fn(b.doc)
	})
}

// Flush emits pending change records without waiting for the debounce
// window.
func (b *Bridge) Flush(ctx context.Context) error {
	return b.do(ctx, func(context.Context) error {
		b.obs.Flush()
		return nil
	})
}

// Replay re-delivers a journaled session's inbound messages in order. They
// are journaled again under the current session, so a replayed session can
// itself be replayed.
func (b *Bridge) Replay(ctx context.Context, session string) (int, error) {
	if b.journal == nil {
		return 0, fmt.Errorf("bridge: replay: no journal configured")
	}
	if session == b.journal.Session() {
		return 0, fmt.Errorf("bridge: replay: session %q is the one being recorded", session)
	}
	return b.journal.Replay(ctx, session, func(ctx context.Context, msg wire.Message) error {
		return b.do(ctx, func(ctx context.Context) error {
			return b.apply(ctx, msg)
		})
	})
}

// Stats is a point-in-time view of the bridge.
type Stats struct {
	Session string      `json:"session"`
	URL     string      `json:"url"`
	Width   int         `json:"width"`
	Nodes   int         `json:"nodes"`
	Styles  int         `json:"styles"`
	Pending int         `json:"pending"`
	Records int         `json:"records"`
	Batches int         `json:"batches"`
	Dropped int         `json:"dropped"`
	Sent    uint64      `json:"sent"`
	Failed  int         `json:"failed"`
	Evicted int         `json:"evicted"`
	Inbound RouterStats `json:"inbound"`
}

// Stats reads the counters on the loop.
func (b *Bridge) Stats(ctx context.Context) (Stats, error) {
	var st Stats
	err := b.do(ctx, func(context.Context) error {
		ost := b.obs.Stats()
		st = Stats{
			Session: b.session,
			URL:     b.doc.URL(),
			Width:   b.doc.ClientWidth(),
			Nodes:   b.reg.Len(),
			Styles:  b.styles.Len(),
			Pending: b.obs.Pending(),
			Records: ost.Records,
			Batches: ost.Batches,
			Dropped: ost.Dropped,
			Sent:    ost.Sent,
			Failed:  ost.Failed,
			Evicted: ost.Evicted,
			Inbound: b.router.stats,
		}
		return nil
	})
	return st, err
}
