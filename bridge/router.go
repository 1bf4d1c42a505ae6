package bridge

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/hazyhaar/treebridge/bridge/internal/registry"
	"github.com/hazyhaar/treebridge/bridge/internal/replay"
	"github.com/hazyhaar/treebridge/bridge/wire"
	"github.com/hazyhaar/treebridge/dom"
)

// Evaluator applies a computed result returned by the logic context. The
// payload is forwarded verbatim.
type Evaluator interface {
	Apply(ctx context.Context, ret json.RawMessage) error
}

// EvaluatorFunc adapts a function to Evaluator.
type EvaluatorFunc func(ctx context.Context, ret json.RawMessage) error

func (f EvaluatorFunc) Apply(ctx context.Context, ret json.RawMessage) error { return f(ctx, ret) }

// RouterStats counts inbound messages by outcome.
type RouterStats struct {
	Init          int `json:"init"`
	Events        int `json:"events"`
	EventsDropped int `json:"events_dropped"`
	Returns       int `json:"returns"`
	Unknown       int `json:"unknown"`
}

// router dispatches inbound messages on the bridge loop.
type router struct {
	doc    *dom.Document
	rep    *replay.Replayer
	eval   Evaluator
	logger *slog.Logger
	stats  RouterStats
}

func newRouter(doc *dom.Document, reg *registry.Registry, pointerPrefix string, eval Evaluator, logger *slog.Logger) *router {
	return &router{
		doc:    doc,
		rep:    replay.New(reg, pointerPrefix),
		eval:   eval,
		logger: logger,
	}
}

// handle applies one inbound message. Only evaluator failures are returned;
// unresolvable events and unknown kinds are dropped.
func (r *router) handle(ctx context.Context, msg wire.Message) error {
	switch msg.Type.Kind() {
	case wire.KindInit:
		r.stats.Init++
		r.doc.SetURL(msg.URL)
		r.doc.SetClientWidth(msg.Width)
		r.logger.Debug("bridge: init", "url", msg.URL, "width", msg.Width)
		return nil

	case wire.KindEvent:
		r.stats.Events++
		ev := r.rep.Event(msg.Event)
		if ev == nil {
			r.stats.EventsDropped++
			r.logger.Debug("bridge: event target unresolved, dropped", "event", eventType(msg.Event))
			return nil
		}
		r.doc.DispatchEvent(ev.Target, ev)
		return nil

	case wire.KindReturn:
		r.stats.Returns++
		if r.eval == nil {
			r.logger.Debug("bridge: return with no evaluator, dropped")
			return nil
		}
		if err := r.eval.Apply(ctx, msg.Return); err != nil {
			return fmt.Errorf("bridge: return: %w", err)
		}
		return nil

	default:
		r.stats.Unknown++
		r.logger.Debug("bridge: unknown message type ignored", "type", msg.Type)
		return nil
	}
}

func eventType(p *wire.EventPayload) string {
	if p == nil {
		return ""
	}
	return p.Type
}
