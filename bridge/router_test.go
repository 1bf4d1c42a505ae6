package bridge

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/hazyhaar/treebridge/bridge/internal/registry"
	"github.com/hazyhaar/treebridge/bridge/wire"
	"github.com/hazyhaar/treebridge/dom"
)

func discard() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func TestRouter_PointerPrefix(t *testing.T) {
	doc := dom.New()
	reg := registry.New(doc.Body)
	el := doc.CreateElement("div")
	id := reg.AssignOrGet(el)
	r := newRouter(doc, reg, "pointer", nil, discard())

	var touches []dom.Touch
	doc.AddEventListener(el, "pointerdown", func(e *dom.Event) { touches = e.Touches }, false)
	doc.AddEventListener(el, "touchstart", func(e *dom.Event) { touches = e.Touches }, false)

	tp := []wire.TouchPayload{{Identity: id}}
	r.handle(context.Background(), wire.Message{Type: wire.TypeEvent, Event: &wire.EventPayload{
		Type: "touchstart", Target: wire.Ref{Identity: id}, Touches: tp,
	}})
	if touches != nil {
		t.Fatal("touchstart treated as pointer event under a custom prefix")
	}
	r.handle(context.Background(), wire.Message{Type: wire.TypeEvent, Event: &wire.EventPayload{
		Type: "pointerdown", Target: wire.Ref{Identity: id}, Touches: tp,
	}})
	if len(touches) != 1 || touches[0].Target != el {
		t.Fatalf("touches = %+v", touches)
	}
}

func TestRouter_EventWithoutPayload(t *testing.T) {
	doc := dom.New()
	r := newRouter(doc, registry.New(doc.Body), "", nil, discard())
	if err := r.handle(context.Background(), wire.Message{Type: wire.TypeEvent}); err != nil {
		t.Fatal(err)
	}
	if err := r.handle(context.Background(), wire.Message{Type: wire.TypeReturn}); err != nil {
		t.Fatal(err)
	}
	if r.stats.EventsDropped != 1 || r.stats.Returns != 1 {
		t.Fatalf("stats = %+v", r.stats)
	}
}
