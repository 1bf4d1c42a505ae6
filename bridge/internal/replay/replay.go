// Package replay turns wire events from the logic context back into live
// tree events, resolving every node reference through the registry.
package replay

import (
	"fmt"
	"strings"

	"golang.org/x/net/html"

	"github.com/hazyhaar/treebridge/bridge/wire"
	"github.com/hazyhaar/treebridge/dom"
)

// DefaultPointerPrefix marks multi-pointer event types.
const DefaultPointerPrefix = "touch"

// Class separates plain events from multi-pointer ones.
type Class int

const (
	ClassPlain Class = iota
	ClassPointer
)

func (c Class) String() string {
	switch c {
	case ClassPlain:
		return "plain"
	case ClassPointer:
		return "pointer"
	}
	return fmt.Sprintf("Class(%d)", int(c))
}

// Resolver maps a wire reference to a live node, or nil.
type Resolver interface {
	Resolve(ref wire.Ref) *html.Node
}

// Replayer builds live events from wire payloads.
type Replayer struct {
	res    Resolver
	prefix string
}

// New creates a Replayer. An empty prefix selects DefaultPointerPrefix.
func New(res Resolver, pointerPrefix string) *Replayer {
	if pointerPrefix == "" {
		pointerPrefix = DefaultPointerPrefix
	}
	return &Replayer{res: res, prefix: pointerPrefix}
}

// Classify reports whether typ names a multi-pointer event.
func (r *Replayer) Classify(typ string) Class {
	if strings.HasPrefix(typ, r.prefix) {
		return ClassPointer
	}
	return ClassPlain
}

// Touches resolves a pointer list. Entries naming an identity get the live
// node it resolves to, nil when unknown; entries without one keep a nil
// target. A nil list stays nil.
func (r *Replayer) Touches(in []wire.TouchPayload) []dom.Touch {
	if in == nil {
		return nil
	}
	out := make([]dom.Touch, len(in))
	for i, tp := range in {
		out[i] = dom.Touch{
			Identifier: tp.Identifier,
			ClientX:    tp.ClientX,
			ClientY:    tp.ClientY,
			PageX:      tp.PageX,
			PageY:      tp.PageY,
		}
		if tp.Identity != "" {
			out[i].Target = r.res.Resolve(wire.Ref{Identity: tp.Identity})
		}
	}
	return out
}

// Event builds the live event for p. It returns nil when p's target does
// not resolve; the caller drops such events.
func (r *Replayer) Event(p *wire.EventPayload) *dom.Event {
	if p == nil {
		return nil
	}
	target := r.res.Resolve(p.Target)
	if target == nil {
		return nil
	}
	ev := &dom.Event{
		Type:    p.Type,
		Bubbles: p.Bubbles,
		Detail:  p.Detail,
		Target:  target,
	}
	if r.Classify(p.Type) == ClassPointer {
		ev.Touches = r.Touches(p.Touches)
		ev.ChangedTouches = r.Touches(p.ChangedTouches)
	}
	return ev
}
