package dom

import "golang.org/x/net/html"

// Phase is the event flow phase a listener is invoked in.
type Phase int

const (
	PhaseNone Phase = iota
	PhaseCapturing
	PhaseAtTarget
	PhaseBubbling
)

// Touch is one pointer contact carried by a multi-pointer event.
type Touch struct {
	Identifier int
	Target     *html.Node
	ClientX    float64
	ClientY    float64
	PageX      float64
	PageY      float64
}

// Event is dispatched into the live tree by DispatchEvent.
type Event struct {
	Type    string
	Bubbles bool
	Detail  map[string]any

	Touches        []Touch
	ChangedTouches []Touch

	Target        *html.Node
	CurrentTarget *html.Node
	Phase         Phase

	stopped bool
}

// StopPropagation prevents the event from reaching further nodes. Listeners
// on the current node still run.
func (e *Event) StopPropagation() { e.stopped = true }

// Stopped reports whether StopPropagation was called.
func (e *Event) Stopped() bool { return e.stopped }

// Listener handles a dispatched event.
type Listener func(*Event)

type listener struct {
	typ     string
	fn      Listener
	capture bool
}

// AddEventListener registers fn on n for events of type typ.
func (d *Document) AddEventListener(n *html.Node, typ string, fn Listener, capture bool) {
	d.listeners[n] = append(d.listeners[n], listener{typ: typ, fn: fn, capture: capture})
}

// RemoveEventListeners drops every listener of type typ on n.
func (d *Document) RemoveEventListeners(n *html.Node, typ string) {
	ls := d.listeners[n]
	kept := ls[:0]
	for _, l := range ls {
		if l.typ != typ {
			kept = append(kept, l)
		}
	}
	if len(kept) == 0 {
		delete(d.listeners, n)
		return
	}
	d.listeners[n] = kept
}

// ListenerTypes returns the distinct event types with listeners on n, in
// registration order.
func (d *Document) ListenerTypes(n *html.Node) []string {
	ls := d.listeners[n]
	if len(ls) == 0 {
		return nil
	}
	seen := make(map[string]bool, len(ls))
	var types []string
	for _, l := range ls {
		if !seen[l.typ] {
			seen[l.typ] = true
			types = append(types, l.typ)
		}
	}
	return types
}

// DispatchEvent runs e through the capture, target and bubble phases rooted
// at target. Listeners added during dispatch are not invoked for this event.
func (d *Document) DispatchEvent(target *html.Node, e *Event) {
	e.Target = target
	e.stopped = false

	var path []*html.Node // nearest ancestor first
	for n := target.Parent; n != nil; n = n.Parent {
		path = append(path, n)
	}

	e.Phase = PhaseCapturing
	for i := len(path) - 1; i >= 0 && !e.stopped; i-- {
		d.invoke(path[i], e, func(l listener) bool { return l.capture })
	}

	if !e.stopped {
		e.Phase = PhaseAtTarget
		d.invoke(target, e, func(listener) bool { return true })
	}

	if e.Bubbles {
		e.Phase = PhaseBubbling
		for _, n := range path {
			if e.stopped {
				break
			}
			d.invoke(n, e, func(l listener) bool { return !l.capture })
		}
	}

	e.Phase = PhaseNone
	e.CurrentTarget = nil
}

func (d *Document) invoke(n *html.Node, e *Event, match func(listener) bool) {
	ls := d.listeners[n]
	if len(ls) == 0 {
		return
	}
	snapshot := make([]listener, len(ls))
	copy(snapshot, ls)

	e.CurrentTarget = n
	for _, l := range snapshot {
		if l.typ == e.Type && match(l) {
			l.fn(e)
		}
	}
}
