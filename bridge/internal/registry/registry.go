// Package registry assigns and resolves the stable identities that name
// live tree nodes across the channel.
//
// Identities live in a side table keyed by node pointer; nothing is written
// onto the nodes themselves. The registry is owned by the bridge loop and is
// not safe for concurrent use.
package registry

import (
	"golang.org/x/net/html"

	"github.com/hazyhaar/treebridge/bridge/wire"
	"github.com/hazyhaar/treebridge/idgen"
)

// Registry maps nodes to identities and back.
type Registry struct {
	next  idgen.Generator
	ids   map[*html.Node]string
	nodes map[string]*html.Node
	body  func() *html.Node
}

// New creates a registry whose identities come from a fresh counter
// starting at "1". body returns the live body node, which references
// tagged BODY resolve to without a table lookup.
func New(body func() *html.Node) *Registry {
	return &Registry{
		next:  idgen.Counter(),
		ids:   make(map[*html.Node]string),
		nodes: make(map[string]*html.Node),
		body:  body,
	}
}

// AssignOrGet returns n's identity, assigning the next one on first use.
func (r *Registry) AssignOrGet(n *html.Node) string {
	if id, ok := r.ids[n]; ok {
		return id
	}
	id := r.next()
	r.ids[n] = id
	r.nodes[id] = n
	return id
}

// Lookup returns n's identity without assigning one.
func (r *Registry) Lookup(n *html.Node) (string, bool) {
	id, ok := r.ids[n]
	return id, ok
}

// Resolve returns the live node a reference names, or nil when the
// reference is empty or unknown. A body-tagged reference with an unknown
// identity resolves to the live body.
func (r *Registry) Resolve(ref wire.Ref) *html.Node {
	if ref.IsZero() {
		return nil
	}
	n := r.nodes[ref.Identity]
	// A body-tagged reference names the live body unless its identity
	// belongs to some other registered node.
	if ref.TagName == wire.BodyTagName && n == nil && r.body != nil {
		return r.body()
	}
	return n
}

// ResolveID is Resolve for a raw identity string.
func (r *Registry) ResolveID(id string) *html.Node {
	return r.Resolve(wire.Ref{Identity: id})
}

// Evict forgets n and every registered node below it. Evicted nodes get a
// new identity if they are serialised again.
func (r *Registry) Evict(n *html.Node) int {
	evicted := 0
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if id, ok := r.ids[n]; ok {
			delete(r.ids, n)
			delete(r.nodes, id)
			evicted++
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return evicted
}

// Len returns the number of registered nodes.
func (r *Registry) Len() int { return len(r.nodes) }

// Release drops every entry. The counter is not reset, so identities are
// never reused within the registry's lifetime.
func (r *Registry) Release() {
	r.ids = make(map[*html.Node]string)
	r.nodes = make(map[string]*html.Node)
}
