// Package sanitize reduces batches of live-tree change records to the
// identity-stable wire form sent to the logic context.
//
// Reduction rules:
//   - the body element always serialises to {identity, tagName:"BODY"}
//   - a style element's text payload crosses the channel once; later style
//     elements with the same payload are suppressed entirely
//   - style elements are never reported as removed
//   - records whose node list sanitizes to empty are dropped
package sanitize

import (
	"fmt"
	"strings"

	"github.com/aymerick/douceur/parser"
	"golang.org/x/net/html"

	"github.com/hazyhaar/treebridge/bridge/internal/registry"
	"github.com/hazyhaar/treebridge/bridge/wire"
	"github.com/hazyhaar/treebridge/dom"
)

// Role is the record field a node is serialised for.
type Role int

const (
	RoleTarget Role = iota
	RoleAdded
	RoleRemoved
	RolePreviousSibling
	RoleNextSibling
)

func (r Role) String() string {
	switch r {
	case RoleTarget:
		return "target"
	case RoleAdded:
		return "addedNodes"
	case RoleRemoved:
		return "removedNodes"
	case RolePreviousSibling:
		return "previousSibling"
	case RoleNextSibling:
		return "nextSibling"
	}
	return fmt.Sprintf("Role(%d)", int(r))
}

// ListenerSource reports the event types with listeners on a node.
type ListenerSource interface {
	ListenerTypes(n *html.Node) []string
}

// Config for creating a Sanitizer.
type Config struct {
	Registry  *registry.Registry
	Styles    *StyleTable
	Listeners ListenerSource // optional
	// Body returns the live root body. When set, only that node gets the
	// body treatment; other elements with the body tag serialise normally.
	Body     func() *html.Node
	BodyTag  string // default "body"
	StyleTag string // default "style"
}

// Sanitizer serialises nodes and change records. It mutates the registry
// and the style table and must run on the bridge loop.
type Sanitizer struct {
	reg       *registry.Registry
	styles    *StyleTable
	listeners ListenerSource
	body      func() *html.Node
	bodyTag   string
	styleTag  string
}

// New creates a Sanitizer.
func New(cfg Config) *Sanitizer {
	if cfg.BodyTag == "" {
		cfg.BodyTag = "body"
	}
	if cfg.StyleTag == "" {
		cfg.StyleTag = "style"
	}
	if cfg.Styles == nil {
		cfg.Styles = NewStyleTable()
	}
	return &Sanitizer{
		reg:       cfg.Registry,
		styles:    cfg.Styles,
		listeners: cfg.Listeners,
		body:      cfg.Body,
		bodyTag:   strings.ToLower(cfg.BodyTag),
		styleTag:  strings.ToLower(cfg.StyleTag),
	}
}

// Batch sanitizes records in order and wraps the survivors in a
// MutationRecord envelope. A record is dropped when its added list, or
// independently its removed list, is present but sanitizes to empty.
func (s *Sanitizer) Batch(records []dom.ChangeRecord) wire.Message {
	out := make([]wire.ChangeRecord, 0, len(records))
	for _, rec := range records {
		wr := s.Record(rec)
		if wr.AddedNodes != nil && len(wr.AddedNodes) == 0 {
			continue
		}
		if wr.RemovedNodes != nil && len(wr.RemovedNodes) == 0 {
			continue
		}
		out = append(out, wr)
	}
	return wire.MutationBatch(out)
}

// Record sanitizes every node-bearing field of rec. Fields are visited in
// the order target, added, removed, next sibling, previous sibling, which
// fixes the order in which fresh identities are handed out.
func (s *Sanitizer) Record(rec dom.ChangeRecord) wire.ChangeRecord {
	target := s.Node(rec.Target, RoleTarget)
	added := s.List(rec.AddedNodes, RoleAdded)
	removed := s.List(rec.RemovedNodes, RoleRemoved)
	next := s.Node(rec.NextSibling, RoleNextSibling)
	prev := s.Node(rec.PreviousSibling, RolePreviousSibling)

	return wire.ChangeRecord{
		Type:            rec.Kind.String(),
		Target:          target,
		AddedNodes:      added,
		RemovedNodes:    removed,
		PreviousSibling: prev,
		NextSibling:     next,
		AttributeName:   rec.AttributeName,
		OldValue:        rec.OldValue,
	}
}

// List sanitizes nodes under role, dropping those that sanitize to nil.
// A nil list stays nil; a non-nil list yields a non-nil, possibly empty one.
func (s *Sanitizer) List(nodes []*html.Node, role Role) []*wire.Node {
	if nodes == nil {
		return nil
	}
	out := make([]*wire.Node, 0, len(nodes))
	for _, n := range nodes {
		if sn := s.Node(n, role); sn != nil {
			out = append(out, sn)
		}
	}
	return out
}

// Node serialises n for role. It returns nil for a nil node, for a style
// element reported as removed, and for a style element whose payload was
// already sent.
func (s *Sanitizer) Node(n *html.Node, role Role) *wire.Node {
	if n == nil {
		return nil
	}
	id := s.reg.AssignOrGet(n)

	if s.isBody(n) {
		return &wire.Node{Identity: id, TagName: wire.BodyTagName}
	}

	switch role {
	case RoleRemoved:
		if s.Protected(n) {
			return nil
		}
		return &wire.Node{Identity: id}
	case RoleAdded:
		return s.added(n, id)
	default:
		// Targets and siblings carry identity only.
		return &wire.Node{Identity: id}
	}
}

func (s *Sanitizer) added(n *html.Node, id string) *wire.Node {
	out := &wire.Node{Identity: id}

	switch n.Type {
	case html.ElementNode:
		out.Kind = wire.ElementNode
		out.TagName = dom.TagName(n)
		if s.isTag(n, s.styleTag) && n.FirstChild != nil && n.FirstChild.Type == html.TextNode {
			text := n.FirstChild.Data
			if s.styles.Sent(text) {
				return nil
			}
			s.styles.MarkSent(text)
			out.Children = []*wire.Node{{Data: text}}
		}
		if s.listeners != nil {
			if types := s.listeners.ListenerTypes(n); len(types) > 0 {
				out.Listeners = types
			}
		}
		out.Attributes = attributes(n)
		out.Style = inlineStyle(n)

	case html.TextNode:
		// Style-owned text goes out as raw data like any other text; only
		// a style element's first payload is deduplicated.
		out.Kind = wire.TextNode
		out.Data = n.Data

	case html.CommentNode:
		out.Kind = wire.CommentNode
		out.Data = n.Data
	}
	return out
}

// Protected reports whether n's removal is withheld from the logic
// context. Such nodes must keep their identity after they leave the tree.
func (s *Sanitizer) Protected(n *html.Node) bool {
	return s.isTag(n, s.styleTag)
}

func (s *Sanitizer) isBody(n *html.Node) bool {
	if !s.isTag(n, s.bodyTag) {
		return false
	}
	return s.body == nil || n == s.body()
}

func (s *Sanitizer) isTag(n *html.Node, tag string) bool {
	return n != nil && n.Type == html.ElementNode && strings.EqualFold(n.Data, tag)
}

func attributes(n *html.Node) []wire.Attribute {
	if len(n.Attr) == 0 {
		return nil
	}
	attrs := make([]wire.Attribute, 0, len(n.Attr))
	for _, a := range n.Attr {
		attrs = append(attrs, wire.Attribute{Name: a.Key, Value: a.Val, Namespace: a.Namespace})
	}
	return attrs
}

// inlineStyle parses the style attribute into a property map. Unparseable
// declarations yield no map.
func inlineStyle(n *html.Node) map[string]string {
	raw, ok := dom.Attr(n, "style")
	if !ok || strings.TrimSpace(raw) == "" {
		return nil
	}
	// The parser only closes a declaration on ';' or '}'.
	if !strings.HasSuffix(strings.TrimSpace(raw), ";") {
		raw += ";"
	}
	decls, err := parser.ParseDeclarations(raw)
	if err != nil || len(decls) == 0 {
		return nil
	}
	style := make(map[string]string, len(decls))
	for _, d := range decls {
		v := d.Value
		if d.Important {
			v += " !important"
		}
		style[d.Property] = v
	}
	return style
}
