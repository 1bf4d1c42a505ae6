package registry

import (
	"testing"

	"golang.org/x/net/html"

	"github.com/hazyhaar/treebridge/bridge/wire"
	"github.com/hazyhaar/treebridge/dom"
)

func TestAssignOrGet_Idempotent(t *testing.T) {
	r := New(nil)
	n := &html.Node{Type: html.ElementNode, Data: "div"}

	first := r.AssignOrGet(n)
	second := r.AssignOrGet(n)
	if first != "1" || second != "1" {
		t.Fatalf("identities = %q, %q; want 1, 1", first, second)
	}
	if r.Len() != 1 {
		t.Fatalf("Len = %d, want 1", r.Len())
	}

	other := r.AssignOrGet(&html.Node{Type: html.TextNode})
	if other != "2" {
		t.Fatalf("second node identity = %q, want 2", other)
	}
}

func TestResolve(t *testing.T) {
	doc := dom.New()
	r := New(doc.Body)
	div := doc.CreateElement("div")
	id := r.AssignOrGet(div)

	if got := r.Resolve(wire.Ref{Identity: id}); got != div {
		t.Fatal("Resolve by object ref failed")
	}
	if got := r.ResolveID(id); got != div {
		t.Fatal("ResolveID failed")
	}
	if got := r.ResolveID("999"); got != nil {
		t.Fatal("unknown identity resolved")
	}
	if got := r.Resolve(wire.Ref{}); got != nil {
		t.Fatal("empty ref resolved")
	}
}

func TestResolve_BodyBypassesTable(t *testing.T) {
	doc := dom.New()
	r := New(doc.Body)

	got := r.Resolve(wire.Ref{Identity: "never-assigned", TagName: wire.BodyTagName})
	if got != doc.Body() {
		t.Fatal("BODY reference did not resolve to the live body")
	}
	if r.Len() != 0 {
		t.Fatalf("Len = %d, want 0", r.Len())
	}
}

func TestEvict_Subtree(t *testing.T) {
	doc := dom.New()
	r := New(doc.Body)
	div := doc.CreateElement("div")
	span := doc.CreateElement("span")
	doc.AppendChild(div, span)
	divID := r.AssignOrGet(div)
	r.AssignOrGet(span)
	keep := r.AssignOrGet(doc.Body())

	if n := r.Evict(div); n != 2 {
		t.Fatalf("Evict = %d, want 2", n)
	}
	if r.ResolveID(divID) != nil {
		t.Fatal("evicted identity still resolves")
	}
	if r.ResolveID(keep) != doc.Body() {
		t.Fatal("unrelated entry evicted")
	}
	if id := r.AssignOrGet(div); id == divID {
		t.Fatalf("re-assigned identity %q reused an evicted one", id)
	}
}

func TestRelease_NeverReusesIdentities(t *testing.T) {
	r := New(nil)
	r.AssignOrGet(&html.Node{})
	r.Release()
	if r.Len() != 0 {
		t.Fatalf("Len after Release = %d", r.Len())
	}
	if id := r.AssignOrGet(&html.Node{}); id != "2" {
		t.Fatalf("identity after Release = %q, want 2", id)
	}
}
