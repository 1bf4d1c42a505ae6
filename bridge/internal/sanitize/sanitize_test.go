package sanitize

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"golang.org/x/net/html"

	"github.com/hazyhaar/treebridge/bridge/internal/registry"
	"github.com/hazyhaar/treebridge/bridge/wire"
	"github.com/hazyhaar/treebridge/dom"
)

type fixture struct {
	doc    *dom.Document
	reg    *registry.Registry
	styles *StyleTable
	san    *Sanitizer
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	doc := dom.New()
	reg := registry.New(doc.Body)
	styles := NewStyleTable()
	return &fixture{
		doc:    doc,
		reg:    reg,
		styles: styles,
		san:    New(Config{Registry: reg, Styles: styles, Listeners: doc, Body: doc.Body}),
	}
}

func (f *fixture) style(text string) *html.Node {
	el := f.doc.CreateElement("style")
	f.doc.AppendChild(el, f.doc.CreateTextNode(text))
	return el
}

func TestNode_BodyUnderEveryRole(t *testing.T) {
	f := newFixture(t)
	body := f.doc.Body()
	f.doc.SetAttribute(body, "class", "dark")
	f.doc.SetAttribute(body, "style", "color: red")
	f.doc.AddEventListener(body, "click", func(*dom.Event) {}, false)

	for _, role := range []Role{RoleTarget, RoleAdded, RoleRemoved, RolePreviousSibling, RoleNextSibling} {
		got := f.san.Node(body, role)
		want := &wire.Node{Identity: "1", TagName: "BODY"}
		if diff := cmp.Diff(want, got); diff != "" {
			t.Errorf("role %v (-want +got):\n%s", role, diff)
		}
	}
}

func TestNode_DetachedBodyElementIsOrdinary(t *testing.T) {
	f := newFixture(t)
	stray := f.doc.CreateElement("body")
	f.doc.SetAttribute(stray, "class", "x")

	got := f.san.Node(stray, RoleAdded)
	want := &wire.Node{
		Identity:   "1",
		Kind:       wire.ElementNode,
		TagName:    "BODY",
		Attributes: []wire.Attribute{{Name: "class", Value: "x"}},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("(-want +got):\n%s", diff)
	}
	if n := f.reg.Resolve(wire.Ref{Identity: got.Identity, TagName: wire.BodyTagName}); n != stray {
		t.Fatal("body-tagged ref to a detached body element resolved to the live body")
	}
}

func TestNode_StyleDedup(t *testing.T) {
	f := newFixture(t)
	first := f.style("body{color:red}")
	second := f.style("body{color:red}")

	got := f.san.Node(first, RoleAdded)
	want := &wire.Node{
		Identity: "1",
		Kind:     wire.ElementNode,
		TagName:  "STYLE",
		Children: []*wire.Node{{Data: "body{color:red}"}},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("first style (-want +got):\n%s", diff)
	}

	if got := f.san.Node(second, RoleAdded); got != nil {
		t.Fatalf("second style = %+v, want nil", got)
	}
	if f.styles.Len() != 1 {
		t.Fatalf("style table Len = %d, want 1", f.styles.Len())
	}
}

func TestNode_StyleRemovalProtected(t *testing.T) {
	f := newFixture(t)
	fresh := f.style("p{margin:0}")
	if got := f.san.Node(fresh, RoleRemoved); got != nil {
		t.Fatalf("removed style before send = %+v, want nil", got)
	}

	sent := f.style("a{color:blue}")
	f.san.Node(sent, RoleAdded)
	if got := f.san.Node(sent, RoleRemoved); got != nil {
		t.Fatalf("removed style after send = %+v, want nil", got)
	}
}

func TestNode_RemovedCarriesIdentityOnly(t *testing.T) {
	f := newFixture(t)
	div := f.doc.CreateElement("div")
	f.doc.SetAttribute(div, "id", "x")
	got := f.san.Node(div, RoleRemoved)
	if diff := cmp.Diff(&wire.Node{Identity: "1"}, got); diff != "" {
		t.Fatalf("(-want +got):\n%s", diff)
	}
}

func TestNode_AddedElement(t *testing.T) {
	f := newFixture(t)
	btn := f.doc.CreateElement("button")
	f.doc.SetAttribute(btn, "id", "go")
	f.doc.SetAttribute(btn, "style", "color: red; margin: 0 !important")
	f.doc.AddEventListener(btn, "click", func(*dom.Event) {}, false)
	f.doc.AddEventListener(btn, "touchstart", func(*dom.Event) {}, false)
	f.doc.AppendChild(btn, f.doc.CreateTextNode("Go"))

	got := f.san.Node(btn, RoleAdded)
	want := &wire.Node{
		Identity:  "1",
		Kind:      wire.ElementNode,
		TagName:   "BUTTON",
		Listeners: []string{"click", "touchstart"},
		Attributes: []wire.Attribute{
			{Name: "id", Value: "go"},
			{Name: "style", Value: "color: red; margin: 0 !important"},
		},
		Style: map[string]string{"color": "red", "margin": "0 !important"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("(-want +got):\n%s", diff)
	}
}

func TestNode_AddedTextAndComment(t *testing.T) {
	f := newFixture(t)
	text := f.doc.CreateTextNode("hello")
	comment := f.doc.CreateComment("note")
	style := f.style("x{}")
	owned := style.FirstChild

	cases := []struct {
		n    *html.Node
		want *wire.Node
	}{
		{text, &wire.Node{Identity: "1", Kind: wire.TextNode, Data: "hello"}},
		{comment, &wire.Node{Identity: "2", Kind: wire.CommentNode, Data: "note"}},
		{owned, &wire.Node{Identity: "3", Kind: wire.TextNode, Data: "x{}"}},
	}
	for _, c := range cases {
		if diff := cmp.Diff(c.want, f.san.Node(c.n, RoleAdded)); diff != "" {
			t.Errorf("(-want +got):\n%s", diff)
		}
	}
	if f.styles.Sent("x{}") {
		t.Fatal("style-owned text node marked its payload as sent")
	}
}

func TestNode_SiblingsCarryIdentityOnly(t *testing.T) {
	f := newFixture(t)
	p := f.doc.CreateElement("p")
	f.doc.SetAttribute(p, "class", "c")
	f.san.Node(p, RoleAdded)

	for _, role := range []Role{RoleTarget, RolePreviousSibling, RoleNextSibling} {
		if diff := cmp.Diff(&wire.Node{Identity: "1"}, f.san.Node(p, role)); diff != "" {
			t.Errorf("role %v (-want +got):\n%s", role, diff)
		}
	}
	if f.san.Node(nil, RoleTarget) != nil {
		t.Fatal("nil node did not sanitize to nil")
	}
}

func TestBatch_ReducesAndPreservesOrder(t *testing.T) {
	f := newFixture(t)
	body := f.doc.Body()
	var recs []dom.ChangeRecord
	f.doc.Observe(func(r dom.ChangeRecord) { recs = append(recs, r) })

	first := f.style("body{color:red}")
	dup := f.style("body{color:red}")
	div := f.doc.CreateElement("div")
	recs = recs[:0]

	f.doc.AppendChild(body, first) // kept
	f.doc.AppendChild(body, dup)   // added list empties: dropped
	f.doc.AppendChild(body, div)   // kept
	f.doc.RemoveChild(body, first) // removed list empties: dropped
	f.doc.SetAttribute(div, "id", "d")
	f.doc.RemoveChild(body, div) // kept

	msg := f.san.Batch(recs)
	if msg.Type != wire.TypeMutationRecord {
		t.Fatalf("Type = %q", msg.Type)
	}

	var got []string
	for _, m := range msg.Mutations {
		switch {
		case len(m.AddedNodes) > 0:
			got = append(got, "add "+m.AddedNodes[0].TagName)
		case len(m.RemovedNodes) > 0:
			got = append(got, "remove "+m.RemovedNodes[0].Identity)
		default:
			got = append(got, m.Type+" "+m.AttributeName)
		}
	}
	divID, _ := f.reg.Lookup(div)
	want := []string{"add STYLE", "add DIV", "attributes id", "remove " + divID}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("batch (-want +got):\n%s", diff)
	}
	if msg.Mutations[0].Target.TagName != "BODY" {
		t.Fatalf("target = %+v, want body", msg.Mutations[0].Target)
	}
}

func TestBatch_EmptyListFilterIsIndependent(t *testing.T) {
	f := newFixture(t)
	style := f.style("s{}")
	f.san.Node(style, RoleAdded)
	keep := f.doc.CreateElement("p")

	rec := dom.ChangeRecord{
		Kind:         dom.ChildList,
		Target:       f.doc.Body(),
		AddedNodes:   []*html.Node{f.style("s{}")}, // duplicate payload
		RemovedNodes: []*html.Node{keep},
	}
	if msg := f.san.Batch([]dom.ChangeRecord{rec}); len(msg.Mutations) != 0 {
		t.Fatalf("record with emptied added list survived: %+v", msg.Mutations)
	}

	rec = dom.ChangeRecord{
		Kind:         dom.ChildList,
		Target:       f.doc.Body(),
		AddedNodes:   []*html.Node{keep},
		RemovedNodes: []*html.Node{style},
	}
	if msg := f.san.Batch([]dom.ChangeRecord{rec}); len(msg.Mutations) != 0 {
		t.Fatalf("record with emptied removed list survived: %+v", msg.Mutations)
	}
}

func TestRecord_IdentityOrder(t *testing.T) {
	f := newFixture(t)
	parent := f.doc.CreateElement("ul")
	added := f.doc.CreateElement("li")
	prev := f.doc.CreateElement("li")
	next := f.doc.CreateElement("li")

	wr := f.san.Record(dom.ChangeRecord{
		Kind:            dom.ChildList,
		Target:          parent,
		AddedNodes:      []*html.Node{added},
		PreviousSibling: prev,
		NextSibling:     next,
	})
	got := []string{wr.Target.Identity, wr.AddedNodes[0].Identity, wr.NextSibling.Identity, wr.PreviousSibling.Identity}
	if diff := cmp.Diff([]string{"1", "2", "3", "4"}, got); diff != "" {
		t.Fatalf("identity order (-want +got):\n%s", diff)
	}
	if wr.RemovedNodes != nil {
		t.Fatal("absent removed list became present")
	}
	if wr.Type != "childList" {
		t.Fatalf("Type = %q", wr.Type)
	}
}
