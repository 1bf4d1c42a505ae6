package dom

import (
	"errors"
	"fmt"

	"golang.org/x/net/html"
)

// RecordKind is the kind of an observed change.
type RecordKind int

const (
	ChildList RecordKind = iota + 1
	Attributes
	CharacterData
)

func (k RecordKind) String() string {
	switch k {
	case ChildList:
		return "childList"
	case Attributes:
		return "attributes"
	case CharacterData:
		return "characterData"
	}
	return fmt.Sprintf("RecordKind(%d)", int(k))
}

// ChangeRecord is one observed change. A record carries only the node list
// its change produced: insertions set AddedNodes, removals set RemovedNodes,
// attribute and character-data changes leave both nil.
type ChangeRecord struct {
	Kind            RecordKind
	Target          *html.Node
	AddedNodes      []*html.Node
	RemovedNodes    []*html.Node
	PreviousSibling *html.Node
	NextSibling     *html.Node
	AttributeName   string
	OldValue        string
}

var (
	// ErrNotChild is returned when a reference node is not a child of the
	// given parent.
	ErrNotChild = errors.New("dom: node is not a child of parent")
	// ErrHierarchy is returned when an insertion would make a node its own
	// ancestor.
	ErrHierarchy = errors.New("dom: node would contain itself")
)

// Observe installs fn as the change observer, replacing any previous one.
// fn is called synchronously for every mutation made through the Document.
func (d *Document) Observe(fn func(ChangeRecord)) { d.observer = fn }

// Disconnect removes the change observer.
func (d *Document) Disconnect() { d.observer = nil }

func (d *Document) notify(rec ChangeRecord) {
	if d.observer != nil {
		d.observer(rec)
	}
}

// AppendChild appends child to parent, detaching it first if it already
// has a parent (a move produces a removal record then an insertion record).
func (d *Document) AppendChild(parent, child *html.Node) error {
	return d.InsertBefore(parent, child, nil)
}

// InsertBefore inserts child before ref under parent. A nil ref appends.
// Inserting a node before itself moves it in place.
func (d *Document) InsertBefore(parent, child, ref *html.Node) error {
	if parent == nil || child == nil {
		return ErrNotChild
	}
	for a := parent; a != nil; a = a.Parent {
		if a == child {
			return ErrHierarchy
		}
	}
	if ref != nil && ref.Parent != parent {
		return ErrNotChild
	}
	if ref == child {
		ref = child.NextSibling
	}
	if child.Parent != nil {
		if err := d.RemoveChild(child.Parent, child); err != nil {
			return err
		}
	}

	var prev *html.Node
	if ref != nil {
		prev = ref.PrevSibling
	} else {
		prev = parent.LastChild
	}
	parent.InsertBefore(child, ref)

	d.notify(ChangeRecord{
		Kind:            ChildList,
		Target:          parent,
		AddedNodes:      []*html.Node{child},
		PreviousSibling: prev,
		NextSibling:     ref,
	})
	return nil
}

// RemoveChild detaches child from parent.
func (d *Document) RemoveChild(parent, child *html.Node) error {
	if parent == nil || child == nil || child.Parent != parent {
		return ErrNotChild
	}
	prev, next := child.PrevSibling, child.NextSibling
	parent.RemoveChild(child)

	d.notify(ChangeRecord{
		Kind:            ChildList,
		Target:          parent,
		RemovedNodes:    []*html.Node{child},
		PreviousSibling: prev,
		NextSibling:     next,
	})
	return nil
}

// SetAttribute sets (or adds) a plain attribute on an element.
func (d *Document) SetAttribute(n *html.Node, key, val string) {
	old, _ := Attr(n, key)
	found := false
	for i := range n.Attr {
		if n.Attr[i].Namespace == "" && n.Attr[i].Key == key {
			n.Attr[i].Val = val
			found = true
			break
		}
	}
	if !found {
		n.Attr = append(n.Attr, html.Attribute{Key: key, Val: val})
	}
	d.notify(attrRecord(n, key, old))
}

// RemoveAttribute removes a plain attribute. Removing an absent attribute
// is a no-op and produces no record.
func (d *Document) RemoveAttribute(n *html.Node, key string) {
	for i, a := range n.Attr {
		if a.Namespace == "" && a.Key == key {
			n.Attr = append(n.Attr[:i], n.Attr[i+1:]...)
			d.notify(attrRecord(n, key, a.Val))
			return
		}
	}
}

func attrRecord(n *html.Node, key, old string) ChangeRecord {
	return ChangeRecord{
		Kind:          Attributes,
		Target:        n,
		AttributeName: key,
		OldValue:      old,
	}
}

// SetData replaces the character data of a text or comment node.
func (d *Document) SetData(n *html.Node, data string) error {
	if n.Type != html.TextNode && n.Type != html.CommentNode {
		return fmt.Errorf("dom: set data: node type %d carries no character data", n.Type)
	}
	old := n.Data
	n.Data = data
	d.notify(ChangeRecord{
		Kind:     CharacterData,
		Target:   n,
		OldValue: old,
	})
	return nil
}
