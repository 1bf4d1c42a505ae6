package wire

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// BodyTagName is the tag name the root body node always serialises with.
const BodyTagName = "BODY"

// NodeKind mirrors DOM node types.
type NodeKind int

const (
	ElementNode NodeKind = 1
	TextNode    NodeKind = 3
	CommentNode NodeKind = 8
)

// Attribute is one element attribute.
type Attribute struct {
	Name      string `json:"name"`
	Value     string `json:"value"`
	Namespace string `json:"namespace,omitempty"`
}

// Node is the wire form of a tree node. Identity is always set for real
// nodes; the synthetic style child carries Data only.
type Node struct {
	Identity   string            `json:"identity,omitempty"`
	Kind       NodeKind          `json:"kind,omitempty"`
	TagName    string            `json:"tagName,omitempty"`
	Listeners  []string          `json:"listeners,omitempty"`
	Attributes []Attribute       `json:"attributes,omitempty"`
	Style      map[string]string `json:"style,omitempty"`
	Children   []*Node           `json:"children,omitempty"`
	Data       string            `json:"data,omitempty"`
}

// ChangeRecord is one sanitized change. A nil AddedNodes or RemovedNodes
// means the host record did not carry that list.
type ChangeRecord struct {
	Type            string  `json:"type"`
	Target          *Node   `json:"target,omitempty"`
	AddedNodes      []*Node `json:"addedNodes,omitempty"`
	RemovedNodes    []*Node `json:"removedNodes,omitempty"`
	PreviousSibling *Node   `json:"previousSibling,omitempty"`
	NextSibling     *Node   `json:"nextSibling,omitempty"`
	AttributeName   string  `json:"attributeName,omitempty"`
	OldValue        string  `json:"oldValue,omitempty"`
}

// Ref references a node previously serialised to the logic context. On the
// wire it is either a raw identity string or a serialised node object.
type Ref struct {
	Identity string
	TagName  string
}

// RefTo returns a reference to a serialised node.
func RefTo(n *Node) Ref {
	if n == nil {
		return Ref{}
	}
	return Ref{Identity: n.Identity, TagName: n.TagName}
}

// IsZero reports whether the reference names nothing.
func (r Ref) IsZero() bool { return r.Identity == "" && r.TagName == "" }

// MarshalJSON encodes the reference as a node object, or null when empty.
func (r Ref) MarshalJSON() ([]byte, error) {
	if r.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(struct {
		Identity string `json:"identity,omitempty"`
		TagName  string `json:"tagName,omitempty"`
	}{r.Identity, r.TagName})
}

// UnmarshalJSON accepts null, an identity string, or an object carrying
// "identity" and optionally "tagName".
func (r *Ref) UnmarshalJSON(data []byte) error {
	*r = Ref{}
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil
	}
	switch data[0] {
	case '"':
		return json.Unmarshal(data, &r.Identity)
	case '{':
		var obj struct {
			Identity string `json:"identity"`
			TagName  string `json:"tagName"`
		}
		if err := json.Unmarshal(data, &obj); err != nil {
			return err
		}
		r.Identity, r.TagName = obj.Identity, obj.TagName
		return nil
	}
	return fmt.Errorf("wire: node reference must be a string or object, got %s", data)
}

// EventPayload is an event raised in the logic context for replay on the
// live tree.
type EventPayload struct {
	Type           string         `json:"type"`
	Target         Ref            `json:"target"`
	Bubbles        bool           `json:"bubbles,omitempty"`
	Touches        []TouchPayload `json:"touches,omitempty"`
	ChangedTouches []TouchPayload `json:"changedTouches,omitempty"`
	Detail         map[string]any `json:"detail,omitempty"`
}

// TouchPayload is one pointer-list entry. Identity, when set, names the
// entry's target node.
type TouchPayload struct {
	Identity   string  `json:"identity,omitempty"`
	Identifier int     `json:"identifier"`
	ClientX    float64 `json:"clientX,omitempty"`
	ClientY    float64 `json:"clientY,omitempty"`
	PageX      float64 `json:"pageX,omitempty"`
	PageY      float64 `json:"pageY,omitempty"`
}
