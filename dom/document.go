// Package dom is the render host's live tree: an html.Node document with a
// URL, a reported client width, per-node event listeners, and a change
// observer fed by every structural, attribute and character-data mutation.
//
// A Document is not safe for concurrent use. Once a bridge is started, all
// access goes through the bridge loop (bridge.Bridge.Update).
package dom

import (
	"fmt"
	"io"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

const blankPage = "<!DOCTYPE html><html><head></head><body></body></html>"

// Document owns the live tree.
type Document struct {
	root        *html.Node // html.DocumentNode
	url         string
	clientWidth int

	listeners map[*html.Node][]listener
	observer  func(ChangeRecord)
}

// New returns an empty document: <html><head></head><body></body></html>.
func New() *Document {
	d, err := Parse(strings.NewReader(blankPage))
	if err != nil {
		// html.Parse only fails on reader errors.
		panic("dom: parse blank page: " + err.Error())
	}
	return d
}

// Parse builds a document from HTML. The parser always synthesises
// html, head and body elements.
func Parse(r io.Reader) (*Document, error) {
	root, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("dom: parse: %w", err)
	}
	return &Document{
		root:      root,
		listeners: make(map[*html.Node][]listener),
	}, nil
}

// Root returns the document node.
func (d *Document) Root() *html.Node { return d.root }

// DocumentElement returns the <html> element.
func (d *Document) DocumentElement() *html.Node {
	for c := d.root.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode && c.DataAtom == atom.Html {
			return c
		}
	}
	return nil
}

// Body returns the <body> element.
func (d *Document) Body() *html.Node {
	el := d.DocumentElement()
	if el == nil {
		return nil
	}
	for c := el.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode && c.DataAtom == atom.Body {
			return c
		}
	}
	return nil
}

// URL returns the document URL.
func (d *Document) URL() string { return d.url }

// SetURL sets the document URL. It does not produce a change record.
func (d *Document) SetURL(u string) { d.url = u }

// ClientWidth returns the root element's reported client width.
func (d *Document) ClientWidth() int { return d.clientWidth }

// SetClientWidth sets the root element's reported client width.
func (d *Document) SetClientWidth(w int) { d.clientWidth = w }

// Contains reports whether n is connected to this document.
func (d *Document) Contains(n *html.Node) bool {
	for ; n != nil; n = n.Parent {
		if n == d.root {
			return true
		}
	}
	return false
}

// CreateElement returns a detached element. The tag is lower-cased.
func (d *Document) CreateElement(tag string) *html.Node {
	tag = strings.ToLower(tag)
	return &html.Node{Type: html.ElementNode, Data: tag, DataAtom: atom.Lookup([]byte(tag))}
}

// CreateTextNode returns a detached text node.
func (d *Document) CreateTextNode(data string) *html.Node {
	return &html.Node{Type: html.TextNode, Data: data}
}

// CreateComment returns a detached comment node.
func (d *Document) CreateComment(data string) *html.Node {
	return &html.Node{Type: html.CommentNode, Data: data}
}

// Attr returns the value of the named attribute.
func Attr(n *html.Node, key string) (string, bool) {
	if n == nil {
		return "", false
	}
	for _, a := range n.Attr {
		if a.Namespace == "" && a.Key == key {
			return a.Val, true
		}
	}
	return "", false
}

// TagName returns the upper-case tag name of an element, "" otherwise.
func TagName(n *html.Node) string {
	if n == nil || n.Type != html.ElementNode {
		return ""
	}
	return strings.ToUpper(n.Data)
}
