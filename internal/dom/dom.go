// Package dom is a small mutable document tree over golang.org/x/net/html.
// It offers the select/append/attribute operations the diagram renderer and
// chart adapter need, and serializes back to HTML.
package dom

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

const svgNamespace = "svg"

// Document owns a parsed HTML tree.
type Document struct {
	root *html.Node
}

// Parse reads a full HTML document.
func Parse(r io.Reader) (*Document, error) {
	root, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("parsing html: %w", err)
	}
	return &Document{root: root}, nil
}

// ParseString is Parse for an in-memory string.
func ParseString(s string) (*Document, error) {
	return Parse(strings.NewReader(s))
}

// Root returns the document node.
func (d *Document) Root() *html.Node { return d.root }

// ByID returns the first element whose id attribute equals id, or nil.
func (d *Document) ByID(id string) *Element {
	if d == nil || d.root == nil || id == "" {
		return nil
	}
	n := findNode(d.root, func(n *html.Node) bool {
		return n.Type == html.ElementNode && attr(n, "id") == id
	})
	if n == nil {
		return nil
	}
	return &Element{n: n}
}

// Has reports whether an element with the given id exists.
func (d *Document) Has(id string) bool {
	return d.ByID(id) != nil
}

// Clone returns a deep copy that shares no nodes with d.
func (d *Document) Clone() *Document {
	return &Document{root: cloneNode(d.root)}
}

// Render writes the document as HTML.
func (d *Document) Render(w io.Writer) error {
	return html.Render(w, d.root)
}

// String renders the document, returning an empty string on failure.
func (d *Document) String() string {
	var buf bytes.Buffer
	if err := d.Render(&buf); err != nil {
		return ""
	}
	return buf.String()
}

// Element is a handle to one element node.
type Element struct {
	n *html.Node
}

// Wrap returns an Element for an existing element node.
func Wrap(n *html.Node) *Element { return &Element{n: n} }

// Node exposes the underlying html node.
func (e *Element) Node() *html.Node { return e.n }

// Tag returns the element name.
func (e *Element) Tag() string { return e.n.Data }

// ID returns the id attribute.
func (e *Element) ID() string { return attr(e.n, "id") }

// Attr returns the value of key and whether it is set.
func (e *Element) Attr(key string) (string, bool) {
	for _, a := range e.n.Attr {
		if a.Key == key {
			return a.Val, true
		}
	}
	return "", false
}

// SetAttr sets or replaces an attribute and returns e for chaining.
func (e *Element) SetAttr(key, val string) *Element {
	for i, a := range e.n.Attr {
		if a.Key == key {
			e.n.Attr[i].Val = val
			return e
		}
	}
	e.n.Attr = append(e.n.Attr, html.Attribute{Key: key, Val: val})
	return e
}

// SetAttrf formats the value with fmt.Sprintf.
func (e *Element) SetAttrf(key, format string, args ...any) *Element {
	return e.SetAttr(key, fmt.Sprintf(format, args...))
}

// RemoveAttr deletes an attribute if present.
func (e *Element) RemoveAttr(key string) *Element {
	attrs := e.n.Attr[:0]
	for _, a := range e.n.Attr {
		if a.Key != key {
			attrs = append(attrs, a)
		}
	}
	e.n.Attr = attrs
	return e
}

// AddClass appends a class name unless it is already present.
func (e *Element) AddClass(name string) *Element {
	cur, _ := e.Attr("class")
	for _, c := range strings.Fields(cur) {
		if c == name {
			return e
		}
	}
	if cur == "" {
		return e.SetAttr("class", name)
	}
	return e.SetAttr("class", cur+" "+name)
}

// HasClass reports whether the class attribute contains name.
func (e *Element) HasClass(name string) bool {
	cur, _ := e.Attr("class")
	for _, c := range strings.Fields(cur) {
		if c == name {
			return true
		}
	}
	return false
}

// Append creates a child element. Children of SVG elements stay in the SVG
// namespace so the serializer keeps their case and self-closing rules.
func (e *Element) Append(tag string) *Element {
	child := &html.Node{
		Type:      html.ElementNode,
		Data:      tag,
		DataAtom:  atom.Lookup([]byte(tag)),
		Namespace: e.childNamespace(tag),
	}
	e.n.AppendChild(child)
	return &Element{n: child}
}

// InsertAfter creates a sibling element directly after e.
func (e *Element) InsertAfter(tag string) *Element {
	sib := &html.Node{
		Type:      html.ElementNode,
		Data:      tag,
		DataAtom:  atom.Lookup([]byte(tag)),
		Namespace: e.n.Namespace,
	}
	if e.n.Parent == nil {
		return &Element{n: sib}
	}
	e.n.Parent.InsertBefore(sib, e.n.NextSibling)
	return &Element{n: sib}
}

// AppendText adds a text node child.
func (e *Element) AppendText(s string) *Element {
	e.n.AppendChild(&html.Node{Type: html.TextNode, Data: s})
	return e
}

// Text returns the concatenated text content of e.
func (e *Element) Text() string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(e.n)
	return b.String()
}

// Clear removes every child node and returns how many were removed.
func (e *Element) Clear() int {
	count := 0
	for c := e.n.FirstChild; c != nil; {
		next := c.NextSibling
		e.n.RemoveChild(c)
		c = next
		count++
	}
	return count
}

// Remove detaches e from its parent.
func (e *Element) Remove() {
	if e.n.Parent != nil {
		e.n.Parent.RemoveChild(e.n)
	}
}

// Attached reports whether e still has a parent.
func (e *Element) Attached() bool { return e.n.Parent != nil }

// Children returns the element children of e in document order.
func (e *Element) Children() []*Element {
	var out []*Element
	for c := e.n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode {
			out = append(out, &Element{n: c})
		}
	}
	return out
}

// FindAll returns every descendant element matching pred, in document order.
func (e *Element) FindAll(pred func(*Element) bool) []*Element {
	var out []*Element
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if c.Type == html.ElementNode {
				el := &Element{n: c}
				if pred(el) {
					out = append(out, el)
				}
			}
			walk(c)
		}
	}
	walk(e.n)
	return out
}

// ByClass returns descendants carrying the given class.
func (e *Element) ByClass(name string) []*Element {
	return e.FindAll(func(el *Element) bool { return el.HasClass(name) })
}

// InnerHTML serializes the children of e.
func (e *Element) InnerHTML() (string, error) {
	var buf bytes.Buffer
	for c := e.n.FirstChild; c != nil; c = c.NextSibling {
		if err := html.Render(&buf, c); err != nil {
			return "", err
		}
	}
	return buf.String(), nil
}

// OuterHTML serializes e itself.
func (e *Element) OuterHTML() (string, error) {
	var buf bytes.Buffer
	if err := html.Render(&buf, e.n); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func (e *Element) childNamespace(tag string) string {
	if e.n.Namespace == svgNamespace {
		return svgNamespace
	}
	if tag == "svg" {
		return svgNamespace
	}
	return ""
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func findNode(n *html.Node, pred func(*html.Node) bool) *html.Node {
	if pred(n) {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findNode(c, pred); found != nil {
			return found
		}
	}
	return nil
}

func cloneNode(n *html.Node) *html.Node {
	if n == nil {
		return nil
	}
	cp := &html.Node{
		Type:      n.Type,
		DataAtom:  n.DataAtom,
		Data:      n.Data,
		Namespace: n.Namespace,
		Attr:      append([]html.Attribute(nil), n.Attr...),
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		cp.AppendChild(cloneNode(c))
	}
	return cp
}
