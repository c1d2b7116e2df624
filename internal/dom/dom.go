// Package dom is the document model the tree UI mutates: a tree of
// golang.org/x/net/html nodes with helpers for ids, classes, data-path
// lookups and HTML rendering.
package dom

import (
	"bytes"
	"io"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/cockroachdb/errors"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Stable container ids.
const (
	IDFileTree = "file-tree"
	IDEditor   = "editor"
	IDSidebar  = "sidebar"
)

// PathAttr is the canonical cross-reference key carried by tree nodes.
const PathAttr = "data-path"

// Document owns one parsed page.
type Document struct {
	root *html.Node
}

// New returns the editor shell layout: a sidebar holding the file tree and
// the editor host element.
func New() *Document {
	doc, err := Parse(strings.NewReader(`<!doctype html><html><head></head><body>` +
		`<div id="sidebar"><div id="file-tree"></div></div>` +
		`<div id="editor"></div>` +
		`</body></html>`))
	if err != nil {
		panic(err)
	}
	return doc
}

// Parse reads a page.
func Parse(r io.Reader) (*Document, error) {
	n, err := html.Parse(r)
	if err != nil {
		return nil, errors.Wrap(err, "parse document")
	}
	return &Document{root: n}, nil
}

// Root is the document node.
func (d *Document) Root() *html.Node { return d.root }

// ByID returns the element with the given id, or nil.
func (d *Document) ByID(id string) *html.Node {
	return first(d.root, func(n *html.Node) bool {
		v, ok := Attr(n, "id")
		return ok && v == id
	})
}

// Find runs a CSS selector below n.
func Find(n *html.Node, selector string) []*html.Node {
	if n == nil {
		return nil
	}
	return goquery.NewDocumentFromNode(n).Find(selector).Nodes
}

// ByPath returns the tree node (class tree-node) whose data-path equals p
// below scope, or nil. Values are compared verbatim so names need no
// selector escaping.
func ByPath(scope *html.Node, p string) *html.Node {
	if scope == nil {
		return nil
	}
	sel := goquery.NewDocumentFromNode(scope).Find(".tree-node").FilterFunction(func(_ int, s *goquery.Selection) bool {
		v, ok := s.Attr(PathAttr)
		return ok && v == p
	})
	if sel.Length() == 0 {
		return nil
	}
	return sel.Nodes[0]
}

func first(n *html.Node, match func(*html.Node) bool) *html.Node {
	if n.Type == html.ElementNode && match(n) {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := first(c, match); found != nil {
			return found
		}
	}
	return nil
}

// El builds an element. attrs are key/value pairs.
func El(tag string, attrs ...string) *html.Node {
	n := &html.Node{Type: html.ElementNode, Data: tag, DataAtom: atom.Lookup([]byte(tag))}
	for i := 0; i+1 < len(attrs); i += 2 {
		n.Attr = append(n.Attr, html.Attribute{Key: attrs[i], Val: attrs[i+1]})
	}
	return n
}

// Text builds a text node.
func Text(s string) *html.Node {
	return &html.Node{Type: html.TextNode, Data: s}
}

// Append adds children to parent and returns parent.
func Append(parent *html.Node, children ...*html.Node) *html.Node {
	for _, c := range children {
		if c.Parent != nil {
			c.Parent.RemoveChild(c)
		}
		parent.AppendChild(c)
	}
	return parent
}

// Clear detaches every child of n.
func Clear(n *html.Node) {
	for c := n.FirstChild; c != nil; {
		next := c.NextSibling
		n.RemoveChild(c)
		c = next
	}
}

// Children returns the element children of n.
func Children(n *html.Node) []*html.Node {
	var out []*html.Node
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode {
			out = append(out, c)
		}
	}
	return out
}

// Attr returns an attribute value.
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

// SetAttr sets or replaces an attribute.
func SetAttr(n *html.Node, key, val string) {
	for i, a := range n.Attr {
		if a.Namespace == "" && a.Key == key {
			n.Attr[i].Val = val
			return
		}
	}
	n.Attr = append(n.Attr, html.Attribute{Key: key, Val: val})
}

// RemoveAttr deletes an attribute if present.
func RemoveAttr(n *html.Node, key string) {
	out := n.Attr[:0]
	for _, a := range n.Attr {
		if a.Namespace == "" && a.Key == key {
			continue
		}
		out = append(out, a)
	}
	n.Attr = out
}

func classes(n *html.Node) []string {
	v, _ := Attr(n, "class")
	return strings.Fields(v)
}

// HasClass reports whether n carries class c.
func HasClass(n *html.Node, c string) bool {
	for _, have := range classes(n) {
		if have == c {
			return true
		}
	}
	return false
}

// AddClass adds c unless present.
func AddClass(n *html.Node, c string) {
	if HasClass(n, c) {
		return
	}
	SetAttr(n, "class", strings.TrimSpace(strings.Join(append(classes(n), c), " ")))
}

// RemoveClass drops c if present.
func RemoveClass(n *html.Node, c string) {
	var keep []string
	for _, have := range classes(n) {
		if have != c {
			keep = append(keep, have)
		}
	}
	if len(keep) == 0 {
		RemoveAttr(n, "class")
		return
	}
	SetAttr(n, "class", strings.Join(keep, " "))
}

// ToggleClass flips c and reports whether it is now present.
func ToggleClass(n *html.Node, c string) bool {
	if HasClass(n, c) {
		RemoveClass(n, c)
		return false
	}
	AddClass(n, c)
	return true
}

// SetText replaces the children of n with a single text node.
func SetText(n *html.Node, s string) {
	Clear(n)
	if s != "" {
		n.AppendChild(Text(s))
	}
}

// TextContent concatenates every text node below n.
func TextContent(n *html.Node) string {
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
	walk(n)
	return b.String()
}

// Render serializes n and its subtree.
func Render(n *html.Node) string {
	var buf bytes.Buffer
	if err := html.Render(&buf, n); err != nil {
		return ""
	}
	return buf.String()
}

// InnerHTML serializes the children of n.
func InnerHTML(n *html.Node) string {
	var buf bytes.Buffer
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if err := html.Render(&buf, c); err != nil {
			return ""
		}
	}
	return buf.String()
}

// String renders the whole document.
func (d *Document) String() string { return Render(d.root) }
