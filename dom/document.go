// Package dom owns the live HTML tree: parsing, rendering, observed writes,
// text-node splicing, and the chunked traversal that feeds the rewriter.
//
// Every write goes through Document so the attached observer sees the same
// mutations a browser MutationObserver would. The observer is attached and
// detached by the watch layer; dom itself never filters or suppresses.
package dom

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"sync/atomic"

	"github.com/microcosm-cc/bluemonday"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// ErrInvalidNode is returned when an operation targets a node of the wrong
// type or one that is detached from the tree.
var ErrInvalidNode = errors.New("dom: invalid node")

// Document wraps a parsed HTML tree and emits a Record for every write.
type Document struct {
	root    *html.Node
	deliver func(Record)
	policy  *bluemonday.Policy
	gen     atomic.Uint64
}

// Parse reads an HTML document from r.
func Parse(r io.Reader) (*Document, error) {
	root, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("dom: parse: %w", err)
	}
	return &Document{root: root, policy: fragmentPolicy()}, nil
}

// ParseString parses an HTML document held in a string.
func ParseString(s string) (*Document, error) {
	return Parse(strings.NewReader(s))
}

// fragmentPolicy sanitizes foreign HTML fragments before they enter the
// tree. Page content may carry anything; scripts and event handlers must
// not survive re-insertion.
func fragmentPolicy() *bluemonday.Policy {
	p := bluemonday.UGCPolicy()
	p.AllowAttrs("class", "id").Globally()
	return p
}

// Root returns the document root node.
func (d *Document) Root() *html.Node { return d.root }

// Body returns the <body> element, or the root when the document has none.
func (d *Document) Body() *html.Node {
	var body *html.Node
	var walk func(*html.Node) bool
	walk = func(n *html.Node) bool {
		if n.Type == html.ElementNode && n.DataAtom == atom.Body {
			body = n
			return false
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if !walk(c) {
				return false
			}
		}
		return true
	}
	walk(d.root)
	if body == nil {
		return d.root
	}
	return body
}

// Render writes the document as HTML.
func (d *Document) Render(w io.Writer) error {
	return html.Render(w, d.root)
}

// HTML returns the rendered document.
func (d *Document) HTML() (string, error) {
	var sb strings.Builder
	if err := d.Render(&sb); err != nil {
		return "", err
	}
	return sb.String(), nil
}

// Attach registers the record delivery function. A Document carries at most
// one; attaching replaces any previous one.
func (d *Document) Attach(fn func(Record)) { d.deliver = fn }

// Detach removes the delivery function. Writes performed while detached are
// not observed; this is the disconnect half of the watcher's bracket.
func (d *Document) Detach() { d.deliver = nil }

// Observed reports whether a delivery function is attached.
func (d *Document) Observed() bool { return d.deliver != nil }

func (d *Document) notify(rec Record) {
	d.gen.Add(1)
	if d.deliver != nil {
		d.deliver(rec)
	}
}

// Generation counts writes to the tree, observed or not. Hosts mirroring
// the document elsewhere compare generations to decide when to re-sync;
// unlike the record stream it also moves for writes made while detached.
func (d *Document) Generation() uint64 { return d.gen.Load() }

// SetText replaces a text node's character data.
func (d *Document) SetText(n *html.Node, text string) error {
	if n == nil || n.Type != html.TextNode {
		return ErrInvalidNode
	}
	old := n.Data
	n.Data = text
	d.notify(Record{Op: OpText, Target: n, Value: text, OldValue: old})
	return nil
}

// SetAttr sets an attribute on an element node.
func (d *Document) SetAttr(n *html.Node, key, val string) error {
	if n == nil || n.Type != html.ElementNode {
		return ErrInvalidNode
	}
	old := ""
	found := false
	for i := range n.Attr {
		if n.Attr[i].Key == key {
			old = n.Attr[i].Val
			n.Attr[i].Val = val
			found = true
			break
		}
	}
	if !found {
		n.Attr = append(n.Attr, html.Attribute{Key: key, Val: val})
	}
	d.notify(Record{Op: OpAttr, Target: n, Tag: n.Data, Name: key, Value: val, OldValue: old})
	return nil
}

// RemoveAttr deletes an attribute from an element node.
func (d *Document) RemoveAttr(n *html.Node, key string) error {
	if n == nil || n.Type != html.ElementNode {
		return ErrInvalidNode
	}
	for i := range n.Attr {
		if n.Attr[i].Key == key {
			old := n.Attr[i].Val
			n.Attr = append(n.Attr[:i], n.Attr[i+1:]...)
			d.notify(Record{Op: OpAttr, Target: n, Tag: n.Data, Name: key, OldValue: old})
			return nil
		}
	}
	return nil
}

// InsertBefore inserts child under parent, before ref. A nil ref appends.
func (d *Document) InsertBefore(parent, child, ref *html.Node) error {
	if parent == nil || child == nil {
		return ErrInvalidNode
	}
	parent.InsertBefore(child, ref)
	d.notify(Record{Op: OpInsert, Target: child, Tag: child.Data, HTML: renderNode(child)})
	return nil
}

// AppendChild appends child as parent's last child.
func (d *Document) AppendChild(parent, child *html.Node) error {
	return d.InsertBefore(parent, child, nil)
}

// RemoveChild detaches child from parent.
func (d *Document) RemoveChild(parent, child *html.Node) error {
	if parent == nil || child == nil || child.Parent != parent {
		return ErrInvalidNode
	}
	parent.RemoveChild(child)
	d.notify(Record{Op: OpRemove, Target: child, Tag: child.Data})
	return nil
}

// InsertFragmentHTML sanitizes fragment, parses it in parent's context, and
// appends the resulting nodes. Returns the inserted top-level nodes. This is
// the only path by which foreign markup enters the tree.
func (d *Document) InsertFragmentHTML(parent *html.Node, fragment string) ([]*html.Node, error) {
	if parent == nil || parent.Type != html.ElementNode {
		return nil, ErrInvalidNode
	}

	clean := d.policy.Sanitize(fragment)
	nodes, err := html.ParseFragment(strings.NewReader(clean), parent)
	if err != nil {
		return nil, fmt.Errorf("dom: parse fragment: %w", err)
	}

	for _, n := range nodes {
		if err := d.AppendChild(parent, n); err != nil {
			return nil, err
		}
	}
	return nodes, nil
}

// GetAttr returns the value of an attribute, and whether it was present.
func GetAttr(n *html.Node, key string) (string, bool) {
	if n == nil {
		return "", false
	}
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val, true
		}
	}
	return "", false
}

// HasClass reports whether an element's class attribute contains name.
func HasClass(n *html.Node, name string) bool {
	cls, ok := GetAttr(n, "class")
	if !ok {
		return false
	}
	for _, c := range strings.Fields(cls) {
		if c == name {
			return true
		}
	}
	return false
}

func renderNode(n *html.Node) string {
	var sb strings.Builder
	if err := html.Render(&sb, n); err != nil {
		return ""
	}
	return sb.String()
}

// PathOf returns the child-index path from root to n, or nil when n is not
// under root. Paths survive rendering round-trips and are how the live-page
// bridge names nodes across the process boundary.
func PathOf(root, n *html.Node) []int {
	var path []int
	for cur := n; cur != root; cur = cur.Parent {
		if cur.Parent == nil {
			return nil
		}
		idx := 0
		for sib := cur.Parent.FirstChild; sib != cur; sib = sib.NextSibling {
			idx++
		}
		path = append([]int{idx}, path...)
	}
	return path
}

// NodeAtPath resolves a child-index path produced by PathOf.
func NodeAtPath(root *html.Node, path []int) *html.Node {
	cur := root
	for _, idx := range path {
		c := cur.FirstChild
		for i := 0; i < idx && c != nil; i++ {
			c = c.NextSibling
		}
		if c == nil {
			return nil
		}
		cur = c
	}
	return cur
}
