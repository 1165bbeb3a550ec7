package dom

import "golang.org/x/net/html"

// WrapperClass marks elements produced by the modifier.
const WrapperClass = "rephrase-converted"

// OriginalAttr carries the pre-conversion text on a wrapper.
const OriginalAttr = "data-original"

// Markers is the session-owned processed-node set. It replaces ad hoc
// properties on host objects with an explicit lookup keyed by node pointer;
// it lives exactly as long as the traversal session that owns it.
type Markers struct {
	seen map[*html.Node]struct{}
}

// NewMarkers creates an empty marker set.
func NewMarkers() *Markers {
	return &Markers{seen: make(map[*html.Node]struct{})}
}

// Mark flags a node as processed.
func (m *Markers) Mark(n *html.Node) {
	if n != nil {
		m.seen[n] = struct{}{}
	}
}

// Marked reports whether a node was processed this session. Wrapper
// elements count as processed even when re-parsed content lost pointer
// identity, recognised by their class marker.
func (m *Markers) Marked(n *html.Node) bool {
	if n == nil {
		return false
	}
	if _, ok := m.seen[n]; ok {
		return true
	}
	return n.Type == html.ElementNode && HasClass(n, WrapperClass)
}

// Forget drops a node from the set, for nodes removed from the tree.
func (m *Markers) Forget(n *html.Node) {
	delete(m.seen, n)
}

// Len returns the number of explicitly marked nodes.
func (m *Markers) Len() int { return len(m.seen) }
