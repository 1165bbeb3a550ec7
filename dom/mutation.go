package dom

import "golang.org/x/net/html"

// Op is the type of DOM mutation observed.
type Op string

const (
	OpInsert Op = "insert" // node inserted (HTML carries the serialised subtree)
	OpRemove Op = "remove" // node removed
	OpText   Op = "text"   // text-node character data changed
	OpAttr   Op = "attr"   // attribute set or changed
)

// Record is a single DOM mutation. Target points into the live tree; a
// record is only meaningful while the node remains attached.
type Record struct {
	Op       Op
	Target   *html.Node
	Tag      string
	Name     string // attribute name for attr ops
	Value    string // new value
	OldValue string // previous value
	HTML     string // serialised subtree for insert
}
