package tooltip

import (
	"fmt"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/hazyhaar/rephrase/dom"
)

// ElementID identifies the tooltip element and is the value targets point
// at through aria-describedby.
const ElementID = "rephrase-tooltip"

// UI owns the tooltip element: creation, text, position, show/hide. All
// content goes in as text-node data, never as markup.
type UI struct {
	doc     *dom.Document
	markers *dom.Markers
	caps    Capabilities

	el   *html.Node
	text *html.Node
}

// NewUI creates the UI layer. The element itself is created lazily on
// first use.
func NewUI(doc *dom.Document, markers *dom.Markers, caps Capabilities) *UI {
	return &UI{doc: doc, markers: markers, caps: caps}
}

// Element returns the tooltip element, creating and appending it to the
// body on first call. The element and its text child are marked so the
// traverser and watcher ignore them.
func (u *UI) Element() *html.Node {
	if u.el != nil {
		return u.el
	}

	u.text = &html.Node{Type: html.TextNode, Data: ""}
	u.el = &html.Node{
		Type:     html.ElementNode,
		DataAtom: atom.Div,
		Data:     "div",
		Attr: []html.Attribute{
			{Key: "id", Val: ElementID},
			{Key: "role", Val: "tooltip"},
			{Key: "style", Val: u.baseStyle() + "display:none"},
		},
	}
	u.el.AppendChild(u.text)
	u.markers.Mark(u.el)
	u.markers.Mark(u.text)

	if err := u.doc.AppendChild(u.doc.Body(), u.el); err != nil {
		u.el = nil
		u.text = nil
		return nil
	}
	return u.el
}

// SetText replaces the tooltip content through text assignment.
func (u *UI) SetText(s string) {
	if u.Element() == nil {
		return
	}
	_ = u.doc.SetText(u.text, s)
}

// ShowAt makes the tooltip visible at the given viewport position.
func (u *UI) ShowAt(at Point) {
	if u.Element() == nil {
		return
	}
	style := u.baseStyle() + fmt.Sprintf("left:%.0fpx;top:%.0fpx;display:block", at.X, at.Y)
	_ = u.doc.SetAttr(u.el, "style", style)
}

// Hide makes the tooltip invisible while keeping the element in place.
func (u *UI) Hide() {
	if u.el == nil {
		return
	}
	_ = u.doc.SetAttr(u.el, "style", u.baseStyle()+"display:none")
}

// Visible reports whether the element is currently shown.
func (u *UI) Visible() bool {
	if u.el == nil {
		return false
	}
	style, _ := dom.GetAttr(u.el, "style")
	return strings.Contains(style, "display:block")
}

// Remove detaches the element from the document and clears UI state.
func (u *UI) Remove() {
	if u.el == nil {
		return
	}
	if u.el.Parent != nil {
		_ = u.doc.RemoveChild(u.el.Parent, u.el)
	}
	u.markers.Forget(u.el)
	u.markers.Forget(u.text)
	u.el = nil
	u.text = nil
}

// baseStyle assembles the fixed styling from platform capabilities.
func (u *UI) baseStyle() string {
	var sb strings.Builder
	sb.WriteString("position:fixed;max-width:320px;padding:6px 8px;")
	sb.WriteString("background:#1a1a1a;color:#ffffff;border-radius:4px;font-size:13px;")

	if u.caps.HighZIndexSafe() {
		sb.WriteString("z-index:2147483647;")
	} else {
		sb.WriteString("z-index:99999;")
	}
	if u.caps.PointerEventsSupported() {
		sb.WriteString("pointer-events:none;")
	}
	if u.caps.TransitionsSupported() {
		sb.WriteString("transition:opacity 120ms ease-in;")
	}
	return sb.String()
}
