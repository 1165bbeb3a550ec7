package dom

import (
	"log/slog"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/hazyhaar/rephrase/textproc"
)

// Modifier splices text nodes into alternating plain-text and wrapper
// pieces based on extracted segments. All writes go through the Document so
// the watcher sees them (or doesn't, inside its bracket).
type Modifier struct {
	doc     *Document
	markers *Markers
	budget  *Budget
	logger  *slog.Logger
}

// NewModifier creates a Modifier.
func NewModifier(doc *Document, markers *Markers, budget *Budget, logger *slog.Logger) *Modifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &Modifier{doc: doc, markers: markers, budget: budget, logger: logger}
}

// WrapSegments splices node according to segs, which must be sorted
// ascending by Start with no overlaps (the extractor guarantees both).
// Splicing proceeds in descending Start order so the offsets of earlier,
// still-unspliced segments remain valid against the shrinking node.
//
// Returns false with no DOM change when segs is empty or node is not an
// attached text node; true iff at least one wrapper was inserted.
func (m *Modifier) WrapSegments(node *html.Node, segs []textproc.Segment) bool {
	if len(segs) == 0 {
		return false
	}
	if node == nil || node.Type != html.TextNode || node.Parent == nil {
		m.logger.Debug("dom: wrap skipped, invalid node")
		return false
	}
	if last := segs[len(segs)-1]; last.End > len(node.Data) {
		m.logger.Warn("dom: wrap skipped, segment out of range",
			"end", last.End, "len", len(node.Data))
		return false
	}

	inserted := false
	for i := len(segs) - 1; i >= 0; i-- {
		if !m.budget.Spend(1) {
			break
		}
		seg := segs[i]

		parent := node.Parent
		ref := node.NextSibling

		// Tail text after the segment, if any, becomes a fresh text node.
		if tail := node.Data[seg.End:]; tail != "" {
			tn := &html.Node{Type: html.TextNode, Data: tail}
			m.markers.Mark(tn)
			if err := m.doc.InsertBefore(parent, tn, ref); err != nil {
				m.logger.Warn("dom: insert tail failed", "error", err)
				continue
			}
			ref = tn
		}

		w := m.newWrapper(seg)
		if err := m.doc.InsertBefore(parent, w, ref); err != nil {
			m.logger.Warn("dom: insert wrapper failed", "error", err)
			continue
		}
		inserted = true

		if err := m.doc.SetText(node, node.Data[:seg.Start]); err != nil {
			m.logger.Warn("dom: truncate source node failed", "error", err)
		}
	}

	// The remaining head text (possibly empty) is finalized either way.
	m.markers.Mark(node)
	return inserted
}

// newWrapper builds the converted fragment: class marker, recoverable
// original text, keyboard focus, and the converted text attached as a text
// node, never parsed as markup.
func (m *Modifier) newWrapper(seg textproc.Segment) *html.Node {
	w := &html.Node{
		Type:     html.ElementNode,
		DataAtom: atom.Span,
		Data:     "span",
		Attr: []html.Attribute{
			{Key: "class", Val: WrapperClass},
			{Key: OriginalAttr, Val: seg.Original},
			{Key: "tabindex", Val: "0"},
		},
	}
	text := &html.Node{Type: html.TextNode, Data: seg.Converted}
	w.AppendChild(text)

	// Marked before insertion so the watcher filter and a re-entrant
	// traversal both skip it.
	m.markers.Mark(w)
	m.markers.Mark(text)
	return w
}
