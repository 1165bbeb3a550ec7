package dom

import (
	"context"
	"log/slog"
	"runtime"
	"strings"
	"sync/atomic"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/hazyhaar/rephrase/textproc"
)

// TraverserOptions tunes a Traverser.
type TraverserOptions struct {
	// ChunkSize is the number of text nodes converted per batch before
	// control is yielded. Default: 50.
	ChunkSize int

	Logger *slog.Logger
}

func (o *TraverserOptions) defaults() {
	if o.ChunkSize <= 0 {
		o.ChunkSize = 50
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
}

// Traverser walks a subtree in document order, feeding eligible text nodes
// to the processor and modifier in bounded chunks.
type Traverser struct {
	proc      *textproc.Processor
	mod       *Modifier
	markers   *Markers
	budget    *Budget
	opts      TraverserOptions
	cancelled atomic.Bool
}

// NewTraverser creates a Traverser.
func NewTraverser(proc *textproc.Processor, mod *Modifier, markers *Markers, budget *Budget, opts TraverserOptions) *Traverser {
	opts.defaults()
	return &Traverser{
		proc:    proc,
		mod:     mod,
		markers: markers,
		budget:  budget,
		opts:    opts,
	}
}

// Cancel stops an in-flight ProcessChunks at the next chunk boundary.
func (t *Traverser) Cancel() { t.cancelled.Store(true) }

// skippedElement reports element types whose subtrees are never converted:
// non-rendering elements and editable fields.
func skippedElement(n *html.Node) bool {
	switch n.DataAtom {
	case atom.Script, atom.Style, atom.Noscript, atom.Template,
		atom.Textarea, atom.Input, atom.Select, atom.Option:
		return true
	}
	return false
}

// insideEditable walks ancestors looking for an editable context. The
// nearest explicit contenteditable value wins on the way up, matching how
// the attribute inherits.
func insideEditable(n *html.Node) bool {
	for cur := n.Parent; cur != nil; cur = cur.Parent {
		if cur.Type != html.ElementNode {
			continue
		}
		if cur.DataAtom == atom.Textarea || cur.DataAtom == atom.Input {
			return true
		}
		if v, ok := GetAttr(cur, "contenteditable"); ok {
			switch strings.ToLower(v) {
			case "", "true", "plaintext-only":
				return true
			case "false":
				return false
			}
		}
	}
	return false
}

// eligible reports whether a text node may be converted right now.
func (t *Traverser) eligible(n *html.Node) bool {
	if n == nil || n.Type != html.TextNode || n.Parent == nil {
		return false
	}
	if t.markers.Marked(n) {
		return false
	}
	if strings.TrimSpace(n.Data) == "" {
		return false
	}
	for cur := n.Parent; cur != nil; cur = cur.Parent {
		if cur.Type != html.ElementNode {
			continue
		}
		if skippedElement(cur) || t.markers.Marked(cur) {
			return false
		}
	}
	return !insideEditable(n)
}

// collect gathers the eligible text nodes under root in document order.
// Collection is separated from conversion so splicing cannot disturb the
// walk.
func (t *Traverser) collect(root *html.Node) []*html.Node {
	var out []*html.Node
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && (skippedElement(n) || t.markers.Marked(n)) {
			return
		}
		if n.Type == html.TextNode && t.eligible(n) {
			out = append(out, n)
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	if root != nil {
		walk(root)
	}
	return out
}

// processNode extracts segments for one text node and wraps them. The node
// is marked afterward whether or not anything matched, so a second pass
// over the same subtree does no further writes.
func (t *Traverser) processNode(n *html.Node) bool {
	if !t.eligible(n) {
		return false
	}
	segs := t.proc.IdentifySegments(n.Data)
	if len(segs) == 0 {
		t.markers.Mark(n)
		return false
	}
	return t.mod.WrapSegments(n, segs)
}

// ProcessChunks converts the eligible text nodes under root in bounded
// batches, yielding between batches so watcher flushes and tooltip timers
// interleave with conversion work. It returns the number of nodes that
// received at least one wrapper.
//
// It stops early when the context is cancelled, Cancel is called, or the
// operation budget trips; budget exhaustion is not an error.
func (t *Traverser) ProcessChunks(ctx context.Context, root *html.Node) (int, error) {
	t.cancelled.Store(false)
	nodes := t.collect(root)
	count := 0

	for start := 0; start < len(nodes); start += t.opts.ChunkSize {
		if t.cancelled.Load() {
			t.opts.Logger.Debug("dom: traversal cancelled", "converted", count)
			return count, nil
		}
		select {
		case <-ctx.Done():
			return count, ctx.Err()
		default:
		}

		end := start + t.opts.ChunkSize
		if end > len(nodes) {
			end = len(nodes)
		}
		for _, n := range nodes[start:end] {
			if t.budget.Tripped() {
				return count, nil
			}
			if t.processNode(n) {
				count++
			}
		}

		// Yield between chunks: a single call never monopolises the loop.
		runtime.Gosched()
	}
	return count, nil
}
