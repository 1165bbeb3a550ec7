package tooltip

import (
	"log/slog"
	"strings"
	"testing"
	"time"

	"golang.org/x/net/html"

	"github.com/hazyhaar/rephrase/dom"
)

func discard() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

const fixtureHTML = `<html><body>
<p><span class="rephrase-converted" data-original="Hillary Clinton" tabindex="0">Crooked Hillary</span></p>
<p><span class="rephrase-converted" data-original="Ted Cruz" tabindex="0">Lyin' Ted</span></p>
<p><span class="plain">not converted</span></p>
</body></html>`

func newFixture(t *testing.T) (*dom.Document, *Manager, *Static, []*html.Node) {
	t.Helper()
	doc, err := dom.ParseString(fixtureHTML)
	if err != nil {
		t.Fatal(err)
	}
	caps := &Static{HighZIndex: true, PointerEvents: true, Transitions: true, Visibility: true}
	m := NewManager(doc, dom.NewMarkers(), caps, nil, Config{
		ShowDelay: time.Millisecond,
		Logger:    discard(),
	})

	var spans []*html.Node
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "span" {
			spans = append(spans, n)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc.Root())
	if len(spans) != 3 {
		t.Fatalf("fixture spans: got %d, want 3", len(spans))
	}
	return doc, m, caps, spans
}

// showOn drives enter + debounce expiry for a target.
func showOn(t *testing.T, m *Manager, target *html.Node, rect Rect) {
	t.Helper()
	m.HandleEvent(Event{Kind: PointerEnter, Target: target, TargetRect: rect})
	if m.TimerC() == nil {
		t.Fatal("no show timer pending")
	}
	<-m.TimerC()
	m.ShowPending()
}

func TestShow_DebouncedAndLinked(t *testing.T) {
	doc, m, _, spans := newFixture(t)
	target := spans[0]

	m.HandleEvent(Event{Kind: PointerEnter, Target: target, TargetRect: Rect{100, 100, 80, 20}})
	if m.Visible() {
		t.Fatal("tooltip visible before debounce expired")
	}
	<-m.TimerC()
	m.ShowPending()

	if !m.Visible() {
		t.Fatal("tooltip not visible after ShowPending")
	}
	if m.Target() != target {
		t.Error("session target mismatch")
	}

	if v, ok := dom.GetAttr(target, "aria-describedby"); !ok || v != ElementID {
		t.Errorf("aria-describedby: got %q, want %q", v, ElementID)
	}

	out, _ := doc.HTML()
	if !strings.Contains(out, ">Hillary Clinton</div>") {
		t.Errorf("tooltip content missing original text:\n%s", out)
	}
}

func TestShow_SweepDoesNotFlicker(t *testing.T) {
	_, m, _, spans := newFixture(t)

	// Pointer sweeps across two wrappers before the delay elapses; only
	// the last one may show.
	m.HandleEvent(Event{Kind: PointerEnter, Target: spans[0], TargetRect: Rect{100, 100, 80, 20}})
	m.HandleEvent(Event{Kind: PointerLeave, Target: spans[0]})
	m.HandleEvent(Event{Kind: PointerEnter, Target: spans[1], TargetRect: Rect{100, 140, 80, 20}})
	<-m.TimerC()
	m.ShowPending()

	if m.Target() != spans[1] {
		t.Error("tooltip should describe the last entered target")
	}
}

func TestSingleActiveSession(t *testing.T) {
	doc, m, _, spans := newFixture(t)

	showOn(t, m, spans[0], Rect{100, 100, 80, 20})
	showOn(t, m, spans[1], Rect{100, 300, 80, 20})

	if m.Target() != spans[1] {
		t.Error("second show should own the session")
	}
	// The first target's description link must be gone.
	if _, ok := dom.GetAttr(spans[0], "aria-describedby"); ok {
		t.Error("previous target still linked: two sessions alive")
	}
	if _, ok := dom.GetAttr(spans[1], "aria-describedby"); !ok {
		t.Error("current target not linked")
	}

	// Exactly one tooltip element exists.
	out, _ := doc.HTML()
	if got := strings.Count(out, `id="`+ElementID+`"`); got != 1 {
		t.Errorf("tooltip elements: got %d, want 1", got)
	}
}

func TestHide_OnLeaveUnlinks(t *testing.T) {
	_, m, _, spans := newFixture(t)
	target := spans[0]

	showOn(t, m, target, Rect{100, 100, 80, 20})
	m.HandleEvent(Event{Kind: PointerLeave, Target: target})

	if m.Visible() {
		t.Error("tooltip still visible after leave")
	}
	if _, ok := dom.GetAttr(target, "aria-describedby"); ok {
		t.Error("aria-describedby not removed on hide")
	}
}

func TestHide_OnEscape(t *testing.T) {
	_, m, _, spans := newFixture(t)
	showOn(t, m, spans[0], Rect{100, 100, 80, 20})

	m.HandleEvent(Event{Kind: KeyEscape})
	if m.Visible() {
		t.Error("tooltip still visible after Escape")
	}
}

func TestHide_OnVisibilityEvent(t *testing.T) {
	_, m, _, spans := newFixture(t)
	showOn(t, m, spans[0], Rect{100, 100, 80, 20})

	m.HandleEvent(Event{Kind: VisibilityHidden})
	if m.Visible() {
		t.Error("tooltip still visible after visibility event")
	}
	if _, ok := dom.GetAttr(spans[0], "aria-describedby"); ok {
		t.Error("aria-describedby not removed on visibility hide")
	}

	// A pending show is cancelled too.
	m.HandleEvent(Event{Kind: PointerEnter, Target: spans[1], TargetRect: Rect{100, 140, 80, 20}})
	m.HandleEvent(Event{Kind: VisibilityHidden})
	if m.TimerC() != nil {
		t.Error("show timer survived a visibility event")
	}
}

func TestHide_OnVisibilityLost(t *testing.T) {
	_, m, caps, spans := newFixture(t)
	showOn(t, m, spans[0], Rect{100, 100, 80, 20})

	caps.FireVisibilityHidden()
	if m.Visible() {
		t.Error("tooltip still visible after page lost visibility")
	}
}

func TestHide_TargetLeavesViewport(t *testing.T) {
	_, m, _, spans := newFixture(t)
	target := spans[0]
	showOn(t, m, target, Rect{100, 100, 80, 20})

	m.HandleEvent(Event{Kind: Scroll, Target: target, TargetRect: Rect{100, -500, 80, 20}})
	if m.Visible() {
		t.Error("tooltip still visible after target scrolled out of viewport")
	}
}

func TestNonWrapperIgnored(t *testing.T) {
	_, m, _, spans := newFixture(t)
	plain := spans[2]

	m.HandleEvent(Event{Kind: PointerEnter, Target: plain, TargetRect: Rect{100, 100, 80, 20}})
	if m.TimerC() != nil {
		t.Error("show timer started for a non-wrapper target")
	}
}

func TestFocusPath(t *testing.T) {
	_, m, _, spans := newFixture(t)
	target := spans[0]

	m.HandleEvent(Event{Kind: FocusIn, Target: target, TargetRect: Rect{100, 100, 80, 20}})
	<-m.TimerC()
	m.ShowPending()
	if !m.Visible() {
		t.Fatal("tooltip not shown on focus")
	}

	m.HandleEvent(Event{Kind: FocusOut, Target: target})
	if m.Visible() {
		t.Error("tooltip still visible after blur")
	}
}

func TestDispose_LeavesNothingBehind(t *testing.T) {
	doc, m, caps, spans := newFixture(t)
	showOn(t, m, spans[0], Rect{100, 100, 80, 20})

	m.Dispose()

	if m.Visible() {
		t.Error("visible after Dispose")
	}
	if caps.HandlerCount() != 0 {
		t.Errorf("visibility handlers remaining: %d, want 0", caps.HandlerCount())
	}
	out, _ := doc.HTML()
	if strings.Contains(out, ElementID) {
		t.Error("tooltip element still in document after Dispose")
	}

	// Further events are ignored.
	m.HandleEvent(Event{Kind: PointerEnter, Target: spans[1], TargetRect: Rect{0, 0, 10, 10}})
	if m.TimerC() != nil {
		t.Error("disposed manager armed a timer")
	}
}
