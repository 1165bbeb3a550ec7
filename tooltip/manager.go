// Package tooltip shows the recoverable original text for a converted
// fragment on hover or focus. It rides on the wrapper markup the modifier
// produces: the wrapper class and original-text attribute are its only
// contract with the rest of the system.
package tooltip

import (
	"log/slog"
	"time"

	"golang.org/x/net/html"

	"github.com/hazyhaar/rephrase/dom"
)

// EventKind is a pointer/focus/key event category delivered by the host.
type EventKind int

const (
	PointerEnter EventKind = iota
	PointerLeave
	FocusIn
	FocusOut
	KeyEscape
	Scroll
	// VisibilityHidden reports the page losing visibility for hosts that
	// deliver it through the event stream rather than the capability
	// adapter's callback. Both paths end in the same hide.
	VisibilityHidden
)

// Event is one interaction event. TargetRect is the target's current
// viewport rectangle as reported by the host.
type Event struct {
	Kind       EventKind
	Target     *html.Node
	TargetRect Rect
}

// Config tunes the Manager.
type Config struct {
	// ShowDelay debounces show so a pointer sweeping across several
	// converted fragments does not flicker. Default: 150ms.
	ShowDelay time.Duration
	// Gap is the distance between target and tooltip. Default: 8px.
	Gap float64
	// Viewport is the visible area used for placement. Default: 1280x800.
	Viewport Rect

	Logger *slog.Logger
}

func (c *Config) defaults() {
	if c.ShowDelay <= 0 {
		c.ShowDelay = 150 * time.Millisecond
	}
	if c.Gap <= 0 {
		c.Gap = 8
	}
	if c.Viewport.W <= 0 || c.Viewport.H <= 0 {
		c.Viewport = Rect{W: 1280, H: 800}
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// session is the single tooltip runtime state. At most one exists.
type session struct {
	visible           bool
	target            *html.Node
	describedByLinked bool
}

// Manager is the tooltip state machine. Not safe for concurrent use: all
// calls happen on the engine's processing loop. DOM writes go through the
// injected write bracket so they never re-enter the traversal pipeline.
type Manager struct {
	doc   *dom.Document
	ui    *UI
	caps  Capabilities
	write func(func())
	cfg   Config

	sess        session
	pending     *html.Node
	pendingRect Rect
	showTimer   *time.Timer
	showCh      <-chan time.Time

	visCleanup func()
	disposed   bool
	logger     *slog.Logger
}

// NewManager creates a Manager. write is the watcher's suppression bracket;
// every DOM write the tooltip performs runs inside it.
func NewManager(doc *dom.Document, markers *dom.Markers, caps Capabilities, write func(func()), cfg Config) *Manager {
	cfg.defaults()
	if write == nil {
		write = func(fn func()) { fn() }
	}
	m := &Manager{
		doc:    doc,
		ui:     NewUI(doc, markers, caps),
		caps:   caps,
		write:  write,
		cfg:    cfg,
		logger: cfg.Logger,
	}
	m.visCleanup = caps.OnVisibilityHidden(m.hideNow)
	return m
}

// Visible reports whether a tooltip is currently shown.
func (m *Manager) Visible() bool { return m.sess.visible }

// Target returns the element the visible tooltip describes, or nil.
func (m *Manager) Target() *html.Node {
	if !m.sess.visible {
		return nil
	}
	return m.sess.target
}

// isWrapper reports whether n is a converted fragment this manager serves.
func isWrapper(n *html.Node) bool {
	if n == nil || n.Type != html.ElementNode {
		return false
	}
	if !dom.HasClass(n, dom.WrapperClass) {
		return false
	}
	_, ok := dom.GetAttr(n, dom.OriginalAttr)
	return ok
}

// HandleEvent advances the state machine by one interaction event.
func (m *Manager) HandleEvent(ev Event) {
	if m.disposed {
		return
	}

	switch ev.Kind {
	case PointerEnter, FocusIn:
		if !isWrapper(ev.Target) {
			return
		}
		if m.sess.visible && m.sess.target == ev.Target {
			return
		}
		m.pending = ev.Target
		m.pendingRect = ev.TargetRect
		m.restartShowTimer()

	case PointerLeave, FocusOut:
		if m.pending == ev.Target {
			m.cancelPending()
		}
		if m.sess.visible && m.sess.target == ev.Target {
			m.hideNow()
		}

	case KeyEscape, VisibilityHidden:
		m.cancelPending()
		m.hideNow()

	case Scroll:
		if !m.sess.visible || m.sess.target != ev.Target {
			return
		}
		if !m.cfg.Viewport.Intersects(ev.TargetRect) {
			m.hideNow()
			return
		}
		m.position(ev.TargetRect)
	}
}

// TimerC returns the channel that fires when the show delay elapses. The
// engine loop selects on it and calls ShowPending.
func (m *Manager) TimerC() <-chan time.Time { return m.showCh }

// ShowPending shows the tooltip for the debounced pending target, if any.
func (m *Manager) ShowPending() {
	m.stopShowTimer()
	if m.disposed || m.pending == nil {
		return
	}
	target, rect := m.pending, m.pendingRect
	m.pending = nil
	m.show(target, rect)
}

// show resolves any existing session first: tooltips never stack.
func (m *Manager) show(target *html.Node, rect Rect) {
	if m.sess.visible && m.sess.target != target {
		m.hideNow()
	}

	orig, ok := dom.GetAttr(target, dom.OriginalAttr)
	if !ok {
		return
	}

	var placement Placement
	m.write(func() {
		m.ui.SetText(orig)
		size := EstimateSize(orig)
		var at Point
		at, placement = Place(rect, size, m.cfg.Viewport, m.cfg.Gap)
		m.ui.ShowAt(at)
		_ = m.doc.SetAttr(target, "aria-describedby", ElementID)
	})

	m.sess = session{visible: true, target: target, describedByLinked: true}
	m.logger.Debug("tooltip: shown", "placement", placement.String())
}

// position recomputes placement for the current session target.
func (m *Manager) position(rect Rect) {
	orig, ok := dom.GetAttr(m.sess.target, dom.OriginalAttr)
	if !ok {
		return
	}
	m.write(func() {
		at, _ := Place(rect, EstimateSize(orig), m.cfg.Viewport, m.cfg.Gap)
		m.ui.ShowAt(at)
	})
}

// hideNow hides the tooltip and unlinks the description relationship.
// The link lives exactly as long as the tooltip is visible.
func (m *Manager) hideNow() {
	if !m.sess.visible {
		return
	}
	target := m.sess.target
	m.write(func() {
		m.ui.Hide()
		if m.sess.describedByLinked && target != nil {
			_ = m.doc.RemoveAttr(target, "aria-describedby")
		}
	})
	m.sess = session{}
}

// Dispose hides the tooltip, removes its element, and unregisters the
// exact handlers this manager installed. After Dispose the manager holds
// no state and ignores further events.
func (m *Manager) Dispose() {
	if m.disposed {
		return
	}
	m.cancelPending()
	m.hideNow()
	if m.visCleanup != nil {
		m.visCleanup()
		m.visCleanup = nil
	}
	m.write(m.ui.Remove)
	m.disposed = true
}

func (m *Manager) restartShowTimer() {
	m.stopShowTimer()
	m.showTimer = time.NewTimer(m.cfg.ShowDelay)
	m.showCh = m.showTimer.C
}

func (m *Manager) stopShowTimer() {
	if m.showTimer != nil {
		m.showTimer.Stop()
		m.showTimer = nil
		m.showCh = nil
	}
}

func (m *Manager) cancelPending() {
	m.pending = nil
	m.stopShowTimer()
}
