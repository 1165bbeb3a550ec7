package livepage

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/stealth"

	"github.com/hazyhaar/rephrase/dom"
	"github.com/hazyhaar/rephrase/tooltip"
)

// Bridge connects one browser page to the in-memory pipeline: capture the
// markup out, apply the rewritten tree back, relay events in.
type Bridge struct {
	mgr  *Manager
	page *rod.Page
}

// NewBridge creates a Bridge on an already-started Manager.
func NewBridge(mgr *Manager) *Bridge {
	return &Bridge{mgr: mgr}
}

// Open creates a stealth tab and navigates it to pageURL.
func (b *Bridge) Open(ctx context.Context, pageURL string) error {
	br := b.mgr.Browser()
	if br == nil {
		return fmt.Errorf("livepage: no active browser")
	}

	page, err := stealth.Page(br)
	if err != nil {
		return fmt.Errorf("livepage: create tab: %w", err)
	}

	navCtx, cancel := context.WithTimeout(ctx, b.mgr.cfg.NavigateTimeout)
	defer cancel()

	if err := page.Context(navCtx).Navigate(pageURL); err != nil {
		page.Close()
		return fmt.Errorf("livepage: navigate %s: %w", pageURL, err)
	}
	if err := page.Context(navCtx).WaitLoad(); err != nil {
		b.mgr.cfg.Logger.Warn("livepage: wait load timeout", "url", pageURL, "error", err)
	}

	b.page = page
	return nil
}

// Capture serialises the page and parses it into a Document.
func (b *Bridge) Capture(ctx context.Context) (*dom.Document, error) {
	res, err := b.page.Context(ctx).Eval(`() => document.documentElement.outerHTML`)
	if err != nil {
		return nil, fmt.Errorf("livepage: capture: %w", err)
	}
	doc, err := dom.ParseString(res.Value.Str())
	if err != nil {
		return nil, fmt.Errorf("livepage: capture: %w", err)
	}
	return doc, nil
}

// Apply pushes the rewritten document back into the page.
func (b *Bridge) Apply(ctx context.Context, doc *dom.Document) error {
	out, err := doc.HTML()
	if err != nil {
		return fmt.Errorf("livepage: render: %w", err)
	}
	if err := b.page.Context(ctx).SetDocumentContent(out); err != nil {
		return fmt.Errorf("livepage: apply: %w", err)
	}
	return nil
}

// ProbeCapabilities asks the page what the tooltip layer may rely on.
func (b *Bridge) ProbeCapabilities(ctx context.Context) (*tooltip.Static, error) {
	res, err := b.page.Context(ctx).Eval(`() => ({
		highZ: true,
		pointerEvents: CSS.supports('pointer-events', 'none'),
		transitions: CSS.supports('transition', 'opacity 120ms'),
		visibility: typeof document.visibilityState === 'string',
	})`)
	if err != nil {
		return nil, fmt.Errorf("livepage: probe capabilities: %w", err)
	}
	return &tooltip.Static{
		HighZIndex:    res.Value.Get("highZ").Bool(),
		PointerEvents: res.Value.Get("pointerEvents").Bool(),
		Transitions:   res.Value.Get("transitions").Bool(),
		Visibility:    res.Value.Get("visibility").Bool(),
	}, nil
}

// PageEvent is one interaction event as captured in the page. Path is the
// child-index path from the document node to the target, the same shape
// NodeAtPath resolves.
type PageEvent struct {
	Kind string `json:"kind"`
	Path []int  `json:"path"`
	Rect struct {
		X float64 `json:"x"`
		Y float64 `json:"y"`
		W float64 `json:"w"`
		H float64 `json:"h"`
	} `json:"rect"`
}

// InstallEventCapture injects listeners that queue pointer, focus, key,
// scroll, and visibility events touching converted fragments. Idempotent
// per page.
func (b *Bridge) InstallEventCapture(ctx context.Context) error {
	js := fmt.Sprintf(`() => {
		if (window.__rephraseQueue) return;
		window.__rephraseQueue = [];
		const pathOf = (n) => {
			const path = [];
			while (n && n !== document) {
				const p = n.parentNode;
				if (!p) return [];
				let i = 0;
				let c = p.firstChild;
				while (c && c !== n) { i++; c = c.nextSibling; }
				path.unshift(i);
				n = p;
			}
			return path;
		};
		const push = (kind, el) => {
			const r = el ? el.getBoundingClientRect() : {left: 0, top: 0, width: 0, height: 0};
			window.__rephraseQueue.push({
				kind: kind,
				path: el ? pathOf(el) : [],
				rect: {x: r.left, y: r.top, w: r.width, h: r.height},
			});
		};
		const wrapperOf = (t) => t && t.closest ? t.closest('.%s') : null;
		document.addEventListener('mouseover', e => { const w = wrapperOf(e.target); if (w) push('enter', w); }, true);
		document.addEventListener('mouseout', e => { const w = wrapperOf(e.target); if (w) push('leave', w); }, true);
		document.addEventListener('focusin', e => { const w = wrapperOf(e.target); if (w) push('focusin', w); }, true);
		document.addEventListener('focusout', e => { const w = wrapperOf(e.target); if (w) push('focusout', w); }, true);
		document.addEventListener('keydown', e => { if (e.key === 'Escape') push('escape', null); }, true);
		document.addEventListener('visibilitychange', () => {
			if (document.visibilityState === 'hidden') push('hidden', null);
		});
		document.addEventListener('scroll', () => {
			document.querySelectorAll('[aria-describedby]').forEach(el => push('scroll', el));
		}, true);
	}`, dom.WrapperClass)

	if _, err := b.page.Context(ctx).Eval(js); err != nil {
		return fmt.Errorf("livepage: install event capture: %w", err)
	}
	return nil
}

// DrainEvents fetches and clears the page's queued events.
func (b *Bridge) DrainEvents(ctx context.Context) ([]PageEvent, error) {
	res, err := b.page.Context(ctx).Eval(`() => {
		const q = window.__rephraseQueue || [];
		window.__rephraseQueue = [];
		return JSON.stringify(q);
	}`)
	if err != nil {
		return nil, fmt.Errorf("livepage: drain events: %w", err)
	}

	var events []PageEvent
	if err := json.Unmarshal([]byte(res.Value.Str()), &events); err != nil {
		return nil, fmt.Errorf("livepage: decode events: %w", err)
	}
	return events, nil
}

// ResolveEvent maps a page event onto the in-memory tree. It returns false
// when the kind is unknown or the path no longer resolves.
func ResolveEvent(doc *dom.Document, ev PageEvent) (tooltip.Event, bool) {
	var kind tooltip.EventKind
	switch ev.Kind {
	case "enter":
		kind = tooltip.PointerEnter
	case "leave":
		kind = tooltip.PointerLeave
	case "focusin":
		kind = tooltip.FocusIn
	case "focusout":
		kind = tooltip.FocusOut
	case "escape":
		return tooltip.Event{Kind: tooltip.KeyEscape}, true
	case "hidden":
		return tooltip.Event{Kind: tooltip.VisibilityHidden}, true
	case "scroll":
		kind = tooltip.Scroll
	default:
		return tooltip.Event{}, false
	}

	target := dom.NodeAtPath(doc.Root(), ev.Path)
	if target == nil {
		return tooltip.Event{}, false
	}
	return tooltip.Event{
		Kind:   kind,
		Target: target,
		TargetRect: tooltip.Rect{
			X: ev.Rect.X, Y: ev.Rect.Y, W: ev.Rect.W, H: ev.Rect.H,
		},
	}, true
}

// PollEvents drains the page queue on a fixed interval and delivers each
// resolved event until the context ends.
func (b *Bridge) PollEvents(ctx context.Context, doc *dom.Document, interval time.Duration, deliver func(tooltip.Event)) error {
	if interval <= 0 {
		interval = 50 * time.Millisecond
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			events, err := b.DrainEvents(ctx)
			if err != nil {
				return err
			}
			for _, pe := range events {
				if ev, ok := ResolveEvent(doc, pe); ok {
					deliver(ev)
				}
			}
		}
	}
}

// Close closes the tab.
func (b *Bridge) Close() error {
	if b.page != nil {
		return b.page.Close()
	}
	return nil
}
