package tooltip

// Capabilities is the platform feature adapter. The tooltip layer consumes
// it as an opaque source of truth; it never probes the host itself.
type Capabilities interface {
	// HighZIndexSafe reports whether the maximum z-index can be used
	// without fighting the host page's stacking contexts.
	HighZIndexSafe() bool

	// PointerEventsSupported reports whether pointer-events styling works,
	// letting the tooltip ignore the pointer entirely.
	PointerEventsSupported() bool

	// TransitionsSupported reports whether CSS transitions may be used for
	// show/hide styling.
	TransitionsSupported() bool

	// VisibilityEventsAvailable reports whether the platform can signal
	// the page losing visibility.
	VisibilityEventsAvailable() bool

	// OnVisibilityHidden registers fn to run when the page loses
	// visibility and returns the cleanup that unregisters exactly that
	// handler. When visibility events are unavailable the cleanup is still
	// non-nil and fn is simply never called.
	OnVisibilityHidden(fn func()) (cleanup func())
}

// Static is a fixed-capability implementation for tests and for rewriting
// outside a live page.
type Static struct {
	HighZIndex    bool
	PointerEvents bool
	Transitions   bool
	Visibility    bool

	handlers []*func()
}

func (s *Static) HighZIndexSafe() bool            { return s.HighZIndex }
func (s *Static) PointerEventsSupported() bool    { return s.PointerEvents }
func (s *Static) TransitionsSupported() bool      { return s.Transitions }
func (s *Static) VisibilityEventsAvailable() bool { return s.Visibility }

func (s *Static) OnVisibilityHidden(fn func()) func() {
	if !s.Visibility {
		return func() {}
	}
	h := &fn
	s.handlers = append(s.handlers, h)
	return func() {
		for i, reg := range s.handlers {
			if reg == h {
				s.handlers = append(s.handlers[:i], s.handlers[i+1:]...)
				return
			}
		}
	}
}

// FireVisibilityHidden invokes every registered handler; a test hook.
func (s *Static) FireVisibilityHidden() {
	for _, h := range s.handlers {
		(*h)()
	}
}

// HandlerCount reports the registered visibility handlers; a test hook.
func (s *Static) HandlerCount() int { return len(s.handlers) }
