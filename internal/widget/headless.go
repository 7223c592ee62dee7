package widget

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"
)

// ErrUndefined is returned by MemoryRegistry.WhenDefined after Fail.
var ErrUndefined = errors.New("widget: element definition unavailable")

// HeadlessElement is an in-process stand-in for the chat element. It keeps
// the options it was given and dispatches events to registered listeners.
type HeadlessElement struct {
	mu        sync.Mutex
	listeners map[string][]listener
	options   []Options
	setErr    error
}

type listener struct {
	fn   func(Event)
	once bool
}

func NewHeadlessElement() *HeadlessElement {
	return &HeadlessElement{listeners: map[string][]listener{}}
}

func (e *HeadlessElement) AddEventListener(event string, fn func(Event), once bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.listeners[event] = append(e.listeners[event], listener{fn: fn, once: once})
}

func (e *HeadlessElement) SetOptions(o Options) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.setErr != nil {
		return e.setErr
	}
	e.options = append(e.options, o)
	return nil
}

// FailSetOptions makes later SetOptions calls return err.
func (e *HeadlessElement) FailSetOptions(err error) {
	e.mu.Lock()
	e.setErr = err
	e.mu.Unlock()
}

// Options returns every options value applied so far, oldest first.
func (e *HeadlessElement) Options() []Options {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]Options(nil), e.options...)
}

// Latest returns the most recent options and whether any were applied.
func (e *HeadlessElement) Latest() (Options, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if len(e.options) == 0 {
		return Options{}, false
	}
	return e.options[len(e.options)-1], true
}

// Dispatch delivers ev to its listeners; one-shot listeners are removed
// before they run.
func (e *HeadlessElement) Dispatch(ev Event) {
	e.mu.Lock()
	ls := e.listeners[ev.Type]
	kept := ls[:0:0]
	for _, l := range ls {
		if !l.once {
			kept = append(kept, l)
		}
	}
	e.listeners[ev.Type] = kept
	e.mu.Unlock()
	for _, l := range ls {
		l.fn(ev)
	}
}

// ListenerCount reports how many listeners are registered for event.
func (e *HeadlessElement) ListenerCount(event string) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.listeners[event])
}

// MemoryRegistry is a custom element registry. WhenDefined blocks until
// Define or Fail is called for the name, or ctx ends.
type MemoryRegistry struct {
	mu      sync.Mutex
	defined map[string]chan struct{}
	failed  map[string]bool
}

func NewMemoryRegistry() *MemoryRegistry {
	return &MemoryRegistry{defined: map[string]chan struct{}{}, failed: map[string]bool{}}
}

func (r *MemoryRegistry) ch(name string) chan struct{} {
	c, ok := r.defined[name]
	if !ok {
		c = make(chan struct{})
		r.defined[name] = c
	}
	return c
}

func (r *MemoryRegistry) Define(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c := r.ch(name)
	select {
	case <-c:
	default:
		close(c)
	}
}

// Fail resolves pending and future waits for name with ErrUndefined.
func (r *MemoryRegistry) Fail(name string) {
	r.mu.Lock()
	r.failed[name] = true
	r.mu.Unlock()
	r.Define(name)
}

func (r *MemoryRegistry) WhenDefined(ctx context.Context, name string) error {
	r.mu.Lock()
	c := r.ch(name)
	r.mu.Unlock()
	select {
	case <-c:
		r.mu.Lock()
		defer r.mu.Unlock()
		if r.failed[name] {
			return ErrUndefined
		}
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// LogPage renders page updates as log lines.
type LogPage struct {
	Log *zap.SugaredLogger
}

func (p LogPage) HideFallback() { p.Log.Infow("fallback hidden") }
func (p LogPage) ShowFallback() { p.Log.Infow("fallback shown") }
func (p LogPage) ShowLinked(workflowURL string) {
	p.Log.Infow("workflow linked", "label", "Linked", "url", workflowURL, "copy_enabled", true)
}
func (p LogPage) ShowUnavailable() {
	p.Log.Warnw("workflow link unavailable", "label", "Unavailable",
		"text", "Failed to load workflow link", "copy_enabled", false)
}
