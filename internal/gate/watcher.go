package gate

import (
	"sync"

	"drravalement/site/internal/authctx"
)

// Source publishes authentication state changes in order. Subscribe must
// deliver the current state before returning.
type Source interface {
	Subscribe(fn func(authctx.State)) (unsubscribe func())
}

// Watcher keeps a decision current for one protected view: it re-evaluates
// on every published state and whenever the requirement changes.
type Watcher struct {
	gate      Gate
	requested string
	onChange  func(Decision)

	mu       sync.Mutex
	req      Requirement
	last     authctx.State
	decision Decision
	closed   bool

	emitMu      sync.Mutex
	unsubscribe func()
}

// Watch subscribes to src. onChange receives every decision in publication
// order and must not call back into the Watcher's Close.
func (g Gate) Watch(src Source, requested string, req Requirement, onChange func(Decision)) *Watcher {
	w := &Watcher{
		gate:      g,
		requested: requested,
		onChange:  onChange,
		req:       req,
		decision:  Decision{State: StateLoading},
	}
	w.unsubscribe = src.Subscribe(w.observe)
	return w
}

func (w *Watcher) observe(st authctx.State) {
	w.emitMu.Lock()
	defer w.emitMu.Unlock()

	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return
	}
	w.last = st
	d := w.gate.Evaluate(st.Status, st.User, w.req, w.requested)
	w.decision = d
	w.mu.Unlock()

	if w.onChange != nil {
		w.onChange(d)
	}
}

// SetRequirement re-evaluates the last observed state against req.
func (w *Watcher) SetRequirement(req Requirement) {
	w.emitMu.Lock()
	defer w.emitMu.Unlock()

	w.mu.Lock()
	if w.closed || w.req.Equal(req) {
		w.mu.Unlock()
		return
	}
	w.req = req
	d := w.gate.Evaluate(w.last.Status, w.last.User, req, w.requested)
	w.decision = d
	w.mu.Unlock()

	if w.onChange != nil {
		w.onChange(d)
	}
}

func (w *Watcher) Decision() Decision {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.decision
}

// Close disposes the subscription; no callback runs after Close returns.
func (w *Watcher) Close() {
	w.emitMu.Lock()
	w.mu.Lock()
	already := w.closed
	w.closed = true
	w.mu.Unlock()
	w.emitMu.Unlock()

	if !already && w.unsubscribe != nil {
		w.unsubscribe()
	}
}
