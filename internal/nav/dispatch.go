// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package nav

import "sync"

// =============================================================================
// EVENTS
// =============================================================================

// EventKind identifies a declarative navigation attempt.
type EventKind int

const (
	// EventClick is activation of an element that links to a location.
	EventClick EventKind = iota
	// EventSubmit is submission of a form whose action names a location.
	EventSubmit
)

// String returns the event kind name.
func (k EventKind) String() string {
	switch k {
	case EventClick:
		return "click"
	case EventSubmit:
		return "submit"
	default:
		return "unknown"
	}
}

// Origin identifies which part of the screen produced an event.
type Origin int

const (
	// OriginHost is anywhere in the host application.
	OriginHost Origin = iota
	// OriginPanel is inside the assistant panel's own subtree.
	OriginPanel
)

// Event is a declarative navigation attempt.
type Event struct {
	Kind   EventKind
	Target string
	Origin Origin

	cancelled bool
}

// Cancel prevents the default action and stops later interceptors.
func (e *Event) Cancel() {
	e.cancelled = true
}

// Cancelled reports whether an interceptor cancelled the event.
func (e *Event) Cancelled() bool {
	return e.cancelled
}

// Interceptor inspects an event before its default action runs.
type Interceptor func(ev *Event)

// =============================================================================
// DISPATCHER
// =============================================================================

// Dispatcher evaluates interceptors in a single ordered list and then
// performs the default action through the navigator.
type Dispatcher struct {
	nav Navigator

	mu     sync.RWMutex
	chain  []interceptorEntry
	nextID int
}

type interceptorEntry struct {
	id int
	fn Interceptor
}

// NewDispatcher creates a dispatcher that navigates n.
func NewDispatcher(n Navigator) *Dispatcher {
	return &Dispatcher{nav: n}
}

// Use appends fn to the end of the chain.
func (d *Dispatcher) Use(fn Interceptor) (remove func()) {
	return d.insert(fn, false)
}

// UseFirst puts fn at the front of the chain so it runs before every
// interceptor already registered.
func (d *Dispatcher) UseFirst(fn Interceptor) (remove func()) {
	return d.insert(fn, true)
}

// Len returns the number of installed interceptors.
func (d *Dispatcher) Len() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.chain)
}

// Dispatch runs the interceptors for ev in order. If none cancels it and it
// names a target, the navigator pushes the target. It returns the event as
// seen by the interceptors and any navigation error.
func (d *Dispatcher) Dispatch(ev Event) (Event, error) {
	d.mu.RLock()
	chain := make([]interceptorEntry, len(d.chain))
	copy(chain, d.chain)
	d.mu.RUnlock()

	for _, entry := range chain {
		entry.fn(&ev)
		if ev.cancelled {
			return ev, nil
		}
	}

	if ev.Target == "" {
		return ev, nil
	}
	return ev, d.nav.Push(ev.Target)
}

func (d *Dispatcher) insert(fn Interceptor, first bool) func() {
	d.mu.Lock()
	id := d.nextID
	d.nextID++
	entry := interceptorEntry{id: id, fn: fn}
	if first {
		d.chain = append([]interceptorEntry{entry}, d.chain...)
	} else {
		d.chain = append(d.chain, entry)
	}
	d.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			d.mu.Lock()
			defer d.mu.Unlock()
			for i, e := range d.chain {
				if e.id == id {
					d.chain = append(d.chain[:i], d.chain[i+1:]...)
					return
				}
			}
		})
	}
}
