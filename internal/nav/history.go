// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package nav

import (
	"errors"
	"sync"
)

// ErrInvalidTarget is returned when a push or replace names no location.
var ErrInvalidTarget = errors.New("nav: empty navigation target")

// =============================================================================
// INTERFACES
// =============================================================================

// Navigator is the minimal navigation surface the application depends on.
type Navigator interface {
	// Location returns the current location path.
	Location() string

	// Push navigates to target, adding a history entry.
	Push(target string) error

	// Replace navigates to target, replacing the current history entry.
	Replace(target string) error

	// Subscribe registers fn to be called after every location change.
	// The returned function removes the subscription.
	Subscribe(fn func(location string)) (unsubscribe func())
}

// Primitive performs one kind of location mutation.
type Primitive func(target string) error

// Primitives are the swappable mutation functions behind Push and Replace.
type Primitives struct {
	Push    Primitive
	Replace Primitive
}

// Patchable is a Navigator whose mutation primitives can be wrapped and
// later restored.
type Patchable interface {
	Navigator
	Primitives() Primitives
	SetPrimitives(p Primitives)
}

// Stepper is a navigator with a back/forward stack.
type Stepper interface {
	Entries() (entries []string, index int)
	Back() bool
	Forward() bool
}

// =============================================================================
// HISTORY
// =============================================================================

// History is an in-memory navigator with a back/forward stack.
//
// History is safe for concurrent use. Subscribers are invoked synchronously
// after the lock is released and must not block.
type History struct {
	mu      sync.RWMutex
	entries []string
	index   int
	prims   Primitives

	subMu   sync.Mutex
	subs    map[int]func(string)
	nextSub int
}

// NewHistory creates a history positioned at start.
func NewHistory(start string) *History {
	h := &History{
		entries: []string{Clean(start)},
		subs:    make(map[int]func(string)),
	}
	h.prims = h.Raw()
	return h
}

// Raw returns primitives bound directly to this history, bypassing any
// installed wrappers.
func (h *History) Raw() Primitives {
	return Primitives{Push: h.pushRaw, Replace: h.replaceRaw}
}

// Location returns the current location.
func (h *History) Location() string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.entries[h.index]
}

// Entries returns a copy of the history stack and the current index.
func (h *History) Entries() ([]string, int) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]string, len(h.entries))
	copy(out, h.entries)
	return out, h.index
}

// Push navigates to target through the installed push primitive.
func (h *History) Push(target string) error {
	return h.Primitives().Push(target)
}

// Replace navigates to target through the installed replace primitive.
func (h *History) Replace(target string) error {
	return h.Primitives().Replace(target)
}

// Primitives returns the currently installed primitives.
func (h *History) Primitives() Primitives {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.prims
}

// SetPrimitives installs p. Nil fields fall back to the raw primitives.
func (h *History) SetPrimitives(p Primitives) {
	raw := h.Raw()
	if p.Push == nil {
		p.Push = raw.Push
	}
	if p.Replace == nil {
		p.Replace = raw.Replace
	}
	h.mu.Lock()
	h.prims = p
	h.mu.Unlock()
}

// Back moves one entry back, as a browser back button would.
// It bypasses the primitives. Returns false at the start of history.
func (h *History) Back() bool {
	h.mu.Lock()
	if h.index == 0 {
		h.mu.Unlock()
		return false
	}
	h.index--
	loc := h.entries[h.index]
	h.mu.Unlock()

	h.notify(loc)
	return true
}

// Forward moves one entry forward. Returns false at the end of history.
func (h *History) Forward() bool {
	h.mu.Lock()
	if h.index >= len(h.entries)-1 {
		h.mu.Unlock()
		return false
	}
	h.index++
	loc := h.entries[h.index]
	h.mu.Unlock()

	h.notify(loc)
	return true
}

// Subscribe registers fn for location changes.
func (h *History) Subscribe(fn func(location string)) func() {
	h.subMu.Lock()
	id := h.nextSub
	h.nextSub++
	h.subs[id] = fn
	h.subMu.Unlock()

	return func() {
		h.subMu.Lock()
		delete(h.subs, id)
		h.subMu.Unlock()
	}
}

func (h *History) pushRaw(target string) error {
	if target == "" {
		return ErrInvalidTarget
	}

	h.mu.Lock()
	current := h.entries[h.index]
	next := Resolve(target, current)
	if next == current {
		h.mu.Unlock()
		return nil
	}
	h.entries = append(h.entries[:h.index+1], next)
	h.index++
	h.mu.Unlock()

	h.notify(next)
	return nil
}

func (h *History) replaceRaw(target string) error {
	if target == "" {
		return ErrInvalidTarget
	}

	h.mu.Lock()
	current := h.entries[h.index]
	next := Resolve(target, current)
	if next == current {
		h.mu.Unlock()
		return nil
	}
	h.entries[h.index] = next
	h.mu.Unlock()

	h.notify(next)
	return nil
}

func (h *History) notify(loc string) {
	h.subMu.Lock()
	fns := make([]func(string), 0, len(h.subs))
	for _, fn := range h.subs {
		fns = append(fns, fn)
	}
	h.subMu.Unlock()

	for _, fn := range fns {
		fn(loc)
	}
}
