// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package guard pins the application to one location while the assistant
// panel is open.
//
// An armed Guard stops every route away from its anchor:
//   - declarative link clicks and form submissions, via an interceptor at the
//     front of the navigation dispatcher
//   - programmatic Push and Replace, via wrapped navigator primitives
//   - anything else that moved the location, via a reconciliation ticker that
//     puts the anchor back with the original Replace primitive
//
// Navigations to the anchor itself, fragment-only and query-only targets, and
// events raised inside the panel always pass.
package guard

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/jeranaias/gazette-assist/internal/nav"
)

// =============================================================================
// CONSTANTS
// =============================================================================

// DefaultReconcileInterval is how often an armed guard checks for drift.
const DefaultReconcileInterval = 50 * time.Millisecond

// =============================================================================
// TYPES
// =============================================================================

// Config configures a Guard.
type Config struct {
	// ReconcileInterval is the drift check period. Zero means the default.
	ReconcileInterval time.Duration

	// NotifyBlocked enables the OnBlocked callback. When false, blocking is
	// silent.
	NotifyBlocked bool
}

// DefaultConfig returns the default guard configuration.
func DefaultConfig() Config {
	return Config{ReconcileInterval: DefaultReconcileInterval}
}

// Category is the route a blocked navigation took.
type Category int

const (
	// CategoryDeclarative is a link click or form submission.
	CategoryDeclarative Category = iota
	// CategoryProgrammatic is a direct Push or Replace.
	CategoryProgrammatic
	// CategoryDrift is a location change caught after the fact.
	CategoryDrift
)

// String returns the category name.
func (c Category) String() string {
	switch c {
	case CategoryDeclarative:
		return "declarative"
	case CategoryProgrammatic:
		return "programmatic"
	case CategoryDrift:
		return "drift"
	default:
		return "unknown"
	}
}

// Block describes one blocked navigation.
type Block struct {
	Category Category
	Target   string
	Anchor   string
	At       time.Time
}

// Stats counts blocked navigations since the guard was created.
type Stats struct {
	Clicks       int
	Submits      int
	Programmatic int
	DriftReverts int
}

// Total returns the number of blocked navigations.
func (s Stats) Total() int {
	return s.Clicks + s.Submits + s.Programmatic + s.DriftReverts
}

// =============================================================================
// GUARD
// =============================================================================

// Guard is the navigation guard state machine: Disarmed or Armed(anchor).
//
// Guard is safe for concurrent use. Navigator subscribers must not call
// Disarm synchronously, since Disarm waits for an in-progress drift revert.
type Guard struct {
	nav    nav.Patchable
	disp   *nav.Dispatcher
	cfg    Config
	logger *zap.Logger

	// armMu serialises Arm, Disarm and Reconcile.
	armMu sync.Mutex

	mu        sync.RWMutex
	armed     bool
	anchor    string
	original  nav.Primitives
	remove    func()
	stop      chan struct{}
	done      chan struct{}
	stats     Stats
	onBlocked func(Block)
}

// New creates a disarmed guard over n. disp may be nil when the host has no
// declarative navigation.
func New(n nav.Patchable, disp *nav.Dispatcher, cfg Config, logger *zap.Logger) *Guard {
	if cfg.ReconcileInterval <= 0 {
		cfg.ReconcileInterval = DefaultReconcileInterval
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Guard{
		nav:    n,
		disp:   disp,
		cfg:    cfg,
		logger: logger.Named("guard"),
	}
}

// SetOnBlocked sets the callback invoked for each blocked navigation when
// NotifyBlocked is enabled. It is called outside the guard's locks.
func (g *Guard) SetOnBlocked(fn func(Block)) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.onBlocked = fn
}

// SetNotifyBlocked toggles the OnBlocked callback at runtime.
func (g *Guard) SetNotifyBlocked(on bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.cfg.NotifyBlocked = on
}

// Armed reports whether the guard is armed.
func (g *Guard) Armed() bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.armed
}

// Anchor returns the pinned location, or "" when disarmed.
func (g *Guard) Anchor() string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.anchor
}

// Stats returns a snapshot of the block counters.
func (g *Guard) Stats() Stats {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.stats
}

// Arm pins the navigator to anchor. Arming again with the same anchor does
// nothing; arming with a different anchor while armed is logged and ignored.
func (g *Guard) Arm(anchor string) {
	anchor = nav.Clean(anchor)

	g.armMu.Lock()
	defer g.armMu.Unlock()

	g.mu.RLock()
	armed, current := g.armed, g.anchor
	g.mu.RUnlock()
	if armed {
		if current != anchor {
			g.logger.Warn("arm ignored: already armed",
				zap.String("anchor", current),
				zap.String("requested", anchor))
		}
		return
	}

	original := g.nav.Primitives()
	stop := make(chan struct{})
	done := make(chan struct{})

	g.mu.Lock()
	g.armed = true
	g.anchor = anchor
	g.original = original
	g.stop = stop
	g.done = done
	g.mu.Unlock()

	g.nav.SetPrimitives(nav.Primitives{
		Push:    g.wrap(original.Push),
		Replace: g.wrap(original.Replace),
	})

	var remove func()
	if g.disp != nil {
		remove = g.disp.UseFirst(g.intercept)
	}
	g.mu.Lock()
	g.remove = remove
	g.mu.Unlock()

	go g.loop(g.cfg.ReconcileInterval, stop, done)

	g.logger.Info("guard armed",
		zap.String("anchor", anchor),
		zap.Duration("interval", g.cfg.ReconcileInterval))
}

// Disarm releases the navigator. It stops the reconciliation loop and waits
// for it to exit, removes the interceptor, then restores the original
// primitives. Disarming a disarmed guard does nothing.
func (g *Guard) Disarm() {
	g.armMu.Lock()
	defer g.armMu.Unlock()

	g.mu.RLock()
	if !g.armed {
		g.mu.RUnlock()
		return
	}
	stop, done := g.stop, g.done
	remove := g.remove
	original := g.original
	anchor := g.anchor
	g.mu.RUnlock()

	close(stop)
	<-done

	if remove != nil {
		remove()
	}

	g.mu.Lock()
	g.armed = false
	g.anchor = ""
	g.original = nav.Primitives{}
	g.remove = nil
	g.stop = nil
	g.done = nil
	g.mu.Unlock()

	g.nav.SetPrimitives(original)

	g.logger.Info("guard disarmed", zap.String("anchor", anchor))
}

// Reconcile runs one drift check immediately. It reports whether the
// location was reverted.
func (g *Guard) Reconcile() bool {
	g.armMu.Lock()
	defer g.armMu.Unlock()
	return g.reconcile()
}

// =============================================================================
// INTERCEPTION
// =============================================================================

// allows reports whether target may be navigated to. Everything is allowed
// while disarmed.
func (g *Guard) allows(target string) (bool, string) {
	g.mu.RLock()
	armed, anchor := g.armed, g.anchor
	g.mu.RUnlock()
	if !armed {
		return true, anchor
	}
	return nav.Resolve(target, anchor) == anchor, anchor
}

func (g *Guard) intercept(ev *nav.Event) {
	if ev.Origin == nav.OriginPanel {
		return
	}
	ok, anchor := g.allows(ev.Target)
	if ok {
		return
	}
	ev.Cancel()

	g.mu.Lock()
	if ev.Kind == nav.EventSubmit {
		g.stats.Submits++
	} else {
		g.stats.Clicks++
	}
	g.mu.Unlock()

	g.blocked(Block{
		Category: CategoryDeclarative,
		Target:   ev.Target,
		Anchor:   anchor,
		At:       time.Now(),
	}, zap.Stringer("event", ev.Kind))
}

func (g *Guard) wrap(orig nav.Primitive) nav.Primitive {
	return func(target string) error {
		ok, anchor := g.allows(target)
		if ok {
			return orig(target)
		}

		g.mu.Lock()
		g.stats.Programmatic++
		g.mu.Unlock()

		g.blocked(Block{
			Category: CategoryProgrammatic,
			Target:   target,
			Anchor:   anchor,
			At:       time.Now(),
		})
		return nil
	}
}

func (g *Guard) loop(interval time.Duration, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			g.reconcile()
		}
	}
}

func (g *Guard) reconcile() bool {
	g.mu.RLock()
	armed, anchor, original := g.armed, g.anchor, g.original
	g.mu.RUnlock()
	if !armed {
		return false
	}

	loc := g.nav.Location()
	if loc == anchor {
		return false
	}

	if g.stepBack(anchor) {
		g.logger.Debug("drift reverted by stepping forward",
			zap.String("location", loc),
			zap.String("anchor", anchor))
	} else if err := original.Replace(anchor); err != nil {
		g.logger.Error("drift revert failed",
			zap.String("location", loc),
			zap.String("anchor", anchor),
			zap.Error(err))
		return false
	}

	g.mu.Lock()
	g.stats.DriftReverts++
	g.mu.Unlock()

	g.blocked(Block{
		Category: CategoryDrift,
		Target:   loc,
		Anchor:   anchor,
		At:       time.Now(),
	})
	return true
}

func (g *Guard) blocked(b Block, fields ...zap.Field) {
	fields = append(fields,
		zap.Stringer("category", b.Category),
		zap.String("target", b.Target),
		zap.String("anchor", b.Anchor))
	g.logger.Debug("navigation blocked", fields...)

	g.mu.RLock()
	notify, fn := g.cfg.NotifyBlocked, g.onBlocked
	g.mu.RUnlock()
	if notify && fn != nil {
		fn(b)
	}
}

// stepBack undoes a back navigation by stepping forward onto the anchor, so
// the entry the user went back to stays in the history stack. It reports
// whether the location is the anchor afterwards.
func (g *Guard) stepBack(anchor string) bool {
	st, ok := g.nav.(nav.Stepper)
	if !ok {
		return false
	}
	entries, idx := st.Entries()
	if idx+1 >= len(entries) || entries[idx+1] != anchor {
		return false
	}
	if !st.Forward() {
		return false
	}
	return g.nav.Location() == anchor
}
