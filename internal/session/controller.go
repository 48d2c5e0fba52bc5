// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/jeranaias/gazette-assist/internal/guard"
	"github.com/jeranaias/gazette-assist/internal/model"
	"github.com/jeranaias/gazette-assist/internal/nav"
	"github.com/jeranaias/gazette-assist/internal/pipeline"
	"github.com/jeranaias/gazette-assist/internal/results"
)

// ErrSessionClosed is returned when sending while the session is closed.
var ErrSessionClosed = errors.New("session: assistant is closed")

// DefaultSuggestions are the prompts offered on an empty conversation.
var DefaultSuggestions = []string{
	"Show me all change of name entries",
	"Find marriage notices published this year",
	"List recent land acquisition notices",
	"Search probate notices by person name",
}

// =============================================================================
// CONFIGURATION
// =============================================================================

// Config holds configuration for the session controller.
type Config struct {
	Guard    guard.Config
	Pipeline pipeline.Config
	Results  results.Config

	// Suggestions are the suggested prompts (default: DefaultSuggestions)
	Suggestions []string
}

// DefaultConfig returns the default session configuration.
func DefaultConfig() Config {
	return Config{
		Guard:       guard.DefaultConfig(),
		Pipeline:    pipeline.Config{Timeout: pipeline.DefaultTimeout},
		Results:     results.DefaultConfig(),
		Suggestions: DefaultSuggestions,
	}
}

// =============================================================================
// STATE
// =============================================================================

// State is the session lifecycle state.
type State int

const (
	StateClosed State = iota
	StateOpen
)

// String returns the state name.
func (s State) String() string {
	if s == StateOpen {
		return "open"
	}
	return "closed"
}

// Status is a point-in-time view of the session.
type Status struct {
	State     State
	Minimized bool
	Anchor    string
	SessionID string
	OpenedAt  time.Time
	Pending   pipeline.State
	Results   int
	Expanded  bool
	Blocked   guard.Stats
}

// =============================================================================
// CONTROLLER
// =============================================================================

// Controller is the top-level assistant session.
//
// Controller is safe for concurrent use. Host callbacks run outside its
// locks.
type Controller struct {
	nav     nav.Navigator
	guard   *guard.Guard
	pipe    *pipeline.Pipeline
	results *results.Presenter
	logger  *zap.Logger

	// opMu serialises lifecycle transitions.
	opMu sync.Mutex

	mu          sync.RWMutex
	open        bool
	minimized   bool
	anchor      string
	sessionID   string
	openedAt    time.Time
	suggestions []string

	// Callbacks
	onClose          func()
	onMinimizeToggle func(minimized bool)
	onResultSelected func(model.ResultRecord)
}

// New creates a closed session over n. disp routes the host's declarative
// navigation and may be nil.
func New(n nav.Patchable, disp *nav.Dispatcher, transport pipeline.Transport, cfg Config, logger *zap.Logger) *Controller {
	if logger == nil {
		logger = zap.NewNop()
	}
	if len(cfg.Suggestions) == 0 {
		cfg.Suggestions = DefaultSuggestions
	}

	c := &Controller{
		nav:         n,
		logger:      logger.Named("session"),
		suggestions: append([]string(nil), cfg.Suggestions...),
	}
	c.results = results.New(cfg.Results, logger)
	c.results.SetOnSelect(c.resultSelected)
	c.pipe = pipeline.New(transport, c.results, cfg.Pipeline, logger)
	c.guard = guard.New(n, disp, cfg.Guard, logger)
	return c
}

// Pipeline returns the message pipeline.
func (c *Controller) Pipeline() *pipeline.Pipeline { return c.pipe }

// Results returns the result presenter.
func (c *Controller) Results() *results.Presenter { return c.results }

// Guard returns the navigation guard.
func (c *Controller) Guard() *guard.Guard { return c.guard }

// =============================================================================
// LIFECYCLE
// =============================================================================

// Open starts a session pinned to the current location. It reports whether
// the session was closed before.
func (c *Controller) Open() bool {
	c.opMu.Lock()
	defer c.opMu.Unlock()

	if c.IsOpen() {
		return false
	}

	anchor := nav.Clean(c.nav.Location())
	id := uuid.NewString()

	c.pipe.Reset()
	c.results.Clear()
	c.guard.Arm(anchor)

	c.mu.Lock()
	c.open = true
	c.minimized = false
	c.anchor = anchor
	c.sessionID = id
	c.openedAt = time.Now()
	c.mu.Unlock()

	c.logger.Info("session opened",
		zap.String("session_id", id),
		zap.String("anchor", anchor))
	return true
}

// Close ends the session: the guard is disarmed, the anchor cleared, and the
// conversation and results dropped. A response still in flight is
// discarded when it lands. It reports whether the session was open.
func (c *Controller) Close() bool {
	c.opMu.Lock()

	if !c.IsOpen() {
		c.opMu.Unlock()
		return false
	}

	c.guard.Disarm()

	c.mu.Lock()
	id, anchor := c.sessionID, c.anchor
	c.open = false
	c.minimized = false
	c.anchor = ""
	c.sessionID = ""
	c.openedAt = time.Time{}
	onClose := c.onClose
	c.mu.Unlock()

	c.pipe.Reset()
	c.results.Clear()
	c.opMu.Unlock()

	c.logger.Info("session closed",
		zap.String("session_id", id),
		zap.String("anchor", anchor))

	if onClose != nil {
		onClose()
	}
	return true
}

// Minimize hides the panel. The guard stays armed.
func (c *Controller) Minimize() { c.setMinimized(true) }

// Restore shows the panel again.
func (c *Controller) Restore() { c.setMinimized(false) }

// ToggleMinimize flips the minimized flag and returns the new value.
func (c *Controller) ToggleMinimize() bool {
	c.opMu.Lock()
	defer c.opMu.Unlock()

	c.mu.RLock()
	next := !c.minimized
	c.mu.RUnlock()

	c.applyMinimized(next)
	return c.Minimized()
}

func (c *Controller) setMinimized(v bool) {
	c.opMu.Lock()
	defer c.opMu.Unlock()
	c.applyMinimized(v)
}

func (c *Controller) applyMinimized(v bool) {
	c.mu.Lock()
	if !c.open || c.minimized == v {
		c.mu.Unlock()
		return
	}
	c.minimized = v
	fn := c.onMinimizeToggle
	c.mu.Unlock()

	c.logger.Debug("session minimize toggled", zap.Bool("minimized", v))
	if fn != nil {
		fn(v)
	}
}

// =============================================================================
// CONVERSATION
// =============================================================================

// Send sends text through the pipeline and returns the request id.
func (c *Controller) Send(text string) (string, error) {
	// Held across the delegation so a concurrent Close cannot land between
	// the check and the send. Pipeline.Send does not block.
	c.opMu.Lock()
	defer c.opMu.Unlock()

	if !c.IsOpen() {
		return "", ErrSessionClosed
	}
	return c.pipe.Send(text)
}

// SuggestedPrompt sends a suggested prompt as if it had been typed.
func (c *Controller) SuggestedPrompt(text string) (string, error) {
	return c.Send(text)
}

// Retry re-issues the last failed message.
func (c *Controller) Retry() (string, error) {
	c.opMu.Lock()
	defer c.opMu.Unlock()

	if !c.IsOpen() {
		return "", ErrSessionClosed
	}
	return c.pipe.Retry()
}

// Suggestions returns the suggested prompts.
func (c *Controller) Suggestions() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]string(nil), c.suggestions...)
}

// SelectResult hands the i-th result to the host. It never navigates.
func (c *Controller) SelectResult(i int) error {
	return c.results.SelectIndex(i)
}

func (c *Controller) resultSelected(rec model.ResultRecord) {
	c.mu.RLock()
	fn := c.onResultSelected
	c.mu.RUnlock()

	if fn != nil {
		fn(rec)
	}
}

// =============================================================================
// STATE ACCESS
// =============================================================================

// IsOpen reports whether the session is open.
func (c *Controller) IsOpen() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.open
}

// Minimized reports whether the open panel is minimized.
func (c *Controller) Minimized() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.minimized
}

// Anchor returns the pinned location, or "" when closed.
func (c *Controller) Anchor() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.anchor
}

// Status returns a snapshot of the session.
func (c *Controller) Status() Status {
	c.mu.RLock()
	st := Status{
		State:     StateClosed,
		Minimized: c.minimized,
		Anchor:    c.anchor,
		SessionID: c.sessionID,
		OpenedAt:  c.openedAt,
	}
	if c.open {
		st.State = StateOpen
	}
	c.mu.RUnlock()

	st.Pending = c.pipe.State()
	st.Results = c.results.Len()
	st.Expanded = c.results.Expanded()
	st.Blocked = c.guard.Stats()
	return st
}

// =============================================================================
// CALLBACKS
// =============================================================================

// SetOnClose sets the function called after the session closes.
func (c *Controller) SetOnClose(fn func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onClose = fn
}

// SetOnMinimizeToggle sets the function called when the panel is minimized
// or restored.
func (c *Controller) SetOnMinimizeToggle(fn func(minimized bool)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onMinimizeToggle = fn
}

// SetOnResultSelected sets the host callback for selected results.
func (c *Controller) SetOnResultSelected(fn func(model.ResultRecord)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onResultSelected = fn
}

// SetOnBlocked sets the blocked-navigation notice callback. It only fires
// when the guard's NotifyBlocked setting is on.
func (c *Controller) SetOnBlocked(fn func(guard.Block)) {
	c.guard.SetOnBlocked(fn)
}
