// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"errors"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"

	"github.com/jeranaias/gazette-assist/internal/pipeline"
	"github.com/jeranaias/gazette-assist/internal/results"
	"github.com/jeranaias/gazette-assist/internal/session"
	"github.com/jeranaias/gazette-assist/internal/ui/styles"
)

// MaxInputLength bounds a single message.
const MaxInputLength = 4000

// Options configures the panel.
type Options struct {
	// Markdown renders assistant replies with glamour.
	Markdown bool

	// MaxCellWidth bounds result listing cells (default: results default).
	MaxCellWidth int
}

// =============================================================================
// CHAT MODEL
// =============================================================================

// Model is the Bubble Tea model for the assistant panel.
type Model struct {
	theme   *styles.Theme
	session *session.Controller
	keys    KeyMap
	opts    Options

	viewport viewport.Model
	input    textinput.Model
	spinner  spinner.Model

	width  int
	height int

	// cursor is the highlighted result index, -1 for none.
	cursor int

	// entryCount is the number of entries last rendered, for autoscroll.
	entryCount int

	status string

	updates     chan struct{}
	unsubscribe func()

	markdown *glamour.TermRenderer
	mdWidth  int
}

// New creates the panel for ctrl and subscribes to its pipeline.
func New(theme *styles.Theme, ctrl *session.Controller, opts Options) Model {
	if opts.MaxCellWidth <= 0 {
		opts.MaxCellWidth = results.DefaultConfig().MaxCellWidth
	}

	input := textinput.New()
	input.Placeholder = "Ask about gazette notices..."
	input.Prompt = "> "
	input.PromptStyle = theme.InputPrompt
	input.CharLimit = MaxInputLength

	sp := spinner.New()
	sp.Spinner = spinner.Spinner{
		Frames: styles.ThinkingSpinner.Frames,
		FPS:    styles.ThinkingSpinner.Duration(),
	}
	sp.Style = theme.SpinnerStyle

	updates := make(chan struct{}, 1)
	unsubscribe := ctrl.Pipeline().Subscribe(func() {
		select {
		case updates <- struct{}{}:
		default:
		}
	})

	return Model{
		theme:       theme,
		session:     ctrl,
		keys:        DefaultKeyMap(),
		opts:        opts,
		viewport:    viewport.New(0, 0),
		input:       input,
		spinner:     sp,
		cursor:      -1,
		updates:     updates,
		unsubscribe: unsubscribe,
	}
}

// Init starts listening for pipeline updates.
func (m Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.waitForUpdate())
}

// Shutdown drops the pipeline subscription.
func (m Model) Shutdown() {
	if m.unsubscribe != nil {
		m.unsubscribe()
	}
}

// Focus gives the input keyboard focus. Call it when the session opens.
func (m Model) Focus() (Model, tea.Cmd) {
	m.status = ""
	m.cursor = -1
	m.input.Reset()
	m.refresh()
	return m, m.input.Focus()
}

// Blur removes input focus.
func (m Model) Blur() Model {
	m.input.Blur()
	return m
}

// SetSize sets the outer panel dimensions.
func (m Model) SetSize(width, height int) Model {
	m.width = width
	m.height = height

	inner := m.innerWidth()
	m.input.Width = inner - 3
	m.viewport.Width = inner
	vh := height - 7
	if vh < 3 {
		vh = 3
	}
	m.viewport.Height = vh

	if m.opts.Markdown && inner != m.mdWidth {
		m.markdown = newMarkdown(m.theme, inner)
		m.mdWidth = inner
	}
	m.refresh()
	return m
}

// Keys returns the panel's key bindings.
func (m Model) Keys() KeyMap {
	return m.keys
}

// Cursor returns the highlighted result index, or -1.
func (m Model) Cursor() int {
	return m.cursor
}

// Status returns the transient status line.
func (m Model) Status() string {
	return m.status
}

// Input returns the current input text.
func (m Model) Input() string {
	return m.input.Value()
}

// =============================================================================
// UPDATE
// =============================================================================

// Update handles messages.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case PipelineUpdatedMsg:
		m.refresh()
		cmds := []tea.Cmd{m.waitForUpdate()}
		if m.session.Pipeline().State().Busy() {
			cmds = append(cmds, m.spinner.Tick)
		}
		return m, tea.Batch(cmds...)

	case StatusMsg:
		m.status = msg.Text
		return m, nil

	case spinner.TickMsg:
		if !m.session.Pipeline().State().Busy() {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) handleKey(msg tea.KeyMsg) (Model, tea.Cmd) {
	if !m.session.IsOpen() {
		return m, nil
	}

	switch {
	case key.Matches(msg, m.keys.Close):
		m.session.Close()
		m.input.Reset()
		m.input.Blur()
		m.cursor = -1
		m.status = ""
		return m, nil

	case key.Matches(msg, m.keys.Minimize):
		if m.session.ToggleMinimize() {
			m.input.Blur()
			return m, nil
		}
		return m, m.input.Focus()
	}

	// A minimized panel only answers restore and close.
	if m.session.Minimized() {
		return m, nil
	}

	switch {
	case key.Matches(msg, m.keys.Submit):
		return m.submit(m.input.Value(), true)

	case key.Matches(msg, m.keys.Retry):
		if _, err := m.session.Retry(); err != nil {
			if errors.Is(err, pipeline.ErrBusy) {
				m.status = "Waiting for the current reply..."
			}
			return m, nil
		}
		m.status = ""
		return m, m.spinner.Tick

	case key.Matches(msg, m.keys.Suggest):
		if len(m.session.Pipeline().Entries()) > 0 {
			return m, nil
		}
		idx := suggestionIndex(msg.String())
		suggestions := m.session.Suggestions()
		if idx < 0 || idx >= len(suggestions) {
			return m, nil
		}
		return m.submit(suggestions[idx], false)

	case key.Matches(msg, m.keys.NextResult):
		m.moveCursor(1)
		m.refresh()
		return m, nil

	case key.Matches(msg, m.keys.PrevResult):
		m.moveCursor(-1)
		m.refresh()
		return m, nil

	case key.Matches(msg, m.keys.OpenResult):
		if m.cursor >= 0 {
			if err := m.session.SelectResult(m.cursor); err != nil {
				m.status = err.Error()
			}
		}
		return m, nil

	case key.Matches(msg, m.keys.ToggleResults):
		if m.session.Results().Len() > 0 {
			m.session.Results().Toggle()
			m.clampCursor()
			m.refresh()
		}
		return m, nil

	case key.Matches(msg, m.keys.PageUp):
		m.viewport.HalfViewUp()
		return m, nil

	case key.Matches(msg, m.keys.PageDown):
		m.viewport.HalfViewDown()
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// submit sends text. typed reports whether it came from the input line,
// which is cleared only on acceptance.
func (m Model) submit(text string, typed bool) (Model, tea.Cmd) {
	_, err := m.session.Send(text)
	switch {
	case err == nil:
		if typed {
			m.input.Reset()
		}
		m.status = ""
		m.refresh()
		return m, m.spinner.Tick
	case errors.Is(err, pipeline.ErrBusy):
		m.status = "Waiting for the current reply..."
	case errors.Is(err, pipeline.ErrEmptyInput):
		m.status = ""
	default:
		m.status = err.Error()
	}
	return m, nil
}

// waitForUpdate blocks until the pipeline signals a change.
func (m Model) waitForUpdate() tea.Cmd {
	updates := m.updates
	return func() tea.Msg {
		<-updates
		return PipelineUpdatedMsg{}
	}
}

// visibleResults is the number of results the cursor can reach.
func (m Model) visibleResults() int {
	res := m.session.Results()
	if res.Expanded() {
		return res.Len()
	}
	return len(res.Preview().Items)
}

func (m *Model) moveCursor(delta int) {
	n := m.visibleResults()
	if n == 0 {
		m.cursor = -1
		return
	}
	next := m.cursor + delta
	if m.cursor < 0 {
		next = 0
		if delta < 0 {
			next = n - 1
		}
	}
	if next < 0 {
		next = 0
	}
	if next >= n {
		next = n - 1
	}
	m.cursor = next
}

func (m *Model) clampCursor() {
	if n := m.visibleResults(); m.cursor >= n {
		m.cursor = n - 1
	}
}

func (m Model) innerWidth() int {
	w := m.width - 4
	if w < 20 {
		w = 20
	}
	return w
}

func newMarkdown(theme *styles.Theme, width int) *glamour.TermRenderer {
	style := "light"
	if theme.IsDark {
		style = "dark"
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle(style),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return nil
	}
	return r
}
