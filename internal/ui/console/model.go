// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package console

import (
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/jeranaias/gazette-assist/internal/guard"
	"github.com/jeranaias/gazette-assist/internal/model"
	"github.com/jeranaias/gazette-assist/internal/nav"
	"github.com/jeranaias/gazette-assist/internal/session"
	"github.com/jeranaias/gazette-assist/internal/ui/chat"
	"github.com/jeranaias/gazette-assist/internal/ui/styles"
)

// NoticeDuration is how long a host notice stays on screen.
const NoticeDuration = 4 * time.Second

// BlockedNotice is shown when the guard reports a suppressed navigation.
const BlockedNotice = "Navigation is paused while the assistant is open"

const eventBuffer = 64

// Model is the console host.
type Model struct {
	theme  *styles.Theme
	hist   *nav.History
	disp   *nav.Dispatcher
	ctrl   *session.Controller
	panel  chat.Model
	keys   KeyMap
	logger *zap.Logger

	events chan tea.Msg

	width  int
	height int

	detail model.ResultRecord

	notice    string
	noticeSeq int

	quitting bool
}

// New builds the console around an existing history, dispatcher and
// session controller, and registers the host callbacks.
func New(theme *styles.Theme, hist *nav.History, disp *nav.Dispatcher, ctrl *session.Controller, opts chat.Options, logger *zap.Logger) Model {
	if logger == nil {
		logger = zap.NewNop()
	}

	events := make(chan tea.Msg, eventBuffer)
	send := func(msg tea.Msg) {
		select {
		case events <- msg:
		default:
		}
	}

	ctrl.SetOnBlocked(func(b guard.Block) { send(BlockedMsg{Block: b}) })
	ctrl.SetOnResultSelected(func(r model.ResultRecord) { send(ResultSelectedMsg{Record: r}) })
	ctrl.SetOnClose(func() { send(SessionClosedMsg{}) })
	ctrl.SetOnMinimizeToggle(func(min bool) { send(MinimizeToggledMsg{Minimized: min}) })
	hist.Subscribe(func(loc string) { send(LocationChangedMsg{Location: loc}) })

	return Model{
		theme:  theme,
		hist:   hist,
		disp:   disp,
		ctrl:   ctrl,
		panel:  chat.New(theme, ctrl, opts),
		keys:   DefaultKeyMap(),
		logger: logger.Named("console"),
		events: events,
	}
}

// Init starts the event and pipeline listeners.
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.panel.Init(), m.waitForEvent())
}

// Detail returns the record shown in the detail pane, or nil.
func (m Model) Detail() model.ResultRecord {
	return m.detail
}

// Notice returns the current host notice.
func (m Model) Notice() string {
	return m.notice
}

// Update handles messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.theme.SetSize(msg.Width, msg.Height)
		m.panel = m.panel.SetSize(m.theme.PanelWidth(), m.panelHeight())
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case BlockedMsg:
		m.logger.Debug("blocked navigation shown",
			zap.String("category", msg.Block.Category.String()),
			zap.String("target", msg.Block.Target))
		cmd := m.setNotice(BlockedNotice)
		return m, tea.Batch(cmd, m.waitForEvent())

	case ResultSelectedMsg:
		m.detail = msg.Record
		return m, m.waitForEvent()

	case SessionClosedMsg:
		return m, m.waitForEvent()

	case MinimizeToggledMsg:
		return m, m.waitForEvent()

	case LocationChangedMsg:
		m.detail = nil
		return m, m.waitForEvent()

	case ConfigReloadedMsg:
		if msg.Config != nil {
			m.ctrl.Results().SetPreviewLimit(msg.Config.Results.PreviewLimit)
			m.ctrl.Guard().SetNotifyBlocked(msg.Config.Guard.NotifyBlocked)
			m.panel, _ = m.panel.Update(chat.PipelineUpdatedMsg{})
		}
		return m, m.setNotice("Configuration reloaded")

	case clearNoticeMsg:
		if msg.seq == m.noticeSeq {
			m.notice = ""
		}
		return m, nil

	case chat.PipelineUpdatedMsg, chat.StatusMsg, spinner.TickMsg:
		var cmd tea.Cmd
		m.panel, cmd = m.panel.Update(msg)
		return m, cmd
	}

	var cmd tea.Cmd
	m.panel, cmd = m.panel.Update(msg)
	return m, cmd
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	panelFocused := m.ctrl.IsOpen() && !m.ctrl.Minimized()

	switch {
	case key.Matches(msg, m.keys.Quit):
		m.quitting = true
		m.ctrl.Close()
		m.panel.Shutdown()
		return m, tea.Quit

	case key.Matches(msg, m.keys.Assistant):
		if m.ctrl.IsOpen() {
			if m.ctrl.Minimized() {
				m.ctrl.Restore()
				var cmd tea.Cmd
				m.panel, cmd = m.panel.Focus()
				return m, cmd
			}
			return m, nil
		}
		m.ctrl.Open()
		var cmd tea.Cmd
		m.panel, cmd = m.panel.Focus()
		return m, cmd

	case key.Matches(msg, m.keys.LinkAlt):
		return m, m.click(linkIndex(msg.String()))

	case key.Matches(msg, m.keys.Submit):
		return m, m.submitForm()

	case key.Matches(msg, m.keys.Back):
		m.hist.Back()
		return m, nil

	case key.Matches(msg, m.keys.Forward):
		m.hist.Forward()
		return m, nil

	case key.Matches(msg, m.keys.KeepAlive):
		// Host code redirecting on its own, outside any user event.
		if err := m.hist.Push(KeepAliveTarget); err != nil {
			m.logger.Warn("keep-alive redirect failed", zap.Error(err))
		}
		return m, nil
	}

	if m.ctrl.IsOpen() {
		var cmd tea.Cmd
		m.panel, cmd = m.panel.Update(msg)
		if panelFocused {
			return m, cmd
		}
		// Minimized: the panel has handled restore/close; everything else
		// falls through to the host.
		if key.Matches(msg, m.panel.Keys().Minimize, m.panel.Keys().Close) {
			return m, cmd
		}
	}

	switch {
	case key.Matches(msg, m.keys.Link):
		return m, m.click(linkIndex(msg.String()))
	case key.Matches(msg, m.keys.DismissBox):
		m.detail = nil
	case msg.String() == "q" && !m.ctrl.IsOpen():
		m.quitting = true
		m.panel.Shutdown()
		return m, tea.Quit
	}
	return m, nil
}

// click dispatches a link click to the tab at idx.
func (m Model) click(idx int) tea.Cmd {
	if idx < 0 || idx >= len(Pages) {
		return nil
	}
	return m.dispatch(nav.Event{Kind: nav.EventClick, Target: Pages[idx].Path, Origin: nav.OriginHost})
}

// submitForm dispatches the current page's filter form, if any.
func (m Model) submitForm() tea.Cmd {
	page := PageFor(m.hist.Location())
	if page.FormAction == "" {
		return nil
	}
	return m.dispatch(nav.Event{Kind: nav.EventSubmit, Target: page.FormAction, Origin: nav.OriginHost})
}

func (m Model) dispatch(ev nav.Event) tea.Cmd {
	out, err := m.disp.Dispatch(ev)
	if err != nil {
		m.logger.Warn("navigation failed", zap.String("target", ev.Target), zap.Error(err))
		return nil
	}
	if out.Cancelled() {
		m.logger.Debug("navigation cancelled", zap.String("target", ev.Target))
	}
	return nil
}

func (m *Model) setNotice(text string) tea.Cmd {
	m.noticeSeq++
	m.notice = text
	seq := m.noticeSeq
	return tea.Tick(NoticeDuration, func(time.Time) tea.Msg {
		return clearNoticeMsg{seq: seq}
	})
}

// waitForEvent blocks until a host callback fires.
func (m Model) waitForEvent() tea.Cmd {
	events := m.events
	return func() tea.Msg {
		return <-events
	}
}

func (m Model) panelHeight() int {
	h := m.height - 2
	if m.theme.GetLayoutMode() == styles.LayoutNarrow {
		h = m.height / 2
	}
	if h < 10 {
		h = 10
	}
	return h
}
