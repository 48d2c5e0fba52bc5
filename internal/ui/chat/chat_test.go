// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/gazette-assist/internal/aiclient"
	"github.com/jeranaias/gazette-assist/internal/model"
	"github.com/jeranaias/gazette-assist/internal/nav"
	"github.com/jeranaias/gazette-assist/internal/pipeline"
	"github.com/jeranaias/gazette-assist/internal/session"
	"github.com/jeranaias/gazette-assist/internal/ui/styles"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

// scriptedTransport answers each turn immediately from the next reply.
type scriptedTransport struct {
	mu      sync.Mutex
	replies []scripted
	texts   []string
}

type scripted struct {
	resp *aiclient.TurnResponse
	err  error
}

func (s *scriptedTransport) SendChatTurn(ctx context.Context, text string, prior []model.ChatMessage) (*aiclient.TurnResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.texts = append(s.texts, text)
	if len(s.replies) == 0 {
		return nil, errors.New("no scripted reply")
	}
	r := s.replies[0]
	s.replies = s.replies[1:]
	return r.resp, r.err
}

func notices(n int) []model.ResultRecord {
	out := make([]model.ResultRecord, n)
	for i := range out {
		out[i] = model.ResultRecord{
			"id":          fmt.Sprintf("cn-%d", i+1),
			"notice_type": "change_of_name",
			"title":       fmt.Sprintf("Change of Name %d", i+1),
			"new_name":    fmt.Sprintf("New Name %d", i+1),
		}
	}
	return out
}

type panelFixture struct {
	panel Model
	ctrl  *session.Controller
	hist  *nav.History
	tr    *scriptedTransport
}

func newPanel(t *testing.T, replies ...scripted) *panelFixture {
	t.Helper()
	hist := nav.NewHistory("/gazette")
	disp := nav.NewDispatcher(hist)
	tr := &scriptedTransport{replies: replies}

	cfg := session.DefaultConfig()
	cfg.Guard.ReconcileInterval = time.Hour
	ctrl := session.New(hist, disp, tr, cfg, nil)

	panel := New(styles.NewTheme("dark"), ctrl, Options{})
	t.Cleanup(func() {
		panel.Shutdown()
		ctrl.Close()
		ctrl.Pipeline().Wait()
	})

	require.True(t, ctrl.Open())
	panel, _ = panel.Focus()
	panel = panel.SetSize(100, 40)
	return &panelFixture{panel: panel, ctrl: ctrl, hist: hist, tr: tr}
}

func (f *panelFixture) key(msg tea.KeyMsg) tea.Cmd {
	var cmd tea.Cmd
	f.panel, cmd = f.panel.Update(msg)
	return cmd
}

func (f *panelFixture) typeText(s string) {
	f.key(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)})
}

// settle waits for the in-flight turn and delivers the update message.
func (f *panelFixture) settle() {
	f.ctrl.Pipeline().Wait()
	f.panel, _ = f.panel.Update(PipelineUpdatedMsg{})
}

func success(reply string, results []model.ResultRecord) scripted {
	return scripted{resp: &aiclient.TurnResponse{Success: true, ReplyText: reply, Results: results}}
}

// =============================================================================
// TESTS
// =============================================================================

func TestPanel_ClosedRendersNothing(t *testing.T) {
	f := newPanel(t)
	f.ctrl.Close()
	assert.Empty(t, f.panel.View())
}

func TestPanel_WelcomeShowsSuggestions(t *testing.T) {
	f := newPanel(t)
	view := f.panel.View()
	assert.Contains(t, view, "Gazette AI")
	assert.Contains(t, view, "pinned to /gazette")
	assert.Contains(t, view, "Show me all change of name entries")
}

func TestPanel_SendRendersReplyAndPreview(t *testing.T) {
	f := newPanel(t, success("Found 5 entries", notices(5)))

	f.typeText("Show me all change of name entries")
	cmd := f.key(tea.KeyMsg{Type: tea.KeyEnter})
	assert.NotNil(t, cmd)
	assert.Empty(t, f.panel.Input(), "accepted input is cleared")

	f.settle()

	view := f.panel.View()
	assert.Contains(t, view, "Show me all change of name entries")
	assert.Contains(t, view, "Found 5 entries")
	assert.Contains(t, view, "Results (5)")
	assert.Contains(t, view, "Change of Name 1")
	assert.Contains(t, view, "+2 more")
	assert.NotContains(t, view, "Change of Name 4")
}

func TestPanel_EmptyInputIgnored(t *testing.T) {
	f := newPanel(t)
	f.typeText("   ")
	f.key(tea.KeyMsg{Type: tea.KeyEnter})

	assert.Empty(t, f.ctrl.Pipeline().Entries())
	assert.Empty(t, f.panel.Status())
	assert.Equal(t, "   ", f.panel.Input())
}

func TestPanel_FailureThenRetry(t *testing.T) {
	f := newPanel(t,
		scripted{err: aiclient.ErrUnavailable},
		success("Found 1 entry", notices(1)),
	)

	f.typeText("Okafor")
	f.key(tea.KeyMsg{Type: tea.KeyEnter})
	f.settle()

	view := f.panel.View()
	assert.Contains(t, view, pipeline.FailureReason)
	assert.Contains(t, view, "retry")

	f.key(tea.KeyMsg{Type: tea.KeyCtrlE})
	f.settle()

	view = f.panel.View()
	assert.NotContains(t, view, pipeline.FailureReason)
	assert.Contains(t, view, "Found 1 entry")
	assert.Equal(t, []string{"Okafor", "Okafor"}, f.tr.texts)
	assert.Len(t, f.ctrl.Pipeline().Messages(), 2, "retry does not duplicate the user message")
}

func TestPanel_SuggestionKey(t *testing.T) {
	f := newPanel(t, success("Found 5 entries", notices(5)))

	f.key(tea.KeyMsg{Type: tea.KeyF1})
	f.settle()

	require.Len(t, f.tr.texts, 1)
	assert.Equal(t, session.DefaultSuggestions[0], f.tr.texts[0])

	// Suggestions are only offered on an empty conversation.
	f.key(tea.KeyMsg{Type: tea.KeyF2})
	f.ctrl.Pipeline().Wait()
	assert.Len(t, f.tr.texts, 1)
}

func TestPanel_ResultCursorAndSelect(t *testing.T) {
	f := newPanel(t, success("Found 5 entries", notices(5)))
	var picked []model.ResultRecord
	f.ctrl.SetOnResultSelected(func(r model.ResultRecord) { picked = append(picked, r) })

	f.typeText("change of name")
	f.key(tea.KeyMsg{Type: tea.KeyEnter})
	f.settle()

	assert.Equal(t, -1, f.panel.Cursor())
	f.key(tea.KeyMsg{Type: tea.KeyDown, Alt: true})
	f.key(tea.KeyMsg{Type: tea.KeyDown, Alt: true})
	assert.Equal(t, 1, f.panel.Cursor())

	// The preview holds three cards.
	for i := 0; i < 5; i++ {
		f.key(tea.KeyMsg{Type: tea.KeyDown, Alt: true})
	}
	assert.Equal(t, 2, f.panel.Cursor())

	f.key(tea.KeyMsg{Type: tea.KeyEnter, Alt: true})
	require.Len(t, picked, 1)
	assert.Equal(t, "cn-3", picked[0].ID())
	assert.Equal(t, "/gazette", f.hist.Location(), "selecting a result never navigates")

	// Expanded, all five rows are reachable.
	f.key(tea.KeyMsg{Type: tea.KeyTab})
	assert.True(t, f.ctrl.Results().Expanded())
	for i := 0; i < 5; i++ {
		f.key(tea.KeyMsg{Type: tea.KeyDown, Alt: true})
	}
	assert.Equal(t, 4, f.panel.Cursor())
	assert.Contains(t, f.panel.View(), "New Name 5")
}

func TestPanel_MinimizeKeepsGuard(t *testing.T) {
	f := newPanel(t)

	f.key(tea.KeyMsg{Type: tea.KeyCtrlN})
	assert.True(t, f.ctrl.Minimized())
	assert.True(t, f.ctrl.Guard().Armed())
	assert.Contains(t, f.panel.View(), "C-n to restore")

	// Typing is ignored while minimized.
	f.typeText("x")
	assert.Empty(t, f.panel.Input())

	f.key(tea.KeyMsg{Type: tea.KeyCtrlN})
	assert.False(t, f.ctrl.Minimized())
}

func TestPanel_EscCloses(t *testing.T) {
	f := newPanel(t)
	f.key(tea.KeyMsg{Type: tea.KeyEsc})

	assert.False(t, f.ctrl.IsOpen())
	assert.False(t, f.ctrl.Guard().Armed())
	assert.Empty(t, f.panel.View())
}

func TestPanel_UpdateSignal(t *testing.T) {
	f := newPanel(t, success("Found 0 entries", []model.ResultRecord{}))

	cmd := f.panel.waitForUpdate()
	done := make(chan tea.Msg, 1)
	go func() { done <- cmd() }()

	f.typeText("zzyzx")
	f.key(tea.KeyMsg{Type: tea.KeyEnter})

	select {
	case msg := <-done:
		assert.IsType(t, PipelineUpdatedMsg{}, msg)
	case <-time.After(2 * time.Second):
		t.Fatal("no pipeline update delivered")
	}
}

func TestPanel_MarkdownReplies(t *testing.T) {
	hist := nav.NewHistory("/cases")
	cfg := session.DefaultConfig()
	cfg.Guard.ReconcileInterval = time.Hour
	tr := &scriptedTransport{replies: []scripted{success("Found **2** entries", notices(2))}}
	ctrl := session.New(hist, nav.NewDispatcher(hist), tr, cfg, nil)
	t.Cleanup(func() { ctrl.Close(); ctrl.Pipeline().Wait() })

	panel := New(styles.NewTheme("dark"), ctrl, Options{Markdown: true})
	defer panel.Shutdown()
	ctrl.Open()
	panel = panel.SetSize(100, 40)

	_, err := ctrl.Send("cases")
	require.NoError(t, err)
	ctrl.Pipeline().Wait()
	panel, _ = panel.Update(PipelineUpdatedMsg{})

	view := panel.View()
	assert.Contains(t, view, "Found")
	assert.NotContains(t, view, "**2**")
}

func TestSuggestionIndex(t *testing.T) {
	assert.Equal(t, 0, suggestionIndex("f1"))
	assert.Equal(t, 3, suggestionIndex("f4"))
	assert.Equal(t, -1, suggestionIndex("f5"))
}
