// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/gazette-assist/internal/aiclient"
	"github.com/jeranaias/gazette-assist/internal/guard"
	"github.com/jeranaias/gazette-assist/internal/model"
	"github.com/jeranaias/gazette-assist/internal/nav"
	"github.com/jeranaias/gazette-assist/internal/pipeline"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

type reply struct {
	resp *aiclient.TurnResponse
	err  error
}

type pendingTurn struct {
	text  string
	reply chan reply
}

type stubTransport struct {
	turns chan *pendingTurn
}

func newStubTransport() *stubTransport {
	return &stubTransport{turns: make(chan *pendingTurn, 4)}
}

func (s *stubTransport) SendChatTurn(ctx context.Context, text string, prior []model.ChatMessage) (*aiclient.TurnResponse, error) {
	pt := &pendingTurn{text: text, reply: make(chan reply, 1)}
	s.turns <- pt
	select {
	case r := <-pt.reply:
		return r.resp, r.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (s *stubTransport) next(t *testing.T) *pendingTurn {
	t.Helper()
	select {
	case pt := <-s.turns:
		return pt
	case <-time.After(2 * time.Second):
		t.Fatal("no chat turn issued")
		return nil
	}
}

func gazetteNotices(n int) []model.ResultRecord {
	out := make([]model.ResultRecord, n)
	for i := range out {
		out[i] = model.ResultRecord{
			"id":          fmt.Sprintf("cn-%d", i+1),
			"notice_type": "change_of_name",
			"old_name":    fmt.Sprintf("Old Name %d", i+1),
			"new_name":    fmt.Sprintf("New Name %d", i+1),
		}
	}
	return out
}

type fixture struct {
	ctrl *Controller
	hist *nav.History
	disp *nav.Dispatcher
	tr   *stubTransport
}

func newFixture(t *testing.T, start string) *fixture {
	t.Helper()
	hist := nav.NewHistory(start)
	disp := nav.NewDispatcher(hist)
	tr := newStubTransport()

	cfg := DefaultConfig()
	cfg.Guard.ReconcileInterval = time.Hour
	ctrl := New(hist, disp, tr, cfg, nil)
	t.Cleanup(func() {
		ctrl.Close()
		ctrl.Pipeline().Wait()
	})
	return &fixture{ctrl: ctrl, hist: hist, disp: disp, tr: tr}
}

// =============================================================================
// LIFECYCLE TESTS
// =============================================================================

func TestOpen_RecordsAnchorAndArms(t *testing.T) {
	f := newFixture(t, "/gazette")

	assert.True(t, f.ctrl.Open())
	assert.False(t, f.ctrl.Open())

	assert.True(t, f.ctrl.IsOpen())
	assert.Equal(t, "/gazette", f.ctrl.Anchor())
	assert.True(t, f.ctrl.Guard().Armed())
	assert.Equal(t, "/gazette", f.ctrl.Guard().Anchor())

	st := f.ctrl.Status()
	assert.Equal(t, StateOpen, st.State)
	assert.NotEmpty(t, st.SessionID)
	assert.False(t, st.OpenedAt.IsZero())
}

func TestClose_DisarmsAndClears(t *testing.T) {
	f := newFixture(t, "/gazette")
	closed := 0
	f.ctrl.SetOnClose(func() { closed++ })

	assert.False(t, f.ctrl.Close())
	assert.Equal(t, 0, closed)

	f.ctrl.Open()
	_, err := f.ctrl.Send("hello")
	require.NoError(t, err)
	f.tr.next(t).reply <- reply{resp: &aiclient.TurnResponse{Success: true, ReplyText: "hi", Results: gazetteNotices(2)}}
	f.ctrl.Pipeline().Wait()
	require.Equal(t, 2, f.ctrl.Results().Len())

	assert.True(t, f.ctrl.Close())
	assert.Equal(t, 1, closed)
	assert.False(t, f.ctrl.IsOpen())
	assert.Equal(t, "", f.ctrl.Anchor())
	assert.False(t, f.ctrl.Guard().Armed())
	assert.Empty(t, f.ctrl.Pipeline().Messages())
	assert.Equal(t, 0, f.ctrl.Results().Len())

	require.NoError(t, f.hist.Push("/people"))
	assert.Equal(t, "/people", f.hist.Location())
}

func TestMinimize_KeepsGuardArmed(t *testing.T) {
	f := newFixture(t, "/cases")
	var toggles []bool
	f.ctrl.SetOnMinimizeToggle(func(m bool) { toggles = append(toggles, m) })

	// Ignored while closed.
	f.ctrl.Minimize()
	assert.False(t, f.ctrl.Minimized())

	f.ctrl.Open()
	f.ctrl.Minimize()
	f.ctrl.Minimize()
	assert.True(t, f.ctrl.Minimized())
	assert.True(t, f.ctrl.Guard().Armed())
	assert.Equal(t, "/cases", f.ctrl.Anchor())

	require.NoError(t, f.hist.Push("/audit"))
	assert.Equal(t, "/cases", f.hist.Location())

	assert.False(t, f.ctrl.ToggleMinimize())
	assert.True(t, f.ctrl.ToggleMinimize())
	f.ctrl.Restore()

	assert.Equal(t, []bool{true, false, true, false}, toggles)
}

func TestArmedIffOpen(t *testing.T) {
	f := newFixture(t, "/")
	steps := []func(){
		func() { f.ctrl.Open() },
		func() { f.ctrl.Minimize() },
		func() { f.ctrl.Restore() },
		func() { f.ctrl.Close() },
		func() { f.ctrl.Close() },
		func() { f.ctrl.Open() },
		func() { f.ctrl.ToggleMinimize() },
		func() { f.ctrl.Close() },
	}
	for i, step := range steps {
		step()
		assert.Equal(t, f.ctrl.IsOpen(), f.ctrl.Guard().Armed(), "step %d", i)
	}
}

func TestReopen_UsesNewLocation(t *testing.T) {
	f := newFixture(t, "/gazette")
	f.ctrl.Open()
	f.ctrl.Close()

	require.NoError(t, f.hist.Push("/people"))
	f.ctrl.Open()
	assert.Equal(t, "/people", f.ctrl.Anchor())
	assert.Equal(t, "/people", f.ctrl.Guard().Anchor())
}

// =============================================================================
// SCENARIO TESTS
// =============================================================================

func TestScenario_ChangeOfNameSearch(t *testing.T) {
	f := newFixture(t, "/gazette")
	f.ctrl.Open()

	_, err := f.ctrl.Send("Show me all change of name entries")
	require.NoError(t, err)

	pt := f.tr.next(t)
	assert.Equal(t, "Show me all change of name entries", pt.text)
	pt.reply <- reply{resp: &aiclient.TurnResponse{
		Success:   true,
		ReplyText: "Found 5 entries",
		Results:   gazetteNotices(5),
	}}
	f.ctrl.Pipeline().Wait()

	msgs := f.ctrl.Pipeline().Messages()
	require.Len(t, msgs, 2)
	assert.Equal(t, model.RoleUser, msgs[0].Role)
	assert.Equal(t, model.RoleAssistant, msgs[1].Role)
	assert.Equal(t, "Found 5 entries", msgs[1].Text)

	pv := f.ctrl.Results().Preview()
	assert.Len(t, pv.Items, 3)
	assert.Equal(t, 2, pv.Remaining)
	assert.Equal(t, "/gazette", f.hist.Location())
}

func TestScenario_OutsideClickBlocked(t *testing.T) {
	f := newFixture(t, "/gazette")
	f.ctrl.Open()

	ev, err := f.disp.Dispatch(nav.Event{Kind: nav.EventClick, Target: "/people", Origin: nav.OriginHost})
	require.NoError(t, err)
	assert.True(t, ev.Cancelled())
	assert.Equal(t, "/gazette", f.hist.Location())

	f.ctrl.Guard().Reconcile()
	assert.Equal(t, "/gazette", f.hist.Location())
}

func TestScenario_EmptySend(t *testing.T) {
	f := newFixture(t, "/gazette")
	f.ctrl.Open()

	_, err := f.ctrl.Send("")
	assert.ErrorIs(t, err, pipeline.ErrEmptyInput)
	assert.Empty(t, f.ctrl.Pipeline().Messages())
	assert.Equal(t, pipeline.PhaseIdle, f.ctrl.Pipeline().State().Phase)

	select {
	case <-f.tr.turns:
		t.Fatal("transport called for empty input")
	default:
	}
}

func TestScenario_TransportRejects(t *testing.T) {
	f := newFixture(t, "/gazette")
	f.ctrl.Open()

	_, err := f.ctrl.Send("Show me probate notices")
	require.NoError(t, err)
	f.tr.next(t).reply <- reply{err: errors.New("connection reset")}
	f.ctrl.Pipeline().Wait()

	st := f.ctrl.Pipeline().State()
	assert.Equal(t, pipeline.PhaseFailed, st.Phase)
	assert.Equal(t, pipeline.FailureReason, st.Reason)

	entries := f.ctrl.Pipeline().Entries()
	require.Len(t, entries, 2)
	assert.Equal(t, model.RoleUser, entries[0].Message.Role)
	assert.Equal(t, pipeline.EntryFailure, entries[1].Kind)

	_, err = f.ctrl.Retry()
	require.NoError(t, err)
	f.tr.next(t).reply <- reply{resp: &aiclient.TurnResponse{Success: true, ReplyText: "Found 0 entries"}}
	f.ctrl.Pipeline().Wait()
	assert.Len(t, f.ctrl.Pipeline().Messages(), 2)
}

func TestScenario_CloseWhileAwaiting(t *testing.T) {
	f := newFixture(t, "/gazette")
	f.ctrl.Open()

	_, err := f.ctrl.Send("Find marriage notices")
	require.NoError(t, err)
	pt := f.tr.next(t)

	f.ctrl.Close()
	assert.False(t, f.ctrl.Guard().Armed())
	assert.Equal(t, "", f.ctrl.Anchor())

	pt.reply <- reply{resp: &aiclient.TurnResponse{Success: true, ReplyText: "late", Results: gazetteNotices(3)}}
	f.ctrl.Pipeline().Wait()

	assert.Empty(t, f.ctrl.Pipeline().Messages())
	assert.Equal(t, 0, f.ctrl.Results().Len())
}

// =============================================================================
// SEND & SELECT TESTS
// =============================================================================

func TestSend_WhileClosed(t *testing.T) {
	f := newFixture(t, "/")
	_, err := f.ctrl.Send("hello")
	assert.ErrorIs(t, err, ErrSessionClosed)
	_, err = f.ctrl.SuggestedPrompt(DefaultSuggestions[0])
	assert.ErrorIs(t, err, ErrSessionClosed)
	_, err = f.ctrl.Retry()
	assert.ErrorIs(t, err, ErrSessionClosed)
}

func TestSend_DropsPreviousResultsWhilePending(t *testing.T) {
	f := newFixture(t, "/gazette")
	f.ctrl.Open()

	_, err := f.ctrl.Send("Show me all change of name entries")
	require.NoError(t, err)
	f.tr.next(t).reply <- reply{resp: &aiclient.TurnResponse{Success: true, ReplyText: "Found 5 entries", Results: gazetteNotices(5)}}
	f.ctrl.Pipeline().Wait()
	require.Equal(t, 5, f.ctrl.Results().Len())

	_, err = f.ctrl.Send("thanks")
	require.NoError(t, err)
	pt := f.tr.next(t)
	assert.Equal(t, 0, f.ctrl.Results().Len(), "awaiting the second reply")
	assert.True(t, f.ctrl.Pipeline().State().Busy())

	pt.reply <- reply{resp: &aiclient.TurnResponse{Success: true, ReplyText: "You're welcome"}}
	f.ctrl.Pipeline().Wait()
	assert.Equal(t, 0, f.ctrl.Results().Len(), "reply without results")
	assert.Len(t, f.ctrl.Pipeline().Messages(), 4)
}

// instantTransport answers every turn immediately.
type instantTransport struct{}

func (instantTransport) SendChatTurn(ctx context.Context, text string, prior []model.ChatMessage) (*aiclient.TurnResponse, error) {
	return &aiclient.TurnResponse{Success: true, ReplyText: "ok"}, nil
}

func TestSend_RacingCloseLeavesNothingBehind(t *testing.T) {
	hist := nav.NewHistory("/gazette")
	cfg := DefaultConfig()
	cfg.Guard.ReconcileInterval = time.Hour
	ctrl := New(hist, nav.NewDispatcher(hist), instantTransport{}, cfg, nil)

	for i := 0; i < 200; i++ {
		require.True(t, ctrl.Open())

		var wg sync.WaitGroup
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := ctrl.Send("hello")
			if err != nil {
				assert.ErrorIs(t, err, ErrSessionClosed)
			}
		}()
		ctrl.Close()
		wg.Wait()
		ctrl.Pipeline().Wait()

		require.Empty(t, ctrl.Pipeline().Messages(), "iteration %d", i)
		require.False(t, ctrl.Pipeline().State().Busy(), "iteration %d", i)
	}
}

func TestSuggestedPrompt(t *testing.T) {
	f := newFixture(t, "/gazette")
	f.ctrl.Open()

	prompts := f.ctrl.Suggestions()
	require.NotEmpty(t, prompts)
	prompts[0] = "mutated"
	assert.Equal(t, DefaultSuggestions[0], f.ctrl.Suggestions()[0])

	_, err := f.ctrl.SuggestedPrompt(DefaultSuggestions[0])
	require.NoError(t, err)
	pt := f.tr.next(t)
	assert.Equal(t, DefaultSuggestions[0], pt.text)
	pt.reply <- reply{resp: &aiclient.TurnResponse{Success: true, ReplyText: "ok"}}
	f.ctrl.Pipeline().Wait()
}

func TestSelectResult_DoesNotNavigate(t *testing.T) {
	f := newFixture(t, "/gazette")
	var picked []string
	f.ctrl.SetOnResultSelected(func(r model.ResultRecord) { picked = append(picked, r.ID()) })
	f.ctrl.Open()

	_, _ = f.ctrl.Send("names")
	f.tr.next(t).reply <- reply{resp: &aiclient.TurnResponse{Success: true, ReplyText: "Found 5 entries", Results: gazetteNotices(5)}}
	f.ctrl.Pipeline().Wait()

	require.NoError(t, f.ctrl.SelectResult(4))
	assert.Equal(t, []string{"cn-5"}, picked)
	assert.True(t, f.ctrl.IsOpen())
	assert.Equal(t, "/gazette", f.hist.Location())
	assert.True(t, f.ctrl.Guard().Armed())
}

func TestOnBlocked(t *testing.T) {
	hist := nav.NewHistory("/gazette")
	cfg := DefaultConfig()
	cfg.Guard = guard.Config{ReconcileInterval: time.Hour, NotifyBlocked: true}
	ctrl := New(hist, nil, newStubTransport(), cfg, nil)
	defer ctrl.Close()

	var blocked []guard.Block
	ctrl.SetOnBlocked(func(b guard.Block) { blocked = append(blocked, b) })
	ctrl.Open()

	require.NoError(t, hist.Push("/people"))
	require.Len(t, blocked, 1)
	assert.Equal(t, "/people", blocked[0].Target)
	assert.Equal(t, 1, ctrl.Status().Blocked.Programmatic)
}
