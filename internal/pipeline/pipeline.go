// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package pipeline owns the conversation transcript and turns user input
// into chat requests and chat responses into transcript and result updates.
//
// At most one request is in flight at a time. Every request is tagged with
// the pipeline generation; Reset bumps the generation so a response that
// lands after a reset is dropped instead of touching the cleared transcript.
package pipeline

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/text/unicode/norm"

	"github.com/jeranaias/gazette-assist/internal/aiclient"
	"github.com/jeranaias/gazette-assist/internal/model"
)

// =============================================================================
// ERRORS
// =============================================================================

var (
	// ErrEmptyInput is returned by Send when the text is blank.
	ErrEmptyInput = errors.New("pipeline: empty message")

	// ErrBusy is returned by Send and Retry while a request is in flight.
	ErrBusy = errors.New("pipeline: request already in flight")

	// ErrNothingToRetry is returned by Retry when there is no failed turn.
	ErrNothingToRetry = errors.New("pipeline: no failed message to retry")
)

// FailureReason is the reason shown when a turn fails without a more
// specific message from the endpoint.
const FailureReason = "Failed to analyze case"

// DefaultTimeout bounds a single turn.
const DefaultTimeout = 30 * time.Second

// =============================================================================
// INTERFACES
// =============================================================================

// Transport issues one chat turn. Implementations should honour ctx.
type Transport interface {
	SendChatTurn(ctx context.Context, text string, prior []model.ChatMessage) (*aiclient.TurnResponse, error)
}

// ResultSink receives each new result batch. A nil or empty batch clears it.
type ResultSink interface {
	Replace(batch []model.ResultRecord)
}

// =============================================================================
// STATE
// =============================================================================

// Phase is the pending request state.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseAwaiting
	PhaseFailed
)

// String returns the phase name.
func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseAwaiting:
		return "awaiting"
	case PhaseFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// State is a snapshot of the pending request state.
type State struct {
	Phase Phase

	// RequestID is set while Awaiting.
	RequestID string

	// Reason and Cause are set while Failed.
	Reason string
	Cause  error
}

// Busy reports whether a request is in flight.
func (s State) Busy() bool {
	return s.Phase == PhaseAwaiting
}

// EntryKind distinguishes transcript messages from the failure entry.
type EntryKind int

const (
	EntryMessage EntryKind = iota
	EntryFailure
)

// Entry is one line of the rendered conversation.
type Entry struct {
	Kind    EntryKind
	Message model.ChatMessage
	Failure string
}

// Config configures a Pipeline.
type Config struct {
	// Timeout bounds each turn (default: 30s)
	Timeout time.Duration
}

// =============================================================================
// PIPELINE
// =============================================================================

// Pipeline is the message send/response state machine.
//
// Pipeline is safe for concurrent use. Subscribers are called outside the
// pipeline lock, possibly from the transport goroutine, and must not block.
type Pipeline struct {
	transport Transport
	sink      ResultSink
	timeout   time.Duration
	logger    *zap.Logger

	mu         sync.Mutex
	transcript *model.Transcript
	state      State
	generation uint64

	// failAt is the transcript length the failure entry follows; -1 when
	// there is no failure. The entry outlives the Failed phase until a turn
	// succeeds.
	failAt     int
	failReason string

	// failed is the turn to re-issue on Retry.
	failed *turn

	inflight sync.WaitGroup

	subMu   sync.Mutex
	subs    map[int]func()
	nextSub int
}

type turn struct {
	text  string
	prior []model.ChatMessage
	// at is the transcript length just after the user message.
	at int
}

// New creates an idle pipeline. sink may be nil.
func New(transport Transport, sink ResultSink, cfg Config, logger *zap.Logger) *Pipeline {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pipeline{
		transport:  transport,
		sink:       sink,
		timeout:    cfg.Timeout,
		logger:     logger.Named("pipeline"),
		transcript: model.NewTranscript(),
		failAt:     -1,
		subs:       make(map[int]func()),
	}
}

// Normalize returns text in NFC form with surrounding space removed.
func Normalize(text string) string {
	return strings.TrimSpace(norm.NFC.String(text))
}

// Send appends text as a user message and issues one chat turn for it.
// It returns the request id. Blank text and sends while a request is in
// flight are rejected without any state change.
func (p *Pipeline) Send(text string) (string, error) {
	text = Normalize(text)
	if text == "" {
		return "", ErrEmptyInput
	}

	p.mu.Lock()
	if p.state.Busy() {
		p.mu.Unlock()
		return "", ErrBusy
	}
	prior := p.transcript.Messages()
	p.transcript.Append(model.NewUserMessage(text))
	t := &turn{text: text, prior: prior, at: p.transcript.Len()}
	id, gen := p.beginLocked()
	p.mu.Unlock()

	p.logger.Debug("turn sent",
		zap.String("request_id", id),
		zap.Int("prior", len(prior)))
	p.notify()

	go p.run(gen, id, t)
	return id, nil
}

// Retry re-issues the last failed turn without appending the user message
// again.
func (p *Pipeline) Retry() (string, error) {
	p.mu.Lock()
	if p.state.Busy() {
		p.mu.Unlock()
		return "", ErrBusy
	}
	if p.state.Phase != PhaseFailed || p.failed == nil {
		p.mu.Unlock()
		return "", ErrNothingToRetry
	}
	t := p.failed
	id, gen := p.beginLocked()
	p.mu.Unlock()

	p.logger.Debug("turn retried", zap.String("request_id", id))
	p.notify()

	go p.run(gen, id, t)
	return id, nil
}

// Reset clears the transcript and any failure and returns to Idle. A request
// still in flight completes but its response is discarded.
func (p *Pipeline) Reset() {
	p.mu.Lock()
	p.generation++
	p.transcript.Clear()
	p.state = State{Phase: PhaseIdle}
	p.failAt = -1
	p.failReason = ""
	p.failed = nil
	p.mu.Unlock()

	p.notify()
}

// State returns the pending request state.
func (p *Pipeline) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// Messages returns a copy of the transcript.
func (p *Pipeline) Messages() []model.ChatMessage {
	return p.transcript.Messages()
}

// Entries returns the transcript with the failure entry, if any, placed
// directly after the message it followed.
func (p *Pipeline) Entries() []Entry {
	p.mu.Lock()
	msgs := p.transcript.Messages()
	failAt, reason := p.failAt, p.failReason
	p.mu.Unlock()

	out := make([]Entry, 0, len(msgs)+1)
	for i, m := range msgs {
		if i == failAt {
			out = append(out, Entry{Kind: EntryFailure, Failure: reason})
		}
		out = append(out, Entry{Kind: EntryMessage, Message: m})
	}
	if failAt >= 0 && failAt >= len(msgs) {
		out = append(out, Entry{Kind: EntryFailure, Failure: reason})
	}
	return out
}

// Subscribe registers fn to be called after every state change.
func (p *Pipeline) Subscribe(fn func()) (unsubscribe func()) {
	p.subMu.Lock()
	id := p.nextSub
	p.nextSub++
	p.subs[id] = fn
	p.subMu.Unlock()

	return func() {
		p.subMu.Lock()
		delete(p.subs, id)
		p.subMu.Unlock()
	}
}

// Wait blocks until no request is in flight, including requests whose
// responses will be discarded.
func (p *Pipeline) Wait() {
	p.inflight.Wait()
}

// =============================================================================
// REQUEST LIFECYCLE
// =============================================================================

// beginLocked moves to Awaiting. The previous batch belongs to the previous
// reply, so it is dropped as soon as a new turn goes out.
func (p *Pipeline) beginLocked() (string, uint64) {
	id := uuid.NewString()
	p.state = State{Phase: PhaseAwaiting, RequestID: id}
	p.inflight.Add(1)
	if p.sink != nil {
		p.sink.Replace(nil)
	}
	return id, p.generation
}

type outcome struct {
	resp *aiclient.TurnResponse
	err  error
}

func (p *Pipeline) run(gen uint64, id string, t *turn) {
	defer p.inflight.Done()

	ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
	defer cancel()

	done := make(chan outcome, 1)
	go func() {
		resp, err := p.transport.SendChatTurn(ctx, t.text, t.prior)
		done <- outcome{resp: resp, err: err}
	}()

	var out outcome
	select {
	case out = <-done:
	case <-ctx.Done():
		out = outcome{err: aiclient.ErrTimeout}
	}
	if out.err != nil && errors.Is(ctx.Err(), context.DeadlineExceeded) {
		out.err = aiclient.ErrTimeout
	}

	p.complete(gen, id, t, out)
}

func (p *Pipeline) complete(gen uint64, id string, t *turn, out outcome) {
	p.mu.Lock()
	if gen != p.generation || p.state.RequestID != id {
		p.mu.Unlock()
		p.logger.Debug("stale response discarded", zap.String("request_id", id))
		return
	}

	if failure, cause := failureOf(out); failure != "" {
		p.state = State{Phase: PhaseFailed, Reason: failure, Cause: cause}
		p.failAt = t.at
		p.failReason = failure
		p.failed = t
		p.mu.Unlock()

		p.logger.Warn("turn failed",
			zap.String("request_id", id),
			zap.String("reason", failure),
			zap.Error(cause))
		p.notify()
		return
	}

	p.transcript.Append(model.NewAssistantMessage(out.resp.ReplyText))
	p.state = State{Phase: PhaseIdle}
	p.failAt = -1
	p.failReason = ""
	p.failed = nil
	if p.sink != nil {
		p.sink.Replace(out.resp.Results)
	}
	p.mu.Unlock()

	p.logger.Debug("turn completed",
		zap.String("request_id", id),
		zap.Int("results", len(out.resp.Results)))
	p.notify()
}

func failureOf(out outcome) (string, error) {
	if out.err != nil {
		return FailureReason, out.err
	}
	if out.resp == nil {
		return FailureReason, aiclient.ErrInvalidResponse
	}
	if !out.resp.Success {
		reason := strings.TrimSpace(out.resp.ErrorMessage)
		if reason == "" {
			reason = FailureReason
		}
		return reason, errors.New(reason)
	}
	return "", nil
}

func (p *Pipeline) notify() {
	p.subMu.Lock()
	fns := make([]func(), 0, len(p.subs))
	for _, fn := range p.subs {
		fns = append(fns, fn)
	}
	p.subMu.Unlock()

	for _, fn := range fns {
		fn()
	}
}
