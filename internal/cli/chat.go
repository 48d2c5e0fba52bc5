// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// chat.go - Line-mode assistant session.
//
// The session runs headless over the console's start page: the guard is
// armed exactly as in the full-screen console, results are previewed
// inline, and /open shows a record without navigating anywhere.
package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"github.com/peterh/liner"
	"go.uber.org/zap"

	"github.com/jeranaias/gazette-assist/internal/config"
	"github.com/jeranaias/gazette-assist/internal/model"
	"github.com/jeranaias/gazette-assist/internal/nav"
	"github.com/jeranaias/gazette-assist/internal/pipeline"
	"github.com/jeranaias/gazette-assist/internal/results"
	"github.com/jeranaias/gazette-assist/internal/session"
	"github.com/jeranaias/gazette-assist/internal/util"
)

const chatHelpText = `Chat commands:
  /retry      Resend the last message after a failure
  /results    List every record of the current batch
  /open N     Show the details of record N
  /clear      Start a new conversation
  /help       Show this help
  /quit       Leave the session`

// =============================================================================
// INPUT HISTORY
// =============================================================================

// chatInput wraps liner with a persisted input history.
type chatInput struct {
	line        *liner.State
	historyFile string
}

func newChatInput() *chatInput {
	line := liner.NewLiner()
	line.SetCtrlCAborts(true)

	configDir, err := config.ConfigDir()
	if err != nil {
		configDir = os.TempDir()
	}
	in := &chatInput{
		line:        line,
		historyFile: filepath.Join(configDir, "chat_history"),
	}
	if f, err := os.Open(in.historyFile); err == nil {
		in.line.ReadHistory(f)
		f.Close()
	}
	return in
}

func (c *chatInput) read(prompt string) (string, error) {
	input, err := c.line.Prompt(prompt)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(input) != "" {
		c.line.AppendHistory(input)
	}
	return input, nil
}

// close saves history with owner-only permissions and restores the terminal.
func (c *chatInput) close() {
	if err := config.EnsureConfigDir(); err == nil {
		if f, err := os.OpenFile(c.historyFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600); err == nil {
			c.line.WriteHistory(f)
			f.Close()
		}
	}
	c.line.Close()
}

// =============================================================================
// SESSION
// =============================================================================

// chatSession drives a session controller from typed lines.
type chatSession struct {
	ctrl    *session.Controller
	out     io.Writer
	width   int
	maxCell int

	// shownBatch is the last batch printed, so unchanged results are not
	// repeated after every reply.
	shownBatch []model.ResultRecord
}

func newChatSession(ctrl *session.Controller, out io.Writer, width, maxCell int) *chatSession {
	cs := &chatSession{ctrl: ctrl, out: out, width: width, maxCell: maxCell}
	ctrl.SetOnResultSelected(cs.printRecord)
	return cs
}

// handleLine processes one line of input. It returns false when the user
// asked to leave.
func (cs *chatSession) handleLine(line string) bool {
	line = strings.TrimSpace(line)
	if line == "" {
		return true
	}

	if strings.HasPrefix(line, "/") {
		return cs.command(line)
	}

	if _, err := cs.ctrl.Send(line); err != nil {
		cs.sendError(err)
		return true
	}
	cs.ctrl.Pipeline().Wait()
	cs.printOutcome()
	return true
}

func (cs *chatSession) command(line string) bool {
	name, arg, _ := strings.Cut(line, " ")
	arg = strings.TrimSpace(arg)

	switch strings.ToLower(name) {
	case "/quit", "/exit", "/q":
		return false

	case "/help", "/?":
		fmt.Fprintln(cs.out, chatHelpText)

	case "/retry":
		if _, err := cs.ctrl.Retry(); err != nil {
			cs.sendError(err)
			return true
		}
		cs.ctrl.Pipeline().Wait()
		cs.printOutcome()

	case "/results":
		listing := cs.ctrl.Results().Listing()
		fmt.Fprintln(cs.out, results.RenderListing(listing, cs.width, cs.maxCell, -1))

	case "/open":
		n, err := ParsePositiveInt(arg, "record number")
		if err != nil {
			fmt.Fprintln(cs.out, WarningStyle.Render(err.Error()))
			return true
		}
		if err := cs.ctrl.SelectResult(n - 1); err != nil {
			fmt.Fprintln(cs.out, WarningStyle.Render(fmt.Sprintf("No record %d", n)))
		}

	case "/clear":
		cs.ctrl.Close()
		cs.ctrl.Open()
		cs.shownBatch = nil
		fmt.Fprintln(cs.out, DimStyle.Render("Conversation cleared"))

	default:
		fmt.Fprintln(cs.out, WarningStyle.Render("Unknown command "+name+" (try /help)"))
	}
	return true
}

func (cs *chatSession) sendError(err error) {
	switch {
	case errors.Is(err, pipeline.ErrEmptyInput):
	case errors.Is(err, pipeline.ErrBusy):
		fmt.Fprintln(cs.out, WarningStyle.Render("Waiting for the current reply..."))
	case errors.Is(err, pipeline.ErrNothingToRetry):
		fmt.Fprintln(cs.out, DimStyle.Render("Nothing to retry"))
	default:
		fmt.Fprintln(cs.out, ErrorStyle.Render(err.Error()))
	}
}

// printOutcome prints the reply or failure of the turn that just completed,
// then the results preview when the batch changed.
func (cs *chatSession) printOutcome() {
	st := cs.ctrl.Pipeline().State()
	if st.Phase == pipeline.PhaseFailed {
		fmt.Fprintf(cs.out, "%s %s %s\n",
			ErrorStyle.Render("[X]"),
			st.Reason,
			DimStyle.Render("(/retry to resend)"))
		cs.shownBatch = nil
		return
	}

	msgs := cs.ctrl.Pipeline().Messages()
	if n := len(msgs); n > 0 && msgs[n-1].Role == model.RoleAssistant {
		fmt.Fprintf(cs.out, "%s %s\n", TitleStyle.Render("Assistant:"), msgs[n-1].Text)
	}

	batch := cs.ctrl.Results().Records()
	if sameBatch(batch, cs.shownBatch) {
		return
	}
	cs.shownBatch = batch
	if len(batch) == 0 {
		return
	}
	fmt.Fprintln(cs.out, RenderSeparator(cs.width))
	fmt.Fprintf(cs.out, "%s (%d)\n", TitleStyle.Render("Results"), len(batch))
	fmt.Fprintln(cs.out, results.RenderPreview(cs.ctrl.Results().Preview(), cs.width, -1))
	if len(batch) > 1 {
		fmt.Fprintln(cs.out, DimStyle.Render("/results to list all, /open N for details"))
	}
}

func (cs *chatSession) printRecord(rec model.ResultRecord) {
	headline := model.DefaultHeadlineFields
	fmt.Fprintln(cs.out, TitleStyle.Render(rec.Title(headline)))
	if id := rec.ID(); id != "" {
		fmt.Fprintln(cs.out, DimStyle.Render(id))
	}
	for _, f := range append(rec.Headline(headline), rec.Secondary(headline)...) {
		fmt.Fprintf(cs.out, "%s %s\n", RenderLabel(f.Label+":"), util.TruncateWidth(f.Value, cs.width-22))
	}
}

// sameBatch compares batches by record identifiers.
func sameBatch(a, b []model.ResultRecord) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].ID() != b[i].ID() {
			return false
		}
	}
	return true
}

// =============================================================================
// HANDLER
// =============================================================================

// HandleChat runs the line-mode session until /quit, Ctrl+C or EOF.
func HandleChat(args Args) error {
	cfg, _, err := loadConfig(args)
	if err != nil {
		return err
	}
	logger, closeLog, err := newLogger(cfg, args, true)
	if err != nil {
		return err
	}
	defer closeLog()

	hist := nav.NewHistory(cfg.UI.StartPage)
	ctrl := session.New(hist, nav.NewDispatcher(hist), newClient(cfg, logger), sessionConfig(cfg), logger)
	ctrl.Open()
	defer ctrl.Close()

	width := GetTerminalWidth() - 2
	cs := newChatSession(ctrl, args.Out, width, cfg.Results.MaxCellWidth)

	if !args.Quiet {
		fmt.Fprintln(args.Out, TitleStyle.Render("Gazette AI")+" "+DimStyle.Render("pinned to "+ctrl.Anchor()))
		fmt.Fprintln(args.Out, DimStyle.Render("Try:"))
		for _, s := range ctrl.Suggestions() {
			fmt.Fprintln(args.Out, DimStyle.Render("  "+s))
		}
		fmt.Fprintln(args.Out, DimStyle.Render("/help for commands, /quit to leave"))
	}

	// liner restores the terminal on Close; keep the default interrupt
	// handler from killing the process mid-prompt.
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, os.Interrupt)
	defer signal.Stop(sigs)

	in := newChatInput()
	defer in.close()

	for {
		line, err := in.read(PromptStyle.Render("gazette> "))
		if err != nil {
			if !errors.Is(err, liner.ErrPromptAborted) && !errors.Is(err, io.EOF) {
				logger.Debug("prompt ended", zap.Error(err))
			}
			fmt.Fprintln(args.Out)
			break
		}
		if !cs.handleLine(line) {
			break
		}
	}

	st := ctrl.Status()
	logger.Info("chat session ended",
		zap.Int("messages", len(ctrl.Pipeline().Messages())),
		zap.Int("blocked", st.Blocked.Total()),
		zap.Int("results", st.Results))
	return nil
}
