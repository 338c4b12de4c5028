package carepath

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/cenyuzhangms/MAFCarepath-v2/client/conn"
	"github.com/cenyuzhangms/MAFCarepath-v2/client/controller"
	"github.com/cenyuzhangms/MAFCarepath-v2/client/outbound"
	"github.com/cenyuzhangms/MAFCarepath-v2/client/store"
	"github.com/cenyuzhangms/MAFCarepath-v2/client/workflow"
	"github.com/cenyuzhangms/MAFCarepath-v2/internal/log"
)

// ChatCmd runs an interactive session, or a single turn with -q.
type ChatCmd struct {
	Query     string `short:"q" long:"query" description:"single prompt; exits after the reply"`
	SessionID string `short:"s" long:"session" description:"resume a persisted session by id"`
	Latest    bool   `long:"latest" description:"resume the most recent persisted session"`
	Pattern   string `short:"p" long:"pattern" description:"workflow pattern: sequential|fanout_fanin|handoff"`
	Token     string `long:"token" description:"access token (overrides the stored credential)"`
	Log       string `long:"log" description:"append frame trace (JSON lines) to this file"`
	ResetLog  bool   `long:"reset-log" description:"truncate the trace file before the run"`
	Timeout   int    `short:"t" long:"timeout" description:"seconds to wait for a reply with -q" default:"120"`
	Width     int    `short:"w" long:"width" description:"render width" default:"100"`
	Verbose   bool   `long:"verbose" description:"debug logging to stderr"`
}

func (c *ChatCmd) Execute(_ []string) error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	cfg, err := loadConfig(ctx)
	if err != nil {
		return err
	}
	if c.Pattern != "" {
		cfg.Pattern = c.Pattern
		if err := cfg.Validate(); err != nil {
			return err
		}
	}
	logger := newLogger(c.Verbose)
	defer func() { _ = logger.Sync() }()

	var trace *log.Collector
	if c.Log != "" {
		w, err := openLog(c.Log, c.ResetLog)
		if err != nil {
			return fmt.Errorf("failed to open log %v: %w", c.Log, err)
		}
		trace = &log.Collector{}
		done := log.FileSink(trace, w)
		defer func() {
			trace.Close()
			<-done
			_ = w.Close()
		}()
	}

	creds := newCredentials(cfg, c.Token)
	client := newStore(cfg, creds)
	out := newPrinter(os.Stdout, c.Width)
	opts := []controller.Option{
		controller.WithStore(client),
		controller.WithPattern(cfg.WorkflowPattern()),
		controller.WithLogger(logger),
		controller.WithTrace(trace),
		controller.WithDialer(&conn.WebsocketDialer{HandshakeTimeout: cfg.HandshakeTimeout.Std()}),
		controller.WithConnOptions(conn.WithDelay(cfg.Reconnect.Delay.Std()), conn.WithMaxDelay(cfg.Reconnect.MaxDelay.Std())),
	}
	if cfg.PersistEnabled() {
		recorder := store.NewRecorder(client,
			store.WithQueueSize(cfg.QueueSize),
			store.WithRecorderLogger(logger),
			store.WithRecorderTrace(trace),
		)
		defer func() { _ = recorder.Close() }()
		opts = append(opts, controller.WithPersister(recorder))
	}
	wsURL, err := conn.URL(cfg.BackendURL)
	if err != nil {
		return err
	}
	ctrl := controller.New(wsURL, creds, out, opts...)

	runCtx, stop := context.WithCancel(ctx)
	running := make(chan error, 1)
	go func() { running <- ctrl.Run(runCtx) }()
	defer func() {
		stop()
		<-running
	}()

	switch {
	case c.SessionID != "":
		err = ctrl.Resume(ctx, c.SessionID)
	case c.Latest:
		err = ctrl.ResumeLatest(ctx)
	default:
		err = ctrl.Reset(ctx)
	}
	if err != nil {
		return err
	}
	if c.Query != "" {
		return c.single(ctx, ctrl, out)
	}
	return c.interactive(ctx, ctrl, out, os.Stdin)
}

// single submits one prompt once connected and waits for the first reply.
func (c *ChatCmd) single(ctx context.Context, ctrl *controller.Controller, out *printer) error {
	timeout := time.Duration(c.Timeout) * time.Second
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := c.awaitOpen(ctx, out); err != nil {
		return err
	}
	out.discardReplies()
	if err := ctrl.Submit(ctx, c.Query); err != nil {
		return err
	}
	for {
		select {
		case <-out.replies:
			return nil
		case notice := <-out.notices:
			if notice.Kind == controller.NoticeAuthExpired {
				return errors.New(notice.Message)
			}
		case <-ctx.Done():
			return fmt.Errorf("no reply: %w", ctx.Err())
		}
	}
}

func (c *ChatCmd) awaitOpen(ctx context.Context, out *printer) error {
	for {
		select {
		case <-out.opened:
			return nil
		case notice := <-out.notices:
			switch notice.Kind {
			case controller.NoticeSignInRequired, controller.NoticeAuthExpired:
				return errors.New(notice.Message)
			}
		case <-ctx.Done():
			return fmt.Errorf("not connected: %w", ctx.Err())
		}
	}
}

// interactive reads prompts line by line. Lines starting with "/" are
// commands: /new, /pattern <name>, /quit.
func (c *ChatCmd) interactive(ctx context.Context, ctrl *controller.Controller, out *printer, in io.Reader) error {
	go drain(ctx, out)
	fmt.Fprintln(out.out, "Type a message, /new, /pattern <name> or /quit.")
	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
	}()
	for {
		select {
		case <-ctx.Done():
			return nil
		case line, ok := <-lines:
			if !ok {
				return nil
			}
			quit, err := c.handleLine(ctx, ctrl, strings.TrimSpace(line))
			if err != nil {
				fmt.Fprintf(out.out, "! %v\n", err)
			}
			if quit {
				return nil
			}
		}
	}
}

func (c *ChatCmd) handleLine(ctx context.Context, ctrl *controller.Controller, line string) (bool, error) {
	switch {
	case line == "/quit" || line == "/exit":
		return true, nil
	case line == "/new":
		return false, ctrl.Reset(ctx)
	case strings.HasPrefix(line, "/pattern"):
		p, err := workflow.ParsePattern(strings.TrimSpace(strings.TrimPrefix(line, "/pattern")))
		if err != nil {
			return false, err
		}
		return false, ctrl.SetPattern(ctx, p)
	}
	err := ctrl.Submit(ctx, line)
	switch {
	case errors.Is(err, outbound.ErrEmptyPrompt),
		errors.Is(err, outbound.ErrSignInRequired),
		errors.Is(err, outbound.ErrReconnecting):
		// surfaced as a notice
		return false, nil
	case errors.Is(err, controller.ErrStopped):
		return true, nil
	}
	return false, err
}

// drain empties the signal channels the single-turn mode waits on.
func drain(ctx context.Context, out *printer) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-out.replies:
		case <-out.opened:
		case <-out.notices:
		}
	}
}
