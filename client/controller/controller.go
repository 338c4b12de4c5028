// Package controller owns one client session: it wires the connection, the
// reconciler, the outbound queue and the session service, and serializes
// every state change onto a single goroutine.
package controller

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/cenyuzhangms/MAFCarepath-v2/client/conn"
	"github.com/cenyuzhangms/MAFCarepath-v2/client/credential"
	"github.com/cenyuzhangms/MAFCarepath-v2/client/event"
	"github.com/cenyuzhangms/MAFCarepath-v2/client/outbound"
	"github.com/cenyuzhangms/MAFCarepath-v2/client/session"
	"github.com/cenyuzhangms/MAFCarepath-v2/client/workflow"
	"github.com/cenyuzhangms/MAFCarepath-v2/internal/clock"
	"github.com/cenyuzhangms/MAFCarepath-v2/internal/log"
)

var (
	// ErrStopped is returned once Run has exited.
	ErrStopped = errors.New("controller stopped")
	// ErrStale is returned when a fetched snapshot was discarded because the
	// session changed while it was loading.
	ErrStale = errors.New("session changed while loading")
	// ErrNoStore is returned when no session service is configured.
	ErrNoStore = errors.New("session service not configured")
)

// Listener receives view updates and notices. Callbacks run on the
// controller goroutine and must not call back into the controller
// synchronously.
type Listener interface {
	OnUpdate(view *session.View, change session.Change)
	OnNotice(notice Notice)
}

// SessionStore is the session service used to create, list and load sessions.
type SessionStore interface {
	CreateSession(ctx context.Context, title string) (*session.Info, error)
	ListSessions(ctx context.Context) ([]*session.Info, error)
	GetSession(ctx context.Context, sessionID string) (*session.Snapshot, error)
	LatestSession(ctx context.Context) (*session.Snapshot, error)
}

// Connection is the live orchestrator connection.
type Connection interface {
	outbound.Sender
	SetHello(sessionID string, pattern workflow.Pattern)
	Connect()
	Disconnect()
	Close() error
}

// Controller serializes all session state changes onto the goroutine
// running Run.
type Controller struct {
	creds      credential.Provider
	listener   Listener
	store      SessionStore
	conn       Connection
	reconciler *session.Reconciler
	queue      *outbound.Queue
	pattern    workflow.Pattern
	logger     *zap.Logger
	trace      *log.Collector

	actions  chan func()
	stopped  chan struct{}
	stopOnce sync.Once
}

type settings struct {
	dialer    conn.Dialer
	clock     clock.Clock
	connOpts  []conn.Option
	persister session.Persister
	store     SessionStore
	pattern   workflow.Pattern
	logger    *zap.Logger
	trace     *log.Collector
}

// Option configures a Controller.
type Option func(*settings)

// WithDialer sets the websocket dialer.
func WithDialer(d conn.Dialer) Option {
	return func(s *settings) { s.dialer = d }
}

// WithClock sets the clock for timestamps and reconnect timers.
func WithClock(c clock.Clock) Option {
	return func(s *settings) { s.clock = c }
}

// WithConnOptions passes extra options to the connection manager.
func WithConnOptions(opts ...conn.Option) Option {
	return func(s *settings) { s.connOpts = append(s.connOpts, opts...) }
}

// WithPersister sets where state changes are persisted.
func WithPersister(p session.Persister) Option {
	return func(s *settings) { s.persister = p }
}

// WithStore sets the session service.
func WithStore(store SessionStore) Option {
	return func(s *settings) { s.store = store }
}

// WithPattern sets the initial workflow pattern.
func WithPattern(p workflow.Pattern) Option {
	return func(s *settings) { s.pattern = p }
}

// WithLogger sets the diagnostic logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *settings) { s.logger = l }
}

// WithTrace publishes frame traffic and session events to c.
func WithTrace(c *log.Collector) Option {
	return func(s *settings) { s.trace = c }
}

// New creates a controller for the websocket endpoint url. The first session
// starts once Reset, Resume or ResumeLatest is called.
func New(url string, creds credential.Provider, listener Listener, opts ...Option) *Controller {
	cfg := &settings{
		dialer:  &conn.WebsocketDialer{},
		clock:   clock.Real(),
		pattern: workflow.DefaultPattern,
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(cfg)
	}
	if cfg.logger == nil {
		cfg.logger = zap.NewNop()
	}
	c := &Controller{
		creds:    creds,
		listener: listener,
		store:    cfg.store,
		pattern:  cfg.pattern,
		logger:   cfg.logger,
		trace:    cfg.trace,
		actions:  make(chan func()),
		stopped:  make(chan struct{}),
	}
	reconcilerOpts := []session.Option{session.WithClock(cfg.clock), session.WithExpiry(session.ExpiryFunc(c.expired))}
	if cfg.persister != nil {
		reconcilerOpts = append(reconcilerOpts, session.WithPersister(cfg.persister))
	}
	c.reconciler = session.NewReconciler(nil, reconcilerOpts...)
	connOpts := append([]conn.Option{conn.WithClock(cfg.clock), conn.WithLogger(cfg.logger), conn.WithTrace(cfg.trace)}, cfg.connOpts...)
	c.conn = conn.New(url, cfg.dialer, creds, &handler{c: c}, connOpts...)
	c.queue = outbound.New(creds, c.conn, c.echo)
	return c
}

// Run processes actions until ctx is done, then closes the connection.
func (c *Controller) Run(ctx context.Context) error {
	defer c.stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case fn := <-c.actions:
			fn()
		}
	}
}

func (c *Controller) stop() {
	c.stopOnce.Do(func() {
		close(c.stopped)
		_ = c.conn.Close()
	})
}

// post queues fn for the controller goroutine. It reports false once the
// controller stopped.
func (c *Controller) post(fn func()) bool {
	select {
	case c.actions <- fn:
		return true
	case <-c.stopped:
		return false
	}
}

// do runs fn on the controller goroutine and waits for it.
func (c *Controller) do(ctx context.Context, fn func()) error {
	done := make(chan struct{})
	wrapped := func() {
		defer close(done)
		fn()
	}
	select {
	case c.actions <- wrapped:
	case <-c.stopped:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case <-done:
		return nil
	case <-c.stopped:
		return ErrStopped
	}
}

// Reset starts a new session. With a credential the session is registered
// with the session service, adopting its id, and connected; without one the
// session stays local in preview mode.
func (c *Controller) Reset(ctx context.Context) error {
	var origin string
	var signedIn bool
	if err := c.do(ctx, func() {
		// frames of the previous session must not fold into the new one
		c.conn.Disconnect()
		origin = c.startLocal(nil)
		signedIn = c.creds.AccessToken() != ""
		if !signedIn {
			c.notice(NoticeSignInRequired)
		}
	}); err != nil {
		return err
	}
	if !signedIn {
		return nil
	}
	var remote *session.Info
	if c.store != nil {
		info, err := c.store.CreateSession(ctx, "")
		if err != nil {
			c.logger.Debug("create session failed", zap.Error(err))
		} else {
			remote = info
		}
	}
	return c.do(ctx, func() {
		if c.reconciler.SessionID() != origin {
			return
		}
		if remote != nil {
			s := session.New(remote.ID)
			s.Title = remote.Title
			c.reconciler.Reset(s)
			c.notify(session.ChangeAll)
		}
		c.connect()
		c.notice(NoticeSessionStarted)
	})
}

// Resume loads a persisted session by id and reconnects under its id.
func (c *Controller) Resume(ctx context.Context, sessionID string) error {
	if c.store == nil {
		return ErrNoStore
	}
	err := c.resume(ctx, func(ctx context.Context) (*session.Snapshot, error) {
		return c.store.GetSession(ctx, sessionID)
	})
	if err != nil && !errors.Is(err, ErrStale) && !errors.Is(err, ErrStopped) {
		c.post(func() { c.notice(NoticeResumeFailed) })
	}
	return err
}

// ResumeLatest loads the most recent persisted session, falling back to a
// new session when none can be loaded.
func (c *Controller) ResumeLatest(ctx context.Context) error {
	if c.store != nil {
		err := c.resume(ctx, c.store.LatestSession)
		if err == nil || errors.Is(err, ErrStale) || errors.Is(err, ErrStopped) || ctx.Err() != nil {
			return err
		}
		c.logger.Debug("resume latest failed, starting new session", zap.Error(err))
	}
	return c.Reset(ctx)
}

func (c *Controller) resume(ctx context.Context, fetch func(ctx context.Context) (*session.Snapshot, error)) error {
	var origin string
	if err := c.do(ctx, func() { origin = c.reconciler.SessionID() }); err != nil {
		return err
	}
	snap, err := fetch(ctx)
	if err != nil {
		return fmt.Errorf("failed to load session: %w", err)
	}
	var applyErr error
	if err := c.do(ctx, func() {
		if c.reconciler.SessionID() != origin {
			applyErr = ErrStale
			return
		}
		if applyErr = session.Hydrate(c.reconciler, snap); applyErr != nil {
			return
		}
		c.publish(log.Hydrate, map[string]interface{}{
			"messages":  len(snap.Messages),
			"handoffs":  len(snap.Handoffs),
			"artifacts": len(snap.Artifacts),
		})
		c.notify(session.ChangeAll)
		if c.creds.AccessToken() != "" {
			c.connect()
		}
	}); err != nil {
		return err
	}
	return applyErr
}

// Sessions lists persisted sessions.
func (c *Controller) Sessions(ctx context.Context) ([]*session.Info, error) {
	if c.store == nil {
		return nil, ErrNoStore
	}
	return c.store.ListSessions(ctx)
}

// Submit sends a prompt on the current session.
func (c *Controller) Submit(ctx context.Context, prompt string) error {
	var submitErr error
	if err := c.do(ctx, func() {
		submitErr = c.queue.Submit(c.reconciler.SessionID(), c.pattern, prompt)
		switch {
		case errors.Is(submitErr, outbound.ErrSignInRequired):
			c.notice(NoticeSignInRequired)
		case errors.Is(submitErr, outbound.ErrReconnecting):
			c.notice(NoticeReconnecting)
		case submitErr != nil && !errors.Is(submitErr, outbound.ErrEmptyPrompt):
			c.logger.Debug("submit failed", zap.Error(submitErr))
		}
	}); err != nil {
		return err
	}
	return submitErr
}

// SetPattern selects the workflow pattern for subsequent prompts and hellos.
func (c *Controller) SetPattern(ctx context.Context, pattern workflow.Pattern) error {
	return c.do(ctx, func() {
		c.pattern = pattern
		c.conn.SetHello(c.reconciler.SessionID(), pattern)
	})
}

// View returns a snapshot of the current state.
func (c *Controller) View(ctx context.Context) (*session.View, error) {
	var ret *session.View
	err := c.do(ctx, func() { ret = c.reconciler.View() })
	return ret, err
}

// Export returns the export document of the current session.
func (c *Controller) Export(ctx context.Context) (*session.Export, error) {
	var ret *session.Export
	err := c.do(ctx, func() { ret = c.reconciler.Export() })
	return ret, err
}

// startLocal replaces the session and redraws; it returns the new id.
func (c *Controller) startLocal(s *session.Session) string {
	c.reconciler.Reset(s)
	c.notify(session.ChangeAll)
	return c.reconciler.SessionID()
}

func (c *Controller) connect() {
	c.conn.SetHello(c.reconciler.SessionID(), c.pattern)
	c.conn.Connect()
}

func (c *Controller) echo(text string) {
	c.notify(c.reconciler.Echo(text))
}

// expired clears the credential, drops the connection without retry and
// falls back to a fresh local session.
func (c *Controller) expired() {
	if err := c.creds.Clear(context.Background()); err != nil {
		c.logger.Warn("failed to clear credential", zap.Error(err))
	}
	c.conn.Disconnect()
	c.startLocal(nil)
	c.notice(NoticeAuthExpired)
}

func (c *Controller) handleFrame(data []byte) {
	ev, err := event.Decode(data)
	if err != nil {
		c.logger.Debug("dropping frame", zap.Error(err))
		c.publish(log.FrameDropped, map[string]interface{}{"error": err.Error(), "frame": string(data)})
		return
	}
	c.notify(c.reconciler.Apply(ev))
}

func (c *Controller) notify(change session.Change) {
	if change == session.ChangeNone || c.listener == nil {
		return
	}
	c.listener.OnUpdate(c.reconciler.View(), change)
}

func (c *Controller) notice(kind NoticeKind) {
	if c.listener == nil {
		return
	}
	c.listener.OnNotice(newNotice(kind, c.reconciler.SessionID()))
}

func (c *Controller) publish(eventType log.EventType, payload interface{}) {
	if c.trace == nil {
		return
	}
	c.trace.Publish(log.Event{EventType: eventType, SessionID: c.reconciler.SessionID(), Payload: payload})
}

// handler forwards connection callbacks onto the controller goroutine.
type handler struct {
	c *Controller
}

func (h *handler) OnOpen() {
	h.c.post(func() { h.c.notice(NoticeConnected) })
}

func (h *handler) OnFrame(data []byte) {
	h.c.post(func() { h.c.handleFrame(data) })
}

func (h *handler) OnClosed(code int, retrying bool) {
	if !retrying {
		return
	}
	h.c.post(func() { h.c.notice(NoticeReconnecting) })
}

func (h *handler) OnAuthRejected() {
	h.c.post(h.c.expired)
}
