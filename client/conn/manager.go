package conn

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/cenyuzhangms/MAFCarepath-v2/client/event"
	"github.com/cenyuzhangms/MAFCarepath-v2/client/workflow"
	"github.com/cenyuzhangms/MAFCarepath-v2/internal/clock"
	"github.com/cenyuzhangms/MAFCarepath-v2/internal/log"
)

// ErrNotConnected is returned by Send when no connection is open.
var ErrNotConnected = errors.New("not connected")

// Default reconnect timing.
const (
	DefaultDelay    = 1500 * time.Millisecond
	DefaultMaxDelay = 30 * time.Second
)

// State of the connection manager.
type State int

const (
	Idle State = iota
	Connecting
	Open
	Closed
	Retrying
)

func (s State) String() string {
	switch s {
	case Connecting:
		return "connecting"
	case Open:
		return "open"
	case Closed:
		return "closed"
	case Retrying:
		return "retrying"
	default:
		return "idle"
	}
}

// Credentials supplies the token sent in the hello frame.
type Credentials interface {
	AccessToken() string
}

// Handler receives connection callbacks. Callbacks run on the manager's
// reader goroutine and must hand work off rather than block.
type Handler interface {
	OnOpen()
	OnFrame(data []byte)
	// OnClosed reports a lost connection and whether a retry is scheduled.
	OnClosed(code int, retrying bool)
	// OnAuthRejected reports a close with ClosePolicyViolation.
	OnAuthRejected()
}

// Manager owns at most one live connection and at most one pending retry.
type Manager struct {
	url      string
	dialer   Dialer
	creds    Credentials
	handler  Handler
	clock    clock.Clock
	logger   *zap.Logger
	trace    *log.Collector
	delay    time.Duration
	maxDelay time.Duration

	ctx    context.Context
	cancel context.CancelFunc

	mu         sync.Mutex
	writeMu    sync.Mutex
	state      State
	generation uint64
	conn       Conn
	retry      *clock.Timer
	attempts   int
	hello      event.Hello
	terminated bool
}

// Option configures a Manager.
type Option func(*Manager)

// WithClock sets the clock used for retry timers.
func WithClock(c clock.Clock) Option {
	return func(m *Manager) { m.clock = c }
}

// WithLogger sets the diagnostic logger.
func WithLogger(l *zap.Logger) Option {
	return func(m *Manager) {
		if l != nil {
			m.logger = l
		}
	}
}

// WithTrace publishes frame and connection events to c.
func WithTrace(c *log.Collector) Option {
	return func(m *Manager) { m.trace = c }
}

// WithDelay sets the first retry delay.
func WithDelay(d time.Duration) Option {
	return func(m *Manager) {
		if d > 0 {
			m.delay = d
		}
	}
}

// WithMaxDelay caps the retry backoff.
func WithMaxDelay(d time.Duration) Option {
	return func(m *Manager) {
		if d > 0 {
			m.maxDelay = d
		}
	}
}

// New creates an idle manager for url.
func New(url string, dialer Dialer, creds Credentials, handler Handler, opts ...Option) *Manager {
	m := &Manager{
		url:      url,
		dialer:   dialer,
		creds:    creds,
		handler:  handler,
		clock:    clock.Real(),
		logger:   zap.NewNop(),
		delay:    DefaultDelay,
		maxDelay: DefaultMaxDelay,
		hello:    event.Hello{Pattern: workflow.DefaultPattern},
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.maxDelay < m.delay {
		m.maxDelay = m.delay
	}
	m.ctx, m.cancel = context.WithCancel(context.Background())
	return m
}

// SetHello sets the session and pattern announced on the next open.
func (m *Manager) SetHello(sessionID string, pattern workflow.Pattern) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.hello.SessionID = sessionID
	m.hello.Pattern = pattern
}

// State returns the current state.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Ready reports whether a connection is open.
func (m *Manager) Ready() bool {
	return m.State() == Open
}

// Connect replaces any existing connection or pending retry with a new
// connection attempt.
func (m *Manager) Connect() {
	m.mu.Lock()
	if m.terminated {
		m.mu.Unlock()
		return
	}
	prev := m.supersedeLocked()
	m.state = Connecting
	gen := m.generation
	m.mu.Unlock()
	if prev != nil {
		_ = prev.Close()
	}
	m.publish(log.Connection, map[string]interface{}{"state": Connecting.String()})
	go m.run(gen)
}

// EnsureConnected connects unless a connection is open or being opened.
func (m *Manager) EnsureConnected() {
	switch m.State() {
	case Connecting, Open:
		return
	}
	m.Connect()
}

// Disconnect closes the connection without scheduling a retry.
func (m *Manager) Disconnect() {
	m.mu.Lock()
	prev := m.supersedeLocked()
	m.state = Idle
	m.mu.Unlock()
	if prev != nil {
		_ = prev.Close()
	}
}

// Close disconnects and stops the manager for good.
func (m *Manager) Close() error {
	m.mu.Lock()
	m.terminated = true
	m.mu.Unlock()
	m.Disconnect()
	m.cancel()
	return nil
}

// Send encodes frame and writes it to the open connection.
func (m *Manager) Send(frame interface{}) error {
	data, err := event.Encode(frame)
	if err != nil {
		return fmt.Errorf("failed to encode frame: %w", err)
	}
	m.mu.Lock()
	c, state, sessionID := m.conn, m.state, m.hello.SessionID
	m.mu.Unlock()
	if state != Open || c == nil {
		return ErrNotConnected
	}
	m.writeMu.Lock()
	err = c.WriteMessage(data)
	m.writeMu.Unlock()
	if err != nil {
		return fmt.Errorf("failed to send frame: %w", err)
	}
	m.publishSession(log.FrameOut, sessionID, string(data))
	return nil
}

// supersedeLocked invalidates the current generation, cancels a pending
// retry and detaches the current connection for the caller to close.
func (m *Manager) supersedeLocked() Conn {
	m.generation++
	if m.retry != nil {
		m.retry.Stop()
		m.retry = nil
	}
	prev := m.conn
	m.conn = nil
	return prev
}

func (m *Manager) run(gen uint64) {
	c, err := m.dialer.Dial(m.ctx, m.url)
	if err != nil {
		m.logger.Debug("dial failed", zap.String("url", m.url), zap.Error(err))
		m.closed(gen, nil, err)
		return
	}
	if !m.open(gen, c) {
		_ = c.Close()
		return
	}
	m.handler.OnOpen()
	for {
		data, err := c.ReadMessage()
		if err != nil {
			m.closed(gen, c, err)
			return
		}
		if !m.current(gen) {
			return
		}
		m.publish(log.FrameIn, string(data))
		m.handler.OnFrame(data)
	}
}

// open promotes c to the live connection and writes the hello frame before
// any other writer can use it.
func (m *Manager) open(gen uint64, c Conn) bool {
	m.writeMu.Lock()
	defer m.writeMu.Unlock()
	m.mu.Lock()
	if gen != m.generation {
		m.mu.Unlock()
		return false
	}
	m.conn = c
	m.state = Open
	m.attempts = 0
	hello := m.hello
	m.mu.Unlock()

	hello.AccessToken = event.Token(m.creds.AccessToken())
	data, err := event.Encode(hello)
	if err == nil {
		err = c.WriteMessage(data)
	}
	if err != nil {
		m.logger.Debug("hello failed", zap.Error(err))
	}
	m.publishSession(log.Connection, hello.SessionID, map[string]interface{}{"state": Open.String()})
	m.publishSession(log.FrameOut, hello.SessionID, string(data))
	return true
}

func (m *Manager) closed(gen uint64, c Conn, cause error) {
	code := CloseCode(cause)
	m.mu.Lock()
	if gen != m.generation {
		m.mu.Unlock()
		return
	}
	if c != nil {
		_ = c.Close()
	}
	m.conn = nil
	retrying := false
	switch {
	case code == ClosePolicyViolation:
		m.state = Idle
	case m.creds.AccessToken() == "":
		m.state = Idle
	default:
		m.attempts++
		m.state = Retrying
		m.retry = m.clock.AfterFunc(m.backoff(m.attempts), func() { m.retryFire(gen) })
		retrying = true
	}
	m.mu.Unlock()

	m.logger.Debug("connection closed", zap.Int("code", code), zap.Bool("retrying", retrying), zap.Error(cause))
	m.publish(log.Connection, map[string]interface{}{"state": Closed.String(), "code": code, "retrying": retrying})
	if code == ClosePolicyViolation {
		m.handler.OnAuthRejected()
	}
	m.handler.OnClosed(code, retrying)
}

func (m *Manager) retryFire(gen uint64) {
	m.mu.Lock()
	if gen != m.generation || m.state != Retrying {
		m.mu.Unlock()
		return
	}
	if m.creds.AccessToken() == "" {
		m.state = Idle
		m.retry = nil
		m.mu.Unlock()
		return
	}
	m.mu.Unlock()
	m.Connect()
}

// backoff doubles the delay per consecutive failed attempt up to maxDelay.
func (m *Manager) backoff(attempt int) time.Duration {
	d := m.delay
	for i := 1; i < attempt; i++ {
		d *= 2
		if d >= m.maxDelay {
			return m.maxDelay
		}
	}
	return d
}

func (m *Manager) current(gen uint64) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return gen == m.generation
}

func (m *Manager) publish(eventType log.EventType, payload interface{}) {
	if m.trace == nil {
		return
	}
	m.mu.Lock()
	sessionID := m.hello.SessionID
	m.mu.Unlock()
	m.publishSession(eventType, sessionID, payload)
}

func (m *Manager) publishSession(eventType log.EventType, sessionID string, payload interface{}) {
	if m.trace == nil {
		return
	}
	m.trace.Publish(log.Event{EventType: eventType, SessionID: sessionID, Payload: payload})
}
