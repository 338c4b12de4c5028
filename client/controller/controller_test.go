package controller

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cenyuzhangms/MAFCarepath-v2/client/conn"
	"github.com/cenyuzhangms/MAFCarepath-v2/client/credential"
	"github.com/cenyuzhangms/MAFCarepath-v2/client/outbound"
	"github.com/cenyuzhangms/MAFCarepath-v2/client/session"
	"github.com/cenyuzhangms/MAFCarepath-v2/internal/clock"
)

const waitFor = 2 * time.Second
const tick = 5 * time.Millisecond

type fakeConn struct {
	frames   chan []byte
	done     chan struct{}
	once     sync.Once
	mu       sync.Mutex
	closeErr error
	writes   []string
}

func (c *fakeConn) ReadMessage() ([]byte, error) {
	select {
	case data := <-c.frames:
		return data, nil
	case <-c.done:
		c.mu.Lock()
		defer c.mu.Unlock()
		if c.closeErr != nil {
			return nil, c.closeErr
		}
		return nil, &conn.CloseError{Code: conn.CloseAbnormal}
	}
}

func (c *fakeConn) WriteMessage(data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.writes = append(c.writes, string(data))
	return nil
}

func (c *fakeConn) Close() error {
	c.once.Do(func() { close(c.done) })
	return nil
}

func (c *fakeConn) written() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.writes...)
}

func (c *fakeConn) peerClose(code int) {
	c.mu.Lock()
	c.closeErr = &conn.CloseError{Code: code}
	c.mu.Unlock()
	c.Close()
}

type fakeDialer struct {
	mu    sync.Mutex
	conns []*fakeConn
}

func (d *fakeDialer) Dial(ctx context.Context, url string) (conn.Conn, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	c := &fakeConn{frames: make(chan []byte, 16), done: make(chan struct{})}
	d.conns = append(d.conns, c)
	return c, nil
}

func (d *fakeDialer) dials() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.conns)
}

func (d *fakeDialer) last() *fakeConn {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.conns[len(d.conns)-1]
}

type fakeStore struct {
	createID  string
	createErr error
	snapshot  *session.Snapshot
	getErr    error
	entered   chan struct{}
	release   chan struct{}

	createEntered chan struct{}
	createRelease chan struct{}
}

func (s *fakeStore) CreateSession(ctx context.Context, title string) (*session.Info, error) {
	if s.createEntered != nil {
		s.createEntered <- struct{}{}
		<-s.createRelease
	}
	if s.createErr != nil {
		return nil, s.createErr
	}
	return &session.Info{ID: s.createID}, nil
}

func (s *fakeStore) ListSessions(ctx context.Context) ([]*session.Info, error) {
	return []*session.Info{{ID: "a"}, {ID: "b"}}, nil
}

func (s *fakeStore) GetSession(ctx context.Context, sessionID string) (*session.Snapshot, error) {
	if s.entered != nil {
		s.entered <- struct{}{}
		<-s.release
	}
	return s.snapshot, s.getErr
}

func (s *fakeStore) LatestSession(ctx context.Context) (*session.Snapshot, error) {
	return s.snapshot, s.getErr
}

type recListener struct {
	mu      sync.Mutex
	updates []session.Change
	notices []NoticeKind
	last    *session.View
}

func (l *recListener) OnUpdate(view *session.View, change session.Change) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.updates = append(l.updates, change)
	l.last = view
}

func (l *recListener) OnNotice(notice Notice) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.notices = append(l.notices, notice.Kind)
}

func (l *recListener) noticed(kind NoticeKind) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, k := range l.notices {
		if k == kind {
			return true
		}
	}
	return false
}

func (l *recListener) updateCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.updates)
}

type harness struct {
	c        *Controller
	dialer   *fakeDialer
	listener *recListener
	clock    *clock.FakeClock
	creds    *credential.Static
	mu       sync.Mutex
	records  []*session.Record
}

func (h *harness) persisted() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.records)
}

func newHarness(t *testing.T, token string, store SessionStore) *harness {
	t.Helper()
	h := &harness{
		dialer:   &fakeDialer{},
		listener: &recListener{},
		clock:    clock.Fake(time.Unix(1700000000, 0)),
		creds:    credential.NewStatic(token),
	}
	opts := []Option{
		WithDialer(h.dialer),
		WithClock(h.clock),
		WithPersister(session.PersisterFunc(func(sessionID string, record *session.Record) {
			h.mu.Lock()
			defer h.mu.Unlock()
			h.records = append(h.records, record)
		})),
	}
	if store != nil {
		opts = append(opts, WithStore(store))
	}
	h.c = New("ws://localhost:7000/ws/chat", h.creds, h.listener, opts...)
	ctx, cancel := context.WithCancel(context.Background())
	go h.c.Run(ctx)
	t.Cleanup(cancel)
	return h
}

func (h *harness) waitDialed(t *testing.T, n int) *fakeConn {
	t.Helper()
	require.Eventually(t, func() bool {
		if h.dialer.dials() != n {
			return false
		}
		return len(h.dialer.last().written()) > 0
	}, waitFor, tick)
	return h.dialer.last()
}

func (h *harness) view(t *testing.T) *session.View {
	t.Helper()
	v, err := h.c.View(context.Background())
	require.NoError(t, err)
	return v
}

func TestController_ResetPreview(t *testing.T) {
	h := newHarness(t, "", &fakeStore{createID: "srv-1"})
	require.NoError(t, h.c.Reset(context.Background()))
	assert.True(t, h.listener.noticed(NoticeSignInRequired))
	assert.EqualValues(t, 0, h.dialer.dials())
	assert.NotEqual(t, "srv-1", h.view(t).SessionID)
}

func TestController_ResetAdoptsRemoteID(t *testing.T) {
	type testCase struct {
		name     string
		store    *fakeStore
		expID    string
		expLocal bool
	}
	cases := []testCase{
		{name: "remote id", store: &fakeStore{createID: "srv-1"}, expID: "srv-1"},
		{name: "create fails", store: &fakeStore{createErr: errors.New("down")}, expLocal: true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h := newHarness(t, "abc", tc.store)
			require.NoError(t, h.c.Reset(context.Background()))
			c := h.waitDialed(t, 1)
			view := h.view(t)
			if tc.expLocal {
				assert.NotEmpty(t, view.SessionID)
			} else {
				assert.EqualValues(t, tc.expID, view.SessionID)
			}
			assert.Contains(t, c.written()[0], `"session_id":"`+view.SessionID+`"`)
			assert.True(t, h.listener.noticed(NoticeSessionStarted))
		})
	}
}

func TestController_ResetDropsOldConnectionBeforeCreate(t *testing.T) {
	store := &fakeStore{createID: "srv-1"}
	h := newHarness(t, "abc", store)
	require.NoError(t, h.c.Reset(context.Background()))
	old := h.waitDialed(t, 1)

	store.createID = "srv-2"
	store.createEntered = make(chan struct{})
	store.createRelease = make(chan struct{})
	resetDone := make(chan error, 1)
	go func() { resetDone <- h.c.Reset(context.Background()) }()
	<-store.createEntered

	select {
	case <-old.done:
	default:
		t.Fatal("previous connection still open while the new session is created")
	}
	old.frames <- []byte(`{"type":"orchestrator","content":"late frame"}`)
	view := h.view(t)
	assert.Empty(t, view.Timeline)
	assert.EqualValues(t, 0, h.persisted())

	close(store.createRelease)
	require.NoError(t, <-resetDone)
	c := h.waitDialed(t, 2)
	assert.Contains(t, c.written()[0], `"session_id":"srv-2"`)
}

func TestController_FramesDriveView(t *testing.T) {
	h := newHarness(t, "abc", &fakeStore{createID: "srv-1"})
	require.NoError(t, h.c.Reset(context.Background()))
	c := h.waitDialed(t, 1)
	before := h.listener.updateCount()

	frames := []string{
		`{"type":"agent_start","agent_id":"diagnostics_orders","agent_name":"Diagnostics"}`,
		`{"type":"agent_token","agent_id":"diagnostics_orders","content":"{"}`,
		`{"type":"info","content":"ignored"}`,
		`not json`,
		`{"type":"agent_message","agent_id":"diagnostics_orders","content":"x {\"sbar_note\":\"n\",\"order_bundle\":{\"labs\":[\"CBC\"]}}"}`,
		`{"type":"final_result","content":"Plan ready"}`,
	}
	for _, frame := range frames {
		c.frames <- []byte(frame)
	}
	require.Eventually(t, func() bool { return len(h.view(t).Transcript) == 1 }, waitFor, tick)

	view := h.view(t)
	assert.EqualValues(t, "Plan ready", view.Transcript[0].Content)
	require.NotNil(t, view.Artifact)
	assert.EqualValues(t, []string{"CBC"}, view.Artifact.Items())
	assert.EqualValues(t, 3, h.listener.updateCount()-before)
	assert.EqualValues(t, 2, h.persisted())
}

func TestController_AuthErrorExpires(t *testing.T) {
	type testCase struct {
		name  string
		close func(c *fakeConn)
	}
	cases := []testCase{
		{name: "auth_error frame", close: func(c *fakeConn) { c.frames <- []byte(`{"type":"auth_error","message":"expired"}`) }},
		{name: "policy violation close", close: func(c *fakeConn) { c.peerClose(conn.ClosePolicyViolation) }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h := newHarness(t, "abc", &fakeStore{createID: "srv-1"})
			require.NoError(t, h.c.Reset(context.Background()))
			c := h.waitDialed(t, 1)

			tc.close(c)
			require.Eventually(t, func() bool { return h.listener.noticed(NoticeAuthExpired) }, waitFor, tick)
			assert.EqualValues(t, "", h.creds.AccessToken())
			assert.NotEqual(t, "srv-1", h.view(t).SessionID)

			h.clock.Advance(time.Minute)
			time.Sleep(20 * time.Millisecond)
			assert.EqualValues(t, 1, h.dialer.dials())
		})
	}
}

func TestController_StaleResumeDiscarded(t *testing.T) {
	store := &fakeStore{
		createErr: errors.New("down"),
		snapshot:  &session.Snapshot{Session: &session.Info{ID: "old"}},
		entered:   make(chan struct{}),
		release:   make(chan struct{}),
	}
	h := newHarness(t, "abc", store)
	result := make(chan error, 1)
	go func() { result <- h.c.Resume(context.Background(), "old") }()
	<-store.entered
	require.NoError(t, h.c.Reset(context.Background()))
	current := h.view(t).SessionID
	close(store.release)

	assert.ErrorIs(t, <-result, ErrStale)
	assert.EqualValues(t, current, h.view(t).SessionID)
}

func TestController_ResumeReconnects(t *testing.T) {
	store := &fakeStore{snapshot: &session.Snapshot{
		Session:  &session.Info{ID: "s-9", Summary: "follow-up"},
		Messages: []*session.MessageRecord{{Role: session.RoleUser, Content: "hi"}},
		Handoffs: []*session.HandoffRecord{{Kind: "handoff", Content: "to triage"}},
	}}
	h := newHarness(t, "abc", store)
	require.NoError(t, h.c.Resume(context.Background(), "s-9"))
	c := h.waitDialed(t, 1)

	view := h.view(t)
	assert.EqualValues(t, "s-9", view.SessionID)
	assert.EqualValues(t, "follow-up", view.Summary)
	assert.Len(t, view.Transcript, 1)
	assert.Contains(t, c.written()[0], `"session_id":"s-9"`)
	assert.EqualValues(t, 0, h.persisted())
}

func TestController_ResumeFailures(t *testing.T) {
	h := newHarness(t, "abc", &fakeStore{getErr: errors.New("gone")})
	err := h.c.Resume(context.Background(), "s-1")
	assert.Error(t, err)
	require.Eventually(t, func() bool { return h.listener.noticed(NoticeResumeFailed) }, waitFor, tick)

	noStore := newHarness(t, "abc", nil)
	assert.ErrorIs(t, noStore.c.Resume(context.Background(), "s-1"), ErrNoStore)
	_, err = noStore.c.Sessions(context.Background())
	assert.ErrorIs(t, err, ErrNoStore)
}

func TestController_ResumeLatestFallsBack(t *testing.T) {
	type testCase struct {
		name  string
		store *fakeStore
		expID string
	}
	cases := []testCase{
		{name: "fetch error", store: &fakeStore{getErr: errors.New("404"), createID: "srv-2"}, expID: "srv-2"},
		{name: "empty snapshot", store: &fakeStore{snapshot: &session.Snapshot{}, createID: "srv-3"}, expID: "srv-3"},
		{name: "latest found", store: &fakeStore{snapshot: &session.Snapshot{Session: &session.Info{ID: "s-4"}}, createID: "srv-x"}, expID: "s-4"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h := newHarness(t, "abc", tc.store)
			require.NoError(t, h.c.ResumeLatest(context.Background()))
			assert.EqualValues(t, tc.expID, h.view(t).SessionID)
			h.waitDialed(t, 1)
		})
	}
}

func TestController_Submit(t *testing.T) {
	h := newHarness(t, "abc", &fakeStore{createID: "srv-1"})

	err := h.c.Submit(context.Background(), "hello")
	assert.ErrorIs(t, err, outbound.ErrReconnecting)
	assert.True(t, h.listener.noticed(NoticeReconnecting))
	c := h.waitDialed(t, 1)
	require.Eventually(t, func() bool { return h.c.conn.Ready() }, waitFor, tick)

	assert.ErrorIs(t, h.c.Submit(context.Background(), "   "), outbound.ErrEmptyPrompt)
	require.NoError(t, h.c.Submit(context.Background(), "hello"))
	view := h.view(t)
	require.Len(t, view.Transcript, 1)
	assert.EqualValues(t, session.RoleUser, view.Transcript[0].Role)
	writes := c.written()
	require.Len(t, writes, 2)
	assert.True(t, strings.Contains(writes[1], `"prompt":"hello"`))

	h.creds.Set("")
	assert.ErrorIs(t, h.c.Submit(context.Background(), "hello"), outbound.ErrSignInRequired)
	assert.True(t, h.listener.noticed(NoticeSignInRequired))
}

func TestController_SessionsAndExport(t *testing.T) {
	h := newHarness(t, "abc", &fakeStore{createID: "srv-1"})
	sessions, err := h.c.Sessions(context.Background())
	require.NoError(t, err)
	assert.Len(t, sessions, 2)

	require.NoError(t, h.c.Reset(context.Background()))
	doc, err := h.c.Export(context.Background())
	require.NoError(t, err)
	assert.EqualValues(t, "srv-1", doc.SessionID)
	assert.Empty(t, doc.Conversation)
}

func TestController_Stopped(t *testing.T) {
	c := New("ws://x", credential.NewStatic(""), nil, WithDialer(&fakeDialer{}))
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- c.Run(ctx) }()
	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)
	_, err := c.View(context.Background())
	assert.ErrorIs(t, err, ErrStopped)
}
