// Package store is the REST client for the session persistence service and
// the fire-and-forget recorder that feeds it.
package store

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cenyuzhangms/MAFCarepath-v2/client/session"
)

// Client calls the session service.
type Client struct {
	baseURL       string
	http          *http.Client
	tokenProvider TokenProvider
	headers       map[string]string
	retry         RetryPolicy
}

// New constructs a client for baseURL.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		http:    &http.Client{Timeout: 30 * time.Second},
	}
	c.retry = RetryPolicy{
		MaxAttempts: 3,
		Delay:       200 * time.Millisecond,
		RetryStatuses: map[int]struct{}{
			http.StatusTooManyRequests:    {},
			http.StatusBadGateway:         {},
			http.StatusServiceUnavailable: {},
			http.StatusGatewayTimeout:     {},
		},
		RetryMethods: map[string]struct{}{
			http.MethodGet:  {},
			http.MethodHead: {},
		},
		RetryOnError: true,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	return c
}

// CreateSession creates a persisted session and returns its server id.
func (c *Client) CreateSession(ctx context.Context, title string) (*session.Info, error) {
	var resp session.Info
	if err := c.doJSON(ctx, http.MethodPost, "/api/sessions", &CreateSessionRequest{Title: title}, &resp); err != nil {
		return nil, err
	}
	if strings.TrimSpace(resp.ID) == "" {
		return nil, fmt.Errorf("create session: response without id")
	}
	return &resp, nil
}

// ListSessions lists persisted sessions, most recent first as returned by the service.
func (c *Client) ListSessions(ctx context.Context) ([]*session.Info, error) {
	var resp ListSessionsResponse
	if err := c.doJSON(ctx, http.MethodGet, "/api/sessions", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Sessions, nil
}

// GetSession fetches the snapshot of one session.
func (c *Client) GetSession(ctx context.Context, sessionID string) (*session.Snapshot, error) {
	if strings.TrimSpace(sessionID) == "" {
		return nil, fmt.Errorf("sessionID is required")
	}
	return c.snapshot(ctx, "/api/sessions/"+url.PathEscape(sessionID))
}

// LatestSession fetches the snapshot of the most recently updated session.
func (c *Client) LatestSession(ctx context.Context) (*session.Snapshot, error) {
	return c.snapshot(ctx, "/api/sessions/latest")
}

// AppendEvent appends one event record to a session.
func (c *Client) AppendEvent(ctx context.Context, sessionID string, record *session.Record) error {
	if strings.TrimSpace(sessionID) == "" {
		return fmt.Errorf("sessionID is required")
	}
	if record == nil {
		return fmt.Errorf("record was nil")
	}
	uri := fmt.Sprintf("/api/sessions/%s/events", url.PathEscape(sessionID))
	return c.doJSON(ctx, http.MethodPost, uri, record, nil)
}

func (c *Client) snapshot(ctx context.Context, uri string) (*session.Snapshot, error) {
	var resp session.Snapshot
	if err := c.doJSON(ctx, http.MethodGet, uri, nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) doJSON(ctx context.Context, method, uri string, in, out interface{}) error {
	attempts := c.retry.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}
	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		req, err := c.newRequest(ctx, method, uri, in)
		if err != nil {
			return err
		}
		resp, err := c.http.Do(req)
		if err != nil {
			lastErr = err
			if !c.shouldRetry(method, 0, err) || attempt == attempts {
				return err
			}
			if err := c.wait(ctx); err != nil {
				return err
			}
			continue
		}
		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			b, _ := io.ReadAll(resp.Body)
			resp.Body.Close()
			herr := &HTTPError{StatusCode: resp.StatusCode, Status: resp.Status, Body: strings.TrimSpace(string(b))}
			lastErr = herr
			if !c.shouldRetry(method, resp.StatusCode, herr) || attempt == attempts {
				return herr
			}
			if err := c.wait(ctx); err != nil {
				return err
			}
			continue
		}
		if out == nil {
			resp.Body.Close()
			return nil
		}
		err = json.NewDecoder(resp.Body).Decode(out)
		resp.Body.Close()
		if err != nil {
			return fmt.Errorf("failed to decode %s %s: %w", method, uri, err)
		}
		return nil
	}
	return lastErr
}

func (c *Client) newRequest(ctx context.Context, method, uri string, in interface{}) (*http.Request, error) {
	token := ""
	if c.tokenProvider != nil {
		tok, err := c.tokenProvider(ctx)
		if err != nil {
			return nil, err
		}
		token = strings.TrimSpace(tok)
	}
	if token == "" {
		return nil, ErrNoCredential
	}
	var body io.Reader
	if in != nil {
		buf := &bytes.Buffer{}
		if err := json.NewEncoder(buf).Encode(in); err != nil {
			return nil, err
		}
		body = buf
	}
	// uri is appended so a path prefix on the base URL survives.
	full, err := url.Parse(c.baseURL + uri)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, method, full.String(), body)
	if err != nil {
		return nil, err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range c.headers {
		req.Header.Set(k, v)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	return req, nil
}

func (c *Client) shouldRetry(method string, status int, err error) bool {
	if c.retry.MaxAttempts <= 1 {
		return false
	}
	if _, ok := c.retry.RetryMethods[strings.ToUpper(method)]; !ok {
		return false
	}
	if status > 0 {
		_, ok := c.retry.RetryStatuses[status]
		return ok
	}
	if err != nil {
		return c.retry.RetryOnError
	}
	return false
}

func (c *Client) wait(ctx context.Context) error {
	timer := time.NewTimer(c.retry.Delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
