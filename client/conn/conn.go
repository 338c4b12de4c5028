// Package conn keeps one live websocket to the orchestrator, registers the
// session on every open and reconnects after unexpected closes.
package conn

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// ClosePolicyViolation is the close code the orchestrator uses to reject a
// credential. It suppresses reconnects.
const ClosePolicyViolation = 1008

// CloseAbnormal is reported when a connection ends without a close frame.
const CloseAbnormal = 1006

// ChatPath is the websocket endpoint relative to the backend URL.
const ChatPath = "/ws/chat"

// Conn is one established connection.
type Conn interface {
	// ReadMessage blocks for the next frame. Once the peer closes it returns
	// a *CloseError.
	ReadMessage() ([]byte, error)
	WriteMessage(data []byte) error
	Close() error
}

// Dialer opens connections.
type Dialer interface {
	Dial(ctx context.Context, url string) (Conn, error)
}

// CloseError carries the close code reported by the peer.
type CloseError struct {
	Code int
	Text string
}

func (e *CloseError) Error() string {
	if e.Text == "" {
		return fmt.Sprintf("connection closed: %d", e.Code)
	}
	return fmt.Sprintf("connection closed: %d %s", e.Code, e.Text)
}

// CloseCode extracts the close code from err, CloseAbnormal when none.
func CloseCode(err error) int {
	var closeErr *CloseError
	if errors.As(err, &closeErr) {
		return closeErr.Code
	}
	return CloseAbnormal
}

// URL derives the websocket endpoint from a backend http(s) URL.
func URL(backend string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(backend))
	if err != nil {
		return "", fmt.Errorf("invalid backend url %q: %w", backend, err)
	}
	switch u.Scheme {
	case "http", "ws":
		u.Scheme = "ws"
	case "https", "wss":
		u.Scheme = "wss"
	default:
		return "", fmt.Errorf("unsupported backend scheme %q", u.Scheme)
	}
	if u.Host == "" {
		return "", fmt.Errorf("invalid backend url %q: missing host", backend)
	}
	u.Path = strings.TrimRight(u.Path, "/") + ChatPath
	u.RawQuery = ""
	u.Fragment = ""
	return u.String(), nil
}
