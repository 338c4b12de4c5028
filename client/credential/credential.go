// Package credential provides the access token used to register sessions and
// call the session service.
package credential

import (
	"context"
	"strings"
	"sync"
	"time"
)

// Provider supplies the current access token. An empty token means the
// client runs in preview mode.
type Provider interface {
	AccessToken() string
	// Clear forgets the token after the server rejected it.
	Clear(ctx context.Context) error
}

// Token is the stored credential.
type Token struct {
	AccessToken string    `json:"access_token"`
	Expiry      time.Time `json:"expiry,omitempty"`
}

// Valid reports whether the token is present and not expired at now.
func (t *Token) Valid(now time.Time) bool {
	if t == nil || strings.TrimSpace(t.AccessToken) == "" {
		return false
	}
	return t.Expiry.IsZero() || now.Before(t.Expiry)
}

// Static keeps a token in memory.
type Static struct {
	mu    sync.RWMutex
	token string
}

// NewStatic creates a provider holding token.
func NewStatic(token string) *Static {
	return &Static{token: strings.TrimSpace(token)}
}

func (s *Static) AccessToken() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

// Set replaces the token.
func (s *Static) Set(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = strings.TrimSpace(token)
}

func (s *Static) Clear(ctx context.Context) error {
	s.Set("")
	return nil
}
