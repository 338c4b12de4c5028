package credential

import (
	"context"
	"fmt"
	"os"
	"reflect"
	"strings"
	"sync"
	"time"

	"github.com/viant/afs"
	"github.com/viant/scy"
)

// Scy reads and writes an encrypted token through a scy resource URL such as
// "~/.carepath/token.json|blowfish://default". The token is loaded lazily
// and cached.
type Scy struct {
	service *scy.Service
	fs      afs.Service
	url     string
	now     func() time.Time

	mu     sync.RWMutex
	token  *Token
	loaded bool
}

// NewScy creates a scy-backed provider for url.
func NewScy(url string) *Scy {
	return &Scy{service: scy.New(), fs: afs.New(), url: strings.TrimSpace(url), now: time.Now}
}

// Load reads the token from its resource, replacing the cached value.
func (s *Scy) Load(ctx context.Context) (*Token, error) {
	if s.url == "" {
		return nil, fmt.Errorf("credential url was empty")
	}
	resource := scy.EncodedResource(s.url).Decode(ctx, reflect.TypeOf(Token{}))
	secret, err := s.service.Load(ctx, resource)
	if err != nil {
		if isNotFound(err) {
			s.cache(nil)
			return nil, nil
		}
		return nil, fmt.Errorf("failed to load credential: %w", err)
	}
	token, ok := secret.Target.(*Token)
	if !ok {
		return nil, fmt.Errorf("unexpected credential type: %T", secret.Target)
	}
	s.cache(token)
	return token, nil
}

// Save encrypts token to the resource and caches it.
func (s *Scy) Save(ctx context.Context, token *Token) error {
	if token == nil {
		return fmt.Errorf("token was nil")
	}
	if s.url == "" {
		return fmt.Errorf("credential url was empty")
	}
	resource := scy.EncodedResource(s.url).Decode(ctx, reflect.TypeOf(Token{}))
	if err := s.service.Store(ctx, scy.NewSecret(token, resource)); err != nil {
		return fmt.Errorf("failed to store credential: %w", err)
	}
	s.cache(token)
	return nil
}

// AccessToken returns the cached token, loading it on first use. Load
// failures and expired tokens yield an empty token.
func (s *Scy) AccessToken() string {
	s.mu.RLock()
	token, loaded := s.token, s.loaded
	s.mu.RUnlock()
	if !loaded {
		token, _ = s.Load(context.Background())
	}
	if !token.Valid(s.now()) {
		return ""
	}
	return token.AccessToken
}

// Clear forgets the cached token and removes the stored resource.
func (s *Scy) Clear(ctx context.Context) error {
	s.cache(nil)
	if s.url == "" {
		return nil
	}
	resource := scy.EncodedResource(s.url).Decode(ctx, reflect.TypeOf(Token{}))
	ok, err := s.fs.Exists(ctx, resource.URL)
	if err != nil || !ok {
		return nil
	}
	if err := s.fs.Delete(ctx, resource.URL); err != nil {
		return fmt.Errorf("failed to delete credential: %w", err)
	}
	return nil
}

func (s *Scy) cache(token *Token) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = token
	s.loaded = true
}

func isNotFound(err error) bool {
	if os.IsNotExist(err) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "no such file or directory") || strings.Contains(msg, "not found")
}
