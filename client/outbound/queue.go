// Package outbound turns user prompts into wire frames, echoing them into the
// transcript before they are sent.
package outbound

import (
	"errors"
	"fmt"
	"strings"

	"github.com/cenyuzhangms/MAFCarepath-v2/client/event"
	"github.com/cenyuzhangms/MAFCarepath-v2/client/workflow"
)

var (
	// ErrSignInRequired is returned when no credential is available.
	ErrSignInRequired = errors.New("sign in to start a session")
	// ErrEmptyPrompt is returned for prompts that are blank after trimming.
	ErrEmptyPrompt = errors.New("prompt was empty")
	// ErrReconnecting is returned when the connection is not open; a
	// reconnect has been requested and the prompt was not sent.
	ErrReconnecting = errors.New("reconnecting, try again shortly")
)

// Credentials supplies the access token.
type Credentials interface {
	AccessToken() string
}

// Sender is the connection a prompt is written to.
type Sender interface {
	Ready() bool
	EnsureConnected()
	Send(frame interface{}) error
}

// EchoFunc appends the user's prompt to the transcript.
type EchoFunc func(text string)

// Queue validates and sends prompts.
type Queue struct {
	creds  Credentials
	sender Sender
	echo   EchoFunc
}

// New creates a queue.
func New(creds Credentials, sender Sender, echo EchoFunc) *Queue {
	return &Queue{creds: creds, sender: sender, echo: echo}
}

// Submit sends prompt for sessionID using pattern. The prompt is echoed once
// it passes validation and the connection is open; a later transport failure
// does not remove the echo.
func (q *Queue) Submit(sessionID string, pattern workflow.Pattern, prompt string) error {
	token := q.creds.AccessToken()
	if token == "" {
		return ErrSignInRequired
	}
	text := strings.TrimSpace(prompt)
	if text == "" {
		return ErrEmptyPrompt
	}
	if !q.sender.Ready() {
		q.sender.EnsureConnected()
		return ErrReconnecting
	}
	if q.echo != nil {
		q.echo(text)
	}
	frame := &event.Prompt{SessionID: sessionID, Prompt: text, AccessToken: event.Token(token), Pattern: pattern}
	if err := q.sender.Send(frame); err != nil {
		return fmt.Errorf("failed to submit prompt: %w", err)
	}
	return nil
}
