// Package session folds decoded orchestrator events into the per-session
// state a client renders: the handoff timeline, the conversation transcript
// and, through the stage store, stage progress, risk and artifacts.
package session

import (
	"time"

	"github.com/google/uuid"
)

// Role of a transcript entry.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleError     Role = "error"
)

// DefaultTimelineKind is used for timeline entries without an explicit kind.
const DefaultTimelineKind = "info"

// TimelineEntry is one handoff/tool note.
type TimelineEntry struct {
	Kind    string    `json:"kind"`
	Content string    `json:"content"`
	Time    time.Time `json:"-"`
}

// Message is one transcript entry.
type Message struct {
	Role    Role      `json:"role"`
	Content string    `json:"content"`
	Time    time.Time `json:"-"`
}

// Session is one conversation. Its id never changes; a different id means a
// different Session value.
type Session struct {
	id         string
	Title      string
	Summary    string
	timeline   []TimelineEntry
	transcript []Message
}

// New creates an empty session with the supplied id.
func New(id string) *Session {
	return &Session{id: id}
}

// NewID returns a fresh client-side session id.
func NewID() string {
	return uuid.NewString()
}

// ID returns the session identifier.
func (s *Session) ID() string {
	return s.id
}

// Timeline returns a copy of the timeline, newest entry first.
func (s *Session) Timeline() []TimelineEntry {
	return append([]TimelineEntry(nil), s.timeline...)
}

// Transcript returns a copy of the transcript in arrival order.
func (s *Session) Transcript() []Message {
	return append([]Message(nil), s.transcript...)
}

func (s *Session) prependTimeline(entry TimelineEntry) {
	s.timeline = append([]TimelineEntry{entry}, s.timeline...)
}

func (s *Session) appendMessage(msg Message) {
	s.transcript = append(s.transcript, msg)
}
