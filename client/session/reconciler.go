package session

import (
	"fmt"
	"strings"

	"github.com/cenyuzhangms/MAFCarepath-v2/client/artifact"
	"github.com/cenyuzhangms/MAFCarepath-v2/client/event"
	"github.com/cenyuzhangms/MAFCarepath-v2/client/stage"
	"github.com/cenyuzhangms/MAFCarepath-v2/client/workflow"
	"github.com/cenyuzhangms/MAFCarepath-v2/internal/clock"
)

// MultipleAgentsLabel is shown when more than one stage is running.
const MultipleAgentsLabel = "Multiple agents are processing..."

// Reconciler applies decoded events to a session and its stage store, one
// at a time. It is not safe for concurrent use; a single owner goroutine
// drives it.
type Reconciler struct {
	session  *Session
	stages   *stage.Store
	typing   string
	persist  Persister
	expiry   Expiry
	clock    clock.Clock
	suppress bool
}

// Option configures a Reconciler.
type Option func(*Reconciler)

// WithPersister sets the sink for persistence records.
func WithPersister(p Persister) Option {
	return func(r *Reconciler) { r.persist = p }
}

// WithExpiry sets the collaborator notified on auth_error.
func WithExpiry(e Expiry) Option {
	return func(r *Reconciler) { r.expiry = e }
}

// WithClock sets the clock used to timestamp entries.
func WithClock(c clock.Clock) Option {
	return func(r *Reconciler) { r.clock = c }
}

// NewReconciler creates a reconciler for s; a nil s starts a fresh session.
func NewReconciler(s *Session, opts ...Option) *Reconciler {
	if s == nil {
		s = New(NewID())
	}
	r := &Reconciler{session: s, stages: stage.New(), clock: clock.Real()}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Session returns the current session.
func (r *Reconciler) Session() *Session {
	return r.session
}

// SessionID returns the current session id.
func (r *Reconciler) SessionID() string {
	return r.session.ID()
}

// Stages exposes the stage store for read access.
func (r *Reconciler) Stages() *stage.Store {
	return r.stages
}

// Typing returns the current typing indicator label, empty when hidden.
func (r *Reconciler) Typing() string {
	return r.typing
}

// Apply folds one event into the state and reports what changed.
func (r *Reconciler) Apply(ev event.Event) Change {
	switch actual := ev.(type) {
	case *event.Orchestrator:
		r.appendTimeline(actual.Label, actual.Content)
		return ChangeTimeline | r.escalate(actual.Content)
	case *event.AgentStart:
		r.stages.Start(actual.AgentID, actual.AgentName)
		name := actual.AgentName
		if name == "" {
			name = actual.AgentID
		}
		r.typing = typingLabel(name, len(r.stages.Active()))
		return ChangeStages | ChangeTyping
	case *event.AgentToken:
		r.stages.AppendToken(actual.AgentID, actual.Content)
		return ChangeNone
	case *event.AgentMessage:
		change := ChangeStages | ChangeTyping
		r.stages.Complete(actual.AgentID, actual.Content)
		if actual.AgentID == workflow.ArtifactProducer && r.updateArtifact(actual.Content) {
			change |= ChangeArtifact
		}
		r.typing = ""
		if active := r.stages.Active(); len(active) > 0 {
			r.typing = typingLabel(r.stages.Name(active[0]), len(active))
		}
		return change | r.escalate(actual.Content)
	case *event.ToolCalled:
		r.appendTimeline("tool", fmt.Sprintf("%s: %s", actual.AgentID, actual.ToolName))
		return ChangeTimeline
	case *event.FinalResult:
		r.typing = ""
		if actual.Content == "" {
			return ChangeTyping
		}
		r.appendMessage(RoleAssistant, actual.Content)
		return ChangeTranscript | ChangeTyping
	case *event.Error:
		r.typing = ""
		if actual.Message == "" {
			return ChangeTyping
		}
		r.appendMessage(RoleError, actual.Message)
		return ChangeTranscript | ChangeTyping
	case *event.AuthError:
		r.typing = ""
		if r.expiry != nil {
			r.expiry.Expired()
		}
		return ChangeTyping
	}
	return ChangeNone
}

// Echo appends the user's prompt to the transcript before the server sees it.
func (r *Reconciler) Echo(text string) Change {
	r.appendMessage(RoleUser, text)
	return ChangeTranscript | ChangeTyping
}

// Reset replaces the session and clears every piece of derived state. A nil
// s starts a fresh session.
func (r *Reconciler) Reset(s *Session) {
	if s == nil {
		s = New(NewID())
	}
	r.session = s
	r.stages.Reset()
	r.typing = ""
}

func (r *Reconciler) appendTimeline(kind, content string) {
	if strings.TrimSpace(kind) == "" {
		kind = DefaultTimelineKind
	}
	r.session.prependTimeline(TimelineEntry{Kind: kind, Content: content, Time: r.clock.Now()})
	r.emit(handoffRecord(kind, content))
}

func (r *Reconciler) appendMessage(role Role, content string) {
	r.typing = ""
	r.session.appendMessage(Message{Role: role, Content: content, Time: r.clock.Now()})
	r.emit(messageRecord(role, content))
}

func (r *Reconciler) updateArtifact(text string) bool {
	extracted, ok := artifact.Extract(text)
	if !ok {
		return false
	}
	r.stages.SetArtifact(extracted)
	r.emit(artifactRecord(extracted))
	return true
}

func (r *Reconciler) escalate(text string) Change {
	if r.stages.Escalate(text) {
		return ChangeRisk
	}
	return ChangeNone
}

func (r *Reconciler) emit(record *Record) {
	if r.suppress || r.persist == nil {
		return
	}
	r.persist.Persist(r.session.ID(), record)
}

func typingLabel(name string, active int) string {
	if active > 1 {
		return MultipleAgentsLabel
	}
	return name + " is processing..."
}
