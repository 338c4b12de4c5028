package stage

import (
	"github.com/cenyuzhangms/MAFCarepath-v2/client/artifact"
	"github.com/cenyuzhangms/MAFCarepath-v2/client/risk"
)

// Store maps stage ids to their state and tracks the active set, the current
// risk level and the latest diagnostics artifact. It is owned by a single
// goroutine and does no locking.
type Store struct {
	stages   map[string]*Stage
	order    []string
	active   []string
	risk     risk.Level
	artifact *artifact.Artifact
}

// New creates an empty store.
func New() *Store {
	return &Store{stages: map[string]*Stage{}}
}

// Start records that a stage began running. The entry is created on first
// sight; an existing entry keeps its accumulated state.
func (s *Store) Start(id, name string) {
	if _, ok := s.stages[id]; !ok {
		if name == "" {
			name = id
		}
		s.stages[id] = &Stage{ID: id, Name: name}
		s.order = append(s.order, id)
	}
	if !s.IsActive(id) {
		s.active = append(s.active, id)
	}
}

// AppendToken accumulates streamed text. Tokens for stages that were never
// started (or were cleared by a reset) are dropped.
func (s *Store) AppendToken(id, text string) bool {
	st, ok := s.stages[id]
	if !ok {
		return false
	}
	st.Tokens = append(st.Tokens, text)
	return true
}

// Complete removes the stage from the active set and stores its final
// message. A later completion overwrites an earlier one.
func (s *Store) Complete(id, finalText string) {
	s.removeActive(id)
	st, ok := s.stages[id]
	if !ok {
		st = &Stage{ID: id, Name: id}
		s.stages[id] = st
		s.order = append(s.order, id)
	}
	st.FinalMessage = finalText
	st.Complete = true
}

// Reset clears all stages, the active set, the risk level and the artifact.
func (s *Store) Reset() {
	s.stages = map[string]*Stage{}
	s.order = nil
	s.active = nil
	s.risk = risk.None
	s.artifact = nil
}

// Status derives the stage status: active takes priority over a completion
// flag left from an earlier turn.
func (s *Store) Status(id string) Status {
	if s.IsActive(id) {
		return Active
	}
	if st, ok := s.stages[id]; ok && st.Complete {
		return Complete
	}
	return Pending
}

// IsActive reports whether id is in the active set.
func (s *Store) IsActive(id string) bool {
	for _, candidate := range s.active {
		if candidate == id {
			return true
		}
	}
	return false
}

// Active returns the active stage ids in start order.
func (s *Store) Active() []string {
	return append([]string(nil), s.active...)
}

// Stage returns a copy of the stage entry.
func (s *Store) Stage(id string) (*Stage, bool) {
	st, ok := s.stages[id]
	if !ok {
		return nil, false
	}
	return st.clone(), true
}

// Text returns the joined streamed tokens of id.
func (s *Store) Text(id string) string {
	return s.stages[id].Text()
}

// Name returns the display name recorded for id, or id itself.
func (s *Store) Name(id string) string {
	if st, ok := s.stages[id]; ok && st.Name != "" {
		return st.Name
	}
	return id
}

// Known returns ids of all stages with an entry, in first-seen order.
func (s *Store) Known() []string {
	return append([]string(nil), s.order...)
}

// Risk returns the current risk level.
func (s *Store) Risk() risk.Level {
	return s.risk
}

// Escalate raises the risk level using text. It reports whether the level changed.
func (s *Store) Escalate(text string) bool {
	next := s.risk.Escalate(text)
	if next == s.risk {
		return false
	}
	s.risk = next
	return true
}

// Artifact returns the latest diagnostics artifact, if any.
func (s *Store) Artifact() *artifact.Artifact {
	return s.artifact
}

// SetArtifact replaces the current artifact.
func (s *Store) SetArtifact(a *artifact.Artifact) {
	s.artifact = a
}

func (s *Store) removeActive(id string) {
	for i, candidate := range s.active {
		if candidate == id {
			s.active = append(s.active[:i], s.active[i+1:]...)
			return
		}
	}
}
