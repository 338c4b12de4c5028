package session

import (
	"errors"
	"strings"

	"github.com/cenyuzhangms/MAFCarepath-v2/client/artifact"
)

// ErrInvalidSnapshot is returned for a snapshot without session information.
var ErrInvalidSnapshot = errors.New("invalid snapshot: missing session")

// Snapshot is a persisted session bundle as returned by the session service.
type Snapshot struct {
	Session   *Info             `json:"session"`
	Messages  []*MessageRecord  `json:"messages"`
	Handoffs  []*HandoffRecord  `json:"handoffs"`
	Artifacts []*ArtifactRecord `json:"artifacts"`
}

// Info describes a persisted session.
type Info struct {
	ID        string `json:"id"`
	Title     string `json:"title,omitempty"`
	Summary   string `json:"summary,omitempty"`
	CreatedAt string `json:"created_at,omitempty"`
	UpdatedAt string `json:"updated_at,omitempty"`
}

// MessageRecord is a persisted transcript entry.
type MessageRecord struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// HandoffRecord is a persisted timeline entry.
type HandoffRecord struct {
	Kind    string `json:"kind"`
	Content string `json:"content"`
}

// ArtifactRecord is a persisted artifact; PayloadJSON holds the artifact
// object as text.
type ArtifactRecord struct {
	ArtifactType string `json:"artifact_type"`
	PayloadJSON  string `json:"payload_json"`
}

// Hydrate rebuilds r from snap: the state is reset to the snapshot's session,
// then messages, handoffs and artifacts are replayed in order. Nothing is
// sent to the persister while replaying. An invalid snapshot leaves r as is.
func Hydrate(r *Reconciler, snap *Snapshot) error {
	if snap == nil || snap.Session == nil || strings.TrimSpace(snap.Session.ID) == "" {
		return ErrInvalidSnapshot
	}
	r.suppress = true
	defer func() { r.suppress = false }()

	s := New(snap.Session.ID)
	s.Title = snap.Session.Title
	r.Reset(s)
	for _, msg := range snap.Messages {
		if msg == nil {
			continue
		}
		role := msg.Role
		if role == "" {
			role = RoleAssistant
		}
		r.appendMessage(role, msg.Content)
	}
	for _, handoff := range snap.Handoffs {
		if handoff == nil {
			continue
		}
		r.appendTimeline(handoff.Kind, handoff.Content)
	}
	for _, record := range snap.Artifacts {
		if record == nil {
			continue
		}
		if record.ArtifactType != "" && record.ArtifactType != artifact.Type {
			continue
		}
		r.updateArtifact(record.PayloadJSON)
	}
	s.Summary = snap.Session.Summary
	return nil
}
