package session

import (
	"encoding/json"

	"github.com/cenyuzhangms/MAFCarepath-v2/client/artifact"
)

// Persisted event types.
const (
	RecordHandoff  = "handoff"
	RecordMessage  = "message"
	RecordArtifact = "artifact"
)

// Record is one event appended to the persistence service.
type Record struct {
	EventType string      `json:"event_type"`
	Payload   interface{} `json:"payload"`
}

// HandoffPayload is the payload of a handoff record.
type HandoffPayload struct {
	Kind    string `json:"kind"`
	Content string `json:"content"`
}

// MessagePayload is the payload of a message record.
type MessagePayload struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// ArtifactPayload is the payload of an artifact record.
type ArtifactPayload struct {
	ArtifactType string          `json:"artifact_type"`
	Data         json.RawMessage `json:"data"`
}

// Persister receives records as state changes. Implementations must not
// block and must swallow their own failures.
type Persister interface {
	Persist(sessionID string, record *Record)
}

// PersisterFunc adapts a function to Persister.
type PersisterFunc func(sessionID string, record *Record)

func (f PersisterFunc) Persist(sessionID string, record *Record) { f(sessionID, record) }

// Expiry is notified when the orchestrator rejects the credential.
type Expiry interface {
	Expired()
}

// ExpiryFunc adapts a function to Expiry.
type ExpiryFunc func()

func (f ExpiryFunc) Expired() { f() }

func handoffRecord(kind, content string) *Record {
	return &Record{EventType: RecordHandoff, Payload: &HandoffPayload{Kind: kind, Content: content}}
}

func messageRecord(role Role, content string) *Record {
	return &Record{EventType: RecordMessage, Payload: &MessagePayload{Role: role, Content: content}}
}

func artifactRecord(a *artifact.Artifact) *Record {
	return &Record{EventType: RecordArtifact, Payload: &ArtifactPayload{ArtifactType: artifact.Type, Data: a.Raw}}
}
