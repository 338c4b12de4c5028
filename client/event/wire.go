package event

import (
	"encoding/json"

	"github.com/cenyuzhangms/MAFCarepath-v2/client/workflow"
)

// Hello registers the connection with a session. It is the first frame sent
// on every new connection.
type Hello struct {
	SessionID   string           `json:"session_id"`
	AccessToken *string          `json:"access_token"`
	Pattern     workflow.Pattern `json:"pattern"`
}

// Prompt submits one user turn.
type Prompt struct {
	SessionID   string           `json:"session_id"`
	Prompt      string           `json:"prompt"`
	AccessToken *string          `json:"access_token"`
	Pattern     workflow.Pattern `json:"pattern"`
}

// Token converts a possibly blank credential into the wire form, where an
// absent credential is encoded as null.
func Token(v string) *string {
	if v == "" {
		return nil
	}
	return &v
}

// Encode marshals an outbound frame.
func Encode(frame interface{}) ([]byte, error) {
	return json.Marshal(frame)
}
