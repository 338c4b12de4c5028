package event

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/tidwall/gjson"
)

var (
	// ErrMalformed is returned for frames that are not a JSON object.
	ErrMalformed = errors.New("malformed frame")
	// ErrUnknownKind is returned for frames whose type is not a known event kind.
	ErrUnknownKind = errors.New("unknown event kind")
	// ErrMissingField is returned when a known kind lacks a required field.
	ErrMissingField = errors.New("missing required field")
)

// Decode validates one raw frame and returns its typed event. Any error means
// the frame should be dropped; the stream itself stays usable.
func Decode(data []byte) (Event, error) {
	if !gjson.ValidBytes(data) {
		return nil, ErrMalformed
	}
	root := gjson.ParseBytes(data)
	if !root.IsObject() {
		return nil, ErrMalformed
	}
	typ := root.Get("type")
	if typ.Type != gjson.String {
		return nil, fmt.Errorf("%w: type", ErrMissingField)
	}
	ev, err := newEvent(Kind(typ.Str))
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(data, ev); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrMalformed, typ.Str, err)
	}
	if scoped, ok := ev.(Scoped); ok && strings.TrimSpace(scoped.StageID()) == "" {
		return nil, fmt.Errorf("%w: %s.agent_id", ErrMissingField, typ.Str)
	}
	return ev, nil
}

func newEvent(kind Kind) (Event, error) {
	switch kind {
	case KindOrchestrator:
		return &Orchestrator{}, nil
	case KindAgentStart:
		return &AgentStart{}, nil
	case KindAgentToken:
		return &AgentToken{}, nil
	case KindAgentMessage:
		return &AgentMessage{}, nil
	case KindToolCalled:
		return &ToolCalled{}, nil
	case KindFinalResult:
		return &FinalResult{}, nil
	case KindError:
		return &Error{}, nil
	case KindAuthError:
		return &AuthError{}, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownKind, string(kind))
}
