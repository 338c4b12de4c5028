// Package event decodes orchestrator frames into a closed set of typed events
// and encodes the frames the client sends back.
package event

// Kind identifies an inbound event.
type Kind string

const (
	KindOrchestrator Kind = "orchestrator"
	KindAgentStart   Kind = "agent_start"
	KindAgentToken   Kind = "agent_token"
	KindAgentMessage Kind = "agent_message"
	KindToolCalled   Kind = "tool_called"
	KindFinalResult  Kind = "final_result"
	KindError        Kind = "error"
	KindAuthError    Kind = "auth_error"
)

// Event is one decoded orchestrator event. The concrete types below are the
// only implementations.
type Event interface {
	Kind() Kind
	sealed()
}

// Scoped is implemented by events addressed to a workflow stage.
type Scoped interface {
	Event
	StageID() string
}

// Orchestrator is a coordinator note appended to the handoff timeline.
type Orchestrator struct {
	Label   string `json:"kind"`
	Content string `json:"content"`
}

// AgentStart marks a stage as running.
type AgentStart struct {
	AgentID   string `json:"agent_id"`
	AgentName string `json:"agent_name"`
}

// AgentToken carries a streamed partial output chunk.
type AgentToken struct {
	AgentID string `json:"agent_id"`
	Content string `json:"content"`
}

// AgentMessage carries a stage's final output for the turn.
type AgentMessage struct {
	AgentID   string `json:"agent_id"`
	AgentName string `json:"agent_name"`
	Content   string `json:"content"`
}

// ToolCalled reports that a stage invoked a tool.
type ToolCalled struct {
	AgentID  string `json:"agent_id"`
	ToolName string `json:"tool_name"`
}

// FinalResult is the assistant answer closing a turn.
type FinalResult struct {
	Content string `json:"content"`
}

// Error is an application error reported by the orchestrator.
type Error struct {
	Message string `json:"message"`
}

// AuthError reports that the credential was rejected.
type AuthError struct {
	Message string `json:"message"`
}

func (*Orchestrator) Kind() Kind { return KindOrchestrator }
func (*AgentStart) Kind() Kind   { return KindAgentStart }
func (*AgentToken) Kind() Kind   { return KindAgentToken }
func (*AgentMessage) Kind() Kind { return KindAgentMessage }
func (*ToolCalled) Kind() Kind   { return KindToolCalled }
func (*FinalResult) Kind() Kind  { return KindFinalResult }
func (*Error) Kind() Kind        { return KindError }
func (*AuthError) Kind() Kind    { return KindAuthError }

func (*Orchestrator) sealed() {}
func (*AgentStart) sealed()   {}
func (*AgentToken) sealed()   {}
func (*AgentMessage) sealed() {}
func (*ToolCalled) sealed()   {}
func (*FinalResult) sealed()  {}
func (*Error) sealed()        {}
func (*AuthError) sealed()    {}

func (e *AgentStart) StageID() string   { return e.AgentID }
func (e *AgentToken) StageID() string   { return e.AgentID }
func (e *AgentMessage) StageID() string { return e.AgentID }
func (e *ToolCalled) StageID() string   { return e.AgentID }
