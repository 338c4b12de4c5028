package event

import (
	"encoding/json"
	"testing"

	"github.com/cenyuzhangms/MAFCarepath-v2/client/workflow"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecode(t *testing.T) {
	type testCase struct {
		name     string
		frame    string
		expected Event
		err      error
	}
	cases := []testCase{
		{
			name:     "orchestrator",
			frame:    `{"type":"orchestrator","kind":"plan","content":"Routing to triage"}`,
			expected: &Orchestrator{Label: "plan", Content: "Routing to triage"},
		},
		{
			name:     "agent start",
			frame:    `{"type":"agent_start","agent_id":"clinical_triage","agent_name":"Clinical Triage","show_message_in_internal_process":true}`,
			expected: &AgentStart{AgentID: "clinical_triage", AgentName: "Clinical Triage"},
		},
		{
			name:     "agent token",
			frame:    `{"type":"agent_token","agent_id":"clinical_triage","content":"{\"urg"}`,
			expected: &AgentToken{AgentID: "clinical_triage", Content: `{"urg`},
		},
		{
			name:     "agent message",
			frame:    `{"type":"agent_message","agent_id":"diagnostics_orders","content":"done"}`,
			expected: &AgentMessage{AgentID: "diagnostics_orders", Content: "done"},
		},
		{
			name:     "tool called",
			frame:    `{"type":"tool_called","agent_id":"coverage_prior_auth","tool_name":"payer_rules","turn":2}`,
			expected: &ToolCalled{AgentID: "coverage_prior_auth", ToolName: "payer_rules"},
		},
		{
			name:     "final result",
			frame:    `{"type":"final_result","content":"### Summary\nok"}`,
			expected: &FinalResult{Content: "### Summary\nok"},
		},
		{
			name:     "error",
			frame:    `{"type":"error","message":"boom"}`,
			expected: &Error{Message: "boom"},
		},
		{
			name:     "auth error",
			frame:    `{"type":"auth_error"}`,
			expected: &AuthError{},
		},
		{name: "not json", frame: `{broken`, err: ErrMalformed},
		{name: "array", frame: `[1,2]`, err: ErrMalformed},
		{name: "missing type", frame: `{"content":"x"}`, err: ErrMissingField},
		{name: "numeric type", frame: `{"type":7}`, err: ErrMissingField},
		{name: "server info frame", frame: `{"type":"info","message":"Registered session s1"}`, err: ErrUnknownKind},
		{name: "server done frame", frame: `{"type":"done"}`, err: ErrUnknownKind},
		{name: "future kind", frame: `{"type":"agent_thought","agent_id":"x"}`, err: ErrUnknownKind},
		{name: "start without agent", frame: `{"type":"agent_start","agent_name":"Triage"}`, err: ErrMissingField},
		{name: "token blank agent", frame: `{"type":"agent_token","agent_id":"  ","content":"x"}`, err: ErrMissingField},
		{name: "wrong field type", frame: `{"type":"agent_message","agent_id":"x","content":42}`, err: ErrMalformed},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			actual, err := Decode([]byte(tc.frame))
			if tc.err != nil {
				assert.ErrorIs(t, err, tc.err)
				assert.Nil(t, actual)
				return
			}
			require.NoError(t, err)
			assert.EqualValues(t, tc.expected, actual)
			assert.EqualValues(t, tc.expected.Kind(), actual.Kind())
		})
	}
}

func TestEncode_NullToken(t *testing.T) {
	data, err := Encode(&Hello{SessionID: "s1", AccessToken: Token(""), Pattern: workflow.Sequential})
	require.NoError(t, err)
	assert.JSONEq(t, `{"session_id":"s1","access_token":null,"pattern":"sequential"}`, string(data))

	data, err = Encode(&Prompt{SessionID: "s1", Prompt: "chest pain", AccessToken: Token("t"), Pattern: workflow.Handoff})
	require.NoError(t, err)
	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.EqualValues(t, "t", decoded["access_token"])
	assert.EqualValues(t, "handoff", decoded["pattern"])
	assert.EqualValues(t, "chest pain", decoded["prompt"])
}
